// Package logs pulls recent system log lines from a device over SSH and
// tags each with a severity.
//
// The device's OS is not probed first. Instead a fixed list of commands is
// tried in order (kernel ring buffer, syslog files, Windows event log) and
// the first one producing real output wins.
package logs

import (
	"context"
	"strings"
	"time"

	"github.com/NewSmoke38/SED-Manager/internal/errors"
	"github.com/NewSmoke38/SED-Manager/internal/logger"
	"github.com/NewSmoke38/SED-Manager/pkg/sshutil"
)

// MaxEntries is how many of the most recent lines a Result keeps.
const MaxEntries = 50

// Commands are tried in order until one produces usable output.
var Commands = []string{
	"dmesg | tail -50",
	"tail -50 /var/log/messages 2>/dev/null || tail -50 /var/log/syslog 2>/dev/null",
	"Get-EventLog -LogName System -Newest 50",
}

// notRecognized is what cmd.exe prints for an unknown command. Output
// containing it came from a shell of the wrong OS family.
const notRecognized = "not recognized"

// Level is the severity assigned to a log line.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Entry is one log line.
type Entry struct {
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Result holds at most MaxEntries entries, oldest first. Err records why
// the device could not be reached; it is never sent to API clients, which
// just see an empty list.
type Result struct {
	Logs []Entry `json:"logs"`
	Err  error   `json:"-"`
}

// Fetcher retrieves logs from devices.
type Fetcher struct {
	dialer sshutil.Dialer
	log    logger.Logger
	now    func() time.Time
}

// NewFetcher creates a fetcher that reaches devices through dialer.
// A nil log discards messages.
func NewFetcher(dialer sshutil.Dialer, log logger.Logger) *Fetcher {
	if log == nil {
		log = logger.Noop()
	}
	return &Fetcher{
		dialer: dialer,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// FetchLogs returns the device's recent log lines. It never fails outright:
// an unreachable device yields an empty Result with Err set, and a device
// where no command produced usable output yields an empty Result.
func (f *Fetcher) FetchLogs(ctx context.Context, target sshutil.Target) Result {
	conn, err := f.dialer.Dial(ctx, target)
	if err != nil {
		f.log.Warn("fetch logs from %s: %s", target.Address(), errors.Message(err))
		return Result{Logs: []Entry{}, Err: err}
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			f.log.Debug("close %s: %v", target.Address(), cerr)
		}
	}()

	for _, cmd := range Commands {
		res, err := conn.Run(ctx, cmd)
		if err != nil {
			f.log.Debug("%s: %q failed: %s", target.Address(), cmd, errors.Message(err))
			if ctx.Err() != nil {
				return Result{Logs: []Entry{}, Err: err}
			}
			continue
		}

		output := res.Output()
		if !usable(output) {
			continue
		}
		return Result{Logs: Parse(output, f.now())}
	}

	f.log.Info("no log source answered on %s", target.Address())
	return Result{Logs: []Entry{}}
}

func usable(output string) bool {
	if strings.TrimSpace(output) == "" {
		return false
	}
	return !strings.Contains(strings.ToLower(output), notRecognized)
}

// Parse turns command output into entries stamped with at. Blank lines are
// dropped and only the last MaxEntries survive.
func Parse(output string, at time.Time) []Entry {
	entries := []Entry{}
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		entries = append(entries, Entry{
			Level:     Classify(line),
			Message:   line,
			Timestamp: at,
		})
	}

	if len(entries) > MaxEntries {
		entries = entries[len(entries)-MaxEntries:]
	}
	return entries
}

// Classify assigns a level by keyword, case-insensitively: "error" or
// "fail" is an error, "warn" a warning, anything else info.
func Classify(line string) Level {
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "error"), strings.Contains(lower, "fail"):
		return LevelError
	case strings.Contains(lower, "warn"):
		return LevelWarning
	default:
		return LevelInfo
	}
}
