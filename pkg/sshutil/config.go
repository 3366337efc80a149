package sshutil

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/kevinburke/ssh_config"
)

// SSHHostEntry represents a parsed host entry from SSH config.
type SSHHostEntry struct {
	Alias    string // The Host pattern (alias)
	Hostname string // The HostName value (actual host to connect to)
	User     string // The User value
	Port     string // The Port value
}

// Description returns a user-friendly description of the host.
func (h SSHHostEntry) Description() string {
	parts := []string{}

	if h.Hostname != "" && h.Hostname != h.Alias {
		parts = append(parts, h.Hostname)
	}

	if h.User != "" {
		parts = append(parts, "user: "+h.User)
	}

	if h.Port != "" && h.Port != "22" {
		parts = append(parts, "port: "+h.Port)
	}

	if len(parts) == 0 {
		return h.Alias
	}

	return strings.Join(parts, ", ")
}

// DefaultSSHConfigPath returns ~/.ssh/config.
func DefaultSSHConfigPath() string {
	return filepath.Join(homeDir(), ".ssh", "config")
}

// ParseSSHConfigFile parses the specified SSH config file.
// It filters out wildcards, returning only concrete host aliases.
func ParseSSHConfigFile(configPath string) ([]SSHHostEntry, error) {
	cfg, err := decodeSSHConfig(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // No SSH config is fine
		}
		return nil, err
	}

	var hosts []SSHHostEntry
	seen := make(map[string]bool)

	for _, host := range cfg.Hosts {
		for _, pattern := range host.Patterns {
			alias := pattern.String()

			// Skip wildcards and special patterns
			if strings.Contains(alias, "*") || strings.Contains(alias, "?") {
				continue
			}

			if seen[alias] {
				continue
			}
			seen[alias] = true

			hosts = append(hosts, entryFor(cfg, alias))
		}
	}

	// Sort by alias for consistent ordering
	sort.Slice(hosts, func(i, j int) bool {
		return hosts[i].Alias < hosts[j].Alias
	})

	return hosts, nil
}

// ResolveTarget turns a CLI-style host string into a Target.
// The host can be:
//   - An SSH config alias (e.g., "edge-01")
//   - A hostname (e.g., "192.168.1.100")
//   - A user@hostname (e.g., "pi@192.168.1.100")
//   - A hostname:port (e.g., "192.168.1.100:2222")
//
// HostName, Port and User come from configPath when the host matches an
// entry there. Explicit user@ and :port parts win over the config file.
// An empty configPath skips the config lookup.
func ResolveTarget(host, configPath string) Target {
	target := Target{}

	if atIdx := strings.Index(host, "@"); atIdx != -1 {
		target.User = host[:atIdx]
		host = host[atIdx+1:]
	}

	if colonIdx := strings.LastIndex(host, ":"); colonIdx != -1 {
		if port, err := strconv.Atoi(host[colonIdx+1:]); err == nil && port > 0 {
			target.Port = port
			host = host[:colonIdx]
		}
	}

	target.Host = host

	if configPath == "" {
		return target
	}
	cfg, err := decodeSSHConfig(configPath)
	if err != nil {
		return target
	}

	entry := entryFor(cfg, host)
	if entry.Hostname != "" {
		target.Host = entry.Hostname
	}
	if target.Port == 0 && entry.Port != "" {
		if port, err := strconv.Atoi(entry.Port); err == nil {
			target.Port = port
		}
	}
	if target.User == "" {
		target.User = entry.User
	}

	return target
}

func entryFor(cfg *ssh_config.Config, alias string) SSHHostEntry {
	entry := SSHHostEntry{Alias: alias}
	if hostname, _ := cfg.Get(alias, "HostName"); hostname != "" {
		entry.Hostname = hostname
	}
	if user, _ := cfg.Get(alias, "User"); user != "" {
		entry.User = user
	}
	if port, _ := cfg.Get(alias, "Port"); port != "" {
		entry.Port = port
	}
	return entry
}

// decodeSSHConfig reads and decodes an SSH config file.
// The kevinburke/ssh_config library doesn't support Match, so only content
// before the first Match block is parsed.
func decodeSSHConfig(configPath string) (*ssh_config.Config, error) {
	content, _, err := preprocessSSHConfig(configPath)
	if err != nil {
		return nil, err
	}
	return ssh_config.Decode(bytes.NewReader(content))
}

// preprocessSSHConfig reads the SSH config and returns content up to the first Match directive.
// Returns the original content if no Match directive is found.
// Also returns the line number where Match was found (0 if not found).
func preprocessSSHConfig(configPath string) ([]byte, int, error) {
	content, err := os.ReadFile(configPath)
	if err != nil {
		return nil, 0, err
	}

	lines := strings.Split(string(content), "\n")
	var result []string
	matchLine := 0

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(strings.ToLower(trimmed), "match ") {
			matchLine = i + 1
			break
		}
		result = append(result, line)
	}

	return []byte(strings.Join(result, "\n")), matchLine, nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}
