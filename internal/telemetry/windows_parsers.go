package telemetry

import (
	"fmt"
	"strconv"
	"strings"
)

// Windows CPU time has no user/system split in the load counter, so it is
// apportioned at a fixed ratio.
const (
	windowsUserShare   = 0.7
	windowsSystemShare = 0.3
)

// ParseWindowsMemory parses `wmic OS get FreePhysicalMemory,
// TotalVisibleMemorySize /format:list`. Both counters are in KiB. Either
// one missing or unreadable leaves every field "N/A".
func ParseWindowsMemory(output string) MemoryInfo {
	values := listValues(output)

	totalStr, okTotal := values["TotalVisibleMemorySize"]
	freeStr, okFree := values["FreePhysicalMemory"]
	if !okTotal || !okFree {
		return unknownMemory()
	}
	nums, ok := parseInts(totalStr, freeStr)
	if !ok {
		return unknownMemory()
	}
	total, free := nums[0], nums[1]
	used := total - free

	percent := "0%"
	if total > 0 {
		percent = fmt.Sprintf("%.0f%%", used/total*100)
	}

	return MemoryInfo{
		Total:       formatGB(total, mib),
		Used:        formatGB(used, mib),
		Free:        formatGB(free, mib),
		Available:   formatGB(free, mib),
		UsedPercent: percent,
	}
}

// ParseWindowsCPU parses `wmic cpu get loadpercentage /format:list` and a
// `tasklist` listing. Windows has no load average, so those stay "N/A".
func ParseWindowsCPU(cpuOutput, tasklistOutput string) CPUInfo {
	info := unknownCPU()

	for _, line := range strings.Split(cpuOutput, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "LoadPercentage=") {
			continue
		}
		if load, err := strconv.ParseFloat(strings.TrimPrefix(line, "LoadPercentage="), 64); err == nil {
			info.UsedPercent = formatPercent(load)
			info.UserPercent = formatPercent(load * windowsUserShare)
			info.SystemPercent = formatPercent(load * windowsSystemShare)
		}
		break
	}

	info.Processes = parseTasklist(tasklistOutput)
	return info
}

// parseTasklist reads tasklist's table. The "=====" rule under the header
// gives the column spans, which keeps image names with spaces intact.
// Without a rule it falls back to whitespace splitting.
func parseTasklist(output string) []Process {
	lines := strings.Split(strings.ReplaceAll(output, "\r", ""), "\n")

	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "=") {
			return tasklistByColumns(line, lines[i+1:])
		}
	}
	return tasklistByFields(lines)
}

// column is a half-open character range of a fixed-width table. tasklist
// pads by character, so rows are cut by rune rather than by byte.
type column struct{ start, end int }

func (c column) slice(row string) string {
	runes := []rune(row)
	if c.start >= len(runes) {
		return ""
	}
	end := c.end
	if end > len(runes) || end < 0 {
		end = len(runes)
	}
	return strings.TrimSpace(string(runes[c.start:end]))
}

func rulerColumns(ruler string) []column {
	var cols []column
	start := -1
	for i, r := range ruler {
		switch {
		case r == '=' && start < 0:
			start = i
		case r != '=' && start >= 0:
			cols = append(cols, column{start, i})
			start = -1
		}
	}
	if start >= 0 {
		cols = append(cols, column{start, len(ruler)})
	}
	// The last column absorbs anything printed past the ruler.
	if n := len(cols); n > 0 {
		cols[n-1].end = -1
	}
	return cols
}

// Column order: Image Name, PID, Session Name, Session#, Mem Usage.
func tasklistByColumns(ruler string, rows []string) []Process {
	procs := []Process{}
	cols := rulerColumns(ruler)
	if len(cols) < 5 {
		return procs
	}

	for _, row := range rows {
		if strings.TrimSpace(row) == "" {
			continue
		}
		image := cols[0].slice(row)
		pid := cols[1].slice(row)
		if image == "" || pid == "" {
			continue
		}
		procs = append(procs, Process{
			PID:     pid,
			User:    NA,
			CPU:     NA,
			Memory:  cols[4].slice(row),
			Command: image,
		})
		if len(procs) >= maxProcesses {
			break
		}
	}
	return procs
}

func tasklistByFields(lines []string) []Process {
	procs := []Process{}
	if len(lines) < 2 {
		return procs
	}

	candidates := lines[1:]
	if len(candidates) > maxProcesses {
		candidates = candidates[:maxProcesses]
	}
	for _, line := range candidates {
		fields := strings.Fields(line)
		if len(fields) < 6 {
			continue
		}
		command := strings.Join(fields[5:], " ")
		if command == "" {
			command = fields[0]
		}
		procs = append(procs, Process{
			PID:     fields[1],
			User:    NA,
			CPU:     NA,
			Memory:  fields[4],
			Command: command,
		})
	}
	return procs
}

// ParseWindowsDisk parses `wmic logicaldisk get caption,freespace,size
// /format:list`. Each Caption line starts a new drive; drives with a missing
// or unreadable size are skipped.
func ParseWindowsDisk(output string) DiskInfo {
	disk := DiskInfo{Filesystems: []Filesystem{}}

	var caption, size, free string
	flush := func() {
		if caption == "" || size == "" || free == "" {
			return
		}
		if fs, ok := windowsDrive(caption, size, free); ok {
			disk.Filesystems = append(disk.Filesystems, fs)
		}
	}

	for _, line := range strings.Split(output, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		switch key {
		case "Caption":
			flush()
			caption, size, free = value, "", ""
		case "Size":
			size = value
		case "FreeSpace":
			free = value
		}
	}
	flush()

	return disk
}

func windowsDrive(caption, sizeStr, freeStr string) (Filesystem, bool) {
	nums, ok := parseInts(sizeStr, freeStr)
	if !ok {
		return Filesystem{}, false
	}
	total, free := nums[0], nums[1]
	used := total - free

	return Filesystem{
		Filesystem:  caption,
		Size:        fmt.Sprintf("%.2fG", total/gib),
		Used:        fmt.Sprintf("%.2fG", used/gib),
		Available:   fmt.Sprintf("%.2fG", free/gib),
		UsedPercent: roundPercent(used, total),
		MountedOn:   caption,
	}, true
}

// listValues collects Key=Value pairs from wmic's /format:list output.
// The first occurrence of a key wins.
func listValues(output string) map[string]string {
	values := make(map[string]string)
	for _, line := range strings.Split(output, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		if _, seen := values[key]; !seen {
			values[key] = strings.TrimSpace(value)
		}
	}
	return values
}
