package telemetry

import (
	"strconv"
	"strings"
)

// ParseLinuxMemory parses `free -m` output. Values on the "Mem:" row are in
// MiB and reported in GiB; available falls back to the free column on
// builds of free that don't print it.
func ParseLinuxMemory(output string) MemoryInfo {
	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(line, "Mem:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			return unknownMemory()
		}

		availableField := fields[3]
		if len(fields) > 6 {
			availableField = fields[6]
		}

		values, ok := parseInts(fields[1], fields[2], fields[3], availableField)
		if !ok {
			return unknownMemory()
		}
		total, used, free, available := values[0], values[1], values[2], values[3]

		return MemoryInfo{
			Total:       formatGB(total, kib),
			Used:        formatGB(used, kib),
			Free:        formatGB(free, kib),
			Available:   formatGB(available, kib),
			UsedPercent: roundPercent(used, total),
		}
	}
	return unknownMemory()
}

// ParseLinuxCPU parses the summary and process rows of `top -bn1` plus a
// three-field load average line. The load fields are kept only when all
// three are numbers, so an error message from cat stays "N/A".
//
// Percentages are read from the value just before the "us", "sy" and "id"
// tokens. Used is 100-idle when idle is present, otherwise user+system.
// If any present token has an unreadable value, all three stay "N/A".
func ParseLinuxCPU(topOutput, loadOutput string) CPUInfo {
	info := unknownCPU()
	lines := strings.Split(topOutput, "\n")

	for _, line := range lines {
		if strings.Contains(line, "Cpu") || strings.Contains(line, "CPU:") {
			parseCPUSummary(line, &info)
			break
		}
	}

	if load := strings.Fields(loadOutput); len(load) >= 3 {
		if numeric(load[0], load[1], load[2]) {
			info.LoadAverage = LoadAverage{One: load[0], Five: load[1], Fifteen: load[2]}
		}
	}

	info.Processes = parseTopProcesses(lines)
	return info
}

func parseCPUSummary(line string, info *CPUInfo) {
	fields := strings.Fields(strings.ReplaceAll(line, ",", ""))

	valueBefore := func(token string) (float64, bool, bool) {
		for i, f := range fields {
			if f != token {
				continue
			}
			if i == 0 {
				return 0, true, false
			}
			v, err := strconv.ParseFloat(fields[i-1], 64)
			return v, true, err == nil
		}
		return 0, false, true
	}

	user, _, okUser := valueBefore("us")
	system, _, okSys := valueBefore("sy")
	idle, hasIdle, okIdle := valueBefore("id")
	if !okUser || !okSys || !okIdle {
		return
	}

	used := user + system
	if hasIdle {
		used = 100 - idle
	}

	info.UsedPercent = formatPercent(used)
	info.UserPercent = formatPercent(user)
	info.SystemPercent = formatPercent(system)
}

// maxProcesses caps the process list in every snapshot.
const maxProcesses = 5

// parseTopProcesses reads rows after top's "PID USER ..." header. Rows with
// fewer than 12 columns are skipped.
func parseTopProcesses(lines []string) []Process {
	procs := []Process{}
	inTable := false

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "PID") && (strings.Contains(line, "USER") || strings.Contains(line, "Command")) {
			inTable = true
			continue
		}
		if !inTable || trimmed == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) >= 12 {
			procs = append(procs, Process{
				PID:     fields[0],
				User:    fields[1],
				CPU:     fields[8] + "%",
				Memory:  fields[9] + "%",
				Command: strings.Join(fields[11:], " "),
			})
		}
		if len(procs) >= maxProcesses {
			break
		}
	}
	return procs
}

// ParseLinuxDisk parses `df -h`, skipping the header row. Rows need at
// least six columns; wrapped rows from long device names are skipped.
func ParseLinuxDisk(output string) DiskInfo {
	disk := DiskInfo{Filesystems: []Filesystem{}}
	lines := strings.Split(output, "\n")
	if len(lines) < 2 {
		return disk
	}

	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		if len(fields) < 6 {
			continue
		}
		disk.Filesystems = append(disk.Filesystems, Filesystem{
			Filesystem:  fields[0],
			Size:        fields[1],
			Used:        fields[2],
			Available:   fields[3],
			UsedPercent: fields[4],
			MountedOn:   fields[5],
		})
	}
	return disk
}

// ParseLinuxNetwork parses `ifconfig` output, or `ip -s link` output where
// net-tools is missing. An unindented line starts an interface; indented
// lines (space or tab) never do. "RX packets" and "TX packets" lines carry
// the byte counter after their last "bytes", while ip prints an "RX:" or
// "TX:" header whose "bytes" column is read from the row below it.
// Loopback interfaces are left out, and their counters with them.
func ParseLinuxNetwork(output string) NetworkInfo {
	network := NetworkInfo{Interfaces: []Interface{}}
	current := -1 // index into network.Interfaces, -1 when skipping

	// pending is the counter whose value row comes next, with its column.
	var pending *string
	column := -1

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		if line[0] != ' ' && line[0] != '\t' {
			pending = nil
			name := interfaceName(line)
			if name == "" || isLoopback(name, line) {
				current = -1
				continue
			}
			network.Interfaces = append(network.Interfaces, Interface{Name: name, RX: NA, TX: NA})
			current = len(network.Interfaces) - 1
			continue
		}
		if current < 0 {
			continue
		}

		iface := &network.Interfaces[current]
		trimmed := strings.TrimSpace(line)
		if pending != nil {
			if fields := strings.Fields(trimmed); column < len(fields) {
				if n, err := strconv.ParseInt(fields[column], 10, 64); err == nil {
					*pending = formatMB(n)
				}
			}
			pending = nil
			continue
		}

		switch {
		case strings.HasPrefix(trimmed, "RX:"), strings.HasPrefix(trimmed, "TX:"):
			column = statsColumn(trimmed)
			if column < 0 {
				continue
			}
			pending = &iface.RX
			if trimmed[0] == 'T' {
				pending = &iface.TX
			}
		case strings.Contains(line, "RX packets"):
			if n, ok := bytesCounter(line); ok {
				iface.RX = formatMB(n)
			}
		case strings.Contains(line, "TX packets"):
			if n, ok := bytesCounter(line); ok {
				iface.TX = formatMB(n)
			}
		}
	}
	return network
}

// interfaceName reads the name from an interface header line: "eth0: flags=",
// "eth0      Link encap:" or ip's "2: eth0: <...>". A VLAN suffix such as
// "eth0.10@eth0" keeps only the part before '@'.
func interfaceName(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	name := strings.TrimSuffix(fields[0], ":")
	if _, err := strconv.Atoi(name); err == nil && strings.HasSuffix(fields[0], ":") {
		if len(fields) < 2 {
			return ""
		}
		name = strings.TrimSuffix(fields[1], ":")
	}
	if i := strings.IndexByte(name, '@'); i > 0 {
		name = name[:i]
	}
	return name
}

func isLoopback(name, header string) bool {
	return strings.HasPrefix(name, "lo") || strings.Contains(strings.ToUpper(header), "LOOPBACK")
}

// statsColumn returns the position of "bytes" in an ip "RX:" header,
// counted against the value row, or -1 when the header has none.
func statsColumn(header string) int {
	for i, f := range strings.Fields(header) {
		if f == "bytes" {
			return i - 1
		}
	}
	return -1
}

// bytesCounter returns the integer following the last "bytes" on line.
func bytesCounter(line string) (int64, bool) {
	idx := strings.LastIndex(line, "bytes")
	if idx < 0 {
		return 0, false
	}
	fields := strings.Fields(line[idx+len("bytes"):])
	if len(fields) == 0 {
		return 0, false
	}
	n, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseInts parses each string as a base-10 integer, returning them as
// float64 for the arithmetic that follows.
func parseInts(values ...string) ([]float64, bool) {
	out := make([]float64, len(values))
	for i, v := range values {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, false
		}
		out[i] = float64(n)
	}
	return out, true
}

// numeric reports whether every value parses as a float.
func numeric(values ...string) bool {
	for _, v := range values {
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return false
		}
	}
	return true
}
