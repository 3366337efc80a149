package telemetry

// livenessCommand is the trivial command whose success marks a device online.
const livenessCommand = "echo ping"

// commandSet is the ordered list of diagnostic commands for one OS family.
// Empty entries are skipped.
type commandSet struct {
	Memory    string
	CPU       string
	Load      string
	Processes string
	Disk      string
	Network   string
}

var (
	// POSIX hosts. macOS shares this set; its free/top flavors parse to
	// "N/A" where the columns differ.
	linuxCommands = commandSet{
		Memory:  "free -m",
		CPU:     "top -bn1 | head -20",
		Load:    "cat /proc/loadavg | awk '{print $1, $2, $3}'",
		Disk:    "df -h",
		Network: "ifconfig || ip -s link",
	}

	windowsCommands = commandSet{
		Memory:    "wmic OS get FreePhysicalMemory,TotalVisibleMemorySize /format:list",
		CPU:       "wmic cpu get loadpercentage /format:list",
		Processes: "tasklist",
		Disk:      "wmic logicaldisk get caption,freespace,size /format:list",
	}
)

// commandsFor returns the command set for an OS family.
func commandsFor(family OSFamily) commandSet {
	if family == OSWindows {
		return windowsCommands
	}
	return linuxCommands
}

// ordered returns the non-empty commands in execution order.
func (s commandSet) ordered() []string {
	var out []string
	for _, cmd := range []string{s.Memory, s.CPU, s.Load, s.Processes, s.Disk, s.Network} {
		if cmd != "" {
			out = append(out, cmd)
		}
	}
	return out
}
