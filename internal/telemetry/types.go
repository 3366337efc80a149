package telemetry

import "time"

// NA marks a metric that could not be parsed. It is distinct from zero.
const NA = "N/A"

// Snapshot is one point-in-time reading of a device.
//
// When Status.Online is false only Status and Timestamp are set; the other
// sections are nil and drop out of the JSON entirely.
type Snapshot struct {
	Status    Status       `json:"status"`
	Memory    *MemoryInfo  `json:"memory,omitempty"`
	CPU       *CPUInfo     `json:"cpu,omitempty"`
	Disk      *DiskInfo    `json:"disk,omitempty"`
	Network   *NetworkInfo `json:"network,omitempty"`
	OS        OSFamily     `json:"os,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// Status reports whether the device answered.
type Status struct {
	Online   bool       `json:"online"`
	LastSeen *time.Time `json:"lastSeen"`
	Error    string     `json:"error,omitempty"`
}

// MemoryInfo holds formatted sizes ("1.95 GB") and a percentage ("75%").
type MemoryInfo struct {
	Total       string `json:"total"`
	Used        string `json:"used"`
	Free        string `json:"free"`
	Available   string `json:"available"`
	UsedPercent string `json:"usedPercent"`
}

// CPUInfo holds formatted utilization, load averages and the busiest processes.
type CPUInfo struct {
	UsedPercent   string      `json:"usedPercent"`
	UserPercent   string      `json:"userPercent"`
	SystemPercent string      `json:"systemPercent"`
	LoadAverage   LoadAverage `json:"loadAverage"`
	Processes     []Process   `json:"processes"`
}

// LoadAverage is the 1, 5 and 15 minute load as printed by the device.
type LoadAverage struct {
	One     string `json:"1min"`
	Five    string `json:"5min"`
	Fifteen string `json:"15min"`
}

// Process is one row of a process listing.
type Process struct {
	PID     string `json:"pid"`
	User    string `json:"user"`
	CPU     string `json:"cpu"`
	Memory  string `json:"memory"`
	Command string `json:"command"`
}

// DiskInfo lists mounted filesystems.
type DiskInfo struct {
	Filesystems []Filesystem `json:"filesystems"`
}

// Filesystem is one row of a free-space listing.
type Filesystem struct {
	Filesystem  string `json:"filesystem"`
	Size        string `json:"size"`
	Used        string `json:"used"`
	Available   string `json:"available"`
	UsedPercent string `json:"usedPercent"`
	MountedOn   string `json:"mountedOn"`
}

// NetworkInfo lists non-loopback interfaces with cumulative traffic.
type NetworkInfo struct {
	Interfaces []Interface `json:"interfaces"`
}

// Interface holds received and transmitted totals ("12.34 MB").
type Interface struct {
	Name string `json:"name"`
	RX   string `json:"rx"`
	TX   string `json:"tx"`
}

func unknownMemory() MemoryInfo {
	return MemoryInfo{Total: NA, Used: NA, Free: NA, Available: NA, UsedPercent: NA}
}

func unknownCPU() CPUInfo {
	return CPUInfo{
		UsedPercent:   NA,
		UserPercent:   NA,
		SystemPercent: NA,
		LoadAverage:   LoadAverage{One: NA, Five: NA, Fifteen: NA},
		Processes:     []Process{},
	}
}
