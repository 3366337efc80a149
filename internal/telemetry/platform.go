package telemetry

import (
	"context"
	"strings"

	"github.com/NewSmoke38/SED-Manager/pkg/sshutil"
)

// OSFamily is the coarse OS classification that picks the command set.
type OSFamily string

const (
	OSLinux   OSFamily = "linux"
	OSMacOS   OSFamily = "macos"
	OSWindows OSFamily = "windows"
)

const (
	// probeCommand prints the POSIX kernel name, or "Windows" where uname
	// isn't available.
	probeCommand = "uname -s 2>/dev/null || echo Windows"

	// windowsProbeCommand only produces a Windows banner on cmd.exe.
	windowsProbeCommand = "ver"
)

// Detect classifies the device's OS. It never fails: when neither probe
// gives a usable answer it returns OSLinux.
func Detect(ctx context.Context, conn sshutil.Conn) OSFamily {
	if res, err := conn.Run(ctx, probeCommand); err == nil {
		if family, ok := classifyProbe(res.Output()); ok {
			return family
		}
	}

	if res, err := conn.Run(ctx, windowsProbeCommand); err == nil {
		if strings.Contains(strings.ToLower(res.Output()), "windows") {
			return OSWindows
		}
	}

	return OSLinux
}

// classifyProbe matches the kernel-name probe output case-insensitively.
func classifyProbe(output string) (OSFamily, bool) {
	name := strings.ToLower(strings.TrimSpace(output))
	switch {
	case strings.Contains(name, "linux"):
		return OSLinux, true
	case strings.Contains(name, "darwin"):
		return OSMacOS, true
	case strings.Contains(name, "windows"):
		return OSWindows, true
	}
	return "", false
}
