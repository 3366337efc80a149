package telemetry

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	kib = 1024.0
	mib = 1024.0 * 1024.0
	gib = 1024.0 * 1024.0 * 1024.0
)

// formatGB renders value/divisor with two decimals and a " GB" suffix.
func formatGB(value, divisor float64) string {
	return fmt.Sprintf("%.2f GB", value/divisor)
}

// formatMB renders a byte count in mebibytes with a " MB" suffix.
func formatMB(bytes int64) string {
	return fmt.Sprintf("%.2f MB", float64(bytes)/mib)
}

// formatPercent renders a one-decimal percentage, e.g. "12.5%".
func formatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

// roundPercent returns round(part/total*100) as "40%", or "0%" when total
// is zero. Halves round to even.
func roundPercent(part, total float64) string {
	if total == 0 {
		return "0%"
	}
	return fmt.Sprintf("%d%%", int64(math.RoundToEven(part/total*100)))
}

// ParsePercent reads a formatted percentage such as "27%" or "8.8%" back
// into a number. NA and anything else unparseable report false.
func ParsePercent(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(s), "%"), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
