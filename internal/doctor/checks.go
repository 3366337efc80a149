// Package doctor runs the diagnostics behind 'sedm doctor': configuration,
// ssh config, registry, and per-device reachability.
package doctor

import (
	"context"
	"fmt"
	"sync"
)

// CheckStatus represents the result status of a check.
type CheckStatus int

const (
	StatusPass CheckStatus = iota
	StatusWarn
	StatusFail
)

// Categories, in report order.
const (
	CategoryConfig   = "CONFIG"
	CategorySSH      = "SSH"
	CategoryRegistry = "REGISTRY"
	CategoryDevices  = "DEVICES"
)

// Categories lists every category in the order reports print them.
var Categories = []string{CategoryConfig, CategorySSH, CategoryRegistry, CategoryDevices}

// String returns a human-readable status string.
func (s CheckStatus) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusWarn:
		return "warn"
	case StatusFail:
		return "fail"
	default:
		return "unknown"
	}
}

// MarshalText makes statuses read as words in JSON and YAML output.
func (s CheckStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses the words written by MarshalText.
func (s *CheckStatus) UnmarshalText(text []byte) error {
	switch string(text) {
	case "pass":
		*s = StatusPass
	case "warn":
		*s = StatusWarn
	case "fail":
		*s = StatusFail
	default:
		return fmt.Errorf("unknown check status %q", text)
	}
	return nil
}

// CheckResult contains the outcome of running a check.
type CheckResult struct {
	Name       string      `json:"name"`
	Category   string      `json:"category"`
	Status     CheckStatus `json:"status"`
	Message    string      `json:"message"`
	Suggestion string      `json:"suggestion,omitempty"`
}

// Check defines the interface for diagnostic checks.
type Check interface {
	// Name returns the check's identifier.
	Name() string

	// Category returns the check's category (e.g., "CONFIG", "DEVICES").
	Category() string

	// Run executes the check and returns the result.
	Run(ctx context.Context) CheckResult
}

// RunAll executes every check concurrently. Results keep the order of
// checks, and each carries its check's name and category.
func RunAll(ctx context.Context, checks []Check) []CheckResult {
	results := make([]CheckResult, len(checks))
	var wg sync.WaitGroup

	for i, check := range checks {
		wg.Add(1)
		go func(idx int, c Check) {
			defer wg.Done()
			r := c.Run(ctx)
			r.Name = c.Name()
			r.Category = c.Category()
			results[idx] = r
		}(i, check)
	}

	wg.Wait()
	return results
}

// CountByStatus counts results by status.
func CountByStatus(results []CheckResult) map[CheckStatus]int {
	counts := make(map[CheckStatus]int)
	for _, r := range results {
		counts[r.Status]++
	}
	return counts
}

// HasFailures returns true if any result has a fail status.
func HasFailures(results []CheckResult) bool {
	for _, r := range results {
		if r.Status == StatusFail {
			return true
		}
	}
	return false
}

// HasIssues returns true if any result has a fail or warn status.
func HasIssues(results []CheckResult) bool {
	for _, r := range results {
		if r.Status != StatusPass {
			return true
		}
	}
	return false
}

// Summary returns a summary string of the check results.
func Summary(results []CheckResult) string {
	if !HasIssues(results) {
		return "Everything looks good"
	}
	counts := CountByStatus(results)
	total := counts[StatusWarn] + counts[StatusFail]
	return fmt.Sprintf("%d issue%s found", total, pluralize(total))
}

func pluralize(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
