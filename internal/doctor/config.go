package doctor

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/NewSmoke38/SED-Manager/internal/config"
	"github.com/NewSmoke38/SED-Manager/internal/errors"
)

// ConfigCheck verifies the config file can be found, parsed and validated.
type ConfigCheck struct {
	// Explicit is the --config value, empty to search the default locations.
	Explicit string
}

func (c *ConfigCheck) Name() string     { return "config_file" }
func (c *ConfigCheck) Category() string { return CategoryConfig }

func (c *ConfigCheck) Run(ctx context.Context) CheckResult {
	path, err := config.Find(c.Explicit)
	if err != nil {
		return failFrom(err)
	}
	if path == "" {
		return CheckResult{
			Status:     StatusWarn,
			Message:    "No config file found, using defaults",
			Suggestion: "Run 'sedm config init' to write one",
		}
	}

	if _, err := config.Load(path); err != nil {
		return failFrom(err)
	}
	return CheckResult{
		Status:  StatusPass,
		Message: fmt.Sprintf("Config loaded from %s", path),
	}
}

// failFrom turns an error into a failing result, keeping the suggestion
// of structured errors.
func failFrom(err error) CheckResult {
	r := CheckResult{Status: StatusFail, Message: errors.Message(err)}
	var sErr *errors.Error
	if stderrors.As(err, &sErr) {
		r.Suggestion = sErr.Suggestion
	}
	return r
}
