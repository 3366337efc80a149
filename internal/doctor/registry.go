package doctor

import (
	"context"
	"fmt"

	"github.com/NewSmoke38/SED-Manager/internal/device"
)

// RegistryCheck verifies the device registry opens (running migrations)
// and reports how many devices it holds.
type RegistryCheck struct {
	Path string
	Open func(ctx context.Context) (device.Store, error)
}

func (c *RegistryCheck) Name() string     { return "registry" }
func (c *RegistryCheck) Category() string { return CategoryRegistry }

func (c *RegistryCheck) Run(ctx context.Context) CheckResult {
	s, err := c.Open(ctx)
	if err != nil {
		return failFrom(err)
	}
	defer s.Close()

	devices, err := s.List(ctx)
	if err != nil {
		return failFrom(err)
	}
	if len(devices) == 0 {
		return CheckResult{
			Status:     StatusWarn,
			Message:    fmt.Sprintf("Registry %s is empty", c.Path),
			Suggestion: "Add a device with 'sedm device add'",
		}
	}
	return CheckResult{
		Status:  StatusPass,
		Message: fmt.Sprintf("Registry %s holds %d device%s", c.Path, len(devices), pluralize(len(devices))),
	}
}
