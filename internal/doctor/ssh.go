package doctor

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/NewSmoke38/SED-Manager/pkg/sshutil"
)

// SSHConfigCheck verifies the ssh config used to resolve --host aliases
// parses, and lists the aliases it offers.
type SSHConfigCheck struct {
	Path string
}

func (c *SSHConfigCheck) Name() string     { return "ssh_config" }
func (c *SSHConfigCheck) Category() string { return CategorySSH }

func (c *SSHConfigCheck) Run(ctx context.Context) CheckResult {
	if _, err := os.Stat(c.Path); os.IsNotExist(err) {
		return CheckResult{
			Status:  StatusPass,
			Message: fmt.Sprintf("No ssh config at %s; --host takes user@address only", c.Path),
		}
	}

	hosts, err := sshutil.ParseSSHConfigFile(c.Path)
	if err != nil {
		return CheckResult{
			Status:     StatusWarn,
			Message:    fmt.Sprintf("Cannot parse %s: %v", c.Path, err),
			Suggestion: "Aliases won't resolve; fix the file or pass --ssh-config",
		}
	}
	if len(hosts) == 0 {
		return CheckResult{
			Status:  StatusPass,
			Message: fmt.Sprintf("%s has no host aliases", c.Path),
		}
	}

	aliases := make([]string, len(hosts))
	for i, h := range hosts {
		aliases[i] = h.Alias
		if desc := h.Description(); desc != h.Alias {
			aliases[i] += " (" + desc + ")"
		}
	}
	return CheckResult{
		Status:  StatusPass,
		Message: fmt.Sprintf("%d ssh alias%s: %s", len(hosts), pluralES(len(hosts)), strings.Join(aliases, ", ")),
	}
}

func pluralES(n int) string {
	if n == 1 {
		return ""
	}
	return "es"
}
