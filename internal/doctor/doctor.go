// Package doctor runs preflight checks for the tool environment: config
// presence, credentials, editor availability, and terminal capability.
package doctor

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/scriptor-dev/scriptor/internal/config"
	"golang.org/x/term"
)

// CheckStatus is the outcome of one preflight check.
type CheckStatus string

const (
	// StatusOK means the check passed.
	StatusOK CheckStatus = "ok"
	// StatusWarn means the tool works but degraded (for example no TTY).
	StatusWarn CheckStatus = "warn"
	// StatusFail means the tool cannot run until the problem is fixed.
	StatusFail CheckStatus = "fail"
)

// Check is one named preflight result.
type Check struct {
	Name   string
	Status CheckStatus
	Detail string
}

// Run evaluates all preflight checks against the loaded configuration.
func Run(cfg *config.Config) []Check {
	return []Check{
		checkConfigFile(cfg),
		checkAPIKey(cfg),
		checkEditor(),
		checkTerminal(),
	}
}

// Healthy reports whether no check failed outright.
func Healthy(checks []Check) bool {
	for _, check := range checks {
		if check.Status == StatusFail {
			return false
		}
	}
	return true
}

func checkConfigFile(cfg *config.Config) Check {
	check := Check{Name: "config file"}
	if cfg == nil || strings.TrimSpace(cfg.HomePath) == "" {
		check.Status = StatusFail
		check.Detail = "configuration was not loaded"
		return check
	}
	if _, err := os.Stat(cfg.HomePath); err != nil {
		check.Status = StatusWarn
		check.Detail = fmt.Sprintf("%s not found; it is created on first run", cfg.HomePath)
		return check
	}
	check.Status = StatusOK
	check.Detail = cfg.HomePath
	return check
}

func checkAPIKey(cfg *config.Config) Check {
	check := Check{Name: "api key"}
	if cfg == nil || strings.TrimSpace(cfg.APIKey) == "" {
		check.Status = StatusFail
		check.Detail = "api_key is empty; set it in the configuration file"
		return check
	}
	check.Status = StatusOK
	check.Detail = "configured"
	return check
}

func checkEditor() Check {
	check := Check{Name: "editor"}
	name := "vi"
	for _, env := range []string{"VISUAL", "EDITOR"} {
		if value := strings.TrimSpace(os.Getenv(env)); value != "" {
			name = strings.Fields(value)[0]
			break
		}
	}
	if _, err := exec.LookPath(name); err != nil {
		check.Status = StatusWarn
		check.Detail = fmt.Sprintf("%s not found in PATH; the edit choice will fail", name)
		return check
	}
	check.Status = StatusOK
	check.Detail = name
	return check
}

func checkTerminal() Check {
	check := Check{Name: "terminal"}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		check.Status = StatusWarn
		check.Detail = "stdin is not a terminal; review choices are read line-wise"
		return check
	}
	check.Status = StatusOK
	check.Detail = "interactive"
	return check
}
