// Package deps checks that the external tools syncerd shells out to are
// installed.
package deps

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"syncer/internal/config"
	"syncer/internal/dovecot"
)

// Requirement names one external binary.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a requirement.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// DovecotRequirements lists the dovecot tools used by the dispatcher,
// resolved against dovecot.bin_dir when set.
func DovecotRequirements(cfg *config.Config) []Requirement {
	binDir := ""
	if cfg != nil {
		binDir = strings.TrimSpace(cfg.Dovecot.BinDir)
	}
	resolve := func(tool string) string {
		if binDir == "" {
			return tool
		}
		return filepath.Join(binDir, tool)
	}
	return []Requirement{
		{Name: "doveconf", Command: resolve(dovecot.Doveconf), Description: "settings lookup"},
		{Name: "doveadm", Command: resolve(dovecot.Doveadm), Description: "mailbox replication"},
		{Name: "sieve-filter", Command: resolve(dovecot.SieveFilter), Description: "filter invocation"},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		switch {
		case cmd == "":
			status.Detail = "command not configured"
		default:
			if _, err := exec.LookPath(cmd); err != nil {
				status.Detail = fmt.Sprintf("binary %q not found", cmd)
			} else {
				status.Available = true
			}
		}
		results = append(results, status)
	}
	return results
}

// Missing returns the required (non-optional) tools that are unavailable.
func Missing(statuses []Status) []string {
	var missing []string
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			missing = append(missing, s.Name)
		}
	}
	return missing
}
