package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement names an external binary stagecap shells out to.
type Requirement struct {
	Name        string
	Command     string
	Description string
	// Optional requirements are reported but never block a command.
	Optional bool
}

// Status is the outcome of resolving one Requirement on PATH.
type Status struct {
	Requirement
	Available bool
	Path      string
	Detail    string
}

// CheckBinaries resolves every requirement and reports what was found.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, len(requirements))
	for i, req := range requirements {
		req.Command = strings.TrimSpace(req.Command)
		results[i] = Status{Requirement: req}
		results[i].resolve()
	}
	return results
}

func (s *Status) resolve() {
	if s.Command == "" {
		s.Detail = "command not configured"
		return
	}
	path, err := exec.LookPath(s.Command)
	if err != nil {
		s.Detail = fmt.Sprintf("binary %q not found", s.Command)
		return
	}
	s.Available = true
	s.Path = path
}

// MissingRequired lists the names of unavailable, non-optional dependencies.
func MissingRequired(statuses []Status) []string {
	var missing []string
	for _, s := range statuses {
		if s.Optional || s.Available {
			continue
		}
		missing = append(missing, s.Name)
	}
	return missing
}
