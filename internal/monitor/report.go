package monitor

import (
	"time"
)

// Check names.
const (
	CheckDirectoryStructure = "directory-structure"
	CheckConfigFile         = "config-file"
	CheckDependencies       = "dependencies"
	CheckLogWritable        = "log-directory-writable"
	CheckReportStructure    = "report-structure"
)

// FaultCheck is the result of one check in one cycle. Details lists the
// individual problems (missing directory names, "command:pwsh",
// "artifact:healthcheck.sh", ...) so repairs can target them.
type FaultCheck struct {
	Name      string    `json:"name"`
	Passed    bool      `json:"passed"`
	Message   string    `json:"message"`
	Details   []string  `json:"details,omitempty"`
	CheckedAt time.Time `json:"checkedAt"`
}

// FaultReport holds every check of a cycle, passing or not.
type FaultReport struct {
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`
	Checks    []FaultCheck  `json:"checks"`
}

// Passed reports whether every check passed.
func (r FaultReport) Passed() bool {
	return len(r.Failures()) == 0
}

// Failures returns the failing checks in run order.
func (r FaultReport) Failures() []FaultCheck {
	var failed []FaultCheck
	for _, c := range r.Checks {
		if !c.Passed {
			failed = append(failed, c)
		}
	}
	return failed
}

// FailedNames returns the names of failing checks.
func (r FaultReport) FailedNames() []string {
	var names []string
	for _, c := range r.Failures() {
		names = append(names, c.Name)
	}
	return names
}

// Check returns the result for name.
func (r FaultReport) Check(name string) (FaultCheck, bool) {
	for _, c := range r.Checks {
		if c.Name == name {
			return c, true
		}
	}
	return FaultCheck{}, false
}
