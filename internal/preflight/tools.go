package preflight

import (
	"os/exec"
)

// ToolStatus reports whether an external executable was found.
type ToolStatus struct {
	Name  string
	Path  string
	Found bool
}

// ToolChecker looks up the external tools the pipeline shells out to.
type ToolChecker struct {
	lookPath func(string) (string, error)
}

// NewToolChecker creates a ToolChecker using PATH lookup.
func NewToolChecker() *ToolChecker {
	return &ToolChecker{lookPath: exec.LookPath}
}

// NewToolCheckerForTests creates a ToolChecker with a fake lookup.
func NewToolCheckerForTests(lookPath func(string) (string, error)) *ToolChecker {
	return &ToolChecker{lookPath: lookPath}
}

// Check resolves every tool name. Missing tools are reported, not returned as errors:
// a job fails at the stage that needs the tool and the log explains why.
func (c *ToolChecker) Check(names ...string) []ToolStatus {
	out := make([]ToolStatus, 0, len(names))
	for _, name := range names {
		path, err := c.lookPath(name)
		out = append(out, ToolStatus{Name: name, Path: path, Found: err == nil})
	}
	return out
}
