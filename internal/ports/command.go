// Package ports defines interfaces for external dependencies.
package ports

import (
	"context"
)

// CommandResult represents the result of executing an external command.
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Success returns true if the command exited with code 0.
func (r CommandResult) Success() bool {
	return r.ExitCode == 0
}

// Output returns stderr when present, otherwise stdout.
// Compilers and test runners disagree on where they report failures.
func (r CommandResult) Output() string {
	if r.Stderr != "" {
		return r.Stderr
	}
	return r.Stdout
}

// CommandCall records a command invocation.
type CommandCall struct {
	Dir     string
	Command string
	Args    []string
}

// CommandRunner executes external commands such as the TypeScript compiler
// or the platform test suite.
type CommandRunner interface {
	// Run executes command with args in dir. An empty dir means the current
	// working directory. A non-zero exit code is reported through the result,
	// not as an error.
	Run(ctx context.Context, dir, command string, args ...string) (CommandResult, error)
}
