package compiler

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCompilerUnavailable indicates the compiler process could not be started.
var ErrCompilerUnavailable = errors.New("compiler could not be started")

// Error reports a failed compiler run for one module.
type Error struct {
	Module     string // Module being compiled ("admin" or "api")
	ExitCode   int    // Compiler exit code
	Output     string // Compiler diagnostics, stderr when present
	Suggestion string // Actionable hint for the user
}

// Error returns the formatted error message.
func (e *Error) Error() string {
	msg := fmt.Sprintf("compiling %s failed with exit code %d", e.Module, e.ExitCode)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + firstLine(out)
	}
	return msg
}

// Format returns the full diagnostic output with the suggestion.
func (e *Error) Format() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("compiling %s failed with exit code %d", e.Module, e.ExitCode))
	if out := strings.TrimSpace(e.Output); out != "" {
		for _, line := range strings.Split(out, "\n") {
			b.WriteString("\n  ")
			b.WriteString(line)
		}
	}
	if e.Suggestion != "" {
		b.WriteString("\n  Suggestion: ")
		b.WriteString(e.Suggestion)
	}
	return b.String()
}

// IsCompileError reports whether err is a compiler Error.
func IsCompileError(err error) bool {
	var target *Error
	return errors.As(err, &target)
}

// AsCompileError extracts a compiler Error from err.
func AsCompileError(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i]) + " (...)"
	}
	return s
}
