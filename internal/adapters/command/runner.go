// Package command provides command execution adapters.
package command

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/felixgeelhaar/pluginkit/internal/ports"
)

// RealRunner executes external processes such as tsc or npm.
type RealRunner struct {
	env []string
}

// NewRealRunner creates a RealRunner. Extra env entries ("KEY=value") are
// appended to the inherited environment of every process it starts.
func NewRealRunner(env ...string) *RealRunner {
	return &RealRunner{env: env}
}

// Run executes command in dir and captures its output.
func (r *RealRunner) Run(ctx context.Context, dir, command string, args ...string) (ports.CommandResult, error) {
	if command == "" {
		return ports.CommandResult{}, errors.New("empty command")
	}

	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = dir
	if len(r.env) > 0 {
		cmd.Env = append(os.Environ(), r.env...)
	}

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := ports.CommandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, fmt.Errorf("%s: %w", command, ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, fmt.Errorf("%s: %w", command, err)
	}

	return result, nil
}

var _ ports.CommandRunner = (*RealRunner)(nil)
