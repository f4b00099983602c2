// Package mocks provides test doubles for testing.
package mocks

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/felixgeelhaar/pluginkit/internal/ports"
)

// RunFunc handles a command invocation. It lets tests simulate side effects
// such as a compiler writing output files.
type RunFunc func(ctx context.Context, call ports.CommandCall) (ports.CommandResult, error)

// CommandRunner is a thread-safe test double for ports.CommandRunner.
type CommandRunner struct {
	mu       sync.RWMutex
	results  map[string]ports.CommandResult
	errors   map[string]error
	handlers map[string]RunFunc
	fallback RunFunc
	calls    []ports.CommandCall
}

// NewCommandRunner creates a new CommandRunner mock.
func NewCommandRunner() *CommandRunner {
	return &CommandRunner{
		results:  make(map[string]ports.CommandResult),
		errors:   make(map[string]error),
		handlers: make(map[string]RunFunc),
		calls:    make([]ports.CommandCall, 0),
	}
}

// AddResult registers an expected command and its result.
func (m *CommandRunner) AddResult(command string, args []string, result ports.CommandResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[buildKey(command, args)] = result
}

// AddError registers an expected command that should return an error.
func (m *CommandRunner) AddError(command string, args []string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[buildKey(command, args)] = err
}

// AddHandler registers a handler for an exact command line.
func (m *CommandRunner) AddHandler(command string, args []string, fn RunFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[buildKey(command, args)] = fn
}

// SetFallback sets a handler for commands with no registered expectation.
func (m *CommandRunner) SetFallback(fn RunFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = fn
}

// Run executes a mock command.
func (m *CommandRunner) Run(ctx context.Context, dir, command string, args ...string) (ports.CommandResult, error) {
	call := ports.CommandCall{Dir: dir, Command: command, Args: args}

	m.mu.Lock()
	m.calls = append(m.calls, call)
	key := buildKey(command, args)
	err, hasErr := m.errors[key]
	result, hasResult := m.results[key]
	handler := m.handlers[key]
	fallback := m.fallback
	m.mu.Unlock()

	switch {
	case hasErr:
		return ports.CommandResult{}, err
	case handler != nil:
		return handler(ctx, call)
	case hasResult:
		return result, nil
	case fallback != nil:
		return fallback(ctx, call)
	}

	return ports.CommandResult{}, fmt.Errorf("no mock result for command: %s %v", command, args)
}

// Calls returns all recorded command invocations.
func (m *CommandRunner) Calls() []ports.CommandCall {
	m.mu.RLock()
	defer m.mu.RUnlock()

	calls := make([]ports.CommandCall, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// Reset clears all registered results, errors, handlers, and recorded calls.
func (m *CommandRunner) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = make(map[string]ports.CommandResult)
	m.errors = make(map[string]error)
	m.handlers = make(map[string]RunFunc)
	m.fallback = nil
	m.calls = make([]ports.CommandCall, 0)
}

// buildKey creates a unique key for a command and its arguments.
func buildKey(command string, args []string) string {
	return command + ":" + strings.Join(args, ":")
}

var _ ports.CommandRunner = (*CommandRunner)(nil)
