package mocks

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/felixgeelhaar/pluginkit/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandRunner_Results(t *testing.T) {
	t.Parallel()

	m := NewCommandRunner()
	m.AddResult("npx", []string{"tsc", "--version"}, ports.CommandResult{Stdout: "Version 5.4.5"})
	m.AddError("npm", []string{"test"}, errors.New("boom"))

	res, err := m.Run(context.Background(), "/work", "npx", "tsc", "--version")
	require.NoError(t, err)
	assert.Equal(t, "Version 5.4.5", res.Stdout)

	_, err = m.Run(context.Background(), "", "npm", "test")
	assert.EqualError(t, err, "boom")

	_, err = m.Run(context.Background(), "", "unknown")
	assert.Error(t, err)

	calls := m.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, ports.CommandCall{Dir: "/work", Command: "npx", Args: []string{"tsc", "--version"}}, calls[0])
}

func TestCommandRunner_Handlers(t *testing.T) {
	t.Parallel()

	m := NewCommandRunner()
	m.AddHandler("tsc", []string{"-p", "x"}, func(_ context.Context, call ports.CommandCall) (ports.CommandResult, error) {
		return ports.CommandResult{Stdout: "ran in " + call.Dir}, nil
	})
	m.SetFallback(func(_ context.Context, _ ports.CommandCall) (ports.CommandResult, error) {
		return ports.CommandResult{ExitCode: 1}, nil
	})

	res, err := m.Run(context.Background(), "/plugin", "tsc", "-p", "x")
	require.NoError(t, err)
	assert.Equal(t, "ran in /plugin", res.Stdout)

	res, err = m.Run(context.Background(), "", "anything")
	require.NoError(t, err)
	assert.False(t, res.Success())

	m.Reset()
	assert.Empty(t, m.Calls())
	_, err = m.Run(context.Background(), "", "anything")
	assert.Error(t, err)
}

func TestCommandRunner_Concurrent(t *testing.T) {
	t.Parallel()

	m := NewCommandRunner()
	m.AddResult("echo", nil, ports.CommandResult{})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.Run(context.Background(), "", "echo")
		}()
	}
	wg.Wait()

	assert.Len(t, m.Calls(), 20)
}
