// Package mocks provides thread-safe ports.FileSystem/ports.CommandRunner
// test doubles so action tests can exercise diskutil/launchctl/systemctl/
// useradd-style subprocess contracts without shelling out for real.
package mocks

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/DeterminateSystems/nix-installer-go/internal/ports"
)

// CommandRunner is a thread-safe test double for ports.CommandRunner. Every
// call must match a command+args combination registered with AddResult or
// AddError; an unregistered call fails loudly rather than returning a zero
// value, so a test can't pass by accident on an un-asserted command line.
type CommandRunner struct {
	mu      sync.RWMutex
	results map[string]ports.CommandResult
	errors  map[string]error
	calls   []ports.CommandCall
}

func NewCommandRunner() *CommandRunner {
	return &CommandRunner{
		results: make(map[string]ports.CommandResult),
		errors:  make(map[string]error),
		calls:   make([]ports.CommandCall, 0),
	}
}

// AddResult registers the result Run should return for this exact
// command+args combination.
func (m *CommandRunner) AddResult(command string, args []string, result ports.CommandResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := buildKey(command, args)
	m.results[key] = result
}

// AddError registers an error Run should return for this exact
// command+args combination, instead of a CommandResult.
func (m *CommandRunner) AddError(command string, args []string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := buildKey(command, args)
	m.errors[key] = err
}

func (m *CommandRunner) Run(_ context.Context, command string, args ...string) (ports.CommandResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, ports.CommandCall{
		Command: command,
		Args:    args,
	})
	m.mu.Unlock()

	m.mu.RLock()
	defer m.mu.RUnlock()

	key := buildKey(command, args)

	if err, ok := m.errors[key]; ok {
		return ports.CommandResult{}, err
	}
	if result, ok := m.results[key]; ok {
		return result, nil
	}
	return ports.CommandResult{}, fmt.Errorf("no mock result for command: %s %v", command, args)
}

// Calls returns a copy of every invocation recorded so far, in call order.
func (m *CommandRunner) Calls() []ports.CommandCall {
	m.mu.RLock()
	defer m.mu.RUnlock()

	calls := make([]ports.CommandCall, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// Reset clears all registered results, errors, and recorded calls.
func (m *CommandRunner) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = make(map[string]ports.CommandResult)
	m.errors = make(map[string]error)
	m.calls = make([]ports.CommandCall, 0)
}

func buildKey(command string, args []string) string {
	return command + ":" + strings.Join(args, ":")
}

var _ ports.CommandRunner = (*CommandRunner)(nil)
