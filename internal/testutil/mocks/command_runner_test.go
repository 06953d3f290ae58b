package mocks

import (
	"context"
	"sync"
	"testing"

	"github.com/DeterminateSystems/nix-installer-go/internal/ports"
)

func TestCommandRunner_AddResult(t *testing.T) {
	runner := NewCommandRunner()
	runner.AddResult("/usr/sbin/diskutil", []string{"apfs", "list"}, ports.CommandResult{
		ExitCode: 0,
		Stdout:   "No APFS Containers found",
	})

	result, err := runner.Run(context.Background(), "/usr/sbin/diskutil", "apfs", "list")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Stdout != "No APFS Containers found" {
		t.Errorf("Stdout = %q, want %q", result.Stdout, "No APFS Containers found")
	}
}

func TestCommandRunner_NotFound(t *testing.T) {
	runner := NewCommandRunner()

	_, err := runner.Run(context.Background(), "unknown", "command")
	if err == nil {
		t.Error("Run() should return error for unregistered command")
	}
}

func TestCommandRunner_RecordsCalls(t *testing.T) {
	runner := NewCommandRunner()
	runner.AddResult("getent", []string{"group", "nixbld"}, ports.CommandResult{ExitCode: 2})
	runner.AddResult("groupadd", []string{"-g", "30000", "--system", "nixbld"}, ports.CommandResult{ExitCode: 0})

	_, _ = runner.Run(context.Background(), "getent", "group", "nixbld")
	_, _ = runner.Run(context.Background(), "groupadd", "-g", "30000", "--system", "nixbld")

	calls := runner.Calls()
	if len(calls) != 2 {
		t.Fatalf("Calls() len = %d, want 2", len(calls))
	}
	if calls[0].Command != "getent" {
		t.Errorf("calls[0].Command = %q, want %q", calls[0].Command, "getent")
	}
	if calls[0].Args[0] != "group" || calls[0].Args[1] != "nixbld" {
		t.Errorf("calls[0].Args = %v, want [group nixbld]", calls[0].Args)
	}
}

func TestCommandRunner_Reset(t *testing.T) {
	runner := NewCommandRunner()
	runner.AddResult("systemctl", []string{"daemon-reload"}, ports.CommandResult{ExitCode: 0})
	_, _ = runner.Run(context.Background(), "systemctl", "daemon-reload")

	runner.Reset()

	calls := runner.Calls()
	if len(calls) != 0 {
		t.Error("Reset() should clear all calls")
	}

	_, err := runner.Run(context.Background(), "systemctl", "daemon-reload")
	if err == nil {
		t.Error("Reset() should clear all results")
	}
}

func TestCommandRunner_ThreadSafety(t *testing.T) {
	runner := NewCommandRunner()

	for i := 0; i < 100; i++ {
		runner.AddResult("useradd", []string{string(rune('a' + i%26))}, ports.CommandResult{ExitCode: 0})
	}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, _ = runner.Run(context.Background(), "useradd", string(rune('a'+idx%26)))
			_ = runner.Calls()
		}(i)
	}

	wg.Wait()

	calls := runner.Calls()
	if len(calls) != 100 {
		t.Errorf("Expected 100 calls, got %d", len(calls))
	}
}
