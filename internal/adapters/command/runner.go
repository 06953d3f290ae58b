// Package command implements ports.CommandRunner against os/exec — the
// concrete side of the subprocess contracts actions invoke (diskutil,
// launchctl, systemctl, dscl/useradd, …).
package command

import (
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/DeterminateSystems/nix-installer-go/internal/ports"
)

// RealRunner runs a command via os/exec, translating a non-zero exit into
// CommandResult.ExitCode rather than an error — only a failure to start
// the process at all (missing binary, context cancellation) is returned
// as err, matching spec.md §7's expectation that callers classify exit
// codes themselves.
type RealRunner struct{}

func NewRealRunner() *RealRunner {
	return &RealRunner{}
}

func (r *RealRunner) Run(ctx context.Context, command string, args ...string) (ports.CommandResult, error) {
	cmd := exec.CommandContext(ctx, command, args...)

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := ports.CommandResult{
		ExitCode: 0,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, err
	}

	return result, nil
}

var _ ports.CommandRunner = (*RealRunner)(nil)
