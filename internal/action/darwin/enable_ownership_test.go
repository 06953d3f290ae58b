package darwin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DeterminateSystems/nix-installer-go/internal/ports"
	"github.com/DeterminateSystems/nix-installer-go/internal/testutil/mocks"
)

func TestEnableOwnership_EnablesWhenDisabled(t *testing.T) {
	cmd := mocks.NewCommandRunner()
	cmd.AddResult("/usr/sbin/diskutil", []string{"info", "/nix"}, ports.CommandResult{ExitCode: 0, Stdout: "   Owners Enabled:           No\n"})
	cmd.AddResult("/usr/sbin/diskutil", []string{"enableOwnership", "/nix"}, ports.CommandResult{ExitCode: 0})

	stateful := PlanEnableOwnership(cmd, "/nix")
	require.NoError(t, stateful.TryExecute(context.Background()))
}

func TestEnableOwnership_SkipsWhenAlreadyEnabled(t *testing.T) {
	cmd := mocks.NewCommandRunner()
	cmd.AddResult("/usr/sbin/diskutil", []string{"info", "/nix"}, ports.CommandResult{ExitCode: 0, Stdout: "   Owners Enabled:           Yes\n"})

	stateful := PlanEnableOwnership(cmd, "/nix")
	require.NoError(t, stateful.TryExecute(context.Background()))
}
