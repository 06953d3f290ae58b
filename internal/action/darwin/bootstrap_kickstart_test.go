package darwin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DeterminateSystems/nix-installer-go/internal/action"
	"github.com/DeterminateSystems/nix-installer-go/internal/ports"
	"github.com/DeterminateSystems/nix-installer-go/internal/testutil/mocks"
)

func TestBootstrapKickstartMountAgent_ExecutesBootstrapKickstartThenWaits(t *testing.T) {
	cmd := mocks.NewCommandRunner()
	cmd.AddResult("/bin/launchctl", []string{"print", "system/org.nixos.darwin-store", "-plist"}, ports.CommandResult{ExitCode: 37})
	cmd.AddResult("/bin/launchctl", []string{"bootstrap", "system", "/Library/LaunchDaemons/org.nixos.darwin-store.plist"}, ports.CommandResult{ExitCode: 0})
	cmd.AddResult("/bin/launchctl", []string{"kickstart", "-k", "system/org.nixos.darwin-store"}, ports.CommandResult{ExitCode: 0})
	cmd.AddResult("/usr/sbin/diskutil", []string{"info", "/nix"}, ports.CommandResult{ExitCode: 0})

	stateful, err := PlanBootstrapKickstartMountAgent(context.Background(), cmd,
		"system", "org.nixos.darwin-store", "/Library/LaunchDaemons/org.nixos.darwin-store.plist")
	require.NoError(t, err)

	require.NoError(t, stateful.TryExecute(context.Background()))
}

func TestBootstrapKickstartMountAgent_RevertToleratesAlreadyStopped(t *testing.T) {
	cmd := mocks.NewCommandRunner()
	cmd.AddResult("/bin/launchctl", []string{"print", "system/org.nixos.darwin-store", "-plist"}, ports.CommandResult{ExitCode: 37})
	cmd.AddResult("/bin/launchctl", []string{"bootout", "system", "/Library/LaunchDaemons/org.nixos.darwin-store.plist"}, ports.CommandResult{ExitCode: 3})

	stateful, err := PlanBootstrapKickstartMountAgent(context.Background(), cmd,
		"system", "org.nixos.darwin-store", "/Library/LaunchDaemons/org.nixos.darwin-store.plist")
	require.NoError(t, err)
	stateful.State = action.StateCompleted

	require.NoError(t, stateful.TryRevert(context.Background()))
}
