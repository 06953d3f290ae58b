package linux

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeterminateSystems/nix-installer-go/internal/action"
	"github.com/DeterminateSystems/nix-installer-go/internal/ports"
	"github.com/DeterminateSystems/nix-installer-go/internal/testutil/mocks"
)

const serviceStorePath = "/nix/var/nix/profiles/default/lib/systemd/system/nix-daemon.service"

func TestInstallSystemdUnit_SymlinkModeLinksFromStore(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.AddDir("/etc/systemd/system")
	cmd := mocks.NewCommandRunner()
	cmd.AddResult("systemctl", []string{"link", serviceStorePath}, ports.CommandResult{ExitCode: 0})

	stateful, err := PlanInstallSystemdUnitFromStore(fs, cmd, "nix-daemon.service", serviceStorePath)
	require.NoError(t, err)
	assert.Equal(t, action.StateUncompleted, stateful.State)

	require.NoError(t, stateful.TryExecute(context.Background()))

	calls := cmd.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"link", serviceStorePath}, calls[0].Args)
}

func TestInstallSystemdUnit_PlanSkipsWhenAlreadyLinkedToSameTarget(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.AddDir("/etc/systemd/system")
	fs.AddSymlink("/etc/systemd/system/nix-daemon.service", serviceStorePath)
	cmd := mocks.NewCommandRunner()

	stateful, err := PlanInstallSystemdUnitFromStore(fs, cmd, "nix-daemon.service", serviceStorePath)
	require.NoError(t, err)
	assert.Equal(t, action.StateSkipped, stateful.State)
}

func TestInstallSystemdUnit_PlanErrorsWhenLinkedElsewhere(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.AddDir("/etc/systemd/system")
	fs.AddSymlink("/etc/systemd/system/nix-daemon.service", "/some/other/path")
	cmd := mocks.NewCommandRunner()

	_, err := PlanInstallSystemdUnitFromStore(fs, cmd, "nix-daemon.service", serviceStorePath)
	require.Error(t, err)
}

func TestInstallSystemdUnit_LiteralModeWritesContentAndRevertRemoves(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.AddDir("/etc/systemd/system")
	cmd := mocks.NewCommandRunner()

	stateful, err := PlanInstallSystemdUnitLiteral(fs, cmd, "nix-daemon.service", "[Unit]\n")
	require.NoError(t, err)
	require.NoError(t, stateful.TryExecute(context.Background()))

	buf, err := fs.ReadFile("/etc/systemd/system/nix-daemon.service")
	require.NoError(t, err)
	assert.Equal(t, "[Unit]\n", string(buf))

	require.NoError(t, stateful.TryRevert(context.Background()))
	assert.False(t, fs.Exists("/etc/systemd/system/nix-daemon.service"))
}

func TestInstallSystemdUnit_LiteralModePlanDetectsDrift(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.AddDir("/etc/systemd/system")
	fs.AddFile("/etc/systemd/system/nix-daemon.service", "[Unit]\nOld\n")
	cmd := mocks.NewCommandRunner()

	_, err := PlanInstallSystemdUnitLiteral(fs, cmd, "nix-daemon.service", "[Unit]\nNew\n")
	require.Error(t, err)
}
