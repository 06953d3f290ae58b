package composite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeterminateSystems/nix-installer-go/internal/action"
	"github.com/DeterminateSystems/nix-installer-go/internal/nixconfig"
	"github.com/DeterminateSystems/nix-installer-go/internal/testutil/mocks"
)

func TestConfigureNix_ExecutesConfigThenProfilesConcurrently(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.AddDir("/etc/nix")
	fs.AddDir("/etc")
	fs.AddFile("/etc/bash.bashrc", "")
	fs.AddFile("/etc/zshrc", "")

	plan := ConfigureNixPlan{
		ConfigPath:    "/etc/nix/nix.conf",
		ConfigMode:    0o644,
		PendingConfig: []nixconfig.Pending{{Key: "experimental-features", Value: "nix-command flakes"}},
		ShellProfiles: []ShellProfile{
			{Path: "/etc/bash.bashrc", Fragment: ". /nix/var/nix/profiles/default/etc/profile.d/nix.sh"},
			{Path: "/etc/zshrc", Fragment: ". /nix/var/nix/profiles/default/etc/profile.d/nix.sh"},
		},
	}

	stateful, err := PlanConfigureNix(fs, plan)
	require.NoError(t, err)

	require.NoError(t, stateful.TryExecute(context.Background()))
	assert.Equal(t, action.StateCompleted, stateful.State)

	conf, err := fs.ReadFile("/etc/nix/nix.conf")
	require.NoError(t, err)
	assert.Contains(t, string(conf), "experimental-features = nix-command flakes")

	bashrc, err := fs.ReadFile("/etc/bash.bashrc")
	require.NoError(t, err)
	assert.Contains(t, string(bashrc), "profile.d/nix.sh")

	zshrc, err := fs.ReadFile("/etc/zshrc")
	require.NoError(t, err)
	assert.Contains(t, string(zshrc), "profile.d/nix.sh")
}

func TestConfigureNix_RevertUndoesShellProfiles(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.AddDir("/etc/nix")
	fs.AddFile("/etc/bash.bashrc", "")

	plan := ConfigureNixPlan{
		ConfigPath:    "/etc/nix/nix.conf",
		ConfigMode:    0o644,
		PendingConfig: []nixconfig.Pending{{Key: "experimental-features", Value: "flakes"}},
		ShellProfiles: []ShellProfile{
			{Path: "/etc/bash.bashrc", Fragment: ". /nix/var/nix/profiles/default/etc/profile.d/nix.sh"},
		},
	}

	stateful, err := PlanConfigureNix(fs, plan)
	require.NoError(t, err)
	require.NoError(t, stateful.TryExecute(context.Background()))

	require.NoError(t, stateful.TryRevert(context.Background()))

	bashrc, err := fs.ReadFile("/etc/bash.bashrc")
	require.NoError(t, err)
	assert.Equal(t, "", string(bashrc))
}
