package leaf

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeterminateSystems/nix-installer-go/internal/action"
	"github.com/DeterminateSystems/nix-installer-go/internal/installerrors"
	"github.com/DeterminateSystems/nix-installer-go/internal/testutil/mocks"
)

func TestCreateSymlink_CreateAndRevertRoundTrip(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.AddDir("/nix/var/nix/profiles")

	stateful, err := PlanCreateSymlink(fs, "/nix/var/nix/profiles/default/bin", "/run/current-system")
	require.NoError(t, err)
	assert.Equal(t, action.StateUncompleted, stateful.State)

	ctx := context.Background()
	require.NoError(t, stateful.TryExecute(ctx))
	assert.Equal(t, action.StateCompleted, stateful.State)

	isLink, target := fs.IsSymlink("/run/current-system")
	assert.True(t, isLink)
	assert.Equal(t, "/nix/var/nix/profiles/default/bin", target)

	require.NoError(t, stateful.TryRevert(ctx))
	assert.Equal(t, action.StateUncompleted, stateful.State)
	assert.False(t, fs.Exists("/run/current-system"))
}

func TestCreateSymlink_SkippedWhenAlreadyPointingAtTarget(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.AddSymlink("/run/current-system", "/nix/var/nix/profiles/default/bin")

	stateful, err := PlanCreateSymlink(fs, "/nix/var/nix/profiles/default/bin", "/run/current-system")
	require.NoError(t, err)
	assert.Equal(t, action.StateSkipped, stateful.State)
}

func TestCreateSymlink_SkippedRevertIsNoOp(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.AddSymlink("/run/current-system", "/nix/var/nix/profiles/default/bin")

	stateful, err := PlanCreateSymlink(fs, "/nix/var/nix/profiles/default/bin", "/run/current-system")
	require.NoError(t, err)

	require.NoError(t, stateful.TryRevert(context.Background()))
	assert.True(t, fs.Exists("/run/current-system"), "a link this action didn't create must survive its revert")
}

func TestCreateSymlink_PointingElsewhereIsPlanningError(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.AddSymlink("/run/current-system", "/nix/var/nix/profiles/default/bin")

	_, err := PlanCreateSymlink(fs, "/nix/var/nix/profiles/system/bin", "/run/current-system")
	require.Error(t, err)

	var actionErr *installerrors.ActionError
	require.ErrorAs(t, err, &actionErr)
	assert.Equal(t, installerrors.KindSymlinkExists, actionErr.Kind)
}

func TestCreateSymlink_NonSymlinkOccupyingPathIsPlanningError(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.AddFile("/run/current-system", "not a link")

	_, err := PlanCreateSymlink(fs, "/nix/var/nix/profiles/default/bin", "/run/current-system")
	require.Error(t, err)

	var actionErr *installerrors.ActionError
	require.ErrorAs(t, err, &actionErr)
	assert.Equal(t, installerrors.KindPathWasNotSymlink, actionErr.Kind)
}
