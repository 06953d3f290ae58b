package leaf

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeterminateSystems/nix-installer-go/internal/action"
	"github.com/DeterminateSystems/nix-installer-go/internal/nixconfig"
	"github.com/DeterminateSystems/nix-installer-go/internal/testutil/mocks"
)

func TestCreateOrMergeNixConfig_CreatesFromScratch(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.AddDir("/etc/nix")

	pending := []nixconfig.Pending{{Key: "experimental-features", Value: "nix-command flakes"}}
	stateful, err := PlanCreateOrMergeNixConfig(fs, "/etc/nix/nix.conf", 0o644, pending)
	require.NoError(t, err)
	assert.Equal(t, action.StateUncompleted, stateful.State)

	require.NoError(t, stateful.TryExecute(context.Background()))
	assert.Equal(t, action.StateCompleted, stateful.State)

	content, err := fs.ReadFile("/etc/nix/nix.conf")
	require.NoError(t, err)
	assert.Contains(t, string(content), "experimental-features = nix-command flakes")
	assert.Contains(t, string(content), Header)
}

func TestCreateOrMergeNixConfig_MergesPreservingInlineComment(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.AddDir("/etc/nix")
	fs.AddFile("/etc/nix/nix.conf", "experimental-features = flakes # some inline comment\n")

	pending := []nixconfig.Pending{{Key: "experimental-features", Value: "ca-references"}}
	stateful, err := PlanCreateOrMergeNixConfig(fs, "/etc/nix/nix.conf", 0o644, pending)
	require.NoError(t, err)
	assert.Equal(t, action.StateUncompleted, stateful.State)

	require.NoError(t, stateful.TryExecute(context.Background()))

	content, err := fs.ReadFile("/etc/nix/nix.conf")
	require.NoError(t, err)
	assert.Contains(t, string(content), "experimental-features = flakes ca-references # some inline comment")
}

func TestCreateOrMergeNixConfig_UnmergeableRefusal(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.AddDir("/etc/nix")
	fs.AddFile("/etc/nix/nix.conf", "max-jobs = 4\n")

	pending := []nixconfig.Pending{{Key: "max-jobs", Value: "8"}}
	_, err := PlanCreateOrMergeNixConfig(fs, "/etc/nix/nix.conf", 0o644, pending)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmergeable_config")
}

func TestCreateOrMergeNixConfig_AlreadySatisfiedIsSkipped(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.AddDir("/etc/nix")
	fs.AddFile("/etc/nix/nix.conf", "experimental-features = nix-command flakes\n")

	pending := []nixconfig.Pending{{Key: "experimental-features", Value: "flakes"}}
	stateful, err := PlanCreateOrMergeNixConfig(fs, "/etc/nix/nix.conf", 0o644, pending)
	require.NoError(t, err)
	assert.Equal(t, action.StateSkipped, stateful.State)
}
