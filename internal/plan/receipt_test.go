package plan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeterminateSystems/nix-installer-go/internal/action"
	"github.com/DeterminateSystems/nix-installer-go/internal/action/leaf"
	"github.com/DeterminateSystems/nix-installer-go/internal/testutil/mocks"
)

func TestWriteReceiptThenLoadReceiptRoundTrips(t *testing.T) {
	fs := mocks.NewFileSystem()
	a, err := leaf.PlanCreateDirectory(fs, "/nix/store", "", "", 0, false, 0, 0, false)
	require.NoError(t, err)
	require.NoError(t, a.TryExecute(context.Background()))

	p := New(PlannerDescriptor{Planner: "linux", Settings: map[string]any{"channel": "nixpkgs-unstable"}}, []*action.Stateful{a})

	require.NoError(t, WriteReceipt(fs, DefaultReceiptPath, p))

	loaded, err := LoadReceipt(fs, DefaultReceiptPath)
	require.NoError(t, err)

	assert.Equal(t, p.Version, loaded.Version)
	assert.Equal(t, p.Planner.Planner, loaded.Planner.Planner)
	require.Len(t, loaded.Actions, 1)
	assert.Equal(t, action.StateCompleted, loaded.Actions[0].State)

	restored, ok := loaded.Actions[0].Action.(*leaf.CreateDirectory)
	require.True(t, ok)
	assert.Equal(t, "/nix/store", restored.Path)
}

func TestWriteReceiptCreatesMissingParentDirectory(t *testing.T) {
	fs := mocks.NewFileSystem()
	p := New(PlannerDescriptor{Planner: "linux"}, nil)

	require.NoError(t, WriteReceipt(fs, "/nix/receipt.json", p))
	assert.True(t, fs.Exists("/nix/receipt.json"))
}

func TestLoadReceiptErrorsWhenMissing(t *testing.T) {
	fs := mocks.NewFileSystem()
	_, err := LoadReceipt(fs, DefaultReceiptPath)
	require.Error(t, err)
}
