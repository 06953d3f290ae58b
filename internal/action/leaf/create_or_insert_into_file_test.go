package leaf

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeterminateSystems/nix-installer-go/internal/action"
	"github.com/DeterminateSystems/nix-installer-go/internal/testutil/mocks"
)

func TestCreateOrInsertIntoFile_InsertAndRevertRoundTrip(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.AddDir("/etc")
	fs.AddFile("/etc/synthetic.conf", "Some other content\n")

	stateful, err := PlanCreateOrInsertIntoFile(fs, "/etc/synthetic.conf", "", "", 0, 0, 0, false, "Test", PositionBeginning)
	require.NoError(t, err)
	assert.Equal(t, action.StateUncompleted, stateful.State)

	ctx := context.Background()
	require.NoError(t, stateful.TryExecute(ctx))
	assert.Equal(t, action.StateCompleted, stateful.State)

	content, err := fs.ReadFile("/etc/synthetic.conf")
	require.NoError(t, err)
	assert.Equal(t, "TestSome other content\n", string(content))

	require.NoError(t, stateful.TryRevert(ctx))
	assert.Equal(t, action.StateUncompleted, stateful.State)

	content, err = fs.ReadFile("/etc/synthetic.conf")
	require.NoError(t, err)
	assert.Equal(t, "Some other content\n", string(content))
}

func TestCreateOrInsertIntoFile_SkippedWhenAlreadyPresent(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.AddDir("/etc")
	fs.AddFile("/etc/synthetic.conf", "nix\n")

	stateful, err := PlanCreateOrInsertIntoFile(fs, "/etc/synthetic.conf", "", "", 0, 0, 0, false, "nix\n", PositionEnd)
	require.NoError(t, err)
	assert.Equal(t, action.StateSkipped, stateful.State)

	require.NoError(t, stateful.TryExecute(context.Background()))
	content, _ := fs.ReadFile("/etc/synthetic.conf")
	assert.Equal(t, "nix\n", string(content))
}

func TestCreateOrInsertIntoFile_RevertIsNoOpWhenFragmentEdited(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.AddDir("/etc")
	fs.AddFile("/etc/synthetic.conf", "")

	stateful, err := PlanCreateOrInsertIntoFile(fs, "/etc/synthetic.conf", "", "", 0, 0, 0, false, "nix", PositionEnd)
	require.NoError(t, err)
	require.NoError(t, stateful.TryExecute(context.Background()))

	fs.SetFileContent("/etc/synthetic.conf", []byte("nox"))
	stateful.State = action.StateCompleted

	require.NoError(t, stateful.TryRevert(context.Background()))
	content, _ := fs.ReadFile("/etc/synthetic.conf")
	assert.Equal(t, "nox", string(content))
}
