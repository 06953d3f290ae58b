package darwin

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeterminateSystems/nix-installer-go/internal/action"
	"github.com/DeterminateSystems/nix-installer-go/internal/installerrors"
	"github.com/DeterminateSystems/nix-installer-go/internal/ports"
	"github.com/DeterminateSystems/nix-installer-go/internal/testutil/mocks"
)

// deleteVolumeRunner answers every "diskutil apfs list" call with an empty
// container (so PlanCreateVolume sees Name as not yet present) and answers
// "diskutil apfs deleteVolume" with "busy" on every call before succeedOn,
// then succeeds from succeedOn onward. succeedOn == 0 never succeeds, for
// exercising exhausted retries.
type deleteVolumeRunner struct {
	mu          sync.Mutex
	deleteCalls int
	succeedOn   int
}

func (r *deleteVolumeRunner) Run(_ context.Context, command string, args ...string) (ports.CommandResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(args) >= 2 && args[0] == "apfs" && args[1] == "list" {
		return ports.CommandResult{ExitCode: 0, Stdout: "No APFS Containers found"}, nil
	}

	r.deleteCalls++
	if r.succeedOn > 0 && r.deleteCalls >= r.succeedOn {
		return ports.CommandResult{ExitCode: 0}, nil
	}
	return ports.CommandResult{ExitCode: 1, Stderr: "diskutil: Resource busy"}, nil
}

func TestCreateVolume_Plan_VolumeAlreadyExists(t *testing.T) {
	cmd := mocks.NewCommandRunner()
	cmd.AddResult("/usr/sbin/diskutil", []string{"apfs", "list"}, ports.CommandResult{
		ExitCode: 0,
		Stdout:   "Nix Store",
	})

	stateful, err := PlanCreateVolume(context.Background(), cmd, "disk3", "Nix Store", false)
	require.NoError(t, err)
	assert.Equal(t, action.StateCompleted, stateful.State)
}

func TestCreateVolume_Plan_VolumeNotYetPresent(t *testing.T) {
	cmd := mocks.NewCommandRunner()
	cmd.AddResult("/usr/sbin/diskutil", []string{"apfs", "list"}, ports.CommandResult{
		ExitCode: 0,
		Stdout:   "No APFS Containers found",
	})

	stateful, err := PlanCreateVolume(context.Background(), cmd, "disk3", "Nix Store", false)
	require.NoError(t, err)
	assert.Equal(t, action.StateUncompleted, stateful.State)
}

// TestCreateVolume_Revert_BusyThenSucceeds exercises spec.md §8 Scenario 5:
// diskutil apfs deleteVolume reports the volume busy a few times before the
// kernel finishes its own teardown, and Revert is expected to retry rather
// than fail on the first busy response.
func TestCreateVolume_Revert_BusyThenSucceeds(t *testing.T) {
	runner := &deleteVolumeRunner{succeedOn: 4}
	stateful, err := PlanCreateVolume(context.Background(), runner, "disk3", "Nix Store", false)
	require.NoError(t, err)
	stateful.State = action.StateCompleted

	err = stateful.TryRevert(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, runner.deleteCalls)
	assert.Equal(t, action.StateUncompleted, stateful.State)
}

// TestCreateVolume_Revert_ExhaustsRetriesAndReturnsLastError covers the
// case where diskutil never stops reporting the volume busy: Revert must
// give up after deleteVolumeAttempts tries and surface the last error
// rather than hang or silently succeed.
func TestCreateVolume_Revert_ExhaustsRetriesAndReturnsLastError(t *testing.T) {
	runner := &deleteVolumeRunner{succeedOn: 0}
	stateful, err := PlanCreateVolume(context.Background(), runner, "disk3", "Nix Store", false)
	require.NoError(t, err)
	stateful.State = action.StateCompleted

	err = stateful.TryRevert(context.Background())
	require.Error(t, err)
	assert.Equal(t, deleteVolumeAttempts, runner.deleteCalls)

	var actionErr *installerrors.ActionError
	require.ErrorAs(t, err, &actionErr)
	assert.Equal(t, installerrors.KindCommandOutput, actionErr.Kind)
}

func TestCreateVolume_Execute_AddsVolume(t *testing.T) {
	cmd := mocks.NewCommandRunner()
	cmd.AddResult("/usr/sbin/diskutil", []string{"apfs", "list"}, ports.CommandResult{
		ExitCode: 0,
		Stdout:   "No APFS Containers found",
	})
	cmd.AddResult("/usr/sbin/diskutil", []string{"apfs", "addVolume", "disk3", "APFS", "Nix Store", "-nomount"}, ports.CommandResult{
		ExitCode: 0,
	})

	stateful, err := PlanCreateVolume(context.Background(), cmd, "disk3", "Nix Store", false)
	require.NoError(t, err)

	err = stateful.TryExecute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, action.StateCompleted, stateful.State)
}
