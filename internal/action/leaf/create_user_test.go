package leaf

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeterminateSystems/nix-installer-go/internal/action"
	"github.com/DeterminateSystems/nix-installer-go/internal/ports"
	"github.com/DeterminateSystems/nix-installer-go/internal/testutil/mocks"
)

func TestCreateUser_PlansUncompletedWhenMissing(t *testing.T) {
	cmd := mocks.NewCommandRunner()
	cmd.AddResult("getent", []string{"passwd", "nixbld1"}, ports.CommandResult{ExitCode: 2})
	cmd.AddResult("useradd", []string{
		"--system", "--no-create-home", "--shell", "/sbin/nologin",
		"--comment", "Nix build user", "--uid", "30001", "--gid", "30000", "nixbld1",
	}, ports.CommandResult{ExitCode: 0})

	stateful, err := PlanCreateUser(context.Background(), cmd, "nixbld1", 30001, "nixbld", 30000)
	require.NoError(t, err)
	assert.Equal(t, action.StateUncompleted, stateful.State)

	require.NoError(t, stateful.TryExecute(context.Background()))
	assert.Equal(t, action.StateCompleted, stateful.State)
}

func TestCreateUser_SkippedWhenMatching(t *testing.T) {
	cmd := mocks.NewCommandRunner()
	cmd.AddResult("getent", []string{"passwd", "nixbld1"}, ports.CommandResult{ExitCode: 0, Stdout: "nixbld1:x:30001:30000::/var/empty:/sbin/nologin\n"})

	stateful, err := PlanCreateUser(context.Background(), cmd, "nixbld1", 30001, "nixbld", 30000)
	require.NoError(t, err)
	assert.Equal(t, action.StateSkipped, stateful.State)
}

func TestCreateUser_ErrorsOnUIDMismatch(t *testing.T) {
	cmd := mocks.NewCommandRunner()
	cmd.AddResult("getent", []string{"passwd", "nixbld1"}, ports.CommandResult{ExitCode: 0, Stdout: "nixbld1:x:999:30000::/var/empty:/sbin/nologin\n"})

	_, err := PlanCreateUser(context.Background(), cmd, "nixbld1", 30001, "nixbld", 30000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user_uid_mismatch")
}
