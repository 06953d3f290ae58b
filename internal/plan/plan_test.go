package plan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeterminateSystems/nix-installer-go/internal/action"
	"github.com/DeterminateSystems/nix-installer-go/internal/action/leaf"
	"github.com/DeterminateSystems/nix-installer-go/internal/adapters/logging"
	"github.com/DeterminateSystems/nix-installer-go/internal/testutil/mocks"
)

func newTestPlan(t *testing.T, fs *mocks.FileSystem) *Plan {
	t.Helper()
	a, err := leaf.PlanCreateDirectory(fs, "/nix/store", "", "", 0, false, 0, 0, false)
	require.NoError(t, err)
	b, err := leaf.PlanCreateDirectory(fs, "/nix/var", "", "", 0, false, 0, 0, false)
	require.NoError(t, err)
	return New(PlannerDescriptor{Planner: "linux", Settings: map[string]any{"channel": "nixpkgs-unstable"}}, []*action.Stateful{a, b})
}

type fakeSelfTester struct {
	err error
}

func (f fakeSelfTester) SelfTest(context.Context) error { return f.err }

func TestPlan_InstallExecutesActionsAndPersistsReceipt(t *testing.T) {
	fs := mocks.NewFileSystem()
	p := newTestPlan(t, fs)
	logger := logging.NewNopLogger()

	err := p.Install(context.Background(), fs, logger, DefaultReceiptPath, fakeSelfTester{})
	require.NoError(t, err)

	require.True(t, fs.Exists(DefaultReceiptPath))
	for _, s := range p.Actions {
		assert.Equal(t, action.StateCompleted, s.State)
	}
}

func TestPlan_InstallReturnsSelfTestErrorButReceiptIsPersisted(t *testing.T) {
	fs := mocks.NewFileSystem()
	p := newTestPlan(t, fs)
	logger := logging.NewNopLogger()

	selfTestErr := assertionError("nix --version failed")
	err := p.Install(context.Background(), fs, logger, DefaultReceiptPath, fakeSelfTester{err: selfTestErr})

	require.Error(t, err)
	assert.Equal(t, selfTestErr, err)
	assert.True(t, fs.Exists(DefaultReceiptPath))
}

func TestPlan_InstallStopsAndPersistsOnCancellation(t *testing.T) {
	fs := mocks.NewFileSystem()
	p := newTestPlan(t, fs)
	logger := logging.NewNopLogger()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Install(ctx, fs, logger, DefaultReceiptPath, nil)
	require.Error(t, err)
	assert.True(t, fs.Exists(DefaultReceiptPath))
	for _, s := range p.Actions {
		assert.Equal(t, action.StateUncompleted, s.State)
	}
}

func TestPlan_InstallRejectsIncompatibleVersion(t *testing.T) {
	fs := mocks.NewFileSystem()
	p := newTestPlan(t, fs)
	p.Version = "v0.0.1"

	err := p.Install(context.Background(), fs, logging.NewNopLogger(), DefaultReceiptPath, nil)
	require.Error(t, err)
}

func TestPlan_UninstallRevertsEveryCompletedAction(t *testing.T) {
	fs := mocks.NewFileSystem()
	p := newTestPlan(t, fs)
	require.NoError(t, p.Install(context.Background(), fs, logging.NewNopLogger(), DefaultReceiptPath, nil))

	err := p.Uninstall(context.Background(), logging.NewNopLogger())
	require.NoError(t, err)

	for _, s := range p.Actions {
		assert.Equal(t, action.StateUncompleted, s.State)
	}
}

type assertionError string

func (e assertionError) Error() string { return string(e) }
