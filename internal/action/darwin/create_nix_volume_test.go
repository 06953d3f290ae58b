package darwin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeterminateSystems/nix-installer-go/internal/action"
	"github.com/DeterminateSystems/nix-installer-go/internal/action/composite"
	"github.com/DeterminateSystems/nix-installer-go/internal/ports"
	"github.com/DeterminateSystems/nix-installer-go/internal/testutil/mocks"
)

func newUnencryptedVolumePlanMocks() (*mocks.FileSystem, *mocks.CommandRunner) {
	fs := mocks.NewFileSystem()
	fs.AddDir("/etc")
	fs.AddDir("/Library/LaunchDaemons")

	cmd := mocks.NewCommandRunner()
	cmd.AddResult("/usr/sbin/diskutil", []string{"apfs", "list"}, ports.CommandResult{ExitCode: 0, Stdout: ""})
	cmd.AddResult("/usr/sbin/diskutil", []string{"info", "Nix Store"}, diskutilInfoResult("ABCD-1234"))
	cmd.AddResult("/bin/launchctl", []string{"print", "system/org.nixos.darwin-store", "-plist"}, ports.CommandResult{ExitCode: 37})
	return fs, cmd
}

func TestCreateNixVolume_PlanAssemblesNineSubActionsWithoutEncryption(t *testing.T) {
	fs, cmd := newUnencryptedVolumePlanMocks()

	stateful, err := PlanCreateNixVolume(context.Background(), fs, cmd, CreateNixVolumePlan{
		Disk:           "disk1",
		VolumeName:     "Nix Store",
		MountAgentPath: "/Library/LaunchDaemons/org.nixos.darwin-store.plist",
	})
	require.NoError(t, err)

	volume := stateful.Action.(*CreateNixVolume)
	assert.Len(t, volume.ChildActions, 9)
}

func TestCreateNixVolume_PlanIncludesEncryptionWhenRequested(t *testing.T) {
	fs, cmd := newUnencryptedVolumePlanMocks()
	cmd.AddResult("/usr/bin/security", []string{"find-generic-password", "-s", keychainService, "-a", "Nix Store"}, ports.CommandResult{ExitCode: 44})

	stateful, err := PlanCreateNixVolume(context.Background(), fs, cmd, CreateNixVolumePlan{
		Disk:           "disk1",
		VolumeName:     "Nix Store",
		Encrypt:        true,
		MountAgentPath: "/Library/LaunchDaemons/org.nixos.darwin-store.plist",
	})
	require.NoError(t, err)

	volume := stateful.Action.(*CreateNixVolume)
	assert.Len(t, volume.ChildActions, 10)
}

func TestCreateNixVolume_AssemblyPlacesSyntheticPairFirst(t *testing.T) {
	fs, cmd := newUnencryptedVolumePlanMocks()

	stateful, err := PlanCreateNixVolume(context.Background(), fs, cmd, CreateNixVolumePlan{
		Disk:           "disk1",
		VolumeName:     "Nix Store",
		MountAgentPath: "/Library/LaunchDaemons/org.nixos.darwin-store.plist",
	})
	require.NoError(t, err)

	volume := stateful.Action.(*CreateNixVolume)
	firstTag := volume.ChildActions[0].Action.Tag()
	secondTag := volume.ChildActions[1].Action.Tag()
	lastTag := volume.ChildActions[len(volume.ChildActions)-1].Action.Tag()
	assert.Equal(t, action.TagAppendSyntheticConf, firstTag)
	assert.Equal(t, action.TagRefreshSyntheticObjects, secondTag)
	assert.Equal(t, action.TagEnableOwnership, lastTag)
}

// orderRecordingAction is a minimal action.Action whose Execute/Revert only
// append its tag to a shared log, so a composite's traversal order can be
// asserted directly without wiring real diskutil/launchctl mocks for every
// one of CreateNixVolume's ten children.
type orderRecordingAction struct {
	tag action.Tag
	log *[]string
}

func (o *orderRecordingAction) TracingSynopsis() string                  { return string(o.tag) }
func (o *orderRecordingAction) ExecuteDescription() []action.Description { return nil }
func (o *orderRecordingAction) RevertDescription() []action.Description  { return nil }
func (o *orderRecordingAction) Tag() action.Tag                          { return o.tag }

func (o *orderRecordingAction) Execute(_ context.Context) error {
	*o.log = append(*o.log, "execute:"+string(o.tag))
	return nil
}

func (o *orderRecordingAction) Revert(_ context.Context) error {
	*o.log = append(*o.log, "revert:"+string(o.tag))
	return nil
}

// TestCreateNixVolume_RevertRunsSyntheticFragmentRemovalBeforeRefresh pins
// down spec.md §4.6.2's teardown order: the synthetic.conf fragment must be
// removed before synthetic entries are refreshed, which is the opposite of
// what a plain LIFO reversal of PlanCreateNixVolume's assembly order would
// produce for those two children.
func TestCreateNixVolume_RevertRunsSyntheticFragmentRemovalBeforeRefresh(t *testing.T) {
	var log []string
	tags := []action.Tag{
		action.TagAppendSyntheticConf,
		action.TagRefreshSyntheticObjects,
		action.TagUnmountVolume,
		action.TagCreateVolume,
	}

	children := make([]*action.Stateful, len(tags))
	for i, tag := range tags {
		children[i] = action.NewStateful(&orderRecordingAction{tag: tag, log: &log}, action.StateCompleted)
	}

	volume := &CreateNixVolume{Base: composite.Base{ChildActions: children}}

	err := volume.Revert(context.Background())
	require.NoError(t, err)

	require.Equal(t, []string{
		"revert:" + string(action.TagCreateVolume),
		"revert:" + string(action.TagUnmountVolume),
		"revert:" + string(action.TagAppendSyntheticConf),
		"revert:" + string(action.TagRefreshSyntheticObjects),
	}, log)
}

// TestCreateNixVolume_RevertCollectsErrorsFromEveryChild confirms the
// override keeps RevertChildren's best-effort-on-all-children contract:
// one failing child must not stop the rest from attempting revert.
func TestCreateNixVolume_RevertCollectsErrorsFromEveryChild(t *testing.T) {
	var log []string
	failing := &failingRevertAction{orderRecordingAction: orderRecordingAction{tag: action.TagUnmountVolume, log: &log}}

	children := []*action.Stateful{
		action.NewStateful(&orderRecordingAction{tag: action.TagAppendSyntheticConf, log: &log}, action.StateCompleted),
		action.NewStateful(&orderRecordingAction{tag: action.TagRefreshSyntheticObjects, log: &log}, action.StateCompleted),
		action.NewStateful(failing, action.StateCompleted),
		action.NewStateful(&orderRecordingAction{tag: action.TagCreateVolume, log: &log}, action.StateCompleted),
	}

	volume := &CreateNixVolume{Base: composite.Base{ChildActions: children}}

	err := volume.Revert(context.Background())
	require.Error(t, err)
	assert.Len(t, log, 4, "every child should still attempt revert despite the failure")
}

type failingRevertAction struct {
	orderRecordingAction
}

func (f *failingRevertAction) Revert(ctx context.Context) error {
	_ = f.orderRecordingAction.Revert(ctx)
	return assert.AnError
}
