// Package darwin implements the macOS-only APFS volume provisioner
// sub-actions (spec.md §4.6): synthetic.conf registration, volume
// creation, fstab update, optional encryption, the mount launch-agent,
// kickstart, and post-mount verification, plus the composite that
// sequences them with full reverse teardown.
package darwin

import (
	"context"

	"github.com/DeterminateSystems/nix-installer-go/internal/action"
	"github.com/DeterminateSystems/nix-installer-go/internal/ports"
)

func init() {
	action.Register(action.TagRefreshSyntheticObjects, func() action.Action { return &RefreshSyntheticObjects{} })
}

// RefreshSyntheticObjects re-materializes synthetic mount points registered
// in /etc/synthetic.conf. Its non-zero exit is tolerated by design — this
// is one of the two documented exceptions to fail-fast (spec.md §4.6.1
// step 2, §4.6.3, §7).
type RefreshSyntheticObjects struct {
	cmd ports.CommandRunner
}

func PlanRefreshSyntheticObjects(cmd ports.CommandRunner) *action.Stateful {
	return action.NewStateful(&RefreshSyntheticObjects{cmd: cmd}, action.StateUncompleted)
}

func (a *RefreshSyntheticObjects) Hydrate(d action.Dependencies) { a.cmd = d.Cmd }

func (a *RefreshSyntheticObjects) TracingSynopsis() string {
	return "refresh synthetic objects"
}

func (a *RefreshSyntheticObjects) ExecuteDescription() []action.Description {
	return []action.Description{action.NewDescription(a.TracingSynopsis(), []string{
		"Re-materializes the synthetic mount points declared in /etc/synthetic.conf so `/nix` exists as a mount point.",
	})}
}

func (a *RefreshSyntheticObjects) RevertDescription() []action.Description {
	return []action.Description{action.NewDescription("refresh synthetic objects", nil)}
}

// Execute and Revert both shell out identically: the utility's contract is
// "do what you can", and its exit status carries no information this
// engine acts on.
func (a *RefreshSyntheticObjects) Execute(ctx context.Context) error {
	_, _ = a.cmd.Run(ctx, "/System/Library/Filesystems/apfs.fs/Contents/Resources/apfs.util", "-t")
	_, _ = a.cmd.Run(ctx, "/System/Library/Filesystems/apfs.fs/Contents/Resources/apfs.util", "-B")
	return nil
}

func (a *RefreshSyntheticObjects) Revert(ctx context.Context) error {
	_, _ = a.cmd.Run(ctx, "/System/Library/Filesystems/apfs.fs/Contents/Resources/apfs.util", "-t")
	_, _ = a.cmd.Run(ctx, "/System/Library/Filesystems/apfs.fs/Contents/Resources/apfs.util", "-B")
	return nil
}

func (a *RefreshSyntheticObjects) Tag() action.Tag { return action.TagRefreshSyntheticObjects }

var _ action.Action = (*RefreshSyntheticObjects)(nil)
var _ action.Hydratable = (*RefreshSyntheticObjects)(nil)
