package darwin

import (
	"context"
	"fmt"

	"github.com/DeterminateSystems/nix-installer-go/internal/action"
	"github.com/DeterminateSystems/nix-installer-go/internal/ports"
)

func init() {
	action.Register(action.TagUnmountVolume, func() action.Action { return &UnmountVolume{} })
}

// UnmountVolume unmounts a volume mounted at a path, if any. Failure is
// tolerated in both directions — the common case is that nothing is
// mounted there yet (spec.md §4.6.1 step 3, §4.6.3's second documented
// fail-fast exception).
type UnmountVolume struct {
	MountPoint string `json:"mount_point"`

	cmd ports.CommandRunner
}

func PlanUnmountVolume(cmd ports.CommandRunner, mountPoint string) *action.Stateful {
	return action.NewStateful(&UnmountVolume{MountPoint: mountPoint, cmd: cmd}, action.StateUncompleted)
}

func (a *UnmountVolume) Hydrate(d action.Dependencies) { a.cmd = d.Cmd }

func (a *UnmountVolume) TracingSynopsis() string {
	return fmt.Sprintf("unmount `%s`", a.MountPoint)
}

func (a *UnmountVolume) ExecuteDescription() []action.Description {
	return []action.Description{action.NewDescription(a.TracingSynopsis(), nil)}
}

func (a *UnmountVolume) RevertDescription() []action.Description {
	return []action.Description{action.NewDescription(fmt.Sprintf("unmount `%s`", a.MountPoint), nil)}
}

func (a *UnmountVolume) Execute(ctx context.Context) error {
	_, _ = a.cmd.Run(ctx, "/usr/sbin/diskutil", "unmount", "force", a.MountPoint)
	return nil
}

func (a *UnmountVolume) Revert(ctx context.Context) error {
	_, _ = a.cmd.Run(ctx, "/usr/sbin/diskutil", "unmount", "force", a.MountPoint)
	return nil
}

func (a *UnmountVolume) Tag() action.Tag { return action.TagUnmountVolume }

var _ action.Action = (*UnmountVolume)(nil)
var _ action.Hydratable = (*UnmountVolume)(nil)
