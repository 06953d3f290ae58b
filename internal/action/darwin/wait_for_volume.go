package darwin

import (
	"context"
	"fmt"
	"time"

	"github.com/DeterminateSystems/nix-installer-go/internal/action"
	"github.com/DeterminateSystems/nix-installer-go/internal/installerrors"
	"github.com/DeterminateSystems/nix-installer-go/internal/ports"
)

func init() {
	action.Register(action.TagWaitForVolume, func() action.Action { return &WaitForVolume{} })
}

const (
	waitForVolumeAttempts = 50
	waitForVolumeInterval = 100 * time.Millisecond
)

// WaitForVolume polls `diskutil info <target>` until it succeeds, used
// both after volume creation (target is the volume name) and after mount
// kickstart (target is "/nix") (spec.md §4.6.1 steps 5 and 9).
type WaitForVolume struct {
	Target string `json:"target"`

	cmd ports.CommandRunner
}

func PlanWaitForVolume(cmd ports.CommandRunner, target string) *action.Stateful {
	return action.NewStateful(&WaitForVolume{Target: target, cmd: cmd}, action.StateUncompleted)
}

func (a *WaitForVolume) Hydrate(d action.Dependencies) { a.cmd = d.Cmd }

func (a *WaitForVolume) TracingSynopsis() string {
	return fmt.Sprintf("wait for `%s` to appear", a.Target)
}

func (a *WaitForVolume) ExecuteDescription() []action.Description {
	return []action.Description{action.NewDescription(a.TracingSynopsis(), nil)}
}

func (a *WaitForVolume) RevertDescription() []action.Description {
	return []action.Description{action.NewDescription("", nil)}
}

func (a *WaitForVolume) Execute(ctx context.Context) error {
	for attempt := 1; attempt <= waitForVolumeAttempts; attempt++ {
		res, err := a.cmd.Run(ctx, "/usr/sbin/diskutil", "info", a.Target)
		if err != nil {
			return installerrors.New(installerrors.KindCommand, err)
		}
		if res.Success() {
			return nil
		}
		if attempt < waitForVolumeAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(waitForVolumeInterval):
			}
		}
	}
	return installerrors.NewPath(installerrors.KindWaitForVolumeTimeout, a.Target, nil)
}

// Revert is a no-op: waiting has no state to undo.
func (a *WaitForVolume) Revert(_ context.Context) error { return nil }

func (a *WaitForVolume) Tag() action.Tag { return action.TagWaitForVolume }

var _ action.Action = (*WaitForVolume)(nil)
var _ action.Hydratable = (*WaitForVolume)(nil)
