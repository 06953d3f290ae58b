package darwin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/DeterminateSystems/nix-installer-go/internal/action"
	"github.com/DeterminateSystems/nix-installer-go/internal/installerrors"
	"github.com/DeterminateSystems/nix-installer-go/internal/ports"
)

// deleteVolumeAttempts and deleteVolumeInterval implement spec.md §4.6.2's
// nested retry: after unmount, APFS volume deletion can race with the
// kernel's own teardown, so deleteVolume is retried rather than failed
// immediately.
const (
	deleteVolumeAttempts = 10
	deleteVolumeInterval = 500 * time.Millisecond
)

func init() {
	action.Register(action.TagCreateVolume, func() action.Action { return &CreateVolume{} })
}

// CreateVolume creates an APFS volume on disk named Name, case-sensitive
// or not (spec.md §4.6.1 step 4). Plan-time probes `diskutil apfs list`
// for Name; if already present the sub-action is Completed so revert
// still tears it down but execute does not try to recreate it.
type CreateVolume struct {
	Disk          string `json:"disk"`
	Name          string `json:"name"`
	CaseSensitive bool   `json:"case_sensitive"`

	cmd ports.CommandRunner
}

func PlanCreateVolume(ctx context.Context, cmd ports.CommandRunner, disk, name string, caseSensitive bool) (*action.Stateful, error) {
	a := &CreateVolume{Disk: disk, Name: name, CaseSensitive: caseSensitive, cmd: cmd}

	res, err := cmd.Run(ctx, "/usr/sbin/diskutil", "apfs", "list")
	if err != nil {
		return nil, installerrors.New(installerrors.KindCommand, err)
	}
	if res.Success() && strings.Contains(res.Stdout, name) {
		return action.NewStateful(a, action.StateCompleted), nil
	}
	return action.NewStateful(a, action.StateUncompleted), nil
}

func (a *CreateVolume) Hydrate(d action.Dependencies) { a.cmd = d.Cmd }

func (a *CreateVolume) TracingSynopsis() string {
	return fmt.Sprintf("create a volume on `%s` named `%s`", a.Disk, a.Name)
}

func (a *CreateVolume) ExecuteDescription() []action.Description {
	return []action.Description{action.NewDescription(a.TracingSynopsis(), nil)}
}

func (a *CreateVolume) RevertDescription() []action.Description {
	return []action.Description{action.NewDescription(fmt.Sprintf("remove the volume on `%s` named `%s`", a.Disk, a.Name), nil)}
}

func (a *CreateVolume) Execute(ctx context.Context) error {
	format := "APFS"
	if a.CaseSensitive {
		format = "Case-sensitive APFS"
	}
	res, err := a.cmd.Run(ctx, "/usr/sbin/diskutil", "apfs", "addVolume", a.Disk, format, a.Name, "-nomount")
	if err != nil {
		return installerrors.New(installerrors.KindCommand, err)
	}
	if !res.Success() {
		return installerrors.New(installerrors.KindCommandOutput, fmt.Errorf("diskutil apfs addVolume: %s", res.Stderr))
	}
	return nil
}

func (a *CreateVolume) Revert(ctx context.Context) error {
	var last error
	for attempt := 1; attempt <= deleteVolumeAttempts; attempt++ {
		res, err := a.cmd.Run(ctx, "/usr/sbin/diskutil", "apfs", "deleteVolume", a.Name)
		if err != nil {
			last = installerrors.New(installerrors.KindCommand, err)
		} else if !res.Success() {
			last = installerrors.New(installerrors.KindCommandOutput, fmt.Errorf("diskutil apfs deleteVolume: %s", res.Stderr))
		} else {
			return nil
		}
		if attempt < deleteVolumeAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(deleteVolumeInterval):
			}
		}
	}
	return last
}

func (a *CreateVolume) Tag() action.Tag { return action.TagCreateVolume }

var _ action.Action = (*CreateVolume)(nil)
var _ action.Hydratable = (*CreateVolume)(nil)
