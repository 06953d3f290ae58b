package linux

import (
	"context"
	"fmt"

	"github.com/DeterminateSystems/nix-installer-go/internal/action"
	"github.com/DeterminateSystems/nix-installer-go/internal/installerrors"
	"github.com/DeterminateSystems/nix-installer-go/internal/ports"
)

func init() {
	action.Register(action.TagSystemdDaemonReload, func() action.Action { return &SystemdDaemonReload{} })
}

// SystemdDaemonReload runs `systemctl daemon-reload` on both execute and
// revert: the unit files it picks up differ each time (newly installed vs.
// newly removed), but the command itself is identical either direction.
// Nothing in this package calls it automatically after InstallSystemdUnit;
// spec.md leaves that coupling to the caller.
type SystemdDaemonReload struct {
	cmd ports.CommandRunner
}

func PlanSystemdDaemonReload(ctx context.Context, fs ports.FileSystem, cmd ports.CommandRunner) (*action.Stateful, error) {
	if !fs.Exists("/run/systemd/system") {
		return nil, installerrors.New(installerrors.KindSystemdMissing, nil)
	}
	if res, err := cmd.Run(ctx, "which", "systemctl"); err != nil || !res.Success() {
		return nil, installerrors.New(installerrors.KindSystemdMissing, nil)
	}
	return action.NewStateful(&SystemdDaemonReload{cmd: cmd}, action.StateUncompleted), nil
}

func (a *SystemdDaemonReload) Hydrate(d action.Dependencies) { a.cmd = d.Cmd }

func (a *SystemdDaemonReload) TracingSynopsis() string {
	return "run `systemctl daemon-reload`"
}

func (a *SystemdDaemonReload) ExecuteDescription() []action.Description {
	return []action.Description{action.NewDescription(a.TracingSynopsis(), nil)}
}

func (a *SystemdDaemonReload) RevertDescription() []action.Description {
	return []action.Description{action.NewDescription(a.TracingSynopsis(), nil)}
}

func (a *SystemdDaemonReload) Execute(ctx context.Context) error {
	return a.reload(ctx)
}

func (a *SystemdDaemonReload) Revert(ctx context.Context) error {
	return a.reload(ctx)
}

func (a *SystemdDaemonReload) reload(ctx context.Context) error {
	res, err := a.cmd.Run(ctx, "systemctl", "daemon-reload")
	if err != nil {
		return installerrors.New(installerrors.KindCommand, err)
	}
	if !res.Success() {
		return installerrors.New(installerrors.KindCommandOutput, fmt.Errorf("systemctl daemon-reload: %s", res.Stderr))
	}
	return nil
}

func (a *SystemdDaemonReload) Tag() action.Tag { return action.TagSystemdDaemonReload }

var _ action.Action = (*SystemdDaemonReload)(nil)
var _ action.Hydratable = (*SystemdDaemonReload)(nil)
