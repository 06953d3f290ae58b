package linux

import (
	"context"
	"fmt"
	"strings"

	"github.com/DeterminateSystems/nix-installer-go/internal/action"
	"github.com/DeterminateSystems/nix-installer-go/internal/action/composite"
	"github.com/DeterminateSystems/nix-installer-go/internal/installerrors"
	"github.com/DeterminateSystems/nix-installer-go/internal/ports"
)

func init() {
	action.Register(action.TagConfigureNixDaemonService, func() action.Action { return &ConfigureNixDaemonService{} })
}

const (
	nixDaemonServiceUnit = "nix-daemon.service"
	nixDaemonSocketUnit  = "nix-daemon.socket"
)

// ConfigureNixDaemonService links the nix-daemon service and socket units
// into /etc/systemd/system and, when StartDaemon is set, enables the
// socket.
//
// It deliberately never runs `systemctl daemon-reload` itself, on execute
// or on revert (spec.md §9 open question 3): the caller must follow this
// action with SystemdDaemonReload to make systemd see the units it just
// installed or removed. This mirrors an undocumented coupling in the
// source rather than fixing it.
type ConfigureNixDaemonService struct {
	composite.Base
	StartDaemon bool `json:"start_daemon"`

	cmd ports.CommandRunner
}

func PlanConfigureNixDaemonService(ctx context.Context, fs ports.FileSystem, cmd ports.CommandRunner, serviceStorePath, socketStorePath string, startDaemon bool) (*action.Stateful, error) {
	if !fs.Exists("/run/systemd/system") {
		return nil, installerrors.New(installerrors.KindSystemdMissing, nil)
	}

	service, err := PlanInstallSystemdUnitFromStore(fs, cmd, nixDaemonServiceUnit, serviceStorePath)
	if err != nil {
		return nil, fmt.Errorf("planning nix-daemon.service install: %w", err)
	}
	socket, err := PlanInstallSystemdUnitFromStore(fs, cmd, nixDaemonSocketUnit, socketStorePath)
	if err != nil {
		return nil, fmt.Errorf("planning nix-daemon.socket install: %w", err)
	}

	a := &ConfigureNixDaemonService{
		Base:        composite.Base{ChildActions: []*action.Stateful{service, socket}},
		StartDaemon: startDaemon,
		cmd:         cmd,
	}
	return action.NewStateful(a, action.StateUncompleted), nil
}

func (a *ConfigureNixDaemonService) Hydrate(d action.Dependencies) {
	action.HydrateAll(a.ChildActions, d)
	a.cmd = d.Cmd
}

func (a *ConfigureNixDaemonService) TracingSynopsis() string {
	return "configure Nix daemon related settings with systemd"
}

func (a *ConfigureNixDaemonService) ExecuteDescription() []action.Description {
	explanation := []string{
		fmt.Sprintf("Run `systemctl link` for %s and %s", nixDaemonServiceUnit, nixDaemonSocketUnit),
	}
	if a.StartDaemon {
		explanation = append(explanation, "Run `systemctl enable --now "+nixDaemonSocketUnit+"`")
	}
	return []action.Description{action.NewDescription(a.TracingSynopsis(), explanation)}
}

func (a *ConfigureNixDaemonService) RevertDescription() []action.Description {
	return []action.Description{action.NewDescription("unconfigure Nix daemon related settings with systemd", nil)}
}

func (a *ConfigureNixDaemonService) Execute(ctx context.Context) error {
	if err := a.ExecuteChildren(ctx); err != nil {
		return err
	}
	if !a.StartDaemon {
		return nil
	}
	return a.runOK(ctx, "systemctl", "enable", "--now", nixDaemonSocketUnit)
}

func (a *ConfigureNixDaemonService) Revert(ctx context.Context) error {
	// Separate stop and disable, rather than `disable --now`, so a unit the
	// operator already stopped by hand doesn't turn into a revert error.
	socketActive, err := a.isActive(ctx, nixDaemonSocketUnit)
	if err != nil {
		return err
	}
	socketEnabled, err := a.isEnabled(ctx, nixDaemonSocketUnit)
	if err != nil {
		return err
	}
	serviceActive, err := a.isActive(ctx, nixDaemonServiceUnit)
	if err != nil {
		return err
	}
	serviceEnabled, err := a.isEnabled(ctx, nixDaemonServiceUnit)
	if err != nil {
		return err
	}

	if socketActive {
		if err := a.runOK(ctx, "systemctl", "stop", nixDaemonSocketUnit); err != nil {
			return err
		}
	}
	if socketEnabled {
		if err := a.runOK(ctx, "systemctl", "disable", nixDaemonSocketUnit); err != nil {
			return err
		}
	}
	if serviceActive {
		if err := a.runOK(ctx, "systemctl", "stop", nixDaemonServiceUnit); err != nil {
			return err
		}
	}
	if serviceEnabled {
		if err := a.runOK(ctx, "systemctl", "disable", nixDaemonServiceUnit); err != nil {
			return err
		}
	}

	return a.RevertChildren(ctx)
}

func (a *ConfigureNixDaemonService) isActive(ctx context.Context, unit string) (bool, error) {
	res, err := a.cmd.Run(ctx, "systemctl", "is-active", unit)
	if err != nil {
		return false, installerrors.New(installerrors.KindCommand, err)
	}
	return strings.HasPrefix(res.Stdout, "active"), nil
}

func (a *ConfigureNixDaemonService) isEnabled(ctx context.Context, unit string) (bool, error) {
	res, err := a.cmd.Run(ctx, "systemctl", "is-enabled", unit)
	if err != nil {
		return false, installerrors.New(installerrors.KindCommand, err)
	}
	return strings.HasPrefix(res.Stdout, "enabled") || strings.HasPrefix(res.Stdout, "linked"), nil
}

func (a *ConfigureNixDaemonService) runOK(ctx context.Context, command string, args ...string) error {
	res, err := a.cmd.Run(ctx, command, args...)
	if err != nil {
		return installerrors.New(installerrors.KindCommand, err)
	}
	if !res.Success() {
		return installerrors.New(installerrors.KindCommandOutput, fmt.Errorf("%s %s: %s", command, args, res.Stderr))
	}
	return nil
}

func (a *ConfigureNixDaemonService) Tag() action.Tag { return action.TagConfigureNixDaemonService }

var _ action.Action = (*ConfigureNixDaemonService)(nil)
var _ action.Hydratable = (*ConfigureNixDaemonService)(nil)
