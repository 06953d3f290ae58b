package planner

import (
	"context"
	"fmt"

	"github.com/DeterminateSystems/nix-installer-go/internal/action"
	"github.com/DeterminateSystems/nix-installer-go/internal/action/composite"
	"github.com/DeterminateSystems/nix-installer-go/internal/action/linux"
	"github.com/DeterminateSystems/nix-installer-go/internal/nixconfig"
	"github.com/DeterminateSystems/nix-installer-go/internal/plan"
	"github.com/DeterminateSystems/nix-installer-go/internal/ports"
)

// LinuxPlanner assembles the systemd-init action list: provisioning, then
// nix.conf and shell profiles, then the nix-daemon service and socket
// units, followed by the daemon-reload ConfigureNixDaemonService never
// issues itself (spec.md §9 open question 3 — see
// linux.ConfigureNixDaemonService's doc comment).
type LinuxPlanner struct{}

func (LinuxPlanner) Name() string { return "linux" }

func (p LinuxPlanner) Plan(ctx context.Context, fs ports.FileSystem, cmd ports.CommandRunner, fetcher action.Fetcher, settings Settings) (*plan.Plan, error) {
	actions, err := p.actions(ctx, fs, cmd, fetcher, settings)
	if err != nil {
		return nil, err
	}
	return plan.New(descriptor(p.Name(), settings), actions), nil
}

// actions is factored out of Plan so SteamOSPlanner can reuse the same
// assembly and prepend its own precondition check ahead of it.
func (LinuxPlanner) actions(ctx context.Context, fs ports.FileSystem, cmd ports.CommandRunner, fetcher action.Fetcher, settings Settings) ([]*action.Stateful, error) {
	provision, err := composite.PlanProvisionNix(ctx, fs, cmd, fetcher, composite.ProvisionNixPlan{
		TarballSource:    settings.TarballSource,
		StoreDir:         settings.StoreDir,
		GroupName:        settings.GroupName,
		GroupGID:         settings.GroupGID,
		BuildUserCount:   settings.NixDaemonUserCount,
		BuildUserPrefix:  settings.BuildUserPrefix,
		BuildUserUIDBase: settings.BuildUserUIDBase,
		ProfileLink:      settings.ProfileLink,
		ProfileTarget:    settings.ProfileTarget,
	})
	if err != nil {
		return nil, fmt.Errorf("planning nix provisioning: %w", err)
	}

	configure, err := composite.PlanConfigureNix(fs, composite.ConfigureNixPlan{
		ConfigPath: settings.ConfigPath,
		ConfigMode: settings.ConfigMode,
		PendingConfig: []nixconfig.Pending{
			{Key: "build-users-group", Value: settings.GroupName},
			{Key: "experimental-features", Value: "nix-command flakes"},
		},
		ShellProfiles: []composite.ShellProfile{
			{Path: "/etc/bash.bashrc", Fragment: linuxShellSourceLine},
			{Path: "/etc/zsh/zshrc", Fragment: linuxShellSourceLine},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("planning nix.conf and shell profiles: %w", err)
	}

	daemonService, err := linux.PlanConfigureNixDaemonService(ctx, fs, cmd, settings.ServiceStorePath, settings.SocketStorePath, true)
	if err != nil {
		return nil, fmt.Errorf("planning nix-daemon systemd units: %w", err)
	}

	reload, err := linux.PlanSystemdDaemonReload(ctx, fs, cmd)
	if err != nil {
		return nil, fmt.Errorf("planning daemon-reload: %w", err)
	}

	return []*action.Stateful{provision, configure, daemonService, reload}, nil
}

const linuxShellSourceLine = "\nif [ -e '/nix/var/nix/profiles/default/etc/profile.d/nix-daemon.sh' ]; then . '/nix/var/nix/profiles/default/etc/profile.d/nix-daemon.sh'; fi\n"

var _ Planner = LinuxPlanner{}
