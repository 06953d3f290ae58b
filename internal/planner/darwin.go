package planner

import (
	"context"
	"fmt"

	"github.com/DeterminateSystems/nix-installer-go/internal/action"
	"github.com/DeterminateSystems/nix-installer-go/internal/action/composite"
	"github.com/DeterminateSystems/nix-installer-go/internal/action/darwin"
	"github.com/DeterminateSystems/nix-installer-go/internal/nixconfig"
	"github.com/DeterminateSystems/nix-installer-go/internal/plan"
	"github.com/DeterminateSystems/nix-installer-go/internal/ports"
)

// DarwinPlanner assembles the macOS action list: the APFS volume plus its
// mount plumbing, then provisioning, then nix.conf and shell profiles
// (spec.md §4.6). It is representative rather than exhaustive — it always
// requests a single build-user pool and the "sh"/"zsh" profile pair, where
// the original tool lets an operator pick either independently.
type DarwinPlanner struct{}

func (DarwinPlanner) Name() string { return "darwin" }

func (DarwinPlanner) Plan(ctx context.Context, fs ports.FileSystem, cmd ports.CommandRunner, fetcher action.Fetcher, settings Settings) (*plan.Plan, error) {
	volume, err := darwin.PlanCreateNixVolume(ctx, fs, cmd, darwin.CreateNixVolumePlan{
		Disk:           settings.RootDisk,
		VolumeName:     settings.VolumeLabel,
		CaseSensitive:  false,
		Encrypt:        settings.Encrypt,
		MountAgentPath: settings.MountAgentPath,
	})
	if err != nil {
		return nil, fmt.Errorf("planning apfs volume: %w", err)
	}

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
			{Path: "/etc/bashrc", Fragment: darwinShellSourceLine},
			{Path: "/etc/zshrc", Fragment: darwinShellSourceLine},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("planning nix.conf and shell profiles: %w", err)
	}

	actions := []*action.Stateful{volume, provision, configure}
	return plan.New(descriptor("darwin", settings), actions), nil
}

const darwinShellSourceLine = "\nif [ -e '/nix/var/nix/profiles/default/etc/profile.d/nix-daemon.sh' ]; then . '/nix/var/nix/profiles/default/etc/profile.d/nix-daemon.sh'; fi\n"

var _ Planner = DarwinPlanner{}
