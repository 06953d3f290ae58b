package composite

import (
	"context"
	"os"
	"sync"

	"github.com/DeterminateSystems/nix-installer-go/internal/action"
	"github.com/DeterminateSystems/nix-installer-go/internal/action/leaf"
	"github.com/DeterminateSystems/nix-installer-go/internal/installerrors"
	"github.com/DeterminateSystems/nix-installer-go/internal/nixconfig"
	"github.com/DeterminateSystems/nix-installer-go/internal/ports"
)

func init() {
	action.Register(action.TagConfigureNix, func() action.Action { return &ConfigureNix{} })
}

// ShellProfile is one shell's profile file and the fragment that sources
// the Nix environment from it.
type ShellProfile struct {
	Path     string
	Fragment string
}

// ConfigureNixPlan is the planner's input for ConfigureNix: the nix.conf
// path, mode, and pending settings, plus the shell profiles to edit.
type ConfigureNixPlan struct {
	ConfigPath     string
	ConfigMode     uint32
	PendingConfig  []nixconfig.Pending
	ShellProfiles  []ShellProfile
}

// ConfigureNix places the merged nix.conf and edits every shell profile to
// source the Nix environment. Per spec.md §5, the shell-profile writes are
// the one place in the engine that fans out internally: each profile is a
// disjoint file with no shared mutable state, so they are written
// concurrently and joined before Execute/Revert return. Everything else
// about the composite (its place in the plan, its all-or-nothing relation
// to sibling actions) is unaffected — the fan-out is confined inside it.
type ConfigureNix struct {
	ConfigFile    *action.Stateful   `json:"config_file"`
	ShellProfiles []*action.Stateful `json:"shell_profiles"`
}

// PlanConfigureNix builds the config-merge child and one
// CreateOrInsertIntoFile child per shell profile.
func PlanConfigureNix(fs ports.FileSystem, p ConfigureNixPlan) (*action.Stateful, error) {
	configFile, err := leaf.PlanCreateOrMergeNixConfig(fs, p.ConfigPath, p.ConfigMode, p.PendingConfig)
	if err != nil {
		return nil, err
	}

	profiles := make([]*action.Stateful, 0, len(p.ShellProfiles))
	for _, sp := range p.ShellProfiles {
		child, err := leaf.PlanCreateOrInsertIntoFile(fs, sp.Path, "", "", 0, 0, os.FileMode(0o644), false, sp.Fragment, leaf.PositionEnd)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, child)
	}

	a := &ConfigureNix{ConfigFile: configFile, ShellProfiles: profiles}
	return action.NewStateful(a, action.StateUncompleted), nil
}

// Children lets action.HydrateAll recurse into both the config-file child
// and every shell-profile child.
func (a *ConfigureNix) Children() []*action.Stateful {
	all := make([]*action.Stateful, 0, 1+len(a.ShellProfiles))
	all = append(all, a.ConfigFile)
	all = append(all, a.ShellProfiles...)
	return all
}

func (a *ConfigureNix) TracingSynopsis() string { return "configure Nix" }

func (a *ConfigureNix) ExecuteDescription() []action.Description {
	return []action.Description{action.NewDescription(a.TracingSynopsis(), []string{
		"Merges nix.conf and edits each shell profile to source the Nix environment.",
	})}
}

func (a *ConfigureNix) RevertDescription() []action.Description {
	return []action.Description{action.NewDescription("un-configure Nix", nil)}
}

func (a *ConfigureNix) Execute(ctx context.Context) error {
	if err := a.ConfigFile.TryExecute(ctx); err != nil {
		return err
	}
	return fanOutExecute(ctx, a.ShellProfiles)
}

func (a *ConfigureNix) Revert(ctx context.Context) error {
	profileErr := fanOutRevert(ctx, a.ShellProfiles)
	if err := a.ConfigFile.TryRevert(ctx); err != nil {
		if profileErr != nil {
			return installerrors.AsMultipleChildren([]error{profileErr, err})
		}
		return err
	}
	return profileErr
}

func (a *ConfigureNix) Tag() action.Tag { return action.TagConfigureNix }

// fanOutExecute runs every child's TryExecute concurrently and waits for
// all of them, since each touches a disjoint file (spec.md §5). The first
// error observed is returned; every goroutine still runs to completion so
// partial progress is recorded in each child's own state.
func fanOutExecute(ctx context.Context, children []*action.Stateful) error {
	var wg sync.WaitGroup
	errs := make([]error, len(children))
	for i, child := range children {
		wg.Add(1)
		go func(i int, child *action.Stateful) {
			defer wg.Done()
			errs[i] = child.TryExecute(ctx)
		}(i, child)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// fanOutRevert is fanOutExecute's revert counterpart: it collects every
// error instead of returning the first, matching composite revert's
// best-effort-progress discipline.
func fanOutRevert(ctx context.Context, children []*action.Stateful) error {
	var wg sync.WaitGroup
	errs := make([]error, len(children))
	for i, child := range children {
		wg.Add(1)
		go func(i int, child *action.Stateful) {
			defer wg.Done()
			errs[i] = child.TryRevert(ctx)
		}(i, child)
	}
	wg.Wait()
	return installerrors.AsMultipleChildren(errs)
}

var _ action.Action = (*ConfigureNix)(nil)
