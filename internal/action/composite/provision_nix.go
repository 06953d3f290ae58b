package composite

import (
	"context"
	"fmt"

	"github.com/DeterminateSystems/nix-installer-go/internal/action"
	"github.com/DeterminateSystems/nix-installer-go/internal/action/leaf"
	"github.com/DeterminateSystems/nix-installer-go/internal/ports"
)

func init() {
	action.Register(action.TagProvisionNix, func() action.Action { return &ProvisionNix{} })
}

// ProvisionNixPlan is the set of inputs the planner supplies to assemble
// ProvisionNix's child actions: fetching the Nix tarball, unpacking it,
// creating the build-user pool and its group, and symlinking the default
// profile so `nix` is on PATH (spec.md §4.3).
type ProvisionNixPlan struct {
	TarballSource   string
	StoreDir        string
	GroupName       string
	GroupGID        int
	BuildUserCount  int
	BuildUserPrefix string
	BuildUserUIDBase int
	// ProfileLink is the path of the symlink PlanProvisionNix creates, and
	// ProfileTarget is what it points at. Left blank, no profile symlink
	// is planned.
	ProfileLink   string
	ProfileTarget string
}

// ProvisionNix composes fetch+unpack, group/user creation, and profile
// symlinking into one reversible unit (spec.md §4.3).
type ProvisionNix struct {
	Base
}

// PlanProvisionNix assembles ProvisionNix's children in declaration order:
// fetch/unpack, then the build group, then each build user, then the
// store's top-level directory, then the default-profile symlink.
func PlanProvisionNix(ctx context.Context, fs ports.FileSystem, cmd ports.CommandRunner, fetcher action.Fetcher, p ProvisionNixPlan) (*action.Stateful, error) {
	var children []*action.Stateful

	children = append(children, leaf.PlanFetchAndUnpack(fetcher, p.TarballSource, p.StoreDir))

	group, err := leaf.PlanCreateGroup(ctx, cmd, p.GroupName, p.GroupGID)
	if err != nil {
		return nil, err
	}
	children = append(children, group)

	for i := 0; i < p.BuildUserCount; i++ {
		name := userName(p.BuildUserPrefix, i+1)
		user, err := leaf.PlanCreateUser(ctx, cmd, name, p.BuildUserUIDBase+i, p.GroupName, p.GroupGID)
		if err != nil {
			return nil, err
		}
		children = append(children, user)

		member, err := leaf.PlanAddUserToGroup(ctx, cmd, name, p.BuildUserUIDBase+i, p.GroupName, p.GroupGID)
		if err != nil {
			return nil, err
		}
		children = append(children, member)
	}

	store, err := leaf.PlanCreateDirectory(fs, p.StoreDir, "", "", 0o755, true, 0, 0, false)
	if err != nil {
		return nil, err
	}
	children = append(children, store)

	if p.ProfileLink != "" {
		profileLink, err := leaf.PlanCreateSymlink(fs, p.ProfileTarget, p.ProfileLink)
		if err != nil {
			return nil, err
		}
		children = append(children, profileLink)
	}

	a := &ProvisionNix{Base: Base{ChildActions: children}}
	return action.NewStateful(a, action.StateUncompleted), nil
}

func userName(prefix string, n int) string {
	return fmt.Sprintf("%s%d", prefix, n)
}

func (a *ProvisionNix) TracingSynopsis() string { return "provision Nix" }

func (a *ProvisionNix) ExecuteDescription() []action.Description {
	return []action.Description{action.NewDescription(a.TracingSynopsis(), []string{
		"Fetches the Nix store tree, creates its build users and group, and symlinks the default profile.",
	})}
}

func (a *ProvisionNix) RevertDescription() []action.Description {
	return []action.Description{action.NewDescription("un-provision Nix", nil)}
}

func (a *ProvisionNix) Execute(ctx context.Context) error { return a.ExecuteChildren(ctx) }
func (a *ProvisionNix) Revert(ctx context.Context) error  { return a.RevertChildren(ctx) }
func (a *ProvisionNix) Tag() action.Tag                   { return action.TagProvisionNix }

var _ action.Action = (*ProvisionNix)(nil)
