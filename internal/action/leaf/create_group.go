package leaf

import (
	"context"
	"fmt"

	"github.com/DeterminateSystems/nix-installer-go/internal/action"
	"github.com/DeterminateSystems/nix-installer-go/internal/action/leaf/usermgmt"
	"github.com/DeterminateSystems/nix-installer-go/internal/installerrors"
	"github.com/DeterminateSystems/nix-installer-go/internal/ports"
)

func init() {
	action.Register(action.TagCreateGroup, func() action.Action { return &CreateGroup{} })
}

// CreateGroup creates the system group nix build users belong to (spec.md
// §4.2). An existing group with a mismatched GID is a planning error; one
// with a matching GID is Skipped.
type CreateGroup struct {
	Name string `json:"name"`
	GID  int    `json:"gid"`

	cmd ports.CommandRunner
	ops usermgmt.Ops
}

// PlanCreateGroup probes the group database and Skips if name already
// exists with the requested GID.
func PlanCreateGroup(ctx context.Context, cmd ports.CommandRunner, name string, gid int) (*action.Stateful, error) {
	a := &CreateGroup{Name: name, GID: gid, cmd: cmd, ops: usermgmt.Default}

	info, err := a.ops.LookupGroup(ctx, cmd, name)
	if err != nil {
		return nil, installerrors.New(installerrors.KindCommand, err)
	}
	if info.Exists {
		if info.GID != gid {
			return nil, installerrors.New(installerrors.KindUserGIDMismatch,
				fmt.Errorf("group %q already exists with GID %d, wanted %d", name, info.GID, gid))
		}
		return action.NewStateful(a, action.StateSkipped), nil
	}
	return action.NewStateful(a, action.StateUncompleted), nil
}

func (a *CreateGroup) Hydrate(d action.Dependencies) { a.cmd = d.Cmd; a.ops = usermgmt.Default }

func (a *CreateGroup) TracingSynopsis() string {
	return fmt.Sprintf("create group `%s` (GID %d)", a.Name, a.GID)
}

func (a *CreateGroup) ExecuteDescription() []action.Description {
	return []action.Description{action.NewDescription(a.TracingSynopsis(), []string{
		"The nix daemon requires a system user group its system users can be part of.",
	})}
}

func (a *CreateGroup) RevertDescription() []action.Description {
	return []action.Description{action.NewDescription(fmt.Sprintf("delete group `%s` (GID %d)", a.Name, a.GID), nil)}
}

func (a *CreateGroup) Execute(ctx context.Context) error {
	if err := a.ops.CreateGroup(ctx, a.cmd, a.Name, a.GID); err != nil {
		return installerrors.New(installerrors.KindCommand, err)
	}
	return nil
}

func (a *CreateGroup) Revert(ctx context.Context) error {
	if err := a.ops.DeleteGroup(ctx, a.cmd, a.Name); err != nil {
		return installerrors.New(installerrors.KindCommand, err)
	}
	return nil
}

func (a *CreateGroup) Tag() action.Tag { return action.TagCreateGroup }

var _ action.Action = (*CreateGroup)(nil)
var _ action.Hydratable = (*CreateGroup)(nil)
