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
	action.Register(action.TagCreateUser, func() action.Action { return &CreateUser{} })
}

// CreateUser creates one of the nix build users (spec.md §4.2). Plan
// probes the existing user database; an existing entry with a mismatched
// UID or GID is a planning error, a matching one is Skipped.
type CreateUser struct {
	Name  string `json:"name"`
	UID   int    `json:"uid"`
	Group string `json:"group"`
	GID   int    `json:"gid"`

	cmd ports.CommandRunner
	ops usermgmt.Ops
}

func PlanCreateUser(ctx context.Context, cmd ports.CommandRunner, name string, uid int, group string, gid int) (*action.Stateful, error) {
	a := &CreateUser{Name: name, UID: uid, Group: group, GID: gid, cmd: cmd, ops: usermgmt.Default}

	info, err := a.ops.LookupUser(ctx, cmd, name)
	if err != nil {
		return nil, installerrors.New(installerrors.KindCommand, err)
	}
	if info.Exists {
		if info.UID != uid {
			return nil, installerrors.New(installerrors.KindUserUIDMismatch,
				fmt.Errorf("user %q already exists with UID %d, wanted %d", name, info.UID, uid))
		}
		if info.GID != gid {
			return nil, installerrors.New(installerrors.KindUserGIDMismatch,
				fmt.Errorf("user %q already exists with GID %d, wanted %d", name, info.GID, gid))
		}
		return action.NewStateful(a, action.StateSkipped), nil
	}
	return action.NewStateful(a, action.StateUncompleted), nil
}

func (a *CreateUser) Hydrate(d action.Dependencies) { a.cmd = d.Cmd; a.ops = usermgmt.Default }

func (a *CreateUser) TracingSynopsis() string {
	return fmt.Sprintf("create user `%s` (UID %d) in group `%s`", a.Name, a.UID, a.Group)
}

func (a *CreateUser) ExecuteDescription() []action.Description {
	return []action.Description{action.NewDescription(a.TracingSynopsis(), []string{
		"The nix daemon builds packages as one of a fixed pool of unprivileged build users.",
	})}
}

func (a *CreateUser) RevertDescription() []action.Description {
	return []action.Description{action.NewDescription(fmt.Sprintf("delete user `%s`", a.Name), nil)}
}

func (a *CreateUser) Execute(ctx context.Context) error {
	if err := a.ops.CreateUser(ctx, a.cmd, a.Name, a.UID, a.GID); err != nil {
		return installerrors.New(installerrors.KindCommand, err)
	}
	return nil
}

func (a *CreateUser) Revert(ctx context.Context) error {
	if err := a.ops.DeleteUser(ctx, a.cmd, a.Name); err != nil {
		return installerrors.New(installerrors.KindCommand, err)
	}
	return nil
}

func (a *CreateUser) Tag() action.Tag { return action.TagCreateUser }

var _ action.Action = (*CreateUser)(nil)
var _ action.Hydratable = (*CreateUser)(nil)
