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
	action.Register(action.TagDeleteUser, func() action.Action { return &DeleteUser{} })
}

// DeleteUser removes a user left over from a previous install that no
// longer needs a dedicated build-user pool (spec.md §4.2). Unlike
// CreateUser, a missing user at plan time is itself an error: deleting
// something that was never planned to exist signals a stale receipt.
type DeleteUser struct {
	Name string `json:"name"`

	cmd ports.CommandRunner
	ops usermgmt.Ops
}

func PlanDeleteUser(ctx context.Context, cmd ports.CommandRunner, name string) (*action.Stateful, error) {
	a := &DeleteUser{Name: name, cmd: cmd, ops: usermgmt.Default}

	info, err := a.ops.LookupUser(ctx, cmd, name)
	if err != nil {
		return nil, installerrors.New(installerrors.KindCommand, err)
	}
	if !info.Exists {
		return nil, installerrors.NewPath(installerrors.KindRead, name, fmt.Errorf("user does not exist"))
	}
	return action.NewStateful(a, action.StateUncompleted), nil
}

func (a *DeleteUser) Hydrate(d action.Dependencies) { a.cmd = d.Cmd; a.ops = usermgmt.Default }

func (a *DeleteUser) TracingSynopsis() string {
	return fmt.Sprintf("delete user `%s`, which exists due to a previous install but is no longer required", a.Name)
}

func (a *DeleteUser) ExecuteDescription() []action.Description {
	return []action.Description{action.NewDescription(a.TracingSynopsis(), []string{
		"auto-allocate-uids no longer requires explicitly created users, so this user can be removed.",
	})}
}

func (a *DeleteUser) RevertDescription() []action.Description { return nil }

func (a *DeleteUser) Execute(ctx context.Context) error {
	if err := a.ops.DeleteUser(ctx, a.cmd, a.Name); err != nil {
		return installerrors.New(installerrors.KindCommand, err)
	}
	return nil
}

// Revert is a no-op: the original install's own user creation owns
// recreating it, and DeleteUser only ever runs for already-orphaned users.
func (a *DeleteUser) Revert(_ context.Context) error { return nil }

func (a *DeleteUser) Tag() action.Tag { return action.TagDeleteUser }

var _ action.Action = (*DeleteUser)(nil)
var _ action.Hydratable = (*DeleteUser)(nil)
