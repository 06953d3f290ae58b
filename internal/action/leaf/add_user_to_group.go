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
	action.Register(action.TagAddUserToGroup, func() action.Action { return &AddUserToGroup{} })
}

// AddUserToGroup adds an existing user to an existing group (spec.md
// §4.2). Plan probes membership via the platform's group-query tool and
// Skips if the user is already a member; a user whose UID or GID does not
// match what the planner expects is a planning error.
type AddUserToGroup struct {
	Name      string `json:"name"`
	UID       int    `json:"uid"`
	GroupName string `json:"groupname"`
	GID       int    `json:"gid"`

	cmd ports.CommandRunner
	ops usermgmt.Ops
}

func PlanAddUserToGroup(ctx context.Context, cmd ports.CommandRunner, name string, uid int, groupname string, gid int) (*action.Stateful, error) {
	a := &AddUserToGroup{Name: name, UID: uid, GroupName: groupname, GID: gid, cmd: cmd, ops: usermgmt.Default}

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

		member, err := a.ops.IsGroupMember(ctx, cmd, name, groupname)
		if err != nil {
			return nil, installerrors.New(installerrors.KindCommand, err)
		}
		if member {
			return action.NewStateful(a, action.StateSkipped), nil
		}
	}
	return action.NewStateful(a, action.StateUncompleted), nil
}

func (a *AddUserToGroup) Hydrate(d action.Dependencies) { a.cmd = d.Cmd; a.ops = usermgmt.Default }

func (a *AddUserToGroup) TracingSynopsis() string {
	return fmt.Sprintf("add user `%s` to group `%s`", a.Name, a.GroupName)
}

func (a *AddUserToGroup) ExecuteDescription() []action.Description {
	return []action.Description{action.NewDescription(a.TracingSynopsis(), []string{
		fmt.Sprintf("Build users must belong to `%s` to run nix-daemon builds.", a.GroupName),
	})}
}

func (a *AddUserToGroup) RevertDescription() []action.Description {
	return []action.Description{action.NewDescription(fmt.Sprintf("remove user `%s` from group `%s`", a.Name, a.GroupName), nil)}
}

func (a *AddUserToGroup) Execute(ctx context.Context) error {
	if err := a.ops.AddUserToGroup(ctx, a.cmd, a.Name, a.GroupName); err != nil {
		return installerrors.New(installerrors.KindCommand, err)
	}
	return nil
}

func (a *AddUserToGroup) Revert(ctx context.Context) error {
	if err := a.ops.RemoveUserFromGroup(ctx, a.cmd, a.Name, a.GroupName); err != nil {
		return installerrors.New(installerrors.KindCommand, err)
	}
	return nil
}

func (a *AddUserToGroup) Tag() action.Tag { return action.TagAddUserToGroup }

var _ action.Action = (*AddUserToGroup)(nil)
var _ action.Hydratable = (*AddUserToGroup)(nil)
