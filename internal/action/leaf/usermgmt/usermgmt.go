// Package usermgmt isolates the platform-specific user and group database
// commands behind one small interface, so the CreateGroup/CreateUser/
// DeleteUser/AddUserToGroup leaf actions stay platform-agnostic and only
// the build-tagged implementation file differs per OS (spec.md §4.2).
package usermgmt

import (
	"context"
	"fmt"
	"strings"

	"github.com/DeterminateSystems/nix-installer-go/internal/ports"
)

// GroupInfo is the result of probing the group database for one name.
type GroupInfo struct {
	Exists bool
	GID    int
}

// UserInfo is the result of probing the user database for one name.
type UserInfo struct {
	Exists bool
	UID    int
	GID    int
}

// Ops is the platform's user/group database probe and mutation surface.
// Linux drives it through useradd/userdel/groupadd/groupdel/usermod;
// Darwin drives it through dscl and dseditgroup.
type Ops interface {
	LookupGroup(ctx context.Context, cmd ports.CommandRunner, name string) (GroupInfo, error)
	LookupUser(ctx context.Context, cmd ports.CommandRunner, name string) (UserInfo, error)
	IsGroupMember(ctx context.Context, cmd ports.CommandRunner, user, group string) (bool, error)

	CreateGroup(ctx context.Context, cmd ports.CommandRunner, name string, gid int) error
	DeleteGroup(ctx context.Context, cmd ports.CommandRunner, name string) error
	CreateUser(ctx context.Context, cmd ports.CommandRunner, name string, uid, gid int) error
	DeleteUser(ctx context.Context, cmd ports.CommandRunner, name string) error
	AddUserToGroup(ctx context.Context, cmd ports.CommandRunner, user string, group string) error
	RemoveUserFromGroup(ctx context.Context, cmd ports.CommandRunner, user string, group string) error
}

// runOK runs command and turns a non-zero exit into an error carrying its
// stderr, since ports.CommandRunner itself never treats exit code as an error.
func runOK(ctx context.Context, cmd ports.CommandRunner, command string, args ...string) (ports.CommandResult, error) {
	res, err := cmd.Run(ctx, command, args...)
	if err != nil {
		return res, fmt.Errorf("running %s: %w", command, err)
	}
	if !res.Success() {
		return res, fmt.Errorf("%s %s exited %d: %s", command, strings.Join(args, " "), res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return res, nil
}
