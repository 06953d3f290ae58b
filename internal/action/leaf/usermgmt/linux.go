//go:build !darwin

package usermgmt

import (
	"context"
	"strconv"
	"strings"

	"github.com/DeterminateSystems/nix-installer-go/internal/ports"
)

// linuxOps drives the user/group database through getent (probing) and
// useradd/userdel/groupadd/groupdel/usermod/gpasswd (mutation), mirroring
// the non-Darwin branch of every base action in the original installer.
type linuxOps struct{}

// Default is the Ops implementation compiled in on every non-Darwin target.
var Default Ops = linuxOps{}

func (linuxOps) LookupGroup(ctx context.Context, cmd ports.CommandRunner, name string) (GroupInfo, error) {
	res, err := cmd.Run(ctx, "getent", "group", name)
	if err != nil {
		return GroupInfo{}, err
	}
	if !res.Success() {
		return GroupInfo{}, nil
	}
	fields := strings.Split(strings.TrimSpace(res.Stdout), ":")
	if len(fields) < 3 {
		return GroupInfo{Exists: true}, nil
	}
	gid, _ := strconv.Atoi(fields[2])
	return GroupInfo{Exists: true, GID: gid}, nil
}

func (linuxOps) LookupUser(ctx context.Context, cmd ports.CommandRunner, name string) (UserInfo, error) {
	res, err := cmd.Run(ctx, "getent", "passwd", name)
	if err != nil {
		return UserInfo{}, err
	}
	if !res.Success() {
		return UserInfo{}, nil
	}
	fields := strings.Split(strings.TrimSpace(res.Stdout), ":")
	if len(fields) < 4 {
		return UserInfo{Exists: true}, nil
	}
	uid, _ := strconv.Atoi(fields[2])
	gid, _ := strconv.Atoi(fields[3])
	return UserInfo{Exists: true, UID: uid, GID: gid}, nil
}

func (linuxOps) IsGroupMember(ctx context.Context, cmd ports.CommandRunner, user, group string) (bool, error) {
	res, err := cmd.Run(ctx, "id", "-nG", user)
	if err != nil {
		return false, err
	}
	if !res.Success() {
		return false, nil
	}
	for _, g := range strings.Fields(res.Stdout) {
		if g == group {
			return true, nil
		}
	}
	return false, nil
}

func (linuxOps) CreateGroup(ctx context.Context, cmd ports.CommandRunner, name string, gid int) error {
	_, err := runOK(ctx, cmd, "groupadd", "-g", strconv.Itoa(gid), "--system", name)
	return err
}

func (linuxOps) DeleteGroup(ctx context.Context, cmd ports.CommandRunner, name string) error {
	_, err := runOK(ctx, cmd, "groupdel", name)
	return err
}

func (linuxOps) CreateUser(ctx context.Context, cmd ports.CommandRunner, name string, uid, gid int) error {
	_, err := runOK(ctx, cmd, "useradd",
		"--system",
		"--no-create-home",
		"--shell", "/sbin/nologin",
		"--comment", "Nix build user",
		"--uid", strconv.Itoa(uid),
		"--gid", strconv.Itoa(gid),
		name,
	)
	return err
}

func (linuxOps) DeleteUser(ctx context.Context, cmd ports.CommandRunner, name string) error {
	if res, err := cmd.Run(ctx, "which", "userdel"); err == nil && res.Success() {
		_, err := runOK(ctx, cmd, "userdel", name)
		return err
	}
	_, err := runOK(ctx, cmd, "deluser", name)
	return err
}

func (linuxOps) AddUserToGroup(ctx context.Context, cmd ports.CommandRunner, user, group string) error {
	_, err := runOK(ctx, cmd, "usermod", "-aG", group, user)
	return err
}

func (linuxOps) RemoveUserFromGroup(ctx context.Context, cmd ports.CommandRunner, user, group string) error {
	_, err := runOK(ctx, cmd, "gpasswd", "-d", user, group)
	return err
}
