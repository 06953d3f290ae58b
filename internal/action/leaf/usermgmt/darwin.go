//go:build darwin

package usermgmt

import (
	"context"
	"strconv"
	"strings"

	"github.com/DeterminateSystems/nix-installer-go/internal/ports"
)

// darwinOps drives the user/group database through dscl and dseditgroup,
// mirroring the Darwin branch of every base action in the original
// installer. macOS has no groupadd/useradd; every mutation goes through
// Open Directory's command-line front ends.
type darwinOps struct{}

// Default is the Ops implementation compiled in on Darwin.
var Default Ops = darwinOps{}

func (darwinOps) LookupGroup(ctx context.Context, cmd ports.CommandRunner, name string) (GroupInfo, error) {
	res, err := cmd.Run(ctx, "/usr/bin/dscl", ".", "-read", "/Groups/"+name, "PrimaryGroupID")
	if err != nil {
		return GroupInfo{}, err
	}
	if !res.Success() {
		return GroupInfo{}, nil
	}
	return GroupInfo{Exists: true, GID: parseTrailingInt(res.Stdout)}, nil
}

func (darwinOps) LookupUser(ctx context.Context, cmd ports.CommandRunner, name string) (UserInfo, error) {
	res, err := cmd.Run(ctx, "/usr/bin/dscl", ".", "-read", "/Users/"+name, "UniqueID")
	if err != nil {
		return UserInfo{}, err
	}
	if !res.Success() {
		return UserInfo{}, nil
	}
	uid := parseTrailingInt(res.Stdout)

	gidRes, err := cmd.Run(ctx, "/usr/bin/dscl", ".", "-read", "/Users/"+name, "PrimaryGroupID")
	if err != nil {
		return UserInfo{}, err
	}
	gid := 0
	if gidRes.Success() {
		gid = parseTrailingInt(gidRes.Stdout)
	}
	return UserInfo{Exists: true, UID: uid, GID: gid}, nil
}

func (darwinOps) IsGroupMember(ctx context.Context, cmd ports.CommandRunner, user, group string) (bool, error) {
	res, err := cmd.Run(ctx, "/usr/sbin/dseditgroup", "-o", "checkmember", "-m", user, group)
	if err != nil {
		return false, err
	}
	// Exit 0: member. Exit 64: group not found, treated as "not a member".
	return res.ExitCode == 0, nil
}

func (darwinOps) CreateGroup(ctx context.Context, cmd ports.CommandRunner, name string, gid int) error {
	_, err := runOK(ctx, cmd, "/usr/sbin/dseditgroup", "-o", "create",
		"-r", "Nix build group for nix-daemon",
		"-i", strconv.Itoa(gid),
		name,
	)
	return err
}

// DeleteGroup is a documented no-op on Darwin: the original installer's own
// comment notes that test machines without a secure token cannot delete
// groups, so a second install simply reuses the existing one.
func (darwinOps) DeleteGroup(_ context.Context, _ ports.CommandRunner, _ string) error {
	return nil
}

func (darwinOps) CreateUser(ctx context.Context, cmd ports.CommandRunner, name string, uid, gid int) error {
	path := "/Users/" + name
	steps := [][]string{
		{".", "-create", path},
		{".", "-createprop", path, "UniqueID", strconv.Itoa(uid)},
		{".", "-createprop", path, "PrimaryGroupID", strconv.Itoa(gid)},
		{".", "-createprop", path, "RealName", "Nix build user"},
		{".", "-createprop", path, "NFSHomeDirectory", "/var/empty"},
		{".", "-createprop", path, "UserShell", "/usr/bin/false"},
		{".", "-createprop", path, "IsHidden", "1"},
	}
	for _, args := range steps {
		if _, err := runOK(ctx, cmd, "/usr/bin/dscl", args...); err != nil {
			return err
		}
	}
	return nil
}

func (darwinOps) DeleteUser(ctx context.Context, cmd ports.CommandRunner, name string) error {
	_, err := runOK(ctx, cmd, "/usr/bin/dscl", ".", "-delete", "/Users/"+name)
	return err
}

func (darwinOps) AddUserToGroup(ctx context.Context, cmd ports.CommandRunner, user, group string) error {
	_, err := runOK(ctx, cmd, "/usr/sbin/dseditgroup", "-o", "edit", "-a", user, "-t", "user", group)
	return err
}

func (darwinOps) RemoveUserFromGroup(ctx context.Context, cmd ports.CommandRunner, user, group string) error {
	_, err := runOK(ctx, cmd, "/usr/sbin/dseditgroup", "-o", "edit", "-d", user, "-t", "user", group)
	return err
}

// parseTrailingInt extracts the last whitespace-separated field from a
// dscl -read line such as "UniqueID: 532", returning 0 if it isn't an int.
func parseTrailingInt(s string) int {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0
	}
	n, _ := strconv.Atoi(fields[len(fields)-1])
	return n
}
