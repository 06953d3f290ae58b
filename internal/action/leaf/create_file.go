package leaf

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/DeterminateSystems/nix-installer-go/internal/action"
	"github.com/DeterminateSystems/nix-installer-go/internal/installerrors"
	"github.com/DeterminateSystems/nix-installer-go/internal/ports"
)

func init() {
	action.Register(action.TagCreateFile, func() action.Action { return &CreateFile{} })
}

// CreateFile creates a regular file with exclusive-create semantics, chowns
// and chmods it, and removes it on revert.
type CreateFile struct {
	Path    string      `json:"path"`
	User    string      `json:"user,omitempty"`
	Group   string      `json:"group,omitempty"`
	UID     int         `json:"uid,omitempty"`
	GID     int         `json:"gid,omitempty"`
	Mode    os.FileMode `json:"mode"`
	Content []byte      `json:"content"`
	Force   bool        `json:"force"`

	fs ports.FileSystem
}

// PlanCreateFile implements spec.md §4.2's CreateFile planning: identical
// existing content/mode/ownership is Skipped; different content without
// Force is DifferentContent; different mode is PathModeMismatch; an owner
// other than the requested user or group is PathUserMismatch or
// PathGroupMismatch.
func PlanCreateFile(fs ports.FileSystem, path, user, group string, uid, gid int, mode os.FileMode, content []byte, force bool) (*action.Stateful, error) {
	a := &CreateFile{Path: path, User: user, Group: group, UID: uid, GID: gid, Mode: mode, Content: content, Force: force, fs: fs}

	if fs.Exists(path) {
		if fs.IsDir(path) {
			return nil, installerrors.NewPath(installerrors.KindPathWasNotFile, path, nil)
		}

		existing, err := fs.ReadFile(path)
		if err != nil {
			return nil, installerrors.NewPath(installerrors.KindRead, path, err)
		}
		info, err := fs.Stat(path)
		if err != nil {
			return nil, installerrors.NewPath(installerrors.KindGetMetadata, path, err)
		}

		sameContent := bytes.Equal(existing, content)
		sameMode := info.Mode.Perm() == mode.Perm()
		sameUser := user == "" || info.UID == uid
		sameGroup := group == "" || info.GID == gid

		if sameContent && sameMode && sameUser && sameGroup {
			return action.NewStateful(a, action.StateSkipped), nil
		}
		if !sameContent && !force {
			return nil, installerrors.NewPath(installerrors.KindDifferentContent, path, nil)
		}
		if !sameMode {
			return nil, installerrors.NewPath(installerrors.KindPathModeMismatch, path,
				fmt.Errorf("actual mode %s, expected %s", info.Mode.Perm(), mode.Perm()))
		}
		if !sameUser {
			return nil, installerrors.NewPath(installerrors.KindPathUserMismatch, path,
				fmt.Errorf("actual uid %d, expected %d", info.UID, uid))
		}
		if !sameGroup {
			return nil, installerrors.NewPath(installerrors.KindPathGroupMismatch, path,
				fmt.Errorf("actual gid %d, expected %d", info.GID, gid))
		}
	}
	return action.NewStateful(a, action.StateUncompleted), nil
}

func (a *CreateFile) Hydrate(d action.Dependencies) { a.fs = d.FS }

func (a *CreateFile) TracingSynopsis() string { return fmt.Sprintf("create file %s", a.Path) }

func (a *CreateFile) ExecuteDescription() []action.Description {
	return []action.Description{action.NewDescription(a.TracingSynopsis(), []string{
		fmt.Sprintf("Creates %s with the planned content, owner, and mode.", a.Path),
	})}
}

func (a *CreateFile) RevertDescription() []action.Description {
	return []action.Description{action.NewDescription(fmt.Sprintf("remove file %s", a.Path), nil)}
}

func (a *CreateFile) Execute(_ context.Context) error {
	if err := a.fs.CreateExclusive(a.Path, a.Content, a.Mode); err != nil {
		return installerrors.NewPath(installerrors.KindOpen, a.Path, err)
	}
	if a.User != "" || a.Group != "" {
		if err := a.fs.Chown(a.Path, a.UID, a.GID); err != nil {
			return installerrors.NewPath(installerrors.KindChown, a.Path, err)
		}
	}
	return nil
}

func (a *CreateFile) Revert(_ context.Context) error {
	if !a.fs.Exists(a.Path) {
		return nil
	}
	if err := a.fs.Remove(a.Path); err != nil {
		return installerrors.NewPath(installerrors.KindRemove, a.Path, err)
	}
	return nil
}

func (a *CreateFile) Tag() action.Tag { return action.TagCreateFile }

var _ action.Action = (*CreateFile)(nil)
var _ action.Hydratable = (*CreateFile)(nil)
