package leaf

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/DeterminateSystems/nix-installer-go/internal/action"
	"github.com/DeterminateSystems/nix-installer-go/internal/installerrors"
	"github.com/DeterminateSystems/nix-installer-go/internal/ports"
)

func init() {
	action.Register(action.TagCreateOrInsertIntoFile, func() action.Action { return &CreateOrInsertIntoFile{} })
}

// Position selects where a fragment is inserted relative to the file's
// existing content.
type Position string

const (
	PositionBeginning Position = "beginning"
	PositionEnd       Position = "end"
)

// CreateOrInsertIntoFile implements the canonical "atomic edit" action
// (spec.md §4.4): fragment is written via a sibling temp file created in
// the target's own directory, then renamed over it, so a concurrent reader
// never observes a partial write. Revert excises the fragment by its
// literal bytes rather than by recorded position.
type CreateOrInsertIntoFile struct {
	Path     string      `json:"path"`
	User     string      `json:"user,omitempty"`
	Group    string      `json:"group,omitempty"`
	UID      int         `json:"uid,omitempty"`
	GID      int         `json:"gid,omitempty"`
	Mode     os.FileMode `json:"mode"`
	HasMode  bool        `json:"has_mode"`
	Fragment string      `json:"fragment"`
	Position Position    `json:"position"`

	fs ports.FileSystem
}

// PlanCreateOrInsertIntoFile probes whether fragment already appears in the
// file (Skipped if so) and otherwise returns an Uncompleted action. A
// missing parent directory or a non-regular-file target are planning
// errors (spec.md §4.4 edge cases).
func PlanCreateOrInsertIntoFile(fs ports.FileSystem, path, user, group string, uid, gid int, mode os.FileMode, hasMode bool, fragment string, position Position) (*action.Stateful, error) {
	a := &CreateOrInsertIntoFile{
		Path: path, User: user, Group: group, UID: uid, GID: gid,
		Mode: mode, HasMode: hasMode, Fragment: fragment, Position: position, fs: fs,
	}

	parent := filepath.Dir(path)
	if !fs.Exists(parent) || !fs.IsDir(parent) {
		return nil, installerrors.NewPath(installerrors.KindPathWasNotDirectory, parent, nil)
	}

	if fs.Exists(path) {
		if fs.IsDir(path) {
			return nil, installerrors.NewPath(installerrors.KindPathExistsWrongType, path, nil)
		}
		content, err := fs.ReadFile(path)
		if err != nil {
			return nil, installerrors.NewPath(installerrors.KindRead, path, err)
		}
		if bytes.Contains(content, []byte(fragment)) {
			return action.NewStateful(a, action.StateSkipped), nil
		}
	}
	return action.NewStateful(a, action.StateUncompleted), nil
}

func (a *CreateOrInsertIntoFile) Hydrate(d action.Dependencies) { a.fs = d.FS }

func (a *CreateOrInsertIntoFile) TracingSynopsis() string {
	return fmt.Sprintf("insert fragment into %s", a.Path)
}

func (a *CreateOrInsertIntoFile) ExecuteDescription() []action.Description {
	return []action.Description{action.NewDescription(a.TracingSynopsis(), []string{
		fmt.Sprintf("Writes a temp file next to %s containing the fragment plus the original content, then renames it into place.", a.Path),
	})}
}

func (a *CreateOrInsertIntoFile) RevertDescription() []action.Description {
	return []action.Description{action.NewDescription(fmt.Sprintf("remove inserted fragment from %s", a.Path), []string{
		"Finds the fragment by its literal bytes and excises it; the file is removed if that leaves it empty.",
	})}
}

func (a *CreateOrInsertIntoFile) Execute(_ context.Context) error {
	var original []byte
	mode := a.Mode
	if !a.HasMode {
		mode = 0o644
	}

	if a.fs.Exists(a.Path) {
		data, err := a.fs.ReadFile(a.Path)
		if err != nil {
			return installerrors.NewPath(installerrors.KindRead, a.Path, err)
		}
		original = data
		if !a.HasMode {
			if info, err := a.fs.Stat(a.Path); err == nil {
				mode = info.Mode.Perm()
			}
		}
	}

	var merged []byte
	switch a.Position {
	case PositionBeginning:
		merged = append([]byte(a.Fragment), original...)
	default:
		merged = append(append([]byte{}, original...), []byte(a.Fragment)...)
	}

	parent := filepath.Dir(a.Path)
	tmp, err := a.fs.TempFile(parent, filepath.Base(a.Path))
	if err != nil {
		return installerrors.NewPath(installerrors.KindOpen, parent, err)
	}
	if err := a.fs.WriteFile(tmp, merged, 0o600); err != nil {
		_ = a.fs.Remove(tmp)
		return installerrors.NewPath(installerrors.KindWrite, tmp, err)
	}
	if a.User != "" || a.Group != "" {
		if err := a.fs.Chown(tmp, a.UID, a.GID); err != nil {
			_ = a.fs.Remove(tmp)
			return installerrors.NewPath(installerrors.KindChown, tmp, err)
		}
	}
	if err := a.fs.Chmod(tmp, mode); err != nil {
		_ = a.fs.Remove(tmp)
		return installerrors.NewPath(installerrors.KindSetPerms, tmp, err)
	}
	if err := a.fs.Rename(tmp, a.Path); err != nil {
		_ = a.fs.Remove(tmp)
		return installerrors.NewPath(installerrors.KindRename, a.Path, err)
	}
	return nil
}

func (a *CreateOrInsertIntoFile) Revert(_ context.Context) error {
	if !a.fs.Exists(a.Path) {
		return nil
	}
	content, err := a.fs.ReadFile(a.Path)
	if err != nil {
		return installerrors.NewPath(installerrors.KindRead, a.Path, err)
	}

	idx := strings.LastIndex(string(content), a.Fragment)
	if idx < 0 {
		// The fragment no longer matches exactly — accepted no-op per
		// spec.md §4.4 invariant 5.
		return nil
	}

	excised := append(append([]byte{}, content[:idx]...), content[idx+len(a.Fragment):]...)
	if len(excised) == 0 {
		if err := a.fs.Remove(a.Path); err != nil {
			return installerrors.NewPath(installerrors.KindRemove, a.Path, err)
		}
		return nil
	}

	parent := filepath.Dir(a.Path)
	tmp, err := a.fs.TempFile(parent, filepath.Base(a.Path))
	if err != nil {
		return installerrors.NewPath(installerrors.KindOpen, parent, err)
	}
	if err := a.fs.WriteFile(tmp, excised, 0o600); err != nil {
		_ = a.fs.Remove(tmp)
		return installerrors.NewPath(installerrors.KindWrite, tmp, err)
	}
	mode := a.Mode
	if !a.HasMode {
		mode = 0o644
		if info, err := a.fs.Stat(a.Path); err == nil {
			mode = info.Mode.Perm()
		}
	}
	if err := a.fs.Chmod(tmp, mode); err != nil {
		_ = a.fs.Remove(tmp)
		return installerrors.NewPath(installerrors.KindSetPerms, tmp, err)
	}
	if err := a.fs.Rename(tmp, a.Path); err != nil {
		_ = a.fs.Remove(tmp)
		return installerrors.NewPath(installerrors.KindRename, a.Path, err)
	}
	return nil
}

func (a *CreateOrInsertIntoFile) Tag() action.Tag { return action.TagCreateOrInsertIntoFile }

var _ action.Action = (*CreateOrInsertIntoFile)(nil)
var _ action.Hydratable = (*CreateOrInsertIntoFile)(nil)
