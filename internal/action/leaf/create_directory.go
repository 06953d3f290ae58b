// Package leaf implements the engine's fixed vocabulary of leaf actions
// (spec.md §4.2): concrete units with no child actions, each probed at
// plan time and applied/undone at execute/revert time through the
// ports.FileSystem and ports.CommandRunner abstractions.
package leaf

import (
	"context"
	"fmt"
	"os"

	"github.com/DeterminateSystems/nix-installer-go/internal/action"
	"github.com/DeterminateSystems/nix-installer-go/internal/installerrors"
	"github.com/DeterminateSystems/nix-installer-go/internal/ports"
)

func init() {
	action.Register(action.TagCreateDirectory, func() action.Action { return &CreateDirectory{} })
}

// CreateDirectory creates a directory, optionally chowning and chmod'ing
// it, and prunes it on revert if it is empty or ForcePruneOnRevert is set.
type CreateDirectory struct {
	Path               string       `json:"path"`
	User               string       `json:"user,omitempty"`
	Group              string       `json:"group,omitempty"`
	Mode               os.FileMode  `json:"mode,omitempty"`
	HasMode            bool         `json:"has_mode"`
	UID                int          `json:"uid,omitempty"`
	GID                int          `json:"gid,omitempty"`
	ForcePruneOnRevert bool         `json:"force_prune_on_revert"`

	fs ports.FileSystem
}

// PlanCreateDirectory probes path and returns a Stateful action ready for
// TryExecute. A pre-existing directory is Skipped without re-validating
// owner or mode (spec.md §4.2: "future work"); a pre-existing non-directory
// is a planning error.
func PlanCreateDirectory(fs ports.FileSystem, path, user, group string, mode os.FileMode, hasMode bool, uid, gid int, forcePrune bool) (*action.Stateful, error) {
	a := &CreateDirectory{
		Path: path, User: user, Group: group, Mode: mode, HasMode: hasMode,
		UID: uid, GID: gid, ForcePruneOnRevert: forcePrune, fs: fs,
	}

	if fs.Exists(path) {
		if !fs.IsDir(path) {
			return nil, installerrors.NewPath(installerrors.KindPathExistsWrongType, path, nil)
		}
		return action.NewStateful(a, action.StateSkipped), nil
	}
	return action.NewStateful(a, action.StateUncompleted), nil
}

func (a *CreateDirectory) Hydrate(d action.Dependencies) { a.fs = d.FS }

func (a *CreateDirectory) TracingSynopsis() string {
	return fmt.Sprintf("create directory %s", a.Path)
}

func (a *CreateDirectory) ExecuteDescription() []action.Description {
	return []action.Description{action.NewDescription(a.TracingSynopsis(), []string{
		fmt.Sprintf("Creates %s and sets its owner and mode if requested.", a.Path),
	})}
}

func (a *CreateDirectory) RevertDescription() []action.Description {
	return []action.Description{action.NewDescription(fmt.Sprintf("remove directory %s", a.Path), []string{
		"Removes the directory if it is empty, or unconditionally if force_prune_on_revert was set.",
	})}
}

func (a *CreateDirectory) Execute(_ context.Context) error {
	if err := a.fs.MkdirAll(a.Path, 0o755); err != nil {
		return installerrors.NewPath(installerrors.KindCreateDir, a.Path, err)
	}
	if a.User != "" || a.Group != "" {
		if err := a.fs.Chown(a.Path, a.UID, a.GID); err != nil {
			return installerrors.NewPath(installerrors.KindChown, a.Path, err)
		}
	}
	if a.HasMode {
		if err := a.fs.Chmod(a.Path, a.Mode); err != nil {
			return installerrors.NewPath(installerrors.KindSetPerms, a.Path, err)
		}
	}
	return nil
}

func (a *CreateDirectory) Revert(_ context.Context) error {
	if !a.fs.Exists(a.Path) {
		return nil
	}
	if !a.ForcePruneOnRevert && !a.isEmptyDir() {
		return nil
	}
	if err := a.fs.RemoveAll(a.Path); err != nil {
		return installerrors.NewPath(installerrors.KindRemove, a.Path, err)
	}
	return nil
}

func (a *CreateDirectory) isEmptyDir() bool {
	names, err := a.fs.ReadDir(a.Path)
	if err != nil {
		return false
	}
	return len(names) == 0
}

func (a *CreateDirectory) Tag() action.Tag { return action.TagCreateDirectory }

var _ action.Action = (*CreateDirectory)(nil)
var _ action.Hydratable = (*CreateDirectory)(nil)
