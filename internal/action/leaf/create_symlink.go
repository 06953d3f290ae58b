package leaf

import (
	"context"
	"fmt"

	"github.com/DeterminateSystems/nix-installer-go/internal/action"
	"github.com/DeterminateSystems/nix-installer-go/internal/installerrors"
	"github.com/DeterminateSystems/nix-installer-go/internal/ports"
)

func init() {
	action.Register(action.TagCreateSymlink, func() action.Action { return &CreateSymlink{} })
}

// CreateSymlink creates Link pointing at Target, used to publish the
// default Nix profile onto PATH (spec.md §4.3). It is a no-op on revert if
// the link was already in place before Execute ran.
type CreateSymlink struct {
	Target string `json:"target"`
	Link   string `json:"link"`

	fs ports.FileSystem
}

// PlanCreateSymlink probes link and returns a Stateful action ready for
// TryExecute. A link that already points at target is Skipped; a link
// pointing elsewhere, or a non-symlink occupying the path, is a planning
// error.
func PlanCreateSymlink(fs ports.FileSystem, target, link string) (*action.Stateful, error) {
	a := &CreateSymlink{Target: target, Link: link, fs: fs}

	if fs.Exists(link) {
		isLink, existingTarget := fs.IsSymlink(link)
		if !isLink {
			return nil, installerrors.NewPath(installerrors.KindPathWasNotSymlink, link, nil)
		}
		if existingTarget != target {
			return nil, installerrors.NewPath(installerrors.KindSymlinkExists, link, nil)
		}
		return action.NewStateful(a, action.StateSkipped), nil
	}
	return action.NewStateful(a, action.StateUncompleted), nil
}

func (a *CreateSymlink) Hydrate(d action.Dependencies) { a.fs = d.FS }

func (a *CreateSymlink) TracingSynopsis() string {
	return fmt.Sprintf("symlink %s -> %s", a.Link, a.Target)
}

func (a *CreateSymlink) ExecuteDescription() []action.Description {
	return []action.Description{action.NewDescription(a.TracingSynopsis(), []string{
		fmt.Sprintf("Creates %s as a symlink pointing at %s.", a.Link, a.Target),
	})}
}

func (a *CreateSymlink) RevertDescription() []action.Description {
	return []action.Description{action.NewDescription(fmt.Sprintf("remove symlink %s", a.Link), []string{
		"Removes the symlink if this action created it.",
	})}
}

func (a *CreateSymlink) Execute(_ context.Context) error {
	if err := a.fs.CreateSymlink(a.Target, a.Link); err != nil {
		return installerrors.NewPath(installerrors.KindSymlink, a.Link, err)
	}
	return nil
}

func (a *CreateSymlink) Revert(_ context.Context) error {
	if !a.fs.Exists(a.Link) {
		return nil
	}
	if err := a.fs.Remove(a.Link); err != nil {
		return installerrors.NewPath(installerrors.KindRemove, a.Link, err)
	}
	return nil
}

func (a *CreateSymlink) Tag() action.Tag { return action.TagCreateSymlink }

var _ action.Action = (*CreateSymlink)(nil)
var _ action.Hydratable = (*CreateSymlink)(nil)
