package leaf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/DeterminateSystems/nix-installer-go/internal/action"
	"github.com/DeterminateSystems/nix-installer-go/internal/installerrors"
	"github.com/DeterminateSystems/nix-installer-go/internal/nixconfig"
	"github.com/DeterminateSystems/nix-installer-go/internal/ports"
)

func init() {
	action.Register(action.TagCreateOrMergeNixConfig, func() action.Action { return &CreateOrMergeNixConfig{} })
}

// Header is the generated-by line written immediately above the merger's
// machine-written settings section (spec.md §4.5.1).
const Header = "# This file was generated by nix-installer-go. Do not edit it by hand; see nix.custom.conf instead."

// MergeableConfNames is the closed set of settings whose values are
// token lists that may be unioned with a user's existing value rather than
// rejected outright (spec.md §4.5.1).
var MergeableConfNames = map[string]bool{
	"experimental-features":   true,
	"extra-experimental-features": true,
	"substituters":             true,
	"extra-substituters":       true,
	"trusted-public-keys":      true,
	"extra-trusted-public-keys": true,
	"trusted-users":            true,
	"extra-trusted-users":      true,
}

// CreateOrMergeNixConfig is the leaf wrapper around the nixconfig package's
// parse/classify/rewrite pipeline (spec.md §4.5). Plan-time classification
// decides the merged settings once; execute re-reads the file and replays
// that decision rather than re-classifying, per §4.5.4's "no silent
// downgrade" property.
type CreateOrMergeNixConfig struct {
	Path    string              `json:"path"`
	Mode    uint32              `json:"mode"`
	Pending []nixconfig.Pending `json:"pending"`
	Merged  []nixconfig.Merged  `json:"merged"`

	fs ports.FileSystem
}

// PlanCreateOrMergeNixConfig implements spec.md §4.5.2 in full: a missing
// file plans the pending settings verbatim; an existing file is parsed and
// classified, failing closed on any unmergeable name.
func PlanCreateOrMergeNixConfig(fs ports.FileSystem, path string, mode uint32, pending []nixconfig.Pending) (*action.Stateful, error) {
	a := &CreateOrMergeNixConfig{Path: path, Mode: mode, Pending: pending, fs: fs}

	if !fs.Exists(path) {
		merged := make([]nixconfig.Merged, 0, len(pending))
		for _, p := range pending {
			merged = append(merged, nixconfig.Merged{Key: p.Key, Tokens: strings.Fields(p.Value)})
		}
		a.Merged = merged
		return action.NewStateful(a, action.StateUncompleted), nil
	}

	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, installerrors.NewPath(installerrors.KindRead, path, err)
	}
	existing, err := nixconfig.Parse(data, fileResolver(fs, filepath.Dir(path)), Header)
	if err != nil {
		return nil, installerrors.NewPath(installerrors.KindRead, path, err)
	}

	merged, err := nixconfig.ClassifyOrError(existing, pending, MergeableConfNames, path)
	if err != nil {
		return nil, err
	}
	if len(merged) == 0 {
		return action.NewStateful(a, action.StateSkipped), nil
	}
	a.Merged = merged
	return action.NewStateful(a, action.StateUncompleted), nil
}

func fileResolver(fs ports.FileSystem, baseDir string) nixconfig.IncludeResolver {
	return func(path string) ([]byte, error) {
		return fs.ReadFile(filepath.Join(baseDir, path))
	}
}

func (a *CreateOrMergeNixConfig) Hydrate(d action.Dependencies) { a.fs = d.FS }

func (a *CreateOrMergeNixConfig) TracingSynopsis() string {
	return fmt.Sprintf("merge nix configuration into %s", a.Path)
}

func (a *CreateOrMergeNixConfig) ExecuteDescription() []action.Description {
	return []action.Description{action.NewDescription(a.TracingSynopsis(), []string{
		"Unions pending settings with the user's existing configuration, preserving comments.",
	})}
}

func (a *CreateOrMergeNixConfig) RevertDescription() []action.Description {
	return []action.Description{action.NewDescription(fmt.Sprintf("leave %s as merged", a.Path), []string{
		"The merge is not reverted: removing settings a user may have edited since is unsafe.",
	})}
}

// Execute re-reads the current file (it may have changed since planning)
// but replays the plan-time merge decision rather than reclassifying, so a
// setting that would now conflict still gets the plan's merge result
// (spec.md §4.5.4: "the plan's view wins").
func (a *CreateOrMergeNixConfig) Execute(_ context.Context) error {
	var existing *nixconfig.Config
	if a.fs.Exists(a.Path) {
		data, err := a.fs.ReadFile(a.Path)
		if err != nil {
			return installerrors.NewPath(installerrors.KindRead, a.Path, err)
		}
		existing, err = nixconfig.Parse(data, fileResolver(a.fs, filepath.Dir(a.Path)), Header)
		if err != nil {
			return installerrors.NewPath(installerrors.KindRead, a.Path, err)
		}
	} else {
		existing = &nixconfig.Config{}
	}

	out := nixconfig.Rewrite(existing, a.Merged, Header)

	parent := filepath.Dir(a.Path)
	tmp, err := a.fs.TempFile(parent, filepath.Base(a.Path))
	if err != nil {
		return installerrors.NewPath(installerrors.KindOpen, parent, err)
	}
	if err := a.fs.WriteFile(tmp, out, 0o600); err != nil {
		_ = a.fs.Remove(tmp)
		return installerrors.NewPath(installerrors.KindWrite, tmp, err)
	}
	mode := os.FileMode(a.Mode)
	if mode == 0 {
		mode = 0o644
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

// Revert is deliberately a no-op: the merge is additive and reversing it
// would require knowing which tokens the user added independently since.
func (a *CreateOrMergeNixConfig) Revert(_ context.Context) error {
	return nil
}

func (a *CreateOrMergeNixConfig) Tag() action.Tag { return action.TagCreateOrMergeNixConfig }

var _ action.Action = (*CreateOrMergeNixConfig)(nil)
var _ action.Hydratable = (*CreateOrMergeNixConfig)(nil)
