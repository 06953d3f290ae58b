package darwin

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/DeterminateSystems/nix-installer-go/internal/action"
	"github.com/DeterminateSystems/nix-installer-go/internal/installerrors"
	"github.com/DeterminateSystems/nix-installer-go/internal/ports"
)

func init() {
	action.Register(action.TagAppendSyntheticConf, func() action.Action { return &AppendSyntheticConf{} })
}

const syntheticConfPath = "/etc/synthetic.conf"

// AppendSyntheticConf registers a mount point in /etc/synthetic.conf so the
// kernel creates it as a synthetic firmlink target at boot (spec.md §4.6.1
// step 1). It follows the same atomic temp-file-then-rename discipline as
// leaf.CreateOrInsertIntoFile, kept as its own small action rather than a
// thin wrapper so the receipt records the mount point directly.
type AppendSyntheticConf struct {
	MountPoint string `json:"mount_point"`

	fs ports.FileSystem
}

func PlanAppendSyntheticConf(fs ports.FileSystem, mountPoint string) (*action.Stateful, error) {
	a := &AppendSyntheticConf{MountPoint: mountPoint, fs: fs}

	if fs.Exists(syntheticConfPath) {
		content, err := fs.ReadFile(syntheticConfPath)
		if err != nil {
			return nil, installerrors.NewPath(installerrors.KindRead, syntheticConfPath, err)
		}
		for _, line := range strings.Split(string(content), "\n") {
			if strings.TrimSpace(line) == mountPoint {
				return action.NewStateful(a, action.StateSkipped), nil
			}
		}
	}
	return action.NewStateful(a, action.StateUncompleted), nil
}

func (a *AppendSyntheticConf) Hydrate(d action.Dependencies) { a.fs = d.FS }

func (a *AppendSyntheticConf) TracingSynopsis() string {
	return "append `" + a.MountPoint + "` to `/etc/synthetic.conf`"
}

func (a *AppendSyntheticConf) ExecuteDescription() []action.Description {
	return []action.Description{action.NewDescription(a.TracingSynopsis(), nil)}
}

func (a *AppendSyntheticConf) RevertDescription() []action.Description {
	return []action.Description{action.NewDescription("remove `"+a.MountPoint+"` from `/etc/synthetic.conf`", nil)}
}

func (a *AppendSyntheticConf) Execute(_ context.Context) error {
	var content string
	if a.fs.Exists(syntheticConfPath) {
		buf, err := a.fs.ReadFile(syntheticConfPath)
		if err != nil {
			return installerrors.NewPath(installerrors.KindRead, syntheticConfPath, err)
		}
		content = string(buf)
	}
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += a.MountPoint + "\n"

	parent := filepath.Dir(syntheticConfPath)
	tmp, err := a.fs.TempFile(parent, filepath.Base(syntheticConfPath))
	if err != nil {
		return installerrors.NewPath(installerrors.KindOpen, parent, err)
	}
	if err := a.fs.WriteFile(tmp, []byte(content), 0o644); err != nil {
		_ = a.fs.Remove(tmp)
		return installerrors.NewPath(installerrors.KindWrite, tmp, err)
	}
	if err := a.fs.Rename(tmp, syntheticConfPath); err != nil {
		_ = a.fs.Remove(tmp)
		return installerrors.NewPath(installerrors.KindRename, syntheticConfPath, err)
	}
	return nil
}

func (a *AppendSyntheticConf) Revert(_ context.Context) error {
	if !a.fs.Exists(syntheticConfPath) {
		return nil
	}
	buf, err := a.fs.ReadFile(syntheticConfPath)
	if err != nil {
		return installerrors.NewPath(installerrors.KindRead, syntheticConfPath, err)
	}

	lines := strings.Split(string(buf), "\n")
	kept := lines[:0]
	removed := false
	for _, line := range lines {
		if !removed && strings.TrimSpace(line) == a.MountPoint {
			removed = true
			continue
		}
		kept = append(kept, line)
	}
	if !removed {
		return nil
	}

	parent := filepath.Dir(syntheticConfPath)
	tmp, err := a.fs.TempFile(parent, filepath.Base(syntheticConfPath))
	if err != nil {
		return installerrors.NewPath(installerrors.KindOpen, parent, err)
	}
	if err := a.fs.WriteFile(tmp, []byte(strings.Join(kept, "\n")), 0o644); err != nil {
		_ = a.fs.Remove(tmp)
		return installerrors.NewPath(installerrors.KindWrite, tmp, err)
	}
	if err := a.fs.Rename(tmp, syntheticConfPath); err != nil {
		_ = a.fs.Remove(tmp)
		return installerrors.NewPath(installerrors.KindRename, syntheticConfPath, err)
	}
	return nil
}

func (a *AppendSyntheticConf) Tag() action.Tag { return action.TagAppendSyntheticConf }

var _ action.Action = (*AppendSyntheticConf)(nil)
var _ action.Hydratable = (*AppendSyntheticConf)(nil)
