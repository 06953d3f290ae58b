// Package linux implements the systemd-specific leaf and composite actions
// used to wire the Nix daemon into init on Linux (spec.md §6's "Systemd
// unit" external interface): installing the unit files, reloading systemd's
// view of them, and the composite that sequences both.
package linux

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/DeterminateSystems/nix-installer-go/internal/action"
	"github.com/DeterminateSystems/nix-installer-go/internal/installerrors"
	"github.com/DeterminateSystems/nix-installer-go/internal/ports"
)

func init() {
	action.Register(action.TagInstallSystemdUnit, func() action.Action { return &InstallSystemdUnit{} })
}

const systemdUnitDir = "/etc/systemd/system"

type unitInstallMode string

const (
	unitInstallSymlink unitInstallMode = "symlink"
	unitInstallLiteral unitInstallMode = "literal"
)

// InstallSystemdUnit puts one unit file where systemd will find it, either
// by linking it in from a path under the Nix store or by writing literal
// content directly (spec.md §6: "either by symlink from a Nix-store path or
// by writing literal content"). The two modes are one action type, not two,
// so the receipt's action_name stays singular while Mode records which path
// was taken.
type InstallSystemdUnit struct {
	Name      string          `json:"name"`
	Mode      unitInstallMode `json:"mode"`
	StorePath string          `json:"store_path,omitempty"`
	Content   string          `json:"content,omitempty"`

	fs  ports.FileSystem
	cmd ports.CommandRunner
}

// PlanInstallSystemdUnitFromStore links name (e.g. "nix-daemon.service") into
// /etc/systemd/system from storePath via `systemctl link`, mirroring the
// source's handling of nix-daemon.service and nix-daemon.socket.
func PlanInstallSystemdUnitFromStore(fs ports.FileSystem, cmd ports.CommandRunner, name, storePath string) (*action.Stateful, error) {
	a := &InstallSystemdUnit{Name: name, Mode: unitInstallSymlink, StorePath: storePath, fs: fs, cmd: cmd}

	path := filepath.Join(systemdUnitDir, name)
	if isLink, target := fs.IsSymlink(path); isLink {
		if target == storePath {
			return action.NewStateful(a, action.StateSkipped), nil
		}
		return nil, installerrors.NewPath(installerrors.KindSymlinkExists, path, nil)
	}
	if fs.Exists(path) {
		return nil, installerrors.NewPath(installerrors.KindPathExistsWrongType, path, nil)
	}
	return action.NewStateful(a, action.StateUncompleted), nil
}

// PlanInstallSystemdUnitLiteral writes content to /etc/systemd/system/name
// directly, for callers that don't have a Nix-store path to link from.
func PlanInstallSystemdUnitLiteral(fs ports.FileSystem, cmd ports.CommandRunner, name, content string) (*action.Stateful, error) {
	a := &InstallSystemdUnit{Name: name, Mode: unitInstallLiteral, Content: content, fs: fs, cmd: cmd}

	path := filepath.Join(systemdUnitDir, name)
	if fs.Exists(path) {
		if fs.IsDir(path) {
			return nil, installerrors.NewPath(installerrors.KindPathWasNotFile, path, nil)
		}
		existing, err := fs.ReadFile(path)
		if err != nil {
			return nil, installerrors.NewPath(installerrors.KindRead, path, err)
		}
		if string(existing) == content {
			return action.NewStateful(a, action.StateSkipped), nil
		}
		return nil, installerrors.NewPath(installerrors.KindDifferentContent, path, nil)
	}
	return action.NewStateful(a, action.StateUncompleted), nil
}

func (a *InstallSystemdUnit) Hydrate(d action.Dependencies) {
	a.fs = d.FS
	a.cmd = d.Cmd
}

func (a *InstallSystemdUnit) TracingSynopsis() string {
	return "install systemd unit `" + a.Name + "`"
}

func (a *InstallSystemdUnit) ExecuteDescription() []action.Description {
	return []action.Description{action.NewDescription(a.TracingSynopsis(), nil)}
}

func (a *InstallSystemdUnit) RevertDescription() []action.Description {
	return []action.Description{action.NewDescription("remove systemd unit `"+a.Name+"`", nil)}
}

func (a *InstallSystemdUnit) Execute(ctx context.Context) error {
	path := filepath.Join(systemdUnitDir, a.Name)

	switch a.Mode {
	case unitInstallSymlink:
		res, err := a.cmd.Run(ctx, "systemctl", "link", a.StorePath)
		if err != nil {
			return installerrors.New(installerrors.KindCommand, err)
		}
		if !res.Success() {
			return installerrors.New(installerrors.KindCommandOutput, fmt.Errorf("systemctl link %s: %s", a.StorePath, res.Stderr))
		}
	case unitInstallLiteral:
		if err := a.fs.CreateExclusive(path, []byte(a.Content), 0o644); err != nil {
			return installerrors.NewPath(installerrors.KindOpen, path, err)
		}
	}
	return nil
}

func (a *InstallSystemdUnit) Revert(_ context.Context) error {
	path := filepath.Join(systemdUnitDir, a.Name)
	if !a.fs.Exists(path) {
		return nil
	}
	if err := a.fs.Remove(path); err != nil {
		return installerrors.NewPath(installerrors.KindRemove, path, err)
	}
	return nil
}

func (a *InstallSystemdUnit) Tag() action.Tag { return action.TagInstallSystemdUnit }

var _ action.Action = (*InstallSystemdUnit)(nil)
var _ action.Hydratable = (*InstallSystemdUnit)(nil)
