package darwin

import (
	"context"
	"fmt"
	"strings"

	"github.com/DeterminateSystems/nix-installer-go/internal/action"
	"github.com/DeterminateSystems/nix-installer-go/internal/installerrors"
	"github.com/DeterminateSystems/nix-installer-go/internal/ports"
)

func init() {
	action.Register(action.TagInstallMountAgent, func() action.Action { return &InstallMountAgent{} })
}

const mountAgentServiceLabel = "org.nixos.darwin-store"

// InstallMountAgent writes the launchd plist that mounts (and, if
// encrypted, unlocks) the APFS volume at /nix on every boot (spec.md
// §4.6.1 step 8). Plan time regenerates the expected plist body and
// compares it against any file already on disk so a foreign file at the
// same path is treated as a conflict rather than silently overwritten.
type InstallMountAgent struct {
	Path        string `json:"path"`
	VolumeLabel string `json:"volume_label"`
	Encrypt     bool   `json:"encrypt"`

	fs  ports.FileSystem
	cmd ports.CommandRunner
}

func PlanInstallMountAgent(ctx context.Context, fs ports.FileSystem, cmd ports.CommandRunner, path, volumeLabel string, encrypt bool) (*action.Stateful, error) {
	a := &InstallMountAgent{Path: path, VolumeLabel: volumeLabel, Encrypt: encrypt, fs: fs, cmd: cmd}

	if !fs.Exists(path) {
		return action.NewStateful(a, action.StateUncompleted), nil
	}

	expected, err := a.render(ctx)
	if err != nil {
		return nil, err
	}
	existing, err := fs.ReadFile(path)
	if err != nil {
		return nil, installerrors.NewPath(installerrors.KindRead, path, err)
	}
	if string(existing) != expected {
		return nil, installerrors.NewPath(installerrors.KindDifferentContent, path, fmt.Errorf("existing mount agent plist does not match the expected content"))
	}
	return action.NewStateful(a, action.StateCompleted), nil
}

func (a *InstallMountAgent) Hydrate(d action.Dependencies) {
	a.fs = d.FS
	a.cmd = d.Cmd
}

func (a *InstallMountAgent) TracingSynopsis() string {
	return fmt.Sprintf("create a `launchctl` plist to mount the APFS volume `%s`", a.Path)
}

func (a *InstallMountAgent) ExecuteDescription() []action.Description {
	return []action.Description{action.NewDescription(a.TracingSynopsis(), nil)}
}

func (a *InstallMountAgent) RevertDescription() []action.Description {
	return []action.Description{action.NewDescription(fmt.Sprintf("delete file `%s`", a.Path), nil)}
}

func (a *InstallMountAgent) Execute(ctx context.Context) error {
	body, err := a.render(ctx)
	if err != nil {
		return err
	}
	if err := a.fs.CreateExclusive(a.Path, []byte(body), 0o644); err != nil {
		return installerrors.NewPath(installerrors.KindWrite, a.Path, err)
	}
	return nil
}

func (a *InstallMountAgent) Revert(_ context.Context) error {
	if err := a.fs.Remove(a.Path); err != nil {
		return installerrors.NewPath(installerrors.KindRemove, a.Path, err)
	}
	return nil
}

func (a *InstallMountAgent) Tag() action.Tag { return action.TagInstallMountAgent }

// render must produce identical output at plan and execute time, since
// plan uses it to detect drift against any file already at Path.
func (a *InstallMountAgent) render(ctx context.Context) (string, error) {
	var programArguments []string
	if a.Encrypt {
		quotedLabel := fmt.Sprintf("%q", a.VolumeLabel)
		shellCmd := fmt.Sprintf(
			"/usr/bin/security find-generic-password -s %s -w | /usr/sbin/diskutil apfs unlockVolume %s -mountpoint /nix -stdinpassphrase",
			quotedLabel, quotedLabel,
		)
		programArguments = []string{"/bin/sh", "-c", shellCmd}
	} else {
		uuid, err := uuidForLabel(ctx, a.cmd, a.VolumeLabel)
		if err != nil {
			return "", err
		}
		if uuid == "" {
			return "", installerrors.NewPath(installerrors.KindCustom, a.VolumeLabel, fmt.Errorf("cannot determine volume UUID for mount agent"))
		}
		// The official Nix install scripts uppercase the UUID; matched here
		// for compatibility with volumes mounted by either installer.
		programArguments = []string{
			"/usr/sbin/diskutil", "mount", "-mountPoint", "/nix", strings.ToUpper(uuid),
		}
	}

	return renderMountPlist(mountAgentServiceLabel, programArguments), nil
}

func renderMountPlist(label string, programArguments []string) string {
	var args strings.Builder
	for _, arg := range programArguments {
		args.WriteString(fmt.Sprintf("    <string>%s</string>\n", arg))
	}

	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple Computer//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
  <key>RunAtLoad</key>
  <true/>
  <key>Label</key>
  <string>%s</string>
  <key>ProgramArguments</key>
  <array>
%s  </array>
</dict>
</plist>
`, label, args.String())
}

var _ action.Action = (*InstallMountAgent)(nil)
var _ action.Hydratable = (*InstallMountAgent)(nil)
