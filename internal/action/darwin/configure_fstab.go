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
	action.Register(action.TagConfigureFstab, func() action.Action { return &ConfigureFstab{} })
}

const fstabPath = "/etc/fstab"

type existingFstabEntry string

const (
	fstabEntryNone          existingFstabEntry = "none"
	fstabEntryNixInstaller  existingFstabEntry = "nix_installer"
	fstabEntryForeign       existingFstabEntry = "foreign"
)

// ConfigureFstab adds or rewrites the /etc/fstab line that mounts the APFS
// volume at /nix by UUID (spec.md §4.6.1 step 6). Plan time classifies any
// prior entry into one of three cases; Execute acts on that classification
// rather than re-deriving it, so a line that disappears between plan and
// execute is reported rather than silently papered over.
type ConfigureFstab struct {
	VolumeLabel   string             `json:"volume_label"`
	ExistingEntry existingFstabEntry `json:"existing_entry"`

	fs  ports.FileSystem
	cmd ports.CommandRunner
}

func PlanConfigureFstab(ctx context.Context, fs ports.FileSystem, cmd ports.CommandRunner, volumeLabel string) (*action.Stateful, error) {
	a := &ConfigureFstab{VolumeLabel: volumeLabel, fs: fs, cmd: cmd}

	if !fs.Exists(fstabPath) {
		a.ExistingEntry = fstabEntryNone
		return action.NewStateful(a, action.StateUncompleted), nil
	}

	buf, err := fs.ReadFile(fstabPath)
	if err != nil {
		return nil, installerrors.NewPath(installerrors.KindRead, fstabPath, err)
	}
	content := string(buf)
	prelude := fstabPreludeComment(volumeLabel)

	if strings.Contains(content, prelude) {
		a.ExistingEntry = fstabEntryNixInstaller
		return action.NewStateful(a, action.StateUncompleted), nil
	}

	for _, line := range strings.Split(content, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[1] == "/nix" {
			a.ExistingEntry = fstabEntryForeign
			return action.NewStateful(a, action.StateUncompleted), nil
		}
	}

	a.ExistingEntry = fstabEntryNone
	return action.NewStateful(a, action.StateUncompleted), nil
}

func (a *ConfigureFstab) Hydrate(d action.Dependencies) {
	a.fs = d.FS
	a.cmd = d.Cmd
}

func (a *ConfigureFstab) TracingSynopsis() string {
	switch a.ExistingEntry {
	case fstabEntryNixInstaller, fstabEntryForeign:
		return fmt.Sprintf("update existing `/etc/fstab` entry for the APFS volume `%s`", a.VolumeLabel)
	default:
		return fmt.Sprintf("add a UUID based `/etc/fstab` entry for the APFS volume `%s`", a.VolumeLabel)
	}
}

func (a *ConfigureFstab) ExecuteDescription() []action.Description {
	return []action.Description{action.NewDescription(a.TracingSynopsis(), nil)}
}

func (a *ConfigureFstab) RevertDescription() []action.Description {
	return []action.Description{action.NewDescription(fmt.Sprintf("remove the `/etc/fstab` entry for the APFS volume `%s`", a.VolumeLabel), nil)}
}

func (a *ConfigureFstab) Execute(ctx context.Context) error {
	uuid, err := a.volumeUUID(ctx)
	if err != nil {
		return err
	}
	if uuid == "" {
		return installerrors.NewPath(installerrors.KindCustom, a.VolumeLabel, fmt.Errorf("cannot determine volume UUID for fstab entry"))
	}

	var content string
	if a.fs.Exists(fstabPath) {
		buf, err := a.fs.ReadFile(fstabPath)
		if err != nil {
			return installerrors.NewPath(installerrors.KindRead, fstabPath, err)
		}
		content = string(buf)
	}

	switch a.ExistingEntry {
	case fstabEntryNixInstaller:
		updated, err := replaceNixInstallerLine(content, a.VolumeLabel, uuid)
		if err != nil {
			return err
		}
		content = updated
	case fstabEntryForeign:
		updated, err := replaceForeignLine(content, a.VolumeLabel, uuid)
		if err != nil {
			return err
		}
		content = updated
	default:
		if content != "" && !strings.HasSuffix(content, "\n") {
			content += "\n"
		}
		content += fstabLines(uuid, a.VolumeLabel) + "\n"
	}

	if err := a.fs.WriteFile(fstabPath, []byte(content), 0o644); err != nil {
		return installerrors.NewPath(installerrors.KindWrite, fstabPath, err)
	}
	return nil
}

func (a *ConfigureFstab) Revert(ctx context.Context) error {
	if !a.fs.Exists(fstabPath) {
		return nil
	}
	uuid, err := a.volumeUUID(ctx)
	if err != nil {
		// The volume may already be gone by the time we revert; without a
		// UUID we cannot reliably find our line, so leave it in place.
		return nil
	}

	buf, err := a.fs.ReadFile(fstabPath)
	if err != nil {
		return installerrors.NewPath(installerrors.KindRead, fstabPath, err)
	}
	content := string(buf)
	entry := fstabLines(uuid, a.VolumeLabel)
	if idx := strings.LastIndex(content, entry); idx >= 0 {
		content = content[:idx] + content[idx+len(entry):]
	}
	if err := a.fs.WriteFile(fstabPath, []byte(content), 0o644); err != nil {
		return installerrors.NewPath(installerrors.KindWrite, fstabPath, err)
	}
	return nil
}

func (a *ConfigureFstab) Tag() action.Tag { return action.TagConfigureFstab }

func (a *ConfigureFstab) volumeUUID(ctx context.Context) (string, error) {
	return uuidForLabel(ctx, a.cmd, a.VolumeLabel)
}

// uuidForLabel runs `diskutil info <label>` and extracts the "Volume UUID:"
// field. Used both for the fstab entry and for the mount launch-agent's
// generated plist, which must operate identically at plan and execute time.
func uuidForLabel(ctx context.Context, cmd ports.CommandRunner, label string) (string, error) {
	res, err := cmd.Run(ctx, "/usr/sbin/diskutil", "info", label)
	if err != nil {
		return "", installerrors.New(installerrors.KindCommand, err)
	}
	if !res.Success() {
		return "", nil
	}
	for _, line := range strings.Split(res.Stdout, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "Volume UUID:") {
			fields := strings.Fields(line)
			return fields[len(fields)-1], nil
		}
	}
	return "", nil
}

func replaceNixInstallerLine(content, volumeLabel, uuid string) (string, error) {
	lines := strings.Split(content, "\n")
	prelude := fstabPreludeComment(volumeLabel)
	sawPrelude, updated := false, false
	for i, line := range lines {
		if line == prelude {
			sawPrelude = true
			continue
		}
		if sawPrelude {
			fields := strings.Fields(line)
			if len(fields) >= 2 && fields[1] == "/nix" {
				lines[i] = fstabEntry(uuid)
				updated = true
				break
			}
		}
	}
	if !sawPrelude || !updated {
		return "", installerrors.NewPath(installerrors.KindCustom, fstabPath, fmt.Errorf("previously detected nix-installer fstab entry disappeared"))
	}
	return strings.Join(lines, "\n"), nil
}

func replaceForeignLine(content, volumeLabel, uuid string) (string, error) {
	lines := strings.Split(content, "\n")
	updated := false
	for i, line := range lines {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[1] == "/nix" {
			lines[i] = fstabLines(uuid, volumeLabel)
			updated = true
			break
		}
	}
	if !updated {
		return "", installerrors.NewPath(installerrors.KindCustom, fstabPath, fmt.Errorf("previously detected foreign fstab entry disappeared"))
	}
	return strings.Join(lines, "\n"), nil
}

func fstabLines(uuid, volumeLabel string) string {
	return fstabPreludeComment(volumeLabel) + "\n" + fstabEntry(uuid)
}

func fstabPreludeComment(volumeLabel string) string {
	return fmt.Sprintf("# nix-installer created volume labelled `%s`", volumeLabel)
}

func fstabEntry(uuid string) string {
	return fmt.Sprintf("UUID=%s /nix apfs rw,noauto,nobrowse,suid,owners", uuid)
}

var _ action.Action = (*ConfigureFstab)(nil)
var _ action.Hydratable = (*ConfigureFstab)(nil)
