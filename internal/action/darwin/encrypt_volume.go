package darwin

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"

	"github.com/DeterminateSystems/nix-installer-go/internal/action"
	"github.com/DeterminateSystems/nix-installer-go/internal/installerrors"
	"github.com/DeterminateSystems/nix-installer-go/internal/ports"
)

func init() {
	action.Register(action.TagEncryptVolume, func() action.Action { return &EncryptVolume{} })
}

const keychainService = "org.nixos.nix-installer"

// EncryptVolume sets a FileVault password on the APFS volume, optional per
// spec.md §4.6.1 step 7. Plan time looks for a keychain item whose account
// is the volume label; if one exists the action is Completed. Otherwise a
// fresh item name (the label plus a random UUID) is minted, and Execute
// uses the password stored under that name if present, or mints a
// password and stores it there.
type EncryptVolume struct {
	Disk         string `json:"disk"`
	VolumeLabel  string `json:"volume_label"`
	KeychainItem string `json:"keychain_item"`

	cmd ports.CommandRunner
}

func PlanEncryptVolume(ctx context.Context, cmd ports.CommandRunner, disk, volumeLabel string) (*action.Stateful, error) {
	a := &EncryptVolume{Disk: disk, VolumeLabel: volumeLabel, cmd: cmd}

	res, err := cmd.Run(ctx, "/usr/bin/security", "find-generic-password", "-s", keychainService, "-a", volumeLabel)
	if err != nil {
		return nil, installerrors.New(installerrors.KindCommand, err)
	}
	if res.Success() {
		a.KeychainItem = volumeLabel
		return action.NewStateful(a, action.StateCompleted), nil
	}

	// No prior keychain entry: mint a fresh item name now, at plan time,
	// so the receipt records exactly which account execute will create.
	a.KeychainItem = fmt.Sprintf("%s-%s", volumeLabel, uuid.New().String())
	return action.NewStateful(a, action.StateUncompleted), nil
}

func (a *EncryptVolume) Hydrate(d action.Dependencies) { a.cmd = d.Cmd }

func (a *EncryptVolume) TracingSynopsis() string {
	return fmt.Sprintf("encrypt volume `%s`", a.Disk)
}

func (a *EncryptVolume) ExecuteDescription() []action.Description {
	return []action.Description{action.NewDescription(a.TracingSynopsis(), nil)}
}

func (a *EncryptVolume) RevertDescription() []action.Description {
	return []action.Description{action.NewDescription(fmt.Sprintf("remove the encryption password for `%s` from the keychain", a.Disk), nil)}
}

func (a *EncryptVolume) Execute(ctx context.Context) error {
	password, err := a.existingPassword(ctx)
	if err != nil {
		return err
	}
	if password == "" {
		password, err = mintPassword()
		if err != nil {
			return installerrors.New(installerrors.KindCustom, err)
		}
		res, err := a.cmd.Run(ctx, "/usr/bin/security", "add-generic-password",
			"-a", a.KeychainItem, "-s", keychainService, "-w", password, "-T", "/usr/sbin/diskutil")
		if err != nil {
			return installerrors.New(installerrors.KindCommand, err)
		}
		if !res.Success() {
			return installerrors.New(installerrors.KindCommandOutput, fmt.Errorf("security add-generic-password: %s", res.Stderr))
		}
	}

	res, err := a.cmd.Run(ctx, "/usr/sbin/diskutil", "apfs", "encryptVolume", a.VolumeLabel, "-user", "disk", "-passphrase", password)
	if err != nil {
		return installerrors.New(installerrors.KindCommand, err)
	}
	if !res.Success() {
		return installerrors.New(installerrors.KindCommandOutput, fmt.Errorf("diskutil apfs encryptVolume: %s", res.Stderr))
	}
	return nil
}

func (a *EncryptVolume) Revert(ctx context.Context) error {
	res, err := a.cmd.Run(ctx, "/usr/bin/security", "delete-generic-password", "-a", a.KeychainItem, "-s", keychainService)
	if err != nil {
		return installerrors.New(installerrors.KindCommand, err)
	}
	if !res.Success() {
		return installerrors.New(installerrors.KindCommandOutput, fmt.Errorf("security delete-generic-password: %s", res.Stderr))
	}
	return nil
}

func (a *EncryptVolume) Tag() action.Tag { return action.TagEncryptVolume }

func (a *EncryptVolume) existingPassword(ctx context.Context) (string, error) {
	res, err := a.cmd.Run(ctx, "/usr/bin/security", "find-generic-password", "-s", keychainService, "-a", a.KeychainItem, "-w")
	if err != nil {
		return "", installerrors.New(installerrors.KindCommand, err)
	}
	if !res.Success() {
		return "", nil
	}
	return res.Stdout, nil
}

func mintPassword() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("minting volume password: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

var _ action.Action = (*EncryptVolume)(nil)
var _ action.Hydratable = (*EncryptVolume)(nil)
