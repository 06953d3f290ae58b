package darwin

import (
	"context"
	"fmt"

	"github.com/DeterminateSystems/nix-installer-go/internal/action"
	"github.com/DeterminateSystems/nix-installer-go/internal/action/composite"
	"github.com/DeterminateSystems/nix-installer-go/internal/installerrors"
	"github.com/DeterminateSystems/nix-installer-go/internal/ports"
)

func init() {
	action.Register(action.TagCreateAPFSVolume, func() action.Action { return &CreateNixVolume{} })
}

// CreateNixVolumePlan parameterizes CreateNixVolume's assembly: the target
// disk and volume label, whether to encrypt, and the paths the fstab and
// mount-agent sub-actions touch.
type CreateNixVolumePlan struct {
	Disk           string
	VolumeName     string
	CaseSensitive  bool
	Encrypt        bool
	MountAgentPath string
	LaunchdDomain  string
	LaunchdService string
}

// CreateNixVolume sequences the ten sub-actions of spec.md §4.6.1 into one
// composite. Execute uses composite.Base's plain sequential traversal
// unmodified, but Revert overrides it: spec.md §4.6.2 requires "unmount
// (best-effort) – remove synthetic.conf fragment – refresh synthetic
// entries", which is not the plain reverse of assembly order (that would
// refresh synthetic objects — reading synthetic.conf — before the `nix`
// fragment is removed from it). The two children at the front of
// ChildActions (append-synthetic-entry, refresh-synthetic-objects) are
// always planned in that fixed relative position by PlanCreateNixVolume, so
// Revert special-cases just those two instead of using RevertChildren.
type CreateNixVolume struct {
	composite.Base
}

func PlanCreateNixVolume(ctx context.Context, fs ports.FileSystem, cmd ports.CommandRunner, p CreateNixVolumePlan) (*action.Stateful, error) {
	domain := p.LaunchdDomain
	if domain == "" {
		domain = "system"
	}
	service := p.LaunchdService
	if service == "" {
		service = mountAgentServiceLabel
	}

	synthetic, err := PlanAppendSyntheticConf(fs, "nix")
	if err != nil {
		return nil, fmt.Errorf("planning synthetic.conf entry: %w", err)
	}

	createVolume, err := PlanCreateVolume(ctx, cmd, p.Disk, p.VolumeName, p.CaseSensitive)
	if err != nil {
		return nil, fmt.Errorf("planning apfs volume creation: %w", err)
	}

	fstab, err := PlanConfigureFstab(ctx, fs, cmd, p.VolumeName)
	if err != nil {
		return nil, fmt.Errorf("planning fstab entry: %w", err)
	}

	children := []*action.Stateful{
		synthetic,
		PlanRefreshSyntheticObjects(cmd),
		PlanUnmountVolume(cmd, "/nix"),
		createVolume,
		PlanWaitForVolume(cmd, p.VolumeName),
		fstab,
	}

	if p.Encrypt {
		encrypt, err := PlanEncryptVolume(ctx, cmd, p.Disk, p.VolumeName)
		if err != nil {
			return nil, fmt.Errorf("planning volume encryption: %w", err)
		}
		children = append(children, encrypt)
	}

	mountAgent, err := PlanInstallMountAgent(ctx, fs, cmd, p.MountAgentPath, p.VolumeName, p.Encrypt)
	if err != nil {
		return nil, fmt.Errorf("planning mount launch-agent: %w", err)
	}

	bootstrapKickstart, err := PlanBootstrapKickstartMountAgent(ctx, cmd, domain, service, p.MountAgentPath)
	if err != nil {
		return nil, fmt.Errorf("planning mount launch-agent bootstrap: %w", err)
	}

	children = append(children,
		mountAgent,
		bootstrapKickstart,
		PlanEnableOwnership(cmd, "/nix"),
	)

	a := &CreateNixVolume{Base: composite.Base{ChildActions: children}}
	return action.NewStateful(a, action.StateUncompleted), nil
}

func (a *CreateNixVolume) Hydrate(d action.Dependencies) {
	action.HydrateAll(a.ChildActions, d)
}

func (a *CreateNixVolume) TracingSynopsis() string {
	return "provision the `/nix` APFS volume"
}

func (a *CreateNixVolume) ExecuteDescription() []action.Description {
	return []action.Description{action.NewDescription(a.TracingSynopsis(), nil)}
}

func (a *CreateNixVolume) RevertDescription() []action.Description {
	return []action.Description{action.NewDescription("tear down the `/nix` APFS volume", nil)}
}

func (a *CreateNixVolume) Execute(ctx context.Context) error {
	return a.ExecuteChildren(ctx)
}

// Revert tears down every child in reverse order, except the leading
// synthetic-entry/refresh-synthetic pair (spec.md §4.6.2: "remove
// synthetic.conf fragment" strictly before "refresh synthetic entries",
// the opposite of what a plain LIFO traversal of the assembly order in
// PlanCreateNixVolume would produce). Errors are collected rather than
// short-circuited, matching RevertChildren's best-effort-on-all-children
// contract.
func (a *CreateNixVolume) Revert(ctx context.Context) error {
	children := a.ChildActions
	var errs []error

	for i := len(children) - 1; i >= 2; i-- {
		if err := children[i].TryRevert(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	syntheticEntry, refreshSynthetic := children[0], children[1]
	if err := syntheticEntry.TryRevert(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := refreshSynthetic.TryRevert(ctx); err != nil {
		errs = append(errs, err)
	}

	return installerrors.AsMultipleChildren(errs)
}

func (a *CreateNixVolume) Tag() action.Tag { return action.TagCreateAPFSVolume }

var _ action.Action = (*CreateNixVolume)(nil)
var _ action.Hydratable = (*CreateNixVolume)(nil)
