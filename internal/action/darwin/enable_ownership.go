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
	action.Register(action.TagEnableOwnership, func() action.Action { return &EnableOwnership{} })
}

// EnableOwnership enables the "Owners Enabled" flag on a mounted volume
// if it isn't already set (spec.md §4.6.1 step 10). Revert is a no-op:
// there is no safe way to tell whether ownership was enabled before this
// installer ran, so it is left as-is.
type EnableOwnership struct {
	Path string `json:"path"`

	cmd ports.CommandRunner
}

func PlanEnableOwnership(cmd ports.CommandRunner, path string) *action.Stateful {
	return action.NewStateful(&EnableOwnership{Path: path, cmd: cmd}, action.StateUncompleted)
}

func (a *EnableOwnership) Hydrate(d action.Dependencies) { a.cmd = d.Cmd }

func (a *EnableOwnership) TracingSynopsis() string {
	return fmt.Sprintf("enable ownership on `%s`", a.Path)
}

func (a *EnableOwnership) ExecuteDescription() []action.Description {
	return []action.Description{action.NewDescription(a.TracingSynopsis(), nil)}
}

func (a *EnableOwnership) RevertDescription() []action.Description {
	return []action.Description{action.NewDescription("", nil)}
}

func (a *EnableOwnership) Execute(ctx context.Context) error {
	res, err := a.cmd.Run(ctx, "/usr/sbin/diskutil", "info", a.Path)
	if err != nil {
		return installerrors.New(installerrors.KindCommand, err)
	}
	if !res.Success() {
		return installerrors.New(installerrors.KindCommandOutput, fmt.Errorf("diskutil info: %s", res.Stderr))
	}
	if ownershipEnabled(res.Stdout) {
		return nil
	}

	res, err = a.cmd.Run(ctx, "/usr/sbin/diskutil", "enableOwnership", a.Path)
	if err != nil {
		return installerrors.New(installerrors.KindCommand, err)
	}
	if !res.Success() {
		return installerrors.New(installerrors.KindCommandOutput, fmt.Errorf("diskutil enableOwnership: %s", res.Stderr))
	}
	return nil
}

// Revert is a no-op: the volume's prior ownership state was never recorded.
func (a *EnableOwnership) Revert(_ context.Context) error { return nil }

func (a *EnableOwnership) Tag() action.Tag { return action.TagEnableOwnership }

func ownershipEnabled(diskutilInfoOutput string) bool {
	for _, line := range strings.Split(diskutilInfoOutput, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "Owners Enabled:") {
			return strings.Contains(trimmed, "Yes")
		}
	}
	return false
}

var _ action.Action = (*EnableOwnership)(nil)
var _ action.Hydratable = (*EnableOwnership)(nil)
