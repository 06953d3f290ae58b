package planner

import (
	"context"

	"github.com/DeterminateSystems/nix-installer-go/internal/action"
	"github.com/DeterminateSystems/nix-installer-go/internal/installerrors"
	"github.com/DeterminateSystems/nix-installer-go/internal/plan"
	"github.com/DeterminateSystems/nix-installer-go/internal/ports"
)

// SteamOSPlanner reuses LinuxPlanner's systemd action list, since SteamOS
// runs a systemd init the same as any other Linux target, gated on a
// precondition probe for the steamos-readonly binary that distinguishes a
// real SteamOS image from a bare Linux one. Read-only-filesystem handling
// itself (remounting, systemd-sysext) is out of reach here — see
// DESIGN.md for why it was not built alongside this planner.
type SteamOSPlanner struct {
	LinuxPlanner
}

func (SteamOSPlanner) Name() string { return "steamos" }

func (p SteamOSPlanner) Plan(ctx context.Context, fs ports.FileSystem, cmd ports.CommandRunner, fetcher action.Fetcher, settings Settings) (*plan.Plan, error) {
	res, err := cmd.Run(ctx, "which", "steamos-readonly")
	if err != nil || !res.Success() {
		return nil, installerrors.New(installerrors.KindMissingSteamosBinary, err)
	}

	actions, err := p.LinuxPlanner.actions(ctx, fs, cmd, fetcher, settings)
	if err != nil {
		return nil, err
	}
	return plan.New(descriptor(p.Name(), settings), actions), nil
}

var _ Planner = SteamOSPlanner{}
