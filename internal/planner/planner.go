package planner

import (
	"context"

	"github.com/DeterminateSystems/nix-installer-go/internal/action"
	"github.com/DeterminateSystems/nix-installer-go/internal/plan"
	"github.com/DeterminateSystems/nix-installer-go/internal/ports"
)

// Planner assembles a plan.Plan from Settings and the ports an action
// needs to probe current system state (spec.md §2). Name is the
// discriminator stamped into the resulting plan's PlannerDescriptor and,
// on disk, the receipt's "planner" field (spec.md §6).
type Planner interface {
	Name() string
	Plan(ctx context.Context, fs ports.FileSystem, cmd ports.CommandRunner, fetcher action.Fetcher, settings Settings) (*plan.Plan, error)
}

// descriptor builds the PlannerDescriptor every illustrative planner below
// stamps onto its assembled plan.
func descriptor(name string, settings Settings) plan.PlannerDescriptor {
	return plan.PlannerDescriptor{Planner: name, Settings: settings.AsMap()}
}
