package leaf

import (
	"context"
	"fmt"

	"github.com/DeterminateSystems/nix-installer-go/internal/action"
	"github.com/DeterminateSystems/nix-installer-go/internal/installerrors"
)

func init() {
	action.Register(action.TagFetchAndUnpack, func() action.Action { return &FetchAndUnpack{} })
}

// FetchAndUnpack delegates to the action.Fetcher collaborator (spec.md §1:
// out of scope, "specified only at the interface"). The engine owns
// nothing about how source is resolved or how the tree is unpacked.
type FetchAndUnpack struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`

	fetcher action.Fetcher
}

func PlanFetchAndUnpack(fetcher action.Fetcher, source, destination string) *action.Stateful {
	a := &FetchAndUnpack{Source: source, Destination: destination, fetcher: fetcher}
	return action.NewStateful(a, action.StateUncompleted)
}

func (a *FetchAndUnpack) Hydrate(d action.Dependencies) { a.fetcher = d.Fetcher }

func (a *FetchAndUnpack) TracingSynopsis() string {
	return fmt.Sprintf("fetch and unpack %s into %s", a.Source, a.Destination)
}

func (a *FetchAndUnpack) ExecuteDescription() []action.Description {
	return []action.Description{action.NewDescription(a.TracingSynopsis(), nil)}
}

func (a *FetchAndUnpack) RevertDescription() []action.Description {
	return []action.Description{action.NewDescription(fmt.Sprintf("remove unpacked tree at %s", a.Destination), nil)}
}

func (a *FetchAndUnpack) Execute(ctx context.Context) error {
	if a.fetcher == nil {
		return installerrors.New(installerrors.KindFetch, fmt.Errorf("no fetcher configured"))
	}
	if err := a.fetcher.FetchAndUnpack(ctx, a.Source, a.Destination); err != nil {
		return installerrors.New(installerrors.KindFetch, err)
	}
	return nil
}

// Revert is a no-op: the unpacked tree is owned and removed by whatever
// composite moved its contents into place (e.g. ProvisionNix's store move).
func (a *FetchAndUnpack) Revert(_ context.Context) error { return nil }

func (a *FetchAndUnpack) Tag() action.Tag { return action.TagFetchAndUnpack }

var _ action.Action = (*FetchAndUnpack)(nil)
var _ action.Hydratable = (*FetchAndUnpack)(nil)
