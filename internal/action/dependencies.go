package action

import (
	"context"

	"github.com/DeterminateSystems/nix-installer-go/internal/ports"
)

// Fetcher is the external collaborator that turns a URL or an in-memory
// blob into an unpacked tree at a destination path. Downloading the Nix
// tarball is explicitly out of scope (spec.md §1): the engine only
// specifies this interface so ProvisionNix can call it, never its body.
type Fetcher interface {
	FetchAndUnpack(ctx context.Context, source string, destination string) error
}

// Dependencies bundles the port implementations a planned action needs to
// execute or revert. Actions carry these as unexported fields so they are
// never part of the receipt's JSON — a receipt loaded back by a later
// invocation has none of them until Hydrate runs.
type Dependencies struct {
	FS      ports.FileSystem
	Cmd     ports.CommandRunner
	Logger  ports.Logger
	Fetcher Fetcher
}

// Hydratable is implemented by every concrete action type so the plan can
// wire live dependencies into an action tree that was just reconstructed
// from a receipt (spec.md §6's round-trip requirement implies actions must
// be usable again after deserialization, even though the wire format omits
// their dependencies entirely).
type Hydratable interface {
	Hydrate(d Dependencies)
}

// HydrateAll wires d into every action in actions that implements
// Hydratable, recursing into composite children.
func HydrateAll(actions []*Stateful, d Dependencies) {
	for _, s := range actions {
		if h, ok := s.Action.(Hydratable); ok {
			h.Hydrate(d)
		}
		if c, ok := s.Action.(interface{ Children() []*Stateful }); ok {
			HydrateAll(c.Children(), d)
		}
	}
}
