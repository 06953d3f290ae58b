// Package composite implements actions whose execute/revert call other
// actions in order (spec.md §4.3): ProvisionNix, ConfigureNix, and (in
// internal/action/darwin) the APFS volume provisioners.
package composite

import (
	"context"

	"github.com/DeterminateSystems/nix-installer-go/internal/action"
	"github.com/DeterminateSystems/nix-installer-go/internal/installerrors"
)

// Base is embedded by every composite action. It stores the child actions
// and supplies the Children() method HydrateAll uses to recurse, plus the
// shared execute/revert traversal every composite uses identically.
type Base struct {
	ChildActions []*action.Stateful `json:"children"`
}

// Children exposes the child actions so action.HydrateAll can recurse into
// them without composite needing to import every leaf/darwin/linux package.
func (b *Base) Children() []*action.Stateful {
	return b.ChildActions
}

// ExecuteChildren runs each child's TryExecute in order, short-circuiting
// on the first error (spec.md §4.3).
func (b *Base) ExecuteChildren(ctx context.Context) error {
	for _, child := range b.ChildActions {
		if err := child.TryExecute(ctx); err != nil {
			return err
		}
	}
	return nil
}

// RevertChildren runs every child's TryRevert in reverse order regardless
// of earlier failures, collecting every error into a MultipleChildren
// (spec.md §4.3: "preserves the property that revert makes best-effort
// progress on all children").
func (b *Base) RevertChildren(ctx context.Context) error {
	errs := make([]error, 0, len(b.ChildActions))
	for i := len(b.ChildActions) - 1; i >= 0; i-- {
		if err := b.ChildActions[i].TryRevert(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return installerrors.AsMultipleChildren(errs)
}
