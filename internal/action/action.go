// Package action defines the contract every privileged, reversible unit of
// work implements (spec.md §4.1), the Stateful wrapper that owns lifecycle
// transitions (§4.1.1), and the closed Tag→factory registry the plan uses
// to reconstruct actions from a receipt.
//
// Concrete leaf, composite, darwin, and linux actions each expose their own
// package-level Plan(...) constructor, since plan-time inputs differ per
// action type; the Action interface itself only covers what every action
// has in common once it has been planned.
package action

import "context"

// Action is the polymorphic contract every action type implements. A value
// is produced by a type's own Plan(...) constructor and is otherwise opaque
// to the plan engine, which only ever calls these methods plus Tag.
type Action interface {
	// TracingSynopsis is a one-line human description used verbatim in the
	// execute/revert log and in composite descriptions.
	TracingSynopsis() string

	// ExecuteDescription and RevertDescription back explain mode.
	ExecuteDescription() []Description
	RevertDescription() []Description

	// Execute applies the change. It must be idempotent against its own
	// prior successful execution and must not short-circuit on its own —
	// the Stateful wrapper is responsible for no-op'ing a Completed action.
	Execute(ctx context.Context) error

	// Revert undoes the change. It must tolerate partial prior execution
	// and a system where the change was externally removed.
	Revert(ctx context.Context) error

	// Tag returns the action's static, closed identifier.
	Tag() Tag
}
