package action

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/DeterminateSystems/nix-installer-go/internal/installerrors"
)

// Stateful is the pair (action value, action state) — the unit serialized
// into the receipt (spec.md §3). It is the sole authorized writer of State:
// every other package observes State but mutates it only through
// TryExecute/TryRevert.
type Stateful struct {
	Action Action
	State  State
}

// NewStateful wraps action in its initial state.
func NewStateful(a Action, s State) *Stateful {
	return &Stateful{Action: a, State: s}
}

// TryExecute applies the wrapped action's Execute, enforcing the transition
// policy in spec.md §4.1.1. A Completed or Skipped action is a no-op. On
// failure the state is left at Progress, deliberately — a receipt persisted
// after a mid-execute crash must record that execute was entered at all.
func (s *Stateful) TryExecute(ctx context.Context) error {
	switch s.State {
	case StateCompleted, StateSkipped:
		return nil
	}

	s.State = StateProgress
	if err := s.Action.Execute(ctx); err != nil {
		return attachTag(err, s.Action.Tag())
	}
	s.State = StateCompleted
	return nil
}

// TryRevert undoes the wrapped action's Execute, enforcing the transition
// policy in spec.md §4.1.1. An Uncompleted or Skipped action is a no-op.
func (s *Stateful) TryRevert(ctx context.Context) error {
	switch s.State {
	case StateUncompleted, StateSkipped:
		return nil
	}

	s.State = StateProgress
	if err := s.Action.Revert(ctx); err != nil {
		return attachTag(err, s.Action.Tag())
	}
	s.State = StateUncompleted
	return nil
}

// attachTag tags any error surfaced from execute/revert with the action's
// tag, whether or not the action remembered to do so itself.
func attachTag(err error, tag Tag) error {
	var ae *installerrors.ActionError
	if errAs(err, &ae) {
		return ae.WithTag(string(tag))
	}
	return fmt.Errorf("%s: %w", tag, err)
}

// errAs finds the first *installerrors.ActionError in err's chain. Unlike
// errors.As it follows only single-error Unwrap() chains: it does not
// descend into multi-error values such as installerrors.MultipleChildren
// and does not call As methods.
func errAs(err error, target **installerrors.ActionError) bool {
	for err != nil {
		if ae, ok := err.(*installerrors.ActionError); ok {
			*target = ae
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// receiptEnvelope is the on-the-wire shape of one entry in the receipt's
// "actions" array (spec.md §6): action_name and state are common to every
// entry, and the remaining fields are whatever the concrete action type
// marshals itself.
type receiptEnvelope struct {
	ActionName Tag             `json:"action_name"`
	State      State           `json:"state"`
	Fields     json.RawMessage `json:"-"`
}

// MarshalJSON flattens the action's own fields alongside action_name and
// state into one JSON object.
func (s *Stateful) MarshalJSON() ([]byte, error) {
	fields, err := json.Marshal(s.Action)
	if err != nil {
		return nil, fmt.Errorf("marshal action %s: %w", s.Action.Tag(), err)
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(fields, &merged); err != nil {
		return nil, fmt.Errorf("flatten action %s: %w", s.Action.Tag(), err)
	}
	if merged == nil {
		merged = make(map[string]json.RawMessage)
	}

	nameJSON, err := json.Marshal(s.Action.Tag())
	if err != nil {
		return nil, err
	}
	stateJSON, err := json.Marshal(s.State)
	if err != nil {
		return nil, err
	}
	merged["action_name"] = nameJSON
	merged["state"] = stateJSON

	return json.Marshal(merged)
}

// UnmarshalJSON looks up action_name in the registry to construct the right
// concrete type, then unmarshals the whole object into it a second time so
// its action-specific fields populate.
func (s *Stateful) UnmarshalJSON(data []byte) error {
	var probe struct {
		ActionName Tag   `json:"action_name"`
		State      State `json:"state"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("unmarshal receipt entry envelope: %w", err)
	}

	a, err := New(probe.ActionName)
	if err != nil {
		return installerrors.New(installerrors.KindIncompatibleVersion, err)
	}
	if err := json.Unmarshal(data, a); err != nil {
		return fmt.Errorf("unmarshal action %s: %w", probe.ActionName, err)
	}

	s.Action = a
	s.State = probe.State
	return nil
}
