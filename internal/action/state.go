package action

// State is the lifecycle of a stateful action (spec.md §3).
type State string

const (
	StateUncompleted State = "uncompleted"
	StateProgress    State = "progress"
	StateCompleted   State = "completed"
	StateSkipped     State = "skipped"
)

// String renders the state for logging.
func (s State) String() string {
	return string(s)
}
