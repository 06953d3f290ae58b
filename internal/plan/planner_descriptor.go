package plan

// PlannerDescriptor identifies which planner produced a Plan's actions and
// the settings it was configured with (spec.md §3 "Plan": "a planner
// descriptor (tag + configured settings)"; spec.md §6: the receipt's
// "planner" object carries "a planner discriminator and settings map").
// Settings is a plain map rather than the planner package's typed Settings
// struct so this package never imports internal/planner — the dependency
// runs the other way, planner assembles a Plan.
type PlannerDescriptor struct {
	Planner  string         `json:"planner"`
	Settings map[string]any `json:"settings"`
}
