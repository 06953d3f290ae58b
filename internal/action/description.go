package action

// Description is a structured, multi-line explanation surfaced by explain
// mode (spec.md §4.1). Summary is the one-line headline; Explanation holds
// the supporting detail lines.
type Description struct {
	summary     string
	explanation []string
}

// NewDescription creates a Description with a summary and explanation lines.
func NewDescription(summary string, explanation []string) Description {
	lines := make([]string, len(explanation))
	copy(lines, explanation)
	return Description{summary: summary, explanation: lines}
}

// Summary returns the one-line headline.
func (d Description) Summary() string {
	return d.summary
}

// Explanation returns the supporting detail lines.
func (d Description) Explanation() []string {
	lines := make([]string, len(d.explanation))
	copy(lines, d.explanation)
	return lines
}
