package action

import "fmt"

// factory produces a zero-value, addressable Action of a concrete type so
// the receipt loader can unmarshal action-specific fields into it. Leaf,
// composite, darwin, and linux packages each call Register from an init()
// to add themselves without action importing back into them.
type factory func() Action

var registry = make(map[Tag]factory)

// Register adds a concrete action type to the closed tag set. Calling
// Register twice for the same tag is a programming error and panics at
// init time rather than silently shadowing.
func Register(tag Tag, f factory) {
	if _, exists := registry[tag]; exists {
		panic(fmt.Sprintf("action: tag %q already registered", tag))
	}
	registry[tag] = f
}

// New returns a fresh, zero-value Action for tag, or an error if tag is not
// in the closed set — the receipt's discriminator is the entire extension
// interface (spec.md §9), so an unknown tag is always a version mismatch.
func New(tag Tag) (Action, error) {
	f, ok := registry[tag]
	if !ok {
		return nil, fmt.Errorf("action: unknown tag %q", tag)
	}
	return f(), nil
}
