package installerrors

import (
	"errors"
	"fmt"
	"strings"
)

// ActionError is the single structured error type used across the engine.
// It carries the action tag that produced it (attached by the stateful
// wrapper, not by the action itself), a closed Kind, optional path context,
// and a cause chain. Resist the temptation to add a new error type per
// action — see Design Notes in spec.md §9.
type ActionError struct {
	Tag        string // action tag, attached by the stateful wrapper
	Kind       Kind
	Path       string
	Underlying error
}

// New creates an ActionError with no path context.
func New(kind Kind, underlying error) *ActionError {
	return &ActionError{Kind: kind, Underlying: underlying}
}

// NewPath creates an ActionError carrying path context.
func NewPath(kind Kind, path string, underlying error) *ActionError {
	return &ActionError{Kind: kind, Path: path, Underlying: underlying}
}

// WithTag returns a copy of the error with the action tag set. The stateful
// wrapper calls this on any error returned from execute/revert so that the
// tag is always present regardless of where the error originated.
func (e *ActionError) WithTag(tag string) *ActionError {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Tag = tag
	return &cp
}

func (e *ActionError) Error() string {
	var b strings.Builder
	if e.Tag != "" {
		fmt.Fprintf(&b, "%s: ", e.Tag)
	}
	b.WriteString(string(e.Kind))
	if e.Path != "" {
		fmt.Fprintf(&b, " (%s)", e.Path)
	}
	if e.Underlying != nil {
		fmt.Fprintf(&b, ": %s", e.Underlying.Error())
	}
	return b.String()
}

// Unwrap supports errors.Is/errors.As against the underlying cause.
func (e *ActionError) Unwrap() error {
	return e.Underlying
}

// Is compares by Kind, so callers can do errors.Is(err, installerrors.New(KindCancelled, nil)).
func (e *ActionError) Is(target error) bool {
	var t *ActionError
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// Expected reports whether this error is user-surfaceable (spec.md §7).
func (e *ActionError) Expected() bool {
	return e.Kind.Expected()
}

// IsExpected walks an error chain looking for an *ActionError and reports
// whether it is classified as expected.
func IsExpected(err error) bool {
	var ae *ActionError
	if errors.As(err, &ae) {
		return ae.Expected()
	}
	return false
}

// MultipleChildren aggregates errors from a composite action's best-effort
// revert (spec.md §4.3, §4.6.3): every child's try_revert runs regardless of
// earlier failures, and their errors are collected rather than short-circuited.
type MultipleChildren struct {
	Errors []error
}

func (m *MultipleChildren) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d errors occurred during revert:\n", len(m.Errors))
	for i, err := range m.Errors {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, err.Error())
	}
	return b.String()
}

// Unwrap exposes every collected error so errors.Is/As can walk into them.
func (m *MultipleChildren) Unwrap() []error {
	return m.Errors
}

// AsMultipleChildren returns a *MultipleChildren if errs contains anything,
// or nil if every element was nil.
func AsMultipleChildren(errs []error) error {
	var nonNil []error
	for _, e := range errs {
		if e != nil {
			nonNil = append(nonNil, e)
		}
	}
	if len(nonNil) == 0 {
		return nil
	}
	return &MultipleChildren{Errors: nonNil}
}
