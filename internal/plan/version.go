// Package plan implements the engine's top-level Plan (spec.md §4.7): the
// ordered sequence of stateful actions plus planner descriptor and version
// that drives execute/revert and persists itself as a receipt.
package plan

import (
	"fmt"

	"golang.org/x/mod/semver"

	"github.com/DeterminateSystems/nix-installer-go/internal/installerrors"
)

// EngineVersion is the running binary's own version, stamped into every
// plan it creates and checked against any receipt it loads.
const EngineVersion = "v0.1.0"

// CheckVersionCompatible implements spec.md §6's compatibility predicate:
// "the running binary's version must satisfy a requirement derived from
// the receipt's own version (exact semver match in practice)". A
// dedicated receipt-splitting tool handles real version skew (spec.md §9);
// this engine only ever accepts an exact match.
func CheckVersionCompatible(receiptVersion string) error {
	rv := toCanonical(receiptVersion)
	ev := toCanonical(EngineVersion)
	if !semver.IsValid(rv) {
		return installerrors.New(installerrors.KindIncompatibleVersion,
			fmt.Errorf("receipt version %q is not valid semver", receiptVersion))
	}
	if semver.Compare(rv, ev) != 0 {
		return installerrors.New(installerrors.KindIncompatibleVersion,
			fmt.Errorf("receipt version %s is incompatible with engine version %s", receiptVersion, EngineVersion))
	}
	return nil
}

// toCanonical adds the "v" prefix golang.org/x/mod/semver requires, if the
// caller's version string lacks one.
func toCanonical(v string) string {
	if len(v) == 0 || v[0] != 'v' {
		return "v" + v
	}
	return v
}
