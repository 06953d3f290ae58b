package nixconfig

import (
	"fmt"
	"strings"

	"github.com/DeterminateSystems/nix-installer-go/internal/installerrors"
)

// Pending is one setting the installer wants present in the final config,
// in the order the planner declared it.
type Pending struct {
	Key   string
	Value string
}

// Merged is one entry the rewrite must ensure is present: either newly
// added or, for a mergeable name, the deduplicated union of pending and
// existing tokens.
type Merged struct {
	Key    string
	Tokens []string
}

// Classify implements spec.md §4.5.2's plan-time classification: for each
// pending setting, decide whether it is already satisfied, needs adding,
// needs merging, or conflicts outright. A non-empty return of unmergeable
// means the caller must fail the plan with KindUnmergeableConfig and write
// nothing.
func Classify(existing *Config, pending []Pending, mergeableNames map[string]bool) (merged []Merged, unmergeable []string) {
	for _, p := range pending {
		// strings.Fields splits on runs of any whitespace, so a value
		// with consecutive spaces or tabs yields no empty tokens; values
		// are not split on single spaces.
		newTokens := strings.Fields(p.Value)

		existingTokens, present := existing.Lookup(p.Key)
		if !present {
			merged = append(merged, Merged{Key: p.Key, Tokens: newTokens})
			continue
		}

		if allTokensPresent(newTokens, existingTokens) {
			continue
		}

		if mergeableNames[p.Key] {
			// Scenario 1 (spec.md §8) orders the existing tokens first,
			// with newly pending tokens appended and deduplicated.
			merged = append(merged, Merged{Key: p.Key, Tokens: dedupConcat(existingTokens, newTokens)})
			continue
		}

		unmergeable = append(unmergeable, p.Key)
	}
	return merged, unmergeable
}

// ClassifyOrError is Classify plus the spec's "fail closed" step 3: a
// non-empty unmergeable list becomes a single KindUnmergeableConfig error
// naming every conflicting setting and the target path.
func ClassifyOrError(existing *Config, pending []Pending, mergeableNames map[string]bool, path string) ([]Merged, error) {
	merged, unmergeable := Classify(existing, pending, mergeableNames)
	if len(unmergeable) > 0 {
		return nil, installerrors.NewPath(installerrors.KindUnmergeableConfig, path,
			fmt.Errorf("settings cannot be merged automatically: %s", strings.Join(unmergeable, ", ")))
	}
	return merged, nil
}

func allTokensPresent(want, have []string) bool {
	haveSet := make(map[string]bool, len(have))
	for _, t := range have {
		haveSet[t] = true
	}
	for _, t := range want {
		if !haveSet[t] {
			return false
		}
	}
	return true
}

// dedupConcat concatenates a then b, keeping only the first occurrence of
// each token, in first-seen order (spec.md §8 scenario 1: existing tokens
// retain their position, with new tokens appended and deduplicated).
func dedupConcat(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, t := range append(append([]string{}, a...), b...) {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
