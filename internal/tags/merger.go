package tags

import (
	"fmt"
	"sort"
)

// Merge reconciles an existing tag set with a new one. Keys only in the new
// set are added; keys in both with differing values are recorded as updated
// and as a Conflict; identical pairs are no-ops. The policy decides which
// value the merged set carries for conflicted keys; under PolicyAsk the
// existing value stays until the caller resolves the conflict.
//
// Merge is pure and idempotent: it never mutates its inputs, re-merging the
// same inputs yields the same output, and merging a set with itself yields
// no conflicts.
func Merge(existing, newTags TagSet, policy MergePolicy) MergeResult {
	merged := existing.Clone()
	if merged == nil {
		merged = TagSet{}
	}
	result := MergeResult{
		Merged:    merged,
		Conflicts: []Conflict{},
		Added:     []string{},
		Updated:   []string{},
	}

	for _, key := range sortedKeys(newTags) {
		value := newTags[key]
		current, present := merged[key]
		switch {
		case !present:
			merged[key] = value
			result.Added = append(result.Added, key)
		case current != value:
			result.Conflicts = append(result.Conflicts, Conflict{
				Key:           key,
				ExistingValue: current,
				NewValue:      value,
				Suggestion:    fmt.Sprintf("Update %s from '%s' to '%s'", key, current, value),
			})
			result.Updated = append(result.Updated, key)
			if policy == PolicyUseNew {
				merged[key] = value
			}
			// keep_existing and ask both retain the existing value.
		}
	}

	result.Summary = fmt.Sprintf("Added %d tags, updated %d tags, %d conflicts",
		len(result.Added), len(result.Updated), len(result.Conflicts))
	return result
}

func sortedKeys(set TagSet) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
