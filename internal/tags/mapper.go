package tags

import (
	"sort"
	"strings"
)

// UnspecifiedAmenity is the sentinel value returned for a business type the
// table does not know. It signals "recognized intent to tag a place, unknown
// category" and is deliberately not an error.
const UnspecifiedAmenity = "unspecified"

// MapBusinessType converts a recognized business-type phrase into its base
// tag set via exact lower-cased lookup. Unknown types map to the
// unspecified-amenity sentinel.
func MapBusinessType(businessType string) TagSet {
	if tags, ok := businessTypeTags[normalizePhrase(businessType)]; ok {
		return tags.Clone()
	}
	return TagSet{"amenity": UnspecifiedAmenity}
}

// MapFeatures unions the tag fragments for each recognized feature phrase.
// Later features override earlier ones on key collision; collisions between
// new tags are not conflicts, only existing-vs-new collisions are (and those
// are the merger's job).
func MapFeatures(features []string) TagSet {
	merged := TagSet{}
	for _, feature := range features {
		normalized := normalizePhrase(feature)
		for _, entry := range featureTags {
			if entry.Phrase == normalized {
				for k, v := range entry.Tags {
					merged[k] = v
				}
				break
			}
		}
	}
	return merged
}

// KnownBusinessTypes returns the business-type table's phrases in sorted
// order. Intended for diagnostics and tests.
func KnownBusinessTypes() []string {
	out := make([]string, 0, len(businessTypeTags))
	for phrase := range businessTypeTags {
		out = append(out, phrase)
	}
	sort.Strings(out)
	return out
}

func normalizePhrase(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
