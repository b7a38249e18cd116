package tags

import (
	"fmt"
	"regexp"
	"strings"
)

// identityKeys are the tag keys considered essential for naming or
// classifying a feature. An empty value on one of these is an error.
var identityKeys = map[string]struct{}{
	"name":     {},
	"amenity":  {},
	"shop":     {},
	"tourism":  {},
	"highway":  {},
	"building": {},
}

var (
	openingHoursPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^\d{2}:\d{2}-\d{2}:\d{2}$`),
		regexp.MustCompile(`^Mo-Fr \d{2}:\d{2}-\d{2}:\d{2}$`),
		regexp.MustCompile(`^24/7$`),
		regexp.MustCompile(`^closed$`),
	}
	phonePattern = regexp.MustCompile(`^\+?[\d\s\-().]+$`)
	urlPattern   = regexp.MustCompile(`^https?://[^\s/$.?#].[^\s]*$`)
)

// maxValueAlternatives caps how many known values a warning lists.
const maxValueAlternatives = 5

// Validator checks tag pairs against the standards store. It never mutates
// its input and holds no state beyond the store reference.
type Validator struct {
	store *Store
}

func NewValidator(store *Store) *Validator {
	return &Validator{store: store}
}

// ValidateSet validates each pair of a tag set, returning one result per
// pair in sorted key order.
func (v *Validator) ValidateSet(set TagSet) []ValidationResult {
	keys := sortedKeys(set)
	results := make([]ValidationResult, 0, len(keys))
	for _, key := range keys {
		results = append(results, v.Validate(key, set[key]))
	}
	return results
}

// Validate produces the verdict for a single (key, value) pair. Rules are
// checked in order: required-identity, known-value membership, then format
// rules; the first triggered rule determines the level. A pair that
// triggers nothing is valid.
func (v *Validator) Validate(key, value string) ValidationResult {
	result := ValidationResult{
		TagKey:           key,
		TagValue:         value,
		Level:            LevelValid,
		Message:          fmt.Sprintf("Tag %s=%s is valid", key, value),
		DocumentationURL: fmt.Sprintf("%s/Key:%s", wikiBaseURL, key),
	}

	if _, identity := identityKeys[key]; identity && strings.TrimSpace(value) == "" {
		result.Level = LevelError
		result.Message = fmt.Sprintf("Empty value for important tag '%s'", key)
		return result
	}

	if v.store.HasKey(key) {
		known := v.store.KnownValues(key)
		if !contains(known, value) {
			alternatives := known
			if len(alternatives) > maxValueAlternatives {
				alternatives = alternatives[:maxValueAlternatives]
			}
			result.Level = LevelWarning
			result.Message = fmt.Sprintf("Unknown value '%s' for key '%s'. Consider: %s",
				value, key, strings.Join(alternatives, ", "))
			result.Suggestions = append([]string(nil), alternatives...)
			return result
		}
	}

	switch key {
	case "opening_hours":
		if !validOpeningHours(value) {
			result.Level = LevelWarning
			result.Message = fmt.Sprintf("Invalid opening hours format: '%s'", value)
			result.Suggestions = []string{"09:00-17:00", "Mo-Fr 09:00-17:00", "24/7", "closed"}
		}
	case "phone":
		if !validPhone(value) {
			result.Level = LevelWarning
			result.Message = fmt.Sprintf("Invalid phone number format: '%s'", value)
		}
	case "website":
		if !validURL(value) {
			result.Level = LevelWarning
			result.Message = fmt.Sprintf("Invalid website URL: '%s'", value)
		}
	}
	return result
}

// HasErrors reports whether any result is error-level. Callers performing a
// create or update must refuse to proceed to the write step while this is
// true.
func HasErrors(results []ValidationResult) bool {
	for _, r := range results {
		if r.Level == LevelError {
			return true
		}
	}
	return false
}

func validOpeningHours(value string) bool {
	if value == "" {
		return false
	}
	for _, p := range openingHoursPatterns {
		if p.MatchString(value) {
			return true
		}
	}
	return false
}

func validPhone(value string) bool {
	return len(value) >= 7 && phonePattern.MatchString(value)
}

func validURL(value string) bool {
	return urlPattern.MatchString(value)
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
