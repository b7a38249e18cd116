package tags

import (
	"fmt"
	"sort"
	"strings"
)

// Static confidence weights for suggestion sources. These are heuristic
// ranks, not learned probabilities.
const (
	confidenceBusinessType = 0.9
	confidenceFeature      = 0.7
	confidencePhrase       = 0.5
)

// Engine runs the full natural-language-to-tags pipeline: parse, map,
// validate, merge. It is stateless beyond its read-only collaborators and
// safe for concurrent use once the store has loaded.
type Engine struct {
	store     *Store
	parser    *Parser
	validator *Validator
}

func NewEngine(store *Store) *Engine {
	return &Engine{
		store:     store,
		parser:    NewParser(store),
		validator: NewValidator(store),
	}
}

func (e *Engine) Store() *Store         { return e.store }
func (e *Engine) Parser() *Parser       { return e.parser }
func (e *Engine) Validator() *Validator { return e.validator }

// SuggestFromDescription produces ranked tag suggestions for a free-text
// feature description. Business-type matches rank above feature matches,
// which rank above fuzzy phrase matches; duplicate key=value pairs keep the
// highest-confidence occurrence.
func (e *Engine) SuggestFromDescription(description string) []TagSuggestion {
	parsed := e.parser.Parse(description)

	var suggestions []TagSuggestion
	if parsed.BusinessType != "" {
		base := MapBusinessType(parsed.BusinessType)
		for _, key := range sortedKeys(base) {
			suggestions = append(suggestions, TagSuggestion{
				Key:        key,
				Value:      base[key],
				Confidence: confidenceBusinessType,
				Reason:     fmt.Sprintf("Matched business type '%s'", parsed.BusinessType),
				Category:   "primary",
				Examples:   []string{key + "=" + base[key]},
			})
		}
	}

	for _, feature := range parsed.Features {
		mapped := MapFeatures([]string{feature})
		for _, key := range sortedKeys(mapped) {
			suggestions = append(suggestions, TagSuggestion{
				Key:        key,
				Value:      mapped[key],
				Confidence: confidenceFeature,
				Reason:     fmt.Sprintf("Matched feature '%s'", feature),
				Category:   "feature",
				Examples:   []string{key + "=" + mapped[key]},
			})
		}
	}

	if parsed.BusinessType == "" {
		// No direct business type; fall back to the fuzzy phrase matcher.
		if fragment := e.store.LookupPhrase(description); fragment != nil {
			for _, key := range sortedKeys(fragment) {
				suggestions = append(suggestions, TagSuggestion{
					Key:        key,
					Value:      fragment[key],
					Confidence: confidencePhrase,
					Reason:     "Fuzzy phrase match",
					Category:   "phrase",
					Examples:   []string{key + "=" + fragment[key]},
				})
			}
		}
	}

	suggestions = dedupeSuggestions(suggestions)
	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Confidence > suggestions[j].Confidence
	})
	return suggestions
}

// SuggestedTagSet collapses suggestions into a TagSet. Suggestions are
// applied in order, so for colliding keys the earlier (higher-confidence)
// suggestion wins.
func SuggestedTagSet(suggestions []TagSuggestion) TagSet {
	set := TagSet{}
	for _, s := range suggestions {
		if _, exists := set[s.Key]; !exists {
			set[s.Key] = s.Value
		}
	}
	return set
}

// PipelineResult carries the complete output of one natural-language
// request: the inferred tags, the reconciliation against existing tags, and
// the validation verdicts for the merged set. Field names are the wire
// contract consumed by the MCP and HTTP callers.
type PipelineResult struct {
	Parsed            ParsedRequest      `json:"parsed_request"`
	Suggestions       []TagSuggestion    `json:"suggestions"`
	SuggestedTags     TagSet             `json:"suggested_tags"`
	MergedTags        TagSet             `json:"merged_tags"`
	Conflicts         []Conflict         `json:"conflicts"`
	AddedTags         []string           `json:"added_tags"`
	UpdatedTags       []string           `json:"updated_tags"`
	ValidationResults []ValidationResult `json:"validation_results"`
}

// Process runs the whole pipeline: parse the description, map suggestions,
// merge them against the existing tags under the given policy, and validate
// the merged set. It never fails; unparseable input yields an empty
// suggestion set.
func (e *Engine) Process(description string, existing TagSet, policy MergePolicy) PipelineResult {
	if policy == "" {
		policy = PolicyAsk
	}
	parsed := e.parser.Parse(description)
	suggestions := e.SuggestFromDescription(description)
	suggested := SuggestedTagSet(suggestions)
	merge := Merge(existing, suggested, policy)

	return PipelineResult{
		Parsed:            parsed,
		Suggestions:       suggestions,
		SuggestedTags:     suggested,
		MergedTags:        merge.Merged,
		Conflicts:         merge.Conflicts,
		AddedTags:         merge.Added,
		UpdatedTags:       merge.Updated,
		ValidationResults: e.validator.ValidateSet(merge.Merged),
	}
}

// DiscoverRelated suggests complementary tags that commonly accompany the
// given primary tags.
func (e *Engine) DiscoverRelated(primary TagSet, elementType string) []TagSuggestion {
	var related []TagSuggestion

	for _, key := range sortedKeys(primary) {
		value := primary[key]
		switch key {
		case "amenity":
			switch value {
			case "restaurant", "cafe", "pub", "bar":
				related = append(related,
					TagSuggestion{Key: "cuisine", Confidence: 0.8,
						Reason: "Restaurants often specify cuisine type", Category: "food",
						Examples: []string{"cuisine=italian", "cuisine=chinese", "cuisine=mexican"}},
					TagSuggestion{Key: "opening_hours", Confidence: 0.7,
						Reason: "Operating hours are useful for food establishments", Category: "hours",
						Examples: []string{"opening_hours=Mo-Su 08:00-22:00"}},
					TagSuggestion{Key: "outdoor_seating", Value: "yes", Confidence: 0.6,
						Reason: "Many restaurants have outdoor seating", Category: "amenity",
						Examples: []string{"outdoor_seating=yes", "outdoor_seating=no"}},
				)
			case "school", "university":
				related = append(related,
					TagSuggestion{Key: "education:type", Confidence: 0.8,
						Reason: "Educational institutions often specify type", Category: "education",
						Examples: []string{"education:type=primary", "education:type=secondary"}},
					TagSuggestion{Key: "wheelchair", Value: "yes", Confidence: 0.7,
						Reason: "Accessibility is important for public buildings", Category: "accessibility",
						Examples: []string{"wheelchair=yes", "wheelchair=limited"}},
				)
			case "fuel":
				related = append(related,
					TagSuggestion{Key: "fuel:diesel", Value: "yes", Confidence: 0.8,
						Reason: "Gas stations often specify fuel types", Category: "fuel",
						Examples: []string{"fuel:diesel=yes", "fuel:octane_95=yes"}},
					TagSuggestion{Key: "shop", Value: "convenience", Confidence: 0.6,
						Reason: "Many gas stations have convenience stores", Category: "shop",
						Examples: []string{"shop=convenience"}},
				)
			}
		case "shop":
			related = append(related,
				TagSuggestion{Key: "opening_hours", Confidence: 0.8,
					Reason: "Operating hours are important for shops", Category: "hours",
					Examples: []string{"opening_hours=Mo-Sa 09:00-18:00"}},
				TagSuggestion{Key: "payment:credit_cards", Value: "yes", Confidence: 0.7,
					Reason: "Payment methods are useful information", Category: "payment",
					Examples: []string{"payment:credit_cards=yes", "payment:cash=yes"}},
			)
		case "tourism":
			if value == "hotel" {
				related = append(related,
					TagSuggestion{Key: "stars", Confidence: 0.8,
						Reason: "Hotels often have star ratings", Category: "quality",
						Examples: []string{"stars=3", "stars=4"}},
					TagSuggestion{Key: "internet_access", Value: "wlan", Confidence: 0.7,
						Reason: "Internet access is expected in hotels", Category: "amenity",
						Examples: []string{"internet_access=wlan", "internet_access=yes"}},
				)
			}
		case "highway":
			switch value {
			case "residential", "service", "tertiary":
				related = append(related,
					TagSuggestion{Key: "maxspeed", Confidence: 0.8,
						Reason: "Speed limits are important for roads", Category: "traffic",
						Examples: []string{"maxspeed=30", "maxspeed=50"}},
					TagSuggestion{Key: "surface", Value: "asphalt", Confidence: 0.7,
						Reason: "Road surface information is useful", Category: "physical",
						Examples: []string{"surface=asphalt", "surface=concrete"}},
				)
			}
		}
	}

	if elementType == "node" && primary["name"] == "" && !suggestionsContainKey(related, "name") {
		related = append(related, TagSuggestion{
			Key: "name", Confidence: 0.9,
			Reason: "Most features benefit from having a name", Category: "identification",
			Examples: []string{"name=Main Street Cafe"},
		})
	}
	return related
}

// Explanation is a human-readable rendering of a tag set.
type Explanation struct {
	NaturalDescription   string   `json:"natural_description"`
	DetailedExplanations []string `json:"detailed_explanations"`
	FeatureType          string   `json:"feature_type"`
}

// Explain converts a tag set into prose. The first matching identity key in
// {amenity, shop, highway, building} names the feature; remaining tags are
// described individually.
func (e *Engine) Explain(set TagSet) Explanation {
	var explanations []string
	featureType := ""

	primaryKeys := []struct {
		key    string
		format string
	}{
		{"amenity", "This is a %s"},
		{"shop", "This is a %s shop"},
		{"highway", "This is a %s road/path"},
		{"building", "This is a %s building"},
	}
	for _, p := range primaryKeys {
		if value, ok := set[p.key]; ok {
			featureType = fmt.Sprintf(p.format, value)
			explanations = append(explanations, fmt.Sprintf("%s=%s: %s", p.key, value, e.store.Describe(p.key, value)))
			break
		}
	}

	for _, key := range sortedKeys(set) {
		if key == "amenity" || key == "shop" || key == "highway" || key == "building" {
			continue
		}
		explanations = append(explanations, fmt.Sprintf("%s=%s: %s", key, set[key], e.store.Describe(key, set[key])))
	}

	summary := []string{}
	if featureType != "" {
		summary = append(summary, featureType)
	}
	if name := set["name"]; name != "" {
		summary = append(summary, fmt.Sprintf("named '%s'", name))
	}
	if cuisine := set["cuisine"]; cuisine != "" {
		summary = append(summary, fmt.Sprintf("serving %s cuisine", cuisine))
	}
	if hours := set["opening_hours"]; hours != "" {
		summary = append(summary, fmt.Sprintf("open %s", hours))
	}
	if set["wheelchair"] == "yes" {
		summary = append(summary, "with wheelchair accessibility")
	}
	if set["internet_access"] == "wlan" || set["internet_access"] == "yes" {
		summary = append(summary, "with WiFi available")
	}
	if set["outdoor_seating"] == "yes" {
		summary = append(summary, "with outdoor seating")
	}

	natural := "Generic map feature"
	if len(summary) > 0 {
		natural = strings.Join(summary, ", ")
	}
	return Explanation{
		NaturalDescription:   natural,
		DetailedExplanations: explanations,
		FeatureType:          featureType,
	}
}

// Combinations returns companion tags commonly added alongside a primary
// tag. Corpus-provided combinations win; otherwise a built-in table mirrors
// the most frequent pairings, and address tags are always suggested.
func (e *Engine) Combinations(primary TagSet) []TagSet {
	var combos []TagSet
	if len(primary) == 0 {
		return combos
	}

	key := sortedKeys(primary)[0]
	value := primary[key]

	if corpus := e.store.Combinations(key, value); len(corpus) > 0 {
		combos = append(combos, corpus...)
	} else {
		switch key {
		case "amenity":
			switch value {
			case "restaurant":
				combos = append(combos,
					TagSet{"cuisine": ""}, TagSet{"opening_hours": ""}, TagSet{"phone": ""},
					TagSet{"website": ""}, TagSet{"takeaway": "yes"}, TagSet{"wheelchair": "yes"})
			case "school":
				combos = append(combos,
					TagSet{"school": "primary"}, TagSet{"grades": ""}, TagSet{"phone": ""},
					TagSet{"website": ""}, TagSet{"wheelchair": "yes"})
			case "hospital":
				combos = append(combos,
					TagSet{"emergency": "yes"}, TagSet{"phone": ""}, TagSet{"website": ""},
					TagSet{"wheelchair": "yes"})
			}
		case "shop":
			combos = append(combos,
				TagSet{"opening_hours": ""}, TagSet{"phone": ""}, TagSet{"website": ""},
				TagSet{"wheelchair": "yes"})
		case "tourism":
			if value == "hotel" {
				combos = append(combos,
					TagSet{"stars": ""}, TagSet{"phone": ""}, TagSet{"website": ""},
					TagSet{"wheelchair": "yes"}, TagSet{"internet_access": "wlan"})
			}
		}
	}

	combos = append(combos,
		TagSet{"name": ""},
		TagSet{"addr:housenumber": ""},
		TagSet{"addr:street": ""},
		TagSet{"addr:city": ""},
		TagSet{"addr:postcode": ""},
	)
	return combos
}

func dedupeSuggestions(suggestions []TagSuggestion) []TagSuggestion {
	seen := make(map[string]struct{}, len(suggestions))
	out := suggestions[:0]
	for _, s := range suggestions {
		id := s.Key + "=" + s.Value
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, s)
	}
	return out
}

func suggestionsContainKey(suggestions []TagSuggestion, key string) bool {
	for _, s := range suggestions {
		if s.Key == key {
			return true
		}
	}
	return false
}
