package tags

import (
	"strings"
	"testing"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return NewEngine(newFallbackStore(t))
}

func TestSuggestFromDescription(t *testing.T) {
	e := newTestEngine(t)

	suggestions := e.SuggestFromDescription("coffee shop with wifi and outdoor seating")
	if len(suggestions) != 3 {
		t.Fatalf("got %d suggestions: %+v", len(suggestions), suggestions)
	}

	// Business-type suggestion ranks first.
	if suggestions[0].Key != "amenity" || suggestions[0].Value != "cafe" {
		t.Errorf("top suggestion = %+v", suggestions[0])
	}
	if suggestions[0].Confidence != confidenceBusinessType {
		t.Errorf("business-type confidence = %v", suggestions[0].Confidence)
	}
	for _, s := range suggestions[1:] {
		if s.Confidence != confidenceFeature {
			t.Errorf("feature suggestion %s has confidence %v", s.Key, s.Confidence)
		}
	}

	set := SuggestedTagSet(suggestions)
	if set["amenity"] != "cafe" || set["internet_access"] != "wlan" || set["outdoor_seating"] != "yes" {
		t.Errorf("suggested set = %v", set)
	}
}

func TestSuggestFromDescriptionFuzzyFallback(t *testing.T) {
	e := newTestEngine(t)

	// No phrase appears verbatim, but the words of "coffee shop" are all
	// present, so the fuzzy matcher kicks in at low confidence.
	suggestions := e.SuggestFromDescription("coffee is my shop passion")
	if len(suggestions) != 1 {
		t.Fatalf("got %d suggestions: %+v", len(suggestions), suggestions)
	}
	if suggestions[0].Key != "amenity" || suggestions[0].Value != "cafe" {
		t.Errorf("fuzzy suggestion = %+v", suggestions[0])
	}
	if suggestions[0].Confidence != confidencePhrase {
		t.Errorf("fuzzy confidence = %v", suggestions[0].Confidence)
	}
}

func TestSuggestFromDescriptionNothingRecognized(t *testing.T) {
	e := newTestEngine(t)
	if got := e.SuggestFromDescription("xylophone warehouse?"); len(got) != 0 {
		t.Errorf("suggestions = %+v, want none", got)
	}
}

func TestSuggestedTagSetEarlierWins(t *testing.T) {
	set := SuggestedTagSet([]TagSuggestion{
		{Key: "amenity", Value: "cafe", Confidence: 0.9},
		{Key: "amenity", Value: "restaurant", Confidence: 0.5},
	})
	if set["amenity"] != "cafe" {
		t.Errorf("set = %v, want the higher-confidence value", set)
	}
}

func TestProcessPipeline(t *testing.T) {
	e := newTestEngine(t)

	result := e.Process("coffee shop with wifi and outdoor seating", TagSet{"name": "Bean There"}, "")
	if result.MergedTags["amenity"] != "cafe" ||
		result.MergedTags["internet_access"] != "wlan" ||
		result.MergedTags["outdoor_seating"] != "yes" ||
		result.MergedTags["name"] != "Bean There" {
		t.Errorf("merged tags = %v", result.MergedTags)
	}
	if len(result.Conflicts) != 0 {
		t.Errorf("conflicts = %v", result.Conflicts)
	}
	if HasErrors(result.ValidationResults) {
		t.Errorf("validation errors: %+v", result.ValidationResults)
	}
	if result.Parsed.BusinessType != "coffee shop" {
		t.Errorf("parsed business type = %q", result.Parsed.BusinessType)
	}
}

func TestProcessConflictUnderDefaultPolicy(t *testing.T) {
	e := newTestEngine(t)

	result := e.Process("coffee shop", TagSet{"amenity": "restaurant"}, "")
	if result.MergedTags["amenity"] != "restaurant" {
		t.Errorf("default policy should retain existing value, got %v", result.MergedTags)
	}
	if len(result.Conflicts) != 1 || result.Conflicts[0].Key != "amenity" {
		t.Errorf("conflicts = %+v", result.Conflicts)
	}
}

func TestDiscoverRelatedRestaurant(t *testing.T) {
	e := newTestEngine(t)

	related := e.DiscoverRelated(TagSet{"amenity": "restaurant"}, "node")
	keys := make(map[string]bool)
	for _, s := range related {
		keys[s.Key] = true
	}
	for _, want := range []string{"cuisine", "opening_hours", "outdoor_seating", "name"} {
		if !keys[want] {
			t.Errorf("missing related suggestion %q, got %v", want, keys)
		}
	}
}

func TestDiscoverRelatedNameOnlyForUnnamedNodes(t *testing.T) {
	e := newTestEngine(t)

	named := e.DiscoverRelated(TagSet{"amenity": "cafe", "name": "Bean There"}, "node")
	if suggestionsContainKey(named, "name") {
		t.Error("named element should not get a name suggestion")
	}

	way := e.DiscoverRelated(TagSet{"amenity": "cafe"}, "way")
	if suggestionsContainKey(way, "name") {
		t.Error("name suggestion is node-only")
	}
}

func TestDiscoverRelatedHotelAndShop(t *testing.T) {
	e := newTestEngine(t)

	hotel := e.DiscoverRelated(TagSet{"tourism": "hotel"}, "way")
	if !suggestionsContainKey(hotel, "stars") || !suggestionsContainKey(hotel, "internet_access") {
		t.Errorf("hotel suggestions = %+v", hotel)
	}

	shop := e.DiscoverRelated(TagSet{"shop": "bakery"}, "way")
	if !suggestionsContainKey(shop, "opening_hours") {
		t.Errorf("shop suggestions = %+v", shop)
	}
}

func TestExplain(t *testing.T) {
	e := newTestEngine(t)

	explanation := e.Explain(TagSet{
		"amenity":         "restaurant",
		"name":            "Joe's Diner",
		"cuisine":         "italian",
		"outdoor_seating": "yes",
	})
	if explanation.FeatureType != "This is a restaurant" {
		t.Errorf("feature type = %q", explanation.FeatureType)
	}
	want := "This is a restaurant, named 'Joe's Diner', serving italian cuisine, with outdoor seating"
	if explanation.NaturalDescription != want {
		t.Errorf("natural description = %q, want %q", explanation.NaturalDescription, want)
	}
	if len(explanation.DetailedExplanations) != 4 {
		t.Errorf("detailed explanations = %v", explanation.DetailedExplanations)
	}
}

func TestExplainEmptySet(t *testing.T) {
	e := newTestEngine(t)

	explanation := e.Explain(TagSet{})
	if explanation.NaturalDescription != "Generic map feature" {
		t.Errorf("natural description = %q", explanation.NaturalDescription)
	}
	if explanation.FeatureType != "" {
		t.Errorf("feature type = %q", explanation.FeatureType)
	}
}

func TestExplainShopFeatureType(t *testing.T) {
	e := newTestEngine(t)

	explanation := e.Explain(TagSet{"shop": "bakery"})
	if explanation.FeatureType != "This is a bakery shop" {
		t.Errorf("feature type = %q", explanation.FeatureType)
	}
}

func TestCombinationsBuiltIn(t *testing.T) {
	e := newTestEngine(t)

	combos := e.Combinations(TagSet{"amenity": "restaurant"})
	if len(combos) == 0 {
		t.Fatal("no combinations")
	}

	var hasCuisine, hasStreet bool
	for _, c := range combos {
		if _, ok := c["cuisine"]; ok {
			hasCuisine = true
		}
		if _, ok := c["addr:street"]; ok {
			hasStreet = true
		}
	}
	if !hasCuisine {
		t.Error("restaurant combinations should include cuisine")
	}
	if !hasStreet {
		t.Error("address tags should always be appended")
	}
}

func TestCombinationsFromCorpusPreferred(t *testing.T) {
	e := NewEngine(newTestStore(t))

	combos := e.Combinations(TagSet{"amenity": "restaurant"})
	// Corpus supplies 2 combinations; the 5 address tags are appended.
	if len(combos) != 7 {
		t.Errorf("got %d combinations, want corpus set plus address tags", len(combos))
	}
}

func TestCombinationsEmptyPrimary(t *testing.T) {
	e := newTestEngine(t)
	if got := e.Combinations(TagSet{}); len(got) != 0 {
		t.Errorf("combinations for empty set = %v", got)
	}
}

func TestDedupeSuggestionsKeepsFirst(t *testing.T) {
	out := dedupeSuggestions([]TagSuggestion{
		{Key: "amenity", Value: "cafe", Confidence: 0.9, Reason: "first"},
		{Key: "amenity", Value: "cafe", Confidence: 0.5, Reason: "second"},
		{Key: "amenity", Value: "restaurant", Confidence: 0.5},
	})
	if len(out) != 2 {
		t.Fatalf("got %d suggestions, want 2", len(out))
	}
	if out[0].Reason != "first" {
		t.Errorf("dedupe kept %q, want the first occurrence", out[0].Reason)
	}
}

func TestSuggestionReasonsNameTheirSource(t *testing.T) {
	e := newTestEngine(t)

	suggestions := e.SuggestFromDescription("coffee shop with wifi")
	for _, s := range suggestions {
		if s.Reason == "" {
			t.Errorf("suggestion %s=%s has no reason", s.Key, s.Value)
		}
		if s.Category == "primary" && !strings.Contains(s.Reason, "coffee shop") {
			t.Errorf("primary reason %q should name the matched phrase", s.Reason)
		}
	}
}
