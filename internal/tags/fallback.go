package tags

// fallbackPrimaryTags is the built-in minimal standards table used when the
// corpus file is missing or unreadable. It covers the most common keys only;
// the full corpus carries taginfo usage counts and many more values.
func fallbackPrimaryTags() map[string][]ValueInfo {
	return map[string][]ValueInfo{
		"amenity": {
			{Value: "restaurant", Description: "Place to eat"},
			{Value: "cafe", Description: "Coffee shop"},
			{Value: "fast_food", Description: "Fast food"},
			{Value: "bar", Description: "Bar"},
			{Value: "pub", Description: "Pub"},
			{Value: "school", Description: "Educational institution"},
			{Value: "hospital", Description: "Medical facility"},
			{Value: "pharmacy", Description: "Pharmacy"},
			{Value: "bank", Description: "Bank"},
			{Value: "fuel", Description: "Gas station"},
			{Value: "library", Description: "Library"},
			{Value: "place_of_worship", Description: "Place of worship"},
			{Value: "parking", Description: "Parking area"},
		},
		"shop": {
			{Value: "supermarket", Description: "Large food store"},
			{Value: "convenience", Description: "Convenience store"},
			{Value: "bakery", Description: "Bakery"},
			{Value: "clothes", Description: "Clothing store"},
			{Value: "electronics", Description: "Electronics store"},
		},
		"tourism": {
			{Value: "hotel", Description: "Hotel"},
			{Value: "museum", Description: "Museum"},
			{Value: "attraction", Description: "Tourist attraction"},
			{Value: "information", Description: "Tourist information"},
		},
		"highway": {
			{Value: "bus_stop", Description: "Bus stop"},
			{Value: "traffic_signals", Description: "Traffic lights"},
			{Value: "crossing", Description: "Pedestrian crossing"},
		},
		"building": {
			{Value: "house", Description: "House"},
			{Value: "apartments", Description: "Apartment building"},
			{Value: "office", Description: "Office building"},
			{Value: "commercial", Description: "Commercial building"},
		},
		"leisure": {
			{Value: "park", Description: "Public park"},
			{Value: "playground", Description: "Playground"},
		},
	}
}

// fallbackPhraseOrder lists the fallback phrases in scan order. Multi-word
// phrases come before any phrase they contain as a substring, and "parking"
// precedes "park" and "library" precedes "pub", so the substring-based
// first-match scan never picks the shorter phrase out of a longer word.
var fallbackPhraseOrder = []string{
	"italian restaurant",
	"apartment building",
	"office building",
	"convenience store",
	"electronics store",
	"clothing store",
	"grocery store",
	"coffee shop",
	"gas station",
	"fast food",
	"bus stop",
	"pizzeria",
	"restaurant",
	"supermarket",
	"bakery",
	"pharmacy",
	"hospital",
	"library",
	"church",
	"school",
	"museum",
	"hotel",
	"bank",
	"cafe",
	"pub",
	"bar",
	"parking",
	"park",
}

// fallbackPhraseMappings mirrors the business-type vocabulary so the mapper
// can resolve every phrase the fallback parser can extract.
func fallbackPhraseMappings() map[string]TagSet {
	mappings := make(map[string]TagSet, len(businessTypeTags))
	for phrase, fragment := range businessTypeTags {
		mappings[phrase] = fragment.Clone()
	}
	return mappings
}
