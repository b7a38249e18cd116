package tags

// Static lookup tables for the parser and mapper. Kept together so the
// vocabulary can be reviewed and extended in one place instead of being
// scattered through control flow.

// actionVerbs lists verb synonyms per action category. Categories are
// checked in the order below; the first category with any matching verb
// wins, and the default is ActionFind.
var actionVerbs = []struct {
	Action Action
	Verbs  []string
}{
	{ActionCreate, []string{"create", "add", "build", "place", "insert", "register"}},
	{ActionUpdate, []string{"update", "modify", "change", "edit", "correct", "fix"}},
	{ActionDelete, []string{"delete", "remove", "erase", "demolish"}},
	{ActionFind, []string{"find", "search", "locate", "show", "list", "where"}},
}

// businessTypeTags maps lower-cased business-type phrases to their base tag
// sets. Lookup is exact; unknown types map to the "unspecified" sentinel in
// MapBusinessType.
var businessTypeTags = map[string]TagSet{
	"restaurant":         {"amenity": "restaurant"},
	"italian restaurant": {"amenity": "restaurant", "cuisine": "italian"},
	"pizzeria":           {"amenity": "restaurant", "cuisine": "pizza"},
	"fast food":          {"amenity": "fast_food"},
	"cafe":               {"amenity": "cafe"},
	"coffee shop":        {"amenity": "cafe"},
	"bar":                {"amenity": "bar"},
	"pub":                {"amenity": "pub"},
	"bakery":             {"shop": "bakery"},
	"supermarket":        {"shop": "supermarket"},
	"grocery store":      {"shop": "supermarket"},
	"convenience store":  {"shop": "convenience"},
	"clothing store":     {"shop": "clothes"},
	"electronics store":  {"shop": "electronics"},
	"school":             {"amenity": "school"},
	"hospital":           {"amenity": "hospital"},
	"pharmacy":           {"amenity": "pharmacy"},
	"bank":               {"amenity": "bank"},
	"gas station":        {"amenity": "fuel"},
	"parking":            {"amenity": "parking"},
	"hotel":              {"tourism": "hotel"},
	"museum":             {"tourism": "museum"},
	"library":            {"amenity": "library"},
	"church":             {"amenity": "place_of_worship"},
	"park":               {"leisure": "park"},
	"bus stop":           {"highway": "bus_stop"},
	"apartment building": {"building": "apartments"},
	"office building":    {"building": "office"},
}

// featureTags maps feature phrases to the tag fragments they imply. Order
// matters only as a tie-break when two features start at the same position
// in the text; scan results are reported in text order.
var featureTags = []struct {
	Phrase string
	Tags   TagSet
}{
	{"wifi", TagSet{"internet_access": "wlan"}},
	{"wi-fi", TagSet{"internet_access": "wlan"}},
	{"outdoor seating", TagSet{"outdoor_seating": "yes"}},
	{"wheelchair accessible", TagSet{"wheelchair": "yes"}},
	{"wheelchair access", TagSet{"wheelchair": "yes"}},
	{"takeaway", TagSet{"takeaway": "yes"}},
	{"take away", TagSet{"takeaway": "yes"}},
	{"delivery", TagSet{"delivery": "yes"}},
	{"drive through", TagSet{"drive_through": "yes"}},
	{"drive-thru", TagSet{"drive_through": "yes"}},
	{"24/7", TagSet{"opening_hours": "24/7"}},
	{"24 hours", TagSet{"opening_hours": "24/7"}},
	{"vegetarian", TagSet{"diet:vegetarian": "yes"}},
	{"vegan", TagSet{"diet:vegan": "yes"}},
	{"live music", TagSet{"live_music": "yes"}},
	{"air conditioning", TagSet{"air_conditioning": "yes"}},
	{"pet friendly", TagSet{"dog": "yes"}},
	{"dog friendly", TagSet{"dog": "yes"}},
	{"credit cards", TagSet{"payment:credit_cards": "yes"}},
	{"atm", TagSet{"atm": "yes"}},
	{"smoking area", TagSet{"smoking": "separated"}},
	{"non-smoking", TagSet{"smoking": "no"}},
}
