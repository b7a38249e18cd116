package tags

// TagSet maps OSM tag keys to values. Keys are non-empty and never contain
// '='. A TagSet represents either the tags already present on an element or
// a candidate set produced by the mapping pipeline.
type TagSet map[string]string

// Clone returns an independent copy of the set.
func (t TagSet) Clone() TagSet {
	out := make(TagSet, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// ValueInfo describes one known value for a tag key, ranked by usage count.
type ValueInfo struct {
	Value       string  `json:"value"`
	Description string  `json:"description"`
	Count       int     `json:"count"`
	Popularity  float64 `json:"popularity"`
}

// Coordinates is a WGS84 lat/lon pair extracted from free text.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Action is the intent category recognized in a natural language request.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionFind   Action = "find"
)

// ParsedRequest is the structured result of parsing one free-text request.
// All fields are always present; unrecognized parts stay zero-valued rather
// than producing an error.
type ParsedRequest struct {
	Action       Action       `json:"action"`
	Name         string       `json:"name"`
	BusinessType string       `json:"business_type"`
	Features     []string     `json:"features"`
	Coordinates  *Coordinates `json:"coordinates"`
	Address      string       `json:"address"`
	LocationRefs []string     `json:"location_refs"`
}

// TagSuggestion is a candidate tag with a heuristic confidence weight.
type TagSuggestion struct {
	Key        string   `json:"key"`
	Value      string   `json:"value"`
	Confidence float64  `json:"confidence"`
	Reason     string   `json:"reason"`
	Category   string   `json:"category"`
	Examples   []string `json:"examples"`
}

// ValidationLevel classifies the outcome of validating one tag pair.
type ValidationLevel string

const (
	LevelError   ValidationLevel = "error"
	LevelWarning ValidationLevel = "warning"
	LevelInfo    ValidationLevel = "info"
	LevelValid   ValidationLevel = "valid"
)

// ValidationResult is the verdict for a single (key, value) pair.
type ValidationResult struct {
	TagKey           string          `json:"tag_key"`
	TagValue         string          `json:"tag_value"`
	Level            ValidationLevel `json:"level"`
	Message          string          `json:"message"`
	Suggestions      []string        `json:"suggestions"`
	DocumentationURL string          `json:"documentation_url,omitempty"`
}

// Conflict records a key present in both tag sets with differing values.
type Conflict struct {
	Key           string `json:"key"`
	ExistingValue string `json:"existing_value"`
	NewValue      string `json:"new_value"`
	Suggestion    string `json:"suggestion"`
}

// MergePolicy selects how value conflicts are resolved during a merge.
type MergePolicy string

const (
	// PolicyKeepExisting discards the new value on conflict.
	PolicyKeepExisting MergePolicy = "keep_existing"
	// PolicyUseNew overwrites the existing value on conflict.
	PolicyUseNew MergePolicy = "use_new"
	// PolicyAsk leaves conflicts unresolved; the merged set retains the
	// existing value until the caller decides. This is the default.
	PolicyAsk MergePolicy = "ask"
)

// MergeResult is the outcome of reconciling two tag sets.
type MergeResult struct {
	Merged    TagSet     `json:"merged_tags"`
	Conflicts []Conflict `json:"conflicts"`
	Added     []string   `json:"added_tags"`
	Updated   []string   `json:"updated_tags"`
	Summary   string     `json:"summary"`
}
