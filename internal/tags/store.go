// Package tags implements the OSM tag engine: the tag standards store,
// natural language request parsing, business-type and feature mapping, tag
// validation, and tag-set merging with conflict detection.
//
// Everything in this package is a pure in-memory computation. The only
// lifecycle state is the standards store's one-time load; after the load
// completes all operations are safe for concurrent use without locking on
// the caller's side.
package tags

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"osmedit/internal/logging"
)

const wikiBaseURL = "https://wiki.openstreetmap.org/wiki"

// maxValueSuggestions caps the result size of SuggestValues.
const maxValueSuggestions = 20

// Store holds the tag standards corpus: known values per key, natural
// language phrase mappings, and tag descriptions. It is loaded once from a
// JSON corpus file, falling back to a built-in minimal table when the file
// is missing or corrupt, and is read-only afterward.
type Store struct {
	logger *logging.AppLogger

	mu           sync.RWMutex
	loaded       bool
	fromFallback bool

	primaryTags  map[string][]ValueInfo
	phrases      map[string]TagSet
	phraseOrder  []string
	descriptions map[string]string
	combinations map[string][]TagSet
	metadata     corpusMetadata
}

type corpusMetadata struct {
	Source    string `json:"source"`
	CreatedAt string `json:"created_at"`
}

// corpusValue is the on-disk shape of one known value. The corpus calls the
// popularity share "fraction"; the API exposes it as "popularity".
type corpusValue struct {
	Value       string  `json:"value"`
	Description string  `json:"description"`
	Count       int     `json:"count"`
	Fraction    float64 `json:"fraction"`
}

type corpusDocument struct {
	Metadata     corpusMetadata `json:"metadata"`
	TagStandards struct {
		PrimaryTags             map[string][]corpusValue `json:"primary_tags"`
		NaturalLanguageMappings json.RawMessage          `json:"natural_language_mappings"`
		TagDescriptions         map[string]string        `json:"tag_descriptions"`
		CommonCombinations      map[string][]TagSet      `json:"common_combinations"`
	} `json:"tag_standards"`
}

// Statistics summarizes the loaded corpus.
type Statistics struct {
	PrimaryTagCategories    int    `json:"primary_tag_categories"`
	TotalTagValues          int    `json:"total_tag_values"`
	NaturalLanguageMappings int    `json:"natural_language_mappings"`
	DataSource              string `json:"data_source"`
	LastUpdated             string `json:"last_updated"`
	Loaded                  bool   `json:"loaded"`
}

// NewStore creates an unloaded store. Call Load before serving requests; any
// accessor invoked earlier falls back to the built-in table.
func NewStore(logger *logging.AppLogger) *Store {
	return &Store{logger: logger}
}

// Load reads the corpus file at path. On any failure (missing file, bad
// JSON) it installs the built-in fallback table and returns false; the store
// is usable either way.
func (s *Store) Load(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Warn("Tag standards file not found, using fallback table", "path", path, "error", err)
		s.loadFallbackLocked()
		return false
	}

	var doc corpusDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Error("Failed to parse tag standards file, using fallback table", "path", path, "error", err)
		s.loadFallbackLocked()
		return false
	}

	phrases, order, err := decodeOrderedMappings(doc.TagStandards.NaturalLanguageMappings)
	if err != nil {
		s.logger.Error("Failed to parse natural language mappings, using fallback table", "path", path, "error", err)
		s.loadFallbackLocked()
		return false
	}

	s.primaryTags = make(map[string][]ValueInfo, len(doc.TagStandards.PrimaryTags))
	for key, values := range doc.TagStandards.PrimaryTags {
		infos := make([]ValueInfo, 0, len(values))
		for _, v := range values {
			infos = append(infos, ValueInfo{
				Value:       v.Value,
				Description: v.Description,
				Count:       v.Count,
				Popularity:  v.Fraction,
			})
		}
		s.primaryTags[key] = infos
	}
	s.phrases = phrases
	s.phraseOrder = order
	s.descriptions = doc.TagStandards.TagDescriptions
	s.combinations = doc.TagStandards.CommonCombinations
	s.metadata = doc.Metadata
	s.loaded = true
	s.fromFallback = false

	s.logger.Info("Loaded tag standards",
		"path", path,
		"keys", len(s.primaryTags),
		"phrases", len(s.phrases),
	)
	return true
}

// loadFallbackLocked installs the built-in minimal table. Caller holds mu.
func (s *Store) loadFallbackLocked() {
	s.primaryTags = fallbackPrimaryTags()
	s.phrases = fallbackPhraseMappings()
	s.phraseOrder = fallbackPhraseOrder
	s.descriptions = map[string]string{}
	s.combinations = map[string][]TagSet{}
	s.metadata = corpusMetadata{Source: "built-in fallback"}
	s.loaded = true
	s.fromFallback = true
}

// ensureLoaded installs the fallback table if Load was never called, so
// accessors never observe a partially-populated store.
func (s *Store) ensureLoaded() {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return
	}
	s.mu.Lock()
	if !s.loaded {
		s.loadFallbackLocked()
	}
	s.mu.Unlock()
}

// decodeOrderedMappings decodes a JSON object of phrase -> tag fragment
// while preserving the order the phrases appear in the document. Scan order
// matters: the parser's business-type detection takes the first phrase that
// matches, in table order.
func decodeOrderedMappings(raw json.RawMessage) (map[string]TagSet, []string, error) {
	phrases := make(map[string]TagSet)
	var order []string
	if len(raw) == 0 {
		return phrases, order, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, fmt.Errorf("natural_language_mappings: expected object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		phrase := strings.ToLower(keyTok.(string))

		var fragment TagSet
		if err := dec.Decode(&fragment); err != nil {
			return nil, nil, fmt.Errorf("natural_language_mappings[%q]: %w", phrase, err)
		}
		if _, seen := phrases[phrase]; !seen {
			order = append(order, phrase)
		}
		phrases[phrase] = fragment
	}

	return phrases, order, nil
}

// SuggestValues returns ranked candidate values for a tag key, filtered by a
// case-insensitive substring of the value, ordered by descending usage count
// and capped at 20 results. Unknown keys yield an empty list, not an error.
func (s *Store) SuggestValues(key, partial string) []ValueInfo {
	s.ensureLoaded()
	s.mu.RLock()
	defer s.mu.RUnlock()

	values, ok := s.primaryTags[key]
	if !ok {
		return nil
	}

	partialLower := strings.ToLower(partial)
	suggestions := make([]ValueInfo, 0, len(values))
	for _, v := range values {
		if partial == "" || strings.Contains(strings.ToLower(v.Value), partialLower) {
			suggestions = append(suggestions, v)
		}
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Count > suggestions[j].Count
	})
	if len(suggestions) > maxValueSuggestions {
		suggestions = suggestions[:maxValueSuggestions]
	}
	return suggestions
}

// KnownValues returns the plain value strings known for a key, in corpus
// order.
func (s *Store) KnownValues(key string) []string {
	s.ensureLoaded()
	s.mu.RLock()
	defer s.mu.RUnlock()

	values, ok := s.primaryTags[key]
	if !ok {
		return nil
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = v.Value
	}
	return out
}

// HasKey reports whether the corpus knows the given tag key.
func (s *Store) HasKey(key string) bool {
	s.ensureLoaded()
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.primaryTags[key]
	return ok
}

// Describe returns the stored description for a (key, value) pair, falling
// back to the value's description from the primary tag table, then to a
// generic pointer at the OSM wiki.
func (s *Store) Describe(key, value string) string {
	s.ensureLoaded()
	s.mu.RLock()
	defer s.mu.RUnlock()

	if desc, ok := s.descriptions[key+"="+value]; ok && desc != "" {
		return desc
	}
	for _, v := range s.primaryTags[key] {
		if v.Value == value && v.Description != "" {
			return v.Description
		}
	}
	return fmt.Sprintf("No description available for %s=%s. See %s/Key:%s", key, value, wikiBaseURL, key)
}

// PhraseOrder returns the phrase table's scan order.
func (s *Store) PhraseOrder() []string {
	s.ensureLoaded()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phraseOrder
}

// Phrase returns the tag fragment for an exact lower-cased phrase.
func (s *Store) Phrase(phrase string) (TagSet, bool) {
	s.ensureLoaded()
	s.mu.RLock()
	defer s.mu.RUnlock()
	frag, ok := s.phrases[strings.ToLower(phrase)]
	return frag, ok
}

// LookupPhrase maps a free-text phrase to its tag fragment. An exact
// lower-cased match wins; otherwise the fuzzy fallback scans all known
// phrases and picks the one whose word set is fully contained in the input,
// scoring by |phrase words| / |input words|. Ties break to the
// lexicographically smallest phrase, a deliberate stable-order choice since
// the scoring alone does not order equal-score phrases.
func (s *Store) LookupPhrase(text string) TagSet {
	s.ensureLoaded()
	s.mu.RLock()
	defer s.mu.RUnlock()

	textLower := strings.ToLower(strings.TrimSpace(text))
	if frag, ok := s.phrases[textLower]; ok {
		return frag.Clone()
	}

	textWords := wordSet(textLower)
	if len(textWords) == 0 {
		return nil
	}

	sorted := make([]string, 0, len(s.phrases))
	for phrase := range s.phrases {
		sorted = append(sorted, phrase)
	}
	sort.Strings(sorted)

	var best TagSet
	bestScore := 0.0
	for _, phrase := range sorted {
		phraseWords := wordSet(phrase)
		if !subset(phraseWords, textWords) {
			continue
		}
		score := float64(len(phraseWords)) / float64(len(textWords))
		if score > bestScore {
			bestScore = score
			best = s.phrases[phrase]
		}
	}
	if best == nil {
		return nil
	}
	return best.Clone()
}

// SearchResult is one hit from a free-text search over the corpus.
type SearchResult struct {
	Type        string  `json:"type"`
	Key         string  `json:"key,omitempty"`
	Value       string  `json:"value,omitempty"`
	Phrase      string  `json:"phrase,omitempty"`
	Tags        TagSet  `json:"tags,omitempty"`
	Description string  `json:"description"`
	Count       int     `json:"count,omitempty"`
	Relevance   float64 `json:"relevance"`
}

// Search scans keys, values, value descriptions, and phrases for a query
// substring, ranked by relevance then usage count.
func (s *Store) Search(query string, limit int) []SearchResult {
	s.ensureLoaded()
	s.mu.RLock()
	defer s.mu.RUnlock()

	queryLower := strings.ToLower(query)
	var results []SearchResult

	keys := make([]string, 0, len(s.primaryTags))
	for key := range s.primaryTags {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if strings.Contains(strings.ToLower(key), queryLower) {
			results = append(results, SearchResult{
				Type:        "key",
				Key:         key,
				Description: "Tag category: " + key,
				Relevance:   1.0,
			})
		}
		for _, v := range s.primaryTags[key] {
			if strings.Contains(strings.ToLower(v.Value), queryLower) ||
				strings.Contains(strings.ToLower(v.Description), queryLower) {
				results = append(results, SearchResult{
					Type:        "value",
					Key:         key,
					Value:       v.Value,
					Description: v.Description,
					Count:       v.Count,
					Relevance:   0.8,
				})
			}
		}
	}

	for _, phrase := range s.phraseOrder {
		if strings.Contains(phrase, queryLower) {
			results = append(results, SearchResult{
				Type:        "natural_language",
				Phrase:      phrase,
				Tags:        s.phrases[phrase].Clone(),
				Description: "Natural language: " + phrase,
				Relevance:   0.6,
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Relevance != results[j].Relevance {
			return results[i].Relevance > results[j].Relevance
		}
		return results[i].Count > results[j].Count
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// Combinations returns corpus-recommended companion tags for a primary
// (key, value) pair, or nil when the corpus has none.
func (s *Store) Combinations(key, value string) []TagSet {
	s.ensureLoaded()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.combinations[key+"="+value]
}

// Stats reports corpus size and provenance.
func (s *Store) Stats() Statistics {
	s.ensureLoaded()
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, values := range s.primaryTags {
		total += len(values)
	}
	source := s.metadata.Source
	if source == "" {
		source = "Unknown"
	}
	updated := s.metadata.CreatedAt
	if updated == "" {
		updated = "Unknown"
	}
	return Statistics{
		PrimaryTagCategories:    len(s.primaryTags),
		TotalTagValues:          total,
		NaturalLanguageMappings: len(s.phrases),
		DataSource:              source,
		LastUpdated:             updated,
		Loaded:                  s.loaded,
	}
}

// UsingFallback reports whether the store is serving the built-in table.
func (s *Store) UsingFallback() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fromFallback
}

func wordSet(text string) map[string]struct{} {
	words := strings.Fields(text)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func subset(sub, super map[string]struct{}) bool {
	if len(sub) == 0 {
		return false
	}
	for w := range sub {
		if _, ok := super[w]; !ok {
			return false
		}
	}
	return true
}
