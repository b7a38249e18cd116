package tags

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Parser turns one free-text request into a ParsedRequest. It never fails:
// malformed input degrades to zero-valued fields. The standards store
// supplies the business-type phrase table; everything else comes from the
// static tables in this package.
type Parser struct {
	store *Store
}

func NewParser(store *Store) *Parser {
	return &Parser{store: store}
}

var (
	// Quoted name following "called"/"named"; the backreference-free
	// alternation keeps same-quote pairing while allowing apostrophes
	// inside double quotes and vice versa. The capture is greedy so a
	// single-quoted name may contain apostrophes ('Joe's Diner'); the
	// price is that with several same-quoted strings the capture spans
	// from the first quote to the last.
	namedPattern  = regexp.MustCompile(`(?i)(?:called|named)\s+(?:'(.+)'|"(.+)")`)
	quotedPattern = regexp.MustCompile(`(?:'(.+)'|"(.+)")`)

	coordinatePattern = regexp.MustCompile(`(?i)(?:\bat\b|\bcoordinates?\b)[:\s]+(-?\d+(?:\.\d+)?)\s*,\s*(-?\d+(?:\.\d+)?)`)
	addressPattern    = regexp.MustCompile(`(?i)(?:\bat\b|\baddress\b:?)\s+([^,]+)`)
	numericPattern    = regexp.MustCompile(`^-?\d+(?:\.\d+)?$`)

	// Location reference groups, scanned in this order.
	locationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:near|next\s+to|close\s+to|by)\s+([^,.]+)`),
		regexp.MustCompile(`(?i)\b(?:in|at)\s+([^,.]+)`),
		regexp.MustCompile(`(?i)\b(?:on|along)\s+([^,.]+)`),
	}

	actionPatterns = compileActionPatterns()
)

func compileActionPatterns() []struct {
	Action  Action
	Pattern *regexp.Regexp
} {
	patterns := make([]struct {
		Action  Action
		Pattern *regexp.Regexp
	}, len(actionVerbs))
	for i, entry := range actionVerbs {
		patterns[i].Action = entry.Action
		patterns[i].Pattern = regexp.MustCompile(`(?i)\b(?:` + strings.Join(entry.Verbs, "|") + `)\b`)
	}
	return patterns
}

// Parse extracts the structured intent from text. All fields are best-effort
// and default to empty; the action defaults to ActionFind.
func (p *Parser) Parse(text string) ParsedRequest {
	textLower := strings.ToLower(text)

	req := ParsedRequest{
		Action:       detectAction(text),
		Name:         extractName(text),
		Coordinates:  extractCoordinates(text),
		Address:      extractAddress(text),
		BusinessType: p.extractBusinessType(textLower),
		Features:     extractFeatures(textLower),
		LocationRefs: extractLocationRefs(text),
	}
	return req
}

// detectAction returns the first category, in fixed category order, with any
// matching verb. Category order is the tie-break when verbs from several
// categories appear.
func detectAction(text string) Action {
	for _, entry := range actionPatterns {
		if entry.Pattern.MatchString(text) {
			return entry.Action
		}
	}
	return ActionFind
}

func extractName(text string) string {
	if m := namedPattern.FindStringSubmatch(text); m != nil {
		return firstGroup(m)
	}
	if m := quotedPattern.FindStringSubmatch(text); m != nil {
		return firstGroup(m)
	}
	return ""
}

func firstGroup(m []string) string {
	for _, g := range m[1:] {
		if g != "" {
			return g
		}
	}
	return ""
}

func extractCoordinates(text string) *Coordinates {
	m := coordinatePattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	lat, err1 := strconv.ParseFloat(m[1], 64)
	lon, err2 := strconv.ParseFloat(m[2], 64)
	if err1 != nil || err2 != nil {
		return nil
	}
	return &Coordinates{Lat: lat, Lon: lon}
}

// extractAddress captures the clause after "at"/"address" up to the next
// comma. A capture that is just a number is a coordinate, not an address.
func extractAddress(text string) string {
	m := addressPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	addr := strings.TrimSpace(m[1])
	if numericPattern.MatchString(addr) {
		return ""
	}
	return addr
}

// extractBusinessType returns the first phrase from the store's phrase table
// found in the text, scanning in the table's defined order.
func (p *Parser) extractBusinessType(textLower string) string {
	for _, phrase := range p.store.PhraseOrder() {
		if strings.Contains(textLower, phrase) {
			return phrase
		}
	}
	return ""
}

// extractFeatures collects every feature phrase present in the text, ordered
// by the position they occur at, not by table order.
func extractFeatures(textLower string) []string {
	type hit struct {
		pos    int
		phrase string
	}
	var hits []hit
	for _, entry := range featureTags {
		if idx := strings.Index(textLower, entry.Phrase); idx >= 0 {
			hits = append(hits, hit{pos: idx, phrase: entry.Phrase})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	features := make([]string, 0, len(hits))
	for _, h := range hits {
		features = append(features, h.phrase)
	}
	return features
}

// extractLocationRefs collects all non-overlapping matches from the three
// location pattern groups, in pattern-group order.
func extractLocationRefs(text string) []string {
	var refs []string
	for _, pattern := range locationPatterns {
		for _, m := range pattern.FindAllStringSubmatch(text, -1) {
			ref := strings.TrimSpace(m[1])
			if ref != "" {
				refs = append(refs, ref)
			}
		}
	}
	return refs
}
