// Package osm is the thin I/O layer around the OSM API v0.6 and its
// companion services (Overpass, Nominatim). The tag engine never calls out;
// every network operation lives here, takes a context, and returns wrapped
// errors.
package osm

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"osmedit/internal/config"
	"osmedit/internal/logging"
)

// ElementType identifies the three OSM element kinds.
type ElementType string

const (
	TypeNode     ElementType = "node"
	TypeWay      ElementType = "way"
	TypeRelation ElementType = "relation"
)

// ValidElementType reports whether s names an OSM element kind.
func ValidElementType(s string) bool {
	switch ElementType(s) {
	case TypeNode, TypeWay, TypeRelation:
		return true
	}
	return false
}

// Client talks to the OSM editing API. Reads work unauthenticated; writes
// need an http.Client carrying OAuth credentials (see Authenticator).
type Client struct {
	cfg        *config.Config
	logger     *logging.AppLogger
	httpClient *http.Client
}

// NewClient creates an API client. Pass nil for httpClient to get an
// unauthenticated client with a default timeout.
func NewClient(cfg *config.Config, logger *logging.AppLogger, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{cfg: cfg, logger: logger, httpClient: httpClient}
}

// Tag is the XML wire form of one OSM tag.
type Tag struct {
	Key   string `xml:"k,attr" json:"k"`
	Value string `xml:"v,attr" json:"v"`
}

// Node is an OSM node as carried on the wire.
type Node struct {
	XMLName   xml.Name `xml:"node" json:"-"`
	ID        int64    `xml:"id,attr,omitempty" json:"id,omitempty"`
	Lat       float64  `xml:"lat,attr" json:"lat"`
	Lon       float64  `xml:"lon,attr" json:"lon"`
	Version   int      `xml:"version,attr,omitempty" json:"version,omitempty"`
	Changeset int64    `xml:"changeset,attr,omitempty" json:"changeset,omitempty"`
	User      string   `xml:"user,attr,omitempty" json:"user,omitempty"`
	UID       int64    `xml:"uid,attr,omitempty" json:"uid,omitempty"`
	Timestamp string   `xml:"timestamp,attr,omitempty" json:"timestamp,omitempty"`
	Tags      []Tag    `xml:"tag" json:"tags"`
}

// NodeRef is one node reference inside a way.
type NodeRef struct {
	Ref int64 `xml:"ref,attr" json:"ref"`
}

// Way is an OSM way as carried on the wire.
type Way struct {
	XMLName   xml.Name  `xml:"way" json:"-"`
	ID        int64     `xml:"id,attr,omitempty" json:"id,omitempty"`
	Version   int       `xml:"version,attr,omitempty" json:"version,omitempty"`
	Changeset int64     `xml:"changeset,attr,omitempty" json:"changeset,omitempty"`
	User      string    `xml:"user,attr,omitempty" json:"user,omitempty"`
	UID       int64     `xml:"uid,attr,omitempty" json:"uid,omitempty"`
	Timestamp string    `xml:"timestamp,attr,omitempty" json:"timestamp,omitempty"`
	NodeRefs  []NodeRef `xml:"nd" json:"nodes"`
	Tags      []Tag     `xml:"tag" json:"tags"`
}

// Member is one relation member.
type Member struct {
	Type string `xml:"type,attr" json:"type"`
	Ref  int64  `xml:"ref,attr" json:"ref"`
	Role string `xml:"role,attr" json:"role"`
}

// Relation is an OSM relation as carried on the wire.
type Relation struct {
	XMLName   xml.Name `xml:"relation" json:"-"`
	ID        int64    `xml:"id,attr,omitempty" json:"id,omitempty"`
	Version   int      `xml:"version,attr,omitempty" json:"version,omitempty"`
	Changeset int64    `xml:"changeset,attr,omitempty" json:"changeset,omitempty"`
	User      string   `xml:"user,attr,omitempty" json:"user,omitempty"`
	UID       int64    `xml:"uid,attr,omitempty" json:"uid,omitempty"`
	Timestamp string   `xml:"timestamp,attr,omitempty" json:"timestamp,omitempty"`
	Members   []Member `xml:"member" json:"members"`
	Tags      []Tag    `xml:"tag" json:"tags"`
}

// osmFile is the <osm> document root the API wraps every payload in.
type osmFile struct {
	XMLName   xml.Name    `xml:"osm"`
	Version   string      `xml:"version,attr,omitempty"`
	Generator string      `xml:"generator,attr,omitempty"`
	Nodes     []Node      `xml:"node"`
	Ways      []Way       `xml:"way"`
	Relations []Relation  `xml:"relation"`
	Changeset []Changeset `xml:"changeset"`
}

// Changeset is an OSM changeset as carried on the wire.
type Changeset struct {
	XMLName      xml.Name `xml:"changeset" json:"-"`
	ID           int64    `xml:"id,attr,omitempty" json:"id,omitempty"`
	CreatedAt    string   `xml:"created_at,attr,omitempty" json:"created_at,omitempty"`
	ClosedAt     string   `xml:"closed_at,attr,omitempty" json:"closed_at,omitempty"`
	Open         bool     `xml:"open,attr,omitempty" json:"open"`
	User         string   `xml:"user,attr,omitempty" json:"user,omitempty"`
	UID          int64    `xml:"uid,attr,omitempty" json:"uid,omitempty"`
	ChangesCount int      `xml:"changes_count,attr,omitempty" json:"changes_count"`
	Tags         []Tag    `xml:"tag" json:"tags"`
}

// TagsToWire converts a tag map to its XML form, in sorted key order so
// request bodies are reproducible.
func TagsToWire(tags map[string]string) []Tag {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	wire := make([]Tag, 0, len(keys))
	for _, k := range keys {
		wire = append(wire, Tag{Key: k, Value: tags[k]})
	}
	return wire
}

// WireToTags converts XML tags back to a map.
func WireToTags(wire []Tag) map[string]string {
	tags := make(map[string]string, len(wire))
	for _, t := range wire {
		tags[t.Key] = t.Value
	}
	return tags
}

// ValidateCoordinates checks WGS84 bounds.
func ValidateCoordinates(lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", lat)
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", lon)
	}
	return nil
}

// BoundingBox is a lat/lon query window.
type BoundingBox struct {
	MinLat, MinLon, MaxLat, MaxLon float64
}

// ParseBoundingBox parses "min_lat,min_lon,max_lat,max_lon".
func ParseBoundingBox(s string) (BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BoundingBox{}, fmt.Errorf("bounding box must have 4 coordinates, got %d", len(parts))
	}
	coords := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return BoundingBox{}, fmt.Errorf("invalid bounding box coordinate %q: %w", p, err)
		}
		coords[i] = v
	}
	bbox := BoundingBox{MinLat: coords[0], MinLon: coords[1], MaxLat: coords[2], MaxLon: coords[3]}
	if err := ValidateCoordinates(bbox.MinLat, bbox.MinLon); err != nil {
		return BoundingBox{}, err
	}
	if err := ValidateCoordinates(bbox.MaxLat, bbox.MaxLon); err != nil {
		return BoundingBox{}, err
	}
	return bbox, nil
}

func (c *Client) url(path string) string {
	return c.cfg.EffectiveAPIBase() + path
}

func (c *Client) do(ctx context.Context, method, url string, body []byte, contentType string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: reading response: %w", method, url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s %s: status %d: %s", method, url, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return data, nil
}

// marshalOSM wraps a payload in the <osm> document root.
func marshalOSM(doc osmFile) ([]byte, error) {
	doc.Version = "0.6"
	data, err := xml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode osm document: %w", err)
	}
	return append([]byte(xml.Header), data...), nil
}

func decodeOSM(data []byte) (*osmFile, error) {
	var doc osmFile
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode osm document: %w", err)
	}
	return &doc, nil
}
