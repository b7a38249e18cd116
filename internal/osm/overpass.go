package osm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// OverpassElement is one element from an Overpass JSON response. Ways and
// relations carry a center point instead of lat/lon when the query asks for
// one.
type OverpassElement struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    float64           `json:"lat,omitempty"`
	Lon    float64           `json:"lon,omitempty"`
	Center *OverpassCenter   `json:"center,omitempty"`
	Tags   map[string]string `json:"tags,omitempty"`
}

// OverpassCenter is the computed centroid of a way or relation.
type OverpassCenter struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type overpassResponse struct {
	Elements []OverpassElement `json:"elements"`
}

// QueryOverpass runs a raw Overpass QL query and returns the decoded
// elements. The query must request JSON output ([out:json]).
func (c *Client) QueryOverpass(ctx context.Context, query string) ([]OverpassElement, error) {
	form := url.Values{"data": {query}}
	data, err := c.do(ctx, "POST", c.cfg.OverpassAPIBase, []byte(form.Encode()), "application/x-www-form-urlencoded")
	if err != nil {
		return nil, err
	}

	var resp overpassResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode overpass response: %w", err)
	}
	return resp.Elements, nil
}

// FindNearbyAmenities finds elements tagged with the given key (and optional
// value) within radius meters of a point.
func (c *Client) FindNearbyAmenities(ctx context.Context, lat, lon float64, radius int, key, value string) ([]OverpassElement, error) {
	if err := ValidateCoordinates(lat, lon); err != nil {
		return nil, err
	}
	if radius <= 0 {
		radius = 500
	}

	filter := fmt.Sprintf("[%q]", key)
	if value != "" {
		filter = fmt.Sprintf("[%q=%q]", key, value)
	}

	var q strings.Builder
	fmt.Fprintf(&q, "[out:json][timeout:25];\n(\n")
	for _, kind := range []string{"node", "way"} {
		fmt.Fprintf(&q, "  %s%s(around:%d,%v,%v);\n", kind, filter, radius, lat, lon)
	}
	fmt.Fprintf(&q, ");\nout center;")

	c.logger.Debug("Overpass query", "key", key, "value", value, "radius", radius)
	return c.QueryOverpass(ctx, q.String())
}

// QueryByTag finds elements with a given tag inside a bounding box via
// Overpass. Cheaper than QueryMap when only one tag matters.
func (c *Client) QueryByTag(ctx context.Context, bbox BoundingBox, key, value string) ([]OverpassElement, error) {
	filter := fmt.Sprintf("[%q]", key)
	if value != "" {
		filter = fmt.Sprintf("[%q=%q]", key, value)
	}
	q := fmt.Sprintf("[out:json][timeout:25];\n(\n  node%[1]s(%v,%v,%v,%v);\n  way%[1]s(%v,%v,%v,%v);\n);\nout center;",
		filter,
		bbox.MinLat, bbox.MinLon, bbox.MaxLat, bbox.MaxLon,
		bbox.MinLat, bbox.MinLon, bbox.MaxLat, bbox.MaxLon)
	return c.QueryOverpass(ctx, q)
}
