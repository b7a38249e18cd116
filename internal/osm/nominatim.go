package osm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// Place is one Nominatim search result.
type Place struct {
	PlaceID     int64             `json:"place_id"`
	OSMType     string            `json:"osm_type"`
	OSMID       int64             `json:"osm_id"`
	Lat         string            `json:"lat"`
	Lon         string            `json:"lon"`
	DisplayName string            `json:"display_name"`
	Class       string            `json:"class"`
	Type        string            `json:"type"`
	Address     map[string]string `json:"address,omitempty"`
}

// Coordinates parses the string lat/lon Nominatim returns.
func (p *Place) Coordinates() (lat, lon float64, err error) {
	lat, err = strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude %q: %w", p.Lat, err)
	}
	lon, err = strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude %q: %w", p.Lon, err)
	}
	return lat, lon, nil
}

// Geocode resolves a free-form query (address, place name) to places.
func (c *Client) Geocode(ctx context.Context, query string, limit int) ([]Place, error) {
	if limit <= 0 {
		limit = 5
	}
	params := url.Values{
		"q":              {query},
		"format":         {"jsonv2"},
		"limit":          {strconv.Itoa(limit)},
		"addressdetails": {"1"},
	}
	data, err := c.do(ctx, "GET", c.cfg.NominatimAPIBase+"/search?"+params.Encode(), nil, "")
	if err != nil {
		return nil, err
	}

	var places []Place
	if err := json.Unmarshal(data, &places); err != nil {
		return nil, fmt.Errorf("failed to decode geocode response: %w", err)
	}
	return places, nil
}

// ReverseGeocode resolves coordinates to the nearest place.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (*Place, error) {
	if err := ValidateCoordinates(lat, lon); err != nil {
		return nil, err
	}
	params := url.Values{
		"lat":            {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon":            {strconv.FormatFloat(lon, 'f', -1, 64)},
		"format":         {"jsonv2"},
		"addressdetails": {"1"},
	}
	data, err := c.do(ctx, "GET", c.cfg.NominatimAPIBase+"/reverse?"+params.Encode(), nil, "")
	if err != nil {
		return nil, err
	}

	var place Place
	if err := json.Unmarshal(data, &place); err != nil {
		return nil, fmt.Errorf("failed to decode reverse geocode response: %w", err)
	}
	return &place, nil
}
