package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"osmedit/internal/config"
	"osmedit/internal/logging"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRouter builds a router backed by the fallback tag corpus and an
// optional fake OSM API.
func newTestRouter(t *testing.T, apiKey string, osmHandler http.Handler) *gin.Engine {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.HTTPAPIKey = apiKey
	cfg.TagStandardsFile = "does-not-exist.json"

	if osmHandler != nil {
		backend := httptest.NewServer(osmHandler)
		t.Cleanup(backend.Close)
		cfg.UseDevAPI = false
		cfg.APIBase = backend.URL
		cfg.NominatimAPIBase = backend.URL + "/nominatim"
		cfg.OverpassAPIBase = backend.URL + "/overpass"
	}

	logger, _ := logging.NewTestLogger()
	return NewServer(&cfg, logger).SetupRouter()
}

func doJSON(t *testing.T, router *gin.Engine, method, path, apiKey string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestNewServerLogsFallbackOnce(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.TagStandardsFile = "does-not-exist.json"
	logger, buf := logging.NewTestLogger()

	NewServer(&cfg, logger)
	assert.Equal(t, 1, strings.Count(buf.String(), "fallback"), buf.String())
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t, "", nil)

	w := doJSON(t, router, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestAPIKeyMiddleware(t *testing.T) {
	router := newTestRouter(t, "secret", nil)

	w := doJSON(t, router, "POST", "/api/parse", "", map[string]string{"text": "find cafes"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, router, "POST", "/api/parse", "wrong", map[string]string{"text": "find cafes"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, router, "POST", "/api/parse", "secret", map[string]string{"text": "find cafes"})
	assert.Equal(t, http.StatusOK, w.Code)

	// Health stays open.
	w = doJSON(t, router, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestParseEndpoint(t *testing.T) {
	router := newTestRouter(t, "", nil)

	w := doJSON(t, router, "POST", "/api/parse", "", map[string]string{
		"text": "Create a restaurant called 'Joe's Diner' at 40.7128, -74.0060",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var parsed struct {
		Action       string `json:"action"`
		Name         string `json:"name"`
		BusinessType string `json:"business_type"`
		Coordinates  *struct {
			Lat float64 `json:"lat"`
			Lon float64 `json:"lon"`
		} `json:"coordinates"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	assert.Equal(t, "create", parsed.Action)
	assert.Equal(t, "Joe's Diner", parsed.Name)
	assert.Equal(t, "restaurant", parsed.BusinessType)
	require.NotNil(t, parsed.Coordinates)
	assert.InDelta(t, 40.7128, parsed.Coordinates.Lat, 1e-9)
}

func TestParseEndpointRequiresText(t *testing.T) {
	router := newTestRouter(t, "", nil)

	w := doJSON(t, router, "POST", "/api/parse", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSuggestEndpoint(t *testing.T) {
	router := newTestRouter(t, "", nil)

	w := doJSON(t, router, "POST", "/api/suggest", "", map[string]any{
		"description":   "coffee shop with wifi",
		"existing_tags": map[string]string{"name": "Bean There"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var result struct {
		MergedTags map[string]string `json:"merged_tags"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "cafe", result.MergedTags["amenity"])
	assert.Equal(t, "wlan", result.MergedTags["internet_access"])
	assert.Equal(t, "Bean There", result.MergedTags["name"])
}

func TestValidateEndpoint(t *testing.T) {
	router := newTestRouter(t, "", nil)

	w := doJSON(t, router, "POST", "/api/validate", "", map[string]any{
		"tags": map[string]string{"amenity": "definitely_not_a_thing"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var result struct {
		ValidationResults []struct {
			Level string `json:"level"`
		} `json:"validation_results"`
		HasErrors bool `json:"has_errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Len(t, result.ValidationResults, 1)
	assert.Equal(t, "warning", result.ValidationResults[0].Level)
	assert.False(t, result.HasErrors)
}

func TestMergeEndpoint(t *testing.T) {
	router := newTestRouter(t, "", nil)

	w := doJSON(t, router, "POST", "/api/merge", "", map[string]any{
		"existing_tags": map[string]string{"amenity": "cafe"},
		"new_tags":      map[string]string{"amenity": "restaurant", "cuisine": "pizza"},
		"merge_policy":  "keep_existing",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var result struct {
		MergedTags map[string]string `json:"merged_tags"`
		Conflicts  []struct {
			Key string `json:"key"`
		} `json:"conflicts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "cafe", result.MergedTags["amenity"])
	assert.Equal(t, "pizza", result.MergedTags["cuisine"])
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, "amenity", result.Conflicts[0].Key)
}

func TestMergeEndpointRejectsBadPolicy(t *testing.T) {
	router := newTestRouter(t, "", nil)

	w := doJSON(t, router, "POST", "/api/merge", "", map[string]any{
		"existing_tags": map[string]string{"amenity": "cafe"},
		"new_tags":      map[string]string{"cuisine": "pizza"},
		"merge_policy":  "overwrite",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetNodeEndpoint(t *testing.T) {
	router := newTestRouter(t, "", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<osm version="0.6"><node id="42" lat="40.7" lon="-74.0" version="3"><tag k="amenity" v="cafe"/></node></osm>`))
	}))

	w := doJSON(t, router, "GET", "/api/node/42", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var node struct {
		ID   int64 `json:"id"`
		Tags []struct {
			Key   string `json:"k"`
			Value string `json:"v"`
		} `json:"tags"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &node))
	assert.Equal(t, int64(42), node.ID)
	require.Len(t, node.Tags, 1)
	assert.Equal(t, "cafe", node.Tags[0].Value)
}

func TestGetNodeEndpointRejectsBadID(t *testing.T) {
	router := newTestRouter(t, "", nil)

	w := doJSON(t, router, "GET", "/api/node/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlaceFromDescription(t *testing.T) {
	var paths []string
	router := newTestRouter(t, "", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		switch {
		case strings.HasSuffix(r.URL.Path, "/changeset/create"):
			w.Write([]byte("9"))
		case strings.HasSuffix(r.URL.Path, "/node/create"):
			w.Write([]byte("1234"))
		}
	}))

	w := doJSON(t, router, "POST", "/api/place-from-description", "", map[string]any{
		"description": "bakery called 'Crusty Corner'",
		"lat":         51.5,
		"lon":         -0.12,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var result struct {
		NodeID      int64             `json:"node_id"`
		ChangesetID int64             `json:"changeset_id"`
		Tags        map[string]string `json:"tags"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, int64(1234), result.NodeID)
	assert.Equal(t, int64(9), result.ChangesetID)
	assert.Equal(t, "bakery", result.Tags["shop"])
	assert.Equal(t, "Crusty Corner", result.Tags["name"])
	assert.Len(t, paths, 3)
}

func TestPlaceFromDescriptionRefusesNameOnly(t *testing.T) {
	router := newTestRouter(t, "", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no API call expected, got %s", r.URL.Path)
	}))

	// The quoted name parses, but nothing else does; a name-only node must
	// not be uploaded.
	w := doJSON(t, router, "POST", "/api/place-from-description", "", map[string]any{
		"description": "a place called 'Mystery Spot'",
		"lat":         51.5,
		"lon":         -0.12,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
}

func TestPlaceFromDescriptionRefusesWhenNothingInferred(t *testing.T) {
	router := newTestRouter(t, "", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no API call expected, got %s", r.URL.Path)
	}))

	w := doJSON(t, router, "POST", "/api/place-from-description", "", map[string]any{
		"description": "a mysterious nothing",
		"lat":         51.5,
		"lon":         -0.12,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestGeocodeEndpoint(t *testing.T) {
	router := newTestRouter(t, "", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/nominatim/search") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`[{"place_id":1,"osm_type":"node","osm_id":2,"lat":"51.5","lon":"-0.12","display_name":"London"}]`))
	}))

	w := doJSON(t, router, "GET", "/api/geocode?q=London", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "London")
}

func TestTagValuesEndpoint(t *testing.T) {
	router := newTestRouter(t, "", nil)

	w := doJSON(t, router, "GET", "/api/tags/values/amenity", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var result struct {
		Values []struct {
			Value string `json:"value"`
		} `json:"values"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.NotEmpty(t, result.Values)
}

func TestTagStatisticsEndpoint(t *testing.T) {
	router := newTestRouter(t, "", nil)

	w := doJSON(t, router, "GET", "/api/tags/statistics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "primary_tag_categories")
}
