package mcp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"osmedit/internal/config"
	"osmedit/internal/logging"
	"osmedit/internal/osm"
	"osmedit/internal/tags"

	"github.com/mark3labs/mcp-go/mcp"
)

// testServer builds a Server with the fallback tag corpus and an OSM client
// pointed at the given handler. Handler may be nil for engine-only tests.
func testServer(t *testing.T, handler http.Handler) *Server {
	t.Helper()

	cfg := config.DefaultConfig()
	logger, _ := logging.NewTestLogger()

	if handler != nil {
		srv := httptest.NewServer(handler)
		t.Cleanup(srv.Close)
		cfg.UseDevAPI = false
		cfg.APIBase = srv.URL
	}

	store := tags.NewStore(logger)
	store.Load("does-not-exist.json")

	return &Server{
		cfg:       &cfg,
		logger:    logger,
		store:     store,
		engine:    tags.NewEngine(store),
		osmClient: osm.NewClient(&cfg, logger, nil),
	}
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// resultText extracts the text payload of a tool result.
func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("tool result has no content")
	}
	text, ok := mcp.AsTextContent(result.Content[0])
	if !ok {
		t.Fatalf("tool result content is %T, want text", result.Content[0])
	}
	return text.Text
}

func decodeResult(t *testing.T, result *mcp.CallToolResult, v any) {
	t.Helper()
	if result.IsError {
		t.Fatalf("tool returned error: %s", resultText(t, result))
	}
	if err := json.Unmarshal([]byte(resultText(t, result)), v); err != nil {
		t.Fatalf("decoding tool result: %v", err)
	}
}

func TestHandleParseNaturalLanguageTags(t *testing.T) {
	s := testServer(t, nil)

	result, err := s.handleParseNaturalLanguageTags(context.Background(),
		callRequest(map[string]any{"description": "coffee shop with wifi"}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var payload struct {
		SuggestedTags map[string]string `json:"suggested_tags"`
	}
	decodeResult(t, result, &payload)
	if payload.SuggestedTags["amenity"] != "cafe" {
		t.Errorf("suggested_tags = %v, want amenity=cafe", payload.SuggestedTags)
	}
	if payload.SuggestedTags["internet_access"] != "wlan" {
		t.Errorf("suggested_tags = %v, want internet_access=wlan", payload.SuggestedTags)
	}
}

func TestHandleParseNaturalLanguageTagsRequiresDescription(t *testing.T) {
	s := testServer(t, nil)

	result, err := s.handleParseNaturalLanguageTags(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !result.IsError {
		t.Error("expected error result for missing description")
	}
}

func TestHandleValidateTags(t *testing.T) {
	s := testServer(t, nil)

	result, err := s.handleValidateTags(context.Background(), callRequest(map[string]any{
		"tags": map[string]any{"name": "", "amenity": "cafe"},
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var payload struct {
		ValidationResults []tags.ValidationResult `json:"validation_results"`
		HasErrors         bool                    `json:"has_errors"`
	}
	decodeResult(t, result, &payload)
	if !payload.HasErrors {
		t.Error("empty name should produce an error-level result")
	}
	if len(payload.ValidationResults) != 2 {
		t.Errorf("got %d validation results, want 2", len(payload.ValidationResults))
	}
}

func TestHandleMergeTags(t *testing.T) {
	s := testServer(t, nil)

	result, err := s.handleMergeTags(context.Background(), callRequest(map[string]any{
		"existing_tags": map[string]any{"amenity": "cafe", "name": "Old Name"},
		"new_tags":      map[string]any{"name": "New Name", "cuisine": "coffee_shop"},
		"merge_policy":  "use_new",
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var merged tags.MergeResult
	decodeResult(t, result, &merged)
	if merged.Merged["name"] != "New Name" {
		t.Errorf("merged name = %q, want New Name", merged.Merged["name"])
	}
	if len(merged.Added) != 1 || merged.Added[0] != "cuisine" {
		t.Errorf("added_tags = %v, want [cuisine]", merged.Added)
	}
}

func TestHandleMergeTagsRejectsBadPolicy(t *testing.T) {
	s := testServer(t, nil)

	result, err := s.handleMergeTags(context.Background(), callRequest(map[string]any{
		"existing_tags": map[string]any{"amenity": "cafe"},
		"new_tags":      map[string]any{"name": "X"},
		"merge_policy":  "overwrite",
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !result.IsError {
		t.Error("expected error result for unknown merge policy")
	}
}

func TestHandleSuggestTagsPipeline(t *testing.T) {
	s := testServer(t, nil)

	result, err := s.handleSuggestTags(context.Background(), callRequest(map[string]any{
		"description":   "restaurant with parking",
		"existing_tags": map[string]any{"name": "Mario's"},
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var pipeline tags.PipelineResult
	decodeResult(t, result, &pipeline)
	if pipeline.MergedTags["amenity"] != "restaurant" {
		t.Errorf("merged_tags = %v, want amenity=restaurant", pipeline.MergedTags)
	}
	if pipeline.MergedTags["name"] != "Mario's" {
		t.Errorf("existing name should survive the merge, got %v", pipeline.MergedTags)
	}
}

func TestHandleCreateFeatureRefusesWhenNothingInferred(t *testing.T) {
	s := testServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no API call expected, got %s %s", r.Method, r.URL.Path)
	}))

	// No business type, feature or phrase matches, so nothing may be
	// uploaded.
	result, err := s.handleCreateFeatureWithNaturalLanguage(context.Background(), callRequest(map[string]any{
		"description": "some nondescript thing",
		"lat":         40.7,
		"lon":         -74.0,
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected refusal for unvalidatable tags")
	}
}

func TestHandleCreateFeatureRefusesNameOnlyDescription(t *testing.T) {
	s := testServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no API call expected, got %s %s", r.Method, r.URL.Path)
	}))

	// The quoted name parses, but nothing else does; a name-only node must
	// not be uploaded.
	result, err := s.handleCreateFeatureWithNaturalLanguage(context.Background(), callRequest(map[string]any{
		"description": "a place called 'Mystery Spot'",
		"lat":         40.7,
		"lon":         -74.0,
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected refusal for a name-only description")
	}
}

func TestHandleCreateFeatureUploadsNode(t *testing.T) {
	var paths []string
	s := testServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		switch {
		case strings.HasSuffix(r.URL.Path, "/changeset/create"):
			w.Write([]byte("101"))
		case strings.HasSuffix(r.URL.Path, "/node/create"):
			w.Write([]byte("555"))
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))

	result, err := s.handleCreateFeatureWithNaturalLanguage(context.Background(), callRequest(map[string]any{
		"description": "coffee shop called 'Bean There'",
		"lat":         40.7,
		"lon":         -74.0,
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var payload struct {
		NodeID      int64             `json:"node_id"`
		ChangesetID int64             `json:"changeset_id"`
		Tags        map[string]string `json:"tags"`
	}
	decodeResult(t, result, &payload)
	if payload.NodeID != 555 || payload.ChangesetID != 101 {
		t.Errorf("node_id=%d changeset_id=%d, want 555 and 101", payload.NodeID, payload.ChangesetID)
	}
	if payload.Tags["amenity"] != "cafe" {
		t.Errorf("uploaded tags = %v, want amenity=cafe", payload.Tags)
	}
	if payload.Tags["name"] != "Bean There" {
		t.Errorf("uploaded tags = %v, want name=Bean There", payload.Tags)
	}
	if len(paths) != 3 {
		t.Errorf("API calls = %v, want changeset create, node create, changeset close", paths)
	}
}

func TestHandleUpdateNodeTagsMergesBeforeUpload(t *testing.T) {
	const nodeXML = `<osm version="0.6"><node id="42" lat="40.7" lon="-74.0" version="3" changeset="9">` +
		`<tag k="amenity" v="cafe"/><tag k="name" v="Old Name"/></node></osm>`

	var uploaded string
	s := testServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Write([]byte(nodeXML))
		case http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			uploaded = string(body)
			w.Write([]byte("4"))
		}
	}))

	result, err := s.handleUpdateNodeTags(context.Background(), callRequest(map[string]any{
		"id":           float64(42),
		"changeset_id": float64(7),
		"tags":         map[string]any{"name": "New Name", "cuisine": "coffee_shop"},
		"merge_policy": "use_new",
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var payload struct {
		NodeID     int64             `json:"node_id"`
		NewVersion int               `json:"new_version"`
		MergedTags map[string]string `json:"merged_tags"`
		Conflicts  []tags.Conflict   `json:"conflicts"`
	}
	decodeResult(t, result, &payload)
	if payload.NodeID != 42 || payload.NewVersion != 4 {
		t.Errorf("node_id=%d new_version=%d, want 42 and 4", payload.NodeID, payload.NewVersion)
	}
	if payload.MergedTags["name"] != "New Name" || payload.MergedTags["amenity"] != "cafe" {
		t.Errorf("merged_tags = %v", payload.MergedTags)
	}
	if len(payload.Conflicts) != 1 || payload.Conflicts[0].Key != "name" {
		t.Errorf("conflicts = %+v, want the name conflict", payload.Conflicts)
	}
	if !strings.Contains(uploaded, `k="cuisine"`) || !strings.Contains(uploaded, `changeset="7"`) {
		t.Errorf("uploaded body = %s", uploaded)
	}
}

func TestHandleDeleteNode(t *testing.T) {
	const nodeXML = `<osm version="0.6"><node id="42" lat="40.7" lon="-74.0" version="3"/></osm>`

	s := testServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Write([]byte(nodeXML))
		case http.MethodDelete:
			w.Write([]byte("4"))
		}
	}))

	result, err := s.handleDeleteNode(context.Background(), callRequest(map[string]any{
		"id":           float64(42),
		"changeset_id": float64(7),
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var payload struct {
		Deleted    bool `json:"deleted"`
		NewVersion int  `json:"new_version"`
	}
	decodeResult(t, result, &payload)
	if !payload.Deleted || payload.NewVersion != 4 {
		t.Errorf("payload = %+v", payload)
	}
}

func TestHandleCreateWay(t *testing.T) {
	s := testServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("900"))
	}))

	result, err := s.handleCreateWay(context.Background(), callRequest(map[string]any{
		"changeset_id": float64(7),
		"node_ids":     "1, 2, 3",
		"tags":         map[string]any{"highway": "footway"},
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var payload struct {
		WayID int64 `json:"way_id"`
	}
	decodeResult(t, result, &payload)
	if payload.WayID != 900 {
		t.Errorf("way_id = %d, want 900", payload.WayID)
	}
}

func TestParseNodeIDs(t *testing.T) {
	tests := []struct {
		input   string
		want    []int64
		wantErr bool
	}{
		{"1,2,3", []int64{1, 2, 3}, false},
		{" 1 , 2 ", []int64{1, 2}, false},
		{"1", nil, true},
		{"", nil, true},
		{"1,x", nil, true},
	}
	for _, tt := range tests {
		got, err := parseNodeIDs(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseNodeIDs(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if tt.wantErr {
			continue
		}
		if len(got) != len(tt.want) {
			t.Errorf("parseNodeIDs(%q) = %v, want %v", tt.input, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("parseNodeIDs(%q) = %v, want %v", tt.input, got, tt.want)
				break
			}
		}
	}
}

func TestMemberArgument(t *testing.T) {
	req := callRequest(map[string]any{
		"members": []any{
			map[string]any{"type": "way", "ref": float64(10), "role": "outer"},
			map[string]any{"type": "node", "ref": float64(20)},
		},
	})
	members, err := memberArgument(req)
	if err != nil {
		t.Fatalf("memberArgument: %v", err)
	}
	if len(members) != 2 || members[0].Role != "outer" || members[1].Ref != 20 {
		t.Errorf("members = %+v", members)
	}
}

func TestMemberArgumentRejectsBadEntries(t *testing.T) {
	bad := []map[string]any{
		{"members": "way/10"},
		{"members": []any{}},
		{"members": []any{map[string]any{"type": "area", "ref": float64(1)}}},
		{"members": []any{map[string]any{"type": "node"}}},
	}
	for i, args := range bad {
		if _, err := memberArgument(callRequest(args)); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
}

func TestTagArgumentStringifiesValues(t *testing.T) {
	req := callRequest(map[string]any{
		"tags": map[string]any{"lanes": float64(2), "highway": "residential"},
	})
	set, err := tagArgument(req, "tags")
	if err != nil {
		t.Fatalf("tagArgument: %v", err)
	}
	if set["lanes"] != "2" || set["highway"] != "residential" {
		t.Errorf("tags = %v", set)
	}
}

func TestTagArgumentRejectsNonObject(t *testing.T) {
	req := callRequest(map[string]any{"tags": "amenity=cafe"})
	if _, err := tagArgument(req, "tags"); err == nil {
		t.Error("expected error for non-object tags argument")
	}
}

func TestMergePolicyParsing(t *testing.T) {
	tests := []struct {
		input   string
		want    tags.MergePolicy
		wantErr bool
	}{
		{"", tags.PolicyAsk, false},
		{"ask", tags.PolicyAsk, false},
		{"keep_existing", tags.PolicyKeepExisting, false},
		{"use_new", tags.PolicyUseNew, false},
		{"overwrite", "", true},
	}
	for _, tt := range tests {
		got, err := mergePolicy(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("mergePolicy(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("mergePolicy(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestParseElementURI(t *testing.T) {
	tests := []struct {
		uri      string
		wantType osm.ElementType
		wantID   int64
		wantErr  bool
	}{
		{"osm://element/node/123", osm.TypeNode, 123, false},
		{"osm://element/way/456", osm.TypeWay, 456, false},
		{"osm://element/relation/789", osm.TypeRelation, 789, false},
		{"osm://element/area/1", "", 0, true},
		{"osm://element/node", "", 0, true},
		{"osm://element/node/abc", "", 0, true},
		{"osm://changeset/1", "", 0, true},
	}
	for _, tt := range tests {
		gotType, gotID, err := parseElementURI(tt.uri)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseElementURI(%q) error = %v, wantErr %v", tt.uri, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && (gotType != tt.wantType || gotID != tt.wantID) {
			t.Errorf("parseElementURI(%q) = %q, %d", tt.uri, gotType, gotID)
		}
	}
}
