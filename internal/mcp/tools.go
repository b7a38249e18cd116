package mcp

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"osmedit/internal/osm"
	"osmedit/internal/tags"

	"github.com/mark3labs/mcp-go/mcp"
)

// registerTools registers the tag engine tools and the thin OSM API tools.
func (s *Server) registerTools() {
	parseTagsTool := mcp.NewTool("parse_natural_language_tags",
		mcp.WithDescription("Convert a natural language place description into suggested OSM tags with confidence scores"),
		mcp.WithString("description",
			mcp.Required(),
			mcp.Description("Free-form description, e.g. 'coffee shop with wifi and outdoor seating'"),
		),
	)
	s.mcpServer.AddTool(parseTagsTool, s.handleParseNaturalLanguageTags)

	validateTool := mcp.NewTool("validate_tags",
		mcp.WithDescription("Validate OSM tags against known tag standards. Returns one result per tag with level error, warning, info or valid"),
		mcp.WithObject("tags",
			mcp.Required(),
			mcp.Description("Tag key/value pairs to validate"),
		),
	)
	s.mcpServer.AddTool(validateTool, s.handleValidateTags)

	suggestTool := mcp.NewTool("suggest_tags",
		mcp.WithDescription("Full pipeline: parse a description, suggest tags, merge with existing tags and validate the merged set"),
		mcp.WithString("description",
			mcp.Required(),
			mcp.Description("Free-form description of the place"),
		),
		mcp.WithObject("existing_tags",
			mcp.Description("Tags already on the element, if any"),
		),
		mcp.WithString("merge_policy",
			mcp.Description("Conflict policy: keep_existing, use_new or ask (default ask)"),
		),
	)
	s.mcpServer.AddTool(suggestTool, s.handleSuggestTags)

	mergeTool := mcp.NewTool("merge_tags",
		mcp.WithDescription("Merge new tags into existing tags, reporting added tags, updated tags and conflicts"),
		mcp.WithObject("existing_tags",
			mcp.Required(),
			mcp.Description("Current tags on the element"),
		),
		mcp.WithObject("new_tags",
			mcp.Required(),
			mcp.Description("Tags to merge in"),
		),
		mcp.WithString("merge_policy",
			mcp.Description("Conflict policy: keep_existing, use_new or ask (default ask)"),
		),
	)
	s.mcpServer.AddTool(mergeTool, s.handleMergeTags)

	explainTool := mcp.NewTool("explain_tags",
		mcp.WithDescription("Explain what a set of OSM tags means in plain language"),
		mcp.WithObject("tags",
			mcp.Required(),
			mcp.Description("Tag key/value pairs to explain"),
		),
	)
	s.mcpServer.AddTool(explainTool, s.handleExplainTags)

	discoverTool := mcp.NewTool("discover_related_tags",
		mcp.WithDescription("Suggest complementary tags commonly used alongside the given primary tags"),
		mcp.WithObject("tags",
			mcp.Required(),
			mcp.Description("Primary tags already chosen"),
		),
		mcp.WithString("element_type",
			mcp.Description("Element kind the tags will go on: node, way or relation"),
		),
	)
	s.mcpServer.AddTool(discoverTool, s.handleDiscoverRelatedTags)

	docTool := mcp.NewTool("get_tag_documentation",
		mcp.WithDescription("Get the documentation text for a tag key or key=value pair"),
		mcp.WithString("key",
			mcp.Required(),
			mcp.Description("Tag key, e.g. amenity"),
		),
		mcp.WithString("value",
			mcp.Description("Tag value, e.g. cafe"),
		),
	)
	s.mcpServer.AddTool(docTool, s.handleGetTagDocumentation)

	valuesTool := mcp.NewTool("suggest_tag_values",
		mcp.WithDescription("Suggest common values for a tag key, optionally filtered by a partial value, ordered by usage count"),
		mcp.WithString("key",
			mcp.Required(),
			mcp.Description("Tag key, e.g. amenity"),
		),
		mcp.WithString("partial",
			mcp.Description("Partial value to filter by"),
		),
	)
	s.mcpServer.AddTool(valuesTool, s.handleSuggestTagValues)

	searchTool := mcp.NewTool("search_tag_standards",
		mcp.WithDescription("Search tag keys, values and natural language phrases in the tag standards corpus"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search term"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum results (default 10)"),
		),
	)
	s.mcpServer.AddTool(searchTool, s.handleSearchTagStandards)

	combinationsTool := mcp.NewTool("get_tag_combinations",
		mcp.WithDescription("List tag combinations commonly seen together with the given primary tags"),
		mcp.WithObject("tags",
			mcp.Required(),
			mcp.Description("Primary tags"),
		),
	)
	s.mcpServer.AddTool(combinationsTool, s.handleGetTagCombinations)

	parseRequestTool := mcp.NewTool("parse_osm_request",
		mcp.WithDescription("Parse a natural language editing request into a structured action, name, business type, features and location"),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("The request, e.g. \"Create a restaurant called 'Joe's Diner' at 40.7, -74.0\""),
		),
	)
	s.mcpServer.AddTool(parseRequestTool, s.handleParseOSMRequest)

	createFeatureTool := mcp.NewTool("create_feature_with_natural_language",
		mcp.WithDescription("Create an OSM node from a natural language description. Opens a changeset, uploads the node with inferred tags and closes the changeset. Refuses if the inferred tags fail validation"),
		mcp.WithString("description",
			mcp.Required(),
			mcp.Description("Description of the feature to create"),
		),
		mcp.WithNumber("lat",
			mcp.Required(),
			mcp.Description("Latitude"),
		),
		mcp.WithNumber("lon",
			mcp.Required(),
			mcp.Description("Longitude"),
		),
		mcp.WithString("comment",
			mcp.Description("Changeset comment"),
		),
	)
	s.mcpServer.AddTool(createFeatureTool, s.handleCreateFeatureWithNaturalLanguage)

	getNodeTool := mcp.NewTool("get_node",
		mcp.WithDescription("Fetch an OSM node by ID"),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("Node ID"),
		),
	)
	s.mcpServer.AddTool(getNodeTool, s.handleGetNode)

	createNodeTool := mcp.NewTool("create_node",
		mcp.WithDescription("Create an OSM node with explicit tags inside an existing changeset"),
		mcp.WithNumber("changeset_id",
			mcp.Required(),
			mcp.Description("Open changeset to add the node to"),
		),
		mcp.WithNumber("lat",
			mcp.Required(),
			mcp.Description("Latitude"),
		),
		mcp.WithNumber("lon",
			mcp.Required(),
			mcp.Description("Longitude"),
		),
		mcp.WithObject("tags",
			mcp.Description("Tag key/value pairs"),
		),
	)
	s.mcpServer.AddTool(createNodeTool, s.handleCreateNode)

	updateNodeTool := mcp.NewTool("update_node_tags",
		mcp.WithDescription("Merge new tags into an existing node and upload the result inside an existing changeset"),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("Node ID"),
		),
		mcp.WithNumber("changeset_id",
			mcp.Required(),
			mcp.Description("Open changeset to record the edit in"),
		),
		mcp.WithObject("tags",
			mcp.Required(),
			mcp.Description("Tags to merge into the node"),
		),
		mcp.WithString("merge_policy",
			mcp.Description("Conflict policy: keep_existing, use_new or ask (default ask)"),
		),
	)
	s.mcpServer.AddTool(updateNodeTool, s.handleUpdateNodeTags)

	deleteNodeTool := mcp.NewTool("delete_node",
		mcp.WithDescription("Delete an OSM node inside an existing changeset"),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("Node ID"),
		),
		mcp.WithNumber("changeset_id",
			mcp.Required(),
			mcp.Description("Open changeset to record the deletion in"),
		),
	)
	s.mcpServer.AddTool(deleteNodeTool, s.handleDeleteNode)

	createWayTool := mcp.NewTool("create_way",
		mcp.WithDescription("Create an OSM way from an ordered list of node IDs inside an existing changeset"),
		mcp.WithNumber("changeset_id",
			mcp.Required(),
			mcp.Description("Open changeset to add the way to"),
		),
		mcp.WithString("node_ids",
			mcp.Required(),
			mcp.Description("Comma-separated node IDs in way order, at least two"),
		),
		mcp.WithObject("tags",
			mcp.Description("Tag key/value pairs"),
		),
	)
	s.mcpServer.AddTool(createWayTool, s.handleCreateWay)

	createRelationTool := mcp.NewTool("create_relation",
		mcp.WithDescription("Create an OSM relation from a list of members inside an existing changeset"),
		mcp.WithNumber("changeset_id",
			mcp.Required(),
			mcp.Description("Open changeset to add the relation to"),
		),
		mcp.WithArray("members",
			mcp.Required(),
			mcp.Description("Relation members, each an object with type (node, way or relation), ref (element ID) and role"),
		),
		mcp.WithObject("tags",
			mcp.Description("Tag key/value pairs"),
		),
	)
	s.mcpServer.AddTool(createRelationTool, s.handleCreateRelation)

	queryTool := mcp.NewTool("query_elements",
		mcp.WithDescription("Fetch all elements inside a bounding box given as min_lat,min_lon,max_lat,max_lon"),
		mcp.WithString("bbox",
			mcp.Required(),
			mcp.Description("Bounding box, e.g. 40.7,-74.1,40.8,-74.0"),
		),
	)
	s.mcpServer.AddTool(queryTool, s.handleQueryElements)

	createChangesetTool := mcp.NewTool("create_changeset",
		mcp.WithDescription("Open a new OSM changeset"),
		mcp.WithString("comment",
			mcp.Description("Changeset comment"),
		),
	)
	s.mcpServer.AddTool(createChangesetTool, s.handleCreateChangeset)

	closeChangesetTool := mcp.NewTool("close_changeset",
		mcp.WithDescription("Close an open OSM changeset"),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("Changeset ID"),
		),
	)
	s.mcpServer.AddTool(closeChangesetTool, s.handleCloseChangeset)

	nearbyTool := mcp.NewTool("find_nearby_amenities",
		mcp.WithDescription("Find elements with a given tag near a point via the Overpass API"),
		mcp.WithNumber("lat",
			mcp.Required(),
			mcp.Description("Latitude of the search center"),
		),
		mcp.WithNumber("lon",
			mcp.Required(),
			mcp.Description("Longitude of the search center"),
		),
		mcp.WithString("key",
			mcp.Required(),
			mcp.Description("Tag key to search for, e.g. amenity"),
		),
		mcp.WithString("value",
			mcp.Description("Tag value to search for, e.g. cafe"),
		),
		mcp.WithNumber("radius",
			mcp.Description("Search radius in meters (default 500)"),
		),
	)
	s.mcpServer.AddTool(nearbyTool, s.handleFindNearbyAmenities)

	geocodeTool := mcp.NewTool("geocode",
		mcp.WithDescription("Resolve an address or place name to coordinates via Nominatim"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Address or place name"),
		),
	)
	s.mcpServer.AddTool(geocodeTool, s.handleGeocode)

	reverseGeocodeTool := mcp.NewTool("reverse_geocode",
		mcp.WithDescription("Resolve coordinates to the nearest address via Nominatim"),
		mcp.WithNumber("lat",
			mcp.Required(),
			mcp.Description("Latitude"),
		),
		mcp.WithNumber("lon",
			mcp.Required(),
			mcp.Description("Longitude"),
		),
	)
	s.mcpServer.AddTool(reverseGeocodeTool, s.handleReverseGeocode)

	queryByTagTool := mcp.NewTool("query_by_tag",
		mcp.WithDescription("Find elements with a given tag inside a bounding box via the Overpass API"),
		mcp.WithString("bbox",
			mcp.Required(),
			mcp.Description("Bounding box, e.g. 40.7,-74.1,40.8,-74.0"),
		),
		mcp.WithString("key",
			mcp.Required(),
			mcp.Description("Tag key to search for, e.g. amenity"),
		),
		mcp.WithString("value",
			mcp.Description("Tag value to search for, e.g. cafe"),
		),
	)
	s.mcpServer.AddTool(queryByTagTool, s.handleQueryByTag)
}

func (s *Server) handleParseNaturalLanguageTags(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	description := request.GetString("description", "")
	if description == "" {
		return mcp.NewToolResultError("description parameter required"), nil
	}

	suggestions := s.engine.SuggestFromDescription(description)
	return jsonResult(map[string]any{
		"suggestions":    suggestions,
		"suggested_tags": tags.SuggestedTagSet(suggestions),
	})
}

func (s *Server) handleValidateTags(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	set, err := tagArgument(request, "tags")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(set) == 0 {
		return mcp.NewToolResultError("tags parameter required"), nil
	}

	results := s.engine.Validator().ValidateSet(set)
	return jsonResult(map[string]any{
		"validation_results": results,
		"has_errors":         tags.HasErrors(results),
	})
}

func (s *Server) handleSuggestTags(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	description := request.GetString("description", "")
	if description == "" {
		return mcp.NewToolResultError("description parameter required"), nil
	}
	existing, err := tagArgument(request, "existing_tags")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	policy, err := mergePolicy(request.GetString("merge_policy", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(s.engine.Process(description, existing, policy))
}

func (s *Server) handleMergeTags(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	existing, err := tagArgument(request, "existing_tags")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	newTags, err := tagArgument(request, "new_tags")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	policy, err := mergePolicy(request.GetString("merge_policy", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(tags.Merge(existing, newTags, policy))
}

func (s *Server) handleExplainTags(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	set, err := tagArgument(request, "tags")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(set) == 0 {
		return mcp.NewToolResultError("tags parameter required"), nil
	}

	return jsonResult(s.engine.Explain(set))
}

func (s *Server) handleDiscoverRelatedTags(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	set, err := tagArgument(request, "tags")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(set) == 0 {
		return mcp.NewToolResultError("tags parameter required"), nil
	}
	elementType := request.GetString("element_type", "node")
	if !osm.ValidElementType(elementType) {
		return mcp.NewToolResultError(fmt.Sprintf("invalid element_type %q", elementType)), nil
	}

	return jsonResult(map[string]any{
		"suggestions": s.engine.DiscoverRelated(set, elementType),
	})
}

func (s *Server) handleGetTagDocumentation(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key := request.GetString("key", "")
	if key == "" {
		return mcp.NewToolResultError("key parameter required"), nil
	}
	value := request.GetString("value", "")

	return jsonResult(map[string]any{
		"key":         key,
		"value":       value,
		"description": s.store.Describe(key, value),
	})
}

func (s *Server) handleSuggestTagValues(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key := request.GetString("key", "")
	if key == "" {
		return mcp.NewToolResultError("key parameter required"), nil
	}

	return jsonResult(map[string]any{
		"key":    key,
		"values": s.store.SuggestValues(key, request.GetString("partial", "")),
	})
}

func (s *Server) handleSearchTagStandards(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := request.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("query parameter required"), nil
	}
	limit := int(request.GetFloat("limit", 10))

	return jsonResult(map[string]any{
		"results": s.store.Search(query, limit),
	})
}

func (s *Server) handleGetTagCombinations(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	set, err := tagArgument(request, "tags")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(set) == 0 {
		return mcp.NewToolResultError("tags parameter required"), nil
	}

	return jsonResult(map[string]any{
		"combinations": s.engine.Combinations(set),
	})
}

func (s *Server) handleParseOSMRequest(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := request.GetString("text", "")
	if text == "" {
		return mcp.NewToolResultError("text parameter required"), nil
	}

	return jsonResult(s.engine.Parser().Parse(text))
}

func (s *Server) handleCreateFeatureWithNaturalLanguage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	description := request.GetString("description", "")
	if description == "" {
		return mcp.NewToolResultError("description parameter required"), nil
	}
	lat := request.GetFloat("lat", 0)
	lon := request.GetFloat("lon", 0)
	if err := osm.ValidateCoordinates(lat, lon); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	// Seed the merge with the extracted name so it is uploaded and
	// validated along with the inferred tags.
	seed := tags.TagSet{}
	if parsed := s.engine.Parser().Parse(description); parsed.Name != "" {
		seed["name"] = parsed.Name
	}
	result := s.engine.Process(description, seed, tags.PolicyUseNew)
	if tags.HasErrors(result.ValidationResults) {
		res, _ := jsonResult(map[string]any{
			"error":              "inferred tags failed validation, nothing was uploaded",
			"validation_results": result.ValidationResults,
		})
		res.IsError = true
		return res, nil
	}
	// The seeded name alone is not enough to describe a feature; refuse
	// unless the description yielded at least one suggestion of its own.
	if len(result.Suggestions) == 0 {
		return mcp.NewToolResultError("no tags could be inferred from the description"), nil
	}

	changesetID, err := s.osmClient.CreateChangeset(ctx, request.GetString("comment", ""), nil)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to open changeset: %v", err)), nil
	}
	nodeID, err := s.osmClient.CreateNode(ctx, changesetID, lat, lon, result.MergedTags)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create node: %v", err)), nil
	}
	if err := s.osmClient.CloseChangeset(ctx, changesetID); err != nil {
		s.logger.Warn("Failed to close changeset", "id", changesetID, "error", err)
	}

	return jsonResult(map[string]any{
		"node_id":            nodeID,
		"changeset_id":       changesetID,
		"tags":               result.MergedTags,
		"validation_results": result.ValidationResults,
	})
}

func (s *Server) handleGetNode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := int64(request.GetFloat("id", 0))
	if id <= 0 {
		return mcp.NewToolResultError("id parameter required"), nil
	}

	node, err := s.osmClient.GetNode(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to fetch node: %v", err)), nil
	}
	return jsonResult(node)
}

func (s *Server) handleCreateNode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	changesetID := int64(request.GetFloat("changeset_id", 0))
	if changesetID <= 0 {
		return mcp.NewToolResultError("changeset_id parameter required"), nil
	}
	set, err := tagArgument(request, "tags")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	nodeID, err := s.osmClient.CreateNode(ctx, changesetID,
		request.GetFloat("lat", 0), request.GetFloat("lon", 0), set)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create node: %v", err)), nil
	}
	return jsonResult(map[string]any{"node_id": nodeID, "changeset_id": changesetID})
}

func (s *Server) handleUpdateNodeTags(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := int64(request.GetFloat("id", 0))
	changesetID := int64(request.GetFloat("changeset_id", 0))
	if id <= 0 || changesetID <= 0 {
		return mcp.NewToolResultError("id and changeset_id parameters required"), nil
	}
	newTags, err := tagArgument(request, "tags")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(newTags) == 0 {
		return mcp.NewToolResultError("tags parameter required"), nil
	}
	policy, err := mergePolicy(request.GetString("merge_policy", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	node, err := s.osmClient.GetNode(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to fetch node: %v", err)), nil
	}
	merged := tags.Merge(osm.WireToTags(node.Tags), newTags, policy)
	node.Tags = osm.TagsToWire(merged.Merged)
	version, err := s.osmClient.UpdateNode(ctx, node, changesetID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to update node: %v", err)), nil
	}
	return jsonResult(map[string]any{
		"node_id":     id,
		"new_version": version,
		"merged_tags": merged.Merged,
		"conflicts":   merged.Conflicts,
	})
}

func (s *Server) handleDeleteNode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := int64(request.GetFloat("id", 0))
	changesetID := int64(request.GetFloat("changeset_id", 0))
	if id <= 0 || changesetID <= 0 {
		return mcp.NewToolResultError("id and changeset_id parameters required"), nil
	}

	node, err := s.osmClient.GetNode(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to fetch node: %v", err)), nil
	}
	version, err := s.osmClient.DeleteNode(ctx, node, changesetID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to delete node: %v", err)), nil
	}
	return jsonResult(map[string]any{"node_id": id, "new_version": version, "deleted": true})
}

func (s *Server) handleCreateWay(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	changesetID := int64(request.GetFloat("changeset_id", 0))
	if changesetID <= 0 {
		return mcp.NewToolResultError("changeset_id parameter required"), nil
	}
	nodeIDs, err := parseNodeIDs(request.GetString("node_ids", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	set, err := tagArgument(request, "tags")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	wayID, err := s.osmClient.CreateWay(ctx, changesetID, nodeIDs, set)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create way: %v", err)), nil
	}
	return jsonResult(map[string]any{"way_id": wayID, "changeset_id": changesetID})
}

func (s *Server) handleCreateRelation(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	changesetID := int64(request.GetFloat("changeset_id", 0))
	if changesetID <= 0 {
		return mcp.NewToolResultError("changeset_id parameter required"), nil
	}
	members, err := memberArgument(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	set, err := tagArgument(request, "tags")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	relationID, err := s.osmClient.CreateRelation(ctx, changesetID, members, set)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create relation: %v", err)), nil
	}
	return jsonResult(map[string]any{"relation_id": relationID, "changeset_id": changesetID})
}

func (s *Server) handleQueryElements(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	bbox, err := osm.ParseBoundingBox(request.GetString("bbox", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	nodes, ways, relations, err := s.osmClient.QueryMap(ctx, bbox)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to query elements: %v", err)), nil
	}
	return jsonResult(map[string]any{
		"nodes":     nodes,
		"ways":      ways,
		"relations": relations,
	})
}

func (s *Server) handleCreateChangeset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := s.osmClient.CreateChangeset(ctx, request.GetString("comment", ""), nil)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to open changeset: %v", err)), nil
	}
	return jsonResult(map[string]any{"changeset_id": id})
}

func (s *Server) handleCloseChangeset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := int64(request.GetFloat("id", 0))
	if id <= 0 {
		return mcp.NewToolResultError("id parameter required"), nil
	}

	if err := s.osmClient.CloseChangeset(ctx, id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to close changeset: %v", err)), nil
	}
	return jsonResult(map[string]any{"changeset_id": id, "closed": true})
}

func (s *Server) handleFindNearbyAmenities(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key := request.GetString("key", "")
	if key == "" {
		return mcp.NewToolResultError("key parameter required"), nil
	}

	elements, err := s.osmClient.FindNearbyAmenities(ctx,
		request.GetFloat("lat", 0), request.GetFloat("lon", 0),
		int(request.GetFloat("radius", 500)),
		key, request.GetString("value", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("overpass query failed: %v", err)), nil
	}
	return jsonResult(map[string]any{"elements": elements})
}

func (s *Server) handleGeocode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := request.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("query parameter required"), nil
	}

	places, err := s.osmClient.Geocode(ctx, query, 5)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("geocoding failed: %v", err)), nil
	}
	return jsonResult(map[string]any{"places": places})
}

func (s *Server) handleReverseGeocode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	lat := request.GetFloat("lat", 0)
	lon := request.GetFloat("lon", 0)
	if err := osm.ValidateCoordinates(lat, lon); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	place, err := s.osmClient.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("reverse geocoding failed: %v", err)), nil
	}
	return jsonResult(place)
}

func (s *Server) handleQueryByTag(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	bbox, err := osm.ParseBoundingBox(request.GetString("bbox", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	key := request.GetString("key", "")
	if key == "" {
		return mcp.NewToolResultError("key parameter required"), nil
	}

	elements, err := s.osmClient.QueryByTag(ctx, bbox, key, request.GetString("value", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("overpass query failed: %v", err)), nil
	}
	return jsonResult(map[string]any{"elements": elements})
}

// memberArgument extracts the relation member list from the raw arguments.
func memberArgument(request mcp.CallToolRequest) ([]osm.Member, error) {
	raw, ok := request.GetArguments()["members"]
	if !ok {
		return nil, fmt.Errorf("members parameter required")
	}
	list, ok := raw.([]any)
	if !ok || len(list) == 0 {
		return nil, fmt.Errorf("members must be a non-empty array of objects")
	}

	members := make([]osm.Member, 0, len(list))
	for i, entry := range list {
		obj, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("member %d is not an object", i)
		}
		typ, _ := obj["type"].(string)
		if !osm.ValidElementType(typ) {
			return nil, fmt.Errorf("member %d has invalid type %q", i, typ)
		}
		ref, ok := obj["ref"].(float64)
		if !ok || ref <= 0 {
			return nil, fmt.Errorf("member %d needs a positive ref", i)
		}
		role, _ := obj["role"].(string)
		members = append(members, osm.Member{Type: typ, Ref: int64(ref), Role: role})
	}
	return members, nil
}

// parseNodeIDs parses the comma-separated node list of a way.
func parseNodeIDs(raw string) ([]int64, error) {
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid node ID %q", p)
		}
		ids = append(ids, id)
	}
	if len(ids) < 2 {
		return nil, fmt.Errorf("node_ids needs at least 2 node IDs, got %d", len(ids))
	}
	return ids, nil
}

// mergePolicy parses the tool argument form of a merge policy. Empty means
// the default.
func mergePolicy(s string) (tags.MergePolicy, error) {
	switch tags.MergePolicy(s) {
	case "":
		return tags.PolicyAsk, nil
	case tags.PolicyKeepExisting, tags.PolicyUseNew, tags.PolicyAsk:
		return tags.MergePolicy(s), nil
	}
	return "", fmt.Errorf("invalid merge_policy %q, want keep_existing, use_new or ask", s)
}
