package httpapi

import (
	"net/http"
	"strconv"

	"osmedit/internal/osm"
	"osmedit/internal/tags"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"name":     s.cfg.ServerName,
		"version":  s.cfg.ServerVersion,
		"api_base": s.cfg.EffectiveAPIBase(),
	})
}

type parseRequest struct {
	Text string `json:"text" binding:"required"`
}

func (s *Server) handleParse(c *gin.Context) {
	var req parseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text field required"})
		return
	}
	c.JSON(http.StatusOK, s.engine.Parser().Parse(req.Text))
}

type suggestRequest struct {
	Description  string            `json:"description" binding:"required"`
	ExistingTags map[string]string `json:"existing_tags"`
	MergePolicy  string            `json:"merge_policy"`
}

func (s *Server) handleSuggest(c *gin.Context) {
	var req suggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "description field required"})
		return
	}
	policy := tags.MergePolicy(req.MergePolicy)
	switch policy {
	case "", tags.PolicyAsk, tags.PolicyKeepExisting, tags.PolicyUseNew:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid merge_policy"})
		return
	}
	c.JSON(http.StatusOK, s.engine.Process(req.Description, req.ExistingTags, policy))
}

type validateRequest struct {
	Tags map[string]string `json:"tags" binding:"required"`
}

func (s *Server) handleValidate(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tags field required"})
		return
	}
	results := s.engine.Validator().ValidateSet(req.Tags)
	c.JSON(http.StatusOK, gin.H{
		"validation_results": results,
		"has_errors":         tags.HasErrors(results),
	})
}

type mergeRequest struct {
	ExistingTags map[string]string `json:"existing_tags" binding:"required"`
	NewTags      map[string]string `json:"new_tags" binding:"required"`
	MergePolicy  string            `json:"merge_policy"`
}

func (s *Server) handleMerge(c *gin.Context) {
	var req mergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "existing_tags and new_tags fields required"})
		return
	}
	policy := tags.MergePolicy(req.MergePolicy)
	switch policy {
	case "":
		policy = tags.PolicyAsk
	case tags.PolicyAsk, tags.PolicyKeepExisting, tags.PolicyUseNew:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid merge_policy"})
		return
	}
	c.JSON(http.StatusOK, tags.Merge(req.ExistingTags, req.NewTags, policy))
}

func (s *Server) handleExplain(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tags field required"})
		return
	}
	c.JSON(http.StatusOK, s.engine.Explain(req.Tags))
}

func (s *Server) handleTagValues(c *gin.Context) {
	key := c.Param("key")
	c.JSON(http.StatusOK, gin.H{
		"key":    key,
		"values": s.store.SuggestValues(key, c.Query("partial")),
	})
}

func (s *Server) handleTagSearch(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q query parameter required"})
		return
	}
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	c.JSON(http.StatusOK, gin.H{"results": s.store.Search(query, limit)})
}

func (s *Server) handleTagStatistics(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.Stats())
}

func (s *Server) elementID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid element ID"})
		return 0, false
	}
	return id, true
}

func (s *Server) handleGetNode(c *gin.Context) {
	id, ok := s.elementID(c)
	if !ok {
		return
	}
	node, err := s.osmClient.GetNode(c.Request.Context(), id)
	if err != nil {
		s.logger.Warn("Node fetch failed", "id", id, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch node"})
		return
	}
	c.JSON(http.StatusOK, node)
}

func (s *Server) handleGetWay(c *gin.Context) {
	id, ok := s.elementID(c)
	if !ok {
		return
	}
	way, err := s.osmClient.GetWay(c.Request.Context(), id)
	if err != nil {
		s.logger.Warn("Way fetch failed", "id", id, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch way"})
		return
	}
	c.JSON(http.StatusOK, way)
}

func (s *Server) handleGetRelation(c *gin.Context) {
	id, ok := s.elementID(c)
	if !ok {
		return
	}
	relation, err := s.osmClient.GetRelation(c.Request.Context(), id)
	if err != nil {
		s.logger.Warn("Relation fetch failed", "id", id, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch relation"})
		return
	}
	c.JSON(http.StatusOK, relation)
}

type createNodeRequest struct {
	ChangesetID int64             `json:"changeset_id" binding:"required"`
	Lat         float64           `json:"lat"`
	Lon         float64           `json:"lon"`
	Tags        map[string]string `json:"tags"`
}

func (s *Server) handleCreateNode(c *gin.Context) {
	var req createNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "changeset_id, lat and lon fields required"})
		return
	}
	if err := osm.ValidateCoordinates(req.Lat, req.Lon); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, err := s.osmClient.CreateNode(c.Request.Context(), req.ChangesetID, req.Lat, req.Lon, req.Tags)
	if err != nil {
		s.logger.Error("Node create failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to create node"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"node_id": id, "changeset_id": req.ChangesetID})
}

type createChangesetRequest struct {
	Comment string            `json:"comment"`
	Tags    map[string]string `json:"tags"`
}

func (s *Server) handleCreateChangeset(c *gin.Context) {
	var req createChangesetRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	id, err := s.osmClient.CreateChangeset(c.Request.Context(), req.Comment, req.Tags)
	if err != nil {
		s.logger.Error("Changeset create failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to open changeset"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"changeset_id": id})
}

func (s *Server) handleCloseChangeset(c *gin.Context) {
	id, ok := s.elementID(c)
	if !ok {
		return
	}
	if err := s.osmClient.CloseChangeset(c.Request.Context(), id); err != nil {
		s.logger.Error("Changeset close failed", "id", id, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to close changeset"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"changeset_id": id, "closed": true})
}

type placeFromDescriptionRequest struct {
	Description string  `json:"description" binding:"required"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Comment     string  `json:"comment"`
}

// handlePlaceFromDescription is the end-to-end path: infer tags from the
// description and upload a node carrying them. Refuses when validation finds
// error-level problems.
func (s *Server) handlePlaceFromDescription(c *gin.Context) {
	var req placeFromDescriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "description, lat and lon fields required"})
		return
	}
	if err := osm.ValidateCoordinates(req.Lat, req.Lon); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	seed := tags.TagSet{}
	if parsed := s.engine.Parser().Parse(req.Description); parsed.Name != "" {
		seed["name"] = parsed.Name
	}
	result := s.engine.Process(req.Description, seed, tags.PolicyUseNew)
	if tags.HasErrors(result.ValidationResults) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":              "inferred tags failed validation",
			"validation_results": result.ValidationResults,
		})
		return
	}
	// The seeded name alone is not enough to describe a feature; refuse
	// unless the description yielded at least one suggestion of its own.
	if len(result.Suggestions) == 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "no tags could be inferred from the description"})
		return
	}

	ctx := c.Request.Context()
	changesetID, err := s.osmClient.CreateChangeset(ctx, req.Comment, nil)
	if err != nil {
		s.logger.Error("Changeset create failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to open changeset"})
		return
	}
	nodeID, err := s.osmClient.CreateNode(ctx, changesetID, req.Lat, req.Lon, result.MergedTags)
	if err != nil {
		s.logger.Error("Node create failed", "changeset", changesetID, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to create node"})
		return
	}
	if err := s.osmClient.CloseChangeset(ctx, changesetID); err != nil {
		s.logger.Warn("Failed to close changeset", "id", changesetID, "error", err)
	}

	c.JSON(http.StatusCreated, gin.H{
		"node_id":            nodeID,
		"changeset_id":       changesetID,
		"tags":               result.MergedTags,
		"validation_results": result.ValidationResults,
	})
}

func (s *Server) handleGeocode(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q query parameter required"})
		return
	}
	places, err := s.osmClient.Geocode(c.Request.Context(), query, 5)
	if err != nil {
		s.logger.Warn("Geocode failed", "query", query, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "geocoding failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"places": places})
}

func (s *Server) handleNearby(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lon, errLon := strconv.ParseFloat(c.Query("lon"), 64)
	key := c.Query("key")
	if errLat != nil || errLon != nil || key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat, lon and key query parameters required"})
		return
	}
	radius := 500
	if raw := c.Query("radius"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			radius = n
		}
	}
	elements, err := s.osmClient.FindNearbyAmenities(c.Request.Context(), lat, lon, radius, key, c.Query("value"))
	if err != nil {
		s.logger.Warn("Overpass query failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "overpass query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"elements": elements})
}
