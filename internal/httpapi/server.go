// Package httpapi is the HTTP facade over the tag engine and the OSM client.
// It mirrors the MCP tool surface for callers that speak plain REST instead
// of the MCP protocol.
package httpapi

import (
	"net/http"

	"osmedit/internal/config"
	"osmedit/internal/logging"
	"osmedit/internal/osm"
	"osmedit/internal/tags"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Server carries the shared dependencies for all HTTP handlers.
type Server struct {
	cfg       *config.Config
	logger    *logging.AppLogger
	store     *tags.Store
	engine    *tags.Engine
	osmClient *osm.Client
}

// NewServer builds the facade. The tag standards corpus is loaded here; the
// store logs the load outcome itself.
func NewServer(cfg *config.Config, logger *logging.AppLogger) *Server {
	store := tags.NewStore(logger)
	store.Load(cfg.TagStandardsFile)
	return &Server{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		engine:    tags.NewEngine(store),
		osmClient: osm.NewClient(cfg, logger, nil),
	}
}

// SetupRouter builds the gin engine with all routes registered. Split from
// Run so tests can drive the router directly.
func (s *Server) SetupRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestID())

	r.GET("/health", s.handleHealth)

	api := r.Group("/api", s.requireAPIKey())
	{
		api.POST("/parse", s.handleParse)
		api.POST("/suggest", s.handleSuggest)
		api.POST("/validate", s.handleValidate)
		api.POST("/merge", s.handleMerge)
		api.POST("/explain", s.handleExplain)
		api.GET("/tags/values/:key", s.handleTagValues)
		api.GET("/tags/search", s.handleTagSearch)
		api.GET("/tags/statistics", s.handleTagStatistics)

		api.GET("/node/:id", s.handleGetNode)
		api.GET("/way/:id", s.handleGetWay)
		api.GET("/relation/:id", s.handleGetRelation)
		api.POST("/node", s.handleCreateNode)
		api.POST("/changeset", s.handleCreateChangeset)
		api.PUT("/changeset/:id/close", s.handleCloseChangeset)
		api.POST("/place-from-description", s.handlePlaceFromDescription)
		api.GET("/geocode", s.handleGeocode)
		api.GET("/nearby", s.handleNearby)
	}

	return r
}

// Run serves until the listener fails.
func (s *Server) Run() error {
	r := s.SetupRouter()
	s.logger.Info("HTTP facade listening", "addr", s.cfg.HTTPAddr)
	return r.Run(s.cfg.HTTPAddr)
}

// requestID tags every request with a UUID, echoed in the response header
// and attached to log lines.
func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// requireAPIKey enforces the bearer key when one is configured. An empty
// configured key leaves the API open, which is the development default.
func (s *Server) requireAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.cfg.HTTPAPIKey == "" {
			c.Next()
			return
		}
		if c.GetHeader("Authorization") != "Bearer "+s.cfg.HTTPAPIKey {
			s.logger.Warn("Rejected request with bad API key",
				"path", c.Request.URL.Path, "request_id", c.GetString("request_id"))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing API key"})
			return
		}
		c.Next()
	}
}
