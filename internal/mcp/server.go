// Package mcp implements a Model Context Protocol (MCP) server for osmedit
// using the mcp-go library.
//
// This package exposes the tag inference engine and the OSM editing API to
// AI assistants through a standardized protocol. The server communicates via
// stdin/stdout using JSON-RPC 2.0 as specified by the MCP standard, which is
// why nothing in this process may ever write to stdout except the protocol
// layer itself.
package mcp

import (
	"encoding/json"
	"fmt"

	"osmedit/internal/config"
	"osmedit/internal/logging"
	"osmedit/internal/osm"
	"osmedit/internal/tags"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server wires the tag engine and the OSM client into an MCP server.
type Server struct {
	cfg       *config.Config
	logger    *logging.AppLogger
	store     *tags.Store
	engine    *tags.Engine
	osmClient *osm.Client
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance. The tag standards corpus is
// loaded lazily in Start so construction never touches the filesystem.
func NewServer(cfg *config.Config, logger *logging.AppLogger) *Server {
	return &Server{
		cfg:    cfg,
		logger: logger,
	}
}

// Start initializes the engine, registers tools and resources, and serves
// the MCP protocol over stdio until the client disconnects.
func (s *Server) Start() error {
	s.logger.Info("Initializing MCP server")

	s.store = tags.NewStore(s.logger)
	s.store.Load(s.cfg.TagStandardsFile)
	s.engine = tags.NewEngine(s.store)
	s.osmClient = osm.NewClient(s.cfg, s.logger, nil)

	s.mcpServer = server.NewMCPServer(
		s.cfg.ServerName,
		s.cfg.ServerVersion,
		server.WithResourceCapabilities(true, false),
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s.registerTools()
	s.registerResources()

	s.logger.Info("MCP server created, starting stdio communication",
		"api_base", s.cfg.EffectiveAPIBase())

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the MCP server.
func (s *Server) Stop() error {
	s.logger.Info("Stopping MCP server")
	// The mcp-go server handles cleanup when stdio closes.
	return nil
}

// jsonResult marshals v and wraps it as a tool text result. Marshal failures
// become tool errors rather than protocol errors so the assistant sees them.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// tagArgument reads a map-valued tool argument as a string tag map.
// Non-string values are stringified; MCP clients routinely send numbers for
// values like "lanes".
func tagArgument(request mcp.CallToolRequest, key string) (map[string]string, error) {
	raw, ok := request.GetArguments()[key]
	if !ok || raw == nil {
		return map[string]string{}, nil
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s must be an object of tag key/value pairs", key)
	}
	out := make(map[string]string, len(obj))
	for k, v := range obj {
		switch val := v.(type) {
		case string:
			out[k] = val
		default:
			out[k] = fmt.Sprintf("%v", val)
		}
	}
	return out, nil
}
