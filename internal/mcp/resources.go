package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"osmedit/internal/osm"

	"github.com/mark3labs/mcp-go/mcp"
)

// registerResources registers the read-only MCP resources.
func (s *Server) registerResources() {
	statsResource := mcp.NewResource("osm://tags/statistics",
		"Tag standards statistics",
		mcp.WithMIMEType("application/json"),
		mcp.WithResourceDescription("Counts of keys, values, phrases and combinations in the loaded tag standards corpus"),
	)
	s.mcpServer.AddResource(statsResource, s.handleStatisticsResource)

	capsResource := mcp.NewResource("osm://capabilities",
		"OSM API capabilities",
		mcp.WithMIMEType("text/xml"),
		mcp.WithResourceDescription("The capabilities document of the active OSM API"),
	)
	s.mcpServer.AddResource(capsResource, s.handleCapabilitiesResource)

	elementTemplate := mcp.NewResourceTemplate("osm://element/{type}/{id}",
		"OSM element",
		mcp.WithTemplateMIMEType("application/json"),
		mcp.WithTemplateDescription("A single OSM node, way or relation by ID"),
	)
	s.mcpServer.AddResourceTemplate(elementTemplate, s.handleElementResource)

	changesetTemplate := mcp.NewResourceTemplate("osm://changeset/{id}",
		"OSM changeset",
		mcp.WithTemplateMIMEType("application/json"),
		mcp.WithTemplateDescription("Changeset metadata by ID"),
	)
	s.mcpServer.AddResourceTemplate(changesetTemplate, s.handleChangesetResource)
}

func (s *Server) handleStatisticsResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(s.store.Stats(), "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleCapabilitiesResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	caps, err := s.osmClient.GetCapabilities(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch capabilities: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "text/xml",
			Text:     caps,
		},
	}, nil
}

func (s *Server) handleElementResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	elementType, id, err := parseElementURI(request.Params.URI)
	if err != nil {
		return nil, err
	}

	var element any
	switch elementType {
	case osm.TypeNode:
		element, err = s.osmClient.GetNode(ctx, id)
	case osm.TypeWay:
		element, err = s.osmClient.GetWay(ctx, id)
	case osm.TypeRelation:
		element, err = s.osmClient.GetRelation(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s %d: %w", elementType, id, err)
	}

	data, err := json.MarshalIndent(element, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleChangesetResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	rest, ok := strings.CutPrefix(request.Params.URI, "osm://changeset/")
	if !ok {
		return nil, fmt.Errorf("unexpected resource URI %q", request.Params.URI)
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid changeset ID %q: %w", rest, err)
	}

	changeset, err := s.osmClient.GetChangeset(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch changeset %d: %w", id, err)
	}
	data, err := json.MarshalIndent(changeset, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// parseElementURI splits osm://element/{type}/{id} into its parts.
func parseElementURI(uri string) (osm.ElementType, int64, error) {
	rest, ok := strings.CutPrefix(uri, "osm://element/")
	if !ok {
		return "", 0, fmt.Errorf("unexpected resource URI %q", uri)
	}
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 {
		return "", 0, fmt.Errorf("resource URI %q must be osm://element/{type}/{id}", uri)
	}
	if !osm.ValidElementType(parts[0]) {
		return "", 0, fmt.Errorf("invalid element type %q", parts[0])
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("invalid element ID %q: %w", parts[1], err)
	}
	return osm.ElementType(parts[0]), id, nil
}
