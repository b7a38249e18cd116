package osm

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// GetNode fetches one node by ID.
func (c *Client) GetNode(ctx context.Context, id int64) (*Node, error) {
	data, err := c.do(ctx, "GET", c.url(fmt.Sprintf("/node/%d", id)), nil, "")
	if err != nil {
		return nil, err
	}
	doc, err := decodeOSM(data)
	if err != nil {
		return nil, err
	}
	if len(doc.Nodes) == 0 {
		return nil, fmt.Errorf("node %d: empty response", id)
	}
	return &doc.Nodes[0], nil
}

// GetWay fetches one way by ID.
func (c *Client) GetWay(ctx context.Context, id int64) (*Way, error) {
	data, err := c.do(ctx, "GET", c.url(fmt.Sprintf("/way/%d", id)), nil, "")
	if err != nil {
		return nil, err
	}
	doc, err := decodeOSM(data)
	if err != nil {
		return nil, err
	}
	if len(doc.Ways) == 0 {
		return nil, fmt.Errorf("way %d: empty response", id)
	}
	return &doc.Ways[0], nil
}

// GetRelation fetches one relation by ID.
func (c *Client) GetRelation(ctx context.Context, id int64) (*Relation, error) {
	data, err := c.do(ctx, "GET", c.url(fmt.Sprintf("/relation/%d", id)), nil, "")
	if err != nil {
		return nil, err
	}
	doc, err := decodeOSM(data)
	if err != nil {
		return nil, err
	}
	if len(doc.Relations) == 0 {
		return nil, fmt.Errorf("relation %d: empty response", id)
	}
	return &doc.Relations[0], nil
}

// CreateNode uploads a new node within a changeset and returns its assigned
// ID.
func (c *Client) CreateNode(ctx context.Context, changesetID int64, lat, lon float64, tags map[string]string) (int64, error) {
	if err := ValidateCoordinates(lat, lon); err != nil {
		return 0, err
	}
	body, err := marshalOSM(osmFile{Nodes: []Node{{
		Lat:       lat,
		Lon:       lon,
		Changeset: changesetID,
		Tags:      TagsToWire(tags),
	}}})
	if err != nil {
		return 0, err
	}

	c.logger.Warn("Creating OSM node", "lat", lat, "lon", lon, "changeset", changesetID, "api_base", c.cfg.EffectiveAPIBase())
	data, err := c.do(ctx, "PUT", c.url("/node/create"), body, "text/xml")
	if err != nil {
		return 0, err
	}
	return parseID(data)
}

// UpdateNode replaces a node's content and returns the new version. The
// caller must supply the current version; the API rejects stale versions.
func (c *Client) UpdateNode(ctx context.Context, node *Node, changesetID int64) (int, error) {
	updated := *node
	updated.Changeset = changesetID
	body, err := marshalOSM(osmFile{Nodes: []Node{updated}})
	if err != nil {
		return 0, err
	}

	c.logger.Warn("Updating OSM node", "id", node.ID, "version", node.Version, "changeset", changesetID)
	data, err := c.do(ctx, "PUT", c.url(fmt.Sprintf("/node/%d", node.ID)), body, "text/xml")
	if err != nil {
		return 0, err
	}
	return parseVersion(data)
}

// DeleteNode removes a node and returns the new version.
func (c *Client) DeleteNode(ctx context.Context, node *Node, changesetID int64) (int, error) {
	deleted := *node
	deleted.Changeset = changesetID
	deleted.Tags = nil
	body, err := marshalOSM(osmFile{Nodes: []Node{deleted}})
	if err != nil {
		return 0, err
	}

	c.logger.Warn("Deleting OSM node", "id", node.ID, "version", node.Version, "changeset", changesetID)
	data, err := c.do(ctx, "DELETE", c.url(fmt.Sprintf("/node/%d", node.ID)), body, "text/xml")
	if err != nil {
		return 0, err
	}
	return parseVersion(data)
}

// CreateWay uploads a new way and returns its assigned ID. A way needs at
// least two node references.
func (c *Client) CreateWay(ctx context.Context, changesetID int64, nodeIDs []int64, tags map[string]string) (int64, error) {
	if len(nodeIDs) < 2 {
		return 0, fmt.Errorf("way needs at least 2 nodes, got %d", len(nodeIDs))
	}
	refs := make([]NodeRef, len(nodeIDs))
	for i, id := range nodeIDs {
		refs[i] = NodeRef{Ref: id}
	}
	body, err := marshalOSM(osmFile{Ways: []Way{{
		Changeset: changesetID,
		NodeRefs:  refs,
		Tags:      TagsToWire(tags),
	}}})
	if err != nil {
		return 0, err
	}

	c.logger.Warn("Creating OSM way", "nodes", len(nodeIDs), "changeset", changesetID)
	data, err := c.do(ctx, "PUT", c.url("/way/create"), body, "text/xml")
	if err != nil {
		return 0, err
	}
	return parseID(data)
}

// CreateRelation uploads a new relation and returns its assigned ID.
func (c *Client) CreateRelation(ctx context.Context, changesetID int64, members []Member, tags map[string]string) (int64, error) {
	for _, m := range members {
		if !ValidElementType(m.Type) {
			return 0, fmt.Errorf("invalid member type %q", m.Type)
		}
	}
	body, err := marshalOSM(osmFile{Relations: []Relation{{
		Changeset: changesetID,
		Members:   members,
		Tags:      TagsToWire(tags),
	}}})
	if err != nil {
		return 0, err
	}

	c.logger.Warn("Creating OSM relation", "members", len(members), "changeset", changesetID)
	data, err := c.do(ctx, "PUT", c.url("/relation/create"), body, "text/xml")
	if err != nil {
		return 0, err
	}
	return parseID(data)
}

// QueryMap fetches all elements inside a bounding box. The API expects the
// bbox in lon/lat order.
func (c *Client) QueryMap(ctx context.Context, bbox BoundingBox) ([]Node, []Way, []Relation, error) {
	url := c.url(fmt.Sprintf("/map?bbox=%v,%v,%v,%v", bbox.MinLon, bbox.MinLat, bbox.MaxLon, bbox.MaxLat))
	data, err := c.do(ctx, "GET", url, nil, "")
	if err != nil {
		return nil, nil, nil, err
	}
	doc, err := decodeOSM(data)
	if err != nil {
		return nil, nil, nil, err
	}
	return doc.Nodes, doc.Ways, doc.Relations, nil
}

// GetCapabilities fetches the API capabilities document verbatim.
func (c *Client) GetCapabilities(ctx context.Context) (string, error) {
	// Capabilities live outside the versioned base path.
	base := strings.TrimSuffix(c.cfg.EffectiveAPIBase(), "/0.6")
	data, err := c.do(ctx, "GET", base+"/capabilities", nil, "")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func parseID(data []byte) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected ID response %q: %w", string(data), err)
	}
	return id, nil
}

func parseVersion(data []byte) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("unexpected version response %q: %w", string(data), err)
	}
	return v, nil
}
