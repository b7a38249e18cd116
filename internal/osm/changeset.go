package osm

import (
	"context"
	"fmt"
)

// CreateChangeset opens a changeset and returns its ID. The created_by tag
// is always set from configuration; extra tags are caller-provided.
func (c *Client) CreateChangeset(ctx context.Context, comment string, extraTags map[string]string) (int64, error) {
	if comment == "" {
		comment = c.cfg.DefaultChangesetComment
	}
	tags := map[string]string{
		"comment":    comment,
		"created_by": c.cfg.DefaultChangesetCreatedBy,
	}
	for k, v := range extraTags {
		tags[k] = v
	}

	body, err := marshalOSM(osmFile{Changeset: []Changeset{{Tags: TagsToWire(tags)}}})
	if err != nil {
		return 0, err
	}

	c.logger.Info("Opening changeset", "comment", comment)
	data, err := c.do(ctx, "PUT", c.url("/changeset/create"), body, "text/xml")
	if err != nil {
		return 0, err
	}
	return parseID(data)
}

// GetChangeset fetches changeset metadata.
func (c *Client) GetChangeset(ctx context.Context, id int64) (*Changeset, error) {
	data, err := c.do(ctx, "GET", c.url(fmt.Sprintf("/changeset/%d", id)), nil, "")
	if err != nil {
		return nil, err
	}
	doc, err := decodeOSM(data)
	if err != nil {
		return nil, err
	}
	if len(doc.Changeset) == 0 {
		return nil, fmt.Errorf("changeset %d: empty response", id)
	}
	return &doc.Changeset[0], nil
}

// CloseChangeset closes an open changeset. Closing an already-closed
// changeset is an API error, surfaced as-is.
func (c *Client) CloseChangeset(ctx context.Context, id int64) error {
	c.logger.Info("Closing changeset", "id", id)
	_, err := c.do(ctx, "PUT", c.url(fmt.Sprintf("/changeset/%d/close", id)), nil, "")
	return err
}
