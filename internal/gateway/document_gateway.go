package gateway

import (
	"context"
	"fmt"
	"io"
	"net/url"
)

// DocumentInfo is one row in the uploaded-documents panel.
type DocumentInfo struct {
	Id   string `json:"id"`
	Name string `json:"name"`
}

// IDocumentGateway is the collaborator boundary to the upload/list/delete
// panel. The chat engine only consumes it; the panel owns the UX.
type IDocumentGateway interface {
	List(ctx context.Context) ([]DocumentInfo, error)
	Delete(ctx context.Context, id string) error
	Upload(ctx context.Context, filename string, file io.Reader) error
}

type documentGateway struct {
	client *Client
}

func NewDocumentGateway(client *Client) IDocumentGateway {
	return &documentGateway{client: client}
}

func (g *documentGateway) List(ctx context.Context) ([]DocumentInfo, error) {
	var res struct {
		Data []DocumentInfo `json:"data"`
	}
	if err := g.client.getJSON(ctx, "/api/get_documents", &res); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return res.Data, nil
}

func (g *documentGateway) Delete(ctx context.Context, id string) error {
	var res struct {
		Data string `json:"data"`
	}
	path := "/api/delete_document?id=" + url.QueryEscape(id)
	if err := g.client.deleteJSON(ctx, path, &res); err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	return nil
}

func (g *documentGateway) Upload(ctx context.Context, filename string, file io.Reader) error {
	var res struct {
		Data []string `json:"data"`
	}
	if err := g.client.postMultipart(ctx, "/api/ingest", filename, file, &res); err != nil {
		return fmt.Errorf("upload document %s: %w", filename, err)
	}
	return nil
}
