package gateway

import (
	"context"
	"fmt"
	"net/url"
)

// DocumentRef points the viewer overlay at a cited document.
type DocumentRef struct {
	Id   string
	Name string
	URL  string
}

type ICitationGateway interface {
	Resolve(ctx context.Context, sourceId string) (*DocumentRef, error)
}

type citationGateway struct {
	client *Client
}

func NewCitationGateway(client *Client) ICitationGateway {
	return &citationGateway{client: client}
}

// Resolve looks a cited document up by its source identifier and builds
// the retrievable URL the viewer loads.
func (g *citationGateway) Resolve(ctx context.Context, sourceId string) (*DocumentRef, error) {
	var res struct {
		Data []struct {
			Id     string `json:"id"`
			Name   string `json:"name"`
			Source string `json:"source"`
		} `json:"data"`
	}
	path := "/api/get_documents_by_id?id=" + url.QueryEscape(sourceId)
	if err := g.client.getJSON(ctx, path, &res); err != nil {
		return nil, fmt.Errorf("resolve citation %s: %w", sourceId, err)
	}
	if len(res.Data) == 0 {
		return nil, fmt.Errorf("citation %s: document not found", sourceId)
	}

	doc := res.Data[0]
	return &DocumentRef{
		Id:   doc.Id,
		Name: doc.Name,
		URL:  g.client.baseURL + "/uploads/" + url.PathEscape(doc.Name),
	}, nil
}
