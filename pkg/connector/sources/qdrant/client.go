package qdrant

import (
	"context"
	"net/http"
	"net/url"

	"github.com/ajitpratap0/nebula-fdw/pkg/clients"
	"github.com/ajitpratap0/nebula-fdw/pkg/connector/scan"
	"github.com/ajitpratap0/nebula-fdw/pkg/errors"
	"github.com/ajitpratap0/nebula-fdw/pkg/json"
)

type scrollRequest struct {
	Limit       int         `json:"limit"`
	Offset      interface{} `json:"offset,omitempty"`
	WithPayload bool        `json:"with_payload"`
	WithVector  bool        `json:"with_vector"`
}

type point struct {
	ID      interface{}     `json:"id"`
	Payload json.RawMessage `json:"payload"`
	Vector  interface{}     `json:"vector"`
}

type scrollResponse struct {
	Result *struct {
		Points         []point     `json:"points"`
		NextPageOffset interface{} `json:"next_page_offset"`
	} `json:"result"`
	Status interface{} `json:"status"`
}

// Client pages through a collection with POST /collections/{name}/points/scroll.
// The next_page_offset of each response is the continuation token.
type Client struct {
	http *clients.HTTPClient
}

// NewClient wraps an HTTP client bound to the Qdrant API URL.
func NewClient(httpClient *clients.HTTPClient) *Client {
	return &Client{http: httpClient}
}

// Fetch implements scan.Client
func (c *Client) Fetch(ctx context.Context, req scan.FetchRequest) (*scan.Page, error) {
	body := scrollRequest{
		Limit:       req.Limit,
		WithPayload: true,
		WithVector:  true,
	}
	if scan.HasToken(req.Token) {
		body.Offset = req.Token
	}

	var resp scrollResponse
	err := c.http.DoJSON(ctx, &clients.Request{
		Method: http.MethodPost,
		Path:   "collections/" + url.PathEscape(req.Collection) + "/points/scroll",
		Body:   body,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Result == nil {
		return nil, errors.New(errors.ErrorTypeData, "scroll response has no result").
			WithDetail(errors.DetailCollection, req.Collection)
	}

	records := make([]scan.Record, 0, len(resp.Result.Points))
	for _, p := range resp.Result.Points {
		records = append(records, p.record())
	}
	return &scan.Page{Records: records, Next: resp.Result.NextPageOffset}, nil
}

func (p point) record() scan.FlatRecord {
	rec := scan.FlatRecord{
		"id":     p.ID,
		"vector": p.Vector,
	}
	if len(p.Payload) > 0 && string(p.Payload) != "null" {
		rec["payload"] = p.Payload
	}
	return rec
}

// Close releases idle connections
func (c *Client) Close() error {
	return c.http.Close()
}
