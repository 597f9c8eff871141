package rest

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ajitpratap0/nebula-fdw/pkg/clients"
	"github.com/ajitpratap0/nebula-fdw/pkg/connector/scan"
	"github.com/ajitpratap0/nebula-fdw/pkg/errors"
	"github.com/ajitpratap0/nebula-fdw/pkg/json"
)

// Paging names where a response keeps its records and next cursor, and
// which query parameters carry the cursor and page size.
type Paging struct {
	RecordsKey    string
	CursorParam   string
	NextCursorKey string
	LimitParam    string
}

// Client fetches pages with GET {path}?{limit}=n&{cursor}=token.
type Client struct {
	http   *clients.HTTPClient
	paging Paging
}

// NewClient creates a paging client
func NewClient(httpClient *clients.HTTPClient, paging Paging) *Client {
	return &Client{http: httpClient, paging: paging}
}

// Fetch implements scan.Client. The collection is the resource path.
func (c *Client) Fetch(ctx context.Context, req scan.FetchRequest) (*scan.Page, error) {
	query := url.Values{}
	if c.paging.LimitParam != "" && req.Limit > 0 {
		query.Set(c.paging.LimitParam, strconv.Itoa(req.Limit))
	}
	if scan.HasToken(req.Token) {
		query.Set(c.paging.CursorParam, tokenString(req.Token))
	}

	var body map[string]interface{}
	err := c.http.DoJSON(ctx, &clients.Request{
		Method: http.MethodGet,
		Path:   req.Collection,
		Query:  query,
	}, &body)
	if err != nil {
		return nil, err
	}

	raw, ok := lookup(body, c.paging.RecordsKey)
	if !ok || raw == nil {
		return &scan.Page{}, nil
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeData, "`%s` is not an array", c.paging.RecordsKey).
			WithDetail(errors.DetailCollection, req.Collection)
	}

	records := make([]scan.Record, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, errors.Newf(errors.ErrorTypeData, "record %d of `%s` is not an object", i, c.paging.RecordsKey).
				WithDetail(errors.DetailCollection, req.Collection)
		}
		records = append(records, scan.FlatRecord(obj))
	}

	page := &scan.Page{Records: records}
	if next, ok := lookup(body, c.paging.NextCursorKey); ok {
		page.Next = normalizeToken(next)
	}
	return page, nil
}

// Close releases idle connections
func (c *Client) Close() error {
	return c.http.Close()
}

// lookup walks a dotted path through nested objects.
func lookup(doc map[string]interface{}, path string) (interface{}, bool) {
	var cur interface{} = doc
	for _, key := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		if cur, ok = obj[key]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// normalizeToken keeps string and numeric cursors; anything else ends paging.
func normalizeToken(v interface{}) scan.Token {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	}
	return nil
}

func tokenString(t scan.Token) string {
	if s, ok := t.(string); ok {
		return s
	}
	return ""
}
