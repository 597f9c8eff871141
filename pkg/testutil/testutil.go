// Package testutil provides testing utilities for nebula-fdw
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/nebula-fdw/pkg/connector/scan"
)

// TestLogger creates a test logger that writes to the test output.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TestContext creates a test context with a 30-second timeout.
// The caller must call the returned cancel function to avoid leaks.
func TestContext(_ *testing.T) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// PagedSource is a fake scan.Client serving fixed pages. Page i is served
// for the i-th fetch; fetches past the last page return an empty page.
// Tokens are the next page index as an int; the last page carries none
// unless TrailingToken is set.
type PagedSource struct {
	Pages [][]scan.Record
	// TrailingToken makes the last page carry a token, so the source has to
	// be asked once more to learn it is drained.
	TrailingToken bool
	// FailOn maps a 1-based fetch number to the error it returns.
	FailOn map[int]error

	mu       sync.Mutex
	calls    int
	requests []scan.FetchRequest
	closed   int
}

// NewPagedSource splits records into pages of size batch.
func NewPagedSource(records []scan.Record, batch int) *PagedSource {
	src := &PagedSource{}
	for start := 0; start < len(records); start += batch {
		end := start + batch
		if end > len(records) {
			end = len(records)
		}
		src.Pages = append(src.Pages, records[start:end])
	}
	return src
}

// Fetch implements scan.Client
func (p *PagedSource) Fetch(_ context.Context, req scan.FetchRequest) (*scan.Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls++
	p.requests = append(p.requests, req)
	if err, ok := p.FailOn[p.calls]; ok {
		return nil, err
	}

	idx := 0
	if tok, ok := req.Token.(int); ok {
		idx = tok
	}
	if idx >= len(p.Pages) {
		return &scan.Page{}, nil
	}

	records := make([]scan.Record, len(p.Pages[idx]))
	copy(records, p.Pages[idx])
	page := &scan.Page{Records: records}
	if idx+1 < len(p.Pages) || p.TrailingToken {
		page.Next = idx + 1
	}
	return page, nil
}

// Close records that the scan released the client
func (p *PagedSource) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	return nil
}

// Calls returns the number of fetches served
func (p *PagedSource) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// Requests returns every fetch request received
func (p *PagedSource) Requests() []scan.FetchRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]scan.FetchRequest(nil), p.requests...)
}

// Closed returns how many times Close was called
func (p *PagedSource) Closed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Records builds flat records numbered from 1 under the given field.
func Records(field string, n int) []scan.Record {
	out := make([]scan.Record, n)
	for i := range out {
		out[i] = scan.FlatRecord{field: int64(i + 1)}
	}
	return out
}
