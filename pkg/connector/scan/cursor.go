package scan

import (
	"context"
	"reflect"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-fdw/pkg/errors"
	"github.com/ajitpratap0/nebula-fdw/pkg/metrics"
	"github.com/ajitpratap0/nebula-fdw/pkg/observability"
)

// Token is an opaque continuation value defined by each source: an offset,
// a cursor string, a pagination token. nil and "" both mean "no more pages".
type Token interface{}

// HasToken reports whether t marks a further page. Nil pointers, maps and
// slices count as absent.
func HasToken(t Token) bool {
	switch v := t.(type) {
	case nil:
		return false
	case string:
		return v != ""
	case *string:
		return v != nil && *v != ""
	}
	rv := reflect.ValueOf(t)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice:
		return !rv.IsNil()
	}
	return true
}

// FetchRequest asks a source for one page.
type FetchRequest struct {
	Collection string
	// Token is nil for the first page.
	Token Token
	Limit int
}

// Page is one batch returned by a source.
type Page struct {
	Records []Record
	// Next continues after this page. Absent means this was the last page.
	Next Token
}

// Client fetches pages from one source. Implementations that also satisfy
// io.Closer are closed when the scan ends.
type Client interface {
	Fetch(ctx context.Context, req FetchRequest) (*Page, error)
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, req FetchRequest) (*Page, error)

// Fetch implements Client
func (f ClientFunc) Fetch(ctx context.Context, req FetchRequest) (*Page, error) {
	return f(ctx, req)
}

// CursorOption configures a Cursor.
type CursorOption func(*Cursor)

// WithCursorLogger sets the cursor logger
func WithCursorLogger(l *zap.Logger) CursorOption {
	return func(c *Cursor) { c.logger = l }
}

// WithCursorMetrics records fetches on m
func WithCursorMetrics(m *metrics.ScanCollector) CursorOption {
	return func(c *Cursor) { c.metrics = m }
}

// WithCursorTracing wraps each fetch in a scan.fetch span
func WithCursorTracing(enabled bool) CursorOption {
	return func(c *Cursor) { c.tracing = enabled }
}

// Cursor pulls records from a Client one at a time, fetching a page only
// when its buffer runs dry. At most one page is held in memory.
//
// A Cursor belongs to a single scan and is not safe for concurrent use.
type Cursor struct {
	collection string
	client     Client
	batchSize  int

	buffer    []Record
	pos       int
	token     Token
	lastPage  bool
	exhausted bool

	fetches int
	yielded int64

	logger  *zap.Logger
	metrics *metrics.ScanCollector
	tracing bool
}

// NewCursor creates a cursor over collection. It performs no I/O.
func NewCursor(collection string, client Client, batchSize int, opts ...CursorOption) *Cursor {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	c := &Cursor{
		collection: collection,
		client:     client,
		batchSize:  batchSize,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Next returns the next record. ok is false at end of stream, which is
// permanent: once reached, Next never calls the client again.
//
// A fetch failure is returned as a client error carrying the collection and
// the number of records yielded so far. The cursor does not retry and does
// not mark itself exhausted, so a later call repeats the same fetch.
func (c *Cursor) Next(ctx context.Context) (Record, bool, error) {
	if c.exhausted {
		return nil, false, nil
	}
	if c.pos < len(c.buffer) {
		return c.pop(), true, nil
	}
	if c.lastPage {
		c.finish()
		return nil, false, nil
	}

	page, err := c.fetch(ctx)
	if err != nil {
		return nil, false, errors.ClientFailure(c.collection, c.yielded, err)
	}
	if page == nil || len(page.Records) == 0 {
		c.finish()
		return nil, false, nil
	}

	c.buffer = page.Records
	c.pos = 0
	c.token = page.Next
	c.lastPage = !HasToken(page.Next)
	return c.pop(), true, nil
}

func (c *Cursor) fetch(ctx context.Context) (*Page, error) {
	req := FetchRequest{Collection: c.collection, Token: c.token, Limit: c.batchSize}
	c.fetches++

	var span *observability.FetchSpan
	if c.tracing {
		ctx, span = observability.StartFetch(ctx, c.metrics.Connector(), c.collection, c.batchSize, HasToken(c.token))
	}
	timer := c.metrics.StartFetch()
	page, err := c.client.Fetch(ctx, req)

	records, next := 0, false
	if page != nil {
		records, next = len(page.Records), HasToken(page.Next)
	}
	elapsed := timer.Done(records, err)
	span.End(records, next, err)

	if err != nil {
		c.logger.Warn("fetch failed",
			zap.String("collection", c.collection),
			zap.Int("fetch", c.fetches),
			zap.Int64("offset", c.yielded),
			zap.Error(err))
		return nil, err
	}
	c.logger.Debug("fetched page",
		zap.String("collection", c.collection),
		zap.Int("fetch", c.fetches),
		zap.Int("batch_size", c.batchSize),
		zap.Int("records", records),
		zap.Bool("token_present", next),
		zap.Duration("elapsed", elapsed))
	return page, nil
}

func (c *Cursor) pop() Record {
	r := c.buffer[c.pos]
	c.buffer[c.pos] = nil
	c.pos++
	c.yielded++
	return r
}

func (c *Cursor) finish() {
	c.exhausted = true
	c.buffer = nil
	c.pos = 0
	c.token = nil
}

// Close drops buffered records and the continuation token. Next reports
// end of stream afterwards.
func (c *Cursor) Close() {
	c.finish()
}

// Exhausted reports whether end of stream has been reached
func (c *Cursor) Exhausted() bool { return c.exhausted }

// Fetches returns the number of fetches issued, failed ones included
func (c *Cursor) Fetches() int { return c.fetches }

// Yielded returns the number of records returned so far
func (c *Cursor) Yielded() int64 { return c.yielded }

// Buffered returns the number of records waiting in the buffer
func (c *Cursor) Buffered() int { return len(c.buffer) - c.pos }

// BatchSize returns the page size requested from the client
func (c *Cursor) BatchSize() int { return c.batchSize }
