// Package scan implements the scan protocol shared by all connectors: the
// column contract, the record to row mapping, the paged cursor and the
// session state machine tying them together.
package scan

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-fdw/pkg/config"
	"github.com/ajitpratap0/nebula-fdw/pkg/connector/core"
	"github.com/ajitpratap0/nebula-fdw/pkg/errors"
	"github.com/ajitpratap0/nebula-fdw/pkg/logger"
	"github.com/ajitpratap0/nebula-fdw/pkg/metrics"
	"github.com/ajitpratap0/nebula-fdw/pkg/observability"
)

// DefaultBatchSize is used when a session is configured without one.
const DefaultBatchSize = config.DefaultBatchSize

// State is the lifecycle state of a session.
type State int

const (
	StateUnstarted State = iota
	StateActive
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateUnstarted:
		return "unstarted"
	case StateActive:
		return "active"
	case StateEnded:
		return "ended"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ClientOpener builds a source client from scan options. It must not
// perform I/O; missing or malformed options are configuration errors.
type ClientOpener func(ctx context.Context, options config.Options) (Client, error)

// SchemaResolver derives the allowed schema from scan options, for sources
// whose columns are declared by the user rather than fixed.
type SchemaResolver func(options config.Options) (AllowedSchema, error)

// SessionConfig describes how a session reaches one source.
type SessionConfig struct {
	// Connector is the connector id used in metrics and traces.
	Connector string
	// Table names the foreign table in logs.
	Table string
	// Schema is the fixed allowed schema. Ignored when ResolveSchema is set.
	Schema        AllowedSchema
	ResolveSchema SchemaResolver
	// CollectionOption names the table option holding the collection.
	CollectionOption string
	Open             ClientOpener
	// BatchSize is the page size. MaxBatchSize, when positive, caps it.
	BatchSize    int
	MaxBatchSize int
	// Tracing emits scan.begin and scan.fetch spans.
	Tracing bool

	Logger  *zap.Logger
	Metrics *metrics.ScanCollector
}

// Session runs one scan: Begin, Next until end of stream, End.
//
// A session is owned by a single scan and is not safe for concurrent use.
// Separate sessions share nothing and may run in parallel.
type Session struct {
	cfg    SessionConfig
	id     string
	logger *zap.Logger

	state      State
	columns    []core.Column
	collection string
	client     Client
	cursor     *Cursor
	rows       int64
	aborted    error
}

// NewSession creates an unstarted session.
func NewSession(cfg SessionConfig) *Session {
	base := cfg.Logger
	if base == nil {
		base = logger.Get()
	}
	s := &Session{cfg: cfg, id: uuid.NewString()}
	s.logger = logger.FromContext(s.scanContext(context.Background()), base)
	return s
}

// scanContext tags ctx with the scan id and table for logger.FromContext.
// The connector is already carried by the connector's logger.
func (s *Session) scanContext(ctx context.Context) context.Context {
	return logger.ContextWithScan(ctx, s.id, "", s.cfg.Table)
}

// ID returns the scan identifier used in logs
func (s *Session) ID() string { return s.id }

// State returns the lifecycle state
func (s *Session) State() State { return s.state }

// Cursor returns the active cursor, nil outside Active
func (s *Session) Cursor() *Cursor { return s.cursor }

// Rows returns the number of rows produced
func (s *Session) Rows() int64 { return s.rows }

// Begin validates columns against the allowed schema, opens the client and
// prepares the cursor. No record is fetched. On failure the session stays
// Unstarted and anything half-built is released.
func (s *Session) Begin(ctx context.Context, columns []core.Column, hints core.ScanHints, options config.Options) error {
	if s.state != StateUnstarted {
		return errors.ContractViolation(fmt.Sprintf("begin called on %s scan", s.state))
	}
	ctx = s.scanContext(ctx)
	if s.cfg.Tracing {
		var span trace.Span
		ctx, span = observability.Tracer().Start(ctx, observability.SpanBegin,
			trace.WithAttributes(observability.ConnectorAttr(s.cfg.Connector)))
		defer span.End()
	}

	if options == nil {
		options = config.Options{}
	}

	schema := s.cfg.Schema
	if s.cfg.ResolveSchema != nil {
		resolved, err := s.cfg.ResolveSchema(options)
		if err != nil {
			return s.failBegin(err)
		}
		schema = resolved
	}
	if err := schema.Validate(columns); err != nil {
		return s.failBegin(err)
	}

	collection := ""
	if s.cfg.CollectionOption != "" {
		c, err := options.Require(s.cfg.CollectionOption, core.TableLevel)
		if err != nil {
			return s.failBegin(err)
		}
		collection = c
	}

	if s.cfg.Open == nil {
		return s.failBegin(errors.ContractViolation("session has no client opener"))
	}
	client, err := s.cfg.Open(ctx, options)
	if err != nil {
		return s.failBegin(err)
	}
	if client == nil {
		return s.failBegin(errors.ContractViolation("client opener returned no client"))
	}

	batch := s.batchSize(hints)
	s.columns = append([]core.Column(nil), columns...)
	s.collection = collection
	s.client = client
	s.cursor = NewCursor(collection, client, batch,
		WithCursorLogger(s.logger),
		WithCursorMetrics(s.cfg.Metrics),
		WithCursorTracing(s.cfg.Tracing))
	s.state = StateActive
	s.cfg.Metrics.ScanStarted()

	s.logger.Info("scan started",
		zap.String("collection", collection),
		zap.Int("columns", len(columns)),
		zap.Int("batch_size", batch))
	return nil
}

func (s *Session) failBegin(err error) error {
	kind := errors.Classify(err)
	s.cfg.Metrics.Error(string(kind))
	s.logger.Warn("scan rejected", zap.String("kind", string(kind)), zap.Error(err))
	return err
}

// batchSize applies the connector cap and a smaller limit hint.
func (s *Session) batchSize(hints core.ScanHints) int {
	batch := s.cfg.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	if s.cfg.MaxBatchSize > 0 && batch > s.cfg.MaxBatchSize {
		batch = s.cfg.MaxBatchSize
	}
	if hints.Limit != nil && hints.Limit.Count > 0 {
		want := hints.Limit.Count
		if hints.Limit.Offset > 0 {
			want += hints.Limit.Offset
		}
		if want < int64(batch) {
			batch = int(want)
		}
	}
	return batch
}

// Next returns the next row; ok is false at end of stream, which repeats
// on every later call. A client or mapping failure aborts the scan: it is
// returned now and on every later call, without further fetches.
func (s *Session) Next(ctx context.Context) (core.Row, bool, error) {
	switch s.state {
	case StateUnstarted:
		return core.Row{}, false, errors.ContractViolation("next called before begin")
	case StateEnded:
		return core.Row{}, false, errors.ContractViolation("next called after end")
	}
	if s.aborted != nil {
		return core.Row{}, false, s.aborted
	}

	if s.cursor.Buffered() == 0 {
		ctx = s.scanContext(ctx)
	}
	record, ok, err := s.cursor.Next(ctx)
	if err != nil {
		return core.Row{}, false, s.abort(err)
	}
	if !ok {
		return core.Row{}, false, nil
	}

	row, err := ToRow(record, s.columns, s.cursor.Yielded()-1)
	if err != nil {
		return core.Row{}, false, s.abort(err)
	}
	s.rows++
	s.cfg.Metrics.Row()
	return row, true, nil
}

func (s *Session) abort(err error) error {
	s.aborted = err
	kind := errors.Classify(err)
	s.cfg.Metrics.Error(string(kind))
	s.logger.Error("scan aborted",
		zap.String("collection", s.collection),
		zap.String("kind", string(kind)),
		zap.Int64("rows", s.rows),
		zap.Error(err))
	return err
}

// Err returns the error that aborted the scan, if any
func (s *Session) Err() error { return s.aborted }

// End releases the cursor and client. It is idempotent and valid in any
// state. A failure closing the client is returned once.
func (s *Session) End() error {
	if s.state == StateEnded {
		return nil
	}
	wasActive := s.state == StateActive
	s.state = StateEnded

	if !wasActive {
		return nil
	}

	fetches := 0
	if s.cursor != nil {
		fetches = s.cursor.Fetches()
		s.cursor.Close()
	}
	var closeErr error
	if closer, ok := s.client.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			closeErr = errors.Wrap(err, errors.ErrorTypeClient, "failed to close source client").
				WithDetail(errors.DetailCollection, s.collection)
		}
	}
	s.client = nil
	s.cfg.Metrics.ScanEnded()

	s.logger.Info("scan ended",
		zap.String("collection", s.collection),
		zap.Int64("rows", s.rows),
		zap.Int("fetches", fetches),
		zap.Bool("aborted", s.aborted != nil))
	return closeErr
}
