package scan_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ajitpratap0/nebula-fdw/pkg/config"
	"github.com/ajitpratap0/nebula-fdw/pkg/connector/core"
	"github.com/ajitpratap0/nebula-fdw/pkg/connector/scan"
	"github.com/ajitpratap0/nebula-fdw/pkg/errors"
	"github.com/ajitpratap0/nebula-fdw/pkg/logger"
	"github.com/ajitpratap0/nebula-fdw/pkg/metrics"
	"github.com/ajitpratap0/nebula-fdw/pkg/observability"
	"github.com/ajitpratap0/nebula-fdw/pkg/testutil"
)

var vectorColumns = []core.Column{
	{Name: "id", Type: core.TypeInt64},
	{Name: "payload", Type: core.TypeJsonb},
	{Name: "vector", Type: core.TypeFloatArray},
}

func newSession(t *testing.T, client scan.Client, batch int) (*scan.Session, *int) {
	t.Helper()
	opens := 0
	s := scan.NewSession(scan.SessionConfig{
		Connector:        "test",
		Schema:           vectorSchema,
		CollectionOption: "collection_name",
		Open: func(_ context.Context, opts config.Options) (scan.Client, error) {
			if _, err := opts.Require("api_url", core.ServerLevel); err != nil {
				return nil, err
			}
			opens++
			return client, nil
		},
		BatchSize: batch,
		Logger:    testutil.TestLogger(t),
		Metrics:   metrics.NewScanCollector("test"),
	})
	return s, &opens
}

var validOptions = config.Options{"api_url": "http://q", "collection_name": "points"}

func TestSessionConcreteScenario(t *testing.T) {
	src := &testutil.PagedSource{Pages: [][]scan.Record{
		{scan.FlatRecord{"id": int64(1)}, scan.FlatRecord{"id": int64(2)}},
		{scan.FlatRecord{"id": int64(3)}},
	}}
	s, _ := newSession(t, src, 2)
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	require.NoError(t, s.Begin(ctx, vectorColumns, core.ScanHints{}, validOptions))
	assert.Equal(t, 0, src.Calls(), "begin must not fetch")

	expectRow := func(id int64, fetches int) {
		t.Helper()
		row, ok, err := s.Next(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, 3, row.Len())
		cell, _ := row.Get("id")
		assert.Equal(t, id, cell.Int)
		payload, _ := row.Get("payload")
		assert.Nil(t, payload)
		vector, _ := row.Get("vector")
		assert.Nil(t, vector)
		assert.Equal(t, fetches, src.Calls())
	}
	expectRow(1, 1)
	expectRow(2, 1)
	expectRow(3, 2)

	for i := 0; i < 2; i++ {
		row, ok, err := s.Next(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, 0, row.Len())
		assert.Equal(t, 2, src.Calls())
	}

	assert.Equal(t, int64(3), s.Rows())
	require.NoError(t, s.End())
	assert.Equal(t, 1, src.Closed())
}

func TestSessionNextOutsideActive(t *testing.T) {
	s, _ := newSession(t, testutil.NewPagedSource(nil, 1), 1)
	ctx := context.Background()

	_, _, err := s.Next(ctx)
	require.Error(t, err)
	assert.Equal(t, errors.KindInternal, errors.Classify(err))
	assert.Contains(t, err.Error(), "before begin")

	require.NoError(t, s.Begin(ctx, vectorColumns, core.ScanHints{}, validOptions))
	require.NoError(t, s.End())

	_, _, err = s.Next(ctx)
	require.Error(t, err)
	assert.Equal(t, errors.KindInternal, errors.Classify(err))
	assert.Contains(t, err.Error(), "after end")
}

func TestSessionEndIsIdempotent(t *testing.T) {
	src := testutil.NewPagedSource(testutil.Records("id", 2), 2)
	s, _ := newSession(t, src, 2)
	require.NoError(t, s.Begin(context.Background(), vectorColumns, core.ScanHints{}, validOptions))

	require.NoError(t, s.End())
	require.NoError(t, s.End())
	assert.Equal(t, scan.StateEnded, s.State())
	assert.Equal(t, 1, src.Closed())
	assert.Equal(t, 0, src.Calls())
}

func TestSessionEndWithoutBegin(t *testing.T) {
	s, _ := newSession(t, testutil.NewPagedSource(nil, 1), 1)
	require.NoError(t, s.End())
	assert.Equal(t, scan.StateEnded, s.State())

	err := s.Begin(context.Background(), vectorColumns, core.ScanHints{}, validOptions)
	require.Error(t, err)
	assert.Equal(t, errors.KindInternal, errors.Classify(err))
}

func TestSessionBeginTwice(t *testing.T) {
	s, _ := newSession(t, testutil.NewPagedSource(nil, 1), 1)
	ctx := context.Background()
	require.NoError(t, s.Begin(ctx, vectorColumns, core.ScanHints{}, validOptions))
	err := s.Begin(ctx, vectorColumns, core.ScanHints{}, validOptions)
	require.Error(t, err)
	assert.Equal(t, scan.StateActive, s.State())
}

func TestSessionBeginFailuresStayUnstarted(t *testing.T) {
	tests := []struct {
		name    string
		columns []core.Column
		options config.Options
		kind    errors.Kind
		opened  bool
	}{
		{
			name:    "schema violation",
			columns: []core.Column{{Name: "id", Type: core.TypeText}},
			options: validOptions,
			kind:    errors.KindSchema,
		},
		{
			name:    "missing collection",
			columns: vectorColumns,
			options: config.Options{"api_url": "http://q"},
			kind:    errors.KindConfiguration,
		},
		{
			name:    "missing server option",
			columns: vectorColumns,
			options: config.Options{"collection_name": "points"},
			kind:    errors.KindConfiguration,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := testutil.NewPagedSource(testutil.Records("id", 1), 1)
			s, opens := newSession(t, src, 1)

			err := s.Begin(context.Background(), tt.columns, core.ScanHints{}, tt.options)
			require.Error(t, err)
			assert.Equal(t, tt.kind, errors.Classify(err))
			assert.Equal(t, scan.StateUnstarted, s.State())
			assert.Equal(t, 0, *opens)
			assert.Equal(t, 0, src.Calls())
			assert.Nil(t, s.Cursor())

			// a corrected begin on the same session still works
			require.NoError(t, s.Begin(context.Background(), vectorColumns, core.ScanHints{}, validOptions))
			assert.Equal(t, scan.StateActive, s.State())
		})
	}
}

func TestSessionSchemaCheckedBeforeOptions(t *testing.T) {
	s, _ := newSession(t, testutil.NewPagedSource(nil, 1), 1)
	err := s.Begin(context.Background(), []core.Column{{Name: "nope", Type: core.TypeText}}, core.ScanHints{}, nil)
	require.Error(t, err)
	assert.Equal(t, errors.KindSchema, errors.Classify(err))
}

func TestSessionMappingErrorIsSticky(t *testing.T) {
	src := &testutil.PagedSource{Pages: [][]scan.Record{{
		scan.FlatRecord{"id": int64(1)},
		scan.FlatRecord{"id": "not-a-number"},
		scan.FlatRecord{"id": int64(3)},
	}}}
	s, _ := newSession(t, src, 10)
	ctx := context.Background()
	require.NoError(t, s.Begin(ctx, vectorColumns[:1], core.ScanHints{}, validOptions))

	row, ok, err := s.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(1), row.Fields[0].Cell.Int)

	_, ok, err = s.Next(ctx)
	require.Error(t, err)
	assert.False(t, ok)
	assert.Equal(t, errors.KindMapping, errors.Classify(err))
	d := errors.Render(err)
	assert.Equal(t, "id", d.Column)
	require.NotNil(t, d.RecordIndex)
	assert.Equal(t, int64(1), *d.RecordIndex)

	_, ok, again := s.Next(ctx)
	assert.False(t, ok)
	assert.Same(t, err, again)
	assert.Equal(t, err, s.Err())
	assert.Equal(t, int64(1), s.Rows())
	assert.Equal(t, 1, src.Calls())

	require.NoError(t, s.End())
}

func TestSessionClientErrorIsSticky(t *testing.T) {
	src := testutil.NewPagedSource(testutil.Records("id", 4), 2)
	src.FailOn = map[int]error{2: errors.New(errors.ErrorTypeTimeout, "deadline exceeded")}
	s, _ := newSession(t, src, 2)
	ctx := context.Background()
	require.NoError(t, s.Begin(ctx, vectorColumns, core.ScanHints{}, validOptions))

	for i := 0; i < 2; i++ {
		_, ok, err := s.Next(ctx)
		require.NoError(t, err)
		require.True(t, ok)
	}
	_, _, err := s.Next(ctx)
	require.Error(t, err)
	assert.Equal(t, errors.KindClient, errors.Classify(err))

	_, _, err = s.Next(ctx)
	require.Error(t, err)
	assert.Equal(t, 2, src.Calls(), "an aborted scan must not fetch again")
}

func TestSessionLimitHintShrinksPage(t *testing.T) {
	tests := []struct {
		name  string
		limit *core.Limit
		want  int
	}{
		{"no hint", nil, 100},
		{"smaller limit", &core.Limit{Count: 5}, 5},
		{"limit with offset", &core.Limit{Count: 5, Offset: 10}, 15},
		{"larger limit", &core.Limit{Count: 500}, 100},
		{"zero limit ignored", &core.Limit{Count: 0}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := testutil.NewPagedSource(testutil.Records("id", 30), 30)
			s, _ := newSession(t, src, 100)
			require.NoError(t, s.Begin(context.Background(), vectorColumns, core.ScanHints{Limit: tt.limit}, validOptions))
			assert.Equal(t, tt.want, s.Cursor().BatchSize())
		})
	}
}

func TestSessionMaxBatchSize(t *testing.T) {
	s := scan.NewSession(scan.SessionConfig{
		Schema:       vectorSchema,
		Open:         func(context.Context, config.Options) (scan.Client, error) { return testutil.NewPagedSource(nil, 1), nil },
		BatchSize:    1000,
		MaxBatchSize: 60,
		Logger:       testutil.TestLogger(t),
	})
	require.NoError(t, s.Begin(context.Background(), vectorColumns, core.ScanHints{}, nil))
	assert.Equal(t, 60, s.Cursor().BatchSize())
}

func TestSessionResolveSchema(t *testing.T) {
	s := scan.NewSession(scan.SessionConfig{
		ResolveSchema: func(opts config.Options) (scan.AllowedSchema, error) {
			if _, err := opts.Require("schema", core.TableLevel); err != nil {
				return scan.AllowedSchema{}, err
			}
			return scan.NewAllowedSchema(core.Column{Name: "name", Type: core.TypeText}), nil
		},
		Open:   func(context.Context, config.Options) (scan.Client, error) { return testutil.NewPagedSource(nil, 1), nil },
		Logger: testutil.TestLogger(t),
	})
	cols := []core.Column{{Name: "name", Type: core.TypeText}}

	err := s.Begin(context.Background(), cols, core.ScanHints{}, nil)
	require.Error(t, err)
	assert.Equal(t, errors.KindConfiguration, errors.Classify(err))

	require.NoError(t, s.Begin(context.Background(), cols, core.ScanHints{}, config.Options{"schema": "name:text"}))
}

func TestSessionOpenFailure(t *testing.T) {
	s := scan.NewSession(scan.SessionConfig{
		Schema: vectorSchema,
		Open: func(context.Context, config.Options) (scan.Client, error) {
			return nil, errors.InvalidOption("region", "", nil)
		},
		Logger: testutil.TestLogger(t),
	})
	err := s.Begin(context.Background(), vectorColumns, core.ScanHints{}, nil)
	require.Error(t, err)
	assert.Equal(t, "region", errors.Render(err).Option)
	assert.Equal(t, scan.StateUnstarted, s.State())
}

func TestSessionsAreIndependent(t *testing.T) {
	records := testutil.Records("id", 25)
	const workers = 4

	results := make([][]int64, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			src := testutil.NewPagedSource(records, 4)
			s, _ := newSession(t, src, 4)
			ctx := context.Background()
			if err := s.Begin(ctx, vectorColumns, core.ScanHints{}, validOptions); err != nil {
				t.Error(err)
				return
			}
			defer s.End()
			for {
				row, ok, err := s.Next(ctx)
				if err != nil {
					t.Error(err)
					return
				}
				if !ok {
					return
				}
				results[w] = append(results[w], row.Fields[0].Cell.Int)
			}
		}(w)
	}
	wg.Wait()

	require.Len(t, results[0], 25)
	for w := 1; w < workers; w++ {
		assert.Equal(t, results[0], results[w])
	}
}

func TestSessionsShareAClientWithoutInterference(t *testing.T) {
	src := testutil.NewPagedSource(testutil.Records("id", 5), 2)
	a, _ := newSession(t, src, 2)
	b, _ := newSession(t, src, 2)
	ctx := context.Background()
	require.NoError(t, a.Begin(ctx, vectorColumns, core.ScanHints{}, validOptions))
	require.NoError(t, b.Begin(ctx, vectorColumns, core.ScanHints{}, validOptions))
	assert.NotEqual(t, a.ID(), b.ID())

	var ga, gb []int64
	for {
		ra, okA, err := a.Next(ctx)
		require.NoError(t, err)
		rb, okB, err := b.Next(ctx)
		require.NoError(t, err)
		if okA {
			ga = append(ga, ra.Fields[0].Cell.Int)
		}
		if okB {
			gb = append(gb, rb.Fields[0].Cell.Int)
		}
		if !okA && !okB {
			break
		}
	}
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, ga)
	assert.Equal(t, ga, gb)
}

func TestSessionTagsContextAndLogs(t *testing.T) {
	obs, logs := observer.New(zapcore.DebugLevel)
	var openCtx, fetchCtx context.Context
	src := scan.ClientFunc(func(ctx context.Context, _ scan.FetchRequest) (*scan.Page, error) {
		fetchCtx = ctx
		return &scan.Page{Records: testutil.Records("id", 1)}, nil
	})
	s := scan.NewSession(scan.SessionConfig{
		Connector: "test",
		Table:     "points",
		Schema:    vectorSchema,
		Open: func(ctx context.Context, _ config.Options) (scan.Client, error) {
			openCtx = ctx
			return src, nil
		},
		Logger: zap.New(obs),
	})

	require.NoError(t, s.Begin(context.Background(), vectorColumns, core.ScanHints{}, nil))
	_, ok, err := s.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	for _, ctx := range []context.Context{openCtx, fetchCtx} {
		require.NotNil(t, ctx)
		assert.Equal(t, s.ID(), ctx.Value(logger.ScanIDKey))
		assert.Equal(t, "points", ctx.Value(logger.TableKey))
	}

	started := logs.FilterMessage("scan started").All()
	require.Len(t, started, 1)
	fields := started[0].ContextMap()
	assert.Equal(t, s.ID(), fields["scan_id"])
	assert.Equal(t, "points", fields["table"])
}

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return rec
}

func TestSessionTracing(t *testing.T) {
	tests := []struct {
		name    string
		tracing bool
		spans   []string
	}{
		{"disabled", false, nil},
		{"enabled", true, []string{observability.SpanBegin, observability.SpanFetch}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := withRecorder(t)
			var openSpan trace.SpanContext
			s := scan.NewSession(scan.SessionConfig{
				Connector: "test",
				Schema:    vectorSchema,
				Open: func(ctx context.Context, _ config.Options) (scan.Client, error) {
					openSpan = trace.SpanContextFromContext(ctx)
					return testutil.NewPagedSource(testutil.Records("id", 1), 1), nil
				},
				Tracing: tt.tracing,
				Logger:  testutil.TestLogger(t),
			})
			require.NoError(t, s.Begin(context.Background(), vectorColumns, core.ScanHints{}, nil))
			_, _, err := s.Next(context.Background())
			require.NoError(t, err)

			var names []string
			for _, span := range rec.Ended() {
				names = append(names, span.Name())
			}
			assert.Equal(t, tt.spans, names)

			if !tt.tracing {
				assert.False(t, openSpan.IsValid())
				return
			}
			// the client is opened inside scan.begin
			begin := rec.Ended()[0]
			assert.Equal(t, begin.SpanContext().SpanID(), openSpan.SpanID())
		})
	}
}
