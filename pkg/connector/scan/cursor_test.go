package scan_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebula-fdw/pkg/connector/scan"
	"github.com/ajitpratap0/nebula-fdw/pkg/errors"
	"github.com/ajitpratap0/nebula-fdw/pkg/testutil"
)

func drain(t *testing.T, c *scan.Cursor) []scan.Record {
	t.Helper()
	var out []scan.Record
	for {
		r, ok, err := c.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			return out
		}
		out = append(out, r)
	}
}

func TestCursorConstructionIsLazy(t *testing.T) {
	src := testutil.NewPagedSource(testutil.Records("id", 3), 2)
	c := scan.NewCursor("points", src, 2)
	assert.Equal(t, 0, src.Calls())
	assert.Equal(t, 0, c.Fetches())
	assert.False(t, c.Exhausted())
}

func TestCursorPaginationExactness(t *testing.T) {
	tests := []struct {
		n, batch    int
		wantFetches int
	}{
		{n: 0, batch: 2, wantFetches: 1},
		{n: 1, batch: 2, wantFetches: 1},
		{n: 2, batch: 2, wantFetches: 1},
		{n: 3, batch: 2, wantFetches: 2},
		{n: 10, batch: 3, wantFetches: 4},
		{n: 1000, batch: 1000, wantFetches: 1},
		{n: 2500, batch: 1000, wantFetches: 3},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("n=%d/batch=%d", tt.n, tt.batch), func(t *testing.T) {
			src := testutil.NewPagedSource(testutil.Records("id", tt.n), tt.batch)
			c := scan.NewCursor("points", src, tt.batch)

			got := drain(t, c)
			require.Len(t, got, tt.n)
			for i, r := range got {
				v, _ := r.Field("id")
				assert.Equal(t, int64(i+1), v)
			}
			assert.Equal(t, tt.wantFetches, src.Calls())
			assert.Equal(t, int64(tt.n), c.Yielded())

			// end of stream is permanent and free
			for i := 0; i < 3; i++ {
				_, ok, err := c.Next(context.Background())
				require.NoError(t, err)
				assert.False(t, ok)
			}
			assert.Equal(t, tt.wantFetches, src.Calls())
			assert.True(t, c.Exhausted())
		})
	}
}

func TestCursorTrailingTokenCostsOneEmptyFetch(t *testing.T) {
	src := testutil.NewPagedSource(testutil.Records("id", 4), 2)
	src.TrailingToken = true
	c := scan.NewCursor("points", src, 2)

	assert.Len(t, drain(t, c), 4)
	assert.Equal(t, 3, src.Calls())
	_, ok, _ := c.Next(context.Background())
	assert.False(t, ok)
	assert.Equal(t, 3, src.Calls())
}

func TestCursorThreadsTokenAndLimit(t *testing.T) {
	src := testutil.NewPagedSource(testutil.Records("id", 5), 2)
	c := scan.NewCursor("points", src, 2)
	drain(t, c)

	reqs := src.Requests()
	require.Len(t, reqs, 3)
	assert.Nil(t, reqs[0].Token)
	assert.Equal(t, 1, reqs[1].Token)
	assert.Equal(t, 2, reqs[2].Token)
	for _, r := range reqs {
		assert.Equal(t, "points", r.Collection)
		assert.Equal(t, 2, r.Limit)
	}
}

func TestCursorBuffersOnePage(t *testing.T) {
	src := testutil.NewPagedSource(testutil.Records("id", 5), 3)
	c := scan.NewCursor("points", src, 3)

	_, ok, err := c.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, c.Buffered())
	assert.Equal(t, 1, src.Calls())
}

func TestCursorFetchFailure(t *testing.T) {
	boom := errors.New(errors.ErrorTypeConnection, "connection reset")
	src := testutil.NewPagedSource(testutil.Records("id", 4), 2)
	src.FailOn = map[int]error{2: boom}
	c := scan.NewCursor("points", src, 2)

	for i := 0; i < 2; i++ {
		_, ok, err := c.Next(context.Background())
		require.NoError(t, err)
		require.True(t, ok)
	}

	_, ok, err := c.Next(context.Background())
	require.Error(t, err)
	assert.False(t, ok)
	assert.False(t, c.Exhausted())
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, errors.KindClient, errors.Classify(err))
	d := errors.Render(err)
	require.NotNil(t, d.RecordIndex)
	assert.Equal(t, int64(2), *d.RecordIndex)
	assert.Contains(t, d.Message, "points")

	// the cursor does not retry by itself; asking again repeats the fetch
	r, ok, err := c.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	v, _ := r.Field("id")
	assert.Equal(t, int64(3), v)
	assert.Equal(t, 3, src.Calls())
	assert.Equal(t, 1, src.Requests()[2].Token)
}

func TestCursorNilPageEndsStream(t *testing.T) {
	calls := 0
	client := scan.ClientFunc(func(context.Context, scan.FetchRequest) (*scan.Page, error) {
		calls++
		return nil, nil
	})
	c := scan.NewCursor("c", client, 10)
	assert.Empty(t, drain(t, c))
	assert.Empty(t, drain(t, c))
	assert.Equal(t, 1, calls)
}

func TestCursorCloseDropsBuffer(t *testing.T) {
	src := testutil.NewPagedSource(testutil.Records("id", 4), 4)
	c := scan.NewCursor("c", src, 4)
	_, _, err := c.Next(context.Background())
	require.NoError(t, err)

	c.Close()
	assert.Equal(t, 0, c.Buffered())
	_, ok, err := c.Next(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, src.Calls())
}

func TestCursorDefaultBatchSize(t *testing.T) {
	c := scan.NewCursor("c", testutil.NewPagedSource(nil, 1), 0)
	assert.Equal(t, scan.DefaultBatchSize, c.BatchSize())
}

func TestHasToken(t *testing.T) {
	empty := ""
	next := "n"
	offset := int64(0)
	tests := []struct {
		tok  scan.Token
		want bool
	}{
		{nil, false},
		{"", false},
		{"abc", true},
		{0, true},
		{(*string)(nil), false},
		{&empty, false},
		{&next, true},
		{(*int64)(nil), false},
		{&offset, true},
		{map[string]interface{}(nil), false},
		{[]interface{}{"k"}, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, scan.HasToken(tt.tok), "%#v", tt.tok)
	}
}

func TestCursorNilOffsetEndsScan(t *testing.T) {
	calls := 0
	src := scan.ClientFunc(func(context.Context, scan.FetchRequest) (*scan.Page, error) {
		calls++
		var next *int64
		return &scan.Page{Records: testutil.Records("id", 2), Next: next}, nil
	})
	c := scan.NewCursor("points", src, 10)

	assert.Len(t, drain(t, c), 2)
	assert.Equal(t, 1, calls)
	assert.True(t, c.Exhausted())
}
