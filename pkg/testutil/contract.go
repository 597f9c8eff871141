package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/ajitpratap0/nebula-fdw/pkg/connector/core"
	"github.com/ajitpratap0/nebula-fdw/pkg/errors"
)

// ConnectorSuite checks the scan lifecycle of one connector against a fake
// source serving exactly Rows rows for Columns and Options.
//
//	suite.Run(t, &testutil.ConnectorSuite{
//	    NewConnector: func() core.Connector { return newSource(t, 2) },
//	    Columns:      allColumns,
//	    Options:      options(srv.URL, "secret"),
//	    Rows:         3,
//	})
type ConnectorSuite struct {
	suite.Suite

	NewConnector func() core.Connector
	Columns      []core.Column
	Options      map[string]string
	Rows         int

	ctx    context.Context
	cancel context.CancelFunc
	conn   core.Connector
}

// SetupTest creates a fresh connector for every test
func (s *ConnectorSuite) SetupTest() {
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 30*time.Second)
	s.conn = s.NewConnector()
}

// TearDownTest ends whatever scan the test left open
func (s *ConnectorSuite) TearDownTest() {
	s.NoError(s.conn.EndScan())
	s.cancel()
}

func (s *ConnectorSuite) drain() int {
	n := 0
	for {
		_, ok, err := s.conn.IterScan(s.ctx)
		s.Require().NoError(err)
		if !ok {
			return n
		}
		n++
	}
}

func (s *ConnectorSuite) TestIterateBeforeBegin() {
	_, ok, err := s.conn.IterScan(s.ctx)
	s.Require().Error(err)
	s.False(ok)
	s.Equal(errors.KindInternal, errors.Classify(err))
}

func (s *ConnectorSuite) TestFullScan() {
	s.Require().NoError(s.conn.BeginScan(s.ctx, s.Columns, core.ScanHints{}, s.Options))
	s.Equal(s.Rows, s.drain())

	for i := 0; i < 2; i++ {
		_, ok, err := s.conn.IterScan(s.ctx)
		s.NoError(err)
		s.False(ok, "end of stream must repeat")
	}
}

func (s *ConnectorSuite) TestRescan() {
	for i := 0; i < 2; i++ {
		s.Require().NoError(s.conn.BeginScan(s.ctx, s.Columns, core.ScanHints{}, s.Options))
		s.Equal(s.Rows, s.drain(), "scan %d", i+1)
	}
}

func (s *ConnectorSuite) TestEndIsIdempotent() {
	s.Require().NoError(s.conn.BeginScan(s.ctx, s.Columns, core.ScanHints{}, s.Options))
	s.NoError(s.conn.EndScan())
	s.NoError(s.conn.EndScan())

	_, _, err := s.conn.IterScan(s.ctx)
	s.Error(err)
}

func (s *ConnectorSuite) TestUnknownColumn() {
	columns := append(append([]core.Column(nil), s.Columns...), core.Column{Name: "no_such_column", Type: core.TypeText})
	err := s.conn.BeginScan(s.ctx, columns, core.ScanHints{}, s.Options)
	s.Require().Error(err)

	d := errors.Render(err)
	s.Equal(errors.KindSchema, d.Kind)
	s.Equal("no_such_column", d.Column)
}

func (s *ConnectorSuite) TestMissingTableOptions() {
	err := s.conn.BeginScan(s.ctx, s.Columns, core.ScanHints{}, map[string]string{})
	s.Require().Error(err)
	s.Equal(errors.KindConfiguration, errors.Classify(err))
}
