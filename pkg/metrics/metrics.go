// Package metrics provides Prometheus metrics for scans.
//
// # Basic Usage
//
//	collector := metrics.NewScanCollector("qdrant")
//	timer := collector.StartFetch()
//	page, err := client.Fetch(ctx, req)
//	timer.Done(len(page.Records), err)
//	collector.Row()
//
// All collectors are registered with the default registry through promauto.
// Labels are connector ids, so cardinality stays bounded by the registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchesTotal counts page fetches issued to source clients.
	// Labels: connector, status (success/failure)
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nebula_fdw_scan_fetches_total",
			Help: "Total number of page fetches issued by scans",
		},
		[]string{"connector", "status"},
	)

	// RowsTotal counts rows returned to the host.
	RowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nebula_fdw_scan_rows_total",
			Help: "Total number of rows produced by scans",
		},
		[]string{"connector"},
	)

	// ErrorsTotal counts scan failures by taxonomy kind.
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nebula_fdw_scan_errors_total",
			Help: "Total number of scan failures by kind",
		},
		[]string{"connector", "kind"},
	)

	// FetchDuration tracks the latency of a single page fetch.
	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nebula_fdw_scan_fetch_duration_seconds",
			Help:    "Latency of page fetches in seconds",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms .. ~10s
		},
		[]string{"connector"},
	)

	// BatchRecords tracks how many records each fetch returned.
	BatchRecords = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nebula_fdw_scan_batch_records",
			Help:    "Number of records returned per page fetch",
			Buckets: []float64{0, 1, 10, 60, 100, 500, 1000, 5000},
		},
		[]string{"connector"},
	)

	// ActiveScans tracks scans between begin and end.
	ActiveScans = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nebula_fdw_active_scans",
			Help: "Number of scans currently open",
		},
		[]string{"connector"},
	)
)

// ScanCollector records scan metrics for one connector.
// A nil *ScanCollector records nothing.
type ScanCollector struct {
	connector    string
	fetchOK      prometheus.Counter
	fetchFailed  prometheus.Counter
	rows         prometheus.Counter
	fetchLatency prometheus.Observer
	batchRecords prometheus.Observer
	active       prometheus.Gauge
}

// NewScanCollector binds the scan metrics to a connector label.
func NewScanCollector(connector string) *ScanCollector {
	return &ScanCollector{
		connector:    connector,
		fetchOK:      FetchesTotal.WithLabelValues(connector, "success"),
		fetchFailed:  FetchesTotal.WithLabelValues(connector, "failure"),
		rows:         RowsTotal.WithLabelValues(connector),
		fetchLatency: FetchDuration.WithLabelValues(connector),
		batchRecords: BatchRecords.WithLabelValues(connector),
		active:       ActiveScans.WithLabelValues(connector),
	}
}

// Connector returns the connector label
func (c *ScanCollector) Connector() string {
	if c == nil {
		return ""
	}
	return c.connector
}

// FetchTimer measures one fetch.
type FetchTimer struct {
	c     *ScanCollector
	start time.Time
}

// StartFetch starts timing a fetch
func (c *ScanCollector) StartFetch() FetchTimer {
	return FetchTimer{c: c, start: time.Now()}
}

// Done records the fetch outcome and returns its duration.
func (t FetchTimer) Done(records int, err error) time.Duration {
	d := time.Since(t.start)
	if t.c == nil {
		return d
	}
	t.c.fetchLatency.Observe(d.Seconds())
	if err != nil {
		t.c.fetchFailed.Inc()
		return d
	}
	t.c.fetchOK.Inc()
	t.c.batchRecords.Observe(float64(records))
	return d
}

// Row records one produced row
func (c *ScanCollector) Row() {
	if c != nil {
		c.rows.Inc()
	}
}

// Error records a scan failure of the given kind
func (c *ScanCollector) Error(kind string) {
	if c != nil {
		ErrorsTotal.WithLabelValues(c.connector, kind).Inc()
	}
}

// ScanStarted marks a scan as open
func (c *ScanCollector) ScanStarted() {
	if c != nil {
		c.active.Inc()
	}
}

// ScanEnded marks a scan as closed
func (c *ScanCollector) ScanEnded() {
	if c != nil {
		c.active.Dec()
	}
}
