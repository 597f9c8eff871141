// Package base provides the BaseConnector every nebula-fdw connector embeds.
// It implements the scan protocol from a declarative Definition, so a
// connector only describes its allowed schema, its options and how to open
// a source client.
//
// # Usage
//
//	type PointsConnector struct {
//	    *base.BaseConnector
//	}
//
//	func NewPointsConnector(cfg *config.BaseConfig, logger *zap.Logger) *PointsConnector {
//	    return &PointsConnector{
//	        BaseConnector: base.NewBaseConnector(definition, cfg, logger),
//	    }
//	}
//
// # Lifecycle
//
// 1. BeginScan validates the declared columns and options and opens the client
// 2. IterScan yields rows, fetching pages lazily
// 3. EndScan releases the client
//
// BeginScan while a scan is open ends that scan first. Each scan runs on
// its own session and nothing is shared between scans.
package base

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-fdw/pkg/config"
	"github.com/ajitpratap0/nebula-fdw/pkg/connector/core"
	"github.com/ajitpratap0/nebula-fdw/pkg/connector/registry"
	"github.com/ajitpratap0/nebula-fdw/pkg/connector/scan"
	"github.com/ajitpratap0/nebula-fdw/pkg/errors"
	"github.com/ajitpratap0/nebula-fdw/pkg/logger"
	"github.com/ajitpratap0/nebula-fdw/pkg/metrics"
)

// Opener builds a source client for one scan. It must not perform I/O.
type Opener func(ctx context.Context, options config.Options, cfg *config.BaseConfig, logger *zap.Logger) (scan.Client, error)

// Definition is the declarative description of a connector.
type Definition struct {
	ID          string
	Description string
	Version     string

	// Schema is the fixed allowed schema. ResolveSchema replaces it for
	// connectors whose columns are declared through options.
	Schema        scan.AllowedSchema
	ResolveSchema scan.SchemaResolver

	Options []core.OptionSpec
	// Check runs after the required options are found, for rules that
	// span several options.
	Check func(options config.Options, scope core.Scope) error

	CollectionOption string
	Open             Opener
	MaxBatchSize     int
}

// Info describes the definition for the registry.
func (d Definition) Info() registry.ConnectorInfo {
	return registry.ConnectorInfo{
		ID:            d.ID,
		Description:   d.Description,
		Version:       d.Version,
		Columns:       d.Schema.Columns(),
		DynamicSchema: d.ResolveSchema != nil,
		Options:       append([]core.OptionSpec(nil), d.Options...),
		MaxBatchSize:  d.MaxBatchSize,
	}
}

// BaseConnector implements core.Connector for a Definition.
type BaseConnector struct {
	def     Definition
	config  *config.BaseConfig
	logger  *zap.Logger
	metrics *metrics.ScanCollector

	mu      sync.Mutex
	session *scan.Session
}

// NewBaseConnector creates a connector with no open scan
func NewBaseConnector(def Definition, cfg *config.BaseConfig, log *zap.Logger) *BaseConnector {
	if cfg == nil {
		cfg = config.NewBaseConfig(def.ID, def.ID)
	}
	if log == nil {
		log = logger.With(zap.String("connector", def.ID))
	}
	bc := &BaseConnector{
		def:    def,
		config: cfg,
		logger: log,
	}
	if cfg.Observability.EnableMetrics {
		bc.metrics = metrics.NewScanCollector(def.ID)
	}
	return bc
}

// Name returns the connector id
func (bc *BaseConnector) Name() string {
	return bc.def.ID
}

// Version returns the connector version
func (bc *BaseConnector) Version() string {
	return bc.def.Version
}

// Definition returns the connector's definition
func (bc *BaseConnector) Definition() Definition {
	return bc.def
}

// Config returns the connector configuration
func (bc *BaseConnector) Config() *config.BaseConfig {
	return bc.config
}

// Session returns the current scan session, nil before the first BeginScan
func (bc *BaseConnector) Session() *scan.Session {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return bc.session
}

// BeginScan starts a new scan, ending any scan still open.
func (bc *BaseConnector) BeginScan(ctx context.Context, columns []core.Column, hints core.ScanHints, options map[string]string) error {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	if bc.session != nil {
		if err := bc.session.End(); err != nil {
			bc.logger.Warn("failed to end previous scan", zap.String("scan_id", bc.session.ID()), zap.Error(err))
		}
	}

	sess := scan.NewSession(scan.SessionConfig{
		Connector:        bc.def.ID,
		Table:            bc.config.Name,
		Schema:           bc.def.Schema,
		ResolveSchema:    bc.def.ResolveSchema,
		CollectionOption: bc.def.CollectionOption,
		Open:             bc.opener(),
		BatchSize:        bc.config.Performance.BatchSize,
		MaxBatchSize:     bc.def.MaxBatchSize,
		Tracing:          bc.config.Observability.EnableTracing,
		Logger:           bc.logger,
		Metrics:          bc.metrics,
	})
	bc.session = sess
	return sess.Begin(ctx, columns, hints, config.Options(options))
}

func (bc *BaseConnector) opener() scan.ClientOpener {
	open := bc.def.Open
	if open == nil {
		return nil
	}
	return func(ctx context.Context, options config.Options) (scan.Client, error) {
		return open(ctx, options, bc.config, bc.logger)
	}
}

// IterScan returns the next row of the current scan.
func (bc *BaseConnector) IterScan(ctx context.Context) (core.Row, bool, error) {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	if bc.session == nil {
		return core.Row{}, false, errors.ContractViolation("iterate called without a scan")
	}
	return bc.session.Next(ctx)
}

// EndScan ends the current scan. It is idempotent.
func (bc *BaseConnector) EndScan() error {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	if bc.session == nil {
		return nil
	}
	return bc.session.End()
}

// ValidateOptions checks catalog options at scope without starting a scan.
func (bc *BaseConnector) ValidateOptions(options []string, scope core.Scope) error {
	for _, spec := range bc.def.Options {
		if !spec.Required || spec.Scope != scope {
			continue
		}
		if err := config.CheckOptionsContain(options, spec.Name, scope); err != nil {
			return err
		}
	}
	if bc.def.Check != nil {
		return bc.def.Check(config.ParseOptionList(options), scope)
	}
	return nil
}

// ValidateColumns checks declared columns against the allowed schema the
// options resolve to. It opens nothing.
func (bc *BaseConnector) ValidateColumns(columns []core.Column, options map[string]string) error {
	schema := bc.def.Schema
	if bc.def.ResolveSchema != nil {
		resolved, err := bc.def.ResolveSchema(config.Options(options))
		if err != nil {
			return err
		}
		schema = resolved
	}
	return schema.Validate(columns)
}
