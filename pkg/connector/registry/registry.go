// Package registry maps connector ids to factories. A registry is built
// once at process start and passed by reference; there is no global one.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-fdw/pkg/config"
	"github.com/ajitpratap0/nebula-fdw/pkg/connector/core"
	"github.com/ajitpratap0/nebula-fdw/pkg/errors"
)

// ConnectorInfo describes a registered connector for listings and catalog checks.
type ConnectorInfo struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Version     string `json:"version"`
	// Columns is the fixed allowed schema, empty when DynamicSchema is set
	Columns       []core.Column     `json:"columns,omitempty"`
	DynamicSchema bool              `json:"dynamic_schema,omitempty"`
	Options       []core.OptionSpec `json:"options"`
	MaxBatchSize  int               `json:"max_batch_size,omitempty"`
}

// RequiredOptions returns the names of required options at scope.
func (i ConnectorInfo) RequiredOptions(scope core.Scope) []string {
	var names []string
	for _, o := range i.Options {
		if o.Required && o.Scope == scope {
			names = append(names, o.Name)
		}
	}
	return names
}

// Factory creates a connector instance from its configuration.
type Factory func(cfg *config.BaseConfig, logger *zap.Logger) (core.Connector, error)

type entry struct {
	info    ConnectorInfo
	factory Factory
}

// Registry manages connector registration and instantiation
type Registry struct {
	entries map[string]entry
	mu      sync.RWMutex
	logger  *zap.Logger
}

// NewRegistry creates an empty connector registry
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		entries: make(map[string]entry),
		logger:  logger.With(zap.String("component", "connector_registry")),
	}
}

// Register adds a connector factory under info.ID
func (r *Registry) Register(info ConnectorInfo, factory Factory) error {
	if info.ID == "" {
		return errors.New(errors.ErrorTypeConfig, "connector id is required")
	}
	if factory == nil {
		return errors.New(errors.ErrorTypeConfig, fmt.Sprintf("connector %s has no factory", info.ID))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[info.ID]; exists {
		return errors.New(errors.ErrorTypeConfig, fmt.Sprintf("connector %s already registered", info.ID))
	}
	r.entries[info.ID] = entry{info: info, factory: factory}
	r.logger.Debug("connector registered", zap.String("connector", info.ID))
	return nil
}

// Create instantiates the connector registered under id. A nil cfg gets
// the defaults for that connector.
func (r *Registry) Create(id string, cfg *config.BaseConfig) (core.Connector, error) {
	r.mu.RLock()
	e, exists := r.entries[id]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.New(errors.ErrorTypeConfig, fmt.Sprintf("connector %s not found", id)).
			WithDetail("connector", id).
			WithDetail(errors.DetailAllowed, r.IDs())
	}
	if cfg == nil {
		cfg = config.NewBaseConfig(id, id)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	conn, err := e.factory(cfg, r.logger.With(zap.String("connector", id)))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, fmt.Sprintf("failed to create connector %s", id))
	}
	return conn, nil
}

// Info returns the description of a registered connector
func (r *Registry) Info(id string) (ConnectorInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e.info, ok
}

// Has checks if a connector is registered
func (r *Registry) Has(id string) bool {
	_, ok := r.Info(id)
	return ok
}

// IDs returns the registered connector ids in sorted order
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// List returns every registered connector ordered by id
func (r *Registry) List() []ConnectorInfo {
	ids := r.IDs()

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ConnectorInfo, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.entries[id].info)
	}
	return out
}
