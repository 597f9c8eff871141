// Package sources wires every built-in source connector into a registry.
package sources

import (
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-fdw/pkg/connector/registry"
	"github.com/ajitpratap0/nebula-fdw/pkg/connector/sources/cognito"
	"github.com/ajitpratap0/nebula-fdw/pkg/connector/sources/qdrant"
	"github.com/ajitpratap0/nebula-fdw/pkg/connector/sources/rest"
	"github.com/ajitpratap0/nebula-fdw/pkg/connector/sources/s3"
)

// RegisterAll registers the built-in connectors. Every registration is
// attempted; failures are combined.
func RegisterAll(reg *registry.Registry) error {
	return multierr.Combine(
		qdrant.Register(reg),
		cognito.Register(reg),
		s3.Register(reg),
		rest.Register(reg),
	)
}

// NewRegistry returns a registry holding the built-in connectors.
func NewRegistry(logger *zap.Logger) (*registry.Registry, error) {
	reg := registry.NewRegistry(logger)
	if err := RegisterAll(reg); err != nil {
		return nil, err
	}
	return reg, nil
}
