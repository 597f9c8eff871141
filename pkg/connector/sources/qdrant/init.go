package qdrant

import (
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-fdw/pkg/config"
	"github.com/ajitpratap0/nebula-fdw/pkg/connector/core"
	"github.com/ajitpratap0/nebula-fdw/pkg/connector/registry"
)

// Register adds the qdrant connector to reg
func Register(reg *registry.Registry) error {
	return reg.Register(Definition().Info(), func(cfg *config.BaseConfig, logger *zap.Logger) (core.Connector, error) {
		return NewQdrantSource(cfg, logger), nil
	})
}
