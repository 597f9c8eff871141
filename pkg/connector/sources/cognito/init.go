package cognito

import (
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-fdw/pkg/config"
	"github.com/ajitpratap0/nebula-fdw/pkg/connector/core"
	"github.com/ajitpratap0/nebula-fdw/pkg/connector/registry"
)

// Register adds the cognito connector to reg
func Register(reg *registry.Registry, opts ...Option) error {
	return reg.Register(Definition(opts...).Info(), func(cfg *config.BaseConfig, logger *zap.Logger) (core.Connector, error) {
		return NewCognitoSource(cfg, logger, opts...), nil
	})
}
