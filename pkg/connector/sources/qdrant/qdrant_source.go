// Package qdrant exposes the points of a Qdrant collection as rows of
// (id, payload, vector), paging with the scroll API.
package qdrant

import (
	"context"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-fdw/pkg/clients"
	"github.com/ajitpratap0/nebula-fdw/pkg/config"
	"github.com/ajitpratap0/nebula-fdw/pkg/connector/base"
	"github.com/ajitpratap0/nebula-fdw/pkg/connector/core"
	"github.com/ajitpratap0/nebula-fdw/pkg/connector/scan"
)

const (
	ConnectorID = "qdrant"
	Version     = "0.1.0"

	OptionAPIURL     = "api_url"
	OptionAPIKey     = "api_key"
	OptionCollection = "collection_name"
)

// Schema is the fixed column set of a qdrant foreign table.
var Schema = scan.NewAllowedSchema(
	core.Column{Name: "id", Type: core.TypeInt64},
	core.Column{Name: "payload", Type: core.TypeJsonb},
	core.Column{Name: "vector", Type: core.TypeFloatArray},
)

// Definition describes the qdrant connector.
func Definition() base.Definition {
	return base.Definition{
		ID:          ConnectorID,
		Description: "Qdrant collection points via the scroll API",
		Version:     Version,
		Schema:      Schema,
		Options: []core.OptionSpec{
			{Name: OptionAPIURL, Scope: core.ServerLevel, Required: true, Description: "base URL of the Qdrant HTTP API"},
			{Name: OptionAPIKey, Scope: core.ServerLevel, Required: true, Description: "sent as the api-key header"},
			{Name: OptionCollection, Scope: core.TableLevel, Required: true, Description: "collection to scroll"},
		},
		CollectionOption: OptionCollection,
		Open:             open,
	}
}

// QdrantSource is the qdrant foreign-table connector
type QdrantSource struct {
	*base.BaseConnector
}

// NewQdrantSource creates a qdrant connector
func NewQdrantSource(cfg *config.BaseConfig, logger *zap.Logger) *QdrantSource {
	return &QdrantSource{BaseConnector: base.NewBaseConnector(Definition(), cfg, logger)}
}

func open(_ context.Context, options config.Options, cfg *config.BaseConfig, logger *zap.Logger) (scan.Client, error) {
	apiURL, err := options.Require(OptionAPIURL, core.ServerLevel)
	if err != nil {
		return nil, err
	}
	apiKey, err := options.Require(OptionAPIKey, core.ServerLevel)
	if err != nil {
		return nil, err
	}

	httpCfg := clients.HTTPConfigFromBase(apiURL, cfg)
	httpCfg.Headers["api-key"] = apiKey
	httpClient, err := clients.NewHTTPClient(httpCfg, logger)
	if err != nil {
		return nil, err
	}
	return NewClient(httpClient), nil
}
