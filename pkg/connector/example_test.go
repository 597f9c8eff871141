package connector_test

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-fdw/pkg/config"
	"github.com/ajitpratap0/nebula-fdw/pkg/connector/base"
	"github.com/ajitpratap0/nebula-fdw/pkg/connector/core"
	"github.com/ajitpratap0/nebula-fdw/pkg/connector/registry"
	"github.com/ajitpratap0/nebula-fdw/pkg/connector/scan"
	"github.com/ajitpratap0/nebula-fdw/pkg/errors"
)

var cities = []scan.Record{
	scan.FlatRecord{"id": int64(1), "name": "Berlin"},
	scan.FlatRecord{"id": int64(2), "name": "Paris"},
	scan.FlatRecord{"id": int64(3), "name": "Rome"},
}

// citiesDefinition serves cities two at a time, the token being the next offset.
func citiesDefinition() base.Definition {
	return base.Definition{
		ID:      "cities",
		Version: "0.1.0",
		Schema: scan.NewAllowedSchema(
			core.Column{Name: "id", Type: core.TypeInt64},
			core.Column{Name: "name", Type: core.TypeText},
		),
		Options:          []core.OptionSpec{{Name: "collection", Scope: core.TableLevel, Required: true}},
		CollectionOption: "collection",
		Open: func(_ context.Context, _ config.Options, _ *config.BaseConfig, _ *zap.Logger) (scan.Client, error) {
			return scan.ClientFunc(func(_ context.Context, req scan.FetchRequest) (*scan.Page, error) {
				start, _ := req.Token.(int)
				end := start + req.Limit
				if end > len(cities) {
					end = len(cities)
				}
				page := &scan.Page{Records: cities[start:end]}
				if end < len(cities) {
					page.Next = end
				}
				return page, nil
			}), nil
		},
	}
}

func newCitiesRegistry() *registry.Registry {
	reg := registry.NewRegistry(zap.NewNop())
	def := citiesDefinition()
	_ = reg.Register(def.Info(), func(cfg *config.BaseConfig, logger *zap.Logger) (core.Connector, error) {
		return base.NewBaseConnector(def, cfg, logger), nil
	})
	return reg
}

// Example scans a table through the registry.
func Example() {
	cfg := config.NewBaseConfig("cities", "cities")
	cfg.Performance.BatchSize = 2
	cfg.Observability.EnableMetrics = false

	conn, err := newCitiesRegistry().Create("cities", cfg)
	if err != nil {
		fmt.Println(err)
		return
	}

	ctx := context.Background()
	columns := []core.Column{{Name: "name", Type: core.TypeText}}
	if err := conn.BeginScan(ctx, columns, core.ScanHints{}, map[string]string{"collection": "europe"}); err != nil {
		fmt.Println(err)
		return
	}
	defer conn.EndScan()

	for {
		row, ok, err := conn.IterScan(ctx)
		if err != nil {
			fmt.Println(err)
			return
		}
		if !ok {
			break
		}
		fmt.Println(row.Values()...)
	}

	// Output:
	// Berlin
	// Paris
	// Rome
}

// Example_schemaError shows how a rejected column is reported.
func Example_schemaError() {
	cfg := config.NewBaseConfig("cities", "cities")
	cfg.Observability.EnableMetrics = false
	conn, _ := newCitiesRegistry().Create("cities", cfg)

	columns := []core.Column{{Name: "id", Type: core.TypeText}, {Name: "country", Type: core.TypeText}}
	err := conn.BeginScan(context.Background(), columns, core.ScanHints{}, map[string]string{"collection": "europe"})

	d := errors.Render(err)
	fmt.Println(d.Kind, d.Code)
	for _, v := range errors.Violations(err) {
		fmt.Println(errors.Render(v).Column)
	}

	// Output:
	// schema HV004
	// id
	// country
}
