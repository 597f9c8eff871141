package config

import (
	"fmt"
	"sort"

	"github.com/ajitpratap0/nebula-fdw/pkg/connector/core"
	"github.com/ajitpratap0/nebula-fdw/pkg/errors"
)

// Catalog is a YAML description of foreign servers and tables, the
// stand-in for the host engine's catalog when running scans from the CLI.
//
//	servers:
//	  vectors:
//	    connector: qdrant
//	    options:
//	      api_url: http://localhost:6333
//	      api_key: ${QDRANT_API_KEY}
//	tables:
//	  points:
//	    server: vectors
//	    columns:
//	      - {name: id, type: bigint}
//	      - {name: payload, type: jsonb}
//	    options:
//	      collection_name: points
type Catalog struct {
	Servers map[string]ServerEntry `yaml:"servers" json:"servers"`
	Tables  map[string]TableEntry  `yaml:"tables" json:"tables"`
}

// ServerEntry is one foreign server.
type ServerEntry struct {
	Connector string  `yaml:"connector" json:"connector"`
	Options   Options `yaml:"options" json:"options"`
}

// TableEntry is one foreign table.
type TableEntry struct {
	Server  string        `yaml:"server" json:"server"`
	Columns []ColumnEntry `yaml:"columns" json:"columns"`
	Options Options       `yaml:"options" json:"options"`
}

// ColumnEntry is a declared column with a host type name.
type ColumnEntry struct {
	Name string `yaml:"name" json:"name"`
	Type string `yaml:"type" json:"type"`
}

// ResolvedTable is everything needed to scan one table.
type ResolvedTable struct {
	Name          string
	Connector     string
	Columns       []core.Column
	ServerOptions Options
	TableOptions  Options
}

// Options returns server and table options merged, table options winning.
func (r *ResolvedTable) Options() Options {
	return r.ServerOptions.Merge(r.TableOptions)
}

// LoadCatalog reads a catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	var c Catalog
	if err := Load(path, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// TableNames returns the declared table names in sorted order.
func (c *Catalog) TableNames() []string {
	names := make([]string, 0, len(c.Tables))
	for name := range c.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve looks up a table and its server and parses its column types.
func (c *Catalog) Resolve(table string) (*ResolvedTable, error) {
	t, ok := c.Tables[table]
	if !ok {
		return nil, errors.New(errors.ErrorTypeNotFound, fmt.Sprintf("table `%s` is not in the catalog", table)).
			WithDetail("table", table)
	}
	srv, ok := c.Servers[t.Server]
	if !ok {
		return nil, errors.New(errors.ErrorTypeConfig, fmt.Sprintf("table `%s` refers to unknown server `%s`", table, t.Server)).
			WithDetail("table", table)
	}
	if srv.Connector == "" {
		return nil, errors.New(errors.ErrorTypeConfig, fmt.Sprintf("server `%s` has no connector", t.Server))
	}

	columns := make([]core.Column, 0, len(t.Columns))
	for _, ce := range t.Columns {
		typ, err := core.ParseSemanticType(ce.Type)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, fmt.Sprintf("table `%s`", table)).
				WithDetail(errors.DetailColumn, ce.Name)
		}
		columns = append(columns, core.Column{Name: ce.Name, Type: typ})
	}

	serverOpts := srv.Options
	if serverOpts == nil {
		serverOpts = Options{}
	}
	tableOpts := t.Options
	if tableOpts == nil {
		tableOpts = Options{}
	}
	return &ResolvedTable{
		Name:          table,
		Connector:     srv.Connector,
		Columns:       columns,
		ServerOptions: serverOpts,
		TableOptions:  tableOpts,
	}, nil
}
