// Package rest reads any cursor-paginated JSON API as a foreign table. The
// table declares its own schema through the schema option, and each page
// names the cursor of the next one.
package rest

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-fdw/pkg/clients"
	"github.com/ajitpratap0/nebula-fdw/pkg/config"
	"github.com/ajitpratap0/nebula-fdw/pkg/connector/base"
	"github.com/ajitpratap0/nebula-fdw/pkg/connector/core"
	"github.com/ajitpratap0/nebula-fdw/pkg/connector/scan"
	"github.com/ajitpratap0/nebula-fdw/pkg/errors"
)

const (
	ConnectorID = "rest"
	Version     = "0.1.0"

	// server options
	OptionBaseURL      = "base_url"
	OptionAPIKey       = "api_key"
	OptionAPIKeyHeader = "api_key_header"
	OptionClientID     = "client_id"
	OptionClientSecret = "client_secret"
	OptionTokenURL     = "token_url"
	OptionScopes       = "scopes"

	// table options
	OptionPath          = "path"
	OptionSchema        = "schema"
	OptionRecordsKey    = "records_key"
	OptionCursorParam   = "cursor_param"
	OptionNextCursorKey = "next_cursor_key"
	OptionLimitParam    = "limit_param"
)

const (
	defaultAPIKeyHeader  = "Authorization"
	defaultRecordsKey    = "data"
	defaultCursorParam   = "cursor"
	defaultNextCursorKey = "next_cursor"
	defaultLimitParam    = "limit"
)

// Definition describes the rest connector.
func Definition() base.Definition {
	return base.Definition{
		ID:            ConnectorID,
		Description:   "cursor-paginated JSON API with a declared schema",
		Version:       Version,
		ResolveSchema: ResolveSchema,
		Options: []core.OptionSpec{
			{Name: OptionBaseURL, Scope: core.ServerLevel, Required: true},
			{Name: OptionAPIKey, Scope: core.ServerLevel, Description: "static key, or use client credentials"},
			{Name: OptionAPIKeyHeader, Scope: core.ServerLevel, Description: "header carrying api_key (Authorization sends a bearer token)"},
			{Name: OptionClientID, Scope: core.ServerLevel},
			{Name: OptionClientSecret, Scope: core.ServerLevel},
			{Name: OptionTokenURL, Scope: core.ServerLevel},
			{Name: OptionScopes, Scope: core.ServerLevel, Description: "comma separated oauth2 scopes"},
			{Name: OptionPath, Scope: core.TableLevel, Required: true, Description: "resource path below base_url"},
			{Name: OptionSchema, Scope: core.TableLevel, Required: true, Description: "name:type pairs, comma separated"},
			{Name: OptionRecordsKey, Scope: core.TableLevel, Description: "dotted path of the record array (default data)"},
			{Name: OptionCursorParam, Scope: core.TableLevel, Description: "query parameter carrying the cursor (default cursor)"},
			{Name: OptionNextCursorKey, Scope: core.TableLevel, Description: "dotted path of the next cursor (default next_cursor)"},
			{Name: OptionLimitParam, Scope: core.TableLevel, Description: "query parameter carrying the page size (default limit)"},
		},
		Check:            check,
		CollectionOption: OptionPath,
		Open:             open,
	}
}

// RESTSource is the generic rest foreign-table connector
type RESTSource struct {
	*base.BaseConnector
}

// NewRESTSource creates a rest connector
func NewRESTSource(cfg *config.BaseConfig, logger *zap.Logger) *RESTSource {
	return &RESTSource{BaseConnector: base.NewBaseConnector(Definition(), cfg, logger)}
}

// ResolveSchema parses the schema option, e.g. "id:bigint, name:text".
func ResolveSchema(options config.Options) (scan.AllowedSchema, error) {
	raw, err := options.Require(OptionSchema, core.TableLevel)
	if err != nil {
		return scan.AllowedSchema{}, err
	}

	var columns []core.Column
	seen := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, typeName, ok := strings.Cut(part, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return scan.AllowedSchema{}, errors.InvalidOption(OptionSchema, raw, nil).
				WithDetail("entry", part)
		}
		typ, err := core.ParseSemanticType(typeName)
		if err != nil {
			return scan.AllowedSchema{}, errors.InvalidOption(OptionSchema, raw, err).
				WithDetail("entry", part)
		}
		if seen[name] {
			return scan.AllowedSchema{}, errors.InvalidOption(OptionSchema, raw, nil).
				WithDetail("duplicate", name)
		}
		seen[name] = true
		columns = append(columns, core.Column{Name: name, Type: typ})
	}
	if len(columns) == 0 {
		return scan.AllowedSchema{}, errors.InvalidOption(OptionSchema, raw, nil)
	}
	return scan.NewAllowedSchema(columns...), nil
}

func check(options config.Options, scope core.Scope) error {
	switch scope {
	case core.ServerLevel:
		raw := options.Get(OptionBaseURL, "")
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			return errors.InvalidOption(OptionBaseURL, raw, err)
		}
		_, err := authFrom(options)
		return err
	case core.TableLevel:
		_, err := ResolveSchema(options)
		return err
	}
	return nil
}

type auth struct {
	header string
	value  string
	oauth  *clients.OAuth2Config
}

// authFrom prefers api_key and falls back to the client-credentials grant.
func authFrom(options config.Options) (auth, error) {
	if key := options.Get(OptionAPIKey, ""); key != "" {
		header := options.Get(OptionAPIKeyHeader, defaultAPIKeyHeader)
		value := key
		if strings.EqualFold(header, "Authorization") {
			value = "Bearer " + key
		}
		return auth{header: header, value: value}, nil
	}
	if !options.Has(OptionClientID) && !options.Has(OptionTokenURL) {
		return auth{}, errors.MissingOption(OptionAPIKey, core.ServerLevel.String()).
			WithDetail("alternative", []string{OptionClientID, OptionClientSecret, OptionTokenURL})
	}
	oauth := &clients.OAuth2Config{
		ClientID:     options.Get(OptionClientID, ""),
		ClientSecret: options.Get(OptionClientSecret, ""),
		TokenURL:     options.Get(OptionTokenURL, ""),
	}
	for _, s := range strings.Split(options.Get(OptionScopes, ""), ",") {
		if s = strings.TrimSpace(s); s != "" {
			oauth.Scopes = append(oauth.Scopes, s)
		}
	}
	if err := oauth.Validate(); err != nil {
		return auth{}, err
	}
	return auth{oauth: oauth}, nil
}

func open(_ context.Context, options config.Options, cfg *config.BaseConfig, logger *zap.Logger) (scan.Client, error) {
	if err := check(options, core.ServerLevel); err != nil {
		return nil, err
	}
	a, err := authFrom(options)
	if err != nil {
		return nil, err
	}

	httpCfg := clients.HTTPConfigFromBase(options.Get(OptionBaseURL, ""), cfg)
	if a.header != "" {
		httpCfg.Headers[a.header] = a.value
	}
	httpCfg.OAuth2 = a.oauth
	httpClient, err := clients.NewHTTPClient(httpCfg, logger)
	if err != nil {
		return nil, err
	}

	return NewClient(httpClient, Paging{
		RecordsKey:    options.Get(OptionRecordsKey, defaultRecordsKey),
		CursorParam:   options.Get(OptionCursorParam, defaultCursorParam),
		NextCursorKey: options.Get(OptionNextCursorKey, defaultNextCursorKey),
		LimitParam:    options.Get(OptionLimitParam, defaultLimitParam),
	}), nil
}
