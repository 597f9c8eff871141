// Package nebulafdw exposes remote APIs as foreign tables. Each connector
// turns one source (a Qdrant collection, a Cognito user pool, an S3 bucket,
// a cursor-paginated JSON API) into rows of declared columns, fetching
// pages lazily as the host engine iterates.
//
// # Scan protocol
//
// Every connector implements core.Connector:
//
//	BeginScan(ctx, columns, hints, options) // validate, open the client, no I/O
//	IterScan(ctx)                           // next row, fetching pages on demand
//	EndScan()                               // release the client, idempotent
//	ValidateOptions(list, scope)            // catalog checks at server or table level
//
// Declared columns are checked against the connector's allowed schema before
// anything is fetched; every offending column is reported at once. Failures
// are classified into configuration, schema, client, mapping and internal
// kinds and rendered with PostgreSQL foreign-data-wrapper SQLSTATE codes.
//
// # Key Packages
//
//	pkg/connector/core     - Connector interface, semantic types, rows
//	pkg/connector/scan     - column contract, record mapping, cursor, session
//	pkg/connector/base     - BaseConnector built from a declarative Definition
//	pkg/connector/registry - connector ids to factories
//	pkg/connector/sources  - qdrant, cognito, s3 and rest connectors
//	pkg/clients            - HTTP, OAuth2 and AWS transports with retries
//	pkg/config             - BaseConfig, options and the YAML catalog
//	pkg/errors             - structured errors and the scan error taxonomy
//	pkg/logger             - structured logging
//	pkg/metrics            - Prometheus scan metrics
//	pkg/observability      - fetch tracing
//
// # Command line
//
// cmd/nebula-fdw runs scans against a YAML catalog:
//
//	nebula-fdw list
//	nebula-fdw validate --catalog catalog.yaml
//	nebula-fdw scan --catalog catalog.yaml --table points --limit 10
//
// Settings may come from flags, NEBULA_FDW_* environment variables or a
// settings file, in that order of precedence.
package nebulafdw
