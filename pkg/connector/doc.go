// Package connector is the root of the foreign-table connector framework.
//
// # Architecture Overview
//
//   - core: the Connector interface every foreign table is scanned through,
//     the closed set of semantic column types and the Row a scan yields.
//
//   - scan: the machinery shared by all connectors. AllowedSchema checks
//     declared columns, ToRow maps source records to rows, Cursor pages
//     through a source lazily and Session ties them into the
//     Begin/Next/End lifecycle.
//
//   - base: BaseConnector implements core.Connector from a Definition, so a
//     connector only describes its schema, its options and how to open a
//     client. All connectors embed it.
//
//   - registry: maps connector ids to factories. Registries are values, built
//     at startup and passed where needed.
//
//   - sources: the built-in connectors. sources.NewRegistry returns a
//     registry holding all of them.
//
// # Writing a connector
//
// A connector supplies a scan.Client that fetches one page per call:
//
//	func (c *Client) Fetch(ctx context.Context, req scan.FetchRequest) (*scan.Page, error) {
//	    // ask the source for req.Limit records after req.Token
//	    return &scan.Page{Records: records, Next: nextToken}, nil
//	}
//
// and a base.Definition naming its allowed schema, options and opener. A page
// without a Next token is the last one. Errors returned by Fetch abort the
// scan; transport retries belong in the client, never in the cursor.
package connector
