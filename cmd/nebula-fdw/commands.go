package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-fdw/pkg/config"
	"github.com/ajitpratap0/nebula-fdw/pkg/connector/core"
	"github.com/ajitpratap0/nebula-fdw/pkg/errors"
	"github.com/ajitpratap0/nebula-fdw/pkg/json"
)

// columnValidator is implemented by connectors that can check declared
// columns without opening a scan.
type columnValidator interface {
	ValidateColumns(columns []core.Column, options map[string]string) error
}

func (a *app) listCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available connectors",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.list(cmd.OutOrStdout(), output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format (table or json)")
	return cmd
}

func (a *app) list(out io.Writer, output string) error {
	infos := a.registry.List()
	switch output {
	case "json":
		data, err := json.Marshal(infos)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode connector list")
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	case "table":
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tVERSION\tCOLUMNS\tSERVER OPTIONS\tTABLE OPTIONS")
		for _, info := range infos {
			columns := "(declared by table)"
			if !info.DynamicSchema {
				names := make([]string, len(info.Columns))
				for i, c := range info.Columns {
					names[i] = c.Name + ":" + c.Type.HostName()
				}
				columns = strings.Join(names, ",")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", info.ID, info.Version, columns,
				strings.Join(info.RequiredOptions(core.ServerLevel), ","),
				strings.Join(info.RequiredOptions(core.TableLevel), ","))
		}
		return w.Flush()
	default:
		return errors.InvalidOption("output", output, nil).WithDetail(errors.DetailAllowed, []string{"table", "json"})
	}
}

func (a *app) validateCommand() *cobra.Command {
	var catalogPath, table string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check catalog options and declared columns without contacting sources",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.validate(cmd.OutOrStdout(), catalogPath, table)
		},
	}
	cmd.Flags().StringVarP(&catalogPath, "catalog", "c", "", "Path to the catalog file (required)")
	cmd.Flags().StringVarP(&table, "table", "t", "", "Validate only this table")
	_ = cmd.MarkFlagRequired("catalog")
	return cmd
}

// validationResult is one line of validate output.
type validationResult struct {
	Table       string              `json:"table"`
	Connector   string              `json:"connector,omitempty"`
	OK          bool                `json:"ok"`
	Diagnostics []errors.Diagnostic `json:"diagnostics,omitempty"`
}

func (a *app) validate(out io.Writer, catalogPath, table string) error {
	catalog, err := config.LoadCatalog(catalogPath)
	if err != nil {
		return err
	}
	tables := catalog.TableNames()
	if table != "" {
		tables = []string{table}
	}

	enc := json.NewLineEncoder(out)
	failed := 0
	for _, name := range tables {
		res := validationResult{Table: name}
		if err := a.validateTable(catalog, name, &res); err != nil {
			for _, e := range multierr.Errors(err) {
				res.Diagnostics = append(res.Diagnostics, errors.Render(e))
			}
		}
		res.OK = len(res.Diagnostics) == 0
		if !res.OK {
			failed++
		}
		if err := enc.Encode(res); err != nil {
			return errors.Wrap(err, errors.ErrorTypeInternal, "failed to write result")
		}
	}
	if failed > 0 {
		return errors.Newf(errors.ErrorTypeValidation, "%d of %d tables failed validation", failed, len(tables))
	}
	return nil
}

// validateTable returns every problem found with one table, combined.
func (a *app) validateTable(catalog *config.Catalog, name string, res *validationResult) error {
	rt, err := catalog.Resolve(name)
	if err != nil {
		return err
	}
	res.Connector = rt.Connector

	conn, err := a.registry.Create(rt.Connector, a.settings.baseConfig(rt.Name, rt.Connector))
	if err != nil {
		return err
	}

	err = multierr.Append(
		conn.ValidateOptions(rt.ServerOptions.List(), core.ServerLevel),
		conn.ValidateOptions(rt.TableOptions.List(), core.TableLevel),
	)
	if cv, ok := conn.(columnValidator); ok {
		err = multierr.Append(err, cv.ValidateColumns(rt.Columns, rt.Options()))
	}
	return err
}

func (a *app) scanCommand() *cobra.Command {
	var catalogPath, table string
	var limit int64
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan a foreign table and print its rows as JSON lines",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.scan(cmd.Context(), cmd.OutOrStdout(), catalogPath, table, limit)
		},
	}
	cmd.Flags().StringVarP(&catalogPath, "catalog", "c", "", "Path to the catalog file (required)")
	cmd.Flags().StringVarP(&table, "table", "t", "", "Table to scan (required)")
	cmd.Flags().Int64Var(&limit, "limit", 0, "Stop after this many rows (0 = all)")
	_ = cmd.MarkFlagRequired("catalog")
	_ = cmd.MarkFlagRequired("table")
	return cmd
}

func (a *app) scan(ctx context.Context, out io.Writer, catalogPath, table string, limit int64) (err error) {
	catalog, err := config.LoadCatalog(catalogPath)
	if err != nil {
		return err
	}
	rt, err := catalog.Resolve(table)
	if err != nil {
		return err
	}
	conn, err := a.registry.Create(rt.Connector, a.settings.baseConfig(rt.Name, rt.Connector))
	if err != nil {
		return err
	}

	var hints core.ScanHints
	if limit > 0 {
		hints.Limit = &core.Limit{Count: limit}
	}
	if err := conn.BeginScan(ctx, rt.Columns, hints, rt.Options()); err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, conn.EndScan())
	}()

	enc := json.NewLineEncoder(out)
	var rows int64
	for limit <= 0 || rows < limit {
		row, ok, err := conn.IterScan(ctx)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if err := enc.Encode(row); err != nil {
			return errors.Wrap(err, errors.ErrorTypeInternal, "failed to write row")
		}
		rows++
	}
	a.logger.Info("scan finished", zap.String("table", table), zap.Int64("rows", rows))
	return nil
}
