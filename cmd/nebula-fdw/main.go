// Command nebula-fdw runs foreign-table scans outside a host engine. Servers
// and tables come from a YAML catalog; rows are printed as JSON lines.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-fdw/pkg/config"
	"github.com/ajitpratap0/nebula-fdw/pkg/connector/registry"
	"github.com/ajitpratap0/nebula-fdw/pkg/connector/sources"
	"github.com/ajitpratap0/nebula-fdw/pkg/errors"
	"github.com/ajitpratap0/nebula-fdw/pkg/json"
	"github.com/ajitpratap0/nebula-fdw/pkg/logger"
	"github.com/ajitpratap0/nebula-fdw/pkg/observability"
)

var version = "0.1.0"

const envPrefix = "NEBULA_FDW"

// settings are the process-wide knobs, layered flag > env > settings file.
type settings struct {
	LogLevel      string
	LogFormat     string
	BatchSize     int
	RetryAttempts int
	RateLimit     int
	Trace         bool
}

func loadSettings(v *viper.Viper) settings {
	return settings{
		LogLevel:      v.GetString("log-level"),
		LogFormat:     v.GetString("log-format"),
		BatchSize:     v.GetInt("batch-size"),
		RetryAttempts: v.GetInt("retry-attempts"),
		RateLimit:     v.GetInt("rate-limit"),
		Trace:         v.GetBool("trace"),
	}
}

// baseConfig builds the connector configuration for one table.
func (s settings) baseConfig(table, connector string) *config.BaseConfig {
	cfg := config.NewBaseConfig(table, connector)
	if s.BatchSize > 0 {
		cfg.Performance.BatchSize = s.BatchSize
	}
	if s.RetryAttempts >= 0 {
		cfg.Reliability.RetryAttempts = s.RetryAttempts
	}
	cfg.Reliability.RateLimitPerSec = s.RateLimit
	cfg.Observability.EnableTracing = s.Trace
	return cfg
}

type app struct {
	v        *viper.Viper
	registry *registry.Registry
	settings settings
	logger   *zap.Logger
	shutdown func(context.Context) error
}

func main() {
	// .env is optional
	_ = godotenv.Load()
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr, nil))
}

// run executes the CLI and returns the process exit code. A nil registry
// means the built-in connectors.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, reg *registry.Registry) int {
	a := &app{v: viper.New(), registry: reg}
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if a.shutdown != nil {
		if serr := a.shutdown(context.Background()); serr != nil && a.logger != nil {
			a.logger.Warn("failed to flush traces", zap.Error(serr))
		}
	}
	// stderr may not support fsync
	_ = logger.Sync()
	if err == nil {
		return 0
	}

	var e *errors.Error
	if errors.As(err, &e) {
		_ = json.NewLineEncoder(stderr).Encode(errors.Render(err))
	} else {
		fmt.Fprintln(stderr, "Error:", err)
	}
	return 1
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "nebula-fdw",
		Short:         "Scan foreign tables backed by remote APIs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.String("settings", "", "Path to a settings file (yaml, json or toml)")
	flags.String("log-level", "warn", "Log level (debug, info, warn, error)")
	flags.String("log-format", "console", "Log encoding (console or json)")
	flags.Int("batch-size", config.DefaultBatchSize, "Records requested per fetch")
	flags.Int("retry-attempts", 3, "Transport retries per request")
	flags.Int("rate-limit", 0, "Requests per second per scan (0 = unlimited)")
	flags.Bool("trace", false, "Export fetch spans to stderr")
	_ = a.v.BindPFlags(flags)

	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	root.AddCommand(
		a.versionCommand(),
		a.listCommand(),
		a.validateCommand(),
		a.scanCommand(),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	if path := a.v.GetString("settings"); path != "" {
		a.v.SetConfigFile(path)
		if err := a.v.ReadInConfig(); err != nil {
			return errors.Wrap(err, errors.ErrorTypeConfig, "failed to read settings file").
				WithDetail("path", path)
		}
	}
	a.settings = loadSettings(a.v)

	if err := logger.Init(logger.Config{Level: a.settings.LogLevel, Encoding: a.settings.LogFormat}); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to build logger")
	}
	a.logger = logger.Get()

	if a.settings.Trace {
		shutdown, err := observability.InitTracing(observability.TracingConfig{
			ServiceName:    "nebula-fdw",
			ServiceVersion: version,
			SamplingRate:   1.0,
			Writer:         cmd.ErrOrStderr(),
		})
		if err != nil {
			return err
		}
		a.shutdown = shutdown
	}

	if a.registry == nil {
		reg, err := sources.NewRegistry(a.logger)
		if err != nil {
			return err
		}
		a.registry = reg
	}
	return nil
}

func (a *app) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "nebula-fdw v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
