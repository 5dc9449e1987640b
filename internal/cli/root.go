package cli

import (
	"context"
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-metafields/config"
	"github.com/goliatone/go-metafields/metafields"
	"github.com/goliatone/go-metafields/pkg/di"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
)

// options holds the persistent flags shared by every subcommand.
type options struct {
	configPath  string
	driver      string
	dsn         string
	redisURL    string
	serializers map[string]string
	noCache     bool
	noColor     bool
	verbose     bool
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "metafieldctl",
		Short: "Inspect and edit metafields stored for any entity",
		Long: `metafieldctl reads and writes the key/value metafields attached to
entities, through the same cache and serializers applications use.

Entities are addressed by their type name and identifier, e.g.
  metafieldctl get Person 42 favorite_color`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor {
				color.NoColor = true
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Config file (default ./metafields.yaml)")
	flags.StringVar(&opts.driver, "db-driver", "", "Database driver: sqlite3 or postgres")
	flags.StringVar(&opts.dsn, "dsn", "", "Database connection string")
	flags.StringVar(&opts.redisURL, "redis", "", "Use a redis cache at this URL")
	flags.StringToStringVar(&opts.serializers, "map", nil, "Serializer bindings as key=serializer (standard, direct, json)")
	flags.BoolVar(&opts.noCache, "no-cache", false, "Bypass the cache; only reads are allowed")
	flags.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log SQL and cache activity")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(NewMigrateCommand(opts))
	rootCmd.AddCommand(NewGetCommand(opts))
	rootCmd.AddCommand(NewSetCommand(opts))
	rootCmd.AddCommand(NewDeleteCommand(opts))
	rootCmd.AddCommand(NewListCommand(opts))
	rootCmd.AddCommand(NewPurgeCommand(opts))

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			title := color.New(color.FgCyan, color.Bold)

			title.Fprint(out, "metafieldctl version: ")
			fmt.Fprintln(out, Version)
			title.Fprint(out, "Git commit: ")
			fmt.Fprintln(out, GitCommit)
			title.Fprint(out, "Go version: ")
			fmt.Fprintln(out, runtime.Version())
		},
	}
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		errorColor := color.New(color.FgRed, color.Bold)
		errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}

// loadConfig reads the config file and applies flag overrides.
func (o *options) loadConfig() (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if o.driver != "" {
		cfg.Database.Driver = o.driver
	}
	if o.dsn != "" {
		cfg.Database.DSN = o.dsn
	}
	if o.redisURL != "" {
		cfg.CacheStore = config.CacheStoreRedis
		cfg.RedisURL = o.redisURL
	}
	return *cfg, nil
}

func (o *options) logger() (*zap.Logger, error) {
	if !o.verbose {
		return zap.NewNop(), nil
	}
	return zap.NewDevelopment()
}

// withContainer builds a container for the duration of fn.
func (o *options) withContainer(cmd *cobra.Command, fn func(ctx context.Context, c *di.Container) error) error {
	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}
	logger, err := o.logger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	container, err := di.NewContainer(cfg, di.WithLogger(logger))
	if err != nil {
		return err
	}
	defer container.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, container)
}

// invoker runs an engine operation by name. With --no-cache every call goes
// through the read-only view, so writes fail with MethodNotAllowedError.
type invoker struct {
	engine  *metafields.Engine
	noCache bool
}

func (i invoker) call(ctx context.Context, method string, run func() (any, error), args ...any) (any, error) {
	if i.noCache {
		return i.engine.WithoutCache().Invoke(ctx, method, args...)
	}
	return run()
}
