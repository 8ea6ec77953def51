// FILE: lixenwraith/flatconf/cmd/flatconf/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lixenwraith/flatconf"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Build-time variables
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

var (
	// Global flags
	verbose    bool
	schemaPath string
	strict     bool

	// Command-specific flags
	format       string
	requirePaths []string
	pollInterval time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "flatconf",
	Short: "Inspect flat key = value configuration files",
	Long: `flatconf parses flat "key = value" configuration files into nested trees.

Dotted keys (log.file) become nested tables. An optional schema file with
"key -> type" lines coerces values to string, bool or number.

When no file is given, the configuration is discovered through the
FLATCONF_CONFIG environment variable, the current directory and the XDG
configuration directories.`,
	SilenceUsage: true,
}

var showCmd = &cobra.Command{
	Use:   "show [file]",
	Short: "Print the parsed configuration tree",
	Long: `Print the parsed configuration tree.

Examples:
  flatconf show app.conf
  flatconf show app.conf --schema app.schema --format json
  flatconf show --format debug`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tree, err := load(args)
		if err != nil {
			return err
		}

		if format == "debug" {
			fmt.Print(tree.Debug())
			return nil
		}
		f, err := flatconf.ParseFormat(format)
		if err != nil {
			return err
		}
		return tree.Dump(os.Stdout, f)
	},
}

var getCmd = &cobra.Command{
	Use:   "get <file> <key>",
	Short: "Print the value at a dotted key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tree, err := load(args[:1])
		if err != nil {
			return err
		}

		v, ok := tree.Lookup(args[1])
		if !ok {
			return fmt.Errorf("%w: %s", flatconf.ErrPathNotFound, args[1])
		}
		if sub, err := v.AsTable(); err == nil {
			f, err := flatconf.ParseFormat(format)
			if err != nil {
				return err
			}
			return sub.Dump(os.Stdout, f)
		}
		fmt.Println(v)
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Validate a configuration against its schema",
	Long: `Parse the configuration and report the first error, if any.

Examples:
  flatconf check app.conf --schema app.schema
  flatconf check app.conf --require endpoint,log.file`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tree, err := load(args)
		if err != nil {
			return err
		}
		if err := tree.Require(requirePaths...); err != nil {
			return err
		}

		fmt.Printf("✅ configuration valid: %d keys\n", len(tree.Paths()))
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch [file]",
	Short: "Re-parse the configuration whenever it changes",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := newBuilder(args)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		opts := flatconf.DefaultWatchOptions()
		opts.PollInterval = pollInterval
		w, err := b.Watch(ctx, opts)
		if err != nil {
			return err
		}
		defer w.Stop()

		logger := newLogger()
		logger.Info().Int("keys", len(w.Current().Paths())).Msg("watching configuration")

		for ev := range w.Subscribe() {
			switch ev.Kind {
			case flatconf.EventReloaded:
				logger.Info().Strs("changed", ev.Changed).Msg("configuration reloaded")
			case flatconf.EventReloadError, flatconf.EventReloadTimeout:
				logger.Error().Err(ev.Err).Stringer("event", ev.Kind).Msg("reload failed, keeping previous configuration")
			default:
				logger.Warn().Str("file", ev.File).Stringer("event", ev.Kind).Msg("watched file changed")
			}
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("flatconf version %s\n", version)

		if verbose {
			fmt.Printf("  Build time: %s\n", buildTime)
			fmt.Printf("  Git commit: %s\n", gitCommit)
		}
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)

	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&schemaPath, "schema", "s", "", "Schema file declaring key types")
	rootCmd.PersistentFlags().BoolVar(&strict, "strict", false, "Reject keys that change between scalar and table")

	showCmd.Flags().StringVarP(&format, "format", "f", "yaml", "Output format: toml, yaml, json or debug")
	getCmd.Flags().StringVarP(&format, "format", "f", "yaml", "Output format for tables: toml, yaml or json")
	checkCmd.Flags().StringSliceVarP(&requirePaths, "require", "r", nil, "Keys that must be present")
	watchCmd.Flags().DurationVar(&pollInterval, "interval", flatconf.DefaultPollInterval, "Polling interval")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger() zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// newBuilder configures a file-based builder from the positional file
// argument, falling back to discovery
func newBuilder(args []string) (*flatconf.Builder, error) {
	b := flatconf.NewBuilder().
		WithArgs(nil).
		WithLogger(newLogger()).
		WithSchemaFile(schemaPath)
	if strict {
		b.WithConflictPolicy(flatconf.ConflictReject)
	}

	if len(args) > 0 {
		return b.WithFile(args[0]), nil
	}

	opts := flatconf.DefaultDiscoveryOptions("flatconf")
	opts.CLIFlag = ""
	if flatconf.DiscoverFile(opts, nil) == "" {
		return nil, fmt.Errorf("%w: no file given and none discovered (set %s)", flatconf.ErrConfigNotFound, opts.EnvVar)
	}
	return b.WithFileDiscovery(opts), nil
}

func load(args []string) (*flatconf.Tree, error) {
	b, err := newBuilder(args)
	if err != nil {
		return nil, err
	}

	tree, err := b.Build()
	if err != nil {
		var perr *flatconf.ParseError
		if errors.As(err, &perr) && verbose {
			logger := newLogger()
			logger.Debug().Str("source", perr.Source).Int("line", perr.Line).Str("key", perr.Key).Msg("parse failed")
		}
		return nil, err
	}
	return tree, nil
}
