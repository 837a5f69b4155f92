// Command omega converts MUSH flatfiles between the PennMUSH, TinyMUX,
// TinyMUSH and RhostMUSH dialects.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/crystal-mush/omega/pkg/config"
	"github.com/crystal-mush/omega/pkg/driver"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// runFlags are the flags that override configuration values.
type runFlags struct {
	configPath  string
	report      string
	bolt        string
	metricsFile string
	archive     string
	fix         bool
	logJSON     bool
	verbose     int
}

func newRootCmd() *cobra.Command {
	var f runFlags

	root := &cobra.Command{
		Use:   "omega <mode> <infile> <outfile>",
		Short: "Convert MUSH flatfiles between dialects",
		Long: `omega reads a flatfile, validates it, upgrades or converts it, validates
the result and writes it out.

Modes:
  p6h, t5x, t6h, r7h        read and write the same dialect
  t5x-upgrade, t6h-upgrade  upgrade in place to the newest version
  <src>2<dst>               convert, e.g. p6h2t5x or t6h2r7h

Configuration is read from --config (YAML, or "key value" lines), then
OMEGA_<KEY> environment variables, then flags.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.ExactArgs(3)(cmd, args); err != nil {
				return usageError(cmd, err)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := driver.ParseMode(args[0])
			if err != nil {
				return usageError(cmd, err)
			}
			cfg, err := loadConfig(cmd, &f)
			if err != nil {
				return reportError(cmd, err)
			}
			log, err := newLogger(cfg)
			if err != nil {
				return reportError(cmd, err)
			}
			defer log.Sync()

			opts := driver.OptionsFromConfig(cfg)
			opts.ConfigFile = f.configPath
			_, err = driver.New(opts, log).Run(mode, args[1], args[2])
			if err != nil {
				return reportError(cmd, err)
			}
			return nil
		},
	}

	flags := root.Flags()
	flags.StringVar(&f.configPath, "config", "", "configuration file")
	flags.StringVar(&f.report, "report", "", "write the JSON validation report to this file")
	flags.StringVar(&f.bolt, "bolt", "", "save a bbolt snapshot of the written database")
	flags.StringVar(&f.metricsFile, "metrics-file", "", "write run metrics in Prometheus textfile format")
	flags.StringVar(&f.archive, "archive", "", "bundle the run's files into a .tar.gz in this directory")
	flags.BoolVar(&f.fix, "fix", false, "apply every fixable validation finding before writing")
	flags.BoolVar(&f.logJSON, "log-json", false, "log JSON instead of console text")
	flags.CountVarP(&f.verbose, "verbose", "v", "log debug detail")

	root.AddCommand(newInspectCmd(), newSnapshotCmd(), newArchiveCmd())
	return root
}

// loadConfig layers defaults, the config file, the environment and flags.
func loadConfig(cmd *cobra.Command, f *runFlags) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if f.configPath != "" {
		loaded, err := config.LoadConfig(f.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnvironment(); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("report") {
		cfg.Report = f.report
	}
	if flags.Changed("bolt") {
		cfg.Bolt = f.bolt
	}
	if flags.Changed("metrics-file") {
		cfg.MetricsFile = f.metricsFile
	}
	if flags.Changed("archive") {
		cfg.Archive = f.archive
	}
	if flags.Changed("fix") {
		cfg.AutoFix = f.fix
	}
	if flags.Changed("log-json") {
		cfg.LogJSON = f.logJSON
	}
	if f.verbose > 0 {
		cfg.LogLevel = "debug"
	}
	return cfg, cfg.Validate()
}

// newLogger builds the run logger: console text on stderr, or JSON.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		return nil, errors.Wrap(err, "log level")
	}

	var zc zap.Config
	if cfg.LogJSON {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zc.DisableStacktrace = true
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}

func usageError(cmd *cobra.Command, err error) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "omega: %v\n\n", err)
	cmd.Usage()
	return err
}

func reportError(cmd *cobra.Command, err error) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "omega: %v\n", err)
	return err
}
