package main

import (
	"github.com/praetorian-inc/gosek/pkg/config"
	"github.com/praetorian-inc/gosek/pkg/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	logOpts    config.Log
	configFile string
)

// logger is replaced by the configured logger before any subcommand runs.
var logger = zerolog.Nop()

var logCloser *logging.Logger

var rootCmd = &cobra.Command{
	Use:   "gosek",
	Short: "gosek - find secrets in URLs, files and text using regex templates",
	Long: `gosek fetches URLs, reads local files or takes inline text and matches the
content against a set of regular-expression templates. Templates ship with the
binary and can be extended from a template directory (JSON, YAML or TOML).`,
	SilenceUsage:       true,
	SilenceErrors:      true,
	PersistentPreRunE:  setupLogging,
	PersistentPostRunE: closeLogging,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&logOpts.Verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&logOpts.Quiet, "quiet", "q", false, "Quiet mode (errors only)")
	rootCmd.PersistentFlags().StringVar(&logOpts.Level, "log-level", logging.DefaultLevel, "Log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logOpts.Format, "log-format", logging.DefaultFormat, "Log format: console, json, text")
	rootCmd.PersistentFlags().StringVar(&logOpts.File, "log-file", "", "Also write logs to this rotating file")
	rootCmd.PersistentFlags().IntVar(&logOpts.MaxSizeMB, "log-max-size", logging.DefaultMaxSizeMB, "Log file size in MB before rotation")
	rootCmd.PersistentFlags().IntVar(&logOpts.MaxBackups, "log-max-backups", logging.DefaultMaxBackups, "Rotated log files to keep")
	rootCmd.PersistentFlags().BoolVar(&logOpts.NoColor, "no-color", false, "Disable colored log output")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (yaml, json or toml) with flag values")

	// Add subcommands
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(templatesCmd)
	rootCmd.AddCommand(versionCmd)
}

func setupLogging(cmd *cobra.Command, args []string) error {
	opts := logOpts
	if err := config.Bind(cmd.Flags(), configFile, &opts); err != nil {
		return err
	}
	if err := opts.Validate(); err != nil {
		return err
	}
	cfg, err := opts.Logging()
	if err != nil {
		return err
	}

	l, err := logging.New(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	logCloser = l
	logger = l.Logger
	return nil
}

func closeLogging(cmd *cobra.Command, args []string) error {
	if logCloser == nil {
		return nil
	}
	err := logCloser.Close()
	logCloser = nil
	return err
}

// Execute runs the root command.
func Execute() error {
	defer closeLogging(rootCmd, nil)
	return rootCmd.Execute()
}
