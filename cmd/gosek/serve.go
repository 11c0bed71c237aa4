package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/praetorian-inc/gosek/pkg/config"
	"github.com/praetorian-inc/gosek/pkg/scanner"
	"github.com/praetorian-inc/gosek/pkg/serve"
	"github.com/spf13/cobra"
)

var serveOpts = config.DefaultScan()

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run as a streaming NDJSON server",
	Long: `Run gosek as a long-lived streaming server that accepts scan requests
via stdin and writes responses to stdout, one JSON object per line.

Templates are loaded once at startup. Requests are processed until stdin
closes, a close request arrives, or SIGTERM is received.`,
	RunE: runServe,
}

func init() {
	d := config.DefaultScan()
	f := serveCmd.Flags()
	f.StringVarP(&serveOpts.Templates, "templates", "t", d.Templates, "Templates folder (json/yaml/toml), env GOSEK_TEMPLATES")
	f.BoolVar(&serveOpts.NoBuiltin, "no-builtin", false, "Do not load the builtin templates")
	f.StringVar(&serveOpts.Include, "include", "", "Include templates matching regex pattern (comma-separated)")
	f.StringVar(&serveOpts.Exclude, "exclude", "", "Exclude templates matching regex pattern (comma-separated)")
	f.IntVar(&serveOpts.Context, "context", d.Context, "Context chars around each finding")
	f.IntVar(&serveOpts.Concurrent, "concurrent", d.Concurrent, "Number of concurrent workers for scan_targets")
	f.StringVar(&serveOpts.Proxy, "proxy", "", "HTTP/HTTPS proxy, e.g. http://127.0.0.1:8080")
	f.DurationVar(&serveOpts.Timeout, "timeout", d.Timeout, "Per-URL timeout")
	f.IntVar(&serveOpts.Retries, "retries", d.Retries, "Retries for fetching URLs")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := serveOpts
	if err := config.Bind(cmd.Flags(), configFile, &cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	set, err := loadPatternSet(&cfg)
	if err != nil {
		return err
	}
	sc, err := scanner.New(set, cfg.Scanner(userAgent()), logger)
	if err != nil {
		return fmt.Errorf("creating scanner: %w", err)
	}

	// Set up signal handling
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := serve.NewServer(sc, cmd.InOrStdin(), cmd.OutOrStdout(), logger)
	if err := srv.Run(ctx); err != nil && !errors.Is(err, ctx.Err()) {
		return err
	}
	return nil
}
