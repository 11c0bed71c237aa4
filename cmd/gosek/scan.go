package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/praetorian-inc/gosek/pkg/config"
	"github.com/praetorian-inc/gosek/pkg/patternset"
	"github.com/praetorian-inc/gosek/pkg/report"
	"github.com/praetorian-inc/gosek/pkg/scanner"
	"github.com/praetorian-inc/gosek/pkg/source"
	"github.com/praetorian-inc/gosek/pkg/template"
	"github.com/praetorian-inc/gosek/pkg/types"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	// errNoTargets is returned after help was printed for a scan with
	// nothing to scan.
	errNoTargets = errors.New("no targets given")
	// errFindings is returned with --fail when findings or failed targets
	// were reported.
	errFindings = errors.New("findings reported")
)

var scanOpts = config.DefaultScan()

var scanCmd = &cobra.Command{
	Use:   "scan [target...]",
	Short: "Scan URLs, files or text for secrets",
	Long: `Scan URLs, local files or inline text for secrets using templates.

Targets come from --url, --file, --dir and positional arguments. A --url that
names an existing local file is read as a list of targets, one per line. With
no targets given, lines are read from stdin when it is not a terminal.`,
	Args: cobra.ArbitraryArgs,
	RunE: runScan,
}

func init() {
	d := config.DefaultScan()
	f := scanCmd.Flags()
	f.StringVarP(&scanOpts.URL, "url", "u", "", "Single URL, or path to a file listing URLs and paths")
	f.StringVarP(&scanOpts.File, "file", "f", "", "Local file to scan")
	f.StringVar(&scanOpts.Dir, "dir", "", "Directory to scan recursively")
	f.BoolVar(&scanOpts.Text, "text", false, "Treat stdin lines and arguments as inline text")
	f.BoolVar(&scanOpts.IncludeHidden, "include-hidden", false, "Include hidden files and directories with --dir")
	f.StringVarP(&scanOpts.Templates, "templates", "t", d.Templates, "Templates folder (json/yaml/toml), env GOSEK_TEMPLATES")
	f.BoolVar(&scanOpts.NoBuiltin, "no-builtin", false, "Do not load the builtin templates")
	f.StringVar(&scanOpts.Include, "include", "", "Include templates matching regex pattern (comma-separated)")
	f.StringVar(&scanOpts.Exclude, "exclude", "", "Exclude templates matching regex pattern (comma-separated)")
	f.StringVar(&scanOpts.Format, "format", d.Format, "Output format: "+strings.Join(report.Formats(), ", "))
	f.StringVarP(&scanOpts.Output, "output", "o", "", "Write results to this file instead of stdout")
	f.StringVar(&scanOpts.Color, "color", d.Color, "Color human output: auto, always, never")
	f.BoolVar(&scanOpts.Fail, "fail", false, "Exit with status 2 when anything is reported")
	f.IntVar(&scanOpts.Context, "context", d.Context, "Context chars around each finding")
	f.IntVar(&scanOpts.MaxMatches, "max-matches", 0, "Findings per template per target (0 = unlimited)")
	f.DurationVar(&scanOpts.MatchTimeout, "match-timeout", d.MatchTimeout, "Time limit for a single regex match")
	f.IntVar(&scanOpts.Concurrent, "concurrent", d.Concurrent, "Number of concurrent workers")
	f.StringVar(&scanOpts.Proxy, "proxy", "", "HTTP/HTTPS proxy, e.g. http://127.0.0.1:8080")
	f.DurationVar(&scanOpts.Timeout, "timeout", d.Timeout, "Per-URL timeout")
	f.IntVar(&scanOpts.Retries, "retries", d.Retries, "Retries for fetching URLs")
	f.DurationVar(&scanOpts.Backoff, "backoff", d.Backoff, "Delay before the first retry, doubled on each retry")
	f.DurationVar(&scanOpts.MaxBackoff, "max-backoff", d.MaxBackoff, "Cap on a single retry delay")
	f.BoolVar(&scanOpts.NoJitter, "no-jitter", false, "Disable random jitter on retry delays")
	f.Float64Var(&scanOpts.RateLimit, "rate-limit", 0, "Maximum HTTP requests per second (0 = unlimited)")
	f.Int64Var(&scanOpts.MaxSize, "max-size", 0, "Bytes read per target (0 = unlimited)")
	f.BoolVar(&scanOpts.Insecure, "insecure", false, "Skip TLS certificate verification")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg := scanOpts
	if err := config.Bind(cmd.Flags(), configFile, &cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Load templates before touching any target
	set, err := loadPatternSet(&cfg)
	if err != nil {
		return err
	}

	src, err := gatherSources(&cfg, args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	if src == nil {
		_ = cmd.Help()
		return errNoTargets
	}

	sc, err := scanner.New(set, cfg.Scanner(userAgent()), logger)
	if err != nil {
		return fmt.Errorf("creating scanner: %w", err)
	}

	out := cmd.OutOrStdout()
	if cfg.Output != "" {
		file, err := os.Create(cfg.Output)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer file.Close()
		out = file
	}

	format, err := report.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}
	sink, err := report.New(format, out, report.Options{
		Color:       colorEnabled(cfg.Color, out),
		ToolVersion: version,
		Templates:   set.Templates(),
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, runErr := sc.Run(ctx, src, sink)
	if err := sink.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("writing output: %w", err)
	}
	if summary != nil {
		logger.Info().
			Int("targets", summary.Targets).
			Int("findings", summary.Findings).
			Int("errors", summary.Errors).
			Int("truncated", summary.Truncated).
			Bool("cancelled", summary.Cancelled).
			Dur("duration", summary.Duration).
			Msg("Scan finished")
	}
	if runErr != nil {
		return runErr
	}

	if cfg.Fail && summary != nil && (summary.Findings > 0 || summary.Errors > 0) {
		return errFindings
	}
	return nil
}

// loadPatternSet loads, filters and compiles the templates.
func loadPatternSet(cfg *config.Scan) (*patternset.PatternSet, error) {
	opts, err := cfg.LoadOptions()
	if err != nil {
		return nil, err
	}

	templates, err := template.NewLoader().Load(opts)
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}
	for _, o := range template.Overrides(templates) {
		logger.Debug().
			Str("template", o.Name).
			Str("winner", o.Winner).
			Strs("shadowed", o.Shadowed).
			Msg("Template overridden")
	}

	set, err := patternset.Build(templates, cfg.PatternOptions())
	if err != nil {
		return nil, err
	}
	logger.Debug().Int("patterns", set.Len()).Msg("Templates compiled")
	return set, nil
}

// gatherSources builds the target source. It returns nil when there is
// nothing to scan.
func gatherSources(cfg *config.Scan, args []string, stdin io.Reader) (source.Source, error) {
	mode := source.ModeAuto
	if cfg.Text {
		mode = source.ModeText
	}

	var sources []source.Source
	if cfg.URL != "" {
		if info, err := os.Stat(cfg.URL); err == nil && !info.IsDir() {
			sources = append(sources, source.NewListFile(cfg.URL, source.ModeAuto, logger))
		} else {
			sources = append(sources, source.Static{types.URLTarget(cfg.URL)})
		}
	}

	if cfg.File != "" {
		if _, err := os.Stat(cfg.File); err != nil {
			return nil, &types.ConfigError{Field: "file", Err: fmt.Errorf("--file not found: %s", cfg.File)}
		}
		sources = append(sources, source.Static{types.FileTarget(cfg.File)})
	}

	if cfg.Dir != "" {
		if info, err := os.Stat(cfg.Dir); err != nil || !info.IsDir() {
			return nil, &types.ConfigError{Field: "dir", Err: fmt.Errorf("--dir is not a directory: %s", cfg.Dir)}
		}
		sources = append(sources, source.NewDirectory(source.DirectoryConfig{
			Root:          cfg.Dir,
			IncludeHidden: cfg.IncludeHidden,
			MaxFileSize:   cfg.MaxSize,
			Logger:        logger,
		}))
	}

	if len(args) > 0 {
		sources = append(sources, source.NewLines(strings.NewReader(strings.Join(args, "\n")), "args", mode, logger))
	}

	if len(sources) == 0 && stdin != nil && !isTerminal(stdin) {
		// Empty stdin counts as no targets.
		buffered := bufio.NewReader(stdin)
		if _, err := buffered.Peek(1); err == nil {
			sources = append(sources, source.NewLines(buffered, "stdin", mode, logger))
		}
	}

	switch len(sources) {
	case 0:
		return nil, nil
	case 1:
		return sources[0], nil
	}
	return source.NewCombined(sources...), nil
}

func isTerminal(r interface{}) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// colorEnabled resolves --color. auto colours only terminals and honours
// NO_COLOR.
func colorEnabled(mode string, w io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	return !color.NoColor && isTerminal(w)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
