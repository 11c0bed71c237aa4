// Package config resolves command-line flags and GOSEK_* environment
// variables into validated settings for the scan engine and the template
// tooling.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/praetorian-inc/gosek/pkg/fetch"
	"github.com/praetorian-inc/gosek/pkg/logging"
	"github.com/praetorian-inc/gosek/pkg/matcher"
	"github.com/praetorian-inc/gosek/pkg/patternset"
	"github.com/praetorian-inc/gosek/pkg/scanner"
	"github.com/praetorian-inc/gosek/pkg/template"
	"github.com/praetorian-inc/gosek/pkg/types"
	"github.com/rs/zerolog"
)

// EnvPrefix prefixes every environment variable gosek reads.
const EnvPrefix = "GOSEK"

// TemplatesEnv overrides the default template directory.
const TemplatesEnv = EnvPrefix + "_TEMPLATES"

// DefaultTemplatesDir returns $GOSEK_TEMPLATES, or ~/.gosek/templates.
func DefaultTemplatesDir() string {
	if dir := strings.TrimSpace(os.Getenv(TemplatesEnv)); dir != "" {
		if expanded, err := homedir.Expand(dir); err == nil {
			return expanded
		}
		return dir
	}
	home, err := homedir.Dir()
	if err != nil {
		return filepath.Join(".gosek", "templates")
	}
	return filepath.Join(home, ".gosek", "templates")
}

// Log is the logging section shared by every command.
type Log struct {
	Verbose    bool   `mapstructure:"verbose"`
	Quiet      bool   `mapstructure:"quiet"`
	Level      string `mapstructure:"log-level" validate:"omitempty,loglevel"`
	Format     string `mapstructure:"log-format" validate:"omitempty,logformat"`
	File       string `mapstructure:"log-file"`
	MaxSizeMB  int    `mapstructure:"log-max-size" validate:"min=0"`
	MaxBackups int    `mapstructure:"log-max-backups" validate:"min=0"`
	NoColor    bool   `mapstructure:"no-color"`
}

// Validate checks field constraints.
func (l *Log) Validate() error {
	return validateStruct(l)
}

// Logging converts the section into a logger configuration. --verbose
// and --quiet override --log-level.
func (l Log) Logging() (logging.Config, error) {
	cfg := logging.DefaultConfig()

	level, err := logging.ParseLevel(l.Level)
	if err != nil {
		return cfg, err
	}
	switch {
	case l.Verbose:
		level = zerolog.DebugLevel
	case l.Quiet:
		level = zerolog.ErrorLevel
	}
	cfg.Level = level

	format, err := logging.ParseFormat(l.Format)
	if err != nil {
		return cfg, err
	}
	cfg.Format = format
	cfg.File = l.File
	if l.MaxSizeMB > 0 {
		cfg.MaxSizeMB = l.MaxSizeMB
	}
	if l.MaxBackups > 0 {
		cfg.MaxBackups = l.MaxBackups
	}
	cfg.NoColor = l.NoColor
	return cfg, nil
}

// Scan holds every setting of the scan command.
type Scan struct {
	URL       string `mapstructure:"url"`
	File      string `mapstructure:"file"`
	Dir       string `mapstructure:"dir"`
	Text      bool   `mapstructure:"text"`
	Templates string `mapstructure:"templates"`
	NoBuiltin bool   `mapstructure:"no-builtin"`
	Include   string `mapstructure:"include"`
	Exclude   string `mapstructure:"exclude"`

	Format string `mapstructure:"format" validate:"oneof=jsonl summary human sarif"`
	Output string `mapstructure:"output"`
	Color  string `mapstructure:"color" validate:"oneof=auto always never"`
	Fail   bool   `mapstructure:"fail"`

	Context      int           `mapstructure:"context" validate:"min=0"`
	MaxMatches   int           `mapstructure:"max-matches" validate:"min=0"`
	MatchTimeout time.Duration `mapstructure:"match-timeout" validate:"min=0"`

	Concurrent int           `mapstructure:"concurrent" validate:"min=1"`
	Proxy      string        `mapstructure:"proxy" validate:"omitempty,proxyurl"`
	Timeout    time.Duration `mapstructure:"timeout" validate:"min=0"`
	Retries    int           `mapstructure:"retries" validate:"min=0"`
	Backoff    time.Duration `mapstructure:"backoff" validate:"min=0"`
	MaxBackoff time.Duration `mapstructure:"max-backoff" validate:"min=0"`
	NoJitter   bool          `mapstructure:"no-jitter"`
	RateLimit  float64       `mapstructure:"rate-limit" validate:"min=0"`
	MaxSize    int64         `mapstructure:"max-size" validate:"min=0"`
	Insecure   bool          `mapstructure:"insecure"`

	IncludeHidden bool `mapstructure:"include-hidden"`
}

// DefaultScan returns the scan defaults used as flag defaults.
func DefaultScan() Scan {
	fc := fetch.DefaultConfig()
	return Scan{
		Templates:    DefaultTemplatesDir(),
		Format:       "jsonl",
		Color:        "auto",
		Context:      matcher.DefaultContextChars,
		MatchTimeout: patternset.DefaultMatchTimeout,
		Concurrent:   scanner.DefaultConcurrency,
		Timeout:      fc.Timeout,
		Retries:      fc.MaxRetries,
		Backoff:      fc.BaseBackoff,
		MaxBackoff:   fc.MaxBackoff,
	}
}

// Validate checks field constraints.
func (s *Scan) Validate() error {
	return validateStruct(s)
}

// LoadOptions returns the template selection for this scan. A missing
// template directory is tolerated only when it is the default one and
// builtins are enabled.
func (s *Scan) LoadOptions() (template.LoadOptions, error) {
	opts := template.LoadOptions{
		NoBuiltin: s.NoBuiltin,
		Filter: template.FilterConfig{
			Include: template.ParsePatterns(s.Include),
			Exclude: template.ParsePatterns(s.Exclude),
		},
	}
	if s.Templates == "" {
		return opts, nil
	}

	path, err := homedir.Expand(s.Templates)
	if err != nil {
		return opts, &types.ConfigError{Field: "templates", Err: err}
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && path == DefaultTemplatesDir() && !s.NoBuiltin {
			return opts, nil
		}
		return opts, &types.ConfigError{
			Field: "templates",
			Err: fmt.Errorf("templates dir not found: %s (run: gosek templates install --from <repo_or_zip_url> --to %s)",
				path, path),
		}
	}
	opts.Paths = []string{path}
	return opts, nil
}

// Scanner returns the engine configuration.
func (s *Scan) Scanner(userAgent string) scanner.Config {
	cfg := scanner.DefaultConfig()
	cfg.Concurrency = s.Concurrent
	cfg.Fetch = fetch.Config{
		ProxyURL:           s.Proxy,
		MaxRetries:         s.Retries,
		BaseBackoff:        s.Backoff,
		MaxBackoff:         s.MaxBackoff,
		Jitter:             !s.NoJitter,
		Timeout:            s.Timeout,
		UserAgent:          userAgent,
		MaxContentSize:     s.MaxSize,
		RateLimit:          s.RateLimit,
		InsecureSkipVerify: s.Insecure,
	}
	cfg.Match = matcher.Options{
		MaxMatchesPerPattern: s.MaxMatches,
		ContextChars:         s.Context,
	}
	return cfg
}

// PatternOptions returns the compile options.
func (s *Scan) PatternOptions() patternset.Options {
	return patternset.Options{MatchTimeout: s.MatchTimeout}
}

// Templates holds settings of the templates subcommands.
type Templates struct {
	From  string `mapstructure:"from"`
	To    string `mapstructure:"to" validate:"required"`
	Force bool   `mapstructure:"force"`
}

// Dir returns the expanded target directory.
func (t *Templates) Dir() (string, error) {
	return homedir.Expand(t.To)
}

// Validate checks field constraints.
func (t *Templates) Validate() error {
	return validateStruct(t)
}
