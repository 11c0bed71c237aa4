// Package report formats scan events for output. Every sink is driven by
// the scanner's single consumer goroutine and needs no locking.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/praetorian-inc/gosek/pkg/scanner"
	"github.com/praetorian-inc/gosek/pkg/types"
	"github.com/rs/zerolog"
)

// Format names an output format.
type Format string

const (
	FormatJSONL   Format = "jsonl"
	FormatSummary Format = "summary"
	FormatHuman   Format = "human"
	FormatSARIF   Format = "sarif"
)

// Formats lists the accepted format names.
func Formats() []string {
	return []string{string(FormatJSONL), string(FormatSummary), string(FormatHuman), string(FormatSARIF)}
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FormatJSONL, FormatSummary, FormatHuman, FormatSARIF:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want one of %s)", s, strings.Join(Formats(), ", "))
}

// Sink is a scanner sink that may buffer. Close flushes buffered output
// and must be called once after the run.
type Sink interface {
	scanner.Sink
	Close() error
}

// Options configures a sink.
type Options struct {
	// Color enables ANSI colour in human output.
	Color bool
	// ToolVersion is recorded in SARIF output.
	ToolVersion string
	// Templates are registered as SARIF rules.
	Templates []types.Template
	// Logger receives per-target failures.
	Logger zerolog.Logger
}

// New creates a sink writing format to w.
func New(format Format, w io.Writer, opts Options) (Sink, error) {
	switch format {
	case FormatJSONL:
		return NewJSONL(w, opts.Logger), nil
	case FormatSummary:
		return NewSummary(w, opts.Logger), nil
	case FormatHuman:
		return NewHuman(w, opts.Color, opts.Logger), nil
	case FormatSARIF:
		return NewSARIF(w, opts.ToolVersion, opts.Templates, opts.Logger), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// logFailure reports a failed target at warn level.
func logFailure(logger zerolog.Logger, err *types.ScanError) {
	logger.Warn().Str("target", err.Target.String()).Err(err.Cause).Msg("Target failed")
}
