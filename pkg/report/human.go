package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/praetorian-inc/gosek/pkg/scanner"
	"github.com/rs/zerolog"
)

// styles holds color formatters for human output
type styles struct {
	findingHeading *color.Color
	patternName    *color.Color
	heading        *color.Color
	match          *color.Color
	metadata       *color.Color
	failure        *color.Color
}

// newStyles creates color formatters for human output
// enabled=false respects --color never and NO_COLOR
func newStyles(enabled bool) *styles {
	s := &styles{
		findingHeading: color.New(color.Bold, color.FgHiWhite),
		patternName:    color.New(color.Bold, color.FgHiBlue),
		heading:        color.New(color.Bold),
		match:          color.New(color.FgYellow),
		metadata:       color.New(color.FgHiBlue),
		failure:        color.New(color.FgRed),
	}

	for _, c := range []*color.Color{s.findingHeading, s.patternName, s.heading, s.match, s.metadata, s.failure} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	return s
}

// Human prints each finding as a short block and a totals line on Close.
type Human struct {
	w        io.Writer
	s        *styles
	logger   zerolog.Logger
	findings int
	targets  int
	failures int
}

// NewHuman creates a human-readable sink.
func NewHuman(w io.Writer, colorEnabled bool, logger zerolog.Logger) *Human {
	return &Human{w: w, s: newStyles(colorEnabled), logger: logger}
}

// Emit prints the event.
func (h *Human) Emit(ev scanner.Event) error {
	h.targets++
	if ev.Err != nil {
		h.failures++
		logFailure(h.logger, ev.Err)
		_, err := fmt.Fprintf(h.w, "%s %s\n\n", h.s.failure.Sprint("Error:"), ev.Err.Error())
		return err
	}

	for _, f := range ev.Findings {
		h.findings++
		fmt.Fprintf(h.w, "%s %s\n",
			h.s.findingHeading.Sprintf("Finding %d:", h.findings),
			h.s.patternName.Sprint(f.PatternName))
		fmt.Fprintf(h.w, "%s %s\n", h.s.heading.Sprint("Source:"), h.s.metadata.Sprint(f.Target.Label()))
		fmt.Fprintf(h.w, "%s %d:%d (offset %d-%d)\n",
			h.s.heading.Sprint("Position:"),
			f.Position.Line, f.Position.Column, f.Offset.Start, f.Offset.End)
		for _, name := range sortedKeys(f.Groups) {
			fmt.Fprintf(h.w, "%s %s\n", h.s.heading.Sprintf("Group %s:", name), h.s.match.Sprint(f.Groups[name]))
		}

		before, matching, after := splitContext(f.Context, f.MatchedText)
		if _, err := fmt.Fprintf(h.w, "\n    %s%s%s\n\n", before, h.s.match.Sprint(matching), after); err != nil {
			return err
		}
	}
	return nil
}

// Close prints the totals line.
func (h *Human) Close() error {
	_, err := fmt.Fprintf(h.w, "%s %d finding(s) in %d target(s), %d failed\n",
		h.s.heading.Sprint("Total:"), h.findings, h.targets, h.failures)
	return err
}

// splitContext locates the match inside its context snippet. When the
// match does not appear verbatim (its whitespace was flattened) the whole
// snippet is returned as the matching part.
func splitContext(context, match string) (string, string, string) {
	if context == "" {
		return "", match, ""
	}
	i := strings.Index(context, match)
	if i < 0 || match == "" {
		return "", context, ""
	}
	return context[:i], match, context[i+len(match):]
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
