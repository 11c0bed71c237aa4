package report

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"

	"github.com/praetorian-inc/gosek/pkg/scanner"
	"github.com/rs/zerolog"
)

// Summary counts findings per pattern and writes a "pattern,count" CSV,
// sorted by pattern name, on Close.
type Summary struct {
	w      io.Writer
	counts map[string]int
	logger zerolog.Logger
}

// NewSummary creates a summary sink.
func NewSummary(w io.Writer, logger zerolog.Logger) *Summary {
	return &Summary{w: w, counts: make(map[string]int), logger: logger}
}

// Emit tallies the event's findings.
func (s *Summary) Emit(ev scanner.Event) error {
	if ev.Err != nil {
		logFailure(s.logger, ev.Err)
		return nil
	}
	for _, f := range ev.Findings {
		s.counts[f.PatternName]++
	}
	return nil
}

// Counts returns the per-pattern tallies so far.
func (s *Summary) Counts() map[string]int {
	out := make(map[string]int, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}
	return out
}

// Close writes the CSV.
func (s *Summary) Close() error {
	names := make([]string, 0, len(s.counts))
	for name := range s.counts {
		names = append(names, name)
	}
	sort.Strings(names)

	cw := csv.NewWriter(s.w)
	if err := cw.Write([]string{"pattern", "count"}); err != nil {
		return err
	}
	for _, name := range names {
		if err := cw.Write([]string{name, strconv.Itoa(s.counts[name])}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
