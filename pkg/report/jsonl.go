package report

import (
	"encoding/json"
	"io"

	"github.com/praetorian-inc/gosek/pkg/scanner"
	"github.com/praetorian-inc/gosek/pkg/types"
	"github.com/rs/zerolog"
)

// Record is one JSONL output line.
type Record struct {
	PatternName string            `json:"pattern_name"`
	Pattern     string            `json:"pattern"`
	Match       string            `json:"match"`
	Context     string            `json:"context"`
	Source      string            `json:"source"`
	Kind        string            `json:"kind"`
	Offset      int               `json:"offset"`
	End         int               `json:"end"`
	Line        int               `json:"line"`
	Column      int               `json:"column"`
	Groups      map[string]string `json:"groups,omitempty"`
}

// NewRecord flattens a finding into its output record.
func NewRecord(f types.Finding) Record {
	return Record{
		PatternName: f.PatternName,
		Pattern:     f.Pattern,
		Match:       f.MatchedText,
		Context:     f.Context,
		Source:      f.Target.Label(),
		Kind:        f.Target.Kind.String(),
		Offset:      f.Offset.Start,
		End:         f.Offset.End,
		Line:        f.Position.Line,
		Column:      f.Position.Column,
		Groups:      f.Groups,
	}
}

// JSONL writes one JSON object per finding as events arrive.
type JSONL struct {
	enc    *json.Encoder
	logger zerolog.Logger
}

// NewJSONL creates a JSONL sink.
func NewJSONL(w io.Writer, logger zerolog.Logger) *JSONL {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSONL{enc: enc, logger: logger}
}

// Emit writes the event's findings.
func (s *JSONL) Emit(ev scanner.Event) error {
	if ev.Err != nil {
		logFailure(s.logger, ev.Err)
		return nil
	}
	for _, f := range ev.Findings {
		if err := s.enc.Encode(NewRecord(f)); err != nil {
			return err
		}
	}
	return nil
}

// Close is a no-op; JSONL output is unbuffered.
func (s *JSONL) Close() error { return nil }
