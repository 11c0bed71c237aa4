package types

// OffsetSpan is byte range [Start, End) - half-open interval.
type OffsetSpan struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// SourcePoint is line:column position (1-based).
type SourcePoint struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Finding is a single matched occurrence of a pattern within a target's content.
type Finding struct {
	Target      Target      `json:"target"`
	PatternName string      `json:"pattern_name"`
	Pattern     string      `json:"pattern"`
	MatchedText string      `json:"match"`
	Offset      OffsetSpan  `json:"offset"`
	Position    SourcePoint `json:"position"`
	Context     string      `json:"context,omitempty"`

	// Groups holds named capture groups of the match, if the pattern has any.
	Groups map[string]string `json:"groups,omitempty"`
}

// WithTarget returns a copy of f bound to t. The matcher produces findings
// without a target; the scanner binds them before emitting.
func (f Finding) WithTarget(t Target) Finding {
	f.Target = t
	return f
}
