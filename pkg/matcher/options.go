package matcher

import "github.com/praetorian-inc/gosek/pkg/types"

// DefaultContextChars is the snippet width on each side of a match.
const DefaultContextChars = 80

// binarySniffLen is how much of a payload is checked for NUL bytes.
const binarySniffLen = 8 * 1024

// Options configures matching behavior
type Options struct {
	// MaxMatchesPerPattern caps findings per pattern per payload (0 = unlimited).
	MaxMatchesPerPattern int

	// ContextChars is the number of bytes of context captured on each side
	// of a match (0 = no context).
	ContextChars int
}

// DefaultOptions returns the default matching options
func DefaultOptions() Options {
	return Options{
		MaxMatchesPerPattern: 0,
		ContextChars:         DefaultContextChars,
	}
}

// WarningKind classifies a non-fatal matcher event.
type WarningKind int

const (
	// WarnLimit means a pattern hit MaxMatchesPerPattern.
	WarnLimit WarningKind = iota
	// WarnTimeout means a pattern exceeded its regex match timeout.
	WarnTimeout
	// WarnError means the regex engine returned some other error.
	WarnError
)

// String returns the string representation of WarningKind
func (k WarningKind) String() string {
	switch k {
	case WarnLimit:
		return "limit"
	case WarnTimeout:
		return "timeout"
	case WarnError:
		return "error"
	default:
		return "unknown"
	}
}

// Warning is recorded when a pattern's matches were cut short.
type Warning struct {
	Pattern string
	Kind    WarningKind
	Message string
}

func (w Warning) String() string {
	return w.Kind.String() + ": " + w.Pattern + ": " + w.Message
}

// Result contains the findings for one payload. Findings carry no target;
// the caller binds them.
type Result struct {
	Findings  []types.Finding
	Truncated bool
	Warnings  []Warning
}
