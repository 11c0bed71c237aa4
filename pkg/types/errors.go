package types

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrCancelled marks a run that stopped early because its context was
// cancelled. It is a control signal, not a failure.
var ErrCancelled = errors.New("scan cancelled")

// ConfigError reports a template or configuration problem detected before
// any target is processed. It is always fatal to the run.
type ConfigError struct {
	Template string // offending template name, if known
	Source   string // template file, if known
	Field    string // offending field ("pattern", "flags", ...)
	Err      error
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("config error")
	if e.Template != "" {
		fmt.Fprintf(&b, ": template %q", e.Template)
	}
	if e.Source != "" {
		fmt.Fprintf(&b, " (%s)", e.Source)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, ": %s", e.Field)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ConfigError) Unwrap() error { return e.Err }

// FetchError is a failure to obtain a target's payload.
type FetchError struct {
	Target     Target
	StatusCode int  // last HTTP status, 0 when no response was received
	Attempts   int  // requests issued, 0 for non-network targets
	Temporary  bool // last failure was transient (retries exhausted)
	Err        error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("fetch %s", e.Target)
	if e.Attempts > 1 {
		msg += fmt.Sprintf(" (after %d attempts)", e.Attempts)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Err }

// Cancelled reports whether the fetch stopped because its context ended.
func (e *FetchError) Cancelled() bool {
	return errors.Is(e.Err, context.Canceled) || errors.Is(e.Err, ErrCancelled)
}

// ScanError is the per-target failure emitted to the sink in place of findings.
type ScanError struct {
	Target Target
	Cause  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan %s: %v", e.Target, e.Cause)
}

func (e *ScanError) Unwrap() error { return e.Cause }

// MatchError is a catastrophic matcher failure for one pattern.
type MatchError struct {
	Pattern string
	Err     error
}

func (e *MatchError) Error() string {
	return fmt.Sprintf("match pattern %q: %v", e.Pattern, e.Err)
}

func (e *MatchError) Unwrap() error { return e.Err }

// FetchResult is what the fetcher produces for one target.
type FetchResult struct {
	Target     Target
	Payload    []byte
	StatusCode int
	Attempts   int
	Err        *FetchError
}

// OK reports whether a payload was produced.
func (r FetchResult) OK() bool { return r.Err == nil }
