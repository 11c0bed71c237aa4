package scanner

import (
	"sync"
	"time"

	"github.com/praetorian-inc/gosek/pkg/matcher"
	"github.com/praetorian-inc/gosek/pkg/types"
)

// Event is the outcome of scanning one target. Exactly one of Findings
// (possibly empty) or Err is meaningful.
type Event struct {
	Target    types.Target
	Findings  []types.Finding
	Err       *types.ScanError
	Truncated bool
	Warnings  []matcher.Warning
}

// Sink receives events. Emit is never called concurrently within one run.
// Returning an error cancels the run.
type Sink interface {
	Emit(Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event) error

// Emit calls f.
func (f SinkFunc) Emit(ev Event) error { return f(ev) }

// Summary describes a finished run. Counts cover events delivered to the sink.
type Summary struct {
	Targets   int           `json:"targets"`
	Findings  int           `json:"findings"`
	Errors    int           `json:"errors"`
	Truncated int           `json:"truncated"`
	Cancelled bool          `json:"cancelled"`
	Duration  time.Duration `json:"duration"`
}

func (s *Summary) add(ev Event) {
	s.Targets++
	s.Findings += len(ev.Findings)
	if ev.Err != nil {
		s.Errors++
	}
	if ev.Truncated {
		s.Truncated++
	}
}

// CollectSink records every event in arrival order.
type CollectSink struct {
	mu     sync.Mutex
	events []Event
}

// Emit appends ev.
func (c *CollectSink) Emit(ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

// Events returns a copy of the recorded events.
func (c *CollectSink) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

// Findings returns every recorded finding in arrival order.
func (c *CollectSink) Findings() []types.Finding {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []types.Finding
	for _, ev := range c.events {
		out = append(out, ev.Findings...)
	}
	return out
}

// Errors returns every recorded per-target error in arrival order.
func (c *CollectSink) Errors() []*types.ScanError {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*types.ScanError
	for _, ev := range c.events {
		if ev.Err != nil {
			out = append(out, ev.Err)
		}
	}
	return out
}
