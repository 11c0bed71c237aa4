// Package scanner runs targets through fetch and match on a bounded worker
// pool and serializes the results towards a single sink.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/praetorian-inc/gosek/pkg/fetch"
	"github.com/praetorian-inc/gosek/pkg/matcher"
	"github.com/praetorian-inc/gosek/pkg/patternset"
	"github.com/praetorian-inc/gosek/pkg/source"
	"github.com/praetorian-inc/gosek/pkg/types"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultConcurrency is the worker count when none is configured.
	DefaultConcurrency = 10
	// MaxConcurrency is the ceiling; larger values are clamped.
	MaxConcurrency = 256
)

// Config for a scanner.
type Config struct {
	Concurrency int
	Fetch       fetch.Config
	Match       matcher.Options
}

// DefaultConfig returns the default scanner configuration.
func DefaultConfig() Config {
	return Config{
		Concurrency: DefaultConcurrency,
		Fetch:       fetch.DefaultConfig(),
		Match:       matcher.DefaultOptions(),
	}
}

// Scanner runs scans against one compiled pattern set. A Scanner may run
// several scans, sequentially or concurrently; each run owns its fetcher.
type Scanner struct {
	set    *patternset.PatternSet
	cfg    Config
	logger zerolog.Logger
}

// New creates a Scanner. The pattern set is shared read-only by all workers.
func New(set *patternset.PatternSet, cfg Config, logger zerolog.Logger) (*Scanner, error) {
	if set == nil || set.Len() == 0 {
		return nil, &types.ConfigError{Err: errors.New("scanner needs at least one pattern")}
	}
	if cfg.Concurrency < 1 {
		return nil, &types.ConfigError{Field: "concurrency", Err: fmt.Errorf("must be >= 1, got %d", cfg.Concurrency)}
	}

	logger = logger.With().Str("component", "scanner").Logger()
	if cfg.Concurrency > MaxConcurrency {
		logger.Warn().
			Int("requested", cfg.Concurrency).
			Int("max", MaxConcurrency).
			Msg("Concurrency clamped")
		cfg.Concurrency = MaxConcurrency
	}

	return &Scanner{set: set, cfg: cfg, logger: logger}, nil
}

// Concurrency returns the effective worker count.
func (s *Scanner) Concurrency() int { return s.cfg.Concurrency }

// MatchOptions returns the matcher options applied to every payload.
func (s *Scanner) MatchOptions() matcher.Options { return s.cfg.Match }

// PatternSet returns the compiled patterns this scanner matches against.
func (s *Scanner) PatternSet() *patternset.PatternSet { return s.set }

// Run scans every target src yields and emits one event per target to
// sink. Parent cancellation is not an error: the summary is returned with
// Cancelled set. A sink error cancels the run and is returned. A source
// error is returned after in-flight targets finish.
func (s *Scanner) Run(ctx context.Context, src source.Source, sink Sink) (*Summary, error) {
	start := time.Now()

	fetcher, err := fetch.New(s.cfg.Fetch, s.logger)
	if err != nil {
		return nil, err
	}
	defer fetcher.Close()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	targets := make(chan types.Target)
	events := make(chan Event, s.cfg.Concurrency)
	srcDone := make(chan error, 1)

	// The producer is not part of the worker group: a source blocked in a
	// read (stdin) must not hold up a cancelled run.
	go func() {
		defer close(targets)
		srcDone <- src.Enumerate(runCtx, func(t types.Target) error {
			select {
			case targets <- t:
				return nil
			case <-runCtx.Done():
				return runCtx.Err()
			}
		})
	}()

	var workers errgroup.Group
	for i := 0; i < s.cfg.Concurrency; i++ {
		workers.Go(func() error {
			s.work(runCtx, fetcher, targets, events)
			return nil
		})
	}
	go func() {
		_ = workers.Wait()
		close(events)
	}()

	summary := &Summary{}
	var sinkErr error
	for ev := range events {
		if sinkErr != nil {
			continue
		}
		summary.add(ev)
		if err := sink.Emit(ev); err != nil {
			sinkErr = err
			cancel()
		}
	}
	summary.Duration = time.Since(start)

	var srcErr error
	select {
	case srcErr = <-srcDone:
	default:
	}

	switch {
	case sinkErr != nil:
		return summary, fmt.Errorf("result sink: %w", sinkErr)
	case ctx.Err() != nil:
		summary.Cancelled = true
		s.logger.Debug().Int("targets", summary.Targets).Msg("Scan cancelled")
		return summary, nil
	case srcErr != nil:
		return summary, fmt.Errorf("target source: %w", srcErr)
	}

	s.logger.Debug().
		Int("targets", summary.Targets).
		Int("findings", summary.Findings).
		Int("errors", summary.Errors).
		Dur("duration", summary.Duration).
		Msg("Scan complete")
	return summary, nil
}

// work pulls targets until the channel closes or the run is cancelled.
func (s *Scanner) work(ctx context.Context, fetcher *fetch.Fetcher, targets <-chan types.Target, events chan<- Event) {
	for {
		var t types.Target
		var ok bool
		select {
		case <-ctx.Done():
			return
		case t, ok = <-targets:
			if !ok {
				return
			}
		}

		ev, ok := s.scanOne(ctx, fetcher, t)
		if !ok {
			continue
		}
		events <- ev
	}
}

// scanOne fetches and matches a single target. It reports false when the
// target was abandoned because the run was cancelled.
func (s *Scanner) scanOne(ctx context.Context, fetcher *fetch.Fetcher, t types.Target) (Event, bool) {
	if ctx.Err() != nil {
		return Event{}, false
	}

	res := fetcher.Fetch(ctx, t)
	if res.Err != nil {
		if res.Err.Cancelled() || ctx.Err() != nil {
			return Event{}, false
		}
		s.logger.Debug().Err(res.Err).Str("target", t.String()).Msg("Target failed")
		return Event{Target: t, Err: &types.ScanError{Target: t, Cause: res.Err}}, true
	}

	mr := matcher.Match(res.Payload, s.set, s.cfg.Match)
	for _, w := range mr.Warnings {
		s.logger.Warn().
			Str("target", t.String()).
			Str("pattern", w.Pattern).
			Str("kind", w.Kind.String()).
			Msg(w.Message)
	}

	findings := make([]types.Finding, len(mr.Findings))
	for i, f := range mr.Findings {
		findings[i] = f.WithTarget(t)
	}
	return Event{
		Target:    t,
		Findings:  findings,
		Truncated: mr.Truncated,
		Warnings:  mr.Warnings,
	}, true
}
