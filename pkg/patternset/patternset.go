// Package patternset compiles template records into an immutable, ordered
// set of named regular expressions shared read-only by all scan workers.
package patternset

import (
	"errors"
	"fmt"
	"time"

	"github.com/dlclark/regexp2"
	"github.com/praetorian-inc/gosek/pkg/prefilter"
	"github.com/praetorian-inc/gosek/pkg/types"
)

// DefaultMatchTimeout bounds a single regex evaluation against one payload.
const DefaultMatchTimeout = 5 * time.Second

// Options controls compilation.
type Options struct {
	// MatchTimeout is installed on every compiled regex (0 = no timeout).
	MatchTimeout time.Duration
}

// DefaultOptions returns the options used by the CLI.
func DefaultOptions() Options {
	return Options{MatchTimeout: DefaultMatchTimeout}
}

// Pattern is one compiled detection pattern. Immutable once built.
type Pattern struct {
	Name     string
	Source   string // regex text as written in the template
	Flags    Flag
	Keywords []string
	Template types.Template

	re *regexp2.Regexp
}

// Regexp returns the compiled expression. regexp2 regexes are safe for
// concurrent use.
func (p *Pattern) Regexp() *regexp2.Regexp { return p.re }

// PatternSet is an ordered, name-unique collection of compiled patterns.
type PatternSet struct {
	patterns  []*Pattern
	byName    map[string]int
	prefilter *prefilter.Prefilter
}

// Build compiles records into a PatternSet. Records sharing a name are
// deduplicated: the last record wins and takes the position of the first.
// Any invalid record aborts the build with a *types.ConfigError.
func Build(records []types.Template, opts Options) (*PatternSet, error) {
	if len(records) == 0 {
		return nil, &types.ConfigError{Err: errors.New("no patterns to compile")}
	}

	set := &PatternSet{byName: make(map[string]int, len(records))}
	for i := range records {
		p, err := compile(records[i], opts)
		if err != nil {
			return nil, err
		}
		if pos, ok := set.byName[p.Name]; ok {
			set.patterns[pos] = p
			continue
		}
		set.byName[p.Name] = len(set.patterns)
		set.patterns = append(set.patterns, p)
	}

	keywords := make([][]string, len(set.patterns))
	for i, p := range set.patterns {
		keywords[i] = p.Keywords
	}
	set.prefilter = prefilter.New(keywords)

	return set, nil
}

// MustBuild is Build for statically known records; it panics on error.
func MustBuild(records []types.Template, opts Options) *PatternSet {
	set, err := Build(records, opts)
	if err != nil {
		panic(err)
	}
	return set
}

func compile(rec types.Template, opts Options) (*Pattern, error) {
	cfgErr := func(field string, err error) error {
		return &types.ConfigError{Template: rec.Name, Source: rec.Source, Field: field, Err: err}
	}

	if rec.Name == "" {
		return nil, cfgErr("name", fmt.Errorf("template with pattern %q has no name", rec.Pattern))
	}
	if rec.Pattern == "" {
		return nil, cfgErr("pattern", errors.New("pattern is empty"))
	}

	flags, err := ParseFlags(rec.Flags)
	if err != nil {
		return nil, cfgErr("flags", err)
	}

	// Try RE2 mode first (accepts (?P<name>...) groups), then fall back to
	// the default Perl-compatible syntax for lookarounds and backreferences.
	re, err := regexp2.Compile(rec.Pattern, flags.options()|regexp2.RE2)
	if err != nil {
		re, err = regexp2.Compile(rec.Pattern, flags.options())
		if err != nil {
			return nil, cfgErr("pattern", err)
		}
	}
	if opts.MatchTimeout > 0 {
		re.MatchTimeout = opts.MatchTimeout
	}

	return &Pattern{
		Name:     rec.Name,
		Source:   rec.Pattern,
		Flags:    flags,
		Keywords: append([]string(nil), rec.Keywords...),
		Template: rec,
		re:       re,
	}, nil
}

// Len returns the number of distinct patterns.
func (s *PatternSet) Len() int { return len(s.patterns) }

// At returns the pattern at position i.
func (s *PatternSet) At(i int) *Pattern { return s.patterns[i] }

// Patterns returns the patterns in set order. The slice is a copy; the
// patterns themselves are shared.
func (s *PatternSet) Patterns() []*Pattern {
	return append([]*Pattern(nil), s.patterns...)
}

// Get looks a pattern up by name.
func (s *PatternSet) Get(name string) (*Pattern, bool) {
	i, ok := s.byName[name]
	if !ok {
		return nil, false
	}
	return s.patterns[i], true
}

// Names returns pattern names in set order.
func (s *PatternSet) Names() []string {
	names := make([]string, len(s.patterns))
	for i, p := range s.patterns {
		names[i] = p.Name
	}
	return names
}

// Candidates reports which patterns could match content according to the
// keyword prefilter. A nil result means every pattern is a candidate.
func (s *PatternSet) Candidates(content []byte) []bool {
	if s.prefilter == nil {
		return nil
	}
	return s.prefilter.Candidates(content)
}

// Templates returns the winning template record of each pattern, in set order.
func (s *PatternSet) Templates() []types.Template {
	out := make([]types.Template, len(s.patterns))
	for i, p := range s.patterns {
		out[i] = p.Template
	}
	return out
}
