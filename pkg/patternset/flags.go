package patternset

import (
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"
)

// Flag is a match option a template may request.
type Flag uint8

const (
	FlagIgnoreCase Flag = 1 << iota
	FlagMultiline
	FlagDotAll
	FlagVerbose
)

var flagNames = map[string]Flag{
	"IGNORECASE":       FlagIgnoreCase,
	"CASE_INSENSITIVE": FlagIgnoreCase,
	"I":                FlagIgnoreCase,
	"MULTILINE":        FlagMultiline,
	"M":                FlagMultiline,
	"DOTALL":           FlagDotAll,
	"SINGLELINE":       FlagDotAll,
	"S":                FlagDotAll,
	"VERBOSE":          FlagVerbose,
	"EXTENDED":         FlagVerbose,
	"X":                FlagVerbose,
}

// ParseFlags maps template flag strings onto the closed Flag set.
// Unknown strings are an error rather than being ignored.
func ParseFlags(names []string) (Flag, error) {
	var f Flag
	for _, name := range names {
		bit, ok := flagNames[strings.ToUpper(strings.TrimSpace(name))]
		if !ok {
			return 0, fmt.Errorf("unknown flag %q", name)
		}
		f |= bit
	}
	return f, nil
}

// Has reports whether all bits of other are set.
func (f Flag) Has(other Flag) bool { return f&other == other }

// String lists the canonical names of the set flags.
func (f Flag) String() string {
	var parts []string
	for _, c := range []struct {
		bit  Flag
		name string
	}{
		{FlagIgnoreCase, "IGNORECASE"},
		{FlagMultiline, "MULTILINE"},
		{FlagDotAll, "DOTALL"},
		{FlagVerbose, "VERBOSE"},
	} {
		if f.Has(c.bit) {
			parts = append(parts, c.name)
		}
	}
	return strings.Join(parts, "|")
}

// options converts the flag set into regexp2 options. Multiline anchors are
// always enabled so ^ and $ work per line in multi-line payloads.
func (f Flag) options() regexp2.RegexOptions {
	var opts regexp2.RegexOptions = regexp2.Multiline
	if f.Has(FlagIgnoreCase) {
		opts |= regexp2.IgnoreCase
	}
	if f.Has(FlagDotAll) {
		opts |= regexp2.Singleline
	}
	if f.Has(FlagVerbose) {
		opts |= regexp2.IgnorePatternWhitespace
	}
	return opts
}
