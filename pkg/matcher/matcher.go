// Package matcher runs a payload through a compiled pattern set and
// produces findings. It performs no I/O and never blocks.
package matcher

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/praetorian-inc/gosek/pkg/patternset"
	"github.com/praetorian-inc/gosek/pkg/types"
)

// IsBinary reports whether payload looks like binary data: a NUL byte in
// its first 8 KiB.
func IsBinary(payload []byte) bool {
	head := payload
	if len(head) > binarySniffLen {
		head = head[:binarySniffLen]
	}
	return bytes.IndexByte(head, 0) >= 0
}

// Match scans payload against every pattern in set, in set order, and
// returns all non-overlapping, non-empty matches left to right. The same
// payload and set always produce the same result.
func Match(payload []byte, set *patternset.PatternSet, opts Options) Result {
	var res Result
	if len(payload) == 0 || set == nil || set.Len() == 0 || IsBinary(payload) {
		return res
	}

	candidates := set.Candidates(payload)
	text := decodeRunes(payload)
	lines := types.NewLineIndex(payload)

	for i := 0; i < set.Len(); i++ {
		if candidates != nil && !candidates[i] {
			continue
		}
		matchPattern(&res, set.At(i), payload, text, lines, opts)
	}

	return res
}

func matchPattern(res *Result, p *patternset.Pattern, payload []byte, text runeText, lines *types.LineIndex, opts Options) {
	re := p.Regexp()
	groupNames := re.GetGroupNames()
	count := 0

	m, err := re.FindRunesMatch(text.runes)
	for m != nil {
		if m.Length > 0 {
			if opts.MaxMatchesPerPattern > 0 && count >= opts.MaxMatchesPerPattern {
				res.Truncated = true
				res.Warnings = append(res.Warnings, Warning{
					Pattern: p.Name,
					Kind:    WarnLimit,
					Message: fmt.Sprintf("stopped after %d matches", opts.MaxMatchesPerPattern),
				})
				return
			}

			start := text.byteOffset(m.Index)
			end := text.byteOffset(m.Index + m.Length)
			res.Findings = append(res.Findings, types.Finding{
				PatternName: p.Name,
				Pattern:     p.Source,
				MatchedText: string(payload[start:end]),
				Offset:      types.OffsetSpan{Start: start, End: end},
				Position:    lines.Position(start),
				Context:     ExtractContext(payload, start, end, opts.ContextChars),
				Groups:      extractNamedGroups(m, groupNames),
			})
			count++
		}
		m, err = re.FindNextMatch(m)
	}

	if err != nil {
		res.Truncated = true
		res.Warnings = append(res.Warnings, regexWarning(p.Name, err))
	}
}

func regexWarning(pattern string, err error) Warning {
	if strings.Contains(err.Error(), "match timeout") {
		return Warning{Pattern: pattern, Kind: WarnTimeout, Message: err.Error()}
	}
	return Warning{Pattern: pattern, Kind: WarnError, Message: (&types.MatchError{Pattern: pattern, Err: err}).Error()}
}
