package matcher

import (
	"strings"
	"unicode/utf8"
)

// ExtractContext returns up to chars bytes on each side of [start, end),
// including the match itself. The window is shrunk to UTF-8 boundaries,
// line breaks and tabs become spaces, and the result is trimmed.
// The returned string is a copy and does not pin content in memory.
func ExtractContext(content []byte, start, end, chars int) string {
	if chars <= 0 {
		return ""
	}
	if start < 0 || end > len(content) || start > end {
		return ""
	}

	lo := start - chars
	if lo < 0 {
		lo = 0
	}
	hi := end + chars
	if hi > len(content) {
		hi = len(content)
	}

	// Never start or stop in the middle of a multi-byte sequence.
	for lo < start && !utf8.RuneStart(content[lo]) {
		lo++
	}
	for hi > end && hi < len(content) && !utf8.RuneStart(content[hi]) {
		hi--
	}

	snippet := strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', '\t':
			return ' '
		}
		return r
	}, strings.ToValidUTF8(string(content[lo:hi]), string(utf8.RuneError)))

	return strings.TrimSpace(snippet)
}
