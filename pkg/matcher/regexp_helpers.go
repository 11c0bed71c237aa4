package matcher

import (
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

// runeText is a payload decoded into runes for regexp2, with a table mapping
// rune indexes back to byte offsets in the original payload.
type runeText struct {
	runes   []rune
	offsets []int // offsets[i] = byte offset of runes[i]; nil when the payload is ASCII
	size    int
}

// decodeRunes decodes payload rune by rune. Invalid bytes each become one
// utf8.RuneError so offsets stay exact for malformed input.
func decodeRunes(payload []byte) runeText {
	ascii := true
	for _, b := range payload {
		if b >= utf8.RuneSelf {
			ascii = false
			break
		}
	}

	t := runeText{size: len(payload)}
	if ascii {
		t.runes = make([]rune, len(payload))
		for i, b := range payload {
			t.runes[i] = rune(b)
		}
		return t
	}

	t.runes = make([]rune, 0, len(payload))
	t.offsets = make([]int, 0, len(payload)+1)
	for i := 0; i < len(payload); {
		r, n := utf8.DecodeRune(payload[i:])
		t.runes = append(t.runes, r)
		t.offsets = append(t.offsets, i)
		i += n
	}
	t.offsets = append(t.offsets, len(payload))
	return t
}

// byteOffset converts a rune index into a byte offset.
func (t runeText) byteOffset(runeIdx int) int {
	if t.offsets == nil {
		return runeIdx
	}
	return t.offsets[runeIdx]
}

// extractNamedGroups extracts named capture groups from a regexp2 match.
func extractNamedGroups(match *regexp2.Match, groupNames []string) map[string]string {
	var named map[string]string
	for _, name := range groupNames {
		// Skip numbered groups (they show up as "0", "1", etc.)
		if name == "" || (name[0] >= '0' && name[0] <= '9') {
			continue
		}
		group := match.GroupByName(name)
		if group != nil && len(group.Captures) > 0 {
			if named == nil {
				named = make(map[string]string)
			}
			named[name] = group.Captures[0].String()
		}
	}
	return named
}
