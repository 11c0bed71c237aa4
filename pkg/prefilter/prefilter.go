package prefilter

import (
	"bytes"
	"strings"

	"github.com/cloudflare/ahocorasick"
)

// Prefilter uses Aho-Corasick for efficient keyword matching.
// Keywords are compared case-insensitively, so a hit is a superset of what
// any pattern, case-sensitive or not, could need.
type Prefilter struct {
	matcher       *ahocorasick.Matcher
	keywords      []string // keyword at each index
	keywordOwners [][]int  // keyword index -> positions of patterns that declared it
	gated         []bool   // position -> pattern declared keywords
	size          int
}

// New creates a prefilter over n patterns. keywords[i] lists the keywords of
// pattern i; patterns with no keywords are always candidates.
// Returns nil when no pattern declares keywords.
func New(keywords [][]string) *Prefilter {
	pf := &Prefilter{
		gated: make([]bool, len(keywords)),
		size:  len(keywords),
	}

	index := make(map[string]int)
	for pos, kws := range keywords {
		for _, kw := range kws {
			kw = strings.ToLower(kw)
			if kw == "" {
				continue
			}
			pf.gated[pos] = true
			i, ok := index[kw]
			if !ok {
				i = len(pf.keywords)
				index[kw] = i
				pf.keywords = append(pf.keywords, kw)
				pf.keywordOwners = append(pf.keywordOwners, nil)
			}
			pf.keywordOwners[i] = append(pf.keywordOwners[i], pos)
		}
	}

	if len(pf.keywords) == 0 {
		return nil
	}
	pf.matcher = ahocorasick.NewStringMatcher(pf.keywords)
	return pf
}

// Candidates returns, per pattern position, whether the pattern might match content.
// Ungated patterns are always true.
func (pf *Prefilter) Candidates(content []byte) []bool {
	out := make([]bool, pf.size)
	for pos, gated := range pf.gated {
		out[pos] = !gated
	}

	for _, hit := range pf.matcher.MatchThreadSafe(bytes.ToLower(content)) {
		for _, pos := range pf.keywordOwners[hit] {
			out[pos] = true
		}
	}
	return out
}

// Keywords returns the distinct, lowercased keywords known to the prefilter.
func (pf *Prefilter) Keywords() []string {
	return append([]string(nil), pf.keywords...)
}
