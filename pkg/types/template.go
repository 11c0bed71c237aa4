package types

import (
	"crypto/sha1"
	"encoding/hex"
	"regexp"
)

// Template is a raw pattern record as parsed from a template file.
// It has not been compiled; see patternset.Build.
type Template struct {
	ID          string   `json:"id,omitempty"`
	Name        string   `json:"name"`
	Pattern     string   `json:"pattern"`
	Flags       []string `json:"flags,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
	Description string   `json:"description,omitempty"`
	References  []string `json:"references,omitempty"`

	// Examples must match Pattern; NegativeExamples must not.
	Examples         []string `json:"examples,omitempty"`
	NegativeExamples []string `json:"negative_examples,omitempty"`

	// Source is the file the record was read from ("" for records built in code).
	Source string `json:"source,omitempty"`
}

// namedGroupRe matches named capture groups like (?P<name>...) so that
// renaming a group does not change a pattern's structural ID.
var namedGroupRe = regexp.MustCompile(`\(\?P?<[^>]+>`)

// StructuralID is the SHA-1 of the pattern text with named groups made anonymous.
// It is stable across renames and is used as the SARIF rule ID when a template has no ID.
func (t *Template) StructuralID() string {
	normalized := namedGroupRe.ReplaceAllString(t.Pattern, "(")
	h := sha1.New()
	h.Write([]byte(normalized))
	return hex.EncodeToString(h.Sum(nil))
}

// RuleID returns the explicit ID or, failing that, the structural ID.
func (t *Template) RuleID() string {
	if t.ID != "" {
		return t.ID
	}
	return t.StructuralID()
}
