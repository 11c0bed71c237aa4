package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TargetKind identifies how a target's content is obtained.
type TargetKind int

const (
	// KindURL targets are fetched with an HTTP GET.
	KindURL TargetKind = iota
	// KindFile targets are read from the local filesystem.
	KindFile
	// KindText targets carry their content inline.
	KindText
)

// String returns the lowercase name used in output ("url", "file", "text").
func (k TargetKind) String() string {
	switch k {
	case KindURL:
		return "url"
	case KindFile:
		return "file"
	case KindText:
		return "text"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MarshalJSON encodes the kind as its name.
func (k TargetKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// ParseTargetKind is the inverse of TargetKind.String.
func ParseTargetKind(s string) (TargetKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "url":
		return KindURL, nil
	case "file":
		return KindFile, nil
	case "text":
		return KindText, nil
	default:
		return 0, fmt.Errorf("unknown target kind %q", s)
	}
}

// Target is one unit of scan input.
type Target struct {
	Kind  TargetKind `json:"kind"`
	Value string     `json:"value"`
}

// URLTarget, FileTarget and TextTarget are shorthand constructors.
func URLTarget(u string) Target     { return Target{Kind: KindURL, Value: u} }
func FileTarget(path string) Target { return Target{Kind: KindFile, Value: path} }
func TextTarget(text string) Target { return Target{Kind: KindText, Value: text} }

// String renders the target as "kind:value". Text values are shortened so
// a long inline payload does not flood log lines.
func (t Target) String() string {
	v := t.Value
	if t.Kind == KindText && len(v) > 48 {
		v = v[:45] + "..."
	}
	return t.Kind.String() + ":" + v
}

// Label is the human-facing source name used in reports.
func (t Target) Label() string {
	if t.Kind == KindText {
		return "text"
	}
	return t.Value
}
