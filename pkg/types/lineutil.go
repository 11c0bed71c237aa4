package types

import "bytes"

// ComputeLineColumn computes line and column numbers from a byte offset in content.
// Lines and columns are 1-indexed (first line is 1, first column is 1).
// Columns count bytes, not runes.
func ComputeLineColumn(content []byte, byteOffset int) (line, column int) {
	if byteOffset > len(content) {
		byteOffset = len(content)
	}
	if byteOffset < 0 {
		byteOffset = 0
	}
	head := content[:byteOffset]
	line = bytes.Count(head, []byte{'\n'}) + 1
	column = byteOffset - (bytes.LastIndexByte(head, '\n') + 1) + 1
	return line, column
}

// LineIndex answers repeated line/column queries against one payload
// without rescanning from the start each time.
type LineIndex struct {
	starts []int // byte offset at which each line begins
}

// NewLineIndex records the start offset of every line in content.
func NewLineIndex(content []byte) *LineIndex {
	starts := []int{0}
	for i, b := range content {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{starts: starts}
}

// Position returns the 1-based line and column of byteOffset.
func (li *LineIndex) Position(byteOffset int) SourcePoint {
	lo, hi := 0, len(li.starts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if li.starts[mid] <= byteOffset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return SourcePoint{Line: lo + 1, Column: byteOffset - li.starts[lo] + 1}
}
