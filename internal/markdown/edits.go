package markdown

import (
	"errors"
	"fmt"
	"sort"
)

// Edit is a byte-range replacement: source[Start:End] becomes Replacement.
// Offsets refer to the original source; End is exclusive.
type Edit struct {
	Start       int
	End         int
	Replacement []byte
}

// Replace builds an Edit from a string replacement.
func Replace(start, end int, replacement string) Edit {
	return Edit{Start: start, End: end, Replacement: []byte(replacement)}
}

// ApplyEdits applies non-overlapping edits to source and returns the result.
// Edits may be given in any order; source is not modified.
func ApplyEdits(source []byte, edits []Edit) ([]byte, error) {
	if len(edits) == 0 {
		return source, nil
	}

	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start == sorted[j].Start {
			return sorted[i].End < sorted[j].End
		}
		return sorted[i].Start < sorted[j].Start
	})

	size := len(source)
	for i, e := range sorted {
		if e.Start < 0 || e.End < e.Start || e.End > len(source) {
			return nil, fmt.Errorf("invalid edit[%d]: range [%d,%d) outside source of %d bytes", i, e.Start, e.End, len(source))
		}
		if i > 0 && e.Start < sorted[i-1].End {
			return nil, errors.New("invalid edits: overlapping ranges")
		}
		size += len(e.Replacement) - (e.End - e.Start)
	}

	out := make([]byte, 0, size)
	pos := 0
	for _, e := range sorted {
		out = append(out, source[pos:e.Start]...)
		out = append(out, e.Replacement...)
		pos = e.End
	}
	return append(out, source[pos:]...), nil
}
