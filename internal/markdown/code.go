package markdown

import (
	"bytes"
	"sort"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// Range is a half-open byte range [Start, End) into a Markdown body.
type Range struct {
	Start int
	End   int
}

// Contains reports whether offset lies inside r.
func (r Range) Contains(offset int) bool { return offset >= r.Start && offset < r.End }

// CodeRanges returns the byte ranges of fenced code blocks (fence lines
// included), indented code blocks and code spans, sorted and merged.
// Directives inside these ranges are content, not directives.
func CodeRanges(body []byte) []Range {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	root := md.Parser().Parse(text.NewReader(body))

	var ranges []Range
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *gmast.FencedCodeBlock:
			if r, ok := fencedRange(body, node); ok {
				ranges = append(ranges, r)
			}
			return gmast.WalkSkipChildren, nil
		case *gmast.CodeBlock:
			if lines := node.Lines(); lines.Len() > 0 {
				ranges = append(ranges, Range{Start: lines.At(0).Start, End: lines.At(lines.Len() - 1).Stop})
			}
			return gmast.WalkSkipChildren, nil
		case *gmast.CodeSpan:
			start, stop := -1, -1
			for c := node.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*gmast.Text); ok {
					if start < 0 {
						start = t.Segment.Start
					}
					stop = t.Segment.Stop
				}
			}
			if start >= 0 {
				ranges = append(ranges, Range{Start: start, End: stop})
			}
			return gmast.WalkSkipChildren, nil
		}
		return gmast.WalkContinue, nil
	})
	return mergeRanges(ranges)
}

// fencedRange covers the opening fence line through the closing fence line.
// Goldmark only records content lines and the info string, so the fence lines
// are recovered from the surrounding newlines.
func fencedRange(body []byte, node *gmast.FencedCodeBlock) (Range, bool) {
	start, end := -1, -1
	if node.Info != nil {
		start = lineStart(body, node.Info.Segment.Start)
		end = lineEnd(body, node.Info.Segment.Stop)
	}
	if lines := node.Lines(); lines.Len() > 0 {
		first := lines.At(0).Start
		if first > 0 {
			open := lineStart(body, first-1)
			if start < 0 || open < start {
				start = open
			}
		} else if start < 0 {
			start = 0
		}
		end = lineEnd(body, lines.At(lines.Len()-1).Stop)
	}
	if start < 0 || end <= start {
		return Range{}, false
	}
	return Range{Start: start, End: end}, true
}

// lineStart returns the offset of the first byte of the line holding offset.
func lineStart(body []byte, offset int) int {
	if offset > len(body) {
		offset = len(body)
	}
	return bytes.LastIndexByte(body[:offset], '\n') + 1
}

// lineEnd returns the offset just past the newline ending the line that
// starts at or contains offset, or len(body).
func lineEnd(body []byte, offset int) int {
	if offset >= len(body) {
		return len(body)
	}
	if i := bytes.IndexByte(body[offset:], '\n'); i >= 0 {
		return offset + i + 1
	}
	return len(body)
}

func mergeRanges(ranges []Range) []Range {
	if len(ranges) == 0 {
		return nil
	}
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Start < ranges[j].Start })
	out := []Range{ranges[0]}
	for _, r := range ranges[1:] {
		last := &out[len(out)-1]
		if r.Start <= last.End {
			if r.End > last.End {
				last.End = r.End
			}
			continue
		}
		out = append(out, r)
	}
	return out
}
