package render

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// newMarkdown builds a converter: CommonMark plus GFM tables, strikethrough,
// autolinks and task lists, with generated heading ids.
func newMarkdown(opts Options) goldmark.Markdown {
	var ro []renderer.Option
	if opts.UnsafeHTML {
		ro = append(ro, gmhtml.WithUnsafe())
	}
	if opts.HardWraps {
		ro = append(ro, gmhtml.WithHardWraps())
	}
	return goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(ro...),
	)
}

func convert(md goldmark.Markdown, src []byte) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert(src, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
