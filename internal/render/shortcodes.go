package render

import (
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"

	"git.home.luguber.info/inful/bookbuilder/internal/docs"
	"git.home.luguber.info/inful/bookbuilder/internal/markdown"
	"git.home.luguber.info/inful/bookbuilder/internal/xref"
)

// Directives are swapped for placeholder tokens before Markdown conversion
// and the placeholders are replaced with HTML afterwards, so goldmark never
// sees shortcode syntax. The token prefix is chosen per page so that it never
// occurs in the source text.
const placeholderStem = "BOOKPH"

func placeholderPrefix(body []byte) string {
	prefix := placeholderStem
	for n := 0; bytes.Contains(body, []byte(prefix)); n++ {
		prefix = fmt.Sprintf("%s%dN", placeholderStem, n)
	}
	return prefix
}

const columnSeparator = "<--->"

// BrokenURL is substituted for broken references inside HTML attributes.
const BrokenURL = "#broken-ref"

type placeholder struct {
	html  string
	block bool
}

// pageRenderer expands the directives of one document body.
type pageRenderer struct {
	doc      *docs.Document
	body     []byte
	table    *xref.Table
	md       goldmark.Markdown
	code     []markdown.Range
	holders  []placeholder
	warnings []Warning

	prefix       string
	blockPattern *regexp.Regexp
	anyPattern   *regexp.Regexp
}

func newPageRenderer(doc *docs.Document, table *xref.Table, md goldmark.Markdown) *pageRenderer {
	prefix := placeholderPrefix(doc.Body)
	quoted := regexp.QuoteMeta(prefix)
	return &pageRenderer{
		doc:          doc,
		body:         doc.Body,
		table:        table,
		md:           md,
		code:         markdown.CodeRanges(doc.Body),
		prefix:       prefix,
		blockPattern: regexp.MustCompile(`<p>` + quoted + `\d{6}X</p>\n?`),
		anyPattern:   regexp.MustCompile(quoted + `\d{6}X`),
	}
}

// render converts the whole body to HTML.
func (p *pageRenderer) render() (string, error) {
	src := p.expand(0, len(p.body), markdown.Scan(p.body))
	return p.toHTML(src)
}

func (p *pageRenderer) toHTML(src []byte) (string, error) {
	out, err := convert(p.md, src)
	if err != nil {
		return "", err
	}
	return p.substitute(out), nil
}

func (p *pageRenderer) hold(htmlText string, block bool) string {
	p.holders = append(p.holders, placeholder{html: htmlText, block: block})
	return fmt.Sprintf("%s%06dX", p.prefix, len(p.holders)-1)
}

func (p *pageRenderer) lookupHolder(token string) (placeholder, bool) {
	idx, err := strconv.Atoi(token[len(p.prefix) : len(token)-1])
	if err != nil || idx < 0 || idx >= len(p.holders) {
		return placeholder{}, false
	}
	return p.holders[idx], true
}

func (p *pageRenderer) substitute(out string) string {
	out = p.blockPattern.ReplaceAllStringFunc(out, func(m string) string {
		h, ok := p.lookupHolder(p.anyPattern.FindString(m))
		if !ok || !h.block {
			return m
		}
		return h.html + "\n"
	})
	return p.anyPattern.ReplaceAllStringFunc(out, func(m string) string {
		if h, ok := p.lookupHolder(m); ok {
			return h.html
		}
		return m
	})
}

func (p *pageRenderer) warn(kind WarningKind, tok markdown.Token, name, msg string) {
	p.warnings = append(p.warnings, Warning{
		Kind:       kind,
		SourceID:   p.doc.ID,
		SourcePath: p.doc.Path,
		Line:       tok.Line + p.doc.BodyLine - 1,
		Shortcode:  name,
		Message:    msg,
	})
}

// expand rewrites body[start:end] into Markdown with placeholders. toks are
// the scanned tokens inside that range.
func (p *pageRenderer) expand(start, end int, toks []markdown.Token) []byte {
	var out bytes.Buffer
	// markers are visible warnings for broken references inside HTML
	// attributes; each goes right after the tag holding the attribute.
	var markers []marker
	copyBody := func(from, to int) {
		for len(markers) > 0 && markers[0].at <= to {
			m := markers[0]
			markers = markers[1:]
			if m.at > from {
				out.Write(p.body[from:m.at])
				from = m.at
			}
			out.WriteString(m.html)
		}
		out.Write(p.body[from:to])
	}

	pos := start
	for i := 0; i < len(toks); i++ {
		tok := toks[i]
		copyBody(pos, tok.Start)
		pos = tok.End

		if tok.Kind == markdown.TokenLink {
			out.Write(p.link(tok))
			continue
		}

		sc := tok.Shortcode
		switch {
		case sc.Escaped:
			out.WriteString(p.hold(html.EscapeString(sc.Literal), false))
		case sc.Closing:
			p.warn(WarnUnclosedShortcode, tok, sc.Name, fmt.Sprintf("closing tag {{< /%s >}} has no opening tag", sc.Name))
		case xref.IsRefShortcode(sc.Name):
			out.WriteString(p.reference(tok))
			if tok.InAttribute {
				if _, broken := p.table.Lookup(p.doc.ID, tok.Start); broken != nil {
					markers = append(markers, marker{
						at:   tagEnd(p.body, toks[i+1:], tok.End, end),
						html: p.hold(brokenSpan(broken)+"</span>", false),
					})
				}
			}
		case sc.Name == "button" || isBlockShortcode(sc.Name):
			j := -1
			if !sc.SelfClosing {
				j = matchClose(toks, i)
				if j < 0 {
					p.warn(WarnUnclosedShortcode, tok, sc.Name, fmt.Sprintf("shortcode %q is never closed", sc.Name))
				}
			}
			var inner []byte
			if j >= 0 {
				// columns expands each column itself
				if sc.Name != "columns" {
					inner = p.expand(tok.End, toks[j].Start, toks[i+1:j])
				}
				pos = toks[j].End
			}
			if sc.Name == "button" {
				out.WriteString(p.button(tok, inner))
			} else {
				out.WriteString("\n\n" + p.block(toks, i, j, inner) + "\n\n")
			}
			if j >= 0 {
				i = j
			}
		default:
			p.warn(WarnUnknownShortcode, tok, sc.Name, fmt.Sprintf("unknown shortcode %q; content kept without it", sc.Name))
			if sc.SelfClosing {
				continue
			}
			if j := matchClose(toks, i); j >= 0 {
				out.Write(p.expand(tok.End, toks[j].Start, toks[i+1:j]))
				pos = toks[j].End
				i = j
			}
		}
	}
	copyBody(pos, end)
	return out.Bytes()
}

type marker struct {
	at   int
	html string
}

// tagEnd returns the offset just past the first '>' at or after from that is
// not part of a later token, or limit when the tag does not close in range.
func tagEnd(body []byte, rest []markdown.Token, from, limit int) int {
	k := 0
	for i := from; i < limit; i++ {
		for k < len(rest) && rest[k].End <= i {
			k++
		}
		if k < len(rest) && rest[k].Start <= i {
			i = rest[k].End - 1
			continue
		}
		if body[i] == '>' {
			return i + 1
		}
	}
	return limit
}

func isBlockShortcode(name string) bool {
	switch name {
	case "columns", "hint", "details", "tabs", "tab":
		return true
	}
	return false
}

// matchClose returns the index of the tag closing toks[i], or -1.
func matchClose(toks []markdown.Token, i int) int {
	name := toks[i].Shortcode.Name
	depth := 0
	for j := i + 1; j < len(toks); j++ {
		sc := toks[j].Shortcode
		if toks[j].Kind != markdown.TokenShortcode || sc.Escaped || sc.Name != name {
			continue
		}
		switch {
		case sc.Closing && depth == 0:
			return j
		case sc.Closing:
			depth--
		case !sc.SelfClosing:
			depth++
		}
	}
	return -1
}

func brokenSpan(b *xref.BrokenReference) string {
	return fmt.Sprintf(`<span class="broken-ref" title="broken reference: %s">⚠ `, html.EscapeString(b.Message()))
}

// reference substitutes a bare relref/ref.
func (p *pageRenderer) reference(tok markdown.Token) string {
	ref, broken := p.table.Lookup(p.doc.ID, tok.Start)
	switch {
	case ref != nil:
		return ref.URL
	case tok.InAttribute:
		return BrokenURL
	case broken != nil:
		return p.hold(brokenSpan(broken)+html.EscapeString(broken.Ref)+"</span>", false)
	default:
		return p.hold(`<span class="broken-ref">⚠</span>`, false)
	}
}

// link rewrites a Markdown link whose destination is a reference and
// expands directives inside its text.
func (p *pageRenderer) link(tok markdown.Token) []byte {
	raw := p.body[tok.Start:tok.End]
	l := tok.Link
	text := p.body[l.TextStart:l.TextEnd]
	if len(l.Text) > 0 {
		text = p.expand(l.TextStart, l.TextEnd, l.Text)
	}
	textEdit := markdown.Replace(l.TextStart-tok.Start, l.TextEnd-tok.Start, string(text))

	edits := []markdown.Edit{textEdit}
	ref, broken := p.table.Lookup(p.doc.ID, tok.Start)
	switch {
	case ref != nil:
		edits = append(edits, markdown.Replace(l.DestStart-tok.Start, l.DestEnd-tok.Start, ref.URL))
	case broken != nil:
		var out []byte
		out = append(out, p.hold(brokenSpan(broken), false)...)
		out = append(out, text...)
		return append(out, p.hold("</span>", false)...)
	case l.DestShortcode != nil:
		p.warn(WarnUnknownShortcode, tok, l.DestShortcode.Name, fmt.Sprintf("unknown shortcode %q in link destination; link text kept", l.DestShortcode.Name))
		return text
	case len(l.Text) == 0:
		return raw
	}
	out, err := markdown.ApplyEdits(raw, edits)
	if err != nil {
		return raw
	}
	return out
}

func (p *pageRenderer) button(tok markdown.Token, inner []byte) string {
	sc := tok.Shortcode
	class := "book-btn"
	href, _ := sc.Named("href")
	ref, broken := p.table.Lookup(p.doc.ID, tok.Start)
	switch {
	case ref != nil:
		href = ref.URL
	case broken != nil:
		href = BrokenURL
		class += " broken-ref"
	case href == "":
		href = "#"
	}

	label := html.EscapeString(href)
	if len(bytes.TrimSpace(inner)) > 0 {
		if rendered, err := p.toHTML(inner); err == nil {
			label = stripParagraph(rendered)
		}
	}
	if broken != nil {
		label = "⚠ " + label
	}
	return p.hold(fmt.Sprintf(`<a class="%s" href="%s">%s</a>`, class, html.EscapeString(href), label), false)
}

// stripParagraph unwraps a single rendered paragraph for inline use.
func stripParagraph(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "<p>") && strings.HasSuffix(s, "</p>") && strings.Count(s, "<p>") == 1 {
		return s[len("<p>") : len(s)-len("</p>")]
	}
	return s
}

// block renders the container shortcode opened by toks[i] and closed by
// toks[j]; j is -1 for an unclosed or self-closing tag.
func (p *pageRenderer) block(toks []markdown.Token, i, j int, inner []byte) string {
	sc := toks[i].Shortcode
	var content string
	var err error
	if sc.Name == "columns" {
		content, err = p.columns(toks, i, j)
	} else {
		content, err = p.toHTML(inner)
	}
	if err != nil {
		content = "<pre>" + html.EscapeString(string(inner)) + "</pre>"
	}

	var h string
	switch sc.Name {
	case "columns":
		h = `<div class="book-columns">` + content + `</div>`
	case "hint":
		kind, _ := sc.Arg(0)
		h = fmt.Sprintf(`<blockquote class="book-hint %s">`+"\n%s</blockquote>", hintKind(kind), content)
	case "details":
		h = fmt.Sprintf(`<details class="book-details"%s><summary>%s</summary>`+"\n%s</details>",
			openAttr(sc), html.EscapeString(detailsTitle(sc)), content)
	case "tabs":
		h = `<div class="book-tabs">` + "\n" + content + `</div>`
	case "tab":
		title, ok := sc.Arg(0)
		if !ok {
			title, _ = sc.Named("title")
		}
		h = fmt.Sprintf(`<section class="book-tab"><h4 class="book-tab-title">%s</h4>`+"\n%s</section>", html.EscapeString(title), content)
	}
	return p.hold(h, true)
}

// columns splits the content of a columns shortcode on separator lines that
// are neither in code nor inside a nested shortcode.
func (p *pageRenderer) columns(toks []markdown.Token, i, j int) (string, error) {
	if j < 0 {
		return "", nil
	}
	start, end := toks[i].End, toks[j].Start
	inner := toks[i+1 : j]

	var nested []markdown.Range
	for k := 0; k < len(inner); k++ {
		if inner[k].Kind != markdown.TokenShortcode || inner[k].Shortcode.Closing || inner[k].Shortcode.SelfClosing {
			continue
		}
		if m := matchClose(inner, k); m >= 0 {
			nested = append(nested, markdown.Range{Start: inner[k].Start, End: inner[m].End})
			k = m
		}
	}

	var cuts [][2]int // [separator start, separator end)
	lineStart := start
	for lineStart < end {
		lineEnd := bytes.IndexByte(p.body[lineStart:end], '\n')
		next := end
		if lineEnd >= 0 {
			next = lineStart + lineEnd + 1
			lineEnd += lineStart
		} else {
			lineEnd = end
		}
		if strings.TrimSpace(string(p.body[lineStart:lineEnd])) == columnSeparator &&
			!inRanges(p.code, lineStart) && !inRanges(nested, lineStart) {
			cuts = append(cuts, [2]int{lineStart, next})
		}
		lineStart = next
	}

	var out strings.Builder
	segStart := start
	for n := 0; n <= len(cuts); n++ {
		segEnd := end
		if n < len(cuts) {
			segEnd = cuts[n][0]
		}
		var segToks []markdown.Token
		for _, t := range inner {
			if t.Start >= segStart && t.End <= segEnd {
				segToks = append(segToks, t)
			}
		}
		rendered, err := p.toHTML(p.expand(segStart, segEnd, segToks))
		if err != nil {
			return "", err
		}
		out.WriteString(`<div class="book-column">` + "\n" + rendered + "</div>")
		if n < len(cuts) {
			segStart = cuts[n][1]
		}
	}
	return out.String(), nil
}

func inRanges(ranges []markdown.Range, offset int) bool {
	for _, r := range ranges {
		if r.Contains(offset) {
			return true
		}
	}
	return false
}

func hintKind(kind string) string {
	switch kind {
	case "info", "warning", "danger", "tip", "note":
		return kind
	}
	return "info"
}

func detailsTitle(sc *markdown.Shortcode) string {
	if title, ok := sc.Named("title"); ok {
		return title
	}
	if title, ok := sc.Arg(0); ok {
		return title
	}
	return "Details"
}

func openAttr(sc *markdown.Shortcode) string {
	if v, ok := sc.Named("open"); ok && v == "true" {
		return " open"
	}
	if v, ok := sc.Arg(1); ok && v == "open" {
		return " open"
	}
	return ""
}
