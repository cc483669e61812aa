package markdown

import (
	"bytes"
	"sort"
	"strconv"
	"strings"
)

// TokenKind classifies a scanned token.
type TokenKind int

const (
	TokenShortcode TokenKind = iota + 1
	TokenLink
)

// Param is one shortcode argument. Positional arguments have an empty Name.
type Param struct {
	Name  string
	Value string
}

// Shortcode is a parsed {{< name args >}} / {{% name args %}} tag.
type Shortcode struct {
	Name        string
	Closing     bool // {{< /name >}}
	SelfClosing bool // {{< name />}}
	Escaped     bool // {{</* name */>}}; Literal holds the text to show
	Literal     string
	Params      []Param
}

// Arg returns the i-th positional argument.
func (s *Shortcode) Arg(i int) (string, bool) {
	n := 0
	for _, p := range s.Params {
		if p.Name != "" {
			continue
		}
		if n == i {
			return p.Value, true
		}
		n++
	}
	return "", false
}

// Named returns the value of a named argument.
func (s *Shortcode) Named(key string) (string, bool) {
	for _, p := range s.Params {
		if p.Name == key {
			return p.Value, true
		}
	}
	return "", false
}

// Link is an inline Markdown link or image, [text](dest "title").
type Link struct {
	Image     bool
	TextStart int
	TextEnd   int
	Dest      string
	DestStart int
	DestEnd   int
	// DestShortcode is set when the destination is a single shortcode,
	// e.g. [text]({{< relref "x" >}}).
	DestShortcode *Shortcode
	// Text holds the tokens inside the link text, e.g. [{{< relref "x" >}}](x.md).
	Text []Token
}

// Token is a directive or link found outside code.
type Token struct {
	Kind        TokenKind
	Start       int
	End         int
	Line        int  // 1-based line within the scanned body
	InAttribute bool // directly preceded by a quote, e.g. href="{{< relref "x" >}}"
	Shortcode   *Shortcode
	Link        *Link
}

// Scan tokenizes body into shortcodes and inline links, skipping code
// blocks and code spans. Tokens are returned in source order and never
// overlap; tokens inside a link's text hang off Link.Text.
func Scan(body []byte) []Token {
	s := &scanner{body: body, protected: CodeRanges(body), lines: newLineIndex(body)}
	return s.scan(0, len(body))
}

type scanner struct {
	body      []byte
	protected []Range
	lines     lineIndex
}

func (s *scanner) scan(start, end int) []Token {
	body := s.body
	var tokens []Token
	r := 0
	for i := start; i < end; {
		for r < len(s.protected) && s.protected[r].End <= i {
			r++
		}
		if r < len(s.protected) && s.protected[r].Contains(i) {
			i = s.protected[r].End
			continue
		}

		switch {
		case body[i] == '\\':
			i += 2
			continue
		case isShortcodeOpen(body, i):
			if sc, scEnd, ok := parseShortcode(body, i); ok && scEnd <= end {
				tokens = append(tokens, Token{
					Kind:        TokenShortcode,
					Start:       i,
					End:         scEnd,
					Line:        s.lines.lineOf(i),
					InAttribute: i > 0 && (body[i-1] == '"' || body[i-1] == '\''),
					Shortcode:   sc,
				})
				i = scEnd
				continue
			}
		case body[i] == '[' || (body[i] == '!' && i+1 < len(body) && body[i+1] == '['):
			if link, linkEnd, ok := parseLink(body, i); ok && linkEnd <= end {
				link.Text = s.scan(link.TextStart, link.TextEnd)
				tokens = append(tokens, Token{
					Kind:  TokenLink,
					Start: i,
					End:   linkEnd,
					Line:  s.lines.lineOf(i),
					Link:  link,
				})
				i = linkEnd
				continue
			}
		}
		i++
	}
	return tokens
}

func isShortcodeOpen(body []byte, i int) bool {
	return bytes.HasPrefix(body[i:], []byte("{{<")) || bytes.HasPrefix(body[i:], []byte("{{%"))
}

// parseShortcode parses the tag starting at body[i]. It returns the offset
// just past the closing delimiter.
func parseShortcode(body []byte, i int) (*Shortcode, int, bool) {
	delim := body[i+2] // '<' or '%'
	closeDelim := closerFor(delim)
	j := i + 3

	k := j
	for k < len(body) && isSpace(body[k]) {
		k++
	}
	if bytes.HasPrefix(body[k:], []byte("/*")) {
		return parseEscapedShortcode(body, k+2, delim)
	}

	var quote byte
	for p := j; p < len(body); p++ {
		c := body[p]
		if quote != 0 {
			if c == '\\' && quote == '"' {
				p++
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}
		switch {
		case c == '"' || c == '`':
			quote = c
		case bytes.HasPrefix(body[p:], closeDelim):
			sc, ok := parseShortcodeInner(string(body[j:p]))
			return sc, p + len(closeDelim), ok
		case bytes.HasPrefix(body[p:], []byte("{{")):
			return nil, 0, false
		}
	}
	return nil, 0, false
}

// closerFor returns the closing delimiter matching "{{<" or "{{%".
func closerFor(delim byte) []byte {
	if delim == '<' {
		return []byte(">}}")
	}
	return []byte{delim, '}', '}'}
}

func parseEscapedShortcode(body []byte, innerStart int, delim byte) (*Shortcode, int, bool) {
	closeDelim := closerFor(delim)
	for p := innerStart; p+1 < len(body); p++ {
		if body[p] != '*' || body[p+1] != '/' {
			continue
		}
		q := p + 2
		for q < len(body) && isSpace(body[q]) {
			q++
		}
		if !bytes.HasPrefix(body[q:], closeDelim) {
			continue
		}
		inner := string(body[innerStart:p])
		sc := &Shortcode{
			Escaped: true,
			Literal: "{{" + string(delim) + inner + string(closeDelim),
		}
		if fields := splitArgs(inner); len(fields) > 0 {
			sc.Name = strings.TrimPrefix(fields[0], "/")
		}
		return sc, q + len(closeDelim), true
	}
	return nil, 0, false
}

func parseShortcodeInner(inner string) (*Shortcode, bool) {
	inner = strings.TrimSpace(inner)
	sc := &Shortcode{}
	if rest, ok := strings.CutPrefix(inner, "/"); ok {
		sc.Closing = true
		sc.Name = strings.TrimSpace(rest)
		return sc, sc.Name != ""
	}
	if rest, ok := strings.CutSuffix(inner, "/"); ok {
		sc.SelfClosing = true
		inner = strings.TrimSpace(rest)
	}

	fields := splitArgs(inner)
	if len(fields) == 0 {
		return nil, false
	}
	sc.Name = fields[0]
	for _, f := range fields[1:] {
		if eq := strings.IndexByte(f, '='); eq > 0 && !isQuote(f[0]) {
			sc.Params = append(sc.Params, Param{Name: f[:eq], Value: unquote(f[eq+1:])})
			continue
		}
		sc.Params = append(sc.Params, Param{Value: unquote(f)})
	}
	return sc, true
}

// splitArgs splits on whitespace, keeping "double" and `raw` quoted runs together.
func splitArgs(s string) []string {
	var fields []string
	var cur strings.Builder
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			cur.WriteByte(c)
			if c == '\\' && quote == '"' && i+1 < len(s) {
				i++
				cur.WriteByte(s[i])
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}
		switch {
		case isQuote(c):
			quote = c
			cur.WriteByte(c)
		case isSpace(c):
			if cur.Len() > 0 {
				fields = append(fields, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteByte(c)
		}
	}
	if cur.Len() > 0 {
		fields = append(fields, cur.String())
	}
	return fields
}

func unquote(s string) string {
	if len(s) >= 2 {
		switch {
		case s[0] == '"' && s[len(s)-1] == '"':
			if u, err := strconv.Unquote(s); err == nil {
				return u
			}
			return s[1 : len(s)-1]
		case s[0] == '`' && s[len(s)-1] == '`':
			return s[1 : len(s)-1]
		}
	}
	return s
}

// parseLink parses an inline link or image starting at body[i] ('[' or '!').
func parseLink(body []byte, i int) (*Link, int, bool) {
	link := &Link{}
	open := i
	if body[i] == '!' {
		link.Image = true
		open++
	}
	textEnd, ok := findClosingBracket(body, open)
	if !ok || textEnd+1 >= len(body) || body[textEnd+1] != '(' {
		return nil, 0, false
	}
	link.TextStart = open + 1
	link.TextEnd = textEnd

	q := textEnd + 2
	for q < len(body) && (body[q] == ' ' || body[q] == '\t') {
		q++
	}
	if q >= len(body) {
		return nil, 0, false
	}

	switch {
	case isShortcodeOpen(body, q):
		sc, end, ok := parseShortcode(body, q)
		if !ok {
			return nil, 0, false
		}
		link.DestShortcode = sc
		link.DestStart, link.DestEnd = q, end
		q = end
	case body[q] == '<':
		end := bytes.IndexAny(body[q+1:], ">\n")
		if end < 0 || body[q+1+end] != '>' {
			return nil, 0, false
		}
		link.DestStart, link.DestEnd = q+1, q+1+end
		q = q + 2 + end
	default:
		end, ok := findDestinationEnd(body, q)
		if !ok {
			return nil, 0, false
		}
		link.DestStart, link.DestEnd = q, end
		q = end
	}
	link.Dest = string(body[link.DestStart:link.DestEnd])

	closeParen, ok := findClosingParen(body, q)
	if !ok {
		return nil, 0, false
	}
	return link, closeParen + 1, true
}

// findClosingBracket returns the offset of the ']' matching body[open].
// Links do not span blank lines.
func findClosingBracket(body []byte, open int) (int, bool) {
	depth := 0
	for p := open; p < len(body); p++ {
		switch body[p] {
		case '\\':
			p++
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return p, true
			}
		case '\n':
			if p+1 < len(body) && body[p+1] == '\n' {
				return 0, false
			}
		}
	}
	return 0, false
}

// findDestinationEnd scans a bare destination, balancing parentheses and
// stopping at whitespace.
func findDestinationEnd(body []byte, start int) (int, bool) {
	depth := 0
	p := start
	for p < len(body) {
		c := body[p]
		switch {
		case c == '\\':
			p += 2
			continue
		case c == '(':
			depth++
		case c == ')':
			if depth == 0 {
				return p, p > start
			}
			depth--
		case isSpace(c):
			return p, p > start
		}
		p++
	}
	return 0, false
}

// findClosingParen skips an optional link title and returns the offset of
// the ')' closing the destination part.
func findClosingParen(body []byte, p int) (int, bool) {
	for p < len(body) && isSpace(body[p]) {
		p++
	}
	if p < len(body) && (body[p] == '"' || body[p] == '\'' || body[p] == '(') {
		closer := body[p]
		if closer == '(' {
			closer = ')'
		}
		end := bytes.IndexByte(body[p+1:], closer)
		if end < 0 {
			return 0, false
		}
		p = p + 2 + end
		for p < len(body) && isSpace(body[p]) {
			p++
		}
	}
	if p < len(body) && body[p] == ')' {
		return p, true
	}
	return 0, false
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }
func isQuote(c byte) bool { return c == '"' || c == '`' }

type lineIndex []int

func newLineIndex(body []byte) lineIndex {
	idx := lineIndex{0}
	for i, c := range body {
		if c == '\n' {
			idx = append(idx, i+1)
		}
	}
	return idx
}

func (l lineIndex) lineOf(offset int) int {
	return sort.Search(len(l), func(i int) bool { return l[i] > offset })
}
