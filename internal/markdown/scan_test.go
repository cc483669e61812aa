package markdown

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func shortcodes(tokens []Token) []*Shortcode {
	var out []*Shortcode
	for _, tok := range tokens {
		if tok.Kind == TokenShortcode {
			out = append(out, tok.Shortcode)
		}
	}
	return out
}

func TestScan_BareRelref(t *testing.T) {
	body := []byte("Intro\n\nSee {{< relref \"docs/chapter-01\" >}} now.\n")

	tokens := Scan(body)
	require.Len(t, tokens, 1)
	tok := tokens[0]
	require.Equal(t, TokenShortcode, tok.Kind)
	require.Equal(t, 3, tok.Line)
	require.Equal(t, `{{< relref "docs/chapter-01" >}}`, string(body[tok.Start:tok.End]))
	require.Equal(t, "relref", tok.Shortcode.Name)
	arg, ok := tok.Shortcode.Arg(0)
	require.True(t, ok)
	require.Equal(t, "docs/chapter-01", arg)
}

func TestScan_LinkWithShortcodeDestination(t *testing.T) {
	body := []byte(`Read [the basics]({{< relref "/docs/chapter-01#setup" >}}) first.`)

	tokens := Scan(body)
	require.Len(t, tokens, 1)
	link := tokens[0].Link
	require.NotNil(t, link)
	require.Equal(t, "the basics", string(body[link.TextStart:link.TextEnd]))
	require.NotNil(t, link.DestShortcode)
	require.Equal(t, "relref", link.DestShortcode.Name)
	arg, _ := link.DestShortcode.Arg(0)
	require.Equal(t, "/docs/chapter-01#setup", arg)
	require.Equal(t, `[the basics]({{< relref "/docs/chapter-01#setup" >}})`, string(body[tokens[0].Start:tokens[0].End]))
}

func TestScan_RelativeMarkdownLinkAndImage(t *testing.T) {
	body := []byte("[next](./chapter-02.md \"Next\") and ![diagram](img/flow.png)\n")

	tokens := Scan(body)
	require.Len(t, tokens, 2)
	require.Equal(t, "./chapter-02.md", tokens[0].Link.Dest)
	require.False(t, tokens[0].Link.Image)
	require.True(t, tokens[1].Link.Image)
	require.Equal(t, "img/flow.png", tokens[1].Link.Dest)
}

func TestScan_SkipsCode(t *testing.T) {
	body := []byte("Use `{{< relref \"x\" >}}` inline.\n\n```go\n// {{< relref \"y\" >}}\n[link](a.md)\n```\n\n    {{< relref \"z\" >}}\n\nreal {{< ref \"w\" >}}\n")

	tokens := Scan(body)
	require.Len(t, tokens, 1)
	arg, _ := tokens[0].Shortcode.Arg(0)
	require.Equal(t, "w", arg)
	require.Equal(t, "ref", tokens[0].Shortcode.Name)
}

func TestScan_PairedAndNamedParams(t *testing.T) {
	body := []byte("{{< button relref=\"/docs/intro\" class=\"big\" >}}Start{{< /button >}}\n\n{{% details title=\"More\" open=true %}}\nhidden\n{{% /details %}}\n")

	sc := shortcodes(Scan(body))
	require.Len(t, sc, 4)

	ref, ok := sc[0].Named("relref")
	require.True(t, ok)
	require.Equal(t, "/docs/intro", ref)
	require.True(t, sc[1].Closing)
	require.Equal(t, "button", sc[1].Name)

	title, _ := sc[2].Named("title")
	require.Equal(t, "More", title)
	open, _ := sc[2].Named("open")
	require.Equal(t, "true", open)
	require.True(t, sc[3].Closing)
}

func TestScan_EscapedShortcode(t *testing.T) {
	body := []byte(`Write {{</* relref "docs/x" */>}} to link.`)

	tokens := Scan(body)
	require.Len(t, tokens, 1)
	sc := tokens[0].Shortcode
	require.True(t, sc.Escaped)
	require.Equal(t, "relref", sc.Name)
	require.Equal(t, `{{< relref "docs/x" >}}`, sc.Literal)
}

func TestScan_AttributeContext(t *testing.T) {
	body := []byte(`<a href="{{< relref "docs/x" >}}">x</a>`)

	tokens := Scan(body)
	require.Len(t, tokens, 1)
	require.True(t, tokens[0].InAttribute)
}

func TestScan_UnterminatedIsNotAToken(t *testing.T) {
	require.Empty(t, Scan([]byte("broken {{< relref \"x\" and text\n")))
	require.Empty(t, Scan([]byte("[not a link] (x.md)\n")))
	require.Empty(t, Scan([]byte(`escaped \[x](y.md)`)))
}

func TestScan_SelfClosing(t *testing.T) {
	sc := shortcodes(Scan([]byte(`{{< columns />}}`)))
	require.Len(t, sc, 1)
	require.True(t, sc[0].SelfClosing)
	require.Equal(t, "columns", sc[0].Name)
}

func TestCodeRanges_FenceLinesIncluded(t *testing.T) {
	body := []byte("text\n```swift\nlet x = 1\n```\nafter\n")

	ranges := CodeRanges(body)
	require.Len(t, ranges, 1)
	require.Equal(t, "```swift\nlet x = 1\n```\n", string(body[ranges[0].Start:ranges[0].End]))
}

func TestScan_ShortcodeInsideLinkText(t *testing.T) {
	body := []byte("[{{< relref \"b\" >}} and more](b.md) {{< hint >}}")
	tokens := Scan(body)
	require.Len(t, tokens, 2)
	require.Equal(t, TokenLink, tokens[0].Kind)
	require.Equal(t, "b.md", tokens[0].Link.Dest)

	nested := tokens[0].Link.Text
	require.Len(t, nested, 1)
	require.Equal(t, "relref", nested[0].Shortcode.Name)
	require.Equal(t, 1, nested[0].Start)
	require.Equal(t, `{{< relref "b" >}}`, string(body[nested[0].Start:nested[0].End]))
	require.LessOrEqual(t, nested[0].End, tokens[0].Link.TextEnd)

	require.Equal(t, "hint", tokens[1].Shortcode.Name)
}
