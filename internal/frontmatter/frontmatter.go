package frontmatter

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format identifies the syntax of a front matter block.
type Format string

const (
	FormatNone Format = ""
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

var delimiters = map[Format]string{
	FormatYAML: "---",
	FormatTOML: "+++",
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ErrMissingClosingDelimiter indicates the document started with a front matter
// delimiter but did not contain a closing delimiter.
var ErrMissingClosingDelimiter = errors.New("front matter start delimiter found but closing delimiter is missing")

// ErrNotMapping indicates the front matter block parsed to something other than a key/value mapping.
var ErrNotMapping = errors.New("front matter is not a key/value mapping")

// Split separates a front matter block (YAML `---` or TOML `+++` delimited)
// from the Markdown body.
//
// If the document does not start with a delimiter, format is FormatNone and
// body is the full input (minus a leading UTF-8 BOM).
func Split(content []byte) (frontmatter []byte, body []byte, format Format, err error) {
	content = bytes.TrimPrefix(content, utf8BOM)
	nl := detectNewline(content)

	for f, delim := range delimiters {
		open := []byte(delim + nl)
		if !bytes.HasPrefix(content, open) {
			continue
		}
		start := len(open)
		rest := content[start:]

		closeLine := []byte(delim + nl)
		if bytes.HasPrefix(rest, closeLine) {
			return []byte{}, rest[len(closeLine):], f, nil
		}
		if bytes.Equal(rest, []byte(delim)) {
			return []byte{}, []byte{}, f, nil
		}

		closeSeq := []byte(nl + delim + nl)
		if idx := bytes.Index(rest, closeSeq); idx >= 0 {
			return rest[:idx+len(nl)], rest[idx+len(closeSeq):], f, nil
		}
		// Closing delimiter on the final line without a trailing newline.
		if tail := []byte(nl + delim); bytes.HasSuffix(rest, tail) {
			return rest[:len(rest)-len(tail)+len(nl)], []byte{}, f, nil
		}
		return nil, nil, FormatNone, ErrMissingClosingDelimiter
	}
	return nil, content, FormatNone, nil
}

// Parse decodes a raw front matter block (without delimiters) into Fields.
func Parse(format Format, raw []byte) (Fields, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return Fields{}, nil
	}

	var fields map[string]any
	switch format {
	case FormatYAML:
		var node yaml.Node
		if err := yaml.Unmarshal(raw, &node); err != nil {
			return nil, err
		}
		if len(node.Content) > 0 && node.Content[0].Kind != yaml.MappingNode {
			return nil, ErrNotMapping
		}
		if err := node.Decode(&fields); err != nil {
			return nil, err
		}
	case FormatTOML:
		if err := toml.Unmarshal(raw, &fields); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported front matter format %q", format)
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return Fields(fields), nil
}

func detectNewline(content []byte) string {
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}
