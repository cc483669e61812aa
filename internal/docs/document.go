package docs

import (
	"path"
	"strings"

	"git.home.luguber.info/inful/bookbuilder/internal/frontmatter"
)

// Document is one Markdown source file after loading. It is immutable once the
// loader returns it; later stages only read it.
type Document struct {
	ID         string // slash path relative to the content root without extension, e.g. "docs/chapter-01"
	Path       string // slash path relative to the content root, e.g. "docs/chapter-01.md"
	SourcePath string // path on the loader's filesystem
	Dir        string // directory of Path, "" for the root
	Name       string // file name without extension
	IsIndex    bool   // _index, index or README: the document stands for its directory

	Title           string
	HasTitle        bool // title came from front matter
	Weight          int
	CollapseSection bool
	Hidden          bool
	Draft           bool

	FrontMatter frontmatter.Fields
	Body        []byte
	BodyLine    int // 1-based line of the first body line in the source file

	Fingerprint string
}

// LogicalName is the name other documents use to refer to this one: the ID,
// or the directory for an index document ("" for the content root).
func (d *Document) LogicalName() string {
	if d.IsIndex {
		return d.Dir
	}
	return d.ID
}

// OutputPath is the slash path of the rendered page relative to the output root.
func (d *Document) OutputPath() string {
	return OutputPathFor(d.LogicalName())
}

// URL is the page URL below baseURL.
func (d *Document) URL(baseURL string) string {
	return URLFor(baseURL, d.LogicalName())
}

var indexNames = []string{"_index", "index", "readme"}

// IsIndexName reports whether a file name (without extension) denotes a
// directory's own page.
func IsIndexName(name string) bool {
	lower := strings.ToLower(name)
	for _, n := range indexNames {
		if lower == n {
			return true
		}
	}
	return false
}

// NormalizeLogical turns a document path, ID or reference target into a
// logical name: cleaned, slash separated, without leading slash, Markdown
// extension or trailing index segment. The content root is "".
func NormalizeLogical(p string) string {
	p = strings.TrimPrefix(path.Clean("/"+strings.ReplaceAll(p, "\\", "/")), "/")
	if ext := path.Ext(p); IsMarkdownExt(ext) {
		p = strings.TrimSuffix(p, ext)
	}
	if IsIndexName(path.Base(p)) {
		p = path.Dir(p)
	}
	if p == "." {
		return ""
	}
	return p
}

var markdownExts = map[string]bool{
	".md":       true,
	".markdown": true,
	".mdown":    true,
	".mkd":      true,
}

// IsMarkdownExt reports whether ext (with dot) is a Markdown extension.
func IsMarkdownExt(ext string) bool {
	return markdownExts[strings.ToLower(ext)]
}
