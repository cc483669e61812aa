package render

import "html/template"

// NavLink is a titled link used in navigation chrome.
type NavLink struct {
	Title  string
	URL    string
	Active bool
}

// NavContext is the navigation derived from a page's tree node.
type NavContext struct {
	Breadcrumbs []NavLink // ancestors, root first
	Siblings    []NavLink // visible children of the parent, page included
	Prev        *NavLink
	Next        *NavLink
}

// Page is one rendered output page. Pages are created by the Renderer and
// only read afterwards.
type Page struct {
	Name       string // logical name of the tree node
	SourceID   string // "" for synthetic section listings
	SourcePath string
	OutputPath string
	URL        string
	Title      string
	Hidden     bool
	Content    template.HTML // rendered body
	HTML       []byte        // complete page
	Nav        NavContext
}

// Synthetic reports whether the page lists a section that has no document.
func (p *Page) Synthetic() bool { return p.SourceID == "" }

// WarningKind classifies a rendering warning.
type WarningKind string

const (
	WarnUnknownShortcode  WarningKind = "unknown_shortcode"
	WarnUnclosedShortcode WarningKind = "unclosed_shortcode"
)

// Warning is a non-fatal rendering problem in one document.
type Warning struct {
	Kind       WarningKind
	SourceID   string
	SourcePath string
	Line       int
	Shortcode  string
	Message    string
}
