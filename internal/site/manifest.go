package site

import (
	"encoding/json"
	"sort"

	"git.home.luguber.info/inful/bookbuilder/internal/nav"
)

// ManifestFile is the navigation manifest written at the output root.
const ManifestFile = "nav.json"

// Entry is one tree node in the manifest.
type Entry struct {
	Title       string   `json:"title"`
	Path        string   `json:"path"`
	URL         string   `json:"url"`
	Source      string   `json:"source,omitempty"`
	Weight      int      `json:"weight"`
	Section     bool     `json:"section,omitempty"`
	Collapsed   bool     `json:"collapsed,omitempty"`
	Hidden      bool     `json:"hidden,omitempty"`
	Fingerprint string   `json:"fingerprint,omitempty"`
	Children    []*Entry `json:"children,omitempty"`
}

// Skip records a source document that produced no page.
type Skip struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Manifest is the full section tree in reading order plus the gaps left by
// documents that failed to load.
type Manifest struct {
	Title   string `json:"title"`
	BaseURL string `json:"base_url"`
	Root    *Entry `json:"root"`
	Skipped []Skip `json:"skipped"`
}

// NewManifest snapshots tree. skipped is copied and sorted by path.
func NewManifest(title, baseURL string, tree *nav.Tree, skipped []Skip) *Manifest {
	s := make([]Skip, len(skipped))
	copy(s, skipped)
	sort.SliceStable(s, func(i, j int) bool { return s[i].Path < s[j].Path })
	return &Manifest{
		Title:   title,
		BaseURL: baseURL,
		Root:    entryFor(tree.Root, baseURL),
		Skipped: s,
	}
}

func entryFor(n *nav.Node, baseURL string) *Entry {
	e := &Entry{
		Title:     n.Title,
		Path:      n.OutputPath(),
		URL:       n.URL(baseURL),
		Weight:    n.Weight,
		Section:   n.Section,
		Collapsed: n.Collapsed,
		Hidden:    !n.Visible(),
	}
	if n.Doc != nil {
		e.Source = n.Doc.Path
		e.Fingerprint = n.Doc.Fingerprint
	}
	for _, c := range n.Children {
		e.Children = append(e.Children, entryFor(c, baseURL))
	}
	return e
}

// Marshal encodes the manifest as indented JSON with a trailing newline.
func (m *Manifest) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Walk visits entries depth-first in reading order.
func (m *Manifest) Walk(fn func(e *Entry, depth int)) {
	var walk func(*Entry, int)
	walk = func(e *Entry, depth int) {
		fn(e, depth)
		for _, c := range e.Children {
			walk(c, depth+1)
		}
	}
	if m.Root != nil {
		walk(m.Root, 0)
	}
}
