// Package nav builds the section tree that drives the sidebar, breadcrumbs,
// reading order and the navigation manifest.
package nav

import (
	"errors"
	"fmt"
	"path"
	"sort"

	"git.home.luguber.info/inful/bookbuilder/internal/docs"
)

// ErrDuplicateNode indicates two documents claim the same logical name.
// The loader drops output path collisions, so this only fires on inputs that
// bypassed it.
var ErrDuplicateNode = errors.New("duplicate navigation node")

// Node is one entry of the section tree. Section nodes stand for directories;
// their Doc is the directory's index document, or nil for a synthetic section.
type Node struct {
	Doc       *docs.Document
	Name      string // logical name, "" for the root
	Title     string
	Weight    int
	Path      string // tie-break sort key
	Section   bool
	Collapsed bool
	Hidden    bool
	Children  []*Node

	parent *Node
}

// Parent returns the enclosing section, nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// Synthetic reports whether the node is a section without its own document.
func (n *Node) Synthetic() bool { return n.Section && n.Doc == nil }

// Ancestors returns the chain of sections from the root down to n's parent.
func (n *Node) Ancestors() []*Node {
	var chain []*Node
	for p := n.parent; p != nil; p = p.parent {
		chain = append(chain, p)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// Visible reports whether neither n nor any ancestor is hidden.
func (n *Node) Visible() bool {
	for p := n; p != nil; p = p.parent {
		if p.Hidden {
			return false
		}
	}
	return true
}

// Contains reports whether other is n or one of its descendants.
func (n *Node) Contains(other *Node) bool {
	for p := other; p != nil; p = p.parent {
		if p == n {
			return true
		}
	}
	return false
}

// OutputPath is the page file for this node relative to the output root.
func (n *Node) OutputPath() string { return docs.OutputPathFor(n.Name) }

// URL is the node's page URL below baseURL.
func (n *Node) URL(baseURL string) string { return docs.URLFor(baseURL, n.Name) }

// Tree is the built section tree plus lookup tables.
type Tree struct {
	Root   *Node
	byName map[string]*Node
	byID   map[string]*Node
	order  []*Node
	pos    map[*Node]int
}

// Build groups documents by directory into a single-rooted tree. Every
// directory on the way to a document gets a section node; an index document
// (or a sibling file named like the directory) supplies the section's own
// page. Children are ordered by weight, then path.
func Build(documents []*docs.Document, siteTitle string) (*Tree, error) {
	t := &Tree{
		Root:   &Node{Section: true},
		byName: map[string]*Node{},
		byID:   map[string]*Node{},
	}
	t.byName[""] = t.Root

	for _, doc := range documents {
		if err := t.add(doc); err != nil {
			return nil, err
		}
	}

	t.finalize(t.Root, siteTitle)
	t.order = make([]*Node, 0, len(t.byName))
	t.pos = make(map[*Node]int, len(t.byName))
	_ = t.walk(t.Root, 0, func(n *Node, _ int) error {
		t.pos[n] = len(t.order)
		t.order = append(t.order, n)
		return nil
	})
	return t, nil
}

func (t *Tree) add(doc *docs.Document) error {
	name := doc.LogicalName()
	if doc.IsIndex {
		return t.attach(t.ensureSection(name), doc)
	}

	parent := t.ensureSection(doc.Dir)
	if existing, ok := t.byName[name]; ok {
		return t.attach(existing, doc)
	}
	n := &Node{Doc: doc, Name: name, parent: parent}
	parent.Children = append(parent.Children, n)
	t.byName[name] = n
	t.byID[doc.ID] = n
	return nil
}

func (t *Tree) attach(n *Node, doc *docs.Document) error {
	if n.Doc != nil && n.Doc != doc {
		return fmt.Errorf("%w: %s and %s both resolve to %q", ErrDuplicateNode, n.Doc.Path, doc.Path, n.Name)
	}
	n.Doc = doc
	t.byID[doc.ID] = n
	return nil
}

// ensureSection returns the section node for dir, creating it and its
// ancestors on demand. A leaf that turns out to share its name with a
// directory is promoted to a section.
func (t *Tree) ensureSection(dir string) *Node {
	if n, ok := t.byName[dir]; ok {
		n.Section = true
		return n
	}
	parentDir := path.Dir(dir)
	if parentDir == "." {
		parentDir = ""
	}
	parent := t.ensureSection(parentDir)
	n := &Node{Name: dir, Section: true, parent: parent}
	parent.Children = append(parent.Children, n)
	t.byName[dir] = n
	return n
}

func (t *Tree) finalize(n *Node, siteTitle string) {
	switch {
	case n.Doc != nil:
		n.Title = n.Doc.Title
		n.Weight = n.Doc.Weight
		n.Collapsed = n.Doc.CollapseSection
		n.Hidden = n.Doc.Hidden
	case n.Name != "":
		n.Title = docs.TitleFromName(path.Base(n.Name))
	}
	if n == t.Root && n.Title == "" {
		n.Title = siteTitle
	}

	if n.Section || n.Doc == nil {
		n.Path = n.Name
	} else {
		n.Path = n.Doc.Path
	}

	for _, c := range n.Children {
		t.finalize(c, siteTitle)
	}
	sort.SliceStable(n.Children, func(i, j int) bool {
		a, b := n.Children[i], n.Children[j]
		if a.Weight != b.Weight {
			return a.Weight < b.Weight
		}
		return a.Path < b.Path
	})
}

// Walk visits every node depth-first in reading order with its depth (root = 0).
func (t *Tree) Walk(fn func(n *Node, depth int) error) error {
	return t.walk(t.Root, 0, fn)
}

func (t *Tree) walk(n *Node, depth int, fn func(*Node, int) error) error {
	if err := fn(n, depth); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := t.walk(c, depth+1, fn); err != nil {
			return err
		}
	}
	return nil
}

// Linear returns all nodes in depth-first pre-order.
func (t *Tree) Linear() []*Node {
	out := make([]*Node, len(t.order))
	copy(out, t.order)
	return out
}

// NodeFor returns the node holding the document with the given ID.
func (t *Tree) NodeFor(id string) *Node { return t.byID[id] }

// Lookup returns the node for a logical name.
func (t *Tree) Lookup(name string) *Node { return t.byName[name] }

// Len is the number of nodes including the root.
func (t *Tree) Len() int { return len(t.order) }

// PrevNext returns the visible neighbours of n in reading order.
func (t *Tree) PrevNext(n *Node) (prev, next *Node) {
	idx, ok := t.pos[n]
	if !ok {
		return nil, nil
	}
	for i := idx - 1; i >= 0; i-- {
		if t.order[i].Visible() {
			prev = t.order[i]
			break
		}
	}
	for i := idx + 1; i < len(t.order); i++ {
		if t.order[i].Visible() {
			next = t.order[i]
			break
		}
	}
	return prev, next
}

// Siblings returns the visible children of n's parent, n included. The root
// has no siblings.
func (n *Node) Siblings() []*Node {
	if n.parent == nil {
		return nil
	}
	out := make([]*Node, 0, len(n.parent.Children))
	for _, c := range n.parent.Children {
		if !c.Hidden {
			out = append(out, c)
		}
	}
	return out
}
