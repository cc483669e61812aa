// Package render turns documents into HTML pages: Markdown conversion,
// reference substitution, shortcode expansion and navigation chrome.
package render

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/bookbuilder/internal/logfields"
	"git.home.luguber.info/inful/bookbuilder/internal/nav"
	"git.home.luguber.info/inful/bookbuilder/internal/xref"
)

//go:embed templates/*.html
var templateFS embed.FS

var layouts = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Options configures rendering.
type Options struct {
	SiteTitle  string
	BaseURL    string // ends in "/"
	Language   string
	Workers    int
	UnsafeHTML bool // pass raw HTML in Markdown through
	HardWraps  bool
}

// Result holds the rendered pages in reading order plus warnings.
type Result struct {
	Pages    []*Page
	Warnings []Warning
}

// Renderer renders every node of a section tree.
type Renderer struct {
	opts  Options
	tree  *nav.Tree
	table *xref.Table
}

// New creates a renderer. table must be the complete resolution table for
// the tree's documents.
func New(opts Options, tree *nav.Tree, table *xref.Table) *Renderer {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "/"
	}
	return &Renderer{opts: opts, tree: tree, table: table}
}

// Render produces one page per document and one listing page per synthetic
// section. Pages are independent and render concurrently.
func (r *Renderer) Render(ctx context.Context) (*Result, error) {
	nodes := r.tree.Linear()
	pages := make([]*Page, len(nodes))
	warnings := make([][]Warning, len(nodes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for i, node := range nodes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			page, warns, err := r.renderNode(node)
			if err != nil {
				return fmt.Errorf("render %s: %w", node.OutputPath(), err)
			}
			pages[i] = page
			warnings[i] = warns
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{Pages: pages}
	for _, w := range warnings {
		res.Warnings = append(res.Warnings, w...)
	}
	return res, nil
}

func (r *Renderer) renderNode(node *nav.Node) (*Page, []Warning, error) {
	page := &Page{
		Name:       node.Name,
		OutputPath: node.OutputPath(),
		URL:        node.URL(r.opts.BaseURL),
		Title:      node.Title,
		Hidden:     !node.Visible(),
		Nav:        r.navContext(node),
	}

	var warnings []Warning
	if node.Doc != nil {
		page.SourceID = node.Doc.ID
		page.SourcePath = node.Doc.Path
		pr := newPageRenderer(node.Doc, r.table, newMarkdown(r.opts))
		content, err := pr.render()
		if err != nil {
			return nil, nil, err
		}
		page.Content = template.HTML(content) // #nosec G203 -- produced by goldmark and the shortcode renderer
		warnings = pr.warnings
		slog.Debug("Rendered page",
			logfields.Document(node.Doc.ID),
			logfields.Path(page.OutputPath),
			logfields.Count(len(pr.holders)))
	} else {
		content, err := r.listing(node)
		if err != nil {
			return nil, nil, err
		}
		page.Content = content
	}

	var buf bytes.Buffer
	err := layouts.ExecuteTemplate(&buf, "page.html", layoutData{
		Site: siteData{
			Title:    r.opts.SiteTitle,
			BaseURL:  r.opts.BaseURL,
			Language: r.opts.Language,
		},
		Page:    page,
		Sidebar: r.sidebar(r.tree.Root.Children, node),
	})
	if err != nil {
		return nil, nil, err
	}
	page.HTML = buf.Bytes()
	return page, warnings, nil
}

type siteData struct {
	Title    string
	BaseURL  string
	Language string
}

type layoutData struct {
	Site    siteData
	Page    *Page
	Sidebar []menuItem
}

type menuItem struct {
	Title     string
	URL       string
	Section   bool
	Collapsed bool
	Active    bool
	Children  []menuItem
}

// sidebar lists visible nodes. A collapsed section shows its children only
// when the current page lies inside it.
func (r *Renderer) sidebar(nodes []*nav.Node, current *nav.Node) []menuItem {
	var items []menuItem
	for _, n := range nodes {
		if n.Hidden {
			continue
		}
		item := menuItem{
			Title:     n.Title,
			URL:       n.URL(r.opts.BaseURL),
			Section:   n.Section,
			Collapsed: n.Collapsed && !n.Contains(current),
			Active:    n == current,
		}
		if n.Section && !item.Collapsed {
			item.Children = r.sidebar(n.Children, current)
		}
		items = append(items, item)
	}
	return items
}

func (r *Renderer) link(n *nav.Node, current *nav.Node) NavLink {
	return NavLink{Title: n.Title, URL: n.URL(r.opts.BaseURL), Active: n == current}
}

func (r *Renderer) navContext(node *nav.Node) NavContext {
	var ctx NavContext
	for _, a := range node.Ancestors() {
		ctx.Breadcrumbs = append(ctx.Breadcrumbs, r.link(a, node))
	}
	for _, s := range node.Siblings() {
		ctx.Siblings = append(ctx.Siblings, r.link(s, node))
	}
	prev, next := r.tree.PrevNext(node)
	if prev != nil {
		l := r.link(prev, node)
		ctx.Prev = &l
	}
	if next != nil {
		l := r.link(next, node)
		ctx.Next = &l
	}
	return ctx
}

func (r *Renderer) listing(node *nav.Node) (template.HTML, error) {
	data := struct {
		Title string
		Items []NavLink
	}{Title: node.Title}
	for _, c := range node.Children {
		if !c.Hidden {
			data.Items = append(data.Items, r.link(c, node))
		}
	}
	var buf bytes.Buffer
	if err := layouts.ExecuteTemplate(&buf, "listing.html", data); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil // #nosec G203 -- html/template output
}
