package xref

import (
	"context"
	"net/url"
	"path"
	"sort"
	"strings"

	"git.home.luguber.info/inful/bookbuilder/internal/docs"
	"git.home.luguber.info/inful/bookbuilder/internal/markdown"
)

// Resolver looks up documents by logical name.
type Resolver struct {
	baseURL string
	byName  map[string]*docs.Document
	byBase  map[string][]*docs.Document
}

// NewResolver indexes documents. Logical names must be unique; the loader
// guarantees that by dropping output path collisions.
func NewResolver(documents []*docs.Document, baseURL string) *Resolver {
	r := &Resolver{
		baseURL: baseURL,
		byName:  make(map[string]*docs.Document, len(documents)),
		byBase:  make(map[string][]*docs.Document, len(documents)),
	}
	for _, doc := range documents {
		name := doc.LogicalName()
		r.byName[name] = doc
		if name != "" {
			base := path.Base(name)
			r.byBase[base] = append(r.byBase[base], doc)
		}
	}
	for _, list := range r.byBase {
		sort.Slice(list, func(i, j int) bool { return list[i].Path < list[j].Path })
	}
	return r
}

// Lookup resolves ref as written in from. A leading "/" makes ref
// root-relative; otherwise it is tried relative to from's directory, then
// relative to the root, then as a unique base name. The fragment is returned
// separately. A ref consisting only of a fragment points at from itself.
func (r *Resolver) Lookup(from *docs.Document, ref string) (*docs.Document, string, Reason, []string) {
	target, fragment, _ := strings.Cut(strings.TrimSpace(ref), "#")
	target = strings.ReplaceAll(target, "\\", "/")
	if target == "" {
		if fragment != "" {
			return from, fragment, "", nil
		}
		return nil, "", ReasonEmpty, nil
	}

	if rooted, ok := strings.CutPrefix(target, "/"); ok {
		if escapes(rooted) {
			return nil, fragment, ReasonEscapesRoot, nil
		}
		if doc, ok := r.byName[docs.NormalizeLogical(rooted)]; ok {
			return doc, fragment, "", nil
		}
		return nil, fragment, ReasonNotFound, nil
	}

	joined := path.Join(from.Dir, target)
	if escapes(joined) {
		return nil, fragment, ReasonEscapesRoot, nil
	}
	if doc, ok := r.byName[docs.NormalizeLogical(joined)]; ok {
		return doc, fragment, "", nil
	}
	if !strings.HasPrefix(target, ".") && !escapes(target) {
		if doc, ok := r.byName[docs.NormalizeLogical(target)]; ok {
			return doc, fragment, "", nil
		}
	}
	if !strings.Contains(target, "/") {
		candidates := r.byBase[docs.NormalizeLogical(target)]
		switch len(candidates) {
		case 0:
		case 1:
			return candidates[0], fragment, "", nil
		default:
			paths := make([]string, len(candidates))
			for i, c := range candidates {
				paths[i] = c.Path
			}
			return nil, fragment, ReasonAmbiguous, paths
		}
	}
	return nil, fragment, ReasonNotFound, nil
}

func escapes(p string) bool {
	p = path.Clean(p)
	return p == ".." || strings.HasPrefix(p, "../")
}

// ResolveAll scans every document body and resolves each reference found.
// The documents are not modified.
func (r *Resolver) ResolveAll(ctx context.Context, documents []*docs.Document) (*Table, error) {
	table := newTable()
	for _, doc := range documents {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, occ := range Occurrences(doc.Body) {
			line := occ.Line + doc.BodyLine - 1
			target, fragment, reason, candidates := r.Lookup(doc, occ.Ref)
			if reason != "" {
				table.addBroken(&BrokenReference{
					SourceID:   doc.ID,
					SourcePath: doc.Path,
					Ref:        occ.Ref,
					Kind:       occ.Kind,
					Line:       line,
					Offset:     occ.Offset,
					Reason:     reason,
					Candidates: candidates,
				})
				continue
			}
			u := target.URL(r.baseURL)
			if fragment != "" {
				u += "#" + fragment
			}
			table.addResolved(&CrossReference{
				SourceID:   doc.ID,
				SourcePath: doc.Path,
				TargetID:   target.ID,
				OutputPath: target.OutputPath(),
				URL:        u,
				Fragment:   fragment,
				Ref:        occ.Ref,
				Kind:       occ.Kind,
				Line:       line,
				Offset:     occ.Offset,
			})
		}
	}
	return table, nil
}

// Occurrence is one reference found in a body.
type Occurrence struct {
	Ref    string
	Kind   Kind
	Line   int // 1-based within the body
	Offset int
}

// Occurrences lists the references in body in source order, including
// those nested in link text.
func Occurrences(body []byte) []Occurrence {
	return appendOccurrences(nil, markdown.Scan(body))
}

func appendOccurrences(out []Occurrence, tokens []markdown.Token) []Occurrence {
	for _, tok := range tokens {
		if occ, ok := occurrenceOf(tok); ok {
			out = append(out, occ)
		}
		if tok.Kind == markdown.TokenLink {
			out = appendOccurrences(out, tok.Link.Text)
		}
	}
	return out
}

func occurrenceOf(tok markdown.Token) (Occurrence, bool) {
	occ := Occurrence{Line: tok.Line, Offset: tok.Start}
	switch tok.Kind {
	case markdown.TokenShortcode:
		sc := tok.Shortcode
		if sc.Escaped || sc.Closing {
			return occ, false
		}
		switch {
		case IsRefShortcode(sc.Name):
			occ.Kind = KindShortcode
			occ.Ref, _ = sc.Arg(0)
			return occ, true
		case sc.Name == "button":
			ref, ok := sc.Named("relref")
			if !ok {
				ref, ok = sc.Named("ref")
			}
			occ.Kind = KindButton
			occ.Ref = ref
			return occ, ok
		}
	case markdown.TokenLink:
		link := tok.Link
		if sc := link.DestShortcode; sc != nil {
			if sc.Escaped || !IsRefShortcode(sc.Name) {
				return occ, false
			}
			occ.Kind = KindLink
			occ.Ref, _ = sc.Arg(0)
			return occ, true
		}
		if !link.Image && IsMarkdownTarget(link.Dest) {
			occ.Kind = KindMarkdownLink
			occ.Ref = link.Dest
			return occ, true
		}
	}
	return occ, false
}

// IsRefShortcode reports whether name is a reference shortcode.
func IsRefShortcode(name string) bool { return name == "relref" || name == "ref" }

// IsMarkdownTarget reports whether a link destination names a local Markdown
// file: no scheme or host, not fragment-only, with a Markdown extension.
func IsMarkdownTarget(dest string) bool {
	if dest == "" || strings.HasPrefix(dest, "#") || strings.HasPrefix(dest, "//") {
		return false
	}
	u, err := url.Parse(dest)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return false
	}
	return docs.IsMarkdownExt(path.Ext(u.Path))
}
