package render

import (
	"bytes"
	"fmt"
	"sort"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/bookbuilder/internal/xref"
)

// Anchors returns the fragment targets of an HTML document: every id
// attribute and the name attribute of <a> elements.
func Anchors(doc []byte) (map[string]struct{}, error) {
	root, err := html.Parse(bytes.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	anchors := map[string]struct{}{}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, a := range n.Attr {
				if a.Key == "id" || (a.Key == "name" && n.Data == "a") {
					anchors[a.Val] = struct{}{}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return anchors, nil
}

// MissingAnchor is a resolved reference whose #fragment does not exist on
// the target page.
type MissingAnchor struct {
	Ref *xref.CrossReference
}

func (m MissingAnchor) Error() string {
	return fmt.Sprintf("%s:%d: anchor #%s not found on %s", m.Ref.SourcePath, m.Ref.Line, m.Ref.Fragment, m.Ref.OutputPath)
}

// VerifyAnchors checks the fragment of every reference against the rendered
// target page. References to pages that were not rendered are skipped.
func VerifyAnchors(pages []*Page, refs []*xref.CrossReference) ([]MissingAnchor, error) {
	byOutput := make(map[string]*Page, len(pages))
	for _, p := range pages {
		byOutput[p.OutputPath] = p
	}

	cache := map[string]map[string]struct{}{}
	var missing []MissingAnchor
	for _, ref := range refs {
		if ref.Fragment == "" {
			continue
		}
		page, ok := byOutput[ref.OutputPath]
		if !ok {
			continue
		}
		anchors, ok := cache[page.OutputPath]
		if !ok {
			var err error
			if anchors, err = Anchors(page.HTML); err != nil {
				return nil, fmt.Errorf("anchors of %s: %w", page.OutputPath, err)
			}
			cache[page.OutputPath] = anchors
		}
		if _, ok := anchors[ref.Fragment]; !ok {
			missing = append(missing, MissingAnchor{Ref: ref})
		}
	}
	sort.SliceStable(missing, func(i, j int) bool {
		if missing[i].Ref.SourcePath != missing[j].Ref.SourcePath {
			return missing[i].Ref.SourcePath < missing[j].Ref.SourcePath
		}
		return missing[i].Ref.Line < missing[j].Ref.Line
	})
	return missing, nil
}
