package docs

import (
	"net/url"
	"strings"

	"github.com/gosimple/slug"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// OutputPathFor maps a logical name to the page file below the output root.
// Every segment is slugged so URLs stay lowercase and ASCII:
// "docs/Chapter 01" -> "docs/chapter-01/index.html".
func OutputPathFor(logical string) string {
	if logical == "" {
		return "index.html"
	}
	return slugPath(logical) + "/index.html"
}

// URLFor maps a logical name to its pretty URL below baseURL (which ends in "/").
func URLFor(baseURL, logical string) string {
	if logical == "" {
		return baseURL
	}
	return baseURL + slugPath(logical) + "/"
}

func slugPath(logical string) string {
	segments := strings.Split(logical, "/")
	for i, seg := range segments {
		s := slug.Make(seg)
		if s == "" {
			s = url.PathEscape(seg)
		}
		segments[i] = s
	}
	return strings.Join(segments, "/")
}

// TitleFromName derives a display title from a file or directory name:
// "getting_started" -> "Getting Started".
func TitleFromName(name string) string {
	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)
	// Casers are stateful; one per call keeps this safe for concurrent loaders.
	return cases.Title(language.English).String(strings.Join(strings.Fields(name), " "))
}
