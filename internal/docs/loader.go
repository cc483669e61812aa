package docs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/inful/mdfp"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	derrors "git.home.luguber.info/inful/bookbuilder/internal/docs/errors"
	foundation "git.home.luguber.info/inful/bookbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/bookbuilder/internal/frontmatter"
	"git.home.luguber.info/inful/bookbuilder/internal/logfields"
)

// Options controls content discovery.
type Options struct {
	Workers int
	Drafts  bool     // include documents marked draft: true
	Exclude []string // doublestar globs matched against slash paths relative to the root
}

// LoadError records a document that was excluded from the build.
type LoadError struct {
	Path string // slash path relative to the content root
	Err  error
}

func (e *LoadError) Error() string { return e.Path + ": " + e.Err.Error() }
func (e *LoadError) Unwrap() error { return e.Err }

// LoadResult is the output of one load: documents in path order plus the
// per-document failures.
type LoadResult struct {
	Documents []*Document
	Failures  []*LoadError
	Drafts    []string // paths of drafts left out
}

// Loader scans a content root for Markdown documents.
type Loader struct {
	fs   afero.Fs
	root string
	opts Options
}

// NewLoader creates a loader for root on fsys.
func NewLoader(fsys afero.Fs, root string, opts Options) *Loader {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Loader{fs: fsys, root: filepath.Clean(root), opts: opts}
}

type candidate struct {
	rel  string
	full string
}

// Load discovers and parses every document below the root. It only fails as a
// whole when the root itself cannot be used or ctx is canceled; anything wrong
// with an individual file lands in LoadResult.Failures.
func (l *Loader) Load(ctx context.Context) (*LoadResult, error) {
	if err := l.checkRoot(); err != nil {
		return nil, err
	}

	result := &LoadResult{}
	candidates, walkFailures, err := l.discover(ctx)
	if err != nil {
		return nil, err
	}
	result.Failures = append(result.Failures, walkFailures...)

	parsed := make([]*Document, len(candidates))
	failures := make([]*LoadError, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.opts.Workers)
	for i, c := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			doc, err := l.parse(c)
			if err != nil {
				failures[i] = &LoadError{Path: c.rel, Err: err}
				return nil
			}
			parsed[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byOutput := make(map[string]*Document, len(parsed))
	for i, doc := range parsed {
		if failures[i] != nil {
			result.Failures = append(result.Failures, failures[i])
			continue
		}
		if doc.Draft && !l.opts.Drafts {
			result.Drafts = append(result.Drafts, doc.Path)
			slog.Debug("Skipping draft", logfields.Path(doc.Path))
			continue
		}
		out := doc.OutputPath()
		if first, exists := byOutput[out]; exists {
			result.Failures = append(result.Failures, &LoadError{
				Path: doc.Path,
				Err:  fmt.Errorf("%w: %s and %s both map to %s", derrors.ErrPathCollision, first.Path, doc.Path, out),
			})
			continue
		}
		byOutput[out] = doc
		result.Documents = append(result.Documents, doc)
	}

	sort.SliceStable(result.Failures, func(i, j int) bool {
		return result.Failures[i].Path < result.Failures[j].Path
	})

	slog.Info("Content loaded",
		logfields.Path(l.root),
		logfields.Count(len(result.Documents)),
		slog.Int("failures", len(result.Failures)),
		slog.Int("drafts", len(result.Drafts)))
	return result, nil
}

func (l *Loader) checkRoot() error {
	info, err := l.fs.Stat(l.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return foundation.NotFoundError("content root not found").
				WithCause(fmt.Errorf("%w: %s", derrors.ErrContentRootNotFound, l.root)).
				WithContext("path", l.root).
				Build()
		}
		return foundation.FileSystemError("content root unreadable").
			WithCause(fmt.Errorf("%w: %w", derrors.ErrContentRootUnreadable, err)).
			WithContext("path", l.root).
			Build()
	}
	if !info.IsDir() {
		return foundation.ValidationError("content root is not a directory").
			WithCause(fmt.Errorf("%w: %s", derrors.ErrContentRootNotDir, l.root)).
			WithContext("path", l.root).
			Build()
	}
	return nil
}

// discover walks the root in lexical order and returns the Markdown files to parse.
func (l *Loader) discover(ctx context.Context) ([]candidate, []*LoadError, error) {
	var candidates []candidate
	var failures []*LoadError

	err := afero.Walk(l.fs, l.root, func(full string, info fs.FileInfo, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if full == l.root {
			if walkErr != nil {
				return foundation.FileSystemError("content root unreadable").
					WithCause(fmt.Errorf("%w: %w", derrors.ErrContentRootUnreadable, walkErr)).
					WithContext("path", l.root).
					Build()
			}
			return nil
		}

		rel, err := filepath.Rel(l.root, full)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if walkErr != nil {
			failures = append(failures, &LoadError{Path: rel, Err: fmt.Errorf("%w: %w", derrors.ErrDirWalkFailed, walkErr)})
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(info.Name(), ".") || l.excluded(rel) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() || !IsMarkdownExt(filepath.Ext(info.Name())) {
			return nil
		}

		candidates = append(candidates, candidate{rel: rel, full: full})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return candidates, failures, nil
}

func (l *Loader) excluded(rel string) bool {
	for _, pattern := range l.opts.Exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

func (l *Loader) parse(c candidate) (*Document, error) {
	raw, err := afero.ReadFile(l.fs, c.full)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", derrors.ErrFileReadFailed, err)
	}

	fmRaw, body, format, err := frontmatter.Split(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", derrors.ErrFrontMatterInvalid, err)
	}
	fields := frontmatter.Fields{}
	if format != frontmatter.FormatNone {
		if fields, err = frontmatter.Parse(format, fmRaw); err != nil {
			return nil, fmt.Errorf("%w: %w", derrors.ErrFrontMatterInvalid, err)
		}
	}
	meta, err := fields.Meta()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", derrors.ErrFrontMatterInvalid, err)
	}

	ext := path.Ext(c.rel)
	id := strings.TrimSuffix(c.rel, ext)
	dir := path.Dir(c.rel)
	if dir == "." {
		dir = ""
	}
	name := path.Base(id)

	doc := &Document{
		ID:              id,
		Path:            c.rel,
		SourcePath:      c.full,
		Dir:             dir,
		Name:            name,
		IsIndex:         IsIndexName(name),
		Title:           meta.Title,
		HasTitle:        meta.HasTitle,
		Weight:          meta.Weight,
		CollapseSection: meta.CollapseSection,
		Hidden:          meta.Hidden,
		Draft:           meta.Draft,
		FrontMatter:     fields,
		Body:            body,
		BodyLine:        bodyLine(raw, body),
		Fingerprint:     mdfp.CalculateFingerprintFromParts(strings.TrimRight(string(fmRaw), "\r\n"), string(body)),
	}
	if !doc.HasTitle {
		doc.Title = derivedTitle(doc)
	}
	return doc, nil
}

// derivedTitle names a document without a front matter title after its file,
// or after its directory for index documents. The root index gets "" and is
// titled by the site.
func derivedTitle(doc *Document) string {
	if doc.IsIndex {
		if doc.Dir == "" {
			return ""
		}
		return TitleFromName(path.Base(doc.Dir))
	}
	return TitleFromName(doc.Name)
}

// bodyLine returns the 1-based source line on which body starts. body is a
// suffix of raw (minus an optional BOM, which does not add a line).
func bodyLine(raw, body []byte) int {
	consumed := len(raw) - len(body)
	if consumed <= 0 {
		return 1
	}
	return 1 + bytes.Count(raw[:consumed], []byte("\n"))
}
