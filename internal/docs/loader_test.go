package docs

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	derrors "git.home.luguber.info/inful/bookbuilder/internal/docs/errors"
	foundation "git.home.luguber.info/inful/bookbuilder/internal/foundation/errors"
)

func memFS(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, "/content/"+name, []byte(content), 0o644))
	}
	return fs
}

func load(t *testing.T, fs afero.Fs, opts Options) *LoadResult {
	t.Helper()
	res, err := NewLoader(fs, "/content", opts).Load(context.Background())
	require.NoError(t, err)
	return res
}

func ids(documents []*Document) []string {
	out := make([]string, 0, len(documents))
	for _, d := range documents {
		out = append(out, d.ID)
	}
	return out
}

func TestLoad_ScenarioTree(t *testing.T) {
	fs := memFS(t, map[string]string{
		"docs/_index.md":     "---\ntitle: Swift Book\nweight: 1\n---\nWelcome\n",
		"docs/chapter-01.md": "---\ntitle: Basics\nweight: 1\n---\n# Basics\n",
		"docs/chapter-02.md": "---\ntitle: Types\nweight: 2\n---\n# Types\n",
		"docs/notes.txt":     "not markdown",
	})

	res := load(t, fs, Options{Workers: 4})
	require.Empty(t, res.Failures)
	require.Equal(t, []string{"docs/_index", "docs/chapter-01", "docs/chapter-02"}, ids(res.Documents))

	index := res.Documents[0]
	require.True(t, index.IsIndex)
	require.Equal(t, "docs", index.LogicalName())
	require.Equal(t, "docs/index.html", index.OutputPath())
	require.Equal(t, "Swift Book", index.Title)

	ch1 := res.Documents[1]
	require.Equal(t, "docs/chapter-01.md", ch1.Path)
	require.Equal(t, "docs", ch1.Dir)
	require.Equal(t, "docs/chapter-01/index.html", ch1.OutputPath())
	require.Equal(t, "/docs/chapter-01/", ch1.URL("/"))
	require.Equal(t, 1, ch1.Weight)
	require.Equal(t, 5, ch1.BodyLine)
	require.Equal(t, "# Basics\n", string(ch1.Body))
	require.NotEmpty(t, ch1.Fingerprint)
}

func TestLoad_DefaultsWithoutFrontMatter(t *testing.T) {
	fs := memFS(t, map[string]string{
		"guides/getting_started.md": "# Hello\n",
	})

	res := load(t, fs, Options{})
	require.Len(t, res.Documents, 1)
	doc := res.Documents[0]
	require.Equal(t, "Getting Started", doc.Title)
	require.False(t, doc.HasTitle)
	require.Zero(t, doc.Weight)
	require.False(t, doc.CollapseSection)
	require.Equal(t, 1, doc.BodyLine)
}

func TestLoad_MalformedFrontMatterIsolated(t *testing.T) {
	fs := memFS(t, map[string]string{
		"docs/a.md":      "---\ntitle: A\n---\nok\n",
		"docs/broken.md": "---\ntitle: [unclosed\n---\nbody\n",
		"docs/typed.md":  "---\nweight: heavy\n---\nbody\n",
		"docs/open.md":   "---\ntitle: never closed\n",
		"docs/z.md":      "---\ntitle: Z\n---\nok\n",
	})

	res := load(t, fs, Options{Workers: 2})
	require.Equal(t, []string{"docs/a", "docs/z"}, ids(res.Documents))
	require.Len(t, res.Failures, 3)
	for _, f := range res.Failures {
		require.ErrorIs(t, f, derrors.ErrFrontMatterInvalid)
	}
	require.Equal(t, "docs/broken.md", res.Failures[0].Path)
	require.Equal(t, "docs/open.md", res.Failures[1].Path)
	require.Equal(t, "docs/typed.md", res.Failures[2].Path)
}

func TestLoad_PathCollisionExcludesLaterDocument(t *testing.T) {
	fs := memFS(t, map[string]string{
		"docs/_index.md": "# One\n",
		"docs/index.md":  "# Two\n",
		"Intro.md":       "# Intro\n",
		"intro.md":       "# intro\n",
	})

	res := load(t, fs, Options{})
	require.Equal(t, []string{"Intro", "docs/_index"}, ids(res.Documents))
	require.Len(t, res.Failures, 2)
	for _, f := range res.Failures {
		require.ErrorIs(t, f, derrors.ErrPathCollision)
	}
	require.Equal(t, "docs/index.md", res.Failures[0].Path)
	require.Equal(t, "intro.md", res.Failures[1].Path)
}

func TestLoad_SkipsHiddenAndExcluded(t *testing.T) {
	fs := memFS(t, map[string]string{
		".hidden/a.md":        "# a\n",
		"docs/.draft.md":      "# b\n",
		"docs/_drafts/wip.md": "# c\n",
		"docs/kept.md":        "# d\n",
		"docs/kept.markdown":  "# e\n",
	})

	res := load(t, fs, Options{Exclude: []string{"**/_drafts/**", "**/*.markdown"}})
	require.Equal(t, []string{"docs/kept"}, ids(res.Documents))
}

func TestLoad_Drafts(t *testing.T) {
	fs := memFS(t, map[string]string{
		"a.md": "---\ndraft: true\n---\nwip\n",
		"b.md": "# b\n",
	})

	res := load(t, fs, Options{})
	require.Equal(t, []string{"b"}, ids(res.Documents))
	require.Equal(t, []string{"a.md"}, res.Drafts)

	res = load(t, fs, Options{Drafts: true})
	require.Equal(t, []string{"a", "b"}, ids(res.Documents))
}

func TestLoad_TOMLFrontMatter(t *testing.T) {
	fs := memFS(t, map[string]string{
		"part/_index.md": "+++\ntitle = \"Part\"\nbookCollapseSection = true\n+++\n",
	})

	res := load(t, fs, Options{})
	require.Len(t, res.Documents, 1)
	require.True(t, res.Documents[0].CollapseSection)
	require.Equal(t, "Part", res.Documents[0].Title)
}

func TestLoad_RootErrorsAreFatal(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, err := NewLoader(fs, "/missing", Options{}).Load(context.Background())
	require.ErrorIs(t, err, derrors.ErrContentRootNotFound)
	require.True(t, foundation.HasCategory(err, foundation.CategoryNotFound))

	require.NoError(t, afero.WriteFile(fs, "/file.md", []byte("x"), 0o644))
	_, err = NewLoader(fs, "/file.md", Options{}).Load(context.Background())
	require.ErrorIs(t, err, derrors.ErrContentRootNotDir)
}

func TestLoad_Canceled(t *testing.T) {
	fs := memFS(t, map[string]string{"a.md": "# a\n"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLoader(fs, "/content", Options{}).Load(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestContentHash(t *testing.T) {
	fs := memFS(t, map[string]string{"a.md": "# a\n", "b.md": "# b\n"})
	first := ContentHash(load(t, fs, Options{}).Documents)
	second := ContentHash(load(t, fs, Options{Workers: 8}).Documents)
	require.Equal(t, first, second)

	require.NoError(t, afero.WriteFile(fs, "/content/b.md", []byte("# changed\n"), 0o644))
	require.NotEqual(t, first, ContentHash(load(t, fs, Options{}).Documents))
}
