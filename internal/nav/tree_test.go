package nav

import (
	"path"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/bookbuilder/internal/docs"
)

func doc(p string, weight int) *docs.Document {
	id := strings.TrimSuffix(p, path.Ext(p))
	dir := path.Dir(p)
	if dir == "." {
		dir = ""
	}
	name := path.Base(id)
	return &docs.Document{
		ID:      id,
		Path:    p,
		Dir:     dir,
		Name:    name,
		IsIndex: docs.IsIndexName(name),
		Title:   docs.TitleFromName(name),
		Weight:  weight,
	}
}

func names(nodes []*Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Name)
	}
	return out
}

func TestBuild_WeightOrdering(t *testing.T) {
	tree, err := Build([]*docs.Document{
		doc("docs/chapter-01.md", 10),
		doc("docs/chapter-02.md", 5),
	}, "Book")
	require.NoError(t, err)

	section := tree.Lookup("docs")
	require.NotNil(t, section)
	require.True(t, section.Synthetic())
	require.Equal(t, "Docs", section.Title)
	require.Equal(t, []string{"docs/chapter-02", "docs/chapter-01"}, names(section.Children))
}

func TestBuild_IndexBecomesSection(t *testing.T) {
	index := doc("docs/_index.md", 0)
	index.Title = "The Book"
	index.CollapseSection = false

	tree, err := Build([]*docs.Document{
		index,
		doc("docs/b.md", 2),
		doc("docs/a.md", 1),
	}, "Site")
	require.NoError(t, err)

	section := tree.Lookup("docs")
	require.Same(t, index, section.Doc)
	require.Equal(t, "The Book", section.Title)
	require.False(t, section.Collapsed)
	require.Equal(t, []string{"docs/a", "docs/b"}, names(section.Children))
	require.Same(t, section, tree.NodeFor("docs/_index"))
}

func TestBuild_TiesBreakByPath(t *testing.T) {
	input := []*docs.Document{
		doc("docs/zeta.md", 1),
		doc("docs/alpha.md", 1),
		doc("docs/mid.md", 0),
		doc("docs/sub/x.md", 1),
	}
	first, err := Build(input, "")
	require.NoError(t, err)

	reversed := []*docs.Document{input[3], input[2], input[1], input[0]}
	second, err := Build(reversed, "")
	require.NoError(t, err)

	// synthetic sections weigh 0
	want := []string{"docs/mid", "docs/sub", "docs/alpha", "docs/zeta"}
	require.Equal(t, want, names(first.Lookup("docs").Children))
	require.Equal(t, want, names(second.Lookup("docs").Children))
}

func TestBuild_EveryDocumentHasOneNode(t *testing.T) {
	input := []*docs.Document{
		doc("_index.md", 0),
		doc("intro.md", 1),
		doc("docs/part-1/_index.md", 1),
		doc("docs/part-1/ch1.md", 1),
		doc("docs/part-2/deep/ch9.md", 1),
	}
	tree, err := Build(input, "Book")
	require.NoError(t, err)

	seen := map[*docs.Document]int{}
	for _, n := range tree.Linear() {
		if n.Doc != nil {
			seen[n.Doc]++
		}
	}
	require.Len(t, seen, len(input))
	for d, count := range seen {
		require.Equal(t, 1, count, d.Path)
	}
	require.Same(t, tree.Root, tree.NodeFor("_index"))
	require.NotNil(t, tree.Lookup("docs/part-2"))
	require.True(t, tree.Lookup("docs/part-2").Synthetic())
	require.Equal(t, "Deep", tree.Lookup("docs/part-2/deep").Title)
}

func TestBuild_RootTitleFallsBackToSite(t *testing.T) {
	tree, err := Build([]*docs.Document{doc("a.md", 0)}, "Swift for Backend Engineers")
	require.NoError(t, err)
	require.Equal(t, "Swift for Backend Engineers", tree.Root.Title)
	require.Equal(t, "index.html", tree.Root.OutputPath())
}

func TestBuild_FileNamedLikeDirectoryBacksSection(t *testing.T) {
	tree, err := Build([]*docs.Document{
		doc("guide.md", 3),
		doc("guide/step.md", 0),
	}, "")
	require.NoError(t, err)

	guide := tree.Lookup("guide")
	require.True(t, guide.Section)
	require.NotNil(t, guide.Doc)
	require.Equal(t, 3, guide.Weight)
	require.Equal(t, []string{"guide/step"}, names(guide.Children))
}

func TestBuild_DuplicateLogicalName(t *testing.T) {
	_, err := Build([]*docs.Document{
		doc("docs/_index.md", 0),
		doc("docs/index.md", 0),
	}, "")
	require.ErrorIs(t, err, ErrDuplicateNode)
}

func TestReadingOrderAndNeighbours(t *testing.T) {
	hidden := doc("docs/secret.md", 2)
	hidden.Hidden = true
	tree, err := Build([]*docs.Document{
		doc("docs/_index.md", 0),
		doc("docs/a.md", 1),
		hidden,
		doc("docs/b.md", 3),
	}, "Book")
	require.NoError(t, err)

	require.Equal(t, []string{"", "docs", "docs/a", "docs/secret", "docs/b"}, names(tree.Linear()))

	a := tree.NodeFor("docs/a")
	prev, next := tree.PrevNext(a)
	require.Equal(t, "docs", prev.Name)
	require.Equal(t, "docs/b", next.Name)

	require.Equal(t, []string{"docs/a", "docs/b"}, names(a.Siblings()))
	require.Equal(t, []string{"", "docs"}, names(a.Ancestors()))
	require.True(t, tree.Lookup("docs").Contains(a))
	require.False(t, a.Contains(tree.Root))
}

func TestWalkDepth(t *testing.T) {
	tree, err := Build([]*docs.Document{doc("a/b/c.md", 0)}, "")
	require.NoError(t, err)

	depths := map[string]int{}
	require.NoError(t, tree.Walk(func(n *Node, depth int) error {
		depths[n.Name] = depth
		return nil
	}))
	require.Equal(t, map[string]int{"": 0, "a": 1, "a/b": 2, "a/b/c": 3}, depths)
}
