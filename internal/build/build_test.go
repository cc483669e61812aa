package build

import (
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/bookbuilder/internal/config"
	foundation "git.home.luguber.info/inful/bookbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/bookbuilder/internal/site"
)

func writeContent(t *testing.T, files map[string]string) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "content")
	for rel, body := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(body), 0o644))
	}
	return root
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Build.Workers = 4
	return cfg
}

func run(t *testing.T, content, output string) *Report {
	t.Helper()
	report, err := NewService().Run(context.Background(), Request{ContentRoot: content, OutputRoot: output, Config: testConfig()})
	require.NoError(t, err)
	return report
}

func readManifest(t *testing.T, output string) site.Manifest {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join(output, site.ManifestFile))
	require.NoError(t, err)
	var m site.Manifest
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func readPage(t *testing.T, output, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(output, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func childSources(e *site.Entry) []string {
	var out []string
	for _, c := range e.Children {
		out = append(out, c.Source)
	}
	return out
}

func TestBuild_WeightOrderAndResolvedLink(t *testing.T) {
	content := writeContent(t, map[string]string{
		"docs/chapter-01.md": "---\ntitle: Basics\nweight: 10\n---\n# Basics\n",
		"docs/chapter-02.md": "---\ntitle: Setup\nweight: 5\n---\nFirst read [the basics]({{< relref \"docs/chapter-01\" >}}).\n",
	})
	output := filepath.Join(t.TempDir(), "public")

	report := run(t, content, output)
	require.Equal(t, OutcomeSuccess, report.Outcome)
	require.Equal(t, 2, report.Documents)
	require.Equal(t, 1, report.References)

	m := readManifest(t, output)
	docsEntry := m.Root.Children[0]
	require.Equal(t, []string{"docs/chapter-02.md", "docs/chapter-01.md"}, childSources(docsEntry))
	require.Equal(t, "docs/chapter-01/index.html", docsEntry.Children[1].Path)

	page := readPage(t, output, "docs/chapter-02/index.html")
	require.Contains(t, page, `<a href="/docs/chapter-01/">the basics</a>`)
	require.FileExists(t, filepath.Join(output, "docs", "chapter-01", "index.html"))
	require.FileExists(t, filepath.Join(output, "index.html"))
}

func TestBuild_BrokenReferenceIsReportedNotFatal(t *testing.T) {
	content := writeContent(t, map[string]string{
		"docs/chapter-03.md": "---\ntitle: Three\n---\nIntro.\n\nSee [the future]({{< relref \"docs/chapter-99\" >}}).\n",
	})
	output := filepath.Join(t.TempDir(), "public")

	report := run(t, content, output)
	require.Equal(t, OutcomeWarning, report.Outcome)
	require.True(t, report.HasErrors())

	broken := report.IssuesWithCode(IssueBrokenReference)
	require.Len(t, broken, 1)
	require.Equal(t, "docs/chapter-03.md", broken[0].Path)
	require.Equal(t, "docs/chapter-99", broken[0].Ref)
	require.Equal(t, 6, broken[0].Line)
	require.Len(t, report.Issues, 1)

	page := readPage(t, output, "docs/chapter-03/index.html")
	require.Contains(t, page, `class="broken-ref"`)
	require.Contains(t, page, "⚠ the future</span>")
	require.NotContains(t, page, "relref")
}

func TestBuild_SectionIndexOrdersChildren(t *testing.T) {
	content := writeContent(t, map[string]string{
		"docs/_index.md": "---\ntitle: The Book\nbookCollapseSection: false\n---\nWelcome.\n",
		"docs/second.md": "---\nweight: 2\n---\nTwo.\n",
		"docs/first.md":  "---\nweight: 1\n---\nOne.\n",
	})
	output := filepath.Join(t.TempDir(), "public")
	run(t, content, output)

	m := readManifest(t, output)
	section := m.Root.Children[0]
	require.Equal(t, "The Book", section.Title)
	require.Equal(t, "docs/_index.md", section.Source)
	require.False(t, section.Collapsed)
	require.Equal(t, []string{"docs/first.md", "docs/second.md"}, childSources(section))
	require.Contains(t, readPage(t, output, "docs/index.html"), "Welcome.")
}

func TestBuild_MalformedSiblingDoesNotBlockOthers(t *testing.T) {
	content := writeContent(t, map[string]string{
		"docs/bad.md":  "---\ntitle: [unclosed\n---\nBroken.\n",
		"docs/good.md": "---\ntitle: Good\n---\nFine.\n",
	})
	output := filepath.Join(t.TempDir(), "public")

	report := run(t, content, output)
	require.Equal(t, 1, report.Documents)
	require.Equal(t, 1, report.Skipped)
	issues := report.IssuesWithCode(IssueFrontMatterInvalid)
	require.Len(t, issues, 1)
	require.Equal(t, "docs/bad.md", issues[0].Path)

	require.Contains(t, readPage(t, output, "docs/good/index.html"), "Fine.")
	require.NoFileExists(t, filepath.Join(output, "docs", "bad", "index.html"))

	m := readManifest(t, output)
	require.Len(t, m.Skipped, 1)
	require.Equal(t, "docs/bad.md", m.Skipped[0].Path)
}

func snapshot(t *testing.T, root string) map[string]string {
	t.Helper()
	files := map[string]string{}
	require.NoError(t, filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, p)
		files[filepath.ToSlash(rel)] = string(data)
		return nil
	}))
	return files
}

func TestBuild_Idempotent(t *testing.T) {
	content := writeContent(t, map[string]string{
		"_index.md":            "---\ntitle: Swift for Backend Engineers\n---\nHello.\n",
		"docs/_index.md":       "---\nbookCollapseSection: true\n---\n",
		"docs/chapter-01.md":   "---\nweight: 1\n---\n## Setup\n\n{{< hint info >}}Note{{< /hint >}}\n",
		"docs/chapter-02.md":   "---\nweight: 2\n---\n[setup]({{< relref \"chapter-01#setup\" >}})\n\n```swift\nlet x = 1\n```\n",
		"docs/part-2/intro.md": "Body.\n",
	})
	output := filepath.Join(t.TempDir(), "public")

	run(t, content, output)
	first := snapshot(t, output)
	run(t, content, output)
	second := snapshot(t, output)

	require.Equal(t, first, second)
	require.Contains(t, first, "docs/part-2/index.html", "synthetic sections get a listing page")
	require.Contains(t, first, site.ManifestFile)
}

func TestBuild_MissingContentRootIsFatal(t *testing.T) {
	output := filepath.Join(t.TempDir(), "public")
	report, err := NewService().Run(context.Background(), Request{
		ContentRoot: filepath.Join(t.TempDir(), "nope"),
		OutputRoot:  output,
		Config:      testConfig(),
	})
	require.Error(t, err)

	var se *StageError
	require.ErrorAs(t, err, &se)
	require.Equal(t, StageErrorFatal, se.Kind)
	require.Equal(t, StageLoadContent, se.Stage)
	require.Equal(t, OutcomeFailed, report.Outcome)
	require.Equal(t, 4, foundation.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
	require.NoDirExists(t, output)
}

func TestBuild_CheckOnlyWritesNothing(t *testing.T) {
	content := writeContent(t, map[string]string{
		"a.md": "[b]({{< relref \"b\" >}}) and [c](c.md)\n",
		"b.md": "B\n",
	})
	output := filepath.Join(t.TempDir(), "public")
	report, err := NewService().Run(context.Background(), Request{ContentRoot: content, OutputRoot: output, Config: testConfig(), CheckOnly: true})
	require.NoError(t, err)

	require.Equal(t, 1, report.References)
	require.Equal(t, 1, report.BrokenReferences)
	require.NotContains(t, report.StageResults, StageRenderPages)
	require.NoDirExists(t, output)
}

func TestBuild_Canceled(t *testing.T) {
	content := writeContent(t, map[string]string{"a.md": "A\n"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := NewService().Run(ctx, Request{ContentRoot: content, OutputRoot: filepath.Join(t.TempDir(), "out"), Config: testConfig()})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, OutcomeCanceled, report.Outcome)
	require.Len(t, report.IssuesWithCode(IssueCanceled), 1)
}

func TestBuild_SkipIfUnchanged(t *testing.T) {
	content := writeContent(t, map[string]string{"a.md": "A\n"})
	output := filepath.Join(t.TempDir(), "public")
	first := run(t, content, output)
	require.NotEmpty(t, first.ContentHash)

	second, err := NewService().Run(context.Background(), Request{
		ContentRoot:     content,
		OutputRoot:      output,
		Config:          testConfig(),
		SkipIfUnchanged: first.ContentHash,
	})
	require.NoError(t, err)
	require.True(t, second.Unchanged)
	require.NotContains(t, second.StageResults, StageEmitSite)
}

func TestBuild_MissingAnchorAndShortcodeWarnings(t *testing.T) {
	content := writeContent(t, map[string]string{
		"a.md": "# Top\n",
		"b.md": "[x]({{< relref \"a#nowhere\" >}})\n\n{{< youtube id >}}\n",
	})
	output := filepath.Join(t.TempDir(), "public")

	report := run(t, content, output)
	require.Equal(t, OutcomeWarning, report.Outcome)
	require.False(t, report.HasErrors())
	require.Len(t, report.IssuesWithCode(IssueMissingAnchor), 1)
	require.Len(t, report.IssuesWithCode(IssueUnknownShortcode), 1)
}

func TestReport_PersistAndWriteIssues(t *testing.T) {
	content := writeContent(t, map[string]string{"a.md": "{{< relref \"zzz\" >}}\n"})
	report := run(t, content, filepath.Join(t.TempDir(), "public"))

	path := filepath.Join(t.TempDir(), "reports", "build.json")
	require.NoError(t, report.Persist(path))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, "warning", decoded["outcome"])
	require.Equal(t, report.BuildID, decoded["build_id"])
	require.NotEmpty(t, report.ContentHash)
	require.Equal(t, report.ContentHash, decoded["content_hash"])
	require.Len(t, decoded["issues"], 1)

	var sb strings.Builder
	require.NoError(t, report.WriteIssues(&sb))
	require.Equal(t, "error: a.md:1: [BROKEN_REFERENCE] reference \"zzz\" does not match any document\n", sb.String())
}
