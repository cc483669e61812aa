package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/require"

	foundation "git.home.luguber.info/inful/bookbuilder/internal/foundation/errors"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stderr bytes.Buffer
	cli := &CLI{}
	g := &Global{Ctx: context.Background(), Stderr: &stderr}
	parser, err := kong.New(cli, kong.Name("bookbuilder"), kong.Vars{"version": "test"}, kong.Bind(g, cli), kong.Exit(func(int) {}))
	require.NoError(t, err)
	kctx, err := parser.Parse(args)
	require.NoError(t, err)
	err = kctx.Run()
	return stderr.String(), err
}

func contentTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, body := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(body), 0o644))
	}
	return root
}

func TestBuildCommand_WritesSiteReportAndMetrics(t *testing.T) {
	content := contentTree(t, map[string]string{
		"a.md": "# A\n\n[b]({{< relref \"b\" >}}) and [gone]({{< relref \"gone\" >}})\n",
		"b.md": "# B\n",
	})
	work := t.TempDir()
	out := filepath.Join(work, "public")
	reportPath := filepath.Join(work, "report.json")
	metricsPath := filepath.Join(work, "bookbuilder.prom")

	stderr, err := execute(t, "build", content, out, "--workers", "2", "--report", reportPath, "--metrics-file", metricsPath)
	require.NoError(t, err)
	require.Contains(t, stderr, "[BROKEN_REFERENCE]")
	require.Contains(t, stderr, "outcome=warning")
	require.FileExists(t, filepath.Join(out, "a", "index.html"))

	raw, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	var report map[string]any
	require.NoError(t, json.Unmarshal(raw, &report))
	require.Equal(t, "warning", report["outcome"])

	prom, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	require.Contains(t, string(prom), "bookbuilder_")
}

func TestBuildCommand_MissingContentRoot(t *testing.T) {
	_, err := execute(t, "build", filepath.Join(t.TempDir(), "missing"), filepath.Join(t.TempDir(), "out"))
	require.Error(t, err)
	require.Equal(t, 4, foundation.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
}

func TestBuildCommand_RejectsReportInsideOutput(t *testing.T) {
	content := contentTree(t, map[string]string{"a.md": "A\n"})
	out := filepath.Join(t.TempDir(), "public")
	_, err := execute(t, "build", content, out, "--report", filepath.Join(out, "report.json"))
	require.True(t, foundation.HasCategory(err, foundation.CategoryValidation))
	require.NoDirExists(t, out)
}

func TestBuildCommand_ConfigFileAndOverrides(t *testing.T) {
	content := contentTree(t, map[string]string{
		"a.md":     "A\n",
		"draft.md": "---\ndraft: true\n---\nD\n",
	})
	cfgPath := filepath.Join(t.TempDir(), "book.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("site:\n  title: Swift for Backend Engineers\n  base_url: /book\n"), 0o644))
	out := filepath.Join(t.TempDir(), "public")

	_, err := execute(t, "--config", cfgPath, "build", content, out, "--drafts")
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(out, "draft", "index.html"))

	page, err := os.ReadFile(filepath.Join(out, "a", "index.html"))
	require.NoError(t, err)
	require.Contains(t, string(page), "Swift for Backend Engineers")
	require.Contains(t, string(page), `href="/book/`)
}

func TestBuildCommand_InvalidConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "book.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("build:\n  workers: -2\n"), 0o644))
	_, err := execute(t, "--config", cfgPath, "build", t.TempDir(), filepath.Join(t.TempDir(), "out"))
	require.True(t, foundation.HasCategory(err, foundation.CategoryConfig))
}

func TestCheckCommand(t *testing.T) {
	clean := contentTree(t, map[string]string{
		"a.md": "[b](b.md)\n",
		"b.md": "B\n",
	})
	_, err := execute(t, "check", clean)
	require.NoError(t, err)

	broken := contentTree(t, map[string]string{"a.md": "[c](c.md)\n"})
	stderr, err := execute(t, "check", broken)
	require.True(t, foundation.HasCategory(err, foundation.CategoryReference))
	require.Equal(t, 1, foundation.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
	require.Contains(t, stderr, `a.md:1: [BROKEN_REFERENCE] reference "c.md"`)
}

func TestCheckReportPath(t *testing.T) {
	require.NoError(t, checkReportPath("", "/out"))
	require.NoError(t, checkReportPath("/reports/r.json", "/out"))
	require.NoError(t, checkReportPath("/outside.json", "/out"))
	require.Error(t, checkReportPath("/out/r.json", "/out"))
	require.Error(t, checkReportPath("/out", "/out"))
}
