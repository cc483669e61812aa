package commands

import (
	"git.home.luguber.info/inful/bookbuilder/internal/build"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	ContentRoot string `arg:"" name:"content-root" help:"Directory holding the Markdown sources" type:"path"`
	OutputRoot  string `arg:"" name:"output-root" help:"Directory that receives the generated site" type:"path"`

	BuildFlags `embed:""`
}

// Run builds once. Per-document and per-reference problems are printed but
// do not fail the command.
func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config, b.BuildFlags)
	if err != nil {
		return err
	}
	if err := checkReportPath(b.Report, b.OutputRoot); err != nil {
		return err
	}
	_, err = newRunner(g, b.BuildFlags).run(build.Request{
		ContentRoot: b.ContentRoot,
		OutputRoot:  b.OutputRoot,
		Config:      cfg,
	})
	return err
}
