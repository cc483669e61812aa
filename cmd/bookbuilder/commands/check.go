package commands

import (
	"fmt"

	"git.home.luguber.info/inful/bookbuilder/internal/build"
	foundation "git.home.luguber.info/inful/bookbuilder/internal/foundation/errors"
)

// CheckCmd implements the 'check' command.
type CheckCmd struct {
	ContentRoot string `arg:"" name:"content-root" help:"Directory holding the Markdown sources" type:"path"`

	BuildFlags `embed:""`
}

// Run loads the content and resolves every reference. It fails when a
// document could not be loaded or a reference is broken.
func (c *CheckCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config, c.BuildFlags)
	if err != nil {
		return err
	}
	report, err := newRunner(g, c.BuildFlags).run(build.Request{
		ContentRoot: c.ContentRoot,
		Config:      cfg,
		CheckOnly:   true,
	})
	if err != nil {
		return err
	}
	if report.HasErrors() {
		return foundation.ReferenceError(fmt.Sprintf("check found %d problem(s)", len(report.Issues))).
			WithContext("path", c.ContentRoot).
			Build()
	}
	return nil
}
