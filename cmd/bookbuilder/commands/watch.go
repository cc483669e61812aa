package commands

import (
	"log/slog"
	"time"

	"git.home.luguber.info/inful/bookbuilder/internal/build"
	"git.home.luguber.info/inful/bookbuilder/internal/logfields"
	"git.home.luguber.info/inful/bookbuilder/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	ContentRoot string `arg:"" name:"content-root" help:"Directory holding the Markdown sources" type:"path"`
	OutputRoot  string `arg:"" name:"output-root" help:"Directory that receives the generated site" type:"path"`

	Interval time.Duration `help:"Also rebuild on this interval, e.g. 10m (0 disables)" default:"0s"`
	Debounce time.Duration `help:"Quiet period after a change before rebuilding" default:"300ms"`

	BuildFlags `embed:""`
}

// Run builds once and keeps rebuilding until interrupted.
func (w *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config, w.BuildFlags)
	if err != nil {
		return err
	}
	if err := checkReportPath(w.Report, w.OutputRoot); err != nil {
		return err
	}
	r := newRunner(g, w.BuildFlags)
	req := build.Request{ContentRoot: w.ContentRoot, OutputRoot: w.OutputRoot, Config: cfg}

	watcher := watch.New(r.service, req, watch.Options{
		Debounce: w.Debounce,
		Interval: w.Interval,
		OnBuild: func(report *build.Report, _ error) {
			if report == nil {
				return
			}
			if err := r.publish(report); err != nil {
				slog.Warn("Failed to publish build results", logfields.Error(err))
			}
		},
	})
	return watcher.Run(g.context())
}
