// Package commands implements the bookbuilder subcommands.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/bookbuilder/internal/build"
	"git.home.luguber.info/inful/bookbuilder/internal/config"
	foundation "git.home.luguber.info/inful/bookbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/bookbuilder/internal/logfields"
	"git.home.luguber.info/inful/bookbuilder/internal/metrics"
)

// Global carries process-wide state into every command.
type Global struct {
	Ctx    context.Context
	Stderr io.Writer
}

// CLI is the root command line.
type CLI struct {
	Config  string           `short:"c" help:"YAML configuration file with site, build and render settings" type:"path"`
	Verbose bool             `short:"v" help:"Enable debug logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build BuildCmd `cmd:"" help:"Build the book into an output directory"`
	Check CheckCmd `cmd:"" help:"Load and resolve references without writing anything"`
	Watch WatchCmd `cmd:"" help:"Build, then rebuild whenever the content changes"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply(g *Global) error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(g.stderr(), &slog.HandlerOptions{Level: level})))
	return nil
}

// BuildFlags are shared by every command that runs the pipeline.
type BuildFlags struct {
	Workers     int    `help:"Parallel workers for parsing and rendering (default: number of CPUs)"`
	Drafts      bool   `help:"Include documents marked draft: true"`
	Report      string `help:"Write the JSON build report to this file" type:"path"`
	MetricsFile string `name:"metrics-file" help:"Write Prometheus textfile metrics to this file" type:"path"`
}

func (g *Global) context() context.Context {
	if g == nil || g.Ctx == nil {
		return context.Background()
	}
	return g.Ctx
}

func (g *Global) stderr() io.Writer {
	if g == nil || g.Stderr == nil {
		return io.Discard
	}
	return g.Stderr
}

// loadConfig reads the optional config file and applies flag overrides.
func loadConfig(path string, flags BuildFlags) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if flags.Workers != 0 {
		cfg.Build.Workers = flags.Workers
	}
	if flags.Drafts {
		cfg.Build.Drafts = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// checkReportPath rejects a report location inside the output tree, where the
// next build would delete it.
func checkReportPath(report, output string) error {
	if report == "" || output == "" {
		return nil
	}
	r, err := filepath.Abs(report)
	if err != nil {
		return err
	}
	o, err := filepath.Abs(output)
	if err != nil {
		return err
	}
	if r == o || strings.HasPrefix(r, o+string(filepath.Separator)) {
		return foundation.ValidationError("--report must point outside the output directory").
			WithContext("report", report).
			WithContext("output", output).
			Build()
	}
	return nil
}

// runner executes builds and publishes their results to stderr and the
// optional report and metrics files.
type runner struct {
	global   *Global
	flags    BuildFlags
	recorder *metrics.PrometheusRecorder
	service  *build.Service
}

func newRunner(g *Global, flags BuildFlags) *runner {
	r := &runner{global: g, flags: flags}
	opts := []build.Option{}
	if flags.MetricsFile != "" {
		r.recorder = metrics.NewPrometheusRecorder(nil)
		opts = append(opts, build.WithRecorder(r.recorder))
	}
	r.service = build.NewService(opts...)
	return r
}

func (r *runner) run(req build.Request) (*build.Report, error) {
	report, err := r.service.Run(r.global.context(), req)
	if perr := r.publish(report); perr != nil && err == nil {
		err = perr
	}
	return report, err
}

func (r *runner) publish(report *build.Report) error {
	out := r.global.stderr()
	if report.Unchanged {
		return nil
	}
	if err := report.WriteIssues(out); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(out, report.Summary())

	if r.flags.Report != "" {
		if err := report.Persist(r.flags.Report); err != nil {
			return foundation.FileSystemError("failed to write build report").
				WithCause(err).
				WithContext("path", r.flags.Report).
				Build()
		}
		slog.Debug("Build report written", logfields.Path(r.flags.Report))
	}
	if r.recorder != nil {
		if err := r.recorder.WriteTextfile(r.flags.MetricsFile); err != nil {
			return foundation.FileSystemError("failed to write metrics textfile").
				WithCause(err).
				WithContext("path", r.flags.MetricsFile).
				Build()
		}
	}
	return nil
}
