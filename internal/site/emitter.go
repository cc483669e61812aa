// Package site writes rendered pages and the navigation manifest to the
// output root through a staging directory that is promoted only after every
// file was written.
package site

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	foundation "git.home.luguber.info/inful/bookbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/bookbuilder/internal/logfields"
	"git.home.luguber.info/inful/bookbuilder/internal/render"
)

// Emitter writes a site to an output root.
type Emitter struct {
	fs     afero.Fs
	output string
}

// NewEmitter creates an emitter for output on fsys.
func NewEmitter(fsys afero.Fs, output string) *Emitter {
	return &Emitter{fs: fsys, output: filepath.Clean(output)}
}

// StageDir is the sibling directory pages are written to before promotion.
func (e *Emitter) StageDir() string { return e.output + "_stage" }

// PrevDir holds the previous output during promotion.
func (e *Emitter) PrevDir() string { return e.output + ".prev" }

// Emit writes pages and the manifest, then replaces the output root with
// the result. On any error the staging directory is removed and the output
// root is left as it was.
func (e *Emitter) Emit(ctx context.Context, pages []*render.Page, manifest *Manifest) (err error) {
	stage, err := e.beginStaging()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			e.abortStaging(stage)
		}
	}()

	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.write(stage, page.OutputPath, page.HTML); err != nil {
			return err
		}
	}

	data, err := manifest.Marshal()
	if err != nil {
		return foundation.WrapError(err, foundation.CategoryInternal, "encode navigation manifest").Fatal().Build()
	}
	if err := e.write(stage, ManifestFile, data); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.promote(stage)
}

func (e *Emitter) write(stage, rel string, data []byte) error {
	target := filepath.Join(stage, filepath.FromSlash(rel))
	if err := e.fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return foundation.FileSystemError("create page directory").WithCause(err).WithContext("path", rel).Build()
	}
	if err := afero.WriteFile(e.fs, target, data, 0o644); err != nil {
		return foundation.FileSystemError("write page").WithCause(err).WithContext("path", rel).Build()
	}
	return nil
}

func (e *Emitter) beginStaging() (string, error) {
	if err := e.fs.MkdirAll(filepath.Dir(e.output), 0o755); err != nil {
		return "", foundation.FileSystemError("output root cannot be created").WithCause(err).WithContext("output", e.output).Build()
	}
	stage := e.StageDir()
	// A stage left by an interrupted build is stale.
	if err := e.fs.RemoveAll(stage); err != nil {
		return "", foundation.FileSystemError("remove stale staging directory").WithCause(err).WithContext("staging", stage).Build()
	}
	if err := e.fs.MkdirAll(stage, 0o755); err != nil {
		return "", foundation.FileSystemError("output root cannot be created").WithCause(err).WithContext("staging", stage).Build()
	}
	slog.Debug("Initialized staging directory", "staging", stage, logfields.Path(e.output))
	return stage, nil
}

// promote moves the current output aside, renames the stage into place and
// drops the previous output.
func (e *Emitter) promote(stage string) error {
	prev := e.PrevDir()
	if err := e.fs.RemoveAll(prev); err != nil {
		return foundation.FileSystemError("remove previous backup").WithCause(err).WithContext("path", prev).Build()
	}
	hadOutput := false
	if _, err := e.fs.Stat(e.output); err == nil {
		if err := e.fs.Rename(e.output, prev); err != nil {
			return foundation.FileSystemError("backup existing output").WithCause(err).WithContext("output", e.output).Build()
		}
		hadOutput = true
	} else if !os.IsNotExist(err) {
		return foundation.FileSystemError("inspect output root").WithCause(err).WithContext("output", e.output).Build()
	}

	if err := e.fs.Rename(stage, e.output); err != nil {
		if hadOutput {
			if rerr := e.fs.Rename(prev, e.output); rerr != nil {
				slog.Error("Failed to restore previous output", logfields.Path(e.output), logfields.Error(rerr))
			}
		}
		return foundation.FileSystemError("promote staging directory").WithCause(err).WithContext("output", e.output).Build()
	}
	if hadOutput {
		if err := e.fs.RemoveAll(prev); err != nil {
			slog.Warn("Failed to remove previous output", logfields.Path(prev), logfields.Error(err))
		}
	}
	slog.Info("Promoted staging directory", logfields.Path(e.output))
	return nil
}

func (e *Emitter) abortStaging(stage string) {
	if err := e.fs.RemoveAll(stage); err != nil {
		slog.Warn("Failed to remove staging directory after abort", "staging", stage, logfields.Error(err))
		return
	}
	slog.Debug("Removed staging directory after abort", "staging", stage)
}
