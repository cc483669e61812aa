package build

import (
	"context"
	"errors"
	"fmt"
)

// StageName identifies a pipeline stage.
type StageName string

const (
	StageLoadContent   StageName = "load_content"
	StageBuildTree     StageName = "build_tree"
	StageResolveRefs   StageName = "resolve_refs"
	StageRenderPages   StageName = "render_pages"
	StageVerifyAnchors StageName = "verify_anchors"
	StageEmitSite      StageName = "emit_site"
)

// StageErrorKind enumerates structured stage error categories.
type StageErrorKind string

const (
	StageErrorFatal    StageErrorKind = "fatal"    // build must abort
	StageErrorWarning  StageErrorKind = "warning"  // recorded, build continues
	StageErrorCanceled StageErrorKind = "canceled" // context cancellation
)

// StageError is a stage failure carrying its kind and cause.
type StageError struct {
	Kind  StageErrorKind
	Stage StageName
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage %s: %v", e.Kind, e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

func newFatalStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorFatal, Stage: stage, Err: err}
}

func newCanceledStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorCanceled, Stage: stage, Err: err}
}

// classifyStageError normalizes whatever a stage returned. Context errors
// become cancellations; anything untyped is fatal.
func classifyStageError(stage StageName, err error) *StageError {
	var se *StageError
	if errors.As(err, &se) {
		return se
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return newCanceledStageError(stage, err)
	}
	return newFatalStageError(stage, err)
}
