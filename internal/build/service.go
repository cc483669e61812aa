package build

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"git.home.luguber.info/inful/bookbuilder/internal/config"
	"git.home.luguber.info/inful/bookbuilder/internal/docs"
	"git.home.luguber.info/inful/bookbuilder/internal/logfields"
	"git.home.luguber.info/inful/bookbuilder/internal/metrics"
	"git.home.luguber.info/inful/bookbuilder/internal/nav"
	"git.home.luguber.info/inful/bookbuilder/internal/observability"
	"git.home.luguber.info/inful/bookbuilder/internal/render"
	"git.home.luguber.info/inful/bookbuilder/internal/site"
	"git.home.luguber.info/inful/bookbuilder/internal/xref"
)

// Request contains the inputs of one build.
type Request struct {
	ContentRoot string
	OutputRoot  string
	Config      *config.Config

	// CheckOnly stops after reference resolution; nothing is rendered or written.
	CheckOnly bool

	// SkipIfUnchanged skips rendering and emitting when the content hash
	// equals this value. Watch mode passes the hash of its last build.
	SkipIfUnchanged string
}

// Context is the explicit state of one build. Each stage reads the outputs of
// earlier stages and sets its own; none of them is modified afterwards.
type Context struct {
	Request Request
	Report  *Report

	Load     *docs.LoadResult
	Skipped  []site.Skip
	Tree     *nav.Tree
	Table    *xref.Table
	Rendered *render.Result

	fs       afero.Fs
	recorder metrics.Recorder
}

// Option configures a Service.
type Option func(*Service)

// WithFs sets the filesystem for both content and output (OS by default).
func WithFs(fsys afero.Fs) Option { return func(s *Service) { s.fs = fsys } }

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option { return func(s *Service) { s.recorder = r } }

// Service executes builds. It holds no per-build state and may run builds
// concurrently.
type Service struct {
	fs       afero.Fs
	recorder metrics.Recorder
}

// NewService creates a build service.
func NewService(opts ...Option) *Service {
	s := &Service{fs: afero.NewOsFs(), recorder: metrics.NoopRecorder{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type stageDef struct {
	name StageName
	fn   func(context.Context, *Context) error
}

func (s *Service) stages(req Request) []stageDef {
	defs := []stageDef{
		{StageLoadContent, stageLoadContent},
		{StageBuildTree, stageBuildTree},
		{StageResolveRefs, stageResolveRefs},
	}
	if req.CheckOnly {
		return defs
	}
	return append(defs,
		stageDef{StageRenderPages, stageRenderPages},
		stageDef{StageVerifyAnchors, stageVerifyAnchors},
		stageDef{StageEmitSite, stageEmitSite},
	)
}

// Run executes the pipeline. The returned report is always non-nil; err is
// a *StageError when the build was aborted or canceled.
func (s *Service) Run(ctx context.Context, req Request) (*Report, error) {
	if req.Config == nil {
		req.Config = config.Default()
	}
	buildID := uuid.NewString()
	ctx = observability.WithBuildID(ctx, buildID)

	bc := &Context{
		Request:  req,
		Report:   newReport(buildID, req.ContentRoot, req.OutputRoot),
		fs:       s.fs,
		recorder: s.recorder,
	}
	observability.InfoContext(ctx, "Build started",
		logfields.Path(req.ContentRoot),
		logfields.Workers(req.Config.Build.Workers))

	err := s.runStages(ctx, bc)
	bc.Report.Err = err
	bc.Report.finish()

	s.recorder.ObserveBuildDuration(bc.Report.Duration())
	s.recorder.IncBuildOutcome(string(bc.Report.Outcome))
	for _, issue := range bc.Report.Issues {
		s.recorder.IncIssue(string(issue.Code))
	}

	observability.InfoContext(ctx, "Build finished",
		logfields.Outcome(string(bc.Report.Outcome)),
		logfields.DurationMS(float64(bc.Report.Duration().Milliseconds())),
		slog.Int("issues", len(bc.Report.Issues)))
	return bc.Report, err
}

// runStages executes stages in order, recording timing and stopping on the
// first fatal error or cancellation.
func (s *Service) runStages(ctx context.Context, bc *Context) error {
	for _, st := range s.stages(bc.Request) {
		if bc.Report.Unchanged {
			return nil
		}
		if err := ctx.Err(); err != nil {
			se := newCanceledStageError(st.name, err)
			s.recordFailure(bc, se)
			return se
		}

		sctx := observability.WithStage(ctx, string(st.name))
		issuesBefore := len(bc.Report.Issues)
		t0 := time.Now()
		err := st.fn(sctx, bc)
		dur := time.Since(t0)
		bc.Report.StageDurations[st.name] = dur
		s.recorder.ObserveStageDuration(string(st.name), dur)

		if err != nil {
			se := classifyStageError(st.name, err)
			s.recordFailure(bc, se)
			if se.Kind != StageErrorWarning {
				observability.ErrorContext(sctx, "Stage failed", logfields.Error(se.Err))
				return se
			}
			continue
		}

		result := metrics.ResultSuccess
		if len(bc.Report.Issues) > issuesBefore {
			result = metrics.ResultWarning
		}
		bc.Report.StageResults[st.name] = result
		s.recorder.IncStageResult(string(st.name), result)
		observability.DebugContext(sctx, "Stage complete",
			logfields.DurationMS(float64(dur.Microseconds())/1000),
			logfields.Count(len(bc.Report.Issues)-issuesBefore))
	}
	return nil
}

func (s *Service) recordFailure(bc *Context, se *StageError) {
	result := metrics.ResultFatal
	code := IssueStageFailed
	severity := SeverityError
	switch se.Kind {
	case StageErrorCanceled:
		result = metrics.ResultCanceled
		code = IssueCanceled
	case StageErrorWarning:
		result = metrics.ResultWarning
		severity = SeverityWarning
	}
	bc.Report.StageResults[se.Stage] = result
	s.recorder.IncStageResult(string(se.Stage), result)
	bc.Report.addIssue(Issue{Code: code, Stage: se.Stage, Severity: severity, Message: se.Err.Error()})
}
