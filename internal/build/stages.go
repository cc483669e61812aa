package build

import (
	"context"
	"errors"

	"git.home.luguber.info/inful/bookbuilder/internal/docs"
	derrors "git.home.luguber.info/inful/bookbuilder/internal/docs/errors"
	"git.home.luguber.info/inful/bookbuilder/internal/logfields"
	"git.home.luguber.info/inful/bookbuilder/internal/nav"
	"git.home.luguber.info/inful/bookbuilder/internal/observability"
	"git.home.luguber.info/inful/bookbuilder/internal/render"
	"git.home.luguber.info/inful/bookbuilder/internal/site"
	"git.home.luguber.info/inful/bookbuilder/internal/xref"
)

func stageLoadContent(ctx context.Context, bc *Context) error {
	cfg := bc.Request.Config
	loader := docs.NewLoader(bc.fs, bc.Request.ContentRoot, docs.Options{
		Workers: cfg.Build.Workers,
		Drafts:  cfg.Build.Drafts,
		Exclude: cfg.Build.Exclude,
	})
	res, err := loader.Load(ctx)
	if err != nil {
		return err
	}
	bc.Load = res

	for _, f := range res.Failures {
		code := loadIssueCode(f.Err)
		bc.Report.addIssue(Issue{
			Code:     code,
			Stage:    StageLoadContent,
			Severity: SeverityError,
			Path:     f.Path,
			Message:  f.Err.Error(),
		})
		bc.Skipped = append(bc.Skipped, site.Skip{Path: f.Path, Reason: f.Err.Error()})
		observability.WarnContext(ctx, "Document excluded", logfields.Path(f.Path), logfields.Code(string(code)), logfields.Error(f.Err))
	}

	bc.Report.Documents = len(res.Documents)
	bc.Report.Skipped = len(res.Failures)
	bc.Report.Drafts = len(res.Drafts)
	bc.recorder.SetDocuments(len(res.Documents))

	hash := docs.ContentHash(res.Documents)
	bc.Report.ContentHash = hash
	if want := bc.Request.SkipIfUnchanged; want != "" && want == hash && len(res.Failures) == 0 {
		bc.Report.Unchanged = true
		observability.InfoContext(ctx, "Content unchanged; skipping render and emit")
	}
	return nil
}

func loadIssueCode(err error) IssueCode {
	switch {
	case errors.Is(err, derrors.ErrFrontMatterInvalid):
		return IssueFrontMatterInvalid
	case errors.Is(err, derrors.ErrPathCollision):
		return IssuePathCollision
	default:
		return IssueReadFailed
	}
}

func stageBuildTree(ctx context.Context, bc *Context) error {
	tree, err := nav.Build(bc.Load.Documents, bc.Request.Config.Site.Title)
	if err != nil {
		return newFatalStageError(StageBuildTree, err)
	}
	bc.Tree = tree
	observability.DebugContext(ctx, "Section tree built", logfields.Count(tree.Len()))
	return nil
}

func stageResolveRefs(ctx context.Context, bc *Context) error {
	resolver := xref.NewResolver(bc.Load.Documents, bc.Request.Config.Site.BaseURL)
	table, err := resolver.ResolveAll(ctx, bc.Load.Documents)
	if err != nil {
		return err
	}
	bc.Table = table

	broken := table.Broken()
	for _, b := range broken {
		code := IssueBrokenReference
		if b.Reason == xref.ReasonAmbiguous {
			code = IssueAmbiguousReference
		}
		bc.Report.addIssue(Issue{
			Code:     code,
			Stage:    StageResolveRefs,
			Severity: SeverityError,
			Path:     b.SourcePath,
			Line:     b.Line,
			Ref:      b.Ref,
			Message:  b.Message(),
		})
		observability.WarnContext(ctx, "Broken reference",
			logfields.Path(b.SourcePath), logfields.Line(b.Line), logfields.Ref(b.Ref), logfields.Code(string(code)))
	}
	bc.Report.References = len(table.References())
	bc.Report.BrokenReferences = len(broken)
	return nil
}

func stageRenderPages(ctx context.Context, bc *Context) error {
	cfg := bc.Request.Config
	r := render.New(render.Options{
		SiteTitle:  cfg.Site.Title,
		BaseURL:    cfg.Site.BaseURL,
		Language:   cfg.Site.Language,
		Workers:    cfg.Build.Workers,
		UnsafeHTML: cfg.Render.AllowRawHTML(),
		HardWraps:  cfg.Render.HardWraps,
	}, bc.Tree, bc.Table)
	res, err := r.Render(ctx)
	if err != nil {
		return err
	}
	bc.Rendered = res

	for _, w := range res.Warnings {
		code := IssueUnknownShortcode
		if w.Kind == render.WarnUnclosedShortcode {
			code = IssueUnclosedShortcode
		}
		bc.Report.addIssue(Issue{
			Code:     code,
			Stage:    StageRenderPages,
			Severity: SeverityWarning,
			Path:     w.SourcePath,
			Line:     w.Line,
			Message:  w.Message,
		})
	}
	bc.Report.Pages = len(res.Pages)
	bc.recorder.SetPages(len(res.Pages))
	return nil
}

func stageVerifyAnchors(_ context.Context, bc *Context) error {
	missing, err := render.VerifyAnchors(bc.Rendered.Pages, bc.Table.References())
	if err != nil {
		return err
	}
	for _, m := range missing {
		bc.Report.addIssue(Issue{
			Code:     IssueMissingAnchor,
			Stage:    StageVerifyAnchors,
			Severity: SeverityWarning,
			Path:     m.Ref.SourcePath,
			Line:     m.Ref.Line,
			Ref:      m.Ref.Ref,
			Message:  "anchor #" + m.Ref.Fragment + " not found on " + m.Ref.OutputPath,
		})
	}
	return nil
}

func stageEmitSite(ctx context.Context, bc *Context) error {
	cfg := bc.Request.Config
	manifest := site.NewManifest(cfg.Site.Title, cfg.Site.BaseURL, bc.Tree, bc.Skipped)
	return site.NewEmitter(bc.fs, bc.Request.OutputRoot).Emit(ctx, bc.Rendered.Pages, manifest)
}
