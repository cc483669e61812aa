package build

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/bookbuilder/internal/metrics"
)

// Outcome is the final state of a build.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeWarning  Outcome = "warning" // completed with issues
	OutcomeFailed   Outcome = "failed"
	OutcomeCanceled Outcome = "canceled"
)

// IssueCode is a stable, machine-parseable issue identifier. Codes are only
// ever appended.
type IssueCode string

const (
	IssueFrontMatterInvalid IssueCode = "FRONTMATTER_INVALID"
	IssueReadFailed         IssueCode = "READ_FAILED"
	IssuePathCollision      IssueCode = "PATH_COLLISION"
	IssueBrokenReference    IssueCode = "BROKEN_REFERENCE"
	IssueAmbiguousReference IssueCode = "AMBIGUOUS_REFERENCE"
	IssueMissingAnchor      IssueCode = "MISSING_ANCHOR"
	IssueUnknownShortcode   IssueCode = "UNKNOWN_SHORTCODE"
	IssueUnclosedShortcode  IssueCode = "UNCLOSED_SHORTCODE"
	IssueCanceled           IssueCode = "BUILD_CANCELED"
	IssueStageFailed        IssueCode = "STAGE_FAILED"
)

// IssueSeverity is the normalized severity of an issue.
type IssueSeverity string

const (
	SeverityError   IssueSeverity = "error"
	SeverityWarning IssueSeverity = "warning"
)

// Issue is one reported problem.
type Issue struct {
	Code     IssueCode     `json:"code"`
	Stage    StageName     `json:"stage"`
	Severity IssueSeverity `json:"severity"`
	Path     string        `json:"path,omitempty"`
	Line     int           `json:"line,omitempty"`
	Ref      string        `json:"ref,omitempty"`
	Message  string        `json:"message"`
}

func (i Issue) String() string {
	loc := i.Path
	if loc != "" && i.Line > 0 {
		loc = fmt.Sprintf("%s:%d", loc, i.Line)
	}
	if loc != "" {
		loc += ": "
	}
	return fmt.Sprintf("%s: %s[%s] %s", i.Severity, loc, i.Code, i.Message)
}

// Report summarizes one build.
type Report struct {
	SchemaVersion int
	BuildID       string
	ContentRoot   string
	OutputRoot    string
	Start         time.Time
	End           time.Time

	Documents        int
	Pages            int
	Skipped          int
	Drafts           int
	References       int
	BrokenReferences int
	ContentHash      string
	Unchanged        bool // watch mode found the content hash unchanged and skipped emitting

	StageDurations map[StageName]time.Duration
	StageResults   map[StageName]metrics.ResultLabel
	Issues         []Issue
	Outcome        Outcome

	// Err is the fatal or cancellation error, if any.
	Err error
}

func newReport(buildID, contentRoot, outputRoot string) *Report {
	return &Report{
		SchemaVersion:  1,
		BuildID:        buildID,
		ContentRoot:    contentRoot,
		OutputRoot:     outputRoot,
		Start:          time.Now(),
		StageDurations: map[StageName]time.Duration{},
		StageResults:   map[StageName]metrics.ResultLabel{},
	}
}

func (r *Report) addIssue(issue Issue) { r.Issues = append(r.Issues, issue) }

// HasErrors reports whether any error-severity issue was recorded.
func (r *Report) HasErrors() bool {
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// IssuesWithCode returns the issues carrying code.
func (r *Report) IssuesWithCode(code IssueCode) []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Code == code {
			out = append(out, i)
		}
	}
	return out
}

func (r *Report) finish() {
	r.End = time.Now()
	switch {
	case r.Err != nil:
		var se *StageError
		if errors.As(r.Err, &se) && se.Kind == StageErrorCanceled {
			r.Outcome = OutcomeCanceled
		} else {
			r.Outcome = OutcomeFailed
		}
	case len(r.Issues) > 0:
		r.Outcome = OutcomeWarning
	default:
		r.Outcome = OutcomeSuccess
	}
}

// Duration is the wall time of the build.
func (r *Report) Duration() time.Duration { return r.End.Sub(r.Start) }

// Summary returns a human-readable single-line summary.
func (r *Report) Summary() string {
	return fmt.Sprintf("documents=%d pages=%d skipped=%d references=%d broken=%d issues=%d duration=%s outcome=%s",
		r.Documents, r.Pages, r.Skipped, r.References, r.BrokenReferences, len(r.Issues),
		r.Duration().Truncate(time.Millisecond), r.Outcome)
}

// WriteIssues prints one line per issue, e.g.
//
//	error: docs/chapter-03.md:12: [BROKEN_REFERENCE] reference "docs/chapter-99" does not match any document
func (r *Report) WriteIssues(w io.Writer) error {
	for _, i := range r.Issues {
		if _, err := fmt.Fprintln(w, i.String()); err != nil {
			return err
		}
	}
	return nil
}

type reportJSON struct {
	SchemaVersion    int               `json:"schema_version"`
	BuildID          string            `json:"build_id"`
	ContentRoot      string            `json:"content_root"`
	OutputRoot       string            `json:"output_root,omitempty"`
	Start            time.Time         `json:"start"`
	End              time.Time         `json:"end"`
	DurationMS       int64             `json:"duration_ms"`
	Documents        int               `json:"documents"`
	Pages            int               `json:"pages"`
	Skipped          int               `json:"skipped"`
	Drafts           int               `json:"drafts"`
	References       int               `json:"references"`
	BrokenReferences int               `json:"broken_references"`
	ContentHash      string            `json:"content_hash,omitempty"`
	Unchanged        bool              `json:"unchanged,omitempty"`
	StageDurationsMS map[string]int64  `json:"stage_durations_ms"`
	StageResults     map[string]string `json:"stage_results"`
	Issues           []Issue           `json:"issues"`
	Outcome          Outcome           `json:"outcome"`
	Error            string            `json:"error,omitempty"`
}

// MarshalJSON renders durations in milliseconds and the error as a string.
func (r *Report) MarshalJSON() ([]byte, error) {
	out := reportJSON{
		SchemaVersion:    r.SchemaVersion,
		BuildID:          r.BuildID,
		ContentRoot:      r.ContentRoot,
		OutputRoot:       r.OutputRoot,
		Start:            r.Start,
		End:              r.End,
		DurationMS:       r.Duration().Milliseconds(),
		Documents:        r.Documents,
		Pages:            r.Pages,
		Skipped:          r.Skipped,
		Drafts:           r.Drafts,
		References:       r.References,
		BrokenReferences: r.BrokenReferences,
		ContentHash:      r.ContentHash,
		Unchanged:        r.Unchanged,
		StageDurationsMS: make(map[string]int64, len(r.StageDurations)),
		StageResults:     make(map[string]string, len(r.StageResults)),
		Issues:           r.Issues,
		Outcome:          r.Outcome,
	}
	if out.Issues == nil {
		out.Issues = []Issue{}
	}
	for k, v := range r.StageDurations {
		out.StageDurationsMS[string(k)] = v.Milliseconds()
	}
	for k, v := range r.StageResults {
		out.StageResults[string(k)] = string(v)
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return json.Marshal(out)
}

// Persist writes the report as JSON to path through a temp file and rename.
func (r *Report) Persist(path string) error {
	if r.End.IsZero() {
		r.finish()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure report directory: %w", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report json: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp report json: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("atomic rename report json: %w", err)
	}
	return nil
}
