package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyDocument   = "document"
	KeyPath       = "path"
	KeyRef        = "ref"
	KeyLine       = "line"
	KeyCode       = "code"
	KeyCount      = "count"
	KeyWorkers    = "workers"
	KeyOutcome    = "outcome"
	KeyEvent      = "event"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Document(id string) slog.Attr    { return slog.String(KeyDocument, id) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Ref(r string) slog.Attr          { return slog.String(KeyRef, r) }
func Line(n int) slog.Attr            { return slog.Int(KeyLine, n) }
func Code(c string) slog.Attr         { return slog.String(KeyCode, c) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Workers(n int) slog.Attr         { return slog.Int(KeyWorkers, n) }
func Outcome(o string) slog.Attr      { return slog.String(KeyOutcome, o) }
func Event(e string) slog.Attr        { return slog.String(KeyEvent, e) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
