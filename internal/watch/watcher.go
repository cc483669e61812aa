// Package watch rebuilds a book whenever its content root changes.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/bookbuilder/internal/build"
	foundation "git.home.luguber.info/inful/bookbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/bookbuilder/internal/logfields"
	"git.home.luguber.info/inful/bookbuilder/internal/observability"
)

// DefaultDebounce is how long the watcher waits for a burst of events to
// settle before rebuilding.
const DefaultDebounce = 300 * time.Millisecond

// Builder runs one build. *build.Service satisfies it.
type Builder interface {
	Run(ctx context.Context, req build.Request) (*build.Report, error)
}

// Options tunes a Watcher.
type Options struct {
	Debounce time.Duration
	// Interval schedules an additional rebuild every period; zero disables it.
	Interval time.Duration
	// OnBuild is called after every build, including skipped ones.
	OnBuild func(*build.Report, error)
}

// Watcher runs an initial build and then rebuilds on change. Builds never
// overlap; triggers that arrive while a build runs collapse into one follow-up.
type Watcher struct {
	builder Builder
	req     build.Request
	opts    Options

	rebuildReq chan struct{}
	mu         sync.Mutex
	timer      *time.Timer
	lastHash   string
	builds     int
}

// New creates a watcher for req.ContentRoot.
func New(builder Builder, req build.Request, opts Options) *Watcher {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	return &Watcher{
		builder:    builder,
		req:        req,
		opts:       opts,
		rebuildReq: make(chan struct{}, 1),
	}
}

// Run blocks until ctx is done. It fails only when the content root cannot be
// watched or the scheduler cannot start; build failures are reported through
// OnBuild and the watcher keeps going.
func (w *Watcher) Run(ctx context.Context) error {
	root, err := filepath.Abs(w.req.ContentRoot)
	if err != nil {
		return fmt.Errorf("resolve content root: %w", err)
	}
	if info, statErr := os.Stat(root); statErr != nil || !info.IsDir() {
		return foundation.NotFoundError("content root not found").
			WithCause(statErr).
			WithContext("path", root).
			Build()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer func() { _ = fw.Close() }()
	if err := addDirsRecursive(ctx, fw, root); err != nil {
		return err
	}

	if w.opts.Interval > 0 {
		sched, err := w.schedule()
		if err != nil {
			return err
		}
		sched.Start()
		defer func() {
			if err := sched.Shutdown(); err != nil {
				observability.WarnContext(ctx, "Scheduler shutdown failed", logfields.Error(err))
			}
		}()
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.rebuildLoop(ctx)
	}()
	w.request()

	observability.InfoContext(ctx, "Watching content root", logfields.Path(root))
	ignore := w.ignoredRoots()
	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			wg.Wait()
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				wg.Wait()
				return nil
			}
			w.handleEvent(ctx, fw, ev, ignore)
		case err, ok := <-fw.Errors:
			if !ok {
				wg.Wait()
				return nil
			}
			observability.WarnContext(ctx, "Watcher error", logfields.Error(err))
		}
	}
}

// Builds returns the number of builds run so far, skipped ones included.
func (w *Watcher) Builds() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.builds
}

func (w *Watcher) schedule() (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(w.opts.Interval),
		gocron.NewTask(w.request),
		gocron.WithName("periodic-rebuild"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("failed to create periodic rebuild job: %w", err)
	}
	return sched, nil
}

func (w *Watcher) handleEvent(ctx context.Context, fw *fsnotify.Watcher, ev fsnotify.Event, ignore []string) {
	if shouldIgnoreEvent(ev.Name) || under(ev.Name, ignore) {
		return
	}
	if ev.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = addDirsRecursive(ctx, fw, ev.Name)
		}
	}
	observability.DebugContext(ctx, "File change detected", logfields.Path(ev.Name), logfields.Event(ev.Op.String()))
	w.trigger()
}

// trigger (re)arms the debounce timer.
func (w *Watcher) trigger() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.opts.Debounce, w.request)
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

// request queues a rebuild; it is a no-op when one is already queued.
func (w *Watcher) request() {
	select {
	case w.rebuildReq <- struct{}{}:
	default:
	}
}

func (w *Watcher) rebuildLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.rebuildReq:
			w.rebuild(ctx)
		}
	}
}

func (w *Watcher) rebuild(ctx context.Context) {
	req := w.req
	w.mu.Lock()
	req.SkipIfUnchanged = w.lastHash
	w.mu.Unlock()

	report, err := w.builder.Run(ctx, req)

	w.mu.Lock()
	w.builds++
	if err == nil && report != nil && report.Outcome != build.OutcomeFailed && report.Outcome != build.OutcomeCanceled {
		w.lastHash = report.ContentHash
	}
	w.mu.Unlock()

	switch {
	case err != nil:
		observability.WarnContext(ctx, "Rebuild failed", logfields.Error(err))
	case report != nil && report.Unchanged:
		observability.DebugContext(ctx, "Content unchanged; output kept")
	case report != nil:
		observability.InfoContext(ctx, "Rebuilt site", logfields.Outcome(string(report.Outcome)), logfields.Count(len(report.Issues)))
	}
	if w.opts.OnBuild != nil {
		w.opts.OnBuild(report, err)
	}
}

// ignoredRoots lists the output tree and its staging siblings, which may sit
// inside the content root.
func (w *Watcher) ignoredRoots() []string {
	if w.req.OutputRoot == "" {
		return nil
	}
	out, err := filepath.Abs(w.req.OutputRoot)
	if err != nil {
		return nil
	}
	return []string{out, out + "_stage", out + ".prev"}
}

func under(p string, roots []string) bool {
	for _, r := range roots {
		if p == r || strings.HasPrefix(p, r+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func addDirsRecursive(ctx context.Context, w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			observability.WarnContext(ctx, "Watch add failed", logfields.Path(path), logfields.Error(err))
		}
		return nil
	})
}

// shouldIgnoreEvent filters hidden, editor swap and OS metadata files.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)
	switch {
	case strings.HasPrefix(base, "."):
		return true
	case strings.HasSuffix(base, "~"), strings.HasSuffix(base, ".swp"), strings.HasSuffix(base, ".swx"):
		return true
	case strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#"):
		return true
	case base == "Thumbs.db":
		return true
	}
	return false
}
