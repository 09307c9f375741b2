// Package watch re-validates Mermaid documents as they change on disk and
// writes fixes back in place.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/HendryAvila/mermaidguard/internal/document"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for a burst of events to
// settle before validating.
const DefaultDebounce = 300 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	Root     string
	Exclude  []string
	Debounce time.Duration
	// AutoFix writes fixed content back. Without it changes are only
	// reported.
	AutoFix bool
}

// ReportFunc receives the outcome for every validated file.
type ReportFunc func(res *document.FileResult, err error)

// Watcher monitors a directory tree for .md and .mmd changes.
type Watcher struct {
	watcher   *fsnotify.Watcher
	processor *document.Processor
	opts      Options
	exclude   map[string]bool
	report    ReportFunc
	debouncer *Debouncer

	mu sync.Mutex
	// own holds files this watcher wrote and until when their events are
	// ignored.
	own map[string]time.Time
}

// New creates a Watcher. Call Run to start it.
func New(p *document.Processor, opts Options, report ReportFunc) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	exclude := make(map[string]bool, len(opts.Exclude))
	for _, e := range opts.Exclude {
		exclude[e] = true
	}
	if report == nil {
		report = func(*document.FileResult, error) {}
	}
	return &Watcher{
		watcher:   fw,
		processor: p,
		opts:      opts,
		exclude:   exclude,
		report:    report,
		debouncer: NewDebouncer(opts.Debounce),
		own:       make(map[string]time.Time),
	}, nil
}

// Run watches until ctx is cancelled, then closes the underlying watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()
	defer w.debouncer.Stop()

	if err := w.addTree(w.opts.Root); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("WARNING: watch: %v", err)

		case files := <-w.debouncer.C:
			w.validate(ctx, files)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if w.skipped(event.Name) {
		return
	}
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				log.Printf("WARNING: watch: %v", err)
			}
			return
		}
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	if !document.Handles(event.Name) || w.isOwnWrite(event.Name) {
		return
	}
	w.debouncer.Add(event.Name)
}

func (w *Watcher) validate(ctx context.Context, files []string) {
	for _, path := range files {
		if ctx.Err() != nil {
			return
		}
		res, err := w.processor.ValidateFile(ctx, path, w.opts.AutoFix)
		if err == nil && res.Fixed {
			w.markOwnWrite(path)
		}
		w.report(res, err)
	}
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.skipped(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", path, err)
		}
		return nil
	})
}

// skipped reports whether path is hidden or under an excluded directory.
func (w *Watcher) skipped(path string) bool {
	rel, err := filepath.Rel(w.opts.Root, path)
	if err != nil || rel == "." {
		return false
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if w.exclude[part] || (strings.HasPrefix(part, ".") && part != "..") {
			return true
		}
	}
	return false
}

func (w *Watcher) markOwnWrite(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.own[path] = time.Now().Add(w.opts.Debounce)
}

func (w *Watcher) isOwnWrite(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	until, ok := w.own[path]
	if !ok {
		return false
	}
	if time.Now().After(until) {
		delete(w.own, path)
		return false
	}
	return true
}

// Debouncer collects file changes and releases them as one sorted batch on
// C once no new change arrived for the configured duration.
type Debouncer struct {
	// C delivers batches of changed files.
	C chan []string

	duration time.Duration
	mu       sync.Mutex
	timer    *time.Timer
	files    map[string]struct{}
	stopped  bool
	done     chan struct{}
}

// NewDebouncer creates a Debouncer.
func NewDebouncer(duration time.Duration) *Debouncer {
	return &Debouncer{
		C:        make(chan []string, 1),
		duration: duration,
		files:    make(map[string]struct{}),
		done:     make(chan struct{}),
	}
}

// Add records a change and restarts the quiet period.
func (d *Debouncer) Add(file string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.files[file] = struct{}{}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.duration, d.flush)
}

func (d *Debouncer) flush() {
	d.mu.Lock()
	if d.stopped || len(d.files) == 0 {
		d.mu.Unlock()
		return
	}
	files := make([]string, 0, len(d.files))
	for f := range d.files {
		files = append(files, f)
	}
	d.files = make(map[string]struct{})
	d.mu.Unlock()

	sort.Strings(files)
	select {
	case d.C <- files:
	case <-d.done:
	}
}

// Stop cancels any pending batch.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.stopped = true
	close(d.done)
	if d.timer != nil {
		d.timer.Stop()
	}
}
