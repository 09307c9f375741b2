package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/HendryAvila/mermaidguard/internal/document"
	"github.com/HendryAvila/mermaidguard/internal/mermaid"
)

func TestDebouncer_BatchesChanges(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	d.Add("b.md")
	d.Add("a.md")
	d.Add("b.md")

	select {
	case files := <-d.C:
		if len(files) != 2 || files[0] != "a.md" || files[1] != "b.md" {
			t.Errorf("batch = %v", files)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("debouncer never flushed")
	}
}

func TestDebouncer_StopDropsPending(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	d.Add("a.md")
	d.Stop()
	d.Stop()

	select {
	case files := <-d.C:
		t.Errorf("stopped debouncer flushed %v", files)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSkipped(t *testing.T) {
	w := &Watcher{
		opts:    Options{Root: "/docs"},
		exclude: map[string]bool{"node_modules": true},
	}
	tests := map[string]bool{
		"/docs":                   false,
		"/docs/a.md":              false,
		"/docs/sub/b.mmd":         false,
		"/docs/.git/config":       true,
		"/docs/node_modules/x.md": true,
		"/docs/sub/.hidden.md":    true,
	}
	for path, want := range tests {
		if got := w.skipped(path); got != want {
			t.Errorf("skipped(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestOwnWrites(t *testing.T) {
	w := &Watcher{opts: Options{Debounce: 50 * time.Millisecond}, own: map[string]time.Time{}}
	if w.isOwnWrite("a.md") {
		t.Error("unknown file reported as own write")
	}
	w.markOwnWrite("a.md")
	if !w.isOwnWrite("a.md") {
		t.Error("fresh write should be ignored")
	}
	time.Sleep(80 * time.Millisecond)
	if w.isOwnWrite("a.md") {
		t.Error("own write should expire after one debounce window")
	}
}

func TestWatcher_FixesChangedFile(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "sub")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var results []*document.FileResult
	got := make(chan struct{}, 10)

	p := document.NewProcessor(mermaid.NewFixer(mermaid.StaticChecker{}))
	w, err := New(p, Options{Root: root, Debounce: 50 * time.Millisecond, AutoFix: true},
		func(res *document.FileResult, err error) {
			if err != nil {
				t.Errorf("validate error: %v", err)
				return
			}
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			got <- struct{}{}
		})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	time.Sleep(200 * time.Millisecond)
	path := filepath.Join(sub, "doc.md")
	if err := os.WriteFile(path, []byte("```mermaid\ngraph TD\nA[Start --> B\n```\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-got:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher never validated the file")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "```mermaid\ngraph TD\nA[Start --> B]\n```\n" {
		t.Errorf("file not fixed: %q", data)
	}

	mu.Lock()
	defer mu.Unlock()
	if !results[0].Fixed || results[0].Path != path {
		t.Errorf("first result = %+v", results[0])
	}
}
