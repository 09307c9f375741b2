package hooks_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/HendryAvila/mermaidguard/internal/config"
	"github.com/HendryAvila/mermaidguard/internal/document"
	"github.com/HendryAvila/mermaidguard/internal/hooks"
	"github.com/HendryAvila/mermaidguard/internal/journal"
	"github.com/HendryAvila/mermaidguard/internal/mermaid"
)

type fakeRecorder struct {
	diagrams []journal.DiagramEvent
	commands []journal.CommandEvent
}

func (r *fakeRecorder) RecordDiagram(e journal.DiagramEvent) (int64, error) {
	r.diagrams = append(r.diagrams, e)
	return int64(len(r.diagrams)), nil
}

func (r *fakeRecorder) RecordCommand(e journal.CommandEvent) (int64, error) {
	r.commands = append(r.commands, e)
	return int64(len(r.commands)), nil
}

func newHandler(t *testing.T) (*hooks.Handler, *fakeRecorder) {
	t.Helper()
	cfg := config.Default()
	cfg.Root = t.TempDir()
	rec := &fakeRecorder{}
	h := hooks.New(document.NewProcessor(mermaid.NewFixer(mermaid.StaticChecker{})), cfg, rec)
	h.Now = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.Local) }
	return h, rec
}

func toolInput(tool string, fields map[string]any) *hooks.Input {
	return &hooks.Input{
		SessionID:     "sess-1",
		HookEventName: "PreToolUse",
		ToolName:      tool,
		ToolInput:     fields,
	}
}

func decodeOutput(t *testing.T, resp hooks.Response) hooks.Output {
	t.Helper()
	var out hooks.Output
	if err := json.Unmarshal([]byte(resp.Stdout), &out); err != nil {
		t.Fatalf("stdout is not hook JSON: %v (%q)", err, resp.Stdout)
	}
	return out
}

func readLog(t *testing.T, h *hooks.Handler, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(h.Config.LogPath(), name))
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return string(data)
}

// ─── ReadInput ──────────────────────────────────────────────────────────────

func TestReadInput(t *testing.T) {
	in, err := hooks.ReadInput(strings.NewReader(`{"session_id":"abc","tool_name":"Bash","tool_input":{"command":"ls"}}`))
	if err != nil {
		t.Fatalf("ReadInput() error: %v", err)
	}
	if in.SessionID != "abc" || in.ToolName != "Bash" || in.String("command") != "ls" {
		t.Errorf("unexpected input %+v", in)
	}
	if in.String("missing") != "" {
		t.Error("missing field should be empty")
	}
}

func TestReadInput_Empty(t *testing.T) {
	if _, err := hooks.ReadInput(strings.NewReader("  \n")); !errors.Is(err, hooks.ErrNoInput) {
		t.Errorf("expected ErrNoInput, got %v", err)
	}
	if _, err := hooks.ReadInput(strings.NewReader("{nope")); err == nil || errors.Is(err, hooks.ErrNoInput) {
		t.Errorf("expected decode error, got %v", err)
	}
}

type ttyReader struct{ *strings.Reader }

func (ttyReader) Fd() uintptr { return 0 }

func TestReadInput_Terminal(t *testing.T) {
	restore := hooks.SetIsTerminal(func(uintptr) bool { return true })
	defer restore()

	_, err := hooks.ReadInput(ttyReader{strings.NewReader(`{"tool_name":"Bash"}`)})
	if !errors.Is(err, hooks.ErrNoInput) {
		t.Errorf("expected ErrNoInput for a terminal, got %v", err)
	}
}

// ─── PreWrite ───────────────────────────────────────────────────────────────

func TestPreWrite_FixesWrite(t *testing.T) {
	h, rec := newHandler(t)
	in := toolInput("Write", map[string]any{
		"file_path": "/proj/output/doc.md",
		"content":   "# Doc\n```mermaid\ngraph TD\nA[Start --> B\n```\n",
	})

	resp := h.PreWrite(context.Background(), in)
	if resp.ExitCode != hooks.ExitAllow {
		t.Fatalf("exit = %d, stderr %q", resp.ExitCode, resp.Stderr)
	}
	out := decodeOutput(t, resp)
	if out.HookSpecificOutput == nil || out.HookSpecificOutput.PermissionDecision != hooks.DecisionAllow {
		t.Fatalf("expected allow decision, got %+v", out)
	}
	got := out.HookSpecificOutput.UpdatedInput["content"]
	if got != "# Doc\n```mermaid\ngraph TD\nA[Start --> B]\n```\n" {
		t.Errorf("updated content = %q", got)
	}
	if out.HookSpecificOutput.UpdatedInput["file_path"] != "/proj/output/doc.md" {
		t.Error("other fields must be carried over")
	}
	if in.ToolInput["content"] == got {
		t.Error("original input must not be mutated")
	}
	if len(rec.diagrams) != 1 || !rec.diagrams[0].Changed || rec.diagrams[0].Source != journal.SourceHook {
		t.Errorf("recorded diagrams = %+v", rec.diagrams)
	}
}

func TestPreWrite_ValidContentPassesSilently(t *testing.T) {
	h, _ := newHandler(t)
	resp := h.PreWrite(context.Background(), toolInput("Write", map[string]any{
		"file_path": "flow.mmd",
		"content":   "graph TD\n    A --> B\n",
	}))
	if resp.ExitCode != hooks.ExitAllow || resp.Stdout != "" {
		t.Errorf("expected silent allow, got %+v", resp)
	}
}

func TestPreWrite_IgnoresOtherFiles(t *testing.T) {
	h, rec := newHandler(t)
	resp := h.PreWrite(context.Background(), toolInput("Write", map[string]any{
		"file_path": "main.go",
		"content":   "```mermaid\ngraph TD\nA[broken\n```",
	}))
	if resp.ExitCode != hooks.ExitAllow || resp.Stdout != "" {
		t.Errorf("non-diagram files must pass through, got %+v", resp)
	}
	if len(rec.diagrams) != 0 {
		t.Error("nothing should be recorded")
	}
}

func TestPreWrite_BlocksUnfixable(t *testing.T) {
	h, _ := newHandler(t)
	resp := h.PreWrite(context.Background(), toolInput("Write", map[string]any{
		"file_path": "seq.mmd",
		"content":   "sequenceDiagram\n%% nothing\n",
	}))
	if resp.ExitCode != hooks.ExitBlock {
		t.Fatalf("exit = %d, want %d", resp.ExitCode, hooks.ExitBlock)
	}
	if !strings.Contains(resp.Stderr, "Cannot fix Mermaid diagram") || !strings.Contains(resp.Stderr, "seq.mmd") {
		t.Errorf("stderr = %q", resp.Stderr)
	}
}

func TestPreWrite_WarnMode(t *testing.T) {
	h, _ := newHandler(t)
	h.Config.Hooks.OnUnfixable = config.OnUnfixableWarn
	resp := h.PreWrite(context.Background(), toolInput("Write", map[string]any{
		"file_path": "seq.mmd",
		"content":   "sequenceDiagram\n%% nothing\n",
	}))
	if resp.ExitCode != hooks.ExitAllow {
		t.Fatalf("warn mode must not block, exit %d", resp.ExitCode)
	}
	if out := decodeOutput(t, resp); !strings.Contains(out.SystemMessage, "Cannot fix Mermaid diagram") {
		t.Errorf("system message = %q", out.SystemMessage)
	}
}

func TestPreWrite_EditOfStandaloneFilePassesThrough(t *testing.T) {
	h, _ := newHandler(t)
	resp := h.PreWrite(context.Background(), toolInput("Edit", map[string]any{
		"file_path":  "flow.mmd",
		"old_string": "A --> B",
		"new_string": "A[broken --> B",
	}))
	if resp.ExitCode != hooks.ExitAllow || resp.Stdout != "" {
		t.Errorf("expected pass-through, got %+v", resp)
	}
}

func TestPreWrite_MultiEdit(t *testing.T) {
	h, _ := newHandler(t)
	edits := []any{
		map[string]any{"old_string": "a", "new_string": "plain prose"},
		map[string]any{"old_string": "b", "new_string": "```mermaid\ngraph TD\nA[Start --> B\n```"},
	}
	in := toolInput("MultiEdit", map[string]any{"file_path": "doc.md", "edits": edits})

	resp := h.PreWrite(context.Background(), in)
	out := decodeOutput(t, resp)
	if out.HookSpecificOutput == nil {
		t.Fatalf("expected updated input, got %+v", resp)
	}
	got, ok := out.HookSpecificOutput.UpdatedInput["edits"].([]any)
	if !ok || len(got) != 2 {
		t.Fatalf("edits = %#v", out.HookSpecificOutput.UpdatedInput["edits"])
	}
	second := got[1].(map[string]any)
	if second["new_string"] != "```mermaid\ngraph TD\nA[Start --> B]\n```" {
		t.Errorf("second edit = %q", second["new_string"])
	}
	if edits[1].(map[string]any)["new_string"] == second["new_string"] {
		t.Error("original edits must not be mutated")
	}
}

// ─── Bash ───────────────────────────────────────────────────────────────────

func TestBashGuard_Blocks(t *testing.T) {
	h, rec := newHandler(t)
	resp := h.BashGuard(toolInput("Bash", map[string]any{"command": "rm -rf /"}))
	if resp.ExitCode != hooks.ExitBlock {
		t.Fatalf("exit = %d, want block", resp.ExitCode)
	}
	if !strings.Contains(resp.Stderr, "SECURITY ALERT") {
		t.Errorf("stderr = %q", resp.Stderr)
	}
	logText := readLog(t, h, hooks.SecurityLogName)
	if !strings.Contains(logText, "[2026-03-04 05:06:07] DANGEROUS_COMMAND_PREVENTION: SECURITY ALERT") {
		t.Errorf("security log = %q", logText)
	}
	if len(rec.commands) != 1 || rec.commands[0].Allowed || rec.commands[0].Category == "" {
		t.Errorf("recorded commands = %+v", rec.commands)
	}
}

func TestBashGuard_WarnsButAllows(t *testing.T) {
	h, rec := newHandler(t)
	resp := h.BashGuard(toolInput("Bash", map[string]any{"command": "sudo apt-get update"}))
	if resp.ExitCode != hooks.ExitAllow {
		t.Fatalf("exit = %d, want allow", resp.ExitCode)
	}
	if !strings.Contains(resp.Stderr, "WARNING") {
		t.Errorf("stderr = %q", resp.Stderr)
	}
	if len(rec.commands) != 1 || !rec.commands[0].Allowed || rec.commands[0].Warnings == "" {
		t.Errorf("recorded commands = %+v", rec.commands)
	}
	if !strings.Contains(readLog(t, h, hooks.SecurityLogName), "Command security check passed: sudo apt-get update") {
		t.Error("expected pass entry in security log")
	}
}

func TestBashGuard_EmptyCommand(t *testing.T) {
	h, rec := newHandler(t)
	if resp := h.BashGuard(toolInput("Bash", nil)); resp.ExitCode != hooks.ExitAllow {
		t.Errorf("empty command should be allowed, exit %d", resp.ExitCode)
	}
	if len(rec.commands) != 0 {
		t.Error("empty command should not be recorded")
	}
}

func TestBashLog(t *testing.T) {
	h, _ := newHandler(t)
	h.BashLog(toolInput("Bash", map[string]any{"command": "go test ./...", "description": "Run tests"}))
	h.BashLog(toolInput("Bash", map[string]any{"command": "ls"}))

	want := "[2026-03-04 05:06:07] go test ./... - Run tests\n[2026-03-04 05:06:07] ls - No description\n"
	if got := readLog(t, h, hooks.CommandLogName); got != want {
		t.Errorf("command log = %q, want %q", got, want)
	}
}

// ─── Stop ───────────────────────────────────────────────────────────────────

func TestStopCheck_ReportsWithoutFixing(t *testing.T) {
	h, rec := newHandler(t)
	docs := h.Config.DocsPath()
	if err := os.MkdirAll(docs, 0o755); err != nil {
		t.Fatal(err)
	}
	broken := "```mermaid\ngraph TD\nA[Start --> B\n```\n"
	if err := os.WriteFile(filepath.Join(docs, "fixable.md"), []byte(broken), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(docs, "bad.mmd"), []byte("sequenceDiagram\n%% nothing\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	resp := h.StopCheck(context.Background(), &hooks.Input{HookEventName: "Stop"})
	if resp.ExitCode != hooks.ExitAllow {
		t.Fatalf("stop check must never block, exit %d", resp.ExitCode)
	}
	if !strings.Contains(resp.Stderr, "1 of 2 files") || !strings.Contains(resp.Stderr, "bad.mmd") {
		t.Errorf("stderr = %q", resp.Stderr)
	}
	data, _ := os.ReadFile(filepath.Join(docs, "fixable.md"))
	if string(data) != broken {
		t.Error("stop check must not write fixes")
	}
	if len(rec.diagrams) != 2 {
		t.Errorf("expected two diagram events, got %d", len(rec.diagrams))
	}
}

func TestStopCheck_NoDocsDir(t *testing.T) {
	h, _ := newHandler(t)
	resp := h.StopCheck(context.Background(), &hooks.Input{})
	if resp.ExitCode != hooks.ExitAllow || resp.Stderr != "" {
		t.Errorf("missing docs dir should be silent, got %+v", resp)
	}
}
