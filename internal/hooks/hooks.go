package hooks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/HendryAvila/mermaidguard/internal/config"
	"github.com/HendryAvila/mermaidguard/internal/document"
	"github.com/HendryAvila/mermaidguard/internal/journal"
	"github.com/HendryAvila/mermaidguard/internal/shellguard"
)

// Log files written under the configured log directory.
const (
	SecurityLogName = "security.log"
	CommandLogName  = "bash-command-log.txt"
)

// Recorder receives hook activity. *journal.Store implements it.
type Recorder interface {
	RecordDiagram(e journal.DiagramEvent) (int64, error)
	RecordCommand(e journal.CommandEvent) (int64, error)
}

// Handler runs the hook entry points against one project configuration.
type Handler struct {
	Processor *document.Processor
	Config    *config.Config
	// Journal is optional.
	Journal Recorder
	Now     func() time.Time
}

// New returns a Handler. rec may be nil.
func New(p *document.Processor, cfg *config.Config, rec Recorder) *Handler {
	return &Handler{Processor: p, Config: cfg, Journal: rec, Now: time.Now}
}

// ─── Pre-write ──────────────────────────────────────────────────────────────

// PreWrite gates Write, Edit and MultiEdit calls on .md and .mmd files.
// Fixable diagrams are rewritten through updatedInput; unfixable ones block
// the call or, with on_unfixable: warn, pass with a system message.
//
// Edits to .mmd files are fragments of a diagram and pass through.
func (h *Handler) PreWrite(ctx context.Context, in *Input) Response {
	path := in.String("file_path")
	if !document.Handles(path) {
		return allow()
	}
	standalone := strings.EqualFold(filepath.Ext(path), ".mmd")

	updated := cloneMap(in.ToolInput)
	var fields []fieldRef
	switch in.ToolName {
	case "Write":
		fields = append(fields, fieldRef{updated, "content"})
	case "Edit":
		if standalone {
			return allow()
		}
		fields = append(fields, fieldRef{updated, "new_string"})
	case "MultiEdit":
		if standalone {
			return allow()
		}
		edits, _ := updated["edits"].([]any)
		for i, e := range edits {
			m, ok := e.(map[string]any)
			if !ok {
				continue
			}
			m = cloneMap(m)
			edits[i] = m
			fields = append(fields, fieldRef{m, "new_string"})
		}
	default:
		return allow()
	}

	var fixedDiagrams int
	var unfixable []string
	for _, f := range fields {
		text, ok := f.m[f.key].(string)
		if !ok {
			continue
		}
		fixed, res, err := h.Processor.EnsureValid(ctx, path, text)
		h.recordDiagrams(path, res)
		switch {
		case errors.Is(err, document.ErrUnfixable):
			unfixable = append(unfixable, strings.TrimPrefix(err.Error(), document.ErrUnfixable.Error()+": "))
		case err != nil:
			return failure(fmt.Errorf("pre-write check of %s: %w", path, err))
		case fixed != text:
			f.m[f.key] = fixed
			fixedDiagrams += countChanged(res)
		}
	}

	if len(unfixable) > 0 {
		msg := fmt.Sprintf("Cannot fix Mermaid diagram: %s\n%s", strings.Join(unfixable, " | "), unfixableHint)
		if h.Config.Hooks.OnUnfixable == config.OnUnfixableWarn {
			return respondJSON(Output{SystemMessage: "mermaidguard: " + msg})
		}
		return block(msg)
	}
	if fixedDiagrams == 0 {
		return allow()
	}
	return respondJSON(Output{HookSpecificOutput: &PreToolUseOutput{
		HookEventName:            "PreToolUse",
		PermissionDecision:       DecisionAllow,
		PermissionDecisionReason: fmt.Sprintf("mermaidguard fixed %d Mermaid diagram(s) in %s", fixedDiagrams, path),
		UpdatedInput:             updated,
	}})
}

const unfixableHint = "Rewrite the diagram following the Mermaid prevention rules: " +
	"quote labels that contain parentheses or special characters, " +
	"use letters for node ids, and close every subgraph with end."

type fieldRef struct {
	m   map[string]any
	key string
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if s, ok := v.([]any); ok {
			v = append([]any(nil), s...)
		}
		out[k] = v
	}
	return out
}

func countChanged(res *document.FileResult) int {
	if res == nil {
		return 0
	}
	n := 0
	for _, d := range res.Diagrams {
		if d.Changed {
			n++
		}
	}
	return n
}

func (h *Handler) recordDiagrams(path string, res *document.FileResult) {
	if h.Journal == nil || res == nil {
		return
	}
	f := *res
	f.Path = path
	for _, e := range journal.EventsFor(journal.SourceHook, f) {
		if _, err := h.Journal.RecordDiagram(e); err != nil {
			log.Printf("WARNING: journal: %v", err)
			return
		}
	}
}

// ─── Bash ───────────────────────────────────────────────────────────────────

// BashGuard screens a Bash tool call with shellguard. Blocked commands exit
// with ExitBlock and an explanation on stderr; warnings are reported but
// let the command run. Every decision is appended to the security log.
func (h *Handler) BashGuard(in *Input) Response {
	command := in.String("command")
	if strings.TrimSpace(command) == "" {
		h.securityLog("No command provided for analysis")
		return allow()
	}

	v := shellguard.Evaluate(command)
	h.recordCommand(in, v)

	if !v.Allowed {
		h.securityLog(fmt.Sprintf("SECURITY ALERT: %s blocked - Pattern: %s - Command: %s", v.Block.About, v.Block.Rule, command))
		return block(v.Reason())
	}

	var stderr strings.Builder
	for _, w := range v.Warnings {
		h.securityLog(fmt.Sprintf("WARNING: %s - Pattern: %s", w.About, w.Rule))
		fmt.Fprintf(&stderr, "WARNING: %s detected in %q. Please review this command carefully.\n", w.About, command)
	}
	h.securityLog("Command security check passed: " + command)
	return Response{ExitCode: ExitAllow, Stderr: stderr.String()}
}

// BashLog appends the command and its description to the command log. It
// never blocks.
func (h *Handler) BashLog(in *Input) Response {
	command := in.String("command")
	if command == "" {
		return allow()
	}
	desc := in.String("description")
	if desc == "" {
		desc = "No description"
	}
	if err := h.appendLog(CommandLogName, fmt.Sprintf("[%s] %s - %s", h.stamp(), command, desc)); err != nil {
		log.Printf("WARNING: %v", err)
	}
	return allow()
}

func (h *Handler) recordCommand(in *Input, v shellguard.Verdict) {
	if h.Journal == nil {
		return
	}
	e := journal.CommandEvent{
		SessionID:   in.SessionID,
		Command:     v.Command,
		Description: in.String("description"),
		Allowed:     v.Allowed,
	}
	if v.Block != nil {
		e.Category = v.Block.Category
		e.Rule = v.Block.Rule
	}
	var warnings []string
	for _, w := range v.Warnings {
		warnings = append(warnings, w.About)
	}
	e.Warnings = strings.Join(warnings, "; ")
	if _, err := h.Journal.RecordCommand(e); err != nil {
		log.Printf("WARNING: journal: %v", err)
	}
}

func (h *Handler) securityLog(msg string) {
	line := fmt.Sprintf("[%s] DANGEROUS_COMMAND_PREVENTION: %s", h.stamp(), msg)
	if err := h.appendLog(SecurityLogName, line); err != nil {
		log.Printf("WARNING: %v", err)
	}
}

func (h *Handler) stamp() string {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	return now().Format("2006-01-02 15:04:05")
}

func (h *Handler) appendLog(name, line string) error {
	dir := h.Config.LogPath()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()
	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// ─── Stop ───────────────────────────────────────────────────────────────────

// StopCheck validates the docs directory without fixing anything and
// summarizes failures on stderr. It always allows the session to stop.
func (h *Handler) StopCheck(ctx context.Context, in *Input) Response {
	if in != nil && in.StopHookActive {
		return allow()
	}
	root := h.Config.DocsPath()
	if _, err := os.Stat(root); err != nil {
		return allow()
	}

	report, err := h.Processor.FinalCheck(ctx, root, document.FinalCheckOptions{
		Workers: h.Config.FinalCheck.Workers,
		Exclude: h.Config.FinalCheck.Exclude,
	})
	if err != nil {
		log.Printf("WARNING: stop check: %v", err)
		return allow()
	}
	for _, f := range report.Files {
		h.recordDiagrams(f.Path, &f)
	}
	if report.OK() {
		return allow()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "mermaidguard: %d of %d files in %s have invalid Mermaid diagrams:\n",
		report.FailedFiles, report.TotalFiles, h.Config.DocsDir)
	for _, f := range report.Files {
		if f.Valid {
			continue
		}
		first := ""
		if len(f.Errors) > 0 {
			first = journal.Truncate(f.Errors[0], 120)
		}
		fmt.Fprintf(&b, "  %s: %s\n", f.Path, first)
	}
	b.WriteString("Run `mermaidguard final-check` to fix them.\n")
	return Response{ExitCode: ExitAllow, Stderr: b.String()}
}
