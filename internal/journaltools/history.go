package journaltools

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/mermaidguard/internal/journal"
	"github.com/HendryAvila/mermaidguard/internal/tools"
	"github.com/mark3labs/mcp-go/mcp"
)

// History kinds.
const (
	KindCommands = "commands"
	KindRuns     = "runs"
	KindDiagrams = "diagrams"
)

// HistoryTool handles the guard_history MCP tool.
type HistoryTool struct {
	store *journal.Store
}

// NewHistoryTool creates a HistoryTool.
func NewHistoryTool(store *journal.Store) *HistoryTool {
	return &HistoryTool{store: store}
}

// Definition returns the MCP tool definition for guard_history.
func (t *HistoryTool) Definition() mcp.Tool {
	return mcp.NewTool("guard_history",
		mcp.WithDescription(
			"Browse the guard journal: screened shell commands (searchable), final-check runs, "+
				"or recent diagram validations. Use this to see why a command was blocked before "+
				"or which documents keep producing broken diagrams.",
		),
		mcp.WithString("kind",
			mcp.Description("What to list: commands (default), runs, or diagrams"),
			mcp.Enum(KindCommands, KindRuns, KindDiagrams),
		),
		mcp.WithString("query",
			mcp.Description("Full-text search over commands (kind=commands only)"),
		),
		mcp.WithBoolean("blocked_only",
			mcp.Description("Only list blocked commands (kind=commands, ignored with query)"),
		),
		mcp.WithString("run_id",
			mcp.Description("List the diagrams of one run (kind=diagrams)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default: 10)"),
		),
	)
}

// Handle processes the guard_history tool call.
func (t *HistoryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := tools.IntArg(req, "limit", 10)
	switch kind := req.GetString("kind", KindCommands); kind {
	case KindCommands:
		return t.commands(req, limit)
	case KindRuns:
		return t.runs(limit)
	case KindDiagrams:
		return t.diagrams(req.GetString("run_id", ""), limit)
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown kind %q: use commands, runs or diagrams", kind)), nil
	}
}

func (t *HistoryTool) commands(req mcp.CallToolRequest, limit int) (*mcp.CallToolResult, error) {
	var (
		events []journal.CommandEvent
		err    error
	)
	if q := req.GetString("query", ""); q != "" {
		events, err = t.store.SearchCommands(q, limit)
	} else {
		events, err = t.store.RecentCommands(limit, tools.BoolArg(req, "blocked_only", false))
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("history failed: %v", err)), nil
	}
	if len(events) == 0 {
		return mcp.NewToolResultText("No commands recorded."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d commands:\n\n", len(events))
	for _, e := range events {
		status := "✅"
		if !e.Allowed {
			status = "🛑"
		}
		fmt.Fprintf(&b, "- %s [%s] `%s`", status, e.CreatedAt, journal.Truncate(e.Command, 120))
		if e.Category != "" {
			fmt.Fprintf(&b, " (%s)", e.Category)
		}
		if e.Warnings != "" {
			fmt.Fprintf(&b, " ⚠️ %s", e.Warnings)
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (t *HistoryTool) runs(limit int) (*mcp.CallToolResult, error) {
	runs, err := t.store.RecentRuns(limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("history failed: %v", err)), nil
	}
	if len(runs) == 0 {
		return mcp.NewToolResultText("No final-check runs recorded."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d runs:\n\n", len(runs))
	for _, r := range runs {
		fmt.Fprintf(&b, "- **%s** [%s] %s: %d files, %d valid, %d fixed, %d failed (%s)\n",
			r.ID, r.StartedAt, r.Root, r.TotalFiles, r.ValidFiles, r.FixedFiles, r.FailedFiles, r.Source)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (t *HistoryTool) diagrams(runID string, limit int) (*mcp.CallToolResult, error) {
	events, err := t.store.DiagramEvents(runID, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("history failed: %v", err)), nil
	}
	if len(events) == 0 {
		return mcp.NewToolResultText("No diagram validations recorded."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d diagram validations:\n\n", len(events))
	for _, e := range events {
		status := "✅"
		switch {
		case !e.Valid:
			status = "❌"
		case e.Changed:
			status = "🔧"
		}
		fmt.Fprintf(&b, "- %s %s:%d (%d attempts, %s)\n", status, e.Path, e.Line, e.Attempts, e.Source)
		if e.Errors != "" {
			fmt.Fprintf(&b, "  %s\n", journal.Truncate(strings.ReplaceAll(e.Errors, "\n", "; "), 200))
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}
