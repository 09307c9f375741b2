package journaltools

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/mermaidguard/internal/journal"
	"github.com/mark3labs/mcp-go/mcp"
)

// StatsTool handles the guard_stats MCP tool.
type StatsTool struct {
	store *journal.Store
}

// NewStatsTool creates a StatsTool with the given journal store.
func NewStatsTool(store *journal.Store) *StatsTool {
	return &StatsTool{store: store}
}

// Definition returns the MCP tool definition for guard_stats.
func (t *StatsTool) Definition() mcp.Tool {
	return mcp.NewTool("guard_stats",
		mcp.WithDescription(
			"Show guard statistics: final-check runs, diagrams validated and fixed, "+
				"shell commands screened and blocked, and the rules that block most often.",
		),
	)
}

// Handle processes the guard_stats tool call.
func (t *StatsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := t.store.Stats()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get stats: %v", err)), nil
	}

	var sb strings.Builder
	sb.WriteString("## Guard Statistics\n\n")
	sb.WriteString(fmt.Sprintf("- **Final-check runs**: %d\n", stats.TotalRuns))
	sb.WriteString(fmt.Sprintf("- **Diagrams checked**: %d (%d fixed, %d broken)\n",
		stats.TotalDiagrams, stats.ChangedDiagrams, stats.InvalidDiagrams))
	sb.WriteString(fmt.Sprintf("- **Commands screened**: %d (%d blocked)\n", stats.TotalCommands, stats.BlockedCommands))

	if len(stats.TopBlockingRules) > 0 {
		sb.WriteString("\n### Top blocking rules\n\n")
		for _, rc := range stats.TopBlockingRules {
			sb.WriteString(fmt.Sprintf("- `%s` × %d\n", rc.Rule, rc.Count))
		}
	}

	return mcp.NewToolResultText(sb.String()), nil
}
