package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/mermaidguard/internal/shellguard"
	"github.com/mark3labs/mcp-go/mcp"
)

// CommandCheckTool handles the command_check MCP tool. It runs the same
// screening as the bash hook without executing or recording anything.
type CommandCheckTool struct{}

// NewCommandCheckTool creates a CommandCheckTool.
func NewCommandCheckTool() *CommandCheckTool {
	return &CommandCheckTool{}
}

// Definition returns the MCP tool definition for command_check.
func (t *CommandCheckTool) Definition() mcp.Tool {
	return mcp.NewTool("command_check",
		mcp.WithDescription(
			"Check whether a shell command would be blocked by the dangerous-command guard. "+
				"Nothing is executed.",
		),
		mcp.WithString("command",
			mcp.Required(),
			mcp.Description("The shell command to screen"),
		),
	)
}

// Handle processes the command_check tool call.
func (t *CommandCheckTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	command := req.GetString("command", "")
	if strings.TrimSpace(command) == "" {
		return mcp.NewToolResultError("'command' is required"), nil
	}

	v := shellguard.Evaluate(command)
	var b strings.Builder
	if v.Allowed {
		fmt.Fprintf(&b, "✅ Allowed: `%s`\n", command)
	} else {
		fmt.Fprintf(&b, "🛑 Blocked: `%s`\n\n%s\n", command, v.Reason())
	}
	for _, w := range v.Warnings {
		fmt.Fprintf(&b, "- ⚠️ %s\n", w)
	}
	return mcp.NewToolResultText(b.String()), nil
}
