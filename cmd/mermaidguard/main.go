// mermaidguard: Mermaid diagram guard for AI-generated documentation.
//
// Usage:
//
//	mermaidguard serve                 # Start MCP server (stdio transport)
//	mermaidguard hook pre-write        # Claude Code PreToolUse hook
//	mermaidguard final-check docs      # Fix and verify every diagram
package main

import (
	"os"

	"github.com/HendryAvila/mermaidguard/internal/cli/commands"
)

func main() {
	os.Exit(commands.Execute())
}
