// Package prompts implements MCP prompt handlers for the Mermaid guard.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/mermaidguard/internal/rules"
	"github.com/mark3labs/mcp-go/mcp"
)

// RulesPrompt handles the mermaid-rules MCP prompt.
// It loads the prevention rules into the conversation before diagrams
// are written.
type RulesPrompt struct{}

// NewRulesPrompt creates a RulesPrompt.
func NewRulesPrompt() *RulesPrompt {
	return &RulesPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *RulesPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("mermaid-rules",
		mcp.WithPromptDescription(
			"Load the Mermaid prevention rules before generating diagrams. "+
				"Following them avoids the syntax errors the guard would otherwise have to fix.",
		),
		mcp.WithArgument("diagram_type",
			mcp.ArgumentDescription(
				"Only include the rules for one family: flowchart, sequence, class, state or er. Default: all rules",
			),
		),
	)
}

// Handle processes the mermaid-rules prompt request.
func (p *RulesPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	body := rules.Markdown()
	description := "Mermaid prevention rules"
	if args := req.Params.Arguments; args != nil {
		if typ := strings.TrimSpace(args["diagram_type"]); typ != "" {
			body = rules.ForType(typ)
			description = fmt.Sprintf("Mermaid prevention rules: %s", typ)
		}
	}

	return &mcp.GetPromptResult{
		Description: description,
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Follow these rules for every Mermaid diagram you write in this session.\n\n" +
						body + "\n\n" +
						"Before writing a diagram to a file, run `mermaid_fix` on it and use the returned text. " +
						"If `mermaid_fix` reports an error, rewrite the diagram using the rules above.",
				),
			},
		},
	}, nil
}
