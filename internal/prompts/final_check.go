package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// FinalCheckPrompt handles the mermaid-final-check MCP prompt.
// It asks the AI to run the final check once documentation generation is done.
type FinalCheckPrompt struct {
	docsDir string
}

// NewFinalCheckPrompt creates a FinalCheckPrompt defaulting to docsDir.
func NewFinalCheckPrompt(docsDir string) *FinalCheckPrompt {
	return &FinalCheckPrompt{docsDir: docsDir}
}

// Definition returns the MCP prompt definition for registration.
func (p *FinalCheckPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("mermaid-final-check",
		mcp.WithPromptDescription(
			"Validate and fix every Mermaid diagram in the generated documentation, "+
				"then fix by hand whatever the guard could not.",
		),
		mcp.WithArgument("path",
			mcp.ArgumentDescription("Directory to check. Default: the configured docs directory"),
		),
	)
}

// Handle processes the mermaid-final-check prompt request.
func (p *FinalCheckPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	path := p.docsDir
	if args := req.Params.Arguments; args != nil {
		if v, ok := args["path"]; ok && v != "" {
			path = v
		}
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Mermaid final check: %s", path),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"The documentation in '%s' is finished. Please:\n"+
						"1. Run `mermaid_check_files` with path='%s' and fix=true\n"+
						"2. For every file it reports as failed, run `mermaid_validate` with that file_path\n"+
						"3. Rewrite each broken diagram following the rules it returns, then write the file\n"+
						"4. Run `mermaid_check_files` again until it reports that all diagrams are valid\n"+
						"5. Summarize which files were fixed automatically and which you fixed by hand",
					path, path,
				)),
			},
		},
	}, nil
}
