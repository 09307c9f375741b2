package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/HendryAvila/mermaidguard/internal/config"
	"github.com/HendryAvila/mermaidguard/internal/document"
	"github.com/HendryAvila/mermaidguard/internal/rules"
	"github.com/mark3labs/mcp-go/mcp"
)

// FixTool handles the mermaid_fix MCP tool.
type FixTool struct {
	processor *document.Processor
	cfg       *config.Config
}

// NewFixTool creates a FixTool.
func NewFixTool(p *document.Processor, cfg *config.Config) *FixTool {
	return &FixTool{processor: p, cfg: cfg}
}

// Definition returns the MCP tool definition for mermaid_fix.
func (t *FixTool) Definition() mcp.Tool {
	return mcp.NewTool("mermaid_fix",
		mcp.WithDescription(
			"Fix Mermaid diagrams using error-driven repairs and return the corrected text. "+
				"Use this BEFORE writing a diagram to disk. With only file_path, the file is fixed in place.",
		),
		mcp.WithString("content",
			mcp.Description("Diagram or markdown text to fix. Omit to fix file_path on disk."),
		),
		mcp.WithString("file_path",
			mcp.Description("Path of the .md or .mmd file the content belongs to."),
		),
	)
}

// Handle processes the mermaid_fix tool call.
func (t *FixTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if req.GetString("content", "") == "" && req.GetString("file_path", "") != "" {
		return t.fixFile(ctx, req.GetString("file_path", ""))
	}

	content, path, errResult := loadInput(req, t.cfg)
	if errResult != nil {
		return errResult, nil
	}

	fixed, res, err := t.processor.EnsureValid(ctx, path, content)
	if errors.Is(err, document.ErrUnfixable) {
		return mcp.NewToolResultError(fmt.Sprintf("%v\n\n%s", err, rulesFor(content, res))), nil
	}
	if err != nil {
		return nil, fmt.Errorf("fixing mermaid: %w", err)
	}

	var b strings.Builder
	if !res.Changed {
		b.WriteString("✅ No changes needed.\n\n")
	} else {
		fmt.Fprintf(&b, "🔧 Fixed %d diagram(s).\n\n", changedCount(res))
	}
	fence := "```"
	if document.IsStandalone(path, content) {
		fence += "mermaid"
	} else {
		fence += "markdown"
	}
	fmt.Fprintf(&b, "%s\n%s\n```\n", fence, strings.TrimRight(fixed, "\n"))
	return mcp.NewToolResultText(b.String()), nil
}

func (t *FixTool) fixFile(ctx context.Context, path string) (*mcp.CallToolResult, error) {
	if !document.Handles(path) {
		return mcp.NewToolResultError(fmt.Sprintf("'%s' is not a .md or .mmd file", path)), nil
	}
	res, err := t.processor.ValidateFile(ctx, t.cfg.Resolve(path), true)
	if err != nil {
		return nil, fmt.Errorf("fixing %s: %w", path, err)
	}
	if !res.Valid {
		var b strings.Builder
		fmt.Fprintf(&b, "❌ %s still has broken diagrams", path)
		if res.Fixed {
			b.WriteString(" (other fixes were written)")
		}
		b.WriteString(":\n")
		for _, e := range res.Errors {
			fmt.Fprintf(&b, "- %s\n", e)
		}
		b.WriteString("\n### Rules to follow\n\n" + rules.Markdown())
		return mcp.NewToolResultError(b.String()), nil
	}
	if res.Fixed {
		return mcp.NewToolResultText(fmt.Sprintf("🔧 Fixed %d diagram(s) in %s.", changedCount(res), path)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("✅ %s is already valid.", path)), nil
}

func changedCount(res *document.FileResult) int {
	n := 0
	for _, d := range res.Diagrams {
		if d.Changed {
			n++
		}
	}
	return n
}
