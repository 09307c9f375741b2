package tools

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/HendryAvila/mermaidguard/internal/config"
	"github.com/HendryAvila/mermaidguard/internal/document"
	"github.com/HendryAvila/mermaidguard/internal/rules"
	"github.com/mark3labs/mcp-go/mcp"
)

// ValidateTool handles the mermaid_validate MCP tool. It reports problems
// and available fixes without changing anything.
type ValidateTool struct {
	processor *document.Processor
	cfg       *config.Config
}

// NewValidateTool creates a ValidateTool.
func NewValidateTool(p *document.Processor, cfg *config.Config) *ValidateTool {
	return &ValidateTool{processor: p, cfg: cfg}
}

// Definition returns the MCP tool definition for mermaid_validate.
func (t *ValidateTool) Definition() mcp.Tool {
	return mcp.NewTool("mermaid_validate",
		mcp.WithDescription(
			"Check Mermaid diagrams without modifying anything. Accepts a bare diagram, "+
				"markdown with ```mermaid blocks, or a file path. Reports each diagram as valid, "+
				"fixable, or broken, with the errors and the prevention rules that apply.",
		),
		mcp.WithString("content",
			mcp.Description("Diagram or markdown text to check. Omit to check file_path on disk."),
		),
		mcp.WithString("file_path",
			mcp.Description("Path of the .md or .mmd file. Decides whether content is markdown or a bare diagram."),
		),
	)
}

// Handle processes the mermaid_validate tool call.
func (t *ValidateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, path, errResult := loadInput(req, t.cfg)
	if errResult != nil {
		return errResult, nil
	}

	res, err := t.processor.Process(ctx, path, content)
	if err != nil {
		return nil, fmt.Errorf("validating mermaid: %w", err)
	}

	var b strings.Builder
	title := path
	if title == "" {
		title = "content"
	}
	fmt.Fprintf(&b, "## Mermaid validation: %s\n\n", title)
	if len(res.Diagrams) == 0 {
		if res.Valid {
			b.WriteString("No Mermaid diagrams found.\n")
			return mcp.NewToolResultText(b.String()), nil
		}
		fmt.Fprintf(&b, "❌ %s\n", strings.Join(res.Errors, "; "))
		return mcp.NewToolResultText(b.String()), nil
	}

	writeDiagramLines(&b, res)

	switch {
	case !res.Valid:
		b.WriteString("\n**Result**: ❌ some diagrams cannot be fixed automatically.\n\n")
		b.WriteString(rulesFor(content, res))
	case res.Changed:
		b.WriteString("\n**Result**: 🔧 valid after fixes. Call `mermaid_fix` to get the corrected text.\n")
	default:
		b.WriteString("\n**Result**: ✅ all diagrams are valid.\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

// loadInput returns the text to process and the path it belongs to. When
// content is omitted it is read from file_path.
func loadInput(req mcp.CallToolRequest, cfg *config.Config) (string, string, *mcp.CallToolResult) {
	content := req.GetString("content", "")
	path := req.GetString("file_path", "")
	if path != "" && !document.Handles(path) {
		return "", "", mcp.NewToolResultError(fmt.Sprintf("'%s' is not a .md or .mmd file", path))
	}
	if content != "" {
		return content, path, nil
	}
	if path == "" {
		return "", "", mcp.NewToolResultError("either 'content' or 'file_path' is required")
	}
	data, err := os.ReadFile(cfg.Resolve(path))
	if err != nil {
		return "", "", mcp.NewToolResultError(fmt.Sprintf("could not read %s: %v", path, err))
	}
	return string(data), path, nil
}

func writeDiagramLines(b *strings.Builder, res *document.FileResult) {
	for _, d := range res.Diagrams {
		typ := d.Type
		if typ == "" {
			typ = "unknown type"
		}
		switch {
		case !d.Valid:
			fmt.Fprintf(b, "- ❌ line %d (%s)\n", d.Line, typ)
			for _, e := range d.Errors {
				fmt.Fprintf(b, "  - %s\n", e)
			}
		case d.Changed:
			fmt.Fprintf(b, "- 🔧 line %d (%s): fixable", d.Line, typ)
			if len(d.Applied) > 0 {
				fmt.Fprintf(b, " (%s)", strings.Join(d.Applied, ", "))
			}
			b.WriteString("\n")
		default:
			fmt.Fprintf(b, "- ✅ line %d (%s)\n", d.Line, typ)
		}
	}
}

// rulesFor returns the prevention rules for the first broken diagram.
func rulesFor(content string, res *document.FileResult) string {
	for _, d := range res.Diagrams {
		if !d.Valid {
			return "### Rules to follow\n\n" + rules.ForType(d.Type)
		}
	}
	return "### Rules to follow\n\n" + rules.ForDiagram(content)
}
