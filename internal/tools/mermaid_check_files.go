package tools

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/HendryAvila/mermaidguard/internal/config"
	"github.com/HendryAvila/mermaidguard/internal/document"
	"github.com/HendryAvila/mermaidguard/internal/journal"
	"github.com/mark3labs/mcp-go/mcp"
)

// ReportRecorder stores final-check reports. *journal.Store implements it.
type ReportRecorder interface {
	RecordReport(source string, r *document.Report) error
}

// maxListedFiles caps per-file lines in standard detail.
const maxListedFiles = 25

// CheckFilesTool handles the mermaid_check_files MCP tool: the final check
// over a directory of generated documentation.
type CheckFilesTool struct {
	processor *document.Processor
	cfg       *config.Config
	renderer  string
	journal   ReportRecorder
}

// NewCheckFilesTool creates a CheckFilesTool. rec may be nil.
func NewCheckFilesTool(p *document.Processor, cfg *config.Config, renderer string, rec ReportRecorder) *CheckFilesTool {
	return &CheckFilesTool{processor: p, cfg: cfg, renderer: renderer, journal: rec}
}

// Definition returns the MCP tool definition for mermaid_check_files.
func (t *CheckFilesTool) Definition() mcp.Tool {
	return mcp.NewTool("mermaid_check_files",
		mcp.WithDescription(
			"Run the final Mermaid check over every .md and .mmd file in a directory. "+
				"Fixes what it can in place, writes mermaid_final_check_report.json, and lists "+
				"the files that still need manual attention. Run this after all documentation is generated.",
		),
		mcp.WithString("path",
			mcp.Description("Directory or file to check. Defaults to the configured docs_dir."),
		),
		mcp.WithBoolean("fix",
			mcp.Description("Write fixes back to the files (default: true)."),
		),
		mcp.WithBoolean("write_report",
			mcp.Description("Write the JSON report into the checked directory (default: true)."),
		),
		mcp.WithString("detail_level",
			mcp.Description(
				"'summary' (counts only), 'standard' (default, failing and fixed files), "+
					"'full' (every file with all errors).",
			),
			mcp.Enum(DetailLevelValues()...),
		),
	)
}

// Handle processes the mermaid_check_files tool call.
func (t *CheckFilesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target := req.GetString("path", t.cfg.DocsDir)
	root := t.cfg.Resolve(target)
	fix := BoolArg(req, "fix", true)
	detail := ParseDetailLevel(req.GetString("detail_level", ""))

	report, err := t.processor.FinalCheck(ctx, root, document.FinalCheckOptions{
		AutoFix:  fix,
		Workers:  t.cfg.FinalCheck.Workers,
		Exclude:  t.cfg.FinalCheck.Exclude,
		Renderer: t.renderer,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("final check failed: %v", err)), nil
	}

	var reportPath string
	if BoolArg(req, "write_report", true) {
		reportPath = document.ReportPath(root, t.cfg.FinalCheck.ReportName)
		if err := document.WriteReport(reportPath, report); err != nil {
			return nil, err
		}
	}
	if t.journal != nil {
		if err := t.journal.RecordReport(journal.SourceMCP, report); err != nil {
			log.Printf("WARNING: journal: %v", err)
		}
	}

	return mcp.NewToolResultText(FormatReport(report, detail, reportPath)), nil
}

// FormatReport renders a final-check report as markdown.
func FormatReport(r *document.Report, detail, reportPath string) string {
	var b strings.Builder
	b.WriteString("## Mermaid Final Check\n\n")
	fmt.Fprintf(&b, "- **Checked**: %s\n", r.Root)
	if r.Renderer != "" {
		fmt.Fprintf(&b, "- **Validator**: %s\n", r.Renderer)
	}
	fmt.Fprintf(&b, "- **Total files**: %d\n", r.TotalFiles)
	fmt.Fprintf(&b, "- **Valid**: %d ✅\n", r.ValidFiles)
	fmt.Fprintf(&b, "- **Fixed**: %d 🔧\n", r.FixedFiles)
	fmt.Fprintf(&b, "- **Failed**: %d ❌\n", r.FailedFiles)
	if reportPath != "" {
		fmt.Fprintf(&b, "- **Report**: %s\n", reportPath)
	}

	if detail != DetailSummary {
		var lines []string
		for _, f := range r.Files {
			switch {
			case !f.Valid:
				line := "- ❌ " + f.Path
				errs := f.Errors
				if detail != DetailFull && len(errs) > 2 {
					errs = errs[:2]
				}
				for _, e := range errs {
					line += "\n  - " + e
				}
				lines = append(lines, line)
			case f.Fixed || f.Changed:
				lines = append(lines, "- 🔧 "+f.Path)
			case detail == DetailFull:
				lines = append(lines, "- ✅ "+f.Path)
			}
		}
		shown := lines
		if detail != DetailFull && len(shown) > maxListedFiles {
			shown = shown[:maxListedFiles]
		}
		if len(shown) > 0 {
			b.WriteString("\n### Files\n\n")
			b.WriteString(strings.Join(shown, "\n"))
			b.WriteString("\n")
			b.WriteString(navigationHint(len(shown), len(lines), "Use detail_level: full to list everything."))
		}
	}

	if r.OK() {
		b.WriteString("\n🎉 All Mermaid diagrams are valid!\n")
	} else {
		b.WriteString("\n⚠️ Some files still have errors and need manual fixes. " +
			"Use `mermaid_validate` on each for the rules that apply.\n")
	}
	return b.String()
}
