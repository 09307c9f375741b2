package commands

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/HendryAvila/mermaidguard/internal/document"
	"github.com/HendryAvila/mermaidguard/internal/journal"
	"github.com/HendryAvila/mermaidguard/internal/server"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

type finalCheckOptions struct {
	noFix   bool
	jsonOut bool
	workers int
}

// NewFinalCheckCommand creates the final-check command
func NewFinalCheckCommand(g *globalOptions) *cobra.Command {
	opts := &finalCheckOptions{}
	cmd := &cobra.Command{
		Use:   "final-check [dir]",
		Short: "Fix and verify every diagram after documentation is generated",
		Long: `Run the final check over a documentation directory.

Every .md and .mmd file is validated and fixed in place, the results are
written to the report file inside the directory and recorded in the
journal. Exits with status 1 when any file still has broken diagrams.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFinalCheck(cmd, g, opts, args)
		},
	}

	cmd.Flags().BoolVar(&opts.noFix, "no-fix", false, "Only report, do not modify files")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Print the report as JSON")
	cmd.Flags().IntVarP(&opts.workers, "workers", "j", 0, "Files validated in parallel (default: final_check.workers)")

	return cmd
}

func runFinalCheck(cmd *cobra.Command, g *globalOptions, opts *finalCheckOptions, args []string) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	processor, renderer, err := server.NewProcessor(cfg)
	if err != nil {
		return err
	}

	target := cfg.DocsDir
	if len(args) == 1 {
		target = args[0]
	}
	root := cfg.Resolve(target)
	workers := cfg.FinalCheck.Workers
	if opts.workers > 0 {
		workers = opts.workers
	}

	out := cmd.OutOrStdout()
	successColor := color.New(color.FgGreen)
	fixColor := color.New(color.FgYellow)
	errorColor := color.New(color.FgRed, color.Bold)
	titleColor := color.New(color.FgCyan, color.Bold)

	if !opts.jsonOut {
		titleColor.Fprintf(out, "🔍 Final Mermaid check: %s (%s)\n", root, renderer)
	}
	report, err := processor.FinalCheck(cmd.Context(), root, document.FinalCheckOptions{
		AutoFix:  !opts.noFix,
		Workers:  workers,
		Exclude:  cfg.FinalCheck.Exclude,
		Renderer: renderer,
		Progress: func(res document.FileResult) {
			if opts.jsonOut {
				return
			}
			switch {
			case !res.Valid:
				errorColor.Fprintf(out, "  ✗ %s\n", res.Path)
				for _, e := range res.Errors {
					fmt.Fprintf(out, "      %s\n", e)
				}
			case res.Fixed:
				fixColor.Fprintf(out, "  🔧 %s\n", res.Path)
			default:
				successColor.Fprintf(out, "  ✓ %s\n", res.Path)
			}
		},
	})
	if err != nil {
		return err
	}

	reportPath := document.ReportPath(root, cfg.FinalCheck.ReportName)
	if err := document.WriteReport(reportPath, report); err != nil {
		return err
	}
	store := openJournal(cfg)
	defer closeJournal(store)
	if store != nil {
		if err := store.RecordReport(journal.SourceFinalCheck, report); err != nil {
			log.Printf("WARNING: journal: %v", err)
		}
	}

	if opts.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("encoding report: %w", err)
		}
	} else {
		fmt.Fprintf(out, "\nTotal: %d  Valid: %d  Fixed: %d  Failed: %d\n",
			report.TotalFiles, report.ValidFiles, report.FixedFiles, report.FailedFiles)
		fmt.Fprintf(out, "Report: %s\n", reportPath)
		if report.OK() {
			successColor.Fprintln(out, "🎉 All Mermaid diagrams are valid!")
		} else {
			errorColor.Fprintln(out, "⚠️  Some files need manual fixes.")
		}
	}

	if !report.OK() {
		return &ExitError{Code: 1}
	}
	return nil
}
