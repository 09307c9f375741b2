package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/HendryAvila/mermaidguard/internal/document"
	"github.com/HendryAvila/mermaidguard/internal/server"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

type checkOptions struct {
	fix      bool
	jsonOut  bool
	showDiff bool
}

// NewCheckCommand creates the check command
func NewCheckCommand(g *globalOptions) *cobra.Command {
	opts := &checkOptions{}
	cmd := &cobra.Command{
		Use:   "check [paths...]",
		Short: "Validate Mermaid diagrams in files or directories",
		Long: `Validate the Mermaid diagrams in .md and .mmd files.

Without arguments the configured docs directory is checked. Nothing is
written unless --fix is given. Exits with status 1 when a diagram cannot
be fixed.

Examples:
  mermaidguard check                    # Check the docs directory
  mermaidguard check README.md --diff   # Show the fixes for one file
  mermaidguard check docs --fix         # Fix every file under docs/`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, g, opts, args)
		},
	}

	cmd.Flags().BoolVarP(&opts.fix, "fix", "f", false, "Write fixes back to the files")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Print results as JSON")
	cmd.Flags().BoolVarP(&opts.showDiff, "diff", "d", false, "Show the changes each fix makes")

	return cmd
}

func runCheck(cmd *cobra.Command, g *globalOptions, opts *checkOptions, args []string) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	processor, _, err := server.NewProcessor(cfg)
	if err != nil {
		return err
	}

	if len(args) == 0 {
		args = []string{cfg.DocsDir}
	}
	var files []string
	for _, arg := range args {
		found, err := document.Collect(cfg.Resolve(arg), cfg.FinalCheck.Exclude)
		if err != nil {
			return err
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		return fmt.Errorf("no .md or .mmd files found")
	}

	out := cmd.OutOrStdout()
	successColor := color.New(color.FgGreen)
	fixColor := color.New(color.FgYellow)
	errorColor := color.New(color.FgRed, color.Bold)
	titleColor := color.New(color.FgCyan, color.Bold)

	var results []*document.FileResult
	failed := 0
	for _, file := range files {
		original, _ := os.ReadFile(file)
		res, err := processor.ValidateFile(cmd.Context(), file, opts.fix)
		if err != nil {
			return err
		}
		results = append(results, res)
		if !res.Valid {
			failed++
		}
		if opts.jsonOut {
			continue
		}

		switch {
		case !res.Valid:
			errorColor.Fprintf(out, "✗ %s\n", file)
			for _, e := range res.Errors {
				fmt.Fprintf(out, "    %s\n", e)
			}
		case res.Fixed:
			fixColor.Fprintf(out, "🔧 %s fixed\n", file)
		case res.Changed:
			fixColor.Fprintf(out, "🔧 %s fixable (run with --fix)\n", file)
		default:
			successColor.Fprintf(out, "✓ %s\n", file)
		}
		if opts.showDiff && res.Changed {
			titleColor.Fprintf(out, "\n=== %s ===\n", file)
			fmt.Fprint(out, lineDiff(string(original), res.Content))
			fmt.Fprintf(out, "%s\n\n", diffStats(string(original), res.Content))
		}
	}

	if opts.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return fmt.Errorf("encoding results: %w", err)
		}
	} else {
		fmt.Fprintf(out, "\n%d file(s) checked, %d with broken diagrams\n", len(files), failed)
	}

	if failed > 0 {
		return &ExitError{Code: 1}
	}
	return nil
}
