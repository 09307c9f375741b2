package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/HendryAvila/mermaidguard/internal/document"
	"github.com/HendryAvila/mermaidguard/internal/server"
	"github.com/spf13/cobra"
)

// NewPrewriteCommand creates the prewrite command
func NewPrewriteCommand(g *globalOptions) *cobra.Command {
	var filePath string
	cmd := &cobra.Command{
		Use:   "prewrite [file|content|-]",
		Short: "Fix diagrams in a file or in content before it is written",
		Long: `Ensure Mermaid diagrams are valid before they are written.

When the argument is an existing file it is fixed in place, and left
untouched if any diagram in it cannot be fixed. Otherwise the
argument (or stdin for "-" or no argument) is treated as content and the
fixed content is printed. Exits with status 1 when a diagram cannot be
fixed, with the reason on stderr.

Examples:
  mermaidguard prewrite docs/architecture.md
  cat draft.md | mermaidguard prewrite --file docs/draft.md`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			processor, _, err := server.NewProcessor(cfg)
			if err != nil {
				return err
			}

			arg := "-"
			if len(args) == 1 {
				arg = args[0]
			}
			if arg != "-" {
				if info, err := os.Stat(arg); err == nil && !info.IsDir() {
					return prewriteFile(cmd, processor, arg, info.Mode().Perm())
				}
			}

			content := arg
			if arg == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("reading stdin: %w", err)
				}
				content = string(data)
			}
			fixed, _, err := processor.EnsureValid(cmd.Context(), filePath, content)
			if errors.Is(err, document.ErrUnfixable) {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
				return &ExitError{Code: 1}
			}
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), fixed)
			return nil
		},
	}
	cmd.Flags().StringVar(&filePath, "file", "", "Path the content will be written to (.mmd content is a bare diagram)")
	return cmd
}

// prewriteFile fixes the file at path in place. Nothing is written unless
// every diagram in it is valid after fixing.
func prewriteFile(cmd *cobra.Command, processor *document.Processor, path string, perm os.FileMode) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	content := string(data)
	fixed, _, err := processor.EnsureValid(cmd.Context(), path, content)
	if errors.Is(err, document.ErrUnfixable) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return &ExitError{Code: 1}
	}
	if err != nil {
		return err
	}
	if fixed == content {
		return nil
	}
	if err := os.WriteFile(path, []byte(fixed), perm); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Fixed: %s\n", path)
	return nil
}
