// Package commands implements the mermaidguard command line.
package commands

import (
	"errors"
	"fmt"
	"log"
	"os"
	"runtime"

	"github.com/HendryAvila/mermaidguard/internal/config"
	"github.com/HendryAvila/mermaidguard/internal/hooks"
	"github.com/HendryAvila/mermaidguard/internal/journal"
	"github.com/HendryAvila/mermaidguard/internal/server"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// ExitError makes Execute exit with Code without printing anything more.
// Commands return it after they have reported the problem themselves.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	root string
}

// loadConfig reads the project configuration. Without --root the project
// is found by walking up from the working directory.
func (g *globalOptions) loadConfig() (*config.Config, error) {
	root := g.root
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		root = config.FindRoot(cwd)
	}
	return config.Load(root)
}

// openJournal opens the journal when it is enabled. Failures are logged
// and yield nil: commands keep working without it.
func openJournal(cfg *config.Config) *journal.Store {
	store, err := server.OpenJournal(cfg)
	if err != nil {
		log.Printf("WARNING: journal subsystem disabled: %v", err)
		return nil
	}
	return store
}

// closeJournal closes store if it is open.
func closeJournal(store *journal.Store) {
	if store == nil {
		return
	}
	if err := store.Close(); err != nil {
		log.Printf("WARNING: journal close: %v", err)
	}
}

// hookRecorder converts an optional store into the hooks.Recorder
// interface without producing a typed nil.
func hookRecorder(store *journal.Store) hooks.Recorder {
	if store == nil {
		return nil
	}
	return store
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	g := &globalOptions{}
	rootCmd := &cobra.Command{
		Use:   "mermaidguard",
		Short: "Validate and repair Mermaid diagrams in generated documentation",
		Long: color.CyanString(`mermaidguard - Mermaid diagram guard

Keeps Mermaid diagrams written by coding agents valid:
  • Prevention rules served to the agent before it writes
  • A pre-write hook that fixes diagrams before they reach disk
  • Error-driven repair with mermaid-cli or a static linter
  • A final check over the whole documentation tree`),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&g.root, "root", "", "Project root (default: nearest directory with .mermaidguard.yml)")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(NewServeCommand(g))
	rootCmd.AddCommand(NewCheckCommand(g))
	rootCmd.AddCommand(NewFinalCheckCommand(g))
	rootCmd.AddCommand(NewPrewriteCommand(g))
	rootCmd.AddCommand(NewHookCommand(g))
	rootCmd.AddCommand(NewWatchCommand(g))
	rootCmd.AddCommand(NewStatsCommand(g))
	rootCmd.AddCommand(NewPruneCommand(g))
	rootCmd.AddCommand(NewConfigCommand(g))

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			titleColor := color.New(color.FgCyan, color.Bold)

			titleColor.Fprint(cmd.OutOrStdout(), "mermaidguard version: ")
			fmt.Fprintln(cmd.OutOrStdout(), server.Version)

			titleColor.Fprint(cmd.OutOrStdout(), "Go version: ")
			fmt.Fprintln(cmd.OutOrStdout(), runtime.Version())
		},
	}
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return exitErr.Code
		}
		errorColor := color.New(color.FgRed, color.Bold)
		errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return 1
	}
	return 0
}
