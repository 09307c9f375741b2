package commands

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HendryAvila/mermaidguard/internal/document"
	"github.com/HendryAvila/mermaidguard/internal/journal"
	"github.com/HendryAvila/mermaidguard/internal/server"
	"github.com/HendryAvila/mermaidguard/internal/watch"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

type watchOptions struct {
	noFix    bool
	debounce time.Duration
}

// NewWatchCommand creates the watch command
func NewWatchCommand(g *globalOptions) *cobra.Command {
	opts := &watchOptions{}
	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Watch the docs directory and fix diagrams as files change",
		Long: `Watch a documentation directory and validate every .md and .mmd file
when it changes. Broken diagrams are fixed in place unless --no-fix is given.

Press Ctrl+C to stop. The session is recorded in the journal as one run.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, g, opts, args)
		},
	}

	cmd.Flags().BoolVar(&opts.noFix, "no-fix", false, "Only report, do not modify files")
	cmd.Flags().DurationVar(&opts.debounce, "debounce", watch.DefaultDebounce, "Quiet period before changed files are validated")

	return cmd
}

func runWatch(cmd *cobra.Command, g *globalOptions, opts *watchOptions, args []string) error {
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
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return fmt.Errorf("%s is not a directory", root)
	}

	store := openJournal(cfg)
	defer closeJournal(store)
	var runID string
	if store != nil {
		if runID, err = store.StartRun(journal.SourceWatch, root, renderer); err != nil {
			log.Printf("WARNING: journal: %v", err)
		}
	}

	out := cmd.OutOrStdout()
	successColor := color.New(color.FgGreen)
	fixColor := color.New(color.FgYellow)
	errorColor := color.New(color.FgRed, color.Bold)
	titleColor := color.New(color.FgCyan, color.Bold)

	var totals journal.RunTotals
	report := func(res *document.FileResult, err error) {
		stamp := time.Now().Format("15:04:05")
		if err != nil {
			errorColor.Fprintf(out, "[%s] ✗ %v\n", stamp, err)
			return
		}
		totals.Total++
		switch {
		case !res.Valid:
			totals.Failed++
			errorColor.Fprintf(out, "[%s] ✗ %s\n", stamp, res.Path)
			for _, e := range res.Errors {
				fmt.Fprintf(out, "      %s\n", e)
			}
		case res.Fixed:
			totals.Valid++
			totals.Fixed++
			fixColor.Fprintf(out, "[%s] 🔧 %s fixed\n", stamp, res.Path)
		default:
			totals.Valid++
			successColor.Fprintf(out, "[%s] ✓ %s\n", stamp, res.Path)
		}
		if runID == "" {
			return
		}
		for _, e := range journal.EventsFor(journal.SourceWatch, *res) {
			e.RunID = runID
			if _, err := store.RecordDiagram(e); err != nil {
				log.Printf("WARNING: journal: %v", err)
			}
		}
	}

	w, err := watch.New(processor, watch.Options{
		Root:     root,
		Exclude:  cfg.FinalCheck.Exclude,
		Debounce: opts.debounce,
		AutoFix:  !opts.noFix,
	}, report)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	titleColor.Fprintf(out, "👀 Watching %s (%s). Press Ctrl+C to stop.\n", root, renderer)
	if err := w.Run(ctx); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%d file(s) validated, %d fixed, %d failed\n", totals.Total, totals.Fixed, totals.Failed)
	if runID != "" {
		if err := store.FinishRun(runID, totals); err != nil {
			log.Printf("WARNING: journal: %v", err)
		}
	}
	return nil
}
