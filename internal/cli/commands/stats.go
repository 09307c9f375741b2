package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/HendryAvila/mermaidguard/internal/journal"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var errJournalDisabled = errors.New("journal is disabled (journal.enabled: false) or could not be opened")

// NewStatsCommand creates the stats command
func NewStatsCommand(g *globalOptions) *cobra.Command {
	var (
		jsonOut bool
		blocked int
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show journal statistics",
		Long:  "Show what the guard has done: final-check runs, diagrams fixed and shell commands blocked.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			store := openJournal(cfg)
			if store == nil {
				return errJournalDisabled
			}
			defer closeJournal(store)

			stats, err := store.Stats()
			if err != nil {
				return err
			}
			var recent []journal.CommandEvent
			if blocked > 0 {
				if recent, err = store.RecentCommands(blocked, true); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					*journal.Stats
					RecentBlocked []journal.CommandEvent `json:"recent_blocked,omitempty"`
				}{stats, recent})
			}

			titleColor := color.New(color.FgCyan, color.Bold)
			errorColor := color.New(color.FgRed)

			titleColor.Fprintln(out, "Mermaid diagrams")
			fmt.Fprintf(out, "  Final-check runs: %d\n", stats.TotalRuns)
			fmt.Fprintf(out, "  Diagrams checked: %d\n", stats.TotalDiagrams)
			fmt.Fprintf(out, "  Fixed:            %d\n", stats.ChangedDiagrams)
			fmt.Fprintf(out, "  Broken:           %d\n", stats.InvalidDiagrams)

			titleColor.Fprintln(out, "Shell commands")
			fmt.Fprintf(out, "  Screened: %d\n", stats.TotalCommands)
			fmt.Fprintf(out, "  Blocked:  %d\n", stats.BlockedCommands)
			for _, rc := range stats.TopBlockingRules {
				fmt.Fprintf(out, "    %-24s %d\n", rc.Rule, rc.Count)
			}

			if len(recent) > 0 {
				titleColor.Fprintln(out, "Recently blocked")
				for _, e := range recent {
					errorColor.Fprintf(out, "  [%s] %s", e.CreatedAt, journal.Truncate(e.Command, 80))
					fmt.Fprintf(out, " (%s)\n", e.Category)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print statistics as JSON")
	cmd.Flags().IntVar(&blocked, "blocked", 5, "Also list the N most recently blocked commands")
	return cmd
}

// NewPruneCommand creates the prune command
func NewPruneCommand(g *globalOptions) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete old journal entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			store := openJournal(cfg)
			if store == nil {
				return errJournalDisabled
			}
			defer closeJournal(store)

			n, err := store.Prune(olderThan)
			if err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ Removed %d journal entries older than %s\n", n, olderThan)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Age of the entries to delete")
	return cmd
}
