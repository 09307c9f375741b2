package commands

import (
	"errors"
	"fmt"

	"github.com/HendryAvila/mermaidguard/internal/hooks"
	"github.com/HendryAvila/mermaidguard/internal/server"
	"github.com/spf13/cobra"
)

// Hook kinds accepted by the hook command.
const (
	HookPreWrite  = "pre-write"
	HookBashGuard = "bash-guard"
	HookBashLog   = "bash-log"
	HookStop      = "stop"
)

// NewHookCommand creates the hook command
func NewHookCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "hook <pre-write|bash-guard|bash-log|stop>",
		Short: "Run as a Claude Code hook (reads the event JSON on stdin)",
		Long: `Run one of the Claude Code hooks.

The hook event is read as JSON from stdin. Exit status 0 allows the tool
call, 2 blocks it (the reason is printed on stderr), 1 reports an internal
error without blocking.

  pre-write   PreToolUse on Write|Edit|MultiEdit: fixes Mermaid diagrams
  bash-guard  PreToolUse on Bash: blocks dangerous commands
  bash-log    PreToolUse on Bash: logs every command
  stop        Stop: reports broken diagrams left in the docs directory`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{HookPreWrite, HookBashGuard, HookBashLog, HookStop},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := args[0]
			switch kind {
			case HookPreWrite, HookBashGuard, HookBashLog, HookStop:
			default:
				return fmt.Errorf("unknown hook %q", kind)
			}

			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}

			in, err := hooks.ReadInput(cmd.InOrStdin())
			if errors.Is(err, hooks.ErrNoInput) {
				fmt.Fprintf(cmd.ErrOrStderr(), "mermaidguard: no hook input on stdin\n")
				return nil
			}
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "mermaidguard: %v\n", err)
				return &ExitError{Code: hooks.ExitError}
			}

			store := openJournal(cfg)
			defer closeJournal(store)

			var resp hooks.Response
			if kind == HookBashGuard || kind == HookBashLog {
				h := hooks.New(nil, cfg, hookRecorder(store))
				if kind == HookBashGuard {
					resp = h.BashGuard(in)
				} else {
					resp = h.BashLog(in)
				}
			} else {
				processor, _, err := server.NewProcessor(cfg)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "mermaidguard: %v\n", err)
					return &ExitError{Code: hooks.ExitError}
				}
				h := hooks.New(processor, cfg, hookRecorder(store))
				if kind == HookPreWrite {
					resp = h.PreWrite(cmd.Context(), in)
				} else {
					resp = h.StopCheck(cmd.Context(), in)
				}
			}

			fmt.Fprint(cmd.OutOrStdout(), resp.Stdout)
			fmt.Fprint(cmd.ErrOrStderr(), resp.Stderr)
			if resp.ExitCode != hooks.ExitAllow {
				return &ExitError{Code: resp.ExitCode}
			}
			return nil
		},
	}
}
