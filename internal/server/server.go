// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it creates concrete implementations and
// injects them into the tools, prompts and resources that depend on them.
// No business logic lives here, only wiring.
package server

import (
	"fmt"
	"log"

	"github.com/HendryAvila/mermaidguard/internal/config"
	"github.com/HendryAvila/mermaidguard/internal/document"
	"github.com/HendryAvila/mermaidguard/internal/journal"
	"github.com/HendryAvila/mermaidguard/internal/journaltools"
	"github.com/HendryAvila/mermaidguard/internal/mermaid"
	"github.com/HendryAvila/mermaidguard/internal/prompts"
	"github.com/HendryAvila/mermaidguard/internal/resources"
	"github.com/HendryAvila/mermaidguard/internal/tools"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via ldflags.
var Version = "dev"

// NewProcessor builds the document processor described by cfg and returns
// it with the name of the validator in use. When renderer.mode is auto and
// mermaid-cli is missing, it falls back to the static linter and logs a
// warning.
func NewProcessor(cfg *config.Config) (*document.Processor, string, error) {
	checker, renderer, err := mermaid.NewChecker(mermaid.CheckerOptions{
		Mode:        cfg.Renderer.Mode,
		Command:     cfg.Renderer.Command,
		NPXFallback: cfg.Renderer.NPXFallback,
		Timeout:     cfg.Renderer.Timeout,
		Theme:       cfg.Renderer.Theme,
	})
	if err != nil {
		return nil, "", fmt.Errorf("creating mermaid checker: %w", err)
	}
	if cfg.Renderer.Mode == config.RendererAuto && renderer == mermaid.ModeStatic {
		log.Printf("WARNING: mermaid-cli not found, using the static linter")
	}

	fixer := mermaid.NewFixer(checker)
	fixer.MaxIterations = cfg.MaxIterations
	fixer.Strict = cfg.Strict
	return document.NewProcessor(fixer), renderer, nil
}

// OpenJournal opens the journal configured in cfg. It returns nil, nil when
// the journal is disabled.
func OpenJournal(cfg *config.Config) (*journal.Store, error) {
	if !cfg.Journal.Enabled {
		return nil, nil
	}
	jc := journal.DefaultConfig()
	if cfg.Journal.DataDir != "" {
		jc.DataDir = cfg.JournalPath()
	}
	return journal.New(jc)
}

// New creates and configures the MCP server with all tools, prompts,
// and resources registered. This is the single place where all
// dependencies are resolved.
//
// The returned cleanup function closes the journal's database connection
// and must be called on shutdown (typically via defer). It is always
// non-nil and safe to call even if the journal failed to open.
func New(cfg *config.Config) (*server.MCPServer, func(), error) {
	// --- Create shared dependencies ---

	processor, renderer, err := NewProcessor(cfg)
	if err != nil {
		return nil, noop, err
	}

	// --- Create the MCP server ---

	s := server.NewMCPServer(
		"mermaidguard",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Register Mermaid tools ---

	validateTool := tools.NewValidateTool(processor, cfg)
	s.AddTool(validateTool.Definition(), validateTool.Handle)

	fixTool := tools.NewFixTool(processor, cfg)
	s.AddTool(fixTool.Definition(), fixTool.Handle)

	commandTool := tools.NewCommandCheckTool()
	s.AddTool(commandTool.Definition(), commandTool.Handle)

	// --- Register journal tools ---
	//
	// The journal is an independent subsystem: if it fails to open, the
	// Mermaid tools keep working and simply record nothing.

	cleanup := noop
	store, jErr := OpenJournal(cfg)
	var recorder tools.ReportRecorder
	switch {
	case jErr != nil:
		log.Printf("WARNING: journal subsystem disabled: %v", jErr)
	case store != nil:
		cleanup = func() {
			if err := store.Close(); err != nil {
				log.Printf("WARNING: journal close: %v", err)
			}
		}
		recorder = store
		registerJournalTools(s, store)
	}

	checkFilesTool := tools.NewCheckFilesTool(processor, cfg, renderer, recorder)
	s.AddTool(checkFilesTool.Definition(), checkFilesTool.Handle)

	// --- Register prompts ---

	rulesPrompt := prompts.NewRulesPrompt()
	s.AddPrompt(rulesPrompt.Definition(), rulesPrompt.Handle)

	finalCheckPrompt := prompts.NewFinalCheckPrompt(cfg.DocsDir)
	s.AddPrompt(finalCheckPrompt.Definition(), finalCheckPrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(cfg)
	s.AddResource(resourceHandler.RulesResource(), resourceHandler.HandleRules)
	s.AddResource(resourceHandler.ReportResource(), resourceHandler.HandleReport)
	s.AddResource(resourceHandler.ConfigResource(), resourceHandler.HandleConfig)

	return s, cleanup, nil
}

// noop is a no-op cleanup function used as the default when the journal
// is disabled or hasn't been opened.
func noop() {}

// registerJournalTools registers the journal MCP tools with the server.
func registerJournalTools(s *server.MCPServer, js *journal.Store) {
	statsTool := journaltools.NewStatsTool(js)
	s.AddTool(statsTool.Definition(), statsTool.Handle)

	historyTool := journaltools.NewHistoryTool(js)
	s.AddTool(historyTool.Definition(), historyTool.Handle)
}

// serverInstructions returns the system instructions that tell the AI
// how to use mermaidguard.
func serverInstructions() string {
	return `You have access to mermaidguard, which keeps Mermaid diagrams in generated documentation valid.

## BEFORE WRITING DIAGRAMS

Read the mermaid://rules resource (or run the mermaid-rules prompt) once per session and follow it.
Quote node labels that contain parentheses, colons or other punctuation. Never put two diagram
declarations in one block. Close every subgraph, loop, alt and opt with "end".

## WHILE WRITING

- Run mermaid_fix on every diagram before writing it to a file, and write the text it returns.
- If mermaid_fix returns an error, the diagram cannot be repaired automatically: rewrite it
  following the rules included in the error.
- Use mermaid_validate when you only want to know what is wrong, without changes.

A pre-write hook may also fix diagrams in Write and Edit calls. When it blocks a write, the
message explains which diagram failed; rewrite that diagram instead of retrying the same content.

## AFTER ALL DOCUMENTATION IS GENERATED

Run mermaid_check_files on the documentation directory. It fixes what it can in place and writes
mermaid_final_check_report.json. Fix every file it still lists as failed, then run it again.

## SHELL COMMANDS

command_check tells you whether a shell command would be blocked by the dangerous-command guard.
When the journal is enabled, guard_history shows earlier blocked commands and guard_stats
summarizes activity.`
}
