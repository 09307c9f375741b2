// Package journaltools provides MCP tool handlers over the guard journal.
//
// Each tool follows the same pattern as internal/tools: a struct holding
// the journal store, Definition() for the schema and Handle() for calls.
// Argument parsing is shared with internal/tools.
package journaltools
