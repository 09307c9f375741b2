// Package tools implements the MCP tool handlers for Mermaid validation.
//
// Each tool follows the same pattern: a struct holding its dependencies,
// Definition() returning the schema for registration, and Handle()
// processing calls. Problems with the caller's input are returned as tool
// errors; infrastructure failures as Go errors.
package tools

import (
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// Detail level values accepted by the reporting tools.
const (
	DetailSummary  = "summary"
	DetailStandard = "standard"
	DetailFull     = "full"
)

// DetailLevelValues returns the enum values for MCP tool definitions.
func DetailLevelValues() []string {
	return []string{DetailSummary, DetailStandard, DetailFull}
}

// ParseDetailLevel normalizes a detail_level string, defaulting to
// "standard" for empty or unrecognized values.
func ParseDetailLevel(s string) string {
	switch s {
	case DetailSummary, DetailFull:
		return s
	default:
		return DetailStandard
	}
}

// BoolArg extracts a boolean argument, returning defaultVal when missing.
func BoolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// IntArg extracts an integer argument, returning defaultVal when the key is
// missing or not a number (JSON numbers are float64).
func IntArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// navigationHint returns a footer when only part of a result list is shown.
func navigationHint(showing, total int, hint string) string {
	if total <= 0 || showing >= total {
		return ""
	}
	if hint != "" {
		return fmt.Sprintf("\n📊 Showing %d of %d. %s", showing, total, hint)
	}
	return fmt.Sprintf("\n📊 Showing %d of %d.", showing, total)
}
