// Package resources implements MCP resource handlers for the Mermaid guard.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (mermaid://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/HendryAvila/mermaidguard/internal/config"
	"github.com/HendryAvila/mermaidguard/internal/document"
	"github.com/HendryAvila/mermaidguard/internal/rules"
	"github.com/mark3labs/mcp-go/mcp"
)

// Resource URIs.
const (
	RulesURI  = "mermaid://rules"
	ReportURI = "mermaid://report/latest"
	ConfigURI = "mermaid://config"
)

// Handler manages the guard's resource endpoints.
type Handler struct {
	cfg *config.Config
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(cfg *config.Config) *Handler {
	return &Handler{cfg: cfg}
}

// RulesResource returns the MCP resource definition for the prevention rules.
func (h *Handler) RulesResource() mcp.Resource {
	return mcp.NewResource(
		RulesURI,
		"Mermaid Prevention Rules",
		mcp.WithResourceDescription("Syntax rules to follow when writing Mermaid diagrams"),
		mcp.WithMIMEType("text/markdown"),
	)
}

// HandleRules returns the rules document.
func (h *Handler) HandleRules(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "text/markdown",
			Text:     rules.Markdown(),
		},
	}, nil
}

// ReportResource returns the MCP resource definition for the latest
// final-check report.
func (h *Handler) ReportResource() mcp.Resource {
	return mcp.NewResource(
		ReportURI,
		"Latest Final Check Report",
		mcp.WithResourceDescription("The last final-check report written to the docs directory"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleReport returns the report stored in the docs directory.
func (h *Handler) HandleReport(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	path := document.ReportPath(h.cfg.DocsPath(), h.cfg.FinalCheck.ReportName)
	report, err := document.LoadReport(path)
	if err != nil {
		return errorResource(req.Params.URI, fmt.Sprintf("no final-check report yet (%v)", err)), nil
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling report: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// ConfigResource returns the MCP resource definition for the effective
// configuration.
func (h *Handler) ConfigResource() mcp.Resource {
	return mcp.NewResource(
		ConfigURI,
		"Guard Configuration",
		mcp.WithResourceDescription("Effective mermaidguard configuration, defaults included"),
		mcp.WithMIMEType("application/yaml"),
	)
}

// HandleConfig returns the configuration as YAML.
func (h *Handler) HandleConfig(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := h.cfg.Marshal()
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/yaml",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
