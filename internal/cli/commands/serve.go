package commands

import (
	"fmt"

	guardserver "github.com/HendryAvila/mermaidguard/internal/server"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command
func NewServeCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server (stdio transport)",
		Long: `Start the MCP server on stdin/stdout.

Add it to your AI tool's MCP config:

  {
    "mcpServers": {
      "mermaidguard": {
        "command": "mermaidguard",
        "args": ["serve"]
      }
    }
  }`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			s, cleanup, err := guardserver.New(cfg)
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}
			defer cleanup()

			return server.ServeStdio(s)
		},
	}
}
