package commands

import (
	"fmt"

	"github.com/HendryAvila/mermaidguard/internal/config"
	"github.com/spf13/cobra"
)

// NewConfigCommand creates the config command
func NewConfigCommand(g *globalOptions) *cobra.Command {
	var showPath bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration in effect, defaults included, as YAML.

The file is .mermaidguard.yml in the project root. ${VAR} references in it
are expanded from the environment.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if showPath {
				path := config.Path(cfg.Root)
				if !config.Exists(cfg.Root) {
					path += " (not found, using defaults)"
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			}
			data, err := cfg.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().BoolVar(&showPath, "path", false, "Print the config file location instead")
	return cmd
}
