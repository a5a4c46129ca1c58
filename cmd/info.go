package cmd

import (
	"github.com/spf13/cobra"

	"github.com/example/plugin-terser/internal/app"
)

func NewInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info [plugin-name]",
		Short: "Show detailed information for a specific plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.ShowPluginInfo(cmd.OutOrStdout(), Config, args[0])
		},
	}
}
