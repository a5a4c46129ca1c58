package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/plugin-terser/pkg/plugin"
)

func NewListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available plugins",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Configured plugins:")
			for _, desc := range Config.ListPlugins() {
				fmt.Fprintf(out, "  %s\n", desc)
			}

			fmt.Fprintln(out, "Builtin plugins:")
			for _, name := range plugin.Names() {
				fmt.Fprintf(out, "  %s\n", name)
			}
		},
	}
}
