package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/plugin-terser/internal/bundler"
	"github.com/example/plugin-terser/internal/configloader"
	"github.com/example/plugin-terser/pkg/plugin"
)

// Host flags of the bundle command handed to plugins
const (
	flagIgnoreLocalConfig = "ignore-local-config"
	flagCwd               = configloader.FlagCwd
)

// NewBundleCmd creates the bundle command with the flags of the plugins loaded for it
func NewBundleCmd() (*cobra.Command, error) {
	var (
		outdir            string
		target            string
		cwd               string
		ignoreLocalConfig bool
		watch             bool
	)

	cmd := &cobra.Command{
		Use:   plugin.BundleCommand + " [entry-point...]",
		Short: "Bundle entry points and run the output plugins",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if target != plugin.TargetMain && target != plugin.TargetNPM {
				return fmt.Errorf("unsupported target %q (want %s or %s)", target, plugin.TargetMain, plugin.TargetNPM)
			}

			flags, err := App.Flags.Resolve(cmd)
			if err != nil {
				return err
			}
			flags[flagIgnoreLocalConfig] = ignoreLocalConfig
			if cwd != "" {
				flags[flagCwd] = cwd
			}

			opts := bundler.Options{
				EntryPoints: args,
				Outdir:      outdir,
				Target:      target,
				Dir:         cwd,
				Flags:       flags,
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if watch {
				return App.Watch(ctx, cmd.OutOrStdout(), opts)
			}
			if err := App.Bundle(ctx, cmd.OutOrStdout(), opts); err != nil {
				if ctx.Err() == context.Canceled {
					App.Log.Info("Bundle canceled")
					return nil
				}
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outdir, "outdir", "o", "dist", "output directory")
	cmd.Flags().StringVar(&target, "target", plugin.TargetMain, "bundle target (main or npm)")
	cmd.Flags().StringVar(&cwd, flagCwd, "", "project directory")
	cmd.Flags().BoolVar(&ignoreLocalConfig, flagIgnoreLocalConfig, false, "ignore local plugin configuration files")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "rebuild on changes")

	// flags contributed by plugins loaded for this command
	if App != nil {
		if err := App.Flags.Apply(cmd, App.Env); err != nil {
			return nil, fmt.Errorf("failed to register plugin flags: %w", err)
		}
	}
	return cmd, nil
}
