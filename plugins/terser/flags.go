package terser

import (
	"context"
	"fmt"

	"github.com/example/plugin-terser/pkg/eventbus"
	"github.com/example/plugin-terser/pkg/plugin"
)

// Flag names read from the resolved CLI flags
const (
	FlagCompress          = "compress"
	FlagIgnoreLocalConfig = "ignore-local-config"
)

// CompressDefault returns the default of --compress for an environment
// prefix. With the variable {prefix}_COMPRESS unset, or set to "true", output
// is compressed; any other value turns compression off.
func CompressDefault(prefix string) plugin.DefaultFunc {
	name := prefix + "_COMPRESS"
	return func(env plugin.Env) bool {
		v, ok := env.Lookup(name)
		return !ok || v == "true"
	}
}

// AddFlags contributes --compress to the bundle command. Other commands get
// nothing. A rejected registration is returned so that loading fails.
func (l *Loader) AddFlags(ctx context.Context, command string, bus eventbus.Bus) error {
	if command != plugin.BundleCommand {
		return nil
	}

	_, err := bus.Request(ctx, plugin.TopicFlagHandlerAdd, plugin.FlagRequest{
		Command:    plugin.BundleCommand,
		PluginName: PackageName,
		Flags: map[string]plugin.FlagSpec{
			FlagCompress: {
				Name:        FlagCompress,
				Description: "[default: true] Compress output using Terser.",
				AllowNo:     true,
				Default:     CompressDefault(l.envPrefix),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("registering --%s: %w", FlagCompress, err)
	}
	return nil
}
