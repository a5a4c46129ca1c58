package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/example/plugin-terser/internal/app"
	"github.com/example/plugin-terser/internal/manager"
)

var (
	// Config is the loaded host configuration
	Config *manager.AppConfig
	// App is the wired host, with the plugins for the current command loaded
	App *app.App
)

// GlobalFlags are the flags shared by every command
type GlobalFlags struct {
	ConfigPath string
	LogLevel   string
	Verbose    bool
}

func (g *GlobalFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&g.ConfigPath, "config", "bundle.yaml", "host configuration file")
	fs.StringVar(&g.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	fs.BoolVarP(&g.Verbose, "verbose", "v", false, "show verbose plugin messages")
}

// preParse reads the global flags and the command name ahead of cobra.
// Plugins contribute flags to the command being run, so they have to be
// loaded before cobra parses the command line.
func preParse(args []string) (GlobalFlags, string) {
	var g GlobalFlags
	fs := pflag.NewFlagSet("pre", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}
	fs.BoolP("help", "h", false, "")
	g.register(fs)

	// errors are reported again by cobra
	_ = fs.Parse(args)
	return g, fs.Arg(0)
}

// NewRootCmd creates the command tree. App must be set.
func NewRootCmd(global *GlobalFlags) (*cobra.Command, error) {
	root := &cobra.Command{
		Use:           "bundle-cli",
		Short:         "A plugin-based JavaScript bundler",
		Long:          `A CLI that bundles JavaScript and runs the output through plugins such as plugin-terser.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	global.register(root.PersistentFlags())

	bundle, err := NewBundleCmd()
	if err != nil {
		return nil, err
	}
	root.AddCommand(bundle)
	root.AddCommand(NewListCmd())
	root.AddCommand(NewInfoCmd())
	return root, nil
}

// Execute runs the CLI with args
func Execute(ctx context.Context, args []string, out io.Writer) error {
	global, command := preParse(args)

	config, err := manager.LoadConfig(global.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	Config = config

	App = app.New(config, app.Options{
		LogLevel: global.LogLevel,
		Verbose:  global.Verbose,
	})
	defer func() {
		if err := App.Close(); err != nil {
			App.Log.WithError(err).Warn("Failed to unload plugins")
		}
	}()

	if err := App.LoadPlugins(command); err != nil {
		return err
	}

	root, err := NewRootCmd(&GlobalFlags{})
	if err != nil {
		return err
	}
	root.SetArgs(args)
	root.SetOut(out)
	return root.ExecuteContext(ctx)
}
