// Package app wires the host together: event bus, logging, configuration
// discovery, flag registration, plugin manager and bundler.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/example/plugin-terser/internal/bundler"
	"github.com/example/plugin-terser/internal/configloader"
	"github.com/example/plugin-terser/internal/flaghandler"
	"github.com/example/plugin-terser/internal/logging"
	"github.com/example/plugin-terser/internal/manager"
	"github.com/example/plugin-terser/pkg/eventbus"
	"github.com/example/plugin-terser/pkg/plugin"
	"github.com/example/plugin-terser/pkg/ui"

	// builtin plugins
	_ "github.com/example/plugin-terser/plugins/terser"
)

// Options configures New
type Options struct {
	// LogLevel overrides the configured level when set.
	LogLevel string
	Verbose  bool
	// LogOutput defaults to stderr.
	LogOutput io.Writer
	// Env defaults to the process environment.
	Env plugin.Env
}

// App is a wired host
type App struct {
	Config  *manager.AppConfig
	Log     *logrus.Logger
	Bus     *eventbus.EventBus
	Manager *manager.PluginManager
	Flags   *flaghandler.Handler
	Bundler *bundler.Bundler
	Env     plugin.Env
}

// New creates a host for config. No plugin is loaded yet.
func New(config *manager.AppConfig, opts Options) *App {
	level := config.LogLevel
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	log := logging.New(level, config.LogFormat, opts.LogOutput)
	if opts.Verbose && log.GetLevel() < logrus.InfoLevel {
		log.SetLevel(logrus.InfoLevel)
	}

	bus := eventbus.NewEventBus(log)
	logging.Bridge(bus, log, opts.Verbose)
	configloader.New(bus, "", log).Register()

	flags := flaghandler.New(log)
	flags.Register(bus)

	env := opts.Env
	if env == nil {
		env = plugin.EnvFromOS()
	}

	return &App{
		Config:  config,
		Log:     log,
		Bus:     bus,
		Manager: manager.NewPluginManager(bus, log),
		Flags:   flags,
		Bundler: bundler.New(bus, log),
		Env:     env,
	}
}

// LoadPlugins loads the configured plugins for the command being run
func (a *App) LoadPlugins(commandID string) error {
	return a.Manager.LoadPlugins(a.Config.Plugins, plugin.LoadOptions{
		ID:        commandID,
		EnvPrefix: a.Config.EnvPrefix,
	})
}

// Close unloads every plugin
func (a *App) Close() error {
	return a.Manager.RemoveAll()
}

// Bundle runs one bundle and prints a summary to w
func (a *App) Bundle(ctx context.Context, w io.Writer, opts bundler.Options) error {
	start := time.Now()
	result, err := a.Bundler.Bundle(ctx, opts)
	if err != nil {
		return err
	}
	a.printSummary(w, opts.Dir, result, time.Since(start))
	return nil
}

// Watch bundles on every change until ctx is done. Failed rebuilds are
// logged and watching continues.
func (a *App) Watch(ctx context.Context, w io.Writer, opts bundler.Options) error {
	return a.Bundler.Watch(ctx, opts, func(result *bundler.Result, err error) {
		if err != nil {
			a.Log.WithError(err).Error("Bundle failed")
			return
		}
		a.printSummary(w, opts.Dir, result, 0)
	})
}

func (a *App) printSummary(w io.Writer, dir string, result *bundler.Result, took time.Duration) {
	if dir == "" {
		dir, _ = os.Getwd()
	}
	summary := ui.BundleSummary{
		Plugins:  result.Plugins,
		Warnings: result.Warnings,
		Duration: took,
	}
	for _, f := range result.Files {
		summary.Files = append(summary.Files, ui.FileSummary{Path: f.Path, RawSize: f.RawSize, Size: f.Size})
	}
	ui.DisplayBundleSummary(w, dir, summary)
}

// ShowPluginInfo prints what the host knows about a configured plugin,
// including the flags it contributes to the bundle command.
func ShowPluginInfo(w io.Writer, config *manager.AppConfig, pluginName string) error {
	pluginConfig, err := config.GetPluginConfig(pluginName)
	if err != nil {
		return err
	}

	info := ui.PluginInfo{
		Name:        pluginConfig.Name,
		Type:        string(pluginConfig.Type),
		Description: pluginConfig.Description,
		Enabled:     pluginConfig.IsEnabled(),
		Address:     pluginConfig.Address,
		Options:     pluginConfig.Options,
	}

	factory, registered := plugin.Lookup(pluginName)
	info.Registered = registered
	if !registered {
		ui.DisplayPluginInfo(w, info, nil)
		return nil
	}

	// load a throwaway instance as the bundle command would, to collect its flags
	probe := New(config, Options{LogLevel: "error", LogOutput: io.Discard, Env: plugin.EnvFromOS()})
	instance := factory()
	info.Conflicts = instance.Descriptor().ConflictPackages

	probeConfig := pluginConfig
	probeConfig.Type = plugin.PluginTypeBuiltin
	probeConfig.Address = ""
	err = probe.Manager.Add(manager.AddOptions{
		Name:     pluginName,
		Instance: instance,
		Config:   probeConfig,
		Options:  plugin.LoadOptions{ID: plugin.BundleCommand, EnvPrefix: config.EnvPrefix, Values: probeConfig.LoadValues()},
	})
	if err != nil {
		return fmt.Errorf("failed to load plugin %s: %w", pluginName, err)
	}
	defer probe.Close()

	var flags []ui.FlagInfo
	for _, c := range probe.Flags.Contributions(plugin.BundleCommand) {
		flags = append(flags, ui.FlagInfo{
			Name:        c.Spec.Name,
			Description: c.Spec.Description,
			Default:     c.Spec.Default(probe.Env),
			Negatable:   c.Spec.AllowNo,
		})
	}
	ui.DisplayPluginInfo(w, info, flags)
	return nil
}
