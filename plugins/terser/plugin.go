// Package terser is the host plugin that adds JavaScript minification to the
// output stage of a bundle.
//
// On load it subscribes to the main and npm output plugin topics and
// contributes a --compress flag to the bundle command. When a bundle asks for
// output plugins and compress is on, the minifier configuration is resolved
// from the local project (or the built-in default) and a configured minifier
// is returned.
package terser

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/plugin-terser/pkg/eventbus"
	"github.com/example/plugin-terser/pkg/grpc"
	"github.com/example/plugin-terser/pkg/minify"
	"github.com/example/plugin-terser/pkg/plugin"
)

const (
	// PackageName identifies the plugin to the plugin manager
	PackageName = "plugin-terser"
	// ConfigModuleName is the name local configuration files are discovered by
	ConfigModuleName = "terser"
)

var conflictPackages = []string{"rollup-plugin-terser"}

var (
	// ErrNoBus is returned when the plugin is loaded without an event bus
	ErrNoBus = errors.New("terser: load event has no event bus")
	// ErrAlreadyLoaded is returned when the same instance is loaded twice
	ErrAlreadyLoaded = errors.New("terser: plugin already loaded")
)

func init() {
	plugin.Register(PackageName, func() plugin.Plugin { return New() })
}

// DefaultConfig returns a fresh copy of the built-in minifier configuration
func DefaultConfig() map[string]any {
	return map[string]any{
		"compress": map[string]any{
			"booleans_as_integers": true,
			"passes":               3,
		},
		"mangle": map[string]any{
			"toplevel": true,
		},
		"ecma":   2020,
		"module": true,
	}
}

// MinifierFactory builds the minifier returned to the bundler
type MinifierFactory func(config map[string]any) (plugin.OutputPlugin, error)

// Loader wires the minifier into the host. All state is set once on load.
type Loader struct {
	bus         eventbus.Bus
	envPrefix   string
	newMinifier MinifierFactory
	remote      *grpc.Client
	healthCheck grpc.HealthCheck
}

// Option configures a Loader
type Option func(*Loader)

// WithMinifierFactory replaces the minifier constructor
func WithMinifierFactory(f MinifierFactory) Option {
	return func(l *Loader) {
		l.newMinifier = f
	}
}

// WithHealthCheck sets how long a remote minifier is waited for on load
func WithHealthCheck(hc grpc.HealthCheck) Option {
	return func(l *Loader) {
		l.healthCheck = hc
	}
}

// New creates an unloaded plugin
func New(opts ...Option) *Loader {
	l := &Loader{healthCheck: grpc.DefaultHealthCheck()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Descriptor implements plugin.Plugin
func (l *Loader) Descriptor() plugin.Descriptor {
	conflicts := make([]string, len(conflictPackages))
	copy(conflicts, conflictPackages)
	return plugin.Descriptor{
		Name:             PackageName,
		ConflictPackages: conflicts,
	}
}

// OnPluginLoad implements plugin.Plugin
func (l *Loader) OnPluginLoad(ev *plugin.LoadEvent) error {
	if ev == nil || ev.Bus == nil {
		return ErrNoBus
	}
	if l.bus != nil {
		return ErrAlreadyLoaded
	}

	if l.newMinifier == nil {
		factory, err := l.minifierFactory(ev.Options.Values)
		if err != nil {
			return err
		}
		l.newMinifier = factory
	}

	l.envPrefix = ev.Options.EnvPrefix

	// flags first, a rejected flag leaves nothing subscribed
	if err := l.AddFlags(context.Background(), ev.Options.ID, ev.Bus); err != nil {
		if l.remote != nil {
			_ = l.remote.Close()
			l.remote = nil
			l.newMinifier = nil
		}
		return err
	}

	l.bus = ev.Bus
	ev.Bus.On(plugin.TopicMainOutputGet, l.handleOutputRequest)
	ev.Bus.On(plugin.TopicNPMOutputGet, l.handleOutputRequest)
	return nil
}

// OnPluginUnload implements plugin.Unloader
func (l *Loader) OnPluginUnload(ev *plugin.LoadEvent) error {
	if l.remote == nil {
		return nil
	}
	err := l.remote.Close()
	l.remote = nil
	return err
}

// minifierFactory picks the in-process engine, or a remote one when the host
// configured an address for the plugin.
func (l *Loader) minifierFactory(values map[string]any) (MinifierFactory, error) {
	address, _ := values["address"].(string)
	if address == "" {
		return func(config map[string]any) (plugin.OutputPlugin, error) {
			return minify.New(config)
		}, nil
	}

	client, err := grpc.NewClientWithAddress(address)
	if err != nil {
		return nil, err
	}
	if err := grpc.WaitHealthy(context.Background(), client, l.healthCheck); err != nil {
		client.Close()
		return nil, fmt.Errorf("terser: %w", err)
	}
	l.remote = client

	return func(config map[string]any) (plugin.OutputPlugin, error) {
		return minify.New(config, minify.WithEngine(client))
	}, nil
}

func (l *Loader) handleOutputRequest(ctx context.Context, payload any) (any, error) {
	var data plugin.BundleData
	switch p := payload.(type) {
	case plugin.BundleData:
		data = p
	case *plugin.BundleData:
		if p != nil {
			data = *p
		}
	}

	out, err := l.GetOutputPlugin(ctx, data)
	if err != nil || out == nil {
		return nil, err
	}
	return out, nil
}

// GetOutputPlugin returns a configured minifier when the compress flag is
// exactly true, and nil otherwise.
func (l *Loader) GetOutputPlugin(ctx context.Context, data plugin.BundleData) (plugin.OutputPlugin, error) {
	if !data.CLIFlags.IsTrue(FlagCompress) {
		return nil, nil
	}

	config := l.LoadConfig(ctx, data.CLIFlags)
	return l.newMinifier(config)
}
