package manager

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/example/plugin-terser/pkg/eventbus"
	"github.com/example/plugin-terser/pkg/plugin"
)

var (
	// ErrDuplicate is returned when a plugin with the same name is already installed
	ErrDuplicate = errors.New("plugin already installed")
	// ErrConflict is returned when a plugin provides the same functionality as an installed one
	ErrConflict = errors.New("plugin conflicts with an installed plugin")
	// ErrUnknownPlugin is returned when no factory is registered for a configured plugin
	ErrUnknownPlugin = errors.New("unknown plugin")
	// ErrNotInstalled is returned when a plugin is looked up that is not installed
	ErrNotInstalled = errors.New("plugin not installed")
)

// AddOptions describes one plugin installation
type AddOptions struct {
	// Name defaults to the name in the plugin descriptor.
	Name     string
	Instance plugin.Plugin
	Config   plugin.PluginConfig
	Options  plugin.LoadOptions
}

// ManagedPlugin represents an installed plugin instance
type ManagedPlugin struct {
	Name       string
	Descriptor plugin.Descriptor
	Config     plugin.PluginConfig
	Instance   plugin.Plugin
	event      *plugin.LoadEvent
}

// PluginManager handles plugin lifecycle management
type PluginManager struct {
	bus     eventbus.Bus
	plugins map[string]*ManagedPlugin
	order   []string
	mu      sync.RWMutex
	log     logrus.FieldLogger
}

// NewPluginManager creates a new plugin manager loading plugins onto bus
func NewPluginManager(bus eventbus.Bus, log logrus.FieldLogger) *PluginManager {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &PluginManager{
		bus:     bus,
		plugins: make(map[string]*ManagedPlugin),
		log:     log,
	}
}

// Add installs a plugin and calls its load hook. The plugin is refused when
// its name is taken or when it conflicts with an installed plugin. A failing
// load hook leaves the plugin uninstalled. Load hooks must not call back into
// the manager.
func (pm *PluginManager) Add(opts AddOptions) error {
	if opts.Instance == nil {
		return errors.New("plugin instance is required")
	}
	desc := opts.Instance.Descriptor()
	name := opts.Name
	if name == "" {
		name = desc.Name
	}
	if name == "" {
		return errors.New("plugin name is required")
	}

	pm.mu.Lock()
	defer pm.mu.Unlock()

	if _, exists := pm.plugins[name]; exists {
		return fmt.Errorf("%s: %w", name, ErrDuplicate)
	}
	if other := pm.conflicting(name, desc); other != "" {
		return fmt.Errorf("%s and %s: %w", name, other, ErrConflict)
	}

	event := &plugin.LoadEvent{Bus: pm.bus, Options: opts.Options}
	if err := opts.Instance.OnPluginLoad(event); err != nil {
		return fmt.Errorf("failed to load plugin %s: %w", name, err)
	}

	pm.plugins[name] = &ManagedPlugin{
		Name:       name,
		Descriptor: desc,
		Config:     opts.Config,
		Instance:   opts.Instance,
		event:      event,
	}
	pm.order = append(pm.order, name)

	pm.log.WithFields(logrus.Fields{
		"plugin":  name,
		"command": opts.Options.ID,
	}).Debug("Plugin loaded")
	return nil
}

// conflicting returns the installed plugin that name or desc clashes with
func (pm *PluginManager) conflicting(name string, desc plugin.Descriptor) string {
	incoming := identities(name, desc)
	for _, installed := range pm.order {
		p := pm.plugins[installed]
		for id := range identities(p.Name, p.Descriptor) {
			if incoming[id] {
				return installed
			}
		}
	}
	return ""
}

func identities(name string, desc plugin.Descriptor) map[string]bool {
	ids := map[string]bool{name: true}
	if desc.Name != "" {
		ids[desc.Name] = true
	}
	for _, c := range desc.ConflictPackages {
		ids[c] = true
	}
	return ids
}

// LoadPlugins builds every enabled plugin in configs from the factory registry and adds it
func (pm *PluginManager) LoadPlugins(configs []plugin.PluginConfig, base plugin.LoadOptions) error {
	for _, cfg := range configs {
		if !cfg.IsEnabled() {
			pm.log.WithField("plugin", cfg.Name).Debug("Plugin disabled")
			continue
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration for plugin %q: %w", cfg.Name, err)
		}

		factory, ok := plugin.Lookup(cfg.Name)
		if !ok {
			return fmt.Errorf("%s: %w", cfg.Name, ErrUnknownPlugin)
		}

		opts := base
		opts.Values = cfg.LoadValues()
		if err := pm.Add(AddOptions{
			Name:     cfg.Name,
			Instance: factory(),
			Config:   cfg,
			Options:  opts,
		}); err != nil {
			return err
		}
	}
	return nil
}

// Remove unloads and uninstalls a plugin
func (pm *PluginManager) Remove(name string) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	p, exists := pm.plugins[name]
	if !exists {
		return fmt.Errorf("%s: %w", name, ErrNotInstalled)
	}

	delete(pm.plugins, name)
	for i, n := range pm.order {
		if n == name {
			pm.order = append(pm.order[:i], pm.order[i+1:]...)
			break
		}
	}
	return unload(p)
}

// RemoveAll uninstalls every plugin in reverse installation order
func (pm *PluginManager) RemoveAll() error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	var errs []error
	for i := len(pm.order) - 1; i >= 0; i-- {
		if err := unload(pm.plugins[pm.order[i]]); err != nil {
			errs = append(errs, err)
		}
	}
	pm.plugins = make(map[string]*ManagedPlugin)
	pm.order = nil
	return errors.Join(errs...)
}

func unload(p *ManagedPlugin) error {
	u, ok := p.Instance.(plugin.Unloader)
	if !ok {
		return nil
	}
	if err := u.OnPluginUnload(p.event); err != nil {
		return fmt.Errorf("failed to unload plugin %s: %w", p.Name, err)
	}
	return nil
}

// Get returns an installed plugin by name
func (pm *PluginManager) Get(name string) (plugin.Plugin, error) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	p, exists := pm.plugins[name]
	if !exists {
		return nil, fmt.Errorf("%s: %w", name, ErrNotInstalled)
	}
	return p.Instance, nil
}

// List returns the installed plugins in installation order
func (pm *PluginManager) List() []ManagedPlugin {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	out := make([]ManagedPlugin, 0, len(pm.order))
	for _, name := range pm.order {
		out = append(out, *pm.plugins[name])
	}
	return out
}
