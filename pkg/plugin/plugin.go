package plugin

import (
	"fmt"
	"sort"
	"sync"

	"github.com/example/plugin-terser/pkg/eventbus"
)

// Version information
const (
	APIVersion = "1.0.0"
)

// BundleCommand is the id of the host command that produces bundles
const BundleCommand = "bundle"

// Bundle targets
const (
	TargetMain = "main"
	TargetNPM  = "npm"
)

// Host topics
const (
	TopicFlagHandlerAdd = "system:flaghandler:add"
	TopicConfigOpen     = "system:file:util:config:open"
	TopicMainOutputGet  = "bundle:plugins:main:output:get"
	TopicNPMOutputGet   = "bundle:plugins:npm:output:get"

	TopicLogDebug   = "log:debug"
	TopicLogVerbose = "log:verbose"
	TopicLogInfo    = "log:info"
	TopicLogWarn    = "log:warn"
	TopicLogError   = "log:error"
)

// OutputTopic returns the output plugin topic for a bundle target
func OutputTopic(target string) string {
	if target == TargetNPM {
		return TopicNPMOutputGet
	}
	return TopicMainOutputGet
}

// LoadOptions are handed to a plugin when it is loaded
type LoadOptions struct {
	// ID of the command being run.
	ID string
	// EnvPrefix is prepended to environment variables the plugin reads.
	EnvPrefix string
	Values    map[string]any
}

// LoadEvent is passed to OnPluginLoad and OnPluginUnload
type LoadEvent struct {
	Bus     eventbus.Bus
	Options LoadOptions
}

// Plugin is the interface that plugins must implement
type Plugin interface {
	Descriptor() Descriptor
	// OnPluginLoad wires the plugin onto the event bus. An error aborts loading.
	OnPluginLoad(ev *LoadEvent) error
}

// Unloader is implemented by plugins holding resources
type Unloader interface {
	OnPluginUnload(ev *LoadEvent) error
}

// Factory creates a plugin instance
type Factory func() Plugin

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]Factory)
)

// Register makes a plugin factory available by name. It panics on duplicates
// since registration happens from init functions.
func Register(name string, factory Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	if _, exists := factories[name]; exists {
		panic(fmt.Sprintf("plugin factory %q registered twice", name))
	}
	factories[name] = factory
}

// Lookup returns the factory registered under name
func Lookup(name string) (Factory, bool) {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	f, ok := factories[name]
	return f, ok
}

// Names returns the registered factory names in sorted order
func Names() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
