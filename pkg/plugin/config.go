package plugin

import (
	"fmt"
	"strings"
)

// PluginType represents how a plugin is provided to the host
type PluginType string

const (
	// PluginTypeBuiltin represents a plugin compiled into the host and built from the factory registry
	PluginTypeBuiltin PluginType = "builtin"
	// PluginTypeRemote represents a builtin plugin whose heavy lifting runs on a remote gRPC server
	PluginTypeRemote PluginType = "remote"
)

// PluginConfig represents the host configuration for a plugin
type PluginConfig struct {
	Name        string         `yaml:"name"`
	Type        PluginType     `yaml:"type,omitempty"`
	Enabled     *bool          `yaml:"enabled,omitempty"`
	Address     string         `yaml:"address,omitempty"`
	Description string         `yaml:"description,omitempty"`
	Options     map[string]any `yaml:"options,omitempty"`
}

// IsEnabled reports whether the plugin should be loaded. Plugins are enabled unless disabled explicitly.
func (p *PluginConfig) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// Validate checks if the plugin configuration is valid
func (p *PluginConfig) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("name is required")
	}

	switch p.Type {
	case PluginTypeBuiltin:
		if p.Address != "" {
			return fmt.Errorf("address is only valid for remote-type plugins")
		}
	case PluginTypeRemote:
		if p.Address == "" {
			return fmt.Errorf("address is required for remote-type plugins")
		}
		if !strings.Contains(p.Address, ":") {
			return fmt.Errorf("address must be in host:port form: %s", p.Address)
		}
	default:
		return fmt.Errorf("unsupported plugin type: %s", p.Type)
	}

	return nil
}

// LoadValues returns the options handed to the plugin on load. Remote plugins
// receive their address under the "address" key.
func (p *PluginConfig) LoadValues() map[string]any {
	values := make(map[string]any, len(p.Options)+1)
	for k, v := range p.Options {
		values[k] = v
	}
	if p.Type == PluginTypeRemote {
		values["address"] = p.Address
	}
	return values
}
