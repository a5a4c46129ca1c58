package manager

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/example/plugin-terser/pkg/plugin"
)

// DefaultEnvPrefix is used when the configuration names no prefix
const DefaultEnvPrefix = "BUNDLE"

// DefaultPlugin is enabled when no configuration file exists
const DefaultPlugin = "plugin-terser"

// AppConfig represents the main application configuration
type AppConfig struct {
	EnvPrefix string                `yaml:"envPrefix"`
	LogLevel  string                `yaml:"logLevel"`
	LogFormat string                `yaml:"logFormat"`
	Plugins   []plugin.PluginConfig `yaml:"plugins"`
}

// DefaultConfig returns the configuration used without a configuration file
func DefaultConfig() *AppConfig {
	return &AppConfig{
		EnvPrefix: DefaultEnvPrefix,
		LogLevel:  "info",
		LogFormat: "text",
		Plugins: []plugin.PluginConfig{
			{
				Name:        DefaultPlugin,
				Type:        plugin.PluginTypeBuiltin,
				Description: "Compress bundle output",
			},
		},
	}
}

// LoadConfig loads the configuration from the specified file. A missing file
// yields DefaultConfig.
func LoadConfig(configPath string) (*AppConfig, error) {
	data, err := os.ReadFile(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := AppConfig{}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if config.EnvPrefix == "" {
		config.EnvPrefix = DefaultEnvPrefix
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.LogFormat == "" {
		config.LogFormat = "text"
	}

	seen := make(map[string]bool, len(config.Plugins))
	for i := range config.Plugins {
		pluginConfig := &config.Plugins[i]
		if pluginConfig.Type == "" {
			pluginConfig.Type = plugin.PluginTypeBuiltin
		}
		if err := pluginConfig.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration for plugin %q: %w", pluginConfig.Name, err)
		}
		if seen[pluginConfig.Name] {
			return nil, fmt.Errorf("plugin %q configured twice", pluginConfig.Name)
		}
		seen[pluginConfig.Name] = true
	}

	return &config, nil
}

// GetPluginConfig retrieves the configuration for a specific plugin
func (c *AppConfig) GetPluginConfig(name string) (plugin.PluginConfig, error) {
	for _, p := range c.Plugins {
		if p.Name == name {
			return p, nil
		}
	}
	return plugin.PluginConfig{}, fmt.Errorf("plugin %q not found in configuration", name)
}

// ListPlugins returns a list of all configured plugins with their descriptions
func (c *AppConfig) ListPlugins() []string {
	var result []string
	for _, p := range c.Plugins {
		status := ""
		if !p.IsEnabled() {
			status = " (disabled)"
		}
		result = append(result, fmt.Sprintf("%s: %s%s", p.Name, p.Description, status))
	}
	return result
}
