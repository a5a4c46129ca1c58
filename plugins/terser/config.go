package terser

import (
	"context"
	"fmt"

	"github.com/example/plugin-terser/pkg/eventbus"
	"github.com/example/plugin-terser/pkg/plugin"
)

// LoadConfig resolves the minifier configuration for one bundle. The result
// is either DefaultConfig or a local configuration file used verbatim.
// A missing or broken local file never fails the build.
func (l *Loader) LoadConfig(ctx context.Context, flags plugin.Flags) map[string]any {
	if flags.IsTrue(FlagIgnoreLocalConfig) {
		return DefaultConfig()
	}
	if l.bus == nil {
		return DefaultConfig()
	}

	results, err := l.bus.Request(ctx, plugin.TopicConfigOpen, plugin.ConfigRequest{
		ModuleName:    ConfigModuleName,
		PackageName:   PackageName,
		ErrorMessage:  fmt.Sprintf("%s loading local configuration file failed...", PackageName),
		DefaultConfig: DefaultConfig(),
		CLIFlags:      flags,
	})
	if err != nil {
		l.log(plugin.TopicLogWarn, fmt.Sprintf("%s: local Terser configuration lookup failed using default config: %v", PackageName, err))
		return DefaultConfig()
	}

	result := configResult(eventbus.First(results))
	if result == nil || result.FilePath == "" {
		return DefaultConfig()
	}

	config, ok := result.Config.(map[string]any)
	if !ok {
		l.log(plugin.TopicLogWarn, fmt.Sprintf("%s: local Terser configuration file malformed using default config; expected an 'object':\n%s",
			PackageName, result.RelativePath))
		return DefaultConfig()
	}
	if len(config) == 0 {
		l.log(plugin.TopicLogWarn, fmt.Sprintf("%s: local Terser configuration file empty using default config:\n%s",
			PackageName, result.RelativePath))
		return DefaultConfig()
	}

	l.log(plugin.TopicLogVerbose, fmt.Sprintf("%s: deferring to local Terser configuration file.", PackageName))
	return config
}

func configResult(v any) *plugin.ConfigResult {
	switch r := v.(type) {
	case *plugin.ConfigResult:
		return r
	case plugin.ConfigResult:
		return &r
	default:
		return nil
	}
}

func (l *Loader) log(topic, msg string) {
	if l.bus != nil {
		l.bus.Trigger(topic, msg)
	}
}
