package plugin

import (
	"context"
	"os"
	"strings"
)

// Descriptor identifies a plugin to the plugin manager
type Descriptor struct {
	Name string
	// ConflictPackages lists plugins providing the same functionality. The
	// manager refuses to install two plugins that conflict.
	ConflictPackages []string
}

// Env is a snapshot of process environment variables
type Env map[string]string

// EnvFromOS captures the current process environment
func EnvFromOS() Env {
	env := make(Env)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

// Lookup returns the value of name and whether it is set
func (e Env) Lookup(name string) (string, bool) {
	v, ok := e[name]
	return v, ok
}

// DefaultFunc computes a flag default from the environment. It must not have side effects.
type DefaultFunc func(env Env) bool

// FlagSpec describes a boolean flag contributed by a plugin
type FlagSpec struct {
	Name        string
	Description string
	// AllowNo enables the --no-<name> negation.
	AllowNo bool
	Default DefaultFunc
}

// FlagRequest is the payload of TopicFlagHandlerAdd
type FlagRequest struct {
	Command    string
	PluginName string
	Flags      map[string]FlagSpec
}

// Flags holds CLI flags after parsing
type Flags map[string]any

// IsTrue reports whether name holds exactly the boolean true
func (f Flags) IsTrue(name string) bool {
	v, ok := f[name].(bool)
	return ok && v
}

// String returns the string value of name, or "" when absent or not a string
func (f Flags) String(name string) string {
	s, _ := f[name].(string)
	return s
}

// BundleData is passed to output plugin handlers when the bundler asks for plugins
type BundleData struct {
	CLIFlags Flags
	// Target is TargetMain or TargetNPM.
	Target string
}

// ConfigRequest is the payload of TopicConfigOpen
type ConfigRequest struct {
	ModuleName    string
	PackageName   string
	ErrorMessage  string
	DefaultConfig map[string]any
	CLIFlags      Flags
}

// ConfigResult is the response to a ConfigRequest when a local file was found.
// Config holds whatever the file decoded to; it is nil when the file could not be parsed.
type ConfigResult struct {
	Config       any
	FilePath     string
	RelativePath string
}

// ChunkInfo describes an emitted JavaScript chunk
type ChunkInfo struct {
	FileName string
	IsEntry  bool
}

// OutputPlugin is a transform inserted into the output stage of a bundle
type OutputPlugin interface {
	Name() string
	RenderChunk(ctx context.Context, code []byte, chunk ChunkInfo) ([]byte, error)
}

// AssetRenderer is implemented by output plugins that also transform non-JavaScript outputs.
// The boolean result is false when the asset type is not handled.
type AssetRenderer interface {
	RenderAsset(ctx context.Context, fileName string, content []byte) ([]byte, bool, error)
}
