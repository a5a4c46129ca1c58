package app

import (
	"bytes"
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/plugin-terser/internal/bundler"
	"github.com/example/plugin-terser/internal/flaghandler"
	"github.com/example/plugin-terser/internal/manager"
	"github.com/example/plugin-terser/pkg/grpc"
	"github.com/example/plugin-terser/pkg/minify"
	"github.com/example/plugin-terser/pkg/plugin"
)

const source = `
function computeTotal(firstAmount, secondAmount) {
	return firstAmount + secondAmount;
}
console.log(computeTotal(1, 2));
`

func newProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.js"), []byte(source), 0o644))
	return dir
}

func newApp(t *testing.T, config *manager.AppConfig, env plugin.Env) *App {
	t.Helper()
	a := New(config, Options{LogLevel: "error", LogOutput: io.Discard, Env: env})
	require.NoError(t, a.LoadPlugins(plugin.BundleCommand))
	t.Cleanup(func() { a.Close() })
	return a
}

// resolveFlags parses args against a bundle command carrying the plugin flags
func resolveFlags(t *testing.T, a *App, args ...string) plugin.Flags {
	t.Helper()
	cmd := &cobra.Command{Use: plugin.BundleCommand}
	require.NoError(t, a.Flags.Apply(cmd, a.Env))
	require.NoError(t, cmd.ParseFlags(args))
	flags, err := a.Flags.Resolve(cmd)
	require.NoError(t, err)
	return flags
}

func TestApp_LoadsTerserForBundle(t *testing.T) {
	a := newApp(t, manager.DefaultConfig(), plugin.Env{})

	list := a.Manager.List()
	require.Len(t, list, 1)
	assert.Equal(t, "plugin-terser", list[0].Name)

	contributions := a.Flags.Contributions(plugin.BundleCommand)
	require.Len(t, contributions, 1)
	assert.Equal(t, "compress", contributions[0].Spec.Name)
	assert.True(t, a.Bus.Has(plugin.TopicMainOutputGet))
	assert.True(t, a.Bus.Has(plugin.TopicNPMOutputGet))
}

func TestApp_Bundle(t *testing.T) {
	tests := []struct {
		name         string
		env          plugin.Env
		args         []string
		wantMinified bool
	}{
		{name: "default", env: plugin.Env{}, wantMinified: true},
		{name: "env off", env: plugin.Env{"BUNDLE_COMPRESS": "false"}, wantMinified: false},
		{name: "env junk", env: plugin.Env{"BUNDLE_COMPRESS": "1"}, wantMinified: false},
		{name: "flag overrides env", env: plugin.Env{"BUNDLE_COMPRESS": "false"}, args: []string{"--compress"}, wantMinified: true},
		{name: "negated", env: plugin.Env{}, args: []string{"--no-compress"}, wantMinified: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := newProject(t)
			a := newApp(t, manager.DefaultConfig(), tt.env)
			flags := resolveFlags(t, a, tt.args...)
			flags["cwd"] = dir

			var out bytes.Buffer
			require.NoError(t, a.Bundle(context.Background(), &out, bundler.Options{
				EntryPoints: []string{"index.js"},
				Dir:         dir,
				Flags:       flags,
			}))

			js, err := os.ReadFile(filepath.Join(dir, "dist", "index.js"))
			require.NoError(t, err)
			assert.Equal(t, !tt.wantMinified, bytes.Contains(js, []byte("firstAmount")))
			assert.Contains(t, out.String(), "Bundle complete")
		})
	}
}

func TestApp_MalformedLocalConfigWarns(t *testing.T) {
	dir := newProject(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "terser.config.yml"), []byte("- just\n- a list\n"), 0o644))

	var logs bytes.Buffer
	a := New(manager.DefaultConfig(), Options{LogLevel: "warn", LogOutput: &logs, Env: plugin.Env{}})
	require.NoError(t, a.LoadPlugins(plugin.BundleCommand))
	defer a.Close()

	flags := resolveFlags(t, a)
	flags["cwd"] = dir
	require.NoError(t, a.Bundle(context.Background(), io.Discard, bundler.Options{
		EntryPoints: []string{"index.js"},
		Dir:         dir,
		Flags:       flags,
	}))

	assert.Contains(t, logs.String(), "malformed")
	assert.Contains(t, logs.String(), "terser.config.yml")

	js, err := os.ReadFile(filepath.Join(dir, "dist", "index.js"))
	require.NoError(t, err)
	assert.NotContains(t, string(js), "firstAmount", "default config still minifies")
}

func TestApp_ScriptLocalConfigWarns(t *testing.T) {
	dir := newProject(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "terser.config.js"), []byte("module.exports = { mangle: false };\n"), 0o644))

	var logs bytes.Buffer
	a := New(manager.DefaultConfig(), Options{LogLevel: "warn", LogOutput: &logs, Env: plugin.Env{}})
	require.NoError(t, a.LoadPlugins(plugin.BundleCommand))
	defer a.Close()

	flags := resolveFlags(t, a)
	flags["cwd"] = dir
	require.NoError(t, a.Bundle(context.Background(), io.Discard, bundler.Options{
		EntryPoints: []string{"index.js"},
		Dir:         dir,
		Flags:       flags,
	}))

	assert.Contains(t, logs.String(), "malformed")
	assert.Contains(t, logs.String(), "terser.config.js")

	js, err := os.ReadFile(filepath.Join(dir, "dist", "index.js"))
	require.NoError(t, err)
	assert.NotContains(t, string(js), "firstAmount")
}

func TestApp_RemoteMinifier(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	server := grpc.NewServer(minify.ESBuild{})
	go func() { _ = server.Serve(listener) }()
	defer server.Stop()

	config := manager.DefaultConfig()
	config.Plugins[0].Type = plugin.PluginTypeRemote
	config.Plugins[0].Address = listener.Addr().String()

	dir := newProject(t)
	a := newApp(t, config, plugin.Env{})
	flags := resolveFlags(t, a)
	flags["cwd"] = dir

	require.NoError(t, a.Bundle(context.Background(), io.Discard, bundler.Options{
		EntryPoints: []string{"index.js"},
		Dir:         dir,
		Flags:       flags,
	}))

	js, err := os.ReadFile(filepath.Join(dir, "dist", "index.js"))
	require.NoError(t, err)
	assert.NotContains(t, string(js), "firstAmount")
}

func TestApp_LoadFailsWhenCompressIsTaken(t *testing.T) {
	a := New(manager.DefaultConfig(), Options{LogLevel: "error", LogOutput: io.Discard, Env: plugin.Env{}})
	defer a.Close()
	require.NoError(t, a.Flags.Add(plugin.FlagRequest{
		Command:    plugin.BundleCommand,
		PluginName: "other",
		Flags: map[string]plugin.FlagSpec{
			"compress": {Name: "compress", Default: func(plugin.Env) bool { return true }},
		},
	}))

	err := a.LoadPlugins(plugin.BundleCommand)
	require.Error(t, err)
	assert.ErrorIs(t, err, flaghandler.ErrDuplicateFlag)
	assert.Contains(t, err.Error(), "plugin-terser")
	assert.Empty(t, a.Manager.List())
}

func TestApp_OtherCommandGetsNoFlags(t *testing.T) {
	a := New(manager.DefaultConfig(), Options{LogLevel: "error", LogOutput: io.Discard, Env: plugin.Env{}})
	require.NoError(t, a.LoadPlugins("list"))
	defer a.Close()

	assert.Empty(t, a.Flags.Contributions(plugin.BundleCommand))
	assert.Len(t, a.Manager.List(), 1)
}

func TestShowPluginInfo(t *testing.T) {
	config := manager.DefaultConfig()
	config.Plugins = append(config.Plugins, plugin.PluginConfig{Name: "not-builtin", Type: plugin.PluginTypeBuiltin})

	var out bytes.Buffer
	require.NoError(t, ShowPluginInfo(&out, config, "plugin-terser"))
	assert.Contains(t, out.String(), "--compress, --no-compress")
	assert.Contains(t, out.String(), "rollup-plugin-terser")

	out.Reset()
	require.NoError(t, ShowPluginInfo(&out, config, "not-builtin"))
	assert.Contains(t, out.String(), "not-builtin")
	assert.NotContains(t, out.String(), "--compress")

	assert.Error(t, ShowPluginInfo(&out, config, "missing"))
}
