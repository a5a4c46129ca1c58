package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/plugin-terser/internal/app"
	"github.com/example/plugin-terser/internal/flaghandler"
	"github.com/example/plugin-terser/internal/manager"
	"github.com/example/plugin-terser/pkg/plugin"
)

const entrySource = `
function computeTotal(firstAmount, secondAmount) {
	return firstAmount + secondAmount;
}
console.log(computeTotal(1, 2));
`

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	args = append([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml"), "--log-level", "error"}, args...)
	err := Execute(context.Background(), args, &out)
	return out.String(), err
}

func TestPreParse(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantCommand string
		wantConfig  string
		wantVerbose bool
	}{
		{name: "bare command", args: []string{"bundle", "src/index.js"}, wantCommand: "bundle", wantConfig: "bundle.yaml"},
		{name: "globals first", args: []string{"--config", "x.yaml", "-v", "list"}, wantCommand: "list", wantConfig: "x.yaml", wantVerbose: true},
		{name: "plugin flags after command", args: []string{"bundle", "--no-compress", "--outdir", "out", "a.js"}, wantCommand: "bundle", wantConfig: "bundle.yaml"},
		{name: "help", args: []string{"--help"}, wantConfig: "bundle.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			global, command := preParse(tt.args)
			assert.Equal(t, tt.wantCommand, command)
			assert.Equal(t, tt.wantConfig, global.ConfigPath)
			assert.Equal(t, tt.wantVerbose, global.Verbose)
		})
	}
}

func TestBundleCommand(t *testing.T) {
	dir := writeProject(t, map[string]string{"src/index.js": entrySource})

	out, err := run(t, "bundle", "--cwd", dir, "src/index.js")
	require.NoError(t, err)
	assert.Contains(t, out, "terser")

	js, err := os.ReadFile(filepath.Join(dir, "dist", "index.js"))
	require.NoError(t, err)
	assert.NotContains(t, string(js), "firstAmount")
}

func TestBundleCommand_NoCompress(t *testing.T) {
	dir := writeProject(t, map[string]string{"src/index.js": entrySource})

	out, err := run(t, "bundle", "--no-compress", "--cwd", dir, "src/index.js")
	require.NoError(t, err)
	assert.Contains(t, out, "none")

	js, err := os.ReadFile(filepath.Join(dir, "dist", "index.js"))
	require.NoError(t, err)
	assert.Contains(t, string(js), "firstAmount")
}

func TestBundleCommand_EnvDefault(t *testing.T) {
	t.Setenv("BUNDLE_COMPRESS", "false")
	dir := writeProject(t, map[string]string{"src/index.js": entrySource})

	_, err := run(t, "bundle", "--cwd", dir, "src/index.js")
	require.NoError(t, err)
	js, err := os.ReadFile(filepath.Join(dir, "dist", "index.js"))
	require.NoError(t, err)
	assert.Contains(t, string(js), "firstAmount")

	_, err = run(t, "bundle", "--compress", "--cwd", dir, "src/index.js")
	require.NoError(t, err)
	js, err = os.ReadFile(filepath.Join(dir, "dist", "index.js"))
	require.NoError(t, err)
	assert.NotContains(t, string(js), "firstAmount")
}

func TestBundleCommand_LocalConfig(t *testing.T) {
	dir := writeProject(t, map[string]string{
		"src/index.js":   entrySource,
		".terserrc.json": `{"mangle": false, "compress": false}`,
	})

	_, err := run(t, "bundle", "--cwd", dir, "src/index.js")
	require.NoError(t, err)
	js, err := os.ReadFile(filepath.Join(dir, "dist", "index.js"))
	require.NoError(t, err)
	assert.Contains(t, string(js), "firstAmount", "local config disables mangling")

	_, err = run(t, "bundle", "--cwd", dir, "--ignore-local-config", "src/index.js")
	require.NoError(t, err)
	js, err = os.ReadFile(filepath.Join(dir, "dist", "index.js"))
	require.NoError(t, err)
	assert.NotContains(t, string(js), "firstAmount")
}

func TestBundleCommand_Errors(t *testing.T) {
	dir := writeProject(t, map[string]string{"src/index.js": entrySource})

	_, err := run(t, "bundle", "--compress", "--no-compress", "--cwd", dir, "src/index.js")
	assert.Error(t, err)

	_, err = run(t, "bundle", "--target", "cdn", "--cwd", dir, "src/index.js")
	assert.ErrorContains(t, err, "unsupported target")

	_, err = run(t, "bundle", "--cwd", dir, "src/missing.js")
	assert.Error(t, err)
}

func TestListCommand(t *testing.T) {
	out, err := run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "plugin-terser: Compress bundle output")
	assert.Contains(t, out, "Builtin plugins:")
}

func TestInfoCommand(t *testing.T) {
	out, err := run(t, "info", "plugin-terser")
	require.NoError(t, err)
	assert.Contains(t, out, "rollup-plugin-terser")
	assert.Contains(t, out, "--compress, --no-compress")
	assert.Contains(t, out, "Compress output using Terser.")

	_, err = run(t, "info", "unknown")
	assert.Error(t, err)
}

func TestConfigFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "bundle.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("envPrefix: DEPLOY\nplugins:\n  - name: plugin-terser\n    enabled: false\n"), 0o644))
	dir := writeProject(t, map[string]string{"src/index.js": entrySource})

	var out bytes.Buffer
	err := Execute(context.Background(), []string{"--config", configPath, "--log-level", "error", "bundle", "--cwd", dir, "src/index.js"}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "none")

	err = Execute(context.Background(), []string{"--config", configPath, "bundle", "--compress", "--cwd", dir, "src/index.js"}, &out)
	assert.Error(t, err, "disabled plugin contributes no flag")
}

func TestNewRootCmd_PluginFlagClash(t *testing.T) {
	prev := App
	t.Cleanup(func() { App = prev })

	App = app.New(manager.DefaultConfig(), app.Options{LogLevel: "error", LogOutput: io.Discard, Env: plugin.Env{}})
	defer App.Close()
	require.NoError(t, App.Flags.Add(plugin.FlagRequest{
		Command:    plugin.BundleCommand,
		PluginName: "other",
		Flags: map[string]plugin.FlagSpec{
			"watch": {Name: "watch", Default: func(plugin.Env) bool { return false }},
		},
	}))

	root, err := NewRootCmd(&GlobalFlags{})
	assert.Nil(t, root)
	assert.ErrorIs(t, err, flaghandler.ErrDuplicateFlag)
}
