package flaghandler

import (
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/plugin-terser/pkg/eventbus"
	"github.com/example/plugin-terser/pkg/plugin"
)

func compressRequest(pluginName string) plugin.FlagRequest {
	return plugin.FlagRequest{
		Command:    "bundle",
		PluginName: pluginName,
		Flags: map[string]plugin.FlagSpec{
			"compress": {
				Name:        "compress",
				Description: "Compress output",
				AllowNo:     true,
				Default: func(env plugin.Env) bool {
					v, ok := env.Lookup("APP_COMPRESS")
					return !ok || v == "true"
				},
			},
		},
	}
}

func newHandler(t *testing.T) *Handler {
	t.Helper()
	logger, _ := test.NewNullLogger()
	return New(logger)
}

func parse(t *testing.T, h *Handler, env plugin.Env, args ...string) (plugin.Flags, error) {
	t.Helper()
	cmd := &cobra.Command{Use: "bundle"}
	require.NoError(t, h.Apply(cmd, env))
	require.NoError(t, cmd.ParseFlags(args))
	return h.Resolve(cmd)
}

func TestRegister(t *testing.T) {
	h := newHandler(t)
	bus := eventbus.NewEventBus(nil)
	h.Register(bus)

	bus.Trigger(plugin.TopicFlagHandlerAdd, compressRequest("plugin-terser"))

	contributions := h.Contributions("bundle")
	require.Len(t, contributions, 1)
	assert.Equal(t, "plugin-terser", contributions[0].Plugin)
	assert.Equal(t, "compress", contributions[0].Spec.Name)
	assert.Empty(t, h.Contributions("list"))
}

func TestAdd_Duplicate(t *testing.T) {
	h := newHandler(t)
	require.NoError(t, h.Add(compressRequest("plugin-terser")))

	err := h.Add(compressRequest("other-minifier"))
	assert.ErrorIs(t, err, ErrDuplicateFlag)
	assert.Contains(t, err.Error(), "plugin-terser")

	other := compressRequest("other-minifier")
	other.Command = "build"
	assert.NoError(t, h.Add(other), "same name on another command")
}

func TestAdd_Invalid(t *testing.T) {
	h := newHandler(t)

	req := compressRequest("p")
	req.Command = ""
	assert.Error(t, h.Add(req))

	req = compressRequest("p")
	req.Flags["compress"] = plugin.FlagSpec{Name: "compress"}
	assert.Error(t, h.Add(req))
	assert.Empty(t, h.Contributions("bundle"))
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		env     plugin.Env
		args    []string
		want    bool
		wantErr bool
	}{
		{name: "default unset env", env: plugin.Env{}, want: true},
		{name: "default from env", env: plugin.Env{"APP_COMPRESS": "false"}, want: false},
		{name: "explicit flag overrides env", env: plugin.Env{"APP_COMPRESS": "false"}, args: []string{"--compress"}, want: true},
		{name: "negation", env: plugin.Env{}, args: []string{"--no-compress"}, want: false},
		{name: "explicit false", env: plugin.Env{}, args: []string{"--compress=false"}, want: false},
		{name: "both forms", env: plugin.Env{}, args: []string{"--compress", "--no-compress"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHandler(t)
			require.NoError(t, h.Add(compressRequest("plugin-terser")))

			flags, err := parse(t, h, tt.env, tt.args...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, plugin.Flags{"compress": tt.want}, flags)
		})
	}
}

func TestApply_NegationIsHidden(t *testing.T) {
	h := newHandler(t)
	require.NoError(t, h.Add(compressRequest("plugin-terser")))

	cmd := &cobra.Command{Use: "bundle"}
	require.NoError(t, h.Apply(cmd, plugin.Env{}))

	compress := cmd.Flags().Lookup("compress")
	require.NotNil(t, compress)
	assert.Equal(t, "true", compress.DefValue)
	assert.Equal(t, "Compress output", compress.Usage)

	negation := cmd.Flags().Lookup("no-compress")
	require.NotNil(t, negation)
	assert.True(t, negation.Hidden)
}

func TestApply_ClashWithHostFlag(t *testing.T) {
	h := newHandler(t)
	require.NoError(t, h.Add(compressRequest("plugin-terser")))

	cmd := &cobra.Command{Use: "bundle"}
	cmd.Flags().Bool("compress", false, "host flag")
	assert.ErrorIs(t, h.Apply(cmd, plugin.Env{}), ErrDuplicateFlag)
}
