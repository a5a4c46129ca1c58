package logging

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/plugin-terser/pkg/eventbus"
	"github.com/example/plugin-terser/pkg/plugin"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		format    string
		wantLevel logrus.Level
		wantJSON  bool
	}{
		{name: "debug text", level: "debug", format: "text", wantLevel: logrus.DebugLevel},
		{name: "warn json", level: "warn", format: "json", wantLevel: logrus.WarnLevel, wantJSON: true},
		{name: "unknown level", level: "loud", format: "", wantLevel: logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := New(tt.level, tt.format, &buf)
			assert.Equal(t, tt.wantLevel, logger.GetLevel())

			_, isJSON := logger.Formatter.(*logrus.JSONFormatter)
			assert.Equal(t, tt.wantJSON, isJSON)

			logger.Error("written")
			assert.Contains(t, buf.String(), "written")
		})
	}
}

func TestBridge(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		payload any
		verbose bool
		want    logrus.Level
		wantMsg string
	}{
		{name: "warn", topic: plugin.TopicLogWarn, payload: "careful", want: logrus.WarnLevel, wantMsg: "careful"},
		{name: "error value", topic: plugin.TopicLogError, payload: errors.New("broken"), want: logrus.ErrorLevel, wantMsg: "broken"},
		{name: "verbose quiet", topic: plugin.TopicLogVerbose, payload: "detail", want: logrus.DebugLevel, wantMsg: "detail"},
		{name: "verbose on", topic: plugin.TopicLogVerbose, payload: "detail", verbose: true, want: logrus.InfoLevel, wantMsg: "detail"},
		{name: "non string", topic: plugin.TopicLogInfo, payload: 42, want: logrus.InfoLevel, wantMsg: "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, hook := test.NewNullLogger()
			logger.SetLevel(logrus.DebugLevel)

			bus := eventbus.NewEventBus(logger)
			Bridge(bus, logger, tt.verbose)
			bus.Trigger(tt.topic, tt.payload)

			entry := hook.LastEntry()
			require.NotNil(t, entry)
			assert.Equal(t, tt.want, entry.Level)
			assert.Equal(t, tt.wantMsg, entry.Message)
			assert.Equal(t, tt.topic, entry.Data["topic"])
		})
	}
}
