// Package logging configures the host logger and connects it to the log
// topics plugins publish on.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/example/plugin-terser/pkg/eventbus"
	"github.com/example/plugin-terser/pkg/plugin"
)

const timestampFormat = "2006-01-02 15:04:05"

// New creates a logger. Unknown levels fall back to info and any format
// other than "json" is rendered as text.
func New(level, format string, out io.Writer) *logrus.Logger {
	logger := logrus.New()

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: timestampFormat,
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: timestampFormat,
		})
	}

	if out == nil {
		out = os.Stderr
	}
	logger.SetOutput(out)
	return logger
}

// Bridge subscribes the log topics on bus and forwards every message to log.
// Verbose messages are logged at info when verbose is set and at debug otherwise.
func Bridge(bus eventbus.Bus, log logrus.FieldLogger, verbose bool) {
	verboseLevel := logrus.DebugLevel
	if verbose {
		verboseLevel = logrus.InfoLevel
	}

	levels := map[string]logrus.Level{
		plugin.TopicLogDebug:   logrus.DebugLevel,
		plugin.TopicLogVerbose: verboseLevel,
		plugin.TopicLogInfo:    logrus.InfoLevel,
		plugin.TopicLogWarn:    logrus.WarnLevel,
		plugin.TopicLogError:   logrus.ErrorLevel,
	}

	for topic, level := range levels {
		entry := log.WithField("topic", topic)
		bus.On(topic, func(ctx context.Context, payload any) (any, error) {
			entry.Log(level, message(payload))
			return nil, nil
		})
	}
}

func message(payload any) string {
	switch v := payload.(type) {
	case string:
		return v
	case error:
		return v.Error()
	default:
		return fmt.Sprint(v)
	}
}
