// Package configloader discovers project-local configuration files for
// plugins. It answers requests on the config open topic.
package configloader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/example/plugin-terser/pkg/eventbus"
	"github.com/example/plugin-terser/pkg/plugin"
)

// FlagCwd is the CLI flag that overrides the search directory
const FlagCwd = "cwd"

type format int

const (
	formatAuto format = iota
	formatJSON
	formatYAML
	formatScript
)

// ErrScriptConfig is reported for JavaScript configuration files, which are
// found but cannot be evaluated.
var ErrScriptConfig = errors.New("javascript configuration files are not supported")

type candidate struct {
	name   string
	format format
}

// candidates returns the file names searched for moduleName, first match wins.
func candidates(moduleName string) []candidate {
	return []candidate{
		{name: "package.json", format: formatJSON},
		{name: "." + moduleName + "rc", format: formatAuto},
		{name: "." + moduleName + "rc.json", format: formatJSON},
		{name: "." + moduleName + "rc.yaml", format: formatYAML},
		{name: "." + moduleName + "rc.yml", format: formatYAML},
		{name: "." + moduleName + "rc.js", format: formatScript},
		{name: "." + moduleName + "rc.cjs", format: formatScript},
		{name: moduleName + ".config.json", format: formatJSON},
		{name: moduleName + ".config.yaml", format: formatYAML},
		{name: moduleName + ".config.yml", format: formatYAML},
		{name: moduleName + ".config.js", format: formatScript},
		{name: moduleName + ".config.cjs", format: formatScript},
	}
}

// Loader searches a directory for configuration files
type Loader struct {
	bus eventbus.Bus
	dir string
	log logrus.FieldLogger
}

// New creates a Loader searching dir unless a request names another
// directory through its cwd flag. An empty dir means the process working directory.
func New(bus eventbus.Bus, dir string, log logrus.FieldLogger) *Loader {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Loader{bus: bus, dir: dir, log: log}
}

// Register subscribes the loader to the config open topic
func (l *Loader) Register() {
	l.bus.On(plugin.TopicConfigOpen, l.handle)
}

func (l *Loader) handle(ctx context.Context, payload any) (any, error) {
	var req plugin.ConfigRequest
	switch p := payload.(type) {
	case plugin.ConfigRequest:
		req = p
	case *plugin.ConfigRequest:
		if p == nil {
			return nil, errors.New("nil config request")
		}
		req = *p
	default:
		return nil, fmt.Errorf("unexpected config request %T", payload)
	}
	if req.ModuleName == "" {
		return nil, errors.New("config request without module name")
	}

	dir := req.CLIFlags.String(FlagCwd)
	if dir == "" {
		dir = l.dir
	}

	result, err := l.Find(dir, req.ModuleName)
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		msg := req.ErrorMessage
		if msg == "" {
			msg = fmt.Sprintf("%s: loading local configuration file failed", req.PackageName)
		}
		l.bus.Trigger(plugin.TopicLogDebug, fmt.Sprintf("%s\n%v", msg, parseErr))
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	return result, nil
}

// ParseError reports a configuration file that exists but could not be decoded
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Find looks for the configuration of moduleName in dir. It returns nil when
// no file exists. A file that fails to decode yields a result with a nil
// Config together with a *ParseError, as does a JavaScript configuration file.
func (l *Loader) Find(dir, moduleName string) (*plugin.ConfigResult, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolving working directory: %w", err)
		}
		dir = wd
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", dir, err)
	}

	for _, c := range candidates(moduleName) {
		path := filepath.Join(dir, c.name)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}

		result := &plugin.ConfigResult{
			FilePath:     path,
			RelativePath: "." + string(filepath.Separator) + c.name,
		}

		if c.name == "package.json" {
			value, found, err := packageProperty(data, moduleName)
			if err != nil {
				l.log.WithFields(logrus.Fields{
					"path":  path,
					"error": err.Error(),
				}).Debug("Skipping unreadable package.json")
				continue
			}
			if !found {
				continue
			}
			result.Config = value
			return result, nil
		}

		if c.format == formatScript {
			return result, &ParseError{Path: path, Err: ErrScriptConfig}
		}

		value, err := decode(data, c.format)
		if err != nil {
			return result, &ParseError{Path: path, Err: err}
		}
		result.Config = value
		l.log.WithField("path", path).Debug("Found local configuration file")
		return result, nil
	}
	return nil, nil
}

func packageProperty(data []byte, moduleName string) (any, bool, error) {
	var pkg map[string]json.RawMessage
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, false, err
	}
	raw, ok := pkg[moduleName]
	if !ok {
		return nil, false, nil
	}
	value, err := decodeJSON(raw)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// decode returns the file content as generic values. A file with no content
// decodes to an empty object.
func decode(data []byte, f format) (any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]any{}, nil
	}

	switch f {
	case formatJSON:
		return decodeJSON(data)
	case formatYAML:
		return decodeYAML(data)
	default:
		if strings.HasPrefix(string(bytes.TrimSpace(data)), "{") {
			if value, err := decodeJSON(data); err == nil {
				return value, nil
			}
		}
		return decodeYAML(data)
	}
}

func decodeJSON(data []byte) (any, error) {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, err
	}
	return value, nil
}

func decodeYAML(data []byte) (any, error) {
	var value any
	if err := yaml.Unmarshal(data, &value); err != nil {
		return nil, err
	}
	return value, nil
}
