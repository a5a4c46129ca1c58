// Package flaghandler collects the CLI flags plugins contribute and turns them
// into cobra flags on the command they target.
package flaghandler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/example/plugin-terser/pkg/eventbus"
	"github.com/example/plugin-terser/pkg/plugin"
)

// ErrDuplicateFlag is returned when two contributions use the same flag name on one command
var ErrDuplicateFlag = errors.New("flag already registered")

// Contribution is a flag together with the plugin that contributed it
type Contribution struct {
	Plugin string
	Spec   plugin.FlagSpec
}

// Handler records flag contributions per command
type Handler struct {
	mu       sync.RWMutex
	commands map[string]map[string]Contribution
	log      logrus.FieldLogger
}

// New creates an empty Handler
func New(log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{
		commands: make(map[string]map[string]Contribution),
		log:      log,
	}
}

// Register subscribes the handler to the flag registration topic
func (h *Handler) Register(bus eventbus.Bus) {
	bus.On(plugin.TopicFlagHandlerAdd, func(ctx context.Context, payload any) (any, error) {
		switch req := payload.(type) {
		case plugin.FlagRequest:
			return nil, h.Add(req)
		case *plugin.FlagRequest:
			if req == nil {
				return nil, errors.New("nil flag request")
			}
			return nil, h.Add(*req)
		default:
			return nil, fmt.Errorf("unexpected flag request %T", payload)
		}
	})
}

// Add records the flags of req. Nothing is recorded when any flag name is
// already taken on the command.
func (h *Handler) Add(req plugin.FlagRequest) error {
	if req.Command == "" {
		return errors.New("flag request without command")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	existing := h.commands[req.Command]
	for key, spec := range req.Flags {
		name := flagName(key, spec)
		if prev, ok := existing[name]; ok {
			return fmt.Errorf("--%s from %s on %s: %w (by %s)", name, req.PluginName, req.Command, ErrDuplicateFlag, prev.Plugin)
		}
		if spec.Default == nil {
			return fmt.Errorf("--%s from %s has no default", name, req.PluginName)
		}
	}

	if existing == nil {
		existing = make(map[string]Contribution)
		h.commands[req.Command] = existing
	}
	for key, spec := range req.Flags {
		spec.Name = flagName(key, spec)
		existing[spec.Name] = Contribution{Plugin: req.PluginName, Spec: spec}
		h.log.WithFields(logrus.Fields{
			"command": req.Command,
			"flag":    spec.Name,
			"plugin":  req.PluginName,
		}).Debug("Registered plugin flag")
	}
	return nil
}

func flagName(key string, spec plugin.FlagSpec) string {
	if spec.Name != "" {
		return spec.Name
	}
	return key
}

// Contributions returns the flags contributed to command ordered by name
func (h *Handler) Contributions(command string) []Contribution {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Contribution, 0, len(h.commands[command]))
	for _, c := range h.commands[command] {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Spec.Name < out[j].Spec.Name })
	return out
}

// Apply defines the contributed flags on cmd. Defaults are computed from env.
// Negatable flags get a hidden --no-<name> companion.
func (h *Handler) Apply(cmd *cobra.Command, env plugin.Env) error {
	flags := cmd.Flags()
	for _, c := range h.Contributions(cmd.Name()) {
		spec := c.Spec
		if flags.Lookup(spec.Name) != nil {
			return fmt.Errorf("--%s from %s: %w", spec.Name, c.Plugin, ErrDuplicateFlag)
		}
		flags.Bool(spec.Name, spec.Default(env), spec.Description)

		if !spec.AllowNo {
			continue
		}
		negation := "no-" + spec.Name
		flags.Bool(negation, false, "Negate --"+spec.Name)
		if err := flags.MarkHidden(negation); err != nil {
			return err
		}
	}
	return nil
}

// Resolve reads the contributed flags back from a parsed cmd
func (h *Handler) Resolve(cmd *cobra.Command) (plugin.Flags, error) {
	flags := cmd.Flags()
	out := make(plugin.Flags)
	for _, c := range h.Contributions(cmd.Name()) {
		name := c.Spec.Name
		value, err := flags.GetBool(name)
		if err != nil {
			return nil, err
		}

		if c.Spec.AllowNo {
			negation := "no-" + name
			negated, err := flags.GetBool(negation)
			if err != nil {
				return nil, err
			}
			if flags.Changed(name) && flags.Changed(negation) {
				return nil, fmt.Errorf("--%s and --%s cannot be used together", name, negation)
			}
			if negated {
				value = false
			}
		}
		out[name] = value
	}
	return out, nil
}
