package ui

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))
	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("46"))
	offStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

// PluginInfo is what `info` shows about a plugin
type PluginInfo struct {
	Name        string
	Type        string
	Description string
	Enabled     bool
	Registered  bool
	Address     string
	Conflicts   []string
	Options     map[string]any
}

// FlagInfo describes a flag a plugin contributes
type FlagInfo struct {
	Name        string
	Description string
	Default     bool
	Negatable   bool
}

// DisplayPluginInfo prints plugin information in a formatted way
func DisplayPluginInfo(w io.Writer, info PluginInfo, flags []FlagInfo) {
	fmt.Fprintln(w, titleStyle.Render("Plugin Information"))
	row(w, "Name", info.Name)
	row(w, "Type", info.Type)
	if info.Description != "" {
		row(w, "Description", info.Description)
	}
	row(w, "Status", status(info.Enabled, "enabled", "disabled"))
	row(w, "Registered", status(info.Registered, "yes", "no"))
	if info.Address != "" {
		row(w, "Address", info.Address)
	}
	if len(info.Conflicts) > 0 {
		row(w, "Conflicts", strings.Join(info.Conflicts, ", "))
	}
	if len(info.Options) > 0 {
		fmt.Fprintln(w, labelStyle.Render("  Options:"))
		for _, k := range sortedKeys(info.Options) {
			fmt.Fprintf(w, "    %s: %v\n", k, info.Options[k])
		}
	}

	if len(flags) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render("Flags (bundle)"))
	for _, f := range flags {
		usage := "--" + f.Name
		if f.Negatable {
			usage += ", --no-" + f.Name
		}
		fmt.Fprintf(w, "  %s\n", usage)
		fmt.Fprintf(w, "      %s\n", f.Description)
		fmt.Fprintf(w, "      %s %v\n", labelStyle.Render("Default:"), f.Default)
	}
}

func row(w io.Writer, label, value string) {
	fmt.Fprintf(w, "  %s %s\n", labelStyle.Render(label+":"), value)
}

func status(ok bool, yes, no string) string {
	if ok {
		return okStyle.Render(yes)
	}
	return offStyle.Render(no)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
