package ui

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
)

// FileSummary is one written bundle file
type FileSummary struct {
	Path    string
	RawSize int
	Size    int
}

// BundleSummary describes a finished bundle
type BundleSummary struct {
	Files    []FileSummary
	Plugins  []string
	Warnings []string
	Duration time.Duration
}

// DisplayBundleSummary prints the files a bundle wrote relative to dir
func DisplayBundleSummary(w io.Writer, dir string, summary BundleSummary) {
	fmt.Fprintln(w, titleStyle.Render("Bundle complete"))

	plugins := "none"
	if len(summary.Plugins) > 0 {
		plugins = strings.Join(summary.Plugins, ", ")
	}
	row(w, "Output plugins", plugins)
	row(w, "Duration", summary.Duration.Round(time.Millisecond).String())

	for _, f := range summary.Files {
		name := f.Path
		if rel, err := filepath.Rel(dir, f.Path); err == nil {
			name = rel
		}
		line := fmt.Sprintf("  %-32s %s", name, formatSize(f.Size))
		if f.Size != f.RawSize {
			line += labelStyle.Render(fmt.Sprintf(" (from %s, %s)", formatSize(f.RawSize), reduction(f.RawSize, f.Size)))
		}
		fmt.Fprintln(w, line)
	}

	for _, warning := range summary.Warnings {
		fmt.Fprintf(w, "  %s %s\n", offStyle.Render("warning:"), warning)
	}
}

func formatSize(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func reduction(raw, size int) string {
	if raw == 0 {
		return "0%"
	}
	return fmt.Sprintf("%+.1f%%", (float64(size)-float64(raw))/float64(raw)*100)
}
