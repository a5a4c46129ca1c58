// Package bundler is the host build pipeline. It bundles entry points with
// esbuild and runs the emitted files through the output plugins that loaded
// plugins hand back for the bundle target.
package bundler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/sirupsen/logrus"

	"github.com/example/plugin-terser/pkg/eventbus"
	"github.com/example/plugin-terser/pkg/plugin"
)

// Options configures one bundle
type Options struct {
	EntryPoints []string
	Outdir      string
	// Target is plugin.TargetMain or plugin.TargetNPM.
	Target string
	// Dir is the project directory relative paths are resolved against.
	Dir string
	// Flags are the resolved CLI flags handed to output plugins.
	Flags plugin.Flags
}

// OutputFile is a file written by a bundle
type OutputFile struct {
	Path string
	// Size before and after the output plugins ran.
	RawSize int
	Size    int
}

// Result describes a finished bundle
type Result struct {
	Files    []OutputFile
	Plugins  []string
	Warnings []string
}

// Bundler runs bundles
type Bundler struct {
	bus eventbus.Bus
	log logrus.FieldLogger
}

// New creates a Bundler requesting output plugins on bus
func New(bus eventbus.Bus, log logrus.FieldLogger) *Bundler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Bundler{bus: bus, log: log}
}

// Bundle builds opts and writes the result. Output plugins are requested anew
// for every bundle.
func (b *Bundler) Bundle(ctx context.Context, opts Options) (*Result, error) {
	if len(opts.EntryPoints) == 0 {
		return nil, errors.New("no entry points")
	}
	dir, err := projectDir(opts.Dir)
	if err != nil {
		return nil, err
	}
	outdir := opts.Outdir
	if outdir == "" {
		outdir = "dist"
	}
	if !filepath.IsAbs(outdir) {
		outdir = filepath.Join(dir, outdir)
	}

	built := api.Build(buildOptions(opts, dir, outdir))
	if len(built.Errors) > 0 {
		return nil, fmt.Errorf("build failed: %w", messagesError(built.Errors))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	outputs, err := b.outputPlugins(ctx, opts)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for _, w := range built.Warnings {
		result.Warnings = append(result.Warnings, w.Text)
	}
	for _, p := range outputs {
		result.Plugins = append(result.Plugins, p.Name())
	}

	entries := entryNames(opts.EntryPoints)
	for _, file := range built.OutputFiles {
		contents, err := render(ctx, outputs, file, outdir, entries)
		if err != nil {
			return nil, err
		}
		if err := writeFile(file.Path, contents); err != nil {
			return nil, err
		}
		result.Files = append(result.Files, OutputFile{
			Path:    file.Path,
			RawSize: len(file.Contents),
			Size:    len(contents),
		})
		b.log.WithFields(logrus.Fields{
			"file": file.Path,
			"size": len(contents),
		}).Debug("Wrote output file")
	}
	return result, nil
}

func projectDir(dir string) (string, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolving working directory: %w", err)
		}
		return wd, nil
	}
	return filepath.Abs(dir)
}

func buildOptions(opts Options, dir, outdir string) api.BuildOptions {
	build := api.BuildOptions{
		EntryPoints:   opts.EntryPoints,
		AbsWorkingDir: dir,
		Outdir:        outdir,
		Bundle:        true,
		Write:         false,
		LogLevel:      api.LogLevelSilent,
		Target:        api.ES2020,
	}
	if opts.Target == plugin.TargetNPM {
		build.Format = api.FormatESModule
		build.Platform = api.PlatformNeutral
		build.Packages = api.PackagesExternal
	} else {
		build.Format = api.FormatIIFE
		build.Platform = api.PlatformBrowser
	}
	return build
}

func (b *Bundler) outputPlugins(ctx context.Context, opts Options) ([]plugin.OutputPlugin, error) {
	data := plugin.BundleData{CLIFlags: opts.Flags, Target: opts.Target}
	if data.Target == "" {
		data.Target = plugin.TargetMain
	}

	results, err := b.bus.Request(ctx, plugin.OutputTopic(data.Target), data)
	if err != nil {
		return nil, fmt.Errorf("preparing output plugins: %w", err)
	}

	outputs := make([]plugin.OutputPlugin, 0, len(results))
	for _, r := range results {
		p, ok := r.(plugin.OutputPlugin)
		if !ok {
			b.log.WithField("type", fmt.Sprintf("%T", r)).Warn("Ignoring invalid output plugin")
			continue
		}
		outputs = append(outputs, p)
	}
	return outputs, nil
}

func render(ctx context.Context, outputs []plugin.OutputPlugin, file api.OutputFile, outdir string, entries map[string]bool) ([]byte, error) {
	contents := file.Contents
	name, err := filepath.Rel(outdir, file.Path)
	if err != nil {
		name = filepath.Base(file.Path)
	}

	if isJS(file.Path) {
		chunk := plugin.ChunkInfo{
			FileName: filepath.ToSlash(name),
			IsEntry:  entries[strings.TrimSuffix(filepath.Base(file.Path), filepath.Ext(file.Path))],
		}
		for _, p := range outputs {
			out, err := p.RenderChunk(ctx, contents, chunk)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", p.Name(), err)
			}
			contents = out
		}
		return contents, nil
	}

	for _, p := range outputs {
		renderer, ok := p.(plugin.AssetRenderer)
		if !ok {
			continue
		}
		out, handled, err := renderer.RenderAsset(ctx, filepath.ToSlash(name), contents)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p.Name(), err)
		}
		if handled {
			contents = out
		}
	}
	return contents, nil
}

func isJS(path string) bool {
	switch filepath.Ext(path) {
	case ".js", ".mjs", ".cjs":
		return true
	}
	return false
}

func entryNames(entryPoints []string) map[string]bool {
	names := make(map[string]bool, len(entryPoints))
	for _, e := range entryPoints {
		base := filepath.Base(e)
		names[strings.TrimSuffix(base, filepath.Ext(base))] = true
	}
	return names
}

func writeFile(path string, contents []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(path, contents, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func messagesError(msgs []api.Message) error {
	errs := make([]error, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Location != nil {
			errs = append(errs, fmt.Errorf("%s:%d:%d: %s", msg.Location.File, msg.Location.Line, msg.Location.Column, msg.Text))
			continue
		}
		errs = append(errs, errors.New(msg.Text))
	}
	return errors.Join(errs...)
}
