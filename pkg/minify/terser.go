package minify

import (
	"context"
	"errors"
	"fmt"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/example/plugin-terser/pkg/plugin"
)

// Engine performs the minification of a single chunk
type Engine interface {
	Minify(ctx context.Context, code []byte, fileName string, config map[string]any) ([]byte, error)
}

// ESBuild is the in-process engine
type ESBuild struct{}

// Minify runs esbuild's transform API over code
func (ESBuild) Minify(ctx context.Context, code []byte, fileName string, config map[string]any) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts, err := TransformOptions(config)
	if err != nil {
		return nil, err
	}
	opts.Sourcefile = fileName

	result := api.Transform(string(code), opts)
	if len(result.Errors) > 0 {
		return nil, messagesError(result.Errors)
	}
	return result.Code, nil
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

// Terser is a configured minifier usable as an output plugin
type Terser struct {
	config map[string]any
	engine Engine
	assets *Assets
}

// Option configures a Terser
type Option func(*Terser)

// WithEngine replaces the in-process esbuild engine
func WithEngine(engine Engine) Option {
	return func(t *Terser) {
		t.engine = engine
	}
}

// WithAssets sets the minifier used for non-JavaScript outputs
func WithAssets(assets *Assets) Option {
	return func(t *Terser) {
		t.assets = assets
	}
}

// New creates a minifier for config. With the local engine the configuration
// is checked immediately so option errors surface before any chunk is rendered.
func New(config map[string]any, opts ...Option) (*Terser, error) {
	t := &Terser{
		config: config,
		engine: ESBuild{},
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.assets == nil {
		t.assets = NewAssets()
	}

	if _, local := t.engine.(ESBuild); local {
		if _, err := TransformOptions(config); err != nil {
			return nil, fmt.Errorf("invalid terser configuration: %w", err)
		}
	}
	return t, nil
}

// Name implements plugin.OutputPlugin
func (t *Terser) Name() string { return "terser" }

// Config returns the configuration the minifier was built with
func (t *Terser) Config() map[string]any { return t.config }

// RenderChunk implements plugin.OutputPlugin
func (t *Terser) RenderChunk(ctx context.Context, code []byte, chunk plugin.ChunkInfo) ([]byte, error) {
	out, err := t.engine.Minify(ctx, code, chunk.FileName, t.config)
	if err != nil {
		return nil, fmt.Errorf("terser: minifying %s: %w", chunk.FileName, err)
	}
	return out, nil
}

// RenderAsset implements plugin.AssetRenderer
func (t *Terser) RenderAsset(ctx context.Context, fileName string, content []byte) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	return t.assets.Minify(fileName, content)
}
