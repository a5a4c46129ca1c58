// Package minify turns Terser style option maps into a JavaScript minifier
// backed by esbuild.
//
// The option map is treated as pass-through data. Options that have an esbuild
// equivalent are honoured, the rest (passes, booleans_as_integers, ...) are
// accepted and ignored so a configuration written for Terser keeps working.
package minify

import (
	"fmt"
	"math"

	"github.com/evanw/esbuild/pkg/api"
)

var ecmaTargets = map[int]api.Target{
	5:    api.ES5,
	2015: api.ES2015,
	2016: api.ES2016,
	2017: api.ES2017,
	2018: api.ES2018,
	2019: api.ES2019,
	2020: api.ES2020,
	2021: api.ES2021,
	2022: api.ES2022,
}

// TransformOptions translates Terser options into esbuild transform options.
func TransformOptions(config map[string]any) (api.TransformOptions, error) {
	opts := api.TransformOptions{
		Loader:           api.LoaderJS,
		MinifyWhitespace: true,
	}

	syntax, compress, err := section(config, "compress")
	if err != nil {
		return opts, err
	}
	opts.MinifySyntax = syntax
	if compress != nil {
		if isTrue(compress["drop_console"]) {
			opts.Drop |= api.DropConsole
		}
		if isTrue(compress["drop_debugger"]) {
			opts.Drop |= api.DropDebugger
		}
		if isTrue(compress["keep_fnames"]) || isTrue(compress["keep_classnames"]) {
			opts.KeepNames = true
		}
		pure, err := stringList(compress["pure_funcs"])
		if err != nil {
			return opts, fmt.Errorf("compress.pure_funcs: %w", err)
		}
		opts.Pure = pure
	}

	identifiers, mangle, err := section(config, "mangle")
	if err != nil {
		return opts, err
	}
	opts.MinifyIdentifiers = identifiers
	if mangle != nil && (isTrue(mangle["keep_fnames"]) || isTrue(mangle["keep_classnames"])) {
		opts.KeepNames = true
	}

	if isTrue(config["keep_fnames"]) || isTrue(config["keep_classnames"]) {
		opts.KeepNames = true
	}

	for _, key := range []string{"format", "output"} {
		format, ok := config[key].(map[string]any)
		if !ok {
			continue
		}
		if isTrue(format["beautify"]) {
			opts.MinifyWhitespace = false
		}
		if c, ok := format["comments"].(bool); ok && !c {
			opts.LegalComments = api.LegalCommentsNone
		}
	}

	if v, ok := config["ecma"]; ok {
		target, err := ecmaTarget(v)
		if err != nil {
			return opts, err
		}
		opts.Target = target
	}

	if isTrue(config["module"]) {
		opts.Format = api.FormatESModule
	}

	return opts, nil
}

// section reads an option that may be a boolean or an object of sub-options.
// An absent option counts as enabled.
func section(config map[string]any, key string) (bool, map[string]any, error) {
	v, ok := config[key]
	if !ok || v == nil {
		return true, nil, nil
	}
	switch t := v.(type) {
	case bool:
		return t, nil, nil
	case map[string]any:
		return true, t, nil
	default:
		return false, nil, fmt.Errorf("option %q must be a boolean or an object, got %T", key, v)
	}
}

func ecmaTarget(v any) (api.Target, error) {
	n, ok := toInt(v)
	if !ok {
		return api.DefaultTarget, fmt.Errorf("option \"ecma\" must be a number, got %T", v)
	}
	// ES6 through ES13 style numbering
	if n >= 6 && n <= 13 {
		n += 2009
	}
	if target, ok := ecmaTargets[n]; ok {
		return target, nil
	}
	if n > 2022 {
		return api.ESNext, nil
	}
	return api.DefaultTarget, fmt.Errorf("unsupported ecma version: %d", n)
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case float32:
		return toInt(float64(n))
	default:
		return 0, false
	}
}

func isTrue(v any) bool {
	b, ok := v.(bool)
	return ok && b
}

func stringList(v any) ([]string, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []string:
		return t, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected strings, got %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a list, got %T", v)
	}
}
