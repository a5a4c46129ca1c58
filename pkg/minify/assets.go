package minify

import (
	"fmt"
	"path/filepath"
	"strings"

	tdminify "github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/json"
	"github.com/tdewolff/minify/v2/svg"
)

var assetTypes = map[string]string{
	".css":  "text/css",
	".html": "text/html",
	".htm":  "text/html",
	".svg":  "image/svg+xml",
	".json": "application/json",
	".map":  "application/json",
}

// Assets minifies the non-JavaScript files a bundle emits
type Assets struct {
	m *tdminify.M
}

// NewAssets creates an asset minifier for CSS, HTML, SVG and JSON
func NewAssets() *Assets {
	m := tdminify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("text/html", html.Minify)
	m.AddFunc("image/svg+xml", svg.Minify)
	m.AddFunc("application/json", json.Minify)
	return &Assets{m: m}
}

// Minify minifies content based on the extension of fileName. Unknown types are
// returned untouched with handled set to false.
func (a *Assets) Minify(fileName string, content []byte) (out []byte, handled bool, err error) {
	mediatype, ok := assetTypes[strings.ToLower(filepath.Ext(fileName))]
	if !ok {
		return content, false, nil
	}
	out, err = a.m.Bytes(mediatype, content)
	if err != nil {
		return nil, true, fmt.Errorf("minifying %s: %w", fileName, err)
	}
	return out, true, nil
}
