// Package markdown converts post bodies to HTML.
package markdown

import (
	"bytes"
	"fmt"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
)

// Renderer converts Markdown to HTML with tables, strikethrough, footnotes and
// task lists enabled. Raw HTML in the source is emitted unchanged.
//
// A Renderer is stateless after construction and safe for concurrent use.
type Renderer struct {
	engine goldmark.Markdown
}

// Option configures a Renderer.
type Option func(*config)

type config struct {
	hardWraps      bool
	linkify        bool
	highlightStyle string
}

// WithHardWraps renders soft line breaks as <br>.
func WithHardWraps() Option {
	return func(c *config) { c.hardWraps = true }
}

// WithLinkify turns bare URLs into links.
func WithLinkify() Option {
	return func(c *config) { c.linkify = true }
}

// WithHighlighting colors fenced code blocks with the named chroma style
// using inline styles. An empty name leaves code blocks plain.
func WithHighlighting(style string) Option {
	return func(c *config) { c.highlightStyle = style }
}

// HasStyle reports whether style names a registered highlighting style.
func HasStyle(style string) bool {
	_, ok := styles.Registry[style]
	return ok
}

// New returns a Renderer.
func New(opts ...Option) *Renderer {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	exts := []goldmark.Extender{
		extension.Table,
		extension.Strikethrough,
		extension.Footnote,
		extension.TaskList,
	}
	if cfg.linkify {
		exts = append(exts, extension.Linkify)
	}
	if cfg.highlightStyle != "" {
		exts = append(exts, highlighting.NewHighlighting(
			highlighting.WithStyle(cfg.highlightStyle),
			highlighting.WithFormatOptions(chromahtml.WithClasses(false)),
		))
	}

	rendererOptions := []renderer.Option{html.WithUnsafe()}
	if cfg.hardWraps {
		rendererOptions = append(rendererOptions, html.WithHardWraps())
	}

	return &Renderer{
		engine: goldmark.New(
			goldmark.WithExtensions(exts...),
			goldmark.WithRendererOptions(rendererOptions...),
		),
	}
}

// Render converts a Markdown body (front matter already removed) to HTML.
func (r *Renderer) Render(body []byte) (string, error) {
	var buf bytes.Buffer
	if err := r.engine.Convert(body, &buf); err != nil {
		return "", fmt.Errorf("markdown render: %w", err)
	}
	return buf.String(), nil
}
