// Package render executes theme templates.
//
// Templates are plain text/template files: output is not auto-escaped, so
// rendered post HTML passes through as is. Every template runs with
// missingkey=error, so a reference to a key the data does not carry fails the
// render instead of printing "<no value>".
package render

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	ferrors "git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
)

// Template names used by the build.
const (
	PostTemplate     = "post.html"
	IndexTemplate    = "index.html"
	TaxonomyTemplate = "taxonomy.html"
)

// ErrTemplateNotFound is wrapped when a named template is not part of the theme.
var ErrTemplateNotFound = errors.New("template not found")

// Renderer holds the parsed templates of one theme. It is not modified after
// New returns and may be shared between goroutines.
type Renderer struct {
	root    *template.Template
	names   []string
	baseURL string
	commit  string
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithBaseURL sets the base used by the absURL template function.
func WithBaseURL(base string) Option {
	return func(r *Renderer) { r.baseURL = strings.TrimRight(base, "/") }
}

// WithCommit exposes the source revision to templates as build.commit.
func WithCommit(commit string) Option {
	return func(r *Renderer) { r.commit = commit }
}

// New parses every *.html file below themeDir. A template is named by its
// slash-separated path relative to themeDir, e.g. "partials/header.html".
func New(themeDir string, opts ...Option) (*Renderer, error) {
	r := &Renderer{}
	for _, opt := range opts {
		opt(r)
	}

	info, err := os.Stat(themeDir)
	if err != nil || !info.IsDir() {
		b := ferrors.TemplateError("theme directory not found").WithContext("path", themeDir)
		if err != nil {
			b = ferrors.WrapError(err, ferrors.CategoryTemplate, "theme directory not found").
				UserAction().
				WithContext("path", themeDir)
		}
		return nil, b.Build()
	}

	root := template.New("").Funcs(r.funcs()).Option("missingkey=error")

	err = filepath.WalkDir(themeDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || filepath.Ext(path) != ".html" {
			return nil
		}
		rel, err := filepath.Rel(themeDir, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)

		src, err := os.ReadFile(path)
		if err != nil {
			return ferrors.WrapError(err, ferrors.CategoryFileSystem, "read template").
				WithContext("template", name).
				WithContext("path", path).
				Build()
		}
		if _, err := root.New(name).Parse(string(src)); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryTemplate, fmt.Sprintf("parse template %s", name)).
				UserAction().
				WithContext("template", name).
				WithContext("path", path).
				Build()
		}
		r.names = append(r.names, name)
		return nil
	})
	if err != nil {
		if ferrors.IsClassified(err) {
			return nil, err
		}
		return nil, ferrors.WrapError(err, ferrors.CategoryTemplate, "load theme").
			WithContext("path", themeDir).
			Build()
	}

	sort.Strings(r.names)
	r.root = root
	return r, nil
}

// Has reports whether the theme defines the named template.
func (r *Renderer) Has(name string) bool {
	return r.root.Lookup(name) != nil
}

// Names returns the template names in sorted order.
func (r *Renderer) Names() []string {
	return append([]string(nil), r.names...)
}

// Require fails unless every named template exists.
func (r *Renderer) Require(names ...string) error {
	for _, name := range names {
		if !r.Has(name) {
			return notFound(name)
		}
	}
	return nil
}

// Execute renders the named template with data.
func (r *Renderer) Execute(name string, data map[string]any) (string, error) {
	tpl := r.root.Lookup(name)
	if tpl == nil {
		return "", notFound(name)
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", ferrors.WrapError(err, ferrors.CategoryTemplate, fmt.Sprintf("render template %s", name)).
			UserAction().
			WithContext("template", name).
			Build()
	}
	return buf.String(), nil
}

func notFound(name string) error {
	return ferrors.WrapError(ErrTemplateNotFound, ferrors.CategoryTemplate, fmt.Sprintf("template %s is not defined by the theme", name)).
		UserAction().
		WithContext("template", name).
		Build()
}
