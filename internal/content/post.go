// Package content loads Markdown posts from disk.
package content

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/goliatone/go-slug"
	"github.com/inful/mdfp"

	ferrors "git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/frontmatter"
	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
	"git.home.luguber.info/inful/blogbuilder/internal/markdown"
)

// PostMeta is the front matter of a post. Date is kept verbatim.
type PostMeta struct {
	Title      string   `yaml:"title"`
	Date       string   `yaml:"date,omitempty"`
	Slug       string   `yaml:"slug"`
	Tags       []string `yaml:"tags,omitempty"`
	Categories []string `yaml:"categories,omitempty"`
	Draft      bool     `yaml:"draft,omitempty"`
	Image      string   `yaml:"image,omitempty"`
}

// Post is one parsed source file. Posts are not modified after loading.
type Post struct {
	Meta    PostMeta
	Content string
	// Path is the source file path relative to the content root, slash separated.
	Path        string
	Fingerprint string
}

// ParsePost decodes front matter and renders the body of a single source file.
// Errors name path.
func ParsePost(path string, src []byte, md *markdown.Renderer) (Post, error) {
	var meta PostMeta
	body, err := frontmatter.Decode(src, &meta)
	if err != nil {
		if errors.Is(err, frontmatter.ErrMissing) {
			return Post{}, contentError(err, path, "missing front matter")
		}
		return Post{}, contentError(err, path, "invalid front matter")
	}

	meta.Title = strings.TrimSpace(meta.Title)
	meta.Slug = strings.TrimSpace(meta.Slug)
	if meta.Title == "" {
		return Post{}, ferrors.ContentError(fmt.Sprintf("%s: front matter is missing title", path)).
			WithContext("path", path).
			WithContext("field", "title").
			Build()
	}
	if meta.Slug == "" {
		return Post{}, ferrors.ContentError(fmt.Sprintf("%s: front matter is missing slug", path)).
			WithContext("path", path).
			WithContext("field", "slug").
			Build()
	}
	if !slug.IsValid(meta.Slug) {
		slog.Warn("Slug is not URL safe; it is used verbatim", logfields.Path(path), logfields.Slug(meta.Slug))
	}

	html, err := md.Render(body)
	if err != nil {
		return Post{}, contentError(err, path, "render markdown")
	}

	fp, err := fingerprint(meta, body)
	if err != nil {
		return Post{}, contentError(err, path, "fingerprint")
	}

	return Post{Meta: meta, Content: html, Path: path, Fingerprint: fp}, nil
}

// Source reassembles the post's front matter with body.
func (m PostMeta) Source(body []byte) ([]byte, error) {
	return frontmatter.Encode(m, body)
}

func fingerprint(meta PostMeta, body []byte) (string, error) {
	fm, err := frontmatter.Marshal(meta)
	if err != nil {
		return "", err
	}
	return mdfp.CalculateFingerprintFromParts(strings.TrimSuffix(string(fm), "\n"), string(body)), nil
}

func contentError(err error, path, msg string) error {
	return ferrors.WrapError(err, ferrors.CategoryContent, fmt.Sprintf("%s: %s", path, msg)).
		UserAction().
		WithContext("path", path).
		Build()
}
