package render

import (
	"net/url"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/goliatone/go-slug"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/blogbuilder/internal/taxonomy"
)

func (r *Renderer) funcs() template.FuncMap {
	return template.FuncMap{
		"title":    titleCase,
		"upper":    strings.ToUpper,
		"lower":    strings.ToLower,
		"join":     join,
		"truncate": truncate,
		"slugify":  slug.Normalize,
		"absURL":   r.absURL,
		"termURL":  r.termURL,
	}
}

// titleCase builds a Caser per call; Casers keep state and must not be shared.
func titleCase(s string) string {
	return cases.Title(language.Und).String(s)
}

func join(sep string, items []string) string {
	return strings.Join(items, sep)
}

// truncate shortens s to at most n runes, appending "..." when cut.
func truncate(n int, s string) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimRightFunc(string(runes[:n]), func(r rune) bool { return r == ' ' }) + "..."
}

func (r *Renderer) absURL(p string) string {
	if u, err := url.Parse(p); err == nil && u.IsAbs() {
		return p
	}
	return r.baseURL + "/" + strings.TrimLeft(p, "/")
}

// termURL is the absolute URL of the page listing a tag or category. Terms
// without a usable directory name link to the taxonomy root.
func (r *Renderer) termURL(kind, term string) string {
	dir, ok := taxonomy.TermDir(term)
	if !ok {
		return r.absURL(kind + "/")
	}
	return r.absURL(kind + "/" + url.PathEscape(dir) + "/")
}
