package taxonomy

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-slug"

	"git.home.luguber.info/inful/blogbuilder/internal/content"
	ferrors "git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
)

// TermDir returns the output directory name for a term. A term that is
// already a single path segment is used verbatim; any other term is
// slug-normalized, so "CI/CD" becomes "cicd".
func TermDir(term string) (string, bool) {
	if isSegment(term) {
		return term, true
	}
	dir, err := slug.Normalize(term)
	if err != nil || !isSegment(dir) {
		return "", false
	}
	return dir, true
}

// Dirs maps every term of the index to its output directory name. A term
// with no usable directory name, or two terms sharing one, is a content
// error naming the terms and the posts that carry them.
func (idx Index) Dirs(kind string) (map[string]string, error) {
	dirs := make(map[string]string, len(idx))
	owner := make(map[string]string, len(idx))
	for _, term := range idx.Names() {
		dir, ok := TermDir(term)
		if !ok {
			return nil, termError(kind, fmt.Sprintf("%s term %q cannot be used as a directory name", kind, term),
				idx[term])
		}
		if other, taken := owner[dir]; taken {
			return nil, termError(kind, fmt.Sprintf("%s terms %q and %q share the directory %s/%s", kind, other, term, kind, dir),
				append(append([]content.Post{}, idx[other]...), idx[term]...))
		}
		owner[dir] = term
		dirs[term] = dir
	}
	return dirs, nil
}

func termError(kind, msg string, posts []content.Post) error {
	paths := make([]string, 0, len(posts))
	for _, p := range posts {
		paths = append(paths, p.Path)
	}
	joined := strings.Join(paths, ", ")
	return ferrors.ContentError(msg+" (used by "+joined+")").
		WithContext("kind", kind).
		WithContext("path", joined).
		Build()
}

func isSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}
