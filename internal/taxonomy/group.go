package taxonomy

import (
	"sort"

	"git.home.luguber.info/inful/blogbuilder/internal/content"
)

// Kinds of taxonomy, also used as output directory names.
const (
	KindTags       = "tags"
	KindCategories = "categories"
)

// Index maps a term to the posts that reference it. Terms are compared
// exactly, without case or whitespace normalization.
type Index map[string][]content.Post

// Names returns the terms of the index in sorted order.
func (idx Index) Names() []string {
	names := make([]string, 0, len(idx))
	for name := range idx {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GroupByTag groups posts by each of their tags.
func GroupByTag(posts []content.Post) Index {
	return groupBy(posts, func(p content.Post) []string { return p.Meta.Tags })
}

// GroupByCategory groups posts by each of their categories.
func GroupByCategory(posts []content.Post) Index {
	return groupBy(posts, func(p content.Post) []string { return p.Meta.Categories })
}

// Group dispatches to GroupByTag or GroupByCategory by kind.
func Group(kind string, posts []content.Post) Index {
	if kind == KindCategories {
		return GroupByCategory(posts)
	}
	return GroupByTag(posts)
}

func groupBy(posts []content.Post, terms func(content.Post) []string) Index {
	idx := make(Index)
	for _, p := range posts {
		seen := make(map[string]struct{})
		for _, term := range terms(p) {
			if _, dup := seen[term]; dup {
				continue
			}
			seen[term] = struct{}{}
			idx[term] = append(idx[term], p)
		}
	}
	return idx
}
