// Package taxonomy holds the pure transforms applied to a loaded post set:
// pagination and grouping by tag or category.
package taxonomy

import (
	ferrors "git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
)

// Paginator is one page of a larger ordered collection.
type Paginator[T any] struct {
	CurrentPage int
	TotalPages  int
	Items       []T
}

// HasPrev reports whether a previous page exists.
func (p Paginator[T]) HasPrev() bool { return p.CurrentPage > 1 }

// HasNext reports whether a following page exists.
func (p Paginator[T]) HasNext() bool { return p.CurrentPage < p.TotalPages }

// Paginate splits items into pages of perPage items, preserving order.
// An empty input yields no pages. perPage must be positive.
func Paginate[T any](items []T, perPage int) ([]Paginator[T], error) {
	if perPage <= 0 {
		return nil, ferrors.ValidationError("page size must be positive").
			WithContext("per_page", perPage).
			Build()
	}
	if len(items) == 0 {
		return nil, nil
	}

	total := (len(items) + perPage - 1) / perPage
	pages := make([]Paginator[T], 0, total)
	for i := 0; i < total; i++ {
		start := i * perPage
		end := min(start+perPage, len(items))
		pages = append(pages, Paginator[T]{
			CurrentPage: i + 1,
			TotalPages:  total,
			Items:       items[start:end:end],
		})
	}
	return pages, nil
}
