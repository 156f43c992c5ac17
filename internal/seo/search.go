package seo

import (
	"encoding/json"
	"fmt"

	"git.home.luguber.info/inful/blogbuilder/internal/content"
	"git.home.luguber.info/inful/blogbuilder/internal/markdown"
)

// SearchEntry is one record of the client-side search index.
type SearchEntry struct {
	Title   string `json:"title"`
	Slug    string `json:"slug"`
	Content string `json:"content"`
}

// SearchIndex returns a JSON array with the title, slug and plain text of
// every post, in post order.
func SearchIndex(posts []content.Post) ([]byte, error) {
	entries := make([]SearchEntry, 0, len(posts))
	for _, p := range posts {
		entries = append(entries, SearchEntry{
			Title:   p.Meta.Title,
			Slug:    p.Meta.Slug,
			Content: markdown.PlainText(p.Content),
		})
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("encode search index: %w", err)
	}
	return data, nil
}
