package render

import (
	"strconv"

	"git.home.luguber.info/inful/blogbuilder/internal/config"
	"git.home.luguber.info/inful/blogbuilder/internal/content"
	"git.home.luguber.info/inful/blogbuilder/internal/taxonomy"
)

// RenderPost renders the detail page of a post.
func (r *Renderer) RenderPost(post content.Post, cfg *config.SiteConfig) (string, error) {
	data := r.baseData(cfg)
	data["post"] = postData(post, cfg)
	return r.Execute(PostTemplate, data)
}

// RenderIndex renders the index page from a flat post list. Templates may use
// either posts or a single-page paginator.
func (r *Renderer) RenderIndex(posts []content.Post, cfg *config.SiteConfig) (string, error) {
	page := taxonomy.Paginator[content.Post]{CurrentPage: 1, TotalPages: 1, Items: posts}
	return r.RenderPaginatedIndex(page, cfg)
}

// RenderPaginatedIndex renders one page of the index.
func (r *Renderer) RenderPaginatedIndex(page taxonomy.Paginator[content.Post], cfg *config.SiteConfig) (string, error) {
	data := r.baseData(cfg)
	data["posts"] = postList(page.Items, cfg)
	data["paginator"] = paginatorData(page, cfg)
	return r.Execute(IndexTemplate, data)
}

// RenderTaxonomy renders the page listing the posts of one tag or category.
func (r *Renderer) RenderTaxonomy(kind, name string, posts []content.Post, cfg *config.SiteConfig) (string, error) {
	data := r.baseData(cfg)
	data["kind"] = kind
	data["name"] = name
	data["posts"] = postList(posts, cfg)
	return r.Execute(TaxonomyTemplate, data)
}

// PageURL is the absolute URL of index page n (1-based).
func PageURL(cfg *config.SiteConfig, n int) string {
	if n <= 1 {
		return cfg.RootURL()
	}
	return cfg.BaseURL + "/page/" + strconv.Itoa(n) + "/"
}

func (r *Renderer) baseData(cfg *config.SiteConfig) map[string]any {
	return map[string]any{
		"config": configData(cfg),
		"build":  map[string]any{"commit": r.commit},
	}
}

func configData(cfg *config.SiteConfig) map[string]any {
	params := cfg.Params
	if params == nil {
		params = map[string]any{}
	}
	return map[string]any{
		"title":          cfg.Title,
		"base_url":       cfg.BaseURL,
		"description":    cfg.Description,
		"posts_per_page": cfg.PostsPerPage,
		"theme":          cfg.Theme,
		"params":         params,
	}
}

func postData(p content.Post, cfg *config.SiteConfig) map[string]any {
	return map[string]any{
		"meta": map[string]any{
			"title":      p.Meta.Title,
			"date":       p.Meta.Date,
			"slug":       p.Meta.Slug,
			"tags":       nonNil(p.Meta.Tags),
			"categories": nonNil(p.Meta.Categories),
			"draft":      p.Meta.Draft,
			"image":      p.Meta.Image,
		},
		"content": p.Content,
		"url":     cfg.PostURL(p.Meta.Slug),
	}
}

func postList(posts []content.Post, cfg *config.SiteConfig) []map[string]any {
	out := make([]map[string]any, 0, len(posts))
	for _, p := range posts {
		out = append(out, postData(p, cfg))
	}
	return out
}

func paginatorData(page taxonomy.Paginator[content.Post], cfg *config.SiteConfig) map[string]any {
	prev, next := "", ""
	if page.HasPrev() {
		prev = PageURL(cfg, page.CurrentPage-1)
	}
	if page.HasNext() {
		next = PageURL(cfg, page.CurrentPage+1)
	}
	return map[string]any{
		"current_page": page.CurrentPage,
		"total_pages":  page.TotalPages,
		"items":        postList(page.Items, cfg),
		"has_prev":     page.HasPrev(),
		"has_next":     page.HasNext(),
		"prev_url":     prev,
		"next_url":     next,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
