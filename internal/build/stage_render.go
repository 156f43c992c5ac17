package build

import (
	"context"
	"log/slog"
	"strconv"

	"git.home.luguber.info/inful/blogbuilder/internal/content"
	ferrors "git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
	"git.home.luguber.info/inful/blogbuilder/internal/render"
	"git.home.luguber.info/inful/blogbuilder/internal/seo"
	"git.home.luguber.info/inful/blogbuilder/internal/taxonomy"
)

// Output file names at the site root.
const (
	IndexFile   = "index.html"
	SitemapFile = "sitemap.xml"
	RSSFile     = "rss.xml"
	SearchFile  = "search.json"
)

func stageRenderIndex(ctx context.Context, st *buildState) error {
	if err := renderIndexPages(ctx, st); err != nil {
		return err
	}

	sitemap, err := seo.Sitemap(st.posts, st.cfg)
	if err != nil {
		return err
	}
	if err := st.writePage(SitemapFile, []byte(sitemap)); err != nil {
		return err
	}

	feed, err := seo.RSS(st.posts, st.cfg)
	if err != nil {
		return err
	}
	if err := st.writePage(RSSFile, []byte(feed)); err != nil {
		return err
	}

	index, err := seo.SearchIndex(st.posts)
	if err != nil {
		return err
	}
	return st.writePage(SearchFile, index)
}

func renderIndexPages(ctx context.Context, st *buildState) error {
	if st.cfg.PostsPerPage <= 0 {
		html, err := st.renderer.RenderIndex(st.posts, st.cfg)
		if err != nil {
			return err
		}
		return st.writePage(IndexFile, []byte(html))
	}

	pages, err := taxonomy.Paginate(st.posts, st.cfg.PostsPerPage)
	if err != nil {
		return err
	}
	if len(pages) == 0 {
		pages = []taxonomy.Paginator[content.Post]{{CurrentPage: 1, TotalPages: 1}}
	}
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		html, err := st.renderer.RenderPaginatedIndex(page, st.cfg)
		if err != nil {
			return err
		}
		rel := IndexFile
		if page.CurrentPage > 1 {
			rel = "page/" + strconv.Itoa(page.CurrentPage) + "/" + IndexFile
		}
		if err := st.writePage(rel, []byte(html)); err != nil {
			return err
		}
	}
	return nil
}

func stageRenderPosts(ctx context.Context, st *buildState) error {
	for _, post := range st.posts {
		if err := ctx.Err(); err != nil {
			return err
		}
		dir, err := postDir(post)
		if err != nil {
			return err
		}
		html, err := st.renderer.RenderPost(post, st.cfg)
		if err != nil {
			return withPath(err, post.Path)
		}
		if err := st.writePage("posts/"+dir+"/"+IndexFile, []byte(html)); err != nil {
			return err
		}
	}
	return nil
}

func stageRenderTaxonomies(ctx context.Context, st *buildState) error {
	if !st.renderer.Has(render.TaxonomyTemplate) {
		slog.Debug("Theme has no taxonomy template; skipping taxonomy pages", logfields.Template(render.TaxonomyTemplate))
		return nil
	}
	for _, kind := range []string{taxonomy.KindTags, taxonomy.KindCategories} {
		idx := taxonomy.Group(kind, st.posts)
		dirs, err := idx.Dirs(kind)
		if err != nil {
			return err
		}
		for _, name := range idx.Names() {
			if err := ctx.Err(); err != nil {
				return err
			}
			dir := dirs[name]
			html, err := st.renderer.RenderTaxonomy(kind, name, idx[name], st.cfg)
			if err != nil {
				return err
			}
			if err := st.writePage(kind+"/"+dir+"/"+IndexFile, []byte(html)); err != nil {
				return err
			}
		}
	}
	return nil
}

// withPath attaches the source file of a failing post to err.
func withPath(err error, path string) error {
	if ce, ok := ferrors.AsClassified(err); ok {
		return ce.WithContext("path", path)
	}
	return ferrors.WrapError(err, ferrors.CategoryTemplate, "render post").
		WithContext("path", path).
		Build()
}
