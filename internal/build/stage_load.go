package build

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"

	"git.home.luguber.info/inful/blogbuilder/internal/config"
	"git.home.luguber.info/inful/blogbuilder/internal/content"
	"git.home.luguber.info/inful/blogbuilder/internal/git"
	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
	"git.home.luguber.info/inful/blogbuilder/internal/markdown"
	"git.home.luguber.info/inful/blogbuilder/internal/render"
)

func stageLoadConfig(_ context.Context, st *buildState) error {
	cfg, err := config.Load(filepath.Join(st.req.InputDir, config.FileName))
	if err != nil {
		return err
	}
	st.cfg = cfg
	return nil
}

func stageLoadTheme(_ context.Context, st *buildState) error {
	rev, err := git.Head(st.req.InputDir)
	switch {
	case errors.Is(err, git.ErrNotRepository):
	case err != nil:
		slog.Warn("Failed to read git revision", logfields.Path(st.req.InputDir), logfields.Error(err))
	default:
		st.report.Commit = rev.Hash
	}

	r, err := render.New(st.cfg.ThemeDir(st.req.InputDir),
		render.WithBaseURL(st.cfg.BaseURL),
		render.WithCommit(st.report.Commit),
	)
	if err != nil {
		return err
	}
	if err := r.Require(render.IndexTemplate, render.PostTemplate); err != nil {
		return err
	}
	st.renderer = r
	return nil
}

func (b *Builder) stageLoadContent(ctx context.Context, st *buildState) error {
	loader := b.loader
	if opts := st.cfg.MarkdownOptions(); len(opts) > 0 {
		loader = loader.With(content.WithMarkdown(markdown.New(opts...)))
	}
	posts, err := loader.Load(ctx, filepath.Join(st.req.InputDir, ContentDir))
	if err != nil {
		return err
	}
	loaded := len(posts)
	posts = content.FilterDrafts(posts, st.req.IncludeDrafts)
	if err := content.CheckDuplicateSlugs(posts); err != nil {
		return err
	}
	content.SortPosts(posts)

	st.posts = posts
	st.report.Posts = len(posts)
	st.report.Fingerprint = content.SiteFingerprint(posts)
	b.recorder.SetPostsLoaded(len(posts))
	if skipped := loaded - len(posts); skipped > 0 {
		slog.Debug("Skipped draft posts", logfields.Count(skipped))
	}
	return nil
}
