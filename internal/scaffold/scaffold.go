// Package scaffold creates a new site with a default theme and a sample post.
package scaffold

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"git.home.luguber.info/inful/blogbuilder/internal/config"
	ferrors "git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
)

//go:embed skeleton
var skeleton embed.FS

const skeletonRoot = "skeleton"

// SamplePost is the path of the generated example post.
const SamplePost = "content/hello-world.md"

// DefaultPostsPerPage is written to new configurations.
const DefaultPostsPerPage = 10

// Options configures Create.
type Options struct {
	Dir     string
	Title   string
	BaseURL string
	// Force overwrites existing files.
	Force bool
	// Now dates the sample post; zero means the current time.
	Now time.Time
}

// Create writes a new site into opts.Dir and returns the created files
// relative to it. Without Force nothing is written if any target exists.
func Create(opts Options) ([]string, error) {
	if opts.Dir == "" {
		return nil, ferrors.ValidationError("site directory is required").Build()
	}
	if opts.Title == "" {
		opts.Title = "My Blog"
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "http://localhost:3000"
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	cfg := &config.SiteConfig{
		Title:        opts.Title,
		BaseURL:      opts.BaseURL,
		PostsPerPage: DefaultPostsPerPage,
		Theme:        config.DefaultTheme,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	files, err := skeletonFiles()
	if err != nil {
		return nil, err
	}
	files[SamplePost] = []byte(samplePost(opts.Now))

	names := make([]string, 0, len(files)+1)
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	if !opts.Force {
		for _, name := range append([]string{config.FileName}, names...) {
			target, err := resolve(opts.Dir, name)
			if err != nil {
				return nil, err
			}
			if _, err := os.Stat(target); err == nil {
				return nil, existsError(target)
			}
		}
	}

	if err := os.MkdirAll(opts.Dir, 0o750); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "create site directory").
			WithContext("path", opts.Dir).
			Build()
	}
	if err := config.Write(filepath.Join(opts.Dir, config.FileName), cfg, opts.Force); err != nil {
		return nil, err
	}
	created := []string{config.FileName}

	for _, name := range names {
		target, err := resolve(opts.Dir, name)
		if err != nil {
			return created, err
		}
		if err := writeFile(target, files[name], opts.Force); err != nil {
			return created, err
		}
		created = append(created, name)
	}

	slog.Info("Site scaffolded", logfields.Path(opts.Dir), logfields.Count(len(created)))
	return created, nil
}

// skeletonFiles maps site-relative paths to the embedded skeleton files.
// Files stored without a leading dot (gitignore) are renamed on the way out.
func skeletonFiles() (map[string][]byte, error) {
	files := make(map[string][]byte)
	err := fs.WalkDir(skeleton, skeletonRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := skeleton.ReadFile(p)
		if err != nil {
			return err
		}
		rel := p[len(skeletonRoot)+1:]
		if rel == "gitignore" {
			rel = ".gitignore"
		}
		files[path.Clean(rel)] = data
		return nil
	})
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryInternal, "read site skeleton").Build()
	}
	return files, nil
}

func samplePost(now time.Time) string {
	return fmt.Sprintf(`---
title: Hello, World
date: %s
slug: hello-world
tags: [welcome]
categories: [general]
---

Welcome to your new blog. Edit or delete this post in `+"`%s`"+`,
then run `+"`blogbuilder serve`"+` to preview the site.

## Writing posts

Every Markdown file below `+"`content/`"+` becomes a post. Front matter
sets the title, date and slug; set `+"`draft: true`"+` to keep a post
out of the published site.
`, now.Format("2006-01-02"), SamplePost)
}
