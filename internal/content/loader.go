package content

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	ferrors "git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
	"git.home.luguber.info/inful/blogbuilder/internal/markdown"
)

// Extension is the file extension of post sources.
const Extension = ".md"

// Loader discovers and parses posts in parallel.
type Loader struct {
	concurrency int
	md          *markdown.Renderer
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithConcurrency bounds the number of files parsed at once.
func WithConcurrency(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// WithMarkdown sets the Markdown renderer used for post bodies.
func WithMarkdown(md *markdown.Renderer) LoaderOption {
	return func(l *Loader) {
		if md != nil {
			l.md = md
		}
	}
}

// NewLoader returns a Loader using one worker per CPU.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{concurrency: runtime.NumCPU(), md: markdown.New()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// With returns a copy of l with opts applied.
func (l *Loader) With(opts ...LoaderOption) *Loader {
	c := *l
	for _, opt := range opts {
		opt(&c)
	}
	return &c
}

// Load parses every .md file below root.
//
// Loading is all-or-nothing: the first failing file cancels the remaining work
// and Load returns that error with no posts. The order of the returned posts
// is unspecified.
func (l *Loader) Load(ctx context.Context, root string) ([]Post, error) {
	paths, err := discover(root)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		posts    = make([]Post, 0, len(paths))
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
	}

	sem := make(chan struct{}, min(l.concurrency, len(paths)))
	for _, path := range paths {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()
			if ctx.Err() != nil {
				return
			}

			post, err := l.loadFile(root, path)
			if err != nil {
				fail(err)
				return
			}
			mu.Lock()
			posts = append(posts, post)
			mu.Unlock()
		}(path)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	slog.Debug("Loaded posts", logfields.Path(root), logfields.Posts(len(posts)))
	return posts, nil
}

func (l *Loader) loadFile(root, path string) (Post, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)

	src, err := os.ReadFile(path)
	if err != nil {
		return Post{}, contentError(err, rel, "read file")
	}
	return ParsePost(rel, src, l.md)
}

// discover returns the .md regular files below root. Entries that cannot be
// read are skipped; symlinks are not followed.
func discover(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Warn("Content directory does not exist", logfields.Path(root))
			return nil, nil
		}
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "stat content directory").
			WithContext("path", root).
			Build()
	}
	if !info.IsDir() {
		return nil, ferrors.ValidationError("content path is not a directory").
			WithContext("path", root).
			Build()
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			slog.Debug("Skipping unreadable entry", logfields.Path(path), logfields.Error(walkErr))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && filepath.Ext(path) == Extension {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "walk content directory").
			WithContext("path", root).
			Build()
	}
	return paths, nil
}
