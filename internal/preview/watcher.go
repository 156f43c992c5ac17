package preview

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"

	ferrors "git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
)

// defaultIgnore matches base names of editor swap, backup and OS metadata files.
var defaultIgnore = []string{
	"*.swp", "*.swx", "*.swo", "*~", "#*#", "4913", "*.tmp", "Thumbs.db",
}

// ignorer decides which paths below root never trigger a rebuild.
type ignorer struct {
	root     string
	excluded []string
	patterns []glob.Glob
}

// newIgnorer excludes the given directories (and their contents) and base
// names matching patterns in addition to the defaults.
func newIgnorer(root string, excluded, patterns []string) (*ignorer, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	ig := &ignorer{root: absRoot}
	for _, dir := range excluded {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, err
		}
		ig.excluded = append(ig.excluded, abs)
	}
	for _, p := range append(append([]string{}, defaultIgnore...), patterns...) {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, ferrors.ValidationError("invalid ignore pattern").
				WithContext("pattern", p).
				Build()
		}
		ig.patterns = append(ig.patterns, g)
	}
	return ig, nil
}

// shouldIgnore reports whether a change at path is irrelevant to the build.
func (ig *ignorer) shouldIgnore(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return true
	}
	for _, dir := range ig.excluded {
		if abs == dir || strings.HasPrefix(abs, dir+string(filepath.Separator)) {
			return true
		}
	}
	rel, err := filepath.Rel(ig.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return true
	}
	if rel != "." {
		for _, part := range strings.Split(rel, string(filepath.Separator)) {
			if strings.HasPrefix(part, ".") {
				return true
			}
		}
	}
	base := filepath.Base(abs)
	for _, g := range ig.patterns {
		if g.Match(base) {
			return true
		}
	}
	return false
}

// watcher watches a source tree recursively and reports relevant changes.
type watcher struct {
	fsw    *fsnotify.Watcher
	ignore *ignorer
}

func newWatcher(root string, ig *ignorer) (*watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "create file watcher").Build()
	}
	w := &watcher{fsw: fsw, ignore: ig}
	if err := w.addRecursive(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// addRecursive watches dir and every non-ignored directory below it.
func (w *watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return ferrors.WrapError(err, ferrors.CategoryFileSystem, "watch directory").
					WithContext("path", path).
					Build()
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && w.ignore.shouldIgnore(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			slog.Warn("Failed to watch directory", logfields.Path(path), logfields.Error(err))
		}
		return nil
	})
}

// run forwards relevant events to onChange until ctx is done or the watcher
// is closed.
func (w *watcher) run(ctx context.Context, onChange func(path string)) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev, onChange)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("File watcher error", logfields.Error(err))
		}
	}
}

func (w *watcher) handle(ev fsnotify.Event, onChange func(path string)) {
	if ev.Op == fsnotify.Chmod || w.ignore.shouldIgnore(ev.Name) {
		return
	}
	if ev.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = w.addRecursive(ev.Name)
		}
	}
	slog.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	onChange(ev.Name)
}

func (w *watcher) Close() error { return w.fsw.Close() }
