package build

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/blogbuilder/internal/assets"
	"git.home.luguber.info/inful/blogbuilder/internal/content"
	ferrors "git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
)

func stagePrepareOutput(_ context.Context, st *buildState) error {
	st.root = st.req.OutputDir
	if !st.inPlace {
		st.root = StagingDir(st.req.OutputDir)
	}
	return resetDir(st.root)
}

func stageCopyStatic(_ context.Context, st *buildState) error {
	src := filepath.Join(st.req.InputDir, StaticDir)
	if _, err := os.Stat(src); errors.Is(err, fs.ErrNotExist) {
		slog.Debug("No static directory", logfields.Path(src))
		return nil
	}
	n, err := assets.CopyTree(src, st.root)
	st.report.StaticFiles = n
	return err
}

func stagePromote(_ context.Context, st *buildState) error {
	return promote(st.root, st.req.OutputDir)
}

// writePage writes an output file below the build root. rel uses forward
// slashes.
func (st *buildState) writePage(rel string, data []byte) error {
	path := filepath.Join(st.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fsError(err, "create output directory", filepath.Dir(path))
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fsError(err, "write output file", path)
	}
	st.report.Pages++
	return nil
}

// postDir validates a post slug used as its output directory name.
func postDir(post content.Post) (string, error) {
	name := post.Meta.Slug
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", ferrors.ContentError(fmt.Sprintf("slug %q of %s cannot be used as a directory name", name, post.Path)).
			WithContext("slug", name).
			WithContext("path", post.Path).
			Build()
	}
	return name, nil
}
