package scaffold

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	ferrors "git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
)

// resolve returns the path of rel below root, rejecting paths that leave root.
func resolve(root, rel string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(rel))
	if rel == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", ferrors.ValidationError("scaffold path escapes site directory").
			WithContext("path", rel).
			Build()
	}
	return filepath.Join(root, clean), nil
}

// writeFile writes data to path, creating parent directories. Unless force
// is set an existing file is never overwritten.
func writeFile(path string, data []byte, force bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "create directory").
			WithContext("path", filepath.Dir(path)).
			Build()
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if force {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	// #nosec G304 -- path is resolved below the site directory.
	f, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return existsError(path)
		}
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "create file").
			WithContext("path", path).
			Build()
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(data); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "write file").
			WithContext("path", path).
			Build()
	}
	return nil
}

func existsError(path string) error {
	return ferrors.ValidationError("file already exists (use --force to overwrite)").
		UserAction().
		WithContext("path", path).
		Build()
}
