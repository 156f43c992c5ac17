// Package assets copies a static file tree into the build output.
package assets

import (
	"io"
	"os"
	"path/filepath"

	ferrors "git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
)

// CopyTree recursively copies every regular file below src into dst,
// preserving relative paths and file modes. Other entry types are skipped.
// It returns the number of files copied.
func CopyTree(src, dst string) (int, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return 0, fsError(err, "stat source directory", src)
	}
	if !srcInfo.IsDir() {
		return 0, ferrors.ValidationError("static path is not a directory").
			WithContext("path", src).
			Build()
	}

	if err := os.MkdirAll(dst, 0o750); err != nil {
		return 0, fsError(err, "create directory", dst)
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return 0, fsError(err, "read directory", src)
	}

	copied := 0
	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		switch {
		case entry.IsDir():
			n, err := CopyTree(srcPath, dstPath)
			copied += n
			if err != nil {
				return copied, err
			}
		case entry.Type().IsRegular():
			if err := copyFile(srcPath, dstPath); err != nil {
				return copied, err
			}
			copied++
		}
	}

	return copied, nil
}

func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return fsError(err, "open file", src)
	}
	defer func() {
		_ = srcFile.Close()
	}()

	info, err := srcFile.Stat()
	if err != nil {
		return fsError(err, "stat file", src)
	}

	dstFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fsError(err, "create file", dst)
	}

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		_ = dstFile.Close()
		return fsError(err, "copy file", dst)
	}
	if err := dstFile.Close(); err != nil {
		return fsError(err, "close file", dst)
	}
	return nil
}

func fsError(err error, msg, path string) error {
	return ferrors.WrapError(err, ferrors.CategoryFileSystem, msg).
		WithContext("path", path).
		Build()
}
