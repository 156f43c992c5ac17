package git

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHead_ResolvesCommitFromSubdirectory(t *testing.T) {
	repoPath := t.TempDir()
	repo, err := git.PlainInit(repoPath, false)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(repoPath, "content"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(repoPath, "content", "a.md"), []byte("---\ntitle: A\n---\n"), 0o600))

	w, err := repo.Worktree()
	require.NoError(t, err)
	_, err = w.Add(".")
	require.NoError(t, err)
	hash, err := w.Commit("Initial commit", &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	rev, err := Head(filepath.Join(repoPath, "content"))
	require.NoError(t, err)
	assert.Equal(t, hash.String(), rev.Hash)
	assert.Equal(t, hash.String()[:7], rev.Short())
	assert.Equal(t, "master", rev.Branch)
}

func TestHead_EmptyRepository(t *testing.T) {
	repoPath := t.TempDir()
	_, err := git.PlainInit(repoPath, false)
	require.NoError(t, err)

	rev, err := Head(repoPath)
	require.NoError(t, err)
	assert.Empty(t, rev.Hash)
}

func TestHead_NotARepository(t *testing.T) {
	_, err := Head(t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotRepository))
}
