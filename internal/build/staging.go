package build

import (
	"log/slog"
	"os"

	ferrors "git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
)

// StagingDir is the sibling directory a build is written to before promotion.
func StagingDir(outputDir string) string { return outputDir + "_stage" }

// BackupDir holds the previous output while the staging dir is swapped in.
func BackupDir(outputDir string) string { return outputDir + ".prev" }

// resetDir removes dir and recreates it empty.
func resetDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fsError(err, "remove build root", dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fsError(err, "create build root", dir)
	}
	return nil
}

// promote swaps the staging dir into place:
//  1. move the existing output to <output>.prev
//  2. rename staging to output
//  3. remove the backup
func promote(stageDir, outputDir string) error {
	if _, err := os.Stat(stageDir); err != nil {
		return fsError(err, "staging directory missing", stageDir)
	}

	prev := BackupDir(outputDir)
	if err := os.RemoveAll(prev); err != nil {
		return fsError(err, "remove stale backup", prev)
	}
	if _, err := os.Stat(outputDir); err == nil {
		if err := os.Rename(outputDir, prev); err != nil {
			return fsError(err, "back up existing output", outputDir)
		}
	}
	if err := os.Rename(stageDir, outputDir); err != nil {
		// Restore the previous output.
		if _, statErr := os.Stat(prev); statErr == nil {
			_ = os.Rename(prev, outputDir)
		}
		return fsError(err, "promote staging", stageDir)
	}
	if err := os.RemoveAll(prev); err != nil {
		slog.Warn("Failed to remove previous output", logfields.Path(prev), logfields.Error(err))
	}
	slog.Debug("Promoted staging directory", logfields.Path(outputDir))
	return nil
}

// abortStaging removes an orphaned staging dir after a failed build.
func abortStaging(stageDir string) {
	if stageDir == "" {
		return
	}
	if err := os.RemoveAll(stageDir); err != nil {
		slog.Warn("Failed to remove staging directory after abort", logfields.Path(stageDir), logfields.Error(err))
		return
	}
	slog.Debug("Removed staging directory after abort", logfields.Path(stageDir))
}

func fsError(err error, msg, path string) error {
	return ferrors.WrapError(err, ferrors.CategoryFileSystem, msg).
		WithContext("path", path).
		Build()
}
