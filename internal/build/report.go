package build

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	ferrors "git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/metrics"
)

// Report captures the outcome of one build.
type Report struct {
	SchemaVersion  int                      `json:"schema_version"`
	BuildID        string                   `json:"build_id"`
	Trigger        string                   `json:"trigger,omitempty"`
	InputDir       string                   `json:"input_dir"`
	OutputDir      string                   `json:"output_dir"`
	Start          time.Time                `json:"start"`
	End            time.Time                `json:"end"`
	StageDurations map[string]time.Duration `json:"stage_durations"`
	StageResults   map[string]string        `json:"stage_results"`
	Posts          int                      `json:"posts"`
	Pages          int                      `json:"pages"`
	StaticFiles    int                      `json:"static_files"`
	Outcome        metrics.BuildOutcome     `json:"outcome"`
	Fingerprint    string                   `json:"fingerprint,omitempty"`
	Commit         string                   `json:"commit,omitempty"`
	ErrorStage     string                   `json:"error_stage,omitempty"`
	Error          string                   `json:"error,omitempty"`
}

func newReport(req Request) *Report {
	return &Report{
		SchemaVersion:  1,
		BuildID:        uuid.NewString(),
		Trigger:        req.Trigger,
		InputDir:       req.InputDir,
		OutputDir:      req.OutputDir,
		Start:          time.Now(),
		StageDurations: make(map[string]time.Duration),
		StageResults:   make(map[string]string),
	}
}

// Duration is the wall time of the build.
func (r *Report) Duration() time.Duration {
	if r.End.IsZero() {
		return time.Since(r.Start)
	}
	return r.End.Sub(r.Start)
}

// Summary returns a human-readable single-line summary.
func (r *Report) Summary() string {
	return fmt.Sprintf("build=%s posts=%d pages=%d static=%d duration=%s stages=%d outcome=%s",
		r.BuildID, r.Posts, r.Pages, r.StaticFiles, r.Duration().Truncate(time.Millisecond), len(r.StageDurations), r.Outcome)
}

func (r *Report) succeed() {
	r.End = time.Now()
	r.Outcome = metrics.OutcomeSuccess
}

func (r *Report) fail(err error) {
	r.End = time.Now()
	r.Outcome = metrics.OutcomeFailed
	r.Error = err.Error()
	var se *StageError
	if errors.As(err, &se) {
		r.ErrorStage = string(se.Stage)
		r.Error = se.Err.Error()
		if se.Canceled() {
			r.Outcome = metrics.OutcomeCanceled
		}
	}
}

// Persist writes the report as indented JSON to path, replacing any previous
// file atomically.
func (r *Report) Persist(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "ensure report directory").
			WithContext("path", path).
			Build()
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryInternal, "marshal report").Build()
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "write report").
			WithContext("path", tmp).
			Build()
	}
	if err := os.Rename(tmp, path); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "replace report").
			WithContext("path", path).
			Build()
	}
	return nil
}
