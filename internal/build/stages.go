package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	ferrors "git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
	"git.home.luguber.info/inful/blogbuilder/internal/metrics"
)

// StageName identifies one step of the build pipeline.
type StageName string

// Stage names in execution order.
const (
	StageLoadConfig       StageName = "load_config"
	StageLoadTheme        StageName = "load_theme"
	StageLoadContent      StageName = "load_content"
	StagePrepareOutput    StageName = "prepare_output"
	StageRenderIndex      StageName = "render_index"
	StageCopyStatic       StageName = "copy_static"
	StageRenderPosts      StageName = "render_posts"
	StageRenderTaxonomies StageName = "render_taxonomies"
	StagePromote          StageName = "promote"
)

// StageError reports the stage a build failed in.
type StageError struct {
	Stage StageName
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("stage %s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// Canceled reports whether the stage was interrupted by context cancellation.
func (e *StageError) Canceled() bool {
	return errors.Is(e.Err, context.Canceled) || errors.Is(e.Err, context.DeadlineExceeded)
}

type stageFunc func(ctx context.Context, st *buildState) error

type stageDef struct {
	name StageName
	fn   stageFunc
}

type pipeline struct{ defs []stageDef }

func newPipeline() *pipeline { return &pipeline{defs: make([]stageDef, 0, 9)} }

func (p *pipeline) add(name StageName, fn stageFunc) *pipeline {
	p.defs = append(p.defs, stageDef{name: name, fn: fn})
	return p
}

func (p *pipeline) addIf(cond bool, name StageName, fn stageFunc) *pipeline {
	if cond {
		p.add(name, fn)
	}
	return p
}

// runStages executes stages in order, recording timing and stopping on the
// first error.
func runStages(ctx context.Context, st *buildState, stages []stageDef, rec metrics.Recorder) error {
	for _, def := range stages {
		if err := ctx.Err(); err != nil {
			rec.IncStageResult(string(def.name), metrics.ResultCanceled)
			return &StageError{Stage: def.name, Err: canceled(err)}
		}

		t0 := time.Now()
		err := def.fn(ctx, st)
		dur := time.Since(t0)

		st.report.StageDurations[string(def.name)] = dur
		rec.ObserveStageDuration(string(def.name), dur)

		if err != nil {
			result := metrics.ResultFatal
			if ctx.Err() != nil {
				result = metrics.ResultCanceled
				err = canceled(err)
			}
			st.report.StageResults[string(def.name)] = string(result)
			rec.IncStageResult(string(def.name), result)
			slog.Debug("Stage failed", logfields.BuildID(st.report.BuildID), logfields.Stage(string(def.name)), logfields.Error(err))
			return &StageError{Stage: def.name, Err: err}
		}

		st.report.StageResults[string(def.name)] = string(metrics.ResultSuccess)
		rec.IncStageResult(string(def.name), metrics.ResultSuccess)
		slog.Debug("Stage complete",
			logfields.BuildID(st.report.BuildID),
			logfields.Stage(string(def.name)),
			logfields.DurationMS(durationMS(dur)))
	}
	return nil
}

func canceled(err error) error {
	if _, ok := ferrors.AsClassified(err); ok {
		return err
	}
	return ferrors.WrapError(err, ferrors.CategoryRuntime, "build canceled").Build()
}
