// Package build turns a site source tree into a static output directory.
//
// A build runs a fixed pipeline of named stages. By default output is written
// to a sibling staging directory and swapped into place only after every stage
// succeeded, so a failed build never touches the previously promoted site.
package build

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/blogbuilder/internal/config"
	"git.home.luguber.info/inful/blogbuilder/internal/content"
	"git.home.luguber.info/inful/blogbuilder/internal/events"
	ferrors "git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
	"git.home.luguber.info/inful/blogbuilder/internal/metrics"
	"git.home.luguber.info/inful/blogbuilder/internal/render"
)

// ContentDir and StaticDir are the source subdirectories of a site.
const (
	ContentDir = "content"
	StaticDir  = "static"
)

// Request describes one build.
type Request struct {
	InputDir      string
	OutputDir     string
	IncludeDrafts bool
	// Trigger labels what started the build (cli, initial, watch, schedule).
	Trigger string
}

// Builder runs builds. It holds no per-build state and may be reused.
type Builder struct {
	recorder      metrics.Recorder
	bus           *events.Bus
	loader        *content.Loader
	inPlace       bool
	includeDrafts bool
}

// Option configures a Builder.
type Option func(*Builder)

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(b *Builder) {
		if r != nil {
			b.recorder = r
		}
	}
}

// WithEventBus publishes build lifecycle events to bus.
func WithEventBus(bus *events.Bus) Option {
	return func(b *Builder) { b.bus = bus }
}

// WithLoader replaces the default content loader.
func WithLoader(l *content.Loader) Option {
	return func(b *Builder) {
		if l != nil {
			b.loader = l
		}
	}
}

// WithInPlace writes directly into the output directory instead of staging.
func WithInPlace(inPlace bool) Option {
	return func(b *Builder) { b.inPlace = inPlace }
}

// WithIncludeDrafts includes draft posts in every build.
func WithIncludeDrafts(include bool) Option {
	return func(b *Builder) { b.includeDrafts = include }
}

// NewBuilder returns a Builder with the given options applied.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{recorder: metrics.NoopRecorder{}}
	for _, opt := range opts {
		opt(b)
	}
	if b.loader == nil {
		b.loader = content.NewLoader()
	}
	return b
}

// buildState is the mutable state threaded through the stages of one build.
type buildState struct {
	req      Request
	inPlace  bool
	root     string
	cfg      *config.SiteConfig
	renderer *render.Renderer
	posts    []content.Post
	report   *Report
}

// Run executes one build. On failure the returned error is a *StageError and
// the report describes the failed stage.
func (b *Builder) Run(ctx context.Context, req Request) (*Report, error) {
	req, err := normalizeRequest(req)
	if err != nil {
		return nil, err
	}
	req.IncludeDrafts = req.IncludeDrafts || b.includeDrafts

	st := &buildState{req: req, inPlace: b.inPlace, report: newReport(req)}
	log := slog.With(logfields.BuildID(st.report.BuildID))
	log.Info("Build started", logfields.Path(req.InputDir), logfields.Trigger(req.Trigger))
	b.publish(ctx, events.BuildStarted{
		BuildID:   st.report.BuildID,
		InputDir:  req.InputDir,
		OutputDir: req.OutputDir,
		Trigger:   req.Trigger,
		StartedAt: st.report.Start,
	})

	stages := newPipeline().
		add(StageLoadConfig, stageLoadConfig).
		add(StageLoadTheme, stageLoadTheme).
		add(StageLoadContent, b.stageLoadContent).
		add(StagePrepareOutput, stagePrepareOutput).
		add(StageRenderIndex, stageRenderIndex).
		add(StageCopyStatic, stageCopyStatic).
		add(StageRenderPosts, stageRenderPosts).
		add(StageRenderTaxonomies, stageRenderTaxonomies).
		addIf(!b.inPlace, StagePromote, stagePromote).
		defs

	if err := runStages(ctx, st, stages, b.recorder); err != nil {
		if !b.inPlace {
			abortStaging(StagingDir(req.OutputDir))
		}
		st.report.fail(err)
		b.finish(st.report)
		log.Error("Build failed",
			logfields.Stage(st.report.ErrorStage),
			logfields.DurationMS(durationMS(st.report.Duration())),
			logfields.Error(err))
		b.publish(context.WithoutCancel(ctx), events.BuildFailed{
			BuildID:    st.report.BuildID,
			Stage:      st.report.ErrorStage,
			Error:      st.report.Error,
			Duration:   st.report.Duration(),
			FinishedAt: st.report.End,
		})
		return st.report, err
	}

	st.report.succeed()
	b.finish(st.report)
	log.Info("Build complete",
		logfields.Posts(st.report.Posts),
		logfields.Count(st.report.Pages),
		logfields.DurationMS(durationMS(st.report.Duration())))
	b.publish(ctx, events.BuildCompleted{
		BuildID:     st.report.BuildID,
		Posts:       st.report.Posts,
		Fingerprint: st.report.Fingerprint,
		Commit:      st.report.Commit,
		Duration:    st.report.Duration(),
		FinishedAt:  st.report.End,
	})
	return st.report, nil
}

func (b *Builder) finish(r *Report) {
	b.recorder.ObserveBuildDuration(r.Duration())
	b.recorder.IncBuildOutcome(r.Outcome)
}

func (b *Builder) publish(ctx context.Context, evt events.BuildEvent) {
	if err := b.bus.Publish(ctx, evt); err != nil {
		slog.Warn("Failed to publish build event", logfields.BuildID(evt.EventBuildID()), logfields.Error(err))
	}
}

// normalizeRequest cleans the paths of req and rejects output locations that
// would delete the source tree.
func normalizeRequest(req Request) (Request, error) {
	if req.InputDir == "" {
		req.InputDir = "."
	}
	if strings.TrimSpace(req.OutputDir) == "" {
		return req, ferrors.ValidationError("output directory is required").Build()
	}
	in, err := filepath.Abs(req.InputDir)
	if err != nil {
		return req, fsError(err, "resolve input directory", req.InputDir)
	}
	out, err := filepath.Abs(req.OutputDir)
	if err != nil {
		return req, fsError(err, "resolve output directory", req.OutputDir)
	}
	if rel, err := filepath.Rel(out, in); err == nil && !escapes(rel) {
		return req, ferrors.ValidationError("output directory must not contain the input directory").
			WithContext("input", in).
			WithContext("output", out).
			Build()
	}
	req.InputDir = filepath.Clean(req.InputDir)
	req.OutputDir = filepath.Clean(req.OutputDir)
	if req.Trigger == "" {
		req.Trigger = "manual"
	}
	return req, nil
}

func escapes(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// durationMS converts d for log attributes.
func durationMS(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }
