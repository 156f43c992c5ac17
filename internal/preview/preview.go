// Package preview builds a site, serves it and rebuilds it when the source
// tree changes.
package preview

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"git.home.luguber.info/inful/blogbuilder/internal/build"
	"git.home.luguber.info/inful/blogbuilder/internal/events"
	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
	"git.home.luguber.info/inful/blogbuilder/internal/metrics"
	"git.home.luguber.info/inful/blogbuilder/internal/server"
)

// Rebuild triggers.
const (
	TriggerInitial = "initial"
	TriggerWatch   = "watch"
)

const shutdownTimeout = 5 * time.Second

// Options configures Run.
type Options struct {
	InputDir      string
	OutputDir     string
	Addr          string
	IncludeDrafts bool
	// Debounce is the quiet window after the last change before a rebuild.
	Debounce time.Duration
	// MaxDelay bounds how long a continuous stream of changes can postpone a rebuild.
	MaxDelay   time.Duration
	LiveReload bool
	// RebuildEvery schedules periodic rebuilds when positive.
	RebuildEvery time.Duration
	Recorder     metrics.Recorder
	// MetricsHandler is exposed on the server when non-nil.
	MetricsHandler http.Handler
	// Bus receives build lifecycle events, e.g. for history and notifications.
	Bus *events.Bus
	// Ignore holds extra base-name glob patterns that never trigger a rebuild.
	Ignore []string
	// OnStart is called with the server URL once the site is being served.
	OnStart func(url string)
}

func (o Options) withDefaults() Options {
	if o.InputDir == "" {
		o.InputDir = "."
	}
	if o.OutputDir == "" {
		o.OutputDir = "public"
	}
	if o.Addr == "" {
		o.Addr = ":3000"
	}
	if o.Recorder == nil {
		o.Recorder = metrics.NoopRecorder{}
	}
	return o
}

// loop owns the state shared by the rebuild worker and the server.
type loop struct {
	opts    Options
	builder *build.Builder
	status  *server.StatusTracker
	hub     *server.LiveReloadHub
}

// Run performs an initial build, serves the output and rebuilds on change
// until ctx is canceled. Only the initial build and server startup are fatal;
// later build failures keep the previous output in place.
func Run(ctx context.Context, opts Options) error {
	opts = opts.withDefaults()
	l := &loop{
		opts: opts,
		builder: build.NewBuilder(
			build.WithRecorder(opts.Recorder),
			build.WithEventBus(opts.Bus),
			build.WithIncludeDrafts(opts.IncludeDrafts),
		),
		status: server.NewStatusTracker(),
	}
	if opts.LiveReload {
		l.hub = server.NewLiveReloadHub()
	}

	if err := l.rebuild(ctx, TriggerInitial); err != nil {
		return err
	}

	ig, err := newIgnorer(opts.InputDir,
		[]string{opts.OutputDir, build.StagingDir(opts.OutputDir), build.BackupDir(opts.OutputDir)},
		opts.Ignore)
	if err != nil {
		return err
	}
	w, err := newWatcher(opts.InputDir, ig)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	srv := server.New(server.Options{
		Dir:        opts.OutputDir,
		Addr:       opts.Addr,
		LiveReload: l.hub,
		Metrics:    opts.MetricsHandler,
		Status:     l.status,
	})
	if err := srv.Start(ctx); err != nil {
		return err
	}
	if opts.OnStart != nil {
		opts.OnStart(srv.URL())
	}

	debouncer := NewDebouncer(opts.Debounce, opts.MaxDelay, nil)
	var sched *scheduler
	if opts.RebuildEvery > 0 {
		sched, err = newScheduler(opts.RebuildEvery, func() { debouncer.Kick(TriggerSchedule) })
		if err != nil {
			_ = srv.Stop(context.Background())
			return err
		}
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		w.run(ctx, func(string) { debouncer.Trigger(TriggerWatch) })
	}()
	go func() {
		defer wg.Done()
		runWorker(ctx, debouncer.Signals(), l.rebuild)
	}()

	slog.Info("Watching for changes", logfields.Path(opts.InputDir))
	<-ctx.Done()
	slog.Info("Shutting down preview")

	_ = w.Close()
	debouncer.Stop()
	if err := sched.Shutdown(); err != nil {
		slog.Warn("Scheduler shutdown failed", logfields.Error(err))
	}
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Stop(stopCtx); err != nil {
		slog.Warn("Server shutdown incomplete", logfields.Error(err))
	}
	wg.Wait()
	return nil
}

// rebuild runs one build, records its status and notifies live-reload
// clients on success.
func (l *loop) rebuild(ctx context.Context, trigger string) error {
	l.opts.Recorder.IncRebuildTrigger(trigger)
	report, err := l.builder.Run(ctx, build.Request{
		InputDir:  l.opts.InputDir,
		OutputDir: l.opts.OutputDir,
		Trigger:   trigger,
	})
	l.status.Update(statusFromReport(report, trigger, err))
	if err != nil {
		return err
	}
	if l.hub != nil {
		l.hub.Broadcast(server.Reload{BuildID: report.BuildID, Fingerprint: report.Fingerprint})
	}
	return nil
}

func statusFromReport(report *build.Report, trigger string, err error) server.BuildStatus {
	if report == nil {
		s := server.BuildStatus{Outcome: string(metrics.OutcomeFailed), Trigger: trigger}
		if err != nil {
			s.Error = err.Error()
		}
		return s
	}
	return server.BuildStatus{
		BuildID:     report.BuildID,
		Outcome:     string(report.Outcome),
		Trigger:     report.Trigger,
		Posts:       report.Posts,
		Fingerprint: report.Fingerprint,
		DurationMS:  report.Duration().Milliseconds(),
		FinishedAt:  report.End,
		ErrorStage:  report.ErrorStage,
		Error:       report.Error,
	}
}
