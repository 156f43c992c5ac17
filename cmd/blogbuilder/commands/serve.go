package commands

import (
	"context"
	"fmt"
	"net"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"git.home.luguber.info/inful/blogbuilder/internal/metrics"
	"git.home.luguber.info/inful/blogbuilder/internal/preview"
)

// ServeCmd builds the site, serves it and rebuilds on source changes.
type ServeCmd struct {
	Input        string        `short:"i" default:"." help:"Site source directory."`
	Output       string        `short:"o" default:"public" help:"Output directory for the generated site."`
	Host         string        `default:"" help:"Interface to listen on (all interfaces when empty)."`
	Port         int           `short:"p" default:"3000" help:"Preview server port."`
	Drafts       bool          `help:"Include draft posts."`
	Debounce     time.Duration `default:"500ms" help:"Quiet period after the last change before rebuilding."`
	MaxDelay     time.Duration `name:"max-delay" default:"5s" help:"Upper bound on rebuild delay while changes keep arriving."`
	NoLiveReload bool          `name:"no-livereload" help:"Disable live reload script injection and event stream."`
	RebuildEvery time.Duration `name:"rebuild-every" help:"Also rebuild periodically at this interval."`
	Ignore       []string      `help:"Extra file name patterns that never trigger a rebuild."`

	SinkFlags `embed:""`
}

func (s *ServeCmd) Run(g *Global) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return s.run(ctx, g)
}

func (s *ServeCmd) run(ctx context.Context, g *Global) error {
	sinks, err := openSinks(ctx, s.Input, s.SinkFlags)
	if err != nil {
		return err
	}
	defer sinks.Close()

	rec := metrics.NewPrometheusRecorder(nil)
	return preview.Run(ctx, preview.Options{
		InputDir:       s.Input,
		OutputDir:      s.Output,
		Addr:           net.JoinHostPort(s.Host, strconv.Itoa(s.Port)),
		IncludeDrafts:  s.Drafts,
		Debounce:       s.Debounce,
		MaxDelay:       s.MaxDelay,
		LiveReload:     !s.NoLiveReload,
		RebuildEvery:   s.RebuildEvery,
		Recorder:       rec,
		MetricsHandler: rec.Handler(),
		Bus:            sinks.bus,
		Ignore:         s.Ignore,
		OnStart: func(url string) {
			_, _ = fmt.Fprintf(g.Stdout, "Serving %s at %s (Ctrl+C to stop)\n", s.Input, url)
		},
	})
}
