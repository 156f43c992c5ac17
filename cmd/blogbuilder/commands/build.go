package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/blogbuilder/internal/build"
	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
)

// TriggerCLI labels builds started by the build command.
const TriggerCLI = "cli"

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Input   string `short:"i" default:"." help:"Site source directory."`
	Output  string `short:"o" default:"public" help:"Output directory for the generated site."`
	Drafts  bool   `help:"Include draft posts."`
	InPlace bool   `name:"in-place" help:"Write directly into the output directory instead of staging and swapping."`
	Report  string `name:"report" help:"Write a JSON build report to this file."`

	SinkFlags `embed:""`
}

func (b *BuildCmd) Run(g *Global) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sinks, err := openSinks(ctx, b.Input, b.SinkFlags)
	if err != nil {
		return err
	}
	defer sinks.Close()

	builder := build.NewBuilder(
		build.WithEventBus(sinks.bus),
		build.WithInPlace(b.InPlace),
		build.WithIncludeDrafts(b.Drafts),
	)
	report, err := builder.Run(ctx, build.Request{
		InputDir:  b.Input,
		OutputDir: b.Output,
		Trigger:   TriggerCLI,
	})
	if report != nil && b.Report != "" {
		if perr := report.Persist(b.Report); perr != nil {
			slog.Warn("Failed to write build report", logfields.Path(b.Report), logfields.Error(perr))
		}
	}
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(g.Stdout, report.Summary())
	return nil
}
