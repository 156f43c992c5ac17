package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"git.home.luguber.info/inful/blogbuilder/internal/eventstore"
	ferrors "git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
)

// HistoryCmd lists recent builds from the history database.
type HistoryCmd struct {
	Input     string `short:"i" default:"." help:"Site source directory."`
	HistoryDB string `name:"history-db" default:"${history_db}" help:"Build history database, relative to the input directory."`
	Limit     int    `short:"n" default:"20" help:"Number of builds to show."`
	JSON      bool   `name:"json" help:"Print builds as JSON."`
}

func (h *HistoryCmd) Run(g *Global) error {
	if h.Limit <= 0 {
		return ferrors.ValidationError("limit must be positive").Build()
	}
	path := resolveHistoryDB(h.Input, h.HistoryDB)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return ferrors.NotFoundError("no build history").
			UserAction().
			WithContext("path", path).
			Build()
	}

	store, err := eventstore.NewSQLiteStore(path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	builds, err := eventstore.History(context.Background(), store, h.Limit)
	if err != nil {
		return err
	}

	if h.JSON {
		enc := json.NewEncoder(g.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(builds)
	}
	return printHistory(g.Stdout, builds, time.Now())
}

func printHistory(w io.Writer, builds []eventstore.BuildSummary, now time.Time) error {
	if len(builds) == 0 {
		_, err := fmt.Fprintln(w, "No builds recorded.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "STATUS\tBUILD\tTRIGGER\tSTARTED\tDURATION\tPOSTS\tDETAIL")
	for _, b := range builds {
		duration := "-"
		if b.CompletedAt != nil {
			duration = b.Duration.Round(time.Millisecond).String()
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			statusLabel(b.Status),
			shortID(b.BuildID),
			b.Trigger,
			humanize.RelTime(b.StartedAt, now, "ago", "from now"),
			duration,
			b.Posts,
			detail(b),
		)
	}
	return tw.Flush()
}

func statusLabel(status string) string {
	switch status {
	case eventstore.StatusCompleted:
		return color.GreenString(status)
	case eventstore.StatusFailed:
		return color.RedString(status)
	default:
		return color.YellowString(status)
	}
}

func detail(b eventstore.BuildSummary) string {
	if b.Status == eventstore.StatusFailed {
		return fmt.Sprintf("%s: %s", b.ErrorStage, b.ErrorMessage)
	}
	return b.Fingerprint
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
