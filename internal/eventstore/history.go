package eventstore

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"time"

	"git.home.luguber.info/inful/blogbuilder/internal/events"
	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
)

// Build statuses of a BuildSummary.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// BuildSummary is the read model of one build folded from its events.
type BuildSummary struct {
	BuildID      string        `json:"build_id"`
	Status       string        `json:"status"`
	Trigger      string        `json:"trigger,omitempty"`
	StartedAt    time.Time     `json:"started_at"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
	Duration     time.Duration `json:"duration,omitempty"`
	Posts        int           `json:"posts"`
	Fingerprint  string        `json:"fingerprint,omitempty"`
	Commit       string        `json:"commit,omitempty"`
	ErrorStage   string        `json:"error_stage,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
}

// Summarize folds events into build summaries, newest first.
func Summarize(evts []Event) []BuildSummary {
	byID := make(map[string]*BuildSummary)
	var order []string

	for _, e := range evts {
		summary, ok := byID[e.BuildID]
		if !ok {
			summary = &BuildSummary{BuildID: e.BuildID, Status: StatusRunning, StartedAt: e.Timestamp}
			byID[e.BuildID] = summary
			order = append(order, e.BuildID)
		}

		switch e.Type {
		case events.TypeBuildStarted:
			var payload events.BuildStarted
			if err := json.Unmarshal(e.Payload, &payload); err == nil {
				summary.Trigger = payload.Trigger
			}
			summary.StartedAt = e.Timestamp
		case events.TypeBuildCompleted:
			var payload events.BuildCompleted
			if err := json.Unmarshal(e.Payload, &payload); err == nil {
				summary.Posts = payload.Posts
				summary.Fingerprint = payload.Fingerprint
				summary.Commit = payload.Commit
				summary.Duration = payload.Duration
			}
			finished := e.Timestamp
			summary.CompletedAt = &finished
			summary.Status = StatusCompleted
		case events.TypeBuildFailed:
			var payload events.BuildFailed
			if err := json.Unmarshal(e.Payload, &payload); err == nil {
				summary.ErrorStage = payload.Stage
				summary.ErrorMessage = payload.Error
				summary.Duration = payload.Duration
			}
			finished := e.Timestamp
			summary.CompletedAt = &finished
			summary.Status = StatusFailed
		}
	}

	out := make([]BuildSummary, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out
}

// History returns summaries of the newest limit builds.
func History(ctx context.Context, store Store, limit int) ([]BuildSummary, error) {
	evts, err := store.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}
	return Summarize(evts), nil
}

// Record appends a build lifecycle event to store.
func Record(ctx context.Context, store Store, evt events.BuildEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return storeError(err, "marshal payload").Build()
	}
	return store.Append(ctx, Event{
		BuildID:   evt.EventBuildID(),
		Type:      evt.EventType(),
		Timestamp: evt.EventTime(),
		Payload:   payload,
	})
}

// Attach subscribes to build events on bus and records them in the
// background. The returned channel is closed after the bus is closed and every
// received event was handled. Store failures are logged, not returned.
func Attach(ctx context.Context, bus *events.Bus, store Store) <-chan struct{} {
	ch, _ := events.Subscribe[events.BuildEvent](bus, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for evt := range ch {
			if err := Record(ctx, store, evt); err != nil {
				slog.Warn("Failed to record build event", logfields.BuildID(evt.EventBuildID()), logfields.Error(err))
			}
		}
	}()
	return done
}
