// Package notify publishes build lifecycle events to NATS.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/blogbuilder/internal/events"
	ferrors "git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
)

// DefaultSubjectPrefix is prepended to the event type, e.g.
// "blogbuilder.build.completed".
const DefaultSubjectPrefix = "blogbuilder"

type publisher interface {
	Publish(subject string, data []byte) error
	FlushTimeout(timeout time.Duration) error
	Close()
}

// Notifier publishes build events as JSON messages.
type Notifier struct {
	conn   publisher
	prefix string
}

// Connect dials the NATS server at url.
func Connect(url, prefix string) (*Notifier, error) {
	conn, err := nats.Connect(url,
		nats.Name("blogbuilder"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryNetwork, "connect to NATS").
			Retryable().
			WithContext("url", url).
			Build()
	}
	slog.Info("Connected to NATS", logfields.URL(conn.ConnectedUrlRedacted()))
	return newNotifier(conn, prefix), nil
}

func newNotifier(conn publisher, prefix string) *Notifier {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &Notifier{conn: conn, prefix: prefix}
}

// Subject returns the subject an event is published on.
func (n *Notifier) Subject(evt events.BuildEvent) string {
	return n.prefix + "." + evt.EventType()
}

// Notify publishes one event.
func (n *Notifier) Notify(evt events.BuildEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryInternal, "marshal event").Build()
	}
	subject := n.Subject(evt)
	if err := n.conn.Publish(subject, data); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryNetwork, "publish event").
			WithContext("subject", subject).
			Build()
	}
	slog.Debug("Published build event", logfields.Subject(subject), logfields.BuildID(evt.EventBuildID()))
	return nil
}

// Attach publishes every build event from bus in the background. The returned
// channel is closed once the bus is closed and all received events were sent.
func (n *Notifier) Attach(_ context.Context, bus *events.Bus) <-chan struct{} {
	ch, _ := events.Subscribe[events.BuildEvent](bus, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for evt := range ch {
			if err := n.Notify(evt); err != nil {
				slog.Warn("Failed to publish build event", logfields.BuildID(evt.EventBuildID()), logfields.Error(err))
			}
		}
	}()
	return done
}

// Close flushes pending messages and closes the connection.
func (n *Notifier) Close() error {
	defer n.conn.Close()
	if err := n.conn.FlushTimeout(2 * time.Second); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryNetwork, "flush NATS connection").Build()
	}
	return nil
}
