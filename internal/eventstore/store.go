// Package eventstore persists build lifecycle events and folds them into a
// build history.
package eventstore

import (
	"context"
	"time"
)

// Event is one stored build lifecycle event.
type Event struct {
	ID        int64
	BuildID   string
	Type      string
	Timestamp time.Time
	Payload   []byte
	Metadata  map[string]string
}

// Store defines the interface for persisting and retrieving events.
type Store interface {
	// Append adds a new event to the store.
	Append(ctx context.Context, evt Event) error

	// GetByBuildID retrieves all events for a specific build in insertion order.
	GetByBuildID(ctx context.Context, buildID string) ([]Event, error)

	// GetRange retrieves events with start <= timestamp <= end in insertion order.
	GetRange(ctx context.Context, start, end time.Time) ([]Event, error)

	// Recent retrieves the events of the newest limit builds in insertion order.
	Recent(ctx context.Context, limit int) ([]Event, error)

	// Close closes the store and releases resources.
	Close() error
}
