package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// BuildStatus describes the most recent build seen by the serve loop.
type BuildStatus struct {
	BuildID     string    `json:"build_id,omitempty"`
	Outcome     string    `json:"outcome"`
	Trigger     string    `json:"trigger,omitempty"`
	Posts       int       `json:"posts"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	DurationMS  int64     `json:"duration_ms"`
	FinishedAt  time.Time `json:"finished_at,omitzero"`
	ErrorStage  string    `json:"error_stage,omitempty"`
	Error       string    `json:"error,omitempty"`
	// LastSuccess is the build id currently being served.
	LastSuccess string `json:"last_success,omitempty"`
	Builds      int    `json:"builds"`
}

// StatusTracker holds the last build status for the status endpoint.
type StatusTracker struct {
	mu     sync.RWMutex
	status BuildStatus
}

// NewStatusTracker returns a tracker reporting a pending build.
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{status: BuildStatus{Outcome: "pending"}}
}

// Update records the result of a build.
func (t *StatusTracker) Update(s BuildStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s.Builds = t.status.Builds + 1
	s.LastSuccess = t.status.LastSuccess
	if s.Outcome == "success" {
		s.LastSuccess = s.BuildID
	}
	t.status = s
}

// Get returns a copy of the current status.
func (t *StatusTracker) Get() BuildStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// ServeHTTP writes the current status as JSON.
func (t *StatusTracker) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	_ = json.NewEncoder(w).Encode(t.Get())
}
