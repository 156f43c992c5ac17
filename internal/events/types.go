package events

import "time"

// Event types as recorded in build history and notification subjects.
const (
	TypeBuildStarted   = "build.started"
	TypeBuildCompleted = "build.completed"
	TypeBuildFailed    = "build.failed"
)

// BuildEvent is implemented by every build lifecycle event. Subscribing to
// BuildEvent receives all of them.
type BuildEvent interface {
	EventBuildID() string
	EventType() string
	EventTime() time.Time
}

// BuildStarted is published before the first build stage runs.
type BuildStarted struct {
	BuildID   string    `json:"build_id"`
	InputDir  string    `json:"input_dir"`
	OutputDir string    `json:"output_dir"`
	Trigger   string    `json:"trigger,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

// BuildCompleted is published after the new output is in place.
type BuildCompleted struct {
	BuildID     string        `json:"build_id"`
	Posts       int           `json:"posts"`
	Fingerprint string        `json:"fingerprint"`
	Commit      string        `json:"commit,omitempty"`
	Duration    time.Duration `json:"duration"`
	FinishedAt  time.Time     `json:"finished_at"`
}

// BuildFailed is published when a stage aborts the build.
type BuildFailed struct {
	BuildID    string        `json:"build_id"`
	Stage      string        `json:"stage"`
	Error      string        `json:"error"`
	Duration   time.Duration `json:"duration"`
	FinishedAt time.Time     `json:"finished_at"`
}

func (e BuildStarted) EventBuildID() string   { return e.BuildID }
func (e BuildStarted) EventType() string      { return TypeBuildStarted }
func (e BuildStarted) EventTime() time.Time   { return e.StartedAt }
func (e BuildCompleted) EventBuildID() string { return e.BuildID }
func (e BuildCompleted) EventType() string    { return TypeBuildCompleted }
func (e BuildCompleted) EventTime() time.Time { return e.FinishedAt }
func (e BuildFailed) EventBuildID() string    { return e.BuildID }
func (e BuildFailed) EventType() string       { return TypeBuildFailed }
func (e BuildFailed) EventTime() time.Time    { return e.FinishedAt }
