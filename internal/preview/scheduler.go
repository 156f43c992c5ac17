package preview

import (
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	ferrors "git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
)

// TriggerSchedule labels rebuilds started by the periodic schedule.
const TriggerSchedule = "schedule"

// scheduler wraps a gocron scheduler that periodically requests a rebuild.
type scheduler struct {
	s gocron.Scheduler
}

// newScheduler schedules kick every interval. The scheduler is started
// immediately; call Shutdown to stop it.
func newScheduler(interval time.Duration, kick func()) (*scheduler, error) {
	if interval <= 0 {
		return nil, ferrors.ValidationError("rebuild interval must be positive").
			WithContext("interval", interval.String()).
			Build()
	}
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryInternal, "failed to create scheduler").Build()
	}
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(kick),
		gocron.WithName("periodic-rebuild"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, ferrors.WrapError(err, ferrors.CategoryInternal, "failed to create periodic rebuild job").Build()
	}
	slog.Info("Periodic rebuild scheduled", slog.Duration("interval", interval))
	s.Start()
	return &scheduler{s: s}, nil
}

func (s *scheduler) Shutdown() error {
	if s == nil {
		return nil
	}
	return s.s.Shutdown()
}
