package preview

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
)

// buildFunc runs one rebuild for the given trigger.
type buildFunc func(ctx context.Context, trigger string) error

// runWorker drains signals and runs one build per signal until ctx is done or
// signals is closed. Builds never overlap; signals that arrive while a build
// runs wait in the channel and collapse into a single follow-up build.
func runWorker(ctx context.Context, signals <-chan string, build buildFunc) {
	for {
		select {
		case <-ctx.Done():
			return
		case trigger, ok := <-signals:
			if !ok {
				return
			}
			if ctx.Err() != nil {
				return
			}
			if err := build(ctx, trigger); err != nil {
				slog.Warn("Rebuild failed; serving previous output",
					logfields.Trigger(trigger),
					logfields.Error(err))
			}
		}
	}
}
