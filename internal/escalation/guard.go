// internal/escalation/guard.go
package escalation

import (
	"context"

	"golang.org/x/sync/singleflight"

	"hrms-escalation/internal/repository"
)

const sweepKey = "overdue-sweep"

// Guard ensures at most one overdue sweep runs at a time per engine
// instance. Concurrent trigger calls coalesce into the in-flight run and
// observe its result, success or failure alike. The single-flight state is
// owned by the Guard value, not package-level, so multiple engine instances
// (per tenant, say) never coalesce across each other.
type Guard struct {
	group   singleflight.Group
	sweeper *Sweeper
}

func NewGuard(sweeper *Sweeper) *Guard {
	return &Guard{sweeper: sweeper}
}

// TriggerSweep starts a sweep, or joins the one already in flight. All
// coalesced callers receive the same count and error. The in-flight marker
// is cleared unconditionally when the sweep returns, so the next trigger
// starts fresh; retry policy belongs to the caller.
func (g *Guard) TriggerSweep(ctx context.Context, repo repository.Repository) (int, error) {
	v, err, _ := g.group.Do(sweepKey, func() (interface{}, error) {
		// The closure captures the first caller's ctx. Detach from its
		// cancellation so one caller backing out does not fail the run
		// for every coalesced caller.
		return g.sweeper.Sweep(context.WithoutCancel(ctx), repo)
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}
