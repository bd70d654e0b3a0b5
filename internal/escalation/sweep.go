// internal/escalation/sweep.go
package escalation

import (
	"context"
	"time"

	apperrors "hrms-escalation/internal/common/errors"
	"hrms-escalation/internal/common/logger"
	"hrms-escalation/internal/common/metrics"
	"hrms-escalation/internal/models"
	"hrms-escalation/internal/repository"
)

// SweepReason is recorded in the history of every automatically escalated
// notification.
const SweepReason = "Automatic escalation - SLA breached"

// Sweeper scans all live notifications and escalates those whose SLA
// deadline has lapsed. Notifications are processed sequentially; that bounds
// dispatch burst size against channel-provider rate limits at the cost of
// sweep latency growing with the overdue count.
type Sweeper struct {
	executor *Executor
	logger   logger.Logger
	nowFn    func() time.Time
}

func NewSweeper(executor *Executor, log logger.Logger) *Sweeper {
	return &Sweeper{
		executor: executor,
		logger:   log.WithFields(map[string]interface{}{"component": "overdue-sweep"}),
		nowFn:    time.Now,
	}
}

// WithClock overrides the sweep's time source. Tests only.
func (s *Sweeper) WithClock(nowFn func() time.Time) *Sweeper {
	s.nowFn = nowFn
	return s
}

// Sweep escalates every eligible overdue notification and returns how many
// advanced to a new step. Closing an exhausted notification is a real state
// transition but does not count toward the total.
//
// "now" is captured once at sweep start and reused for every notification so
// the cutoff stays consistent even when the sweep itself runs long.
func (s *Sweeper) Sweep(ctx context.Context, repo repository.Repository) (int, error) {
	start := time.Now()
	now := s.nowFn().UTC()

	notifications, err := repo.GetNotifications(ctx)
	if err != nil {
		metrics.SweepFailures.Inc()
		return 0, err
	}

	escalated := 0
	for i := range notifications {
		n := &notifications[i]
		if !sweepEligible(n, now) {
			continue
		}

		due, err := time.Parse(time.RFC3339, *n.SLADueAt)
		if err != nil {
			// Data error on one row, not fatal to the sweep.
			s.logger.Warn("skipping notification with unparseable SLA deadline", map[string]interface{}{
				"notificationId": n.ID,
				"error":          apperrors.NewInvalidSLATimestampError(n.ID, *n.SLADueAt),
			})
			continue
		}
		if due.After(now) {
			continue
		}

		result, err := s.executor.Escalate(ctx, repo, n, SweepReason, now)
		if err != nil {
			s.logger.Error("escalation failed during sweep", map[string]interface{}{
				"notificationId": n.ID,
				"error":          err,
			})
			continue
		}
		if result.Step != nil {
			escalated++
		}
	}

	metrics.SweepDuration.Observe(time.Since(start).Seconds())
	metrics.SweepEscalated.Observe(float64(escalated))

	s.logger.Info("overdue sweep completed", map[string]interface{}{
		"scanned":   len(notifications),
		"escalated": escalated,
	})
	return escalated, nil
}

// sweepEligible filters out notifications the sweep must never touch:
// no SLA deadline, read or dismissed, already closed, or snoozed.
func sweepEligible(n *models.Notification, now time.Time) bool {
	if n.SLADueAt == nil {
		return false
	}
	if n.Status == models.StatusRead || n.Status == models.StatusDismissed {
		return false
	}
	if n.EscalationStatus == models.EscalationClosed {
		return false
	}
	if n.SnoozedUntil != nil {
		if until, err := time.Parse(time.RFC3339, *n.SnoozedUntil); err == nil && until.After(now) {
			return false
		}
	}
	return true
}
