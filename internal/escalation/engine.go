// internal/escalation/engine.go
package escalation

import (
	"context"
	"time"

	"hrms-escalation/internal/audit"
	"hrms-escalation/internal/channels"
	"hrms-escalation/internal/common/logger"
	"hrms-escalation/internal/repository"
	"hrms-escalation/internal/rules"
)

// Engine is the surface the application talks to: manual escalation of one
// notification, on-demand sweeps, and the single-flight trigger a scheduler
// or HTTP handler should call.
type Engine struct {
	repo     repository.Repository
	executor *Executor
	sweeper  *Sweeper
	guard    *Guard
}

func NewEngine(repo repository.Repository, ruleStore rules.Store, dispatcher *channels.Dispatcher, recorder audit.Recorder, log logger.Logger) *Engine {
	executor := NewExecutor(ruleStore, dispatcher, recorder, log)
	sweeper := NewSweeper(executor, log)
	return &Engine{
		repo:     repo,
		executor: executor,
		sweeper:  sweeper,
		guard:    NewGuard(sweeper),
	}
}

// Executor exposes the underlying executor for callers that manage their own
// notifications and clocks.
func (e *Engine) Executor() *Executor {
	return e.executor
}

// Escalate performs an operator-initiated "escalate now" on one
// notification, bypassing the SLA check.
func (e *Engine) Escalate(ctx context.Context, notificationID, reason string) (*Result, error) {
	n, err := e.repo.GetNotification(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	return e.executor.Escalate(ctx, e.repo, n, reason, time.Now())
}

// SweepOverdue runs one sweep directly, without single-flight coalescing.
func (e *Engine) SweepOverdue(ctx context.Context) (int, error) {
	return e.sweeper.Sweep(ctx, e.repo)
}

// TriggerSweep is the single-flight sweep entry point.
func (e *Engine) TriggerSweep(ctx context.Context) (int, error) {
	return e.guard.TriggerSweep(ctx, e.repo)
}
