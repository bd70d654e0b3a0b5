// internal/escalation/executor.go
package escalation

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"hrms-escalation/internal/audit"
	"hrms-escalation/internal/channels"
	apperrors "hrms-escalation/internal/common/errors"
	"hrms-escalation/internal/common/logger"
	"hrms-escalation/internal/common/metrics"
	"hrms-escalation/internal/models"
	"hrms-escalation/internal/repository"
	"hrms-escalation/internal/rules"
)

// Result reports the outcome of one escalation attempt as values; callers
// never need to re-read the repository to observe what happened.
type Result struct {
	// Step is the step executed, nil when the chain was exhausted.
	Step *models.EscalationStep
	// HistoryEntry is the appended log entry, nil when no step ran.
	HistoryEntry *models.EscalationHistoryEntry
	// Channels is the merged delivery channel set after this escalation.
	Channels []string
	// Delivered maps each dispatched channel to its delivery outcome.
	Delivered map[channels.Channel]bool
	// Closed is true when the notification transitioned to closed.
	Closed bool
}

// Executor performs one escalation: dispatch, history append, SLA reset.
// State machine: pending -> escalated -> (escalated | closed); closed is
// terminal.
type Executor struct {
	rules      rules.Store
	dispatcher *channels.Dispatcher
	audit      audit.Recorder
	logger     logger.Logger
}

func NewExecutor(ruleStore rules.Store, dispatcher *channels.Dispatcher, recorder audit.Recorder, log logger.Logger) *Executor {
	if recorder == nil {
		recorder = audit.NoopRecorder{}
	}
	return &Executor{
		rules:      ruleStore,
		dispatcher: dispatcher,
		audit:      recorder,
		logger:     log.WithFields(map[string]interface{}{"component": "escalation-executor"}),
	}
}

// Escalate advances the notification one step along its routing rule's chain.
// reason, when non-empty, is recorded in the history entry's notes; now is
// the timestamp used for the entry and the next SLA deadline.
//
// When no further step exists the notification is closed (slaDueAt cleared).
// Closing is idempotent and always safe.
func (e *Executor) Escalate(ctx context.Context, repo repository.Repository, n *models.Notification, reason string, now time.Time) (*Result, error) {
	rule := n.RoutingRule
	if rule == nil && n.RoutingRuleID != "" && e.rules != nil {
		found, err := e.rules.GetRoutingRule(ctx, n.RoutingRuleID)
		switch {
		case err == nil:
			rule = found
		case apperrors.HasCode(err, apperrors.ErrCodeRoutingRuleNotFound):
			// The rule genuinely does not exist, which exhausts the chain.
			e.logger.Warn("routing rule missing, closing notification", map[string]interface{}{
				"notificationId": n.ID,
				"ruleId":         n.RoutingRuleID,
			})
		default:
			// A store outage must not close the notification; the next
			// sweep retries with the deadline intact.
			e.logger.Error("routing rule lookup failed", map[string]interface{}{
				"notificationId": n.ID,
				"ruleId":         n.RoutingRuleID,
				"error":          err,
			})
			if std, ok := apperrors.AsStandard(err); ok {
				return nil, std
			}
			return nil, apperrors.NewRepositoryUnavailableError(err)
		}
	}

	step, ok := Resolve(n, rule)
	if !ok {
		return e.close(ctx, repo, n, now)
	}

	merged := channels.Merge(n.DeliveryChannels, step.Channel)
	message := renderMessage(step.MessageTemplate, n)

	delivered := e.dispatcher.Dispatch(ctx, merged, n, message, channels.StepContext{
		TargetRole: step.TargetRole,
		Template:   step.MessageTemplate,
	})

	entry := models.EscalationHistoryEntry{
		ID:        uuid.New().String(),
		Level:     step.Level,
		Channel:   string(channels.Normalize(step.Channel)),
		Recipient: recipientIdentity(step, n.Employee),
		Timestamp: now.UTC().Format(time.RFC3339),
		Status:    models.EscalationEscalated,
		Notes:     escalationNotes(reason, step),
	}

	// History is persisted before the SLA/status update so a reader never
	// sees an escalation level without its log entry.
	if err := repo.AppendEscalationHistory(ctx, n.ID, entry, models.EscalationEscalated); err != nil {
		return nil, err
	}

	var nextDue *string
	if step.EscalateAfterMinutes > 0 {
		due := now.UTC().Add(time.Duration(step.EscalateAfterMinutes) * time.Minute).Format(time.RFC3339)
		nextDue = &due
	}
	escalatedAt := now.UTC().Format(time.RFC3339)

	if err := repo.UpdateNotification(ctx, n.ID, repository.EscalationUpdate{
		DeliveryChannels: merged,
		SLADueAt:         nextDue,
		EscalationStatus: models.EscalationEscalated,
		EscalationLevel:  step.Level,
		LastEscalatedAt:  &escalatedAt,
	}); err != nil {
		return nil, err
	}

	// Reflect the update on the caller's value so repeated escalations in
	// one pass observe the advanced state.
	n.DeliveryChannels = merged
	n.SLADueAt = nextDue
	n.EscalationStatus = models.EscalationEscalated
	n.EscalationLevel = step.Level
	n.LastEscalatedAt = &escalatedAt
	n.EscalationHistory = append(n.EscalationHistory, entry)

	metrics.EscalationsExecuted.WithLabelValues(entry.Channel).Inc()
	e.recordAudit(ctx, n, &entry, "escalated")

	e.logger.Info("notification escalated", map[string]interface{}{
		"notificationId": n.ID,
		"level":          step.Level,
		"channels":       merged,
	})

	stepCopy := step
	return &Result{
		Step:         &stepCopy,
		HistoryEntry: &entry,
		Channels:     merged,
		Delivered:    delivered,
	}, nil
}

func (e *Executor) close(ctx context.Context, repo repository.Repository, n *models.Notification, now time.Time) (*Result, error) {
	if err := repo.UpdateNotification(ctx, n.ID, repository.EscalationUpdate{
		SLADueAt:         nil,
		EscalationStatus: models.EscalationClosed,
		EscalationLevel:  n.EscalationLevel,
	}); err != nil {
		return nil, err
	}

	alreadyClosed := n.EscalationStatus == models.EscalationClosed
	n.SLADueAt = nil
	n.EscalationStatus = models.EscalationClosed

	if !alreadyClosed {
		metrics.NotificationsClosed.Inc()
		e.recordAudit(ctx, n, nil, "closed")
		e.logger.Info("escalation chain exhausted, notification closed", map[string]interface{}{
			"notificationId": n.ID,
			"level":          n.EscalationLevel,
		})
	}

	return &Result{Closed: true, Channels: n.DeliveryChannels}, nil
}

func (e *Executor) recordAudit(ctx context.Context, n *models.Notification, entry *models.EscalationHistoryEntry, action string) {
	event := audit.Event{
		NotificationID: n.ID,
		EmployeeID:     n.EmployeeID,
		Action:         action,
	}
	if entry != nil {
		event.Level = entry.Level
		event.Channel = entry.Channel
		event.Recipient = entry.Recipient
		event.Notes = entry.Notes
	} else {
		event.Level = n.EscalationLevel
	}
	if err := e.audit.Record(ctx, event); err != nil {
		e.logger.Warn("audit record failed", map[string]interface{}{
			"notificationId": n.ID,
			"error":          err,
		})
	}
}

// renderMessage substitutes the {{employeeName}} placeholder in the step's
// template; with no template the notification's stored message is used.
func renderMessage(template string, n *models.Notification) string {
	if template == "" {
		return n.Message
	}
	return strings.ReplaceAll(template, "{{employeeName}}", n.Employee.FullName())
}

// recipientIdentity picks the best available recipient identifier for the
// history entry: target role, then employee email, then employee name.
func recipientIdentity(step models.EscalationStep, emp *models.Employee) string {
	if step.TargetRole != "" {
		return step.TargetRole
	}
	if emp != nil && emp.Email != "" {
		return emp.Email
	}
	return emp.FullName()
}

func escalationNotes(reason string, step models.EscalationStep) string {
	if reason != "" {
		return reason
	}
	return step.MessageTemplate
}
