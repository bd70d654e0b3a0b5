// internal/repository/repository.go
package repository

import (
	"context"
	"errors"

	"hrms-escalation/internal/models"
)

// ErrNotFound is returned when a notification id has no backing row.
var ErrNotFound = errors.New("notification not found")

// EscalationUpdate captures the fields the escalation engine writes back on a
// notification. A nil DeliveryChannels leaves the stored set unchanged; a nil
// SLADueAt clears the deadline.
type EscalationUpdate struct {
	DeliveryChannels []string
	SLADueAt         *string
	EscalationStatus string
	EscalationLevel  int
	LastEscalatedAt  *string
}

// Repository is the persistence contract the engine operates against. The
// surrounding application owns the schema; this core only reads notifications
// and writes escalation state.
type Repository interface {
	GetNotifications(ctx context.Context) ([]models.Notification, error)
	GetNotification(ctx context.Context, id string) (*models.Notification, error)
	UpdateNotification(ctx context.Context, id string, update EscalationUpdate) error
	// AppendEscalationHistory appends one history entry and moves the
	// notification to newStatus. History is append-only.
	AppendEscalationHistory(ctx context.Context, id string, entry models.EscalationHistoryEntry, newStatus string) error
	GetRoutingRules(ctx context.Context) ([]models.RoutingRule, error)
}
