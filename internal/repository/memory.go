// internal/repository/memory.go
package repository

import (
	"context"
	"sync"

	"hrms-escalation/internal/models"
)

// MemoryRepository is an in-memory Repository used in tests and in
// environments without a database. Safe for concurrent use.
type MemoryRepository struct {
	mu            sync.RWMutex
	notifications map[string]*models.Notification
	rules         map[string]*models.RoutingRule
	order         []string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		notifications: make(map[string]*models.Notification),
		rules:         make(map[string]*models.RoutingRule),
	}
}

// PutNotification inserts or replaces a notification.
func (r *MemoryRepository) PutNotification(n *models.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.notifications[n.ID]; !exists {
		r.order = append(r.order, n.ID)
	}
	cp := cloneNotification(n)
	r.notifications[n.ID] = cp
}

// PutRoutingRule inserts or replaces a routing rule.
func (r *MemoryRepository) PutRoutingRule(rule *models.RoutingRule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rule
	cp.Steps = append([]models.EscalationStep(nil), rule.Steps...)
	r.rules[rule.ID] = &cp
}

func (r *MemoryRepository) GetNotifications(ctx context.Context) ([]models.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Notification, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *cloneNotification(r.notifications[id]))
	}
	return out, nil
}

func (r *MemoryRepository) GetNotification(ctx context.Context, id string) (*models.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.notifications[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneNotification(n), nil
}

func (r *MemoryRepository) UpdateNotification(ctx context.Context, id string, update EscalationUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notifications[id]
	if !ok {
		return ErrNotFound
	}
	if update.DeliveryChannels != nil {
		n.DeliveryChannels = append([]string(nil), update.DeliveryChannels...)
	}
	n.SLADueAt = copyString(update.SLADueAt)
	n.EscalationStatus = update.EscalationStatus
	n.EscalationLevel = update.EscalationLevel
	if update.LastEscalatedAt != nil {
		n.LastEscalatedAt = copyString(update.LastEscalatedAt)
	}
	return nil
}

func (r *MemoryRepository) AppendEscalationHistory(ctx context.Context, id string, entry models.EscalationHistoryEntry, newStatus string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notifications[id]
	if !ok {
		return ErrNotFound
	}
	n.EscalationHistory = append(n.EscalationHistory, entry)
	n.EscalationStatus = newStatus
	return nil
}

func (r *MemoryRepository) GetRoutingRules(ctx context.Context) ([]models.RoutingRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.RoutingRule, 0, len(r.rules))
	for _, rule := range r.rules {
		cp := *rule
		cp.Steps = append([]models.EscalationStep(nil), rule.Steps...)
		out = append(out, cp)
	}
	return out, nil
}

func cloneNotification(n *models.Notification) *models.Notification {
	cp := *n
	cp.DeliveryChannels = append([]string(nil), n.DeliveryChannels...)
	cp.EscalationHistory = append([]models.EscalationHistoryEntry(nil), n.EscalationHistory...)
	cp.SnoozedUntil = copyString(n.SnoozedUntil)
	cp.SLADueAt = copyString(n.SLADueAt)
	cp.LastEscalatedAt = copyString(n.LastEscalatedAt)
	if n.Employee != nil {
		emp := *n.Employee
		cp.Employee = &emp
	}
	if n.RoutingRule != nil {
		rule := *n.RoutingRule
		rule.Steps = append([]models.EscalationStep(nil), n.RoutingRule.Steps...)
		cp.RoutingRule = &rule
	}
	return &cp
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
