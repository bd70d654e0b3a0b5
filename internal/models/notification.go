// internal/models/notification.go
package models

// Notification statuses
const (
	StatusUnread    = "unread"
	StatusRead      = "read"
	StatusDismissed = "dismissed"
)

// Escalation statuses
const (
	EscalationPending   = "pending"
	EscalationEscalated = "escalated"
	EscalationClosed    = "closed"
)

// Priorities (informational to the escalation engine)
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

type Notification struct {
	ID                string                   `json:"id"`
	EmployeeID        string                   `json:"employeeId"`
	Employee          *Employee                `json:"employee,omitempty"`
	Type              string                   `json:"type"` // "document_expiry", "approval_request", ...
	Title             string                   `json:"title"`
	Message           string                   `json:"message"`
	Priority          string                   `json:"priority,omitempty"`
	Status            string                   `json:"status"` // "unread", "read", "dismissed"
	SnoozedUntil      *string                  `json:"snoozedUntil,omitempty"`
	SLADueAt          *string                  `json:"slaDueAt,omitempty"` // ISO 8601; nil means not subject to escalation
	RoutingRuleID     string                   `json:"routingRuleId,omitempty"`
	RoutingRule       *RoutingRule             `json:"routingRule,omitempty"`
	DeliveryChannels  []string                 `json:"deliveryChannels,omitempty"`
	EscalationStatus  string                   `json:"escalationStatus"` // "pending", "escalated", "closed"
	EscalationLevel   int                      `json:"escalationLevel"`  // 0 = not yet escalated
	EscalationHistory []EscalationHistoryEntry `json:"escalationHistory,omitempty"`
	LastEscalatedAt   *string                  `json:"lastEscalatedAt,omitempty"`
	CreatedAt         string                   `json:"createdAt,omitempty"`
}

// EscalationHistoryEntry is one row of a notification's append-only
// escalation log. Entries are never edited or removed once written.
type EscalationHistoryEntry struct {
	ID        string `json:"id"`
	Level     int    `json:"level"`
	Channel   string `json:"channel"`
	Recipient string `json:"recipient"`
	Timestamp string `json:"timestamp"` // ISO 8601
	Status    string `json:"status"`    // always "escalated"
	Notes     string `json:"notes,omitempty"`
}
