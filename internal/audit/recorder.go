// internal/audit/recorder.go
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"

	apperrors "hrms-escalation/internal/common/errors"
	"hrms-escalation/internal/common/logger"
)

// Event is one escalation fact written to the audit index. Audit writes are
// best effort; the escalation itself never fails on an indexing error.
type Event struct {
	ID             string    `json:"id"`
	NotificationID string    `json:"notificationId"`
	EmployeeID     string    `json:"employeeId,omitempty"`
	Level          int       `json:"level"`
	Channel        string    `json:"channel"`
	Recipient      string    `json:"recipient,omitempty"`
	Action         string    `json:"action"` // "escalated" or "closed"
	Notes          string    `json:"notes,omitempty"`
	OccurredAt     time.Time `json:"occurredAt"`
}

type Recorder interface {
	Record(ctx context.Context, event Event) error
}

// NoopRecorder discards events. Used when no audit index is configured.
type NoopRecorder struct{}

func (NoopRecorder) Record(ctx context.Context, event Event) error {
	return nil
}

// ElasticsearchRecorder indexes one document per escalation event.
type ElasticsearchRecorder struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewElasticsearchRecorder(client *elasticsearch.Client, index string, log logger.Logger) *ElasticsearchRecorder {
	return &ElasticsearchRecorder{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "audit-recorder"}),
	}
}

func (r *ElasticsearchRecorder) Record(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	res, err := r.client.Index(
		r.index,
		bytes.NewReader(body),
		r.client.Index.WithContext(ctx),
		r.client.Index.WithDocumentID(event.ID),
	)
	if err != nil {
		return apperrors.NewAuditIndexFailedError(r.index, err.Error())
	}
	defer res.Body.Close()

	if res.IsError() {
		return apperrors.NewAuditIndexFailedError(r.index, res.Status())
	}
	return nil
}
