// internal/repository/postgres.go
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	apperrors "hrms-escalation/internal/common/errors"
	"hrms-escalation/internal/common/logger"
	"hrms-escalation/internal/models"
)

// PostgresRepository implements Repository on top of the HR application's
// notification tables. Channel sets and employee snapshots are stored as
// jsonb, matching how the application serializes them.
type PostgresRepository struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPostgresRepository(db *sql.DB, log logger.Logger) *PostgresRepository {
	return &PostgresRepository{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "postgres-repository"}),
	}
}

const notificationColumns = `id, employee, type, title, message, priority, status,
	snoozed_until, sla_due_at, routing_rule_id, delivery_channels,
	escalation_status, escalation_level, last_escalated_at, created_at`

func (r *PostgresRepository) GetNotifications(ctx context.Context) ([]models.Notification, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM notifications`, notificationColumns))
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("query notifications", err)
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) GetNotification(ctx context.Context, id string) (*models.Notification, error) {
	row := r.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM notifications WHERE id = $1`, notificationColumns), id)

	n, err := scanNotification(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	history, err := r.getHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	n.EscalationHistory = history
	return n, nil
}

func (r *PostgresRepository) UpdateNotification(ctx context.Context, id string, update EscalationUpdate) error {
	var channels interface{}
	if update.DeliveryChannels != nil {
		raw, err := json.Marshal(update.DeliveryChannels)
		if err != nil {
			return fmt.Errorf("marshal delivery channels: %w", err)
		}
		channels = string(raw)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET
			delivery_channels = COALESCE($2, delivery_channels),
			sla_due_at = $3,
			escalation_status = $4,
			escalation_level = $5,
			last_escalated_at = COALESCE($6, last_escalated_at)
		WHERE id = $1`,
		id, channels, nullable(update.SLADueAt), update.EscalationStatus,
		update.EscalationLevel, nullable(update.LastEscalatedAt))
	if err != nil {
		return fmt.Errorf("update notification %s: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) AppendEscalationHistory(ctx context.Context, id string, entry models.EscalationHistoryEntry, newStatus string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history append: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO notification_escalation_history
			(id, notification_id, level, channel, recipient, occurred_at, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, id, entry.Level, entry.Channel, entry.Recipient,
		entry.Timestamp, entry.Status, entry.Notes)
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE notifications SET escalation_status = $2 WHERE id = $1`, id, newStatus)
	if err != nil {
		return fmt.Errorf("update escalation status: %w", err)
	}

	return tx.Commit()
}

func (r *PostgresRepository) GetRoutingRules(ctx context.Context) ([]models.RoutingRule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, trigger_type, sla_minutes, default_channels, escalation_strategy
		FROM notification_routing_rules`)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("query routing rules", err)
	}
	defer rows.Close()

	var rules []models.RoutingRule
	for rows.Next() {
		var rule models.RoutingRule
		var channelsRaw []byte
		if err := rows.Scan(&rule.ID, &rule.Name, &rule.TriggerType, &rule.SLAMinutes,
			&channelsRaw, &rule.EscalationStrategy); err != nil {
			return nil, fmt.Errorf("scan routing rule: %w", err)
		}
		if len(channelsRaw) > 0 {
			if err := json.Unmarshal(channelsRaw, &rule.DefaultChannels); err != nil {
				return nil, fmt.Errorf("unmarshal default channels for rule %s: %w", rule.ID, err)
			}
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range rules {
		steps, err := r.getSteps(ctx, rules[i].ID)
		if err != nil {
			return nil, err
		}
		rules[i].Steps = steps
	}
	return rules, nil
}

func (r *PostgresRepository) getSteps(ctx context.Context, ruleID string) ([]models.EscalationStep, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, rule_id, level, escalate_after_minutes, target_role, channel, message_template
		FROM notification_escalation_steps
		WHERE rule_id = $1
		ORDER BY level`, ruleID)
	if err != nil {
		return nil, fmt.Errorf("query escalation steps: %w", err)
	}
	defer rows.Close()

	var steps []models.EscalationStep
	for rows.Next() {
		var step models.EscalationStep
		var targetRole, template sql.NullString
		if err := rows.Scan(&step.ID, &step.RuleID, &step.Level, &step.EscalateAfterMinutes,
			&targetRole, &step.Channel, &template); err != nil {
			return nil, fmt.Errorf("scan escalation step: %w", err)
		}
		step.TargetRole = targetRole.String
		step.MessageTemplate = template.String
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

func (r *PostgresRepository) getHistory(ctx context.Context, id string) ([]models.EscalationHistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, level, channel, recipient, occurred_at, status, notes
		FROM notification_escalation_history
		WHERE notification_id = $1
		ORDER BY occurred_at`, id)
	if err != nil {
		return nil, fmt.Errorf("query escalation history: %w", err)
	}
	defer rows.Close()

	var entries []models.EscalationHistoryEntry
	for rows.Next() {
		var e models.EscalationHistoryEntry
		var notes sql.NullString
		if err := rows.Scan(&e.ID, &e.Level, &e.Channel, &e.Recipient, &e.Timestamp, &e.Status, &notes); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		e.Notes = notes.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanNotification(row rowScanner) (*models.Notification, error) {
	var n models.Notification
	var employeeRaw, channelsRaw []byte
	var priority, snoozedUntil, slaDueAt, routingRuleID, lastEscalatedAt, createdAt sql.NullString

	err := row.Scan(&n.ID, &employeeRaw, &n.Type, &n.Title, &n.Message, &priority,
		&n.Status, &snoozedUntil, &slaDueAt, &routingRuleID, &channelsRaw,
		&n.EscalationStatus, &n.EscalationLevel, &lastEscalatedAt, &createdAt)
	if err != nil {
		return nil, err
	}

	n.Priority = priority.String
	n.RoutingRuleID = routingRuleID.String
	n.CreatedAt = createdAt.String
	if snoozedUntil.Valid {
		n.SnoozedUntil = &snoozedUntil.String
	}
	if slaDueAt.Valid {
		n.SLADueAt = &slaDueAt.String
	}
	if lastEscalatedAt.Valid {
		n.LastEscalatedAt = &lastEscalatedAt.String
	}
	if len(employeeRaw) > 0 {
		var emp models.Employee
		if err := json.Unmarshal(employeeRaw, &emp); err != nil {
			return nil, fmt.Errorf("unmarshal employee for notification %s: %w", n.ID, err)
		}
		n.EmployeeID = emp.ID
		n.Employee = &emp
	}
	if len(channelsRaw) > 0 {
		if err := json.Unmarshal(channelsRaw, &n.DeliveryChannels); err != nil {
			return nil, fmt.Errorf("unmarshal delivery channels for notification %s: %w", n.ID, err)
		}
	}
	return &n, nil
}

func nullable(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
