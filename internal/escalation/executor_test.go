// internal/escalation/executor_test.go
package escalation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrms-escalation/internal/channels"
	apperrors "hrms-escalation/internal/common/errors"
	"hrms-escalation/internal/common/logger"
	"hrms-escalation/internal/models"
	"hrms-escalation/internal/repository"
	"hrms-escalation/internal/rules"
)

func testEmployee() *models.Employee {
	return &models.Employee{
		ID:        "emp-001",
		FirstName: "  Priya ",
		LastName:  " Nair ",
		Email:     "priya.nair@example.com",
		Phone:     "+14155550101",
	}
}

func testRule() *models.RoutingRule {
	return &models.RoutingRule{
		ID:                 "rule-001",
		Name:               "document expiry",
		TriggerType:        "document_expiry",
		SLAMinutes:         60,
		EscalationStrategy: models.StrategySequential,
		Steps: []models.EscalationStep{
			{ID: "s1", RuleID: "rule-001", Level: 1, EscalateAfterMinutes: 30, TargetRole: "hr-manager", Channel: "email", MessageTemplate: "Passport of {{employeeName}} expires soon"},
			{ID: "s2", RuleID: "rule-001", Level: 2, EscalateAfterMinutes: 0, Channel: "sms"},
		},
	}
}

func testNotification(rule *models.RoutingRule, slaDueAt *string) *models.Notification {
	return &models.Notification{
		ID:               "n-001",
		EmployeeID:       "emp-001",
		Employee:         testEmployee(),
		Type:             "document_expiry",
		Title:            "Passport expiring",
		Message:          "Passport expires in 30 days",
		Status:           models.StatusUnread,
		SLADueAt:         slaDueAt,
		RoutingRuleID:    "rule-001",
		RoutingRule:      rule,
		EscalationStatus: models.EscalationPending,
	}
}

func newTestExecutor(t *testing.T, ruleSet ...models.RoutingRule) (*Executor, *channels.Dispatcher) {
	t.Helper()
	log := logger.NewTestLogger(t)
	dispatcher := channels.NewDispatcher(log)
	return NewExecutor(rules.NewStaticStore(ruleSet), dispatcher, nil, log), dispatcher
}

func strPtr(s string) *string { return &s }

func TestExecutorEscalateAdvancesOneStep(t *testing.T) {
	repo := repository.NewMemoryRepository()
	exec, dispatcher := newTestExecutor(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	n := testNotification(testRule(), strPtr(now.Add(-10*time.Minute).Format(time.RFC3339)))
	repo.PutNotification(n)

	result, err := exec.Escalate(context.Background(), repo, n, "manager requested", now)
	require.NoError(t, err)
	require.NotNil(t, result.Step)
	assert.Equal(t, 1, result.Step.Level)
	assert.Equal(t, []string{"email"}, result.Channels)
	assert.False(t, result.Closed)

	require.NotNil(t, result.HistoryEntry)
	assert.Equal(t, "hr-manager", result.HistoryEntry.Recipient)
	assert.Equal(t, "manager requested", result.HistoryEntry.Notes)
	assert.Equal(t, "escalated", result.HistoryEntry.Status)
	assert.Equal(t, now.Format(time.RFC3339), result.HistoryEntry.Timestamp)

	stored, err := repo.GetNotification(context.Background(), "n-001")
	require.NoError(t, err)
	assert.Equal(t, models.EscalationEscalated, stored.EscalationStatus)
	assert.Equal(t, 1, stored.EscalationLevel)
	require.NotNil(t, stored.SLADueAt)
	assert.Equal(t, now.Add(30*time.Minute).Format(time.RFC3339), *stored.SLADueAt)
	require.Len(t, stored.EscalationHistory, 1)

	// No transport configured: the message landed in the email mock sink.
	emails := dispatcher.Sinks().ByChannel(channels.ChannelEmail)
	require.Len(t, emails, 1)
	assert.Equal(t, "priya.nair@example.com", emails[0].Recipient)
	assert.Equal(t, "Passport of Priya Nair expires soon", emails[0].Body)
}

func TestExecutorChannelAccumulation(t *testing.T) {
	repo := repository.NewMemoryRepository()
	exec, _ := newTestExecutor(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	n := testNotification(testRule(), strPtr(now.Format(time.RFC3339)))
	repo.PutNotification(n)

	first, err := exec.Escalate(context.Background(), repo, n, "", now)
	require.NoError(t, err)
	assert.Equal(t, []string{"email"}, first.Channels)

	second, err := exec.Escalate(context.Background(), repo, n, "", now.Add(time.Hour))
	require.NoError(t, err)
	require.NotNil(t, second.Step)
	assert.Equal(t, 2, second.Step.Level)
	assert.Equal(t, []string{"email", "sms"}, second.Channels, "earlier channels keep receiving")

	// Step 2 has escalateAfterMinutes = 0: one-shot terminal delivery.
	stored, err := repo.GetNotification(context.Background(), "n-001")
	require.NoError(t, err)
	assert.Nil(t, stored.SLADueAt)
	assert.Equal(t, models.EscalationEscalated, stored.EscalationStatus)
}

func TestExecutorMonotonicLevelAdvance(t *testing.T) {
	rule := &models.RoutingRule{
		ID: "rule-003",
		Steps: []models.EscalationStep{
			{ID: "a", Level: 1, EscalateAfterMinutes: 10, Channel: "email"},
			{ID: "b", Level: 2, EscalateAfterMinutes: 10, Channel: "chat"},
			{ID: "c", Level: 3, EscalateAfterMinutes: 10, Channel: "push"},
		},
	}
	repo := repository.NewMemoryRepository()
	exec, _ := newTestExecutor(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	n := testNotification(rule, strPtr(now.Format(time.RFC3339)))
	n.RoutingRule = rule
	repo.PutNotification(n)

	for i := 0; i < 3; i++ {
		result, err := exec.Escalate(context.Background(), repo, n, "", now.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		require.NotNil(t, result.Step)
	}

	stored, err := repo.GetNotification(context.Background(), "n-001")
	require.NoError(t, err)
	assert.Equal(t, 3, stored.EscalationLevel)
	require.Len(t, stored.EscalationHistory, 3)
	for i, entry := range stored.EscalationHistory {
		assert.Equal(t, i+1, entry.Level, "history is level-ascending")
		if i > 0 {
			assert.LessOrEqual(t, stored.EscalationHistory[i-1].Timestamp, entry.Timestamp)
		}
	}
}

func TestExecutorIdempotentClosing(t *testing.T) {
	tests := []struct {
		name string
		rule *models.RoutingRule
	}{
		{name: "rule with no steps", rule: &models.RoutingRule{ID: "rule-001"}},
		{name: "level beyond highest step", rule: testRule()},
		{name: "missing rule", rule: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := repository.NewMemoryRepository()
			exec, dispatcher := newTestExecutor(t)
			now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

			n := testNotification(tt.rule, strPtr(now.Format(time.RFC3339)))
			n.EscalationLevel = 99
			repo.PutNotification(n)

			for i := 0; i < 3; i++ {
				result, err := exec.Escalate(context.Background(), repo, n, "", now)
				require.NoError(t, err)
				assert.True(t, result.Closed)
				assert.Nil(t, result.Step)
			}

			stored, err := repo.GetNotification(context.Background(), "n-001")
			require.NoError(t, err)
			assert.Equal(t, models.EscalationClosed, stored.EscalationStatus)
			assert.Nil(t, stored.SLADueAt)
			assert.Empty(t, stored.EscalationHistory)
			assert.Zero(t, dispatcher.Sinks().Len(), "closing dispatches nothing")
		})
	}
}

func TestExecutorResolvesRuleFromStore(t *testing.T) {
	repo := repository.NewMemoryRepository()
	exec, _ := newTestExecutor(t, *testRule())
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	n := testNotification(nil, strPtr(now.Format(time.RFC3339)))
	n.RoutingRule = nil
	repo.PutNotification(n)

	result, err := exec.Escalate(context.Background(), repo, n, "", now)
	require.NoError(t, err)
	require.NotNil(t, result.Step)
	assert.Equal(t, 1, result.Step.Level)
}

// failingRuleStore simulates a rule store whose backend is unreachable.
type failingRuleStore struct {
	err error
}

func (s failingRuleStore) GetRoutingRules(ctx context.Context) ([]models.RoutingRule, error) {
	return nil, s.err
}

func (s failingRuleStore) GetRoutingRule(ctx context.Context, id string) (*models.RoutingRule, error) {
	return nil, s.err
}

func TestExecutorRuleStoreOutageDoesNotClose(t *testing.T) {
	repo := repository.NewMemoryRepository()
	log := logger.NewTestLogger(t)
	exec := NewExecutor(failingRuleStore{err: errors.New("connection refused")},
		channels.NewDispatcher(log), nil, log)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	due := now.Add(-10 * time.Minute).Format(time.RFC3339)
	n := testNotification(nil, strPtr(due))
	repo.PutNotification(n)

	result, err := exec.Escalate(context.Background(), repo, n, "", now)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeRepositoryUnavailable),
		"an outage surfaces as a retryable error, not as chain exhaustion")

	stored, err := repo.GetNotification(context.Background(), "n-001")
	require.NoError(t, err)
	assert.Equal(t, models.EscalationPending, stored.EscalationStatus)
	require.NotNil(t, stored.SLADueAt)
	assert.Equal(t, due, *stored.SLADueAt, "deadline stays so the next sweep retries")
	assert.Empty(t, stored.EscalationHistory)
}

func TestExecutorRuleStoreErrorPassthrough(t *testing.T) {
	storeErr := apperrors.NewQueryExecutionFailedError("query routing rules", errors.New("timeout"))
	repo := repository.NewMemoryRepository()
	log := logger.NewTestLogger(t)
	exec := NewExecutor(failingRuleStore{err: storeErr}, channels.NewDispatcher(log), nil, log)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	n := testNotification(nil, strPtr(now.Format(time.RFC3339)))
	repo.PutNotification(n)

	_, err := exec.Escalate(context.Background(), repo, n, "", now)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeQueryExecutionFailed),
		"a typed store error is returned unwrapped")
}

func TestExecutorRecipientFallback(t *testing.T) {
	tests := []struct {
		name          string
		targetRole    string
		email         string
		wantRecipient string
	}{
		{name: "target role first", targetRole: "hr-manager", email: "a@b.c", wantRecipient: "hr-manager"},
		{name: "employee email next", targetRole: "", email: "a@b.c", wantRecipient: "a@b.c"},
		{name: "employee name last", targetRole: "", email: "", wantRecipient: "Priya Nair"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := testRule()
			rule.Steps = rule.Steps[:1]
			rule.Steps[0].TargetRole = tt.targetRole

			repo := repository.NewMemoryRepository()
			exec, _ := newTestExecutor(t)
			now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

			n := testNotification(rule, strPtr(now.Format(time.RFC3339)))
			n.Employee.Email = tt.email
			repo.PutNotification(n)

			result, err := exec.Escalate(context.Background(), repo, n, "", now)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRecipient, result.HistoryEntry.Recipient)
		})
	}
}

func TestExecutorNotesFallbackToTemplate(t *testing.T) {
	rule := testRule()
	repo := repository.NewMemoryRepository()
	exec, _ := newTestExecutor(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	n := testNotification(rule, strPtr(now.Format(time.RFC3339)))
	repo.PutNotification(n)

	result, err := exec.Escalate(context.Background(), repo, n, "", now)
	require.NoError(t, err)
	assert.Equal(t, "Passport of {{employeeName}} expires soon", result.HistoryEntry.Notes)
}

func TestRenderMessage(t *testing.T) {
	n := testNotification(nil, nil)

	assert.Equal(t, "Passport expires in 30 days", renderMessage("", n))
	assert.Equal(t, "Ping Priya Nair now", renderMessage("Ping {{employeeName}} now", n))

	n.Employee = nil
	assert.Equal(t, "Ping  now", renderMessage("Ping {{employeeName}} now", n))
}
