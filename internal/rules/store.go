// internal/rules/store.go
package rules

import (
	"context"
	"fmt"

	apperrors "hrms-escalation/internal/common/errors"
	"hrms-escalation/internal/models"
	"hrms-escalation/internal/repository"
)

// Store provides read access to routing rules. Rule editing is an external
// write path; this core only reads.
type Store interface {
	GetRoutingRules(ctx context.Context) ([]models.RoutingRule, error)
	GetRoutingRule(ctx context.Context, id string) (*models.RoutingRule, error)
}

// RepositoryStore serves rules straight from the notification repository.
type RepositoryStore struct {
	repo repository.Repository
}

func NewRepositoryStore(repo repository.Repository) *RepositoryStore {
	return &RepositoryStore{repo: repo}
}

func (s *RepositoryStore) GetRoutingRules(ctx context.Context) ([]models.RoutingRule, error) {
	return s.repo.GetRoutingRules(ctx)
}

func (s *RepositoryStore) GetRoutingRule(ctx context.Context, id string) (*models.RoutingRule, error) {
	rules, err := s.repo.GetRoutingRules(ctx)
	if err != nil {
		return nil, err
	}
	return findRule(rules, id)
}

// StaticStore serves a fixed rule set. Used in tests and for file-loaded
// registries.
type StaticStore struct {
	rules []models.RoutingRule
}

func NewStaticStore(rules []models.RoutingRule) *StaticStore {
	return &StaticStore{rules: rules}
}

func (s *StaticStore) GetRoutingRules(ctx context.Context) ([]models.RoutingRule, error) {
	return append([]models.RoutingRule(nil), s.rules...), nil
}

func (s *StaticStore) GetRoutingRule(ctx context.Context, id string) (*models.RoutingRule, error) {
	return findRule(s.rules, id)
}

func findRule(rules []models.RoutingRule, id string) (*models.RoutingRule, error) {
	for i := range rules {
		if rules[i].ID == id {
			rule := rules[i]
			rule.Steps = append([]models.EscalationStep(nil), rules[i].Steps...)
			return &rule, nil
		}
	}
	return nil, apperrors.NewRoutingRuleNotFoundError(id)
}

// Validate checks the structural invariants this engine relies on: a known
// escalation strategy and unique step levels within the rule.
func Validate(rule *models.RoutingRule) error {
	if rule.EscalationStrategy != "" && rule.EscalationStrategy != models.StrategySequential {
		return apperrors.NewRuleValidationFailedError(
			fmt.Sprintf("rule %s: unsupported escalation strategy %q", rule.ID, rule.EscalationStrategy))
	}
	levels := make(map[int]bool, len(rule.Steps))
	for _, step := range rule.Steps {
		if levels[step.Level] {
			return apperrors.NewRuleValidationFailedError(
				fmt.Sprintf("rule %s: duplicate step level %d", rule.ID, step.Level))
		}
		levels[step.Level] = true
	}
	return nil
}
