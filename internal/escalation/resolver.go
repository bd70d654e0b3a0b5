// internal/escalation/resolver.go
package escalation

import (
	"sort"

	"hrms-escalation/internal/models"
)

// Resolve computes the next eligible escalation step for a notification:
// the lowest-level step whose level is strictly greater than the
// notification's current escalation level. Levels are sorted here, not
// assumed contiguous or ordered in storage.
//
// ok is false when the rule is missing, has no steps, or the chain is
// exhausted; the caller must then close the notification.
func Resolve(n *models.Notification, rule *models.RoutingRule) (models.EscalationStep, bool) {
	if rule == nil || len(rule.Steps) == 0 {
		return models.EscalationStep{}, false
	}

	steps := append([]models.EscalationStep(nil), rule.Steps...)
	sort.Slice(steps, func(i, j int) bool {
		return steps[i].Level < steps[j].Level
	})

	for _, step := range steps {
		if step.Level > n.EscalationLevel {
			return step, true
		}
	}
	return models.EscalationStep{}, false
}
