// internal/models/rule.go
package models

// Escalation strategies
const (
	StrategySequential = "sequential"
)

type RoutingRule struct {
	ID                 string           `json:"id"`
	Name               string           `json:"name"`
	TriggerType        string           `json:"triggerType"` // notification type this rule applies to
	SLAMinutes         int              `json:"slaMinutes"`
	DefaultChannels    []string         `json:"defaultChannels,omitempty"`
	EscalationStrategy string           `json:"escalationStrategy"` // only "sequential" is defined
	Steps              []EscalationStep `json:"steps"`
}

// EscalationStep is one rung of a routing rule's chain. Levels define
// progression order; they ascend but are not required to be contiguous.
type EscalationStep struct {
	ID                   string `json:"id"`
	RuleID               string `json:"ruleId"`
	Level                int    `json:"level"`
	EscalateAfterMinutes int    `json:"escalateAfterMinutes"`
	TargetRole           string `json:"targetRole,omitempty"`
	Channel              string `json:"channel"`
	MessageTemplate      string `json:"messageTemplate,omitempty"` // supports {{employeeName}}
}
