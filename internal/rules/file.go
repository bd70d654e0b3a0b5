// internal/rules/file.go
package rules

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xeipuuv/gojsonschema"

	"hrms-escalation/internal/models"
)

// registrySchema validates the routing-rule registry file before it is
// trusted. Structural invariants beyond the schema (unique levels, known
// strategy) are checked by Validate.
const registrySchema = `{
	"type": "object",
	"required": ["rules"],
	"properties": {
		"version": {"type": "string"},
		"rules": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id", "name", "triggerType", "slaMinutes", "steps"],
				"properties": {
					"id": {"type": "string", "minLength": 1},
					"name": {"type": "string", "minLength": 1},
					"triggerType": {"type": "string", "minLength": 1},
					"slaMinutes": {"type": "integer", "minimum": 0},
					"defaultChannels": {
						"type": "array",
						"items": {"type": "string"}
					},
					"escalationStrategy": {"type": "string", "enum": ["sequential"]},
					"steps": {
						"type": "array",
						"items": {
							"type": "object",
							"required": ["level", "channel"],
							"properties": {
								"id": {"type": "string"},
								"level": {"type": "integer", "minimum": 1},
								"escalateAfterMinutes": {"type": "integer", "minimum": 0},
								"targetRole": {"type": "string"},
								"channel": {"type": "string"},
								"messageTemplate": {"type": "string"}
							}
						}
					}
				}
			}
		}
	}
}`

// RuleRegistry is the on-disk shape of a routing-rule registry file.
type RuleRegistry struct {
	Version string               `json:"version,omitempty"`
	Rules   []models.RoutingRule `json:"rules"`
}

// LoadRegistry reads a routing-rule registry file, validates it against the
// registry schema and the structural rule invariants, and returns a Store
// serving its rules.
func LoadRegistry(path string) (*StaticStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule registry: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(registrySchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("validate rule registry: %w", err)
	}
	if !result.Valid() {
		details := ""
		for _, desc := range result.Errors() {
			details += desc.String() + "; "
		}
		return nil, fmt.Errorf("rule registry %s is invalid: %s", path, details)
	}

	var reg RuleRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse rule registry: %w", err)
	}

	for i := range reg.Rules {
		if err := Validate(&reg.Rules[i]); err != nil {
			return nil, err
		}
		for j := range reg.Rules[i].Steps {
			reg.Rules[i].Steps[j].RuleID = reg.Rules[i].ID
		}
	}

	return NewStaticStore(reg.Rules), nil
}
