package cmd

import (
	"fmt"

	"github.com/GoogleCloudPlatform/text-ql/internal/config"
	"github.com/GoogleCloudPlatform/text-ql/internal/validation"
)

// policyFromConfig converts the user-facing policy into a validation.Policy.
// Empty lists and maps keep the built-in defaults.
func policyFromConfig(pc config.PolicyConfig) (validation.Policy, error) {
	p := validation.DefaultPolicy()
	p.MaxRowLimit = pc.MaxRowLimit
	if pc.PlaceholderPattern != "" {
		p.PlaceholderPattern = pc.PlaceholderPattern
	}

	if len(pc.ModifyingStatements) > 0 {
		p.ModifyingStatements = make([]validation.StatementType, 0, len(pc.ModifyingStatements))
		for _, name := range pc.ModifyingStatements {
			t, err := validation.ParseStatementType(name)
			if err != nil {
				return validation.Policy{}, fmt.Errorf("policy.modifying_statements: %w", err)
			}
			p.ModifyingStatements = append(p.ModifyingStatements, t)
		}
	}

	for name, msg := range pc.StatementWarnings {
		t, err := validation.ParseStatementType(name)
		if err != nil {
			return validation.Policy{}, fmt.Errorf("policy.statement_warnings: %w", err)
		}
		p.StatementWarnings[t] = msg
	}
	return p, nil
}

func newGate() (*validation.Gate, error) {
	p, err := policyFromConfig(config.GetConfig().Policy)
	if err != nil {
		return nil, err
	}
	return validation.NewGate(p)
}
