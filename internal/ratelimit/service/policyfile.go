package service

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"ofertas/internal/ratelimit/models"
)

type policyFile struct {
	Policies map[string]Policy `yaml:"policies"`
}

// LoadPolicyFile reads per-action policy overrides from a YAML document:
//
//	policies:
//	  daily_offer:
//	    max_attempts: 5
//	    window: 60m
//	    block: 30m
func LoadPolicyFile(path string) (map[models.Action]Policy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return ParsePolicies(raw)
}

// ParsePolicies decodes and validates a policy document.
func ParsePolicies(raw []byte) (map[models.Action]Policy, error) {
	var doc policyFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode policy file: %w", err)
	}
	out := make(map[models.Action]Policy, len(doc.Policies))
	for name, p := range doc.Policies {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("policy %s: %w", name, err)
		}
		out[models.Action(name)] = p
	}
	return out, nil
}
