package reference

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tradepilot/tradepilot/internal/core/domain"
)

// agreementRule substitutes a representative member country when the user
// names a trade bloc instead of a country. Which member stands in depends on
// the side of the transaction.
type agreementRule struct {
	Match    string `yaml:"match"`
	Exporter string `yaml:"exporter"`
	Importer string `yaml:"importer"`
}

type agreementPolicy struct {
	Rules []agreementRule `yaml:"rules"`
}

func defaultAgreementPolicy() agreementPolicy {
	return agreementPolicy{Rules: []agreementRule{
		{Match: "usmca", Exporter: "USA", Importer: "Mexico"},
		{Match: "nafta", Exporter: "USA", Importer: "Mexico"},
		{Match: "european union", Exporter: "Germany", Importer: "France"},
		{Match: "eu", Exporter: "Germany", Importer: "France"},
	}}
}

// loadAgreementPolicy reads the policy file; when the path is empty or the
// file is absent the built-in rules apply. A present but malformed file is an
// error so a typo does not silently fall back.
func loadAgreementPolicy(path string) (agreementPolicy, error) {
	if path == "" {
		return defaultAgreementPolicy(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultAgreementPolicy(), nil
		}
		return agreementPolicy{}, fmt.Errorf("open agreement policy: %w", err)
	}
	var policy agreementPolicy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return agreementPolicy{}, fmt.Errorf("parse agreement policy %s: %w", path, err)
	}
	if len(policy.Rules) == 0 {
		return defaultAgreementPolicy(), nil
	}
	return policy, nil
}

func (p agreementPolicy) representative(raw string, role domain.TradeRole) (string, bool) {
	needle := strings.ToLower(strings.TrimSpace(raw))
	if needle == "" {
		return "", false
	}
	for _, rule := range p.Rules {
		match := strings.ToLower(rule.Match)
		if needle != match && !containsWord(needle, match) {
			continue
		}
		if role == domain.RoleExporter {
			return rule.Exporter, true
		}
		return rule.Importer, true
	}
	return "", false
}

// containsWord matches the rule token as a whole word, so "eu" does not fire
// on "Reunion". Multi-word rules ("european union") match as a phrase.
func containsWord(haystack, word string) bool {
	if strings.Contains(word, " ") {
		return strings.Contains(haystack, word)
	}
	fields := strings.FieldsFunc(haystack, func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	for i := range fields {
		if fields[i] == word {
			return true
		}
	}
	return false
}
