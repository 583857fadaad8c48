package domain

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

type Rule struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	Trigger    string    `json:"trigger"`
	Reply      string    `json:"reply"`
	Active     bool      `json:"active"`
	UsageCount int64     `json:"usage_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type CreateRuleRequest struct {
	Trigger string `json:"trigger"`
	Reply   string `json:"reply"`
	Active  *bool  `json:"active"`
}

// fold builds a fresh Caser per call; Casers are not safe for concurrent use.
func fold(s string) string {
	return cases.Fold().String(s)
}

// Match returns the first active rule whose trigger occurs in body, comparing
// with Unicode case folding. Rules are tried in the order given; a blank
// trigger never matches.
func Match(rules []*Rule, body string) *Rule {
	folded := fold(body)
	if strings.TrimSpace(folded) == "" {
		return nil
	}
	for _, r := range rules {
		if r == nil || !r.Active {
			continue
		}
		trigger := strings.TrimSpace(r.Trigger)
		if trigger == "" {
			continue
		}
		if strings.Contains(folded, fold(trigger)) {
			return r
		}
	}
	return nil
}
