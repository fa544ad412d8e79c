package ledger

import (
	"sort"
	"strings"
	"time"
)

type MatchField string

const (
	MatchFieldDescription MatchField = "description"
	MatchFieldReference   MatchField = "reference"
)

type MatchType string

const (
	MatchContains   MatchType = "contains"
	MatchStartsWith MatchType = "starts_with"
	MatchExact      MatchType = "exact"
)

type ClassificationRule struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	MatchField MatchField `json:"match_field"`
	MatchType  MatchType  `json:"match_type"`
	MatchValue string     `json:"match_value"`
	CategoryID string     `json:"category_id"`
	PropertyID string     `json:"property_id,omitempty"`
	Priority   int        `json:"priority"`
	IsActive   bool       `json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
}

type RulePatch struct {
	Name       *string     `json:"name,omitempty"`
	MatchField *MatchField `json:"match_field,omitempty"`
	MatchType  *MatchType  `json:"match_type,omitempty"`
	MatchValue *string     `json:"match_value,omitempty"`
	CategoryID *string     `json:"category_id,omitempty"`
	PropertyID *string     `json:"property_id,omitempty"`
	Priority   *int        `json:"priority,omitempty"`
	IsActive   *bool       `json:"is_active,omitempty"`
}

func (p RulePatch) Apply(r *ClassificationRule) {
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.MatchField != nil {
		r.MatchField = *p.MatchField
	}
	if p.MatchType != nil {
		r.MatchType = *p.MatchType
	}
	if p.MatchValue != nil {
		r.MatchValue = *p.MatchValue
	}
	if p.CategoryID != nil {
		r.CategoryID = *p.CategoryID
	}
	if p.PropertyID != nil {
		r.PropertyID = *p.PropertyID
	}
	if p.Priority != nil {
		r.Priority = *p.Priority
	}
	if p.IsActive != nil {
		r.IsActive = *p.IsActive
	}
}

func (r *ClassificationRule) Validate() error {
	switch r.MatchField {
	case MatchFieldDescription, MatchFieldReference:
	default:
		return Validationf("invalid match field %q", r.MatchField)
	}
	switch r.MatchType {
	case MatchContains, MatchStartsWith, MatchExact:
	default:
		return Validationf("invalid match type %q", r.MatchType)
	}
	if strings.TrimSpace(r.MatchValue) == "" {
		return Validationf("match value is required")
	}
	if r.CategoryID == "" {
		return Validationf("category is required")
	}
	return nil
}

// Matches tests the rule against a row. Comparison ignores case and
// surrounding whitespace.
func (r *ClassificationRule) Matches(row *ImportedRow) bool {
	var field string
	switch r.MatchField {
	case MatchFieldReference:
		field = row.Reference
	default:
		field = row.Description
	}
	field = strings.ToLower(strings.TrimSpace(field))
	want := strings.ToLower(strings.TrimSpace(r.MatchValue))
	if want == "" {
		return false
	}
	switch r.MatchType {
	case MatchStartsWith:
		return strings.HasPrefix(field, want)
	case MatchExact:
		return field == want
	default:
		return strings.Contains(field, want)
	}
}

// Classifier evaluates rules in priority order. Lower priority numbers run
// first; equal priorities run in creation order.
type Classifier struct {
	rules []ClassificationRule
}

func NewClassifier(rules []ClassificationRule) *Classifier {
	active := make([]ClassificationRule, 0, len(rules))
	for _, r := range rules {
		if r.IsActive {
			active = append(active, r)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		a, b := active[i], active[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return &Classifier{rules: active}
}

// Classify returns the first matching rule, or nil.
func (c *Classifier) Classify(row *ImportedRow) *ClassificationRule {
	for i := range c.rules {
		if c.rules[i].Matches(row) {
			return &c.rules[i]
		}
	}
	return nil
}

// Apply classifies row and fills its category and, when the row has none,
// its property. It reports whether a rule matched.
func (c *Classifier) Apply(row *ImportedRow) bool {
	rule := c.Classify(row)
	if rule == nil {
		return false
	}
	row.CategoryID = rule.CategoryID
	row.RuleID = rule.ID
	if row.PropertyID == "" {
		row.PropertyID = rule.PropertyID
	}
	return true
}
