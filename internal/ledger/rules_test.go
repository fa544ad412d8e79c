package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rule(id string, field MatchField, typ MatchType, value, category string, priority int) ClassificationRule {
	return ClassificationRule{ID: id, MatchField: field, MatchType: typ, MatchValue: value, CategoryID: category, Priority: priority, IsActive: true}
}

func TestClassifier_Contains(t *testing.T) {
	c := NewClassifier([]ClassificationRule{rule("r1", MatchFieldDescription, MatchContains, "Rent", "rental-income", 10)})

	rent := ImportedRow{Description: "Monthly Rent Payment"}
	got := c.Classify(&rent)
	require.NotNil(t, got)
	assert.Equal(t, "rental-income", got.CategoryID)

	repair := ImportedRow{Description: "Plumbing Repair"}
	assert.Nil(t, c.Classify(&repair))
}

func TestClassifier_MatchTypes(t *testing.T) {
	tests := []struct {
		name  string
		rule  ClassificationRule
		row   ImportedRow
		match bool
	}{
		{"starts_with hit", rule("r", MatchFieldDescription, MatchStartsWith, "pg&e", "util", 1), ImportedRow{Description: "PG&E BILL 0423"}, true},
		{"starts_with miss", rule("r", MatchFieldDescription, MatchStartsWith, "bill", "util", 1), ImportedRow{Description: "PG&E BILL"}, false},
		{"exact ignores case", rule("r", MatchFieldDescription, MatchExact, "city water", "util", 1), ImportedRow{Description: " City Water "}, true},
		{"exact needs whole value", rule("r", MatchFieldDescription, MatchExact, "water", "util", 1), ImportedRow{Description: "City Water"}, false},
		{"reference field", rule("r", MatchFieldReference, MatchContains, "chk", "repairs", 1), ImportedRow{Description: "x", Reference: "CHK-1001"}, true},
		{"reference not description", rule("r", MatchFieldReference, MatchContains, "rent", "rent", 1), ImportedRow{Description: "rent"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.match, tt.rule.Matches(&tt.row))
		})
	}
}

func TestClassifier_PriorityAndTies(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	late := rule("late", MatchFieldDescription, MatchContains, "rent", "second", 5)
	late.CreatedAt = base.Add(time.Hour)
	early := rule("early", MatchFieldDescription, MatchContains, "rent", "first", 5)
	early.CreatedAt = base
	low := rule("low", MatchFieldDescription, MatchContains, "rent", "winner", 1)
	low.CreatedAt = base.Add(2 * time.Hour)
	inactive := rule("off", MatchFieldDescription, MatchContains, "rent", "never", 0)
	inactive.IsActive = false

	row := ImportedRow{Description: "rent"}
	c := NewClassifier([]ClassificationRule{late, early, low, inactive})
	assert.Equal(t, "winner", c.Classify(&row).CategoryID)

	c = NewClassifier([]ClassificationRule{late, early})
	assert.Equal(t, "first", c.Classify(&row).CategoryID)
}

func TestClassifier_Apply(t *testing.T) {
	r := rule("r1", MatchFieldDescription, MatchContains, "oak st", "rent", 1)
	r.PropertyID = "prop-oak"
	c := NewClassifier([]ClassificationRule{r})

	row := ImportedRow{Description: "Deposit 12 Oak St"}
	assert.True(t, c.Apply(&row))
	assert.Equal(t, "rent", row.CategoryID)
	assert.Equal(t, "r1", row.RuleID)
	assert.Equal(t, "prop-oak", row.PropertyID)

	linked := ImportedRow{Description: "Deposit 12 Oak St", PropertyID: "prop-other"}
	c.Apply(&linked)
	assert.Equal(t, "prop-other", linked.PropertyID)
}

func TestClassificationRule_Validate(t *testing.T) {
	r := rule("r", MatchFieldDescription, MatchContains, "x", "cat", 1)
	assert.NoError(t, r.Validate())

	bad := r
	bad.MatchType = "regex"
	assert.ErrorIs(t, bad.Validate(), ErrValidation)

	bad = r
	bad.MatchValue = "  "
	assert.ErrorIs(t, bad.Validate(), ErrValidation)
}
