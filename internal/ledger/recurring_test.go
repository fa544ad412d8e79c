package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func monthlyTemplate(next Date) RecurringTemplate {
	return RecurringTemplate{
		Name: "Insurance", Frequency: FrequencyMonthly, Amount: 9500,
		DebitAccountID: "insurance", CreditAccountID: "bank",
		StartDate: next, NextRunDate: next, IsActive: true,
	}
}

func TestRecurringTemplate_DueAndOverdue(t *testing.T) {
	today := NewDate(2025, 6, 15)

	tmpl := monthlyTemplate(today)
	assert.True(t, tmpl.Due(today))
	assert.False(t, tmpl.Overdue(today))

	tmpl = monthlyTemplate(today.AddDays(-1))
	assert.True(t, tmpl.Due(today))
	assert.True(t, tmpl.Overdue(today))

	tmpl = monthlyTemplate(today.AddDays(1))
	assert.False(t, tmpl.Due(today))
	assert.False(t, tmpl.Overdue(today))

	tmpl = monthlyTemplate(today.AddDays(-10))
	tmpl.EndDate = today.AddDays(-20)
	assert.False(t, tmpl.Due(today), "finished templates are never due")
}

func TestRecurringTemplate_Advance(t *testing.T) {
	tests := []struct {
		freq  Frequency
		start Date
		from  Date
		want  Date
	}{
		{FrequencyWeekly, NewDate(2025, 12, 1), NewDate(2025, 12, 29), NewDate(2026, 1, 5)},
		{FrequencyMonthly, NewDate(2025, 1, 31), NewDate(2025, 1, 31), NewDate(2025, 2, 28)},
		{FrequencyMonthly, NewDate(2025, 1, 31), NewDate(2025, 2, 28), NewDate(2025, 3, 31)},
		{FrequencyQuarterly, NewDate(2025, 5, 30), NewDate(2025, 11, 30), NewDate(2026, 2, 28)},
		{FrequencyAnnually, NewDate(2024, 2, 29), NewDate(2024, 2, 29), NewDate(2025, 2, 28)},
	}
	for _, tt := range tests {
		tmpl := RecurringTemplate{Frequency: tt.freq, StartDate: tt.start}
		assert.Equal(t, tt.want, tmpl.Advance(tt.from), "%s from %s", tt.freq, tt.from)
	}
}

func TestRecurringTemplate_Validate(t *testing.T) {
	tmpl := monthlyTemplate(NewDate(2025, 1, 1))
	tmpl.NextRunDate = Date{}
	require.NoError(t, tmpl.Validate())
	assert.Equal(t, tmpl.StartDate, tmpl.NextRunDate)

	same := monthlyTemplate(NewDate(2025, 1, 1))
	same.CreditAccountID = same.DebitAccountID
	assert.ErrorIs(t, same.Validate(), ErrValidation)

	zero := monthlyTemplate(NewDate(2025, 1, 1))
	zero.Amount = 0
	assert.ErrorIs(t, zero.Validate(), ErrValidation)

	backwards := monthlyTemplate(NewDate(2025, 1, 1))
	backwards.EndDate = NewDate(2024, 12, 31)
	assert.ErrorIs(t, backwards.Validate(), ErrValidation)
}

func TestRecurringTemplate_Entry(t *testing.T) {
	tmpl := monthlyTemplate(NewDate(2025, 2, 1))
	tmpl.PropertyID = "prop-1"
	e := tmpl.Entry()
	assert.Equal(t, SourceRecurring, e.SourceType)
	assert.Equal(t, NewDate(2025, 2, 1), e.EntryDate)
	assert.Equal(t, "prop-1", e.PropertyID)
	assert.True(t, e.IsBalanced())
}
