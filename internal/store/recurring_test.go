package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonvc/propledger/internal/ledger"
)

func createTemplate(t *testing.T, s *Store, c testChart, start, end ledger.Date) *ledger.RecurringTemplate {
	t.Helper()
	tmpl, err := s.CreateTemplate(context.Background(), &ledger.RecurringTemplate{
		Name: "Landscaping", Frequency: ledger.FrequencyMonthly, Amount: 25000,
		DebitAccountID: c.repairs, CreditAccountID: c.bank,
		StartDate: start, EndDate: end,
	})
	require.NoError(t, err)
	return tmpl
}

func TestRunTemplate_AdvancesSchedule(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := setupChart(t, s)

	tmpl := createTemplate(t, s, c, ledger.NewDate(2025, 5, 31), ledger.Date{})
	assert.True(t, tmpl.IsActive)
	assert.True(t, tmpl.IsDue)
	assert.True(t, tmpl.IsOverdue)
	assert.Equal(t, tmpl.StartDate, tmpl.NextRunDate)

	e, err := s.RunTemplate(ctx, tmpl.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPosted, e.Status)
	assert.Equal(t, ledger.SourceRecurring, e.SourceType)
	assert.Equal(t, ledger.NewDate(2025, 5, 31), e.EntryDate)

	got, err := s.GetTemplate(ctx, tmpl.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.NewDate(2025, 5, 31), got.LastRunDate)
	assert.Equal(t, ledger.NewDate(2025, 6, 30), got.NextRunDate)
	assert.False(t, got.IsDue)
	assert.True(t, got.IsActive)

	_, err = s.RunTemplate(ctx, tmpl.ID)
	assert.ErrorIs(t, err, ledger.ErrPrecondition)
}

func TestRunTemplate_DeactivatesAfterEndDate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := setupChart(t, s)

	tmpl := createTemplate(t, s, c, ledger.NewDate(2025, 6, 1), ledger.NewDate(2025, 6, 10))
	_, err := s.RunTemplate(ctx, tmpl.ID)
	require.NoError(t, err)

	got, err := s.GetTemplate(ctx, tmpl.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Equal(t, ledger.NewDate(2025, 7, 1), got.NextRunDate)

	_, err = s.RunTemplate(ctx, tmpl.ID)
	assert.ErrorIs(t, err, ledger.ErrPrecondition)
}

func TestToggleTemplate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := setupChart(t, s)

	tmpl := createTemplate(t, s, c, today, ledger.Date{})
	off, err := s.ToggleTemplate(ctx, tmpl.ID)
	require.NoError(t, err)
	assert.False(t, off.IsActive)

	_, err = s.RunTemplate(ctx, tmpl.ID)
	assert.ErrorIs(t, err, ledger.ErrPrecondition)

	on, err := s.ToggleTemplate(ctx, tmpl.ID)
	require.NoError(t, err)
	assert.True(t, on.IsActive)
}

func TestRunAllDue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := setupChart(t, s)

	createTemplate(t, s, c, ledger.NewDate(2025, 6, 1), ledger.Date{})
	createTemplate(t, s, c, today, ledger.Date{})
	future := createTemplate(t, s, c, ledger.NewDate(2025, 7, 1), ledger.Date{})
	assert.False(t, future.IsDue)

	summary, err := s.RunAllDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Created)
	assert.Zero(t, summary.Failed)

	again, err := s.RunAllDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, again.Created)

	entries, err := s.ListEntries(ctx, ledger.EntryFilter{SourceType: ledger.SourceRecurring})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestCreateTemplate_Validation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := setupChart(t, s)

	_, err := s.CreateTemplate(ctx, &ledger.RecurringTemplate{
		Name: "Header", Frequency: ledger.FrequencyWeekly, Amount: 100,
		DebitAccountID: c.assets, CreditAccountID: c.bank, StartDate: today,
	})
	assert.ErrorIs(t, err, ledger.ErrValidation)

	tmpl := createTemplate(t, s, c, today, ledger.Date{})
	amount := int64(-5)
	_, err = s.UpdateTemplate(ctx, tmpl.ID, ledger.TemplatePatch{Amount: &amount})
	assert.ErrorIs(t, err, ledger.ErrValidation)

	require.NoError(t, s.DeleteTemplate(ctx, tmpl.ID))
	assert.ErrorIs(t, s.DeleteTemplate(ctx, tmpl.ID), ledger.ErrNotFound)
}
