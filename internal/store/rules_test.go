package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonvc/propledger/internal/ledger"
)

func createRule(t *testing.T, s *Store, value, category string, priority int) *ledger.ClassificationRule {
	t.Helper()
	r, err := s.CreateRule(context.Background(), &ledger.ClassificationRule{
		Name: value, MatchField: ledger.MatchFieldDescription, MatchType: ledger.MatchContains,
		MatchValue: value, CategoryID: category, Priority: priority, IsActive: true,
	})
	require.NoError(t, err)
	return r
}

func TestRules_PriorityOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := setupChart(t, s)

	createRule(t, s, "water", c.repairs, 20)
	utilities := createRule(t, s, "city water", c.utilities, 10)

	rules, err := s.ListRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, utilities.ID, rules[0].ID)

	hit, err := s.Classify(ctx, &ledger.ImportedRow{Description: "CITY WATER DEPT"})
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, c.utilities, hit.CategoryID)

	off := false
	_, err = s.UpdateRule(ctx, utilities.ID, ledger.RulePatch{IsActive: &off})
	require.NoError(t, err)
	hit, err = s.Classify(ctx, &ledger.ImportedRow{Description: "CITY WATER DEPT"})
	require.NoError(t, err)
	assert.Equal(t, c.repairs, hit.CategoryID)

	miss, err := s.Classify(ctx, &ledger.ImportedRow{Description: "Rent"})
	require.NoError(t, err)
	assert.Nil(t, miss)
}

func TestRules_Validation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := setupChart(t, s)

	_, err := s.CreateRule(ctx, &ledger.ClassificationRule{
		MatchField: ledger.MatchFieldDescription, MatchType: ledger.MatchContains, MatchValue: "x", CategoryID: c.assets,
	})
	assert.ErrorIs(t, err, ledger.ErrValidation, "header category")

	r := createRule(t, s, "rent", c.rent, 1)
	bad := ledger.MatchType("regex")
	_, err = s.UpdateRule(ctx, r.ID, ledger.RulePatch{MatchType: &bad})
	assert.ErrorIs(t, err, ledger.ErrValidation)

	require.NoError(t, s.DeleteRule(ctx, r.ID))
	_, err = s.GetRule(ctx, r.ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}
