package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonvc/propledger/internal/ledger"
)

func TestCreateAccount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, err := s.CreateAccount(ctx, &ledger.Account{Code: " 1010 ", Name: "Bank", Type: ledger.AccountTypeAsset})
	require.NoError(t, err)
	assert.Equal(t, "1010", a.Code)
	assert.Equal(t, ledger.NormalDebit, a.NormalBalance)
	assert.True(t, a.IsActive)

	_, err = s.CreateAccount(ctx, &ledger.Account{Code: "1010", Name: "Other", Type: ledger.AccountTypeAsset})
	assert.ErrorIs(t, err, ledger.ErrConflict)

	_, err = s.CreateAccount(ctx, &ledger.Account{Name: "Orphan", Type: ledger.AccountTypeAsset, ParentID: "missing"})
	assert.ErrorIs(t, err, ledger.ErrValidation)

	_, err = s.CreateAccount(ctx, &ledger.Account{Name: "Bad", Type: "income"})
	assert.ErrorIs(t, err, ledger.ErrValidation)

	rev, err := s.CreateAccount(ctx, &ledger.Account{Name: "Rent", Type: ledger.AccountTypeRevenue})
	require.NoError(t, err)
	assert.Equal(t, ledger.NormalCredit, rev.NormalBalance)
}

func TestUpdateAccount_RejectsCycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := setupChart(t, s)

	_, err := s.UpdateAccount(ctx, c.assets, ledger.AccountPatch{ParentID: &c.bank})
	assert.ErrorIs(t, err, ledger.ErrValidation)

	_, err = s.UpdateAccount(ctx, c.bank, ledger.AccountPatch{ParentID: &c.bank})
	assert.ErrorIs(t, err, ledger.ErrValidation)

	missing := "nope"
	_, err = s.UpdateAccount(ctx, c.bank, ledger.AccountPatch{ParentID: &missing})
	assert.ErrorIs(t, err, ledger.ErrValidation)

	root := ""
	moved, err := s.UpdateAccount(ctx, c.bank, ledger.AccountPatch{ParentID: &root})
	require.NoError(t, err)
	assert.Empty(t, moved.ParentID)

	code := "4010"
	_, err = s.UpdateAccount(ctx, c.bank, ledger.AccountPatch{Code: &code})
	assert.ErrorIs(t, err, ledger.ErrConflict)

	_, err = s.UpdateAccount(ctx, "nope", ledger.AccountPatch{Code: &code})
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestDeleteAccount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := setupChart(t, s)

	assert.ErrorIs(t, s.DeleteAccount(ctx, c.assets), ledger.ErrConflict, "has children")

	recordIncome(t, s, c, 10000, today)
	assert.ErrorIs(t, s.DeleteAccount(ctx, c.rent), ledger.ErrConflict, "has lines")

	require.NoError(t, s.DeleteAccount(ctx, c.payable))
	_, err := s.GetAccount(ctx, c.payable)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	assert.ErrorIs(t, s.DeleteAccount(ctx, c.payable), ledger.ErrNotFound)
}

func TestSetAccountActive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := setupChart(t, s)

	a, err := s.SetAccountActive(ctx, c.rent, false)
	require.NoError(t, err)
	assert.False(t, a.IsActive)

	active, err := s.ListAccounts(ctx, false)
	require.NoError(t, err)
	for _, a := range active {
		assert.NotEqual(t, c.rent, a.ID)
	}
	all, err := s.ListAccounts(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, len(active)+1)

	_, err = s.Record(ctx, ledger.RecordIncome, ledger.RecordParams{Amount: 100, FromAccount: c.rent, ToAccount: c.bank, Date: today})
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestAccountTree(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := setupChart(t, s)

	roots, err := s.AccountTree(ctx, true)
	require.NoError(t, err)
	require.NotEmpty(t, roots)
	assert.Equal(t, c.assets, roots[0].ID, "headers sort first")
	require.Len(t, roots[0].Children, 2)
	assert.Equal(t, c.bank, roots[0].Children[0].ID)
	assert.Equal(t, c.savings, roots[0].Children[1].ID)
}

func TestDeleteAccount_Referenced(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := setupChart(t, s)

	escrow, err := s.CreateAccount(ctx, &ledger.Account{Code: "1030", Name: "Escrow", Type: ledger.AccountTypeAsset})
	require.NoError(t, err)
	_, err = s.StartReconciliation(ctx, escrow.ID, ledger.NewDate(2025, 6, 1), ledger.NewDate(2025, 6, 30), 0)
	require.NoError(t, err)
	err = s.DeleteAccount(ctx, escrow.ID)
	assert.ErrorIs(t, err, ledger.ErrConflict)
	assert.Contains(t, err.Error(), "reconciliations")

	tmpl := createTemplate(t, s, c, today, ledger.Date{})
	err = s.DeleteAccount(ctx, c.repairs)
	assert.ErrorIs(t, err, ledger.ErrConflict)
	assert.Contains(t, err.Error(), "recurring templates")
	require.NoError(t, s.DeleteTemplate(ctx, tmpl.ID))
	require.NoError(t, s.DeleteAccount(ctx, c.repairs))

	createRule(t, s, "water", c.utilities, 1)
	err = s.DeleteAccount(ctx, c.utilities)
	assert.ErrorIs(t, err, ledger.ErrConflict)
	assert.Contains(t, err.Error(), "classification rules")

	b := mappedBatch(t, s, c.bank, statementCSV)
	_, err = s.UpdateRow(ctx, b.Rows[0].ID, ledger.RowPatch{CategoryID: &c.payable})
	require.NoError(t, err)
	err = s.DeleteAccount(ctx, c.payable)
	assert.ErrorIs(t, err, ledger.ErrConflict)
	assert.Contains(t, err.Error(), "imported rows")
}
