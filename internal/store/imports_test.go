package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonvc/propledger/internal/ledger"
)

const statementCSV = `Date,Description,Amount,Reference
2025-06-01,Rent deposit Unit 4,1500.00,DEP-1
06/03/2025,City Water,-45.00,
2025-06-04,Hardware store,"-1,120.50",CHK-1001
`

var statementMapping = ledger.ColumnMapping{
	DateColumn: "Date", DescriptionColumn: "Description", AmountColumn: "Amount", ReferenceColumn: "Reference",
}

func mappedBatch(t *testing.T, s *Store, accountID, content string) *ledger.ImportBatch {
	t.Helper()
	ctx := context.Background()
	b, err := s.CreateBatch(ctx, accountID, "june.csv", []byte(content))
	require.NoError(t, err)
	b, err = s.ConfirmMapping(ctx, b.ID, statementMapping)
	require.NoError(t, err)
	return b
}

func TestCreateBatch_SuggestsMapping(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := setupChart(t, s)

	b, err := s.CreateBatch(ctx, c.bank, "june.csv", []byte(statementCSV))
	require.NoError(t, err)
	assert.Equal(t, ledger.BatchUploaded, b.Status)
	assert.Equal(t, []string{"Date", "Description", "Amount", "Reference"}, b.Headers)
	assert.Equal(t, statementMapping, b.SuggestedMapping)
	assert.Empty(t, b.Rows)

	_, err = s.CreateBatch(ctx, c.rent, "june.csv", []byte(statementCSV))
	assert.ErrorIs(t, err, ledger.ErrValidation, "not an asset account")

	_, err = s.CreateBatch(ctx, c.bank, "empty.csv", nil)
	assert.ErrorIs(t, err, ledger.ErrValidation)

	batches, err := s.ListBatches(ctx)
	require.NoError(t, err)
	assert.Len(t, batches, 1)
}

func TestConfirmMapping_ParsesAndClassifies(t *testing.T) {
	s := newTestStore(t)
	c := setupChart(t, s)
	rule := createRule(t, s, "water", c.utilities, 1)

	b := mappedBatch(t, s, c.bank, statementCSV)
	assert.Equal(t, ledger.BatchMapped, b.Status)
	require.Len(t, b.Rows, 3)

	assert.Equal(t, 1, b.Rows[0].RowNo)
	assert.Equal(t, ledger.NewDate(2025, 6, 1), b.Rows[0].Date)
	assert.Equal(t, int64(150000), b.Rows[0].Amount)
	assert.Equal(t, "DEP-1", b.Rows[0].Reference)
	assert.Empty(t, b.Rows[0].CategoryID)

	assert.Equal(t, ledger.NewDate(2025, 6, 3), b.Rows[1].Date)
	assert.Equal(t, int64(-4500), b.Rows[1].Amount)
	assert.Equal(t, c.utilities, b.Rows[1].CategoryID)
	assert.Equal(t, rule.ID, b.Rows[1].RuleID)

	assert.Equal(t, int64(-112050), b.Rows[2].Amount)
	for _, r := range b.Rows {
		assert.Equal(t, ledger.RowPending, r.Status)
		assert.False(t, r.IsDuplicate)
	}
}

func TestConfirmMapping_AllOrNothing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := setupChart(t, s)

	b, err := s.CreateBatch(ctx, c.bank, "bad.csv", []byte("Date,Description,Amount\n2025-06-01,Rent,100.00\n2025-06-02,Typo,abc\n"))
	require.NoError(t, err)

	_, err = s.ConfirmMapping(ctx, b.ID, ledger.ColumnMapping{DateColumn: "Date", DescriptionColumn: "Description", AmountColumn: "Amount"})
	require.ErrorIs(t, err, ledger.ErrValidation)
	assert.Contains(t, err.Error(), "line 3")

	got, err := s.GetBatch(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.BatchUploaded, got.Status)
	assert.Empty(t, got.Rows)

	_, err = s.ConfirmMapping(ctx, b.ID, ledger.ColumnMapping{DateColumn: "Posted", DescriptionColumn: "Description", AmountColumn: "Amount"})
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestImportReviewAndBook(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := setupChart(t, s)
	createRule(t, s, "water", c.utilities, 1)

	b := mappedBatch(t, s, c.bank, statementCSV)
	rent, water, hardware := b.Rows[0], b.Rows[1], b.Rows[2]

	approved := ledger.RowApproved
	row, err := s.UpdateRow(ctx, rent.ID, ledger.RowPatch{CategoryID: &c.rent, Status: &approved})
	require.NoError(t, err)
	assert.Equal(t, ledger.RowApproved, row.Status)

	res, err := s.BulkApprove(ctx, []string{water.ID, hardware.ID, "missing"}, c.repairs)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Approved)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "missing", res.Failed[0].RowID)

	row, err = s.GetRow(ctx, water.ID)
	require.NoError(t, err)
	assert.Equal(t, c.utilities, row.CategoryID, "classified rows keep their category")
	row, err = s.GetRow(ctx, hardware.ID)
	require.NoError(t, err)
	assert.Equal(t, c.repairs, row.CategoryID)

	booked, err := s.Book(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, booked.Booked)
	assert.Empty(t, booked.Failed)
	assert.Len(t, booked.EntryIDs, 3)

	b, err = s.GetBatch(ctx, b.ID)
	require.NoError(t, err)
	for _, r := range b.Rows {
		assert.Equal(t, ledger.RowBooked, r.Status)
		require.NotEmpty(t, r.JournalEntryID)
		e, err := s.GetEntry(ctx, r.JournalEntryID)
		require.NoError(t, err)
		assert.Equal(t, ledger.SourceImport, e.SourceType)
		assert.Equal(t, ledger.StatusPosted, e.Status)
	}

	bank, err := s.LedgerFor(ctx, c.bank, ledger.LedgerFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(150000-4500-112050), bank.EndingBalance)
	assert.Equal(t, bank.EndingBalance, bank.NormalBalance)
	income, err := s.LedgerFor(ctx, c.rent, ledger.LedgerFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(-150000), income.EndingBalance)
	assert.Equal(t, int64(150000), income.NormalBalance)

	desc := "edited"
	_, err = s.UpdateRow(ctx, rent.ID, ledger.RowPatch{Description: &desc})
	assert.ErrorIs(t, err, ledger.ErrInvalidState)
	_, err = s.ConfirmMapping(ctx, b.ID, statementMapping)
	assert.ErrorIs(t, err, ledger.ErrInvalidState)

	again, err := s.Book(ctx, b.ID)
	require.NoError(t, err)
	assert.Zero(t, again.Booked)
}

func TestBook_ReportsRowFailures(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := setupChart(t, s)

	b := mappedBatch(t, s, c.bank, statementCSV)
	_, err := s.BulkApprove(ctx, []string{b.Rows[0].ID, b.Rows[1].ID}, c.rent)
	require.NoError(t, err)

	_, err = s.SetAccountActive(ctx, c.rent, false)
	require.NoError(t, err)
	res, err := s.Book(ctx, b.ID)
	require.NoError(t, err)
	assert.Zero(t, res.Booked)
	require.Len(t, res.Failed, 2)
	assert.Equal(t, 1, res.Failed[0].RowNo)

	row, err := s.GetRow(ctx, b.Rows[0].ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.RowApproved, row.Status)
}

func TestConfirmMapping_FlagsDuplicates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := setupChart(t, s)

	first := mappedBatch(t, s, c.bank, statementCSV)
	_, err := s.BulkApprove(ctx, []string{first.Rows[0].ID}, c.rent)
	require.NoError(t, err)
	_, err = s.Book(ctx, first.ID)
	require.NoError(t, err)

	second := mappedBatch(t, s, c.bank, "Date,Description,Amount,Reference\n2025-06-01,RENT DEPOSIT  unit 4,1500.00,\n2025-06-05,New,10.00,\n")
	require.Len(t, second.Rows, 2)
	assert.True(t, second.Rows[0].IsDuplicate)
	assert.False(t, second.Rows[1].IsDuplicate)
}

func TestUpdateRow_StatusRules(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := setupChart(t, s)

	b := mappedBatch(t, s, c.bank, statementCSV)
	skipped := ledger.RowSkipped
	row, err := s.UpdateRow(ctx, b.Rows[0].ID, ledger.RowPatch{Status: &skipped})
	require.NoError(t, err)
	assert.Equal(t, ledger.RowSkipped, row.Status)

	booked := ledger.RowBooked
	_, err = s.UpdateRow(ctx, b.Rows[1].ID, ledger.RowPatch{Status: &booked})
	assert.ErrorIs(t, err, ledger.ErrInvalidState)

	_, err = s.UpdateRow(ctx, "missing", ledger.RowPatch{Status: &skipped})
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestImportRows_RejectUnusableCategory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := setupChart(t, s)

	b := mappedBatch(t, s, c.bank, statementCSV)
	ghost := "ghost"
	_, err := s.UpdateRow(ctx, b.Rows[0].ID, ledger.RowPatch{CategoryID: &ghost})
	assert.ErrorIs(t, err, ledger.ErrValidation)
	_, err = s.UpdateRow(ctx, b.Rows[0].ID, ledger.RowPatch{CategoryID: &c.assets})
	assert.ErrorIs(t, err, ledger.ErrValidation, "header account")

	_, err = s.BulkApprove(ctx, []string{b.Rows[0].ID}, ghost)
	assert.ErrorIs(t, err, ledger.ErrValidation)

	row, err := s.GetRow(ctx, b.Rows[0].ID)
	require.NoError(t, err)
	assert.Empty(t, row.CategoryID)
	assert.Equal(t, ledger.RowPending, row.Status)

	cleared := ""
	row, err = s.UpdateRow(ctx, b.Rows[0].ID, ledger.RowPatch{CategoryID: &cleared})
	require.NoError(t, err)
	assert.Empty(t, row.CategoryID)
}
