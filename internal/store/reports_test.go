package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonvc/propledger/internal/ledger"
)

func reportBooks(t *testing.T, s *Store, c testChart) {
	t.Helper()
	ctx := context.Background()
	record := func(kind ledger.RecordKind, p ledger.RecordParams) {
		_, err := s.Record(ctx, kind, p)
		require.NoError(t, err)
	}
	record(ledger.RecordIncome, ledger.RecordParams{Amount: 100000, FromAccount: c.rent, ToAccount: c.bank, Date: ledger.NewDate(2025, 5, 1), PropertyID: "prop-elm"})
	record(ledger.RecordIncome, ledger.RecordParams{Amount: 150000, FromAccount: c.rent, ToAccount: c.bank, Date: ledger.NewDate(2025, 6, 1), PropertyID: "prop-oak"})
	record(ledger.RecordExpense, ledger.RecordParams{Amount: 8500, FromAccount: c.bank, ToAccount: c.repairs, Date: ledger.NewDate(2025, 6, 3), PropertyID: "prop-oak"})
	record(ledger.RecordExpense, ledger.RecordParams{Amount: 4000, FromAccount: c.bank, ToAccount: c.utilities, Date: ledger.NewDate(2025, 6, 5), PropertyID: "prop-elm"})
	record(ledger.RecordTransfer, ledger.RecordParams{Amount: 20000, FromAccount: c.bank, ToAccount: c.savings, Date: ledger.NewDate(2025, 6, 7)})
}

var june = ledger.ReportFilter{DateFrom: ledger.NewDate(2025, 6, 1), DateTo: ledger.NewDate(2025, 6, 30)}

func TestProfitAndLoss(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := setupChart(t, s)
	reportBooks(t, s, c)

	pl, err := s.ProfitAndLoss(ctx, june)
	require.NoError(t, err)
	assert.Equal(t, int64(150000), pl.TotalRevenue)
	assert.Equal(t, int64(12500), pl.TotalExpense)
	assert.Equal(t, int64(137500), pl.NetIncome)
	require.Len(t, pl.Expenses, 2)
	assert.Equal(t, c.repairs, pl.Expenses[0].AccountID)

	oak, err := s.ProfitAndLoss(ctx, ledger.ReportFilter{PropertyID: "prop-oak"})
	require.NoError(t, err)
	assert.Equal(t, int64(150000), oak.TotalRevenue)
	assert.Equal(t, int64(8500), oak.TotalExpense)
}

func TestBalanceSheet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := setupChart(t, s)
	reportBooks(t, s, c)

	bs, err := s.BalanceSheet(ctx, ledger.Date{}, "")
	require.NoError(t, err)
	assert.Equal(t, today, bs.AsOf)
	assert.Equal(t, int64(237500), bs.TotalAssets)
	assert.Zero(t, bs.TotalLiabilities)
	assert.Equal(t, int64(237500), bs.CurrentEarnings)
	assert.True(t, bs.Balanced)

	may, err := s.BalanceSheet(ctx, ledger.NewDate(2025, 5, 31), "")
	require.NoError(t, err)
	assert.Equal(t, int64(100000), may.TotalAssets)
}

func TestCashFlow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := setupChart(t, s)
	reportBooks(t, s, c)

	cf, err := s.CashFlow(ctx, june)
	require.NoError(t, err)
	assert.Equal(t, int64(170000), cf.TotalInflow)
	assert.Equal(t, int64(32500), cf.TotalOutflow)
	assert.Equal(t, int64(137500), cf.NetChange)

	bySource := map[ledger.SourceType]ledger.CashFlowLine{}
	for _, l := range cf.Lines {
		bySource[l.SourceType] = l
	}
	assert.Equal(t, int64(150000), bySource[ledger.SourceDeposit].Net)
	assert.Equal(t, int64(-12500), bySource[ledger.SourceExpense].Net)
	assert.Zero(t, bySource[ledger.SourceTransfer].Net)
}

func TestTaxSummaryAndOwnerStatements(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := setupChart(t, s)
	reportBooks(t, s, c)

	ts, err := s.TaxSummary(ctx, ledger.ReportFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(250000), ts.ByType[ledger.AccountTypeRevenue])
	assert.Equal(t, int64(12500), ts.ByType[ledger.AccountTypeExpense])
	assert.Equal(t, int64(237500), ts.TaxableIncome)

	owners, err := s.OwnerStatements(ctx, june.DateFrom, june.DateTo)
	require.NoError(t, err)
	require.Len(t, owners.Statements, 2)
	assert.Equal(t, ledger.OwnerStatement{PropertyID: "prop-elm", Expenses: 4000, Net: -4000}, owners.Statements[0])
	assert.Equal(t, ledger.OwnerStatement{PropertyID: "prop-oak", Income: 150000, Expenses: 8500, Net: 141500}, owners.Statements[1])
}

func TestGeneralLedger(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := setupChart(t, s)
	reportBooks(t, s, c)

	gl, err := s.GeneralLedger(ctx, june)
	require.NoError(t, err)
	require.Len(t, gl.Accounts, 5)
	bank := gl.Accounts[0]
	assert.Equal(t, c.bank, bank.Account.ID)
	assert.Len(t, bank.Lines, 4)
	assert.Equal(t, int64(150000-8500-4000-20000), bank.EndingBalance)
}
