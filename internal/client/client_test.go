package client

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonvc/propledger/internal/ledger"
	"github.com/simonvc/propledger/internal/server"
	"github.com/simonvc/propledger/internal/store"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(server.New(st, "", log).Handler())
	t.Cleanup(srv.Close)
	return New(srv.URL)
}

func byCode(t *testing.T, accounts []ledger.Account) map[string]string {
	t.Helper()
	ids := make(map[string]string, len(accounts))
	for _, a := range accounts {
		ids[a.Code] = a.ID
	}
	return ids
}

func TestClient_ChartAndAccounts(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.Ping(ctx))

	n, err := c.SeedChart(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(ledger.DefaultChart), n)

	n, err = c.SeedChart(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	tree, err := c.AccountTree(ctx, false)
	require.NoError(t, err)
	require.NotEmpty(t, tree)
	assert.Equal(t, "1000", tree[0].Code)
	assert.NotEmpty(t, tree[0].Children)

	accounts, err := c.ListAccounts(ctx, false)
	require.NoError(t, err)
	ids := byCode(t, accounts)

	name := "Main Checking"
	acct, err := c.UpdateAccount(ctx, ids["1010"], ledger.AccountPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, acct.Name)

	acct, err = c.SetAccountActive(ctx, ids["4090"], false)
	require.NoError(t, err)
	assert.False(t, acct.IsActive)

	_, err = c.CreateAccount(ctx, &ledger.Account{Code: "1010", Name: "Dup", Type: ledger.AccountTypeAsset})
	assert.ErrorIs(t, err, ledger.ErrConflict)

	_, err = c.GetAccount(ctx, "missing")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestClient_JournalAndReports(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	_, err := c.SeedChart(ctx)
	require.NoError(t, err)
	accounts, err := c.ListAccounts(ctx, false)
	require.NoError(t, err)
	ids := byCode(t, accounts)

	june := ledger.NewDate(2025, 6, 1)
	rent, err := c.Record(ctx, ledger.RecordIncome, ledger.RecordParams{
		Amount: 150000, FromAccount: ids["4010"], ToAccount: ids["1010"], Date: june, Description: "June rent",
	})
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPosted, rent.Status)

	draft, err := c.CreateDraft(ctx, &ledger.JournalEntry{
		Memo:      "Boiler repair",
		EntryDate: june.AddDays(4),
		Lines:     ledger.TwoLine(ids["5010"], ids["1010"], 20000, "Boiler"),
	})
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusDraft, draft.Status)

	draft, err = c.UpdateDraftLines(ctx, draft.ID, ledger.TwoLine(ids["5010"], ids["1010"], 25000, "Boiler"))
	require.NoError(t, err)
	posted, err := c.PostEntry(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPosted, posted.Status)

	_, err = c.VoidEntry(ctx, posted.ID)
	assert.ErrorIs(t, err, ledger.ErrInvalidState)

	entries, err := c.ListEntries(ctx, ledger.EntryFilter{Status: ledger.StatusPosted})
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	period := ledger.ReportFilter{DateFrom: june, DateTo: ledger.NewDate(2025, 6, 30)}
	pl, err := c.ProfitAndLoss(ctx, period)
	require.NoError(t, err)
	assert.Equal(t, int64(150000), pl.TotalRevenue)
	assert.Equal(t, int64(25000), pl.TotalExpense)
	assert.Equal(t, int64(125000), pl.NetIncome)

	tb, err := c.TrialBalance(ctx, ledger.NewDate(2025, 6, 30))
	require.NoError(t, err)
	assert.True(t, tb.Balanced)

	bs, err := c.BalanceSheet(ctx, ledger.NewDate(2025, 6, 30), "")
	require.NoError(t, err)
	assert.True(t, bs.Balanced)

	l, err := c.AccountLedger(ctx, ids["1010"], period)
	require.NoError(t, err)
	assert.Equal(t, int64(125000), l.EndingBalance)

	reversed, err := c.ReverseEntry(ctx, rent.ID, june.AddDays(1))
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusReversed, reversed.Status)
	contra, err := c.GetEntry(ctx, reversed.ReversedBy)
	require.NoError(t, err)
	assert.Equal(t, rent.ID, contra.ReversalOf)

	pl, err = c.ProfitAndLoss(ctx, period)
	require.NoError(t, err)
	assert.Zero(t, pl.TotalRevenue)

	_, err = c.ProfitAndLoss(ctx, ledger.ReportFilter{DateFrom: june, DateTo: june.AddDays(-1)})
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestClient_ImportAndReconcile(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	_, err := c.SeedChart(ctx)
	require.NoError(t, err)
	accounts, err := c.ListAccounts(ctx, false)
	require.NoError(t, err)
	ids := byCode(t, accounts)

	_, err = c.CreateRule(ctx, &ledger.ClassificationRule{
		Name: "Rent", MatchField: ledger.MatchFieldDescription, MatchType: ledger.MatchContains,
		MatchValue: "rent", CategoryID: ids["4010"], Priority: 1, IsActive: true,
	})
	require.NoError(t, err)
	rules, err := c.ListRules(ctx)
	require.NoError(t, err)
	assert.Len(t, rules, 1)

	hit, err := c.Classify(ctx, "RENT unit 9", "")
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, rules[0].ID, hit.ID)
	miss, err := c.Classify(ctx, "Plumber", "")
	require.NoError(t, err)
	assert.Nil(t, miss)

	csv := "Date,Description,Amount\n2025-06-02,Rent Unit 4,1500.00\n2025-06-09,Water bill,-80.00\n"
	batch, err := c.UploadStatement(ctx, ids["1010"], "june.csv", []byte(csv))
	require.NoError(t, err)
	assert.Equal(t, []string{"Date", "Description", "Amount"}, batch.Headers)
	assert.Equal(t, "Amount", batch.SuggestedMapping.AmountColumn)

	batch, err = c.ConfirmMapping(ctx, batch.ID, batch.SuggestedMapping)
	require.NoError(t, err)
	require.Len(t, batch.Rows, 2)
	assert.Equal(t, ids["4010"], batch.Rows[0].CategoryID)

	rowIDs := []string{batch.Rows[0].ID, batch.Rows[1].ID}
	approved, err := c.BulkApprove(ctx, rowIDs, ids["5020"])
	require.NoError(t, err)
	assert.Equal(t, 2, approved.Approved)

	booked, err := c.Book(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, booked.Booked)

	rec, err := c.StartReconciliation(ctx, ids["1010"], ledger.NewDate(2025, 6, 1), ledger.NewDate(2025, 6, 30), 142000)
	require.NoError(t, err)
	require.Len(t, rec.UnmatchedBank, 2)
	require.Len(t, rec.UnmatchedBook, 2)

	_, err = c.CompleteReconciliation(ctx, rec.ID)
	assert.ErrorIs(t, err, ledger.ErrPrecondition)

	for _, b := range rec.UnmatchedBank {
		var line string
		for _, l := range rec.UnmatchedBook {
			if l.Amount == b.Amount {
				line = l.LineID
			}
		}
		require.NotEmpty(t, line)
		rec, err = c.AddMatch(ctx, rec.ID, b.RowID, line)
		require.NoError(t, err)
	}
	assert.True(t, rec.IsBalanced)

	rec, err = c.CompleteReconciliation(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.ReconCompleted, rec.Status)

	list, err := c.ListReconciliations(ctx, ids["1010"])
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestClient_ServerErrorWithoutKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL).ListAccounts(context.Background(), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server error (502)")
	assert.Equal(t, ledger.Kind(""), ledger.KindOf(err))
}
