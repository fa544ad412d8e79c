package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonvc/propledger/internal/ledger"
	"github.com/simonvc/propledger/internal/store"
)

type testAPI struct {
	t   *testing.T
	srv *httptest.Server
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(New(st, "", log).Handler())
	t.Cleanup(srv.Close)
	return &testAPI{t: t, srv: srv}
}

// do sends body as JSON and decodes the response into out when out is not
// nil. It returns the status code.
func (a *testAPI) do(method, path string, body, out any) int {
	a.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(a.t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, a.srv.URL+"/api/v1"+path, rd)
	require.NoError(a.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return a.send(req, out)
}

func (a *testAPI) send(req *http.Request, out any) int {
	a.t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode != http.StatusNoContent {
		require.NoError(a.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (a *testAPI) account(code, name string, typ ledger.AccountType) string {
	a.t.Helper()
	var acct ledger.Account
	status := a.do(http.MethodPost, "/accounts", map[string]any{"code": code, "name": name, "account_type": typ}, &acct)
	require.Equal(a.t, http.StatusCreated, status)
	return acct.ID
}

// upload posts content as a statement for accountID.
func (a *testAPI) upload(accountID, fileName, content string) ledger.ImportBatch {
	a.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(a.t, mw.WriteField("account_id", accountID))
	fw, err := mw.CreateFormFile("file", fileName)
	require.NoError(a.t, err)
	io.WriteString(fw, content)
	require.NoError(a.t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, a.srv.URL+"/api/v1/imports", &buf)
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	var batch ledger.ImportBatch
	require.Equal(a.t, http.StatusCreated, a.send(req, &batch))
	return batch
}

func TestAccountsAPI(t *testing.T) {
	api := newTestAPI(t)
	bank := api.account("1010", "Operating Bank", ledger.AccountTypeAsset)

	var e errorResponse
	status := api.do(http.MethodPost, "/accounts", map[string]any{"code": "1010", "name": "Again", "account_type": "asset"}, &e)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, ledger.KindConflict, e.Kind)

	status = api.do(http.MethodGet, "/accounts/missing", nil, &e)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, ledger.KindNotFound, e.Kind)

	var acct ledger.Account
	status = api.do(http.MethodPost, "/accounts/"+bank+"/deactivate", nil, &acct)
	require.Equal(t, http.StatusOK, status)
	assert.False(t, acct.IsActive)

	var list []ledger.Account
	api.do(http.MethodGet, "/accounts", nil, &list)
	assert.Empty(t, list)
	api.do(http.MethodGet, "/accounts?include_inactive=true", nil, &list)
	assert.Len(t, list, 1)

	name := "Main Bank"
	status = api.do(http.MethodPatch, "/accounts/"+bank, ledger.AccountPatch{Name: &name}, &acct)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Main Bank", acct.Name)

	assert.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, "/accounts/"+bank, nil, nil))
}

func TestChartSeedAPI(t *testing.T) {
	api := newTestAPI(t)

	var res map[string]int
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/chart/seed", nil, &res))
	assert.Equal(t, len(ledger.DefaultChart), res["created"])

	var roots []ledger.Account
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/accounts/tree", nil, &roots))
	assert.NotEmpty(t, roots)
	assert.NotEmpty(t, roots[0].Children)
}

func TestJournalAPI(t *testing.T) {
	api := newTestAPI(t)
	bank := api.account("1010", "Bank", ledger.AccountTypeAsset)
	rent := api.account("4010", "Rent", ledger.AccountTypeRevenue)

	var draft ledger.JournalEntry
	status := api.do(http.MethodPost, "/journal-entries", map[string]any{
		"memo":       "Short",
		"entry_date": "2025-03-01",
		"lines": []map[string]any{
			{"account_id": bank, "debit_amount": 10000},
			{"account_id": rent, "credit_amount": 9999},
		},
	}, &draft)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, ledger.StatusDraft, draft.Status)

	var e errorResponse
	status = api.do(http.MethodPost, "/journal-entries/"+draft.ID+"/post", nil, &e)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, ledger.KindValidation, e.Kind)

	var income ledger.JournalEntry
	status = api.do(http.MethodPost, "/journal-entries/income", map[string]any{
		"amount": 120000, "from_account_id": rent, "to_account_id": bank, "date": "2025-03-02", "description": "March rent",
	}, &income)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, ledger.StatusPosted, income.Status)

	var reversed ledger.JournalEntry
	status = api.do(http.MethodPost, "/journal-entries/"+income.ID+"/reverse", nil, &reversed)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, ledger.StatusReversed, reversed.Status)

	status = api.do(http.MethodPost, "/journal-entries/"+income.ID+"/reverse", map[string]any{"date": "2025-03-05"}, &e)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, ledger.KindInvalidState, e.Kind)

	var entries []ledger.JournalEntry
	api.do(http.MethodGet, "/journal-entries?status=posted&account_id="+bank, nil, &entries)
	assert.Len(t, entries, 1, "the contra-entry")

	var tb ledger.TrialBalance
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/reports/trial-balance", nil, &tb))
	assert.True(t, tb.Balanced)
	assert.Empty(t, tb.Lines)
}

func TestImportAndReconcileAPI(t *testing.T) {
	api := newTestAPI(t)
	bank := api.account("1010", "Bank", ledger.AccountTypeAsset)
	rent := api.account("4010", "Rent", ledger.AccountTypeRevenue)

	batch := api.upload(bank, "march.csv", "Date,Description,Amount\n2025-03-01,Rent Unit 1,5000.00\n2025-03-02,Rent Unit 2,4950.00\n")
	assert.Equal(t, "Amount", batch.SuggestedMapping.AmountColumn)

	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/imports/"+batch.ID+"/mapping", batch.SuggestedMapping, &batch))
	require.Len(t, batch.Rows, 2)

	var approved ledger.BulkApproveResult
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/import-rows/bulk-approve", map[string]any{
		"row_ids": []string{batch.Rows[0].ID}, "default_category_id": rent,
	}, &approved))
	assert.Equal(t, 1, approved.Approved)

	var booked ledger.BookResult
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/imports/"+batch.ID+"/book", nil, &booked))
	assert.Equal(t, 1, booked.Booked)

	var rec ledger.Reconciliation
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/reconciliations", map[string]any{
		"account_id": bank, "start_date": "2025-03-01", "end_date": "2025-03-31", "statement_ending_balance": 995000,
	}, &rec))
	require.Len(t, rec.UnmatchedBook, 1)

	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/reconciliations/"+rec.ID+"/matches", map[string]any{
		"imported_transaction_id": batch.Rows[0].ID, "journal_entry_line_id": rec.UnmatchedBook[0].LineID,
	}, &rec))
	assert.Equal(t, int64(500000), rec.BookBalance)
	assert.False(t, rec.IsBalanced)

	var e errorResponse
	assert.Equal(t, http.StatusPreconditionFailed, api.do(http.MethodPost, "/reconciliations/"+rec.ID+"/complete", nil, &e))
	assert.Equal(t, ledger.KindPrecondition, e.Kind)

	assert.Equal(t, http.StatusConflict, api.do(http.MethodPost, "/reconciliations/"+rec.ID+"/exclusions", map[string]any{
		"imported_transaction_id": batch.Rows[0].ID,
	}, &e))
}

func TestRecurringAPI(t *testing.T) {
	api := newTestAPI(t)
	bank := api.account("1010", "Bank", ledger.AccountTypeAsset)
	insurance := api.account("5030", "Insurance", ledger.AccountTypeExpense)

	var e errorResponse
	status := api.do(http.MethodPost, "/recurring", map[string]any{
		"name": "Bad", "frequency": "monthly", "amount": 9500,
		"debit_account_id": bank, "credit_account_id": bank, "start_date": "2025-01-01",
	}, &e)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, ledger.KindValidation, e.Kind)

	var tmpl ledger.RecurringTemplate
	status = api.do(http.MethodPost, "/recurring", map[string]any{
		"name": "Insurance", "frequency": "monthly", "amount": 9500,
		"debit_account_id": insurance, "credit_account_id": bank, "start_date": "2025-01-31",
	}, &tmpl)
	require.Equal(t, http.StatusCreated, status)
	assert.True(t, tmpl.IsActive)
	assert.True(t, tmpl.IsDue)
	assert.Equal(t, ledger.NewDate(2025, 1, 31), tmpl.NextRunDate)

	var entry ledger.JournalEntry
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/recurring/"+tmpl.ID+"/run", nil, &entry))
	assert.Equal(t, ledger.StatusPosted, entry.Status)
	assert.Equal(t, ledger.SourceRecurring, entry.SourceType)
	assert.Equal(t, ledger.NewDate(2025, 1, 31), entry.EntryDate)

	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/recurring/"+tmpl.ID, nil, &tmpl))
	assert.Equal(t, ledger.NewDate(2025, 1, 31), tmpl.LastRunDate)
	assert.Equal(t, ledger.NewDate(2025, 2, 28), tmpl.NextRunDate)

	var summary ledger.RunSummary
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/recurring/run-due", nil, &summary))
	assert.Equal(t, 1, summary.Created)
	assert.Zero(t, summary.Failed)

	amount := int64(10000)
	require.Equal(t, http.StatusOK, api.do(http.MethodPatch, "/recurring/"+tmpl.ID, ledger.TemplatePatch{Amount: &amount}, &tmpl))
	assert.Equal(t, int64(10000), tmpl.Amount)

	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/recurring/"+tmpl.ID+"/toggle", nil, &tmpl))
	assert.False(t, tmpl.IsActive)
	assert.Equal(t, http.StatusPreconditionFailed, api.do(http.MethodPost, "/recurring/"+tmpl.ID+"/run", nil, &e))
	assert.Equal(t, ledger.KindPrecondition, e.Kind)

	var list []ledger.RecurringTemplate
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/recurring", nil, &list))
	assert.Len(t, list, 1)

	var entries []ledger.JournalEntry
	api.do(http.MethodGet, "/journal-entries?source_type=recurring", nil, &entries)
	assert.Len(t, entries, 2)

	assert.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, "/recurring/"+tmpl.ID, nil, nil))
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/recurring/"+tmpl.ID, nil, &e))
}

func TestRulesAPI(t *testing.T) {
	api := newTestAPI(t)
	bank := api.account("1010", "Bank", ledger.AccountTypeAsset)
	utilities := api.account("5020", "Utilities", ledger.AccountTypeExpense)

	var e errorResponse
	status := api.do(http.MethodPost, "/rules", map[string]any{
		"name": "Bad", "match_type": "regex", "match_value": "water", "category_id": utilities,
	}, &e)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, ledger.KindValidation, e.Kind)

	var rule ledger.ClassificationRule
	status = api.do(http.MethodPost, "/rules", map[string]any{
		"name": "Water", "match_type": "contains", "match_value": "water", "category_id": utilities, "priority": 1,
	}, &rule)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, ledger.MatchFieldDescription, rule.MatchField)
	assert.True(t, rule.IsActive)

	var cls classifyResponse
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/rules/classify", map[string]any{"description": "City Water"}, &cls))
	require.NotNil(t, cls.Rule)
	assert.Equal(t, rule.ID, cls.Rule.ID)

	batch := api.upload(bank, "april.csv", "Date,Description,Amount\n2025-04-02,CITY WATER DEPT,-45.00\n2025-04-03,Hardware,-12.00\n")
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/imports/"+batch.ID+"/mapping", batch.SuggestedMapping, &batch))
	require.Len(t, batch.Rows, 2)
	assert.Equal(t, utilities, batch.Rows[0].CategoryID)
	assert.Equal(t, rule.ID, batch.Rows[0].RuleID)
	assert.Empty(t, batch.Rows[1].CategoryID)

	off := false
	require.Equal(t, http.StatusOK, api.do(http.MethodPatch, "/rules/"+rule.ID, ledger.RulePatch{IsActive: &off}, &rule))
	assert.False(t, rule.IsActive)
	cls = classifyResponse{}
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/rules/classify", map[string]any{"description": "City Water"}, &cls))
	assert.Nil(t, cls.Rule)

	var rules []ledger.ClassificationRule
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/rules", nil, &rules))
	assert.Len(t, rules, 1)

	assert.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, "/rules/"+rule.ID, nil, nil))
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/rules/"+rule.ID, nil, &e))
}

func TestDeleteReferencedAccountAPI(t *testing.T) {
	api := newTestAPI(t)
	escrow := api.account("1030", "Escrow", ledger.AccountTypeAsset)

	var rec ledger.Reconciliation
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/reconciliations", map[string]any{
		"account_id": escrow, "start_date": "2025-03-01", "end_date": "2025-03-31", "statement_ending_balance": 0,
	}, &rec))

	var e errorResponse
	assert.Equal(t, http.StatusConflict, api.do(http.MethodDelete, "/accounts/"+escrow, nil, &e))
	assert.Equal(t, ledger.KindConflict, e.Kind)
}

func TestBadRequests(t *testing.T) {
	api := newTestAPI(t)

	req, err := http.NewRequest(http.MethodPost, api.srv.URL+"/api/v1/accounts", bytes.NewBufferString("{"))
	require.NoError(t, err)
	var e errorResponse
	assert.Equal(t, http.StatusBadRequest, api.send(req, &e))
	assert.Equal(t, ledger.KindValidation, e.Kind)

	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/reports/profit-and-loss?date_from=03/01/2025", nil, &e))
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/reports/cash-flow?date_from=2025-03-02&date_to=2025-03-01", nil, &e))

	var m ledger.ColumnMapping
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/imports/detect-mapping", map[string]any{"headers": []string{"Posted Date", "Memo", "Debit"}}, &m))
	assert.Equal(t, ledger.ColumnMapping{DateColumn: "Posted Date", DescriptionColumn: "Memo", AmountColumn: "Debit"}, m)
}
