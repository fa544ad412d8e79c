package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/simonvc/propledger/internal/ledger"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func periodParams(f ledger.ReportFilter) url.Values {
	params := url.Values{}
	if !f.DateFrom.IsZero() {
		params.Set("date_from", f.DateFrom.String())
	}
	if !f.DateTo.IsZero() {
		params.Set("date_to", f.DateTo.String())
	}
	if f.PropertyID != "" {
		params.Set("property_id", f.PropertyID)
	}
	return params
}

func accountPath(id string) string { return "/api/v1/accounts/" + url.PathEscape(id) }
func entryPath(id string) string   { return "/api/v1/journal-entries/" + url.PathEscape(id) }

// Accounts

func (c *Client) CreateAccount(ctx context.Context, acct *ledger.Account) (*ledger.Account, error) {
	body := map[string]any{
		"code":           acct.Code,
		"name":           acct.Name,
		"account_type":   acct.Type,
		"normal_balance": acct.NormalBalance,
		"parent_id":      acct.ParentID,
		"is_header":      acct.IsHeader,
		"description":    acct.Description,
	}
	var result ledger.Account
	if err := c.post(ctx, "/api/v1/accounts", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) ListAccounts(ctx context.Context, includeInactive bool) ([]ledger.Account, error) {
	var result []ledger.Account
	if err := c.get(ctx, "/api/v1/accounts?include_inactive="+fmt.Sprint(includeInactive), &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) AccountTree(ctx context.Context, includeInactive bool) ([]ledger.Account, error) {
	var result []ledger.Account
	if err := c.get(ctx, "/api/v1/accounts/tree?include_inactive="+fmt.Sprint(includeInactive), &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) GetAccount(ctx context.Context, id string) (*ledger.Account, error) {
	var result ledger.Account
	if err := c.get(ctx, accountPath(id), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) UpdateAccount(ctx context.Context, id string, patch ledger.AccountPatch) (*ledger.Account, error) {
	var result ledger.Account
	if err := c.patch(ctx, accountPath(id), patch, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) SetAccountActive(ctx context.Context, id string, active bool) (*ledger.Account, error) {
	action := "/deactivate"
	if active {
		action = "/activate"
	}
	var result ledger.Account
	if err := c.post(ctx, accountPath(id)+action, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) DeleteAccount(ctx context.Context, id string) error {
	return c.del(ctx, accountPath(id))
}

func (c *Client) AccountLedger(ctx context.Context, id string, f ledger.ReportFilter) (*ledger.AccountLedger, error) {
	var result ledger.AccountLedger
	if err := c.get(ctx, accountPath(id)+"/ledger?"+periodParams(f).Encode(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) GetChart(ctx context.Context) ([]ledger.ChartEntry, error) {
	var result []ledger.ChartEntry
	if err := c.get(ctx, "/api/v1/chart", &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) SeedChart(ctx context.Context) (int, error) {
	var result struct {
		Created int `json:"created"`
	}
	if err := c.post(ctx, "/api/v1/chart/seed", nil, &result); err != nil {
		return 0, err
	}
	return result.Created, nil
}

// Journal

func (c *Client) ListEntries(ctx context.Context, f ledger.EntryFilter) ([]ledger.JournalEntry, error) {
	params := periodParams(ledger.ReportFilter{DateFrom: f.DateFrom, DateTo: f.DateTo, PropertyID: f.PropertyID})
	if f.Status != "" {
		params.Set("status", string(f.Status))
	}
	if f.SourceType != "" {
		params.Set("source_type", string(f.SourceType))
	}
	if f.AccountID != "" {
		params.Set("account_id", f.AccountID)
	}
	if f.Limit > 0 {
		params.Set("limit", fmt.Sprint(f.Limit))
	}
	var result []ledger.JournalEntry
	if err := c.get(ctx, "/api/v1/journal-entries?"+params.Encode(), &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) CreateDraft(ctx context.Context, e *ledger.JournalEntry) (*ledger.JournalEntry, error) {
	body := map[string]any{
		"memo":        e.Memo,
		"entry_date":  e.EntryDate,
		"source_type": e.SourceType,
		"property_id": e.PropertyID,
		"lines":       e.Lines,
	}
	var result ledger.JournalEntry
	if err := c.post(ctx, "/api/v1/journal-entries", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) GetEntry(ctx context.Context, id string) (*ledger.JournalEntry, error) {
	var result ledger.JournalEntry
	if err := c.get(ctx, entryPath(id), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) UpdateDraftLines(ctx context.Context, id string, lines []ledger.JournalLine) (*ledger.JournalEntry, error) {
	var result ledger.JournalEntry
	if err := c.put(ctx, entryPath(id)+"/lines", map[string]any{"lines": lines}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) PostEntry(ctx context.Context, id string) (*ledger.JournalEntry, error) {
	var result ledger.JournalEntry
	if err := c.post(ctx, entryPath(id)+"/post", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) ReverseEntry(ctx context.Context, id string, date ledger.Date) (*ledger.JournalEntry, error) {
	var result ledger.JournalEntry
	if err := c.post(ctx, entryPath(id)+"/reverse", map[string]any{"date": date}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) VoidEntry(ctx context.Context, id string) (*ledger.JournalEntry, error) {
	var result ledger.JournalEntry
	if err := c.post(ctx, entryPath(id)+"/void", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Record(ctx context.Context, kind ledger.RecordKind, p ledger.RecordParams) (*ledger.JournalEntry, error) {
	var result ledger.JournalEntry
	if err := c.post(ctx, "/api/v1/journal-entries/"+string(kind), p, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Recurring templates

func (c *Client) ListTemplates(ctx context.Context) ([]ledger.RecurringTemplate, error) {
	var result []ledger.RecurringTemplate
	if err := c.get(ctx, "/api/v1/recurring", &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) CreateTemplate(ctx context.Context, t *ledger.RecurringTemplate) (*ledger.RecurringTemplate, error) {
	body := map[string]any{
		"name":              t.Name,
		"description":       t.Description,
		"frequency":         t.Frequency,
		"amount":            t.Amount,
		"debit_account_id":  t.DebitAccountID,
		"credit_account_id": t.CreditAccountID,
		"property_id":       t.PropertyID,
		"start_date":        t.StartDate,
		"end_date":          t.EndDate,
	}
	var result ledger.RecurringTemplate
	if err := c.post(ctx, "/api/v1/recurring", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) GetTemplate(ctx context.Context, id string) (*ledger.RecurringTemplate, error) {
	var result ledger.RecurringTemplate
	if err := c.get(ctx, "/api/v1/recurring/"+url.PathEscape(id), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) UpdateTemplate(ctx context.Context, id string, patch ledger.TemplatePatch) (*ledger.RecurringTemplate, error) {
	var result ledger.RecurringTemplate
	if err := c.patch(ctx, "/api/v1/recurring/"+url.PathEscape(id), patch, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) DeleteTemplate(ctx context.Context, id string) error {
	return c.del(ctx, "/api/v1/recurring/"+url.PathEscape(id))
}

func (c *Client) ToggleTemplate(ctx context.Context, id string) (*ledger.RecurringTemplate, error) {
	var result ledger.RecurringTemplate
	if err := c.post(ctx, "/api/v1/recurring/"+url.PathEscape(id)+"/toggle", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) RunTemplate(ctx context.Context, id string) (*ledger.JournalEntry, error) {
	var result ledger.JournalEntry
	if err := c.post(ctx, "/api/v1/recurring/"+url.PathEscape(id)+"/run", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) RunAllDue(ctx context.Context) (*ledger.RunSummary, error) {
	var result ledger.RunSummary
	if err := c.post(ctx, "/api/v1/recurring/run-due", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Imports

func (c *Client) UploadStatement(ctx context.Context, accountID, fileName string, content []byte) (*ledger.ImportBatch, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("account_id", accountID); err != nil {
		return nil, fmt.Errorf("write form: %w", err)
	}
	fw, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return nil, fmt.Errorf("write form: %w", err)
	}
	if _, err := fw.Write(content); err != nil {
		return nil, fmt.Errorf("write form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("write form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/v1/imports", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	var result ledger.ImportBatch
	if err := c.doRequest(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) DetectMapping(ctx context.Context, headers []string) (*ledger.ColumnMapping, error) {
	var result ledger.ColumnMapping
	if err := c.post(ctx, "/api/v1/imports/detect-mapping", map[string]any{"headers": headers}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) ListBatches(ctx context.Context) ([]ledger.ImportBatch, error) {
	var result []ledger.ImportBatch
	if err := c.get(ctx, "/api/v1/imports", &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) GetBatch(ctx context.Context, id string) (*ledger.ImportBatch, error) {
	var result ledger.ImportBatch
	if err := c.get(ctx, "/api/v1/imports/"+url.PathEscape(id), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) ConfirmMapping(ctx context.Context, id string, m ledger.ColumnMapping) (*ledger.ImportBatch, error) {
	var result ledger.ImportBatch
	if err := c.post(ctx, "/api/v1/imports/"+url.PathEscape(id)+"/mapping", m, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) UpdateRow(ctx context.Context, id string, patch ledger.RowPatch) (*ledger.ImportedRow, error) {
	var result ledger.ImportedRow
	if err := c.patch(ctx, "/api/v1/import-rows/"+url.PathEscape(id), patch, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) BulkApprove(ctx context.Context, rowIDs []string, defaultCategory string) (*ledger.BulkApproveResult, error) {
	body := map[string]any{"row_ids": rowIDs, "default_category_id": defaultCategory}
	var result ledger.BulkApproveResult
	if err := c.post(ctx, "/api/v1/import-rows/bulk-approve", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Book(ctx context.Context, batchID string) (*ledger.BookResult, error) {
	var result ledger.BookResult
	if err := c.post(ctx, "/api/v1/imports/"+url.PathEscape(batchID)+"/book", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Rules

func (c *Client) ListRules(ctx context.Context) ([]ledger.ClassificationRule, error) {
	var result []ledger.ClassificationRule
	if err := c.get(ctx, "/api/v1/rules", &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) CreateRule(ctx context.Context, r *ledger.ClassificationRule) (*ledger.ClassificationRule, error) {
	body := map[string]any{
		"name":        r.Name,
		"match_field": r.MatchField,
		"match_type":  r.MatchType,
		"match_value": r.MatchValue,
		"category_id": r.CategoryID,
		"property_id": r.PropertyID,
		"priority":    r.Priority,
		"is_active":   r.IsActive,
	}
	var result ledger.ClassificationRule
	if err := c.post(ctx, "/api/v1/rules", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) GetRule(ctx context.Context, id string) (*ledger.ClassificationRule, error) {
	var result ledger.ClassificationRule
	if err := c.get(ctx, "/api/v1/rules/"+url.PathEscape(id), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) UpdateRule(ctx context.Context, id string, patch ledger.RulePatch) (*ledger.ClassificationRule, error) {
	var result ledger.ClassificationRule
	if err := c.patch(ctx, "/api/v1/rules/"+url.PathEscape(id), patch, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) DeleteRule(ctx context.Context, id string) error {
	return c.del(ctx, "/api/v1/rules/"+url.PathEscape(id))
}

// Classify returns the rule that would categorise a row with the given
// description and reference, or nil when none matches.
func (c *Client) Classify(ctx context.Context, description, reference string) (*ledger.ClassificationRule, error) {
	body := map[string]string{"description": description, "reference": reference}
	var result struct {
		Rule *ledger.ClassificationRule `json:"rule"`
	}
	if err := c.post(ctx, "/api/v1/rules/classify", body, &result); err != nil {
		return nil, err
	}
	return result.Rule, nil
}

// Reconciliation

func reconPath(id string) string { return "/api/v1/reconciliations/" + url.PathEscape(id) }

func (c *Client) ListReconciliations(ctx context.Context, accountID string) ([]ledger.Reconciliation, error) {
	params := url.Values{}
	if accountID != "" {
		params.Set("account_id", accountID)
	}
	var result []ledger.Reconciliation
	if err := c.get(ctx, "/api/v1/reconciliations?"+params.Encode(), &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) StartReconciliation(ctx context.Context, accountID string, start, end ledger.Date, statementEnding int64) (*ledger.Reconciliation, error) {
	body := map[string]any{
		"account_id":               accountID,
		"start_date":               start,
		"end_date":                 end,
		"statement_ending_balance": statementEnding,
	}
	var result ledger.Reconciliation
	if err := c.post(ctx, "/api/v1/reconciliations", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) GetReconciliation(ctx context.Context, id string) (*ledger.Reconciliation, error) {
	var result ledger.Reconciliation
	if err := c.get(ctx, reconPath(id), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) AddMatch(ctx context.Context, id, rowID, lineID string) (*ledger.Reconciliation, error) {
	body := map[string]any{"imported_transaction_id": rowID, "journal_entry_line_id": lineID}
	var result ledger.Reconciliation
	if err := c.post(ctx, reconPath(id)+"/matches", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) RemoveMatch(ctx context.Context, id, matchID string) (*ledger.Reconciliation, error) {
	req, err := http.NewRequestWithContext(ctx, "DELETE", c.baseURL+reconPath(id)+"/matches/"+url.PathEscape(matchID), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	var result ledger.Reconciliation
	if err := c.doRequest(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Exclude(ctx context.Context, id, rowID string) (*ledger.Reconciliation, error) {
	var result ledger.Reconciliation
	if err := c.post(ctx, reconPath(id)+"/exclusions", map[string]any{"imported_transaction_id": rowID}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) CompleteReconciliation(ctx context.Context, id string) (*ledger.Reconciliation, error) {
	var result ledger.Reconciliation
	if err := c.post(ctx, reconPath(id)+"/complete", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Reports

func (c *Client) ProfitAndLoss(ctx context.Context, f ledger.ReportFilter) (*ledger.ProfitAndLoss, error) {
	var result ledger.ProfitAndLoss
	if err := c.get(ctx, "/api/v1/reports/profit-and-loss?"+periodParams(f).Encode(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) BalanceSheet(ctx context.Context, asOf ledger.Date, propertyID string) (*ledger.BalanceSheet, error) {
	params := url.Values{}
	if !asOf.IsZero() {
		params.Set("as_of", asOf.String())
	}
	if propertyID != "" {
		params.Set("property_id", propertyID)
	}
	var result ledger.BalanceSheet
	if err := c.get(ctx, "/api/v1/reports/balance-sheet?"+params.Encode(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) CashFlow(ctx context.Context, f ledger.ReportFilter) (*ledger.CashFlow, error) {
	var result ledger.CashFlow
	if err := c.get(ctx, "/api/v1/reports/cash-flow?"+periodParams(f).Encode(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) TrialBalance(ctx context.Context, asOf ledger.Date) (*ledger.TrialBalance, error) {
	params := url.Values{}
	if !asOf.IsZero() {
		params.Set("as_of", asOf.String())
	}
	var result ledger.TrialBalance
	if err := c.get(ctx, "/api/v1/reports/trial-balance?"+params.Encode(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) GeneralLedger(ctx context.Context, f ledger.ReportFilter) (*ledger.GeneralLedger, error) {
	var result ledger.GeneralLedger
	if err := c.get(ctx, "/api/v1/reports/general-ledger?"+periodParams(f).Encode(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) TaxSummary(ctx context.Context, f ledger.ReportFilter) (*ledger.TaxSummary, error) {
	var result ledger.TaxSummary
	if err := c.get(ctx, "/api/v1/reports/tax-summary?"+periodParams(f).Encode(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) OwnerStatements(ctx context.Context, f ledger.ReportFilter) (*ledger.OwnerStatements, error) {
	var result ledger.OwnerStatements
	if err := c.get(ctx, "/api/v1/reports/owner-statements?"+periodParams(f).Encode(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Ping checks if the server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/api/v1/chart", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.doRequest(req, result)
}

func (c *Client) del(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, "DELETE", c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.doRequest(req, nil)
}

func (c *Client) patch(ctx context.Context, path string, body any, result any) error {
	return c.send(ctx, "PATCH", path, body, result)
}

func (c *Client) put(ctx context.Context, path string, body any, result any) error {
	return c.send(ctx, "PUT", path, body, result)
}

func (c *Client) post(ctx context.Context, path string, body any, result any) error {
	return c.send(ctx, "POST", path, body, result)
}

func (c *Client) send(ctx context.Context, method, path string, body any, result any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.doRequest(req, result)
}

type apiError struct {
	Error string      `json:"error"`
	Kind  ledger.Kind `json:"kind"`
}

// doRequest decodes the response into result. Classified server errors are
// returned as *ledger.Error so callers can match them with errors.Is.
func (c *Client) doRequest(req *http.Request, result any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(bodyBytes, &apiErr) == nil && apiErr.Error != "" {
			if apiErr.Kind != "" {
				return &ledger.Error{Kind: apiErr.Kind, Msg: apiErr.Error}
			}
			return fmt.Errorf("server error (%d): %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, string(bodyBytes))
	}

	if result != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.Unmarshal(bodyBytes, result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
