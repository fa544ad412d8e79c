package store

import (
	"context"
	"fmt"

	"github.com/simonvc/propledger/internal/ledger"
)

type accountActivity struct {
	account ledger.Account
	debit   int64
	credit  int64
}

// natural signs a debit/credit pair by account type: assets and expenses
// grow with debits, everything else with credits.
func natural(t ledger.AccountType, debit, credit int64) int64 {
	if t == ledger.AccountTypeAsset || t == ledger.AccountTypeExpense {
		return debit - credit
	}
	return credit - debit
}

func (a accountActivity) total() ledger.AccountTotal {
	return ledger.AccountTotal{
		AccountID:   a.account.ID,
		AccountCode: a.account.Code,
		AccountName: a.account.Name,
		AccountType: a.account.Type,
		Amount:      natural(a.account.Type, a.debit, a.credit),
	}
}

// accountTotals sums posted lines per account over a period, in chart
// order. Accounts with no lines in the period are omitted.
func accountTotals(ctx context.Context, q queryer, from, to ledger.Date, propertyID string) ([]accountActivity, error) {
	query := `SELECT ` + accountColumns + `, COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)
		FROM journal_lines l
		JOIN journal_entries e ON e.id = l.entry_id
		JOIN accounts a ON a.id = l.account_id
		WHERE e.status IN ` + balanceStatuses
	query, args := appendPeriod(query, nil, from, to, propertyID)
	query += ` GROUP BY a.id`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("account totals: %w", err)
	}
	defer rows.Close()

	var accounts []ledger.Account
	sums := make(map[string][2]int64)
	for rows.Next() {
		var debit, credit int64
		a, err := scanAccount(rows, &debit, &credit)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
		sums[a.ID] = [2]int64{debit, credit}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ledger.SortAccounts(accounts)
	out := make([]accountActivity, len(accounts))
	for i, a := range accounts {
		out[i] = accountActivity{account: a, debit: sums[a.ID][0], credit: sums[a.ID][1]}
	}
	return out, nil
}

func (s *Store) ProfitAndLoss(ctx context.Context, f ledger.ReportFilter) (*ledger.ProfitAndLoss, error) {
	totals, err := accountTotals(ctx, s.reader, f.DateFrom, f.DateTo, f.PropertyID)
	if err != nil {
		return nil, err
	}
	pl := &ledger.ProfitAndLoss{
		DateFrom: f.DateFrom, DateTo: f.DateTo, PropertyID: f.PropertyID,
		Revenue: []ledger.AccountTotal{}, Expenses: []ledger.AccountTotal{},
	}
	for _, a := range totals {
		t := a.total()
		switch t.AccountType {
		case ledger.AccountTypeRevenue:
			pl.Revenue = append(pl.Revenue, t)
			pl.TotalRevenue += t.Amount
		case ledger.AccountTypeExpense:
			pl.Expenses = append(pl.Expenses, t)
			pl.TotalExpense += t.Amount
		}
	}
	pl.NetIncome = pl.TotalRevenue - pl.TotalExpense
	return pl, nil
}

// BalanceSheet reports balances as of asOf (today when zero). Revenue and
// expense activity to date is shown as current earnings.
func (s *Store) BalanceSheet(ctx context.Context, asOf ledger.Date, propertyID string) (*ledger.BalanceSheet, error) {
	if asOf.IsZero() {
		asOf = s.clock.Today()
	}
	totals, err := accountTotals(ctx, s.reader, ledger.Date{}, asOf, propertyID)
	if err != nil {
		return nil, err
	}
	bs := &ledger.BalanceSheet{
		AsOf: asOf, PropertyID: propertyID, GeneratedAt: now(),
		Assets: []ledger.AccountTotal{}, Liabilities: []ledger.AccountTotal{}, Equity: []ledger.AccountTotal{},
	}
	for _, a := range totals {
		t := a.total()
		switch t.AccountType {
		case ledger.AccountTypeAsset:
			bs.Assets = append(bs.Assets, t)
			bs.TotalAssets += t.Amount
		case ledger.AccountTypeLiability:
			bs.Liabilities = append(bs.Liabilities, t)
			bs.TotalLiabilities += t.Amount
		case ledger.AccountTypeEquity:
			bs.Equity = append(bs.Equity, t)
			bs.TotalEquity += t.Amount
		case ledger.AccountTypeRevenue:
			bs.CurrentEarnings += t.Amount
		case ledger.AccountTypeExpense:
			bs.CurrentEarnings -= t.Amount
		}
	}
	bs.Balanced = bs.TotalAssets == bs.TotalLiabilities+bs.TotalEquity+bs.CurrentEarnings
	return bs, nil
}

// CashFlow groups movements on asset accounts by the source of the entry.
func (s *Store) CashFlow(ctx context.Context, f ledger.ReportFilter) (*ledger.CashFlow, error) {
	query := `SELECT e.source_type, COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)
		FROM journal_lines l
		JOIN journal_entries e ON e.id = l.entry_id
		JOIN accounts a ON a.id = l.account_id
		WHERE a.account_type = 'asset' AND e.status IN ` + balanceStatuses
	query, args := appendPeriod(query, nil, f.DateFrom, f.DateTo, f.PropertyID)
	query += ` GROUP BY e.source_type ORDER BY e.source_type`

	rows, err := s.reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("cash flow: %w", err)
	}
	defer rows.Close()

	cf := &ledger.CashFlow{DateFrom: f.DateFrom, DateTo: f.DateTo, PropertyID: f.PropertyID, Lines: []ledger.CashFlowLine{}}
	for rows.Next() {
		var line ledger.CashFlowLine
		if err := rows.Scan(&line.SourceType, &line.Inflow, &line.Outflow); err != nil {
			return nil, fmt.Errorf("scan cash flow: %w", err)
		}
		line.Net = line.Inflow - line.Outflow
		cf.Lines = append(cf.Lines, line)
		cf.TotalInflow += line.Inflow
		cf.TotalOutflow += line.Outflow
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	cf.NetChange = cf.TotalInflow - cf.TotalOutflow
	return cf, nil
}

// GeneralLedger is the account ledger of every account with activity in
// the period.
func (s *Store) GeneralLedger(ctx context.Context, f ledger.ReportFilter) (*ledger.GeneralLedger, error) {
	totals, err := accountTotals(ctx, s.reader, f.DateFrom, f.DateTo, f.PropertyID)
	if err != nil {
		return nil, err
	}
	gl := &ledger.GeneralLedger{DateFrom: f.DateFrom, DateTo: f.DateTo, Accounts: []ledger.AccountLedger{}}
	lf := ledger.LedgerFilter{DateFrom: f.DateFrom, DateTo: f.DateTo, PropertyID: f.PropertyID}
	for _, a := range totals {
		lines, err := ledgerLines(ctx, s.reader, a.account.ID, lf)
		if err != nil {
			return nil, err
		}
		al := ledger.AccountLedger{Account: a.account, Lines: lines}
		al.Accumulate()
		gl.Accounts = append(gl.Accounts, al)
	}
	return gl, nil
}

// TaxSummary totals revenue and expense per account and per type.
func (s *Store) TaxSummary(ctx context.Context, f ledger.ReportFilter) (*ledger.TaxSummary, error) {
	totals, err := accountTotals(ctx, s.reader, f.DateFrom, f.DateTo, f.PropertyID)
	if err != nil {
		return nil, err
	}
	ts := &ledger.TaxSummary{
		DateFrom: f.DateFrom, DateTo: f.DateTo, PropertyID: f.PropertyID,
		ByType: map[ledger.AccountType]int64{ledger.AccountTypeRevenue: 0, ledger.AccountTypeExpense: 0},
		Lines:  []ledger.AccountTotal{},
	}
	for _, a := range totals {
		t := a.total()
		if t.AccountType != ledger.AccountTypeRevenue && t.AccountType != ledger.AccountTypeExpense {
			continue
		}
		ts.Lines = append(ts.Lines, t)
		ts.ByType[t.AccountType] += t.Amount
	}
	ts.TaxableIncome = ts.ByType[ledger.AccountTypeRevenue] - ts.ByType[ledger.AccountTypeExpense]
	return ts, nil
}

// OwnerStatements reports income, expenses and net per property. Entries
// without a property are left out.
func (s *Store) OwnerStatements(ctx context.Context, from, to ledger.Date) (*ledger.OwnerStatements, error) {
	query := `SELECT e.property_id, a.account_type, COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)
		FROM journal_lines l
		JOIN journal_entries e ON e.id = l.entry_id
		JOIN accounts a ON a.id = l.account_id
		WHERE e.property_id IS NOT NULL AND a.account_type IN ('revenue','expense') AND e.status IN ` + balanceStatuses
	query, args := appendPeriod(query, nil, from, to, "")
	query += ` GROUP BY e.property_id, a.account_type ORDER BY e.property_id`

	rows, err := s.reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("owner statements: %w", err)
	}
	defer rows.Close()

	out := &ledger.OwnerStatements{DateFrom: from, DateTo: to, Statements: []ledger.OwnerStatement{}}
	index := make(map[string]int)
	for rows.Next() {
		var property string
		var typ ledger.AccountType
		var debit, credit int64
		if err := rows.Scan(&property, &typ, &debit, &credit); err != nil {
			return nil, fmt.Errorf("scan owner statement: %w", err)
		}
		i, ok := index[property]
		if !ok {
			i = len(out.Statements)
			index[property] = i
			out.Statements = append(out.Statements, ledger.OwnerStatement{PropertyID: property})
		}
		st := &out.Statements[i]
		if typ == ledger.AccountTypeRevenue {
			st.Income += natural(typ, debit, credit)
		} else {
			st.Expenses += natural(typ, debit, credit)
		}
		st.Net = st.Income - st.Expenses
	}
	return out, rows.Err()
}
