package ledger

import "time"

// TrialBalanceLine represents a single line in the trial balance.
type TrialBalanceLine struct {
	AccountID   string      `json:"account_id"`
	AccountCode string      `json:"account_code"`
	AccountName string      `json:"account_name"`
	AccountType AccountType `json:"account_type"`
	Debit       int64       `json:"debit"`
	Credit      int64       `json:"credit"`
}

type TrialBalance struct {
	AsOf        Date               `json:"as_of"`
	Lines       []TrialBalanceLine `json:"lines"`
	TotalDebit  int64              `json:"total_debit"`
	TotalCredit int64              `json:"total_credit"`
	Balanced    bool               `json:"balanced"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// AccountTotal is one account's activity or balance inside a report, on the
// account's normal side.
type AccountTotal struct {
	AccountID   string      `json:"account_id"`
	AccountCode string      `json:"account_code"`
	AccountName string      `json:"account_name"`
	AccountType AccountType `json:"account_type"`
	Amount      int64       `json:"amount"`
}

// ReportFilter is shared by the period reports.
type ReportFilter struct {
	DateFrom   Date
	DateTo     Date
	PropertyID string
}

type ProfitAndLoss struct {
	DateFrom     Date           `json:"date_from"`
	DateTo       Date           `json:"date_to"`
	PropertyID   string         `json:"property_id,omitempty"`
	Revenue      []AccountTotal `json:"revenue"`
	Expenses     []AccountTotal `json:"expenses"`
	TotalRevenue int64          `json:"total_revenue"`
	TotalExpense int64          `json:"total_expenses"`
	NetIncome    int64          `json:"net_income"`
}

type BalanceSheet struct {
	AsOf             Date           `json:"as_of"`
	PropertyID       string         `json:"property_id,omitempty"`
	Assets           []AccountTotal `json:"assets"`
	Liabilities      []AccountTotal `json:"liabilities"`
	Equity           []AccountTotal `json:"equity"`
	TotalAssets      int64          `json:"total_assets"`
	TotalLiabilities int64          `json:"total_liabilities"`
	TotalEquity      int64          `json:"total_equity"`
	CurrentEarnings  int64          `json:"current_earnings"`
	Balanced         bool           `json:"balanced"`
	GeneratedAt      time.Time      `json:"generated_at"`
}

type CashFlowLine struct {
	SourceType SourceType `json:"source_type"`
	Inflow     int64      `json:"inflow"`
	Outflow    int64      `json:"outflow"`
	Net        int64      `json:"net"`
}

type CashFlow struct {
	DateFrom     Date           `json:"date_from"`
	DateTo       Date           `json:"date_to"`
	PropertyID   string         `json:"property_id,omitempty"`
	Lines        []CashFlowLine `json:"lines"`
	TotalInflow  int64          `json:"total_inflow"`
	TotalOutflow int64          `json:"total_outflow"`
	NetChange    int64          `json:"net_change"`
}

type GeneralLedger struct {
	DateFrom Date            `json:"date_from"`
	DateTo   Date            `json:"date_to"`
	Accounts []AccountLedger `json:"accounts"`
}

type TaxSummary struct {
	DateFrom      Date                  `json:"date_from"`
	DateTo        Date                  `json:"date_to"`
	PropertyID    string                `json:"property_id,omitempty"`
	ByType        map[AccountType]int64 `json:"by_type"`
	Lines         []AccountTotal        `json:"lines"`
	TaxableIncome int64                 `json:"taxable_income"`
}

type OwnerStatement struct {
	PropertyID string `json:"property_id"`
	Income     int64  `json:"income"`
	Expenses   int64  `json:"expenses"`
	Net        int64  `json:"net"`
}

type OwnerStatements struct {
	DateFrom   Date             `json:"date_from"`
	DateTo     Date             `json:"date_to"`
	Statements []OwnerStatement `json:"statements"`
}
