package ledger

// ChartEntry represents a predefined entry in the default chart of accounts.
type ChartEntry struct {
	Code        string      `json:"code"`
	ParentCode  string      `json:"parent_code,omitempty"`
	Name        string      `json:"name"`
	Type        AccountType `json:"account_type"`
	IsHeader    bool        `json:"is_header"`
	Description string      `json:"description"`
}

// DefaultChart is a minimal property-management chart of accounts.
var DefaultChart = []ChartEntry{
	// Assets (1xxx)
	{Code: "1000", Name: "Assets", Type: AccountTypeAsset, IsHeader: true},
	{Code: "1010", ParentCode: "1000", Name: "Operating Bank Account", Type: AccountTypeAsset, Description: "Primary checking account"},
	{Code: "1020", ParentCode: "1000", Name: "Security Deposit Trust Account", Type: AccountTypeAsset, Description: "Tenant deposits held in trust"},
	{Code: "1100", ParentCode: "1000", Name: "Rent Receivable", Type: AccountTypeAsset, Description: "Rent charged but not yet collected"},
	{Code: "1500", ParentCode: "1000", Name: "Buildings", Type: AccountTypeAsset, Description: "Rental property at cost"},

	// Liabilities (2xxx)
	{Code: "2000", Name: "Liabilities", Type: AccountTypeLiability, IsHeader: true},
	{Code: "2010", ParentCode: "2000", Name: "Accounts Payable", Type: AccountTypeLiability, Description: "Vendor bills not yet paid"},
	{Code: "2100", ParentCode: "2000", Name: "Security Deposits Held", Type: AccountTypeLiability, Description: "Deposits owed back to tenants"},
	{Code: "2500", ParentCode: "2000", Name: "Mortgage Payable", Type: AccountTypeLiability, Description: "Outstanding mortgage principal"},

	// Equity (3xxx)
	{Code: "3000", Name: "Equity", Type: AccountTypeEquity, IsHeader: true},
	{Code: "3010", ParentCode: "3000", Name: "Owner Contributions", Type: AccountTypeEquity},
	{Code: "3020", ParentCode: "3000", Name: "Owner Distributions", Type: AccountTypeEquity},
	{Code: "3900", ParentCode: "3000", Name: "Retained Earnings", Type: AccountTypeEquity},

	// Revenue (4xxx)
	{Code: "4000", Name: "Income", Type: AccountTypeRevenue, IsHeader: true},
	{Code: "4010", ParentCode: "4000", Name: "Rental Income", Type: AccountTypeRevenue},
	{Code: "4020", ParentCode: "4000", Name: "Late Fee Income", Type: AccountTypeRevenue},
	{Code: "4090", ParentCode: "4000", Name: "Other Income", Type: AccountTypeRevenue},

	// Expenses (5xxx)
	{Code: "5000", Name: "Expenses", Type: AccountTypeExpense, IsHeader: true},
	{Code: "5010", ParentCode: "5000", Name: "Repairs and Maintenance", Type: AccountTypeExpense},
	{Code: "5020", ParentCode: "5000", Name: "Utilities", Type: AccountTypeExpense},
	{Code: "5030", ParentCode: "5000", Name: "Property Management Fees", Type: AccountTypeExpense},
	{Code: "5040", ParentCode: "5000", Name: "Insurance", Type: AccountTypeExpense},
	{Code: "5050", ParentCode: "5000", Name: "Property Taxes", Type: AccountTypeExpense},
	{Code: "5060", ParentCode: "5000", Name: "Mortgage Interest", Type: AccountTypeExpense},
}
