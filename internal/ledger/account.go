package ledger

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeRevenue   AccountType = "revenue"
	AccountTypeExpense   AccountType = "expense"
)

var AllAccountTypes = []AccountType{
	AccountTypeAsset,
	AccountTypeLiability,
	AccountTypeEquity,
	AccountTypeRevenue,
	AccountTypeExpense,
}

type NormalBalance string

const (
	NormalDebit  NormalBalance = "debit"
	NormalCredit NormalBalance = "credit"
)

type Account struct {
	ID            string        `json:"id"`
	Code          string        `json:"code"`
	Name          string        `json:"name"`
	Type          AccountType   `json:"account_type"`
	NormalBalance NormalBalance `json:"normal_balance"`
	ParentID      string        `json:"parent_id,omitempty"`
	IsHeader      bool          `json:"is_header"`
	IsActive      bool          `json:"is_active"`
	Description   string        `json:"description"`
	Children      []Account     `json:"children,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// AccountPatch carries the fields an update may change. Nil means keep.
// An empty ParentID detaches the account to the root.
type AccountPatch struct {
	Code          *string        `json:"code,omitempty"`
	Name          *string        `json:"name,omitempty"`
	Type          *AccountType   `json:"account_type,omitempty"`
	NormalBalance *NormalBalance `json:"normal_balance,omitempty"`
	ParentID      *string        `json:"parent_id,omitempty"`
	IsHeader      *bool          `json:"is_header,omitempty"`
	Description   *string        `json:"description,omitempty"`
}

func (p AccountPatch) Apply(a *Account) {
	if p.Code != nil {
		a.Code = strings.TrimSpace(*p.Code)
	}
	if p.Name != nil {
		a.Name = strings.TrimSpace(*p.Name)
	}
	if p.Type != nil {
		a.Type = *p.Type
	}
	if p.NormalBalance != nil {
		a.NormalBalance = *p.NormalBalance
	}
	if p.ParentID != nil {
		a.ParentID = *p.ParentID
	}
	if p.IsHeader != nil {
		a.IsHeader = *p.IsHeader
	}
	if p.Description != nil {
		a.Description = *p.Description
	}
}

// DefaultNormalBalance returns the natural side for an account type.
// Assets and expenses are debit-normal; liabilities, equity, and revenue are credit-normal.
func DefaultNormalBalance(t AccountType) NormalBalance {
	switch t {
	case AccountTypeAsset, AccountTypeExpense:
		return NormalDebit
	default:
		return NormalCredit
	}
}

func ValidAccountType(t AccountType) bool {
	for _, at := range AllAccountTypes {
		if at == t {
			return true
		}
	}
	return false
}

// Validate checks the account's own fields. Parent existence and cycles
// need the rest of the chart and are checked by the registry.
func (a *Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return Validationf("account name is required")
	}
	if !ValidAccountType(a.Type) {
		return Validationf("invalid account type %q", a.Type)
	}
	if a.NormalBalance != NormalDebit && a.NormalBalance != NormalCredit {
		return Validationf("invalid normal balance %q", a.NormalBalance)
	}
	if a.ParentID != "" && a.ParentID == a.ID {
		return Validationf("account cannot be its own parent")
	}
	return nil
}

// Signed converts a debit/credit pair into a balance on the account's
// normal side: positive means the account carries its natural balance.
func (a *Account) Signed(debit, credit int64) int64 {
	if a.NormalBalance == NormalCredit {
		return credit - debit
	}
	return debit - credit
}

// accountSorter orders accounts: headers first, then a locale-aware natural
// comparison of code (name when the code is empty), then name, then id.
type accountSorter struct {
	col *collate.Collator
}

func newAccountSorter() *accountSorter {
	return &accountSorter{col: collate.New(language.Und, collate.Numeric, collate.IgnoreCase)}
}

func (s *accountSorter) less(a, b *Account) bool {
	if a.IsHeader != b.IsHeader {
		return a.IsHeader
	}
	if c := s.col.CompareString(sortKey(a), sortKey(b)); c != 0 {
		return c < 0
	}
	if c := s.col.CompareString(a.Name, b.Name); c != 0 {
		return c < 0
	}
	return a.ID < b.ID
}

func sortKey(a *Account) string {
	if a.Code != "" {
		return a.Code
	}
	return a.Name
}

// SortAccounts orders accounts in place using the chart ordering rule.
func SortAccounts(accounts []Account) {
	s := newAccountSorter()
	sort.SliceStable(accounts, func(i, j int) bool {
		return s.less(&accounts[i], &accounts[j])
	})
}
