package ledger

import (
	"strings"
	"time"
)

type SourceType string

const (
	SourceManual      SourceType = "manual"
	SourceRentPayment SourceType = "rent_payment"
	SourceExpense     SourceType = "expense"
	SourceLateFee     SourceType = "late_fee"
	SourceImport      SourceType = "import"
	SourceRecurring   SourceType = "recurring"
	SourceTransfer    SourceType = "transfer"
	SourceDeposit     SourceType = "deposit"
)

var AllSourceTypes = []SourceType{
	SourceManual, SourceRentPayment, SourceExpense, SourceLateFee,
	SourceImport, SourceRecurring, SourceTransfer, SourceDeposit,
}

func ValidSourceType(s SourceType) bool {
	for _, st := range AllSourceTypes {
		if st == s {
			return true
		}
	}
	return false
}

type JournalLine struct {
	ID          string `json:"id,omitempty"`
	EntryID     string `json:"entry_id,omitempty"`
	LineNo      int    `json:"line_no"`
	AccountID   string `json:"account_id"`
	Debit       int64  `json:"debit_amount"`
	Credit      int64  `json:"credit_amount"`
	Description string `json:"description"`
}

// SetDebit sets the debit side and clears the credit side.
func (l *JournalLine) SetDebit(amount int64) {
	l.Debit = amount
	l.Credit = 0
}

// SetCredit sets the credit side and clears the debit side.
func (l *JournalLine) SetCredit(amount int64) {
	l.Credit = amount
	l.Debit = 0
}

type JournalEntry struct {
	ID         string        `json:"id"`
	Memo       string        `json:"memo"`
	EntryDate  Date          `json:"entry_date"`
	SourceType SourceType    `json:"source_type"`
	Status     EntryStatus   `json:"status"`
	PropertyID string        `json:"property_id,omitempty"`
	ReversalOf string        `json:"reversal_of,omitempty"`
	ReversedBy string        `json:"reversed_by,omitempty"`
	Lines      []JournalLine `json:"lines"`
	CreatedAt  time.Time     `json:"created_at"`
	PostedAt   *time.Time    `json:"posted_at,omitempty"`
}

// Totals sums both sides of the entry. It fails when either side leaves
// the int64 range.
func (e *JournalEntry) Totals() (debit, credit int64, err error) {
	for i, l := range e.Lines {
		if debit, err = addAmount(debit, l.Debit); err != nil {
			return 0, 0, Validationf("line %d: debit total overflows", i+1)
		}
		if credit, err = addAmount(credit, l.Credit); err != nil {
			return 0, 0, Validationf("line %d: credit total overflows", i+1)
		}
	}
	return debit, credit, nil
}

// IsBalanced reports whether the entry may be posted: both sides are
// positive and exactly equal. Amounts are integer minor units so there is
// no tolerance.
func (e *JournalEntry) IsBalanced() bool {
	d, c, err := e.Totals()
	return err == nil && d > 0 && c > 0 && d == c
}

func addAmount(a, b int64) (int64, error) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, Validationf("amount overflow")
	}
	return sum, nil
}

// Validate checks the header fields and every line of a draft.
func (e *JournalEntry) Validate() error {
	if e.EntryDate.IsZero() {
		return Validationf("entry date is required")
	}
	if !ValidSourceType(e.SourceType) {
		return Validationf("invalid source type %q", e.SourceType)
	}
	return ValidateLines(e.Lines)
}

// ValidateLines enforces per-line rules; balance is only required on post.
func ValidateLines(lines []JournalLine) error {
	for i, l := range lines {
		if strings.TrimSpace(l.AccountID) == "" {
			return Validationf("line %d: account is required", i+1)
		}
		if l.Debit < 0 || l.Credit < 0 {
			return Validationf("line %d: amounts must not be negative", i+1)
		}
		if l.Debit != 0 && l.Credit != 0 {
			return Validationf("line %d: a line is either a debit or a credit", i+1)
		}
	}
	return nil
}

// CheckPostable returns a validation error describing why the entry cannot
// be posted, or nil.
func (e *JournalEntry) CheckPostable() error {
	if len(e.Lines) < 2 {
		return Validationf("entry must have at least 2 lines")
	}
	d, c, err := e.Totals()
	if err != nil {
		return err
	}
	if !e.IsBalanced() {
		return Validationf("entry does not balance: debits %d, credits %d", d, c)
	}
	return nil
}

// Reversal builds the contra-entry for a posted entry: same accounts with
// debits and credits swapped.
func (e *JournalEntry) Reversal(date Date) JournalEntry {
	rev := JournalEntry{
		Memo:       "Reversal of: " + e.Memo,
		EntryDate:  date,
		SourceType: e.SourceType,
		PropertyID: e.PropertyID,
		ReversalOf: e.ID,
	}
	for i, l := range e.Lines {
		rev.Lines = append(rev.Lines, JournalLine{
			LineNo:      i + 1,
			AccountID:   l.AccountID,
			Debit:       l.Credit,
			Credit:      l.Debit,
			Description: l.Description,
		})
	}
	return rev
}

// TwoLine builds a balanced draft debiting one account and crediting another.
func TwoLine(debitAccount, creditAccount string, amount int64, description string) []JournalLine {
	dr := JournalLine{LineNo: 1, AccountID: debitAccount, Description: description}
	dr.SetDebit(amount)
	cr := JournalLine{LineNo: 2, AccountID: creditAccount, Description: description}
	cr.SetCredit(amount)
	return []JournalLine{dr, cr}
}

// RecordParams drives the record-income/expense/transfer shortcuts.
//
//	income:   debit DepositAccount, credit CategoryAccount (revenue)
//	expense:  debit CategoryAccount (expense), credit DepositAccount
//	transfer: debit ToAccount, credit FromAccount
type RecordParams struct {
	Amount      int64      `json:"amount"`
	FromAccount string     `json:"from_account_id"`
	ToAccount   string     `json:"to_account_id"`
	Date        Date       `json:"date"`
	PropertyID  string     `json:"property_id,omitempty"`
	Description string     `json:"description"`
	SourceType  SourceType `json:"source_type,omitempty"`
}

type RecordKind string

const (
	RecordIncome   RecordKind = "income"
	RecordExpense  RecordKind = "expense"
	RecordTransfer RecordKind = "transfer"
)

// Entry turns the shortcut into a draft entry. For income, FromAccount is
// the revenue account the money is earned from and ToAccount the deposit
// account; for expense, FromAccount is the paying account and ToAccount the
// expense account.
func (p RecordParams) Entry(kind RecordKind) (JournalEntry, error) {
	if p.Amount <= 0 {
		return JournalEntry{}, Validationf("amount must be positive")
	}
	if p.FromAccount == "" || p.ToAccount == "" {
		return JournalEntry{}, Validationf("both accounts are required")
	}
	if p.FromAccount == p.ToAccount {
		return JournalEntry{}, Validationf("debit and credit accounts must differ")
	}
	src := p.SourceType
	if src == "" {
		switch kind {
		case RecordIncome:
			src = SourceDeposit
		case RecordExpense:
			src = SourceExpense
		default:
			src = SourceTransfer
		}
	}
	e := JournalEntry{
		Memo:       p.Description,
		EntryDate:  p.Date,
		SourceType: src,
		PropertyID: p.PropertyID,
		Lines:      TwoLine(p.ToAccount, p.FromAccount, p.Amount, p.Description),
	}
	return e, e.Validate()
}

// EntryFilter narrows listEntries.
type EntryFilter struct {
	Status     EntryStatus
	SourceType SourceType
	PropertyID string
	AccountID  string
	DateFrom   Date
	DateTo     Date
	Limit      int
	Offset     int
}

// LedgerFilter narrows an account ledger.
type LedgerFilter struct {
	DateFrom   Date
	DateTo     Date
	PropertyID string
}

type LedgerLine struct {
	EntryID        string     `json:"entry_id"`
	LineID         string     `json:"line_id"`
	EntryDate      Date       `json:"entry_date"`
	Memo           string     `json:"memo"`
	Description    string     `json:"description"`
	SourceType     SourceType `json:"source_type"`
	PropertyID     string     `json:"property_id,omitempty"`
	Debit          int64      `json:"debit_amount"`
	Credit         int64      `json:"credit_amount"`
	RunningBalance int64      `json:"running_balance"`
}

// AccountLedger is the line history of one account. The running balance is
// seeded at zero; callers wanting an opening balance supply the previous
// period's closing balance themselves.
type AccountLedger struct {
	Account       Account      `json:"account"`
	Lines         []LedgerLine `json:"lines"`
	TotalDebit    int64        `json:"total_debit"`
	TotalCredit   int64        `json:"total_credit"`
	EndingBalance int64        `json:"ending_balance"`
	// NormalBalance is the ending balance read on the account's normal side.
	NormalBalance int64 `json:"normal_balance"`
}

// Accumulate fills RunningBalance (debit minus credit) and the totals.
func (l *AccountLedger) Accumulate() {
	var running int64
	l.TotalDebit, l.TotalCredit = 0, 0
	for i := range l.Lines {
		running += l.Lines[i].Debit - l.Lines[i].Credit
		l.Lines[i].RunningBalance = running
		l.TotalDebit += l.Lines[i].Debit
		l.TotalCredit += l.Lines[i].Credit
	}
	l.EndingBalance = running
	l.NormalBalance = l.Account.Signed(l.TotalDebit, l.TotalCredit)
}
