package ledger

import "time"

// ReconcileTolerance is the largest absolute difference, in minor units,
// still considered balanced: strictly below one cent.
const ReconcileTolerance = 1

type MatchKind string

const (
	MatchMatched  MatchKind = "matched"
	MatchExcluded MatchKind = "excluded"
)

type Match struct {
	ID            string    `json:"id"`
	ImportedRowID string    `json:"imported_transaction_id"`
	JournalLineID string    `json:"journal_entry_line_id,omitempty"`
	Kind          MatchKind `json:"match_type"`
	BankAmount    int64     `json:"bank_amount"`
	BookAmount    int64     `json:"book_amount"`
	CreatedAt     time.Time `json:"created_at"`
}

// BankItem is an imported statement row available to a reconciliation.
type BankItem struct {
	RowID       string `json:"id"`
	Date        Date   `json:"date"`
	Description string `json:"description"`
	Reference   string `json:"reference"`
	Amount      int64  `json:"amount"`
}

// BookItem is a posted ledger line on the reconciled account.
type BookItem struct {
	LineID      string `json:"id"`
	EntryID     string `json:"entry_id"`
	Date        Date   `json:"date"`
	Memo        string `json:"memo"`
	Description string `json:"description"`
	Amount      int64  `json:"amount"` // debit minus credit
}

type Reconciliation struct {
	ID                     string               `json:"id"`
	AccountID              string               `json:"account_id"`
	StartDate              Date                 `json:"start_date"`
	EndDate                Date                 `json:"end_date"`
	StatementEndingBalance int64                `json:"statement_ending_balance"`
	BeginningBalance       int64                `json:"beginning_balance"`
	Status                 ReconciliationStatus `json:"status"`
	Matches                []Match              `json:"matches"`
	UnmatchedBank          []BankItem           `json:"unmatched_bank"`
	UnmatchedBook          []BookItem           `json:"unmatched_book"`
	BookBalance            int64                `json:"book_balance"`
	Difference             int64                `json:"difference"`
	IsBalanced             bool                 `json:"is_balanced"`
	CreatedAt              time.Time            `json:"created_at"`
	CompletedAt            *time.Time           `json:"completed_at,omitempty"`
}

// Summarise derives the unmatched sets and the balance figures from the
// candidate items and the current matches.
func (r *Reconciliation) Summarise(bank []BankItem, book []BookItem) {
	usedRows := make(map[string]bool, len(r.Matches))
	usedLines := make(map[string]bool, len(r.Matches))
	r.BookBalance = r.BeginningBalance
	for _, m := range r.Matches {
		usedRows[m.ImportedRowID] = true
		if m.Kind == MatchMatched {
			usedLines[m.JournalLineID] = true
			r.BookBalance += m.BookAmount
		}
	}

	r.UnmatchedBank = make([]BankItem, 0, len(bank))
	for _, b := range bank {
		if !usedRows[b.RowID] {
			r.UnmatchedBank = append(r.UnmatchedBank, b)
		}
	}
	r.UnmatchedBook = make([]BookItem, 0, len(book))
	for _, b := range book {
		if !usedLines[b.LineID] {
			r.UnmatchedBook = append(r.UnmatchedBook, b)
		}
	}

	r.Difference = r.StatementEndingBalance - r.BookBalance
	r.IsBalanced = Balanced(r.Difference)
}

// Balanced applies the reconciliation tolerance to a difference.
func Balanced(difference int64) bool {
	if difference < 0 {
		difference = -difference
	}
	return difference < ReconcileTolerance
}

// CheckMatch enforces one-to-one matching against the existing matches.
func (r *Reconciliation) CheckMatch(rowID, lineID string) error {
	for _, m := range r.Matches {
		if m.ImportedRowID == rowID {
			return Conflictf("bank row %s is already %s", rowID, m.Kind)
		}
		if lineID != "" && m.JournalLineID == lineID {
			return Conflictf("ledger line %s is already matched", lineID)
		}
	}
	return nil
}
