package ledger

import (
	"strings"
	"time"
)

// ColumnMapping names the CSV headers that feed each imported field.
type ColumnMapping struct {
	DateColumn        string `json:"date_column"`
	DescriptionColumn string `json:"description_column"`
	AmountColumn      string `json:"amount_column"`
	ReferenceColumn   string `json:"reference_column"`
}

// Validate requires the date, description and amount columns, each naming
// one of headers.
func (m ColumnMapping) Validate(headers []string) error {
	known := make(map[string]bool, len(headers))
	for _, h := range headers {
		known[h] = true
	}
	required := []struct {
		field, column string
	}{
		{"date", m.DateColumn},
		{"description", m.DescriptionColumn},
		{"amount", m.AmountColumn},
	}
	for _, r := range required {
		if r.column == "" {
			return Validationf("%s column must be mapped", r.field)
		}
		if !known[r.column] {
			return Validationf("%s column %q is not in the file", r.field, r.column)
		}
	}
	if m.ReferenceColumn != "" && !known[m.ReferenceColumn] {
		return Validationf("reference column %q is not in the file", m.ReferenceColumn)
	}
	return nil
}

var mappingKeywords = []struct {
	set      func(*ColumnMapping, string)
	keywords []string
}{
	{func(m *ColumnMapping, h string) { m.DateColumn = h }, []string{"date"}},
	{func(m *ColumnMapping, h string) { m.DescriptionColumn = h }, []string{"description", "memo", "details"}},
	{func(m *ColumnMapping, h string) { m.AmountColumn = h }, []string{"amount", "total", "debit", "credit", "value"}},
	{func(m *ColumnMapping, h string) { m.ReferenceColumn = h }, []string{"reference", "ref", "check", "txn", "transaction"}},
}

// DetectMapping guesses a column mapping from header names by keyword
// substring. Fields are resolved in order date, description, amount,
// reference; the first matching header wins and a header claimed by an
// earlier field is not reused. Unmatched fields stay empty.
func DetectMapping(headers []string) ColumnMapping {
	var m ColumnMapping
	used := make(map[int]bool)
	for _, f := range mappingKeywords {
		for i, h := range headers {
			if used[i] || !containsAny(strings.ToLower(h), f.keywords) {
				continue
			}
			f.set(&m, h)
			used[i] = true
			break
		}
	}
	return m
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

type ImportBatch struct {
	ID               string        `json:"id"`
	AccountID        string        `json:"account_id"`
	FileName         string        `json:"file_name"`
	Headers          []string      `json:"headers"`
	Mapping          ColumnMapping `json:"column_mapping"`
	SuggestedMapping ColumnMapping `json:"suggested_mapping"`
	Status           BatchStatus   `json:"status"`
	Rows             []ImportedRow `json:"rows"`
	CreatedAt        time.Time     `json:"created_at"`
}

type ImportedRow struct {
	ID             string    `json:"id"`
	BatchID        string    `json:"batch_id"`
	RowNo          int       `json:"row_no"`
	Date           Date      `json:"date"`
	Description    string    `json:"description"`
	Amount         int64     `json:"amount"`
	Reference      string    `json:"reference"`
	CategoryID     string    `json:"category_id,omitempty"`
	PropertyID     string    `json:"property_id,omitempty"`
	RuleID         string    `json:"rule_id,omitempty"`
	Status         RowStatus `json:"status"`
	IsDuplicate    bool      `json:"is_duplicate"`
	JournalEntryID string    `json:"journal_entry_id,omitempty"`
}

// DuplicateKey is the identity used to spot rows that were already booked:
// same day, same amount, same description ignoring case and spacing.
func (r *ImportedRow) DuplicateKey() string {
	desc := strings.Join(strings.Fields(strings.ToLower(r.Description)), " ")
	return r.Date.String() + "|" + FormatAmount(r.Amount, DefaultCurrency) + "|" + desc
}

// RowPatch edits an imported row before it is booked.
type RowPatch struct {
	Date        *Date      `json:"date,omitempty"`
	Description *string    `json:"description,omitempty"`
	Amount      *int64     `json:"amount,omitempty"`
	Reference   *string    `json:"reference,omitempty"`
	CategoryID  *string    `json:"category_id,omitempty"`
	PropertyID  *string    `json:"property_id,omitempty"`
	Status      *RowStatus `json:"status,omitempty"`
}

func (p RowPatch) Apply(r *ImportedRow) error {
	if p.Status != nil {
		if err := CheckRowTransition(r.Status, *p.Status); err != nil {
			return err
		}
		r.Status = *p.Status
	}
	if p.Date != nil {
		r.Date = *p.Date
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.Amount != nil {
		r.Amount = *p.Amount
	}
	if p.Reference != nil {
		r.Reference = *p.Reference
	}
	if p.CategoryID != nil {
		r.CategoryID = *p.CategoryID
	}
	if p.PropertyID != nil {
		r.PropertyID = *p.PropertyID
	}
	return nil
}

// Entry builds the journal entry booking the row against the statement's
// bank account. Money in debits the bank and credits the category; money
// out does the reverse.
func (r *ImportedRow) Entry(bankAccountID string) (JournalEntry, error) {
	if r.CategoryID == "" {
		return JournalEntry{}, Validationf("row %d has no category", r.RowNo)
	}
	if r.Amount == 0 {
		return JournalEntry{}, Validationf("row %d has a zero amount", r.RowNo)
	}
	if r.CategoryID == bankAccountID {
		return JournalEntry{}, Validationf("row %d is categorised to the statement account", r.RowNo)
	}
	debit, credit, amount := bankAccountID, r.CategoryID, r.Amount
	if amount < 0 {
		debit, credit, amount = r.CategoryID, bankAccountID, -amount
	}
	return JournalEntry{
		Memo:       r.Description,
		EntryDate:  r.Date,
		SourceType: SourceImport,
		PropertyID: r.PropertyID,
		Lines:      TwoLine(debit, credit, amount, r.Description),
	}, nil
}

type RowFailure struct {
	RowID string `json:"row_id"`
	RowNo int    `json:"row_no"`
	Error string `json:"error"`
}

type BookResult struct {
	Booked   int          `json:"booked"`
	EntryIDs []string     `json:"entry_ids"`
	Failed   []RowFailure `json:"failed"`
}

type BulkApproveResult struct {
	Approved int          `json:"approved"`
	Failed   []RowFailure `json:"failed"`
}
