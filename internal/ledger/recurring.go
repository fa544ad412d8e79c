package ledger

import (
	"strings"
	"time"
)

type Frequency string

const (
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyAnnually  Frequency = "annually"
)

func ValidFrequency(f Frequency) bool {
	switch f {
	case FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyAnnually:
		return true
	}
	return false
}

// RecurringTemplate periodically generates a two-line journal entry.
type RecurringTemplate struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	Frequency       Frequency `json:"frequency"`
	Amount          int64     `json:"amount"`
	DebitAccountID  string    `json:"debit_account_id"`
	CreditAccountID string    `json:"credit_account_id"`
	PropertyID      string    `json:"property_id,omitempty"`
	StartDate       Date      `json:"start_date"`
	EndDate         Date      `json:"end_date"`
	NextRunDate     Date      `json:"next_run_date"`
	LastRunDate     Date      `json:"last_run_date"`
	IsActive        bool      `json:"is_active"`
	IsDue           bool      `json:"is_due"`
	IsOverdue       bool      `json:"is_overdue"`
	CreatedAt       time.Time `json:"created_at"`
}

type TemplatePatch struct {
	Name            *string    `json:"name,omitempty"`
	Description     *string    `json:"description,omitempty"`
	Frequency       *Frequency `json:"frequency,omitempty"`
	Amount          *int64     `json:"amount,omitempty"`
	DebitAccountID  *string    `json:"debit_account_id,omitempty"`
	CreditAccountID *string    `json:"credit_account_id,omitempty"`
	PropertyID      *string    `json:"property_id,omitempty"`
	StartDate       *Date      `json:"start_date,omitempty"`
	EndDate         *Date      `json:"end_date,omitempty"`
	NextRunDate     *Date      `json:"next_run_date,omitempty"`
}

func (p TemplatePatch) Apply(t *RecurringTemplate) {
	if p.Name != nil {
		t.Name = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Frequency != nil {
		t.Frequency = *p.Frequency
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.DebitAccountID != nil {
		t.DebitAccountID = *p.DebitAccountID
	}
	if p.CreditAccountID != nil {
		t.CreditAccountID = *p.CreditAccountID
	}
	if p.PropertyID != nil {
		t.PropertyID = *p.PropertyID
	}
	if p.StartDate != nil {
		t.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		t.EndDate = *p.EndDate
	}
	if p.NextRunDate != nil {
		t.NextRunDate = *p.NextRunDate
	}
}

func (t *RecurringTemplate) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return Validationf("template name is required")
	}
	if !ValidFrequency(t.Frequency) {
		return Validationf("invalid frequency %q", t.Frequency)
	}
	if t.Amount <= 0 {
		return Validationf("amount must be positive")
	}
	if t.DebitAccountID == "" || t.CreditAccountID == "" {
		return Validationf("debit and credit accounts are required")
	}
	if t.DebitAccountID == t.CreditAccountID {
		return Validationf("debit and credit accounts must differ")
	}
	if t.StartDate.IsZero() {
		return Validationf("start date is required")
	}
	if !t.EndDate.IsZero() && t.EndDate.Before(t.StartDate) {
		return Validationf("end date %s is before start date %s", t.EndDate, t.StartDate)
	}
	if t.NextRunDate.IsZero() {
		t.NextRunDate = t.StartDate
	}
	return nil
}

// Finished reports whether the schedule has run past its end date.
func (t *RecurringTemplate) Finished() bool {
	return !t.EndDate.IsZero() && t.NextRunDate.After(t.EndDate)
}

// Due reports whether the next run date is today or earlier. Comparison
// is by calendar day only.
func (t *RecurringTemplate) Due(today Date) bool {
	return !t.Finished() && !t.NextRunDate.After(today)
}

// Overdue reports whether the next run date is strictly before today.
func (t *RecurringTemplate) Overdue(today Date) bool {
	return !t.Finished() && t.NextRunDate.Before(today)
}

// Refresh recomputes the derived due flags.
func (t *RecurringTemplate) Refresh(today Date) {
	t.IsDue = t.Due(today)
	t.IsOverdue = t.Overdue(today)
}

// Advance returns the run date following d for the template's frequency.
// Month-based frequencies stay anchored on the start date's day.
func (t *RecurringTemplate) Advance(d Date) Date {
	anchor := t.StartDate.Day
	if anchor == 0 {
		anchor = d.Day
	}
	switch t.Frequency {
	case FrequencyWeekly:
		return d.AddDays(7)
	case FrequencyQuarterly:
		return d.AddMonths(3, anchor)
	case FrequencyAnnually:
		return d.AddMonths(12, anchor)
	default:
		return d.AddMonths(1, anchor)
	}
}

// Entry builds the journal entry a run materialises.
func (t *RecurringTemplate) Entry() JournalEntry {
	memo := t.Name
	if t.Description != "" {
		memo = t.Name + ": " + t.Description
	}
	return JournalEntry{
		Memo:       memo,
		EntryDate:  t.NextRunDate,
		SourceType: SourceRecurring,
		PropertyID: t.PropertyID,
		Lines:      TwoLine(t.DebitAccountID, t.CreditAccountID, t.Amount, t.Name),
	}
}

// RunResult reports the outcome for one template in a batch run.
type RunResult struct {
	TemplateID string `json:"template_id"`
	EntryID    string `json:"entry_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

type RunSummary struct {
	Created int         `json:"created"`
	Failed  int         `json:"failed"`
	Results []RunResult `json:"results"`
}
