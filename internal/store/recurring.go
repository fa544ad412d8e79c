package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/simonvc/propledger/internal/ledger"
)

const templateColumns = `id, name, description, frequency, amount, debit_account_id, credit_account_id, COALESCE(property_id, ''),
	start_date, end_date, next_run_date, last_run_date, is_active, created_at`

func (s *Store) CreateTemplate(ctx context.Context, tmpl *ledger.RecurringTemplate) (*ledger.RecurringTemplate, error) {
	t := *tmpl
	t.ID = newID()
	t.IsActive = true
	t.LastRunDate = ledger.Date{}
	t.CreatedAt = now()
	if err := t.Validate(); err != nil {
		return nil, err
	}
	err := s.write(ctx, nil, func(tx *sql.Tx) error {
		if err := checkTemplateAccounts(ctx, tx, &t); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO recurring_templates (id, name, description, frequency, amount, debit_account_id, credit_account_id, property_id,
				start_date, end_date, next_run_date, last_run_date, is_active, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.Name, t.Description, string(t.Frequency), t.Amount, t.DebitAccountID, t.CreditAccountID, nullString(t.PropertyID),
			t.StartDate.String(), dateArg(t.EndDate), t.NextRunDate.String(), dateArg(t.LastRunDate), boolToInt(t.IsActive), formatTime(t.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert template: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("recurring template created", "template_id", t.ID, "name", t.Name, "next_run", t.NextRunDate)
	return s.GetTemplate(ctx, t.ID)
}

func (s *Store) UpdateTemplate(ctx context.Context, id string, patch ledger.TemplatePatch) (*ledger.RecurringTemplate, error) {
	err := s.write(ctx, []string{templateKey(id)}, func(tx *sql.Tx) error {
		t, err := getTemplate(ctx, tx, id)
		if err != nil {
			return err
		}
		patch.Apply(t)
		if err := t.Validate(); err != nil {
			return err
		}
		if err := checkTemplateAccounts(ctx, tx, t); err != nil {
			return err
		}
		return saveTemplate(ctx, tx, t)
	})
	if err != nil {
		return nil, err
	}
	return s.GetTemplate(ctx, id)
}

func (s *Store) DeleteTemplate(ctx context.Context, id string) error {
	return s.write(ctx, []string{templateKey(id)}, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM recurring_templates WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete template: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ledger.NotFoundf("recurring template %s not found", id)
		}
		return nil
	})
}

// ToggleTemplate flips a template between active and inactive.
func (s *Store) ToggleTemplate(ctx context.Context, id string) (*ledger.RecurringTemplate, error) {
	err := s.write(ctx, []string{templateKey(id)}, func(tx *sql.Tx) error {
		t, err := getTemplate(ctx, tx, id)
		if err != nil {
			return err
		}
		from, to := ledger.TemplateActive, ledger.TemplateInactive
		if !t.IsActive {
			from, to = to, from
		}
		if err := ledger.CheckTemplateTransition(from, to); err != nil {
			return err
		}
		t.IsActive = to == ledger.TemplateActive
		return saveTemplate(ctx, tx, t)
	})
	if err != nil {
		return nil, err
	}
	return s.GetTemplate(ctx, id)
}

// RunTemplate materialises the template's next occurrence. The template
// must be active and due.
func (s *Store) RunTemplate(ctx context.Context, id string) (*ledger.JournalEntry, error) {
	today := s.clock.Today()
	var entryID string
	err := s.write(ctx, []string{templateKey(id)}, func(tx *sql.Tx) error {
		t, err := getTemplate(ctx, tx, id)
		if err != nil {
			return err
		}
		if !t.IsActive {
			return ledger.Preconditionf("recurring template %s is inactive", id)
		}
		if !t.Due(today) {
			return ledger.Preconditionf("recurring template %s is not due until %s", id, t.NextRunDate)
		}
		entryID, err = runTemplate(ctx, tx, t)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("recurring template run", "template_id", id, "entry_id", entryID)
	return s.GetEntry(ctx, entryID)
}

// runTemplate posts the entry, records the run and advances the schedule.
// A template whose next run falls past its end date is deactivated.
func runTemplate(ctx context.Context, tx *sql.Tx, t *ledger.RecurringTemplate) (string, error) {
	e := t.Entry()
	if err := insertEntry(ctx, tx, &e); err != nil {
		return "", err
	}
	if err := postEntry(ctx, tx, &e); err != nil {
		return "", err
	}
	t.LastRunDate = t.NextRunDate
	t.NextRunDate = t.Advance(t.NextRunDate)
	if t.Finished() {
		t.IsActive = false
	}
	if err := saveTemplate(ctx, tx, t); err != nil {
		return "", err
	}
	return e.ID, nil
}

// RunAllDue runs every active, due template once. Failures are reported
// per template and do not stop the others.
func (s *Store) RunAllDue(ctx context.Context) (*ledger.RunSummary, error) {
	templates, err := s.ListTemplates(ctx)
	if err != nil {
		return nil, err
	}
	summary := &ledger.RunSummary{Results: []ledger.RunResult{}}
	for _, t := range templates {
		if !t.IsActive || !t.IsDue {
			continue
		}
		res := ledger.RunResult{TemplateID: t.ID}
		e, err := s.RunTemplate(ctx, t.ID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			res.Error = err.Error()
			summary.Failed++
			s.log.Warn("recurring template failed", "template_id", t.ID, "error", err)
		} else {
			res.EntryID = e.ID
			summary.Created++
		}
		summary.Results = append(summary.Results, res)
	}
	return summary, nil
}

func (s *Store) GetTemplate(ctx context.Context, id string) (*ledger.RecurringTemplate, error) {
	t, err := getTemplate(ctx, s.reader, id)
	if err != nil {
		return nil, err
	}
	t.Refresh(s.clock.Today())
	return t, nil
}

// ListTemplates returns templates ordered by next run date.
func (s *Store) ListTemplates(ctx context.Context) ([]ledger.RecurringTemplate, error) {
	rows, err := s.reader.QueryContext(ctx,
		`SELECT `+templateColumns+` FROM recurring_templates ORDER BY next_run_date, created_at`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	today := s.clock.Today()
	templates := []ledger.RecurringTemplate{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		t.Refresh(today)
		templates = append(templates, *t)
	}
	return templates, rows.Err()
}

func checkTemplateAccounts(ctx context.Context, q queryer, t *ledger.RecurringTemplate) error {
	for _, id := range []string{t.DebitAccountID, t.CreditAccountID} {
		if _, err := postableAccount(ctx, q, id); err != nil {
			return err
		}
	}
	return nil
}

func saveTemplate(ctx context.Context, tx *sql.Tx, t *ledger.RecurringTemplate) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE recurring_templates SET name = ?, description = ?, frequency = ?, amount = ?, debit_account_id = ?, credit_account_id = ?,
			property_id = ?, start_date = ?, end_date = ?, next_run_date = ?, last_run_date = ?, is_active = ?
		 WHERE id = ?`,
		t.Name, t.Description, string(t.Frequency), t.Amount, t.DebitAccountID, t.CreditAccountID,
		nullString(t.PropertyID), t.StartDate.String(), dateArg(t.EndDate), t.NextRunDate.String(), dateArg(t.LastRunDate), boolToInt(t.IsActive),
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	return nil
}

func getTemplate(ctx context.Context, q queryer, id string) (*ledger.RecurringTemplate, error) {
	row := q.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM recurring_templates WHERE id = ?`, id)
	t, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.NotFoundf("recurring template %s not found", id)
	}
	return t, err
}

func scanTemplate(r rowScanner) (*ledger.RecurringTemplate, error) {
	var t ledger.RecurringTemplate
	var start, next string
	var end, last sql.NullString
	var isActive int
	var createdAt string
	err := r.Scan(&t.ID, &t.Name, &t.Description, &t.Frequency, &t.Amount, &t.DebitAccountID, &t.CreditAccountID, &t.PropertyID,
		&start, &end, &next, &last, &isActive, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan template: %w", err)
	}
	t.StartDate, _ = ledger.ParseDate(start)
	t.NextRunDate, _ = ledger.ParseDate(next)
	t.EndDate = scanDate(end)
	t.LastRunDate = scanDate(last)
	t.IsActive = isActive == 1
	t.CreatedAt = parseTime(createdAt)
	return &t, nil
}
