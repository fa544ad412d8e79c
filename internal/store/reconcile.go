package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/simonvc/propledger/internal/ledger"
)

const reconColumns = `id, account_id, start_date, end_date, statement_ending_balance, beginning_balance, status, created_at, completed_at`

// StartReconciliation opens a session for an asset account. The beginning
// balance carries over from the latest completed reconciliation that ended
// before start.
func (s *Store) StartReconciliation(ctx context.Context, accountID string, start, end ledger.Date, statementEnding int64) (*ledger.Reconciliation, error) {
	if start.IsZero() || end.IsZero() {
		return nil, ledger.Validationf("start and end dates are required")
	}
	if end.Before(start) {
		return nil, ledger.Validationf("end date %s is before start date %s", end, start)
	}
	r := ledger.Reconciliation{
		ID:                     newID(),
		AccountID:              accountID,
		StartDate:              start,
		EndDate:                end,
		StatementEndingBalance: statementEnding,
		Status:                 ledger.ReconInProgress,
		CreatedAt:              now(),
	}
	err := s.write(ctx, []string{accountKey(accountID)}, func(tx *sql.Tx) error {
		if err := checkBankAccount(ctx, tx, accountID); err != nil {
			return err
		}
		err := tx.QueryRowContext(ctx,
			`SELECT statement_ending_balance FROM reconciliations
			 WHERE account_id = ? AND status = 'completed' AND end_date < ?
			 ORDER BY end_date DESC, completed_at DESC LIMIT 1`, accountID, start.String()).Scan(&r.BeginningBalance)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("previous reconciliation: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO reconciliations (id, account_id, start_date, end_date, statement_ending_balance, beginning_balance, status, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, r.AccountID, r.StartDate.String(), r.EndDate.String(), r.StatementEndingBalance, r.BeginningBalance,
			string(r.Status), formatTime(r.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert reconciliation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("reconciliation started", "reconciliation_id", r.ID, "account_id", accountID, "start", start, "end", end)
	return s.GetReconciliation(ctx, r.ID)
}

// AddMatch pairs a bank row with a ledger line, one-to-one.
func (s *Store) AddMatch(ctx context.Context, reconID, rowID, lineID string) (*ledger.Reconciliation, error) {
	if rowID == "" || lineID == "" {
		return nil, ledger.Validationf("both a bank row and a ledger line are required")
	}
	err := s.write(ctx, []string{reconKey(reconID)}, func(tx *sql.Tx) error {
		r, bank, book, err := s.openReconciliation(ctx, tx, reconID)
		if err != nil {
			return err
		}
		if err := r.CheckMatch(rowID, lineID); err != nil {
			return err
		}
		b, ok := findBank(bank, rowID)
		if !ok {
			return ledger.Validationf("bank row %s is not available to this reconciliation", rowID)
		}
		l, ok := findBook(book, lineID)
		if !ok {
			return ledger.Validationf("ledger line %s is not available to this reconciliation", lineID)
		}
		return insertMatch(ctx, tx, reconID, ledger.Match{
			ImportedRowID: rowID, JournalLineID: lineID, Kind: ledger.MatchMatched,
			BankAmount: b.Amount, BookAmount: l.Amount,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetReconciliation(ctx, reconID)
}

// Exclude marks a bank row as not expected in the books for this period.
func (s *Store) Exclude(ctx context.Context, reconID, rowID string) (*ledger.Reconciliation, error) {
	err := s.write(ctx, []string{reconKey(reconID)}, func(tx *sql.Tx) error {
		r, bank, _, err := s.openReconciliation(ctx, tx, reconID)
		if err != nil {
			return err
		}
		if err := r.CheckMatch(rowID, ""); err != nil {
			return err
		}
		b, ok := findBank(bank, rowID)
		if !ok {
			return ledger.Validationf("bank row %s is not available to this reconciliation", rowID)
		}
		return insertMatch(ctx, tx, reconID, ledger.Match{
			ImportedRowID: rowID, Kind: ledger.MatchExcluded, BankAmount: b.Amount,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetReconciliation(ctx, reconID)
}

// RemoveMatch deletes a match or an exclusion.
func (s *Store) RemoveMatch(ctx context.Context, reconID, matchID string) (*ledger.Reconciliation, error) {
	err := s.write(ctx, []string{reconKey(reconID)}, func(tx *sql.Tx) error {
		if _, _, _, err := s.openReconciliation(ctx, tx, reconID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM reconciliation_matches WHERE id = ? AND reconciliation_id = ?`, matchID, reconID)
		if err != nil {
			return fmt.Errorf("delete match: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ledger.NotFoundf("match %s not found", matchID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetReconciliation(ctx, reconID)
}

// CompleteReconciliation freezes a balanced session. Its rows and lines
// must not already belong to another completed reconciliation.
func (s *Store) CompleteReconciliation(ctx context.Context, reconID string) (*ledger.Reconciliation, error) {
	err := s.write(ctx, []string{reconKey(reconID)}, func(tx *sql.Tx) error {
		r, _, _, err := s.openReconciliation(ctx, tx, reconID)
		if err != nil {
			return err
		}
		if err := ledger.CheckReconciliationTransition(r.Status, ledger.ReconCompleted); err != nil {
			return err
		}
		if !r.IsBalanced {
			return ledger.Preconditionf("reconciliation is out of balance by %s", ledger.FormatAmount(r.Difference, s.currency))
		}

		var taken int
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM reconciliation_matches m
			 JOIN reconciliation_matches o ON (o.imported_row_id = m.imported_row_id OR o.journal_line_id = m.journal_line_id)
			 JOIN reconciliations c ON c.id = o.reconciliation_id
			 WHERE m.reconciliation_id = ? AND c.status = 'completed' AND c.id != ?`, reconID, reconID).Scan(&taken)
		if err != nil {
			return fmt.Errorf("check overlaps: %w", err)
		}
		if taken > 0 {
			return ledger.Conflictf("%d items are already part of another completed reconciliation", taken)
		}

		_, err = tx.ExecContext(ctx, `UPDATE reconciliations SET status = 'completed', completed_at = ? WHERE id = ?`,
			formatTime(now()), reconID)
		if err != nil {
			return fmt.Errorf("complete reconciliation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("reconciliation completed", "reconciliation_id", reconID)
	return s.GetReconciliation(ctx, reconID)
}

func (s *Store) GetReconciliation(ctx context.Context, id string) (*ledger.Reconciliation, error) {
	r, _, _, err := loadReconciliation(ctx, s.reader, id)
	return r, err
}

// ListReconciliations returns sessions, newest period first, optionally for
// one account.
func (s *Store) ListReconciliations(ctx context.Context, accountID string) ([]ledger.Reconciliation, error) {
	query := `SELECT id FROM reconciliations`
	var args []any
	if accountID != "" {
		query += ` WHERE account_id = ?`
		args = append(args, accountID)
	}
	query += ` ORDER BY end_date DESC, created_at DESC`

	rows, err := s.reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reconciliations: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan reconciliation id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]ledger.Reconciliation, 0, len(ids))
	for _, id := range ids {
		r, err := s.GetReconciliation(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, nil
}

// openReconciliation loads a session that may still be changed.
func (s *Store) openReconciliation(ctx context.Context, q queryer, id string) (*ledger.Reconciliation, []ledger.BankItem, []ledger.BookItem, error) {
	r, bank, book, err := loadReconciliation(ctx, q, id)
	if err != nil {
		return nil, nil, nil, err
	}
	if r.Status != ledger.ReconInProgress {
		return nil, nil, nil, ledger.InvalidStatef("reconciliation %s is %s", id, r.Status)
	}
	return r, bank, book, nil
}

func loadReconciliation(ctx context.Context, q queryer, id string) (*ledger.Reconciliation, []ledger.BankItem, []ledger.BookItem, error) {
	row := q.QueryRowContext(ctx, `SELECT `+reconColumns+` FROM reconciliations WHERE id = ?`, id)
	var r ledger.Reconciliation
	var start, end, createdAt string
	var completedAt sql.NullString
	err := row.Scan(&r.ID, &r.AccountID, &start, &end, &r.StatementEndingBalance, &r.BeginningBalance, &r.Status, &createdAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, nil, ledger.NotFoundf("reconciliation %s not found", id)
	}
	if err != nil {
		return nil, nil, nil, fmt.Errorf("scan reconciliation: %w", err)
	}
	r.StartDate, _ = ledger.ParseDate(start)
	r.EndDate, _ = ledger.ParseDate(end)
	r.CreatedAt = parseTime(createdAt)
	r.CompletedAt = parseTimePtr(completedAt)

	if r.Matches, err = loadMatches(ctx, q, id); err != nil {
		return nil, nil, nil, err
	}
	bank, err := bankCandidates(ctx, q, &r)
	if err != nil {
		return nil, nil, nil, err
	}
	book, err := bookCandidates(ctx, q, &r)
	if err != nil {
		return nil, nil, nil, err
	}
	r.Summarise(bank, book)
	return &r, bank, book, nil
}

func loadMatches(ctx context.Context, q queryer, reconID string) ([]ledger.Match, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, imported_row_id, COALESCE(journal_line_id, ''), match_type, bank_amount, book_amount, created_at
		 FROM reconciliation_matches WHERE reconciliation_id = ? ORDER BY created_at, id`, reconID)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()
	matches := []ledger.Match{}
	for rows.Next() {
		var m ledger.Match
		var createdAt string
		if err := rows.Scan(&m.ID, &m.ImportedRowID, &m.JournalLineID, &m.Kind, &m.BankAmount, &m.BookAmount, &createdAt); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		m.CreatedAt = parseTime(createdAt)
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// bankCandidates are the statement rows for the account and period that
// are not skipped and not claimed by another completed reconciliation.
func bankCandidates(ctx context.Context, q queryer, r *ledger.Reconciliation) ([]ledger.BankItem, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT r.id, r.txn_date, r.description, r.reference, r.amount
		 FROM imported_rows r
		 JOIN import_batches b ON b.id = r.batch_id
		 WHERE b.account_id = ? AND r.txn_date >= ? AND r.txn_date <= ? AND r.status != 'skipped'
		   AND NOT EXISTS (
			SELECT 1 FROM reconciliation_matches m JOIN reconciliations c ON c.id = m.reconciliation_id
			WHERE m.imported_row_id = r.id AND c.status = 'completed' AND c.id != ?)
		 ORDER BY r.txn_date, b.created_at, r.row_no`,
		r.AccountID, r.StartDate.String(), r.EndDate.String(), r.ID)
	if err != nil {
		return nil, fmt.Errorf("bank candidates: %w", err)
	}
	defer rows.Close()
	var items []ledger.BankItem
	for rows.Next() {
		var it ledger.BankItem
		var date string
		if err := rows.Scan(&it.RowID, &date, &it.Description, &it.Reference, &it.Amount); err != nil {
			return nil, fmt.Errorf("scan bank item: %w", err)
		}
		it.Date, _ = ledger.ParseDate(date)
		items = append(items, it)
	}
	return items, rows.Err()
}

// bookCandidates are the posted lines on the account in the period not
// claimed by another completed reconciliation.
func bookCandidates(ctx context.Context, q queryer, r *ledger.Reconciliation) ([]ledger.BookItem, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT l.id, e.id, e.entry_date, e.memo, l.description, l.debit - l.credit
		 FROM journal_lines l
		 JOIN journal_entries e ON e.id = l.entry_id
		 WHERE l.account_id = ? AND e.status IN `+balanceStatuses+` AND e.entry_date >= ? AND e.entry_date <= ?
		   AND NOT EXISTS (
			SELECT 1 FROM reconciliation_matches m JOIN reconciliations c ON c.id = m.reconciliation_id
			WHERE m.journal_line_id = l.id AND c.status = 'completed' AND c.id != ?)
		 ORDER BY e.entry_date, e.created_at, l.line_no`,
		r.AccountID, r.StartDate.String(), r.EndDate.String(), r.ID)
	if err != nil {
		return nil, fmt.Errorf("book candidates: %w", err)
	}
	defer rows.Close()
	var items []ledger.BookItem
	for rows.Next() {
		var it ledger.BookItem
		var date string
		if err := rows.Scan(&it.LineID, &it.EntryID, &date, &it.Memo, &it.Description, &it.Amount); err != nil {
			return nil, fmt.Errorf("scan book item: %w", err)
		}
		it.Date, _ = ledger.ParseDate(date)
		items = append(items, it)
	}
	return items, rows.Err()
}

func insertMatch(ctx context.Context, tx *sql.Tx, reconID string, m ledger.Match) error {
	m.ID = newID()
	_, err := tx.ExecContext(ctx,
		`INSERT INTO reconciliation_matches (id, reconciliation_id, imported_row_id, journal_line_id, match_type, bank_amount, book_amount, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, reconID, m.ImportedRowID, nullString(m.JournalLineID), string(m.Kind), m.BankAmount, m.BookAmount, formatTime(now()),
	)
	if err != nil {
		return fmt.Errorf("insert match: %w", err)
	}
	return nil
}

func findBank(items []ledger.BankItem, id string) (ledger.BankItem, bool) {
	for _, it := range items {
		if it.RowID == id {
			return it, true
		}
	}
	return ledger.BankItem{}, false
}

func findBook(items []ledger.BookItem, id string) (ledger.BookItem, bool) {
	for _, it := range items {
		if it.LineID == id {
			return it, true
		}
	}
	return ledger.BookItem{}, false
}
