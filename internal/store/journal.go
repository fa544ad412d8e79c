package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/simonvc/propledger/internal/ledger"
)

const entryColumns = `e.id, e.memo, e.entry_date, e.source_type, e.status, COALESCE(e.property_id, ''),
	COALESCE(e.reversal_of, ''), COALESCE(e.reversed_by, ''), e.created_at, e.posted_at`

// balanceStatuses are the entry statuses whose lines count towards balances.
// A reversed entry stays in the ledger next to its contra-entry.
const balanceStatuses = `('posted','reversed')`

// CreateDraft stores a new draft entry. Balance is not required until post.
func (s *Store) CreateDraft(ctx context.Context, entry *ledger.JournalEntry) (*ledger.JournalEntry, error) {
	e := *entry
	e.Lines = append([]ledger.JournalLine(nil), entry.Lines...)
	if e.SourceType == "" {
		e.SourceType = ledger.SourceManual
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	err := s.write(ctx, nil, func(tx *sql.Tx) error {
		if err := checkLineAccounts(ctx, tx, e.Lines); err != nil {
			return err
		}
		return insertEntry(ctx, tx, &e)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("journal entry drafted", "entry_id", e.ID, "lines", len(e.Lines))
	return s.GetEntry(ctx, e.ID)
}

// UpdateDraftLines replaces the lines of a draft entry.
func (s *Store) UpdateDraftLines(ctx context.Context, id string, lines []ledger.JournalLine) (*ledger.JournalEntry, error) {
	if err := ledger.ValidateLines(lines); err != nil {
		return nil, err
	}
	err := s.write(ctx, []string{entryKey(id)}, func(tx *sql.Tx) error {
		e, err := getEntry(ctx, tx, id)
		if err != nil {
			return err
		}
		if e.Status != ledger.StatusDraft {
			return ledger.InvalidStatef("journal entry %s is %s; only drafts can be edited", id, e.Status)
		}
		if err := checkLineAccounts(ctx, tx, lines); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM journal_lines WHERE entry_id = ?`, id); err != nil {
			return fmt.Errorf("delete lines: %w", err)
		}
		return insertLines(ctx, tx, id, lines)
	})
	if err != nil {
		return nil, err
	}
	return s.GetEntry(ctx, id)
}

// PostEntry moves a balanced draft to posted.
func (s *Store) PostEntry(ctx context.Context, id string) (*ledger.JournalEntry, error) {
	err := s.write(ctx, []string{entryKey(id)}, func(tx *sql.Tx) error {
		e, err := getEntry(ctx, tx, id)
		if err != nil {
			return err
		}
		return postEntry(ctx, tx, e)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("journal entry posted", "entry_id", id)
	return s.GetEntry(ctx, id)
}

// ReverseEntry posts a contra-entry dated date (today when zero) and marks
// the original reversed. Both stay in the ledger and net to zero.
func (s *Store) ReverseEntry(ctx context.Context, id string, date ledger.Date) (*ledger.JournalEntry, error) {
	if date.IsZero() {
		date = s.clock.Today()
	}
	var reversalID string
	err := s.write(ctx, []string{entryKey(id)}, func(tx *sql.Tx) error {
		e, err := getEntry(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := ledger.CheckEntryTransition(e.Status, ledger.StatusReversed); err != nil {
			return err
		}
		rev := e.Reversal(date)
		if err := insertEntry(ctx, tx, &rev); err != nil {
			return err
		}
		if err := markPosted(ctx, tx, rev.ID); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE journal_entries SET status = 'reversed', reversed_by = ? WHERE id = ?`, rev.ID, id)
		if err != nil {
			return fmt.Errorf("mark reversed: %w", err)
		}
		reversalID = rev.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("journal entry reversed", "entry_id", id, "reversal_id", reversalID)
	return s.GetEntry(ctx, id)
}

// VoidEntry abandons a draft.
func (s *Store) VoidEntry(ctx context.Context, id string) (*ledger.JournalEntry, error) {
	err := s.write(ctx, []string{entryKey(id)}, func(tx *sql.Tx) error {
		e, err := getEntry(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := ledger.CheckEntryTransition(e.Status, ledger.StatusVoided); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE journal_entries SET status = 'voided' WHERE id = ?`, id); err != nil {
			return fmt.Errorf("void entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("journal entry voided", "entry_id", id)
	return s.GetEntry(ctx, id)
}

// Record creates and posts a two-line entry for the income, expense and
// transfer shortcuts in one transaction.
func (s *Store) Record(ctx context.Context, kind ledger.RecordKind, p ledger.RecordParams) (*ledger.JournalEntry, error) {
	if p.Date.IsZero() {
		p.Date = s.clock.Today()
	}
	e, err := p.Entry(kind)
	if err != nil {
		return nil, err
	}
	err = s.write(ctx, nil, func(tx *sql.Tx) error {
		if err := insertEntry(ctx, tx, &e); err != nil {
			return err
		}
		return postEntry(ctx, tx, &e)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("journal entry recorded", "entry_id", e.ID, "kind", kind, "amount", p.Amount)
	return s.GetEntry(ctx, e.ID)
}

func (s *Store) GetEntry(ctx context.Context, id string) (*ledger.JournalEntry, error) {
	return getEntry(ctx, s.reader, id)
}

func (s *Store) ListEntries(ctx context.Context, f ledger.EntryFilter) ([]ledger.JournalEntry, error) {
	var where []string
	var args []any
	if f.Status != "" {
		where = append(where, `e.status = ?`)
		args = append(args, string(f.Status))
	}
	if f.SourceType != "" {
		where = append(where, `e.source_type = ?`)
		args = append(args, string(f.SourceType))
	}
	if f.PropertyID != "" {
		where = append(where, `e.property_id = ?`)
		args = append(args, f.PropertyID)
	}
	if f.AccountID != "" {
		where = append(where, `EXISTS (SELECT 1 FROM journal_lines l WHERE l.entry_id = e.id AND l.account_id = ?)`)
		args = append(args, f.AccountID)
	}
	if !f.DateFrom.IsZero() {
		where = append(where, `e.entry_date >= ?`)
		args = append(args, f.DateFrom.String())
	}
	if !f.DateTo.IsZero() {
		where = append(where, `e.entry_date <= ?`)
		args = append(args, f.DateTo.String())
	}

	query := `SELECT ` + entryColumns + ` FROM journal_entries e`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY e.entry_date DESC, e.created_at DESC, e.id DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, f.Limit)
		if f.Offset > 0 {
			query += fmt.Sprintf(` OFFSET %d`, f.Offset)
		}
	}

	rows, err := s.reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	entries := []ledger.JournalEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		entries = append(entries, *e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range entries {
		lines, err := loadLines(ctx, s.reader, entries[i].ID)
		if err != nil {
			return nil, err
		}
		entries[i].Lines = lines
	}
	return entries, nil
}

// LedgerFor returns the posted lines of one account in entry-date order
// with a running balance (debit minus credit) seeded at zero.
func (s *Store) LedgerFor(ctx context.Context, accountID string, f ledger.LedgerFilter) (*ledger.AccountLedger, error) {
	acct, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	lines, err := ledgerLines(ctx, s.reader, accountID, f)
	if err != nil {
		return nil, err
	}
	l := &ledger.AccountLedger{Account: *acct, Lines: lines}
	l.Accumulate()
	return l, nil
}

func ledgerLines(ctx context.Context, q queryer, accountID string, f ledger.LedgerFilter) ([]ledger.LedgerLine, error) {
	query := `SELECT e.id, l.id, e.entry_date, e.memo, l.description, e.source_type, COALESCE(e.property_id, ''), l.debit, l.credit
		FROM journal_lines l
		JOIN journal_entries e ON e.id = l.entry_id
		WHERE l.account_id = ? AND e.status IN ` + balanceStatuses
	args := []any{accountID}
	query, args = appendPeriod(query, args, f.DateFrom, f.DateTo, f.PropertyID)
	query += ` ORDER BY e.entry_date, e.created_at, e.id, l.line_no`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ledger lines: %w", err)
	}
	defer rows.Close()

	lines := []ledger.LedgerLine{}
	for rows.Next() {
		var ll ledger.LedgerLine
		var date string
		if err := rows.Scan(&ll.EntryID, &ll.LineID, &date, &ll.Memo, &ll.Description, &ll.SourceType, &ll.PropertyID, &ll.Debit, &ll.Credit); err != nil {
			return nil, fmt.Errorf("scan ledger line: %w", err)
		}
		ll.EntryDate, _ = ledger.ParseDate(date)
		lines = append(lines, ll)
	}
	return lines, rows.Err()
}

// appendPeriod narrows a query over journal_entries e by date range and
// property.
func appendPeriod(query string, args []any, from, to ledger.Date, propertyID string) (string, []any) {
	if !from.IsZero() {
		query += ` AND e.entry_date >= ?`
		args = append(args, from.String())
	}
	if !to.IsZero() {
		query += ` AND e.entry_date <= ?`
		args = append(args, to.String())
	}
	if propertyID != "" {
		query += ` AND e.property_id = ?`
		args = append(args, propertyID)
	}
	return query, args
}

// TrialBalance nets every account's posted lines dated on or before asOf
// (today when zero) into the debit or credit column.
func (s *Store) TrialBalance(ctx context.Context, asOf ledger.Date) (*ledger.TrialBalance, error) {
	if asOf.IsZero() {
		asOf = s.clock.Today()
	}
	totals, err := accountTotals(ctx, s.reader, ledger.Date{}, asOf, "")
	if err != nil {
		return nil, err
	}

	tb := &ledger.TrialBalance{AsOf: asOf, Lines: []ledger.TrialBalanceLine{}, GeneratedAt: now()}
	for _, t := range totals {
		net := t.debit - t.credit
		if net == 0 {
			continue
		}
		line := ledger.TrialBalanceLine{
			AccountID:   t.account.ID,
			AccountCode: t.account.Code,
			AccountName: t.account.Name,
			AccountType: t.account.Type,
		}
		if net > 0 {
			line.Debit = net
		} else {
			line.Credit = -net
		}
		tb.Lines = append(tb.Lines, line)
		tb.TotalDebit += line.Debit
		tb.TotalCredit += line.Credit
	}
	tb.Balanced = tb.TotalDebit == tb.TotalCredit
	return tb, nil
}

// insertEntry stores e as a draft with its lines, assigning ids.
func insertEntry(ctx context.Context, tx *sql.Tx, e *ledger.JournalEntry) error {
	e.ID = newID()
	e.Status = ledger.StatusDraft
	e.CreatedAt = now()
	e.PostedAt = nil
	_, err := tx.ExecContext(ctx,
		`INSERT INTO journal_entries (id, memo, entry_date, source_type, status, property_id, reversal_of, created_at)
		 VALUES (?, ?, ?, ?, 'draft', ?, ?, ?)`,
		e.ID, e.Memo, e.EntryDate.String(), string(e.SourceType), nullString(e.PropertyID), nullString(e.ReversalOf), formatTime(e.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	if err := insertLines(ctx, tx, e.ID, e.Lines); err != nil {
		return err
	}
	for i := range e.Lines {
		e.Lines[i].EntryID = e.ID
	}
	return nil
}

// checkLineAccounts requires every line account to exist. Drafts may still
// name header or inactive accounts; posting rejects those.
func checkLineAccounts(ctx context.Context, q queryer, lines []ledger.JournalLine) error {
	for _, l := range lines {
		if _, err := getAccount(ctx, q, l.AccountID); err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				return ledger.Validationf("account %s does not exist", l.AccountID)
			}
			return err
		}
	}
	return nil
}

func insertLines(ctx context.Context, tx *sql.Tx, entryID string, lines []ledger.JournalLine) error {
	for i := range lines {
		l := &lines[i]
		l.ID = newID()
		l.LineNo = i + 1
		_, err := tx.ExecContext(ctx,
			`INSERT INTO journal_lines (id, entry_id, line_no, account_id, debit, credit, description) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			l.ID, entryID, l.LineNo, l.AccountID, l.Debit, l.Credit, l.Description,
		)
		if err != nil {
			return fmt.Errorf("insert line %d: %w", l.LineNo, err)
		}
	}
	return nil
}

// postEntry checks e may be posted and moves it to posted. Every line must
// name an existing, active, non-header account.
func postEntry(ctx context.Context, tx *sql.Tx, e *ledger.JournalEntry) error {
	if err := ledger.CheckEntryTransition(e.Status, ledger.StatusPosted); err != nil {
		return err
	}
	if err := e.CheckPostable(); err != nil {
		return err
	}
	for _, l := range e.Lines {
		if _, err := postableAccount(ctx, tx, l.AccountID); err != nil {
			return err
		}
	}
	if err := markPosted(ctx, tx, e.ID); err != nil {
		return err
	}
	e.Status = ledger.StatusPosted
	return nil
}

func markPosted(ctx context.Context, tx *sql.Tx, id string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE journal_entries SET status = 'posted', posted_at = ? WHERE id = ?`, formatTime(now()), id)
	if err != nil {
		return fmt.Errorf("post entry: %w", err)
	}
	return nil
}

func getEntry(ctx context.Context, q queryer, id string) (*ledger.JournalEntry, error) {
	row := q.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM journal_entries e WHERE e.id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.NotFoundf("journal entry %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	e.Lines, err = loadLines(ctx, q, id)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func loadLines(ctx context.Context, q queryer, entryID string) ([]ledger.JournalLine, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, entry_id, line_no, account_id, debit, credit, description FROM journal_lines WHERE entry_id = ? ORDER BY line_no`,
		entryID,
	)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	defer rows.Close()

	lines := []ledger.JournalLine{}
	for rows.Next() {
		var l ledger.JournalLine
		if err := rows.Scan(&l.ID, &l.EntryID, &l.LineNo, &l.AccountID, &l.Debit, &l.Credit, &l.Description); err != nil {
			return nil, fmt.Errorf("scan line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func scanEntry(r rowScanner) (*ledger.JournalEntry, error) {
	var e ledger.JournalEntry
	var date, createdAt string
	var postedAt sql.NullString
	err := r.Scan(&e.ID, &e.Memo, &date, &e.SourceType, &e.Status, &e.PropertyID, &e.ReversalOf, &e.ReversedBy, &createdAt, &postedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan entry: %w", err)
	}
	e.EntryDate, _ = ledger.ParseDate(date)
	e.CreatedAt = parseTime(createdAt)
	e.PostedAt = parseTimePtr(postedAt)
	return &e, nil
}
