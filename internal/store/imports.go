package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/simonvc/propledger/internal/importer"
	"github.com/simonvc/propledger/internal/ledger"
)

const rowColumns = `r.id, r.batch_id, r.row_no, r.txn_date, r.description, r.amount, r.reference, COALESCE(r.category_id, ''),
	COALESCE(r.property_id, ''), COALESCE(r.rule_id, ''), r.status, r.is_duplicate, COALESCE(r.journal_entry_id, '')`

// CreateBatch stores an uploaded statement for accountID, reads its header
// row and suggests a column mapping. Rows are produced once the mapping is
// confirmed.
func (s *Store) CreateBatch(ctx context.Context, accountID, fileName string, content []byte) (*ledger.ImportBatch, error) {
	f, err := importer.Read(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	b := ledger.ImportBatch{
		ID:               newID(),
		AccountID:        accountID,
		FileName:         fileName,
		Headers:          f.Headers,
		SuggestedMapping: ledger.DetectMapping(f.Headers),
		Status:           ledger.BatchUploaded,
		CreatedAt:        now(),
	}
	err = s.write(ctx, nil, func(tx *sql.Tx) error {
		if err := checkBankAccount(ctx, tx, accountID); err != nil {
			return err
		}
		headers, _ := json.Marshal(b.Headers)
		mapping, _ := json.Marshal(b.Mapping)
		suggested, _ := json.Marshal(b.SuggestedMapping)
		_, err := tx.ExecContext(ctx,
			`INSERT INTO import_batches (id, account_id, file_name, content, headers, column_mapping, suggested_mapping, status, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			b.ID, b.AccountID, b.FileName, content, string(headers), string(mapping), string(suggested), string(b.Status), formatTime(b.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert batch: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("import batch uploaded", "batch_id", b.ID, "file", fileName, "rows", len(f.Records))
	return s.GetBatch(ctx, b.ID)
}

// ConfirmMapping parses every row of the batch with mapping, flags rows
// that look like already-booked transactions and classifies the rest.
// Parsing is all-or-nothing. Re-mapping replaces the rows and is refused
// once any row of the batch is booked.
func (s *Store) ConfirmMapping(ctx context.Context, batchID string, mapping ledger.ColumnMapping) (*ledger.ImportBatch, error) {
	var parsed int
	err := s.write(ctx, []string{batchKey(batchID)}, func(tx *sql.Tx) error {
		b, content, err := getBatch(ctx, tx, batchID)
		if err != nil {
			return err
		}
		var booked, inUse int
		err = tx.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(r.status = 'booked'), 0),
				(SELECT COUNT(*) FROM reconciliation_matches m JOIN imported_rows x ON x.id = m.imported_row_id WHERE x.batch_id = ?)
			 FROM imported_rows r WHERE r.batch_id = ?`, batchID, batchID).Scan(&booked, &inUse)
		if err != nil {
			return fmt.Errorf("check batch rows: %w", err)
		}
		if booked > 0 {
			return ledger.InvalidStatef("batch %s has booked rows; the mapping can no longer change", batchID)
		}
		if inUse > 0 {
			return ledger.InvalidStatef("batch %s has rows used by a reconciliation", batchID)
		}

		f, err := importer.Read(bytes.NewReader(content))
		if err != nil {
			return err
		}
		rows, err := f.Parse(mapping, s.currency)
		if err != nil {
			return err
		}

		seen, err := bookedKeys(ctx, tx)
		if err != nil {
			return err
		}
		rules, err := listRules(ctx, tx)
		if err != nil {
			return err
		}
		classifier := ledger.NewClassifier(rules)

		if _, err := tx.ExecContext(ctx, `DELETE FROM imported_rows WHERE batch_id = ?`, batchID); err != nil {
			return fmt.Errorf("clear rows: %w", err)
		}
		for i := range rows {
			r := &rows[i]
			r.ID = newID()
			r.BatchID = batchID
			r.IsDuplicate = seen[r.DuplicateKey()]
			classifier.Apply(r)
			if err := insertRow(ctx, tx, r); err != nil {
				return err
			}
		}

		encoded, _ := json.Marshal(mapping)
		_, err = tx.ExecContext(ctx, `UPDATE import_batches SET column_mapping = ?, status = ? WHERE id = ?`,
			string(encoded), string(ledger.BatchMapped), b.ID)
		if err != nil {
			return fmt.Errorf("update batch: %w", err)
		}
		parsed = len(rows)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("import mapping confirmed", "batch_id", batchID, "rows", parsed)
	return s.GetBatch(ctx, batchID)
}

// UpdateRow edits a row that has not been booked.
func (s *Store) UpdateRow(ctx context.Context, rowID string, patch ledger.RowPatch) (*ledger.ImportedRow, error) {
	batchID, err := rowBatch(ctx, s.reader, rowID)
	if err != nil {
		return nil, err
	}
	err = s.write(ctx, []string{batchKey(batchID)}, func(tx *sql.Tx) error {
		r, err := getRow(ctx, tx, rowID)
		if err != nil {
			return err
		}
		if r.Status == ledger.RowBooked {
			return ledger.InvalidStatef("row %d is booked and cannot be edited", r.RowNo)
		}
		if patch.Status != nil && *patch.Status == ledger.RowBooked {
			return ledger.InvalidStatef("rows are booked through the batch, not by editing")
		}
		if patch.CategoryID != nil && *patch.CategoryID != "" {
			if _, err := postableAccount(ctx, tx, *patch.CategoryID); err != nil {
				return err
			}
		}
		if err := patch.Apply(r); err != nil {
			return err
		}
		return saveRow(ctx, tx, r)
	})
	if err != nil {
		return nil, err
	}
	return getRow(ctx, s.reader, rowID)
}

// BulkApprove approves each row, filling in defaultCategory where a row has
// none. Rows that cannot be approved are reported and left unchanged. An
// unusable defaultCategory fails the whole call.
func (s *Store) BulkApprove(ctx context.Context, rowIDs []string, defaultCategory string) (*ledger.BulkApproveResult, error) {
	res := &ledger.BulkApproveResult{Failed: []ledger.RowFailure{}}
	var keys []string
	for _, id := range rowIDs {
		batchID, err := rowBatch(ctx, s.reader, id)
		if err != nil {
			res.Failed = append(res.Failed, ledger.RowFailure{RowID: id, Error: err.Error()})
			continue
		}
		keys = append(keys, batchKey(batchID))
	}
	err := s.write(ctx, keys, func(tx *sql.Tx) error {
		if defaultCategory != "" {
			if _, err := postableAccount(ctx, tx, defaultCategory); err != nil {
				return err
			}
		}
		for _, id := range rowIDs {
			r, err := getRow(ctx, tx, id)
			if errors.Is(err, ledger.ErrNotFound) {
				continue // already reported
			}
			if err != nil {
				return err
			}
			if r.CategoryID == "" {
				r.CategoryID = defaultCategory
			}
			if err := ledger.CheckRowTransition(r.Status, ledger.RowApproved); err != nil {
				res.Failed = append(res.Failed, ledger.RowFailure{RowID: r.ID, RowNo: r.RowNo, Error: err.Error()})
				continue
			}
			r.Status = ledger.RowApproved
			if err := saveRow(ctx, tx, r); err != nil {
				return err
			}
			res.Approved++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Book posts one entry per approved row of the batch. Each row is booked
// in its own transaction; failures are reported per row and leave the row
// approved.
func (s *Store) Book(ctx context.Context, batchID string) (*ledger.BookResult, error) {
	unlock, err := s.locks.Lock(ctx, batchKey(batchID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	b, err := s.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	res := &ledger.BookResult{EntryIDs: []string{}, Failed: []ledger.RowFailure{}}
	for _, r := range b.Rows {
		if r.Status != ledger.RowApproved {
			continue
		}
		entryID, err := s.bookRow(ctx, b.AccountID, r)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.log.Warn("import row not booked", "batch_id", batchID, "row_no", r.RowNo, "error", err)
			res.Failed = append(res.Failed, ledger.RowFailure{RowID: r.ID, RowNo: r.RowNo, Error: err.Error()})
			continue
		}
		res.Booked++
		res.EntryIDs = append(res.EntryIDs, entryID)
	}
	s.log.Info("import batch booked", "batch_id", batchID, "booked", res.Booked, "failed", len(res.Failed))
	return res, nil
}

func (s *Store) bookRow(ctx context.Context, bankAccountID string, r ledger.ImportedRow) (string, error) {
	e, err := r.Entry(bankAccountID)
	if err != nil {
		return "", err
	}
	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := insertEntry(ctx, tx, &e); err != nil {
		return "", err
	}
	if err := postEntry(ctx, tx, &e); err != nil {
		return "", err
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE imported_rows SET status = 'booked', journal_entry_id = ? WHERE id = ? AND status = 'approved'`, e.ID, r.ID)
	if err != nil {
		return "", fmt.Errorf("mark booked: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return "", ledger.InvalidStatef("row %d is no longer approved", r.RowNo)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return e.ID, nil
}

func (s *Store) GetBatch(ctx context.Context, id string) (*ledger.ImportBatch, error) {
	b, _, err := getBatch(ctx, s.reader, id)
	if err != nil {
		return nil, err
	}
	rows, err := s.reader.QueryContext(ctx, `SELECT `+rowColumns+` FROM imported_rows r WHERE r.batch_id = ? ORDER BY r.row_no`, id)
	if err != nil {
		return nil, fmt.Errorf("list rows: %w", err)
	}
	defer rows.Close()
	b.Rows = []ledger.ImportedRow{}
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		b.Rows = append(b.Rows, *r)
	}
	return b, rows.Err()
}

// ListBatches returns batch headers, newest first, without rows.
func (s *Store) ListBatches(ctx context.Context) ([]ledger.ImportBatch, error) {
	rows, err := s.reader.QueryContext(ctx,
		`SELECT id, account_id, file_name, headers, column_mapping, suggested_mapping, status, created_at
		 FROM import_batches ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()
	batches := []ledger.ImportBatch{}
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, *b)
	}
	return batches, rows.Err()
}

func (s *Store) GetRow(ctx context.Context, id string) (*ledger.ImportedRow, error) {
	return getRow(ctx, s.reader, id)
}

// checkBankAccount requires an existing asset account for statements and
// reconciliations.
func checkBankAccount(ctx context.Context, q queryer, id string) error {
	if id == "" {
		return ledger.Validationf("account_id is required")
	}
	a, err := getAccount(ctx, q, id)
	if errors.Is(err, ledger.ErrNotFound) {
		return ledger.Validationf("account %s does not exist", id)
	}
	if err != nil {
		return err
	}
	if a.Type != ledger.AccountTypeAsset {
		return ledger.Validationf("account %s (%s) is a %s account; an asset account is required", a.Code, a.Name, a.Type)
	}
	return nil
}

// bookedKeys returns the duplicate keys of every booked row.
func bookedKeys(ctx context.Context, q queryer) (map[string]bool, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+rowColumns+` FROM imported_rows r WHERE r.status = 'booked'`)
	if err != nil {
		return nil, fmt.Errorf("booked rows: %w", err)
	}
	defer rows.Close()
	keys := make(map[string]bool)
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		keys[r.DuplicateKey()] = true
	}
	return keys, rows.Err()
}

func insertRow(ctx context.Context, tx *sql.Tx, r *ledger.ImportedRow) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO imported_rows (id, batch_id, row_no, txn_date, description, amount, reference, category_id, property_id, rule_id, status, is_duplicate)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.BatchID, r.RowNo, r.Date.String(), r.Description, r.Amount, r.Reference,
		nullString(r.CategoryID), nullString(r.PropertyID), nullString(r.RuleID), string(r.Status), boolToInt(r.IsDuplicate),
	)
	if err != nil {
		return fmt.Errorf("insert row %d: %w", r.RowNo, err)
	}
	return nil
}

func saveRow(ctx context.Context, tx *sql.Tx, r *ledger.ImportedRow) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE imported_rows SET txn_date = ?, description = ?, amount = ?, reference = ?, category_id = ?, property_id = ?, status = ?
		 WHERE id = ?`,
		r.Date.String(), r.Description, r.Amount, r.Reference, nullString(r.CategoryID), nullString(r.PropertyID), string(r.Status), r.ID,
	)
	if err != nil {
		return fmt.Errorf("update row %d: %w", r.RowNo, err)
	}
	return nil
}

func rowBatch(ctx context.Context, q queryer, rowID string) (string, error) {
	var batchID string
	err := q.QueryRowContext(ctx, `SELECT batch_id FROM imported_rows WHERE id = ?`, rowID).Scan(&batchID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ledger.NotFoundf("imported row %s not found", rowID)
	}
	if err != nil {
		return "", fmt.Errorf("row batch: %w", err)
	}
	return batchID, nil
}

func getRow(ctx context.Context, q queryer, id string) (*ledger.ImportedRow, error) {
	row := q.QueryRowContext(ctx, `SELECT `+rowColumns+` FROM imported_rows r WHERE r.id = ?`, id)
	r, err := scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.NotFoundf("imported row %s not found", id)
	}
	return r, err
}

func getBatch(ctx context.Context, q queryer, id string) (*ledger.ImportBatch, []byte, error) {
	var content []byte
	row := q.QueryRowContext(ctx,
		`SELECT id, account_id, file_name, headers, column_mapping, suggested_mapping, status, created_at, content
		 FROM import_batches WHERE id = ?`, id)
	b, err := scanBatch(row, &content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ledger.NotFoundf("import batch %s not found", id)
	}
	if err != nil {
		return nil, nil, err
	}
	return b, content, nil
}

func scanBatch(r rowScanner, extra ...any) (*ledger.ImportBatch, error) {
	var b ledger.ImportBatch
	var headers, mapping, suggested, createdAt string
	dest := []any{&b.ID, &b.AccountID, &b.FileName, &headers, &mapping, &suggested, &b.Status, &createdAt}
	err := r.Scan(append(dest, extra...)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan batch: %w", err)
	}
	if err := json.Unmarshal([]byte(headers), &b.Headers); err != nil {
		return nil, fmt.Errorf("decode headers: %w", err)
	}
	if err := json.Unmarshal([]byte(mapping), &b.Mapping); err != nil {
		return nil, fmt.Errorf("decode mapping: %w", err)
	}
	if err := json.Unmarshal([]byte(suggested), &b.SuggestedMapping); err != nil {
		return nil, fmt.Errorf("decode suggested mapping: %w", err)
	}
	b.CreatedAt = parseTime(createdAt)
	return &b, nil
}

func scanRow(r rowScanner) (*ledger.ImportedRow, error) {
	var row ledger.ImportedRow
	var date string
	var dup int
	err := r.Scan(&row.ID, &row.BatchID, &row.RowNo, &date, &row.Description, &row.Amount, &row.Reference, &row.CategoryID,
		&row.PropertyID, &row.RuleID, &row.Status, &dup, &row.JournalEntryID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan row: %w", err)
	}
	row.Date, _ = ledger.ParseDate(date)
	row.IsDuplicate = dup == 1
	return &row, nil
}
