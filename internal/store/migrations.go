package store

import (
	"context"
	"database/sql"
	"fmt"
)

func (s *Store) migrate(ctx context.Context) error {
	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Create schema version table
	if _, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		)
	`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	var version int
	err = tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	if version < 1 {
		if err := migrateV1(ctx, tx); err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
		s.log.Info("schema migrated", "version", 1)
	}

	return tx.Commit()
}

func migrateV1(ctx context.Context, tx *sql.Tx) error {
	stmts := []string{
		// Chart of accounts. parent_id is a weak reference: a missing parent
		// makes the account a root rather than failing a constraint.
		`CREATE TABLE IF NOT EXISTS accounts (
			id             TEXT PRIMARY KEY,
			code           TEXT NOT NULL DEFAULT '',
			name           TEXT NOT NULL,
			account_type   TEXT NOT NULL CHECK (account_type IN ('asset','liability','equity','revenue','expense')),
			normal_balance TEXT NOT NULL CHECK (normal_balance IN ('debit','credit')),
			parent_id      TEXT,
			is_header      INTEGER NOT NULL DEFAULT 0,
			is_active      INTEGER NOT NULL DEFAULT 1,
			description    TEXT NOT NULL DEFAULT '',
			created_at     TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_accounts_parent ON accounts(parent_id)`,
		`CREATE INDEX IF NOT EXISTS idx_accounts_code ON accounts(code)`,

		// Journal entries
		`CREATE TABLE IF NOT EXISTS journal_entries (
			id          TEXT PRIMARY KEY,
			memo        TEXT NOT NULL DEFAULT '',
			entry_date  TEXT NOT NULL,
			source_type TEXT NOT NULL CHECK (source_type IN ('manual','rent_payment','expense','late_fee','import','recurring','transfer','deposit')),
			status      TEXT NOT NULL DEFAULT 'draft' CHECK (status IN ('draft','posted','reversed','voided')),
			property_id TEXT,
			reversal_of TEXT REFERENCES journal_entries(id),
			reversed_by TEXT REFERENCES journal_entries(id),
			created_at  TEXT NOT NULL,
			posted_at   TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_date ON journal_entries(entry_date)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_status ON journal_entries(status)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_property ON journal_entries(property_id)`,

		`CREATE TABLE IF NOT EXISTS journal_lines (
			id          TEXT PRIMARY KEY,
			entry_id    TEXT NOT NULL REFERENCES journal_entries(id),
			line_no     INTEGER NOT NULL,
			account_id  TEXT NOT NULL REFERENCES accounts(id),
			debit       INTEGER NOT NULL DEFAULT 0 CHECK (debit >= 0),
			credit      INTEGER NOT NULL DEFAULT 0 CHECK (credit >= 0),
			description TEXT NOT NULL DEFAULT '',
			CHECK (debit = 0 OR credit = 0)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_lines_entry ON journal_lines(entry_id)`,
		`CREATE INDEX IF NOT EXISTS idx_lines_account ON journal_lines(account_id)`,

		// Trigger: only the legal status moves
		`CREATE TRIGGER IF NOT EXISTS trg_entry_status_transition
		BEFORE UPDATE OF status ON journal_entries
		WHEN NEW.status != OLD.status AND NOT (
			(OLD.status = 'draft' AND NEW.status IN ('posted','voided')) OR
			(OLD.status = 'posted' AND NEW.status = 'reversed'))
		BEGIN
			SELECT RAISE(ABORT, 'illegal journal entry status change');
		END`,

		// Trigger: prevent posting an unbalanced entry
		`CREATE TRIGGER IF NOT EXISTS trg_check_balance
		BEFORE UPDATE OF status ON journal_entries
		WHEN NEW.status = 'posted' AND OLD.status = 'draft'
		BEGIN
			SELECT CASE
				WHEN (SELECT COUNT(*) FROM journal_lines WHERE entry_id = NEW.id) < 2
					OR (SELECT COALESCE(SUM(debit), 0) FROM journal_lines WHERE entry_id = NEW.id) = 0
					OR (SELECT COALESCE(SUM(debit), 0) - COALESCE(SUM(credit), 0) FROM journal_lines WHERE entry_id = NEW.id) != 0
				THEN RAISE(ABORT, 'journal entry does not balance')
			END;
		END`,

		// Trigger: lines are frozen once the entry leaves draft
		`CREATE TRIGGER IF NOT EXISTS trg_immutable_lines_insert
		BEFORE INSERT ON journal_lines
		WHEN (SELECT status FROM journal_entries WHERE id = NEW.entry_id) != 'draft'
		BEGIN
			SELECT RAISE(ABORT, 'cannot add lines to a non-draft entry');
		END`,

		`CREATE TRIGGER IF NOT EXISTS trg_immutable_lines_delete
		BEFORE DELETE ON journal_lines
		WHEN (SELECT status FROM journal_entries WHERE id = OLD.entry_id) != 'draft'
		BEGIN
			SELECT RAISE(ABORT, 'cannot remove lines from a non-draft entry');
		END`,

		`CREATE TRIGGER IF NOT EXISTS trg_immutable_lines_update
		BEFORE UPDATE ON journal_lines
		WHEN (SELECT status FROM journal_entries WHERE id = OLD.entry_id) != 'draft'
		BEGIN
			SELECT RAISE(ABORT, 'cannot modify lines of a non-draft entry');
		END`,

		// Recurring templates
		`CREATE TABLE IF NOT EXISTS recurring_templates (
			id                TEXT PRIMARY KEY,
			name              TEXT NOT NULL,
			description       TEXT NOT NULL DEFAULT '',
			frequency         TEXT NOT NULL CHECK (frequency IN ('weekly','monthly','quarterly','annually')),
			amount            INTEGER NOT NULL CHECK (amount > 0),
			debit_account_id  TEXT NOT NULL,
			credit_account_id TEXT NOT NULL,
			property_id       TEXT,
			start_date        TEXT NOT NULL,
			end_date          TEXT,
			next_run_date     TEXT NOT NULL,
			last_run_date     TEXT,
			is_active         INTEGER NOT NULL DEFAULT 1,
			created_at        TEXT NOT NULL,
			CHECK (debit_account_id != credit_account_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_templates_next_run ON recurring_templates(is_active, next_run_date)`,

		// Import batches keep the raw file so the mapping can be re-applied.
		`CREATE TABLE IF NOT EXISTS import_batches (
			id                TEXT PRIMARY KEY,
			account_id        TEXT NOT NULL REFERENCES accounts(id),
			file_name         TEXT NOT NULL DEFAULT '',
			content           BLOB NOT NULL,
			headers           TEXT NOT NULL,
			column_mapping    TEXT NOT NULL DEFAULT '{}',
			suggested_mapping TEXT NOT NULL DEFAULT '{}',
			status            TEXT NOT NULL DEFAULT 'uploaded' CHECK (status IN ('uploaded','mapped')),
			created_at        TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS imported_rows (
			id               TEXT PRIMARY KEY,
			batch_id         TEXT NOT NULL REFERENCES import_batches(id),
			row_no           INTEGER NOT NULL,
			txn_date         TEXT NOT NULL,
			description      TEXT NOT NULL DEFAULT '',
			amount           INTEGER NOT NULL,
			reference        TEXT NOT NULL DEFAULT '',
			category_id      TEXT,
			property_id      TEXT,
			rule_id          TEXT,
			status           TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending','approved','skipped','booked')),
			is_duplicate     INTEGER NOT NULL DEFAULT 0,
			journal_entry_id TEXT REFERENCES journal_entries(id),
			UNIQUE (batch_id, row_no)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rows_status ON imported_rows(status)`,

		// Trigger: booked rows are frozen
		`CREATE TRIGGER IF NOT EXISTS trg_booked_rows_frozen
		BEFORE UPDATE ON imported_rows
		WHEN OLD.status = 'booked'
		BEGIN
			SELECT RAISE(ABORT, 'cannot modify a booked row');
		END`,

		`CREATE TRIGGER IF NOT EXISTS trg_booked_rows_delete
		BEFORE DELETE ON imported_rows
		WHEN OLD.status = 'booked'
		BEGIN
			SELECT RAISE(ABORT, 'cannot remove a booked row');
		END`,

		// Classification rules
		`CREATE TABLE IF NOT EXISTS classification_rules (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL DEFAULT '',
			match_field TEXT NOT NULL CHECK (match_field IN ('description','reference')),
			match_type  TEXT NOT NULL CHECK (match_type IN ('contains','starts_with','exact')),
			match_value TEXT NOT NULL,
			category_id TEXT NOT NULL,
			property_id TEXT,
			priority    INTEGER NOT NULL DEFAULT 0,
			is_active   INTEGER NOT NULL DEFAULT 1,
			created_at  TEXT NOT NULL
		)`,

		// Reconciliations
		`CREATE TABLE IF NOT EXISTS reconciliations (
			id                       TEXT PRIMARY KEY,
			account_id               TEXT NOT NULL REFERENCES accounts(id),
			start_date               TEXT NOT NULL,
			end_date                 TEXT NOT NULL,
			statement_ending_balance INTEGER NOT NULL,
			beginning_balance        INTEGER NOT NULL DEFAULT 0,
			status                   TEXT NOT NULL DEFAULT 'in_progress' CHECK (status IN ('in_progress','completed')),
			created_at               TEXT NOT NULL,
			completed_at             TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_recons_account ON reconciliations(account_id, status, end_date)`,

		`CREATE TABLE IF NOT EXISTS reconciliation_matches (
			id                TEXT PRIMARY KEY,
			reconciliation_id TEXT NOT NULL REFERENCES reconciliations(id),
			imported_row_id   TEXT NOT NULL REFERENCES imported_rows(id),
			journal_line_id   TEXT REFERENCES journal_lines(id),
			match_type        TEXT NOT NULL CHECK (match_type IN ('matched','excluded')),
			bank_amount       INTEGER NOT NULL,
			book_amount       INTEGER NOT NULL DEFAULT 0,
			created_at        TEXT NOT NULL,
			UNIQUE (reconciliation_id, imported_row_id),
			CHECK ((match_type = 'matched') = (journal_line_id IS NOT NULL))
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_matches_line ON reconciliation_matches(reconciliation_id, journal_line_id)
			WHERE journal_line_id IS NOT NULL`,

		// Trigger: completed reconciliations are frozen
		`CREATE TRIGGER IF NOT EXISTS trg_completed_recon_insert
		BEFORE INSERT ON reconciliation_matches
		WHEN (SELECT status FROM reconciliations WHERE id = NEW.reconciliation_id) = 'completed'
		BEGIN
			SELECT RAISE(ABORT, 'cannot change a completed reconciliation');
		END`,

		`CREATE TRIGGER IF NOT EXISTS trg_completed_recon_delete
		BEFORE DELETE ON reconciliation_matches
		WHEN (SELECT status FROM reconciliations WHERE id = OLD.reconciliation_id) = 'completed'
		BEGIN
			SELECT RAISE(ABORT, 'cannot change a completed reconciliation');
		END`,

		// Record schema version
		`INSERT INTO schema_version (version) VALUES (1)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}
