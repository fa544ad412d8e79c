package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/simonvc/propledger/internal/ledger"
)

const accountColumns = `a.id, a.code, a.name, a.account_type, a.normal_balance, COALESCE(a.parent_id, ''), a.is_header, a.is_active, a.description, a.created_at`

func (s *Store) CreateAccount(ctx context.Context, acct *ledger.Account) (*ledger.Account, error) {
	a := *acct
	a.Children = nil
	if a.ID == "" {
		a.ID = newID()
	}
	a.Code = strings.TrimSpace(a.Code)
	a.Name = strings.TrimSpace(a.Name)
	if a.NormalBalance == "" {
		a.NormalBalance = ledger.DefaultNormalBalance(a.Type)
	}
	a.IsActive = true
	a.CreatedAt = now()
	if err := a.Validate(); err != nil {
		return nil, err
	}

	err := s.write(ctx, []string{accountKey(a.ID)}, func(tx *sql.Tx) error {
		if _, err := getAccount(ctx, tx, a.ID); err == nil {
			return ledger.Conflictf("account %s already exists", a.ID)
		}
		if err := checkAccountCode(ctx, tx, a.ID, a.Code); err != nil {
			return err
		}
		if a.ParentID != "" {
			if _, err := getAccount(ctx, tx, a.ParentID); err != nil {
				if errors.Is(err, ledger.ErrNotFound) {
					return ledger.Validationf("parent account %s does not exist", a.ParentID)
				}
				return err
			}
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO accounts (id, code, name, account_type, normal_balance, parent_id, is_header, is_active, description, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, a.Code, a.Name, string(a.Type), string(a.NormalBalance), nullString(a.ParentID),
			boolToInt(a.IsHeader), boolToInt(a.IsActive), a.Description, formatTime(a.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert account: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("account created", "account_id", a.ID, "code", a.Code, "name", a.Name)
	return s.GetAccount(ctx, a.ID)
}

// UpdateAccount applies patch. Re-parenting is refused when the new parent
// is missing or is the account itself or one of its descendants.
func (s *Store) UpdateAccount(ctx context.Context, id string, patch ledger.AccountPatch) (*ledger.Account, error) {
	err := s.write(ctx, []string{accountKey(id)}, func(tx *sql.Tx) error {
		a, err := getAccount(ctx, tx, id)
		if err != nil {
			return err
		}
		patch.Apply(a)
		if err := a.Validate(); err != nil {
			return err
		}
		if patch.Code != nil {
			if err := checkAccountCode(ctx, tx, a.ID, a.Code); err != nil {
				return err
			}
		}
		if patch.ParentID != nil && a.ParentID != "" {
			if _, err := getAccount(ctx, tx, a.ParentID); err != nil {
				if errors.Is(err, ledger.ErrNotFound) {
					return ledger.Validationf("parent account %s does not exist", a.ParentID)
				}
				return err
			}
			parents, err := parentMap(ctx, tx)
			if err != nil {
				return err
			}
			if ledger.CreatesCycle(parents, a.ID, a.ParentID) {
				return ledger.Validationf("moving %s under %s would create a cycle", a.ID, a.ParentID)
			}
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE accounts SET code = ?, name = ?, account_type = ?, normal_balance = ?, parent_id = ?, is_header = ?, description = ?
			 WHERE id = ?`,
			a.Code, a.Name, string(a.Type), string(a.NormalBalance), nullString(a.ParentID), boolToInt(a.IsHeader), a.Description, a.ID,
		)
		if err != nil {
			return fmt.Errorf("update account: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetAccount(ctx, id)
}

func (s *Store) SetAccountActive(ctx context.Context, id string, active bool) (*ledger.Account, error) {
	err := s.write(ctx, []string{accountKey(id)}, func(tx *sql.Tx) error {
		if _, err := getAccount(ctx, tx, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE accounts SET is_active = ? WHERE id = ?`, boolToInt(active), id)
		if err != nil {
			return fmt.Errorf("update account: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("account activation changed", "account_id", id, "active", active)
	return s.GetAccount(ctx, id)
}

// accountRefs counts what still points at an account. Any reference blocks
// deletion.
var accountRefs = []struct {
	what  string
	query string
}{
	{"child accounts", `SELECT COUNT(*) FROM accounts WHERE parent_id = ?`},
	{"journal lines", `SELECT COUNT(*) FROM journal_lines WHERE account_id = ?`},
	{"import batches", `SELECT COUNT(*) FROM import_batches WHERE account_id = ?`},
	{"reconciliations", `SELECT COUNT(*) FROM reconciliations WHERE account_id = ?`},
	{"recurring templates", `SELECT COUNT(*) FROM recurring_templates WHERE ? IN (debit_account_id, credit_account_id)`},
	{"classification rules", `SELECT COUNT(*) FROM classification_rules WHERE category_id = ?`},
	{"imported rows", `SELECT COUNT(*) FROM imported_rows WHERE category_id = ?`},
}

// DeleteAccount hard-deletes an account nothing refers to.
func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	return s.write(ctx, []string{accountKey(id)}, func(tx *sql.Tx) error {
		if _, err := getAccount(ctx, tx, id); err != nil {
			return err
		}
		for _, ref := range accountRefs {
			var n int
			if err := tx.QueryRowContext(ctx, ref.query, id).Scan(&n); err != nil {
				return fmt.Errorf("check %s: %w", ref.what, err)
			}
			if n > 0 {
				return ledger.Conflictf("cannot delete account %s: has %d %s", id, n, ref.what)
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete account: %w", err)
		}
		s.log.Info("account deleted", "account_id", id)
		return nil
	})
}

func (s *Store) GetAccount(ctx context.Context, id string) (*ledger.Account, error) {
	return getAccount(ctx, s.reader, id)
}

// ListAccounts returns the chart flat, in chart order.
func (s *Store) ListAccounts(ctx context.Context, includeInactive bool) ([]ledger.Account, error) {
	accounts, err := listAccounts(ctx, s.reader, includeInactive)
	if err != nil {
		return nil, err
	}
	ledger.SortAccounts(accounts)
	return accounts, nil
}

// AccountTree returns the chart as sorted root accounts with nested
// children. With includeInactive false, children of an inactive account
// surface as roots.
func (s *Store) AccountTree(ctx context.Context, includeInactive bool) ([]ledger.Account, error) {
	accounts, err := listAccounts(ctx, s.reader, includeInactive)
	if err != nil {
		return nil, err
	}
	return ledger.BuildTree(accounts).Roots(), nil
}

func getAccount(ctx context.Context, q queryer, id string) (*ledger.Account, error) {
	row := q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts a WHERE a.id = ?`, id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.NotFoundf("account %s not found", id)
	}
	return a, err
}

func listAccounts(ctx context.Context, q queryer, includeInactive bool) ([]ledger.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts a`
	if !includeInactive {
		query += ` WHERE a.is_active = 1`
	}
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []ledger.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

func parentMap(ctx context.Context, q queryer) (map[string]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, COALESCE(parent_id, '') FROM accounts`)
	if err != nil {
		return nil, fmt.Errorf("load parents: %w", err)
	}
	defer rows.Close()
	parents := make(map[string]string)
	for rows.Next() {
		var id, parent string
		if err := rows.Scan(&id, &parent); err != nil {
			return nil, fmt.Errorf("scan parent: %w", err)
		}
		parents[id] = parent
	}
	return parents, rows.Err()
}

func checkAccountCode(ctx context.Context, q queryer, id, code string) error {
	if code == "" {
		return nil
	}
	var other string
	err := q.QueryRowContext(ctx, `SELECT id FROM accounts WHERE code = ? AND id != ?`, code, id).Scan(&other)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("check code: %w", err)
	}
	return ledger.Conflictf("account code %s is already used by %s", code, other)
}

// postableAccount loads an account and checks that lines may be posted to
// it.
func postableAccount(ctx context.Context, q queryer, id string) (*ledger.Account, error) {
	a, err := getAccount(ctx, q, id)
	if errors.Is(err, ledger.ErrNotFound) {
		return nil, ledger.Validationf("account %s does not exist", id)
	}
	if err != nil {
		return nil, err
	}
	if !a.IsActive {
		return nil, ledger.Validationf("account %s (%s) is inactive", a.Code, a.Name)
	}
	if a.IsHeader {
		return nil, ledger.Validationf("account %s (%s) is a header account", a.Code, a.Name)
	}
	return a, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanAccount reads accountColumns followed by any extra columns.
func scanAccount(r rowScanner, extra ...any) (*ledger.Account, error) {
	var a ledger.Account
	var isHeader, isActive int
	var createdAt string
	dest := []any{&a.ID, &a.Code, &a.Name, &a.Type, &a.NormalBalance, &a.ParentID, &isHeader, &isActive, &a.Description, &createdAt}
	err := r.Scan(append(dest, extra...)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan account: %w", err)
	}
	a.IsHeader = isHeader == 1
	a.IsActive = isActive == 1
	a.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &a, nil
}
