package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/simonvc/propledger/internal/ledger"
)

// SeedDefaultChart installs ledger.DefaultChart into an empty chart of
// accounts. It reports how many accounts were created; a chart that
// already has accounts is left alone.
func (s *Store) SeedDefaultChart(ctx context.Context) (int, error) {
	var created int
	err := s.write(ctx, nil, func(tx *sql.Tx) error {
		var existing int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&existing); err != nil {
			return fmt.Errorf("count accounts: %w", err)
		}
		if existing > 0 {
			return nil
		}

		ids := make(map[string]string, len(ledger.DefaultChart))
		for _, ce := range ledger.DefaultChart {
			id := newID()
			parent := ""
			if ce.ParentCode != "" {
				p, ok := ids[ce.ParentCode]
				if !ok {
					return fmt.Errorf("chart entry %s: parent %s must come first", ce.Code, ce.ParentCode)
				}
				parent = p
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO accounts (id, code, name, account_type, normal_balance, parent_id, is_header, is_active, description, created_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
				id, ce.Code, ce.Name, string(ce.Type), string(ledger.DefaultNormalBalance(ce.Type)), nullString(parent),
				boolToInt(ce.IsHeader), ce.Description, formatTime(now()),
			)
			if err != nil {
				return fmt.Errorf("seed %s: %w", ce.Code, err)
			}
			ids[ce.Code] = id
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if created > 0 {
		s.log.Info("default chart seeded", "accounts", created)
	}
	return created, nil
}
