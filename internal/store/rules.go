package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/simonvc/propledger/internal/ledger"
)

const ruleColumns = `id, name, match_field, match_type, match_value, category_id, COALESCE(property_id, ''), priority, is_active, created_at`

func (s *Store) CreateRule(ctx context.Context, rule *ledger.ClassificationRule) (*ledger.ClassificationRule, error) {
	r := *rule
	r.ID = newID()
	r.CreatedAt = now()
	if err := r.Validate(); err != nil {
		return nil, err
	}
	err := s.write(ctx, nil, func(tx *sql.Tx) error {
		if _, err := postableAccount(ctx, tx, r.CategoryID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO classification_rules (id, name, match_field, match_type, match_value, category_id, property_id, priority, is_active, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, r.Name, string(r.MatchField), string(r.MatchType), r.MatchValue, r.CategoryID, nullString(r.PropertyID),
			r.Priority, boolToInt(r.IsActive), formatTime(r.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert rule: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("classification rule created", "rule_id", r.ID, "match", r.MatchValue)
	return s.GetRule(ctx, r.ID)
}

func (s *Store) UpdateRule(ctx context.Context, id string, patch ledger.RulePatch) (*ledger.ClassificationRule, error) {
	err := s.write(ctx, []string{ruleKey(id)}, func(tx *sql.Tx) error {
		r, err := getRule(ctx, tx, id)
		if err != nil {
			return err
		}
		patch.Apply(r)
		if err := r.Validate(); err != nil {
			return err
		}
		if patch.CategoryID != nil {
			if _, err := postableAccount(ctx, tx, r.CategoryID); err != nil {
				return err
			}
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE classification_rules SET name = ?, match_field = ?, match_type = ?, match_value = ?, category_id = ?, property_id = ?,
				priority = ?, is_active = ?
			 WHERE id = ?`,
			r.Name, string(r.MatchField), string(r.MatchType), r.MatchValue, r.CategoryID, nullString(r.PropertyID),
			r.Priority, boolToInt(r.IsActive), r.ID,
		)
		if err != nil {
			return fmt.Errorf("update rule: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetRule(ctx, id)
}

func (s *Store) DeleteRule(ctx context.Context, id string) error {
	return s.write(ctx, []string{ruleKey(id)}, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM classification_rules WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete rule: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ledger.NotFoundf("classification rule %s not found", id)
		}
		return nil
	})
}

func (s *Store) GetRule(ctx context.Context, id string) (*ledger.ClassificationRule, error) {
	return getRule(ctx, s.reader, id)
}

// ListRules returns every rule in evaluation order.
func (s *Store) ListRules(ctx context.Context) ([]ledger.ClassificationRule, error) {
	return listRules(ctx, s.reader)
}

// Classify runs the active rules against row and returns the first match,
// or nil.
func (s *Store) Classify(ctx context.Context, row *ledger.ImportedRow) (*ledger.ClassificationRule, error) {
	rules, err := listRules(ctx, s.reader)
	if err != nil {
		return nil, err
	}
	return ledger.NewClassifier(rules).Classify(row), nil
}

func listRules(ctx context.Context, q queryer) ([]ledger.ClassificationRule, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+ruleColumns+` FROM classification_rules ORDER BY priority, created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()
	rules := []ledger.ClassificationRule{}
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *r)
	}
	return rules, rows.Err()
}

func getRule(ctx context.Context, q queryer, id string) (*ledger.ClassificationRule, error) {
	row := q.QueryRowContext(ctx, `SELECT `+ruleColumns+` FROM classification_rules WHERE id = ?`, id)
	r, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.NotFoundf("classification rule %s not found", id)
	}
	return r, err
}

func scanRule(r rowScanner) (*ledger.ClassificationRule, error) {
	var rule ledger.ClassificationRule
	var isActive int
	var createdAt string
	err := r.Scan(&rule.ID, &rule.Name, &rule.MatchField, &rule.MatchType, &rule.MatchValue, &rule.CategoryID, &rule.PropertyID,
		&rule.Priority, &isActive, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan rule: %w", err)
	}
	rule.IsActive = isActive == 1
	rule.CreatedAt = parseTime(createdAt)
	return &rule, nil
}
