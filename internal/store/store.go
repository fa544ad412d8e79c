package store

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/simonvc/propledger/internal/ledger"
	"github.com/simonvc/propledger/internal/locks"
)

// Store is the engine: every registry, ledger, scheduler, import and
// reconciliation operation runs against it.
type Store struct {
	writer *sql.DB
	reader *sql.DB

	locks    *locks.Table
	clock    ledger.Clock
	log      *slog.Logger
	currency string
}

type Option func(*Store)

// WithClock sets the source of "today" for due dates and default reversal
// dates.
func WithClock(c ledger.Clock) Option {
	return func(s *Store) { s.clock = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithCurrency sets the currency amounts are parsed in.
func WithCurrency(code string) Option {
	return func(s *Store) { s.currency = code }
}

func Open(dbPath string, opts ...Option) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", dbPath)

	writer, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open writer: %w", err)
	}
	writer.SetMaxOpenConns(1)

	reader, err := sql.Open("sqlite", dsn)
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("open reader: %w", err)
	}
	reader.SetMaxOpenConns(runtime.NumCPU())

	s := &Store{
		writer:   writer,
		reader:   reader,
		locks:    locks.New(),
		clock:    ledger.SystemClock{},
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		currency: ledger.DefaultCurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	if !ledger.ValidCurrency(s.currency) {
		s.Close()
		return nil, fmt.Errorf("unsupported currency %q", s.currency)
	}

	if err := s.migrate(context.Background()); err != nil {
		s.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Store) Close() error {
	err1 := s.writer.Close()
	err2 := s.reader.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

func (s *Store) Currency() string { return s.currency }

// Today is the current business day according to the store's clock.
func (s *Store) Today() ledger.Date { return s.clock.Today() }

// queryer is satisfied by both *sql.DB and *sql.Tx so read helpers can run
// inside a write transaction or against the reader pool.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// write takes the aggregate locks named by keys, then runs fn in a single
// writer transaction. Locks are released after commit or rollback.
func (s *Store) write(ctx context.Context, keys []string, fn func(tx *sql.Tx) error) error {
	unlock, err := s.locks.LockAll(ctx, keys...)
	if err != nil {
		return err
	}
	defer unlock()

	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func now() time.Time {
	return time.Now().UTC()
}

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func parseTimePtr(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

// dateArg stores the zero date as NULL.
func dateArg(d ledger.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.String()
}

func scanDate(ns sql.NullString) ledger.Date {
	if !ns.Valid || ns.String == "" {
		return ledger.Date{}
	}
	d, _ := ledger.ParseDate(ns.String)
	return d
}

// nullString stores the empty string as NULL.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func entryKey(id string) string    { return "entry:" + id }
func accountKey(id string) string  { return "account:" + id }
func templateKey(id string) string { return "template:" + id }
func batchKey(id string) string    { return "batch:" + id }
func ruleKey(id string) string     { return "rule:" + id }
func reconKey(id string) string    { return "recon:" + id }
