package database

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

type dialect struct {
	name   string
	driver string
	goose  goose.Dialect
}

var (
	sqliteDialect   = dialect{name: "sqlite", driver: "sqlite", goose: goose.DialectSQLite3}
	postgresDialect = dialect{name: "postgres", driver: "pgx", goose: goose.DialectPostgres}
)

// rebind rewrites '?' placeholders into the dialect's positional form.
func (d dialect) rebind(query string) string {
	if d.name != postgresDialect.name {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SQLStore is a LedgerStore backed by database/sql (SQLite or Postgres).
type SQLStore struct {
	db               *sql.DB
	dialect          dialect
	connectionString string
}

func NewSQLiteStore(connectionString string) (*SQLStore, error) {
	store, err := openSQLStore(sqliteDialect, connectionString)
	if err != nil {
		return nil, err
	}
	if strings.Contains(connectionString, ":memory:") {
		// every pooled connection would otherwise see its own empty database
		store.db.SetMaxOpenConns(1)
	}
	return store, nil
}

func NewPostgresStore(connectionString string) (*SQLStore, error) {
	return openSQLStore(postgresDialect, connectionString)
}

func openSQLStore(d dialect, connectionString string) (*SQLStore, error) {
	db, err := sql.Open(d.driver, connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", d.name, err)
	}
	return &SQLStore{
		db:               db,
		dialect:          d,
		connectionString: connectionString,
	}, nil
}

func (s *SQLStore) Migrate(ctx context.Context) error {
	return runMigrations(ctx, s.db, s.dialect)
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLStore) RecordEntry(ctx context.Context, entry *Entry, fingerprint *Fingerprint) error {
	if entry.ID == "" {
		id, err := newEntryID()
		if err != nil {
			return err
		}
		entry.ID = id
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	return withTx(ctx, s.db, func(ctx context.Context, tx DBTX) error {
		if fingerprint != nil {
			_, err := tx.ExecContext(ctx, s.dialect.rebind(
				`INSERT INTO fingerprints (hash, sender, metadata, first_seen) VALUES (?, ?, ?, ?)`),
				fingerprint.Hash, fingerprint.Sender, fingerprint.Metadata, fingerprint.FirstSeen.UTC())
			if err != nil {
				return fmt.Errorf("failed to insert fingerprint: %w", err)
			}
		}

		var metadataTime sql.NullTime
		if entry.MetadataTime != nil {
			metadataTime = sql.NullTime{Time: entry.MetadataTime.UTC(), Valid: true}
		}
		_, err := tx.ExecContext(ctx, s.dialect.rebind(
			`INSERT INTO entries (id, sender, period, amount, quantity, ocr_time, metadata_time, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
			entry.ID, entry.Sender, entry.Period, entry.Amount, entry.Quantity,
			entry.OCRTime.UTC(), metadataTime, entry.CreatedAt.UTC())
		if err != nil {
			return fmt.Errorf("failed to insert entry: %w", err)
		}
		return nil
	})
}

func (s *SQLStore) HasFingerprint(ctx context.Context, hash, sender string) (bool, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.rebind(
		`SELECT COUNT(*) FROM fingerprints WHERE hash = ? AND sender = ?`), hash, sender)
	var count int
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *SQLStore) HasValue(ctx context.Context, sender, period string, amount decimal.Decimal, quantity decimal.NullDecimal) (bool, error) {
	query := `SELECT amount, quantity FROM entries WHERE sender = ?`
	args := []any{sender}
	if period != "" {
		query += ` AND period = ?`
		args = append(args, period)
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return false, err
	}
	defer func() {
		_ = rows.Close()
	}()

	// decimal text is not canonical ("12.9" vs "12.90"), so compare values here
	for rows.Next() {
		var entry Entry
		if err := rows.Scan(&entry.Amount, &entry.Quantity); err != nil {
			return false, err
		}
		if entry.SameValue(amount, quantity) {
			return true, nil
		}
	}
	return false, rows.Err()
}

func (s *SQLStore) PeriodTotal(ctx context.Context, sender, period string) (decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(
		`SELECT amount FROM entries WHERE sender = ? AND period = ?`), sender, period)
	if err != nil {
		return decimal.Zero, err
	}
	defer func() {
		_ = rows.Close()
	}()

	total := decimal.Zero
	for rows.Next() {
		var amount decimal.Decimal
		if err := rows.Scan(&amount); err != nil {
			return decimal.Zero, err
		}
		total = total.Add(amount)
	}
	return total, rows.Err()
}

func (s *SQLStore) PeriodTotalsForSender(ctx context.Context, sender string) ([]PeriodTotal, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(
		`SELECT period, amount FROM entries WHERE sender = ?`), sender)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	totals := make(map[string]decimal.Decimal)
	for rows.Next() {
		var period string
		var amount decimal.Decimal
		if err := rows.Scan(&period, &amount); err != nil {
			return nil, err
		}
		totals[period] = totals[period].Add(amount)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sortPeriodTotals(totals), nil
}

func (s *SQLStore) SenderTotals(ctx context.Context, period string) ([]SenderTotal, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(
		`SELECT sender, amount FROM entries WHERE period = ?`), period)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	totals := make(map[string]decimal.Decimal)
	for rows.Next() {
		var sender string
		var amount decimal.Decimal
		if err := rows.Scan(&sender, &amount); err != nil {
			return nil, err
		}
		totals[sender] = totals[sender].Add(amount)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sortSenderTotals(totals), nil
}

func (s *SQLStore) History(ctx context.Context, sender string) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(
		`SELECT id, sender, period, amount, quantity, ocr_time, metadata_time, created_at
		FROM entries WHERE sender = ? ORDER BY created_at DESC, id DESC`), sender)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()
	return scanEntries(rows)
}

func (s *SQLStore) Export(ctx context.Context, entryFn func(*Entry) error, fingerprintFn func(*Fingerprint) error) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, sender, period, amount, quantity, ocr_time, metadata_time, created_at
		FROM entries ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return err
	}
	entries, err := scanEntries(rows)
	_ = rows.Close()
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := entryFn(entry); err != nil {
			return err
		}
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT hash, sender, metadata, first_seen FROM fingerprints ORDER BY id ASC`)
	if err != nil {
		return err
	}
	defer func() {
		_ = rows.Close()
	}()
	for rows.Next() {
		var fp Fingerprint
		var metadata sql.NullString
		if err := rows.Scan(&fp.Hash, &fp.Sender, &metadata, &fp.FirstSeen); err != nil {
			return err
		}
		fp.Metadata = metadata.String
		if err := fingerprintFn(&fp); err != nil {
			return err
		}
	}
	return rows.Err()
}

func scanEntries(rows *sql.Rows) ([]*Entry, error) {
	var entries []*Entry
	for rows.Next() {
		var entry Entry
		var metadataTime sql.NullTime
		if err := rows.Scan(&entry.ID, &entry.Sender, &entry.Period, &entry.Amount, &entry.Quantity,
			&entry.OCRTime, &metadataTime, &entry.CreatedAt); err != nil {
			return nil, err
		}
		if metadataTime.Valid {
			t := metadataTime.Time
			entry.MetadataTime = &t
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

func sortPeriodTotals(totals map[string]decimal.Decimal) []PeriodTotal {
	result := make([]PeriodTotal, 0, len(totals))
	for period, total := range totals {
		result = append(result, PeriodTotal{Period: period, Total: total})
	}
	// "YYYY-MM" sorts chronologically as text
	sort.Slice(result, func(i, j int) bool {
		return result[i].Period > result[j].Period
	})
	return result
}

func sortSenderTotals(totals map[string]decimal.Decimal) []SenderTotal {
	result := make([]SenderTotal, 0, len(totals))
	for sender, total := range totals {
		result = append(result, SenderTotal{Sender: sender, Total: total})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Sender < result[j].Sender
	})
	return result
}
