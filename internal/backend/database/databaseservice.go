package database

import (
	"context"

	"github.com/shopspring/decimal"
)

// LedgerStore is the persistence contract of the ledger. Implementations are
// not required to be safe for overlapping check-then-write sequences; callers
// serialize access (see core.Ledger).
type LedgerStore interface {
	// Migrate brings the schema up to date. It is idempotent.
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error

	// RecordEntry persists the entry and, when fingerprint is non-nil, the
	// fingerprint record in the same atomic write.
	RecordEntry(ctx context.Context, entry *Entry, fingerprint *Fingerprint) error

	HasFingerprint(ctx context.Context, hash, sender string) (bool, error)
	// HasValue reports whether sender already has an entry with the same amount
	// and quantity. An empty period searches all periods.
	HasValue(ctx context.Context, sender, period string, amount decimal.Decimal, quantity decimal.NullDecimal) (bool, error)

	PeriodTotal(ctx context.Context, sender, period string) (decimal.Decimal, error)
	// PeriodTotalsForSender returns every period of sender, most recent first.
	PeriodTotalsForSender(ctx context.Context, sender string) ([]PeriodTotal, error)
	// SenderTotals returns every sender's total for period ordered by sender.
	SenderTotals(ctx context.Context, period string) ([]SenderTotal, error)
	// History returns all entries of sender, newest first.
	History(ctx context.Context, sender string) ([]*Entry, error)

	// Export streams every entry and fingerprint, oldest first, for archival.
	Export(ctx context.Context, entryFn func(*Entry) error, fingerprintFn func(*Fingerprint) error) error
}
