package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jo-hoe/kwhledger/internal/backend/archive"
	"github.com/jo-hoe/kwhledger/internal/backend/database"
)

// Submission is a candidate ledger entry. Fingerprint is nil for manual
// entries.
type Submission struct {
	Sender       string
	Amount       decimal.Decimal
	Quantity     decimal.NullDecimal
	OCRTime      time.Time
	MetadataTime *time.Time
	Fingerprint  *database.Fingerprint
}

// Receipt is returned for an accepted submission. PeriodTotal is invalid
// when the entry was stored but the total could not be read back.
type Receipt struct {
	Entry       *database.Entry
	PeriodTotal decimal.NullDecimal
}

// Ledger owns the store and serializes every operation on it through one
// mutex. Only one store call, or one guarded check-then-write sequence, runs
// at any time.
type Ledger struct {
	mu         sync.Mutex
	store      database.LedgerStore
	location   *time.Location
	valueScope string
	now        func() time.Time
}

func NewLedger(store database.LedgerStore, location *time.Location, valueScope string) *Ledger {
	if location == nil {
		location = time.UTC
	}
	return &Ledger{
		store:      store,
		location:   location,
		valueScope: valueScope,
		now:        time.Now,
	}
}

// CurrentPeriod is the billing period of the ledger clock.
func (l *Ledger) CurrentPeriod() string {
	return l.clock().Format(database.PeriodLayout)
}

// PreviousPeriod is the calendar month before the current one.
func (l *Ledger) PreviousPeriod() string {
	now := l.clock()
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, l.location)
	return firstOfMonth.AddDate(0, -1, 0).Format(database.PeriodLayout)
}

// Record runs the duplicate guard and, if it passes, writes the entry and
// its fingerprint. Both happen inside one critical section.
func (l *Ledger) Record(ctx context.Context, sub Submission) (*Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	period := now.Format(database.PeriodLayout)

	if err := l.guard(ctx, sub, period); err != nil {
		return nil, err
	}

	entry := &database.Entry{
		Sender:       sub.Sender,
		Period:       period,
		Amount:       sub.Amount,
		Quantity:     sub.Quantity,
		OCRTime:      sub.OCRTime,
		MetadataTime: sub.MetadataTime,
		CreatedAt:    now,
	}
	var fingerprint *database.Fingerprint
	if sub.Fingerprint != nil {
		fp := *sub.Fingerprint
		fp.Sender = sub.Sender
		if fp.FirstSeen.IsZero() {
			fp.FirstSeen = now
		}
		fingerprint = &fp
	}

	if err := l.store.RecordEntry(ctx, entry, fingerprint); err != nil {
		return nil, fmt.Errorf("failed to record entry: %w", err)
	}

	var total decimal.NullDecimal
	periodTotal, err := l.store.PeriodTotal(ctx, sub.Sender, period)
	if err != nil {
		slog.Error("failed to read period total after recording entry",
			"id", entry.ID, "sender", entry.Sender, "period", period, "error", err)
	} else {
		total = decimal.NewNullDecimal(periodTotal)
	}
	slog.Info("ledger entry recorded",
		"id", entry.ID,
		"sender", entry.Sender,
		"period", period,
		"amount", entry.Amount.StringFixed(2),
		"manual", sub.Fingerprint == nil)
	return &Receipt{Entry: entry, PeriodTotal: total}, nil
}

func (l *Ledger) PeriodTotal(ctx context.Context, sender, period string) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.PeriodTotal(ctx, sender, period)
}

func (l *Ledger) PeriodTotals(ctx context.Context, sender string) ([]database.PeriodTotal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.PeriodTotalsForSender(ctx, sender)
}

func (l *Ledger) SenderTotals(ctx context.Context, period string) ([]database.SenderTotal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.SenderTotals(ctx, period)
}

func (l *Ledger) History(ctx context.Context, sender string) ([]*database.Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.History(ctx, sender)
}

// Snapshot encodes the whole store as JSON Lines archive members.
func (l *Ledger) Snapshot(ctx context.Context) ([]archive.Member, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var entries, fingerprints []byte
	entryCount, fingerprintCount := 0, 0
	err := l.store.Export(ctx,
		func(entry *database.Entry) error {
			line, err := json.Marshal(entry)
			if err != nil {
				return err
			}
			entries = append(append(entries, line...), '\n')
			entryCount++
			return nil
		},
		func(fingerprint *database.Fingerprint) error {
			line, err := json.Marshal(fingerprint)
			if err != nil {
				return err
			}
			fingerprints = append(append(fingerprints, line...), '\n')
			fingerprintCount++
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to export ledger: %w", err)
	}

	manifest, err := json.Marshal(map[string]any{
		"createdAt":    l.clock().Format(time.RFC3339),
		"entries":      entryCount,
		"fingerprints": fingerprintCount,
	})
	if err != nil {
		return nil, err
	}

	return []archive.Member{
		{Name: "manifest.json", Data: manifest},
		{Name: "entries.jsonl", Data: entries},
		{Name: "fingerprints.jsonl", Data: fingerprints},
	}, nil
}

func (l *Ledger) clock() time.Time {
	return l.now().In(l.location)
}
