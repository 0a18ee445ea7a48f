package database

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func kwh(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func newEntry(sender, period, amount, quantity string, createdAt time.Time) *Entry {
	return &Entry{
		Sender:    sender,
		Period:    period,
		Amount:    dec(amount),
		Quantity:  kwh(quantity),
		OCRTime:   createdAt,
		CreatedAt: createdAt,
	}
}

// runStoreSuite exercises the LedgerStore contract against any backend.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) LedgerStore) {
	t.Run("FingerprintScopedToSender", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

		fp := &Fingerprint{Hash: "abc", Sender: "+15550000001", Metadata: "{}", FirstSeen: base}
		if err := store.RecordEntry(ctx, newEntry("+15550000001", "2024-01", "12.95", "34.9", base), fp); err != nil {
			t.Fatalf("RecordEntry error: %v", err)
		}

		exists, err := store.HasFingerprint(ctx, "abc", "+15550000001")
		if err != nil {
			t.Fatalf("HasFingerprint error: %v", err)
		}
		if !exists {
			t.Errorf("expected fingerprint to exist for its sender")
		}

		exists, err = store.HasFingerprint(ctx, "abc", "+15550000002")
		if err != nil {
			t.Fatalf("HasFingerprint error: %v", err)
		}
		if exists {
			t.Errorf("expected fingerprint not to be attributed to another sender")
		}
	})

	t.Run("HasValueComparesDecimals", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

		if err := store.RecordEntry(ctx, newEntry("+15550000001", "2024-01", "12.90", "34.9", base), nil); err != nil {
			t.Fatalf("RecordEntry error: %v", err)
		}

		tests := []struct {
			name     string
			period   string
			amount   string
			quantity string
			want     bool
		}{
			{"same value", "2024-01", "12.9", "34.90", true},
			{"different quantity", "2024-01", "12.90", "35", false},
			{"different amount", "2024-01", "13.00", "34.9", false},
			{"other period", "2024-02", "12.90", "34.9", false},
			{"any period", "", "12.90", "34.9", true},
		}
		for _, tc := range tests {
			got, err := store.HasValue(ctx, "+15550000001", tc.period, dec(tc.amount), kwh(tc.quantity))
			if err != nil {
				t.Fatalf("%s: HasValue error: %v", tc.name, err)
			}
			if got != tc.want {
				t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
			}
		}
	})

	t.Run("Totals", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

		rows := []*Entry{
			newEntry("+15550000001", "2024-01", "12.95", "34.9", base),
			newEntry("+15550000001", "2024-01", "0.10", "1", base.Add(time.Minute)),
			newEntry("+15550000001", "2024-02", "5.00", "10", base.Add(2*time.Minute)),
			newEntry("+15550000002", "2024-01", "7.25", "20", base.Add(3*time.Minute)),
		}
		for i, entry := range rows {
			if err := store.RecordEntry(ctx, entry, nil); err != nil {
				t.Fatalf("RecordEntry #%d error: %v", i, err)
			}
		}

		total, err := store.PeriodTotal(ctx, "+15550000001", "2024-01")
		if err != nil {
			t.Fatalf("PeriodTotal error: %v", err)
		}
		if !total.Equal(dec("13.05")) {
			t.Errorf("expected 13.05, got %s", total)
		}

		empty, err := store.PeriodTotal(ctx, "+15550000001", "2023-12")
		if err != nil {
			t.Fatalf("PeriodTotal error: %v", err)
		}
		if !empty.IsZero() {
			t.Errorf("expected zero for empty period, got %s", empty)
		}

		periods, err := store.PeriodTotalsForSender(ctx, "+15550000001")
		if err != nil {
			t.Fatalf("PeriodTotalsForSender error: %v", err)
		}
		if len(periods) != 2 {
			t.Fatalf("expected 2 periods, got %d", len(periods))
		}
		if periods[0].Period != "2024-02" || periods[1].Period != "2024-01" {
			t.Errorf("expected most recent period first, got %v", periods)
		}

		senders, err := store.SenderTotals(ctx, "2024-01")
		if err != nil {
			t.Fatalf("SenderTotals error: %v", err)
		}
		if len(senders) != 2 {
			t.Fatalf("expected 2 senders, got %d", len(senders))
		}
		if senders[1].Sender != "+15550000002" || !senders[1].Total.Equal(dec("7.25")) {
			t.Errorf("unexpected second sender total: %+v", senders[1])
		}
	})

	t.Run("HistoryNewestFirst", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
		metadataTime := base.Add(-time.Hour)

		first := newEntry("+15550000001", "2024-01", "1.00", "1", base)
		first.MetadataTime = &metadataTime
		second := newEntry("+15550000001", "2024-01", "2.00", "2", base.Add(time.Hour))
		for _, entry := range []*Entry{first, second} {
			if err := store.RecordEntry(ctx, entry, nil); err != nil {
				t.Fatalf("RecordEntry error: %v", err)
			}
		}

		history, err := store.History(ctx, "+15550000001")
		if err != nil {
			t.Fatalf("History error: %v", err)
		}
		if len(history) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(history))
		}
		if !history[0].Amount.Equal(dec("2.00")) {
			t.Errorf("expected newest entry first, got %s", history[0].Amount)
		}
		if history[1].MetadataTime == nil || !history[1].MetadataTime.Equal(metadataTime) {
			t.Errorf("expected metadata time %v, got %v", metadataTime, history[1].MetadataTime)
		}
		if history[0].MetadataTime != nil {
			t.Errorf("expected nil metadata time, got %v", history[0].MetadataTime)
		}
		if history[0].ID == "" {
			t.Errorf("expected generated entry id")
		}
	})

	t.Run("PreservesDecimalPrecision", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

		if err := store.RecordEntry(ctx, newEntry("+15550000001", "2024-01", "12.955", "34.1234", base), nil); err != nil {
			t.Fatalf("RecordEntry error: %v", err)
		}

		history, err := store.History(ctx, "+15550000001")
		if err != nil {
			t.Fatalf("History error: %v", err)
		}
		if len(history) != 1 {
			t.Fatalf("expected 1 entry, got %d", len(history))
		}
		if !history[0].Amount.Equal(dec("12.955")) || !history[0].Quantity.Decimal.Equal(dec("34.1234")) {
			t.Errorf("expected stored values 12.955/34.1234, got %s/%s", history[0].Amount, history[0].Quantity.Decimal)
		}

		exists, err := store.HasValue(ctx, "+15550000001", "2024-01", dec("12.96"), kwh("34.123"))
		if err != nil {
			t.Fatalf("HasValue error: %v", err)
		}
		if exists {
			t.Errorf("expected rounded values not to match the stored entry")
		}
	})

	t.Run("Export", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

		fp := &Fingerprint{Hash: "h1", Sender: "+15550000001", Metadata: `{"Format":"png"}`, FirstSeen: base}
		if err := store.RecordEntry(ctx, newEntry("+15550000001", "2024-01", "1.00", "1", base), fp); err != nil {
			t.Fatalf("RecordEntry error: %v", err)
		}
		if err := store.RecordEntry(ctx, newEntry("+15550000002", "2024-01", "2.00", "2", base.Add(time.Minute)), nil); err != nil {
			t.Fatalf("RecordEntry error: %v", err)
		}

		var entries []*Entry
		var fingerprints []*Fingerprint
		err := store.Export(ctx,
			func(e *Entry) error { entries = append(entries, e); return nil },
			func(f *Fingerprint) error { fingerprints = append(fingerprints, f); return nil })
		if err != nil {
			t.Fatalf("Export error: %v", err)
		}
		if len(entries) != 2 {
			t.Fatalf("expected 2 exported entries, got %d", len(entries))
		}
		if entries[0].Sender != "+15550000001" {
			t.Errorf("expected oldest entry first, got %s", entries[0].Sender)
		}
		if len(fingerprints) != 1 || fingerprints[0].Hash != "h1" {
			t.Fatalf("unexpected exported fingerprints: %+v", fingerprints)
		}
	})
}
