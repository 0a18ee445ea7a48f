package database

import (
	"time"

	"github.com/shopspring/decimal"
)

// PeriodLayout is the layout of a billing period key ("2024-01").
const PeriodLayout = "2006-01"

// Entry is one accepted ledger row. Entries are never updated or deleted.
type Entry struct {
	ID           string              `db:"id" json:"id"`
	Sender       string              `db:"sender" json:"sender"`
	Period       string              `db:"period" json:"period"`
	Amount       decimal.Decimal     `db:"amount" json:"amount"`
	Quantity     decimal.NullDecimal `db:"quantity" json:"quantity"`
	OCRTime      time.Time           `db:"ocr_time" json:"ocrTime"`
	MetadataTime *time.Time          `db:"metadata_time" json:"metadataTime,omitempty"`
	CreatedAt    time.Time           `db:"created_at" json:"createdAt"`
}

// Fingerprint records an accepted image digest for a sender.
type Fingerprint struct {
	Hash      string    `db:"hash" json:"hash"`
	Sender    string    `db:"sender" json:"sender"`
	Metadata  string    `db:"metadata" json:"metadata"` // JSON encoded tag map
	FirstSeen time.Time `db:"first_seen" json:"firstSeen"`
}

// SenderTotal is the summed amount of one sender within a period.
type SenderTotal struct {
	Sender string          `json:"sender"`
	Total  decimal.Decimal `json:"total"`
}

// PeriodTotal is the summed amount of one period for a sender.
type PeriodTotal struct {
	Period string          `json:"period"`
	Total  decimal.Decimal `json:"total"`
}

// SameValue reports whether two entries carry the same amount and quantity.
func (e *Entry) SameValue(amount decimal.Decimal, quantity decimal.NullDecimal) bool {
	if !e.Amount.Equal(amount) {
		return false
	}
	if e.Quantity.Valid != quantity.Valid {
		return false
	}
	return !quantity.Valid || e.Quantity.Decimal.Equal(quantity.Decimal)
}
