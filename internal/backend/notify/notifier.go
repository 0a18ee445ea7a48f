// Package notify tells the administrator about accepted ledger entries.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

const timeLayout = "2006-01-02 15:04:05"

// Notification describes one accepted entry.
type Notification struct {
	Sender       string              `json:"sender"`
	Amount       decimal.Decimal     `json:"amount"`
	Quantity     decimal.Decimal     `json:"quantity"`
	OCRTime      time.Time           `json:"ocrTime"`
	MetadataTime *time.Time          `json:"metadataTime,omitempty"`
	Period       string              `json:"period"`
	MonthTotal   decimal.NullDecimal `json:"monthTotal"`
	Manual       bool                `json:"manual"`
}

// Message renders the notification as a text message body.
func (n Notification) Message() string {
	metadataTime := "N/A"
	if n.MetadataTime != nil {
		metadataTime = n.MetadataTime.Format(timeLayout)
	}
	source := "New transaction!"
	if n.Manual {
		source = "New manual transaction!"
	}
	return fmt.Sprintf("%s\n\nUser: %s\nAmount: $%s\nkWh: %s kWh\nOCR Time: %s\nEXIF Time: %s\nMonth total: %s",
		source,
		n.Sender,
		n.Amount.StringFixed(2),
		n.Quantity.String(),
		n.OCRTime.Format(timeLayout),
		metadataTime,
		n.monthTotal())
}

// monthTotal is N/A when the total could not be read after the write.
func (n Notification) monthTotal() string {
	if !n.MonthTotal.Valid {
		return "N/A"
	}
	return "$" + n.MonthTotal.Decimal.StringFixed(2)
}

// Notifier delivers notifications. Delivery failures are reported to the
// caller, which logs them; they never undo the ledger write.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
	Close() error
}

// LogNotifier writes notifications to the structured log only.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, n Notification) error {
	slog.InfoContext(ctx, "ledger entry accepted",
		"sender", n.Sender,
		"amount", n.Amount.StringFixed(2),
		"quantity", n.Quantity.String(),
		"period", n.Period,
		"month_total", n.monthTotal(),
		"manual", n.Manual)
	return nil
}

func (LogNotifier) Close() error {
	return nil
}
