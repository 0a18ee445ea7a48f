package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jo-hoe/kwhledger/internal/backend/command"
	"github.com/jo-hoe/kwhledger/internal/backend/database"
	"github.com/jo-hoe/kwhledger/internal/backend/notify"
)

const reportTimeLayout = "2006-01-02 15:04:05"

// Dispatcher executes parsed commands against the ledger and renders the
// reply text.
type Dispatcher struct {
	ledger   *Ledger
	archiver *Archiver
	notifier notify.Notifier
	access   Access
}

func NewDispatcher(ledger *Ledger, archiver *Archiver, notifier notify.Notifier, access Access) *Dispatcher {
	return &Dispatcher{ledger: ledger, archiver: archiver, notifier: notifier, access: access}
}

// Execute runs cmd for account, the identity whose totals the caller sees.
func (d *Dispatcher) Execute(ctx context.Context, account string, cmd command.Command) string {
	reply, err := d.execute(ctx, account, cmd)
	if err != nil {
		slog.Error("dispatcher: command failed", "command", cmd.Name(), "error", err)
		return fmt.Sprintf("Error: %v", err)
	}
	return reply
}

func (d *Dispatcher) execute(ctx context.Context, account string, cmd command.Command) (string, error) {
	switch c := cmd.(type) {
	case command.GetTotal:
		period := d.ledger.CurrentPeriod()
		total, err := d.ledger.PeriodTotal(ctx, account, period)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Current month (%s): %s", period, money(total)), nil
	case command.GetLastTotal:
		period := d.ledger.PreviousPeriod()
		total, err := d.ledger.PeriodTotal(ctx, account, period)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Last month (%s): %s", period, money(total)), nil
	case command.GetAll:
		return d.allTotals(ctx, account)
	case command.Backup:
		return d.backup(ctx), nil
	case command.ManualAdd:
		return d.manualAdd(ctx, c)
	case command.Status:
		return d.status(ctx)
	case command.UserHistory:
		return d.history(ctx, c.Sender)
	case command.Unknown:
		slog.Info("dispatcher: unknown command", "account", account, "text", c.Text, "admin", c.Admin)
		if c.Admin {
			return command.AdminUsage, nil
		}
		return command.UserUsage, nil
	default:
		return "", fmt.Errorf("unhandled command %q", cmd.Name())
	}
}

func (d *Dispatcher) allTotals(ctx context.Context, account string) (string, error) {
	totals, err := d.ledger.PeriodTotals(ctx, account)
	if err != nil {
		return "", err
	}
	if len(totals) == 0 {
		return "No transactions found.", nil
	}

	var b strings.Builder
	b.WriteString("All monthly totals:\n\n")
	grandTotal := decimal.Zero
	for _, total := range totals {
		grandTotal = grandTotal.Add(total.Total)
		fmt.Fprintf(&b, "%s: %s\n", total.Period, money(total.Total))
	}
	fmt.Fprintf(&b, "\nGrand Total: %s", money(grandTotal))
	return b.String(), nil
}

func (d *Dispatcher) backup(ctx context.Context) string {
	if d.archiver == nil {
		return "Error creating backup: backups are not configured"
	}
	result, err := d.archiver.Backup(ctx)
	if err != nil {
		slog.Error("dispatcher: backup failed", "error", err)
		return fmt.Sprintf("Error creating backup: %v", err)
	}
	reply := fmt.Sprintf("Backup created successfully!\nTimestamp: %s\nFile: %s",
		result.CreatedAt.Format(reportTimeLayout), filepath.Base(result.Path))
	if result.Mirror != "" {
		reply += "\nMirror: " + result.Mirror
	}
	return reply
}

func (d *Dispatcher) manualAdd(ctx context.Context, c command.ManualAdd) (string, error) {
	account := d.access.AdminEntryPhone
	receipt, err := d.ledger.Record(ctx, Submission{
		Sender:   account,
		Amount:   c.Amount,
		Quantity: decimal.NewNullDecimal(c.Quantity),
		OCRTime:  d.ledger.clock(),
	})
	if errors.Is(err, ErrDuplicateTransaction) {
		return fmt.Sprintf("Error: Duplicate transaction detected. %s already has %s for %s kWh",
			account, money(c.Amount), c.Quantity.String()), nil
	}
	if err != nil {
		return "", err
	}

	notifyEntry(ctx, d.notifier, receipt, true)
	return fmt.Sprintf("Added manually: %s (%s kWh) to %s\nMonth total: %s",
		money(c.Amount), c.Quantity.String(), account, totalText(receipt.PeriodTotal)), nil
}

func (d *Dispatcher) status(ctx context.Context) (string, error) {
	period := d.ledger.CurrentPeriod()
	totals, err := d.ledger.SenderTotals(ctx, period)
	if err != nil {
		return "", err
	}

	var lines []string
	for _, total := range totals {
		if total.Sender == d.access.AdminPhone {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", total.Sender, money(total.Total)))
	}
	if len(lines) == 0 {
		return "No transactions this month.", nil
	}
	return fmt.Sprintf("Status for %s:\n\n%s", period, strings.Join(lines, "\n")), nil
}

func (d *Dispatcher) history(ctx context.Context, sender string) (string, error) {
	entries, err := d.ledger.History(ctx, sender)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return fmt.Sprintf("No transactions found for %s", sender), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "History for %s:\n\n", sender)
	total := decimal.Zero
	for _, entry := range entries {
		total = total.Add(entry.Amount)
		fmt.Fprintf(&b, "%s (%s) OCR:%s EXIF:%s\n",
			money(entry.Amount),
			quantityText(entry.Quantity),
			entry.OCRTime.In(d.ledger.location).Format(reportTimeLayout),
			metadataTimeText(entry, d.ledger.location))
	}
	fmt.Fprintf(&b, "\nTotal: %s", money(total))
	return b.String(), nil
}

func money(amount decimal.Decimal) string {
	return "$" + amount.StringFixed(2)
}

func totalText(total decimal.NullDecimal) string {
	if !total.Valid {
		return "unavailable"
	}
	return money(total.Decimal)
}

func quantityText(quantity decimal.NullDecimal) string {
	if !quantity.Valid {
		return "N/A"
	}
	return quantity.Decimal.String() + " kWh"
}

func metadataTimeText(entry *database.Entry, location *time.Location) string {
	if entry.MetadataTime == nil {
		return "N/A"
	}
	return entry.MetadataTime.In(location).Format(reportTimeLayout)
}
