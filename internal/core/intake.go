package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jo-hoe/kwhledger/internal/backend/command"
	"github.com/jo-hoe/kwhledger/internal/backend/database"
	"github.com/jo-hoe/kwhledger/internal/backend/extraction"
	"github.com/jo-hoe/kwhledger/internal/backend/imaging"
	"github.com/jo-hoe/kwhledger/internal/backend/notify"
	"github.com/jo-hoe/kwhledger/internal/common"
)

const (
	AccessDeniedReply  = "Access denied. Your number is not authorized to use this service."
	EmptyMessageReply  = "Please send an image with a dollar amount and kWh value."
	FieldsMissingReply = "Sorry, I couldn't find both a dollar amount and kWh value in the image. " +
		"Make sure the image contains both (e.g., $12.95 and 34.9 kWh)"
	DuplicateImageReply = "Error: You have already submitted this image. " +
		"Please use a new screenshot with today's date visible."
)

// InboundMessage is one message delivered by the messaging transport.
type InboundMessage struct {
	From      string
	Body      string
	MediaURLs []string
}

type MediaFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type ImageAnalyzer interface {
	Analyze(ctx context.Context, imageData []byte) (*imaging.Analysis, error)
}

// HandleMessage processes one inbound message and returns the single reply.
// Every failure is turned into reply text.
func (s *CoreService) HandleMessage(ctx context.Context, msg InboundMessage) string {
	sender := common.NormalizePhone(msg.From)
	if !s.isAllowed(sender) {
		logUnauthorizedAttempt(sender, "not in allow-list")
		return AccessDeniedReply
	}

	admin := s.isAdmin(sender)
	account := sender
	if admin {
		account = s.config.Access.AdminEntryPhone
	}

	if len(msg.MediaURLs) > 0 {
		return s.handleImage(ctx, sender, account, admin, msg.MediaURLs[0])
	}

	if strings.TrimSpace(msg.Body) == "" {
		return EmptyMessageReply
	}

	cmd, err := command.Parse(msg.Body, admin)
	if err != nil {
		var usage *command.UsageError
		if errors.As(err, &usage) {
			return "Error: " + usage.Usage
		}
		return fmt.Sprintf("Error: %v", err)
	}
	return s.dispatcher.Execute(ctx, account, cmd)
}

func (s *CoreService) handleImage(ctx context.Context, sender, account string, admin bool, mediaURL string) string {
	imageData, err := s.fetcher.Fetch(ctx, mediaURL)
	if err != nil {
		slog.Error("intake: failed to fetch media", "sender", sender, "error", err)
		return fmt.Sprintf("Error: %v", err)
	}

	analysis, err := s.analyzer.Analyze(ctx, imageData)
	if err != nil {
		slog.Error("intake: failed to analyze image", "sender", sender, "error", err)
		return fmt.Sprintf("Error: %v", err)
	}
	slog.Debug("intake: recognized text", "sender", sender, "hash", analysis.Hash, "text", analysis.Text)

	fields, err := s.extractor.Extract(analysis.Text, analysis.Metadata)
	if err != nil {
		return extractionReply(err)
	}

	metadata, err := imaging.EncodeMetadata(analysis.Metadata)
	if err != nil {
		slog.Warn("intake: failed to encode metadata", "error", err)
		metadata = "{}"
	}

	receipt, err := s.ledger.Record(ctx, Submission{
		Sender:       account,
		Amount:       fields.Amount,
		Quantity:     decimal.NewNullDecimal(fields.Quantity),
		OCRTime:      fields.OCRTime,
		MetadataTime: fields.MetadataTime,
		Fingerprint:  &database.Fingerprint{Hash: analysis.Hash, Metadata: metadata},
	})
	switch {
	case errors.Is(err, ErrDuplicateImage):
		logUnauthorizedAttempt(sender, "duplicate image", "hash", analysis.Hash)
		return DuplicateImageReply
	case errors.Is(err, ErrDuplicateTransaction):
		logUnauthorizedAttempt(sender, "duplicate transaction",
			"amount", fields.Amount.StringFixed(2), "quantity", fields.Quantity.String())
		return fmt.Sprintf("Error: Duplicate transaction detected. You already submitted %s for %s kWh",
			money(fields.Amount), fields.Quantity.String())
	case err != nil:
		slog.Error("intake: failed to record entry", "sender", sender, "error", err)
		return fmt.Sprintf("Error: %v", err)
	}

	notifyEntry(ctx, s.notifier, receipt, false)

	ocrTime := fields.OCRTime.Format(reportTimeLayout)
	if admin {
		return fmt.Sprintf("Added to %s: %s (%s kWh)\nTime: %s\nTotal for %s: %s",
			account, money(fields.Amount), fields.Quantity.String(), ocrTime, account, totalText(receipt.PeriodTotal))
	}
	return fmt.Sprintf("Added: %s (%s kWh)\nTime: %s\nMonthly total: %s",
		money(fields.Amount), fields.Quantity.String(), ocrTime, totalText(receipt.PeriodTotal))
}

func extractionReply(err error) string {
	var ambiguity *extraction.AmbiguityError
	if errors.As(err, &ambiguity) {
		found := make([]string, len(ambiguity.Values))
		for i, value := range ambiguity.Values {
			if ambiguity.Field == extraction.FieldAmount {
				found[i] = money(value)
			} else {
				found[i] = value.String() + " kWh"
			}
		}
		if ambiguity.Field == extraction.FieldAmount {
			return fmt.Sprintf("Error: Image has multiple different dollar amounts. Found: %s\n\nPlease send an image with only ONE dollar amount.",
				strings.Join(found, ", "))
		}
		return fmt.Sprintf("Error: Image has multiple different kWh values. Found: %s\n\nPlease send an image with only ONE kWh value.",
			strings.Join(found, ", "))
	}
	if errors.Is(err, extraction.ErrFieldsNotFound) {
		return FieldsMissingReply
	}
	return fmt.Sprintf("Error: %v", err)
}

func (s *CoreService) isAllowed(sender string) bool {
	if len(s.allowList) == 0 {
		slog.Warn("allow-list is empty, accepting message from any sender", "sender", sender)
		return true
	}
	_, ok := s.allowList[sender]
	return ok
}

func (s *CoreService) isAdmin(sender string) bool {
	return s.config.Access.AdminPhone != "" && sender == s.config.Access.AdminPhone
}

func logUnauthorizedAttempt(sender, reason string, args ...any) {
	slog.Warn("unauthorized attempt", append([]any{"sender", sender, "reason", reason}, args...)...)
}

// notifyEntry tells the administrator about an accepted entry. Failures are
// logged only.
func notifyEntry(ctx context.Context, notifier notify.Notifier, receipt *Receipt, manual bool) {
	if notifier == nil {
		return
	}
	entry := receipt.Entry
	err := notifier.Notify(ctx, notify.Notification{
		Sender:       entry.Sender,
		Amount:       entry.Amount,
		Quantity:     entry.Quantity.Decimal,
		OCRTime:      entry.OCRTime,
		MetadataTime: entry.MetadataTime,
		Period:       entry.Period,
		MonthTotal:   receipt.PeriodTotal,
		Manual:       manual,
	})
	if err != nil {
		slog.Error("failed to send admin notification", "sender", entry.Sender, "error", err)
	}
}
