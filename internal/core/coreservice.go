package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jo-hoe/kwhledger/internal/backend/archive"
	"github.com/jo-hoe/kwhledger/internal/backend/database"
	"github.com/jo-hoe/kwhledger/internal/backend/extraction"
	"github.com/jo-hoe/kwhledger/internal/backend/imaging"
	"github.com/jo-hoe/kwhledger/internal/backend/notify"
)

type CoreService struct {
	config     *ServiceConfig
	store      database.LedgerStore
	ledger     *Ledger
	archiver   *Archiver
	dispatcher *Dispatcher
	fetcher    MediaFetcher
	analyzer   ImageAnalyzer
	extractor  *extraction.Extractor
	notifier   notify.Notifier
	allowList  map[string]struct{}
}

// NewCoreService connects the configured store, notifier and archive mirror
// and assembles the intake pipeline.
func NewCoreService(ctx context.Context, config *ServiceConfig) (*CoreService, error) {
	store, err := getDatabaseService(ctx, config)
	if err != nil {
		return nil, err
	}

	notifier, err := newNotifier(config)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	var uploader archive.Uploader
	if config.Backup.S3.Bucket != "" {
		s3Uploader, err := archive.NewS3Uploader(ctx, archive.S3Settings{
			Bucket:    config.Backup.S3.Bucket,
			Prefix:    config.Backup.S3.Prefix,
			Region:    config.Backup.S3.Region,
			Endpoint:  config.Backup.S3.Endpoint,
			AccessKey: config.Backup.S3.AccessKey,
			SecretKey: config.Backup.S3.SecretKey,
		})
		if err != nil {
			_ = store.Close()
			_ = notifier.Close()
			return nil, fmt.Errorf("failed to initialize backup mirror: %w", err)
		}
		uploader = s3Uploader
	}

	fetcher := imaging.NewFetcher(config.Media.Timeout, config.Media.Username, config.Media.Password, config.Media.MaxBytes)
	analyzer := imaging.NewAnalyzer(imaging.NewTesseractRecognizer(config.OCR.Command, config.OCR.Args))

	return newCoreService(config, store, fetcher, analyzer, notifier, uploader), nil
}

func newCoreService(
	config *ServiceConfig,
	store database.LedgerStore,
	fetcher MediaFetcher,
	analyzer ImageAnalyzer,
	notifier notify.Notifier,
	uploader archive.Uploader,
) *CoreService {
	location := config.Location()
	ledger := NewLedger(store, location, config.Duplicates.ValueScope)
	archiver := NewArchiver(ledger, config.Backup.Path, uploader)

	allowList := make(map[string]struct{}, len(config.Access.AllowList))
	for _, phone := range config.Access.AllowList {
		allowList[phone] = struct{}{}
	}
	if len(allowList) == 0 {
		slog.Warn("WARNING: allow-list is empty, every sender is accepted. Configure access.allowList before production use.")
	}

	return &CoreService{
		config:     config,
		store:      store,
		ledger:     ledger,
		archiver:   archiver,
		dispatcher: NewDispatcher(ledger, archiver, notifier, config.Access),
		fetcher:    fetcher,
		analyzer:   analyzer,
		extractor:  extraction.NewExtractor(location),
		notifier:   notifier,
		allowList:  allowList,
	}
}

// CurrentTotals returns the current billing period and every sender's total
// within it.
func (service *CoreService) CurrentTotals(ctx context.Context) (string, []database.SenderTotal, error) {
	period := service.ledger.CurrentPeriod()
	totals, err := service.ledger.SenderTotals(ctx, period)
	if err != nil {
		return "", nil, err
	}
	return period, totals, nil
}

func (service *CoreService) Ping(ctx context.Context) error {
	service.ledger.mu.Lock()
	defer service.ledger.mu.Unlock()
	return service.store.Ping(ctx)
}

func (service *CoreService) Close() error {
	var errs []error
	if service.notifier != nil {
		errs = append(errs, service.notifier.Close())
	}
	if service.store != nil {
		errs = append(errs, service.store.Close())
	}
	return errors.Join(errs...)
}

func getDatabaseService(ctx context.Context, config *ServiceConfig) (database.LedgerStore, error) {
	store, err := database.NewDatabase(ctx, config.Database.Type, config.Database.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	slog.Info("database initialized successfully", "type", config.Database.Type)
	return store, nil
}

func newNotifier(config *ServiceConfig) (notify.Notifier, error) {
	switch config.Notifier.Type {
	case "", "log":
		return notify.LogNotifier{}, nil
	case "twilio":
		return notify.NewTwilioNotifier(config.Twilio.AccountSID, config.Twilio.AuthToken,
			config.Twilio.From, config.Access.AdminPhone), nil
	case "kafka":
		return notify.NewKafkaNotifier(config.Notifier.Kafka.Brokers, config.Notifier.Kafka.Topic), nil
	default:
		return nil, fmt.Errorf("unsupported notifier type: %s", config.Notifier.Type)
	}
}
