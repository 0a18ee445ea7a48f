package core

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jo-hoe/kwhledger/internal/backend/archive"
	"github.com/jo-hoe/kwhledger/internal/backend/database"
	"github.com/jo-hoe/kwhledger/internal/backend/imaging"
	"github.com/jo-hoe/kwhledger/internal/backend/notify"
)

const (
	userPhone       = "+15550000001"
	otherPhone      = "+15550000002"
	adminPhone      = "+15550009999"
	adminEntryPhone = "+15550008888"
)

func newTestStore(t *testing.T) database.LedgerStore {
	t.Helper()
	store, err := database.NewDatabase(context.Background(), "sqlite", filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("NewDatabase error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testConfig(t *testing.T) *ServiceConfig {
	t.Helper()
	return &ServiceConfig{
		Timezone: "UTC",
		Access: Access{
			AdminPhone:      adminPhone,
			AdminEntryPhone: adminEntryPhone,
			AllowList:       []string{userPhone, otherPhone, adminPhone},
		},
		Duplicates: Duplicates{ValueScope: ValueScopePeriod},
		Backup:     Backup{Path: filepath.Join(t.TempDir(), "backups", archive.DefaultFileName)},
	}
}

// fakeFetcher serves media by URL.
type fakeFetcher map[string][]byte

func (f fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	data, ok := f[url]
	if !ok {
		return nil, errors.New("media not found")
	}
	return data, nil
}

// fakeAnalyzer recognizes the image bytes as their own text.
type fakeAnalyzer struct{}

func (fakeAnalyzer) Analyze(ctx context.Context, imageData []byte) (*imaging.Analysis, error) {
	return &imaging.Analysis{
		Hash:     imaging.Fingerprint(imageData),
		Metadata: map[string]string{},
		Text:     string(imageData),
	}, nil
}

type recordingNotifier struct {
	mu            sync.Mutex
	notifications []notify.Notification
}

func (r *recordingNotifier) Notify(ctx context.Context, n notify.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, n)
	return nil
}

func (r *recordingNotifier) Close() error {
	return nil
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notifications)
}

type testService struct {
	*CoreService
	media    fakeFetcher
	notifier *recordingNotifier
}

func newTestService(t *testing.T, config *ServiceConfig) *testService {
	t.Helper()
	media := fakeFetcher{}
	notifier := &recordingNotifier{}
	svc := newCoreService(config, newTestStore(t), media, fakeAnalyzer{}, notifier, nil)
	return &testService{CoreService: svc, media: media, notifier: notifier}
}

// at pins the ledger clock.
func (s *testService) at(now time.Time) {
	s.ledger.now = func() time.Time { return now }
}

// sendImage registers text as the content of a new media URL and submits it.
func (s *testService) sendImage(from, url, text string) string {
	s.media[url] = []byte(text)
	return s.HandleMessage(context.Background(), InboundMessage{From: from, MediaURLs: []string{url}})
}

func (s *testService) sendText(from, body string) string {
	return s.HandleMessage(context.Background(), InboundMessage{From: from, Body: body})
}
