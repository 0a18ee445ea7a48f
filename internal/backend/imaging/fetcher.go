package imaging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultMaxImageBytes bounds a fetched image (MMS media is capped well below).
const DefaultMaxImageBytes = 10 << 20

var ErrImageTooLarge = errors.New("image exceeds size limit")

// Fetcher downloads media referenced by inbound messages.
type Fetcher struct {
	client   *http.Client
	username string
	password string
	maxBytes int64
}

// NewFetcher creates a fetcher; username/password are sent as basic auth
// when set (the messaging provider protects media URLs this way).
func NewFetcher(timeout time.Duration, username, password string, maxBytes int64) *Fetcher {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	return &Fetcher{
		client:   &http.Client{Timeout: timeout},
		username: username,
		password: password,
		maxBytes: maxBytes,
	}
}

func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid media url: %w", err)
	}
	if f.username != "" {
		req.SetBasicAuth(f.username, f.password)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch media: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to fetch media: unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read media: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, ErrImageTooLarge
	}
	return data, nil
}
