package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const (
	redisSendersKey          = "ledger:senders"
	redisEntriesPrefix       = "ledger:entries:"
	redisFingerprintsPrefix  = "ledger:fingerprints:"
	redisFingerprintOrderKey = "ledger:fingerprints"
)

// RedisStore keeps each sender's entries in a list and fingerprints in a hash.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(connectionString string) (*RedisStore, error) {
	options, err := redis.ParseURL(connectionString)
	if err != nil {
		return nil, fmt.Errorf("invalid redis connection string: %w", err)
	}
	return &RedisStore{client: redis.NewClient(options)}, nil
}

// Migrate is a no-op; Redis keys need no schema.
func (s *RedisStore) Migrate(ctx context.Context) error {
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) RecordEntry(ctx context.Context, entry *Entry, fingerprint *Fingerprint) error {
	if entry.ID == "" {
		id, err := newEntryID()
		if err != nil {
			return err
		}
		entry.ID = id
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	entryJSON, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode entry: %w", err)
	}
	var fingerprintJSON []byte
	if fingerprint != nil {
		if fingerprintJSON, err = json.Marshal(fingerprint); err != nil {
			return fmt.Errorf("failed to encode fingerprint: %w", err)
		}
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if fingerprint != nil {
			pipe.HSet(ctx, redisFingerprintsPrefix+fingerprint.Sender, fingerprint.Hash, fingerprintJSON)
			pipe.RPush(ctx, redisFingerprintOrderKey, fingerprintJSON)
		}
		pipe.RPush(ctx, redisEntriesPrefix+entry.Sender, entryJSON)
		pipe.SAdd(ctx, redisSendersKey, entry.Sender)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record entry: %w", err)
	}
	return nil
}

func (s *RedisStore) HasFingerprint(ctx context.Context, hash, sender string) (bool, error) {
	return s.client.HExists(ctx, redisFingerprintsPrefix+sender, hash).Result()
}

func (s *RedisStore) HasValue(ctx context.Context, sender, period string, amount decimal.Decimal, quantity decimal.NullDecimal) (bool, error) {
	entries, err := s.entries(ctx, sender)
	if err != nil {
		return false, err
	}
	for _, entry := range entries {
		if period != "" && entry.Period != period {
			continue
		}
		if entry.SameValue(amount, quantity) {
			return true, nil
		}
	}
	return false, nil
}

func (s *RedisStore) PeriodTotal(ctx context.Context, sender, period string) (decimal.Decimal, error) {
	entries, err := s.entries(ctx, sender)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, entry := range entries {
		if entry.Period == period {
			total = total.Add(entry.Amount)
		}
	}
	return total, nil
}

func (s *RedisStore) PeriodTotalsForSender(ctx context.Context, sender string) ([]PeriodTotal, error) {
	entries, err := s.entries(ctx, sender)
	if err != nil {
		return nil, err
	}
	totals := make(map[string]decimal.Decimal)
	for _, entry := range entries {
		totals[entry.Period] = totals[entry.Period].Add(entry.Amount)
	}
	return sortPeriodTotals(totals), nil
}

func (s *RedisStore) SenderTotals(ctx context.Context, period string) ([]SenderTotal, error) {
	senders, err := s.client.SMembers(ctx, redisSendersKey).Result()
	if err != nil {
		return nil, err
	}
	totals := make(map[string]decimal.Decimal)
	for _, sender := range senders {
		entries, err := s.entries(ctx, sender)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if entry.Period == period {
				totals[sender] = totals[sender].Add(entry.Amount)
			}
		}
	}
	return sortSenderTotals(totals), nil
}

func (s *RedisStore) History(ctx context.Context, sender string) ([]*Entry, error) {
	entries, err := s.entries(ctx, sender)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries, nil
}

func (s *RedisStore) Export(ctx context.Context, entryFn func(*Entry) error, fingerprintFn func(*Fingerprint) error) error {
	senders, err := s.client.SMembers(ctx, redisSendersKey).Result()
	if err != nil {
		return err
	}
	var all []*Entry
	for _, sender := range senders {
		entries, err := s.entries(ctx, sender)
		if err != nil {
			return err
		}
		all = append(all, entries...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	for _, entry := range all {
		if err := entryFn(entry); err != nil {
			return err
		}
	}

	raw, err := s.client.LRange(ctx, redisFingerprintOrderKey, 0, -1).Result()
	if err != nil {
		return err
	}
	for _, item := range raw {
		var fp Fingerprint
		if err := json.Unmarshal([]byte(item), &fp); err != nil {
			return fmt.Errorf("failed to decode fingerprint: %w", err)
		}
		if err := fingerprintFn(&fp); err != nil {
			return err
		}
	}
	return nil
}

func (s *RedisStore) entries(ctx context.Context, sender string) ([]*Entry, error) {
	raw, err := s.client.LRange(ctx, redisEntriesPrefix+sender, 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	entries := make([]*Entry, 0, len(raw))
	for _, item := range raw {
		var entry Entry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return nil, fmt.Errorf("failed to decode entry of %s: %w", sender, err)
		}
		entries = append(entries, &entry)
	}
	return entries, nil
}
