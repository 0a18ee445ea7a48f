package core

import (
	"context"
	"fmt"
)

// guard rejects a submission whose image was already accepted for the sender,
// then one whose amount and quantity match an existing entry in the
// configured scope. The caller holds the ledger lock.
func (l *Ledger) guard(ctx context.Context, sub Submission, period string) error {
	if sub.Fingerprint != nil {
		seen, err := l.store.HasFingerprint(ctx, sub.Fingerprint.Hash, sub.Sender)
		if err != nil {
			return fmt.Errorf("failed to check fingerprint: %w", err)
		}
		if seen {
			return ErrDuplicateImage
		}
	}

	scope := period
	if l.valueScope == ValueScopeAll {
		scope = ""
	}
	seen, err := l.store.HasValue(ctx, sub.Sender, scope, sub.Amount, sub.Quantity)
	if err != nil {
		return fmt.Errorf("failed to check transaction value: %w", err)
	}
	if seen {
		return ErrDuplicateTransaction
	}
	return nil
}
