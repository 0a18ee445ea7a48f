package database

import (
	"fmt"

	"github.com/google/uuid"
)

// newEntryID returns a random (v4) identifier for a ledger entry.
func newEntryID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate entry id: %w", err)
	}
	return id.String(), nil
}
