package core

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/jo-hoe/kwhledger/internal/backend/archive"
)

// BackupResult describes a finished archive.
type BackupResult struct {
	Path      string
	Mirror    string
	CreatedAt time.Time
}

// Archiver snapshots the ledger to a fixed path and optionally mirrors the
// archive off the host.
type Archiver struct {
	ledger   *Ledger
	path     string
	uploader archive.Uploader
}

func NewArchiver(ledger *Ledger, path string, uploader archive.Uploader) *Archiver {
	return &Archiver{ledger: ledger, path: path, uploader: uploader}
}

func (a *Archiver) Backup(ctx context.Context) (*BackupResult, error) {
	members, err := a.ledger.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	createdAt := a.ledger.clock()
	if err := archive.WriteArchive(a.path, members, createdAt); err != nil {
		return nil, fmt.Errorf("failed to write archive: %w", err)
	}
	result := &BackupResult{Path: a.path, CreatedAt: createdAt}

	if a.uploader != nil {
		location, err := a.uploader.Upload(ctx, a.path)
		if err != nil {
			return nil, fmt.Errorf("archive written to %s but mirror failed: %w", filepath.Base(a.path), err)
		}
		result.Mirror = location
	}
	slog.Info("backup created", "path", a.path, "mirror", result.Mirror)
	return result, nil
}
