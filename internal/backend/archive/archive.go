// Package archive writes compressed ledger snapshots and mirrors them to
// object storage.
package archive

import (
	"archive/tar"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"
)

// DefaultFileName is the well-known name of the ledger archive.
const DefaultFileName = "app-data-backup.tar.gz"

// Member is one file inside the archive.
type Member struct {
	Name string
	Data []byte
}

// WriteArchive writes members as a gzip-compressed tarball to path. The file
// is written next to path and renamed into place, so an existing archive is
// replaced atomically and never left half written.
func WriteArchive(path string, members []Member, modTime time.Time) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".backup-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary archive: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	gz := gzip.NewWriter(tmp)
	tw := tar.NewWriter(gz)
	for _, member := range members {
		header := &tar.Header{
			Name:    member.Name,
			Mode:    0o640,
			Size:    int64(len(member.Data)),
			ModTime: modTime,
		}
		if err = tw.WriteHeader(header); err != nil {
			return fmt.Errorf("failed to write header for %s: %w", member.Name, err)
		}
		if _, err = tw.Write(member.Data); err != nil {
			return fmt.Errorf("failed to write %s: %w", member.Name, err)
		}
	}
	if err = tw.Close(); err != nil {
		return fmt.Errorf("failed to finish tar stream: %w", err)
	}
	if err = gz.Close(); err != nil {
		return fmt.Errorf("failed to finish gzip stream: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary archive: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move archive into place: %w", err)
	}
	return nil
}
