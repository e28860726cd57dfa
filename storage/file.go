package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/privibase/relay/interfaces"
)

// FileBackend persists the registry snapshot as a single file on the local
// file system.
type FileBackend struct {
	path        string
	log         *slog.Logger
	locationURI string
}

// NewFileBackend creates a file snapshot backend at the given path. The
// parent directory is created if it does not exist.
func NewFileBackend(path string, log *slog.Logger) (*FileBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	return &FileBackend{
		path:        path,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", path),
	}, nil
}

// Load reads the snapshot file. Returns ErrSnapshotNotFound if the file does
// not exist yet.
func (b *FileBackend) Load(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(b.path)
	if os.IsNotExist(err) {
		return nil, interfaces.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}

	b.log.Debug("Loaded snapshot from file",
		slog.String("path", b.path),
		slog.Int("size", len(data)))

	return data, nil
}

// Store overwrites the snapshot file with the given content.
func (b *FileBackend) Store(ctx context.Context, data []byte) error {
	if err := os.WriteFile(b.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot file: %w", err)
	}

	b.log.Debug("Stored snapshot in file",
		slog.String("path", b.path),
		slog.Int("size", len(data)))

	return nil
}

// LocationURI returns the URI that identifies this storage backend.
func (b *FileBackend) LocationURI() string {
	return b.locationURI
}
