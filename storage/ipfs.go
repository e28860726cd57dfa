package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	shell "github.com/ipfs/go-ipfs-api"

	"github.com/privibase/relay/interfaces"
)

// ipfsSnapshotPath is the MFS path holding the registry snapshot. MFS gives
// a mutable name over content-addressed storage, which a snapshot that is
// overwritten on every mutation requires.
const ipfsSnapshotPath = "/privibase/subscriptions.json"

// IPFSBackend persists the registry snapshot in the mutable file system of
// an IPFS node.
type IPFSBackend struct {
	shell       *shell.Shell
	timeout     time.Duration
	log         *slog.Logger
	locationURI string
}

// NewIPFSBackend creates an IPFS snapshot backend connected to the node API
// at host:port.
func NewIPFSBackend(host, port string, timeout time.Duration, log *slog.Logger) (*IPFSBackend, error) {
	apiURL := fmt.Sprintf("%s:%s", host, port)

	return &IPFSBackend{
		shell:       shell.NewShell(apiURL),
		timeout:     timeout,
		log:         log,
		locationURI: fmt.Sprintf("ipfs://%s/?timeout=%s", apiURL, timeout),
	}, nil
}

// Load reads the snapshot from the node's MFS. Returns ErrSnapshotNotFound
// when the snapshot file does not exist.
func (b *IPFSBackend) Load(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	reader, err := b.shell.FilesRead(ctx, ipfsSnapshotPath)
	if err != nil {
		if strings.Contains(err.Error(), "does not exist") {
			return nil, interfaces.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to read snapshot from IPFS: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read IPFS snapshot stream: %w", err)
	}

	b.log.Debug("Loaded snapshot from IPFS",
		slog.String("path", ipfsSnapshotPath),
		slog.Int("size", len(data)))

	return data, nil
}

// Store overwrites the snapshot in the node's MFS.
func (b *IPFSBackend) Store(ctx context.Context, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	err := b.shell.FilesWrite(ctx, ipfsSnapshotPath, bytes.NewReader(data),
		shell.FilesWrite.Create(true),
		shell.FilesWrite.Parents(true),
		shell.FilesWrite.Truncate(true),
	)
	if err != nil {
		return fmt.Errorf("failed to write snapshot to IPFS: %w", err)
	}

	b.log.Debug("Stored snapshot in IPFS",
		slog.String("path", ipfsSnapshotPath),
		slog.Int("size", len(data)))

	return nil
}

// LocationURI returns the URI that identifies this storage backend.
func (b *IPFSBackend) LocationURI() string {
	return b.locationURI
}
