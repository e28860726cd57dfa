package storage

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/privibase/relay/interfaces"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFileBackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "subscriptions.json")

	backend, err := NewFileBackend(path, testLogger())
	require.NoError(t, err)

	_, err = backend.Load(ctx)
	assert.ErrorIs(t, err, interfaces.ErrSnapshotNotFound)

	content := []byte(`{"a":"b"}`)
	require.NoError(t, backend.Store(ctx, content))

	got, err := backend.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestFileBackendOverwrites(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "subscriptions.json")

	backend, err := NewFileBackend(path, testLogger())
	require.NoError(t, err)

	require.NoError(t, backend.Store(ctx, []byte(`{"a":"b","c":"d"}`)))
	require.NoError(t, backend.Store(ctx, []byte(`{}`)))

	got, err := backend.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{}`), got, "store replaces prior content in full")
}

func TestFileBackendLocationURI(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subscriptions.json")
	backend, err := NewFileBackend(path, testLogger())
	require.NoError(t, err)
	assert.Equal(t, "file://"+path, backend.LocationURI())
}
