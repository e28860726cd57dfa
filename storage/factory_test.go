package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactoryFileScheme(t *testing.T) {
	factory := NewSnapshotBackendFactory(testLogger())

	path := filepath.Join(t.TempDir(), "subscriptions.json")
	backend, err := factory.BackendFor("file://" + path)
	require.NoError(t, err)
	assert.IsType(t, &FileBackend{}, backend)
}

func TestFactoryS3Scheme(t *testing.T) {
	factory := NewSnapshotBackendFactory(testLogger())

	backend, err := factory.BackendFor("s3://my-bucket/snapshots/subscriptions.json?region=eu-west-1")
	require.NoError(t, err)
	require.IsType(t, &S3Backend{}, backend)

	s3b := backend.(*S3Backend)
	assert.Equal(t, "my-bucket", s3b.bucketName)
	assert.Equal(t, "snapshots/subscriptions.json", s3b.key)
}

func TestFactoryVaultScheme(t *testing.T) {
	factory := NewSnapshotBackendFactory(testLogger())

	backend, err := factory.BackendFor("vault://vault.example.com:8200/secret/privibase?token=s.xyz")
	require.NoError(t, err)
	require.IsType(t, &VaultBackend{}, backend)

	vb := backend.(*VaultBackend)
	assert.Equal(t, "secret", vb.mountPath)
	assert.Equal(t, "privibase", vb.dataPath)
}

func TestFactoryVaultSchemeMissingPath(t *testing.T) {
	factory := NewSnapshotBackendFactory(testLogger())

	_, err := factory.BackendFor("vault://vault.example.com:8200/secret")
	assert.Error(t, err)
}

func TestFactoryIPFSScheme(t *testing.T) {
	factory := NewSnapshotBackendFactory(testLogger())

	backend, err := factory.BackendFor("ipfs://127.0.0.1:5001/?timeout=10s")
	require.NoError(t, err)
	assert.IsType(t, &IPFSBackend{}, backend)
}

func TestFactoryUnsupportedScheme(t *testing.T) {
	factory := NewSnapshotBackendFactory(testLogger())

	_, err := factory.BackendFor("gopher://example.com/snapshot")
	assert.Error(t, err)
}
