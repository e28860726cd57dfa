package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hashicorp/vault/api"

	"github.com/privibase/relay/interfaces"
)

// VaultBackend persists the registry snapshot in a HashiCorp Vault KV v2
// secret.
type VaultBackend struct {
	client      *api.Client
	mountPath   string
	dataPath    string
	log         *slog.Logger
	locationURI string
}

// NewVaultBackend creates a Vault snapshot backend.
//
// Parameters:
//   - address: Vault server address (e.g. https://vault.example.com:8200)
//   - mountPath: KV v2 mount path (e.g. "secret")
//   - dataPath: path within the mount (e.g. "privibase/subscriptions")
//   - token: Vault authentication token
//   - log: structured logger
func NewVaultBackend(address, mountPath, dataPath, token string, log *slog.Logger) (*VaultBackend, error) {
	config := api.DefaultConfig()
	config.Address = address

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if token != "" {
		client.SetToken(token)
	}

	mountPath = strings.Trim(mountPath, "/")
	dataPath = strings.Trim(dataPath, "/")

	return &VaultBackend{
		client:      client,
		mountPath:   mountPath,
		dataPath:    dataPath,
		log:         log,
		locationURI: fmt.Sprintf("vault://%s/%s/%s", address, mountPath, dataPath),
	}, nil
}

// secretPath returns the KV v2 data path for the snapshot secret.
func (b *VaultBackend) secretPath() string {
	return fmt.Sprintf("%s/data/%s", b.mountPath, b.dataPath)
}

// Load reads the snapshot secret. Returns ErrSnapshotNotFound when the
// secret does not exist.
func (b *VaultBackend) Load(ctx context.Context) ([]byte, error) {
	secret, err := b.client.Logical().ReadWithContext(ctx, b.secretPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot from Vault: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return nil, interfaces.ErrSnapshotNotFound
	}

	// KV v2 wraps the payload in a "data" map
	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid data format in Vault response")
	}

	content, ok := data["content"].(string)
	if !ok {
		return nil, fmt.Errorf("content key not found in Vault data")
	}

	b.log.Debug("Loaded snapshot from Vault",
		slog.String("path", b.secretPath()),
		slog.Int("size", len(content)))

	return []byte(content), nil
}

// Store overwrites the snapshot secret with the given content.
func (b *VaultBackend) Store(ctx context.Context, data []byte) error {
	payload := map[string]interface{}{
		"data": map[string]interface{}{
			"content": string(data),
		},
	}

	if _, err := b.client.Logical().WriteWithContext(ctx, b.secretPath(), payload); err != nil {
		return fmt.Errorf("failed to write snapshot to Vault: %w", err)
	}

	b.log.Debug("Stored snapshot in Vault",
		slog.String("path", b.secretPath()),
		slog.Int("size", len(data)))

	return nil
}

// LocationURI returns the URI that identifies this storage backend.
func (b *VaultBackend) LocationURI() string {
	return b.locationURI
}
