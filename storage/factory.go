package storage

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/privibase/relay/interfaces"
)

// SnapshotBackendFactory creates snapshot backends from URI strings.
type SnapshotBackendFactory struct {
	log *slog.Logger
}

// NewSnapshotBackendFactory creates a new factory instance.
func NewSnapshotBackendFactory(logger *slog.Logger) *SnapshotBackendFactory {
	return &SnapshotBackendFactory{log: logger}
}

// BackendFor creates a snapshot backend from a location URI.
// The URI format should be [scheme]://[auth@]host[:port][/path][?params]
//
// Supported schemes:
//   - file:// - Local filesystem storage
//   - s3:// - Amazon S3 or compatible object storage
//   - vault:// - HashiCorp Vault KV v2
//   - ipfs:// - IPFS node MFS
//
// Returns an error if the URI is invalid or the scheme is unsupported.
func (sf *SnapshotBackendFactory) BackendFor(locationURI string) (interfaces.SnapshotBackend, error) {
	u, err := url.Parse(locationURI)
	if err != nil {
		return nil, fmt.Errorf("invalid storage URI %q: %w", locationURI, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "file":
		return sf.createFileBackend(u)
	case "s3":
		return sf.createS3Backend(u)
	case "vault":
		return sf.createVaultBackend(u)
	case "ipfs":
		return sf.createIPFSBackend(u)
	default:
		return nil, fmt.Errorf("unsupported backend scheme: %s", u.Scheme)
	}
}

// createFileBackend creates a file system snapshot backend.
// URI format: file:///absolute/path.json or file://relative/path.json
func (sf *SnapshotBackendFactory) createFileBackend(u *url.URL) (interfaces.SnapshotBackend, error) {
	sf.log.Debug("Creating file backend", slog.String("uri", u.String()))

	path := u.Path
	if u.Host != "" {
		path = u.Host + "/" + strings.TrimPrefix(path, "/")
	}
	if path == "" {
		return nil, fmt.Errorf("empty path in file URI: %s", u.String())
	}

	return NewFileBackend(path, sf.log)
}

// createS3Backend creates an S3 or S3-compatible snapshot backend.
// URI format: s3://[ACCESS_KEY:SECRET_KEY@]bucket/key?region=us-west-2&endpoint=custom.s3.com
func (sf *SnapshotBackendFactory) createS3Backend(u *url.URL) (interfaces.SnapshotBackend, error) {
	sf.log.Debug("Creating S3 backend", slog.String("uri", u.Redacted()))

	bucketName := u.Host
	key := strings.TrimPrefix(u.Path, "/")
	if key == "" {
		key = "subscriptions.json"
	}

	query := u.Query()
	region := query.Get("region")
	if region == "" {
		region = "us-east-1"
	}
	endpoint := query.Get("endpoint")

	var accessKey, secretKey string
	if u.User != nil {
		accessKey = u.User.Username()
		secretKey, _ = u.User.Password()
	}

	return NewS3Backend(bucketName, key, region, endpoint, accessKey, secretKey, sf.log)
}

// createVaultBackend creates a Vault snapshot backend.
// URI format: vault://vault.example.com:8200/secret/privibase?token=...&scheme=https
func (sf *SnapshotBackendFactory) createVaultBackend(u *url.URL) (interfaces.SnapshotBackend, error) {
	sf.log.Debug("Creating Vault backend", slog.String("uri", u.Redacted()))

	query := u.Query()
	scheme := query.Get("scheme")
	if scheme == "" {
		scheme = "https"
	}
	address := fmt.Sprintf("%s://%s", scheme, u.Host)

	parts := strings.SplitN(strings.Trim(u.Path, "/"), "/", 2)
	if len(parts) < 2 {
		return nil, fmt.Errorf("invalid Vault URI, expected vault://host:port/mount/path")
	}

	return NewVaultBackend(address, parts[0], parts[1], query.Get("token"), sf.log)
}

// createIPFSBackend creates an IPFS snapshot backend.
// URI format: ipfs://host:port/?timeout=30s
func (sf *SnapshotBackendFactory) createIPFSBackend(u *url.URL) (interfaces.SnapshotBackend, error) {
	sf.log.Debug("Creating IPFS backend", slog.String("uri", u.String()))

	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "5001" // Default IPFS API port
	}

	timeout := 30 * time.Second
	if raw := u.Query().Get("timeout"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout in IPFS URI: %w", err)
		}
		timeout = parsed
	}

	return NewIPFSBackend(host, port, timeout, sf.log)
}
