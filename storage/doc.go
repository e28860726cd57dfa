// Package storage provides durable persistence for the subscription registry
// snapshot with pluggable backends.
//
// The registry serializes its full state to a single blob; this package
// stores and retrieves that blob through one of several backends:
//
//   - File system storage for local deployments (the default)
//   - S3-compatible object storage for cloud deployments
//   - HashiCorp Vault KV v2 for secret-manager-backed deployments
//   - IPFS MFS for decentralized deployments
//
// # Storage URI Format
//
// Backends are specified using URI format:
//
//	[scheme]://[auth@]host[:port][/path][?params]
//
// Supported URI schemes:
//
//   - file://data/subscriptions.json
//   - s3://bucket-name/path/subscriptions.json?region=us-west-2
//   - vault://vault.example.com:8200/secret/privibase?token=...
//   - ipfs://127.0.0.1:5001/?timeout=30s
//
// Every backend implements interfaces.SnapshotBackend and reports
// interfaces.ErrSnapshotNotFound when no state has been persisted yet, which
// the registry treats as a fresh start.
package storage
