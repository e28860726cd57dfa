package interfaces

import "context"

// SubscriptionRegistry maps subscriber identities to protected-data targets.
// Implementations must normalize and validate both sides of the pair, keep at
// most one target per identity, and persist every accepted mutation before
// acknowledging it.
type SubscriptionRegistry interface {
	// Set validates, normalizes and stores an identity/target pair,
	// overwriting any previous target for the identity. Returns
	// ErrInvalidAddress if either side fails validation.
	Set(ctx context.Context, identity, target string) error

	// Get resolves an identity to its registered target. Returns
	// ErrNotSubscribed on a lookup miss. Never mutates state.
	Get(identity string) (Address, error)

	// Len reports the number of registered subscriptions.
	Len() int
}

// Notifier delivers a message to the external confidential-notification
// provider on behalf of a protected-data target. Implementations must return
// errors rather than panic; callers decide the failure policy.
type Notifier interface {
	Notify(ctx context.Context, target Address, content string) error
}

// SnapshotBackend persists the registry's full state as a single named blob.
// The registry serializes its map and hands it over; the backend is opaque to
// the content.
type SnapshotBackend interface {
	// Load retrieves the current snapshot. Returns ErrSnapshotNotFound
	// when no snapshot has been stored yet.
	Load(ctx context.Context) ([]byte, error)

	// Store overwrites the snapshot with the given content.
	Store(ctx context.Context, data []byte) error

	// LocationURI returns the URI identifying this backend.
	LocationURI() string
}
