// Package subscriptions implements the durable identity-to-target registry
// at the center of the relay. Both ingestion paths resolve identities
// through it and the registration interface is its only writer.
package subscriptions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/privibase/relay/interfaces"
)

// Store is the subscription registry: an in-memory map from subscriber
// identity to protected-data target, persisted through a snapshot backend
// after every accepted mutation.
//
// All operations are safe for concurrent use. Set holds the lock across the
// whole validate+mutate+persist sequence, so the on-disk snapshot order
// always matches the in-memory mutation order.
type Store struct {
	mu      sync.RWMutex
	entries map[interfaces.Address]interfaces.Address
	backend interfaces.SnapshotBackend
	log     *slog.Logger
}

// NewStore creates an empty registry persisting through the given backend.
func NewStore(backend interfaces.SnapshotBackend, log *slog.Logger) *Store {
	return &Store{
		entries: make(map[interfaces.Address]interfaces.Address),
		backend: backend,
		log:     log,
	}
}

// Load replaces the in-memory map with the persisted snapshot. A missing
// snapshot leaves the map empty; an unreadable or corrupt snapshot is logged
// and likewise yields an empty map. Load never fails the process.
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[interfaces.Address]interfaces.Address)

	data, err := s.backend.Load(ctx)
	if errors.Is(err, interfaces.ErrSnapshotNotFound) {
		s.log.Info("No subscription snapshot found, starting empty",
			slog.String("location", s.backend.LocationURI()))
		return
	}
	if err != nil {
		s.log.Error("Failed to load subscription snapshot, starting empty",
			"err", err,
			slog.String("location", s.backend.LocationURI()))
		return
	}

	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		s.log.Error("Corrupt subscription snapshot, starting empty",
			"err", err,
			slog.String("location", s.backend.LocationURI()))
		return
	}

	for identity, target := range raw {
		normIdentity, err := interfaces.NewAddress(identity)
		if err != nil {
			s.log.Warn("Dropping snapshot entry with invalid identity",
				slog.String("identity", identity), "err", err)
			continue
		}
		normTarget, err := interfaces.NewAddress(target)
		if err != nil {
			s.log.Warn("Dropping snapshot entry with invalid target",
				slog.String("identity", identity), "err", err)
			continue
		}
		s.entries[normIdentity] = normTarget
	}

	s.log.Info("Loaded subscriptions from snapshot",
		slog.Int("count", len(s.entries)),
		slog.String("location", s.backend.LocationURI()))
}

// Set validates and normalizes both addresses, stores the pair
// (overwriting any previous target for the identity), and persists the full
// map before returning.
//
// A persistence failure is logged and the in-memory mutation is kept; the
// registry stays dirty until the next successful save. Availability over
// strict consistency, matching load-bearing single-operator use.
func (s *Store) Set(ctx context.Context, identity, target string) error {
	normIdentity, err := interfaces.NewAddress(identity)
	if err != nil {
		return fmt.Errorf("identity: %w", err)
	}
	normTarget, err := interfaces.NewAddress(target)
	if err != nil {
		return fmt.Errorf("target: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[normIdentity] = normTarget

	if err := s.saveLocked(ctx); err != nil {
		s.log.Error("Failed to persist subscription snapshot, keeping in-memory state",
			"err", err,
			slog.String("identity", normIdentity.String()))
	}

	return nil
}

// Get resolves an identity to its registered target. Returns
// ErrNotSubscribed on a miss. Never mutates the registry.
func (s *Store) Get(identity string) (interfaces.Address, error) {
	normIdentity, err := interfaces.NewAddress(identity)
	if err != nil {
		return "", fmt.Errorf("identity: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	target, ok := s.entries[normIdentity]
	if !ok {
		return "", interfaces.ErrNotSubscribed
	}
	return target, nil
}

// Len reports the number of registered subscriptions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// saveLocked serializes the full map to the backend. Callers must hold the
// write lock.
func (s *Store) saveLocked(ctx context.Context) error {
	raw := make(map[string]string, len(s.entries))
	for identity, target := range s.entries {
		raw[identity.String()] = target.String()
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize subscriptions: %w", err)
	}

	if err := s.backend.Store(ctx, data); err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}
	return nil
}
