// Wisata - Tourism Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wisata

package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

const snapshotKeyPrefix = "model_snapshot:"

// SnapshotStore persists the last artifact successfully fetched for each
// model name in BadgerDB, so a restart during a registry outage can still
// serve a trained model instead of the baseline.
type SnapshotStore struct {
	db  *badger.DB
	ttl time.Duration
}

// OpenSnapshotStore opens (or creates) a badger database at path. An empty
// path opens an in-memory store. ttl of zero keeps snapshots forever.
func OpenSnapshotStore(path string, ttl time.Duration) (*SnapshotStore, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(path)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}
	return &SnapshotStore{db: db, ttl: ttl}, nil
}

// Save stores raw as the snapshot for name.
func (s *SnapshotStore) Save(name string, raw []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(snapshotKeyPrefix+name), raw)
		if s.ttl > 0 {
			entry = entry.WithTTL(s.ttl)
		}
		if err := txn.SetEntry(entry); err != nil {
			return fmt.Errorf("set snapshot %s: %w", name, err)
		}
		return nil
	})
}

// Load returns the stored snapshot for name, or ErrNotFound.
func (s *SnapshotStore) Load(name string) ([]byte, error) {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(snapshotKeyPrefix + name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: no snapshot for %s", ErrNotFound, name)
		}
		if err != nil {
			return fmt.Errorf("get snapshot %s: %w", name, err)
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// Close releases the underlying database.
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

// SnapshotRegistry tries the live registry first. Successful fetches are
// persisted; when the live registry is unreachable the stored snapshot is
// served. A definitive ErrNotFound from the live registry is passed through
// so a model withdrawn upstream is not resurrected from disk.
type SnapshotRegistry struct {
	live   Registry
	store  *SnapshotStore
	logger zerolog.Logger
}

// NewSnapshotRegistry wraps live with store.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewSnapshotRegistry(live Registry, store *SnapshotStore, logger zerolog.Logger) *SnapshotRegistry {
	return &SnapshotRegistry{
		live:   live,
		store:  store,
		logger: logger.With().Str("component", "registry-snapshot").Logger(),
	}
}

// Fetch implements Registry.
func (r *SnapshotRegistry) Fetch(ctx context.Context, name string) (*Artifact, error) {
	art, err := r.live.Fetch(ctx, name)
	if err == nil {
		if len(art.Raw) > 0 {
			if saveErr := r.store.Save(name, art.Raw); saveErr != nil {
				r.logger.Warn().Err(saveErr).Str("model", name).Msg("failed to persist model snapshot")
			}
		}
		return art, nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled) {
		return nil, err
	}

	raw, loadErr := r.store.Load(name)
	if loadErr != nil {
		return nil, err
	}
	snap, decErr := decode(name, SourceSnapshot, raw)
	if decErr != nil {
		r.logger.Warn().Err(decErr).Str("model", name).Msg("stored model snapshot is unusable")
		return nil, err
	}

	r.logger.Warn().
		Err(err).
		Str("model", name).
		Str("version", snap.Metadata.Version).
		Msg("registry unreachable, serving stored snapshot")
	return snap, nil
}
