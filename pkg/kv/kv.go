// Package kv provides a small TTL-aware key/value adapter backed by an
// embedded BadgerDB instance. It is the only persistence surface the
// gateway has: the session store (pkg/session) is built entirely on top
// of it, there is no other database.
package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/marmos91/ussdgw/internal/logger"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("kv: key not found")

// Store is a TTL-aware key/value adapter.
type Store struct {
	db *badger.DB
}

// Config configures the BadgerDB-backed store.
type Config struct {
	// Dir is the on-disk directory BadgerDB uses for its LSM tree and
	// value log. Required.
	Dir string

	// OpenTimeout bounds how long Open retries acquiring the BadgerDB
	// directory lock before giving up. Default: 10s.
	OpenTimeout time.Duration

	// InMemory runs BadgerDB purely in memory, useful for tests.
	InMemory bool
}

func (c *Config) applyDefaults() {
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = 10 * time.Second
	}
}

// Open opens (or creates) the BadgerDB directory at cfg.Dir. It retries on
// lock contention (another process holding the directory lock during a
// rolling restart) until cfg.OpenTimeout elapses.
func Open(cfg Config) (*Store, error) {
	cfg.applyDefaults()

	opts := badger.DefaultOptions(cfg.Dir)
	opts = opts.WithInMemory(cfg.InMemory)
	opts = opts.WithLogger(nil)

	deadline := time.Now().Add(cfg.OpenTimeout)
	var lastErr error
	for {
		db, err := badger.Open(opts)
		if err == nil {
			return &Store{db: db}, nil
		}
		lastErr = err

		if time.Now().After(deadline) {
			break
		}

		logger.Warn("kv store open retrying", "dir", cfg.Dir, logger.KeyError, err.Error())
		time.Sleep(200 * time.Millisecond)
	}

	return nil, fmt.Errorf("kv: open %q: %w", cfg.Dir, lastErr)
}

// Close closes the underlying BadgerDB instance.
func (s *Store) Close() error {
	return s.db.Close()
}

// Set writes key with value and an optional TTL. A ttl of zero means "no
// expiry" only when the key does not already carry one; if the key already
// has a TTL and the caller passes zero, the existing expiry is preserved
// rather than cleared.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), value)

		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		} else if existingTTL, ok := remainingTTL(txn, key); ok {
			entry = entry.WithTTL(existingTTL)
		}

		return txn.SetEntry(entry)
	})
}

// remainingTTL returns the remaining TTL of an existing key, if it has one.
func remainingTTL(txn *badger.Txn, key string) (time.Duration, bool) {
	item, err := txn.Get([]byte(key))
	if err != nil {
		return 0, false
	}
	expiresAt := item.ExpiresAt()
	if expiresAt == 0 {
		return 0, false
	}
	remaining := time.Until(time.Unix(int64(expiresAt), 0))
	if remaining <= 0 {
		return 0, false
	}
	return remaining, true
}

// Get retrieves the value stored at key. Returns ErrNotFound if absent.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			value = append([]byte(nil), val...)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Exists reports whether key is present without copying its value.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	return found, err
}

// Del removes key. Deleting an absent key is not an error.
func (s *Store) Del(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

// Healthy reports whether the store can currently serve a read transaction.
func (s *Store) Healthy() bool {
	err := s.db.View(func(txn *badger.Txn) error { return nil })
	return err == nil
}
