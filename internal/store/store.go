package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/pilgrimapp/pilgrim-server/internal/domain"
)

// Collections names the key prefix of each record collection.
// Deployments can rename them to run several environments in one database.
type Collections struct {
	Visits         string
	Friendships    string
	FriendRequests string
}

// ReservedCollections are key prefixes the store uses for its own records.
var ReservedCollections = []string{indexCollection, "user", "profile"}

// Validate rejects names that would share key space with another collection
// or with the store's own records.
func (c Collections) Validate() error {
	seen := make(map[string]bool, 3)
	for _, name := range []string{c.Visits, c.Friendships, c.FriendRequests} {
		if name == "" || strings.ContainsRune(name, keySep) {
			return ErrInvalidInput.WithMessage(fmt.Sprintf("invalid collection name %q", name))
		}
		if slices.Contains(ReservedCollections, name) {
			return ErrInvalidInput.WithMessage(fmt.Sprintf("collection name %q is reserved", name))
		}
		if seen[name] {
			return ErrInvalidInput.WithMessage(fmt.Sprintf("collection name %q used twice", name))
		}
		seen[name] = true
	}
	return nil
}

// DefaultCollections returns the collection names used when none are configured.
func DefaultCollections() Collections {
	return Collections{
		Visits:         "visit",
		Friendships:    "friend",
		FriendRequests: "freq",
	}
}

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
	cols   Collections
	now    func() time.Time

	// Generic entities
	Users    *Entity[domain.User]
	Profiles *Entity[domain.UserProfile]
}

// New opens (or creates) the database at path.
// Zero-valued collection names fall back to DefaultCollections.
func New(path string, cols Collections, logger *slog.Logger) (*Store, error) {
	defaults := DefaultCollections()
	if cols.Visits == "" {
		cols.Visits = defaults.Visits
	}
	if cols.Friendships == "" {
		cols.Friendships = defaults.Friendships
	}
	if cols.FriendRequests == "" {
		cols.FriendRequests = defaults.FriendRequests
	}
	if err := cols.Validate(); err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	store := &Store{
		db:     db,
		logger: logger,
		cols:   cols,
		now:    time.Now,
	}

	store.initUsers()
	store.initProfiles()

	if logger != nil {
		logger.Info("Badger database opened successfully",
			"path", path,
			"visits", cols.Visits,
			"friendships", cols.Friendships,
			"friend_requests", cols.FriendRequests,
		)
	}

	return store, nil
}

// Close gracefully closes the database connection. Closing twice is a no-op.
func (s *Store) Close() error {
	if s.db.IsClosed() {
		return nil
	}
	if s.logger != nil {
		s.logger.Info("Closing database connection")
	}
	return s.db.Close()
}

// SetClock replaces the time source used for record timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Now returns the current time from the store's clock.
func (s *Store) Now() time.Time {
	return s.now()
}

// Ping verifies the database is open and readable.
func (s *Store) Ping() error {
	if s.db.IsClosed() {
		return errors.New("database is closed")
	}
	return s.db.View(func(*badger.Txn) error { return nil })
}

// Helper methods for database operations.

// get retrieves a value by key into dest.
// Returns badger.ErrKeyNotFound when the key is absent.
func (s *Store) get(key []byte, dest any) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, dest)
		})
	})
}

// exists checks if a key exists.
func (s *Store) exists(key []byte) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// scanPrefix calls fn for every key under prefix. When values is false only
// keys are iterated and fn receives a nil value.
func (s *Store) scanPrefix(prefix []byte, values bool, fn func(key, val []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = values

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := item.KeyCopy(nil)

			if !values {
				if err := fn(key, nil); err != nil {
					return err
				}
				continue
			}

			val, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("read value: %w", err)
			}
			if err := fn(key, val); err != nil {
				return err
			}
		}
		return nil
	})
}
