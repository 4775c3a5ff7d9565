package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/pilgrimapp/pilgrim-server/internal/domain"
)

// BatchWriter provides bulk loading using BadgerDB's WriteBatch.
// Writes are unconditional and not transactional; use it for imports and
// seeding, never for relationship transitions.
type BatchWriter struct {
	store     *Store
	batch     *badger.WriteBatch
	maxSize   int
	count     int
	autoFlush bool
}

// NewBatchWriter creates a new batch writer that will auto-flush when maxSize is reached
func (s *Store) NewBatchWriter(maxSize int) *BatchWriter {
	return &BatchWriter{
		store:     s,
		batch:     s.db.NewWriteBatch(),
		maxSize:   maxSize,
		autoFlush: true,
	}
}

// PutVisitDocument stores a visit document exactly as given.
// Documents exported by older clients keep their original image-key shape
// and are normalized when read.
func (b *BatchWriter) PutVisitDocument(userID, placeID string, doc json.RawMessage) error {
	if err := validID(userID, placeID); err != nil {
		return err
	}
	if !json.Valid(doc) {
		return ErrInvalidInput.WithMessage("visit document is not valid JSON")
	}
	return b.set(ownedKey(b.store.cols.Visits, userID, placeID), doc)
}

// PutFriendship writes both edges of a friendship.
func (b *BatchWriter) PutFriendship(a, c string) error {
	if err := validID(a, c); err != nil {
		return err
	}
	now := b.store.now().UTC()
	for _, edge := range []domain.Friendship{
		{OwnerID: a, FriendID: c, CreatedAt: now},
		{OwnerID: c, FriendID: a, CreatedAt: now},
	} {
		data, err := json.Marshal(edge)
		if err != nil {
			return fmt.Errorf("marshal friendship: %w", err)
		}
		if err := b.set(ownedKey(b.store.cols.Friendships, edge.OwnerID, edge.FriendID), data); err != nil {
			return err
		}
	}
	return nil
}

func (b *BatchWriter) set(key, val []byte) error {
	if err := b.batch.Set(key, val); err != nil {
		return fmt.Errorf("batch set: %w", err)
	}

	b.count++

	if b.autoFlush && b.count >= b.maxSize {
		if err := b.Flush(); err != nil {
			return fmt.Errorf("auto flush: %w", err)
		}
	}
	return nil
}

// Flush commits all pending writes in the batch
func (b *BatchWriter) Flush() error {
	if b.count == 0 {
		return nil
	}

	if err := b.batch.Flush(); err != nil {
		return fmt.Errorf("flush batch: %w", err)
	}

	if b.store.logger != nil {
		b.store.logger.LogAttrs(context.Background(), slog.LevelInfo, "batch flushed",
			slog.Int("count", b.count),
		)
	}

	// Reset for next batch
	b.count = 0
	b.batch = b.store.db.NewWriteBatch()

	return nil
}

// Cancel discards all pending writes in the batch
func (b *BatchWriter) Cancel() {
	b.batch.Cancel()
	b.count = 0
}

// Count returns the number of operations in the current batch
func (b *BatchWriter) Count() int {
	return b.count
}
