package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/pilgrimapp/pilgrim-server/internal/domain"
)

// ErrFriendshipNotFound is returned when the directed edge does not exist.
var ErrFriendshipNotFound = errors.New("friendship not found")

// GetFriendship retrieves the directed edge (ownerID, friendID).
func (s *Store) GetFriendship(ctx context.Context, ownerID, friendID string) (*domain.Friendship, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validID(ownerID, friendID); err != nil {
		return nil, err
	}

	key := buildKey(s.cols.Friendships, ownerID, friendID)
	defer releaseKey(key)

	var edge domain.Friendship
	if err := s.get(key, &edge); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrFriendshipNotFound
		}
		return nil, fmt.Errorf("get friendship: %w", err)
	}
	return &edge, nil
}

// FriendshipExists reports whether the directed edge (ownerID, friendID) exists.
func (s *Store) FriendshipExists(ctx context.Context, ownerID, friendID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := validID(ownerID, friendID); err != nil {
		return false, err
	}

	key := buildKey(s.cols.Friendships, ownerID, friendID)
	defer releaseKey(key)

	return s.exists(key)
}

// ListFriendIDs returns the friend ids of ownerID in key order.
func (s *Store) ListFriendIDs(ctx context.Context, ownerID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validID(ownerID); err != nil {
		return nil, err
	}

	prefix := prefixKey(s.cols.Friendships, ownerID)
	ids := make([]string, 0)
	err := s.scanPrefix(prefix, false, func(key, _ []byte) error {
		ids = append(ids, lastSegment(key, prefix))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	return ids, nil
}

// InsertFriendshipIfAbsent writes the single edge (ownerID, friendID).
// An existing edge is left untouched and is not an error.
func (s *Store) InsertFriendshipIfAbsent(ctx context.Context, ownerID, friendID string) error {
	if err := validID(ownerID, friendID); err != nil {
		return err
	}

	err := s.Transact(ctx, s.FriendshipPutIfAbsentOp(ownerID, friendID, s.now()))
	if errors.Is(err, ErrConditionFailed) {
		return nil
	}
	return err
}

// DeleteFriendshipPair removes both edges between a and b in one transaction.
// Missing edges are not an error.
func (s *Store) DeleteFriendshipPair(ctx context.Context, a, b string) error {
	if err := validID(a, b); err != nil {
		return err
	}
	return s.Transact(ctx,
		s.FriendshipDeleteOp(a, b),
		s.FriendshipDeleteOp(b, a),
	)
}

// FriendshipPutIfAbsentOp creates the edge (ownerID, friendID) unless it exists.
func (s *Store) FriendshipPutIfAbsentOp(ownerID, friendID string, at time.Time) TxnOp {
	return TxnOp{
		Kind: OpPutIfAbsent,
		Key:  ownedKey(s.cols.Friendships, ownerID, friendID),
		Value: &domain.Friendship{
			OwnerID:   ownerID,
			FriendID:  friendID,
			CreatedAt: at.UTC(),
		},
	}
}

// FriendshipDeleteOp removes the edge (ownerID, friendID).
func (s *Store) FriendshipDeleteOp(ownerID, friendID string) TxnOp {
	return TxnOp{Kind: OpDelete, Key: ownedKey(s.cols.Friendships, ownerID, friendID)}
}

// FriendshipCheckAbsentOp fails the transaction if the edge (ownerID, friendID) exists.
func (s *Store) FriendshipCheckAbsentOp(ownerID, friendID string) TxnOp {
	return TxnOp{Kind: OpCheckAbsent, Key: ownedKey(s.cols.Friendships, ownerID, friendID)}
}
