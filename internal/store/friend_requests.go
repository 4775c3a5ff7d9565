package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/pilgrimapp/pilgrim-server/internal/domain"
)

const requesterIndex = "requester"

// ErrFriendRequestNotFound is returned when no request exists for the pair.
var ErrFriendRequestNotFound = errors.New("friend request not found")

// requestIndexKey maps requester -> target so outgoing requests can be listed.
func (s *Store) requestIndexKey(targetUserID, requesterUserID string) []byte {
	return indexKey(s.cols.FriendRequests, requesterIndex, requesterUserID, targetUserID)
}

// GetFriendRequest retrieves the pending request from requesterUserID to targetUserID.
func (s *Store) GetFriendRequest(ctx context.Context, targetUserID, requesterUserID string) (*domain.FriendRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validID(targetUserID, requesterUserID); err != nil {
		return nil, err
	}

	key := buildKey(s.cols.FriendRequests, targetUserID, requesterUserID)
	defer releaseKey(key)

	var req domain.FriendRequest
	if err := s.get(key, &req); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrFriendRequestNotFound
		}
		return nil, fmt.Errorf("get friend request: %w", err)
	}
	return &req, nil
}

// InsertFriendRequestIfAbsent records a request from requesterUserID to targetUserID.
// An existing request for the pair is left untouched and is not an error.
func (s *Store) InsertFriendRequestIfAbsent(ctx context.Context, targetUserID, requesterUserID string) error {
	if err := validID(targetUserID, requesterUserID); err != nil {
		return err
	}

	err := s.Transact(ctx, s.FriendRequestPutIfAbsentOp(targetUserID, requesterUserID, s.now()))
	if errors.Is(err, ErrConditionFailed) {
		return nil
	}
	return err
}

// DeleteFriendRequest removes the request and its index entry.
// Deleting an absent request succeeds.
func (s *Store) DeleteFriendRequest(ctx context.Context, targetUserID, requesterUserID string) error {
	if err := validID(targetUserID, requesterUserID); err != nil {
		return err
	}
	return s.Transact(ctx, s.FriendRequestDeleteOp(targetUserID, requesterUserID))
}

// ListIncomingFriendRequests returns the requests addressed to targetUserID.
func (s *Store) ListIncomingFriendRequests(ctx context.Context, targetUserID string) ([]*domain.FriendRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validID(targetUserID); err != nil {
		return nil, err
	}

	reqs := make([]*domain.FriendRequest, 0)
	err := s.scanPrefix(prefixKey(s.cols.FriendRequests, targetUserID), true, func(_, val []byte) error {
		var req domain.FriendRequest
		if err := json.Unmarshal(val, &req); err != nil {
			return fmt.Errorf("unmarshal friend request: %w", err)
		}
		reqs = append(reqs, &req)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list incoming requests: %w", err)
	}
	return reqs, nil
}

// ListOutgoingFriendRequests returns the requests sent by requesterUserID,
// resolved through the requester index.
func (s *Store) ListOutgoingFriendRequests(ctx context.Context, requesterUserID string) ([]*domain.FriendRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validID(requesterUserID); err != nil {
		return nil, err
	}

	prefix := append(indexKey(s.cols.FriendRequests, requesterIndex, requesterUserID), keySep)
	reqs := make([]*domain.FriendRequest, 0)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false // Key-only index

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			targetID := lastSegment(it.Item().Key(), prefix)

			item, err := txn.Get(ownedKey(s.cols.FriendRequests, targetID, requesterUserID))
			if errors.Is(err, badger.ErrKeyNotFound) {
				// Index without a record; skip it rather than fail the listing.
				continue
			}
			if err != nil {
				return err
			}

			var req domain.FriendRequest
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &req)
			}); err != nil {
				return fmt.Errorf("unmarshal friend request: %w", err)
			}
			reqs = append(reqs, &req)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list outgoing requests: %w", err)
	}
	return reqs, nil
}

// FriendRequestPutIfAbsentOp creates the request unless one exists for the pair.
func (s *Store) FriendRequestPutIfAbsentOp(targetUserID, requesterUserID string, at time.Time) TxnOp {
	return TxnOp{
		Kind: OpPutIfAbsent,
		Key:  ownedKey(s.cols.FriendRequests, targetUserID, requesterUserID),
		Value: &domain.FriendRequest{
			TargetUserID:    targetUserID,
			RequesterUserID: requesterUserID,
			CreatedAt:       at.UTC(),
		},
		Indexes: [][]byte{s.requestIndexKey(targetUserID, requesterUserID)},
	}
}

// FriendRequestDeleteOp removes the request and its index entry.
func (s *Store) FriendRequestDeleteOp(targetUserID, requesterUserID string) TxnOp {
	return TxnOp{
		Kind:    OpDelete,
		Key:     ownedKey(s.cols.FriendRequests, targetUserID, requesterUserID),
		Indexes: [][]byte{s.requestIndexKey(targetUserID, requesterUserID)},
	}
}

// FriendRequestConsumeOp removes the request and fails if it is gone.
func (s *Store) FriendRequestConsumeOp(targetUserID, requesterUserID string) TxnOp {
	op := s.FriendRequestDeleteOp(targetUserID, requesterUserID)
	op.Kind = OpDeleteIfExists
	return op
}

// FriendRequestCheckAbsentOp fails the transaction if the request exists.
func (s *Store) FriendRequestCheckAbsentOp(targetUserID, requesterUserID string) TxnOp {
	return TxnOp{Kind: OpCheckAbsent, Key: ownedKey(s.cols.FriendRequests, targetUserID, requesterUserID)}
}
