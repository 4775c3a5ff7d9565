package store_test

import (
	"context"
	"testing"

	"github.com/pilgrimapp/pilgrim-server/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertFriendshipIfAbsent_Idempotent(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, s.InsertFriendshipIfAbsent(ctx, "alice", "bob"))
	first, err := s.GetFriendship(ctx, "alice", "bob")
	require.NoError(t, err)

	require.NoError(t, s.InsertFriendshipIfAbsent(ctx, "alice", "bob"))
	second, err := s.GetFriendship(ctx, "alice", "bob")
	require.NoError(t, err)

	// The existing edge is not rewritten.
	assert.Equal(t, first.CreatedAt, second.CreatedAt)

	// Single-sided: the reverse edge is not created.
	_, err = s.GetFriendship(ctx, "bob", "alice")
	assert.ErrorIs(t, err, store.ErrFriendshipNotFound)
}

func TestDeleteFriendshipPair_RemovesBothEdges(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	bw := s.NewBatchWriter(10)
	require.NoError(t, bw.PutFriendship("alice", "bob"))
	require.NoError(t, bw.Flush())

	require.NoError(t, s.DeleteFriendshipPair(ctx, "alice", "bob"))

	for _, pair := range [][2]string{{"alice", "bob"}, {"bob", "alice"}} {
		exists, err := s.FriendshipExists(ctx, pair[0], pair[1])
		require.NoError(t, err)
		assert.False(t, exists, "edge %v should be gone", pair)
	}

	// Removing again is not an error.
	require.NoError(t, s.DeleteFriendshipPair(ctx, "alice", "bob"))
}

func TestListFriendIDs(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	bw := s.NewBatchWriter(10)
	require.NoError(t, bw.PutFriendship("alice", "bob"))
	require.NoError(t, bw.PutFriendship("alice", "carol"))
	require.NoError(t, bw.PutFriendship("alice2", "dave"))
	require.NoError(t, bw.Flush())

	ids, err := s.ListFriendIDs(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "carol"}, ids)

	ids, err = s.ListFriendIDs(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, ids)

	ids, err = s.ListFriendIDs(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, ids)
}
