package store_test

import (
	"context"
	"testing"

	"github.com/pilgrimapp/pilgrim-server/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertFriendRequestIfAbsent_SingleRecord(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, s.InsertFriendRequestIfAbsent(ctx, "bob", "alice"))
	require.NoError(t, s.InsertFriendRequestIfAbsent(ctx, "bob", "alice"))

	incoming, err := s.ListIncomingFriendRequests(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	assert.Equal(t, "alice", incoming[0].RequesterUserID)
	assert.Equal(t, "bob", incoming[0].TargetUserID)

	outgoing, err := s.ListOutgoingFriendRequests(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, outgoing, 1)
	assert.Equal(t, "bob", outgoing[0].TargetUserID)
}

func TestFriendRequests_IncomingAndOutgoing(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, s.InsertFriendRequestIfAbsent(ctx, "bob", "alice"))
	require.NoError(t, s.InsertFriendRequestIfAbsent(ctx, "carol", "alice"))
	require.NoError(t, s.InsertFriendRequestIfAbsent(ctx, "alice", "dave"))

	outgoing, err := s.ListOutgoingFriendRequests(ctx, "alice")
	require.NoError(t, err)
	targets := []string{}
	for _, r := range outgoing {
		targets = append(targets, r.TargetUserID)
	}
	assert.ElementsMatch(t, []string{"bob", "carol"}, targets)

	incoming, err := s.ListIncomingFriendRequests(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	assert.Equal(t, "dave", incoming[0].RequesterUserID)
}

func TestDeleteFriendRequest_RemovesIndex(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, s.InsertFriendRequestIfAbsent(ctx, "bob", "alice"))
	require.NoError(t, s.DeleteFriendRequest(ctx, "bob", "alice"))

	_, err := s.GetFriendRequest(ctx, "bob", "alice")
	assert.ErrorIs(t, err, store.ErrFriendRequestNotFound)

	outgoing, err := s.ListOutgoingFriendRequests(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, outgoing)

	// Declining twice is fine.
	require.NoError(t, s.DeleteFriendRequest(ctx, "bob", "alice"))
}
