package service

import (
	"context"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilgrimapp/pilgrim-server/internal/domain"
	domainerrors "github.com/pilgrimapp/pilgrim-server/internal/errors"
	"github.com/pilgrimapp/pilgrim-server/internal/metrics"
	"github.com/pilgrimapp/pilgrim-server/internal/store"
)

func setupCoordinator(t *testing.T, users ...string) (*RelationshipCoordinator, *store.Store) {
	t.Helper()
	s := setupTestStore(t)
	registerUsers(t, s, users...)
	c := NewRelationshipCoordinator(s, NewStoreDirectory(s), nil, nil, testLogger())
	return c, s
}

func requestExists(t *testing.T, s *store.Store, target, requester string) bool {
	t.Helper()
	_, err := s.GetFriendRequest(context.Background(), target, requester)
	if err == nil {
		return true
	}
	require.ErrorIs(t, err, store.ErrFriendRequestNotFound)
	return false
}

func edgeExists(t *testing.T, s *store.Store, owner, friend string) bool {
	t.Helper()
	ok, err := s.FriendshipExists(context.Background(), owner, friend)
	require.NoError(t, err)
	return ok
}

func TestRequestFriend_CreatesSingleRequest(t *testing.T) {
	c, s := setupCoordinator(t, "alice", "bob")
	ctx := context.Background()

	require.NoError(t, c.RequestFriend(ctx, "alice", "bob"))
	require.NoError(t, c.RequestFriend(ctx, "alice", " bob "))

	outgoing, err := c.ListOutgoing(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, outgoing, 1)
	assert.Equal(t, "bob", outgoing[0].TargetUserID)

	incoming, err := c.ListIncoming(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	assert.Equal(t, "alice", incoming[0].RequesterUserID)

	assert.True(t, requestExists(t, s, "bob", "alice"))
}

func TestRequestFriend_ReciprocalRejected(t *testing.T) {
	c, s := setupCoordinator(t, "alice", "bob")
	ctx := context.Background()

	require.NoError(t, c.RequestFriend(ctx, "alice", "bob"))

	err := c.RequestFriend(ctx, "bob", "alice")
	assert.ErrorIs(t, err, domainerrors.ErrReciprocalRequestExists)
	assert.False(t, requestExists(t, s, "alice", "bob"), "no reverse request may be written")
}

func TestRequestFriend_AlreadyFriends(t *testing.T) {
	c, _ := setupCoordinator(t, "alice", "bob")
	ctx := context.Background()

	require.NoError(t, c.RequestFriend(ctx, "alice", "bob"))
	require.NoError(t, c.AcceptFriendRequest(ctx, "bob", "alice"))

	assert.ErrorIs(t, c.RequestFriend(ctx, "alice", "bob"), domainerrors.ErrAlreadyFriends)
	assert.ErrorIs(t, c.RequestFriend(ctx, "bob", "alice"), domainerrors.ErrAlreadyFriends)
}

func TestRequestFriend_InvalidTargets(t *testing.T) {
	c, _ := setupCoordinator(t, "alice")
	ctx := context.Background()

	tests := []struct {
		name   string
		target string
		want   error
	}{
		{"self", "alice", domainerrors.ErrValidation},
		{"empty", "  ", domainerrors.ErrValidation},
		{"separator", "bo:b", domainerrors.ErrValidation},
		{"unknown", "nobody", domainerrors.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, c.RequestFriend(ctx, "alice", tt.target), tt.want)
		})
	}
}

func TestRequestFriend_DirectoryFailure(t *testing.T) {
	s := setupTestStore(t)
	c := NewRelationshipCoordinator(s, &fakeDirectory{err: errBoom}, nil, nil, testLogger())

	err := c.RequestFriend(context.Background(), "alice", "bob")
	assert.ErrorIs(t, err, domainerrors.ErrUpstreamUnavailable)
	assert.False(t, requestExists(t, s, "bob", "alice"))
}

func TestRequestFriend_TargetKnownOnlyToDirectory(t *testing.T) {
	s := setupTestStore(t)
	c := NewRelationshipCoordinator(s, &fakeDirectory{known: map[string]bool{"bob": true}}, nil, nil, testLogger())
	ctx := context.Background()

	// bob has an identity provider account but has never signed in here.
	local, err := s.UserExists(ctx, "bob")
	require.NoError(t, err)
	require.False(t, local)

	require.NoError(t, c.RequestFriend(ctx, "alice", "bob"))
	assert.True(t, requestExists(t, s, "bob", "alice"))
}

func TestRequestFriend_RateLimited(t *testing.T) {
	s := setupTestStore(t)
	dir := &fakeDirectory{known: map[string]bool{"bob": true, "carol": true, "dave": true}}
	c := NewRelationshipCoordinator(s, dir, &fakeLimiter{n: 2}, nil, testLogger())
	ctx := context.Background()

	require.NoError(t, c.RequestFriend(ctx, "alice", "bob"))
	require.NoError(t, c.RequestFriend(ctx, "alice", "carol"))
	assert.ErrorIs(t, c.RequestFriend(ctx, "alice", "dave"), domainerrors.ErrRateLimited)
	assert.False(t, requestExists(t, s, "dave", "alice"))

	// The budget is per caller.
	assert.NoError(t, c.RequestFriend(ctx, "erin", "dave"))
}

func TestRequestFriend_LimiterErrorFailsOpen(t *testing.T) {
	s := setupTestStore(t)
	dir := &fakeDirectory{known: map[string]bool{"bob": true}}
	c := NewRelationshipCoordinator(s, dir, &fakeLimiter{err: errBoom}, nil, testLogger())

	require.NoError(t, c.RequestFriend(context.Background(), "alice", "bob"))
	assert.True(t, requestExists(t, s, "bob", "alice"))
}

func TestRequestFriend_ConcurrentIdentical(t *testing.T) {
	c, s := setupCoordinator(t, "alice", "bob")
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = c.RequestFriend(ctx, "alice", "bob")
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			// Losing every retry is possible under heavy contention, never anything else.
			assert.ErrorIs(t, err, domainerrors.ErrConflict)
		}
	}
	outgoing, err := s.ListOutgoingFriendRequests(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, outgoing, 1)
}

func TestRequestFriend_ConcurrentCrossed(t *testing.T) {
	c, s := setupCoordinator(t, "alice", "bob")
	ctx := context.Background()

	var wg sync.WaitGroup
	var errAB, errBA error
	wg.Add(2)
	go func() { defer wg.Done(); errAB = c.RequestFriend(ctx, "alice", "bob") }()
	go func() { defer wg.Done(); errBA = c.RequestFriend(ctx, "bob", "alice") }()
	wg.Wait()

	ab := requestExists(t, s, "bob", "alice")
	ba := requestExists(t, s, "alice", "bob")
	assert.True(t, ab != ba, "exactly one direction may be pending")
	if ab {
		assert.NoError(t, errAB)
		assert.Error(t, errBA)
	} else {
		assert.NoError(t, errBA)
		assert.Error(t, errAB)
	}
}

func TestAcceptFriendRequest_CreatesBothEdges(t *testing.T) {
	c, s := setupCoordinator(t, "alice", "bob")
	ctx := context.Background()

	require.NoError(t, c.RequestFriend(ctx, "alice", "bob"))
	require.NoError(t, c.AcceptFriendRequest(ctx, "bob", "alice"))

	assert.True(t, edgeExists(t, s, "alice", "bob"))
	assert.True(t, edgeExists(t, s, "bob", "alice"))
	assert.False(t, requestExists(t, s, "bob", "alice"))

	outgoing, err := c.ListOutgoing(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, outgoing)

	// Accepting again finds nothing to accept.
	assert.ErrorIs(t, c.AcceptFriendRequest(ctx, "bob", "alice"), domainerrors.ErrNoPendingRequest)
}

func TestAcceptFriendRequest_NoPendingRequest(t *testing.T) {
	c, s := setupCoordinator(t, "alice", "bob")

	err := c.AcceptFriendRequest(context.Background(), "bob", "alice")
	assert.ErrorIs(t, err, domainerrors.ErrNoPendingRequest)
	assert.False(t, edgeExists(t, s, "alice", "bob"))
	assert.False(t, edgeExists(t, s, "bob", "alice"))
}

func TestAcceptFriendRequest_AllOrNothing(t *testing.T) {
	c, s := setupCoordinator(t, "alice", "bob")
	ctx := context.Background()

	require.NoError(t, c.RequestFriend(ctx, "alice", "bob"))
	// A one-sided legacy edge makes the second put fail.
	require.NoError(t, s.InsertFriendshipIfAbsent(ctx, "alice", "bob"))

	err := c.AcceptFriendRequest(ctx, "bob", "alice")
	assert.ErrorIs(t, err, domainerrors.ErrConflict)

	assert.False(t, edgeExists(t, s, "bob", "alice"), "first put must be rolled back")
	assert.True(t, requestExists(t, s, "bob", "alice"), "request must not be consumed")
}

func TestDeclineFriendRequest(t *testing.T) {
	c, s := setupCoordinator(t, "alice", "bob")
	ctx := context.Background()

	require.NoError(t, c.RequestFriend(ctx, "alice", "bob"))
	require.NoError(t, c.DeclineFriendRequest(ctx, "bob", "alice"))
	assert.False(t, requestExists(t, s, "bob", "alice"))

	require.NoError(t, c.DeclineFriendRequest(ctx, "bob", "alice"))

	// After a decline the requester may ask again.
	require.NoError(t, c.RequestFriend(ctx, "alice", "bob"))
}

func TestRemoveFriend_DeletesBothEdges(t *testing.T) {
	c, s := setupCoordinator(t, "alice", "bob")
	ctx := context.Background()

	require.NoError(t, c.RequestFriend(ctx, "alice", "bob"))
	require.NoError(t, c.AcceptFriendRequest(ctx, "bob", "alice"))

	require.NoError(t, c.RemoveFriend(ctx, "bob", "alice"))
	assert.False(t, edgeExists(t, s, "alice", "bob"))
	assert.False(t, edgeExists(t, s, "bob", "alice"))

	require.NoError(t, c.RemoveFriend(ctx, "bob", "alice"))
	assert.ErrorIs(t, c.RemoveFriend(ctx, "bob", "bob"), domainerrors.ErrValidation)
}

func TestAddFriend_Legacy(t *testing.T) {
	c, s := setupCoordinator(t, "alice", "bob")
	ctx := context.Background()

	require.NoError(t, c.AddFriend(ctx, "alice", "bob"))
	require.NoError(t, c.AddFriend(ctx, "alice", "bob"))

	assert.True(t, edgeExists(t, s, "alice", "bob"))
	assert.False(t, edgeExists(t, s, "bob", "alice"))

	ids, err := c.ListFriends(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, ids)

	assert.ErrorIs(t, c.AddFriend(ctx, "alice", "ghost"), domainerrors.ErrNotFound)
	assert.ErrorIs(t, c.AddFriend(ctx, "alice", "alice"), domainerrors.ErrValidation)
}

func TestRelationship_States(t *testing.T) {
	c, _ := setupCoordinator(t, "alice", "bob")
	ctx := context.Background()

	state := func(me, other string) domain.RelationshipState {
		st, err := c.Relationship(ctx, me, other)
		require.NoError(t, err)
		return st
	}

	assert.Equal(t, domain.RelationshipNone, state("alice", "bob"))

	require.NoError(t, c.RequestFriend(ctx, "alice", "bob"))
	assert.Equal(t, domain.RelationshipPendingOutgoing, state("alice", "bob"))
	assert.Equal(t, domain.RelationshipPendingIncoming, state("bob", "alice"))

	require.NoError(t, c.AcceptFriendRequest(ctx, "bob", "alice"))
	assert.Equal(t, domain.RelationshipFriends, state("alice", "bob"))
	assert.Equal(t, domain.RelationshipFriends, state("bob", "alice"))
}

func TestRelationshipCoordinator_RecordsTransitions(t *testing.T) {
	s := setupTestStore(t)
	registerUsers(t, s, "alice", "bob")
	reg := prometheus.NewRegistry()
	c := NewRelationshipCoordinator(s, NewStoreDirectory(s), nil, metrics.New(reg), testLogger())
	ctx := context.Background()

	require.NoError(t, c.RequestFriend(ctx, "alice", "bob"))
	require.Error(t, c.RequestFriend(ctx, "bob", "alice"))

	mfs, err := reg.Gather()
	require.NoError(t, err)

	got := map[string]float64{}
	for _, mf := range mfs {
		if mf.GetName() != "pilgrim_relationship_transitions_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			var op, result string
			for _, l := range m.GetLabel() {
				switch l.GetName() {
				case "op":
					op = l.GetValue()
				case "result":
					result = l.GetValue()
				}
			}
			got[op+"/"+result] = m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, map[string]float64{"request/ok": 1, "request/rejected": 1}, got)
}
