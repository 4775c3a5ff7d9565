package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pilgrimapp/pilgrim-server/internal/domain"
	domainerrors "github.com/pilgrimapp/pilgrim-server/internal/errors"
	"github.com/pilgrimapp/pilgrim-server/internal/metrics"
	"github.com/pilgrimapp/pilgrim-server/internal/ratelimit"
	"github.com/pilgrimapp/pilgrim-server/internal/store"
)

// maxRequestAttempts bounds retries of a friend request that lost a commit race.
const maxRequestAttempts = 3

// Relationship operation names, used in logs and metrics.
const (
	opRequest = "request"
	opAccept  = "accept"
	opDecline = "decline"
	opRemove  = "remove"
	opAdd     = "add"
)

// RelationshipCoordinator owns every friend-request and friendship transition.
// It is the only writer that touches more than one record, and it always does
// so through a single store transaction.
type RelationshipCoordinator struct {
	store     *store.Store
	directory Directory
	limiter   ratelimit.Limiter
	metrics   *metrics.Recorder
	logger    *slog.Logger
}

// NewRelationshipCoordinator creates a coordinator. limiter and rec may be nil.
func NewRelationshipCoordinator(
	store *store.Store,
	directory Directory,
	limiter ratelimit.Limiter,
	rec *metrics.Recorder,
	logger *slog.Logger,
) *RelationshipCoordinator {
	return &RelationshipCoordinator{
		store:     store,
		directory: directory,
		limiter:   limiter,
		metrics:   rec,
		logger:    logger,
	}
}

// RequestFriend asks target to become me's friend.
//
// Requesting someone who already has a pending request from me succeeds
// without writing. Requesting a friend fails with ErrAlreadyFriends, and
// requesting someone who already asked me fails with
// ErrReciprocalRequestExists; the caller should accept instead.
func (c *RelationshipCoordinator) RequestFriend(ctx context.Context, me, target string) error {
	target, err := c.checkCounterpart(me, target, "targetUserId", "cannot send a friend request to yourself")
	if err != nil {
		return err
	}
	if err := c.allowLookup(ctx, me); err != nil {
		c.metrics.Transition(opRequest, metrics.ResultRejected)
		return err
	}
	if err := c.requireKnownUser(ctx, target); err != nil {
		c.metrics.Transition(opRequest, resultOf(err))
		return err
	}

	for attempt := 1; ; attempt++ {
		err := c.store.Transact(ctx,
			c.store.FriendshipCheckAbsentOp(me, target),
			c.store.FriendRequestCheckAbsentOp(me, target),
			c.store.FriendRequestPutIfAbsentOp(target, me, c.store.Now()),
		)

		var canceled *store.TxnCanceledError
		switch {
		case err == nil:
			c.logger.Info("friend request sent", "user_id", me, "target_id", target)
			c.metrics.Transition(opRequest, metrics.ResultOK)
			return nil

		case errors.As(err, &canceled):
			switch canceled.Index {
			case 0:
				c.metrics.Transition(opRequest, metrics.ResultRejected)
				return domainerrors.ErrAlreadyFriends
			case 1:
				c.metrics.Transition(opRequest, metrics.ResultRejected)
				return domainerrors.ErrReciprocalRequestExists
			default:
				// Our request is already pending.
				c.metrics.Transition(opRequest, metrics.ResultOK)
				return nil
			}

		case errors.Is(err, store.ErrTxnConflict):
			c.metrics.TxnConflict(opRequest)
			if attempt < maxRequestAttempts {
				c.logger.Debug("friend request lost a commit race, retrying",
					"user_id", me, "target_id", target, "attempt", attempt)
				continue
			}
			c.metrics.Transition(opRequest, metrics.ResultError)
			return domainerrors.Conflict("friend request is being changed concurrently, try again")

		default:
			c.metrics.Transition(opRequest, metrics.ResultError)
			return storeError(err, "request friend")
		}
	}
}

// AcceptFriendRequest turns requester's pending request to me into a mutual
// friendship. Both edges are created and the request consumed in one
// transaction; if anything changed underneath, nothing is written.
func (c *RelationshipCoordinator) AcceptFriendRequest(ctx context.Context, me, requester string) error {
	requester, err := c.checkCounterpart(me, requester, "requesterUserId", "cannot accept your own request")
	if err != nil {
		return err
	}

	if _, err := c.store.GetFriendRequest(ctx, me, requester); err != nil {
		if errors.Is(err, store.ErrFriendRequestNotFound) {
			c.metrics.Transition(opAccept, metrics.ResultRejected)
			return domainerrors.ErrNoPendingRequest
		}
		c.metrics.Transition(opAccept, metrics.ResultError)
		return storeError(err, "get friend request")
	}

	now := c.store.Now()
	err = c.store.Transact(ctx,
		c.store.FriendshipPutIfAbsentOp(me, requester, now),
		c.store.FriendshipPutIfAbsentOp(requester, me, now),
		c.store.FriendRequestConsumeOp(me, requester),
	)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrConditionFailed), errors.Is(err, store.ErrTxnConflict):
		if errors.Is(err, store.ErrTxnConflict) {
			c.metrics.TxnConflict(opAccept)
		}
		c.metrics.Transition(opAccept, metrics.ResultRejected)
		c.logger.Warn("friend request accept aborted",
			"user_id", me, "requester_id", requester, "error", err)
		return domainerrors.Conflict("friend request changed while accepting, refresh and try again")
	default:
		c.metrics.Transition(opAccept, metrics.ResultError)
		return storeError(err, "accept friend request")
	}

	c.logger.Info("friend request accepted", "user_id", me, "requester_id", requester)
	c.metrics.Transition(opAccept, metrics.ResultOK)
	return nil
}

// DeclineFriendRequest drops requester's request to me. Declining a request
// that does not exist succeeds.
func (c *RelationshipCoordinator) DeclineFriendRequest(ctx context.Context, me, requester string) error {
	requester, err := requireID("requesterUserId", requester)
	if err != nil {
		return err
	}
	if err := c.store.DeleteFriendRequest(ctx, me, requester); err != nil {
		c.metrics.Transition(opDecline, metrics.ResultError)
		return storeError(err, "decline friend request")
	}
	c.logger.Info("friend request declined", "user_id", me, "requester_id", requester)
	c.metrics.Transition(opDecline, metrics.ResultOK)
	return nil
}

// RemoveFriend deletes both edges between me and friend atomically.
// Removing someone who is not a friend succeeds.
func (c *RelationshipCoordinator) RemoveFriend(ctx context.Context, me, friend string) error {
	friend, err := c.checkCounterpart(me, friend, "friendId", "cannot unfriend yourself")
	if err != nil {
		return err
	}
	if err := c.store.DeleteFriendshipPair(ctx, me, friend); err != nil {
		if errors.Is(err, store.ErrTxnConflict) {
			c.metrics.TxnConflict(opRemove)
			c.metrics.Transition(opRemove, metrics.ResultRejected)
			return domainerrors.Conflict("friendship is being changed concurrently, try again")
		}
		c.metrics.Transition(opRemove, metrics.ResultError)
		return storeError(err, "remove friend")
	}
	c.logger.Info("friend removed", "user_id", me, "friend_id", friend)
	c.metrics.Transition(opRemove, metrics.ResultOK)
	return nil
}

// AddFriend writes the single edge me -> friend without a request.
// It exists for older clients that predate friend requests; the edge is
// one-sided until the other user adds back or a request is accepted.
func (c *RelationshipCoordinator) AddFriend(ctx context.Context, me, friend string) error {
	friend, err := c.checkCounterpart(me, friend, "friendId", "cannot add yourself as a friend")
	if err != nil {
		return err
	}
	if err := c.requireKnownUser(ctx, friend); err != nil {
		c.metrics.Transition(opAdd, resultOf(err))
		return err
	}
	if err := c.store.InsertFriendshipIfAbsent(ctx, me, friend); err != nil {
		c.metrics.Transition(opAdd, metrics.ResultError)
		return storeError(err, "add friend")
	}
	c.logger.Info("friend edge added", "user_id", me, "friend_id", friend)
	c.metrics.Transition(opAdd, metrics.ResultOK)
	return nil
}

// ListFriends returns the ids of everyone me has an edge to.
func (c *RelationshipCoordinator) ListFriends(ctx context.Context, me string) ([]string, error) {
	ids, err := c.store.ListFriendIDs(ctx, me)
	if err != nil {
		return nil, storeError(err, "list friends")
	}
	return ids, nil
}

// ListIncoming returns the requests waiting for me to answer.
func (c *RelationshipCoordinator) ListIncoming(ctx context.Context, me string) ([]*domain.FriendRequest, error) {
	reqs, err := c.store.ListIncomingFriendRequests(ctx, me)
	if err != nil {
		return nil, storeError(err, "list incoming requests")
	}
	return reqs, nil
}

// ListOutgoing returns the requests me has sent that are still pending.
func (c *RelationshipCoordinator) ListOutgoing(ctx context.Context, me string) ([]*domain.FriendRequest, error) {
	reqs, err := c.store.ListOutgoingFriendRequests(ctx, me)
	if err != nil {
		return nil, storeError(err, "list outgoing requests")
	}
	return reqs, nil
}

// Relationship reports how other relates to me.
func (c *RelationshipCoordinator) Relationship(ctx context.Context, me, other string) (domain.RelationshipState, error) {
	other, err := requireID("userId", other)
	if err != nil {
		return "", err
	}

	if _, err := c.store.GetFriendship(ctx, me, other); err == nil {
		return domain.RelationshipFriends, nil
	} else if !errors.Is(err, store.ErrFriendshipNotFound) {
		return "", storeError(err, "check friendship")
	}

	if _, err := c.store.GetFriendRequest(ctx, other, me); err == nil {
		return domain.RelationshipPendingOutgoing, nil
	} else if !errors.Is(err, store.ErrFriendRequestNotFound) {
		return "", storeError(err, "check outgoing request")
	}

	if _, err := c.store.GetFriendRequest(ctx, me, other); err == nil {
		return domain.RelationshipPendingIncoming, nil
	} else if !errors.Is(err, store.ErrFriendRequestNotFound) {
		return "", storeError(err, "check incoming request")
	}

	return domain.RelationshipNone, nil
}

// checkCounterpart validates the other party's id and that it is not me.
func (c *RelationshipCoordinator) checkCounterpart(me, other, field, selfMsg string) (string, error) {
	other, err := requireID(field, other)
	if err != nil {
		return "", err
	}
	if other == me {
		return "", domainerrors.Validation(selfMsg)
	}
	return other, nil
}

// allowLookup applies the per-caller directory lookup budget. A limiter that
// cannot answer lets the request through.
func (c *RelationshipCoordinator) allowLookup(ctx context.Context, me string) error {
	if c.limiter == nil {
		return nil
	}
	ok, err := c.limiter.Allow(ctx, "friend-lookup:"+me)
	if err != nil {
		c.logger.Warn("friend lookup limiter unavailable, allowing", "user_id", me, "error", err)
		return nil
	}
	if !ok {
		c.logger.Warn("friend lookup rate limited", "user_id", me)
		return domainerrors.ErrRateLimited.WithDetails(map[string]string{"scope": "friend-lookup"})
	}
	return nil
}

func (c *RelationshipCoordinator) requireKnownUser(ctx context.Context, subject string) error {
	exists, err := c.directory.Exists(ctx, subject)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return domainerrors.UpstreamUnavailable("user directory unavailable", fmt.Errorf("lookup %s: %w", subject, err))
	}
	if !exists {
		return domainerrors.NotFound("no such user")
	}
	return nil
}

func resultOf(err error) string {
	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) && domainErr.HTTPStatus() < 500 {
		return metrics.ResultRejected
	}
	return metrics.ResultError
}
