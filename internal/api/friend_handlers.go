package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/pilgrimapp/pilgrim-server/internal/domain"
)

func (s *Server) registerFriendRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listFriends",
		Method:      http.MethodGet,
		Path:        "/api/v1/friends",
		Summary:     "List friends",
		Description: "Returns the ids of everyone the caller is friends with",
		Tags:        []string{"Friends"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListFriends)

	huma.Register(s.api, huma.Operation{
		OperationID: "getFriendsSummary",
		Method:      http.MethodGet,
		Path:        "/api/v1/friends/summary",
		Summary:     "Friends overview",
		Description: "Returns each friend's display name, visited place count and most recent visit",
		Tags:        []string{"Friends"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetFriendsSummary)

	huma.Register(s.api, huma.Operation{
		OperationID: "listIncomingFriendRequests",
		Method:      http.MethodGet,
		Path:        "/api/v1/friends/requests/incoming",
		Summary:     "Incoming friend requests",
		Tags:        []string{"Friends"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListIncoming)

	huma.Register(s.api, huma.Operation{
		OperationID: "listOutgoingFriendRequests",
		Method:      http.MethodGet,
		Path:        "/api/v1/friends/requests/outgoing",
		Summary:     "Outgoing friend requests",
		Tags:        []string{"Friends"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListOutgoing)

	huma.Register(s.api, huma.Operation{
		OperationID: "sendFriendRequest",
		Method:      http.MethodPost,
		Path:        "/api/v1/friends/requests/{userId}",
		Summary:     "Send a friend request",
		Description: "Asks the user to become the caller's friend. Sending the same request twice is not an error",
		Tags:        []string{"Friends"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSendFriendRequest)

	huma.Register(s.api, huma.Operation{
		OperationID: "acceptFriendRequest",
		Method:      http.MethodPost,
		Path:        "/api/v1/friends/requests/{userId}/accept",
		Summary:     "Accept a friend request",
		Tags:        []string{"Friends"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleAcceptFriendRequest)

	huma.Register(s.api, huma.Operation{
		OperationID: "declineFriendRequest",
		Method:      http.MethodPost,
		Path:        "/api/v1/friends/requests/{userId}/decline",
		Summary:     "Decline a friend request",
		Tags:        []string{"Friends"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeclineFriendRequest)

	huma.Register(s.api, huma.Operation{
		OperationID: "addFriend",
		Method:      http.MethodPost,
		Path:        "/api/v1/friends/{friendId}",
		Summary:     "Add a friend directly",
		Description: "Writes a one-sided friend edge without a request. Kept for older clients",
		Tags:        []string{"Friends"},
		Security:    []map[string][]string{{"bearer": {}}},
		Deprecated:  true,
	}, s.handleAddFriend)

	huma.Register(s.api, huma.Operation{
		OperationID: "removeFriend",
		Method:      http.MethodDelete,
		Path:        "/api/v1/friends/{friendId}",
		Summary:     "Unfriend",
		Description: "Removes the friendship in both directions",
		Tags:        []string{"Friends"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRemoveFriend)

	huma.Register(s.api, huma.Operation{
		OperationID: "getFriendVisits",
		Method:      http.MethodGet,
		Path:        "/api/v1/friends/{friendId}/visits",
		Summary:     "A friend's visits",
		Description: "Returns a friend's visits without their notes or photos",
		Tags:        []string{"Friends"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetFriendVisits)

	huma.Register(s.api, huma.Operation{
		OperationID: "getRelationshipStatus",
		Method:      http.MethodGet,
		Path:        "/api/v1/friends/{friendId}/status",
		Summary:     "Relationship status",
		Description: "Reports whether the caller and the user are friends or have a pending request",
		Tags:        []string{"Friends"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetRelationshipStatus)
}

// === DTOs ===

// UserPathInput names the other user of a friend request.
type UserPathInput struct {
	UserID string `path:"userId" doc:"The other user's ID (friend code)"`
}

// FriendPathInput names a friend.
type FriendPathInput struct {
	FriendID string `path:"friendId" doc:"Friend's user ID"`
}

// FriendIDsOutput wraps the friend id list for Huma.
type FriendIDsOutput struct {
	Body []string
}

// IncomingRequestResponse is a request waiting for the caller.
type IncomingRequestResponse struct {
	RequesterUserID string    `json:"requesterUserId" doc:"Who asked"`
	CreatedAt       time.Time `json:"createdAt" doc:"When they asked"`
}

// IncomingRequestsOutput wraps incoming requests for Huma.
type IncomingRequestsOutput struct {
	Body []IncomingRequestResponse
}

// OutgoingRequestResponse is a request the caller sent.
type OutgoingRequestResponse struct {
	TargetUserID string    `json:"targetUserId" doc:"Who was asked"`
	CreatedAt    time.Time `json:"createdAt" doc:"When the request was sent"`
}

// OutgoingRequestsOutput wraps outgoing requests for Huma.
type OutgoingRequestsOutput struct {
	Body []OutgoingRequestResponse
}

// LastVisitResponse identifies a friend's most recent visit.
type LastVisitResponse struct {
	PlaceID   string     `json:"placeId" doc:"Place ID"`
	PlaceName *string    `json:"placeName,omitempty" doc:"Display name of the place"`
	VisitDate *string    `json:"visitDate,omitempty" doc:"Visit date"`
	Timestamp *time.Time `json:"timestamp,omitempty" doc:"Last write time"`
}

// FriendSummaryResponse is one row of the friends overview.
type FriendSummaryResponse struct {
	FriendID     string             `json:"friendId" doc:"Friend's user ID"`
	DisplayName  *string            `json:"displayName" doc:"Friend's display name, null if unset"`
	VisitedCount int                `json:"visitedCount" doc:"Places the friend has visited"`
	LastVisit    *LastVisitResponse `json:"lastVisit" doc:"Most recent visit, null if none"`
}

// FriendsSummaryOutput wraps the overview for Huma.
type FriendsSummaryOutput struct {
	Body []FriendSummaryResponse
}

// FriendVisitResponse is a friend's visit as the caller may see it.
type FriendVisitResponse struct {
	PlaceID   string     `json:"placeId" doc:"Place ID"`
	PlaceName *string    `json:"placeName,omitempty" doc:"Display name of the place"`
	VisitDate *string    `json:"visitDate,omitempty" doc:"Visit date"`
	Rating    *float64   `json:"rating,omitempty" doc:"Rating from 0 to 5"`
	Timestamp *time.Time `json:"timestamp,omitempty" doc:"Last write time"`
}

// FriendVisitsOutput wraps a friend's visits for Huma.
type FriendVisitsOutput struct {
	Body []FriendVisitResponse
}

// RelationshipStatusResponse reports how another user relates to the caller.
type RelationshipStatusResponse struct {
	UserID string `json:"userId" doc:"The other user's ID"`
	State  string `json:"state" enum:"none,pending_outgoing,pending_incoming,friends" doc:"Relationship state"`
}

// RelationshipStatusOutput wraps the status for Huma.
type RelationshipStatusOutput struct {
	Body RelationshipStatusResponse
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// === Handlers ===

func (s *Server) handleListFriends(ctx context.Context, _ *struct{}) (*FriendIDsOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	ids, err := s.services.Relationships.ListFriends(ctx, userID)
	if err != nil {
		return nil, s.fail(ctx, "list friends", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return &FriendIDsOutput{Body: ids}, nil
}

func (s *Server) handleGetFriendsSummary(ctx context.Context, _ *struct{}) (*FriendsSummaryOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	summaries, err := s.services.Aggregator.SummarizeFriends(ctx, userID)
	if err != nil {
		return nil, s.fail(ctx, "summarize friends", err)
	}

	resp := make([]FriendSummaryResponse, len(summaries))
	for i, sum := range summaries {
		resp[i] = FriendSummaryResponse{
			FriendID:     sum.FriendID,
			DisplayName:  sum.DisplayName,
			VisitedCount: sum.VisitedCount,
		}
		if last := sum.LastVisit; last != nil {
			resp[i].LastVisit = &LastVisitResponse{
				PlaceID:   last.PlaceID,
				PlaceName: last.PlaceName,
				VisitDate: last.VisitDate,
				Timestamp: timePtr(last.Timestamp),
			}
		}
	}
	return &FriendsSummaryOutput{Body: resp}, nil
}

func (s *Server) handleListIncoming(ctx context.Context, _ *struct{}) (*IncomingRequestsOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	reqs, err := s.services.Relationships.ListIncoming(ctx, userID)
	if err != nil {
		return nil, s.fail(ctx, "list incoming requests", err)
	}

	resp := make([]IncomingRequestResponse, len(reqs))
	for i, r := range reqs {
		resp[i] = IncomingRequestResponse{RequesterUserID: r.RequesterUserID, CreatedAt: r.CreatedAt}
	}
	return &IncomingRequestsOutput{Body: resp}, nil
}

func (s *Server) handleListOutgoing(ctx context.Context, _ *struct{}) (*OutgoingRequestsOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	reqs, err := s.services.Relationships.ListOutgoing(ctx, userID)
	if err != nil {
		return nil, s.fail(ctx, "list outgoing requests", err)
	}

	resp := make([]OutgoingRequestResponse, len(reqs))
	for i, r := range reqs {
		resp[i] = OutgoingRequestResponse{TargetUserID: r.TargetUserID, CreatedAt: r.CreatedAt}
	}
	return &OutgoingRequestsOutput{Body: resp}, nil
}

func (s *Server) handleSendFriendRequest(ctx context.Context, input *UserPathInput) (*OKOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Relationships.RequestFriend(ctx, userID, input.UserID); err != nil {
		return nil, s.fail(ctx, "request friend", err)
	}
	return ok(), nil
}

func (s *Server) handleAcceptFriendRequest(ctx context.Context, input *UserPathInput) (*OKOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Relationships.AcceptFriendRequest(ctx, userID, input.UserID); err != nil {
		return nil, s.fail(ctx, "accept friend request", err)
	}
	return ok(), nil
}

func (s *Server) handleDeclineFriendRequest(ctx context.Context, input *UserPathInput) (*OKOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Relationships.DeclineFriendRequest(ctx, userID, input.UserID); err != nil {
		return nil, s.fail(ctx, "decline friend request", err)
	}
	return ok(), nil
}

func (s *Server) handleAddFriend(ctx context.Context, input *FriendPathInput) (*OKOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Relationships.AddFriend(ctx, userID, input.FriendID); err != nil {
		return nil, s.fail(ctx, "add friend", err)
	}
	return ok(), nil
}

func (s *Server) handleRemoveFriend(ctx context.Context, input *FriendPathInput) (*OKOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Relationships.RemoveFriend(ctx, userID, input.FriendID); err != nil {
		return nil, s.fail(ctx, "remove friend", err)
	}
	return ok(), nil
}

func (s *Server) handleGetFriendVisits(ctx context.Context, input *FriendPathInput) (*FriendVisitsOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	visits, err := s.services.Aggregator.FriendVisits(ctx, userID, input.FriendID)
	if err != nil {
		return nil, s.fail(ctx, "friend visits", err)
	}

	resp := make([]FriendVisitResponse, len(visits))
	for i, v := range visits {
		resp[i] = FriendVisitResponse{
			PlaceID:   v.PlaceID,
			PlaceName: v.PlaceName,
			VisitDate: v.VisitDate,
			Rating:    v.Rating,
			Timestamp: timePtr(v.Timestamp),
		}
	}
	return &FriendVisitsOutput{Body: resp}, nil
}

func (s *Server) handleGetRelationshipStatus(ctx context.Context, input *FriendPathInput) (*RelationshipStatusOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	state, err := s.services.Relationships.Relationship(ctx, userID, input.FriendID)
	if err != nil {
		return nil, s.fail(ctx, "relationship status", err)
	}
	if state == "" {
		state = domain.RelationshipNone
	}
	return &RelationshipStatusOutput{
		Body: RelationshipStatusResponse{UserID: input.FriendID, State: string(state)},
	}, nil
}
