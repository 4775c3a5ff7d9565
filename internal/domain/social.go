package domain

import "time"

// Friendship is one directed edge. A friendship between A and B is the pair
// of edges (A,B) and (B,A); both exist or neither does.
type Friendship struct {
	OwnerID   string    `json:"owner_id"`
	FriendID  string    `json:"friend_id"`
	CreatedAt time.Time `json:"created_at"`
}

// FriendRequest is a pending request from RequesterUserID to TargetUserID.
// At most one exists per ordered pair, and it is consumed on accept.
type FriendRequest struct {
	TargetUserID    string    `json:"target_user_id"`
	RequesterUserID string    `json:"requester_user_id"`
	CreatedAt       time.Time `json:"created_at"`
}

// RelationshipState is the state of an ordered pair as seen by one side.
type RelationshipState string

const (
	// RelationshipNone means no edge and no pending request.
	RelationshipNone RelationshipState = "none"
	// RelationshipPendingOutgoing means the caller has asked and is waiting.
	RelationshipPendingOutgoing RelationshipState = "pending_outgoing"
	// RelationshipPendingIncoming means the other side has asked the caller.
	RelationshipPendingIncoming RelationshipState = "pending_incoming"
	// RelationshipFriends means both edges exist.
	RelationshipFriends RelationshipState = "friends"
)

// FriendSummary is the per-friend row of the friends overview.
type FriendSummary struct {
	FriendID     string         `json:"friend_id"`
	DisplayName  *string        `json:"display_name"`
	VisitedCount int            `json:"visited_count"`
	LastVisit    *LastVisitInfo `json:"last_visit"`
}

// LastVisitInfo identifies a friend's most recent visit.
type LastVisitInfo struct {
	PlaceID   string    `json:"place_id"`
	PlaceName *string   `json:"place_name,omitempty"`
	VisitDate *string   `json:"visit_date,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
