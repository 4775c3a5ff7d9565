package domain

import "time"

// DisplayNameMaxRunes caps a profile display name.
const DisplayNameMaxRunes = 60

// User is a directory entry for an authenticated subject.
// The subject comes from the identity provider and never changes.
type User struct {
	ID         string    `json:"id"`
	Email      string    `json:"email,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// FriendCode is the value a user shares so others can request them.
func (u *User) FriendCode() string {
	return u.ID
}

// UserProfile holds user-editable profile fields.
// Stored separately from User so directory writes never touch it.
type UserProfile struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	UpdatedAt   time.Time `json:"updated_at"`
}
