package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pilgrimapp/pilgrim-server/internal/domain"
)

const (
	userPrefix    = "user:"
	profilePrefix = "profile:"
)

var (
	// ErrUserNotFound is returned when a subject is not in the directory.
	ErrUserNotFound = ErrNotFound.WithMessage("user not found")
	// ErrProfileNotFound is returned when a user has not set up a profile.
	ErrProfileNotFound = ErrNotFound.WithMessage("profile not found")
)

// normalizeEmail lowercases and trims an email for index lookups.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// initUsers initializes the Users entity on the store.
// Email is indexed case-insensitively; users without an email are not indexed.
func (s *Store) initUsers() {
	s.Users = NewEntity[domain.User](s, userPrefix).
		WithIndexTransform("email",
			func(u *domain.User) []string {
				if u.Email == "" {
					return nil
				}
				return []string{normalizeEmail(u.Email)}
			},
			normalizeEmail,
		)
}

func (s *Store) initProfiles() {
	s.Profiles = NewEntity[domain.UserProfile](s, profilePrefix)
}

// UserExists reports whether subject is registered in the directory.
func (s *Store) UserExists(ctx context.Context, subject string) (bool, error) {
	if err := validID(subject); err != nil {
		return false, err
	}
	return s.Users.Exists(ctx, subject)
}

// GetUser returns the directory entry for subject.
func (s *Store) GetUser(ctx context.Context, subject string) (*domain.User, error) {
	if err := validID(subject); err != nil {
		return nil, err
	}
	u, err := s.Users.Get(ctx, subject)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// TouchUser registers subject on first sight and refreshes its email and
// last-seen time afterwards.
func (s *Store) TouchUser(ctx context.Context, subject, email string) (*domain.User, error) {
	if err := validID(subject); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user, err := s.Users.Get(ctx, subject)
	switch {
	case errors.Is(err, ErrNotFound):
		user = &domain.User{ID: subject, CreatedAt: now}
	case err != nil:
		return nil, fmt.Errorf("get user: %w", err)
	}

	if email != "" {
		user.Email = email
	}
	user.LastSeenAt = now

	if err := s.Users.Put(ctx, subject, user); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}
	return user, nil
}

// GetUserProfile retrieves a user's profile.
// Returns ErrProfileNotFound if no profile exists.
func (s *Store) GetUserProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	p, err := s.Profiles.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrProfileNotFound
	}
	return p, err
}

// SaveUserProfile creates or updates a user's profile.
func (s *Store) SaveUserProfile(ctx context.Context, profile *domain.UserProfile) error {
	if err := validID(profile.UserID); err != nil {
		return err
	}
	profile.UpdatedAt = s.now().UTC()
	return s.Profiles.Put(ctx, profile.UserID, profile)
}

// GetDisplayNames returns the display names of the given users in one read.
// Users without a profile or with an empty name are omitted.
func (s *Store) GetDisplayNames(ctx context.Context, userIDs []string) (map[string]string, error) {
	profiles, err := s.Profiles.GetMany(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("get profiles: %w", err)
	}

	names := make(map[string]string, len(profiles))
	for id, p := range profiles {
		if p.DisplayName != "" {
			names[id] = p.DisplayName
		}
	}
	return names, nil
}
