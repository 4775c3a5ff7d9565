package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/pilgrimapp/pilgrim-server/internal/domain"
	"github.com/pilgrimapp/pilgrim-server/internal/normalize"
	"github.com/pilgrimapp/pilgrim-server/internal/store"
)

// touchInterval limits how often a returning user's last-seen time is rewritten.
const touchInterval = time.Hour

// Me is the caller's own view of their account.
type Me struct {
	UserID      string
	Email       string
	DisplayName *string
	FriendCode  string
}

// ProfileService provides user profile management and directory provisioning.
type ProfileService struct {
	store  *store.Store
	logger *slog.Logger
}

// NewProfileService creates a new profile service.
func NewProfileService(store *store.Store, logger *slog.Logger) *ProfileService {
	return &ProfileService{
		store:  store,
		logger: logger,
	}
}

// EnsureUser records subject in the user directory the first time it is seen
// and refreshes it at most once per touchInterval afterwards. This is what
// makes a subject visible to friend requests.
func (s *ProfileService) EnsureUser(ctx context.Context, subject, email string) error {
	user, err := s.store.GetUser(ctx, subject)
	switch {
	case err == nil:
		if s.store.Now().Sub(user.LastSeenAt) < touchInterval && (email == "" || email == user.Email) {
			return nil
		}
	case errors.Is(err, store.ErrUserNotFound):
		s.logger.Info("registering new user", "user_id", subject)
	default:
		return storeError(err, "get user")
	}

	_, err = s.store.TouchUser(ctx, subject, email)
	if errors.Is(err, store.ErrAlreadyExists) {
		// Another subject claimed this email first; keep the account without it.
		s.logger.Warn("email already registered to another user", "user_id", subject)
		_, err = s.store.TouchUser(ctx, subject, "")
	}
	if err != nil {
		return storeError(err, "touch user")
	}
	return nil
}

// Me returns the caller's identity, display name and friend code.
// The friend code is the subject itself.
func (s *ProfileService) Me(ctx context.Context, subject, email string) (*Me, error) {
	me := &Me{UserID: subject, Email: email, FriendCode: subject}

	profile, err := s.store.GetUserProfile(ctx, subject)
	switch {
	case err == nil:
		if profile.DisplayName != "" {
			name := profile.DisplayName
			me.DisplayName = &name
		}
	case errors.Is(err, store.ErrProfileNotFound):
	default:
		return nil, storeError(err, "get profile")
	}

	if me.Email == "" {
		if user, err := s.store.GetUser(ctx, subject); err == nil {
			me.Email = user.Email
		}
	}
	return me, nil
}

// UpdateProfile sets the caller's display name. The name is NFC-normalized,
// whitespace-collapsed and cut to domain.DisplayNameMaxRunes; an empty result
// clears it.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID, displayName string) (*domain.UserProfile, error) {
	profile := &domain.UserProfile{
		UserID:      userID,
		DisplayName: normalize.DisplayName(displayName, domain.DisplayNameMaxRunes),
	}
	if err := s.store.SaveUserProfile(ctx, profile); err != nil {
		return nil, storeError(err, "save profile")
	}
	s.logger.Debug("profile updated", "user_id", userID)
	return profile, nil
}
