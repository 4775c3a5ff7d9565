package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/pilgrimapp/pilgrim-server/internal/domain"
	"github.com/pilgrimapp/pilgrim-server/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTouchUser_RegistersThenRefreshes(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.SetClock(stepClock(start, time.Hour))

	exists, err := s.UserExists(ctx, "sub-1")
	require.NoError(t, err)
	assert.False(t, exists)

	first, err := s.TouchUser(ctx, "sub-1", "Ana@Example.com")
	require.NoError(t, err)
	assert.Equal(t, start, first.CreatedAt)

	second, err := s.TouchUser(ctx, "sub-1", "")
	require.NoError(t, err)
	assert.Equal(t, start, second.CreatedAt)
	assert.True(t, second.LastSeenAt.After(first.LastSeenAt))
	assert.Equal(t, "Ana@Example.com", second.Email)

	exists, err = s.UserExists(ctx, "sub-1")
	require.NoError(t, err)
	assert.True(t, exists)

	byEmail, err := s.Users.GetByIndex(ctx, "email", "  ana@example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "sub-1", byEmail.ID)
}

func TestTouchUser_EmailConflict(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	_, err := s.TouchUser(ctx, "sub-1", "same@example.com")
	require.NoError(t, err)

	_, err = s.TouchUser(ctx, "sub-2", "SAME@example.com")
	assert.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestGetUser_NotFound(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := s.GetUser(context.Background(), "ghost")
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}

func TestEntity_DeleteRemovesIndex(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	_, err := s.TouchUser(ctx, "sub-1", "a@example.com")
	require.NoError(t, err)
	require.NoError(t, s.Users.Delete(ctx, "sub-1"))
	require.NoError(t, s.Users.Delete(ctx, "sub-1"))

	_, err = s.Users.GetByIndex(ctx, "email", "a@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)

	// The email is free again.
	_, err = s.TouchUser(ctx, "sub-2", "a@example.com")
	assert.NoError(t, err)
}

func TestGetDisplayNames(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, s.SaveUserProfile(ctx, &domain.UserProfile{UserID: "a", DisplayName: "Ana"}))
	require.NoError(t, s.SaveUserProfile(ctx, &domain.UserProfile{UserID: "b", DisplayName: ""}))

	names, err := s.GetDisplayNames(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "Ana"}, names)

	_, err = s.GetUserProfile(ctx, "c")
	assert.ErrorIs(t, err, store.ErrProfileNotFound)
}
