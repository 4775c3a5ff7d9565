package store_test

import (
	"context"
	"strings"
	"testing"

	"github.com/pilgrimapp/pilgrim-server/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEntity struct {
	ID   string   `json:"id"`
	Tags []string `json:"tags"`
}

func newTagged(s *store.Store) *store.Entity[testEntity] {
	return store.NewEntity[testEntity](s, "test:").
		WithIndexTransform("tag", func(e *testEntity) []string { return e.Tags }, strings.ToLower)
}

func TestEntity_PutGet(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	e := newTagged(s)

	require.NoError(t, e.Put(ctx, "1", &testEntity{ID: "1", Tags: []string{"red"}}))

	got, err := e.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, []string{"red"}, got.Tags)

	ok, err := e.Exists(ctx, "1")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = e.Get(ctx, "2")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestEntity_IndexLookupAppliesTransform(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	e := newTagged(s)

	require.NoError(t, e.Put(ctx, "1", &testEntity{ID: "1", Tags: []string{"red"}}))

	got, err := e.GetByIndex(ctx, "tag", "RED")
	require.NoError(t, err)
	assert.Equal(t, "1", got.ID)
}

func TestEntity_IndexConflict(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	e := newTagged(s)

	require.NoError(t, e.Put(ctx, "1", &testEntity{ID: "1", Tags: []string{"red"}}))
	err := e.Put(ctx, "2", &testEntity{ID: "2", Tags: []string{"red"}})
	assert.ErrorIs(t, err, store.ErrAlreadyExists)

	// Re-putting the owner keeps its own index entry.
	require.NoError(t, e.Put(ctx, "1", &testEntity{ID: "1", Tags: []string{"red", "blue"}}))
}

func TestEntity_PutMovesIndex(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	e := newTagged(s)

	require.NoError(t, e.Put(ctx, "1", &testEntity{ID: "1", Tags: []string{"red"}}))
	require.NoError(t, e.Put(ctx, "1", &testEntity{ID: "1", Tags: []string{"blue"}}))

	_, err := e.GetByIndex(ctx, "tag", "red")
	assert.ErrorIs(t, err, store.ErrNotFound)

	// The freed value can be claimed by another entity.
	require.NoError(t, e.Put(ctx, "2", &testEntity{ID: "2", Tags: []string{"red"}}))
}

func TestEntity_GetManySkipsMissing(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	e := newTagged(s)

	require.NoError(t, e.Put(ctx, "1", &testEntity{ID: "1"}))
	require.NoError(t, e.Put(ctx, "3", &testEntity{ID: "3"}))

	got, err := e.GetMany(ctx, []string{"1", "2", "3"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Contains(t, got, "1")
	assert.Contains(t, got, "3")
}

func TestEntity_DeleteIsIdempotent(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	e := newTagged(s)

	require.NoError(t, e.Delete(ctx, "missing"))

	require.NoError(t, e.Put(ctx, "1", &testEntity{ID: "1", Tags: []string{"red"}}))
	require.NoError(t, e.Delete(ctx, "1"))
	require.NoError(t, e.Delete(ctx, "1"))

	_, err := e.GetByIndex(ctx, "tag", "red")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestEntity_ContextCancellation(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	e := newTagged(s)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Get(ctx, "1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, e.Put(ctx, "1", &testEntity{ID: "1"}), context.Canceled)
	assert.ErrorIs(t, e.Delete(ctx, "1"), context.Canceled)
}
