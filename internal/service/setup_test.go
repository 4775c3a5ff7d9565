package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pilgrimapp/pilgrim-server/internal/objectstore"
	"github.com/pilgrimapp/pilgrim-server/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "service-test-*")
	require.NoError(t, err)

	s, err := store.New(filepath.Join(tmpDir, "test.db"), store.DefaultCollections(), testLogger())
	require.NoError(t, err)

	t.Cleanup(func() {
		s.Close()
		os.RemoveAll(tmpDir)
	})
	return s
}

// registerUsers makes subjects visible to the store-backed directory.
func registerUsers(t *testing.T, s *store.Store, subjects ...string) {
	t.Helper()
	for _, sub := range subjects {
		_, err := s.TouchUser(context.Background(), sub, "")
		require.NoError(t, err)
	}
}

// fakeDirectory answers from a fixed set, or fails with err.
type fakeDirectory struct {
	known map[string]bool
	err   error
}

func (d *fakeDirectory) Exists(_ context.Context, subject string) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	return d.known[subject], nil
}

// fakeLimiter allows the first n calls per key.
type fakeLimiter struct {
	mu    sync.Mutex
	n     int
	calls map[string]int
	err   error
}

func (l *fakeLimiter) Allow(_ context.Context, key string) (bool, error) {
	if l.err != nil {
		return false, l.err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.calls == nil {
		l.calls = map[string]int{}
	}
	l.calls[key]++
	return l.calls[key] <= l.n, nil
}

type presignCall struct {
	method      string
	key         string
	contentType string
	ttl         time.Duration
}

// fakePresigner records calls and returns deterministic URLs.
type fakePresigner struct {
	mu    sync.Mutex
	calls []presignCall
	err   error
}

func (p *fakePresigner) record(c presignCall) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, c)
}

func (p *fakePresigner) PresignGet(_ context.Context, key string, ttl time.Duration) (objectstore.Grant, error) {
	if p.err != nil {
		return objectstore.Grant{}, p.err
	}
	p.record(presignCall{method: "GET", key: key, ttl: ttl})
	return objectstore.Grant{URL: "https://photos.test/" + key + "?sig=get", Method: "GET", Key: key}, nil
}

func (p *fakePresigner) PresignPut(_ context.Context, key, contentType string, ttl time.Duration) (objectstore.Grant, error) {
	if p.err != nil {
		return objectstore.Grant{}, p.err
	}
	p.record(presignCall{method: "PUT", key: key, contentType: contentType, ttl: ttl})
	return objectstore.Grant{
		URL:       "https://photos.test/" + key + "?sig=put",
		Method:    "PUT",
		Key:       key,
		ExpiresAt: time.Date(2024, 6, 1, 12, 5, 0, 0, time.UTC),
	}, nil
}

var errBoom = errors.New("boom")

func ptr[T any](v T) *T { return &v }
