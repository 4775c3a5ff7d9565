package service

import (
	"context"

	"github.com/pilgrimapp/pilgrim-server/internal/store"
)

// Directory answers whether a subject is a known user.
// Implementations may be remote; errors mean "could not tell", not "no".
type Directory interface {
	Exists(ctx context.Context, subject string) (bool, error)
}

// StoreDirectory is the Directory backed by the local user records that the
// auth middleware provisions on first sight of a subject.
type StoreDirectory struct {
	store *store.Store
}

// NewStoreDirectory creates a directory over the local user records.
func NewStoreDirectory(s *store.Store) *StoreDirectory {
	return &StoreDirectory{store: s}
}

// Exists implements Directory.
func (d *StoreDirectory) Exists(ctx context.Context, subject string) (bool, error) {
	return d.store.UserExists(ctx, subject)
}
