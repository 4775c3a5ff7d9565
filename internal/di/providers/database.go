package providers

import (
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/pilgrimapp/pilgrim-server/internal/config"
	"github.com/pilgrimapp/pilgrim-server/internal/logger"
	"github.com/pilgrimapp/pilgrim-server/internal/store"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the database store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	cols := store.Collections{
		Visits:         cfg.Collections.Visits,
		Friendships:    cfg.Collections.Friendships,
		FriendRequests: cfg.Collections.FriendRequests,
	}
	db, err := store.New(cfg.Data.DBPath(), cols, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized",
		"path", cfg.Data.DBPath(),
		"visits", cols.Visits,
		"friendships", cols.Friendships,
		"friend_requests", cols.FriendRequests,
	)

	return &StoreHandle{Store: db}, nil
}

// ProvideSlogLogger provides access to the underlying slog.Logger for packages that need it.
func ProvideSlogLogger(i do.Injector) (*slog.Logger, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return log.Logger, nil
}
