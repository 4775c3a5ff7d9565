package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/pilgrimapp/pilgrim-server/internal/api"
	"github.com/pilgrimapp/pilgrim-server/internal/auth"
	"github.com/pilgrimapp/pilgrim-server/internal/config"
	"github.com/pilgrimapp/pilgrim-server/internal/logger"
	"github.com/pilgrimapp/pilgrim-server/internal/objectstore"
	"github.com/pilgrimapp/pilgrim-server/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server and starts listening.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)
	verifier := do.MustInvoke[auth.Verifier](i)
	presigner := do.MustInvoke[*objectstore.Presigner](i)
	metricsHandle := do.MustInvoke[*MetricsHandle](i)
	ipLimiter := do.MustInvoke[*IPLimiterHandle](i)

	services := &api.Services{
		Visits:        do.MustInvoke[*service.VisitService](i),
		Relationships: do.MustInvoke[*service.RelationshipCoordinator](i),
		Aggregator:    do.MustInvoke[*service.VisitAggregator](i),
		Profiles:      do.MustInvoke[*service.ProfileService](i),
	}

	handler := api.NewServer(storeHandle.Store, services, verifier, api.Options{
		CORSOrigins:  cfg.Server.CORSOrigins,
		IPLimiter:    ipLimiter.Limiter,
		Metrics:      metricsHandle.Recorder,
		Gatherer:     metricsHandle.Registry,
		PhotoStorage: presigner,
	}, log.Logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv}, nil
}
