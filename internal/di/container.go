// Package di provides dependency injection configuration for the Pilgrim server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/pilgrimapp/pilgrim-server/internal/auth"
	"github.com/pilgrimapp/pilgrim-server/internal/config"
	"github.com/pilgrimapp/pilgrim-server/internal/di/providers"
	"github.com/pilgrimapp/pilgrim-server/internal/logger"
	"github.com/pilgrimapp/pilgrim-server/internal/objectstore"
	"github.com/pilgrimapp/pilgrim-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideMetrics)

	// Storage layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvidePresigner)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)
	do.Provide(injector, providers.ProvideVerifier)
	do.Provide(injector, providers.ProvideDirectory)

	// Rate limiting
	do.Provide(injector, providers.ProvideLookupLimiter)
	do.Provide(injector, providers.ProvideIPLimiter)

	// Business services
	do.Provide(injector, providers.ProvideValidator)
	do.Provide(injector, providers.ProvideVisitService)
	do.Provide(injector, providers.ProvideRelationshipCoordinator)
	do.Provide(injector, providers.ProvideVisitAggregator)
	do.Provide(injector, providers.ProvideProfileService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services in dependency order and starts the
// HTTP server. Configuration errors surface here rather than on first request.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.MetricsHandle](injector)

	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*objectstore.Presigner](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[auth.Verifier](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[service.Directory](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.LookupLimiterHandle](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*providers.IPLimiterHandle](injector)

	// Business services
	_ = do.MustInvoke[*service.VisitService](injector)
	_ = do.MustInvoke[*service.RelationshipCoordinator](injector)
	_ = do.MustInvoke[*service.VisitAggregator](injector)
	_ = do.MustInvoke[*service.ProfileService](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
