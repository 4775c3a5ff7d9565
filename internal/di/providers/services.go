package providers

import (
	"github.com/samber/do/v2"

	"github.com/pilgrimapp/pilgrim-server/internal/config"
	"github.com/pilgrimapp/pilgrim-server/internal/logger"
	"github.com/pilgrimapp/pilgrim-server/internal/objectstore"
	"github.com/pilgrimapp/pilgrim-server/internal/service"
	"github.com/pilgrimapp/pilgrim-server/internal/validation"
)

// ProvideValidator provides the request validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideVisitService provides the visit service.
func ProvideVisitService(i do.Injector) (*service.VisitService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	presigner := do.MustInvoke[*objectstore.Presigner](i)
	validator := do.MustInvoke[*validation.Validator](i)
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewVisitService(
		storeHandle.Store,
		presigner,
		validator,
		cfg.ObjectStore.ReadGrantTTL,
		cfg.ObjectStore.UploadGrantTTL,
		log.Logger,
	), nil
}

// ProvideRelationshipCoordinator provides the friend request coordinator.
func ProvideRelationshipCoordinator(i do.Injector) (*service.RelationshipCoordinator, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	directory := do.MustInvoke[service.Directory](i)
	limiter := do.MustInvoke[*LookupLimiterHandle](i)
	metricsHandle := do.MustInvoke[*MetricsHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewRelationshipCoordinator(
		storeHandle.Store,
		directory,
		limiter.Limiter,
		metricsHandle.Recorder,
		log.Logger,
	), nil
}

// ProvideVisitAggregator provides the friend visit aggregator.
func ProvideVisitAggregator(i do.Injector) (*service.VisitAggregator, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	metricsHandle := do.MustInvoke[*MetricsHandle](i)
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewVisitAggregator(storeHandle.Store, metricsHandle.Recorder, cfg.Aggregator.Concurrency, log.Logger), nil
}

// ProvideProfileService provides the profile service.
func ProvideProfileService(i do.Injector) (*service.ProfileService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewProfileService(storeHandle.Store, log.Logger), nil
}
