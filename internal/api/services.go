package api

import (
	"github.com/pilgrimapp/pilgrim-server/internal/service"
)

// Services groups the business logic the API server calls into.
type Services struct {
	Visits        *service.VisitService
	Relationships *service.RelationshipCoordinator
	Aggregator    *service.VisitAggregator
	Profiles      *service.ProfileService
}
