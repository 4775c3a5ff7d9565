package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pilgrimapp/pilgrim-server/internal/domain"
	domainerrors "github.com/pilgrimapp/pilgrim-server/internal/errors"
	"github.com/pilgrimapp/pilgrim-server/internal/normalize"
	"github.com/pilgrimapp/pilgrim-server/internal/objectstore"
	"github.com/pilgrimapp/pilgrim-server/internal/store"
	"github.com/pilgrimapp/pilgrim-server/internal/validation"
)

// Default grant lifetimes.
const (
	DefaultReadGrantTTL   = 10 * time.Minute
	DefaultUploadGrantTTL = 5 * time.Minute
)

// Presigner issues signed object store URLs.
type Presigner interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (objectstore.Grant, error)
	PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (objectstore.Grant, error)
}

// UpsertVisitRequest is the caller-controlled part of a visit.
type UpsertVisitRequest struct {
	PlaceName *string  `json:"placeName,omitempty" validate:"omitempty,max=200"`
	Rating    *float64 `json:"rating,omitempty" validate:"omitempty,finite,gte=0,lte=5"`
	Notes     *string  `json:"notes,omitempty" validate:"omitempty,max=4000"`
	VisitDate *string  `json:"visitDate,omitempty" validate:"omitempty,visitdate"`
	ImageKeys []string `json:"imageKeys,omitempty" validate:"max=20,dive,required,max=512"`
}

// UploadGrant lets a client PUT one photo straight to the object store.
type UploadGrant struct {
	URL       string
	Key       string
	ExpiresAt time.Time
}

// ImageReference pairs a stored image key with a short-lived read URL.
type ImageReference struct {
	Key string
	URL string
}

// VisitService handles a user's own visits and their photos.
type VisitService struct {
	store     *store.Store
	presigner Presigner
	validator *validation.Validator
	logger    *slog.Logger

	readTTL   time.Duration
	uploadTTL time.Duration
	now       func() time.Time
}

// NewVisitService creates a new visit service. Zero TTLs use the defaults.
func NewVisitService(
	store *store.Store,
	presigner Presigner,
	validator *validation.Validator,
	readTTL, uploadTTL time.Duration,
	logger *slog.Logger,
) *VisitService {
	if readTTL <= 0 {
		readTTL = DefaultReadGrantTTL
	}
	if uploadTTL <= 0 {
		uploadTTL = DefaultUploadGrantTTL
	}
	return &VisitService{
		store:     store,
		presigner: presigner,
		validator: validator,
		logger:    logger,
		readTTL:   readTTL,
		uploadTTL: uploadTTL,
		now:       time.Now,
	}
}

// ListVisits returns every visit the user recorded.
func (s *VisitService) ListVisits(ctx context.Context, userID string) ([]*domain.Visit, error) {
	visits, err := s.store.ListVisitsByUser(ctx, userID)
	if err != nil {
		return nil, storeError(err, "list visits")
	}
	return visits, nil
}

// GetVisit returns the user's visit to placeID, or nil if there is none.
// Absence means "never visited" and is not an error.
func (s *VisitService) GetVisit(ctx context.Context, userID, placeID string) (*domain.Visit, error) {
	placeID, err := requireID("placeId", placeID)
	if err != nil {
		return nil, err
	}

	visit, err := s.store.GetVisit(ctx, userID, placeID)
	if errors.Is(err, store.ErrVisitNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError(err, "get visit")
	}
	return visit, nil
}

// UpsertVisit replaces the user's visit to placeID. Last writer wins.
func (s *VisitService) UpsertVisit(ctx context.Context, userID, placeID string, req UpsertVisitRequest) (*domain.Visit, error) {
	placeID, err := requireID("placeId", placeID)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	fields := domain.VisitFields{
		PlaceName: req.PlaceName,
		Rating:    req.Rating,
		Notes:     req.Notes,
		VisitDate: req.VisitDate,
		ImageKeys: normalize.KeyList(req.ImageKeys),
	}

	visit, err := s.store.UpsertVisit(ctx, userID, placeID, fields)
	if err != nil {
		return nil, storeError(err, "upsert visit")
	}

	s.logger.Debug("visit saved",
		"user_id", userID,
		"place_id", placeID,
		"visited", visit.IsVisited(),
		"images", len(visit.ImageKeys),
	)
	return visit, nil
}

// DeleteVisit removes the user's visit to placeID. Deleting nothing succeeds.
func (s *VisitService) DeleteVisit(ctx context.Context, userID, placeID string) error {
	placeID, err := requireID("placeId", placeID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteVisit(ctx, userID, placeID); err != nil {
		return storeError(err, "delete visit")
	}
	return nil
}

// UploadGrant issues a signed PUT for a new photo of placeID.
// The key is {user}/{place}/{unixMillis}.jpg.
func (s *VisitService) UploadGrant(ctx context.Context, userID, placeID string) (*UploadGrant, error) {
	placeID, err := requireID("placeId", placeID)
	if err != nil {
		return nil, err
	}

	key := objectstore.VisitImageKey(userID, placeID, s.now())
	grant, err := s.presigner.PresignPut(ctx, key, objectstore.ImageContentType, s.uploadTTL)
	if err != nil {
		return nil, presignError(err)
	}

	return &UploadGrant{URL: grant.URL, Key: key, ExpiresAt: grant.ExpiresAt}, nil
}

// ImageReferences returns a read URL for every photo stored on the visit.
// Objects are not checked for existence; a missing one fails when fetched.
func (s *VisitService) ImageReferences(ctx context.Context, userID, placeID string) ([]ImageReference, error) {
	placeID, err := requireID("placeId", placeID)
	if err != nil {
		return nil, err
	}

	keys, err := s.store.VisitImageKeys(ctx, userID, placeID)
	if err != nil {
		return nil, storeError(err, "read image keys")
	}

	refs := make([]ImageReference, 0, len(keys))
	for _, key := range keys {
		grant, err := s.presigner.PresignGet(ctx, key, s.readTTL)
		if err != nil {
			return nil, presignError(err)
		}
		refs = append(refs, ImageReference{Key: key, URL: grant.URL})
	}
	return refs, nil
}

func presignError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, objectstore.ErrNotConfigured) {
		return domainerrors.UpstreamUnavailable("photo storage is not configured", err)
	}
	return domainerrors.UpstreamUnavailable("photo storage unavailable", fmt.Errorf("presign: %w", err))
}
