package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/pilgrimapp/pilgrim-server/internal/domain"
	"github.com/pilgrimapp/pilgrim-server/internal/service"
)

func (s *Server) registerVisitRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listVisits",
		Method:      http.MethodGet,
		Path:        "/api/v1/visits",
		Summary:     "List my visits",
		Description: "Returns every visit the caller recorded",
		Tags:        []string{"Visits"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListVisits)

	huma.Register(s.api, huma.Operation{
		OperationID: "getVisit",
		Method:      http.MethodGet,
		Path:        "/api/v1/visits/{placeId}",
		Summary:     "Get a visit",
		Description: "Returns the caller's visit to a place, or an empty object if there is none",
		Tags:        []string{"Visits"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetVisit)

	for _, method := range []string{http.MethodPost, http.MethodPut} {
		opID := "upsertVisit"
		if method == http.MethodPut {
			opID = "putVisit"
		}
		huma.Register(s.api, huma.Operation{
			OperationID:  opID,
			Method:       method,
			Path:         "/api/v1/visits/{placeId}",
			Summary:      "Save a visit",
			Description:  "Replaces the caller's visit to a place. Last writer wins",
			Tags:         []string{"Visits"},
			Security:     []map[string][]string{{"bearer": {}}},
			MaxBodyBytes: MaxBodySize,
		}, s.handleUpsertVisit)
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteVisit",
		Method:      http.MethodDelete,
		Path:        "/api/v1/visits/{placeId}",
		Summary:     "Delete a visit",
		Tags:        []string{"Visits"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteVisit)

	huma.Register(s.api, huma.Operation{
		OperationID: "getVisitUploadURL",
		Method:      http.MethodGet,
		Path:        "/api/v1/visits/{placeId}/upload-url",
		Summary:     "Get a photo upload URL",
		Description: "Returns a short-lived signed URL for uploading one JPEG photo of the place",
		Tags:        []string{"Visits"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetUploadURL)

	huma.Register(s.api, huma.Operation{
		OperationID: "getVisitImages",
		Method:      http.MethodGet,
		Path:        "/api/v1/visits/{placeId}/images",
		Summary:     "Get visit photos",
		Description: "Returns short-lived signed URLs for every photo attached to the visit",
		Tags:        []string{"Visits"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetVisitImages)
}

// === DTOs ===

// PlaceInput identifies one of the caller's visits.
type PlaceInput struct {
	PlaceID string `path:"placeId" doc:"Place ID"`
}

// UpsertVisitBody is the caller-controlled part of a visit.
type UpsertVisitBody struct {
	_         struct{} `json:"-" additionalProperties:"true"`
	PlaceName *string  `json:"placeName,omitempty" doc:"Display name of the place"`
	Rating    *float64 `json:"rating,omitempty" doc:"Rating from 0 to 5"`
	Notes     *string  `json:"notes,omitempty" doc:"Private notes"`
	VisitDate *string  `json:"visitDate,omitempty" doc:"Visit date, YYYY-MM-DD or RFC 3339"`
	ImageKeys []string `json:"imageKeys,omitempty" doc:"Object keys of uploaded photos"`
}

// UpsertVisitInput contains parameters for saving a visit.
type UpsertVisitInput struct {
	PlaceID string `path:"placeId" doc:"Place ID"`
	Body    UpsertVisitBody
}

// VisitResponse is a visit as returned to its owner. Every field is omitted
// when the visit does not exist; an existing visit always carries imageKeys.
type VisitResponse struct {
	UserID    string     `json:"userId,omitempty" doc:"Owner"`
	PlaceID   string     `json:"placeId,omitempty" doc:"Place ID"`
	PlaceName *string    `json:"placeName,omitempty" doc:"Display name of the place"`
	Rating    *float64   `json:"rating,omitempty" doc:"Rating from 0 to 5"`
	Notes     *string    `json:"notes,omitempty" doc:"Private notes"`
	VisitDate *string    `json:"visitDate,omitempty" doc:"Visit date"`
	ImageKeys []string   `json:"imageKeys,omitzero" doc:"Object keys of attached photos"`
	Timestamp *time.Time `json:"timestamp,omitempty" doc:"Last write time"`
}

// VisitOutput wraps a single visit for Huma.
type VisitOutput struct {
	Body VisitResponse
}

// ListVisitsOutput wraps the caller's visits for Huma.
type ListVisitsOutput struct {
	Body []VisitResponse
}

// OKResponse acknowledges a mutation.
type OKResponse struct {
	OK bool `json:"ok" doc:"Always true on success"`
}

// OKOutput wraps OKResponse for Huma.
type OKOutput struct {
	Body OKResponse
}

// UploadURLResponse is a signed photo upload grant.
type UploadURLResponse struct {
	UploadURL string    `json:"uploadUrl" doc:"Signed PUT URL; send Content-Type image/jpeg"`
	Key       string    `json:"key" doc:"Object key to store on the visit after uploading"`
	ExpiresAt time.Time `json:"expiresAt" doc:"When the URL stops working"`
}

// UploadURLOutput wraps the upload grant for Huma.
type UploadURLOutput struct {
	CacheControl string `header:"Cache-Control"`
	Body         UploadURLResponse
}

// ImageResponse pairs a photo key with a signed read URL.
type ImageResponse struct {
	Key string `json:"key" doc:"Object key"`
	URL string `json:"url" doc:"Signed GET URL"`
}

// VisitImagesResponse lists a visit's photos.
type VisitImagesResponse struct {
	Images []ImageResponse `json:"images" doc:"Photos in stored order"`
}

// VisitImagesOutput wraps the photo list for Huma.
type VisitImagesOutput struct {
	CacheControl string `header:"Cache-Control"`
	Body         VisitImagesResponse
}

func ok() *OKOutput {
	return &OKOutput{Body: OKResponse{OK: true}}
}

func toVisitResponse(v *domain.Visit) VisitResponse {
	if v == nil {
		return VisitResponse{}
	}
	ts := v.Timestamp
	resp := VisitResponse{
		UserID:    v.UserID,
		PlaceID:   v.PlaceID,
		PlaceName: v.PlaceName,
		Rating:    v.Rating,
		Notes:     v.Notes,
		VisitDate: v.VisitDate,
		ImageKeys: v.ImageKeys,
	}
	if resp.ImageKeys == nil {
		resp.ImageKeys = []string{}
	}
	if !ts.IsZero() {
		resp.Timestamp = &ts
	}
	return resp
}

// === Handlers ===

func (s *Server) handleListVisits(ctx context.Context, _ *struct{}) (*ListVisitsOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	visits, err := s.services.Visits.ListVisits(ctx, userID)
	if err != nil {
		return nil, s.fail(ctx, "list visits", err)
	}

	resp := make([]VisitResponse, len(visits))
	for i, v := range visits {
		resp[i] = toVisitResponse(v)
	}
	return &ListVisitsOutput{Body: resp}, nil
}

func (s *Server) handleGetVisit(ctx context.Context, input *PlaceInput) (*VisitOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	visit, err := s.services.Visits.GetVisit(ctx, userID, input.PlaceID)
	if err != nil {
		return nil, s.fail(ctx, "get visit", err)
	}
	return &VisitOutput{Body: toVisitResponse(visit)}, nil
}

func (s *Server) handleUpsertVisit(ctx context.Context, input *UpsertVisitInput) (*OKOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	_, err = s.services.Visits.UpsertVisit(ctx, userID, input.PlaceID, service.UpsertVisitRequest{
		PlaceName: input.Body.PlaceName,
		Rating:    input.Body.Rating,
		Notes:     input.Body.Notes,
		VisitDate: input.Body.VisitDate,
		ImageKeys: input.Body.ImageKeys,
	})
	if err != nil {
		return nil, s.fail(ctx, "upsert visit", err)
	}
	return ok(), nil
}

func (s *Server) handleDeleteVisit(ctx context.Context, input *PlaceInput) (*OKOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Visits.DeleteVisit(ctx, userID, input.PlaceID); err != nil {
		return nil, s.fail(ctx, "delete visit", err)
	}
	return ok(), nil
}

func (s *Server) handleGetUploadURL(ctx context.Context, input *PlaceInput) (*UploadURLOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	grant, err := s.services.Visits.UploadGrant(ctx, userID, input.PlaceID)
	if err != nil {
		return nil, s.fail(ctx, "upload grant", err)
	}
	return &UploadURLOutput{
		CacheControl: CacheNoStore,
		Body: UploadURLResponse{
			UploadURL: grant.URL,
			Key:       grant.Key,
			ExpiresAt: grant.ExpiresAt,
		},
	}, nil
}

func (s *Server) handleGetVisitImages(ctx context.Context, input *PlaceInput) (*VisitImagesOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	refs, err := s.services.Visits.ImageReferences(ctx, userID, input.PlaceID)
	if err != nil {
		return nil, s.fail(ctx, "image references", err)
	}

	images := make([]ImageResponse, len(refs))
	for i, ref := range refs {
		images[i] = ImageResponse{Key: ref.Key, URL: ref.URL}
	}
	return &VisitImagesOutput{
		CacheControl: CacheNoStore,
		Body:         VisitImagesResponse{Images: images},
	}, nil
}
