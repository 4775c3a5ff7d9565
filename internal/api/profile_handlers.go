package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerProfileRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getMe",
		Method:      http.MethodGet,
		Path:        "/api/v1/me",
		Summary:     "Who am I",
		Description: "Returns the caller's user ID, email, display name and friend code",
		Tags:        []string{"Profile"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetMe)

	huma.Register(s.api, huma.Operation{
		OperationID:  "updateProfile",
		Method:       http.MethodPost,
		Path:         "/api/v1/profile",
		Summary:      "Update my profile",
		Description:  "Sets the caller's display name. A blank name clears it",
		Tags:         []string{"Profile"},
		Security:     []map[string][]string{{"bearer": {}}},
		MaxBodyBytes: MaxBodySize,
	}, s.handleUpdateProfile)
}

// MeResponse describes the caller.
type MeResponse struct {
	UserID      string  `json:"userId" doc:"Caller's user ID"`
	Email       string  `json:"email,omitempty" doc:"Caller's email, if known"`
	DisplayName *string `json:"displayName" doc:"Display name, null if unset"`
	FriendCode  string  `json:"friendCode" doc:"Code other users enter to send a friend request"`
}

// MeOutput wraps MeResponse for Huma.
type MeOutput struct {
	CacheControl string `header:"Cache-Control"`
	Body         MeResponse
}

// UpdateProfileRequest is the body of a profile update.
type UpdateProfileRequest struct {
	DisplayName string `json:"displayName" doc:"New display name, blank to clear"`
}

// UpdateProfileInput wraps the profile update body for Huma.
type UpdateProfileInput struct {
	Body UpdateProfileRequest
}

func (s *Server) handleGetMe(ctx context.Context, _ *struct{}) (*MeOutput, error) {
	identity, err := GetIdentity(ctx)
	if err != nil {
		return nil, err
	}

	me, err := s.services.Profiles.Me(ctx, identity.Subject, identity.Email)
	if err != nil {
		return nil, s.fail(ctx, "get me", err)
	}

	return &MeOutput{
		CacheControl: CacheNoStore,
		Body: MeResponse{
			UserID:      me.UserID,
			Email:       me.Email,
			DisplayName: me.DisplayName,
			FriendCode:  me.FriendCode,
		},
	}, nil
}

func (s *Server) handleUpdateProfile(ctx context.Context, input *UpdateProfileInput) (*OKOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := s.services.Profiles.UpdateProfile(ctx, userID, input.Body.DisplayName); err != nil {
		return nil, s.fail(ctx, "update profile", err)
	}
	return ok(), nil
}
