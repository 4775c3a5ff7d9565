package validation_test

import (
	"math"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/pilgrimapp/pilgrim-server/internal/errors"
	"github.com/pilgrimapp/pilgrim-server/internal/validation"
)

type visitBody struct {
	Rating    *float64 `json:"rating" validate:"omitempty,finite,gte=0,lte=5"`
	VisitDate *string  `json:"visitDate" validate:"omitempty,visitdate"`
	ImageKeys []string `json:"imageKeys" validate:"max=3,dive,required"`
	PlaceID   string   `json:"placeId" validate:"entityid"`
}

func ptr[T any](v T) *T { return &v }

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()

	err := v.Validate(visitBody{
		Rating:    ptr(0.0),
		VisitDate: ptr("2024-03-01"),
		ImageKeys: []string{"a.jpg"},
		PlaceID:   "place-1",
	})
	assert.NoError(t, err)

	err = v.Validate(visitBody{VisitDate: ptr("2024-03-01T10:00:00Z"), PlaceID: "p"})
	assert.NoError(t, err)
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		req       visitBody
		wantField string
	}{
		{"rating too high", visitBody{Rating: ptr(5.5), PlaceID: "p"}, "rating"},
		{"rating negative", visitBody{Rating: ptr(-1.0), PlaceID: "p"}, "rating"},
		{"rating NaN", visitBody{Rating: ptr(math.NaN()), PlaceID: "p"}, "rating"},
		{"bad date", visitBody{VisitDate: ptr("March 1st"), PlaceID: "p"}, "visitDate"},
		{"too many images", visitBody{ImageKeys: []string{"a", "b", "c", "d"}, PlaceID: "p"}, "imageKeys"},
		{"separator in id", visitBody{PlaceID: "a:b"}, "placeId"},
		{"empty id", visitBody{PlaceID: "  "}, "placeId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			require.Error(t, err)

			var domainErr *domainerrors.Error
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus())
			assert.Contains(t, domainErr.Message, tt.wantField)

			details, ok := domainErr.Details.(map[string]string)
			require.True(t, ok)
			assert.Contains(t, details, tt.wantField)
		})
	}
}

func TestValidator_JSONFieldNames(t *testing.T) {
	v := validation.New()

	err := v.Validate(visitBody{PlaceID: ""})
	require.Error(t, err)

	assert.Contains(t, err.Error(), "placeId")
	assert.NotContains(t, err.Error(), "PlaceID")
}

func TestValidator_Var(t *testing.T) {
	v := validation.New()

	assert.NoError(t, v.Var("displayName", "Ana", "max=60"))

	err := v.Var("displayName", strings.Repeat("x", 61), "max=60")
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
	assert.Contains(t, err.Error(), "must not exceed 60 characters")
}
