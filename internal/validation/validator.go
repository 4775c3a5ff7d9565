// Package validation provides request validation using the validator/v10 library.
package validation

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/pilgrimapp/pilgrim-server/internal/domain"
	domainerrors "github.com/pilgrimapp/pilgrim-server/internal/errors"
	"github.com/pilgrimapp/pilgrim-server/internal/normalize"
)

// Validator wraps go-playground/validator with domain error conversion.
type Validator struct {
	v *validator.Validate
}

// New creates a validator configured for our domain.
//
// Besides the built-in tags it understands:
//
//	visitdate  YYYY-MM-DD or RFC 3339
//	entityid   non-empty, no ':' (the key separator)
//	finite     a float that is not NaN or Inf
func New() *Validator {
	v := validator.New()

	// Use JSON tag names in error messages.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	//nolint:errcheck // Registration only fails on empty tags, which these are not.
	_ = v.RegisterValidation("visitdate", func(fl validator.FieldLevel) bool {
		_, ok := domain.ParseVisitDate(fl.Field().String())
		return ok
	})
	//nolint:errcheck
	_ = v.RegisterValidation("entityid", func(fl validator.FieldLevel) bool {
		_, ok := normalize.ID(fl.Field().String())
		return ok
	})
	//nolint:errcheck
	_ = v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	})

	return &Validator{v: v}
}

// Validate validates a struct and returns a domain error.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

// Var validates a single value against a tag, naming it field in the error.
func (v *Validator) Var(field string, value any, tag string) error {
	if err := v.v.Var(value, tag); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
			msg := v.friendlyMessage(validationErrs[0])
			return domainerrors.ValidationWithDetails(field+" "+msg, map[string]string{field: msg})
		}
		return err
	}
	return nil
}

// formatError converts validator errors to domain errors.
func (v *Validator) formatError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	fieldErrors := make(map[string]string, len(validationErrs))
	names := make([]string, 0, len(validationErrs))
	for _, e := range validationErrs {
		fieldErrors[e.Field()] = v.friendlyMessage(e)
		names = append(names, e.Field())
	}

	return domainerrors.ValidationWithDetails("validation failed: "+strings.Join(names, ", "), fieldErrors)
}

//nolint:gocyclo // Switch statement covering validation tags is intentionally exhaustive.
func (v *Validator) friendlyMessage(e validator.FieldError) string {
	sizeUnit := "characters"
	switch e.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		sizeUnit = "items"
	}

	switch e.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s %s", e.Param(), sizeUnit)
	case "max":
		return fmt.Sprintf("must not exceed %s %s", e.Param(), sizeUnit)
	case "oneof":
		return "must be one of: " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "visitdate":
		return "must be a date (YYYY-MM-DD) or RFC 3339 timestamp"
	case "entityid":
		return "must be a non-empty id without ':'"
	case "finite":
		return "must be a finite number"
	default:
		return "is invalid"
	}
}
