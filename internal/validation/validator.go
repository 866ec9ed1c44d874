// Package validation validates API requests and modification requests using
// validator/v10, converting failures to VALIDATION domain errors.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/wavecut/wavecut-editor/internal/domain"
	domainerrors "github.com/wavecut/wavecut-editor/internal/errors"
)

// Validator wraps go-playground/validator with domain error conversion.
type Validator struct {
	v *validator.Validate
}

// New creates a validator configured for our domain.
func New() *Validator {
	v := validator.New()

	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("convertible", func(fl validator.FieldLevel) bool {
		return domain.Format(strings.ToLower(fl.Field().String())).Convertible()
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

// Modification validates a modification request, including the rules that
// struct tags cannot express.
func (v *Validator) Modification(m domain.Modification) error {
	if m == nil {
		return domainerrors.Validation("modification is required")
	}
	if err := v.Validate(m); err != nil {
		return err
	}
	if tts, ok := m.(domain.ReplaceWithTTS); ok && tts.End != nil && *tts.End <= tts.Start {
		return domainerrors.ValidationWithDetails("validation failed", map[string]string{
			"end": "must be greater than start",
		})
	}
	return nil
}

// formatError converts validator errors to domain errors.
func (v *Validator) formatError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	fieldErrors := make(map[string]string)
	for _, e := range validationErrs {
		fieldErrors[e.Field()] = v.friendlyMessage(e)
	}

	return domainerrors.ValidationWithDetails("validation failed", fieldErrors)
}

//nolint:gocyclo // Switch statement covering validation tags is intentionally exhaustive.
func (v *Validator) friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "notblank":
		return "must not be blank"
	case "convertible":
		return "must be one of: " + joinFormats(domain.ConvertibleFormats)
	case "url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of: " + e.Param()
	case "min", "max", "len":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("must be %s %s characters", lengthWord(e.Tag()), e.Param())
		}
		return fmt.Sprintf("must be %s %s", lengthWord(e.Tag()), e.Param())
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "lt":
		return "must be less than " + e.Param()
	case "gtfield":
		return "must be greater than " + jsonName(e.Param())
	case "ltfield":
		return "must be less than " + jsonName(e.Param())
	default:
		return "is invalid"
	}
}

func lengthWord(tag string) string {
	switch tag {
	case "min":
		return "at least"
	case "max":
		return "at most"
	default:
		return "exactly"
	}
}

// jsonName lowercases a Go field name referenced by a cross-field tag.
func jsonName(field string) string {
	return strings.ToLower(field)
}

func joinFormats(formats []domain.Format) string {
	s := make([]string, len(formats))
	for i, f := range formats {
		s[i] = string(f)
	}
	return strings.Join(s, " ")
}
