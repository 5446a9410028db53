package pricing

import (
	"errors"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports every offending request field at once.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + " " + f.Message
	}
	return "invalid quote request: " + strings.Join(parts, "; ")
}

// Add records a field failure unless that field already has one.
func (e *ValidationError) Add(field, message string) {
	if e.Has(field) {
		return
	}
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Validate checks the request before any rate card is read.
func (r QuoteRequest) Validate() error {
	verr := &ValidationError{}
	if err := validate.Struct(r); err != nil {
		var ves validator.ValidationErrors
		if !errors.As(err, &ves) {
			return err
		}
		for _, fe := range ves {
			verr.Add(fe.Field(), messageFor(fe))
		}
	}
	if strings.TrimSpace(r.SellerOrgID) == "" {
		verr.Add("seller_org_id", "is required")
	}
	if strings.TrimSpace(r.ServiceType) == "" {
		verr.Add("service_type", "is required")
	}
	if math.IsInf(r.AreaHa, 0) {
		verr.Add("area_ha", "must be a finite number")
	}
	if math.IsInf(r.DistanceKm, 0) {
		verr.Add("distance_km", "must be a finite number")
	}
	if r.Origin != nil && !r.Origin.Valid() {
		verr.Add("origin", "coordinates out of range")
	}
	if r.Field != nil && !r.Field.Valid() {
		verr.Add("field", "coordinates out of range")
	}
	return verr.orNil()
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "min", "max":
		return "must be between 1 and 12"
	default:
		return "is invalid"
	}
}
