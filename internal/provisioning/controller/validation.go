package controller

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	e "github.com/gartstein/tenantprov/internal/provisioning/errors"
	"github.com/go-playground/validator/v10"
)

// newValidator reports struct fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("singleline", singleLine)
	return v
}

// singleLine rejects line breaks and other control characters.
func singleLine(fl validator.FieldLevel) bool {
	return strings.IndexFunc(fl.Field().String(), unicode.IsControl) < 0
}

// validationError converts the first validator failure into a field error.
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("%w: %v", e.ErrInvalidInput, err)
	}

	fe := fieldErrs[0]
	var msg string
	switch fe.Tag() {
	case "required":
		msg = "is required"
	case "email":
		msg = "must be a valid email address"
	case "max":
		msg = fmt.Sprintf("must be at most %s characters", fe.Param())
	case "len":
		msg = fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "singleline":
		msg = "must not contain line breaks or control characters"
	default:
		msg = fmt.Sprintf("failed %s validation", fe.Tag())
	}
	return e.Invalid(fe.Field(), msg)
}
