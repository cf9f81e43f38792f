package utils

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	ferrors "github.com/Ramsey-B/fern/pkg/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report fields by their wire name
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// Validate checks value against its validate tags
func Validate[T any](value T) (T, error) {
	if err := validate.Struct(value); err != nil {
		return value, ValidationErrorToString(value, err)
	}

	return value, nil
}

// ValidationErrorToString converts validator failures into a validation error
// naming the first offending field. Other errors pass through unchanged.
func ValidationErrorToString(input any, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	msg := ""
	for _, fe := range verrs {
		if msg != "" {
			msg += "; "
		}
		msg += describe(fe)
	}
	return ferrors.NewValidationError(verrs[0].Field(), "invalid %s: %s", typeName(input), msg)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "required_if":
		return fmt.Sprintf("%s is required when %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got '%v'", fe.Field(), fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed rule '%s'", fe.Field(), fe.Tag())
	}
}

func typeName(input any) string {
	t := reflect.TypeOf(input)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "input"
	}
	return strings.ToLower(t.Name())
}
