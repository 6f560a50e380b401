// Package validation wraps go-playground/validator with field errors named after JSON keys.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Error reports the first invalid field of a request.
type Error struct {
	Field string
	Msg   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// Invalid builds an *Error for field.
func Invalid(field, msg string) error {
	return &Error{Field: field, Msg: msg}
}

// IsValidation reports whether err is an *Error.
func IsValidation(err error) bool {
	var ve *Error
	return errors.As(err, &ve)
}

var (
	once     sync.Once
	instance *validator.Validate
)

func get() *validator.Validate {
	once.Do(func() {
		instance = validator.New(validator.WithRequiredStructEnabled())
		instance.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return strings.ToLower(f.Name)
			}
			return name
		})
	})
	return instance
}

// Struct validates the `validate` tags of v and returns an *Error for the first failure.
func Struct(v any) error {
	err := get().Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	return &Error{Field: fe.Field(), Msg: message(fe)}
}

// Email reports whether s is a syntactically valid email address.
func Email(s string) bool {
	return get().Var(s, "required,email") == nil
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url", "http_url":
		return "must be a valid URL"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	case "hexcolor":
		return "must be a hex color"
	default:
		return "is invalid"
	}
}
