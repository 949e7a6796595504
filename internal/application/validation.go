package application

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var tagMessages = map[string]string{
	"required": "is required",
	"oneof":    "must be one of",
	"gte":      "must be at least",
}

var sharedValidator = sync.OnceValue(newValidator)

// Validate checks the `validate` tags of a request struct and reports failures
// as a *ValidationError keyed by JSON field name.
func Validate(v any) error {
	return validationErrorFrom(sharedValidator().Struct(v))
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationErrorFrom converts validator errors into a ValidationError keyed by
// JSON field name. Other errors are returned unchanged.
func validationErrorFrom(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	vErr := &ValidationError{}
	for _, fe := range fieldErrs {
		msg, ok := tagMessages[fe.Tag()]
		if !ok {
			msg = "is invalid"
		}
		if fe.Param() != "" {
			msg += " " + fe.Param()
		}
		vErr.add(fe.Field(), msg)
	}
	return vErr
}
