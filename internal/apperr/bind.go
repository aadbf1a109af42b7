package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// UseJSONFieldNames makes gin's validator report json tag names, so bind
// errors name the fields clients actually sent.
func UseJSONFieldNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
}

// FromBind converts a ShouldBind* failure into a client error.
func FromBind(err error) error {
	var ves validator.ValidationErrors
	if errors.As(err, &ves) {
		var fe FieldErrors
		for _, ve := range ves {
			fe.Add(ve.Field(), fieldMessage(ve))
		}
		return fe.Err()
	}

	var se *json.SyntaxError
	var te *json.UnmarshalTypeError
	switch {
	case errors.As(err, &te):
		return Validation("Validation failed", FieldError{Field: te.Field, Message: "Invalid type"})
	case errors.As(err, &se):
		return BadRequest("Malformed JSON body")
	}
	return BadRequest("Invalid request body")
}

func fieldMessage(ve validator.FieldError) string {
	switch ve.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", ve.Field())
	case "email":
		return "Invalid email address"
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", ve.Field(), ve.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", ve.Field(), ve.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", ve.Field())
	default:
		return fmt.Sprintf("%s is invalid", ve.Field())
	}
}
