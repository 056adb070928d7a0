// Package validation is the schema-validation boundary: every request body
// is decoded and checked here before it reaches a service. Services still
// re-verify the rules they cannot trust the transport for (uniqueness, the
// password-change pairing), but malformed input never gets past this layer.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/CS3219-AY2526S2/peerprep-g15/internal/apperror"
)

// validate is the shared validator instance. validator.Validate caches
// struct metadata internally and is safe for concurrent use.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report the json tag name in field errors so clients see "email", not
	// the Go field name "Email".
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	// username: no whitespace anywhere. Length bounds are separate min/max
	// tags so each failure reports its own reason.
	must(v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return !strings.ContainsFunc(fl.Field().String(), unicode.IsSpace)
	}))

	return v
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// DecodeAndValidate decodes the request body into dst and validates it.
// Every failure is an apperror.BadRequest: undecodable JSON gets a generic
// message, rule violations get per-field details.
func DecodeAndValidate(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperror.BadRequest("request body is required")
		}
		return apperror.BadRequest("invalid JSON in request body")
	}

	return Struct(dst)
}

// Struct validates dst against its `validate` tags.
func Struct(dst any) error {
	err := validate.Struct(dst)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		// validator itself failed (bad tag, non-struct input) — a
		// programming error, not a client error.
		return fmt.Errorf("validation: %w", err)
	}

	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		details[fe.Field()] = reason(fe)
	}
	return apperror.BadRequestWithDetails("invalid request body", details)
}

// reason renders one field error as a short human-readable sentence.
func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_with":
		return "is required when changing the password"
	case "email":
		return "must be a valid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must have at least %s entries", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must have at most %s entries", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "username":
		return "must not contain whitespace"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
