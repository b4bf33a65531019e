package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// FieldError is one failed rule on one field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is what every Validate method returns; empty means valid.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, fe := range v {
		msgs = append(msgs, fe.Message)
	}
	return strings.Join(msgs, ", ")
}

func (v *ValidationErrors) add(field, format string, args ...interface{}) {
	*v = append(*v, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (v *ValidationErrors) required(field, value, message string) bool {
	if strings.TrimSpace(value) == "" {
		v.add(field, "%s", message)
		return false
	}
	return true
}

func (v *ValidationErrors) maxLength(field, value string, max int, label string) {
	if utf8.RuneCountInString(value) > max {
		v.add(field, "%s cannot be more than %d characters", label, max)
	}
}

func (v *ValidationErrors) oneOf(field, value string, allowed []string) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	v.add(field, "%s must be one of: %s", field, strings.Join(allowed, ", "))
}

func (v *ValidationErrors) nonNegative(field string, value float64) {
	if value < 0 {
		v.add(field, "%s cannot be negative", field)
	}
}

func (v *ValidationErrors) email(field, value string) {
	if validate.Var(value, "required,email") != nil {
		v.add(field, "Please provide a valid email")
	}
}

// RequireKeys reports every key absent or null in a decoded JSON object.
// It is used on create, where a zero number must be told apart from a
// missing one.
func RequireKeys(body map[string]json.RawMessage, keys ...string) ValidationErrors {
	var errs ValidationErrors
	for _, key := range keys {
		raw, ok := body[key]
		if !ok || string(raw) == "null" {
			errs.add(key, "Please specify %s", key)
		}
	}
	return errs
}

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
