package chump

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func checkLength(field, value string, max int) error {
	if n := utf8.RuneCountInString(value); n > max {
		return &ConstraintError{Field: field, Constraint: fmt.Sprintf("must be <= %d characters", max), Value: n}
	}
	return nil
}

func checkCombined(field, message, title string, max int) error {
	if n := utf8.RuneCountInString(message) + utf8.RuneCountInString(title); n > max {
		return &ConstraintError{Field: field, Constraint: fmt.Sprintf("message + title must be <= %d characters", max), Value: n}
	}
	return nil
}

// checkURL validates format with the given validator tag ("url" or "http_url").
func checkURL(field, value, tag string) error {
	if value == "" {
		return nil
	}
	if err := validate.Var(value, tag); err != nil {
		return &ConstraintError{Field: field, Constraint: "must be a valid " + strings.ReplaceAll(tag, "_", " "), Value: value}
	}
	return nil
}

func checkRetryExpire(retry, expire time.Duration, limits Limits) error {
	switch {
	case retry <= 0:
		return &ConstraintError{Field: "retry", Constraint: "is required for emergency priority", Value: retry}
	case retry%time.Second != 0:
		return &ConstraintError{Field: "retry", Constraint: "must be a whole number of seconds", Value: retry}
	case retry < limits.MinRetry:
		return &ConstraintError{Field: "retry", Constraint: fmt.Sprintf("must be >= %s", limits.MinRetry), Value: retry}
	case expire <= 0:
		return &ConstraintError{Field: "expire", Constraint: "is required for emergency priority", Value: expire}
	case expire%time.Second != 0:
		return &ConstraintError{Field: "expire", Constraint: "must be a whole number of seconds", Value: expire}
	case expire > limits.MaxExpire:
		return &ConstraintError{Field: "expire", Constraint: fmt.Sprintf("must be <= %s", limits.MaxExpire), Value: expire}
	case expire <= retry:
		return &ConstraintError{Field: "expire", Constraint: fmt.Sprintf("must be > retry (%s)", retry), Value: expire}
	}
	return nil
}
