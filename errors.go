package chump

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAlreadySent is returned when sending or mutating a message whose send outcome is already known.
	ErrAlreadySent = errors.New("chump: message has already been sent")
	// ErrNoReceipt is returned by Poll before the emergency message was sent successfully.
	ErrNoReceipt = errors.New("chump: message has no receipt to poll")
)

// ConstraintError reports a field value that violates a provider bound. No request is made.
type ConstraintError struct {
	Field      string
	Constraint string
	Value      any
}

func (e *ConstraintError) Error() string {
	if s, ok := e.Value.(string); ok {
		return fmt.Sprintf("bad %s: %s, was '%s'", e.Field, e.Constraint, s)
	}
	return fmt.Sprintf("bad %s: %s, was %v", e.Field, e.Constraint, e.Value)
}

func mustBeIn(field string, allowed []string, value string) *ConstraintError {
	return &ConstraintError{
		Field:      field,
		Constraint: "must be in [" + strings.Join(allowed, ", ") + "]",
		Value:      value,
	}
}

// APIError is a structured rejection returned by the provider with a 4xx status.
//
//	{"user": "invalid", "errors": ["user identifier is invalid"], "status": 0, "request": "5042853c-..."}
type APIError struct {
	StatusCode int
	Status     int
	RequestID  string
	Messages   []string
	// BadInputs maps each rejected request field to the provider's verdict, e.g. "token": "invalid".
	BadInputs map[string]string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("pushover: (%s) %s", e.RequestID, strings.Join(e.Messages, " "))
}

// HasBadInput reports whether the provider rejected the named request field.
func (e *APIError) HasBadInput(field string) bool {
	_, ok := e.BadInputs[field]
	return ok
}

// RequestError is a transport or protocol failure: the request never reached the
// provider, or its answer was not one the API contract allows.
type RequestError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("pushover: %s: unexpected status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("pushover: %s: %v", e.Op, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

var reservedKeys = map[string]bool{
	"errors":  true,
	"status":  true,
	"request": true,
	"receipt": true,
}

func parseAPIError(statusCode int, body []byte) (*APIError, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}

	apiErr := &APIError{StatusCode: statusCode, BadInputs: map[string]string{}}
	if v, ok := raw["errors"]; ok {
		if err := json.Unmarshal(v, &apiErr.Messages); err != nil {
			return nil, fmt.Errorf("decode errors: %w", err)
		}
	}
	if v, ok := raw["status"]; ok {
		if err := json.Unmarshal(v, &apiErr.Status); err != nil {
			return nil, fmt.Errorf("decode status: %w", err)
		}
	}
	if v, ok := raw["request"]; ok {
		if err := json.Unmarshal(v, &apiErr.RequestID); err != nil {
			return nil, fmt.Errorf("decode request: %w", err)
		}
	}

	for k, v := range raw {
		if reservedKeys[k] {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			s = string(v)
		}
		apiErr.BadInputs[k] = s
	}

	if len(apiErr.Messages) == 0 {
		apiErr.Messages = []string{fmt.Sprintf("request rejected with status %d", statusCode)}
	}
	return apiErr, nil
}
