package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnauthorized is returned when the backend rejects the session token.
var ErrUnauthorized = errors.New("unauthorized")

// NetworkError covers transport failures and unexpected status codes.
type NetworkError struct {
	Op     string
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ValidationError is a 400 response. Fields maps a field name to its
// messages; messages not tied to a field are stored under "detail".
type ValidationError struct {
	Status int
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Detail()
}

// Detail renders the field messages in a stable order.
func (e *ValidationError) Detail() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		msg := strings.Join(e.Fields[k], " ")
		if k == "detail" || k == "non_field_errors" {
			parts = append(parts, msg)
			continue
		}
		parts = append(parts, k+": "+msg)
	}
	return strings.Join(parts, "; ")
}

// parseValidation reads a field error body. Values may be a string or a
// list of strings.
func parseValidation(status int, body []byte) *ValidationError {
	verr := &ValidationError{Status: status, Fields: map[string][]string{}}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		if text := strings.TrimSpace(string(body)); text != "" {
			verr.Fields["detail"] = []string{text}
		}
		return verr
	}
	for k, v := range raw {
		var list []string
		if err := json.Unmarshal(v, &list); err == nil {
			verr.Fields[k] = list
			continue
		}
		var one string
		if err := json.Unmarshal(v, &one); err == nil {
			verr.Fields[k] = []string{one}
			continue
		}
		verr.Fields[k] = []string{string(v)}
	}
	return verr
}
