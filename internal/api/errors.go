package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a failed request.
type Kind string

const (
	KindBadRequest   Kind = "bad_request"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindValidation   Kind = "validation"
	KindServer       Kind = "server"
	KindUnavailable  Kind = "unavailable"
	KindNetwork      Kind = "network"
	KindUnknown      Kind = "unknown"
)

var kindMessages = map[Kind]string{
	KindBadRequest:   "Invalid request. Please check your input and try again.",
	KindUnauthorized: "Authentication required. Please sign in again.",
	KindForbidden:    "You do not have permission to perform this action.",
	KindNotFound:     "The requested resource was not found.",
	KindValidation:   "Validation failed. Please check your input.",
	KindServer:       "Server error. Please try again later.",
	KindUnavailable:  "Service temporarily unavailable. Please try again later.",
	KindNetwork:      "Network error. Please check your connection and try again.",
	KindUnknown:      "An unexpected error occurred. Please try again.",
}

// Message returns the fixed user-facing message for a kind.
func Message(k Kind) string {
	if msg, ok := kindMessages[k]; ok {
		return msg
	}
	return kindMessages[KindUnknown]
}

// Sentinels for errors.Is checks. They match any *APIError of the same kind.
var (
	ErrBadRequest   = &APIError{Kind: KindBadRequest}
	ErrUnauthorized = &APIError{Kind: KindUnauthorized}
	ErrForbidden    = &APIError{Kind: KindForbidden}
	ErrNotFound     = &APIError{Kind: KindNotFound}
	ErrValidation   = &APIError{Kind: KindValidation}
	ErrServer       = &APIError{Kind: KindServer}
	ErrUnavailable  = &APIError{Kind: KindUnavailable}
	ErrNetwork      = &APIError{Kind: KindNetwork}
	ErrUnknown      = &APIError{Kind: KindUnknown}
)

// FieldError is a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// APIError is the normalized form of every failed request.
type APIError struct {
	Kind       Kind
	StatusCode int
	Message    string
	Fields     []FieldError
	// Detail is the server's own explanation, when it sent one.
	Detail    string
	RequestID string
	Err       error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("API error (%s): %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("API error (HTTP %d): %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// Is matches sentinels by kind.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.StatusCode == 0 && t.Message == ""
}

// KindOf returns the kind of err, or "" when err is not an API error.
func KindOf(err error) Kind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

// IsRetryable reports whether a failed request may succeed when repeated.
// Client errors are final, except request timeouts and rate limiting.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Kind {
	case KindNetwork, KindServer, KindUnavailable:
		return true
	case KindUnknown:
		return apiErr.StatusCode == http.StatusRequestTimeout || apiErr.StatusCode == http.StatusTooManyRequests
	default:
		return false
	}
}

// KindForStatus maps an HTTP status code onto the error taxonomy.
func KindForStatus(status int) Kind {
	switch status {
	case http.StatusBadRequest:
		return KindBadRequest
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusUnprocessableEntity:
		return KindValidation
	case http.StatusInternalServerError:
		return KindServer
	case http.StatusServiceUnavailable:
		return KindUnavailable
	}
	if status >= 500 {
		return KindServer
	}
	return KindUnknown
}

// errorBody covers both the backend's structured error envelope and the
// default FastAPI `detail` shape (a string or a list of pydantic errors).
type errorBody struct {
	Message   string          `json:"message"`
	RequestID string          `json:"request_id"`
	Details   []FieldError    `json:"details"`
	Detail    json.RawMessage `json:"detail"`
}

type pydanticError struct {
	Loc  []any  `json:"loc"`
	Msg  string `json:"msg"`
	Type string `json:"type"`
}

// newStatusError builds the APIError for a non-2xx response.
func newStatusError(status int, body []byte) *APIError {
	kind := KindForStatus(status)
	apiErr := &APIError{Kind: kind, StatusCode: status, Message: Message(kind)}

	var eb errorBody
	if len(body) > 0 && json.Unmarshal(body, &eb) == nil {
		apiErr.RequestID = eb.RequestID
		apiErr.Detail = eb.Message
		apiErr.Fields = append(apiErr.Fields, eb.Details...)
		if len(eb.Detail) > 0 {
			var s string
			var list []pydanticError
			if json.Unmarshal(eb.Detail, &s) == nil {
				apiErr.Detail = s
			} else if json.Unmarshal(eb.Detail, &list) == nil {
				for _, pe := range list {
					apiErr.Fields = append(apiErr.Fields, FieldError{
						Field:   locToField(pe.Loc),
						Message: pe.Msg,
						Code:    pe.Type,
					})
				}
			}
		}
	}

	if kind == KindValidation && len(apiErr.Fields) > 0 {
		apiErr.Message = JoinFieldErrors(apiErr.Fields)
	}
	return apiErr
}

// JoinFieldErrors renders field errors as "field: message, field: message".
func JoinFieldErrors(fields []FieldError) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.Field == "" {
			parts = append(parts, f.Message)
			continue
		}
		parts = append(parts, f.Field+": "+f.Message)
	}
	return strings.Join(parts, ", ")
}

func locToField(loc []any) string {
	parts := make([]string, 0, len(loc))
	for _, p := range loc {
		s := fmt.Sprint(p)
		if s == "body" || s == "query" || s == "path" {
			continue
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ".")
}

func newNetworkError(err error) *APIError {
	return &APIError{Kind: KindNetwork, Message: Message(KindNetwork), Err: err}
}
