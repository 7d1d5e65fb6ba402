package api

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestKindForStatus(t *testing.T) {
	tests := map[int]Kind{
		400: KindBadRequest,
		401: KindUnauthorized,
		403: KindForbidden,
		404: KindNotFound,
		422: KindValidation,
		500: KindServer,
		502: KindServer,
		503: KindUnavailable,
		409: KindUnknown,
		429: KindUnknown,
	}
	for status, want := range tests {
		if got := KindForStatus(status); got != want {
			t.Errorf("KindForStatus(%d) = %s, want %s", status, got, want)
		}
	}
}

func TestErrorsIsThroughWrapping(t *testing.T) {
	err := fmt.Errorf("fetch solution: %w", StatusError(404, `{"detail":"Solution not found"}`))
	if !errors.Is(err, ErrNotFound) {
		t.Error("Expected wrapped 404 to match ErrNotFound")
	}
	if errors.Is(err, ErrServer) {
		t.Error("404 must not match ErrServer")
	}
	if KindOf(err) != KindNotFound {
		t.Errorf("Expected KindNotFound, got %s", KindOf(err))
	}
	if KindOf(errors.New("plain")) != "" {
		t.Error("Expected empty kind for non-API errors")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"network", newNetworkError(errors.New("dial tcp")), true},
		{"server", StatusError(500, ""), true},
		{"unavailable", StatusError(503, ""), true},
		{"timeout", StatusError(408, ""), true},
		{"rate limit", StatusError(429, ""), true},
		{"not found", StatusError(404, ""), false},
		{"validation", StatusError(422, ""), false},
		{"unauthorized", StatusError(401, ""), false},
		{"conflict", StatusError(409, ""), false},
		{"canceled", context.Canceled, false},
		{"decode", errors.New("failed to parse JSON response"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJoinFieldErrors(t *testing.T) {
	got := JoinFieldErrors([]FieldError{
		{Field: "title", Message: "too short"},
		{Message: "general failure"},
		{Field: "code", Message: "required"},
	})
	want := "title: too short, general failure, code: required"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestValidationWithoutFieldsKeepsGenericMessage(t *testing.T) {
	err := StatusError(422, `{"message":"Invalid request data"}`)
	if err.Message != Message(KindValidation) {
		t.Errorf("Expected generic validation message, got %q", err.Message)
	}
}
