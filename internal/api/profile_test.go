package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"testing"
)

func TestProfileRoundTrip(t *testing.T) {
	transport := NewMockTransport()
	transport.On(http.MethodGet, "/api/auth/me", map[string]interface{}{
		"id": "u1", "auth_id": "a1", "email": "dev@example.com", "theme": "dark", "language": "en",
		"created_at": "2025-01-02T10:00:00.123456", "updated_at": "2025-01-02T10:00:00Z",
		"last_login_at": nil, "is_active": true, "is_verified": true,
	})
	transport.OnFunc(http.MethodPut, "/api/auth/me", func(_ url.Values, body json.RawMessage) (any, error) {
		var patch map[string]any
		if err := json.Unmarshal(body, &patch); err != nil {
			return nil, err
		}
		return map[string]interface{}{"id": "u1", "email": "dev@example.com", "theme": patch["theme"], "language": "en"}, nil
	})

	a := NewDevDocsAPI(transport)
	p, err := a.Profile(context.Background())
	if err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	if p.Email != "dev@example.com" || !p.IsVerified || p.LastLoginAt != nil {
		t.Errorf("Unexpected profile %+v", p)
	}
	if p.CreatedAt.IsZero() {
		t.Error("Expected naive timestamp to parse")
	}

	theme := "light"
	updated, err := a.UpdateProfile(context.Background(), ProfilePatch{Theme: &theme})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if updated.Theme != "light" {
		t.Errorf("Expected theme light, got %q", updated.Theme)
	}
	if got := string(transport.Requests()[1].Body); got != `{"theme":"light"}` {
		t.Errorf("Expected only set fields on the wire, got %s", got)
	}
}

func TestPublicProfileAndAuthStatus(t *testing.T) {
	transport := NewMockTransport()
	transport.On(http.MethodGet, "/api/auth/users/u1", PublicProfile{ID: "u1", FullName: "Ada"})
	transport.On(http.MethodGet, "/api/auth/status", AuthStatus{Enabled: false, SupabaseURL: "Not configured"})

	a := NewDevDocsAPI(transport)
	p, err := a.PublicProfile(context.Background(), "u1")
	if err != nil {
		t.Fatalf("PublicProfile() error = %v", err)
	}
	if p.FullName != "Ada" {
		t.Errorf("Expected Ada, got %q", p.FullName)
	}

	st, err := a.AuthStatus(context.Background())
	if err != nil {
		t.Fatalf("AuthStatus() error = %v", err)
	}
	if st.Enabled || st.SupabaseURL != "Not configured" {
		t.Errorf("Unexpected status %+v", st)
	}

	_, err = a.PublicProfile(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestProfilePatchIsEmpty(t *testing.T) {
	if !(ProfilePatch{}).IsEmpty() {
		t.Error("Expected zero patch to be empty")
	}
	bio := ""
	if (ProfilePatch{Bio: &bio}).IsEmpty() {
		t.Error("Expected a set field, even blank, to count")
	}
}
