package api

import (
	"context"
	"net/http"
	"net/url"
)

const profileEndpoint = "/api/auth/me"

// Profile returns the signed-in user's profile. The backend creates it on
// first access.
func (a *DevDocsAPI) Profile(ctx context.Context) (*UserProfile, error) {
	raw, err := a.transport.Request(ctx, http.MethodGet, profileEndpoint, nil, nil)
	if err != nil {
		return nil, err
	}
	var p UserProfile
	if err := decodeInto(raw, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProfile applies a partial update to the signed-in user's profile.
func (a *DevDocsAPI) UpdateProfile(ctx context.Context, patch ProfilePatch) (*UserProfile, error) {
	raw, err := a.transport.Request(ctx, http.MethodPut, profileEndpoint, nil, patch)
	if err != nil {
		return nil, err
	}
	var p UserProfile
	if err := decodeInto(raw, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// PublicProfile fetches another user's public profile. No token is needed.
func (a *DevDocsAPI) PublicProfile(ctx context.Context, userID string) (*PublicProfile, error) {
	raw, err := a.transport.Request(ctx, http.MethodGet, "/api/auth/users/"+url.PathEscape(userID), nil, nil)
	if err != nil {
		return nil, err
	}
	var p PublicProfile
	if err := decodeInto(raw, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// AuthStatus reports whether the backend enforces authentication.
func (a *DevDocsAPI) AuthStatus(ctx context.Context) (*AuthStatus, error) {
	raw, err := a.transport.Request(ctx, http.MethodGet, "/api/auth/status", nil, nil)
	if err != nil {
		return nil, err
	}
	var st AuthStatus
	if err := decodeInto(raw, &st); err != nil {
		return nil, err
	}
	return &st, nil
}
