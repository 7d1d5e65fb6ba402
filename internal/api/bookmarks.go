package api

import (
	"context"
	"net/http"
	"net/url"
)

// Bookmarks lists the current user's bookmarks, newest first.
func (a *DevDocsAPI) Bookmarks(ctx context.Context) ([]Bookmark, error) {
	raw, err := a.transport.Request(ctx, http.MethodGet, "/api/bookmarks", nil, nil)
	if err != nil {
		return nil, err
	}
	items := []Bookmark{}
	if len(raw) == 0 {
		return items, nil
	}
	if isJSONArray(raw) {
		if err := decodeInto(raw, &items); err != nil {
			return nil, err
		}
		return items, nil
	}
	return unwrapList[Bookmark](raw, "bookmarks")
}

// ToggleBookmark adds the bookmark when absent and removes it otherwise.
func (a *DevDocsAPI) ToggleBookmark(ctx context.Context, solutionID string) (*BookmarkToggle, error) {
	raw, err := a.transport.Request(ctx, http.MethodPost, "/api/bookmarks/toggle/"+url.PathEscape(solutionID), nil, nil)
	if err != nil {
		return nil, err
	}
	var out BookmarkToggle
	if err := decodeInto(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// IsBookmarked reports whether the current user bookmarked the solution.
func (a *DevDocsAPI) IsBookmarked(ctx context.Context, solutionID string) (bool, error) {
	raw, err := a.transport.Request(ctx, http.MethodGet, "/api/bookmarks/check/"+url.PathEscape(solutionID), nil, nil)
	if err != nil {
		return false, err
	}
	var out struct {
		Bookmarked bool `json:"bookmarked"`
	}
	if err := decodeInto(raw, &out); err != nil {
		return false, err
	}
	return out.Bookmarked, nil
}

// DeleteBookmark removes a bookmark.
func (a *DevDocsAPI) DeleteBookmark(ctx context.Context, solutionID string) error {
	_, err := a.transport.Request(ctx, http.MethodDelete, "/api/bookmarks/"+url.PathEscape(solutionID), nil, nil)
	return err
}
