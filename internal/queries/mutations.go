package queries

import (
	"context"
	"errors"
	"strings"

	"github.com/colthorp/devdocs-cli-go/internal/api"
	"github.com/colthorp/devdocs-cli-go/internal/cache"
	"github.com/colthorp/devdocs-cli-go/internal/validate"
)

// ErrEmptyPatch is returned when an update sets no field.
var ErrEmptyPatch = errors.New("nothing to update")

// ErrMissingID is returned when a write names no solution.
var ErrMissingID = errors.New("solution id is required")

// UpdateInput identifies the solution to patch.
type UpdateInput struct {
	ID    string
	Patch api.SolutionPatch
}

// DeleteInput identifies the solution to delete. Permanent skips archiving.
type DeleteInput struct {
	ID        string
	Permanent bool
}

// CreateSolution validates and creates a solution, then invalidates every
// solutions list and the dashboard.
func (c *Client) CreateSolution() *cache.Mutation[api.SolutionInput, *api.Solution] {
	return cache.NewMutation(c.cache, func(ctx context.Context, in api.SolutionInput) (*api.Solution, error) {
		if errs := validate.Solution(&in); errs != nil {
			return nil, errs
		}
		return c.api.CreateSolution(ctx, in)
	}, cache.MutationOptions[api.SolutionInput, *api.Solution]{
		Retry: c.mutationRetry,
		OnSuccess: func(*api.Solution, api.SolutionInput) {
			c.cache.Invalidate(SolutionKeys.Lists())
			c.cache.Invalidate(DashboardKeys.All())
		},
	})
}

// UpdateSolution patches a solution, then invalidates its detail, every list
// and the dashboard.
func (c *Client) UpdateSolution() *cache.Mutation[UpdateInput, *api.Solution] {
	return cache.NewMutation(c.cache, func(ctx context.Context, in UpdateInput) (*api.Solution, error) {
		id := strings.TrimSpace(in.ID)
		if id == "" {
			return nil, ErrMissingID
		}
		if in.Patch.IsEmpty() {
			return nil, ErrEmptyPatch
		}
		if errs := validate.Patch(&in.Patch); errs != nil {
			return nil, errs
		}
		return c.api.UpdateSolution(ctx, id, in.Patch)
	}, cache.MutationOptions[UpdateInput, *api.Solution]{
		Retry: c.mutationRetry,
		OnSuccess: func(_ *api.Solution, in UpdateInput) {
			c.cache.Invalidate(SolutionKeys.Detail(in.ID))
			c.cache.Invalidate(SolutionKeys.Lists())
			c.cache.Invalidate(DashboardKeys.All())
		},
	})
}

// DeleteSolution deletes a solution, drops its detail entry outright and
// invalidates every list and the dashboard.
func (c *Client) DeleteSolution() *cache.Mutation[DeleteInput, string] {
	return cache.NewMutation(c.cache, func(ctx context.Context, in DeleteInput) (string, error) {
		id := strings.TrimSpace(in.ID)
		if id == "" {
			return "", ErrMissingID
		}
		return c.api.DeleteSolution(ctx, id, in.Permanent)
	}, cache.MutationOptions[DeleteInput, string]{
		Retry: c.mutationRetry,
		OnSuccess: func(_ string, in DeleteInput) {
			c.cache.Remove(SolutionKeys.Detail(in.ID))
			c.cache.Invalidate(SolutionKeys.Lists())
			c.cache.Invalidate(DashboardKeys.All())
			c.cache.Invalidate(BookmarkKeys.All())
		},
	})
}

// ToggleBookmark flips the bookmark on a solution and invalidates bookmarks.
func (c *Client) ToggleBookmark() *cache.Mutation[string, *api.BookmarkToggle] {
	return cache.NewMutation(c.cache, func(ctx context.Context, id string) (*api.BookmarkToggle, error) {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, ErrMissingID
		}
		return c.api.ToggleBookmark(ctx, id)
	}, cache.MutationOptions[string, *api.BookmarkToggle]{
		Retry: c.mutationRetry,
		OnSuccess: func(*api.BookmarkToggle, string) {
			c.cache.Invalidate(BookmarkKeys.All())
		},
	})
}

// RemoveBookmark deletes the bookmark on a solution and invalidates bookmarks.
func (c *Client) RemoveBookmark() *cache.Mutation[string, struct{}] {
	return cache.NewMutation(c.cache, func(ctx context.Context, id string) (struct{}, error) {
		id = strings.TrimSpace(id)
		if id == "" {
			return struct{}{}, ErrMissingID
		}
		return struct{}{}, c.api.DeleteBookmark(ctx, id)
	}, cache.MutationOptions[string, struct{}]{
		Retry: c.mutationRetry,
		OnSuccess: func(struct{}, string) {
			c.cache.Invalidate(BookmarkKeys.All())
		},
	})
}

// UpdateProfile validates and applies a profile patch, then invalidates every
// profile entry.
func (c *Client) UpdateProfile() *cache.Mutation[api.ProfilePatch, *api.UserProfile] {
	return cache.NewMutation(c.cache, func(ctx context.Context, patch api.ProfilePatch) (*api.UserProfile, error) {
		if patch.IsEmpty() {
			return nil, ErrEmptyPatch
		}
		if errs := validate.Profile(&patch); errs != nil {
			return nil, errs
		}
		return c.api.UpdateProfile(ctx, patch)
	}, cache.MutationOptions[api.ProfilePatch, *api.UserProfile]{
		Retry: c.mutationRetry,
		OnSuccess: func(*api.UserProfile, api.ProfilePatch) {
			c.cache.Invalidate(ProfileKeys.All())
		},
	})
}
