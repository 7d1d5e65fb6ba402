package api

import (
	"context"
	"net/http"
	"net/url"
)

const solutionsEndpoint = "/api/solutions"

func solutionEndpoint(id string) string {
	return solutionsEndpoint + "/" + url.PathEscape(id)
}

// ListSolutions returns one page of solutions, unwrapped from its envelope.
func (a *DevDocsAPI) ListSolutions(ctx context.Context, params ListParams) ([]Solution, error) {
	raw, err := a.transport.Request(ctx, http.MethodGet, solutionsEndpoint, params.Values(), nil)
	if err != nil {
		return nil, err
	}
	return unwrapList[Solution](raw, "solutions")
}

// ListSolutionsPage returns the full list envelope including pagination totals.
func (a *DevDocsAPI) ListSolutionsPage(ctx context.Context, params ListParams) (*SolutionList, error) {
	raw, err := a.transport.Request(ctx, http.MethodGet, solutionsEndpoint, params.Values(), nil)
	if err != nil {
		return nil, err
	}
	page := &SolutionList{}
	if len(raw) > 0 {
		if err := decodeInto(raw, page); err != nil {
			return nil, err
		}
	}
	if page.Solutions == nil {
		page.Solutions = []Solution{}
	}
	return page, nil
}

// GetSolution fetches one solution by id.
func (a *DevDocsAPI) GetSolution(ctx context.Context, id string) (*Solution, error) {
	raw, err := a.transport.Request(ctx, http.MethodGet, solutionEndpoint(id), nil, nil)
	if err != nil {
		return nil, err
	}
	var s Solution
	if err := decodeInto(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateSolution stores a new solution and returns it with its generated id.
func (a *DevDocsAPI) CreateSolution(ctx context.Context, in SolutionInput) (*Solution, error) {
	raw, err := a.transport.Request(ctx, http.MethodPost, solutionsEndpoint, nil, in)
	if err != nil {
		return nil, err
	}
	var s Solution
	if err := decodeInto(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateSolution applies a partial update.
func (a *DevDocsAPI) UpdateSolution(ctx context.Context, id string, patch SolutionPatch) (*Solution, error) {
	raw, err := a.transport.Request(ctx, http.MethodPut, solutionEndpoint(id), nil, patch)
	if err != nil {
		return nil, err
	}
	var s Solution
	if err := decodeInto(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// DeleteSolution archives a solution, or removes it outright when permanent
// is set. It returns the server's acknowledgement message, which is empty
// when the server answers 204.
func (a *DevDocsAPI) DeleteSolution(ctx context.Context, id string, permanent bool) (string, error) {
	var params url.Values
	if permanent {
		params = url.Values{"permanent": {"true"}}
	}
	raw, err := a.transport.Request(ctx, http.MethodDelete, solutionEndpoint(id), params, nil)
	if err != nil {
		return "", err
	}
	if len(raw) == 0 {
		return "", nil
	}
	var msg MessageResponse
	if err := decodeInto(raw, &msg); err != nil {
		return "", err
	}
	return msg.Message, nil
}
