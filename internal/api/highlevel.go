package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// DevDocsAPI provides a typed convenience layer over the DevDocs REST API.
//
// Each method is a thin call-and-unwrap: it hits one endpoint and extracts
// the interesting part of the response envelope. There is no caching and no
// retrying here; errors from the transport are returned unchanged.
type DevDocsAPI struct {
	transport Transport
}

// NewDevDocsAPI creates a new high-level API client over transport.
func NewDevDocsAPI(transport Transport) *DevDocsAPI {
	return &DevDocsAPI{transport: transport}
}

// Transport returns the underlying transport.
func (a *DevDocsAPI) Transport() Transport {
	return a.transport
}

// decodeInto parses a JSON payload into out.
func decodeInto(raw json.RawMessage, out any) error {
	if len(raw) == 0 {
		return fmt.Errorf("failed to parse JSON response: empty body")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to parse JSON response: %w", err)
	}
	return nil
}

// unwrapList extracts the array stored under field. A missing or null field,
// or an empty body, yields an empty (non-nil) slice.
func unwrapList[T any](raw json.RawMessage, field string) ([]T, error) {
	items := []T{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return items, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	inner, ok := envelope[field]
	if !ok || bytes.Equal(bytes.TrimSpace(inner), []byte("null")) {
		return items, nil
	}
	if err := json.Unmarshal(inner, &items); err != nil {
		return nil, fmt.Errorf("failed to parse %q: %w", field, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// isJSONArray reports whether raw holds a top-level array.
func isJSONArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

func limitParams(limit int) url.Values {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return q
}
