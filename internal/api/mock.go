package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
)

// RequestLogEntry records a request made to the transport.
type RequestLogEntry struct {
	Method   string
	Endpoint string
	Params   url.Values
	Body     json.RawMessage
}

// MockHandler computes a fixture response from the request.
type MockHandler func(params url.Values, body json.RawMessage) (any, error)

// MockTransport is an in-memory fake suitable for deterministic unit tests.
// Routes are keyed by "METHOD /path"; unknown routes answer 404.
type MockTransport struct {
	mu         sync.Mutex
	routes     map[string]MockHandler
	requestLog []RequestLogEntry
	gate       chan struct{}
}

// NewMockTransport creates an empty mock transport.
func NewMockTransport() *MockTransport {
	return &MockTransport{
		routes:     make(map[string]MockHandler),
		requestLog: make([]RequestLogEntry, 0),
	}
}

func routeKey(method, endpoint string) string {
	return method + " " + endpoint
}

// On registers a fixed payload for a route. A nil payload answers 204.
func (t *MockTransport) On(method, endpoint string, payload any) {
	t.OnFunc(method, endpoint, func(url.Values, json.RawMessage) (any, error) {
		return payload, nil
	})
}

// OnError makes a route fail with err.
func (t *MockTransport) OnError(method, endpoint string, err error) {
	t.OnFunc(method, endpoint, func(url.Values, json.RawMessage) (any, error) {
		return nil, err
	})
}

// OnFunc registers a handler for a route.
func (t *MockTransport) OnFunc(method, endpoint string, fn MockHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.routes[routeKey(method, endpoint)] = fn
}

// Hold makes every subsequent request block until the returned release
// function is called. Requests are logged before they block.
func (t *MockTransport) Hold() (release func()) {
	gate := make(chan struct{})
	t.mu.Lock()
	t.gate = gate
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			if t.gate == gate {
				t.gate = nil
			}
			t.mu.Unlock()
			close(gate)
		})
	}
}

// RequestsMade returns the number of requests made to this transport.
func (t *MockTransport) RequestsMade() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.requestLog)
}

// RequestsTo counts requests for one route.
func (t *MockTransport) RequestsTo(method, endpoint string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, e := range t.requestLog {
		if e.Method == method && e.Endpoint == endpoint {
			n++
		}
	}
	return n
}

// Requests returns a copy of the request log.
func (t *MockTransport) Requests() []RequestLogEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]RequestLogEntry, len(t.requestLog))
	copy(out, t.requestLog)
	return out
}

// Reset clears recorded requests. Routes are kept.
func (t *MockTransport) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.requestLog = make([]RequestLogEntry, 0)
}

// Request simulates a DevDocs API request.
func (t *MockTransport) Request(ctx context.Context, method, endpoint string, params url.Values, body any) (json.RawMessage, error) {
	var rawBody json.RawMessage
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		rawBody = data
	}

	t.mu.Lock()
	t.requestLog = append(t.requestLog, RequestLogEntry{
		Method:   method,
		Endpoint: endpoint,
		Params:   cloneValues(params),
		Body:     rawBody,
	})
	handler, ok := t.routes[routeKey(method, endpoint)]
	gate := t.gate
	t.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if !ok {
		return nil, newStatusError(http.StatusNotFound, nil)
	}

	payload, err := handler(params, rawBody)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, nil
	}
	if raw, ok := payload.(json.RawMessage); ok {
		return raw, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode fixture: %w", err)
	}
	return data, nil
}

// StatusError builds the APIError a real server would produce for status.
// Intended for fixtures.
func StatusError(status int, body string) *APIError {
	return newStatusError(status, []byte(body))
}

func cloneValues(v url.Values) url.Values {
	if v == nil {
		return nil
	}
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
