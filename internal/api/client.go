package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/colthorp/devdocs-cli-go/internal/core"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Options configures a Client.
type Options struct {
	BaseURL     string
	Timeout     time.Duration
	AccessToken string
	AnonKey     string
	Logger      zerolog.Logger
	// HTTPClient overrides the default client; its Timeout is left untouched.
	HTTPClient *http.Client
}

// Client is the HTTP wrapper around the DevDocs REST API.
//
// Every request is tagged with X-Request-Time and X-Request-ID, bounded by a
// fixed timeout, and every failure is normalized into an *APIError. The client
// never retries; retry policy belongs to the query cache.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	accessToken string
	anonKey     string
	logger      zerolog.Logger
	now         func() time.Time
}

// NewClient creates a new API client.
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = core.RequestTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		httpClient:  httpClient,
		accessToken: opts.AccessToken,
		anonKey:     opts.AnonKey,
		logger:      opts.Logger.With().Str("component", "api").Logger(),
		now:         time.Now,
	}
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	return c.Request(ctx, http.MethodGet, endpoint, params, nil)
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, endpoint string, body any) (json.RawMessage, error) {
	return c.Request(ctx, http.MethodPost, endpoint, nil, body)
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, endpoint string, body any) (json.RawMessage, error) {
	return c.Request(ctx, http.MethodPut, endpoint, nil, body)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	return c.Request(ctx, http.MethodDelete, endpoint, params, nil)
}

// Request sends one HTTP request and returns the raw JSON payload.
func (c *Client) Request(ctx context.Context, method, endpoint string, params url.Values, body any) (json.RawMessage, error) {
	urlStr := c.baseURL + endpoint
	if len(params) > 0 {
		urlStr = fmt.Sprintf("%s?%s", urlStr, params.Encode())
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, urlStr, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.New().String()
	sentAt := c.now()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(core.RequestTimeHeader, sentAt.UTC().Format(time.RFC3339Nano))
	req.Header.Set(core.RequestIDHeader, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.anonKey != "" {
		req.Header.Set("apikey", c.anonKey)
	}
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	c.logger.Debug().
		Str("method", method).
		Str("url", urlStr).
		Str("request_id", requestID).
		Msg("request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// A caller that gives up is not a connectivity problem.
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, ctx.Err()
		}
		c.logger.Debug().Err(err).Str("request_id", requestID).Msg("request failed")
		return nil, newNetworkError(err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newNetworkError(fmt.Errorf("failed to read response body: %w", err))
	}

	c.logger.Debug().
		Int("status", resp.StatusCode).
		Int("bytes", len(payload)).
		Dur("latency", time.Since(sentAt)).
		Str("request_id", requestID).
		Msg("response")

	if resp.StatusCode >= 400 {
		apiErr := newStatusError(resp.StatusCode, payload)
		if apiErr.RequestID == "" {
			apiErr.RequestID = requestID
		}
		return nil, apiErr
	}

	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, nil
	}
	return json.RawMessage(payload), nil
}
