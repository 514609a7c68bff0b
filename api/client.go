// Package api is the typed client for the Attune backend REST API. It covers
// the resources the CLI works with: transactions, categorization, duplicate
// scans, recurring patterns, budget analysis, analytics and statement
// uploads. Progress streaming for long-running jobs lives in package
// progress; this package only initiates the jobs.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/attunefin/attune-go/errors"
	"github.com/attunefin/attune-go/internal/httpclient"
	"github.com/attunefin/attune-go/logger"
)

const (
	// DefaultTimeout bounds every request including body read.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is requests per second against the backend. The
	// backend throttles at 10 rps per token; staying under it avoids 429s
	// during bulk walks.
	DefaultRateLimit = 5

	headerIdempotencyKey = "Idempotency-Key"
)

// Client is the Attune API client. Safe for concurrent use.
type Client struct {
	baseURL    string
	authToken  string
	httpClient *httpclient.SaferClient
	limiter    *rate.Limiter
	log        *zap.SugaredLogger
}

// Config holds client construction options. BaseURL and AuthToken are
// required; everything else has defaults.
type Config struct {
	BaseURL   string
	AuthToken string
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 = DefaultRateLimit

	// HTTPClient overrides the SSRF-safe default. Tests pass
	// httpclient.WrapClient(server.Client()) to reach httptest servers.
	HTTPClient *httpclient.SaferClient

	Logger *zap.SugaredLogger
}

// NewClient creates an Attune API client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("api: base URL is required")
	}
	if cfg.AuthToken == "" {
		return nil, errors.New("api: auth token is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	rps := cfg.RateLimit
	if rps == 0 {
		rps = DefaultRateLimit
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = httpclient.NewSaferClient(timeout)
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Logger
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		authToken:  cfg.AuthToken,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(rps), int(rps)+1),
		log:        log,
	}, nil
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// apiError is the backend's JSON error envelope.
type apiError struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// get issues a GET and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	return c.do(req, out)
}

// post issues a POST with a JSON body and decodes the response into out.
// Mutating calls carry an idempotency key so a retried request cannot apply
// twice on the backend.
func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to marshal request body")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerIdempotencyKey, uuid.NewString())
	return c.do(req, out)
}

// do applies rate limiting and auth, executes the request and decodes the
// response. Non-2xx responses are mapped onto the shared error sentinels so
// callers can branch with errors.Is.
func (c *Client) do(req *http.Request, out interface{}) error {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return errors.Wrap(err, "rate limiter wait aborted")
	}

	req.Header.Set("Authorization", "Bearer "+c.authToken)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s failed", req.Method, req.URL.Path)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}

	c.log.Debugw("API request",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.statusError(req, resp.StatusCode, respBody)
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return errors.Wrapf(err, "failed to decode %s response", req.URL.Path)
	}
	return nil
}

func (c *Client) statusError(req *http.Request, status int, body []byte) error {
	message := strings.TrimSpace(string(body))
	var envelope apiError
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != "" {
		message = envelope.Error
	}

	var sentinel error
	switch status {
	case http.StatusUnauthorized:
		sentinel = errors.ErrUnauthorized
	case http.StatusForbidden:
		sentinel = errors.ErrForbidden
	case http.StatusNotFound:
		sentinel = errors.ErrNotFound
	case http.StatusTooManyRequests:
		sentinel = errors.ErrRateLimited
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		sentinel = errors.ErrInvalidRequest
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		sentinel = errors.ErrServiceUnavailable
	default:
		return errors.Newf("%s %s: unexpected status %d: %s",
			req.Method, req.URL.Path, status, message)
	}

	if message == "" {
		message = http.StatusText(status)
	}
	return errors.Wrapf(sentinel, "%s %s: %s", req.Method, req.URL.Path, message)
}
