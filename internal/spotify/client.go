// Package spotify is a small client for the Spotify Web API endpoints this
// service reads, plus the normalizers that reshape their payloads.
package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/justestif/spotify-ratings/internal/db"
)

const (
	defaultBaseURL = "https://api.spotify.com/v1"
	userAgent      = "spotify-ratings/1.0"
	requestTimeout = 10 * time.Second
)

// TokenManager supplies access tokens for stored accounts.
type TokenManager interface {
	EnsureValidToken(ctx context.Context, account *db.Account) (string, error)
	Refresh(ctx context.Context, account *db.Account) (string, error)
}

// APIError is returned when a Spotify data call fails. Status is the
// upstream HTTP status, or 502/504 when no response was received.
type APIError struct {
	Path   string
	Status int
	// Detail is the decoded JSON error body when parseable, else the raw text.
	Detail any
}

func (e *APIError) Error() string {
	return fmt.Sprintf("spotify API error on %s: status %d: %v", e.Path, e.Status, e.Detail)
}

// Response is a successful API response. A 204 has no body.
type Response struct {
	Status int
	Body   json.RawMessage
}

// NoContent reports whether the API answered 204.
func (r *Response) NoContent() bool {
	return r.Status == http.StatusNoContent
}

// Decode unmarshals the body into v.
func (r *Response) Decode(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Client performs bearer-authenticated GETs against the Spotify Web API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenManager
	limiter    *rate.Limiter
	tracer     trace.Tracer
	logger     *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API root (no trailing slash).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit caps outbound requests per second. Zero or less disables it.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client that obtains account tokens from tokens.
func New(tokens TokenManager, opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		tokens:     tokens,
		tracer:     otel.Tracer("github.com/justestif/spotify-ratings/internal/spotify"),
		logger:     log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get performs one GET of path with the given access token.
func (c *Client) Get(ctx context.Context, path, accessToken string, params url.Values) (*Response, error) {
	ctx, span := c.tracer.Start(ctx, "spotify.get",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("spotify.path", path)),
	)
	defer span.End()

	resp, err := c.get(ctx, path, accessToken, params)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			span.SetAttributes(attribute.Int("http.response.status_code", apiErr.Status))
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.Status))
	return resp, nil
}

func (c *Client) get(ctx context.Context, path, accessToken string, params url.Values) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			// Wait fails early when the next slot lies past the deadline.
			if ctx.Err() == nil {
				err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
			}
			return nil, transportError(path, err)
		}
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Debug("spotify request failed", "path", path, "status", resp.StatusCode)
		return nil, &APIError{Path: path, Status: resp.StatusCode, Detail: errorDetail(body)}
	}

	if resp.StatusCode == http.StatusNoContent || len(body) == 0 {
		return &Response{Status: http.StatusNoContent}, nil
	}
	return &Response{Status: resp.StatusCode, Body: body}, nil
}

// GetForAccount fetches path with the account's token. If the call fails
// with an API error the token is refreshed once, unconditionally, and the
// call retried once. The retry's outcome is returned as is.
func (c *Client) GetForAccount(ctx context.Context, path string, account *db.Account, params url.Values) (*Response, error) {
	token, err := c.tokens.EnsureValidToken(ctx, account)
	if err != nil {
		return nil, err
	}

	resp, err := c.Get(ctx, path, token, params)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return resp, err
	}

	c.logger.Info("retrying after refresh", "path", path, "status", apiErr.Status, "account", account.ID)

	token, err = c.tokens.Refresh(ctx, account)
	if err != nil {
		return nil, err
	}
	return c.Get(ctx, path, token, params)
}

func transportError(path string, err error) *APIError {
	status := http.StatusBadGateway
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		status = http.StatusGatewayTimeout
	}
	return &APIError{Path: path, Status: status, Detail: err.Error()}
}

func errorDetail(body []byte) any {
	var detail any
	if err := json.Unmarshal(body, &detail); err == nil {
		return detail
	}
	return string(body)
}
