// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

package lmsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/lectern-lms/lectern/lib/clock"
	"github.com/lectern-lms/lectern/lib/netutil"
	"github.com/lectern-lms/lectern/lib/secret"
	"github.com/lectern-lms/lectern/lib/version"
)

// DefaultTimeout bounds a single request when ClientConfig.Timeout is
// zero and no HTTPClient is supplied.
const DefaultTimeout = 30 * time.Second

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// BaseURL is the API root (e.g., "http://localhost:8000/api").
	// Endpoint paths are appended to it.
	BaseURL string
	// HTTPClient is used for all requests. If nil, a client with
	// Timeout is created.
	HTTPClient *http.Client
	// Timeout bounds each request of the default HTTP client. Ignored
	// when HTTPClient is set.
	Timeout time.Duration
	// RequestsPerSecond enables a client-side rate limit when positive.
	RequestsPerSecond float64
	// UserAgent overrides the User-Agent header.
	UserAgent string
	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
	// Clock is used for token-expiry checks. If nil, clock.Real() is used.
	Clock clock.Clock
}

// Client is an unauthenticated LMS API client. It holds the base URL
// and HTTP transport, shared by every Session it creates.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
	logger     *slog.Logger
	clock      clock.Clock
}

// NewClient creates a new unauthenticated client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("lmsapi: BaseURL is required")
	}
	parsed, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("lmsapi: invalid BaseURL %q: %w", config.BaseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("lmsapi: BaseURL %q must be http or https", config.BaseURL)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		timeout := config.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	var limiter *rate.Limiter
	if config.RequestsPerSecond > 0 {
		burst := int(config.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), burst)
	}

	userAgent := config.UserAgent
	if userAgent == "" {
		userAgent = version.UserAgent()
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}

	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		httpClient: httpClient,
		limiter:    limiter,
		userAgent:  userAgent,
		logger:     logger,
		clock:      clk,
	}, nil
}

// BaseURL returns the API root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Register creates an account and returns its tokens and user record.
func (c *Client) Register(ctx context.Context, request RegisterRequest) (*AuthResponse, error) {
	if request.Email == "" {
		return nil, fmt.Errorf("lmsapi: email is required for registration")
	}
	if request.Password == nil {
		return nil, fmt.Errorf("lmsapi: password is required for registration")
	}

	// Password is converted to string at the JSON serialization boundary.
	wire := map[string]any{
		"email":      request.Email,
		"password":   request.Password.String(),
		"first_name": request.FirstName,
		"last_name":  request.LastName,
	}
	if request.Role != "" {
		wire["role"] = request.Role
	}
	if request.Theme != "" {
		wire["theme"] = request.Theme
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/auth/register/", "", wire, nil)
	if err != nil {
		return nil, fmt.Errorf("lmsapi: registration failed: %w", err)
	}
	var response AuthResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("lmsapi: failed to parse register response: %w", err)
	}

	c.logger.Info("registered lms account", "user_id", response.User.ID, "role", response.User.Role)
	return &response, nil
}

// Login exchanges email and password for tokens and the user record.
func (c *Client) Login(ctx context.Context, request LoginRequest) (*AuthResponse, error) {
	if request.Email == "" {
		return nil, fmt.Errorf("lmsapi: email is required for login")
	}
	if request.Password == nil {
		return nil, fmt.Errorf("lmsapi: password is required for login")
	}

	wire := map[string]string{
		"email":    request.Email,
		"password": request.Password.String(),
	}
	body, err := c.doRequest(ctx, http.MethodPost, "/auth/login/", "", wire, nil)
	if err != nil {
		return nil, fmt.Errorf("lmsapi: login failed: %w", err)
	}
	var response AuthResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("lmsapi: failed to parse login response: %w", err)
	}

	c.logger.Info("logged in to lms", "user_id", response.User.ID)
	return &response, nil
}

// ForgotPassword asks the server to email a reset link. Returns the
// server's confirmation message.
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	if email == "" {
		return "", fmt.Errorf("lmsapi: email is required")
	}
	body, err := c.doRequest(ctx, http.MethodPost, "/auth/forgot-password/", "", map[string]string{"email": email}, nil)
	if err != nil {
		return "", fmt.Errorf("lmsapi: forgot password failed: %w", err)
	}
	var response messageResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("lmsapi: failed to parse forgot password response: %w", err)
	}
	return response.Message, nil
}

// ResetPassword sets a new password using an emailed reset token.
// The password buffer is read but not closed.
func (c *Client) ResetPassword(ctx context.Context, token string, password *secret.Buffer) (string, error) {
	if token == "" {
		return "", fmt.Errorf("lmsapi: reset token is required")
	}
	if password == nil {
		return "", fmt.Errorf("lmsapi: password is required")
	}
	wire := map[string]string{
		"token":    token,
		"password": password.String(),
	}
	body, err := c.doRequest(ctx, http.MethodPost, "/auth/reset-password/", "", wire, nil)
	if err != nil {
		return "", fmt.Errorf("lmsapi: reset password failed: %w", err)
	}
	var response messageResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("lmsapi: failed to parse reset password response: %w", err)
	}
	return response.Message, nil
}

// RefreshAccessToken exchanges a refresh token for a new access token.
func (c *Client) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", fmt.Errorf("lmsapi: refresh token is required")
	}
	body, err := c.doRequest(ctx, http.MethodPost, "/auth/token/refresh/", "", map[string]string{"refresh": refreshToken}, nil)
	if err != nil {
		return "", fmt.Errorf("lmsapi: token refresh failed: %w", err)
	}
	var response struct {
		Access string `json:"access"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("lmsapi: failed to parse token refresh response: %w", err)
	}
	if response.Access == "" {
		return "", fmt.Errorf("lmsapi: token refresh response has no access token")
	}
	return response.Access, nil
}

// Authenticated returns a Session that reads its bearer token from
// credentials on every request.
func (c *Client) Authenticated(credentials Credentials) *Session {
	return &Session{client: c, credentials: credentials}
}

// doRequest performs an HTTP request and returns the response body.
// On 2xx, returns the body. On other statuses, returns an *APIError.
// Failures without a response return a *TransportError. accessToken
// may be empty for unauthenticated endpoints.
func (c *Client) doRequest(ctx context.Context, method, path, accessToken string, requestBody any, query url.Values) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &TransportError{Method: method, Path: path, Err: err}
		}
	}

	requestURL := c.baseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("lmsapi: failed to encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, requestURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("lmsapi: failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	request.Header.Set("Accept", "application/json")
	request.Header.Set("User-Agent", c.userAgent)
	request.Header.Set("X-Request-ID", requestID)
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		request.Header.Set("Authorization", "Bearer "+accessToken)
	}

	started := time.Now()
	response, err := c.httpClient.Do(request)
	if err != nil {
		c.logger.Debug("lms request failed",
			"method", method,
			"path", path,
			"request_id", requestID,
			"error", err,
		)
		return nil, &TransportError{Method: method, Path: path, Err: err}
	}
	defer response.Body.Close()

	responseBody, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return nil, &TransportError{Method: method, Path: path, Err: fmt.Errorf("reading response body: %w", err)}
	}

	c.logger.Debug("lms request",
		"method", method,
		"path", path,
		"status", response.StatusCode,
		"request_id", requestID,
		"duration", time.Since(started),
	)

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return responseBody, nil
	}
	return nil, parseAPIError(method, path, response.StatusCode, responseBody)
}

// decodeList decodes a list endpoint body: a bare JSON array or a
// paginated {"results": [...]} envelope.
func decodeList[T any](body []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		return items, nil
	}

	var page struct {
		Results []T `json:"results"`
	}
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return nil, err
	}
	if page.Results == nil {
		return []T{}, nil
	}
	return page.Results, nil
}
