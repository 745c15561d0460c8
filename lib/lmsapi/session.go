// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

package lmsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// expirySkew treats tokens that expire within this window as already
// expired, so a request does not race the server's clock.
const expirySkew = 10 * time.Second

// Credentials supplies a Session's tokens. Implementations must be safe
// for concurrent use; the session store is the one in this module.
type Credentials interface {
	// AccessToken returns the current bearer token, or "" when logged out.
	AccessToken() string
	// RefreshToken returns the current refresh token, or "".
	RefreshToken() string
	// SetAccessToken records a rotated bearer token.
	SetAccessToken(token string) error
}

// Session is an authenticated LMS API session.
type Session struct {
	client      *Client
	credentials Credentials

	// refreshMu serializes token refreshes so concurrent 401s trigger
	// a single refresh request.
	refreshMu sync.Mutex
}

// Client returns the unauthenticated client this session was made from.
func (s *Session) Client() *Client {
	return s.client
}

// Get fetches path and decodes the JSON response into result (which
// may be nil to discard it).
func (s *Session) Get(ctx context.Context, path string, query url.Values, result any) error {
	return s.exchange(ctx, http.MethodGet, path, query, nil, result)
}

// Post sends body as JSON and decodes the response into result.
func (s *Session) Post(ctx context.Context, path string, body, result any) error {
	return s.exchange(ctx, http.MethodPost, path, nil, body, result)
}

// Put sends body as JSON and decodes the response into result.
func (s *Session) Put(ctx context.Context, path string, body, result any) error {
	return s.exchange(ctx, http.MethodPut, path, nil, body, result)
}

// Delete deletes the resource at path.
func (s *Session) Delete(ctx context.Context, path string) error {
	return s.exchange(ctx, http.MethodDelete, path, nil, nil, nil)
}

func (s *Session) exchange(ctx context.Context, method, path string, query url.Values, body, result any) error {
	responseBody, err := s.do(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	if result == nil || len(responseBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(responseBody, result); err != nil {
		return fmt.Errorf("lmsapi: failed to parse %s %s response: %w", method, path, err)
	}
	return nil
}

// do performs an authenticated request, refreshing the access token
// when it has expired or the server rejects it. A failed refresh
// returns the original error.
func (s *Session) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	token := s.credentials.AccessToken()
	if token != "" && s.tokenExpired(token) && s.credentials.RefreshToken() != "" {
		if refreshed, err := s.refresh(ctx, token); err == nil {
			token = refreshed
		} else {
			s.client.logger.Debug("proactive token refresh failed", "error", err)
		}
	}

	responseBody, err := s.client.doRequest(ctx, method, path, token, body, query)
	if err == nil || !IsUnauthorized(err) || s.credentials.RefreshToken() == "" {
		return responseBody, err
	}

	refreshed, refreshErr := s.refresh(ctx, token)
	if refreshErr != nil {
		s.client.logger.Debug("token refresh after 401 failed", "path", path, "error", refreshErr)
		return nil, err
	}
	return s.client.doRequest(ctx, method, path, refreshed, body, query)
}

// refresh rotates the access token. If another goroutine already
// replaced stale, its token is reused without a second request.
func (s *Session) refresh(ctx context.Context, stale string) (string, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	if current := s.credentials.AccessToken(); current != "" && current != stale {
		return current, nil
	}
	refreshToken := s.credentials.RefreshToken()
	if refreshToken == "" {
		return "", fmt.Errorf("lmsapi: no refresh token")
	}

	token, err := s.client.RefreshAccessToken(ctx, refreshToken)
	if err != nil {
		return "", err
	}
	if err := s.credentials.SetAccessToken(token); err != nil {
		return "", fmt.Errorf("lmsapi: storing refreshed token: %w", err)
	}
	s.client.logger.Debug("access token refreshed")
	return token, nil
}

// tokenExpired reports whether token is a JWT whose exp claim has
// passed. Opaque tokens and tokens without exp never expire locally;
// the server stays authoritative. The signature is not checked: the
// client has no key and only wants to avoid a doomed request.
func (s *Session) tokenExpired(token string) bool {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !claims.ExpiresAt.After(s.client.clock.Now().Add(expirySkew))
}
