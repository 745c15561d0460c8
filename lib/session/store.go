// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lectern-lms/lectern/lib/lmsapi"
	"github.com/lectern-lms/lectern/lib/storage"
)

// Config holds configuration for creating a Store.
type Config struct {
	// Client is the unauthenticated API client. Required.
	Client *lmsapi.Client
	// Storage persists tokens and the user record. Required.
	Storage storage.Store
	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Store is the process-wide session state.
type Store struct {
	client  *lmsapi.Client
	api     *lmsapi.Session
	storage storage.Store
	logger  *slog.Logger

	mu           sync.Mutex
	user         *lmsapi.User
	accessToken  string
	refreshToken string
	loading      bool
	stale        bool
	// generation increments on every login, logout and user update.
	// The bootstrap refresh applies its result only if the generation
	// it started under is still current.
	generation   uint64
	listeners    map[uint64]func(*lmsapi.User)
	nextListener uint64

	// notifyMu serializes deliveries so listeners see changes in the
	// order they were made and the last delivery carries the current user.
	notifyMu sync.Mutex

	bootstrapOnce sync.Once
	readyOnce     sync.Once
	ready         chan struct{}
}

// New creates an empty Store. Call Bootstrap to load persisted state.
func New(config Config) (*Store, error) {
	if config.Client == nil {
		return nil, fmt.Errorf("session: Client is required")
	}
	if config.Storage == nil {
		return nil, fmt.Errorf("session: Storage is required")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	store := &Store{
		client:    config.Client,
		storage:   config.Storage,
		logger:    logger,
		loading:   true,
		listeners: make(map[uint64]func(*lmsapi.User)),
		ready:     make(chan struct{}),
	}
	store.api = config.Client.Authenticated(store)
	return store, nil
}

// Bootstrap publishes the persisted session and starts the background
// profile refresh. Only the first call has any effect. ctx bounds the
// background refresh.
func (s *Store) Bootstrap(ctx context.Context) {
	s.bootstrapOnce.Do(func() {
		user := s.loadPersistedUser()
		accessToken, _ := s.storage.Get(storage.KeyAccessToken)
		refreshToken, _ := s.storage.Get(storage.KeyRefreshToken)

		if user == nil {
			if accessToken != "" || refreshToken != "" {
				s.logger.Info("discarding persisted tokens without a user record")
				if err := s.storage.Remove(storage.KeyAccessToken, storage.KeyRefreshToken); err != nil {
					s.logger.Warn("clearing orphaned tokens failed", "error", err)
				}
			}
			s.finishLoading()
			return
		}

		s.mu.Lock()
		s.user = user
		s.accessToken = accessToken
		s.refreshToken = refreshToken
		generation := s.generation
		s.mu.Unlock()

		s.logger.Debug("restored persisted session", "user_id", user.ID)
		s.notify()

		go s.refreshProfile(ctx, generation)
	})
}

// loadPersistedUser decodes the persisted user record. A corrupt record
// is logged and treated as absent.
func (s *Store) loadPersistedUser() *lmsapi.User {
	encoded, ok := s.storage.Get(storage.KeyUser)
	if !ok || encoded == "" {
		return nil
	}
	var user lmsapi.User
	if err := json.Unmarshal([]byte(encoded), &user); err != nil {
		s.logger.Warn("ignoring corrupt persisted user record", "error", err)
		if removeErr := s.storage.Remove(storage.KeyUser); removeErr != nil {
			s.logger.Warn("removing corrupt user record failed", "error", removeErr)
		}
		return nil
	}
	return &user
}

func (s *Store) refreshProfile(ctx context.Context, generation uint64) {
	defer s.finishLoading()

	user, err := s.api.Profile(ctx)
	if err != nil {
		if lmsapi.IsUnauthorized(err) {
			if s.logoutIfCurrent(generation) {
				s.logger.Info("persisted session rejected by server, logged out")
			}
			return
		}
		s.mu.Lock()
		current := s.generation == generation
		if current {
			s.stale = true
		}
		s.mu.Unlock()
		if current {
			s.logger.Warn("profile refresh failed, using cached user", "error", err)
		}
		return
	}

	s.mu.Lock()
	if s.generation != generation {
		s.mu.Unlock()
		s.logger.Debug("discarding profile refresh superseded by a newer session change")
		return
	}
	if err := s.persistUser(user); err != nil {
		s.logger.Warn("persisting refreshed user failed", "error", err)
	}
	s.user = user
	s.stale = false
	s.mu.Unlock()

	s.notify()
}

func (s *Store) finishLoading() {
	s.readyOnce.Do(func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
		close(s.ready)
	})
}

// Login authenticates and replaces the current session. On failure the
// previous session is untouched and the API error is returned.
func (s *Store) Login(ctx context.Context, request lmsapi.LoginRequest) (*lmsapi.User, error) {
	response, err := s.client.Login(ctx, request)
	if err != nil {
		return nil, err
	}
	if err := s.establish(response); err != nil {
		return nil, err
	}
	return response.User.Clone(), nil
}

// Register creates an account and logs into it. Failures are returned
// as *FormError; nothing is persisted.
func (s *Store) Register(ctx context.Context, request lmsapi.RegisterRequest) (*lmsapi.User, error) {
	response, err := s.client.Register(ctx, request)
	if err != nil {
		return nil, newFormError(err)
	}
	if err := s.establish(response); err != nil {
		return nil, err
	}
	return response.User.Clone(), nil
}

func (s *Store) establish(response *lmsapi.AuthResponse) error {
	user := response.User.Clone()

	s.mu.Lock()
	previous := s.savedLocked()
	err := s.storage.Set(storage.KeyAccessToken, response.Access)
	if err != nil {
		err = fmt.Errorf("session: persisting access token: %w", err)
	} else if err = s.storage.Set(storage.KeyRefreshToken, response.Refresh); err != nil {
		err = fmt.Errorf("session: persisting refresh token: %w", err)
	} else {
		err = s.persistUser(user)
	}
	if err != nil {
		if restoreErr := s.restoreLocked(previous); restoreErr != nil {
			s.logger.Error("restoring previous session failed", "error", restoreErr)
			err = errors.Join(err, restoreErr)
		}
		s.mu.Unlock()
		return err
	}
	s.user = user
	s.accessToken = response.Access
	s.refreshToken = response.Refresh
	s.stale = false
	s.generation++
	s.mu.Unlock()

	s.logger.Info("session established", "user_id", user.ID, "role", user.EffectiveRole())
	s.notify()
	return nil
}

// sessionKeys are the storage keys that make up a persisted session.
var sessionKeys = []string{storage.KeyAccessToken, storage.KeyRefreshToken, storage.KeyUser}

// savedLocked returns the persisted values of sessionKeys. Absent keys
// are absent from the map.
func (s *Store) savedLocked() map[string]string {
	saved := make(map[string]string, len(sessionKeys))
	for _, key := range sessionKeys {
		if value, ok := s.storage.Get(key); ok {
			saved[key] = value
		}
	}
	return saved
}

// restoreLocked writes saved back over a partially written session.
func (s *Store) restoreLocked(saved map[string]string) error {
	var errs []error
	for _, key := range sessionKeys {
		var err error
		if value, ok := saved[key]; ok {
			err = s.storage.Set(key, value)
		} else {
			err = s.storage.Remove(key)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("session: restoring %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// Logout clears the session from memory and storage. It does not call
// the server. Calling it while logged out is a no-op apart from
// re-clearing storage.
func (s *Store) Logout() error {
	s.mu.Lock()
	hadSession := s.clearLocked()
	err := s.storage.Remove(sessionKeys...)
	s.mu.Unlock()

	if hadSession {
		s.logger.Info("logged out")
		s.notify()
	}
	if err != nil {
		return fmt.Errorf("session: clearing persisted session: %w", err)
	}
	return nil
}

// logoutIfCurrent logs out only if no session change happened since
// generation. Reports whether it logged out.
func (s *Store) logoutIfCurrent(generation uint64) bool {
	s.mu.Lock()
	if s.generation != generation {
		s.mu.Unlock()
		return false
	}
	s.clearLocked()
	err := s.storage.Remove(sessionKeys...)
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("clearing persisted session failed", "error", err)
	}
	s.notify()
	return true
}

// clearLocked resets the in-memory session. Caller holds s.mu.
func (s *Store) clearLocked() bool {
	hadSession := s.user != nil || s.accessToken != "" || s.refreshToken != ""
	s.user = nil
	s.accessToken = ""
	s.refreshToken = ""
	s.stale = false
	s.generation++
	return hadSession
}

// UpdateUser replaces the current user in memory and storage without
// calling the server.
func (s *Store) UpdateUser(user lmsapi.User) error {
	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return ErrNotAuthenticated
	}
	updated := user.Clone()
	if err := s.persistUser(updated); err != nil {
		s.mu.Unlock()
		return err
	}
	s.user = updated
	s.stale = false
	s.generation++
	s.mu.Unlock()

	s.notify()
	return nil
}

func (s *Store) persistUser(user *lmsapi.User) error {
	encoded, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("session: encoding user: %w", err)
	}
	if err := s.storage.Set(storage.KeyUser, string(encoded)); err != nil {
		return fmt.Errorf("session: persisting user: %w", err)
	}
	return nil
}

// Subscribe registers listener to be called with the published user
// (nil when logged out) after every change. Deliveries never overlap
// and arrive in change order. A listener must not log in, log out, or
// update the user on its own goroutine; hand such work to another one.
// The returned function unregisters it.
func (s *Store) Subscribe(listener func(*lmsapi.User)) (cancel func()) {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = listener
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// notify calls every listener with the user published at the time of
// the call. Listeners run on the caller's goroutine without s.mu held,
// one delivery at a time.
func (s *Store) notify() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	user := s.user.Clone()
	listeners := make([]func(*lmsapi.User), 0, len(s.listeners))
	for _, listener := range s.listeners {
		listeners = append(listeners, listener)
	}
	s.mu.Unlock()

	for _, listener := range listeners {
		listener(user.Clone())
	}
}

// User returns a copy of the current user, or nil.
func (s *Store) User() *lmsapi.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user.Clone()
}

// Authenticated reports whether a user is logged in.
func (s *Store) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user != nil
}

// Loading reports whether the bootstrap refresh has yet to settle.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Stale reports whether the current user comes from the persisted
// cache because the bootstrap refresh failed.
func (s *Store) Stale() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stale
}

// Ready is closed once Loading becomes false.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// WaitReady blocks until Ready is closed or ctx is done.
func (s *Store) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// API returns the authenticated API session bound to this store's
// credentials.
func (s *Store) API() *lmsapi.Session {
	return s.api
}

// AccessToken implements lmsapi.Credentials.
func (s *Store) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken
}

// RefreshToken implements lmsapi.Credentials.
func (s *Store) RefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshToken
}

// SetAccessToken implements lmsapi.Credentials. A rotated token that
// arrives after logout is dropped.
func (s *Store) SetAccessToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return ErrNotAuthenticated
	}
	if err := s.storage.Set(storage.KeyAccessToken, token); err != nil {
		return fmt.Errorf("session: persisting access token: %w", err)
	}
	s.accessToken = token
	return nil
}

// IsNotAuthenticated reports whether err is ErrNotAuthenticated.
func IsNotAuthenticated(err error) bool {
	return errors.Is(err, ErrNotAuthenticated)
}
