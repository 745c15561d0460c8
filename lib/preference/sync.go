// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

// Package preference keeps the display theme in step with local
// storage, the terminal, and the logged-in user's profile.
//
// A [Sync] owns one boolean, dark mode. Every change is applied to the
// [Root] and persisted under storage.KeyTheme before the call that
// made it returns. The initial value comes from storage, else from the
// [SystemPreference].
//
// When the session's user changes, Sync adopts the user's theme if it
// has one and it differs. Reconciliation is keyed on (user ID, user
// theme), so re-publishing the same user never overrides a local
// choice made since.
//
// Local changes ([Sync.ToggleTheme], [Sync.SetTheme]) take effect
// immediately and are written to the profile in the background.
// Write-throughs run one at a time; a queued write that has been
// superseded by a newer choice is skipped, and only the newest write
// updates the session's user with the server's record. Failures are
// logged and otherwise ignored: the local choice stands.
package preference

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lectern-lms/lectern/lib/lmsapi"
	"github.com/lectern-lms/lectern/lib/storage"
)

// SessionSource is the part of the session store Sync depends on.
type SessionSource interface {
	User() *lmsapi.User
	UpdateUser(user lmsapi.User) error
	Subscribe(listener func(*lmsapi.User)) (cancel func())
}

// ProfileUpdater writes the user's profile to the server.
type ProfileUpdater interface {
	UpdateProfile(ctx context.Context, user lmsapi.User) (*lmsapi.User, error)
}

// Root receives the active mode. SetDarkMode is called with the Sync
// lock held and must not call back into the Sync.
type Root interface {
	SetDarkMode(dark bool)
}

// SystemPreference reports the environment's color scheme.
type SystemPreference interface {
	PrefersDark() bool
}

// Config holds configuration for creating a Sync.
type Config struct {
	// Session provides the current user and change notifications. Required.
	Session SessionSource
	// Profiles performs write-throughs. Required.
	Profiles ProfileUpdater
	// Storage persists the theme. Required.
	Storage storage.Store
	// Root is updated on every change. Optional.
	Root Root
	// System supplies the default when nothing is persisted. If nil,
	// the default is light.
	System SystemPreference
	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Sync is the theme preference state.
type Sync struct {
	session  SessionSource
	profiles ProfileUpdater
	storage  storage.Store
	root     Root
	logger   *slog.Logger

	mu         sync.Mutex
	dark       bool
	reconciled bool
	lastUserID int64
	lastTheme  lmsapi.Theme
	writeSeq   uint64

	// writeMu serializes write-throughs.
	writeMu     sync.Mutex
	pending     sync.WaitGroup
	unsubscribe func()
}

// New initializes the theme, applies and persists it, subscribes to
// the session, and reconciles with the current user.
func New(config Config) (*Sync, error) {
	if config.Session == nil {
		return nil, fmt.Errorf("preference: Session is required")
	}
	if config.Profiles == nil {
		return nil, fmt.Errorf("preference: Profiles is required")
	}
	if config.Storage == nil {
		return nil, fmt.Errorf("preference: Storage is required")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	state := &Sync{
		session:  config.Session,
		profiles: config.Profiles,
		storage:  config.Storage,
		root:     config.Root,
		logger:   logger,
	}

	state.mu.Lock()
	state.setLocked(initialDarkMode(config.Storage, config.System, logger))
	state.mu.Unlock()

	state.unsubscribe = config.Session.Subscribe(state.ReconcileWithUser)
	state.ReconcileWithUser(config.Session.User())
	return state, nil
}

func initialDarkMode(persisted storage.Store, system SystemPreference, logger *slog.Logger) bool {
	if value, ok := persisted.Get(storage.KeyTheme); ok {
		theme, err := lmsapi.ParseTheme(value)
		if err == nil {
			return theme.IsDark()
		}
		logger.Warn("ignoring invalid persisted theme", "value", value)
	}
	if system == nil {
		return false
	}
	return system.PrefersDark()
}

// setLocked changes the mode, applies it to the root, and persists it.
// Caller holds s.mu.
func (s *Sync) setLocked(dark bool) {
	s.dark = dark
	if s.root != nil {
		s.root.SetDarkMode(dark)
	}
	if err := s.storage.Set(storage.KeyTheme, string(lmsapi.ThemeFor(dark))); err != nil {
		s.logger.Warn("persisting theme failed", "error", err)
	}
}

// IsDarkMode reports the active mode.
func (s *Sync) IsDarkMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dark
}

// Theme returns the active theme.
func (s *Sync) Theme() lmsapi.Theme {
	return lmsapi.ThemeFor(s.IsDarkMode())
}

// ReconcileWithUser adopts user's theme when the (ID, theme) pair has
// changed since the last call and the theme differs from the active
// mode. A nil user or a user without a theme only records the pair.
func (s *Sync) ReconcileWithUser(user *lmsapi.User) {
	var userID int64
	var theme lmsapi.Theme
	if user != nil {
		userID = user.ID
		theme = user.Theme
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reconciled && userID == s.lastUserID && theme == s.lastTheme {
		return
	}
	s.reconciled = true
	s.lastUserID = userID
	s.lastTheme = theme

	if user == nil || theme == "" {
		return
	}
	if _, err := lmsapi.ParseTheme(string(theme)); err != nil {
		s.logger.Warn("ignoring unknown user theme", "user_id", userID, "theme", theme)
		return
	}
	if theme.IsDark() != s.dark {
		s.logger.Debug("adopting user theme", "user_id", userID, "theme", theme)
		s.setLocked(theme.IsDark())
	}
}

// ToggleTheme flips the mode and, when a user is logged in, writes the
// new theme to their profile in the background.
func (s *Sync) ToggleTheme(ctx context.Context) {
	s.mu.Lock()
	dark := !s.dark
	s.setLocked(dark)
	s.mu.Unlock()

	if user := s.session.User(); user != nil {
		s.writeThrough(ctx, user.ID, lmsapi.ThemeFor(dark))
	}
}

// SetTheme sets the mode explicitly. The profile write is skipped when
// the user's theme already matches. Invalid themes are rejected before
// any change.
func (s *Sync) SetTheme(ctx context.Context, theme lmsapi.Theme) error {
	parsed, err := lmsapi.ParseTheme(string(theme))
	if err != nil {
		return fmt.Errorf("preference: %w", err)
	}

	s.mu.Lock()
	s.setLocked(parsed.IsDark())
	s.mu.Unlock()

	if user := s.session.User(); user != nil && user.Theme != parsed {
		s.writeThrough(ctx, user.ID, parsed)
	}
	return nil
}

// writeThrough queues a profile write of theme for userID. The write
// outlives ctx's cancellation; the API client's timeout bounds it.
func (s *Sync) writeThrough(ctx context.Context, userID int64, theme lmsapi.Theme) {
	s.mu.Lock()
	s.writeSeq++
	sequence := s.writeSeq
	s.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		s.writeMu.Lock()
		defer s.writeMu.Unlock()

		if s.superseded(sequence) {
			s.logger.Debug("skipping superseded theme write", "theme", theme)
			return
		}
		current := s.session.User()
		if current == nil || current.ID != userID {
			s.logger.Debug("dropping theme write for a session that has ended", "user_id", userID)
			return
		}

		body := *current
		body.Theme = theme
		updated, err := s.profiles.UpdateProfile(ctx, body)
		if err != nil {
			s.logger.Error("saving theme preference failed", "theme", theme, "error", err)
			return
		}
		if s.superseded(sequence) {
			return
		}
		if err := s.session.UpdateUser(*updated); err != nil {
			s.logger.Warn("applying saved profile failed", "error", err)
		}
	}()
}

func (s *Sync) superseded(sequence uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sequence != s.writeSeq
}

// Wait blocks until all queued write-throughs have finished.
func (s *Sync) Wait() {
	s.pending.Wait()
}

// Close stops following the session and waits for pending writes.
func (s *Sync) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.Wait()
}
