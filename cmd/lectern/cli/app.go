// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/lectern-lms/lectern/lib/config"
	"github.com/lectern-lms/lectern/lib/lmsapi"
	"github.com/lectern-lms/lectern/lib/preference"
	"github.com/lectern-lms/lectern/lib/session"
	"github.com/lectern-lms/lectern/lib/storage"
	"github.com/lectern-lms/lectern/lib/tui"
)

// defaultWidth is the wrap width when neither display.width nor the
// terminal size is available.
const defaultWidth = 80

// AppParams is embedded in the parameter struct of every command that
// talks to the LMS. It contributes the --config flag.
type AppParams struct {
	ConfigFile string `json:"-" flag:"config" desc:"path to lectern.yaml (default: $LECTERN_CONFIG)"`
}

// Open assembles the client environment for a command run.
func (p *AppParams) Open(ctx context.Context, logger *slog.Logger) (*App, error) {
	return OpenApp(ctx, p.ConfigFile, logger)
}

// App is the client environment shared by the commands of one run.
type App struct {
	Config      *config.Config
	State       *storage.File
	Client      *lmsapi.Client
	Session     *session.Store
	Document    *tui.Document
	Preferences *preference.Sync
	Logger      *slog.Logger
}

// OpenApp loads configuration from configPath (or LECTERN_CONFIG when
// empty), opens the state file, bootstraps the session store and waits
// for its profile refresh, then starts preference sync against a
// document on [Stdout]. Close the App when the command finishes.
func OpenApp(ctx context.Context, configPath string, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, Validation("loading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, Validation("invalid configuration: %w", err)
	}
	timeout, err := cfg.RequestTimeout()
	if err != nil {
		return nil, Validation("invalid configuration: %w", err)
	}

	statePath := cfg.State.File
	if statePath == "" {
		statePath = storage.DefaultPath()
	}
	state, err := storage.OpenFile(statePath)
	if err != nil {
		return nil, Internal("opening state file: %w", err)
	}

	client, err := lmsapi.NewClient(lmsapi.ClientConfig{
		BaseURL:           cfg.API.BaseURL,
		Timeout:           timeout,
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		UserAgent:         cfg.API.UserAgent,
		Logger:            logger,
	})
	if err != nil {
		return nil, Validation("creating API client: %w", err)
	}

	store, err := session.New(session.Config{
		Client:  client,
		Storage: state,
		Logger:  logger,
	})
	if err != nil {
		return nil, Internal("creating session store: %w", err)
	}
	store.Bootstrap(ctx)
	if err := store.WaitReady(ctx); err != nil {
		return nil, Transient("waiting for session refresh: %w", err)
	}

	document := tui.NewDocument(Stdout)
	preferences, err := preference.New(preference.Config{
		Session:  store,
		Profiles: store.API(),
		Storage:  state,
		Root:     document,
		System:   tui.SystemPreference{Scheme: cfg.Display.ColorScheme, Output: Stdout},
		Logger:   logger,
	})
	if err != nil {
		return nil, Internal("starting preference sync: %w", err)
	}

	logger.Debug("client environment ready",
		"api", client.BaseURL(),
		"state", state.Path(),
		"authenticated", store.Authenticated(),
	)

	return &App{
		Config:      cfg,
		State:       state,
		Client:      client,
		Session:     store,
		Document:    document,
		Preferences: preferences,
		Logger:      logger,
	}, nil
}

// Close waits for pending preference write-throughs.
func (a *App) Close() {
	a.Preferences.Close()
}

// RequireUser returns the logged-in user, or a forbidden error naming
// action.
func (a *App) RequireUser(action string) (*lmsapi.User, error) {
	user := a.Session.User()
	if user == nil {
		return nil, FromAPIError(session.ErrNotAuthenticated, action)
	}
	return user, nil
}

// Width is the wrap width for rendered text: display.width, else the
// terminal width of [Stdout], else 80.
func (a *App) Width() int {
	if a.Config.Display.Width > 0 {
		return a.Config.Display.Width
	}
	if file, ok := Stdout.(*os.File); ok {
		if width, _, err := term.GetSize(int(file.Fd())); err == nil && width > 0 {
			return width
		}
	}
	return defaultWidth
}
