// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"log/slog"
	"os"

	"golang.org/x/term"
)

// LogLevel is the minimum level of command loggers. LECTERN_DEBUG=1
// lowers it to debug.
func LogLevel() slog.Level {
	if os.Getenv("LECTERN_DEBUG") != "" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// NewCommandLogger creates a structured logger for CLI command operations.
// When stderr is a terminal, uses slog.TextHandler for human-readable output.
// When stderr is piped or redirected (CI, scripts), uses slog.JSONHandler
// for machine-parseable output.
//
// [Command.Execute] scopes the logger with the command path before
// passing it to Run:
//
//	logger := cli.NewCommandLogger().With("command", "course/enroll")
func NewCommandLogger() *slog.Logger {
	var handler slog.Handler
	options := &slog.HandlerOptions{Level: LogLevel()}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	return slog.New(handler)
}
