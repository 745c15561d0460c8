// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework for the lectern CLI.
//
// The central type is [Command], which represents a named subcommand with
// optional nested [Command.Subcommands], a parameter struct whose tagged
// fields become pflag flags (see [BindFlags]), and a Run function.
// Commands are assembled into a tree in cmd/lectern/commands and
// dispatched via [Command.Execute], which handles flag parsing,
// subcommand routing, and structured help output with examples.
//
// When a user types an unknown subcommand or flag, the framework computes
// Levenshtein edit distance against all known names and suggests the
// closest match (threshold: distance <= 3).
//
// Commands that talk to the LMS embed [AppParams] and call
// [AppParams.Open], which assembles the client environment: config,
// state file, API client, session store, document and preference sync.
// Failures are returned as [ToolError] values; [FromAPIError] maps
// lmsapi and session errors onto the error categories.
package cli
