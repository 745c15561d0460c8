// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

// Package session owns the authenticated identity of a Lectern client.
//
// A [Store] holds the current user, access token and refresh token. It
// is the only writer of those values, both in memory and in persisted
// [storage.Store] keys. Tokens are present exactly when a user is
// present.
//
// # Lifecycle
//
// [Store.Bootstrap] loads the persisted user and tokens synchronously,
// then refreshes the user from the server in the background:
//
//   - success replaces the cached user;
//   - 401 (after the API client's own token refresh has failed) logs
//     the session out;
//   - any other failure keeps the cached user and marks it stale.
//
// [Store.Loading] is true until that refresh settles and [Store.Ready]
// is closed at the same moment. Without a persisted user there is
// nothing to refresh and readiness is immediate. A refresh that
// settles after a newer login, logout or user update is discarded.
//
// [Store.Login] and [Store.Register] persist and publish on success
// and leave the previous session untouched on failure. Registration
// failures are returned as [*FormError] so callers can show per-field
// messages. [Store.Logout] never calls the server.
//
// Listeners registered with [Store.Subscribe] are called after every
// change of the published user. The store never holds its lock while
// calling listeners or the network.
package session
