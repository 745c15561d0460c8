// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

// Package account implements the session commands: login, register,
// logout, whoami, and the password reset flow.
//
// Login and register go through the session store, so a successful
// run persists the tokens and user record to the state file and the
// preference sync adopts the account's theme. Logout clears the
// session locally; the theme preference survives it.
package account
