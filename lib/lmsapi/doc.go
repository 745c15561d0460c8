// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

// Package lmsapi is a client for the Lectern learning-management REST
// API.
//
// The package has two levels:
//
//   - [Client] is unauthenticated. It owns the base URL, the HTTP
//     transport, the optional client-side rate limit, and the
//     endpoints that need no bearer token: registration, login,
//     password recovery, and access-token refresh.
//   - [Session] is authenticated. It is bound to a [Credentials]
//     source and exposes raw JSON helpers (Get, Post, Put, Delete) plus
//     typed endpoints for the profile, courses, categories,
//     enrollments, and dashboard statistics.
//
// Sessions refresh the access token transparently: an access token
// whose exp claim has passed is refreshed before use, and a 401 is
// retried once after a refresh. When the refresh itself fails the
// caller sees the original 401, so session owners can treat
// [IsUnauthorized] as "credentials are gone".
//
// Error responses decode into [*APIError], which carries the HTTP
// status, the server's detail message, and per-field validation
// messages. Failures that never produced a response are
// [*TransportError]. Use errors.As or the Is* helpers to classify.
//
// List endpoints accept both a bare JSON array and a paginated
// {"results": [...]} envelope.
package lmsapi
