// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

// Package storage persists Lectern's client state between process runs.
//
// The model is a flat string key/value store: the same four keys a
// browser client would keep in localStorage ([KeyAccessToken],
// [KeyRefreshToken], [KeyUser], [KeyTheme]). [Store] is the interface
// consumers depend on. Two implementations exist:
//
//   - [File]: a JSON object on disk, written with mode 0600 under a
//     0700 directory because it holds credentials. Every write re-reads
//     the file, applies the change, and renames a temporary file into
//     place, so two processes writing different keys do not clobber
//     each other. Writes to the same key are last-write-wins.
//   - [Memory]: an in-process map for tests and ephemeral sessions.
//
// [Credentials] is a read/write view over the token keys for code that
// only needs the bearer and refresh tokens.
//
// This package depends on no other Lectern packages.
package storage
