// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for Lectern.
//
// Configuration is loaded from a single file named by the
// LECTERN_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). When neither is given, [Load] returns [Default].
// There is no directory search.
//
// The file may contain environment-specific sections (development,
// staging, production) that override base values when
// [Config].Environment matches.
//
// An optional env_file names a dotenv file whose variables are loaded
// into the process environment before expansion. Variables already
// set are never overwritten.
//
// Variable expansion is performed on api.base_url and state.file after
// loading: ${VAR} and ${VAR:-default} patterns are expanded from the
// environment. The defaults use this to honour LECTERN_API_URL and
// LECTERN_STATE_FILE. No other environment variables override config
// values.
//
// This package depends on no other Lectern packages.
package config
