// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

// Package tui renders Lectern's terminal output. A [Document] is the
// root every command writes through: it owns a lipgloss renderer and
// the active light or dark palette, and it is the value Preference
// Sync switches when the theme changes.
//
// The package also provides terminal color-scheme detection
// ([SystemPreference]), column-aligned tables with ANSI-aware
// truncation ([Table]), and fzf-based fuzzy ranking ([FuzzyFilter]).
package tui
