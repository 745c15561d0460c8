// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"io"
	"os"
	"strings"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// ColorSchemeEnv overrides terminal background detection when set to
// "light" or "dark".
const ColorSchemeEnv = "LECTERN_COLOR_SCHEME"

// Color scheme names accepted by SystemPreference.
const (
	SchemeAuto  = "auto"
	SchemeLight = "light"
	SchemeDark  = "dark"
)

// SystemPreference reports whether the environment prefers a dark
// color scheme. Resolution order: the LECTERN_COLOR_SCHEME variable,
// then Scheme, then the terminal's background as reported by termenv.
// Output that is not a terminal prefers light.
type SystemPreference struct {
	// Scheme is "light", "dark", or "auto" (the zero value also means auto).
	Scheme string
	// Output is the terminal queried for its background color. Only an
	// *os.File attached to a terminal is queried.
	Output io.Writer
	// Getenv reads the environment. If nil, os.Getenv is used.
	Getenv func(string) string
}

// PrefersDark implements preference.SystemPreference.
func (preference SystemPreference) PrefersDark() bool {
	getenv := preference.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	if dark, ok := parseScheme(getenv(ColorSchemeEnv)); ok {
		return dark
	}
	if dark, ok := parseScheme(preference.Scheme); ok {
		return dark
	}
	file, ok := preference.Output.(*os.File)
	if !ok || !term.IsTerminal(int(file.Fd())) {
		return false
	}
	return termenv.NewOutput(file).HasDarkBackground()
}

// parseScheme reports the mode named by value, and false for "auto",
// empty, or unrecognized values.
func parseScheme(value string) (dark bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case SchemeDark:
		return true, true
	case SchemeLight:
		return false, true
	default:
		return false, false
	}
}

// ValidScheme reports whether value is an accepted scheme name.
func ValidScheme(value string) bool {
	switch value {
	case "", SchemeAuto, SchemeLight, SchemeDark:
		return true
	default:
		return false
	}
}
