// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/lectern-lms/lectern/lib/lmsapi"
)

// Theme defines the color palette for Lectern's terminal output. All
// colors use lipgloss ANSI 256-color codes for broad terminal
// compatibility.
type Theme struct {
	// Text colors.
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// UI chrome.
	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	LinkForeground   lipgloss.Color

	// Role badges, indexed by effective role.
	RoleAdmin      lipgloss.Color
	RoleInstructor lipgloss.Color
	RoleStudent    lipgloss.Color

	// Course publication state.
	StatusPublished lipgloss.Color
	StatusDraft     lipgloss.Color

	// Enrollment progress.
	ProgressComplete lipgloss.Color
	ProgressPartial  lipgloss.Color

	// Outcome messages.
	SuccessForeground lipgloss.Color
	ErrorForeground   lipgloss.Color

	// Inline and fenced code in course descriptions.
	CodeForeground lipgloss.Color
	CodeBackground lipgloss.Color

	// ChromaStyle names the chroma style used to highlight fenced code.
	ChromaStyle string
}

// RoleColor returns the badge color for role. Unknown roles return
// FaintText.
func (theme Theme) RoleColor(role lmsapi.Role) lipgloss.Color {
	switch role {
	case lmsapi.RoleAdmin:
		return theme.RoleAdmin
	case lmsapi.RoleInstructor:
		return theme.RoleInstructor
	case lmsapi.RoleStudent:
		return theme.RoleStudent
	default:
		return theme.FaintText
	}
}

// StatusColor returns the color for a course's publication state.
func (theme Theme) StatusColor(published bool) lipgloss.Color {
	if published {
		return theme.StatusPublished
	}
	return theme.StatusDraft
}

// DarkTheme is the palette for terminals with a dark background.
var DarkTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	HeaderForeground: lipgloss.Color("255"),
	BorderColor:      lipgloss.Color("240"),
	LinkForeground:   lipgloss.Color("75"), // blue

	RoleAdmin:      lipgloss.Color("196"), // red
	RoleInstructor: lipgloss.Color("141"), // light purple
	RoleStudent:    lipgloss.Color("75"),  // blue

	StatusPublished: lipgloss.Color("114"), // green
	StatusDraft:     lipgloss.Color("220"), // amber

	ProgressComplete: lipgloss.Color("114"),
	ProgressPartial:  lipgloss.Color("220"),

	SuccessForeground: lipgloss.Color("114"),
	ErrorForeground:   lipgloss.Color("203"),

	CodeForeground: lipgloss.Color("223"),
	CodeBackground: lipgloss.Color("236"),

	ChromaStyle: "monokai",
}

// LightTheme is the palette for terminals with a light background. The
// hues match DarkTheme at a darker shade so they keep contrast on white.
var LightTheme = Theme{
	NormalText: lipgloss.Color("235"),
	FaintText:  lipgloss.Color("243"),

	HeaderForeground: lipgloss.Color("232"),
	BorderColor:      lipgloss.Color("250"),
	LinkForeground:   lipgloss.Color("25"),

	RoleAdmin:      lipgloss.Color("160"),
	RoleInstructor: lipgloss.Color("91"),
	RoleStudent:    lipgloss.Color("25"),

	StatusPublished: lipgloss.Color("28"),
	StatusDraft:     lipgloss.Color("130"),

	ProgressComplete: lipgloss.Color("28"),
	ProgressPartial:  lipgloss.Color("130"),

	SuccessForeground: lipgloss.Color("28"),
	ErrorForeground:   lipgloss.Color("160"),

	CodeForeground: lipgloss.Color("88"),
	CodeBackground: lipgloss.Color("254"),

	ChromaStyle: "github",
}

// ThemeFor returns DarkTheme when dark is true and LightTheme otherwise.
func ThemeFor(dark bool) Theme {
	if dark {
		return DarkTheme
	}
	return LightTheme
}
