// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/lectern-lms/lectern/lib/lmsapi"
)

// Document is the rendering root. It starts in light mode; SetDarkMode
// switches both the renderer's background flag and the palette.
type Document struct {
	mu       sync.Mutex
	renderer *lipgloss.Renderer
	dark     bool
	theme    Theme
}

// NewDocument creates a Document rendering for output. The color
// profile is detected from output; a non-terminal output gets plain
// text.
func NewDocument(output io.Writer) *Document {
	renderer := lipgloss.NewRenderer(output)
	renderer.SetHasDarkBackground(false)
	return &Document{renderer: renderer, theme: LightTheme}
}

// SetColorProfile overrides the detected color profile. The renderer
// re-detects from the environment unless the profile is set here.
func (document *Document) SetColorProfile(profile termenv.Profile) {
	document.renderer.SetColorProfile(profile)
}

// Colored reports whether output carries ANSI styling.
func (document *Document) Colored() bool {
	return document.renderer.ColorProfile() != termenv.Ascii
}

// SetDarkMode switches the active palette.
func (document *Document) SetDarkMode(dark bool) {
	document.mu.Lock()
	defer document.mu.Unlock()
	document.dark = dark
	document.theme = ThemeFor(dark)
	document.renderer.SetHasDarkBackground(dark)
}

// DarkMode reports whether the dark palette is active.
func (document *Document) DarkMode() bool {
	document.mu.Lock()
	defer document.mu.Unlock()
	return document.dark
}

// Theme returns the active palette.
func (document *Document) Theme() Theme {
	document.mu.Lock()
	defer document.mu.Unlock()
	return document.theme
}

// Renderer returns the underlying lipgloss renderer.
func (document *Document) Renderer() *lipgloss.Renderer {
	return document.renderer
}

// NewStyle returns an empty style bound to the document's renderer.
func (document *Document) NewStyle() lipgloss.Style {
	return document.renderer.NewStyle()
}

func (document *Document) foreground(color lipgloss.Color) lipgloss.Style {
	return document.renderer.NewStyle().Foreground(color)
}

// Heading renders text as a bold header.
func (document *Document) Heading(text string) string {
	return document.foreground(document.Theme().HeaderForeground).Bold(true).Render(text)
}

// Text renders text in the normal foreground.
func (document *Document) Text(text string) string {
	return document.foreground(document.Theme().NormalText).Render(text)
}

// Faint renders secondary text.
func (document *Document) Faint(text string) string {
	return document.foreground(document.Theme().FaintText).Render(text)
}

// Link renders a URL or reference.
func (document *Document) Link(text string) string {
	return document.foreground(document.Theme().LinkForeground).Underline(true).Render(text)
}

// Success renders a confirmation message.
func (document *Document) Success(text string) string {
	return document.foreground(document.Theme().SuccessForeground).Render(text)
}

// Error renders an error message.
func (document *Document) Error(text string) string {
	return document.foreground(document.Theme().ErrorForeground).Bold(true).Render(text)
}

// Role renders a role badge.
func (document *Document) Role(role lmsapi.Role) string {
	return document.foreground(document.Theme().RoleColor(role)).Bold(true).Render(string(role))
}

// Status renders a course's publication state.
func (document *Document) Status(published bool) string {
	label := "draft"
	if published {
		label = "published"
	}
	return document.foreground(document.Theme().StatusColor(published)).Render(label)
}

// progressWidth is the number of cells in a progress bar.
const progressWidth = 20

// Progress renders a percentage as a bar followed by the number.
// Values outside 0-100 are clamped.
func (document *Document) Progress(percent float64, completed bool) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := int(percent / 100 * progressWidth)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", progressWidth-filled)

	theme := document.Theme()
	color := theme.ProgressPartial
	if completed {
		color = theme.ProgressComplete
	}
	return document.foreground(color).Render(bar) + fmt.Sprintf(" %3.0f%%", percent)
}
