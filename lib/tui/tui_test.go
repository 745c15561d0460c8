// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"github.com/lectern-lms/lectern/lib/lmsapi"
)

func TestDocumentSetDarkMode(t *testing.T) {
	document := NewDocument(&bytes.Buffer{})
	document.SetColorProfile(termenv.ANSI256)
	if !document.Colored() {
		t.Fatal("forced profile not applied")
	}
	if document.DarkMode() || document.Theme().ChromaStyle != LightTheme.ChromaStyle {
		t.Fatal("new document is not in light mode")
	}
	light := document.Heading("Courses")

	document.SetDarkMode(true)
	if !document.DarkMode() || document.Theme().ChromaStyle != DarkTheme.ChromaStyle {
		t.Fatal("SetDarkMode(true) did not switch the palette")
	}
	if !document.Renderer().HasDarkBackground() {
		t.Error("renderer background flag not set")
	}
	dark := document.Heading("Courses")
	if light == dark {
		t.Errorf("heading renders identically in both modes: %q", light)
	}
	if ansi.Strip(dark) != "Courses" {
		t.Errorf("stripped heading = %q", ansi.Strip(dark))
	}
}

func TestDocumentPlainOutput(t *testing.T) {
	document := NewDocument(&bytes.Buffer{})
	if document.Colored() {
		t.Skip("environment forces color output")
	}
	if got := document.Role(lmsapi.RoleInstructor); got != "instructor" {
		t.Errorf("Role = %q, want plain text for a non-terminal", got)
	}
	if got := document.Status(false); got != "draft" {
		t.Errorf("Status(false) = %q", got)
	}
	if got := document.Progress(150, true); !strings.HasSuffix(got, " 100%") {
		t.Errorf("Progress(150) = %q, want clamped to 100%%", got)
	}
	if got := document.Progress(-5, false); !strings.HasSuffix(got, "   0%") {
		t.Errorf("Progress(-5) = %q", got)
	}
}

func TestThemeColors(t *testing.T) {
	if DarkTheme.RoleColor(lmsapi.RoleAdmin) != DarkTheme.RoleAdmin {
		t.Error("admin role color")
	}
	if LightTheme.RoleColor("janitor") != LightTheme.FaintText {
		t.Error("unknown role should be faint")
	}
	if DarkTheme.StatusColor(true) != DarkTheme.StatusPublished {
		t.Error("published status color")
	}
	if ThemeFor(true).ChromaStyle != "monokai" || ThemeFor(false).ChromaStyle != "github" {
		t.Error("ThemeFor picked the wrong palette")
	}
}

func TestSystemPreference(t *testing.T) {
	environment := func(value string) func(string) string {
		return func(name string) string {
			if name == ColorSchemeEnv {
				return value
			}
			return ""
		}
	}

	tests := []struct {
		name   string
		env    string
		scheme string
		want   bool
	}{
		{name: "env dark", env: "dark", want: true},
		{name: "env beats scheme", env: "light", scheme: "dark", want: false},
		{name: "env case-insensitive", env: " DARK ", want: true},
		{name: "scheme dark", scheme: "dark", want: true},
		{name: "auto without output", scheme: "auto", want: false},
		{name: "unknown env falls through", env: "sepia", scheme: "dark", want: true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			preference := SystemPreference{Scheme: test.scheme, Getenv: environment(test.env)}
			if got := preference.PrefersDark(); got != test.want {
				t.Errorf("PrefersDark() = %v, want %v", got, test.want)
			}
		})
	}

	piped := SystemPreference{Output: &bytes.Buffer{}, Getenv: environment("")}
	if piped.PrefersDark() {
		t.Error("non-terminal output reported a dark background")
	}

	for _, value := range []string{"", "auto", "light", "dark"} {
		if !ValidScheme(value) {
			t.Errorf("ValidScheme(%q) = false", value)
		}
	}
	if ValidScheme("sepia") {
		t.Error("ValidScheme accepted sepia")
	}
}

func TestTableRender(t *testing.T) {
	table := Table{Headers: []string{"ID", "Title"}}
	table.AddRow("1", "Intro to Go")
	table.AddRow("22", "Databases")

	got := table.Render(NewDocument(&bytes.Buffer{}))
	want := "ID  Title\n1   Intro to Go\n22  Databases\n"
	if got != want {
		t.Errorf("Render =\n%q\nwant\n%q", got, want)
	}
}

func TestTableTruncatesAndPads(t *testing.T) {
	table := Table{
		Headers:   []string{"Title", "Status"},
		MaxWidths: []int{6},
	}
	table.AddRow("Advanced Distributed Systems", "draft")
	table.AddRow("Go")

	lines := strings.Split(strings.TrimSuffix(table.Render(nil), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3: %q", len(lines), lines)
	}
	first := strings.SplitN(lines[1], columnGap, 2)[0]
	if !strings.HasSuffix(first, "…") || ansi.StringWidth(first) > 6 {
		t.Errorf("truncated cell = %q", first)
	}
	if lines[2] != "Go" {
		t.Errorf("short row = %q, want the missing cell omitted", lines[2])
	}
	if table.Render(nil) == "" || (&Table{}).Render(nil) != "" {
		t.Error("empty table should render as empty string")
	}
}

func TestFuzzyMatch(t *testing.T) {
	if result := FuzzyMatch("Intro to Distributed Systems", []rune("distsys"), nil); result.Score <= 0 || len(result.Positions) == 0 {
		t.Errorf("non-contiguous match: %+v", result)
	}
	if result := FuzzyMatch("PYTHON BASICS", []rune("python"), nil); result.Score <= 0 {
		t.Errorf("case-insensitive match: %+v", result)
	}
	if result := FuzzyMatch("Databases", []rune("xyz"), nil); result.Score != 0 || len(result.Positions) != 0 {
		t.Errorf("no match: %+v", result)
	}
	if result := FuzzyMatch("anything", nil, nil); result.Score != 0 {
		t.Errorf("empty pattern: %+v", result)
	}
}

func TestFuzzyFilter(t *testing.T) {
	titles := []string{"Databases", "Intro to Go", "Advanced Go Concurrency"}
	identity := func(title string) string { return title }

	if got := FuzzyFilter(titles, identity, "  "); len(got) != 3 {
		t.Errorf("blank query returned %v", got)
	}

	got := FuzzyFilter(titles, identity, "go")
	if len(got) != 2 {
		t.Fatalf("FuzzyFilter(go) = %v, want two courses", got)
	}
	for _, title := range got {
		if title == "Databases" {
			t.Errorf("Databases matched %q", "go")
		}
	}

	if got := FuzzyFilter(titles, identity, "zzz"); len(got) != 0 {
		t.Errorf("FuzzyFilter(zzz) = %v, want none", got)
	}
}
