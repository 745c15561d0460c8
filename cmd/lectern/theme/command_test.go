// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

package theme

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/lectern-lms/lectern/cmd/lectern/cli"
	"github.com/lectern-lms/lectern/cmd/lectern/clitest"
	"github.com/lectern-lms/lectern/lib/lmsapi"
	"github.com/lectern-lms/lectern/lib/storage"
)

func TestShowDefaultsToConfiguredScheme(t *testing.T) {
	env := clitest.New(t)

	output := env.MustRun(t, Command(), "show")
	if strings.TrimSpace(output) != "light" {
		t.Errorf("output = %q, want light", output)
	}

	output = env.MustRun(t, Command(), "show", "--json")
	var result themeResult
	if err := json.Unmarshal([]byte(output), &result); err != nil {
		t.Fatalf("decoding %q: %v", output, err)
	}
	if result.Theme != lmsapi.ThemeLight || result.Dark {
		t.Errorf("result = %+v", result)
	}
}

func TestToggleLoggedOutIsLocalOnly(t *testing.T) {
	env := clitest.New(t)

	if output := env.MustRun(t, Command(), "toggle"); strings.TrimSpace(output) != "dark" {
		t.Errorf("first toggle = %q, want dark", output)
	}
	if got := env.StateValue(t, storage.KeyTheme); got != "dark" {
		t.Errorf("persisted theme = %q, want dark", got)
	}
	if output := env.MustRun(t, Command(), "toggle"); strings.TrimSpace(output) != "light" {
		t.Errorf("second toggle = %q, want light", output)
	}
	if count := env.Server.Count(http.MethodPut, "/auth/profile/"); count != 0 {
		t.Errorf("profile writes = %d while logged out", count)
	}
}

func TestToggleWritesThroughToProfile(t *testing.T) {
	env := clitest.New(t)
	user := env.Login(t, lmsapi.User{Email: "ada@example.com", FirstName: "Ada", Bio: "Analyst"})

	env.MustRun(t, Command(), "toggle")

	// The command waits for the write-through before exiting.
	if got := env.Server.User(user.ID).Theme; got != lmsapi.ThemeDark {
		t.Errorf("server theme = %q, want dark", got)
	}
	bodies := env.Server.Bodies(http.MethodPut, "/auth/profile/")
	if len(bodies) != 1 {
		t.Fatalf("profile writes = %d, want 1", len(bodies))
	}
	var body lmsapi.User
	json.Unmarshal(bodies[0], &body)
	if body.Email != "ada@example.com" || body.Bio != "Analyst" {
		t.Errorf("profile body dropped fields: %+v", body)
	}

	var persisted lmsapi.User
	json.Unmarshal([]byte(env.StateValue(t, storage.KeyUser)), &persisted)
	if persisted.Theme != lmsapi.ThemeDark {
		t.Errorf("persisted user theme = %q, want dark", persisted.Theme)
	}
}

func TestToggleWithFailingServerStaysToggled(t *testing.T) {
	env := clitest.New(t)
	user := env.Login(t, lmsapi.User{Email: "ada@example.com"})
	env.Server.FailNext(http.MethodPut, "/auth/profile/", http.StatusInternalServerError, `{"detail": "boom"}`)

	output, err := env.Run(t, Command(), "toggle")
	if err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if strings.TrimSpace(output) != "dark" {
		t.Errorf("output = %q, want dark", output)
	}
	if got := env.StateValue(t, storage.KeyTheme); got != "dark" {
		t.Errorf("persisted theme = %q, want dark", got)
	}
	if got := env.Server.User(user.ID).Theme; got != lmsapi.ThemeLight {
		t.Errorf("server theme = %q, want unchanged light", got)
	}
}

func TestSet(t *testing.T) {
	env := clitest.New(t)
	user := env.Login(t, lmsapi.User{Email: "ada@example.com"})

	_, err := env.Run(t, Command(), "set", "sepia")
	clitest.RequireCategory(t, err, cli.CategoryValidation)

	// Already the profile's theme: no write.
	env.MustRun(t, Command(), "set", "light")
	if count := env.Server.Count(http.MethodPut, "/auth/profile/"); count != 0 {
		t.Errorf("profile writes = %d, want 0", count)
	}

	if output := env.MustRun(t, Command(), "set", "DARK"); strings.TrimSpace(output) != "dark" {
		t.Errorf("output = %q", output)
	}
	if got := env.Server.User(user.ID).Theme; got != lmsapi.ThemeDark {
		t.Errorf("server theme = %q, want dark", got)
	}
}
