// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

// Package clitest runs lectern commands against a fake LMS server in
// tests. An [Env] owns an lmstest server, a config file pointing at it,
// and a private state file; command output is captured in buffers.
package clitest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/lectern-lms/lectern/cmd/lectern/cli"
	"github.com/lectern-lms/lectern/lib/config"
	"github.com/lectern-lms/lectern/lib/lmsapi"
	"github.com/lectern-lms/lectern/lib/lmstest"
	"github.com/lectern-lms/lectern/lib/storage"
	"github.com/lectern-lms/lectern/lib/tui"
)

// Env is a command test environment. Tests using it must not run in
// parallel: it sets LECTERN_CONFIG and swaps cli.Stdout and cli.Stderr.
type Env struct {
	Server     *lmstest.Server
	ConfigPath string
	StatePath  string

	stdout bytes.Buffer
	stderr bytes.Buffer
}

// New starts a fake server and points LECTERN_CONFIG at a config for it.
func New(t *testing.T) *Env {
	t.Helper()
	env := &Env{Server: lmstest.New(t)}

	directory := t.TempDir()
	env.StatePath = filepath.Join(directory, "state.json")
	env.ConfigPath = filepath.Join(directory, "lectern.yaml")
	content := fmt.Sprintf("api:\n  base_url: %s\nstate:\n  file: %s\ndisplay:\n  color_scheme: light\n  width: 80\n",
		env.Server.URL(), env.StatePath)
	if err := os.WriteFile(env.ConfigPath, []byte(content), 0644); err != nil {
		t.Fatalf("clitest: writing config: %v", err)
	}
	t.Setenv(config.EnvConfig, env.ConfigPath)
	t.Setenv(tui.ColorSchemeEnv, "")

	previousStdout, previousStderr := cli.Stdout, cli.Stderr
	cli.Stdout, cli.Stderr = &env.stdout, &env.stderr
	t.Cleanup(func() {
		cli.Stdout, cli.Stderr = previousStdout, previousStderr
	})
	return env
}

// Run executes command with args and returns what it wrote to stdout.
// Both buffers are reset first.
func (e *Env) Run(t *testing.T, command *cli.Command, args ...string) (string, error) {
	t.Helper()
	e.stdout.Reset()
	e.stderr.Reset()
	err := command.Execute(context.Background(), args)
	return e.stdout.String(), err
}

// MustRun is Run that fails the test on error.
func (e *Env) MustRun(t *testing.T, command *cli.Command, args ...string) string {
	t.Helper()
	output, err := e.Run(t, command, args...)
	if err != nil {
		t.Fatalf("%s %v: %v", command.Name, args, err)
	}
	return output
}

// Stderr returns what the last Run wrote to stderr.
func (e *Env) Stderr() string {
	return e.stderr.String()
}

// AddUser creates an account on the server.
func (e *Env) AddUser(t *testing.T, user lmsapi.User, password string) lmsapi.User {
	t.Helper()
	return e.Server.AddUser(user, password)
}

// Login creates an account on the server and persists a session for
// it in the state file, as if "lectern login" had run.
func (e *Env) Login(t *testing.T, user lmsapi.User) lmsapi.User {
	t.Helper()
	added := e.Server.AddUser(user, "password-"+user.Email)
	e.LoginExisting(t, added)
	return added
}

// LoginExisting persists a fresh session for an account already on the
// server, replacing any saved session.
func (e *Env) LoginExisting(t *testing.T, user lmsapi.User) {
	t.Helper()
	access, refresh := e.Server.IssueTokens(user.ID)
	encoded, err := json.Marshal(user)
	if err != nil {
		t.Fatalf("clitest: encoding user: %v", err)
	}
	state := e.State(t)
	for key, value := range map[string]string{
		storage.KeyAccessToken:  access,
		storage.KeyRefreshToken: refresh,
		storage.KeyUser:         string(encoded),
	} {
		if err := state.Set(key, value); err != nil {
			t.Fatalf("clitest: persisting %s: %v", key, err)
		}
	}
}

// State opens the environment's state file.
func (e *Env) State(t *testing.T) *storage.File {
	t.Helper()
	state, err := storage.OpenFile(e.StatePath)
	if err != nil {
		t.Fatalf("clitest: opening state: %v", err)
	}
	return state
}

// StateValue returns a persisted value, or "" when absent.
func (e *Env) StateValue(t *testing.T, key string) string {
	t.Helper()
	value, _ := e.State(t).Get(key)
	return value
}

// RequireCategory fails the test unless err carries category.
func RequireCategory(t *testing.T, err error, category cli.ErrorCategory) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", category)
	}
	if got := cli.CategoryOf(err); got != category {
		t.Fatalf("error category = %s, want %s (error: %v)", got, category, err)
	}
}
