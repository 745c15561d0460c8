// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"strings"
	"testing"

	"github.com/lectern-lms/lectern/cmd/lectern/cli"
	"github.com/lectern-lms/lectern/cmd/lectern/commands"
)

// TestCommandTree walks the full command tree and checks that every
// runnable command documents itself and every group can dispatch.
func TestCommandTree(t *testing.T) {
	seen := make(map[string]bool)
	walkCommands(commands.Root(), nil, func(command *cli.Command, path []string) {
		name := strings.Join(path, " ")
		if seen[name] {
			t.Errorf("%s: duplicate command", name)
		}
		seen[name] = true

		if len(path) > 1 && command.Summary == "" {
			t.Errorf("%s: missing Summary", name)
		}
		if command.Run == nil && len(command.Subcommands) == 0 {
			t.Errorf("%s: neither runnable nor a group", name)
		}
		if command.Run != nil && command.Params != nil && command.Usage == "" {
			t.Errorf("%s: command with flags has no Usage line", name)
		}
	})

	for _, want := range []string{
		"lectern login", "lectern register", "lectern logout", "lectern whoami",
		"lectern password forgot", "lectern password reset",
		"lectern theme show", "lectern theme toggle", "lectern theme set",
		"lectern profile show", "lectern profile update",
		"lectern course list", "lectern course show", "lectern course mine",
		"lectern course create", "lectern course update", "lectern course delete",
		"lectern course categories", "lectern course enroll", "lectern course enrollments",
		"lectern dashboard", "lectern version",
	} {
		if !seen[want] {
			t.Errorf("missing command %q", want)
		}
	}
}

// walkCommands recursively visits every command in the tree,
// calling visit for each node with the accumulated command path.
func walkCommands(command *cli.Command, path []string, visit func(*cli.Command, []string)) {
	current := make([]string, len(path)+1)
	copy(current, path)
	current[len(path)] = command.Name
	visit(command, current)
	for _, sub := range command.Subcommands {
		walkCommands(sub, current, visit)
	}
}
