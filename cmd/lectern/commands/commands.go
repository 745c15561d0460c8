// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the complete Lectern CLI command tree.
package commands

import (
	"context"
	"log/slog"

	accountcmd "github.com/lectern-lms/lectern/cmd/lectern/account"
	"github.com/lectern-lms/lectern/cmd/lectern/cli"
	coursecmd "github.com/lectern-lms/lectern/cmd/lectern/course"
	dashboardcmd "github.com/lectern-lms/lectern/cmd/lectern/dashboard"
	profilecmd "github.com/lectern-lms/lectern/cmd/lectern/profile"
	themecmd "github.com/lectern-lms/lectern/cmd/lectern/theme"
	"github.com/lectern-lms/lectern/lib/version"
)

// Root builds and returns the complete Lectern CLI command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "lectern",
		Description: `Lectern: a terminal client for the learning management system.

Log in once and the session is saved locally; later commands reuse it
and refresh it in the background. The display theme follows your
account and is kept in sync with the server.`,
		Subcommands: []*cli.Command{
			accountcmd.LoginCommand(),
			accountcmd.RegisterCommand(),
			accountcmd.LogoutCommand(),
			accountcmd.WhoAmICommand(),
			accountcmd.PasswordCommand(),
			themecmd.Command(),
			profilecmd.Command(),
			coursecmd.Command(),
			dashboardcmd.Command(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(_ context.Context, args []string, _ *slog.Logger) error {
					cli.Printf("lectern %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Log in (saves the session locally)",
				Command:     "lectern login ada@example.com",
			},
			{
				Description: "Browse published courses",
				Command:     "lectern course list",
			},
			{
				Description: "Enroll and track progress",
				Command:     "lectern course enroll 42 && lectern course enrollments",
			},
			{
				Description: "Switch between light and dark output",
				Command:     "lectern theme toggle",
			},
		},
	}
}
