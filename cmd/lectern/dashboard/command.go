// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

// Package dashboard implements "lectern dashboard".
package dashboard

import (
	"context"
	"log/slog"

	"github.com/lectern-lms/lectern/cmd/lectern/cli"
	"github.com/lectern-lms/lectern/cmd/lectern/format"
)

type dashboardParams struct {
	cli.AppParams
	cli.JSONOutput
}

// Command returns the "dashboard" command.
func Command() *cli.Command {
	var params dashboardParams

	return &cli.Command{
		Name:    "dashboard",
		Summary: "Show your dashboard counters",
		Description: `Show the counters for your role. Admins see platform totals and role
counts; instructors see their courses, students, and enrollments;
students see enrolled, completed, and in-progress courses.`,
		Usage:  "lectern dashboard [flags]",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			app, err := params.Open(ctx, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			user, err := app.RequireUser("dashboard")
			if err != nil {
				return err
			}
			stats, err := app.Session.API().DashboardStats(ctx)
			if err != nil {
				return cli.FromAPIError(err, "dashboard")
			}
			if done, err := params.EmitJSON(stats); done {
				return err
			}
			cli.Printf("%s", format.Dashboard(app.Document, user, stats))
			return nil
		},
	}
}
