// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

package course

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/lectern-lms/lectern/cmd/lectern/cli"
	"github.com/lectern-lms/lectern/cmd/lectern/format"
	"github.com/lectern-lms/lectern/lib/lmsapi"
	"github.com/lectern-lms/lectern/lib/markdown"
)

type enrollParams struct {
	cli.AppParams
	cli.JSONOutput
}

func enrollCommand() *cli.Command {
	var params enrollParams

	return &cli.Command{
		Name:    "enroll",
		Summary: "Enroll in a course",
		Description: `Enroll in a published course. Requires a student account; enrolling
twice in the same course is rejected by the server.`,
		Usage:  "lectern course enroll <id> [flags]",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			id, err := parseID(args, "lectern course enroll <id> [flags]")
			if err != nil {
				return err
			}

			app, err := params.Open(ctx, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			user, err := app.RequireUser("enroll")
			if err != nil {
				return err
			}
			if role := user.EffectiveRole(); role != lmsapi.RoleStudent {
				return cli.Forbidden("enroll: only students can enroll (you are a %s)", role)
			}
			enrollment, err := app.Session.API().Enroll(ctx, id)
			if err != nil {
				return cli.FromAPIError(err, "enroll")
			}
			logger.Info("enrolled", "course_id", id, "enrollment_id", enrollment.ID)

			if done, err := params.EmitJSON(enrollment); done {
				return err
			}
			title := markdown.Sanitize(enrollment.CourseTitle)
			if title == "" {
				title = "course " + strconv.FormatInt(id, 10)
			}
			cli.Statusf("Enrolled in %s", title)
			return nil
		},
	}
}

type enrollmentsParams struct {
	cli.AppParams
	cli.JSONOutput
}

func enrollmentsCommand() *cli.Command {
	var params enrollmentsParams

	return &cli.Command{
		Name:    "enrollments",
		Summary: "List your enrollments with progress",
		Usage:   "lectern course enrollments [flags]",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if err := noArgs(args); err != nil {
				return err
			}
			app, err := params.Open(ctx, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			if _, err := app.RequireUser("list enrollments"); err != nil {
				return err
			}
			enrollments, err := app.Session.API().MyEnrollments(ctx)
			if err != nil {
				return cli.FromAPIError(err, "list enrollments")
			}
			if done, err := params.EmitJSON(enrollments); done {
				return err
			}
			if len(enrollments) == 0 {
				cli.Statusf("No enrollments")
				return nil
			}
			cli.Printf("%s", format.EnrollmentTable(app.Document, enrollments))
			return nil
		},
	}
}
