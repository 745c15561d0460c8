// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

// Package course implements "lectern course": browsing the catalog,
// managing courses, and enrolling.
//
// Role checks for create, update, delete, and enroll run locally
// against the session user before any request is sent. The server
// remains authoritative and its 403 is reported the same way.
package course

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/lectern-lms/lectern/cmd/lectern/cli"
	"github.com/lectern-lms/lectern/cmd/lectern/format"
	"github.com/lectern-lms/lectern/lib/lmsapi"
	"github.com/lectern-lms/lectern/lib/markdown"
	"github.com/lectern-lms/lectern/lib/tui"
)

// Command returns the "course" subcommand group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "course",
		Summary: "Browse and manage courses",
		Description: `Browse the course catalog, manage courses, and enroll.

Students see published courses. Instructors also see their own drafts
and may create, edit, and delete their own courses. Admins see and
manage everything.`,
		Subcommands: []*cli.Command{
			listCommand(),
			showCommand(),
			mineCommand(),
			categoriesCommand(),
			createCommand(),
			updateCommand(),
			deleteCommand(),
			enrollCommand(),
			enrollmentsCommand(),
		},
	}
}

// parseID parses a positional course ID.
func parseID(args []string, usage string) (int64, error) {
	if len(args) < 1 {
		return 0, cli.Validation("course ID is required\n\nUsage: %s", usage)
	}
	if len(args) > 1 {
		return 0, cli.Validation("unexpected argument: %s", args[1])
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, cli.Validation("invalid course ID %q", args[0])
	}
	return id, nil
}

func noArgs(args []string) error {
	if len(args) > 0 {
		return cli.Validation("unexpected argument: %s", args[0])
	}
	return nil
}

type listParams struct {
	cli.AppParams
	cli.JSONOutput
	Search   string `json:"search"   flag:"search"   desc:"server-side search over title, description, and category"`
	Category int64  `json:"category" flag:"category" desc:"only courses in this category ID"`
	Filter   string `json:"filter"   flag:"filter"   desc:"fuzzy-match titles locally, best match first"`
}

func listCommand() *cli.Command {
	var params listParams

	return &cli.Command{
		Name:    "list",
		Summary: "List courses in the catalog",
		Usage:   "lectern course list [flags]",
		Examples: []cli.Example{
			{
				Description: "Search the catalog",
				Command:     "lectern course list --search python",
			},
			{
				Description: "Fuzzy-match titles",
				Command:     "lectern course list --filter 'intro go'",
			},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if err := noArgs(args); err != nil {
				return err
			}
			if params.Category < 0 {
				return cli.Validation("invalid category ID %d", params.Category)
			}

			app, err := params.Open(ctx, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			if _, err := app.RequireUser("list courses"); err != nil {
				return err
			}
			courses, err := app.Session.API().Courses(ctx, lmsapi.CourseQuery{
				Search:   strings.TrimSpace(params.Search),
				Category: params.Category,
			})
			if err != nil {
				return cli.FromAPIError(err, "list courses")
			}
			courses = tui.FuzzyFilter(courses, func(course lmsapi.Course) string {
				return markdown.Sanitize(course.Title)
			}, params.Filter)
			logger.Debug("listed courses", "count", len(courses))

			if done, err := params.EmitJSON(courses); done {
				return err
			}
			if len(courses) == 0 {
				cli.Statusf("No courses found")
				return nil
			}
			cli.Printf("%s", format.CourseTable(app.Document, courses))
			return nil
		},
	}
}

type showParams struct {
	cli.AppParams
	cli.JSONOutput
}

func showCommand() *cli.Command {
	var params showParams

	return &cli.Command{
		Name:    "show",
		Summary: "Show a course with its description",
		Usage:   "lectern course show <id> [flags]",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			id, err := parseID(args, "lectern course show <id> [flags]")
			if err != nil {
				return err
			}

			app, err := params.Open(ctx, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			if _, err := app.RequireUser("show course"); err != nil {
				return err
			}
			course, err := app.Session.API().Course(ctx, id)
			if err != nil {
				return cli.FromAPIError(err, "show course")
			}
			if done, err := params.EmitJSON(course); done {
				return err
			}
			cli.Printf("%s", format.CourseDetail(app.Document, course, app.Width()))
			return nil
		},
	}
}

type mineParams struct {
	cli.AppParams
	cli.JSONOutput
}

func mineCommand() *cli.Command {
	var params mineParams

	return &cli.Command{
		Name:    "mine",
		Summary: "List your courses",
		Description: `List the courses that belong to you: the courses you are enrolled in
as a student, the courses you teach as an instructor, or every course
as an admin.`,
		Usage:  "lectern course mine [flags]",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if err := noArgs(args); err != nil {
				return err
			}
			app, err := params.Open(ctx, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			if _, err := app.RequireUser("list your courses"); err != nil {
				return err
			}
			courses, err := app.Session.API().MyCourses(ctx)
			if err != nil {
				return cli.FromAPIError(err, "list your courses")
			}
			if done, err := params.EmitJSON(courses); done {
				return err
			}
			if len(courses) == 0 {
				cli.Statusf("No courses found")
				return nil
			}
			cli.Printf("%s", format.CourseTable(app.Document, courses))
			return nil
		},
	}
}

type categoriesParams struct {
	cli.AppParams
	cli.JSONOutput
}

func categoriesCommand() *cli.Command {
	var params categoriesParams

	return &cli.Command{
		Name:    "categories",
		Summary: "List course categories",
		Usage:   "lectern course categories [flags]",
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

			if _, err := app.RequireUser("list categories"); err != nil {
				return err
			}
			categories, err := app.Session.API().Categories(ctx)
			if err != nil {
				return cli.FromAPIError(err, "list categories")
			}
			if done, err := params.EmitJSON(categories); done {
				return err
			}
			if len(categories) == 0 {
				cli.Statusf("No categories found")
				return nil
			}
			cli.Printf("%s", format.CategoryTable(app.Document, categories))
			return nil
		},
	}
}
