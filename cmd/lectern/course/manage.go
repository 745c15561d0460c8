// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

package course

import (
	"context"
	"log/slog"
	"strings"

	"github.com/lectern-lms/lectern/cmd/lectern/cli"
	"github.com/lectern-lms/lectern/cmd/lectern/format"
	"github.com/lectern-lms/lectern/lib/lmsapi"
)

// requireManager returns the session user when they may create, edit,
// or delete courses.
func requireManager(app *cli.App, action string) (*lmsapi.User, error) {
	user, err := app.RequireUser(action)
	if err != nil {
		return nil, err
	}
	if !user.CanManageCourses() {
		return nil, cli.Forbidden("%s: requires an instructor or admin account (you are a %s)", action, user.EffectiveRole())
	}
	return user, nil
}

type createParams struct {
	cli.AppParams
	cli.JSONOutput
	Title       string `json:"title"          flag:"title"       desc:"course title (required)"`
	Description string `json:"description"    flag:"description" desc:"course description (Markdown)"`
	Category    int64  `json:"category"       flag:"category"    desc:"category ID (required)"`
	Hours       int    `json:"duration_hours" flag:"hours"       desc:"estimated duration in hours"`
	Publish     bool   `json:"is_published"   flag:"publish"     desc:"publish immediately instead of saving a draft"`
}

func createCommand() *cli.Command {
	var params createParams

	return &cli.Command{
		Name:    "create",
		Summary: "Create a course",
		Description: `Create a course owned by you. Courses are drafts until published;
drafts are visible only to their instructor and to admins.

Requires an instructor or admin account.`,
		Usage: "lectern course create --title <title> --category <id> [flags]",
		Examples: []cli.Example{
			{
				Description: "Create a draft",
				Command:     "lectern course create --title 'Intro to Go' --category 2 --hours 12",
			},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if err := noArgs(args); err != nil {
				return err
			}
			title := strings.TrimSpace(params.Title)
			if title == "" {
				return cli.Validation("--title is required")
			}
			if params.Hours < 0 {
				return cli.Validation("--hours must not be negative")
			}
			if params.Category <= 0 {
				return cli.Validation("--category is required (see 'lectern course categories')")
			}

			app, err := params.Open(ctx, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			if _, err := requireManager(app, "create course"); err != nil {
				return err
			}
			course, err := app.Session.API().CreateCourse(ctx, lmsapi.CourseInput{
				Title:         title,
				Description:   params.Description,
				Category:      params.Category,
				DurationHours: params.Hours,
				IsPublished:   params.Publish,
			})
			if err != nil {
				return cli.FromAPIError(err, "create course")
			}
			logger.Info("course created", "course_id", course.ID)

			if done, err := params.EmitJSON(course); done {
				return err
			}
			cli.Statusf("Created course %d (%s)", course.ID, app.Document.Status(course.IsPublished))
			return nil
		},
	}
}

type updateParams struct {
	cli.AppParams
	cli.JSONOutput
	Title       string `json:"title"          flag:"title"       desc:"new title"`
	Description string `json:"description"    flag:"description" desc:"new description (Markdown)"`
	Category    int64  `json:"category"       flag:"category"    desc:"new category ID" default:"-1"`
	Hours       int    `json:"duration_hours" flag:"hours"       desc:"new duration in hours" default:"-1"`
	Publish     bool   `json:"publish"        flag:"publish"     desc:"publish the course"`
	Unpublish   bool   `json:"unpublish"      flag:"unpublish"   desc:"return the course to draft"`
}

// changed reports whether any field flag was given.
func (p *updateParams) changed() bool {
	return p.Title != "" || p.Description != "" || p.Category >= 0 || p.Hours >= 0 || p.Publish || p.Unpublish
}

func updateCommand() *cli.Command {
	var params updateParams

	return &cli.Command{
		Name:    "update",
		Summary: "Edit a course",
		Description: `Change course fields. The current course is fetched and only the
fields given as flags change.

Requires an instructor or admin account. Instructors may only edit
their own courses.`,
		Usage: "lectern course update <id> [flags]",
		Examples: []cli.Example{
			{
				Description: "Publish a draft",
				Command:     "lectern course update 42 --publish",
			},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			id, err := parseID(args, "lectern course update <id> [flags]")
			if err != nil {
				return err
			}
			if params.Publish && params.Unpublish {
				return cli.Validation("--publish and --unpublish are mutually exclusive")
			}
			if !params.changed() {
				return cli.Validation("nothing to update (use --title, --description, --category, --hours, --publish, or --unpublish)")
			}
			if params.Category == 0 || params.Category < -1 {
				return cli.Validation("invalid category ID %d", params.Category)
			}

			app, err := params.Open(ctx, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			if _, err := requireManager(app, "update course"); err != nil {
				return err
			}
			current, err := app.Session.API().Course(ctx, id)
			if err != nil {
				return cli.FromAPIError(err, "update course")
			}

			input := current.Input()
			if params.Title != "" {
				input.Title = strings.TrimSpace(params.Title)
			}
			if params.Description != "" {
				input.Description = params.Description
			}
			if params.Category >= 0 {
				input.Category = params.Category
			}
			if params.Hours >= 0 {
				input.DurationHours = params.Hours
			}
			switch {
			case params.Publish:
				input.IsPublished = true
			case params.Unpublish:
				input.IsPublished = false
			}

			course, err := app.Session.API().UpdateCourse(ctx, id, input)
			if err != nil {
				return cli.FromAPIError(err, "update course")
			}
			logger.Info("course updated", "course_id", course.ID)

			if done, err := params.EmitJSON(course); done {
				return err
			}
			cli.Printf("%s", format.CourseDetail(app.Document, course, app.Width()))
			return nil
		},
	}
}

type deleteParams struct {
	cli.AppParams
}

func deleteCommand() *cli.Command {
	var params deleteParams

	return &cli.Command{
		Name:    "delete",
		Summary: "Delete a course",
		Description: `Delete a course and its enrollments.

Requires an instructor or admin account. Instructors may only delete
their own courses.`,
		Usage:  "lectern course delete <id>",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			id, err := parseID(args, "lectern course delete <id>")
			if err != nil {
				return err
			}

			app, err := params.Open(ctx, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			if _, err := requireManager(app, "delete course"); err != nil {
				return err
			}
			if err := app.Session.API().DeleteCourse(ctx, id); err != nil {
				return cli.FromAPIError(err, "delete course")
			}
			logger.Info("course deleted", "course_id", id)
			cli.Statusf("Deleted course %d", id)
			return nil
		},
	}
}
