// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

// Package profile implements "lectern profile": viewing and editing the
// logged-in user's account record.
package profile

import (
	"context"
	"log/slog"
	"strings"

	"github.com/lectern-lms/lectern/cmd/lectern/cli"
	"github.com/lectern-lms/lectern/cmd/lectern/format"
)

// Command returns the "profile" subcommand group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "profile",
		Summary: "View or edit your profile",
		Subcommands: []*cli.Command{
			showCommand(),
			updateCommand(),
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
		Summary: "Show your profile",
		Usage:   "lectern profile show [flags]",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			app, err := params.Open(ctx, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			user, err := app.RequireUser("profile")
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(user); done {
				return err
			}
			cli.Printf("%s", format.Profile(app.Document, user, app.Width()))
			return nil
		},
	}
}

type updateParams struct {
	cli.AppParams
	cli.JSONOutput
	FirstName string `json:"first_name" flag:"first-name" desc:"new first name"`
	LastName  string `json:"last_name"  flag:"last-name"  desc:"new last name"`
	Email     string `json:"email"      flag:"email"      desc:"new email"`
	Bio       string `json:"bio"        flag:"bio"        desc:"new bio (Markdown)"`
}

func updateCommand() *cli.Command {
	var params updateParams

	return &cli.Command{
		Name:    "update",
		Summary: "Edit your profile",
		Description: `Change profile fields. Only the fields given as flags change; the
rest of the record is sent back unchanged. The saved session is updated
with the server's copy of the record.`,
		Usage: "lectern profile update [flags]",
		Examples: []cli.Example{
			{
				Description: "Change the display name",
				Command:     "lectern profile update --first-name Ada --last-name Lovelace",
			},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			if params.FirstName == "" && params.LastName == "" && params.Email == "" && params.Bio == "" {
				return cli.Validation("nothing to update (use --first-name, --last-name, --email, or --bio)")
			}

			app, err := params.Open(ctx, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			user, err := app.RequireUser("update profile")
			if err != nil {
				return err
			}
			body := *user
			if params.FirstName != "" {
				body.FirstName = strings.TrimSpace(params.FirstName)
			}
			if params.LastName != "" {
				body.LastName = strings.TrimSpace(params.LastName)
			}
			if params.Email != "" {
				body.Email = strings.TrimSpace(params.Email)
			}
			if params.Bio != "" {
				body.Bio = params.Bio
			}

			updated, err := app.Session.API().UpdateProfile(ctx, body)
			if err != nil {
				return cli.FromAPIError(err, "update profile")
			}
			if err := app.Session.UpdateUser(*updated); err != nil {
				return cli.FromAPIError(err, "update profile")
			}
			logger.Info("profile updated", "user_id", updated.ID)

			if done, err := params.EmitJSON(updated); done {
				return err
			}
			cli.Printf("%s", format.Profile(app.Document, updated, app.Width()))
			return nil
		},
	}
}
