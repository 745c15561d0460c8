// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

package account

import (
	"context"
	"log/slog"
	"strings"

	"github.com/lectern-lms/lectern/cmd/lectern/cli"
	"github.com/lectern-lms/lectern/lib/lmsapi"
)

type registerParams struct {
	cli.AppParams
	cli.PasswordFileParams
	cli.JSONOutput
	Email     string `json:"email"      flag:"email"      desc:"account email (required)"`
	FirstName string `json:"first_name" flag:"first-name" desc:"first name"`
	LastName  string `json:"last_name"  flag:"last-name"  desc:"last name"`
	Role      string `json:"role"       flag:"role"       desc:"student or instructor" default:"student"`
	Theme     string `json:"theme"      flag:"theme"      desc:"light or dark (default: the active theme)"`
}

// RegisterCommand returns the "register" command.
func RegisterCommand() *cli.Command {
	var params registerParams

	return &cli.Command{
		Name:    "register",
		Summary: "Create an account and log in",
		Description: `Create an account and log in to it. Admin accounts cannot be
registered.

The account's theme defaults to the active theme: the one saved by an
earlier "lectern theme" command, else the system color scheme. A
preference chosen before registering carries over. Validation failures from the server are printed one
field per line; nothing is saved.

When the password is prompted for, it is asked for twice.`,
		Usage: "lectern register --email EMAIL [flags]",
		Examples: []cli.Example{
			{
				Description: "Register a student",
				Command:     "lectern register --email ada@example.com --first-name Ada --last-name Lovelace",
			},
			{
				Description: "Register an instructor with a dark theme",
				Command:     "lectern register --email grace@example.com --role instructor --theme dark",
			},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			email := strings.TrimSpace(params.Email)
			if email == "" {
				return cli.Validation("--email is required")
			}
			role := lmsapi.Role(strings.ToLower(params.Role))
			if role != lmsapi.RoleStudent && role != lmsapi.RoleInstructor {
				return cli.Validation("--role must be %q or %q, got %q", lmsapi.RoleStudent, lmsapi.RoleInstructor, params.Role)
			}
			var theme lmsapi.Theme
			if params.Theme != "" {
				parsed, err := lmsapi.ParseTheme(params.Theme)
				if err != nil {
					return cli.Validation("--theme: %w", err)
				}
				theme = parsed
			}

			password, err := readNewPassword(&params.PasswordFileParams)
			if err != nil {
				return err
			}
			defer password.Close()

			app, err := params.Open(ctx, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			if theme == "" {
				theme = app.Preferences.Theme()
			}

			user, err := app.Session.Register(ctx, lmsapi.RegisterRequest{
				Email:     email,
				Password:  password,
				FirstName: params.FirstName,
				LastName:  params.LastName,
				Role:      role,
				Theme:     theme,
			})
			if err != nil {
				return cli.FromAPIError(err, "register")
			}

			if done, err := params.EmitJSON(user); done {
				return err
			}
			cli.Statusf("Registered and logged in as %s (%s)", user.FullName(), user.EffectiveRole())
			return nil
		},
	}
}
