// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

package account

import (
	"context"
	"log/slog"

	"github.com/lectern-lms/lectern/cmd/lectern/cli"
	"github.com/lectern-lms/lectern/lib/lmsapi"
)

type loginParams struct {
	cli.AppParams
	cli.PasswordFileParams
	cli.JSONOutput
}

// LoginCommand returns the "login" command.
func LoginCommand() *cli.Command {
	var params loginParams

	return &cli.Command{
		Name:    "login",
		Summary: "Log in to the LMS",
		Description: `Log in with an email and password and save the session locally.

The access and refresh tokens and the user record are written to the
state file (mode 0600). Later commands use the saved session until it
is rejected by the server or "lectern logout" clears it. The display
theme switches to the account's saved theme.

The password is read from --password-file, or prompted for with echo
disabled.`,
		Usage: "lectern login <email> [flags]",
		Examples: []cli.Example{
			{
				Description: "Log in interactively (prompts for password)",
				Command:     "lectern login ada@example.com",
			},
			{
				Description: "Log in with the password on stdin",
				Command:     "pass show lms | lectern login ada@example.com --password-file -",
			},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) < 1 {
				return cli.Validation("email is required\n\nUsage: lectern login <email> [flags]")
			}
			if len(args) > 1 {
				return cli.Validation("unexpected argument: %s", args[1])
			}
			email := args[0]

			password, err := params.ReadPassword("Password: ")
			if err != nil {
				return err
			}
			defer password.Close()

			app, err := params.Open(ctx, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			user, err := app.Session.Login(ctx, lmsapi.LoginRequest{Email: email, Password: password})
			if err != nil {
				return cli.FromAPIError(err, "login")
			}

			if done, err := params.EmitJSON(user); done {
				return err
			}
			cli.Statusf("Logged in as %s (%s)", user.FullName(), user.EffectiveRole())
			cli.Statusf("Session saved to %s", app.State.Path())
			return nil
		},
	}
}
