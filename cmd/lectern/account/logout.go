// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

package account

import (
	"context"
	"log/slog"

	"github.com/lectern-lms/lectern/cmd/lectern/cli"
)

type logoutParams struct {
	cli.AppParams
}

// LogoutCommand returns the "logout" command.
func LogoutCommand() *cli.Command {
	var params logoutParams

	return &cli.Command{
		Name:    "logout",
		Summary: "Clear the saved session",
		Description: `Remove the saved tokens and user record from the state file. The
server is not contacted. The display theme is kept.`,
		Usage:  "lectern logout",
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

			user := app.Session.User()
			if err := app.Session.Logout(); err != nil {
				return cli.Internal("logout: %w", err)
			}
			if user == nil {
				cli.Statusf("Not logged in")
				return nil
			}
			cli.Statusf("Logged out %s", user.Email)
			return nil
		},
	}
}
