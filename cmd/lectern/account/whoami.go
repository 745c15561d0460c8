// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

package account

import (
	"context"
	"log/slog"

	"github.com/lectern-lms/lectern/cmd/lectern/cli"
	"github.com/lectern-lms/lectern/lib/lmsapi"
)

type whoamiParams struct {
	cli.AppParams
	cli.JSONOutput
}

// whoamiResult is the JSON output of whoami.
type whoamiResult struct {
	User  *lmsapi.User `json:"user"`
	Stale bool         `json:"stale"`
}

// WhoAmICommand returns the "whoami" command.
func WhoAmICommand() *cli.Command {
	var params whoamiParams

	return &cli.Command{
		Name:    "whoami",
		Summary: "Show the logged-in user",
		Description: `Show the user of the saved session after refreshing it from the
server. When the server cannot be reached the cached record is shown
and marked stale; a session the server rejects is cleared.

Exits 1 when nobody is logged in.`,
		Usage:  "lectern whoami [flags]",
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
			stale := app.Session.Stale()
			if done, err := params.EmitJSON(whoamiResult{User: user, Stale: stale}); done {
				if err == nil && user == nil {
					return &cli.ExitError{Code: 1}
				}
				return err
			}

			if user == nil {
				cli.Statusf("Not logged in")
				return &cli.ExitError{Code: 1}
			}

			document := app.Document
			cli.Println(document.Heading(user.FullName()) + " " + document.Faint("<"+user.Email+">"))
			cli.Printf("Role:   %s\n", document.Role(user.EffectiveRole()))
			cli.Printf("Theme:  %s\n", app.Preferences.Theme())
			if stale {
				cli.Println(document.Faint("(cached profile; the server could not be reached)"))
			}
			return nil
		},
	}
}
