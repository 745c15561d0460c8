// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

// Package theme implements "lectern theme": showing and changing the
// light/dark display preference.
//
// Changes apply locally at once and are saved to the state file. When
// a user is logged in they are also written to the user's profile; a
// failed profile write is logged and the local change stands.
package theme

import (
	"context"
	"log/slog"

	"github.com/lectern-lms/lectern/cmd/lectern/cli"
	"github.com/lectern-lms/lectern/lib/lmsapi"
)

// Command returns the "theme" subcommand group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "theme",
		Summary: "Show or change the display theme",
		Description: `Show or change the light/dark display theme.

Without a saved preference the theme follows display.color_scheme in
the config, then LECTERN_COLOR_SCHEME, then the terminal background.
Logging in adopts the theme saved in the account's profile.`,
		Subcommands: []*cli.Command{
			showCommand(),
			toggleCommand(),
			setCommand(),
		},
	}
}

type themeParams struct {
	cli.AppParams
	cli.JSONOutput
}

// themeResult is the JSON output of every theme command.
type themeResult struct {
	Theme lmsapi.Theme `json:"theme"`
	Dark  bool         `json:"dark"`
}

func showCommand() *cli.Command {
	var params themeParams

	return &cli.Command{
		Name:    "show",
		Summary: "Print the current theme",
		Usage:   "lectern theme show [flags]",
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

			return report(&params.JSONOutput, app.Preferences.Theme())
		},
	}
}

func toggleCommand() *cli.Command {
	var params themeParams

	return &cli.Command{
		Name:    "toggle",
		Summary: "Switch between light and dark",
		Usage:   "lectern theme toggle [flags]",
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

			app.Preferences.ToggleTheme(ctx)
			return report(&params.JSONOutput, app.Preferences.Theme())
		},
	}
}

func setCommand() *cli.Command {
	var params themeParams

	return &cli.Command{
		Name:    "set",
		Summary: "Set the theme to light or dark",
		Usage:   "lectern theme set <light|dark> [flags]",
		Examples: []cli.Example{
			{
				Description: "Use the dark theme",
				Command:     "lectern theme set dark",
			},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return cli.Validation("expected 1 argument (light or dark), got %d", len(args))
			}
			theme, err := lmsapi.ParseTheme(args[0])
			if err != nil {
				return cli.Validation("%w", err)
			}

			app, err := params.Open(ctx, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Preferences.SetTheme(ctx, theme); err != nil {
				return cli.Validation("%w", err)
			}
			return report(&params.JSONOutput, app.Preferences.Theme())
		},
	}
}

func report(output *cli.JSONOutput, theme lmsapi.Theme) error {
	if done, err := output.EmitJSON(themeResult{Theme: theme, Dark: theme.IsDark()}); done {
		return err
	}
	cli.Println(string(theme))
	return nil
}
