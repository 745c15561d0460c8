// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

package account

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"strings"

	"github.com/lectern-lms/lectern/cmd/lectern/cli"
	"github.com/lectern-lms/lectern/lib/secret"
)

// PasswordCommand returns the "password" command group.
func PasswordCommand() *cli.Command {
	return &cli.Command{
		Name:    "password",
		Summary: "Reset a forgotten password",
		Description: `Request a password reset email, then set a new password with the
token it contains.`,
		Subcommands: []*cli.Command{
			forgotCommand(),
			resetCommand(),
		},
	}
}

type forgotParams struct {
	cli.AppParams
}

func forgotCommand() *cli.Command {
	var params forgotParams

	return &cli.Command{
		Name:    "forgot",
		Summary: "Email a password reset link",
		Usage:   "lectern password forgot <email>",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return cli.Validation("expected 1 argument (email), got %d\n\nUsage: lectern password forgot <email>", len(args))
			}

			app, err := params.Open(ctx, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			message, err := app.Client.ForgotPassword(ctx, strings.TrimSpace(args[0]))
			if err != nil {
				return cli.FromAPIError(err, "password reset request")
			}
			cli.Println(message)
			return nil
		},
	}
}

type resetParams struct {
	cli.AppParams
	cli.PasswordFileParams
}

func resetCommand() *cli.Command {
	var params resetParams

	return &cli.Command{
		Name:    "reset",
		Summary: "Set a new password with a reset token",
		Description: `Set a new password using the token from a password reset email. The
new password is read from --password-file, or prompted for twice.`,
		Usage: "lectern password reset <token> [flags]",
		Examples: []cli.Example{
			{
				Description: "Reset interactively",
				Command:     "lectern password reset 3f2a9c",
			},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return cli.Validation("expected 1 argument (token), got %d\n\nUsage: lectern password reset <token>", len(args))
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

			message, err := app.Client.ResetPassword(ctx, args[0], password)
			if err != nil {
				return cli.FromAPIError(err, "password reset")
			}
			cli.Println(message)
			return nil
		},
	}
}

// readNewPassword reads a password to be set. A prompted password is
// asked for twice and must match.
func readNewPassword(params *cli.PasswordFileParams) (*secret.Buffer, error) {
	password, err := params.ReadPassword("Password: ")
	if err != nil {
		return nil, err
	}
	if params.PasswordFile != "" {
		return password, nil
	}

	confirmation, err := params.ReadPassword("Confirm password: ")
	if err != nil {
		password.Close()
		return nil, err
	}
	defer confirmation.Close()

	if subtle.ConstantTimeCompare(password.Bytes(), confirmation.Bytes()) != 1 {
		password.Close()
		return nil, cli.Validation("passwords do not match")
	}
	return password, nil
}
