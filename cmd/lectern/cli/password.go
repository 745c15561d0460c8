// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"os"

	"github.com/lectern-lms/lectern/lib/secret"
)

// PasswordFileParams is embedded by commands that read a password.
type PasswordFileParams struct {
	PasswordFile string `json:"-" flag:"password-file" desc:"path to file containing the password, or - for stdin (default: prompt)"`
}

// ReadPassword reads a password from --password-file, or prompts on
// the terminal with echo disabled when the flag is empty. The caller
// closes the returned buffer.
func (p *PasswordFileParams) ReadPassword(label string) (*secret.Buffer, error) {
	if p.PasswordFile != "" {
		buffer, err := secret.ReadFromPath(p.PasswordFile)
		if err != nil {
			return nil, Validation("reading password: %w", err)
		}
		return buffer, nil
	}

	buffer, err := secret.Prompt(label, os.Stdin, Stderr)
	if errors.Is(err, secret.ErrNoTerminal) {
		return nil, Validation("no terminal available for interactive password prompt (use --password-file)")
	}
	if err != nil {
		return nil, Internal("reading password: %w", err)
	}
	return buffer, nil
}
