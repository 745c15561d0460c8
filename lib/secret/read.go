// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// ErrNoTerminal is returned by Prompt when input is not a terminal.
var ErrNoTerminal = errors.New("secret: no terminal available for interactive prompt")

// ReadFromPath reads a secret from a file, or the first line of stdin
// when path is "-". Surrounding whitespace is trimmed; an empty secret
// is an error.
func ReadFromPath(path string) (*Buffer, error) {
	var data []byte
	if path == "-" {
		scanner := bufio.NewScanner(os.Stdin)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return nil, fmt.Errorf("secret: reading stdin: %w", err)
			}
			return nil, fmt.Errorf("secret: stdin is empty")
		}
		data = scanner.Bytes()
	} else {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("secret: %w", err)
		}
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		Zero(data)
		return nil, fmt.Errorf("secret: %s is empty", path)
	}
	buffer, err := NewFromBytes(trimmed)
	Zero(data)
	if err != nil {
		return nil, err
	}
	return buffer, nil
}

// Prompt writes label to output and reads a line from input with echo
// disabled. Returns ErrNoTerminal when input is not a TTY.
func Prompt(label string, input *os.File, output io.Writer) (*Buffer, error) {
	fileDescriptor := int(input.Fd())
	if !term.IsTerminal(fileDescriptor) {
		return nil, ErrNoTerminal
	}

	fmt.Fprint(output, label)
	data, err := term.ReadPassword(fileDescriptor)
	fmt.Fprintln(output)
	if err != nil {
		return nil, fmt.Errorf("secret: reading from terminal: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("secret: empty input")
	}
	buffer, err := NewFromBytes(data)
	if err != nil {
		Zero(data)
		return nil, err
	}
	return buffer, nil
}
