// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"io"
	"os"
)

// Stdout receives command results. Tests replace it with a buffer.
var Stdout io.Writer = os.Stdout

// Stderr receives help output and status lines such as "Logged in as".
var Stderr io.Writer = os.Stderr

// Printf writes formatted output to [Stdout].
func Printf(format string, args ...any) {
	fmt.Fprintf(Stdout, format, args...)
}

// Println writes a line to [Stdout].
func Println(args ...any) {
	fmt.Fprintln(Stdout, args...)
}

// Statusf writes a status line to [Stderr].
func Statusf(format string, args ...any) {
	fmt.Fprintf(Stderr, format+"\n", args...)
}
