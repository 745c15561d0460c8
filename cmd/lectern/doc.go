// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

// Lectern is the command-line client for the learning management
// system. It provides subcommands for accounts (login, register,
// logout, whoami, password), display preferences (theme), the user's
// profile, the course catalog and enrollments (course), and the
// role-based dashboard.
package main
