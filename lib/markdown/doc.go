// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

// Package markdown renders course descriptions for the terminal.
//
// Descriptions are authored in GitHub-flavored Markdown and may carry
// embedded HTML. [Render] parses with goldmark, walks the AST into
// text styled with the [tui.Document] palette, and highlights fenced
// code with chroma in the style the active mode names. HTML blocks and
// inline HTML are reduced to their text with bluemonday's strict
// policy. [Sanitize] applies the same policy to plain-text fields.
//
// Output follows the document's color profile: a document writing to
// a pipe yields plain text with the same layout.
package markdown
