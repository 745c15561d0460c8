// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides bounded HTTP response reading for Lectern's
// JSON API clients.
//
// Every helper caps reads at MaxResponseSize so that a misbehaving
// server cannot make the CLI allocate without bound. Course catalogs
// and dashboards are small JSON documents; nothing Lectern fetches is
// streamed.
package netutil

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// MaxResponseSize bounds JSON API response body reads: 32 MB.
const MaxResponseSize int64 = 32 << 20

// maxSnippetLength bounds the raw body excerpt carried in error messages.
const maxSnippetLength = 512

// ReadResponse reads a JSON API response body up to MaxResponseSize bytes.
func ReadResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxResponseSize))
}

// DecodeResponse reads a response body (up to MaxResponseSize bytes)
// and JSON-decodes it into v.
func DecodeResponse(body io.Reader, v any) error {
	data, err := ReadResponse(body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	return json.Unmarshal(data, v)
}

// Snippet returns a single-line excerpt of a response body suitable
// for an error message. HTML error pages and stack traces from a
// misconfigured server are collapsed and truncated.
func Snippet(body []byte) string {
	text := strings.Join(strings.Fields(string(body)), " ")
	if len(text) > maxSnippetLength {
		return text[:maxSnippetLength] + "..."
	}
	return text
}
