// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

package lmsapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/lectern-lms/lectern/lib/netutil"
)

// NonFieldErrors is the field key the server uses for form-level
// validation messages.
const NonFieldErrors = "non_field_errors"

// APIError is a non-2xx response from the LMS API. Callers use
// errors.As to extract it:
//
//	var apiErr *APIError
//	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest {
//	    for field, messages := range apiErr.FieldErrors { ... }
//	}
type APIError struct {
	// StatusCode is the HTTP status of the response.
	StatusCode int
	// Method and Path identify the failed request.
	Method string
	Path   string
	// Detail is the server's "detail" message, if any.
	Detail string
	// FieldErrors maps a form field (or "non_field_errors") to its
	// validation messages.
	FieldErrors map[string][]string
}

func (e *APIError) Error() string {
	summary := e.Detail
	if summary == "" && len(e.FieldErrors) > 0 {
		summary = e.fieldSummary()
	}
	if summary == "" {
		summary = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("lmsapi: %s %s returned %d: %s", e.Method, e.Path, e.StatusCode, summary)
}

// Fields returns the field names with errors in sorted order.
func (e *APIError) Fields() []string {
	fields := make([]string, 0, len(e.FieldErrors))
	for field := range e.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

func (e *APIError) fieldSummary() string {
	var parts []string
	for _, field := range e.Fields() {
		parts = append(parts, field+": "+strings.Join(e.FieldErrors[field], " "))
	}
	return strings.Join(parts, "; ")
}

// TransportError is a request that produced no HTTP response: DNS
// failure, refused connection, timeout, or cancellation.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("lmsapi: %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsUnauthorized reports whether err is an HTTP 401 from the API.
func IsUnauthorized(err error) bool {
	return hasStatus(err, http.StatusUnauthorized)
}

// IsForbidden reports whether err is an HTTP 403 from the API.
func IsForbidden(err error) bool {
	return hasStatus(err, http.StatusForbidden)
}

// IsNotFound reports whether err is an HTTP 404 from the API.
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

// IsValidation reports whether err is an HTTP 400 from the API.
func IsValidation(err error) bool {
	return hasStatus(err, http.StatusBadRequest)
}

// IsTransport reports whether err is a failure without a response.
func IsTransport(err error) bool {
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}

func hasStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// Message returns the user-facing message for err: the server's detail
// message, else its first form-level validation message, else fallback.
func Message(err error, fallback string) string {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return fallback
	}
	if apiErr.Detail != "" {
		return apiErr.Detail
	}
	if messages := apiErr.FieldErrors[NonFieldErrors]; len(messages) > 0 {
		return messages[0]
	}
	return fallback
}

// parseAPIError decodes an error body. Bodies are either
// {"detail": "..."} or an object mapping field names to message lists;
// anything else is kept as a detail snippet.
func parseAPIError(method, path string, statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode, Method: method, Path: path}

	var object map[string]json.RawMessage
	if err := json.Unmarshal(body, &object); err != nil {
		var list []string
		if json.Unmarshal(body, &list) == nil && len(list) > 0 {
			apiErr.FieldErrors = map[string][]string{NonFieldErrors: list}
			return apiErr
		}
		apiErr.Detail = netutil.Snippet(body)
		return apiErr
	}

	for key, raw := range object {
		if key == "detail" {
			var detail string
			if json.Unmarshal(raw, &detail) == nil {
				apiErr.Detail = detail
				continue
			}
		}
		if apiErr.FieldErrors == nil {
			apiErr.FieldErrors = make(map[string][]string)
		}
		apiErr.FieldErrors[key] = decodeMessages(raw)
	}
	return apiErr
}

// decodeMessages flattens a field's error value: a list of strings, a
// single string, or (for nested serializers) arbitrary JSON.
func decodeMessages(raw json.RawMessage) []string {
	var list []string
	if json.Unmarshal(raw, &list) == nil {
		return list
	}
	var single string
	if json.Unmarshal(raw, &single) == nil {
		return []string{single}
	}
	return []string{netutil.Snippet(raw)}
}
