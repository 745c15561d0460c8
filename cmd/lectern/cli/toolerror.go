// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/lectern-lms/lectern/lib/lmsapi"
	"github.com/lectern-lms/lectern/lib/session"
)

// ErrorCategory classifies command errors so that scripts can make
// decisions (retry, fix input, log in again) without parsing error
// message text.
type ErrorCategory string

const (
	// CategoryValidation indicates the caller provided invalid input:
	// missing required parameters, wrong argument count, unparseable
	// values, or a form the server rejected. The caller should fix the
	// input and retry.
	CategoryValidation ErrorCategory = "validation"

	// CategoryNotFound indicates a referenced resource does not exist.
	// Retrying with the same parameters will not help.
	CategoryNotFound ErrorCategory = "not_found"

	// CategoryForbidden indicates the caller is not logged in or lacks
	// the role for the requested operation.
	CategoryForbidden ErrorCategory = "forbidden"

	// CategoryTransient indicates a temporary failure: network error,
	// timeout, server error. The caller should back off and retry.
	CategoryTransient ErrorCategory = "transient"

	// CategoryInternal indicates an unexpected error: bugs, I/O
	// failures, undecodable responses. The caller should report the
	// error rather than retry.
	CategoryInternal ErrorCategory = "internal"
)

// ToolError is a categorized error returned by CLI commands.
//
// ToolError wraps an inner error, preserving the full error chain for
// debugging while adding category metadata. Use the category-specific
// constructors (Validation, NotFound, etc.) or [FromAPIError] rather
// than constructing ToolError directly.
type ToolError struct {
	// Category classifies the error for programmatic handling.
	Category ErrorCategory

	// Err is the underlying error with the human-readable message.
	Err error
}

// Error returns the underlying error message.
func (e *ToolError) Error() string { return e.Err.Error() }

// Unwrap returns the underlying error, allowing errors.Is and
// errors.As to walk the full chain through the ToolError wrapper.
func (e *ToolError) Unwrap() error { return e.Err }

// Validation creates a validation error: the caller provided bad input.
func Validation(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryValidation, Err: fmt.Errorf(format, args...)}
}

// NotFound creates a not-found error: a referenced resource does not exist.
func NotFound(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryNotFound, Err: fmt.Errorf(format, args...)}
}

// Forbidden creates a forbidden error: the caller lacks permission.
func Forbidden(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryForbidden, Err: fmt.Errorf(format, args...)}
}

// Transient creates a transient error: a temporary failure that may succeed on retry.
func Transient(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryTransient, Err: fmt.Errorf(format, args...)}
}

// Internal creates an internal error: an unexpected failure, bug, or I/O error.
func Internal(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryInternal, Err: fmt.Errorf(format, args...)}
}

// CategoryOf returns the category of err, or [CategoryInternal] for
// errors that carry none.
func CategoryOf(err error) ErrorCategory {
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return toolErr.Category
	}
	return CategoryInternal
}

// FieldError is a rejected form shaped for the terminal: a summary
// line followed by one "field: message" line per validation message.
type FieldError struct {
	Summary string
	Fields  map[string][]string
	Err     error
}

func (e *FieldError) Error() string {
	var builder strings.Builder
	builder.WriteString(e.Summary)
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		if field == lmsapi.NonFieldErrors {
			continue
		}
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		for _, message := range e.Fields[field] {
			fmt.Fprintf(&builder, "\n  %s: %s", field, message)
		}
	}
	return builder.String()
}

func (e *FieldError) Unwrap() error { return e.Err }

// FromAPIError categorizes a failure from lmsapi or session. action
// prefixes the message ("enroll", "update course 12"). Errors that are
// already a *ToolError pass through unchanged.
func FromAPIError(err error, action string) error {
	if err == nil {
		return nil
	}
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return err
	}

	var formErr *session.FormError
	if errors.As(err, &formErr) {
		return &ToolError{Category: CategoryValidation, Err: &FieldError{
			Summary: action + ": " + formErr.Message,
			Fields:  formErr.Fields,
			Err:     err,
		}}
	}

	switch {
	case session.IsNotAuthenticated(err):
		return Forbidden("%s: not logged in (run 'lectern login')", action)
	case lmsapi.IsUnauthorized(err):
		return &ToolError{Category: CategoryForbidden, Err: fmt.Errorf("%s: session expired (run 'lectern login'): %w", action, err)}
	case lmsapi.IsForbidden(err):
		return &ToolError{Category: CategoryForbidden, Err: fmt.Errorf("%s: %s", action, lmsapi.Message(err, "permission denied"))}
	case lmsapi.IsNotFound(err):
		return &ToolError{Category: CategoryNotFound, Err: fmt.Errorf("%s: %s", action, lmsapi.Message(err, "not found"))}
	case lmsapi.IsValidation(err):
		var apiErr *lmsapi.APIError
		errors.As(err, &apiErr)
		return &ToolError{Category: CategoryValidation, Err: &FieldError{
			Summary: action + ": " + lmsapi.Message(err, session.MessageCheckForm),
			Fields:  apiErr.FieldErrors,
			Err:     err,
		}}
	case lmsapi.IsTransport(err):
		return &ToolError{Category: CategoryTransient, Err: fmt.Errorf("%s: %w", action, err)}
	}

	var apiErr *lmsapi.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode >= 500 {
		return &ToolError{Category: CategoryTransient, Err: fmt.Errorf("%s: %w", action, err)}
	}
	return &ToolError{Category: CategoryInternal, Err: fmt.Errorf("%s: %w", action, err)}
}
