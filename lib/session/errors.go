// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"errors"

	"github.com/lectern-lms/lectern/lib/lmsapi"
)

// ErrNotAuthenticated is returned by operations that need a logged-in
// user when there is none.
var ErrNotAuthenticated = errors.New("session: not authenticated")

// User-facing registration messages.
const (
	MessageCheckForm          = "Please check the form for errors."
	MessageRegistrationFailed = "Registration failed. Please try again later."
)

// FormError is a registration failure shaped for display: a summary
// message plus validation messages per form field.
type FormError struct {
	// Message is the summary to show above the form.
	Message string
	// Fields maps a form field to its messages. Empty when the server
	// gave no field detail.
	Fields map[string][]string
	// Err is the underlying failure.
	Err error
}

func (e *FormError) Error() string {
	return "session: " + e.Message
}

func (e *FormError) Unwrap() error { return e.Err }

// newFormError classifies a registration failure. A server detail
// message wins; a validation body without one gets the generic form
// message; a failure without a server response gets the retry message.
func newFormError(err error) *FormError {
	var apiErr *lmsapi.APIError
	if !errors.As(err, &apiErr) {
		return &FormError{Message: MessageRegistrationFailed, Err: err}
	}
	formErr := &FormError{Fields: apiErr.FieldErrors, Err: err}
	if apiErr.Detail != "" {
		formErr.Message = apiErr.Detail
	} else {
		formErr.Message = MessageCheckForm
	}
	return formErr
}
