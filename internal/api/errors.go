// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrConnection matches every failure to complete a service call:
	// transport errors, timeouts, non-2xx statuses and undecodable bodies.
	ErrConnection = errors.New("connection error")

	// ErrNotFound additionally matches 404 responses.
	ErrNotFound = errors.New("not found")
)

// Error describes a failed service call.
type Error struct {
	// Op names the operation, e.g. "create conversation".
	Op string

	// Status is the HTTP status, or 0 when no response was received.
	Status int

	// Message is the server-provided detail or a short description.
	Message string

	// RequestID is the X-Request-ID sent with the call.
	RequestID string

	// Err is the underlying transport or decode error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Status != 0 && e.Message != "":
		return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.Status, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("%s: HTTP %d %s", e.Op, e.Status, http.StatusText(e.Status))
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches ErrConnection or, for 404, ErrNotFound.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrConnection:
		return true
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// StatusCode returns the HTTP status of err, or 0.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
