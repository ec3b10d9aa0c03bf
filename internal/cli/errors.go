// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"

	"github.com/eamadorm/alia-tui/internal/api"
	"github.com/eamadorm/alia-tui/internal/config"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates configuration file or settings error
	ExitConfigError = 3
	// ExitNetworkError indicates the assistant service could not be reached
	ExitNetworkError = 5
	// ExitNotFoundError indicates a conversation was not found
	ExitNotFoundError = 7
)

// =============================================================================
// COMMAND ERROR
// =============================================================================

// CommandError is a CLI failure with an exit code and an optional hint.
type CommandError struct {
	Code    int
	Message string
	Hint    string
	Err     error
}

func (e *CommandError) Error() string {
	msg := e.Message
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = fmt.Sprintf("%s: %v", msg, e.Err)
		}
	}
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

func usageError(msg, hint string) error {
	return &CommandError{Code: ExitUsageError, Message: msg, Hint: hint}
}

func configError(err error) error {
	return &CommandError{
		Code: ExitConfigError,
		Err:  err,
		Hint: "check the config file or run 'alia config init'",
	}
}

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var cmdErr *CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code != 0 {
		return cmdErr.Code
	}

	var validation config.ValidateErrors
	switch {
	case errors.Is(err, api.ErrNotFound):
		return ExitNotFoundError
	case errors.Is(err, api.ErrConnection):
		return ExitNetworkError
	case errors.As(err, &validation):
		return ExitConfigError
	}
	return ExitGeneralError
}
