// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"time"

	"github.com/eamadorm/alia-tui/internal/upload"
)

// Outcome is the terminal state of a turn.
type Outcome string

const (
	// OutcomeReplied means the assistant answered.
	OutcomeReplied Outcome = "replied"

	// OutcomeCreateFailed means no conversation id could be obtained.
	OutcomeCreateFailed Outcome = "create_failed"

	// OutcomeUploadFailed means an attachment upload failed.
	OutcomeUploadFailed Outcome = "upload_failed"

	// OutcomeChatFailed means the assistant call failed.
	OutcomeChatFailed Outcome = "chat_failed"

	// OutcomeDiscarded means the session was closed while the turn ran.
	OutcomeDiscarded Outcome = "discarded"
)

// TurnResult describes how a submitted turn ended. Failures are already in
// the transcript; the result exists for logging and callers that want detail.
type TurnResult struct {
	Outcome        Outcome
	ConversationID string

	// Created is true when this turn obtained the conversation id.
	Created bool

	// Documents are the references passed to the assistant, in order.
	Documents []upload.DocumentRef

	// FailedUpload is set when Outcome is OutcomeUploadFailed.
	FailedUpload *upload.Result

	// Err is the underlying failure, nil on success.
	Err error

	// Queries is the number of backend queries the assistant reported.
	Queries int

	Duration time.Duration
}

// OK reports whether the assistant replied.
func (r TurnResult) OK() bool {
	return r.Outcome == OutcomeReplied
}
