// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"github.com/eamadorm/alia-tui/internal/attachment"
	"github.com/eamadorm/alia-tui/internal/model"
)

// AnonymousUser is the placeholder identity that has no server-side listing.
const AnonymousUser = "anonymous"

// State is a snapshot of a session.
type State struct {
	// ConversationID is empty until the registry issues one.
	ConversationID string

	// Messages is the transcript in display order.
	Messages []*model.Message

	// TurnInProgress is true while a turn or a history load is running.
	TurnInProgress bool

	// UserID is the opaque identity the session acts for.
	UserID string

	// Pending lists attachments queued for the next turn.
	Pending []attachment.Pending

	// Closed is set once the session has been logged out.
	Closed bool
}

// HasConversation reports whether a conversation id has been issued.
func (s State) HasConversation() bool {
	return s.ConversationID != ""
}

// ShortID returns the conversation id badge, or "" when unset.
func (s State) ShortID() string {
	return model.ShortID(s.ConversationID)
}

// LastMessage returns the final transcript entry, or nil.
func (s State) LastMessage() *model.Message {
	if len(s.Messages) == 0 {
		return nil
	}
	return s.Messages[len(s.Messages)-1]
}

// IsAnonymous reports whether the identity is empty or the anonymous placeholder.
func IsAnonymous(userID string) bool {
	return userID == "" || userID == AnonymousUser
}

// clone deep-copies the state so callers can read it without the lock.
func (s State) clone() State {
	c := s
	c.Messages = model.CloneMessages(s.Messages)
	c.Pending = append([]attachment.Pending(nil), s.Pending...)
	return c
}
