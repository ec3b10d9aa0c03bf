// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "time"

// ConversationSummary is one row of the per-user conversation listing.
// It is read-only on the client and refreshed by re-querying the registry.
type ConversationSummary struct {
	ConversationID string    `json:"conversation_id"`
	CreatedAt      time.Time `json:"conversation_created_at"`
}

// ShortID returns the first eight characters of the conversation id, the
// form used in headers and sidebars.
func (s ConversationSummary) ShortID() string {
	return ShortID(s.ConversationID)
}

// HistoryEntry is one row of a server-side conversation history.
type HistoryEntry struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ToMessage converts a history row into a transcript message.
// The server timestamp is authoritative and is kept as-is.
func (e HistoryEntry) ToMessage() *Message {
	return &Message{
		ID:        generateID(),
		Role:      ParseRole(e.Role),
		Kind:      KindText,
		Content:   e.Content,
		Timestamp: e.CreatedAt,
	}
}

// MessagesFromHistory converts an ordered history into an ordered transcript.
func MessagesFromHistory(entries []HistoryEntry) []*Message {
	msgs := make([]*Message, 0, len(entries))
	for _, e := range entries {
		msgs = append(msgs, e.ToMessage())
	}
	return msgs
}

// ShortID truncates an identifier to eight characters.
func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
