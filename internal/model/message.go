// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "Tú"
	case RoleAgent:
		return "ALIA"
	default:
		return string(r)
	}
}

// ParseRole maps a server-side role string onto a Role.
// Anything that is not the user is treated as the agent, since the registry
// records model, assistant and agent turns under different names.
func ParseRole(s string) Role {
	if strings.EqualFold(strings.TrimSpace(s), string(RoleUser)) {
		return RoleUser
	}
	return RoleAgent
}

// =============================================================================
// KIND TYPE
// =============================================================================

// Kind distinguishes normal content from failure notices.
type Kind string

const (
	KindText  Kind = "text"
	KindError Kind = "error"
)

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single entry of the visible transcript.
type Message struct {
	ID        string    `json:"id" yaml:"id"`
	Role      Role      `json:"role" yaml:"role"`
	Kind      Kind      `json:"type" yaml:"type"`
	Content   string    `json:"content" yaml:"content"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`

	// Attachments holds display names of files sent with a user message.
	Attachments []string `json:"attachments,omitempty" yaml:"attachments,omitempty"`

	// Charts holds opaque chart specifications returned with an agent reply.
	Charts []json.RawMessage `json:"charts,omitempty" yaml:"-"`
}

// NewMessage creates a new text message stamped with the current time.
func NewMessage(role Role, content string) *Message {
	return &Message{
		ID:        generateID(),
		Role:      role,
		Kind:      KindText,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates the optimistic user message of a turn.
func NewUserMessage(content string, attachments []string) *Message {
	msg := NewMessage(RoleUser, content)
	if len(attachments) > 0 {
		msg.Attachments = append([]string(nil), attachments...)
	}
	return msg
}

// NewAgentMessage creates an agent reply carrying optional chart payloads.
func NewAgentMessage(content string, charts []json.RawMessage) *Message {
	msg := NewMessage(RoleAgent, content)
	if len(charts) > 0 {
		msg.Charts = append([]json.RawMessage(nil), charts...)
	}
	return msg
}

// NewErrorMessage creates an agent-role failure notice.
func NewErrorMessage(content string) *Message {
	msg := NewMessage(RoleAgent, content)
	msg.Kind = KindError
	return msg
}

// NewWelcomeMessage creates the synthetic greeting shown in a fresh conversation.
func NewWelcomeMessage(content string) *Message {
	return NewMessage(RoleAgent, content)
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// IsError reports whether the message is a failure notice.
func (m *Message) IsError() bool {
	return m.Kind == KindError
}

// HasCharts reports whether the message carries chart payloads.
func (m *Message) HasCharts() bool {
	return len(m.Charts) > 0
}

// Preview returns a truncated preview of the message content.
// Uses rune-based truncation to handle Unicode correctly.
func (m *Message) Preview(maxLen int) string {
	runes := []rune(strings.ReplaceAll(m.Content, "\n", " "))
	if len(runes) <= maxLen {
		return string(runes)
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// Clone returns a deep copy of the message.
func (m *Message) Clone() *Message {
	c := *m
	if m.Attachments != nil {
		c.Attachments = append([]string(nil), m.Attachments...)
	}
	if m.Charts != nil {
		c.Charts = make([]json.RawMessage, len(m.Charts))
		for i, chart := range m.Charts {
			c.Charts[i] = append(json.RawMessage(nil), chart...)
		}
	}
	return &c
}

// CloneMessages deep-copies a transcript.
func CloneMessages(msgs []*Message) []*Message {
	out := make([]*Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}

// generateID creates a unique message ID.
func generateID() string {
	return "msg_" + uuid.NewString()
}
