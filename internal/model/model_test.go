// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

// =============================================================================
// ROLE TESTS
// =============================================================================

func TestParseRole(t *testing.T) {
	tests := []struct {
		input string
		want  Role
	}{
		{"user", RoleUser},
		{" USER ", RoleUser},
		{"agent", RoleAgent},
		{"model", RoleAgent},
		{"assistant", RoleAgent},
		{"", RoleAgent},
	}

	for _, tc := range tests {
		if got := ParseRole(tc.input); got != tc.want {
			t.Errorf("ParseRole(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewUserMessage_CopiesAttachments(t *testing.T) {
	names := []string{"contrato.pdf", "foto.png"}
	msg := NewUserMessage("revisa esto", names)
	names[0] = "changed"

	if msg.Role != RoleUser || msg.Kind != KindText {
		t.Fatalf("unexpected role/kind: %s/%s", msg.Role, msg.Kind)
	}
	if msg.Attachments[0] != "contrato.pdf" {
		t.Errorf("attachments alias caller slice: %v", msg.Attachments)
	}
	if !strings.HasPrefix(msg.ID, "msg_") {
		t.Errorf("ID = %q, want msg_ prefix", msg.ID)
	}
}

func TestNewUserMessage_NoAttachments(t *testing.T) {
	msg := NewUserMessage("hola", nil)
	if msg.Attachments != nil {
		t.Errorf("Attachments = %v, want nil", msg.Attachments)
	}
}

func TestNewErrorMessage(t *testing.T) {
	msg := NewErrorMessage("Sorry")
	if msg.Role != RoleAgent {
		t.Errorf("Role = %q, want agent", msg.Role)
	}
	if !msg.IsError() {
		t.Error("IsError() = false, want true")
	}
}

func TestMessage_Clone(t *testing.T) {
	orig := NewAgentMessage("chart", []json.RawMessage{json.RawMessage(`{"a":1}`)})
	c := orig.Clone()
	c.Charts[0][2] = 'b'
	c.Content = "other"

	if string(orig.Charts[0]) != `{"a":1}` {
		t.Errorf("clone shares chart bytes: %s", orig.Charts[0])
	}
	if orig.Content != "chart" {
		t.Errorf("clone shares content")
	}
}

func TestMessage_Preview(t *testing.T) {
	msg := NewMessage(RoleUser, "línea uno\nlínea dos")
	if got := msg.Preview(100); got != "línea uno línea dos" {
		t.Errorf("Preview = %q", got)
	}
	if got := msg.Preview(8); got != "línea..." {
		t.Errorf("Preview(8) = %q", got)
	}
}

// =============================================================================
// HISTORY TESTS
// =============================================================================

func TestMessagesFromHistory_PreservesOrderAndTimestamps(t *testing.T) {
	t1 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)
	msgs := MessagesFromHistory([]HistoryEntry{
		{Role: "user", Content: "q", CreatedAt: t1},
		{Role: "model", Content: "a", CreatedAt: t2},
	})

	if len(msgs) != 2 {
		t.Fatalf("len = %d, want 2", len(msgs))
	}
	if msgs[0].Role != RoleUser || msgs[1].Role != RoleAgent {
		t.Errorf("roles = %s,%s", msgs[0].Role, msgs[1].Role)
	}
	if !msgs[0].Timestamp.Equal(t1) || !msgs[1].Timestamp.Equal(t2) {
		t.Errorf("server timestamps not kept")
	}
}

func TestConversationSummary_JSON(t *testing.T) {
	var s ConversationSummary
	data := `{"conversation_id":"abc123def456","conversation_created_at":"2025-01-02T03:04:05Z"}`
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if s.ShortID() != "abc123de" {
		t.Errorf("ShortID = %q", s.ShortID())
	}
	if s.CreatedAt.Year() != 2025 {
		t.Errorf("CreatedAt = %v", s.CreatedAt)
	}
}
