// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/eamadorm/alia-tui/internal/commands"
	"github.com/eamadorm/alia-tui/internal/model"
	"github.com/eamadorm/alia-tui/internal/session"
)

// StateChangedMsg carries a controller snapshot. Seq orders snapshots that
// are delivered concurrently; zero means "apply unconditionally".
type StateChangedMsg struct {
	State session.State
	Seq   uint64
}

// TurnDoneMsg reports the end of a turn started from the composer.
type TurnDoneMsg struct {
	Result session.TurnResult
	Err    error
}

// ListingMsg delivers a refreshed conversation listing.
type ListingMsg struct {
	List []model.ConversationSummary
	Err  error
}

// LoadDoneMsg reports the end of a history load started from the sidebar.
type LoadDoneMsg struct {
	ConversationID string
	Err            error
}

// CommandDoneMsg reports the end of a slash command.
type CommandDoneMsg struct {
	Input  string
	Result commands.Result
	Err    error
}

// clearStatusMsg expires a transient status line.
type clearStatusMsg struct {
	seq int
}
