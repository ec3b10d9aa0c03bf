// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/eamadorm/alia-tui/internal/session"
)

// Run starts the full-screen program and blocks until the user quits or ctx
// is cancelled. Controller changes are forwarded to the program as
// StateChangedMsg values.
func Run(ctx context.Context, m Model, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(m, opts...)

	// Subscribers must not block, and Send blocks until the event loop reads,
	// so each snapshot is delivered from its own goroutine and ordered by Seq.
	var seq atomic.Uint64
	unsubscribe := m.ctrl.Subscribe(func(s session.State) {
		msg := StateChangedMsg{State: s, Seq: seq.Add(1)}
		go p.Send(msg)
	})
	defer unsubscribe()

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
