// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session implements the conversation session controller.
//
// The Controller is the sole owner of a session's State: the active
// conversation id, the ordered transcript and the turn-in-progress flag. It
// is the only component that talks to the conversation registry, the storage
// gateway and the assistant endpoint, all through the Backend interface.
//
// # Turn Lifecycle
//
// SubmitTurn appends the user's message optimistically, creates a
// conversation id on the first turn, uploads attachments one at a time in
// selection order, then calls the assistant. Any failure along the way is
// recorded in the transcript as an error message; the user message is never
// withdrawn. Nothing is retried.
//
// # Admission
//
// Only one operation that touches the network and the transcript may run at
// a time. SubmitTurn, LoadConversation and StartNewConversation return
// ErrTurnInProgress without side effects while a turn or load is running.
//
// # Usage
//
//	ctrl := session.New(client, "user-42", session.WithLogger(logger))
//	unsubscribe := ctrl.Subscribe(func(s session.State) { render(s) })
//	defer unsubscribe()
//	result, err := ctrl.SubmitTurn(ctx, "¿Qué es un amparo?", nil)
package session
