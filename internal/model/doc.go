// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// These are the shapes the session controller produces and the presentation
// layer renders. Nothing in this package performs I/O.
//
// # Key Types
//
//   - Message: one transcript entry (user or agent, text or error kind)
//   - Role: message author enumeration (user, agent)
//   - Kind: distinguishes a normal reply from a transport-failure notice
//   - ConversationSummary: one row of the per-user conversation listing
//   - HistoryEntry: one server-side history row before it becomes a Message
//
// # Usage
//
// Build the transcript of a new conversation:
//
//	msgs := []*model.Message{model.NewWelcomeMessage(text)}
//	msgs = append(msgs, model.NewUserMessage("¿Qué es un amparo?", nil))
package model
