// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the full-screen chat interface.
//
// The Model renders snapshots of a session.Controller and forwards user
// intents to it. It never mutates conversation state itself: every change
// arrives as a StateChangedMsg published through Controller.Subscribe, so
// the optimistic user message, the in-progress flag and the closing reply or
// apology appear in the order the controller records them.
//
// Network-bound work (turns, history loads, listing refreshes, slash
// commands) runs in tea.Cmd goroutines and reports back with a message.
//
// # Layout
//
//	+--------------------------------------------------+
//	| ALIA: Asistente Legal ...   [3f2a9c1e]   user-42 |
//	+-------------+------------------------------------+
//	| Conversations| transcript (viewport)             |
//	|  3f2a9c1e   |                                    |
//	|  77be01d2   |                                    |
//	+-------------+------------------------------------+
//	| [1] contrato.pdf (12.0 KiB)                      |
//	| > message or /command                            |
//	| status / spinner / key hints                     |
//	+--------------------------------------------------+
package chat
