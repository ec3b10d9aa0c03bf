// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the HTTP client for the ALIA assistant service.
//
// It covers the conversation registry (create id, fetch history, list per
// user), the storage gateway (signed upload target, byte transfer) and the
// assistant chat endpoint. Every call is a single attempt: nothing here
// retries. Failures surface as *Error, which matches ErrConnection.
//
// # Key Types
//
//   - Client: JSON-over-HTTP client with size-capped reads and request pacing
//   - Error: typed failure carrying operation, status and request id
//   - ChatRequest / ChatResponse: assistant turn payloads
//
// # Usage
//
//	client := api.New(cfg.API.BaseURL).
//	    WithTimeout(cfg.API.Timeout()).
//	    WithLogger(logger)
//	id, err := client.CreateConversation(ctx, userID)
//	if errors.Is(err, api.ErrConnection) {
//	    // show connection error
//	}
package api
