// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import "encoding/json"

type createConversationRequest struct {
	UserID string `json:"user_id"`
}

type createConversationResponse struct {
	ConversationID string `json:"conversation_id"`
}

// UploadTargetRequest asks the storage gateway for a signed upload URL.
type UploadTargetRequest struct {
	Filename       string `json:"filename"`
	ContentType    string `json:"content_type"`
	UserID         string `json:"user_id"`
	ConversationID string `json:"conversation_id"`
}

// UploadTarget is a single-use upload destination.
type UploadTarget struct {
	UploadURL  string `json:"upload_url"`
	StorageURI string `json:"gcs_uri"`
}

// Document references an uploaded object in a chat request.
type Document struct {
	StorageURI string `json:"gcs_uri"`
}

// ChatRequest is one assistant turn.
type ChatRequest struct {
	Message        string     `json:"message"`
	UserID         string     `json:"user_id"`
	ConversationID string     `json:"conversation_id"`
	Documents      []Document `json:"documents"`
}

// ChatResponse is the assistant reply.
type ChatResponse struct {
	Response        string            `json:"response"`
	ConversationID  string            `json:"conversation_id"`
	Charts          []json.RawMessage `json:"plotly_charts"`
	QueriesExecuted []json.RawMessage `json:"queries_executed"`
}

// Health is the service status document.
type Health struct {
	Status      string `json:"status"`
	Service     string `json:"service"`
	Description string `json:"description"`
}

// errorBody is the service's error envelope.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}
