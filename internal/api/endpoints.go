// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/eamadorm/alia-tui/internal/model"
)

// =============================================================================
// CONVERSATION REGISTRY
// =============================================================================

// CreateConversation obtains a new conversation id for userID.
func (c *Client) CreateConversation(ctx context.Context, userID string) (string, error) {
	const op = "create conversation"
	var resp createConversationResponse
	if err := c.doJSON(ctx, op, http.MethodPost, "/create_conversation_id", createConversationRequest{UserID: userID}, &resp); err != nil {
		return "", err
	}
	if resp.ConversationID == "" {
		return "", &Error{Op: op, Message: "empty conversation id"}
	}
	return resp.ConversationID, nil
}

// FetchHistory returns the ordered history of a conversation.
func (c *Client) FetchHistory(ctx context.Context, conversationID string) ([]model.HistoryEntry, error) {
	var entries []model.HistoryEntry
	path := "/conversations/" + url.PathEscape(conversationID)
	if err := c.doJSON(ctx, "fetch history", http.MethodGet, path, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// ListConversations returns the conversations owned by userID, as the
// service orders them.
func (c *Client) ListConversations(ctx context.Context, userID string) ([]model.ConversationSummary, error) {
	var list []model.ConversationSummary
	path := "/users/" + url.PathEscape(userID) + "/conversations"
	if err := c.doJSON(ctx, "list conversations", http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// =============================================================================
// STORAGE GATEWAY
// =============================================================================

// RequestUploadTarget asks for a signed, single-use upload URL.
func (c *Client) RequestUploadTarget(ctx context.Context, req UploadTargetRequest) (UploadTarget, error) {
	const op = "request upload target"
	var target UploadTarget
	if err := c.doJSON(ctx, op, http.MethodPost, "/get_gcs_upload_url", req, &target); err != nil {
		return UploadTarget{}, err
	}
	if target.UploadURL == "" || target.StorageURI == "" {
		return UploadTarget{}, &Error{Op: op, Message: "incomplete upload target"}
	}
	return target, nil
}

// PutObject transfers size bytes from body to a signed upload URL. The
// content type must match the one the target was issued for.
func (c *Client) PutObject(ctx context.Context, uploadURL string, body io.Reader, size int64, contentType string) error {
	const op = "upload object"
	if size == 0 {
		body = http.NoBody
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, body)
	if err != nil {
		return &Error{Op: op, Message: "build request", Err: err}
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", contentType)

	_, err = c.send(op, req)
	return err
}

// =============================================================================
// ASSISTANT
// =============================================================================

// Chat sends one assistant turn.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if req.Documents == nil {
		req.Documents = []Document{}
	}
	var resp ChatResponse
	if err := c.doJSON(ctx, "chat", http.MethodPost, "/chat", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health fetches the service status document.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.doJSON(ctx, "health", http.MethodGet, "/", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}
