// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/eamadorm/alia-tui/internal/api"
	"github.com/eamadorm/alia-tui/internal/model"
)

// fakeBackend is an in-memory Backend that records every call in order.
type fakeBackend struct {
	mu sync.Mutex

	calls     []string
	chats     []api.ChatRequest
	targets   []api.UploadTargetRequest
	nextConv  int
	histories map[string][]model.HistoryEntry
	listings  map[string][]model.ConversationSummary

	createErr  error
	targetErr  map[string]error
	putErr     map[string]error
	chatErr    error
	historyErr error
	listErr    error

	reply string

	// chatGate, when set, blocks Chat until it is closed.
	chatGate chan struct{}
	// chatStarted is signalled when Chat is entered.
	chatStarted chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		histories: map[string][]model.HistoryEntry{},
		listings:  map[string][]model.ConversationSummary{},
		targetErr: map[string]error{},
		putErr:    map[string]error{},
		reply:     "respuesta",
	}
}

func (f *fakeBackend) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeBackend) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeBackend) CreateConversation(_ context.Context, userID string) (string, error) {
	f.record("create:" + userID)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.nextConv++
	return fmt.Sprintf("conv-%04d-aaaa", f.nextConv), nil
}

func (f *fakeBackend) FetchHistory(_ context.Context, id string) ([]model.HistoryEntry, error) {
	f.record("history:" + id)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	h, ok := f.histories[id]
	if !ok {
		return nil, &api.Error{Op: "fetch history", Status: 404, Message: "Conversation not found"}
	}
	return h, nil
}

func (f *fakeBackend) ListConversations(_ context.Context, userID string) ([]model.ConversationSummary, error) {
	f.record("list:" + userID)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listings[userID], nil
}

func (f *fakeBackend) RequestUploadTarget(_ context.Context, req api.UploadTargetRequest) (api.UploadTarget, error) {
	f.record("target:" + req.Filename)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.targets = append(f.targets, req)
	if err := f.targetErr[req.Filename]; err != nil {
		return api.UploadTarget{}, err
	}
	return api.UploadTarget{
		UploadURL:  "https://storage.test/upload/" + req.Filename,
		StorageURI: "gs://alia-docs/" + req.ConversationID + "/" + req.Filename,
	}, nil
}

func (f *fakeBackend) PutObject(_ context.Context, uploadURL string, body io.Reader, _ int64, _ string) error {
	name := filepath.Base(uploadURL)
	f.record("put:" + name)
	if _, err := io.Copy(io.Discard, body); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.putErr[name]
}

func (f *fakeBackend) Chat(ctx context.Context, req api.ChatRequest) (*api.ChatResponse, error) {
	f.record("chat")
	f.mu.Lock()
	f.chats = append(f.chats, req)
	gate, started := f.chatGate, f.chatStarted
	chatErr, reply := f.chatErr, f.reply
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, &api.Error{Op: "chat", Err: ctx.Err()}
		}
	}
	if chatErr != nil {
		return nil, chatErr
	}
	return &api.ChatResponse{
		Response:        reply,
		ConversationID:  req.ConversationID,
		QueriesExecuted: nil,
	}, nil
}

var _ Backend = (*fakeBackend)(nil)
var _ Backend = (*api.Client)(nil)
