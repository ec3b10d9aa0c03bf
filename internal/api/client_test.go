// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL), srv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// =============================================================================
// REGISTRY
// =============================================================================

func TestCreateConversation(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/create_conversation_id", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get(RequestIDHeader))
		assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "u1", body["user_id"])

		writeJSON(w, http.StatusOK, map[string]string{"conversation_id": "conv-1"})
	})

	id, err := client.CreateConversation(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "conv-1", id)
}

func TestCreateConversation_EmptyID(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{})
	})

	_, err := client.CreateConversation(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrConnection)
}

func TestFetchHistory(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/conversations/c%2F1", r.URL.EscapedPath())
		w.Write([]byte(`[
			{"role":"user","content":"hi","created_at":"2025-01-01T10:00:00Z"},
			{"role":"agent","content":"hola","created_at":"2025-01-01T10:00:05Z"}
		]`))
	})

	entries, err := client.FetchHistory(context.Background(), "c/1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "user", entries[0].Role)
	assert.Equal(t, "hola", entries[1].Content)
	assert.Equal(t, 5*time.Second, entries[1].CreatedAt.Sub(entries[0].CreatedAt))
}

func TestFetchHistory_NotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Conversation not found"})
	})

	_, err := client.FetchHistory(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnection)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, http.StatusNotFound, StatusCode(err))
	assert.Contains(t, err.Error(), "Conversation not found")
}

func TestListConversations(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/u1/conversations", r.URL.Path)
		w.Write([]byte(`[
			{"conversation_id":"b","conversation_created_at":"2025-02-01T00:00:00Z"},
			{"conversation_id":"a","conversation_created_at":"2025-01-01T00:00:00Z"}
		]`))
	})

	list, err := client.ListConversations(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ConversationID)
	assert.Equal(t, "a", list[1].ConversationID)
}

// =============================================================================
// STORAGE
// =============================================================================

func TestRequestUploadTargetAndPut(t *testing.T) {
	var putBody string
	var putType string
	var srvURL string
	client, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/get_gcs_upload_url":
			var req UploadTargetRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "contrato.pdf", req.Filename)
			assert.Equal(t, "application/octet-stream", req.ContentType)
			assert.Equal(t, "u1", req.UserID)
			assert.Equal(t, "c1", req.ConversationID)
			writeJSON(w, http.StatusOK, UploadTarget{UploadURL: srvURL + "/bucket/obj?sig=1", StorageURI: "gs://bucket/obj"})
		case "/bucket/obj":
			assert.Equal(t, http.MethodPut, r.Method)
			data, _ := io.ReadAll(r.Body)
			putBody = string(data)
			putType = r.Header.Get("Content-Type")
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	})
	srvURL = srv.URL

	target, err := client.RequestUploadTarget(context.Background(), UploadTargetRequest{
		Filename: "contrato.pdf", ContentType: "application/octet-stream", UserID: "u1", ConversationID: "c1",
	})
	require.NoError(t, err)
	assert.Equal(t, "gs://bucket/obj", target.StorageURI)

	err = client.PutObject(context.Background(), target.UploadURL, strings.NewReader("%PDF"), 4, "application/octet-stream")
	require.NoError(t, err)
	assert.Equal(t, "%PDF", putBody)
	assert.Equal(t, "application/octet-stream", putType)
}

func TestRequestUploadTarget_Incomplete(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"upload_url": "http://x"})
	})

	_, err := client.RequestUploadTarget(context.Background(), UploadTargetRequest{Filename: "a.pdf"})
	assert.ErrorIs(t, err, ErrConnection)
}

func TestPutObject_Forbidden(t *testing.T) {
	client, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("<Error><Code>SignatureDoesNotMatch</Code></Error>"))
	})

	err := client.PutObject(context.Background(), srv.URL+"/obj", strings.NewReader("x"), 1, "application/octet-stream")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnection)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, http.StatusForbidden, StatusCode(err))
}

// =============================================================================
// CHAT
// =============================================================================

func TestChat(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hola", req.Message)
		assert.Equal(t, []Document{{StorageURI: "gs://b/1"}, {StorageURI: "gs://b/2"}}, req.Documents)

		w.Write([]byte(`{"response":"respuesta","conversation_id":"c1",
			"plotly_charts":[{"data":[],"layout":{}}],"queries_executed":[{"query":"SELECT 1"}]}`))
	})

	resp, err := client.Chat(context.Background(), ChatRequest{
		Message: "hola", UserID: "u1", ConversationID: "c1",
		Documents: []Document{{StorageURI: "gs://b/1"}, {StorageURI: "gs://b/2"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "respuesta", resp.Response)
	assert.Len(t, resp.Charts, 1)
	assert.Len(t, resp.QueriesExecuted, 1)
}

func TestChat_SendsEmptyDocumentList(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(data), `"documents":[]`)
		w.Write([]byte(`{"response":"ok","conversation_id":"c1"}`))
	})

	_, err := client.Chat(context.Background(), ChatRequest{Message: "hi", UserID: "u", ConversationID: "c1"})
	require.NoError(t, err)
}

func TestChat_ServerErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "boom"})
	})

	_, err := client.Chat(context.Background(), ChatRequest{Message: "hi"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnection)
	assert.Equal(t, int32(1), calls.Load())

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "chat", apiErr.Op)
	assert.Equal(t, "boom", apiErr.Message)
	assert.NotEmpty(t, apiErr.RequestID)
}

func TestChat_MalformedBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	})

	_, err := client.Chat(context.Background(), ChatRequest{Message: "hi"})
	assert.ErrorIs(t, err, ErrConnection)
}

// =============================================================================
// TRANSPORT
// =============================================================================

func TestTimeoutIsConnectionError(t *testing.T) {
	release := make(chan struct{})
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)
	client.WithTimeout(50 * time.Millisecond)

	_, err := client.CreateConversation(context.Background(), "u1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnection)
	assert.Equal(t, 0, StatusCode(err))
}

func TestUnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url).ListConversations(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrConnection)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestResponseSizeCap(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":"` + strings.Repeat("x", 2048) + `"}`))
	})
	client.WithMaxResponseSize(1024)

	_, err := client.Chat(context.Background(), ChatRequest{Message: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum size")
}

func TestRateLimitPacesRequests(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, Health{Status: "healthy"})
	})
	client.WithRateLimit(20)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.Health(context.Background())
		require.NoError(t, err)
	}
	// Burst of one: the second and third calls each wait ~50ms.
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestRateLimitHonoursContext(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, Health{Status: "healthy"})
	})
	client.WithRateLimit(0.1)

	_, err := client.Health(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.Health(ctx)
	assert.ErrorIs(t, err, ErrConnection)
}

func TestClientBuilder(t *testing.T) {
	c := New("http://example.test/").WithTimeout(5 * time.Second).WithRateLimit(0).WithLogger(nil)
	assert.Equal(t, "http://example.test", c.BaseURL())
	assert.Equal(t, 5*time.Second, c.Timeout())
	assert.Nil(t, c.limiter)

	assert.Equal(t, DefaultBaseURL, New("").BaseURL())
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{&Error{Op: "chat", Status: 500, Message: "boom"}, "chat: HTTP 500: boom"},
		{&Error{Op: "chat", Status: 502}, "chat: HTTP 502 Bad Gateway"},
		{&Error{Op: "chat", Err: errors.New("dial tcp: refused")}, "chat: dial tcp: refused"},
		{&Error{Op: "chat", Message: "empty"}, "chat: empty"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.Error())
	}
}
