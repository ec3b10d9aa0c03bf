// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eamadorm/alia-tui/internal/api"
	"github.com/eamadorm/alia-tui/internal/attachment"
	"github.com/eamadorm/alia-tui/internal/export"
	"github.com/eamadorm/alia-tui/internal/model"
	"github.com/eamadorm/alia-tui/internal/session"
)

// stubBackend serves fixed histories and listings.
type stubBackend struct {
	histories map[string][]model.HistoryEntry
	listing   []model.ConversationSummary
	listErr   error
	loaded    []string
}

func (s *stubBackend) CreateConversation(ctx context.Context, userID string) (string, error) {
	return "c-new", nil
}

func (s *stubBackend) FetchHistory(ctx context.Context, id string) ([]model.HistoryEntry, error) {
	s.loaded = append(s.loaded, id)
	h, ok := s.histories[id]
	if !ok {
		return nil, &api.Error{Op: "fetch history", Status: 404, Err: api.ErrNotFound}
	}
	return h, nil
}

func (s *stubBackend) ListConversations(ctx context.Context, userID string) ([]model.ConversationSummary, error) {
	return s.listing, s.listErr
}

func (s *stubBackend) Chat(ctx context.Context, req api.ChatRequest) (*api.ChatResponse, error) {
	return &api.ChatResponse{Response: "ok", ConversationID: req.ConversationID}, nil
}

func (s *stubBackend) RequestUploadTarget(ctx context.Context, req api.UploadTargetRequest) (api.UploadTarget, error) {
	return api.UploadTarget{UploadURL: "http://bucket/" + req.Filename, StorageURI: "gs://b/" + req.Filename}, nil
}

func (s *stubBackend) PutObject(ctx context.Context, url string, body io.Reader, size int64, ct string) error {
	return nil
}

var t0 = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

func newTestContext(t *testing.T, userID string) (*Context, *stubBackend) {
	t.Helper()
	backend := &stubBackend{
		histories: map[string][]model.HistoryEntry{
			"conv-aaaaaaaa-1": {
				{Role: "user", Content: "hola", CreatedAt: t0},
				{Role: "model", Content: "buenas", CreatedAt: t0.Add(time.Second)},
			},
			"conv-bbbbbbbb-2": {
				{Role: "user", Content: "otra", CreatedAt: t0},
			},
		},
		listing: []model.ConversationSummary{
			{ConversationID: "conv-aaaaaaaa-1", CreatedAt: t0},
			{ConversationID: "conv-bbbbbbbb-2", CreatedAt: t0.Add(time.Hour)},
		},
	}
	ctrl := session.New(backend, userID)
	cctx := NewContext(context.Background(), ctrl)
	cctx.ExportOptions = &export.Options{OutputDir: t.TempDir(), IncludeMetadata: true}
	return cctx, backend
}

func writeFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("contenido"), 0o600))
	return path
}

// =============================================================================
// PARSER
// =============================================================================

func TestParse(t *testing.T) {
	p := NewParser(NewRegistry())

	tests := []struct {
		input     string
		isCommand bool
		name      string
		args      []string
		found     bool
	}{
		{"hola", false, "", nil, false},
		{"//no es comando", false, "", nil, false},
		{"/help", true, "/help", []string{}, true},
		{"  /OPEN  3f2a ", true, "/OPEN", []string{"3f2a"}, true},
		{`/attach "mi contrato.pdf" b.png`, true, "/attach", []string{"mi contrato.pdf", "b.png"}, true},
		{"/nope", true, "/nope", []string{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			r := p.Parse(tt.input)
			assert.Equal(t, tt.isCommand, r.IsCommand)
			if !tt.isCommand {
				return
			}
			assert.Equal(t, tt.name, r.CommandName)
			assert.Equal(t, tt.args, r.Args)
			assert.Equal(t, tt.found, r.Command != nil)
		})
	}
}

func TestSplitCommandLine(t *testing.T) {
	assert.Equal(t, []string{"/a", "x y", "z"}, splitCommandLine(`/a 'x y' z`))
	assert.Equal(t, []string{"/a", `say "hi"`}, splitCommandLine(`/a "say \"hi\""`))
	assert.Equal(t, []string{"/a", ""}, splitCommandLine(`/a ""`))
	assert.Equal(t, []string{"/a", "año.pdf"}, splitCommandLine("/a año.pdf"))
}

func TestValidateArgs(t *testing.T) {
	reg := NewRegistry()

	var verr *ValidationError
	require.ErrorAs(t, ValidateArgs(reg.Get("/open"), nil), &verr)
	assert.Equal(t, "conversation", verr.Arg)

	require.ErrorAs(t, ValidateArgs(reg.Get("/export"), []string{"pdf"}), &verr)
	assert.Equal(t, "pdf", verr.Got)

	require.ErrorAs(t, ValidateArgs(reg.Get("/new"), []string{"extra"}), &verr)
	assert.Contains(t, verr.Error(), "too many arguments")

	assert.NoError(t, ValidateArgs(reg.Get("/attach"), []string{"a.pdf", "b.pdf", "c.pdf"}))
	assert.NoError(t, ValidateArgs(reg.Get("/export"), []string{"JSON"}))
}

// =============================================================================
// REGISTRY
// =============================================================================

func TestRegistryAliases(t *testing.T) {
	reg := NewRegistry()
	for alias, name := range map[string]string{
		"/n": "/new", "/o": "/open", "/load": "/open", "/ls": "/history",
		"/a": "/attach", "/d": "/detach", "/e": "/export", "/?": "/help", "/exit": "/quit",
	} {
		cmd := reg.Get(alias)
		require.NotNil(t, cmd, alias)
		assert.Equal(t, name, cmd.Name)
	}
	assert.Nil(t, reg.Get("/model"))
}

func TestHelpTextListsEveryVisibleCommand(t *testing.T) {
	reg := NewRegistry()
	help := reg.HelpText()
	for _, cmd := range reg.All() {
		assert.Contains(t, help, cmd.Name)
	}
	assert.Less(t, strings.Index(help, "Conversation\n"), strings.Index(help, "Attachments\n"))
}

func TestExecuteNonCommand(t *testing.T) {
	cctx, _ := newTestContext(t, "u1")
	_, handled, err := NewRegistry().Execute(cctx, "¿qué es un amparo?")
	assert.False(t, handled)
	assert.NoError(t, err)
}

func TestExecuteUnknownCommand(t *testing.T) {
	cctx, _ := newTestContext(t, "u1")
	_, handled, err := NewRegistry().Execute(cctx, "/model gpt")
	assert.True(t, handled)
	assert.ErrorIs(t, err, ErrUnknownCommand)
}

// =============================================================================
// HANDLERS
// =============================================================================

func TestHistoryThenOpenByNumber(t *testing.T) {
	cctx, backend := newTestContext(t, "u1")
	reg := NewRegistry()

	res, _, err := reg.Execute(cctx, "/history")
	require.NoError(t, err)
	assert.True(t, res.ListingUpdated)
	assert.Len(t, res.Listing, 2)

	res, _, err = reg.Execute(cctx, "/open 2")
	require.NoError(t, err)
	assert.True(t, res.ConversationChanged)
	assert.Equal(t, []string{"conv-bbbbbbbb-2"}, backend.loaded)
	assert.Equal(t, "conv-bbbbbbbb-2", cctx.Session.Snapshot().ConversationID)
}

func TestOpenByID(t *testing.T) {
	cctx, _ := newTestContext(t, "u1")

	res, _, err := NewRegistry().Execute(cctx, "/open conv-aaaaaaaa-1")
	require.NoError(t, err)
	assert.Contains(t, res.Message, "conv-aaa")
	assert.Contains(t, res.Message, "2 messages")
}

func TestOpenByNumberWithoutListing(t *testing.T) {
	cctx, backend := newTestContext(t, "u1")

	_, _, err := NewRegistry().Execute(cctx, "/open 1")
	require.Error(t, err)
	assert.Empty(t, backend.loaded)

	cctx.SetListing(backend.listing)
	_, _, err = NewRegistry().Execute(cctx, "/open 9")
	assert.ErrorContains(t, err, "#9")
}

func TestOpenUnknownConversation(t *testing.T) {
	cctx, _ := newTestContext(t, "u1")
	before := cctx.Session.Snapshot()

	_, _, err := NewRegistry().Execute(cctx, "/open missing")
	assert.ErrorIs(t, err, api.ErrNotFound)
	assert.ErrorIs(t, err, api.ErrConnection)
	assert.Equal(t, before.Messages[0].Content, cctx.Session.Snapshot().Messages[0].Content)
}

func TestHistoryAnonymous(t *testing.T) {
	cctx, _ := newTestContext(t, session.AnonymousUser)

	res, _, err := NewRegistry().Execute(cctx, "/history")
	require.NoError(t, err)
	assert.False(t, res.ListingUpdated)
	assert.Contains(t, res.Message, "user id")
}

func TestHistoryError(t *testing.T) {
	cctx, backend := newTestContext(t, "u1")
	backend.listErr = &api.Error{Op: "list conversations", Status: 500, Err: errors.New("boom")}

	_, _, err := NewRegistry().Execute(cctx, "/history")
	assert.ErrorIs(t, err, api.ErrConnection)
	assert.Empty(t, cctx.Listing())
}

func TestNew(t *testing.T) {
	cctx, _ := newTestContext(t, "u1")
	require.NoError(t, cctx.Session.LoadConversation(context.Background(), "conv-aaaaaaaa-1"))

	res, _, err := NewRegistry().Execute(cctx, "/new")
	require.NoError(t, err)
	assert.True(t, res.ConversationChanged)

	snap := cctx.Session.Snapshot()
	assert.Empty(t, snap.ConversationID)
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, session.DefaultWelcome, snap.Messages[0].Content)
}

func TestAttachDetachFiles(t *testing.T) {
	cctx, _ := newTestContext(t, "u1")
	reg := NewRegistry()
	a := writeFile(t, "contrato.pdf")
	b := writeFile(t, "foto.png")

	res, _, err := reg.Execute(cctx, "/attach "+a+" "+b)
	require.NoError(t, err)
	assert.Contains(t, res.Message, "contrato.pdf (9 B)")
	assert.Equal(t, []string{"contrato.pdf", "foto.png"}, attachment.Names(res.Pending))

	res, _, err = reg.Execute(cctx, "/files")
	require.NoError(t, err)
	assert.Len(t, res.Pending, 2)

	res, _, err = reg.Execute(cctx, "/detach 1")
	require.NoError(t, err)
	assert.Equal(t, "Removed contrato.pdf", res.Message)
	assert.Equal(t, []string{"foto.png"}, attachment.Names(cctx.Session.Pending()))

	_, _, err = reg.Execute(cctx, "/detach 5")
	assert.Error(t, err)

	_, _, err = reg.Execute(cctx, "/detach")
	require.NoError(t, err)
	assert.Empty(t, cctx.Session.Pending())
}

func TestAttachRejected(t *testing.T) {
	cctx, _ := newTestContext(t, "u1")
	good := writeFile(t, "nota.txt")
	bad := writeFile(t, "programa.exe")

	res, _, err := NewRegistry().Execute(cctx, "/attach "+good+" "+bad)
	assert.ErrorIs(t, err, attachment.ErrExtensionNotAllowed)
	assert.Contains(t, err.Error(), "accepted:")
	assert.Contains(t, res.Message, "nota.txt")
	assert.Equal(t, []string{"nota.txt"}, attachment.Names(cctx.Session.Pending()))
}

func TestExport(t *testing.T) {
	cctx, _ := newTestContext(t, "u1")
	require.NoError(t, cctx.Session.LoadConversation(context.Background(), "conv-aaaaaaaa-1"))

	res, _, err := NewRegistry().Execute(cctx, "/export json")
	require.NoError(t, err)
	require.NotEmpty(t, res.ExportPath)
	assert.Equal(t, ".json", filepath.Ext(res.ExportPath))

	data, err := os.ReadFile(res.ExportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"conversation_id": "conv-aaaaaaaa-1"`)
}

func TestQuitAndHelp(t *testing.T) {
	cctx, _ := newTestContext(t, "u1")
	reg := NewRegistry()

	res, _, err := reg.Execute(cctx, "/q")
	require.NoError(t, err)
	assert.True(t, res.Quit)

	res, _, err = reg.Execute(cctx, "/help")
	require.NoError(t, err)
	assert.Contains(t, res.Help, "/attach <path>...")
}

// =============================================================================
// COMPLETION
// =============================================================================

func TestCompleteCommands(t *testing.T) {
	c := NewCompleter(NewRegistry())

	values := func(cs []Completion) []string {
		var out []string
		for _, c := range cs {
			out = append(out, c.Value)
		}
		return out
	}
	assert.Subset(t, values(c.Complete("/h")), []string{"/h", "/help", "/history"})
	assert.Equal(t, "/new", c.Complete("/ne")[0].Value)
	assert.Contains(t, values(c.Complete("/")), "/attach")
	assert.NotContains(t, values(c.Complete("/")), "/a")
	assert.Nil(t, c.Complete("hola"))
}

func TestCompleteExportFormat(t *testing.T) {
	c := NewCompleter(NewRegistry())
	assert.Equal(t, []string{"/export json"}, c.CompleteLine("/export js"))
}

func TestCompleteConversations(t *testing.T) {
	c := NewCompleter(NewRegistry())
	c.ConversationsFn = func() []model.ConversationSummary {
		return []model.ConversationSummary{{ConversationID: "abc-1"}, {ConversationID: "xyz-2"}}
	}
	assert.Equal(t, []string{"/open abc-1"}, c.CompleteLine("/open ab"))
}

func TestCompleteFilesFiltersByExtension(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"escrito.pdf", "escrito.exe", ".oculto.pdf"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "escritos"), 0o700))

	got := completeFiles(dir + string(os.PathSeparator) + "esc")
	var names []string
	for _, c := range got {
		names = append(names, c.Display)
	}
	assert.ElementsMatch(t, []string{"escrito.pdf", "escritos"}, names)
}
