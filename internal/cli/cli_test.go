// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.Ascii)
	os.Exit(m.Run())
}

// =============================================================================
// FAKE SERVICE
// =============================================================================

// fakeService answers the assistant service routes the CLI uses.
type fakeService struct {
	mu    sync.Mutex
	chats []map[string]any
}

func newFakeService(t *testing.T) (*httptest.Server, *fakeService) {
	t.Helper()
	svc := &fakeService{}
	srv := httptest.NewServer(http.HandlerFunc(svc.handle))
	t.Cleanup(srv.Close)
	return srv, svc
}

func (s *fakeService) handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/":
		io.WriteString(w, `{"status":"ok","service":"ALIA Legal Assistant"}`)
	case r.Method == http.MethodGet && r.URL.Path == "/users/jdoe/conversations":
		io.WriteString(w, `[
			{"conversation_id":"3f2a9c1e-0000-0000-0000-000000000001","conversation_created_at":"2025-03-14T09:26:53Z"},
			{"conversation_id":"77be01d2-0000-0000-0000-000000000002","conversation_created_at":"2025-02-01T10:00:00Z"}
		]`)
	case r.Method == http.MethodGet && r.URL.Path == "/conversations/3f2a9c1e-0000-0000-0000-000000000001":
		io.WriteString(w, `[
			{"role":"user","content":"¿Plazo para interponer un amparo?","created_at":"2025-03-14T09:26:53Z"},
			{"role":"assistant","content":"Quince días hábiles.","created_at":"2025-03-14T09:27:10Z"}
		]`)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/conversations/"):
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"detail":"conversation not found"}`)
	case r.Method == http.MethodPost && r.URL.Path == "/create_conversation_id":
		io.WriteString(w, `{"conversation_id":"c0ffee00-0000-0000-0000-000000000003"}`)
	case r.Method == http.MethodPost && r.URL.Path == "/chat":
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		s.mu.Lock()
		s.chats = append(s.chats, body)
		s.mu.Unlock()
		io.WriteString(w, `{"response":"Hola, ¿en qué puedo ayudarte?","conversation_id":"c0ffee00-0000-0000-0000-000000000003"}`)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// runCLI executes the command tree with an isolated config directory.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("ALIA_HOME", t.TempDir())
	return runIn(t, args...)
}

func runIn(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// =============================================================================
// COMMANDS
// =============================================================================

func TestHistoryCommand(t *testing.T) {
	srv, _ := newFakeService(t)

	out, err := runCLI(t, "history", "--user", "jdoe", "--api-url", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "  1  3f2a9c1e-0000-0000-0000-000000000001")
	assert.Contains(t, out, "  2  77be01d2-0000-0000-0000-000000000002")
}

func TestHistoryCommandLimitAndJSON(t *testing.T) {
	srv, _ := newFakeService(t)

	out, err := runCLI(t, "history", "--user", "jdoe", "--api-url", srv.URL, "-n", "1", "--json")
	require.NoError(t, err)

	var list []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "3f2a9c1e-0000-0000-0000-000000000001", list[0]["conversation_id"])
}

func TestHistoryCommandAnonymous(t *testing.T) {
	srv, _ := newFakeService(t)

	_, err := runCLI(t, "history", "--api-url", srv.URL)
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, ExitCode(err))
}

func TestShowPrintsTranscript(t *testing.T) {
	srv, _ := newFakeService(t)

	out, err := runCLI(t, "show", "3f2a9c1e-0000-0000-0000-000000000001", "--user", "jdoe", "--api-url", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Tú")
	assert.Contains(t, out, "¿Plazo para interponer un amparo?")
	assert.Contains(t, out, "ALIA")
	assert.Contains(t, out, "Quince días hábiles.")
}

func TestShowFormatToStdout(t *testing.T) {
	srv, _ := newFakeService(t)

	out, err := runCLI(t, "show", "3f2a9c1e-0000-0000-0000-000000000001", "--api-url", srv.URL, "--format", "json")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "3f2a9c1e-0000-0000-0000-000000000001", doc["conversation_id"])
}

func TestShowExportsToFile(t *testing.T) {
	srv, _ := newFakeService(t)
	dir := t.TempDir()

	out, err := runCLI(t, "show", "3f2a9c1e-0000-0000-0000-000000000001", "--api-url", srv.URL, "-f", "md", "-o", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported to")

	matches, err := filepath.Glob(filepath.Join(dir, "alia_3f2a9c1e_*.md"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "Quince días hábiles.")
}

func TestShowBadFormat(t *testing.T) {
	srv, _ := newFakeService(t)

	_, err := runCLI(t, "show", "3f2a9c1e-0000-0000-0000-000000000001", "--api-url", srv.URL, "-f", "pdf")
	assert.Equal(t, ExitUsageError, ExitCode(err))
}

func TestShowNotFound(t *testing.T) {
	srv, _ := newFakeService(t)

	_, err := runCLI(t, "show", "missing", "--api-url", srv.URL)
	require.Error(t, err)
	assert.Equal(t, ExitNotFoundError, ExitCode(err))
}

func TestShowRequiresID(t *testing.T) {
	_, err := runCLI(t, "show")
	assert.Error(t, err)
}

func TestStatusCommand(t *testing.T) {
	srv, _ := newFakeService(t)

	out, err := runCLI(t, "status", "--api-url", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Service:  "+srv.URL)
	assert.Contains(t, out, "anonymous (history disabled)")
	assert.Contains(t, out, "[OK] ALIA Legal Assistant is ok")
}

func TestStatusUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := runCLI(t, "status", "--api-url", url)
	require.Error(t, err)
	assert.Equal(t, ExitNetworkError, ExitCode(err))
}

func TestInvalidAPIURL(t *testing.T) {
	_, err := runCLI(t, "status", "--api-url", "not a url")
	require.Error(t, err)
	assert.Equal(t, ExitConfigError, ExitCode(err))
}

func TestConfigInitGetSet(t *testing.T) {
	t.Setenv("ALIA_HOME", t.TempDir())

	out, err := runIn(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "config.toml")

	_, err = runIn(t, "config", "init")
	assert.Equal(t, ExitUsageError, ExitCode(err))

	_, err = runIn(t, "config", "set", "identity.user_id", "jdoe")
	require.NoError(t, err)

	out, err = runIn(t, "config", "get", "identity.user_id")
	require.NoError(t, err)
	assert.Equal(t, "jdoe\n", out)

	_, err = runIn(t, "config", "set", "ui.theme", "neon")
	assert.Equal(t, ExitConfigError, ExitCode(err))

	_, err = runIn(t, "config", "get", "ui.nope")
	assert.Equal(t, ExitUsageError, ExitCode(err))
}

func TestConfigPathHonoursFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alia.json")

	out, err := runCLI(t, "config", "path", "--config", path)
	require.NoError(t, err)
	assert.Equal(t, path+"\n", out)
}

func TestConfigShowAppliesFlags(t *testing.T) {
	out, err := runCLI(t, "config", "show", "--user", "jdoe", "--api-url", "https://alia.example.com")
	require.NoError(t, err)
	assert.Contains(t, out, `user_id = "jdoe"`)
	assert.Contains(t, out, `base_url = "https://alia.example.com"`)
}

// =============================================================================
// REPL
// =============================================================================

// scriptedReader feeds fixed lines to the REPL, then io.EOF.
type scriptedReader struct {
	lines   []string
	history []string
}

func (s *scriptedReader) Prompt(string) (string, error) {
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func (s *scriptedReader) AppendHistory(item string) {
	s.history = append(s.history, item)
}

func newTestREPL(t *testing.T, apiURL string, lines ...string) (*repl, *scriptedReader, *bytes.Buffer) {
	t.Helper()
	t.Setenv("ALIA_HOME", t.TempDir())

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	cmd.SetErr(io.Discard)
	a, err := newApp(cmd, &globalFlags{userID: "jdoe", apiURL: apiURL}, logToStderr)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	in := &scriptedReader{lines: lines}
	out := &bytes.Buffer{}
	return newREPL(context.Background(), a, in, out), in, out
}

func TestREPLConversation(t *testing.T) {
	srv, svc := newFakeService(t)
	r, in, out := newTestREPL(t, srv.URL, "¿Qué es la usucapión?", "", "/history", "/quit", "never read")

	require.NoError(t, r.run(context.Background()))

	text := out.String()
	assert.Contains(t, text, "Soy ALIA")
	assert.Contains(t, text, "Hola, ¿en qué puedo ayudarte?")
	assert.Contains(t, text, "3f2a9c1e-0000-0000-0000-000000000001")
	assert.Equal(t, []string{"¿Qué es la usucapión?", "/history", "/quit"}, in.history)
	assert.Equal(t, "alia[c0ffee00]> ", r.prompt())

	require.Len(t, svc.chats, 1)
	assert.Equal(t, "¿Qué es la usucapión?", svc.chats[0]["message"])
	assert.Equal(t, "jdoe", svc.chats[0]["user_id"])
	assert.Equal(t, "c0ffee00-0000-0000-0000-000000000003", svc.chats[0]["conversation_id"])
}

func TestREPLOpenByNumber(t *testing.T) {
	srv, _ := newFakeService(t)
	r, _, out := newTestREPL(t, srv.URL, "/history", "/open 1")

	require.NoError(t, r.run(context.Background()))

	assert.Contains(t, out.String(), "Quince días hábiles.")
	assert.Equal(t, "alia[3f2a9c1e]> ", r.prompt())
}

func TestREPLFailedTurnShowsApology(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)
	r, _, out := newTestREPL(t, srv.URL, "hola")

	require.NoError(t, r.run(context.Background()))
	assert.Contains(t, out.String(), "Sorry, I encountered an error connecting to the server.")
}

func TestREPLAttachRejected(t *testing.T) {
	srv, _ := newFakeService(t)
	path := filepath.Join(t.TempDir(), "malware.exe")
	require.NoError(t, os.WriteFile(path, []byte("MZ"), 0o600))
	r, _, out := newTestREPL(t, srv.URL, "/attach "+path)

	require.NoError(t, r.run(context.Background()))
	assert.Contains(t, out.String(), "[X]")
	assert.Equal(t, "alia> ", r.prompt())
}

func TestREPLPendingInPrompt(t *testing.T) {
	srv, _ := newFakeService(t)
	path := filepath.Join(t.TempDir(), "contrato.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o600))
	r, _, out := newTestREPL(t, srv.URL, "/attach "+path)

	require.NoError(t, r.run(context.Background()))
	assert.Contains(t, out.String(), "contrato.pdf")
	assert.Equal(t, "alia +1> ", r.prompt())
}

// =============================================================================
// EXIT CODES
// =============================================================================

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, ExitCode(nil))
	assert.Equal(t, ExitGeneralError, ExitCode(errors.New("boom")))
	assert.Equal(t, ExitUsageError, ExitCode(usageError("bad", "")))

	err := &CommandError{Code: ExitConfigError, Message: "load", Err: errors.New("eof"), Hint: "fix it"}
	assert.Equal(t, "load: eof\n  hint: fix it", err.Error())
	assert.Equal(t, ExitConfigError, ExitCode(err))
}
