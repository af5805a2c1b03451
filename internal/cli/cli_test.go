package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"decisionflow/internal/a2a"
	"decisionflow/pkg/auth"
)

// fakeAgent answers the card endpoint plus a fixed set of RPC methods.
func fakeAgent(t *testing.T) *httptest.Server {
	t.Helper()

	task := a2a.Task{
		Kind:      a2a.KindTask,
		ID:        "task-1",
		ContextID: "ctx-1",
		Status: a2a.TaskStatus{
			State:     a2a.TaskStateCompleted,
			Message:   ptrMessage(a2a.NewAgentTextMessage("Hello from the router", "task-1", "ctx-1")),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc(a2a.WellKnownCardPath, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(a2a.AgentCard{Name: "Routing Agent", Version: "1.0.0"})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		var req a2a.Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		switch req.Method {
		case a2a.MethodMessageSend, a2a.MethodTasksGet, a2a.MethodTasksCancel:
			json.NewEncoder(w).Encode(a2a.NewResponse(req.ID, task))
		default:
			json.NewEncoder(w).Encode(a2a.NewErrorResponse(req.ID, a2a.CodeMethodNotFound, "unknown method"))
		}
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func ptrMessage(m a2a.Message) *a2a.Message { return &m }

func runCommand(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestCardCommand(t *testing.T) {
	srv := fakeAgent(t)
	out := runCommand(t, "card", "--url", srv.URL)
	assert.Contains(t, out, `"Routing Agent"`)
}

func TestSendCommand(t *testing.T) {
	srv := fakeAgent(t)
	out := runCommand(t, "send", "Hello", "--url", srv.URL)
	assert.Contains(t, out, "Hello from the router")
	assert.Contains(t, out, "task-1: completed")
}

func TestTaskGetCommand(t *testing.T) {
	srv := fakeAgent(t)
	out := runCommand(t, "task", "get", "task-1", "--url", srv.URL)
	assert.Contains(t, out, "Task:    task-1")
	assert.Contains(t, out, "State:   completed")
}

func TestTaskCancelCommand(t *testing.T) {
	srv := fakeAgent(t)
	out := runCommand(t, "task", "cancel", "task-1", "--url", srv.URL)
	assert.Contains(t, out, "Task task-1 is now completed")
}

func TestTokenCommand(t *testing.T) {
	out := runCommand(t, "token", "--secret", "test-secret", "--client", "cli-test")

	claims, err := auth.NewJWTService("test-secret", "decisionflow", time.Hour).
		ValidateToken(trimmed(out))
	require.NoError(t, err)
	assert.Equal(t, "cli-test", claims.ClientID)
}

func TestTokenCommandRequiresSecret(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"token"})
	assert.Error(t, cmd.Execute())
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "one ...", firstLine("one\ntwo"))
	assert.Equal(t, "single", firstLine("  single  "))
}

func trimmed(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
