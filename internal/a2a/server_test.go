package a2a

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"decisionflow/internal/adapters/config"
	"decisionflow/pkg/auth"
	pkgerrors "decisionflow/pkg/errors"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
	}
}

func testCard() AgentCard {
	return AgentCard{
		Name:               "Echo Agent",
		Description:        "Echoes messages back",
		URL:                "http://localhost:10000/",
		Version:            "1.0.0",
		Capabilities:       AgentCapabilities{Streaming: true},
		DefaultInputModes:  []string{"text"},
		DefaultOutputModes: []string{"text"},
		Skills: []AgentSkill{{
			ID:          "echo",
			Name:        "Echo",
			Description: "Repeats the input",
			Tags:        []string{"test"},
		}},
	}
}

func newTestServer(t *testing.T, exec Executor, opts ...ServerOption) *httptest.Server {
	t.Helper()
	handler := NewRequestHandler(exec, NewInMemoryTaskStore())
	srv := NewServer(testCard(), handler, testConfig(), opts...)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func TestServer_AgentCard(t *testing.T) {
	ts := newTestServer(t, &echoExecutor{reply: "ok"})

	client := NewClient(ts.URL)
	card, err := client.ResolveCard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Echo Agent", card.Name)
	assert.True(t, card.Capabilities.Streaming)
	require.Len(t, card.Skills, 1)
	assert.Equal(t, "echo", card.Skills[0].ID)
}

func TestServer_MessageSendRoundtrip(t *testing.T) {
	ts := newTestServer(t, &echoExecutor{reply: "hello from agent"})

	client := NewClient(ts.URL)
	result, err := client.SendMessage(context.Background(), MessageSendParams{
		Message:       NewUserTextMessage("Hello"),
		Configuration: &MessageSendConfiguration{Blocking: true},
	})
	require.NoError(t, err)
	require.NotNil(t, result.Task)
	assert.Equal(t, TaskStateCompleted, result.Task.Status.State)
	assert.Equal(t, "hello from agent", result.Text())
}

func TestClient_ConcurrentSends(t *testing.T) {
	ts := newTestServer(t, &echoExecutor{reply: "ok"})
	client := NewClient(ts.URL)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.SendMessage(context.Background(), MessageSendParams{
				Message:       NewUserTextMessage("Hello"),
				Configuration: &MessageSendConfiguration{Blocking: true},
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
}

func TestServer_TasksGetAndCancelErrors(t *testing.T) {
	ts := newTestServer(t, &echoExecutor{reply: "ok"})
	client := NewClient(ts.URL)

	_, err := client.GetTask(context.Background(), TaskQueryParams{ID: "missing"})
	require.Error(t, err)
	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, CodeTaskNotFound, rpcErr.Code)

	result, err := client.SendMessage(context.Background(), MessageSendParams{
		Message:       NewUserTextMessage("Hello"),
		Configuration: &MessageSendConfiguration{Blocking: true},
	})
	require.NoError(t, err)

	_, err = client.CancelTask(context.Background(), TaskIDParams{ID: result.Task.ID})
	require.Error(t, err)
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, CodeTaskNotCancelable, rpcErr.Code)
}

func TestServer_EmptyMessageIsInvalidParams(t *testing.T) {
	ts := newTestServer(t, &echoExecutor{reply: "ok"})
	client := NewClient(ts.URL)

	_, err := client.SendMessage(context.Background(), MessageSendParams{
		Message: NewUserTextMessage(""),
	})
	require.Error(t, err)
	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, CodeInvalidParams, rpcErr.Code)
}

func TestServer_UnknownMethod(t *testing.T) {
	ts := newTestServer(t, &echoExecutor{reply: "ok"})

	payload := []byte(`{"jsonrpc":"2.0","id":1,"method":"tasks/resubscribe","params":{}}`)
	resp, err := http.Post(ts.URL+"/", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()

	var envelope Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, CodeMethodNotFound, envelope.Error.Code)
}

func TestServer_MalformedJSON(t *testing.T) {
	ts := newTestServer(t, &echoExecutor{reply: "ok"})

	resp, err := http.Post(ts.URL+"/", "application/json", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	defer resp.Body.Close()

	var envelope Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, CodeParseError, envelope.Error.Code)
}

func TestServer_StreamingRoundtrip(t *testing.T) {
	ts := newTestServer(t, &echoExecutor{reply: "streamed reply"})
	client := NewClient(ts.URL)

	var sawSnapshot, sawFinal bool
	var text string
	err := client.StreamMessage(context.Background(), MessageSendParams{
		Message: NewUserTextMessage("Hello"),
	}, func(ev StreamEvent) error {
		switch {
		case ev.Task != nil:
			sawSnapshot = true
		case ev.Message != nil:
			text = ev.Message.Text()
		case ev.Status != nil && ev.Status.Final:
			sawFinal = true
		}
		return nil
	})
	require.NoError(t, err)
	assert.True(t, sawSnapshot)
	assert.True(t, sawFinal)
	assert.Equal(t, "streamed reply", text)
}

func TestServer_StreamRejectedWithoutCapability(t *testing.T) {
	card := testCard()
	card.Capabilities.Streaming = false
	handler := NewRequestHandler(&echoExecutor{reply: "ok"}, NewInMemoryTaskStore())
	srv := NewServer(card, handler, testConfig())
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	client := NewClient(ts.URL)
	err := client.StreamMessage(context.Background(), MessageSendParams{
		Message: NewUserTextMessage("Hello"),
	}, func(StreamEvent) error { return nil })
	require.Error(t, err)
	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, CodeUnsupportedOperation, rpcErr.Code)
}

func TestServer_AuthRequired(t *testing.T) {
	jwtSvc := auth.NewJWTService("test-secret", "decisionflow", time.Hour)
	ts := newTestServer(t, &echoExecutor{reply: "ok"}, WithJWT(jwtSvc))

	// No token: rejected before reaching the handler.
	unauthenticated := NewClient(ts.URL)
	_, err := unauthenticated.SendMessage(context.Background(), MessageSendParams{
		Message: NewUserTextMessage("Hello"),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrUnauthorized))

	// The card stays public.
	_, err = unauthenticated.ResolveCard(context.Background())
	require.NoError(t, err)

	token, err := jwtSvc.GenerateToken("dfctl", []string{"messages:send"})
	require.NoError(t, err)
	authenticated := NewClient(ts.URL, WithAuthToken(token))
	result, err := authenticated.SendMessage(context.Background(), MessageSendParams{
		Message:       NewUserTextMessage("Hello"),
		Configuration: &MessageSendConfiguration{Blocking: true},
	})
	require.NoError(t, err)
	assert.Equal(t, TaskStateCompleted, result.Task.Status.State)
}

func TestServer_RateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RateLimitEnabled = true
	cfg.Server.RateLimit = 2
	cfg.Server.RateWindow = time.Minute

	handler := NewRequestHandler(&echoExecutor{reply: "ok"}, NewInMemoryTaskStore())
	srv := NewServer(testCard(), handler, cfg)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	client := NewClient(ts.URL)
	for i := 0; i < 2; i++ {
		_, err := client.SendMessage(context.Background(), MessageSendParams{
			Message:       NewUserTextMessage("Hello"),
			Configuration: &MessageSendConfiguration{Blocking: true},
		})
		require.NoError(t, err)
	}

	_, err := client.SendMessage(context.Background(), MessageSendParams{
		Message: NewUserTextMessage("Hello"),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrRateLimitExceeded))
}
