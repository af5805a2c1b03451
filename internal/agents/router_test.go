package agents

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"decisionflow/internal/a2a"
	"decisionflow/internal/adapters/config"
)

// echoDownstream stands in for a specialist agent.
type echoDownstream struct {
	reply string
}

func (e *echoDownstream) Execute(ctx context.Context, rc *a2a.RequestContext, queue *a2a.EventQueue) error {
	return queue.Enqueue(ctx, a2a.NewAgentTextMessage(e.reply, rc.TaskID, rc.ContextID))
}

func (e *echoDownstream) Cancel(context.Context, *a2a.RequestContext) error { return nil }

func startDownstream(t *testing.T, reply string) *a2a.Client {
	t.Helper()
	handler := a2a.NewRequestHandler(&echoDownstream{reply: reply}, a2a.NewInMemoryTaskStore())
	srv := a2a.NewServer(a2a.AgentCard{Name: "downstream"}, handler, &config.Config{
		Server: config.ServerConfig{ReadTimeout: 5 * time.Second, WriteTimeout: 30 * time.Second},
	})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return a2a.NewClient(ts.URL)
}

func routerRequest(text string) *a2a.RequestContext {
	msg := a2a.NewUserTextMessage(text)
	msg.TaskID = "task-1"
	msg.ContextID = "ctx-1"
	return &a2a.RequestContext{
		TaskID:    "task-1",
		ContextID: "ctx-1",
		Params:    a2a.MessageSendParams{Message: msg},
		Task:      &a2a.Task{ID: "task-1", ContextID: "ctx-1", History: []a2a.Message{msg}},
	}
}

func TestRouter_ForwardsBasedOnModelDecision(t *testing.T) {
	provider := &stubChatProvider{name: "openai", responses: []string{
		`{"route": "create_plan", "confidence": 0.92, "reason": "user asks for a trip plan"}`,
	}}
	deps := testDeps(provider)
	deps.Clients[config.RoleCreatePlan] = startDownstream(t, "here is your plan")

	router, err := NewRouterExecutor(deps)
	require.NoError(t, err)

	events, err := runExecutor(router, routerRequest("Plan a trip to Paris from May 10 to May 15 with a $2000 budget"))
	require.NoError(t, err)
	require.Len(t, events, 1)
	msg, ok := events[0].(a2a.Message)
	require.True(t, ok)
	assert.Equal(t, "here is your plan", msg.Text())
	assert.True(t, provider.lastReq.ForceJSON)
}

func TestRouter_LowConfidenceGoesToGetInfo(t *testing.T) {
	provider := &stubChatProvider{name: "openai", responses: []string{
		`{"route": "create_plan", "confidence": 0.2, "reason": "unsure"}`,
	}}
	deps := testDeps(provider)
	deps.Clients[config.RoleGetInfo] = startDownstream(t, "what are your dates?")

	router, err := NewRouterExecutor(deps)
	require.NoError(t, err)

	events, err := runExecutor(router, routerRequest("I want to plan my trip"))
	require.NoError(t, err)
	require.Len(t, events, 1)
	msg := events[0].(a2a.Message)
	assert.Equal(t, "what are your dates?", msg.Text())
}

func TestRouter_GarbageModelOutputFallsBackToHeuristics(t *testing.T) {
	provider := &stubChatProvider{name: "openai", responses: []string{"sorry, I cannot decide"}}
	deps := testDeps(provider)
	deps.Clients[config.RoleTaskExecutor] = startDownstream(t, "done: 12")

	router, err := NewRouterExecutor(deps)
	require.NoError(t, err)

	events, err := runExecutor(router, routerRequest("Calculate the square root of 144"))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "done: 12", events[0].(a2a.Message).Text())
}

func TestRouter_DownstreamFailureDegradesToApology(t *testing.T) {
	provider := &stubChatProvider{name: "openai", responses: []string{
		`{"route": "no_action", "confidence": 0.9, "reason": "greeting"}`,
	}}
	deps := testDeps(provider)
	// Nothing listens on this port.
	deps.Clients[config.RoleNoAction] = a2a.NewClient("http://127.0.0.1:1")

	router, err := NewRouterExecutor(deps)
	require.NoError(t, err)

	events, err := runExecutor(router, routerRequest("Hello"))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Contains(t, events[0].(a2a.Message).Text(), "currently unavailable")
}

func TestRouter_HeuristicScenarios(t *testing.T) {
	deps := testDeps(nil)
	router, err := NewRouterExecutor(deps)
	require.NoError(t, err)

	cases := []struct {
		message string
		want    string
	}{
		{"I want to plan my trip", config.RoleGetInfo},
		{"Plan a trip to Paris from May 10 to May 15 with a $2000 budget", config.RoleCreatePlan},
		{"Book a flight to New York for tomorrow at 9 AM", config.RoleTaskExecutor},
		{"Hello", config.RoleNoAction},
		{"Calculate the square root of 144", config.RoleTaskExecutor},
		{"Create a weekly meal plan for a family of four with dietary restrictions", config.RoleCreatePlan},
	}
	for _, tc := range cases {
		decision := router.heuristicRoute(tc.message, "heuristic")
		assert.Equal(t, tc.want, decision.Route, "message: %s", tc.message)
	}
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, extractJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, extractJSON(`the answer is {"a":1} ok`))
	assert.Equal(t, "no braces here", extractJSON("no braces here"))
}
