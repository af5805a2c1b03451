package agents

import (
	"context"
	"encoding/json"
	"strings"

	"decisionflow/internal/a2a"
	"decisionflow/internal/adapters/config"
	"decisionflow/internal/metrics"
	pkgerrors "decisionflow/pkg/errors"
)

// routeDescription feeds the routing prompt template.
type routeDescription struct {
	Name        string
	Description string
}

var knownRoutes = []routeDescription{
	{config.RoleGetInfo, "the request is missing details required before anything can be planned or executed"},
	{config.RoleCreatePlan, "the request asks for a plan, strategy, schedule or any multi-step approach"},
	{config.RoleTaskExecutor, "the request is a single concrete action, calculation or lookup"},
	{config.RoleNoAction, "greetings, small talk and messages requiring no action"},
}

// routeDecision is the JSON shape the routing model must produce.
type routeDecision struct {
	Route      string  `json:"route"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// RouterExecutor classifies incoming messages and forwards them to the
// matching specialist agent. When the downstream agent cannot be reached
// the router degrades to a local apology instead of failing the task.
type RouterExecutor struct {
	*BaseExecutor
	threshold float64
}

// NewRouterExecutor creates the router for the configured downstream agents.
func NewRouterExecutor(deps Deps) (*RouterExecutor, error) {
	base, err := NewBaseExecutor(config.RoleRouter, deps, map[string]any{"Routes": knownRoutes})
	if err != nil {
		return nil, err
	}
	return &RouterExecutor{
		BaseExecutor: base,
		threshold:    deps.Cfg.Agent.RouteConfidenceThreshold,
	}, nil
}

// Execute decides the route and proxies the conversation downstream.
func (r *RouterExecutor) Execute(ctx context.Context, rc *a2a.RequestContext, queue *a2a.EventQueue) error {
	decision := r.decide(ctx, rc)
	r.log.Infow("route decided",
		"task_id", rc.TaskID,
		"route", decision.Route,
		"confidence", decision.Confidence,
		"reason", decision.Reason,
	)

	client, ok := r.Client(decision.Route)
	if !ok {
		return pkgerrors.Wrapf(pkgerrors.ErrRouteUndecided, "no client for route %s", decision.Route)
	}

	reply, err := r.forward(ctx, client, rc)
	if err != nil {
		metrics.RecordForwardFailure(decision.Route)
		r.log.Errorw("downstream agent failed, degrading to local reply",
			"task_id", rc.TaskID, "route", decision.Route, "error", err)
		return r.Reply(ctx, rc, queue,
			"I understood your request but the responsible agent is currently unavailable. Please try again shortly.")
	}
	return r.Reply(ctx, rc, queue, reply)
}

// decide asks the model for a route and falls back to keyword heuristics
// when the model is unavailable, answers garbage, or is not confident.
func (r *RouterExecutor) decide(ctx context.Context, rc *a2a.RequestContext) routeDecision {
	raw, err := r.Generate(ctx, rc.History(), true)
	if err != nil {
		r.log.Warnw("routing model call failed, using heuristics", "error", err)
		return r.heuristicRoute(rc.UserInput(), "fallback")
	}

	var decision routeDecision
	if jsonErr := json.Unmarshal([]byte(extractJSON(raw)), &decision); jsonErr != nil || !validRoute(decision.Route) {
		r.log.Warnw("routing model returned no usable decision", "raw", raw)
		return r.heuristicRoute(rc.UserInput(), "heuristic")
	}

	if decision.Confidence < r.threshold {
		// Low confidence means the request is probably underspecified.
		decision.Route = config.RoleGetInfo
		decision.Reason = "low routing confidence, collecting more details"
	}
	metrics.RecordRouteDecision(decision.Route, "llm")
	return decision
}

// heuristicRoute is the no-model classifier: keyword matching in priority
// order, defaulting to the conversational agent.
func (r *RouterExecutor) heuristicRoute(input, source string) routeDecision {
	lower := strings.ToLower(input)
	route := config.RoleNoAction
	switch {
	// Vague intent beats the planning keywords: "I want to plan my trip"
	// needs details before a plan makes sense.
	case containsAny(lower, "help me", "how do i", "what do you need", "i want to"):
		route = config.RoleGetInfo
	case containsAny(lower, "plan", "strategy", "organize", "schedule", "itinerary"):
		route = config.RoleCreatePlan
	case containsAny(lower, "book", "calculate", "execute", "order", "send", "compute", "buy"):
		route = config.RoleTaskExecutor
	}
	metrics.RecordRouteDecision(route, source)
	return routeDecision{Route: route, Confidence: 0.3, Reason: "keyword heuristic"}
}

// forward relays the user message to the chosen agent and extracts its
// textual reply.
func (r *RouterExecutor) forward(ctx context.Context, client *a2a.Client, rc *a2a.RequestContext) (string, error) {
	msg := a2a.NewUserTextMessage(rc.UserInput())
	result, err := client.SendMessage(ctx, a2a.MessageSendParams{
		Message:       msg,
		Configuration: &a2a.MessageSendConfiguration{Blocking: true},
	})
	if err != nil {
		return "", err
	}
	text := result.Text()
	if text == "" {
		return "", pkgerrors.Wrap(pkgerrors.ErrExternal, "downstream agent returned an empty reply")
	}
	return text, nil
}

func validRoute(route string) bool {
	for _, r := range knownRoutes {
		if r.Name == route {
			return true
		}
	}
	return false
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// extractJSON pulls the first JSON object out of a model reply that may be
// wrapped in prose or markdown fences.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}
