package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rpcRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "decisionflow_rpc_requests_total",
		Help: "Total JSON-RPC requests by method and outcome",
	}, []string{"method", "outcome"})

	rpcDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "decisionflow_rpc_duration_seconds",
		Help:    "JSON-RPC request handling time by method",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	taskStateTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "decisionflow_task_state_total",
		Help: "Task state transitions by resulting state",
	}, []string{"state"})

	taskDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "decisionflow_task_duration_seconds",
		Help:    "Wall time from submission to settlement of a task",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})

	routeDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "decisionflow_route_decisions_total",
		Help: "Routing decisions by target agent and decision source",
	}, []string{"target", "source"})

	forwardFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "decisionflow_forward_failures_total",
		Help: "Failed forwards to downstream agents by target",
	}, []string{"target"})

	llmTokensTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "decisionflow_llm_tokens_total",
		Help: "LLM tokens consumed by provider, model, and direction",
	}, []string{"provider", "model", "direction"})

	llmCostTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "decisionflow_llm_cost_dollars_total",
		Help: "Estimated LLM spend in dollars by provider and model",
	}, []string{"provider", "model"})
)

// RecordRPC records one handled JSON-RPC request.
func RecordRPC(method string, err error, seconds float64) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	rpcRequestsTotal.WithLabelValues(normalizeMethod(method), outcome).Inc()
	rpcDuration.WithLabelValues(normalizeMethod(method)).Observe(seconds)
}

// RecordTaskState records a task entering the given state.
func RecordTaskState(state string) {
	taskStateTotal.WithLabelValues(state).Inc()
}

// ObserveTaskDuration records how long a task took to settle.
func ObserveTaskDuration(seconds float64) {
	taskDuration.Observe(seconds)
}

// RecordRouteDecision records a routing outcome. Source is "llm",
// "heuristic", or "fallback".
func RecordRouteDecision(target, source string) {
	routeDecisionsTotal.WithLabelValues(target, source).Inc()
}

// RecordForwardFailure records a failed forward to a downstream agent.
func RecordForwardFailure(target string) {
	forwardFailuresTotal.WithLabelValues(target).Inc()
}

// RecordLLMUsage records token consumption for one model call.
func RecordLLMUsage(provider, model string, promptTokens, completionTokens int) {
	llmTokensTotal.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	llmTokensTotal.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
}

// RecordLLMCost records the estimated dollar cost of one model call.
func RecordLLMCost(provider, model string, dollars float64) {
	llmCostTotal.WithLabelValues(provider, model).Add(dollars)
}

func normalizeMethod(method string) string {
	switch strings.TrimSpace(method) {
	case "message/send", "message/stream", "tasks/get", "tasks/cancel":
		return method
	default:
		return "unknown"
	}
}
