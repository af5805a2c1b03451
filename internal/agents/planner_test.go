package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"decisionflow/internal/a2a"
	"decisionflow/internal/adapters/config"
	pkgerrors "decisionflow/pkg/errors"
)

const parisPlanJSON = `{
  "plan": {
    "overview": "Five day trip to Paris within a $2000 budget",
    "steps": [
      {"step": "Book round-trip flights", "timeline": "this week", "resources": ["airline website", "credit card"], "notes": "midweek departures are cheaper"},
      {"step": "Reserve hotel near the Marais", "timeline": "this week", "resources": ["booking platform"], "notes": "4 nights"}
    ],
    "estimated_duration": "5 days",
    "estimated_cost": "$1900",
    "needs_execution": false,
    "execution_tasks": []
  }
}`

func plannerRequest(text string) *a2a.RequestContext {
	msg := a2a.NewUserTextMessage(text)
	msg.TaskID = "task-p"
	msg.ContextID = "ctx-p"
	return &a2a.RequestContext{
		TaskID:    "task-p",
		ContextID: "ctx-p",
		Params:    a2a.MessageSendParams{Message: msg},
		Task:      &a2a.Task{ID: "task-p", ContextID: "ctx-p", History: []a2a.Message{msg}},
	}
}

func TestParsePlan(t *testing.T) {
	plan, err := ParsePlan(parisPlanJSON)
	require.NoError(t, err)
	assert.Equal(t, "Five day trip to Paris within a $2000 budget", plan.Overview)
	require.Len(t, plan.Steps, 2)
	assert.False(t, plan.NeedsExecution)
}

func TestParsePlan_FencedOutput(t *testing.T) {
	plan, err := ParsePlan("Here is the plan:\n```json\n" + parisPlanJSON + "\n```")
	require.NoError(t, err)
	assert.Len(t, plan.Steps, 2)
}

func TestParsePlan_Malformed(t *testing.T) {
	_, err := ParsePlan("I could not produce a plan, sorry.")
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrMalformedPlan))

	_, err = ParsePlan(`{"plan": {}}`)
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrMalformedPlan))
}

func TestFormatPlan(t *testing.T) {
	plan, err := ParsePlan(parisPlanJSON)
	require.NoError(t, err)

	text := FormatPlan(plan)
	assert.Contains(t, text, "Plan Overview")
	assert.Contains(t, text, "Five day trip to Paris")
	assert.Contains(t, text, "1. Book round-trip flights")
	assert.Contains(t, text, "2. Reserve hotel near the Marais")
	assert.Contains(t, text, "Estimated Duration**: 5 days")
	assert.Contains(t, text, "Estimated Cost**: $1900")
}

func TestPlanner_PublishesPlanAndArtifact(t *testing.T) {
	provider := &stubChatProvider{name: "openai", responses: []string{parisPlanJSON}}
	deps := testDeps(provider)

	planner, err := NewPlannerExecutor(deps)
	require.NoError(t, err)

	events, err := runExecutor(planner, plannerRequest("Plan a trip to Paris from May 10 to May 15 with a $2000 budget"))
	require.NoError(t, err)
	require.Len(t, events, 3)

	planText := events[0].(a2a.Message).Text()
	assert.Contains(t, planText, "Five day trip to Paris")

	artifact, ok := events[1].(a2a.ArtifactUpdateEvent)
	require.True(t, ok)
	assert.Equal(t, "plan.json", artifact.Artifact.Name)
	assert.Contains(t, artifact.Artifact.Parts[0].Text, "needs_execution")

	assert.Contains(t, events[2].(a2a.Message).Text(), "No automated execution is needed")
}

func TestPlanner_DelegatesExecution(t *testing.T) {
	planWithExecution := `{
  "plan": {
    "overview": "Book the flight",
    "steps": [{"step": "Book a flight to New York", "timeline": "today", "resources": ["airline"], "notes": "9 AM departure"}],
    "estimated_duration": "1 hour",
    "estimated_cost": "$400",
    "needs_execution": true,
    "execution_tasks": ["Book a flight to New York for tomorrow at 9 AM"]
  }
}`
	provider := &stubChatProvider{name: "openai", responses: []string{planWithExecution}}
	deps := testDeps(provider)
	deps.Clients[config.RoleTaskExecutor] = startDownstream(t, "flight booking prepared")

	planner, err := NewPlannerExecutor(deps)
	require.NoError(t, err)

	events, err := runExecutor(planner, plannerRequest("Book a flight to New York for tomorrow at 9 AM"))
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Contains(t, events[2].(a2a.Message).Text(), "Forwarding to Task Executor")
	assert.Equal(t, "flight booking prepared", events[3].(a2a.Message).Text())
}

func TestPlanner_MalformedModelOutputFailsTask(t *testing.T) {
	provider := &stubChatProvider{name: "openai", responses: []string{"not a plan at all"}}
	deps := testDeps(provider)

	planner, err := NewPlannerExecutor(deps)
	require.NoError(t, err)

	_, err = runExecutor(planner, plannerRequest("Plan something"))
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrMalformedPlan))
}

func TestPlanner_NoProviderUsesFallbackReply(t *testing.T) {
	deps := testDeps(nil)

	planner, err := NewPlannerExecutor(deps)
	require.NoError(t, err)

	events, err := runExecutor(planner, plannerRequest("Plan something"))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Contains(t, events[0].(a2a.Message).Text(), "fallback response")
}
