package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"decisionflow/internal/a2a"
	"decisionflow/internal/adapters/config"
)

func TestCard_EveryRoleHasASkill(t *testing.T) {
	for _, role := range config.Roles() {
		card := Card(role, "http://localhost:10000", "1.0.0")
		assert.NotEmpty(t, card.Name, "role %s", role)
		assert.NotEmpty(t, card.Description, "role %s", role)
		require.NotEmpty(t, card.Skills, "role %s", role)
		assert.NotEmpty(t, card.Skills[0].Examples, "role %s", role)
		assert.True(t, card.Capabilities.Streaming)
		assert.False(t, card.Capabilities.PushNotifications)
		assert.Equal(t, "http://localhost:10000/", card.URL)
		assert.Equal(t, "Decision Flow Systems", card.Provider.Organization)
	}
}

func TestGetInfo_PausesTaskForInput(t *testing.T) {
	provider := &stubChatProvider{name: "openai", responses: []string{
		"1. Where are you traveling from?\n2. What is your budget?",
	}}
	deps := testDeps(provider)

	exec, err := NewGetInfoExecutor(deps)
	require.NoError(t, err)

	events, err := runExecutor(exec, routerRequest("I want to plan my trip"))
	require.NoError(t, err)
	require.Len(t, events, 1)

	status, ok := events[0].(a2a.StatusUpdateEvent)
	require.True(t, ok)
	assert.Equal(t, a2a.TaskStateInputRequired, status.Status.State)
	assert.True(t, status.Final)
	require.NotNil(t, status.Status.Message)
	assert.Contains(t, status.Status.Message.Text(), "budget")
}

func TestNoAction_RepliesConversationally(t *testing.T) {
	provider := &stubChatProvider{name: "openai", responses: []string{
		"Hello! Let me know when you have something to plan or execute.",
	}}
	deps := testDeps(provider)

	exec, err := NewNoActionExecutor(deps)
	require.NoError(t, err)

	events, err := runExecutor(exec, routerRequest("Hello"))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Contains(t, events[0].(a2a.Message).Text(), "Hello!")
}

func TestBuild_SelectsExecutorByRole(t *testing.T) {
	deps := testDeps(&stubChatProvider{name: "openai", responses: []string{"ok"}})

	deps.Cfg.Agent.Role = config.RoleTaskExecutor
	exec, err := Build(deps)
	require.NoError(t, err)
	_, ok := exec.(*TaskExecExecutor)
	assert.True(t, ok)

	deps.Cfg.Agent.Role = "mystery"
	_, err = Build(deps)
	require.Error(t, err)
}
