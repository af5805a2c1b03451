package agents

import (
	"context"
	"strings"

	"decisionflow/internal/a2a"
	"decisionflow/internal/adapters/ai"
	"decisionflow/internal/adapters/config"
	pkgerrors "decisionflow/pkg/errors"
	"decisionflow/pkg/logger"
	"decisionflow/pkg/templates"
)

// fallbackReply is returned when no AI provider is configured, mirroring
// the behavior of running the system without an API key.
const fallbackReply = "I'm currently unable to access the language model. Using fallback response."

// Deps bundles everything an agent executor needs.
type Deps struct {
	Cfg       *config.Config
	Providers *ai.ProviderRegistry
	Templates *templates.Registry
	Costs     *CostTracker

	// Downstream clients keyed by role. Only the router and the planner
	// forward to other agents; the rest leave this empty.
	Clients map[string]*a2a.Client
}

// BaseExecutor carries the LLM plumbing shared by every agent role.
type BaseExecutor struct {
	role         string
	systemPrompt string
	deps         Deps
	conversation *ConversationManager
	log          *logger.Logger
}

// NewBaseExecutor renders the role's prompt template and wires the shared
// LLM plumbing.
func NewBaseExecutor(role string, deps Deps, promptData any) (*BaseExecutor, error) {
	prompt, err := deps.Templates.Render("agents/"+role, promptData)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "render prompt for role %s", role)
	}
	return &BaseExecutor{
		role:         role,
		systemPrompt: prompt,
		deps:         deps,
		conversation: NewConversationManager(prompt, deps.Cfg.Agent.MaxHistoryTokens),
		log:          logger.Get().With("agent", role),
	}, nil
}

// Generate runs one chat completion over the task history. When no provider
// is available it returns the fallback reply instead of failing, so agents
// stay conversational without credentials.
func (b *BaseExecutor) Generate(ctx context.Context, history []a2a.Message, forceJSON bool) (string, error) {
	provider, err := b.deps.Providers.GetChat(b.deps.Cfg.Agent.Provider)
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.ErrProviderUnavailable) || pkgerrors.Is(err, pkgerrors.ErrNotFound) {
			b.log.Warnw("no chat provider available, using fallback reply")
			return fallbackReply, nil
		}
		return "", err
	}

	resp, err := provider.Chat(ctx, ai.ChatRequest{
		Model:       b.deps.Cfg.Agent.Model,
		Messages:    b.conversation.BuildMessages(history),
		Temperature: b.deps.Cfg.AI.Temperature,
		MaxTokens:   b.deps.Cfg.AI.MaxTokens,
		ForceJSON:   forceJSON,
	})
	if err != nil {
		return "", pkgerrors.Wrapf(err, "chat completion for role %s", b.role)
	}

	if info, infoErr := b.deps.Providers.ResolveModel(ctx, b.deps.Cfg.Agent.Provider, resp.Model); infoErr == nil {
		b.deps.Costs.RecordUsage(&info, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	}

	return strings.TrimSpace(resp.Content), nil
}

// Reply enqueues a plain agent text message.
func (b *BaseExecutor) Reply(ctx context.Context, rc *a2a.RequestContext, queue *a2a.EventQueue, text string) error {
	return queue.Enqueue(ctx, a2a.NewAgentTextMessage(text, rc.TaskID, rc.ContextID))
}

// Cancel acknowledges cancellation. The request handler takes care of the
// state transition.
func (b *BaseExecutor) Cancel(_ context.Context, rc *a2a.RequestContext) error {
	b.log.Infow("canceling task", "task_id", rc.TaskID)
	return nil
}

// Client returns the downstream client for a role, if configured.
func (b *BaseExecutor) Client(role string) (*a2a.Client, bool) {
	c, ok := b.deps.Clients[role]
	return c, ok
}
