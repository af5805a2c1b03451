package agents

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/adk/runner"
	adksession "google.golang.org/adk/session"
	"google.golang.org/genai"

	"decisionflow/internal/a2a"
	"decisionflow/internal/adapters/ai"
	pkgerrors "decisionflow/pkg/errors"
	"decisionflow/pkg/logger"
)

// ADKExecutor runs a role through an ADK agent loop instead of raw chat
// completions. It is selected with AGENT_ENGINE=adk and keeps the same
// protocol-facing behavior as the chat engine.
type ADKExecutor struct {
	role      string
	agent     agent.Agent
	runner    *runner.Runner
	modelInfo *ai.ModelInfo
	costs     *CostTracker
	log       *logger.Logger
}

// NewADKExecutor builds the ADK agent and runner for a role.
func NewADKExecutor(role string, deps Deps) (*ADKExecutor, error) {
	instruction, err := deps.Templates.Render("agents/"+role, promptDataForRole(role))
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "render prompt for role %s", role)
	}

	modelInfo, err := deps.Providers.ResolveModel(context.Background(), deps.Cfg.Agent.Provider, deps.Cfg.Agent.Model)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "resolve model %s/%s", deps.Cfg.Agent.Provider, deps.Cfg.Agent.Model)
	}

	// The agent loop drives the model through genai, so it is gemini-only.
	if deps.Cfg.Agent.Provider != ai.ProviderNameGemini.String() {
		return nil, pkgerrors.Wrapf(pkgerrors.ErrProviderUnavailable, "agent engine requires the gemini provider, got %s", deps.Cfg.Agent.Provider)
	}
	llm, err := gemini.NewModel(context.Background(), modelInfo.Name, &genai.ClientConfig{
		APIKey:  deps.Cfg.AI.GeminiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "create gemini model")
	}

	card := Card(role, deps.Cfg.Agent.BaseURL(), deps.Cfg.App.Version)
	ag, err := llmagent.New(llmagent.Config{
		Name:        role,
		Description: card.Description,
		Model:       llm,
		Instruction: instruction,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "create llm agent")
	}

	runnerInstance, err := runner.New(runner.Config{
		AppName:        "decisionflow_" + role,
		Agent:          ag,
		SessionService: adksession.InMemoryService(),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "create agent runner")
	}

	return &ADKExecutor{
		role:      role,
		agent:     ag,
		runner:    runnerInstance,
		modelInfo: &modelInfo,
		costs:     deps.Costs,
		log:       logger.Get().With("agent", role, "engine", "adk"),
	}, nil
}

// Execute runs one agent turn over the incoming message and publishes the
// final response.
func (e *ADKExecutor) Execute(ctx context.Context, rc *a2a.RequestContext, queue *a2a.EventQueue) error {
	sessionID := rc.ContextID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	userContent := &genai.Content{
		Role:  "user",
		Parts: []*genai.Part{{Text: rc.UserInput()}},
	}
	runConfig := agent.RunConfig{
		StreamingMode: agent.StreamingModeSSE,
	}

	var (
		finalText    strings.Builder
		inputTokens  int
		outputTokens int
	)
	for event, err := range e.runner.Run(ctx, "decisionflow", sessionID, userContent, runConfig) {
		if err != nil {
			return pkgerrors.Wrap(err, "agent run failed")
		}
		if event == nil {
			continue
		}
		if event.LLMResponse.Partial {
			continue
		}
		if event.UsageMetadata != nil {
			inputTokens += int(event.UsageMetadata.PromptTokenCount)
			outputTokens += int(event.UsageMetadata.CandidatesTokenCount)
		}
		if event.LLMResponse.Content != nil {
			for _, part := range event.LLMResponse.Content.Parts {
				if part.Text != "" {
					finalText.WriteString(part.Text)
				}
			}
		}
		if event.TurnComplete && event.IsFinalResponse() {
			break
		}
	}

	e.costs.RecordUsage(e.modelInfo, inputTokens, outputTokens)
	e.log.Infow("agent turn complete", "task_id", rc.TaskID, "input_tokens", inputTokens, "output_tokens", outputTokens)

	reply := strings.TrimSpace(finalText.String())
	if reply == "" {
		return pkgerrors.Wrap(pkgerrors.ErrExternal, "agent produced no response")
	}
	return queue.Enqueue(ctx, a2a.NewAgentTextMessage(reply, rc.TaskID, rc.ContextID))
}

// Cancel acknowledges cancellation; the run loop stops via its context.
func (e *ADKExecutor) Cancel(_ context.Context, rc *a2a.RequestContext) error {
	e.log.Infow("canceling task", "task_id", rc.TaskID)
	return nil
}
