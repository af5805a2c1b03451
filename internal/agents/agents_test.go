package agents

import (
	"context"

	"decisionflow/internal/a2a"
	"decisionflow/internal/adapters/ai"
	"decisionflow/internal/adapters/config"
	"decisionflow/pkg/templates"
)

// stubChatProvider returns canned responses in order, cycling on the last.
type stubChatProvider struct {
	name      string
	responses []string
	calls     int
	lastReq   ai.ChatRequest
}

func (s *stubChatProvider) Name() string { return s.name }

func (s *stubChatProvider) GetModel(_ context.Context, model string) (ai.ModelInfo, error) {
	return ai.ModelInfo{
		Provider:        ai.ProviderName(s.name),
		Name:            model,
		Family:          model,
		MaxTokens:       8192,
		InputCostPer1K:  0.03,
		OutputCostPer1K: 0.06,
	}, nil
}

func (s *stubChatProvider) ListModels(context.Context) ([]ai.ModelInfo, error) {
	return nil, nil
}

func (s *stubChatProvider) SupportsStreaming() bool { return false }
func (s *stubChatProvider) SupportsTools() bool     { return false }

func (s *stubChatProvider) Chat(_ context.Context, req ai.ChatRequest) (*ai.ChatResponse, error) {
	s.lastReq = req
	idx := s.calls
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	s.calls++
	return &ai.ChatResponse{
		ID:           "stub",
		Model:        req.Model,
		Content:      s.responses[idx],
		FinishReason: ai.FinishReasonStop,
		Usage:        ai.Usage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30},
	}, nil
}

func testDeps(provider *stubChatProvider) Deps {
	registry := ai.NewProviderRegistry()
	if provider != nil {
		_ = registry.Register(provider)
	}
	return Deps{
		Cfg: &config.Config{
			App: config.AppConfig{Version: "1.0.0"},
			Agent: config.AgentConfig{
				Role:                     config.RoleRouter,
				Host:                     "localhost",
				Engine:                   config.EngineChat,
				Provider:                 "openai",
				Model:                    "gpt-4",
				MaxHistoryTokens:         50000,
				RouteConfidenceThreshold: 0.5,
			},
			AI: config.AIConfig{Temperature: 0.7, MaxTokens: 1000},
		},
		Providers: registry,
		Templates: templates.Get(),
		Costs:     NewCostTracker(),
		Clients:   map[string]*a2a.Client{},
	}
}

func userHistory(text string) []a2a.Message {
	return []a2a.Message{a2a.NewUserTextMessage(text)}
}

// collectQueue drains an event queue fed by a single Execute call.
func runExecutor(exec a2a.Executor, rc *a2a.RequestContext) ([]a2a.Event, error) {
	queue := a2a.NewEventQueue(32)
	done := make(chan error, 1)
	go func() {
		defer queue.Close()
		done <- exec.Execute(context.Background(), rc, queue)
	}()
	var events []a2a.Event
	for ev := range queue.Events() {
		events = append(events, ev)
	}
	return events, <-done
}
