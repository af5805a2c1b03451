package ai

import (
	"context"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"decisionflow/pkg/errors"
)

// OpenAIProvider implements chat completions using the official OpenAI Go SDK.
type OpenAIProvider struct {
	client      openai.Client
	timeout     time.Duration
	rateLimiter RateLimiter
	models      []ModelInfo
}

// Ensure OpenAIProvider implements ChatProvider
var _ ChatProvider = (*OpenAIProvider)(nil)

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(apiKey string, timeout time.Duration, limiter RateLimiter) *OpenAIProvider {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	if limiter == nil {
		limiter = NewNoOpLimiter()
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &OpenAIProvider{
		client:      client,
		timeout:     timeout,
		rateLimiter: limiter,
		models:      openaiModels(),
	}
}

// Name returns provider name.
func (p *OpenAIProvider) Name() string { return ProviderNameOpenAI.String() }

// GetModel returns model info by name.
func (p *OpenAIProvider) GetModel(_ context.Context, model string) (ModelInfo, error) {
	for _, m := range p.models {
		if strings.EqualFold(m.Name, model) {
			return m, nil
		}
	}
	return ModelInfo{}, errors.Wrapf(errors.ErrNotFound, "openai model %s not found", model)
}

// ListModels lists available models.
func (p *OpenAIProvider) ListModels(_ context.Context) ([]ModelInfo, error) {
	return p.models, nil
}

// SupportsStreaming indicates streaming support.
func (p *OpenAIProvider) SupportsStreaming() bool { return true }

// SupportsTools indicates tool calling support.
func (p *OpenAIProvider) SupportsTools() bool { return true }

// Chat sends a chat completion request to the OpenAI API.
func (p *OpenAIProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if err := p.rateLimiter.Wait(ctx); err != nil {
		return nil, &RateLimitError{
			Provider: ProviderNameOpenAI,
			Limit:    p.rateLimiter.Limit(),
			Err:      err,
		}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Content))
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: messages,
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.ForceJSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		}
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, errors.Wrap(errors.ErrExternal, err.Error())
	}

	if len(completion.Choices) == 0 {
		return nil, errors.Wrap(errors.ErrExternal, "openai returned no choices")
	}

	choice := completion.Choices[0]

	return &ChatResponse{
		ID:           completion.ID,
		Model:        completion.Model,
		Content:      choice.Message.Content,
		FinishReason: convertOpenAIFinishReason(string(choice.FinishReason)),
		Usage: Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		},
	}, nil
}

func convertOpenAIFinishReason(reason string) FinishReason {
	switch reason {
	case "length":
		return FinishReasonLength
	case "stop":
		return FinishReasonStop
	default:
		return FinishReason(reason)
	}
}

func openaiModels() []ModelInfo {
	return []ModelInfo{
		{
			Provider:          ProviderNameOpenAI,
			Name:              "gpt-4",
			Family:            "gpt-4",
			MaxTokens:         8192,
			InputCostPer1K:    0.03,
			OutputCostPer1K:   0.06,
			SupportsTools:     true,
			SupportsStreaming: true,
		},
		{
			Provider:          ProviderNameOpenAI,
			Name:              "gpt-4o",
			Family:            "gpt-4o",
			MaxTokens:         128000,
			InputCostPer1K:    0.0025,
			OutputCostPer1K:   0.01,
			SupportsTools:     true,
			SupportsStreaming: true,
		},
		{
			Provider:          ProviderNameOpenAI,
			Name:              "gpt-4o-mini",
			Family:            "gpt-4o",
			MaxTokens:         128000,
			InputCostPer1K:    0.00015,
			OutputCostPer1K:   0.0006,
			SupportsTools:     true,
			SupportsStreaming: true,
		},
	}
}
