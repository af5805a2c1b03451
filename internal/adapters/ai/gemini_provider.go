package ai

import (
	"context"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"decisionflow/pkg/errors"
)

// GeminiProvider implements chat completions via the google genai SDK.
type GeminiProvider struct {
	apiKey      string
	timeout     time.Duration
	rateLimiter RateLimiter
	models      []ModelInfo

	clientOnce sync.Once
	client     *genai.Client
	clientErr  error
}

// Ensure GeminiProvider implements ChatProvider
var _ ChatProvider = (*GeminiProvider)(nil)

// NewGeminiProvider creates a new Gemini provider.
func NewGeminiProvider(apiKey string, timeout time.Duration, limiter RateLimiter) *GeminiProvider {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	if limiter == nil {
		limiter = NewNoOpLimiter()
	}

	return &GeminiProvider{
		apiKey:      apiKey,
		timeout:     timeout,
		rateLimiter: limiter,
		models:      geminiModels(),
	}
}

// Name returns provider name.
func (p *GeminiProvider) Name() string { return ProviderNameGemini.String() }

// GetModel returns model info by name.
func (p *GeminiProvider) GetModel(_ context.Context, model string) (ModelInfo, error) {
	for _, m := range p.models {
		if strings.EqualFold(m.Name, model) {
			return m, nil
		}
	}
	return ModelInfo{}, errors.Wrapf(errors.ErrNotFound, "gemini model %s not found", model)
}

// ListModels lists available models.
func (p *GeminiProvider) ListModels(_ context.Context) ([]ModelInfo, error) {
	return p.models, nil
}

// SupportsStreaming indicates streaming support.
func (p *GeminiProvider) SupportsStreaming() bool { return true }

// SupportsTools indicates tool calling support.
func (p *GeminiProvider) SupportsTools() bool { return true }

// Chat sends a generate-content request to the Gemini API.
func (p *GeminiProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if err := p.rateLimiter.Wait(ctx); err != nil {
		return nil, &RateLimitError{
			Provider: ProviderNameGemini,
			Limit:    p.rateLimiter.Limit(),
			Err:      err,
		}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	client, err := p.getClient(ctx)
	if err != nil {
		return nil, err
	}

	cfg := &genai.GenerateContentConfig{}
	if req.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(req.Temperature))
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.ForceJSON {
		cfg.ResponseMIMEType = "application/json"
	}

	var contents []*genai.Content
	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			// Gemini carries the system prompt separately from the turn history.
			cfg.SystemInstruction = &genai.Content{
				Parts: []*genai.Part{{Text: msg.Content}},
			}
		case RoleAssistant:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleModel,
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		default:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		}
	}

	resp, err := client.Models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		return nil, errors.Wrap(errors.ErrExternal, err.Error())
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errors.Wrap(errors.ErrExternal, "gemini returned no candidates")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}

	usage := Usage{}
	if resp.UsageMetadata != nil {
		usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	return &ChatResponse{
		ID:           resp.ResponseID,
		Model:        req.Model,
		Content:      text.String(),
		FinishReason: convertGeminiFinishReason(resp.Candidates[0].FinishReason),
		Usage:        usage,
	}, nil
}

func (p *GeminiProvider) getClient(ctx context.Context) (*genai.Client, error) {
	p.clientOnce.Do(func() {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  p.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			p.clientErr = errors.Wrap(err, "create gemini client")
			return
		}
		p.client = client
	})
	return p.client, p.clientErr
}

func convertGeminiFinishReason(reason genai.FinishReason) FinishReason {
	switch reason {
	case genai.FinishReasonStop:
		return FinishReasonStop
	case genai.FinishReasonMaxTokens:
		return FinishReasonLength
	default:
		return FinishReasonStop
	}
}

func geminiModels() []ModelInfo {
	return []ModelInfo{
		{
			Provider:          ProviderNameGemini,
			Name:              "gemini-1.5-flash",
			Family:            "gemini-1.5",
			MaxTokens:         1000000,
			InputCostPer1K:    0.0002,
			OutputCostPer1K:   0.0004,
			SupportsTools:     true,
			SupportsStreaming: true,
		},
		{
			Provider:          ProviderNameGemini,
			Name:              "gemini-1.5-pro",
			Family:            "gemini-1.5",
			MaxTokens:         2000000,
			InputCostPer1K:    0.0035,
			OutputCostPer1K:   0.0105,
			SupportsTools:     true,
			SupportsStreaming: true,
		},
	}
}
