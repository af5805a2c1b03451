package ai

import (
	"decisionflow/internal/adapters/config"
	"decisionflow/pkg/errors"
)

// BuildRegistry initializes a ProviderRegistry with all enabled providers based on configuration.
// redisClient is optional - if provided, distributed rate limiting will be used (required for
// multi-instance deployment). If nil, local in-memory rate limiting will be used.
func BuildRegistry(cfg config.AIConfig, redisClient interface{}) (*ProviderRegistry, error) {
	registry := NewProviderRegistry()

	limiterFactory := NewRateLimiterFactory(redisClient)

	if cfg.OpenAIKey != "" {
		rateLimitCfg := cfg.GetRateLimitConfig("openai")
		limiter := limiterFactory.Create(ProviderNameOpenAI, RateLimitConfig{
			Enabled:      rateLimitCfg.Enabled,
			ReqPerMinute: rateLimitCfg.ReqPerMinute,
			Burst:        rateLimitCfg.Burst,
		})
		if err := registry.Register(NewOpenAIProvider(cfg.OpenAIKey, cfg.RequestTimeout, limiter)); err != nil {
			return nil, err
		}
	}

	if cfg.GeminiKey != "" {
		rateLimitCfg := cfg.GetRateLimitConfig("gemini")
		limiter := limiterFactory.Create(ProviderNameGemini, RateLimitConfig{
			Enabled:      rateLimitCfg.Enabled,
			ReqPerMinute: rateLimitCfg.ReqPerMinute,
			Burst:        rateLimitCfg.Burst,
		})
		if err := registry.Register(NewGeminiProvider(cfg.GeminiKey, cfg.RequestTimeout, limiter)); err != nil {
			return nil, err
		}
	}

	if len(registry.List()) == 0 {
		return nil, errors.ErrProviderUnavailable
	}

	return registry, nil
}
