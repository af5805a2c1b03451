package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"decisionflow/pkg/errors"
)

// Agent roles served by cmd/agent. One process serves exactly one role.
const (
	RoleRouter       = "router"
	RoleGetInfo      = "get_info"
	RoleCreatePlan   = "create_plan"
	RoleTaskExecutor = "task_executor"
	RoleNoAction     = "no_action"
)

// Execution engines for the LLM loop.
const (
	EngineChat = "chat"
	EngineADK  = "adk"
)

// Default ports per role, matching the historical deployment layout.
var defaultPorts = map[string]int{
	RoleRouter:       10000,
	RoleGetInfo:      10001,
	RoleCreatePlan:   10002,
	RoleTaskExecutor: 10003,
	RoleNoAction:     10004,
}

type Config struct {
	App           AppConfig
	Agent         AgentConfig
	Server        ServerConfig
	AI            AIConfig
	Redis         RedisConfig
	Auth          AuthConfig
	ErrorTracking ErrorTrackingConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"decisionflow"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Version  string `envconfig:"APP_VERSION" default:"1.0.0"`
}

// AgentConfig selects and tunes the role this process serves.
type AgentConfig struct {
	Role   string `envconfig:"AGENT_ROLE" default:"router"`
	Host   string `envconfig:"AGENT_HOST" default:"localhost"`
	Port   int    `envconfig:"AGENT_PORT"` // 0 means the role default
	Engine string `envconfig:"AGENT_ENGINE" default:"chat"` // chat | adk

	Provider string `envconfig:"AGENT_AI_PROVIDER" default:"openai"`
	Model    string `envconfig:"AGENT_MODEL" default:"gpt-4"`

	ExecutionTimeout time.Duration `envconfig:"AGENT_EXECUTION_TIMEOUT" default:"120s"`
	MaxHistoryTokens int           `envconfig:"AGENT_MAX_HISTORY_TOKENS" default:"50000"`

	// Router tuning
	RouteConfidenceThreshold float64 `envconfig:"ROUTER_CONFIDENCE_THRESHOLD" default:"0.5"`

	// Downstream agent endpoints used by the router and the planner.
	GetInfoURL      string `envconfig:"GET_INFO_AGENT_URL" default:"http://localhost:10001"`
	CreatePlanURL   string `envconfig:"CREATE_PLAN_AGENT_URL" default:"http://localhost:10002"`
	TaskExecutorURL string `envconfig:"TASK_EXECUTOR_AGENT_URL" default:"http://localhost:10003"`
	NoActionURL     string `envconfig:"NO_ACTION_AGENT_URL" default:"http://localhost:10004"`
}

// ListenPort resolves the effective port for the configured role.
func (c AgentConfig) ListenPort() int {
	if c.Port != 0 {
		return c.Port
	}
	if p, ok := defaultPorts[c.Role]; ok {
		return p
	}
	return 10000
}

// BaseURL returns the externally visible URL of this agent.
func (c AgentConfig) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", c.Host, c.ListenPort())
}

type ServerConfig struct {
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"180s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"15s"`

	RateLimitEnabled bool          `envconfig:"SERVER_RATE_LIMIT_ENABLED" default:"true"`
	RateLimit        int           `envconfig:"SERVER_RATE_LIMIT" default:"120"`
	RateWindow       time.Duration `envconfig:"SERVER_RATE_WINDOW" default:"1m"`

	MetricsEnabled bool `envconfig:"METRICS_ENABLED" default:"true"`
}

type AIConfig struct {
	OpenAIKey       string        `envconfig:"OPENAI_API_KEY"`
	GeminiKey       string        `envconfig:"GEMINI_API_KEY"`
	DefaultProvider string        `envconfig:"DEFAULT_AI_PROVIDER" default:"openai"`
	RequestTimeout  time.Duration `envconfig:"AI_REQUEST_TIMEOUT" default:"60s"`
	Temperature     float64       `envconfig:"AI_TEMPERATURE" default:"0.7"`
	MaxTokens       int           `envconfig:"AI_MAX_TOKENS" default:"1000"`

	RateLimitEnabled    bool    `envconfig:"AI_RATE_LIMIT_ENABLED" default:"true"`
	OpenAIReqPerMinute  float64 `envconfig:"OPENAI_REQ_PER_MINUTE" default:"500"`
	OpenAIBurst         int     `envconfig:"OPENAI_BURST" default:"50"`
	GeminiReqPerMinute  float64 `envconfig:"GEMINI_REQ_PER_MINUTE" default:"300"`
	GeminiBurst         int     `envconfig:"GEMINI_BURST" default:"30"`
	DistributedLimiting bool    `envconfig:"AI_DISTRIBUTED_RATE_LIMITING" default:"false"`
}

// RateLimitConfig describes per-provider request throttling.
type RateLimitConfig struct {
	Enabled      bool
	ReqPerMinute float64
	Burst        int
}

// GetRateLimitConfig returns the throttle settings for a provider name.
func (c AIConfig) GetRateLimitConfig(provider string) RateLimitConfig {
	switch provider {
	case "openai":
		return RateLimitConfig{Enabled: c.RateLimitEnabled, ReqPerMinute: c.OpenAIReqPerMinute, Burst: c.OpenAIBurst}
	case "gemini":
		return RateLimitConfig{Enabled: c.RateLimitEnabled, ReqPerMinute: c.GeminiReqPerMinute, Burst: c.GeminiBurst}
	default:
		return RateLimitConfig{Enabled: c.RateLimitEnabled, ReqPerMinute: 60, Burst: 10}
	}
}

type RedisConfig struct {
	Enabled  bool          `envconfig:"REDIS_ENABLED" default:"false"`
	Host     string        `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int           `envconfig:"REDIS_PORT" default:"6379"`
	Password string        `envconfig:"REDIS_PASSWORD"`
	DB       int           `envconfig:"REDIS_DB" default:"0"`
	TaskTTL  time.Duration `envconfig:"REDIS_TASK_TTL" default:"24h"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type AuthConfig struct {
	Enabled  bool          `envconfig:"AUTH_ENABLED" default:"false"`
	Secret   string        `envconfig:"AUTH_JWT_SECRET"`
	Issuer   string        `envconfig:"AUTH_JWT_ISSUER" default:"decisionflow"`
	TokenTTL time.Duration `envconfig:"AUTH_TOKEN_TTL" default:"24h"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"true"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// Load reads configuration from environment variables.
// It first tries to load a .env file (useful for local development).
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cross-field constraints that envconfig cannot express.
func (c *Config) Validate() error {
	if _, ok := defaultPorts[c.Agent.Role]; !ok {
		return errors.Wrapf(errors.ErrInvalidInput, "unknown agent role %q", c.Agent.Role)
	}

	if c.Agent.Engine != EngineChat && c.Agent.Engine != EngineADK {
		return errors.Wrapf(errors.ErrInvalidInput, "unknown agent engine %q", c.Agent.Engine)
	}

	if c.Auth.Enabled && c.Auth.Secret == "" {
		return errors.Wrap(errors.ErrInvalidInput, "AUTH_JWT_SECRET is required when auth is enabled")
	}

	return nil
}

// Roles returns all known agent roles.
func Roles() []string {
	return []string{RoleRouter, RoleGetInfo, RoleCreatePlan, RoleTaskExecutor, RoleNoAction}
}
