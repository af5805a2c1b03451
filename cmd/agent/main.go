package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"decisionflow/internal/a2a"
	"decisionflow/internal/adapters/ai"
	"decisionflow/internal/adapters/config"
	"decisionflow/internal/adapters/errors/noop"
	"decisionflow/internal/adapters/errors/sentry"
	redisadapter "decisionflow/internal/adapters/redis"
	"decisionflow/internal/agents"
	"decisionflow/internal/api/health"
	redisrepo "decisionflow/internal/repository/redis"
	"decisionflow/pkg/auth"
	"decisionflow/pkg/errors"
	"decisionflow/pkg/logger"
	"decisionflow/pkg/templates"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infof("Starting %s agent %q in %s mode", cfg.App.Name, cfg.Agent.Role, cfg.App.Env)

	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)

	// Task store: Redis when configured, in-memory otherwise.
	var (
		store       a2a.TaskStore = a2a.NewInMemoryTaskStore()
		redisClient *redisadapter.Client
		rawRedis    interface{}
	)
	if cfg.Redis.Enabled {
		redisClient, err = redisadapter.NewClient(cfg.Redis)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		store = redisrepo.NewTaskStore(redisClient.Client(), cfg.Redis.TaskTTL)
		rawRedis = redisClient.Client()
		log.Infow("Task store backed by Redis", "addr", cfg.Redis.Addr())
	}

	// Providers: agents run in fallback mode when no key is configured.
	providers, err := ai.BuildRegistry(cfg.AI, rawRedis)
	if err != nil {
		if !errors.Is(err, errors.ErrProviderUnavailable) {
			log.Fatalf("Failed to build AI provider registry: %v", err)
		}
		log.Warn("No AI provider configured, agents will use fallback responses")
		providers = ai.NewProviderRegistry()
	}

	deps := agents.Deps{
		Cfg:       cfg,
		Providers: providers,
		Templates: templates.Get(),
		Costs:     agents.NewCostTracker(),
		Clients:   agents.DownstreamClients(cfg),
	}
	executor, err := agents.Build(deps)
	if err != nil {
		log.Fatalf("Failed to build %s executor: %v", cfg.Agent.Role, err)
	}

	handler := a2a.NewRequestHandler(executor, store,
		a2a.WithBlockTimeout(cfg.Agent.ExecutionTimeout),
		a2a.WithErrorTracker(errorTracker),
	)

	card := agents.Card(cfg.Agent.Role, cfg.Agent.BaseURL(), cfg.App.Version)
	opts := []a2a.ServerOption{
		a2a.WithHealth(healthHandlers(cfg, redisClient)),
	}
	if cfg.Auth.Enabled {
		opts = append(opts, a2a.WithJWT(auth.NewJWTService(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)))
		log.Info("JWT authentication enabled")
	}
	server := a2a.NewServer(card, handler, cfg, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go waitForShutdown(cancel, log)

	if err := server.Start(ctx); err != nil {
		log.Fatalf("Agent server failed: %v", err)
	}

	_ = errorTracker.Flush(context.Background())
	log.Info("Agent stopped")
}

// initErrorTracker initializes error tracking (Sentry or no-op).
func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return noop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

// healthHandlers builds the liveness and readiness probes. Readiness covers
// Redis when enabled and, for the router, the downstream agent cards.
func healthHandlers(cfg *config.Config, redisClient *redisadapter.Client) (http.HandlerFunc, http.HandlerFunc) {
	var checks []health.Check
	if redisClient != nil {
		checks = append(checks, health.Check{Name: "redis", Fn: redisClient.Health})
	}
	if cfg.Agent.Role == config.RoleRouter {
		for role, url := range map[string]string{
			config.RoleGetInfo:      cfg.Agent.GetInfoURL,
			config.RoleCreatePlan:   cfg.Agent.CreatePlanURL,
			config.RoleTaskExecutor: cfg.Agent.TaskExecutorURL,
			config.RoleNoAction:     cfg.Agent.NoActionURL,
		} {
			client := a2a.NewClient(url)
			checks = append(checks, health.Check{Name: role, Fn: func(ctx context.Context) error {
				_, err := client.ResolveCard(ctx)
				return err
			}})
		}
	}

	h := health.NewHandler(cfg.App.Version, checks...)
	return h.Liveness, h.Readiness
}

// waitForShutdown blocks until SIGINT or SIGTERM and cancels the run context.
func waitForShutdown(cancel context.CancelFunc, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Shutting down...")
	cancel()
}
