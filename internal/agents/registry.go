package agents

import (
	"decisionflow/internal/a2a"
	"decisionflow/internal/adapters/config"
	pkgerrors "decisionflow/pkg/errors"
)

// Build constructs the executor for the configured role and engine.
func Build(deps Deps) (a2a.Executor, error) {
	role := deps.Cfg.Agent.Role

	if deps.Cfg.Agent.Engine == config.EngineADK {
		// The router always uses the chat engine: its forwarding logic
		// lives outside the model loop.
		if role != config.RoleRouter {
			return NewADKExecutor(role, deps)
		}
	}

	switch role {
	case config.RoleRouter:
		return NewRouterExecutor(deps)
	case config.RoleGetInfo:
		return NewGetInfoExecutor(deps)
	case config.RoleCreatePlan:
		return NewPlannerExecutor(deps)
	case config.RoleTaskExecutor:
		return NewTaskExecExecutor(deps)
	case config.RoleNoAction:
		return NewNoActionExecutor(deps)
	default:
		return nil, pkgerrors.Wrapf(pkgerrors.ErrInvalidInput, "unknown agent role %q", role)
	}
}

// DownstreamClients builds the clients the role needs for forwarding.
func DownstreamClients(cfg *config.Config, opts ...a2a.ClientOption) map[string]*a2a.Client {
	switch cfg.Agent.Role {
	case config.RoleRouter:
		return map[string]*a2a.Client{
			config.RoleGetInfo:      a2a.NewClient(cfg.Agent.GetInfoURL, opts...),
			config.RoleCreatePlan:   a2a.NewClient(cfg.Agent.CreatePlanURL, opts...),
			config.RoleTaskExecutor: a2a.NewClient(cfg.Agent.TaskExecutorURL, opts...),
			config.RoleNoAction:     a2a.NewClient(cfg.Agent.NoActionURL, opts...),
		}
	case config.RoleCreatePlan:
		return map[string]*a2a.Client{
			config.RoleTaskExecutor: a2a.NewClient(cfg.Agent.TaskExecutorURL, opts...),
		}
	default:
		return nil
	}
}

// promptDataForRole returns the template data a role's prompt expects.
func promptDataForRole(role string) any {
	if role == config.RoleRouter {
		return map[string]any{"Routes": knownRoutes}
	}
	return nil
}
