package agents

import (
	"context"

	"decisionflow/internal/a2a"
	"decisionflow/internal/adapters/config"
)

// NoActionExecutor handles greetings and small talk that need neither
// planning nor execution.
type NoActionExecutor struct {
	*BaseExecutor
}

// NewNoActionExecutor creates the conversational agent.
func NewNoActionExecutor(deps Deps) (*NoActionExecutor, error) {
	base, err := NewBaseExecutor(config.RoleNoAction, deps, nil)
	if err != nil {
		return nil, err
	}
	return &NoActionExecutor{BaseExecutor: base}, nil
}

// Execute replies conversationally.
func (n *NoActionExecutor) Execute(ctx context.Context, rc *a2a.RequestContext, queue *a2a.EventQueue) error {
	reply, err := n.Generate(ctx, rc.History(), false)
	if err != nil {
		return err
	}
	return n.Reply(ctx, rc, queue, reply)
}
