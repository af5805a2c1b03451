package agents

import (
	"context"

	"decisionflow/internal/a2a"
	"decisionflow/internal/adapters/config"
)

// TaskExecExecutor carries out concrete tasks: bookings, calculations,
// lookups, drafts. It receives either a direct user request or a JSON
// execution context handed over by the planner.
type TaskExecExecutor struct {
	*BaseExecutor
}

// NewTaskExecExecutor creates the task execution agent.
func NewTaskExecExecutor(deps Deps) (*TaskExecExecutor, error) {
	base, err := NewBaseExecutor(config.RoleTaskExecutor, deps, nil)
	if err != nil {
		return nil, err
	}
	return &TaskExecExecutor{BaseExecutor: base}, nil
}

// Execute performs the requested work and reports the result.
func (t *TaskExecExecutor) Execute(ctx context.Context, rc *a2a.RequestContext, queue *a2a.EventQueue) error {
	result, err := t.Generate(ctx, rc.History(), false)
	if err != nil {
		return err
	}
	return t.Reply(ctx, rc, queue, result)
}
