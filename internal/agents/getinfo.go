package agents

import (
	"context"

	"decisionflow/internal/a2a"
	"decisionflow/internal/adapters/config"
)

// GetInfoExecutor asks the user for the details missing from their request.
// It leaves the task in the input-required state so the conversation can
// continue on the same task.
type GetInfoExecutor struct {
	*BaseExecutor
}

// NewGetInfoExecutor creates the information gathering agent.
func NewGetInfoExecutor(deps Deps) (*GetInfoExecutor, error) {
	base, err := NewBaseExecutor(config.RoleGetInfo, deps, nil)
	if err != nil {
		return nil, err
	}
	return &GetInfoExecutor{BaseExecutor: base}, nil
}

// Execute generates clarifying questions and pauses the task.
func (g *GetInfoExecutor) Execute(ctx context.Context, rc *a2a.RequestContext, queue *a2a.EventQueue) error {
	questions, err := g.Generate(ctx, rc.History(), false)
	if err != nil {
		return err
	}

	msg := a2a.NewAgentTextMessage(questions, rc.TaskID, rc.ContextID)
	status := a2a.NewTaskStatus(a2a.TaskStateInputRequired, &msg)
	return queue.Enqueue(ctx, a2a.NewStatusUpdateEvent(rc.TaskID, rc.ContextID, status, true))
}
