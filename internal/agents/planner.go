package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"decisionflow/internal/a2a"
	"decisionflow/internal/adapters/config"
	"decisionflow/internal/metrics"
	pkgerrors "decisionflow/pkg/errors"
)

// Plan is the structured output the planning model must produce.
type Plan struct {
	Overview          string     `json:"overview"`
	Steps             []PlanStep `json:"steps"`
	EstimatedDuration string     `json:"estimated_duration"`
	EstimatedCost     string     `json:"estimated_cost"`
	NeedsExecution    bool       `json:"needs_execution"`
	ExecutionTasks    []string   `json:"execution_tasks"`
}

// PlanStep is one actionable step of a plan.
type PlanStep struct {
	Step      string   `json:"step"`
	Timeline  string   `json:"timeline"`
	Resources []string `json:"resources"`
	Notes     string   `json:"notes"`
}

type planEnvelope struct {
	Plan Plan `json:"plan"`
}

// PlannerExecutor turns a request into a structured, step-by-step plan.
// Plans that need execution assistance are handed to the task executor
// agent and its confirmation is appended to the reply.
type PlannerExecutor struct {
	*BaseExecutor
}

// NewPlannerExecutor creates the planning agent.
func NewPlannerExecutor(deps Deps) (*PlannerExecutor, error) {
	base, err := NewBaseExecutor(config.RoleCreatePlan, deps, nil)
	if err != nil {
		return nil, err
	}
	return &PlannerExecutor{BaseExecutor: base}, nil
}

// Execute produces the plan, publishes it as text plus a JSON artifact, and
// optionally delegates execution.
func (p *PlannerExecutor) Execute(ctx context.Context, rc *a2a.RequestContext, queue *a2a.EventQueue) error {
	raw, err := p.Generate(ctx, rc.History(), true)
	if err != nil {
		return err
	}
	if raw == fallbackReply {
		return p.Reply(ctx, rc, queue, raw)
	}

	plan, err := ParsePlan(raw)
	if err != nil {
		return err
	}

	if err := p.Reply(ctx, rc, queue, FormatPlan(plan)); err != nil {
		return err
	}

	// The machine-readable plan travels as an artifact next to the
	// formatted text.
	planJSON, err := json.MarshalIndent(planEnvelope{Plan: *plan}, "", "  ")
	if err != nil {
		return pkgerrors.Wrap(err, "encode plan artifact")
	}
	artifact := a2a.NewTextArtifact("plan.json", string(planJSON))
	if err := queue.Enqueue(ctx, a2a.NewArtifactUpdateEvent(rc.TaskID, rc.ContextID, artifact)); err != nil {
		return err
	}

	if !plan.NeedsExecution {
		return p.Reply(ctx, rc, queue,
			"✅ Plan is ready for your review. No automated execution is needed for this plan.")
	}

	return p.delegateExecution(ctx, rc, queue, plan)
}

// delegateExecution forwards the execution tasks to the task executor agent.
func (p *PlannerExecutor) delegateExecution(ctx context.Context, rc *a2a.RequestContext, queue *a2a.EventQueue, plan *Plan) error {
	if err := p.Reply(ctx, rc, queue,
		"🔄 This plan requires execution assistance. Forwarding to Task Executor..."); err != nil {
		return err
	}

	client, ok := p.Client(config.RoleTaskExecutor)
	if !ok {
		return p.Reply(ctx, rc, queue,
			"The task executor agent is not configured, so the plan was not executed automatically.")
	}

	payload, err := json.Marshal(map[string]any{
		"plan":  plan,
		"tasks": plan.ExecutionTasks,
	})
	if err != nil {
		return pkgerrors.Wrap(err, "encode execution context")
	}

	result, err := client.SendMessage(ctx, a2a.MessageSendParams{
		Message:       a2a.NewUserTextMessage(string(payload)),
		Configuration: &a2a.MessageSendConfiguration{Blocking: true},
	})
	if err != nil {
		metrics.RecordForwardFailure(config.RoleTaskExecutor)
		p.log.Errorw("task executor unreachable", "task_id", rc.TaskID, "error", err)
		return p.Reply(ctx, rc, queue,
			"The plan is ready, but the task executor could not be reached to carry it out.")
	}
	if text := result.Text(); text != "" {
		return p.Reply(ctx, rc, queue, text)
	}
	return nil
}

// ParsePlan decodes the model output into a plan, tolerating surrounding
// prose and markdown fences.
func ParsePlan(raw string) (*Plan, error) {
	var envelope planEnvelope
	if err := json.Unmarshal([]byte(extractJSON(raw)), &envelope); err != nil {
		return nil, pkgerrors.Wrapf(pkgerrors.ErrMalformedPlan, "decode plan: %v", err)
	}
	if envelope.Plan.Overview == "" && len(envelope.Plan.Steps) == 0 {
		return nil, pkgerrors.Wrap(pkgerrors.ErrMalformedPlan, "plan has no overview and no steps")
	}
	return &envelope.Plan, nil
}

// FormatPlan renders the plan the way users see it.
func FormatPlan(plan *Plan) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📋 **Plan Overview**\n%s\n\n", plan.Overview)
	fmt.Fprintf(&sb, "⏱️ **Estimated Duration**: %s\n", plan.EstimatedDuration)
	fmt.Fprintf(&sb, "💰 **Estimated Cost**: %s\n\n", plan.EstimatedCost)
	sb.WriteString("📝 **Step-by-Step Plan**:\n")

	for i, step := range plan.Steps {
		fmt.Fprintf(&sb, "\n%d. %s\n", i+1, step.Step)
		fmt.Fprintf(&sb, "   ⏰ Timeline: %s\n", step.Timeline)
		fmt.Fprintf(&sb, "   🔧 Resources: %s\n", strings.Join(step.Resources, ", "))
		fmt.Fprintf(&sb, "   📌 Note: %s\n", step.Notes)
	}
	return sb.String()
}
