package a2a

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	nooptracker "decisionflow/internal/adapters/errors/noop"
	"decisionflow/internal/metrics"
	pkgerrors "decisionflow/pkg/errors"
	"decisionflow/pkg/logger"
)

// Executor runs the agent logic for a single request. Implementations
// publish progress through the event queue and return once the task has
// reached its final state or the context is canceled.
type Executor interface {
	Execute(ctx context.Context, rc *RequestContext, queue *EventQueue) error
	Cancel(ctx context.Context, rc *RequestContext) error
}

// RequestHandler implements the protocol operations on top of an executor
// and a task store.
type RequestHandler struct {
	executor Executor
	store    TaskStore
	log      *logger.Logger
	tracker  pkgerrors.Tracker

	// blockTimeout caps how long a blocking message/send waits for the
	// task to settle before returning the current snapshot.
	blockTimeout time.Duration

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	waiters map[string]chan struct{}

	subMu       sync.Mutex
	subscribers []*subscriber
}

// HandlerOption customizes a RequestHandler.
type HandlerOption func(*RequestHandler)

// WithBlockTimeout overrides the blocking wait limit.
func WithBlockTimeout(d time.Duration) HandlerOption {
	return func(h *RequestHandler) { h.blockTimeout = d }
}

// WithErrorTracker wires execution failures into an error tracker.
func WithErrorTracker(t pkgerrors.Tracker) HandlerOption {
	return func(h *RequestHandler) { h.tracker = t }
}

// NewRequestHandler creates a handler backed by the given executor and store.
func NewRequestHandler(executor Executor, store TaskStore, opts ...HandlerOption) *RequestHandler {
	h := &RequestHandler{
		executor:     executor,
		store:        store,
		log:          logger.Get(),
		tracker:      nooptracker.New(),
		blockTimeout: 2 * time.Minute,
		cancels:      make(map[string]context.CancelFunc),
		waiters:      make(map[string]chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// OnMessageSend handles message/send. When the request asks for blocking
// semantics it waits for the task to settle; otherwise it returns the
// submitted snapshot immediately.
func (h *RequestHandler) OnMessageSend(ctx context.Context, params MessageSendParams) (*Task, error) {
	rc, _, err := h.startRequest(ctx, params, false)
	if err != nil {
		return nil, err
	}

	blocking := params.Configuration != nil && params.Configuration.Blocking
	if blocking {
		waitCtx, cancel := context.WithTimeout(ctx, h.blockTimeout)
		defer cancel()
		select {
		case <-h.waiter(rc.TaskID):
		case <-waitCtx.Done():
			h.log.Warnw("blocking send timed out, returning snapshot", "task_id", rc.TaskID)
		}
	}

	task, err := h.store.Get(ctx, rc.TaskID)
	if err != nil {
		return nil, err
	}
	return trimForResponse(task, params.Configuration), nil
}

// OnMessageStream handles message/stream. Every event produced by the
// executor is forwarded to sink in order, starting with the initial task
// snapshot. The call returns when the task settles or sink fails.
func (h *RequestHandler) OnMessageStream(ctx context.Context, params MessageSendParams, sink func(Event) error) error {
	rc, events, err := h.startRequest(ctx, params, true)
	if err != nil {
		return err
	}

	if err := sink(snapshotEvent(rc.Task)); err != nil {
		return err
	}

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := sink(ev); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// OnGetTask handles tasks/get.
func (h *RequestHandler) OnGetTask(ctx context.Context, params TaskQueryParams) (*Task, error) {
	if params.ID == "" {
		return nil, pkgerrors.Wrap(pkgerrors.ErrInvalidInput, "task id is required")
	}
	task, err := h.store.Get(ctx, params.ID)
	if err != nil {
		return nil, err
	}
	if params.HistoryLength != nil {
		task = task.TrimHistory(*params.HistoryLength)
	}
	return task, nil
}

// OnCancelTask handles tasks/cancel. Canceling a task that already settled
// is rejected; canceling an active task signals its executor and records
// the canceled state.
func (h *RequestHandler) OnCancelTask(ctx context.Context, params TaskIDParams) (*Task, error) {
	if params.ID == "" {
		return nil, pkgerrors.Wrap(pkgerrors.ErrInvalidInput, "task id is required")
	}
	task, err := h.store.Get(ctx, params.ID)
	if err != nil {
		return nil, err
	}
	if task.Status.State.Terminal() {
		return nil, pkgerrors.Wrapf(pkgerrors.ErrTaskNotCancelable, "task %s is %s", task.ID, task.Status.State)
	}

	rc := &RequestContext{TaskID: task.ID, ContextID: task.ContextID, Task: task}
	if err := h.executor.Cancel(ctx, rc); err != nil {
		return nil, err
	}

	h.mu.Lock()
	if cancel, ok := h.cancels[task.ID]; ok {
		cancel()
	}
	h.mu.Unlock()

	task.Status = NewTaskStatus(TaskStateCanceled, nil)
	if err := h.store.Save(ctx, task); err != nil {
		return nil, err
	}
	metrics.RecordTaskState(string(TaskStateCanceled))
	h.settle(task.ID)
	return task, nil
}

// startRequest validates params, creates or resumes the task, and launches
// the executor in the background. The returned context holds the task as
// it existed when execution began.
func (h *RequestHandler) startRequest(ctx context.Context, params MessageSendParams, wantStream bool) (*RequestContext, <-chan Event, error) {
	if strings.TrimSpace(params.Message.Text()) == "" {
		return nil, nil, pkgerrors.Wrap(pkgerrors.ErrInvalidInput, "message has no text content")
	}
	for _, p := range params.Message.Parts {
		if p.Kind != KindText {
			return nil, nil, pkgerrors.Wrapf(pkgerrors.ErrContentTypeNotSupported, "part kind %q", p.Kind)
		}
	}

	task, err := h.resolveTask(ctx, &params)
	if err != nil {
		return nil, nil, err
	}

	task.History = append(task.History, params.Message)
	task.Status = NewTaskStatus(TaskStateSubmitted, nil)
	if err := h.store.Save(ctx, task); err != nil {
		return nil, nil, err
	}
	metrics.RecordTaskState(string(TaskStateSubmitted))

	rc := &RequestContext{
		TaskID:    task.ID,
		ContextID: task.ContextID,
		Params:    params,
		Task:      task,
	}

	queue := NewEventQueue(32)
	// Execution is detached from the request context so a non-blocking
	// caller disconnecting does not abort the task.
	execCtx, cancel := context.WithCancel(context.Background())
	h.mu.Lock()
	h.cancels[task.ID] = cancel
	h.waiters[task.ID] = make(chan struct{})
	h.mu.Unlock()

	// Streams subscribe before execution starts so no event can slip past.
	var events <-chan Event
	if wantStream {
		events = h.subscribe(task.ID)
	}

	done := make(chan error, 1)
	go func() {
		defer queue.Close()
		done <- h.executor.Execute(execCtx, rc, queue)
	}()
	go h.consume(task.ID, queue, done)

	return rc, events, nil
}

// resolveTask loads the task referenced by the message or creates a new one.
func (h *RequestHandler) resolveTask(ctx context.Context, params *MessageSendParams) (*Task, error) {
	if params.Message.TaskID != "" {
		task, err := h.store.Get(ctx, params.Message.TaskID)
		if err != nil {
			return nil, err
		}
		if task.Status.State.Terminal() {
			return nil, pkgerrors.Wrapf(pkgerrors.ErrInvalidInput,
				"task %s is %s and accepts no further messages", task.ID, task.Status.State)
		}
		return task, nil
	}

	contextID := params.Message.ContextID
	if contextID == "" {
		contextID = uuid.New().String()
	}
	task := &Task{
		Kind:      KindTask,
		ID:        uuid.New().String(),
		ContextID: contextID,
	}
	params.Message.TaskID = task.ID
	params.Message.ContextID = contextID
	return task, nil
}

// consume drains the executor's event queue, persisting every update and
// fanning events out to stream subscribers. It settles the task when the
// executor returns.
func (h *RequestHandler) consume(taskID string, queue *EventQueue, done <-chan error) {
	// Persistence must survive cancellation of the execution context, so
	// store operations run on a fresh context.
	ctx := context.Background()
	started := time.Now()
	for ev := range queue.Events() {
		if err := h.applyEvent(ctx, taskID, ev); err != nil {
			h.log.Errorw("failed to apply task event", "task_id", taskID, "error", err)
		}
		h.publish(taskID, ev)
	}

	err := <-done
	final := h.finalState(ctx, taskID, err)
	if final != nil {
		h.publish(taskID, *final)
	}
	metrics.ObserveTaskDuration(time.Since(started).Seconds())

	h.mu.Lock()
	delete(h.cancels, taskID)
	h.mu.Unlock()
	h.settle(taskID)
	h.closeSubscribers(taskID)
}

// applyEvent folds one executor event into the stored task.
func (h *RequestHandler) applyEvent(ctx context.Context, taskID string, ev Event) error {
	task, err := h.store.Get(ctx, taskID)
	if err != nil {
		return err
	}
	if task.Status.State.Terminal() {
		// Late events after cancellation are dropped.
		return nil
	}

	switch e := ev.(type) {
	case Message:
		task.History = append(task.History, e)
		task.Status = NewTaskStatus(TaskStateWorking, nil)
	case StatusUpdateEvent:
		task.Status = e.Status
		if e.Status.Message != nil {
			task.History = append(task.History, *e.Status.Message)
		}
		metrics.RecordTaskState(string(e.Status.State))
	case ArtifactUpdateEvent:
		task.Artifacts = append(task.Artifacts, e.Artifact)
	}
	return h.store.Save(ctx, task)
}

// finalState closes out the task after the executor returns, deriving the
// terminal state from the executor error and the last recorded status.
func (h *RequestHandler) finalState(ctx context.Context, taskID string, execErr error) *StatusUpdateEvent {
	task, err := h.store.Get(ctx, taskID)
	if err != nil {
		h.log.Errorw("failed to load task for settlement", "task_id", taskID, "error", err)
		return nil
	}
	if task.Status.State.Terminal() || task.Status.State == TaskStateInputRequired {
		return nil
	}

	var status TaskStatus
	switch {
	case execErr != nil && pkgerrors.Is(execErr, context.Canceled):
		status = NewTaskStatus(TaskStateCanceled, nil)
	case execErr != nil:
		_ = h.tracker.CaptureError(ctx, execErr, map[string]string{"task_id": taskID})
		h.log.Errorw("executor failed", "task_id", taskID, "error", execErr)
		msg := NewAgentTextMessage("The request could not be processed: "+execErr.Error(), taskID, task.ContextID)
		status = NewTaskStatus(TaskStateFailed, &msg)
	default:
		status = NewTaskStatus(TaskStateCompleted, lastAgentMessage(task))
	}

	task.Status = TaskStatus{State: status.State, Timestamp: status.Timestamp, Message: status.Message}
	if execErr != nil && status.Message != nil {
		task.History = append(task.History, *status.Message)
	}
	if err := h.store.Save(ctx, task); err != nil {
		h.log.Errorw("failed to persist final task state", "task_id", taskID, "error", err)
	}
	metrics.RecordTaskState(string(status.State))

	ev := NewStatusUpdateEvent(taskID, task.ContextID, status, true)
	return &ev
}

func lastAgentMessage(task *Task) *Message {
	for i := len(task.History) - 1; i >= 0; i-- {
		if task.History[i].Role == RoleAgent {
			m := task.History[i]
			return &m
		}
	}
	return nil
}

func trimForResponse(task *Task, cfg *MessageSendConfiguration) *Task {
	if cfg != nil && cfg.HistoryLength != nil {
		return task.TrimHistory(*cfg.HistoryLength)
	}
	return task
}

func snapshotEvent(task *Task) Event {
	cp := *task
	return taskSnapshot{Task: &cp}
}

// taskSnapshot wraps the initial task object sent as the first frame of a
// stream.
type taskSnapshot struct {
	*Task
}

func (taskSnapshot) eventKind() string { return KindTask }

// --- stream fan-out and blocking waiters ---

type subscriber struct {
	taskID string
	ch     chan Event
}

func (h *RequestHandler) subscribe(taskID string) <-chan Event {
	sub := &subscriber{taskID: taskID, ch: make(chan Event, 32)}
	h.subMu.Lock()
	h.subscribers = append(h.subscribers, sub)
	h.subMu.Unlock()
	return sub.ch
}

func (h *RequestHandler) publish(taskID string, ev Event) {
	h.subMu.Lock()
	defer h.subMu.Unlock()
	for _, sub := range h.subscribers {
		if sub.taskID != taskID {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			// Slow subscriber; drop rather than stall execution.
		}
	}
}

func (h *RequestHandler) closeSubscribers(taskID string) {
	h.subMu.Lock()
	defer h.subMu.Unlock()
	kept := h.subscribers[:0]
	for _, sub := range h.subscribers {
		if sub.taskID == taskID {
			close(sub.ch)
			continue
		}
		kept = append(kept, sub)
	}
	h.subscribers = kept
}

func (h *RequestHandler) waiter(taskID string) <-chan struct{} {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch, ok := h.waiters[taskID]
	if !ok {
		ch = make(chan struct{})
		close(ch)
	}
	return ch
}

func (h *RequestHandler) settle(taskID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.waiters[taskID]; ok {
		select {
		case <-ch:
		default:
			close(ch)
		}
		delete(h.waiters, taskID)
	}
}
