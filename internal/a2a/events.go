package a2a

import (
	"context"
	"sync"

	pkgerrors "decisionflow/pkg/errors"
)

// Event is anything an executor can publish while working on a task.
type Event interface {
	eventKind() string
}

func (Message) eventKind() string { return KindMessage }

// StatusUpdateEvent moves a task to a new state. Final marks the update
// that closes the stream for the task.
type StatusUpdateEvent struct {
	Kind      string     `json:"kind"`
	TaskID    string     `json:"taskId"`
	ContextID string     `json:"contextId"`
	Status    TaskStatus `json:"status"`
	Final     bool       `json:"final"`
}

func (StatusUpdateEvent) eventKind() string { return KindStatusUpdate }

// NewStatusUpdateEvent builds a status update for the given task.
func NewStatusUpdateEvent(taskID, contextID string, status TaskStatus, final bool) StatusUpdateEvent {
	return StatusUpdateEvent{
		Kind:      KindStatusUpdate,
		TaskID:    taskID,
		ContextID: contextID,
		Status:    status,
		Final:     final,
	}
}

// ArtifactUpdateEvent attaches an artifact to a task.
type ArtifactUpdateEvent struct {
	Kind      string   `json:"kind"`
	TaskID    string   `json:"taskId"`
	ContextID string   `json:"contextId"`
	Artifact  Artifact `json:"artifact"`
}

func (ArtifactUpdateEvent) eventKind() string { return KindArtifactUpdate }

// NewArtifactUpdateEvent builds an artifact update for the given task.
func NewArtifactUpdateEvent(taskID, contextID string, artifact Artifact) ArtifactUpdateEvent {
	return ArtifactUpdateEvent{
		Kind:      KindArtifactUpdate,
		TaskID:    taskID,
		ContextID: contextID,
		Artifact:  artifact,
	}
}

// EventQueue carries events from an executor to the request handler.
// Enqueue after Close is a no-op returning an error, so a slow consumer
// shutting down never panics the producer.
type EventQueue struct {
	mu     sync.Mutex
	ch     chan Event
	closed bool
}

// NewEventQueue creates a queue with the given buffer size.
func NewEventQueue(size int) *EventQueue {
	if size <= 0 {
		size = 16
	}
	return &EventQueue{ch: make(chan Event, size)}
}

// Enqueue publishes an event, blocking until the consumer accepts it or
// the context is done.
func (q *EventQueue) Enqueue(ctx context.Context, ev Event) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return pkgerrors.Wrap(pkgerrors.ErrInternal, "event queue is closed")
	}
	q.mu.Unlock()

	select {
	case q.ch <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Events returns the consumer side of the queue. The channel is closed
// when the producer calls Close.
func (q *EventQueue) Events() <-chan Event {
	return q.ch
}

// Close marks the queue closed and releases the consumer.
func (q *EventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}
