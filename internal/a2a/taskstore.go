package a2a

import (
	"context"
	"sync"

	pkgerrors "decisionflow/pkg/errors"
)

// TaskStore persists tasks between protocol calls.
type TaskStore interface {
	Get(ctx context.Context, id string) (*Task, error)
	Save(ctx context.Context, task *Task) error
	Delete(ctx context.Context, id string) error
}

// InMemoryTaskStore keeps tasks in a map. It is the default store when no
// Redis connection is configured.
type InMemoryTaskStore struct {
	mu    sync.RWMutex
	tasks map[string]*Task
}

// NewInMemoryTaskStore creates an empty store.
func NewInMemoryTaskStore() *InMemoryTaskStore {
	return &InMemoryTaskStore{tasks: make(map[string]*Task)}
}

// Get returns a copy of the stored task.
func (s *InMemoryTaskStore) Get(_ context.Context, id string) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, pkgerrors.Wrapf(pkgerrors.ErrTaskNotFound, "task %s", id)
	}
	cp := *task
	cp.History = append([]Message(nil), task.History...)
	cp.Artifacts = append([]Artifact(nil), task.Artifacts...)
	return &cp, nil
}

// Save stores a copy of the task.
func (s *InMemoryTaskStore) Save(_ context.Context, task *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *task
	cp.History = append([]Message(nil), task.History...)
	cp.Artifacts = append([]Artifact(nil), task.Artifacts...)
	s.tasks[task.ID] = &cp
	return nil
}

// Delete removes the task. Deleting an unknown task is not an error.
func (s *InMemoryTaskStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, id)
	return nil
}
