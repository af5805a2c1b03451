package redis

import (
	"context"
	"encoding/json"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"decisionflow/internal/a2a"
	pkgerrors "decisionflow/pkg/errors"
)

const taskKeyPrefix = "decisionflow:task:"

// TaskStore persists tasks in Redis so they survive restarts and are
// visible to every replica of an agent.
type TaskStore struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewTaskStore creates a store writing through the given client. Tasks
// expire after ttl; zero disables expiration.
func NewTaskStore(client *goredis.Client, ttl time.Duration) *TaskStore {
	return &TaskStore{client: client, ttl: ttl}
}

// Get loads a task by id.
func (s *TaskStore) Get(ctx context.Context, id string) (*a2a.Task, error) {
	data, err := s.client.Get(ctx, taskKeyPrefix+id).Bytes()
	if err == goredis.Nil {
		return nil, pkgerrors.Wrapf(pkgerrors.ErrTaskNotFound, "task %s", id)
	}
	if err != nil {
		return nil, pkgerrors.Wrapf(pkgerrors.ErrUnavailable, "redis get task %s: %v", id, err)
	}
	var task a2a.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, pkgerrors.Wrapf(pkgerrors.ErrInternal, "decode task %s: %v", id, err)
	}
	return &task, nil
}

// Save writes the task back, refreshing its TTL.
func (s *TaskStore) Save(ctx context.Context, task *a2a.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return pkgerrors.Wrapf(pkgerrors.ErrInternal, "encode task %s: %v", task.ID, err)
	}
	if err := s.client.Set(ctx, taskKeyPrefix+task.ID, data, s.ttl).Err(); err != nil {
		return pkgerrors.Wrapf(pkgerrors.ErrUnavailable, "redis save task %s: %v", task.ID, err)
	}
	return nil
}

// Delete removes the task. Deleting an unknown task is not an error.
func (s *TaskStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, taskKeyPrefix+id).Err(); err != nil {
		return pkgerrors.Wrapf(pkgerrors.ErrUnavailable, "redis delete task %s: %v", id, err)
	}
	return nil
}
