package remote

import (
	"context"
	"net/http"
	"time"

	"github.com/soc-lab/kestrel/pkg/domain/model"
	"github.com/soc-lab/kestrel/pkg/domain/types"
)

// Scheduler talks to the remote task scheduler's REST API
type Scheduler struct {
	rest *restClient
}

// NewScheduler creates a scheduler client for the given base URL
func NewScheduler(baseURL string, timeout time.Duration) *Scheduler {
	return &Scheduler{rest: newRESTClient(baseURL, timeout)}
}

// ListTasks returns all scheduled tasks
func (s *Scheduler) ListTasks(ctx context.Context) ([]*model.ScheduledTask, error) {
	var tasks []*model.ScheduledTask
	if err := s.rest.do(ctx, http.MethodGet, "/tasks", nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// GetTask returns one task by ID
func (s *Scheduler) GetTask(ctx context.Context, id types.TaskID) (*model.ScheduledTask, error) {
	var task model.ScheduledTask
	if err := s.rest.do(ctx, http.MethodGet, "/tasks/"+string(id), nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// CreateTask registers a new task and returns the stored record
func (s *Scheduler) CreateTask(ctx context.Context, task *model.ScheduledTask) (*model.ScheduledTask, error) {
	var created model.ScheduledTask
	if err := s.rest.do(ctx, http.MethodPost, "/tasks", task, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateTask replaces an existing task definition
func (s *Scheduler) UpdateTask(ctx context.Context, task *model.ScheduledTask) (*model.ScheduledTask, error) {
	var updated model.ScheduledTask
	if err := s.rest.do(ctx, http.MethodPut, "/tasks/"+string(task.ID), task, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteTask removes a task
func (s *Scheduler) DeleteTask(ctx context.Context, id types.TaskID) error {
	return s.rest.do(ctx, http.MethodDelete, "/tasks/"+string(id), nil, nil)
}

// PauseTask suspends a task without removing it
func (s *Scheduler) PauseTask(ctx context.Context, id types.TaskID) error {
	return s.rest.do(ctx, http.MethodPost, "/tasks/"+string(id)+"/pause", nil, nil)
}

// ResumeTask reactivates a paused task
func (s *Scheduler) ResumeTask(ctx context.Context, id types.TaskID) error {
	return s.rest.do(ctx, http.MethodPost, "/tasks/"+string(id)+"/resume", nil, nil)
}

// Status returns the scheduler's own health document unchanged
func (s *Scheduler) Status(ctx context.Context) (map[string]any, error) {
	var status map[string]any
	if err := s.rest.do(ctx, http.MethodGet, "/status", nil, &status); err != nil {
		return nil, err
	}
	return status, nil
}
