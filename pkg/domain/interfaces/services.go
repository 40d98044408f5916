package interfaces

//go:generate moq -out mocks/services_mock.go -pkg mocks . LLMClient WorkflowClient IncidentStore Notifier SchedulerClient IDSClient

import (
	"context"

	"github.com/soc-lab/kestrel/pkg/domain/model"
	"github.com/soc-lab/kestrel/pkg/domain/types"
)

// LLMClient defines the minimal surface of the chat-completion backend.
// Prompt construction and response parsing live in the LLM service.
type LLMClient interface {
	GenerateResponse(ctx context.Context, prompt string) (string, error)
}

// WorkflowClient defines the workflow automation (SOAR engine) surface
type WorkflowClient interface {
	// Ping never returns an error; an unreachable service yields false
	Ping(ctx context.Context) bool
	CallAgent(ctx context.Context, req *model.WorkflowRequest) (*model.WorkflowReply, error)
	Trigger(ctx context.Context, req *model.WorkflowRequest) (*model.WorkflowReply, error)
}

// IncidentStore defines the authoritative incident storage surface
type IncidentStore interface {
	Append(ctx context.Context, incident *model.Incident) error
	BulkAppend(ctx context.Context, incidents []*model.Incident) (int, error)
	List(ctx context.Context) ([]*model.Incident, error)
	UpdateStatus(ctx context.Context, eventID types.EventID, status types.IncidentStatus, actionTaken string) error
	IsConfigured() bool
}

// CSVIncidentSource is the unauthenticated read path some incident stores
// expose alongside their API access. Callers discover it by type assertion.
type CSVIncidentSource interface {
	ListCSV(ctx context.Context) ([]*model.Incident, error)
}

// EngineHealth receives engine failure reports so status readers see a
// dispatch failure before the next poll
type EngineHealth interface {
	MarkEngineDown(engine types.Engine)
}

// Notifier delivers incident lifecycle notifications to analysts
type Notifier interface {
	NotifyIncidentCreated(ctx context.Context, incident *model.Incident) error
	NotifyStatusChanged(ctx context.Context, incident *model.Incident, previous types.IncidentStatus) error
}

// SchedulerClient wraps the remote scheduler's task CRUD API
type SchedulerClient interface {
	ListTasks(ctx context.Context) ([]*model.ScheduledTask, error)
	GetTask(ctx context.Context, id types.TaskID) (*model.ScheduledTask, error)
	CreateTask(ctx context.Context, task *model.ScheduledTask) (*model.ScheduledTask, error)
	UpdateTask(ctx context.Context, task *model.ScheduledTask) (*model.ScheduledTask, error)
	DeleteTask(ctx context.Context, id types.TaskID) error
	PauseTask(ctx context.Context, id types.TaskID) error
	ResumeTask(ctx context.Context, id types.TaskID) error
	Status(ctx context.Context) (map[string]any, error)
}

// IDSClient wraps the remote intrusion detection system's control API
type IDSClient interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Status(ctx context.Context) (*model.IDSStatus, error)
	Logs(ctx context.Context, limit int) ([]*model.IDSLog, error)
	LogsByIP(ctx context.Context, ip string) ([]*model.IDSLog, error)
	Alerts(ctx context.Context) ([]*model.IDSAlert, error)
}
