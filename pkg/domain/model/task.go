package model

import (
	"time"

	"github.com/soc-lab/kestrel/pkg/domain/types"
)

// ScheduledTask is a passthrough record owned by the remote scheduler
// service. This service displays and controls tasks but does not run them;
// field semantics beyond identity are whatever the scheduler returns.
type ScheduledTask struct {
	ID       types.TaskID `json:"id"`
	Name     string       `json:"name"`
	Type     string       `json:"type"`
	Schedule string       `json:"schedule"`
	Enabled  bool         `json:"enabled"`
	LastRun  *time.Time   `json:"last_run,omitempty"`
	NextRun  *time.Time   `json:"next_run,omitempty"`
}
