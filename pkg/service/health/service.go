package health

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/soc-lab/kestrel/pkg/domain/interfaces"
	"github.com/soc-lab/kestrel/pkg/domain/types"
)

// DefaultInterval matches the dashboard's 30 second connection checks
const DefaultInterval = 30 * time.Second

// Status is a point-in-time snapshot of collaborator health
type Status struct {
	WorkflowOK      bool      `json:"workflow_ok"`
	LLMConfigured   bool      `json:"llm_configured"`
	StoreConfigured bool      `json:"store_configured"`
	CheckedAt       time.Time `json:"checked_at"`
}

// EngineReady reports whether the given chat engine has everything it needs.
// The SOAR engine needs the workflow proxy and the incident store; the AI
// engine needs the LLM and the incident store.
func (s Status) EngineReady(engine types.Engine) bool {
	switch engine {
	case types.EngineSOAR:
		return s.WorkflowOK && s.StoreConfigured
	case types.EngineAI:
		return s.LLMConfigured && s.StoreConfigured
	default:
		return false
	}
}

// Service runs one shared health poll and fans snapshots out to subscribers.
// Components subscribe instead of running their own timers, so mounting the
// same view twice no longer duplicates polling traffic.
type Service struct {
	workflow interfaces.WorkflowClient
	llm      interface{ IsConfigured() bool }
	store    interfaces.IncidentStore
	interval time.Duration

	mu          sync.RWMutex
	current     Status
	subscribers map[int]chan Status
	nextSubID   int
}

// New creates a health service; interval <= 0 selects the default
func New(workflow interfaces.WorkflowClient, llm interface{ IsConfigured() bool }, store interfaces.IncidentStore, interval time.Duration) *Service {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Service{
		workflow:    workflow,
		llm:         llm,
		store:       store,
		interval:    interval,
		subscribers: make(map[int]chan Status),
	}
}

// Run polls until the context is cancelled. The first check happens
// immediately so subscribers do not wait a full interval for a snapshot.
func (s *Service) Run(ctx context.Context) {
	logger := ctxlog.From(ctx)
	logger.Info("health poller started", "interval", s.interval)

	s.check(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("health poller stopped")
			return
		case <-ticker.C:
			s.check(ctx)
		}
	}
}

// Current returns the latest snapshot
func (s *Service) Current() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Subscribe registers a listener for status snapshots. The returned cancel
// function removes the subscription and closes the channel.
func (s *Service) Subscribe() (<-chan Status, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	ch := make(chan Status, 1)
	s.subscribers[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(sub)
		}
	}
}

// CheckNow re-probes every collaborator immediately and returns the fresh
// snapshot, outside the regular poll cadence.
func (s *Service) CheckNow(ctx context.Context) Status {
	return s.check(ctx)
}

// MarkEngineDown records that the collaborator backing the given engine just
// failed a call, without waiting for the next poll to notice. The poll
// re-probes on its own schedule, so a recovered collaborator comes back on
// the next tick.
func (s *Service) MarkEngineDown(engine types.Engine) {
	s.mu.Lock()
	switch engine {
	case types.EngineSOAR:
		s.current.WorkflowOK = false
	case types.EngineAI:
		s.current.LLMConfigured = false
	default:
		s.mu.Unlock()
		return
	}
	s.current.CheckedAt = time.Now()
	status := s.current
	s.mu.Unlock()

	s.publish(status)
}

func (s *Service) check(ctx context.Context) Status {
	status := Status{
		LLMConfigured:   s.llm != nil && s.llm.IsConfigured(),
		StoreConfigured: s.store != nil && s.store.IsConfigured(),
		CheckedAt:       time.Now(),
	}
	if s.workflow != nil {
		status.WorkflowOK = s.workflow.Ping(ctx)
	}

	s.mu.Lock()
	s.current = status
	s.mu.Unlock()

	s.publish(status)
	return status
}

func (s *Service) publish(status Status) {
	s.mu.RLock()
	subs := make([]chan Status, 0, len(s.subscribers))
	for _, ch := range s.subscribers {
		subs = append(subs, ch)
	}
	s.mu.RUnlock()

	for _, ch := range subs {
		// Drop rather than block on a slow subscriber
		select {
		case ch <- status:
		default:
		}
	}
}
