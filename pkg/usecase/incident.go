package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/soc-lab/kestrel/pkg/domain/interfaces"
	"github.com/soc-lab/kestrel/pkg/domain/model"
	"github.com/soc-lab/kestrel/pkg/domain/types"
	"github.com/soc-lab/kestrel/pkg/service/llm"
	"github.com/soc-lab/kestrel/pkg/utils/apperr"
	"github.com/soc-lab/kestrel/pkg/utils/async"
	"github.com/soc-lab/kestrel/pkg/utils/metrics"
)

const (
	defaultSeverity    = "Medium"
	defaultActionTaken = "Under Review"
)

var inputValidator = validator.New()

// Incidents implements the incident management use case. The incident store
// is authoritative; the repository is a read cache refreshed on each
// successful store read, so the list endpoint keeps working while the store
// is unreachable.
type Incidents struct {
	repo       interfaces.Repository
	store      interfaces.IncidentStore
	llmService *llm.Service
	notifier   interfaces.Notifier
	severities *model.SeveritiesConfig
	metrics    *metrics.Metrics
}

// NewIncidents creates the incident use case
func NewIncidents(repo interfaces.Repository, store interfaces.IncidentStore, llmService *llm.Service, notifier interfaces.Notifier, severities *model.SeveritiesConfig, m *metrics.Metrics) *Incidents {
	if severities == nil {
		severities = model.DefaultSeverities()
	}
	return &Incidents{
		repo:       repo,
		store:      store,
		llmService: llmService,
		notifier:   notifier,
		severities: severities,
		metrics:    m,
	}
}

// List returns every stored incident, newest data first from the
// authoritative store. When the store read fails the cached copy is
// returned instead.
func (u *Incidents) List(ctx context.Context) ([]*model.Incident, error) {
	logger := ctxlog.From(ctx)

	if u.store != nil && u.store.IsConfigured() {
		incidents, err := u.store.List(ctx)
		if err == nil {
			u.refreshCache(ctx, incidents)
			return incidents, nil
		}
		logger.Warn("incident store read failed, trying CSV export", "error", err)

		// Second read path: the unauthenticated CSV export stays reachable
		// when the API read fails on credentials or quota.
		if src, ok := u.store.(interfaces.CSVIncidentSource); ok {
			incidents, csvErr := src.ListCSV(ctx)
			if csvErr == nil {
				u.refreshCache(ctx, incidents)
				return incidents, nil
			}
			logger.Warn("CSV export read failed, serving cached incidents", "error", csvErr)
		}
	}

	incidents, err := u.repo.ListIncidents(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list cached incidents")
	}
	return incidents, nil
}

func (u *Incidents) refreshCache(ctx context.Context, incidents []*model.Incident) {
	if err := u.repo.ReplaceIncidents(ctx, incidents); err != nil {
		apperr.Handle(ctx, goerr.Wrap(err, "failed to refresh incident cache"))
	}
}

// ListAlerts returns only live incidents: seeded demo rows, recognized by
// their ID shape or placeholder addresses, are filtered out.
func (u *Incidents) ListAlerts(ctx context.Context) ([]*model.Incident, error) {
	incidents, err := u.List(ctx)
	if err != nil {
		return nil, err
	}

	alerts := make([]*model.Incident, 0, len(incidents))
	for _, incident := range incidents {
		if incident.IsSynthetic() {
			continue
		}
		alerts = append(alerts, incident)
	}
	return alerts, nil
}

// Add validates the input, enriches it with an LLM classification when one
// is available, and appends the incident to the store. Enrichment is best
// effort: a failed or malformed analysis leaves the caller's fields intact
// and never blocks the write.
func (u *Incidents) Add(ctx context.Context, input *model.IncidentInput) (*model.Incident, error) {
	logger := ctxlog.From(ctx)

	if input == nil {
		return nil, goerr.New("incident input is required")
	}
	if u.store == nil || !u.store.IsConfigured() {
		return nil, goerr.New("incident store is not configured")
	}
	if err := inputValidator.Struct(input); err != nil {
		return nil, goerr.Wrap(err, "invalid incident input")
	}

	incident := &model.Incident{
		EventID:       input.EventID,
		Timestamp:     time.Now(),
		Severity:      input.Severity,
		SourceIP:      input.SourceIP,
		DestinationIP: input.DestinationIP,
		AttackType:    input.AttackType,
		Status:        types.IncidentStatusInvestigating,
		ActionTaken:   input.ActionTaken,
	}
	if incident.EventID == "" {
		incident.EventID = types.NewEventID()
	}

	if u.llmService != nil && u.llmService.IsConfigured() {
		analysis, err := u.llmService.AnalyzeEvent(ctx, input)
		switch {
		case err != nil:
			logger.Warn("event analysis failed, keeping caller defaults",
				"event_id", incident.EventID,
				"error", err,
			)
			if u.metrics != nil {
				u.metrics.LLMFailures.Inc()
			}
		default:
			if incident.Severity == "" {
				incident.Severity = analysis.Severity
			}
			if incident.ActionTaken == "" {
				incident.ActionTaken = analysis.ActionTaken
			}
		}
	}
	if incident.Severity == "" || !u.severities.IsValidSeverityID(strings.ToLower(incident.Severity)) {
		if input.Severity != "" {
			incident.Severity = input.Severity
		} else {
			incident.Severity = defaultSeverity
		}
	}
	if incident.ActionTaken == "" {
		incident.ActionTaken = defaultActionTaken
	}

	if err := u.store.Append(ctx, incident); err != nil {
		return nil, goerr.Wrap(err, "failed to append incident",
			goerr.V("event_id", incident.EventID))
	}
	if u.metrics != nil {
		u.metrics.IncidentsStored.Inc()
	}

	if err := u.repo.PutIncident(ctx, incident); err != nil {
		apperr.Handle(ctx, goerr.Wrap(err, "failed to cache incident"))
	}

	if u.notifier != nil {
		notified := incident
		async.Dispatch(ctx, func(ctx context.Context) error {
			return u.notifier.NotifyIncidentCreated(ctx, notified)
		})
	}

	logger.Info("incident created",
		"event_id", incident.EventID,
		"severity", incident.Severity,
		"attack_type", incident.AttackType,
	)
	return incident, nil
}

// UpdateStatus applies a status transition to an incident. The cached copy
// is consulted first so an unknown event ID fails before any store traffic.
func (u *Incidents) UpdateStatus(ctx context.Context, eventID types.EventID, status types.IncidentStatus, actionTaken string) (*model.Incident, error) {
	if !status.IsValid() {
		return nil, goerr.New("invalid incident status", goerr.V("status", status))
	}

	incident, err := u.repo.GetIncident(ctx, eventID)
	if err != nil {
		return nil, goerr.Wrap(err, "incident not found in cache",
			goerr.V("event_id", eventID))
	}

	previous := incident.Status
	incident.Status = status
	if actionTaken != "" {
		incident.ActionTaken = actionTaken
	}

	if u.store != nil && u.store.IsConfigured() {
		if err := u.store.UpdateStatus(ctx, eventID, status, incident.ActionTaken); err != nil {
			return nil, goerr.Wrap(err, "failed to update incident status",
				goerr.V("event_id", eventID),
				goerr.V("status", status),
			)
		}
	}

	if err := u.repo.PutIncident(ctx, incident); err != nil {
		apperr.Handle(ctx, goerr.Wrap(err, "failed to cache incident update"))
	}

	if u.notifier != nil {
		notified := incident
		async.Dispatch(ctx, func(ctx context.Context) error {
			return u.notifier.NotifyStatusChanged(ctx, notified, previous)
		})
	}

	ctxlog.From(ctx).Info("incident status updated",
		"event_id", eventID,
		"from", previous,
		"to", status,
	)
	return incident, nil
}

// Import bulk-appends externally produced incidents and reports how many
// rows were written
func (u *Incidents) Import(ctx context.Context, incidents []*model.Incident) (int, error) {
	if len(incidents) == 0 {
		return 0, nil
	}
	if u.store == nil || !u.store.IsConfigured() {
		return 0, goerr.New("incident store is not configured")
	}
	for _, incident := range incidents {
		if err := incident.Validate(); err != nil {
			return 0, goerr.Wrap(err, "invalid incident in import",
				goerr.V("event_id", incident.EventID))
		}
	}

	written, err := u.store.BulkAppend(ctx, incidents)
	if err != nil {
		return written, goerr.Wrap(err, "failed to import incidents")
	}
	if u.metrics != nil {
		u.metrics.IncidentsStored.Add(float64(written))
	}

	for _, incident := range incidents {
		if err := u.repo.PutIncident(ctx, incident); err != nil {
			apperr.Handle(ctx, goerr.Wrap(err, "failed to cache imported incident"))
			break
		}
	}

	ctxlog.From(ctx).Info("incidents imported", "count", written)
	return written, nil
}

// Stats aggregates the current incident list into dashboard counters
func (u *Incidents) Stats(ctx context.Context) (model.Stats, error) {
	incidents, err := u.List(ctx)
	if err != nil {
		return model.Stats{}, err
	}
	return model.ComputeStats(incidents), nil
}
