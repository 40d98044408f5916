package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/goerr/v2"
	"github.com/soc-lab/kestrel/pkg/domain/model"
	"github.com/soc-lab/kestrel/pkg/domain/types"
	"github.com/soc-lab/kestrel/pkg/repository"
	"github.com/soc-lab/kestrel/pkg/service/llm"
	"github.com/soc-lab/kestrel/pkg/usecase"
)

type mockIncidentStore struct {
	configured  bool
	appended    []*model.Incident
	updateCalls int
	listed      []*model.Incident
	listErr     error
}

func (m *mockIncidentStore) Append(ctx context.Context, incident *model.Incident) error {
	m.appended = append(m.appended, incident)
	return nil
}

func (m *mockIncidentStore) BulkAppend(ctx context.Context, incidents []*model.Incident) (int, error) {
	m.appended = append(m.appended, incidents...)
	return len(incidents), nil
}

func (m *mockIncidentStore) List(ctx context.Context) ([]*model.Incident, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.listed, nil
}

func (m *mockIncidentStore) UpdateStatus(ctx context.Context, eventID types.EventID, status types.IncidentStatus, actionTaken string) error {
	m.updateCalls++
	return nil
}

func (m *mockIncidentStore) IsConfigured() bool { return m.configured }

type mockCSVStore struct {
	mockIncidentStore
	csvListed []*model.Incident
	csvErr    error
	csvCalls  int
}

func (m *mockCSVStore) ListCSV(ctx context.Context) ([]*model.Incident, error) {
	m.csvCalls++
	if m.csvErr != nil {
		return nil, m.csvErr
	}
	return m.csvListed, nil
}

type mockLLMClient struct {
	GenerateResponseFunc func(ctx context.Context, prompt string) (string, error)
}

func (m *mockLLMClient) GenerateResponse(ctx context.Context, prompt string) (string, error) {
	return m.GenerateResponseFunc(ctx, prompt)
}

func validInput() *model.IncidentInput {
	return &model.IncidentInput{
		SourceIP:      "192.168.1.50",
		DestinationIP: "10.0.0.8",
		AttackType:    "Port Scan",
	}
}

func TestIncidentAdd(t *testing.T) {
	t.Run("llm fills empty severity and action", func(t *testing.T) {
		store := &mockIncidentStore{configured: true}
		llmService := llm.New(&mockLLMClient{
			GenerateResponseFunc: func(ctx context.Context, prompt string) (string, error) {
				return `{"severity":"High","attack_type":"Port Scan","action_taken":"Blocked source IP","summary":"Scan from internal host"}`, nil
			},
		})
		uc := usecase.NewIncidents(repository.NewMemory(), store, llmService, nil, nil, nil)

		incident, err := uc.Add(context.Background(), validInput())
		gt.NoError(t, err).Required()
		gt.Equal(t, incident.Severity, "High")
		gt.Equal(t, incident.ActionTaken, "Blocked source IP")
		gt.Equal(t, incident.Status, types.IncidentStatusInvestigating)
		gt.V(t, incident.EventID).NotEqual("")
		gt.A(t, store.appended).Length(1)
	})

	t.Run("llm failure keeps caller fields", func(t *testing.T) {
		store := &mockIncidentStore{configured: true}
		llmService := llm.New(&mockLLMClient{
			GenerateResponseFunc: func(ctx context.Context, prompt string) (string, error) {
				return "", goerr.New("model overloaded")
			},
		})
		uc := usecase.NewIncidents(repository.NewMemory(), store, llmService, nil, nil, nil)

		input := validInput()
		input.Severity = "High"
		input.ActionTaken = "Escalated to on-call"

		incident, err := uc.Add(context.Background(), input)
		gt.NoError(t, err).Required()
		gt.Equal(t, incident.Severity, "High")
		gt.Equal(t, incident.ActionTaken, "Escalated to on-call")
		gt.A(t, store.appended).Length(1)
	})

	t.Run("unrecognized llm severity falls back to default", func(t *testing.T) {
		store := &mockIncidentStore{configured: true}
		llmService := llm.New(&mockLLMClient{
			GenerateResponseFunc: func(ctx context.Context, prompt string) (string, error) {
				return `{"severity":"Extreme","attack_type":"Port Scan","action_taken":"Blocked","summary":"s"}`, nil
			},
		})
		uc := usecase.NewIncidents(repository.NewMemory(), store, llmService, nil, nil, nil)

		incident, err := uc.Add(context.Background(), validInput())
		gt.NoError(t, err).Required()
		gt.Equal(t, incident.Severity, "Medium")
	})

	t.Run("no llm uses defaults", func(t *testing.T) {
		store := &mockIncidentStore{configured: true}
		uc := usecase.NewIncidents(repository.NewMemory(), store, nil, nil, nil, nil)

		incident, err := uc.Add(context.Background(), validInput())
		gt.NoError(t, err).Required()
		gt.Equal(t, incident.Severity, "Medium")
		gt.Equal(t, incident.ActionTaken, "Under Review")
	})

	t.Run("unconfigured store is rejected", func(t *testing.T) {
		uc := usecase.NewIncidents(repository.NewMemory(), &mockIncidentStore{}, nil, nil, nil, nil)
		_, err := uc.Add(context.Background(), validInput())
		gt.Error(t, err)
		gt.S(t, err.Error()).Contains("incident store is not configured")
	})

	t.Run("invalid source IP is rejected", func(t *testing.T) {
		store := &mockIncidentStore{configured: true}
		uc := usecase.NewIncidents(repository.NewMemory(), store, nil, nil, nil, nil)

		input := validInput()
		input.SourceIP = "not-an-ip"
		_, err := uc.Add(context.Background(), input)
		gt.Error(t, err)
		gt.A(t, store.appended).Length(0)
	})

	t.Run("nil input is rejected", func(t *testing.T) {
		uc := usecase.NewIncidents(repository.NewMemory(), &mockIncidentStore{configured: true}, nil, nil, nil, nil)
		_, err := uc.Add(context.Background(), nil)
		gt.Error(t, err)
	})
}

func TestIncidentUpdateStatus(t *testing.T) {
	newIncident := func(id types.EventID) *model.Incident {
		return &model.Incident{
			EventID:       id,
			Timestamp:     time.Now(),
			Severity:      "High",
			SourceIP:      "192.168.1.50",
			DestinationIP: "10.0.0.8",
			AttackType:    "Port Scan",
			Status:        types.IncidentStatusInvestigating,
			ActionTaken:   "Under Review",
		}
	}

	t.Run("updates cache and store", func(t *testing.T) {
		ctx := context.Background()
		repo := repository.NewMemory()
		store := &mockIncidentStore{configured: true}
		gt.NoError(t, repo.PutIncident(ctx, newIncident("EVT-1")))

		uc := usecase.NewIncidents(repo, store, nil, nil, nil, nil)
		updated, err := uc.UpdateStatus(ctx, "EVT-1", types.IncidentStatusMitigated, "Firewall rule added")
		gt.NoError(t, err).Required()
		gt.Equal(t, updated.Status, types.IncidentStatusMitigated)
		gt.Equal(t, updated.ActionTaken, "Firewall rule added")
		gt.Equal(t, store.updateCalls, 1)

		cached, err := repo.GetIncident(ctx, "EVT-1")
		gt.NoError(t, err).Required()
		gt.Equal(t, cached.Status, types.IncidentStatusMitigated)
	})

	t.Run("unknown event ID fails before store traffic", func(t *testing.T) {
		store := &mockIncidentStore{configured: true}
		uc := usecase.NewIncidents(repository.NewMemory(), store, nil, nil, nil, nil)

		_, err := uc.UpdateStatus(context.Background(), "EVT-404", types.IncidentStatusResolved, "")
		gt.Error(t, err)
		gt.True(t, errors.Is(err, model.ErrIncidentNotFound))
		gt.Equal(t, store.updateCalls, 0)
	})

	t.Run("invalid status is rejected", func(t *testing.T) {
		uc := usecase.NewIncidents(repository.NewMemory(), &mockIncidentStore{configured: true}, nil, nil, nil, nil)
		_, err := uc.UpdateStatus(context.Background(), "EVT-1", types.IncidentStatus("Archived"), "")
		gt.Error(t, err)
	})

	t.Run("empty action keeps existing action", func(t *testing.T) {
		ctx := context.Background()
		repo := repository.NewMemory()
		gt.NoError(t, repo.PutIncident(ctx, newIncident("EVT-2")))

		uc := usecase.NewIncidents(repo, &mockIncidentStore{configured: true}, nil, nil, nil, nil)
		updated, err := uc.UpdateStatus(ctx, "EVT-2", types.IncidentStatusResolved, "")
		gt.NoError(t, err).Required()
		gt.Equal(t, updated.ActionTaken, "Under Review")
	})
}

func TestIncidentList(t *testing.T) {
	live := &model.Incident{
		EventID:       "EVT-1",
		Timestamp:     time.Now(),
		Severity:      "High",
		SourceIP:      "192.168.1.50",
		DestinationIP: "10.0.0.8",
		AttackType:    "Port Scan",
		Status:        types.IncidentStatusInvestigating,
		ActionTaken:   "Under Review",
	}
	seeded := &model.Incident{
		EventID:       "INC-2024-000001",
		Timestamp:     time.Now(),
		Severity:      "Low",
		SourceIP:      "192.168.1.51",
		DestinationIP: "10.0.0.9",
		AttackType:    "Ping Sweep",
		Status:        types.IncidentStatusResolved,
		ActionTaken:   "Ignored",
	}

	t.Run("store reads refresh the cache", func(t *testing.T) {
		ctx := context.Background()
		repo := repository.NewMemory()
		store := &mockIncidentStore{configured: true, listed: []*model.Incident{live, seeded}}

		uc := usecase.NewIncidents(repo, store, nil, nil, nil, nil)
		incidents, err := uc.List(ctx)
		gt.NoError(t, err).Required()
		gt.A(t, incidents).Length(2)

		cached, err := repo.ListIncidents(ctx)
		gt.NoError(t, err).Required()
		gt.A(t, cached).Length(2)
	})

	t.Run("store failure serves the cache", func(t *testing.T) {
		ctx := context.Background()
		repo := repository.NewMemory()
		gt.NoError(t, repo.PutIncident(ctx, live))
		store := &mockIncidentStore{configured: true, listErr: goerr.New("quota exceeded")}

		uc := usecase.NewIncidents(repo, store, nil, nil, nil, nil)
		incidents, err := uc.List(ctx)
		gt.NoError(t, err).Required()
		gt.A(t, incidents).Length(1)
		gt.Equal(t, incidents[0].EventID, types.EventID("EVT-1"))
	})

	t.Run("store failure falls back to the CSV export", func(t *testing.T) {
		ctx := context.Background()
		repo := repository.NewMemory()
		store := &mockCSVStore{
			mockIncidentStore: mockIncidentStore{configured: true, listErr: goerr.New("quota exceeded")},
			csvListed:         []*model.Incident{live},
		}

		uc := usecase.NewIncidents(repo, store, nil, nil, nil, nil)
		incidents, err := uc.List(ctx)
		gt.NoError(t, err).Required()
		gt.A(t, incidents).Length(1)
		gt.Equal(t, incidents[0].EventID, types.EventID("EVT-1"))
		gt.Equal(t, store.csvCalls, 1)

		cached, err := repo.ListIncidents(ctx)
		gt.NoError(t, err).Required()
		gt.A(t, cached).Length(1)
	})

	t.Run("failure on both read paths serves the cache", func(t *testing.T) {
		ctx := context.Background()
		repo := repository.NewMemory()
		gt.NoError(t, repo.PutIncident(ctx, live))
		store := &mockCSVStore{
			mockIncidentStore: mockIncidentStore{configured: true, listErr: goerr.New("quota exceeded")},
			csvErr:            goerr.New("export disabled"),
		}

		uc := usecase.NewIncidents(repo, store, nil, nil, nil, nil)
		incidents, err := uc.List(ctx)
		gt.NoError(t, err).Required()
		gt.A(t, incidents).Length(1)
		gt.Equal(t, incidents[0].EventID, types.EventID("EVT-1"))
	})

	t.Run("alerts filter seeded rows", func(t *testing.T) {
		store := &mockIncidentStore{configured: true, listed: []*model.Incident{live, seeded}}
		uc := usecase.NewIncidents(repository.NewMemory(), store, nil, nil, nil, nil)

		alerts, err := uc.ListAlerts(context.Background())
		gt.NoError(t, err).Required()
		gt.A(t, alerts).Length(1)
		gt.Equal(t, alerts[0].EventID, types.EventID("EVT-1"))
	})
}

func TestIncidentImport(t *testing.T) {
	valid := &model.Incident{
		EventID:       "EVT-10",
		Timestamp:     time.Now(),
		Severity:      "High",
		SourceIP:      "192.168.1.50",
		DestinationIP: "10.0.0.8",
		AttackType:    "Port Scan",
		Status:        types.IncidentStatusInvestigating,
		ActionTaken:   "Under Review",
	}

	t.Run("writes all rows", func(t *testing.T) {
		store := &mockIncidentStore{configured: true}
		uc := usecase.NewIncidents(repository.NewMemory(), store, nil, nil, nil, nil)

		written, err := uc.Import(context.Background(), []*model.Incident{valid})
		gt.NoError(t, err).Required()
		gt.Equal(t, written, 1)
		gt.A(t, store.appended).Length(1)
	})

	t.Run("empty import is a no-op", func(t *testing.T) {
		uc := usecase.NewIncidents(repository.NewMemory(), &mockIncidentStore{}, nil, nil, nil, nil)
		written, err := uc.Import(context.Background(), nil)
		gt.NoError(t, err)
		gt.Equal(t, written, 0)
	})

	t.Run("invalid row aborts the import", func(t *testing.T) {
		store := &mockIncidentStore{configured: true}
		uc := usecase.NewIncidents(repository.NewMemory(), store, nil, nil, nil, nil)

		_, err := uc.Import(context.Background(), []*model.Incident{{EventID: ""}})
		gt.Error(t, err)
		gt.A(t, store.appended).Length(0)
	})
}

func TestIncidentStats(t *testing.T) {
	store := &mockIncidentStore{configured: true, listed: []*model.Incident{
		{EventID: "EVT-1", Severity: "High", Status: types.IncidentStatusInvestigating},
		{EventID: "EVT-2", Severity: "high", Status: types.IncidentStatus("Mitigated (auto)")},
		{EventID: "EVT-3", Severity: "Critical", Status: types.IncidentStatusResolved},
	}}
	uc := usecase.NewIncidents(repository.NewMemory(), store, nil, nil, nil, nil)

	stats, err := uc.Stats(context.Background())
	gt.NoError(t, err).Required()
	gt.Equal(t, stats.Total, 3)
	gt.Equal(t, stats.High, 2)
	gt.Equal(t, stats.Critical, 1)
	gt.Equal(t, stats.Investigating, 1)
	gt.Equal(t, stats.Mitigated, 1)
	gt.Equal(t, stats.Resolved, 1)
}
