package repository_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/soc-lab/kestrel/pkg/domain/interfaces"
	"github.com/soc-lab/kestrel/pkg/domain/model"
	"github.com/soc-lab/kestrel/pkg/domain/types"
	"github.com/soc-lab/kestrel/pkg/repository"
)

func newSQLiteRepo(t *testing.T) interfaces.Repository {
	t.Helper()

	path := filepath.Join(t.TempDir(), "kestrel.db")
	repo, err := repository.NewSQLite(context.Background(), path)
	gt.NoError(t, err).Required()
	return repo
}

func sqliteIncident(id types.EventID) *model.Incident {
	return &model.Incident{
		EventID:       id,
		Timestamp:     time.Now().UTC().Truncate(time.Second),
		Severity:      "High",
		SourceIP:      "192.168.1.50",
		DestinationIP: "10.0.0.8",
		AttackType:    "Port Scan",
		Status:        types.IncidentStatusInvestigating,
		ActionTaken:   "Under Review",
	}
}

func TestSQLiteIncidents(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t)

	t.Run("round trip", func(t *testing.T) {
		original := sqliteIncident("EVT-1")
		gt.NoError(t, repo.PutIncident(ctx, original))

		got, err := repo.GetIncident(ctx, "EVT-1")
		gt.NoError(t, err).Required()
		gt.Equal(t, got.EventID, original.EventID)
		gt.Equal(t, got.Severity, "High")
		gt.Equal(t, got.Status, types.IncidentStatusInvestigating)
	})

	t.Run("put replaces by event ID", func(t *testing.T) {
		updated := sqliteIncident("EVT-1")
		updated.Status = types.IncidentStatusResolved
		gt.NoError(t, repo.PutIncident(ctx, updated))

		got, err := repo.GetIncident(ctx, "EVT-1")
		gt.NoError(t, err).Required()
		gt.Equal(t, got.Status, types.IncidentStatusResolved)

		incidents, err := repo.ListIncidents(ctx)
		gt.NoError(t, err).Required()
		gt.A(t, incidents).Length(1)
	})

	t.Run("list keeps insertion order", func(t *testing.T) {
		gt.NoError(t, repo.PutIncident(ctx, sqliteIncident("EVT-2")))
		gt.NoError(t, repo.PutIncident(ctx, sqliteIncident("EVT-3")))

		incidents, err := repo.ListIncidents(ctx)
		gt.NoError(t, err).Required()
		gt.A(t, incidents).Length(3)
		gt.Equal(t, incidents[0].EventID, types.EventID("EVT-1"))
		gt.Equal(t, incidents[2].EventID, types.EventID("EVT-3"))
	})

	t.Run("replace swaps the cache", func(t *testing.T) {
		gt.NoError(t, repo.ReplaceIncidents(ctx, []*model.Incident{
			sqliteIncident("EVT-10"),
			sqliteIncident("EVT-11"),
		}))

		incidents, err := repo.ListIncidents(ctx)
		gt.NoError(t, err).Required()
		gt.A(t, incidents).Length(2)
		gt.Equal(t, incidents[0].EventID, types.EventID("EVT-10"))

		_, err = repo.GetIncident(ctx, "EVT-1")
		gt.Error(t, err)
		gt.True(t, errors.Is(err, model.ErrIncidentNotFound))
	})

	t.Run("missing incident", func(t *testing.T) {
		_, err := repo.GetIncident(ctx, "EVT-404")
		gt.Error(t, err)
		gt.True(t, errors.Is(err, model.ErrIncidentNotFound))
	})
}

func TestSQLiteConversations(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t)

	conv1, err := model.NewConversation("First", "", "")
	gt.NoError(t, err).Required()
	conv1.LastActivity = time.Now().Add(-time.Hour).UTC()
	gt.NoError(t, repo.PutConversation(ctx, conv1))

	conv2, err := model.NewConversation("Second", "", "")
	gt.NoError(t, err).Required()
	conv2.LastActivity = time.Now().UTC()
	gt.NoError(t, repo.PutConversation(ctx, conv2))

	t.Run("list orders by last activity", func(t *testing.T) {
		convs, err := repo.ListConversations(ctx)
		gt.NoError(t, err).Required()
		gt.A(t, convs).Length(2)
		gt.Equal(t, convs[0].Title, "Second")
		gt.Equal(t, convs[1].Title, "First")
	})

	t.Run("messages are chronological with tail limit", func(t *testing.T) {
		base := time.Now().UTC().Truncate(time.Second)
		for i, content := range []string{"one", "two", "three"} {
			msg, err := model.NewChatMessage(conv1.ID, types.SenderUser, content)
			gt.NoError(t, err).Required()
			msg.Timestamp = base.Add(time.Duration(i) * time.Second)
			gt.NoError(t, repo.SaveChatMessage(ctx, msg))
		}

		all, err := repo.ListChatMessages(ctx, conv1.ID, 0)
		gt.NoError(t, err).Required()
		gt.A(t, all).Length(3)
		gt.Equal(t, all[0].Content, "one")
		gt.Equal(t, all[2].Content, "three")

		tail, err := repo.ListChatMessages(ctx, conv1.ID, 2)
		gt.NoError(t, err).Required()
		gt.A(t, tail).Length(2)
		gt.Equal(t, tail[0].Content, "two")
	})

	t.Run("message extras survive the round trip", func(t *testing.T) {
		msg, err := model.NewChatMessage(conv2.ID, types.SenderAssistant, "choose one")
		gt.NoError(t, err).Required()
		msg.Data = map[string]any{"source": "workflow"}
		msg.Actions = []model.MessageAction{{Type: "option", Label: "Block", Value: "block"}}
		gt.NoError(t, repo.SaveChatMessage(ctx, msg))

		messages, err := repo.ListChatMessages(ctx, conv2.ID, 0)
		gt.NoError(t, err).Required()
		gt.A(t, messages).Length(1)
		gt.Equal(t, messages[0].Data["source"], "workflow")
		gt.A(t, messages[0].Actions).Length(1)
		gt.Equal(t, messages[0].Actions[0].Value, "block")
	})

	t.Run("delete cascades to messages", func(t *testing.T) {
		gt.NoError(t, repo.DeleteConversation(ctx, conv1.ID))

		_, err := repo.GetConversation(ctx, conv1.ID)
		gt.Error(t, err)
		gt.True(t, errors.Is(err, model.ErrConversationNotFound))

		messages, err := repo.ListChatMessages(ctx, conv1.ID, 0)
		gt.NoError(t, err).Required()
		gt.A(t, messages).Length(0)
	})

	t.Run("deleting a missing conversation errors", func(t *testing.T) {
		err := repo.DeleteConversation(ctx, "missing")
		gt.Error(t, err)
		gt.True(t, errors.Is(err, model.ErrConversationNotFound))
	})
}

func TestSQLiteReports(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t)

	older, err := model.NewReport("Older", "last 7 days", "# Older", types.EngineAI)
	gt.NoError(t, err).Required()
	older.CreatedAt = time.Now().Add(-time.Hour).UTC()
	gt.NoError(t, repo.SaveReport(ctx, older))

	newer, err := model.NewReport("Newer", "last 7 days", "# Newer", types.EngineAI)
	gt.NoError(t, err).Required()
	newer.CreatedAt = time.Now().UTC()
	gt.NoError(t, repo.SaveReport(ctx, newer))

	got, err := repo.GetReport(ctx, older.ID)
	gt.NoError(t, err).Required()
	gt.Equal(t, got.Title, "Older")
	gt.Equal(t, got.GeneratedBy, types.EngineAI)

	reports, err := repo.ListReports(ctx)
	gt.NoError(t, err).Required()
	gt.A(t, reports).Length(2)
	gt.Equal(t, reports[0].Title, "Newer")

	_, err = repo.GetReport(ctx, "missing")
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrReportNotFound))
}

func TestSQLiteSessionsAndSettings(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t)

	user := model.NewUser("uid-1", "analyst@example.com", "Analyst")
	session, err := model.NewSession(user, time.Hour)
	gt.NoError(t, err).Required()
	gt.NoError(t, repo.SaveSession(ctx, session))

	got, err := repo.GetSession(ctx, session.ID)
	gt.NoError(t, err).Required()
	gt.Equal(t, got.Secret, session.Secret)
	gt.Equal(t, got.UserID, types.UserID("uid-1"))
	gt.Equal(t, got.Role, types.RoleUser)

	gt.NoError(t, repo.DeleteSession(ctx, session.ID))
	_, err = repo.GetSession(ctx, session.ID)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrSessionNotFound))

	t.Run("settings", func(t *testing.T) {
		value, err := repo.GetSetting(ctx, "preferred_engine")
		gt.NoError(t, err)
		gt.Equal(t, value, "")

		gt.NoError(t, repo.SaveSetting(ctx, "preferred_engine", "ai"))
		gt.NoError(t, repo.SaveSetting(ctx, "preferred_engine", "soar"))

		value, err = repo.GetSetting(ctx, "preferred_engine")
		gt.NoError(t, err)
		gt.Equal(t, value, "soar")
	})
}
