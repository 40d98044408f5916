package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/soc-lab/kestrel/pkg/domain/interfaces"
	"github.com/soc-lab/kestrel/pkg/domain/model"
	"github.com/soc-lab/kestrel/pkg/domain/types"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS incidents (
	event_id       TEXT PRIMARY KEY,
	timestamp      TIMESTAMP NOT NULL,
	severity       TEXT NOT NULL DEFAULT '',
	source_ip      TEXT NOT NULL DEFAULT '',
	destination_ip TEXT NOT NULL DEFAULT '',
	attack_type    TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL DEFAULT '',
	action_taken   TEXT NOT NULL DEFAULT '',
	seq            INTEGER
);
CREATE TABLE IF NOT EXISTS conversations (
	id            TEXT PRIMARY KEY,
	title         TEXT NOT NULL,
	summary       TEXT NOT NULL DEFAULT '',
	topic         TEXT NOT NULL DEFAULT '',
	last_activity TIMESTAMP NOT NULL,
	message_count INTEGER NOT NULL DEFAULT 0,
	status        TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS chat_messages (
	id              TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL,
	sender          TEXT NOT NULL,
	content         TEXT NOT NULL,
	timestamp       TIMESTAMP NOT NULL,
	extra           TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_chat_messages_conversation
	ON chat_messages (conversation_id, timestamp);
CREATE TABLE IF NOT EXISTS reports (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL,
	period       TEXT NOT NULL DEFAULT '',
	content      TEXT NOT NULL,
	generated_by TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	secret     TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	email      TEXT NOT NULL DEFAULT '',
	role       TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	expires_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL DEFAULT ''
);
`

// messageExtra carries the optional ChatMessage fields as one JSON column
type messageExtra struct {
	Data        map[string]any        `json:"data,omitempty"`
	Actions     []model.MessageAction `json:"actions,omitempty"`
	Attachments []string              `json:"attachments,omitempty"`
}

// SQLite implements Repository interface with a local SQLite database
type SQLite struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite repository at the given path
func NewSQLite(ctx context.Context, path string) (interfaces.Repository, error) {
	if path == "" {
		return nil, goerr.New("sqlite path is required")
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, goerr.Wrap(err, "failed to create database directory", goerr.V("dir", dir))
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open sqlite database", goerr.V("path", path))
	}

	// WAL improves concurrent reads from multiple requests
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "failed to enable WAL mode")
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "failed to create schema")
	}

	ctxlog.From(ctx).Info("SQLite repository initialized", "path", path)

	return &SQLite{db: db}, nil
}

// PutIncident stores or replaces an incident row
func (s *SQLite) PutIncident(ctx context.Context, incident *model.Incident) error {
	if incident == nil {
		return goerr.New("incident is nil")
	}
	if incident.EventID == "" {
		return goerr.New("event ID is empty")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO incidents (event_id, timestamp, severity, source_ip, destination_ip, attack_type, status, action_taken, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM incidents))
		ON CONFLICT(event_id) DO UPDATE SET
			timestamp = excluded.timestamp,
			severity = excluded.severity,
			source_ip = excluded.source_ip,
			destination_ip = excluded.destination_ip,
			attack_type = excluded.attack_type,
			status = excluded.status,
			action_taken = excluded.action_taken`,
		incident.EventID.String(), incident.Timestamp, incident.Severity,
		incident.SourceIP, incident.DestinationIP, incident.AttackType,
		incident.Status.String(), incident.ActionTaken,
	)
	if err != nil {
		return goerr.Wrap(err, "failed to save incident", goerr.V("eventID", incident.EventID))
	}
	return nil
}

// GetIncident retrieves an incident by event ID
func (s *SQLite) GetIncident(ctx context.Context, id types.EventID) (*model.Incident, error) {
	if id == "" {
		return nil, goerr.New("event ID is empty")
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT event_id, timestamp, severity, source_ip, destination_ip, attack_type, status, action_taken
		FROM incidents WHERE event_id = ?`, id.String())

	incident, err := scanIncident(row)
	if err == sql.ErrNoRows {
		return nil, goerr.Wrap(model.ErrIncidentNotFound, "", goerr.V("eventID", id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get incident")
	}
	return incident, nil
}

// ListIncidents returns all cached incidents in insertion order
func (s *SQLite) ListIncidents(ctx context.Context) ([]*model.Incident, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, timestamp, severity, source_ip, destination_ip, attack_type, status, action_taken
		FROM incidents ORDER BY seq`)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query incidents")
	}
	defer rows.Close()

	var incidents []*model.Incident
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan incident")
		}
		incidents = append(incidents, incident)
	}
	return incidents, rows.Err()
}

// ReplaceIncidents swaps the entire incident cache in one transaction
func (s *SQLite) ReplaceIncidents(ctx context.Context, incidents []*model.Incident) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM incidents"); err != nil {
		return goerr.Wrap(err, "failed to clear incidents")
	}

	for seq, inc := range incidents {
		if inc == nil || inc.EventID == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO incidents (event_id, timestamp, severity, source_ip, destination_ip, attack_type, status, action_taken, seq)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			inc.EventID.String(), inc.Timestamp, inc.Severity, inc.SourceIP,
			inc.DestinationIP, inc.AttackType, inc.Status.String(), inc.ActionTaken, seq+1,
		); err != nil {
			return goerr.Wrap(err, "failed to insert incident", goerr.V("eventID", inc.EventID))
		}
	}

	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit incident replacement")
	}
	return nil
}

// PutConversation stores or replaces a conversation row
func (s *SQLite) PutConversation(ctx context.Context, conv *model.Conversation) error {
	if conv == nil {
		return goerr.New("conversation is nil")
	}
	if conv.ID == "" {
		return goerr.New("conversation ID is empty")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO conversations (id, title, summary, topic, last_activity, message_count, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		conv.ID.String(), conv.Title, conv.Summary, conv.Topic,
		conv.LastActivity, conv.MessageCount, conv.Status, conv.CreatedAt,
	)
	if err != nil {
		return goerr.Wrap(err, "failed to save conversation", goerr.V("conversationID", conv.ID))
	}
	return nil
}

// GetConversation retrieves a conversation by ID
func (s *SQLite) GetConversation(ctx context.Context, id types.ConversationID) (*model.Conversation, error) {
	if id == "" {
		return nil, goerr.New("conversation ID is empty")
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, summary, topic, last_activity, message_count, status, created_at
		FROM conversations WHERE id = ?`, id.String())

	conv, err := scanConversation(row)
	if err == sql.ErrNoRows {
		return nil, goerr.Wrap(model.ErrConversationNotFound, "", goerr.V("conversationID", id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get conversation")
	}
	return conv, nil
}

// ListConversations returns all conversations, most recently active first
func (s *SQLite) ListConversations(ctx context.Context) ([]*model.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, summary, topic, last_activity, message_count, status, created_at
		FROM conversations ORDER BY last_activity DESC`)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query conversations")
	}
	defer rows.Close()

	var conversations []*model.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan conversation")
		}
		conversations = append(conversations, conv)
	}
	return conversations, rows.Err()
}

// DeleteConversation deletes a conversation and its messages
func (s *SQLite) DeleteConversation(ctx context.Context, id types.ConversationID) error {
	if id == "" {
		return goerr.New("conversation ID is empty")
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM conversations WHERE id = ?", id.String())
	if err != nil {
		return goerr.Wrap(err, "failed to delete conversation", goerr.V("conversationID", id))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return goerr.Wrap(err, "failed to check delete result")
	}
	if affected == 0 {
		return goerr.Wrap(model.ErrConversationNotFound, "", goerr.V("conversationID", id))
	}

	return s.DeleteChatMessages(ctx, id)
}

// SaveChatMessage appends a chat message row
func (s *SQLite) SaveChatMessage(ctx context.Context, message *model.ChatMessage) error {
	if message == nil {
		return goerr.New("message is nil")
	}
	if message.ID == "" {
		return goerr.New("message ID is empty")
	}
	if message.ConversationID == "" {
		return goerr.New("conversation ID is empty")
	}

	extra, err := json.Marshal(messageExtra{
		Data:        message.Data,
		Actions:     message.Actions,
		Attachments: message.Attachments,
	})
	if err != nil {
		return goerr.Wrap(err, "failed to encode message extra")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO chat_messages (id, conversation_id, sender, content, timestamp, extra)
		VALUES (?, ?, ?, ?, ?, ?)`,
		message.ID.String(), message.ConversationID.String(),
		message.Sender.String(), message.Content, message.Timestamp, string(extra),
	)
	if err != nil {
		return goerr.Wrap(err, "failed to save chat message", goerr.V("messageID", message.ID))
	}
	return nil
}

// ListChatMessages lists messages for a conversation in chronological order
func (s *SQLite) ListChatMessages(ctx context.Context, conversationID types.ConversationID, limit int) ([]*model.ChatMessage, error) {
	if conversationID == "" {
		return nil, goerr.New("conversation ID is empty")
	}

	query := `
		SELECT id, conversation_id, sender, content, timestamp, extra
		FROM chat_messages WHERE conversation_id = ? ORDER BY timestamp`
	rows, err := s.db.QueryContext(ctx, query, conversationID.String())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query chat messages")
	}
	defer rows.Close()

	var messages []*model.ChatMessage
	for rows.Next() {
		var (
			msg      model.ChatMessage
			id       string
			convID   string
			sender   string
			ts       time.Time
			rawExtra string
		)
		if err := rows.Scan(&id, &convID, &sender, &msg.Content, &ts, &rawExtra); err != nil {
			return nil, goerr.Wrap(err, "failed to scan chat message")
		}
		msg.ID = types.MessageID(id)
		msg.ConversationID = types.ConversationID(convID)
		msg.Sender = types.Sender(sender)
		msg.Timestamp = ts

		var extra messageExtra
		if err := json.Unmarshal([]byte(rawExtra), &extra); err != nil {
			return nil, goerr.Wrap(err, "failed to decode message extra", goerr.V("messageID", id))
		}
		msg.Data = extra.Data
		msg.Actions = extra.Actions
		msg.Attachments = extra.Attachments

		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate chat messages")
	}

	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return messages, nil
}

// DeleteChatMessages removes all messages of a conversation
func (s *SQLite) DeleteChatMessages(ctx context.Context, conversationID types.ConversationID) error {
	if conversationID == "" {
		return goerr.New("conversation ID is empty")
	}

	_, err := s.db.ExecContext(ctx, "DELETE FROM chat_messages WHERE conversation_id = ?", conversationID.String())
	if err != nil {
		return goerr.Wrap(err, "failed to delete chat messages", goerr.V("conversationID", conversationID))
	}
	return nil
}

// SaveReport stores a generated report
func (s *SQLite) SaveReport(ctx context.Context, report *model.Report) error {
	if report == nil {
		return goerr.New("report is nil")
	}
	if report.ID == "" {
		return goerr.New("report ID is empty")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO reports (id, title, period, content, generated_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		report.ID.String(), report.Title, report.Period, report.Content,
		report.GeneratedBy.String(), report.CreatedAt,
	)
	if err != nil {
		return goerr.Wrap(err, "failed to save report", goerr.V("reportID", report.ID))
	}
	return nil
}

// GetReport retrieves a report by ID
func (s *SQLite) GetReport(ctx context.Context, id types.ReportID) (*model.Report, error) {
	if id == "" {
		return nil, goerr.New("report ID is empty")
	}

	var (
		report    model.Report
		reportID  string
		generated string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, period, content, generated_by, created_at
		FROM reports WHERE id = ?`, id.String(),
	).Scan(&reportID, &report.Title, &report.Period, &report.Content, &generated, &report.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, goerr.Wrap(model.ErrReportNotFound, "", goerr.V("reportID", id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get report")
	}

	report.ID = types.ReportID(reportID)
	report.GeneratedBy = types.Engine(generated)
	return &report, nil
}

// ListReports returns all reports, newest first
func (s *SQLite) ListReports(ctx context.Context) ([]*model.Report, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, period, content, generated_by, created_at
		FROM reports ORDER BY created_at DESC`)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query reports")
	}
	defer rows.Close()

	var reports []*model.Report
	for rows.Next() {
		var (
			report    model.Report
			reportID  string
			generated string
		)
		if err := rows.Scan(&reportID, &report.Title, &report.Period, &report.Content, &generated, &report.CreatedAt); err != nil {
			return nil, goerr.Wrap(err, "failed to scan report")
		}
		report.ID = types.ReportID(reportID)
		report.GeneratedBy = types.Engine(generated)
		reports = append(reports, &report)
	}
	return reports, rows.Err()
}

// SaveSession stores a session row
func (s *SQLite) SaveSession(ctx context.Context, session *model.Session) error {
	if session == nil {
		return goerr.New("session is nil")
	}
	if session.ID == "" {
		return goerr.New("session ID is empty")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO sessions (id, secret, user_id, email, role, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		session.ID.String(), session.Secret.String(), session.UserID.String(),
		session.Email, session.Role.String(), session.CreatedAt, session.ExpiresAt,
	)
	if err != nil {
		return goerr.Wrap(err, "failed to save session", goerr.V("sessionID", session.ID))
	}
	return nil
}

// GetSession retrieves a session by ID
func (s *SQLite) GetSession(ctx context.Context, id types.SessionID) (*model.Session, error) {
	if id == "" {
		return nil, goerr.New("session ID is empty")
	}

	var (
		session   model.Session
		sessionID string
		secret    string
		userID    string
		role      string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, secret, user_id, email, role, created_at, expires_at
		FROM sessions WHERE id = ?`, id.String(),
	).Scan(&sessionID, &secret, &userID, &session.Email, &role, &session.CreatedAt, &session.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, goerr.Wrap(model.ErrSessionNotFound, "", goerr.V("sessionID", id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get session")
	}

	session.ID = types.SessionID(sessionID)
	session.Secret = types.SessionSecret(secret)
	session.UserID = types.UserID(userID)
	session.Role = types.Role(role)
	return &session, nil
}

// DeleteSession deletes a session row
func (s *SQLite) DeleteSession(ctx context.Context, id types.SessionID) error {
	if id == "" {
		return goerr.New("session ID is empty")
	}

	_, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id.String())
	if err != nil {
		return goerr.Wrap(err, "failed to delete session", goerr.V("sessionID", id))
	}
	return nil
}

// SaveSetting stores a key/value setting
func (s *SQLite) SaveSetting(ctx context.Context, key, value string) error {
	if key == "" {
		return goerr.New("setting key is empty")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return goerr.Wrap(err, "failed to save setting", goerr.V("key", key))
	}
	return nil
}

// GetSetting retrieves a setting; missing keys return an empty value
func (s *SQLite) GetSetting(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", goerr.New("setting key is empty")
	}

	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", goerr.Wrap(err, "failed to get setting", goerr.V("key", key))
	}
	return value, nil
}

// Close closes the database
func (s *SQLite) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIncident(row rowScanner) (*model.Incident, error) {
	var (
		incident model.Incident
		eventID  string
		status   string
	)
	err := row.Scan(&eventID, &incident.Timestamp, &incident.Severity,
		&incident.SourceIP, &incident.DestinationIP, &incident.AttackType,
		&status, &incident.ActionTaken)
	if err != nil {
		return nil, err
	}
	incident.EventID = types.EventID(eventID)
	incident.Status = types.IncidentStatus(status)
	return &incident, nil
}

func scanConversation(row rowScanner) (*model.Conversation, error) {
	var (
		conv model.Conversation
		id   string
	)
	err := row.Scan(&id, &conv.Title, &conv.Summary, &conv.Topic,
		&conv.LastActivity, &conv.MessageCount, &conv.Status, &conv.CreatedAt)
	if err != nil {
		return nil, err
	}
	conv.ID = types.ConversationID(id)
	return &conv, nil
}
