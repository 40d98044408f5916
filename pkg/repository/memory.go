package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/soc-lab/kestrel/pkg/domain/interfaces"
	"github.com/soc-lab/kestrel/pkg/domain/model"
	"github.com/soc-lab/kestrel/pkg/domain/types"
)

// Memory implements Repository interface with in-memory storage
type Memory struct {
	mu            sync.RWMutex
	incidents     map[types.EventID]*model.Incident
	incidentOrder []types.EventID
	conversations map[types.ConversationID]*model.Conversation
	messages      map[types.ConversationID][]*model.ChatMessage
	reports       map[types.ReportID]*model.Report
	sessions      map[types.SessionID]*model.Session
	settings      map[string]string
}

// NewMemory creates a new memory repository
func NewMemory() interfaces.Repository {
	return &Memory{
		incidents:     make(map[types.EventID]*model.Incident),
		conversations: make(map[types.ConversationID]*model.Conversation),
		messages:      make(map[types.ConversationID][]*model.ChatMessage),
		reports:       make(map[types.ReportID]*model.Report),
		sessions:      make(map[types.SessionID]*model.Session),
		settings:      make(map[string]string),
	}
}

// PutIncident stores or replaces an incident in the cache
func (m *Memory) PutIncident(ctx context.Context, incident *model.Incident) error {
	if incident == nil {
		return goerr.New("incident is nil")
	}
	if incident.EventID == "" {
		return goerr.New("event ID is empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.incidents[incident.EventID]; !exists {
		m.incidentOrder = append(m.incidentOrder, incident.EventID)
	}
	incCopy := *incident
	m.incidents[incident.EventID] = &incCopy
	return nil
}

// GetIncident retrieves a cached incident by event ID
func (m *Memory) GetIncident(ctx context.Context, id types.EventID) (*model.Incident, error) {
	if id == "" {
		return nil, goerr.New("event ID is empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	inc, exists := m.incidents[id]
	if !exists {
		return nil, goerr.Wrap(model.ErrIncidentNotFound, "not in cache", goerr.V("eventID", id))
	}

	incCopy := *inc
	return &incCopy, nil
}

// ListIncidents returns all cached incidents in insertion order
func (m *Memory) ListIncidents(ctx context.Context) ([]*model.Incident, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	incidents := make([]*model.Incident, 0, len(m.incidentOrder))
	for _, id := range m.incidentOrder {
		if inc, ok := m.incidents[id]; ok {
			incCopy := *inc
			incidents = append(incidents, &incCopy)
		}
	}
	return incidents, nil
}

// ReplaceIncidents swaps the entire incident cache
func (m *Memory) ReplaceIncidents(ctx context.Context, incidents []*model.Incident) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.incidents = make(map[types.EventID]*model.Incident, len(incidents))
	m.incidentOrder = m.incidentOrder[:0]
	for _, inc := range incidents {
		if inc == nil || inc.EventID == "" {
			continue
		}
		if _, exists := m.incidents[inc.EventID]; !exists {
			m.incidentOrder = append(m.incidentOrder, inc.EventID)
		}
		incCopy := *inc
		m.incidents[inc.EventID] = &incCopy
	}
	return nil
}

// PutConversation stores or replaces a conversation
func (m *Memory) PutConversation(ctx context.Context, conv *model.Conversation) error {
	if conv == nil {
		return goerr.New("conversation is nil")
	}
	if conv.ID == "" {
		return goerr.New("conversation ID is empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	convCopy := *conv
	m.conversations[conv.ID] = &convCopy
	return nil
}

// GetConversation retrieves a conversation by ID
func (m *Memory) GetConversation(ctx context.Context, id types.ConversationID) (*model.Conversation, error) {
	if id == "" {
		return nil, goerr.New("conversation ID is empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	conv, exists := m.conversations[id]
	if !exists {
		return nil, goerr.Wrap(model.ErrConversationNotFound, "", goerr.V("conversationID", id))
	}

	convCopy := *conv
	return &convCopy, nil
}

// ListConversations returns all conversations, most recently active first
func (m *Memory) ListConversations(ctx context.Context) ([]*model.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conversations := make([]*model.Conversation, 0, len(m.conversations))
	for _, conv := range m.conversations {
		convCopy := *conv
		conversations = append(conversations, &convCopy)
	}

	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].LastActivity.After(conversations[j].LastActivity)
	})

	return conversations, nil
}

// DeleteConversation deletes a conversation and its messages
func (m *Memory) DeleteConversation(ctx context.Context, id types.ConversationID) error {
	if id == "" {
		return goerr.New("conversation ID is empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.conversations[id]; !exists {
		return goerr.Wrap(model.ErrConversationNotFound, "", goerr.V("conversationID", id))
	}

	delete(m.conversations, id)
	delete(m.messages, id)
	return nil
}

// SaveChatMessage appends a chat message to its conversation
func (m *Memory) SaveChatMessage(ctx context.Context, message *model.ChatMessage) error {
	if message == nil {
		return goerr.New("message is nil")
	}
	if message.ID == "" {
		return goerr.New("message ID is empty")
	}
	if message.ConversationID == "" {
		return goerr.New("conversation ID is empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	msgCopy := *message
	m.messages[message.ConversationID] = append(m.messages[message.ConversationID], &msgCopy)
	return nil
}

// ListChatMessages lists messages for a conversation in chronological order
func (m *Memory) ListChatMessages(ctx context.Context, conversationID types.ConversationID, limit int) ([]*model.ChatMessage, error) {
	if conversationID == "" {
		return nil, goerr.New("conversation ID is empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.messages[conversationID]
	messages := make([]*model.ChatMessage, 0, len(stored))
	for _, msg := range stored {
		msgCopy := *msg
		messages = append(messages, &msgCopy)
	}

	sort.Slice(messages, func(i, j int) bool {
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})

	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}

	return messages, nil
}

// DeleteChatMessages removes all messages of a conversation
func (m *Memory) DeleteChatMessages(ctx context.Context, conversationID types.ConversationID) error {
	if conversationID == "" {
		return goerr.New("conversation ID is empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.messages, conversationID)
	return nil
}

// SaveReport stores a generated report
func (m *Memory) SaveReport(ctx context.Context, report *model.Report) error {
	if report == nil {
		return goerr.New("report is nil")
	}
	if report.ID == "" {
		return goerr.New("report ID is empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	repCopy := *report
	m.reports[report.ID] = &repCopy
	return nil
}

// GetReport retrieves a report by ID
func (m *Memory) GetReport(ctx context.Context, id types.ReportID) (*model.Report, error) {
	if id == "" {
		return nil, goerr.New("report ID is empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	report, exists := m.reports[id]
	if !exists {
		return nil, goerr.Wrap(model.ErrReportNotFound, "", goerr.V("reportID", id))
	}

	repCopy := *report
	return &repCopy, nil
}

// ListReports returns all reports, newest first
func (m *Memory) ListReports(ctx context.Context) ([]*model.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	reports := make([]*model.Report, 0, len(m.reports))
	for _, report := range m.reports {
		repCopy := *report
		reports = append(reports, &repCopy)
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].CreatedAt.After(reports[j].CreatedAt)
	})

	return reports, nil
}

// SaveSession stores a session
func (m *Memory) SaveSession(ctx context.Context, session *model.Session) error {
	if session == nil {
		return goerr.New("session is nil")
	}
	if session.ID == "" {
		return goerr.New("session ID is empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sessCopy := *session
	m.sessions[session.ID] = &sessCopy
	return nil
}

// GetSession retrieves a session by ID
func (m *Memory) GetSession(ctx context.Context, id types.SessionID) (*model.Session, error) {
	if id == "" {
		return nil, goerr.New("session ID is empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[id]
	if !exists {
		return nil, goerr.Wrap(model.ErrSessionNotFound, "", goerr.V("sessionID", id))
	}

	sessCopy := *session
	return &sessCopy, nil
}

// DeleteSession deletes a session
func (m *Memory) DeleteSession(ctx context.Context, id types.SessionID) error {
	if id == "" {
		return goerr.New("session ID is empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)
	return nil
}

// SaveSetting stores a key/value setting
func (m *Memory) SaveSetting(ctx context.Context, key, value string) error {
	if key == "" {
		return goerr.New("setting key is empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.settings[key] = value
	return nil
}

// GetSetting retrieves a setting; missing keys return an empty value
func (m *Memory) GetSetting(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", goerr.New("setting key is empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.settings[key], nil
}

// Close is a no-op for the memory repository
func (m *Memory) Close() error {
	return nil
}
