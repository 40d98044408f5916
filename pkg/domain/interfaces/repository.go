package interfaces

//go:generate moq -out mocks/repository_mock.go -pkg mocks . Repository

import (
	"context"

	"github.com/soc-lab/kestrel/pkg/domain/model"
	"github.com/soc-lab/kestrel/pkg/domain/types"
)

// Repository defines the interface for data persistence. Incidents are
// cached here; the incident store remains authoritative for them.
type Repository interface {
	// Incident cache operations
	PutIncident(ctx context.Context, incident *model.Incident) error
	GetIncident(ctx context.Context, id types.EventID) (*model.Incident, error)
	ListIncidents(ctx context.Context) ([]*model.Incident, error)
	ReplaceIncidents(ctx context.Context, incidents []*model.Incident) error

	// Conversation operations
	PutConversation(ctx context.Context, conv *model.Conversation) error
	GetConversation(ctx context.Context, id types.ConversationID) (*model.Conversation, error)
	ListConversations(ctx context.Context) ([]*model.Conversation, error)
	DeleteConversation(ctx context.Context, id types.ConversationID) error

	// Chat message operations
	SaveChatMessage(ctx context.Context, message *model.ChatMessage) error
	ListChatMessages(ctx context.Context, conversationID types.ConversationID, limit int) ([]*model.ChatMessage, error)
	DeleteChatMessages(ctx context.Context, conversationID types.ConversationID) error

	// Report operations
	SaveReport(ctx context.Context, report *model.Report) error
	GetReport(ctx context.Context, id types.ReportID) (*model.Report, error)
	ListReports(ctx context.Context) ([]*model.Report, error)

	// Session operations
	SaveSession(ctx context.Context, session *model.Session) error
	GetSession(ctx context.Context, id types.SessionID) (*model.Session, error)
	DeleteSession(ctx context.Context, id types.SessionID) error

	// Settings operations (small key/value records such as the preferred
	// chat engine)
	SaveSetting(ctx context.Context, key, value string) error
	GetSetting(ctx context.Context, key string) (string, error)

	// Close closes the repository connection
	Close() error
}
