package interfaces

import (
	"context"

	"github.com/soc-lab/kestrel/pkg/domain/model"
	"github.com/soc-lab/kestrel/pkg/domain/types"
)

// Auth defines the authentication use case surface consumed by controllers
type Auth interface {
	VerifyIDToken(ctx context.Context, rawToken string) (*model.User, error)
	CreateSession(ctx context.Context, user *model.User) (*model.Session, error)
	ValidateSession(ctx context.Context, id, secret string) (*model.Session, error)
	Logout(ctx context.Context, id types.SessionID) error
	ValidateSignupEmail(email string) error
}

// Incidents defines the incident management use case surface
type Incidents interface {
	List(ctx context.Context) ([]*model.Incident, error)
	ListAlerts(ctx context.Context) ([]*model.Incident, error)
	Add(ctx context.Context, input *model.IncidentInput) (*model.Incident, error)
	UpdateStatus(ctx context.Context, eventID types.EventID, status types.IncidentStatus, actionTaken string) (*model.Incident, error)
	Import(ctx context.Context, incidents []*model.Incident) (int, error)
	Stats(ctx context.Context) (model.Stats, error)
}

// Reports defines the report generation use case surface
type Reports interface {
	Generate(ctx context.Context, period string) (*model.Report, error)
	Get(ctx context.Context, id types.ReportID) (*model.Report, error)
	List(ctx context.Context) ([]*model.Report, error)
}

// Chat defines the conversation use case surface
type Chat interface {
	CreateConversation(ctx context.Context, title, topic, summary string) (*model.Conversation, error)
	ListConversations(ctx context.Context) ([]*model.Conversation, error)
	GetConversation(ctx context.Context, id types.ConversationID) (*model.Conversation, error)
	DeleteConversation(ctx context.Context, id types.ConversationID) error
	RenameConversation(ctx context.Context, id types.ConversationID, title string) error
	Messages(ctx context.Context, id types.ConversationID) ([]*model.ChatMessage, error)
	SendMessage(ctx context.Context, id types.ConversationID, text string, engine types.Engine) (*model.ChatMessage, error)
	HandleAction(ctx context.Context, id types.ConversationID, action model.MessageAction) (*model.ChatMessage, error)
	PreferredEngine(ctx context.Context) types.Engine
	SetPreferredEngine(ctx context.Context, engine types.Engine) error
}
