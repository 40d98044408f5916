package repository

import (
	"context"
	"sort"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/soc-lab/kestrel/pkg/domain/interfaces"
	"github.com/soc-lab/kestrel/pkg/domain/model"
	"github.com/soc-lab/kestrel/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	incidentsCollection     = "incidents"
	conversationsCollection = "conversations"
	messagesCollection      = "messages"
	reportsCollection       = "reports"
	sessionsCollection      = "sessions"
	settingsCollection      = "settings"

	fieldSettingValue = "value"
)

// Firestore implements Repository interface with Firestore
type Firestore struct {
	client *firestore.Client
}

// NewFirestore creates a new Firestore repository
func NewFirestore(ctx context.Context, projectID, databaseID string) (interfaces.Repository, error) {
	logger := ctxlog.From(ctx)

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client")
	}

	// Probe the connection so we fail fast on bad project IDs or missing
	// permissions instead of on the first request.
	_, err = client.Collection(incidentsCollection).Limit(1).Documents(ctx).Next()
	if err != nil && err != iterator.Done {
		if status.Code(err) == codes.PermissionDenied || status.Code(err) == codes.Unauthenticated {
			_ = client.Close()
			return nil, goerr.Wrap(err, "failed to connect to firestore project",
				goerr.V("code", status.Code(err).String()),
			)
		}
		logger.Debug("Firestore connection probe returned error (may be empty collection)",
			"error", err,
			"code", status.Code(err).String(),
		)
	}

	logger.Info("Firestore repository initialized",
		"projectID", projectID,
		"databaseID", databaseID,
	)

	return &Firestore{client: client}, nil
}

// PutIncident stores or replaces an incident document
func (f *Firestore) PutIncident(ctx context.Context, incident *model.Incident) error {
	if incident == nil {
		return goerr.New("incident is nil")
	}
	if incident.EventID == "" {
		return goerr.New("event ID is empty")
	}

	_, err := f.client.Collection(incidentsCollection).Doc(incident.EventID.String()).Set(ctx, incident)
	if err != nil {
		return goerr.Wrap(err, "failed to save incident", goerr.V("eventID", incident.EventID))
	}
	return nil
}

// GetIncident retrieves an incident by event ID
func (f *Firestore) GetIncident(ctx context.Context, id types.EventID) (*model.Incident, error) {
	if id == "" {
		return nil, goerr.New("event ID is empty")
	}

	doc, err := f.client.Collection(incidentsCollection).Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrIncidentNotFound, "", goerr.V("eventID", id))
		}
		return nil, goerr.Wrap(err, "failed to get incident")
	}

	var incident model.Incident
	if err := doc.DataTo(&incident); err != nil {
		return nil, goerr.Wrap(err, "failed to decode incident")
	}
	return &incident, nil
}

// ListIncidents returns all cached incidents ordered by timestamp
func (f *Firestore) ListIncidents(ctx context.Context) ([]*model.Incident, error) {
	iter := f.client.Collection(incidentsCollection).Documents(ctx)
	defer iter.Stop()

	var incidents []*model.Incident
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate incidents")
		}

		var incident model.Incident
		if err := doc.DataTo(&incident); err != nil {
			return nil, goerr.Wrap(err, "failed to decode incident")
		}
		incidents = append(incidents, &incident)
	}

	// Sort in memory to avoid requiring a composite index
	sort.Slice(incidents, func(i, j int) bool {
		return incidents[i].Timestamp.Before(incidents[j].Timestamp)
	})

	return incidents, nil
}

// ReplaceIncidents swaps the entire incident cache in one batch
func (f *Firestore) ReplaceIncidents(ctx context.Context, incidents []*model.Incident) error {
	bulk := f.client.BulkWriter(ctx)

	// Delete documents that are no longer present
	existing, err := f.ListIncidents(ctx)
	if err != nil {
		return err
	}
	keep := make(map[types.EventID]bool, len(incidents))
	for _, inc := range incidents {
		if inc != nil {
			keep[inc.EventID] = true
		}
	}
	for _, inc := range existing {
		if !keep[inc.EventID] {
			if _, err := bulk.Delete(f.client.Collection(incidentsCollection).Doc(inc.EventID.String())); err != nil {
				return goerr.Wrap(err, "failed to enqueue incident delete")
			}
		}
	}

	for _, inc := range incidents {
		if inc == nil || inc.EventID == "" {
			continue
		}
		if _, err := bulk.Set(f.client.Collection(incidentsCollection).Doc(inc.EventID.String()), inc); err != nil {
			return goerr.Wrap(err, "failed to enqueue incident write")
		}
	}

	bulk.End()
	return nil
}

// PutConversation stores or replaces a conversation document
func (f *Firestore) PutConversation(ctx context.Context, conv *model.Conversation) error {
	if conv == nil {
		return goerr.New("conversation is nil")
	}
	if conv.ID == "" {
		return goerr.New("conversation ID is empty")
	}

	_, err := f.client.Collection(conversationsCollection).Doc(conv.ID.String()).Set(ctx, conv)
	if err != nil {
		return goerr.Wrap(err, "failed to save conversation", goerr.V("conversationID", conv.ID))
	}
	return nil
}

// GetConversation retrieves a conversation by ID
func (f *Firestore) GetConversation(ctx context.Context, id types.ConversationID) (*model.Conversation, error) {
	if id == "" {
		return nil, goerr.New("conversation ID is empty")
	}

	doc, err := f.client.Collection(conversationsCollection).Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrConversationNotFound, "", goerr.V("conversationID", id))
		}
		return nil, goerr.Wrap(err, "failed to get conversation")
	}

	var conv model.Conversation
	if err := doc.DataTo(&conv); err != nil {
		return nil, goerr.Wrap(err, "failed to decode conversation")
	}
	return &conv, nil
}

// ListConversations returns all conversations, most recently active first
func (f *Firestore) ListConversations(ctx context.Context) ([]*model.Conversation, error) {
	iter := f.client.Collection(conversationsCollection).Documents(ctx)
	defer iter.Stop()

	var conversations []*model.Conversation
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate conversations")
		}

		var conv model.Conversation
		if err := doc.DataTo(&conv); err != nil {
			return nil, goerr.Wrap(err, "failed to decode conversation")
		}
		conversations = append(conversations, &conv)
	}

	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].LastActivity.After(conversations[j].LastActivity)
	})

	return conversations, nil
}

// DeleteConversation deletes a conversation and its messages
func (f *Firestore) DeleteConversation(ctx context.Context, id types.ConversationID) error {
	if id == "" {
		return goerr.New("conversation ID is empty")
	}

	if _, err := f.GetConversation(ctx, id); err != nil {
		return err
	}

	if err := f.DeleteChatMessages(ctx, id); err != nil {
		return err
	}

	if _, err := f.client.Collection(conversationsCollection).Doc(id.String()).Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete conversation", goerr.V("conversationID", id))
	}
	return nil
}

// SaveChatMessage saves a chat message document
func (f *Firestore) SaveChatMessage(ctx context.Context, message *model.ChatMessage) error {
	if message == nil {
		return goerr.New("message is nil")
	}
	if message.ID == "" {
		return goerr.New("message ID is empty")
	}

	_, err := f.client.Collection(messagesCollection).Doc(message.ID.String()).Set(ctx, message)
	if err != nil {
		return goerr.Wrap(err, "failed to save chat message", goerr.V("messageID", message.ID))
	}
	return nil
}

// ListChatMessages lists messages for a conversation in chronological order
func (f *Firestore) ListChatMessages(ctx context.Context, conversationID types.ConversationID, limit int) ([]*model.ChatMessage, error) {
	if conversationID == "" {
		return nil, goerr.New("conversation ID is empty")
	}

	// Field names in Firestore match Go struct field names
	query := f.client.Collection(messagesCollection).
		Where("ConversationID", "==", conversationID.String())

	iter := query.Documents(ctx)
	defer iter.Stop()

	var messages []*model.ChatMessage
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate chat messages")
		}

		var message model.ChatMessage
		if err := doc.DataTo(&message); err != nil {
			return nil, goerr.Wrap(err, "failed to decode chat message")
		}
		messages = append(messages, &message)
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
func (f *Firestore) DeleteChatMessages(ctx context.Context, conversationID types.ConversationID) error {
	if conversationID == "" {
		return goerr.New("conversation ID is empty")
	}

	iter := f.client.Collection(messagesCollection).
		Where("ConversationID", "==", conversationID.String()).
		Documents(ctx)
	defer iter.Stop()

	bulk := f.client.BulkWriter(ctx)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return goerr.Wrap(err, "failed to iterate chat messages for delete")
		}
		if _, err := bulk.Delete(doc.Ref); err != nil {
			return goerr.Wrap(err, "failed to enqueue message delete")
		}
	}
	bulk.End()
	return nil
}

// SaveReport saves a report document
func (f *Firestore) SaveReport(ctx context.Context, report *model.Report) error {
	if report == nil {
		return goerr.New("report is nil")
	}
	if report.ID == "" {
		return goerr.New("report ID is empty")
	}

	_, err := f.client.Collection(reportsCollection).Doc(report.ID.String()).Set(ctx, report)
	if err != nil {
		return goerr.Wrap(err, "failed to save report", goerr.V("reportID", report.ID))
	}
	return nil
}

// GetReport retrieves a report by ID
func (f *Firestore) GetReport(ctx context.Context, id types.ReportID) (*model.Report, error) {
	if id == "" {
		return nil, goerr.New("report ID is empty")
	}

	doc, err := f.client.Collection(reportsCollection).Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrReportNotFound, "", goerr.V("reportID", id))
		}
		return nil, goerr.Wrap(err, "failed to get report")
	}

	var report model.Report
	if err := doc.DataTo(&report); err != nil {
		return nil, goerr.Wrap(err, "failed to decode report")
	}
	return &report, nil
}

// ListReports returns all reports, newest first
func (f *Firestore) ListReports(ctx context.Context) ([]*model.Report, error) {
	iter := f.client.Collection(reportsCollection).Documents(ctx)
	defer iter.Stop()

	var reports []*model.Report
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate reports")
		}

		var report model.Report
		if err := doc.DataTo(&report); err != nil {
			return nil, goerr.Wrap(err, "failed to decode report")
		}
		reports = append(reports, &report)
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].CreatedAt.After(reports[j].CreatedAt)
	})

	return reports, nil
}

// SaveSession saves a session document
func (f *Firestore) SaveSession(ctx context.Context, session *model.Session) error {
	if session == nil {
		return goerr.New("session is nil")
	}
	if session.ID == "" {
		return goerr.New("session ID is empty")
	}

	_, err := f.client.Collection(sessionsCollection).Doc(session.ID.String()).Set(ctx, session)
	if err != nil {
		return goerr.Wrap(err, "failed to save session", goerr.V("sessionID", session.ID))
	}
	return nil
}

// GetSession retrieves a session by ID
func (f *Firestore) GetSession(ctx context.Context, id types.SessionID) (*model.Session, error) {
	if id == "" {
		return nil, goerr.New("session ID is empty")
	}

	doc, err := f.client.Collection(sessionsCollection).Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrSessionNotFound, "", goerr.V("sessionID", id))
		}
		return nil, goerr.Wrap(err, "failed to get session")
	}

	var session model.Session
	if err := doc.DataTo(&session); err != nil {
		return nil, goerr.Wrap(err, "failed to decode session")
	}
	return &session, nil
}

// DeleteSession deletes a session document
func (f *Firestore) DeleteSession(ctx context.Context, id types.SessionID) error {
	if id == "" {
		return goerr.New("session ID is empty")
	}

	if _, err := f.client.Collection(sessionsCollection).Doc(id.String()).Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete session", goerr.V("sessionID", id))
	}
	return nil
}

// SaveSetting stores a key/value setting
func (f *Firestore) SaveSetting(ctx context.Context, key, value string) error {
	if key == "" {
		return goerr.New("setting key is empty")
	}

	_, err := f.client.Collection(settingsCollection).Doc(key).Set(ctx, map[string]string{
		fieldSettingValue: value,
	})
	if err != nil {
		return goerr.Wrap(err, "failed to save setting", goerr.V("key", key))
	}
	return nil
}

// GetSetting retrieves a setting; missing keys return an empty value
func (f *Firestore) GetSetting(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", goerr.New("setting key is empty")
	}

	doc, err := f.client.Collection(settingsCollection).Doc(key).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return "", nil
		}
		return "", goerr.Wrap(err, "failed to get setting", goerr.V("key", key))
	}

	var record map[string]string
	if err := doc.DataTo(&record); err != nil {
		return "", goerr.Wrap(err, "failed to decode setting")
	}
	return record[fieldSettingValue], nil
}

// Close closes the Firestore client
func (f *Firestore) Close() error {
	return f.client.Close()
}
