package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/soc-lab/kestrel/pkg/domain/interfaces"
	"github.com/soc-lab/kestrel/pkg/domain/model"
	"github.com/soc-lab/kestrel/pkg/domain/types"
	"github.com/soc-lab/kestrel/pkg/service/llm"
	"github.com/soc-lab/kestrel/pkg/utils/apperr"
	"github.com/soc-lab/kestrel/pkg/utils/metrics"
)

// Message action variants. The dispatch table is closed: anything else is
// rejected with ErrUnknownAction instead of falling through to the workflow.
const (
	ActionSelfEnhance    = "self_enhance"
	ActionWorkflowOption = "option"
	ActionWorkflow       = "workflow"
)

const (
	settingPreferredEngine = "preferred_engine"

	soarUnavailableReply = "The SOAR Engine is currently unavailable. Please check that the workflow service is running and try again."
	aiUnavailableReply   = "The AI Engine is currently unavailable. Please verify the AI configuration and try again."

	maxEnrichmentLogs = 20
)

var ipv4Re = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)

// logQueryKeywords mark a message as a request to inspect sensor traffic
var logQueryKeywords = []string{"log", "logs", "traffic", "packets", "connections"}

// Chat implements the conversation use case: conversation CRUD plus the
// dual-engine message pipeline. Each message is routed to exactly one
// engine; there is no cross-engine fallback.
type Chat struct {
	repo       interfaces.Repository
	llmService *llm.Service
	workflow   interfaces.WorkflowClient
	ids        interfaces.IDSClient
	health     interfaces.EngineHealth
	metrics    *metrics.Metrics
}

// NewChat creates the chat use case. The IDS client and health sink are
// optional; without the IDS client log queries are dispatched unenriched,
// and without the health sink engine failures wait for the next poll.
func NewChat(repo interfaces.Repository, llmService *llm.Service, workflow interfaces.WorkflowClient, ids interfaces.IDSClient, health interfaces.EngineHealth, m *metrics.Metrics) *Chat {
	return &Chat{
		repo:       repo,
		llmService: llmService,
		workflow:   workflow,
		ids:        ids,
		health:     health,
		metrics:    m,
	}
}

// CreateConversation creates a conversation with an explicit title
func (u *Chat) CreateConversation(ctx context.Context, title, topic, summary string) (*model.Conversation, error) {
	conv, err := model.NewConversation(title, topic, summary)
	if err != nil {
		return nil, err
	}
	if err := u.repo.PutConversation(ctx, conv); err != nil {
		return nil, goerr.Wrap(err, "failed to save conversation")
	}
	return conv, nil
}

// ListConversations returns all conversations, most recently active first
func (u *Chat) ListConversations(ctx context.Context) ([]*model.Conversation, error) {
	convs, err := u.repo.ListConversations(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list conversations")
	}
	return convs, nil
}

// GetConversation returns one conversation
func (u *Chat) GetConversation(ctx context.Context, id types.ConversationID) (*model.Conversation, error) {
	conv, err := u.repo.GetConversation(ctx, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get conversation", goerr.V("conversation_id", id))
	}
	return conv, nil
}

// DeleteConversation removes a conversation and its message history
func (u *Chat) DeleteConversation(ctx context.Context, id types.ConversationID) error {
	if err := u.repo.DeleteChatMessages(ctx, id); err != nil {
		return goerr.Wrap(err, "failed to delete conversation messages", goerr.V("conversation_id", id))
	}
	if err := u.repo.DeleteConversation(ctx, id); err != nil {
		return goerr.Wrap(err, "failed to delete conversation", goerr.V("conversation_id", id))
	}
	ctxlog.From(ctx).Info("conversation deleted", "conversation_id", id)
	return nil
}

// RenameConversation updates a conversation's title
func (u *Chat) RenameConversation(ctx context.Context, id types.ConversationID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return goerr.New("conversation title is required")
	}

	conv, err := u.repo.GetConversation(ctx, id)
	if err != nil {
		return goerr.Wrap(err, "failed to get conversation", goerr.V("conversation_id", id))
	}
	conv.Title = title
	if err := u.repo.PutConversation(ctx, conv); err != nil {
		return goerr.Wrap(err, "failed to save conversation", goerr.V("conversation_id", id))
	}
	return nil
}

// Messages returns a conversation's history in chronological order
func (u *Chat) Messages(ctx context.Context, id types.ConversationID) ([]*model.ChatMessage, error) {
	messages, err := u.repo.ListChatMessages(ctx, id, 0)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list messages", goerr.V("conversation_id", id))
	}
	return messages, nil
}

// SendMessage runs the full pipeline for one user message: conversation
// resolution, log-query enrichment, engine dispatch and reply persistence.
// The returned message is the assistant's reply.
func (u *Chat) SendMessage(ctx context.Context, id types.ConversationID, text string, engine types.Engine) (*model.ChatMessage, error) {
	logger := ctxlog.From(ctx)

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, goerr.New("message text is required")
	}
	if engine == "" {
		engine = u.PreferredEngine(ctx)
	}
	if !engine.IsValid() {
		return nil, goerr.New("unknown chat engine", goerr.V("engine", engine))
	}

	conv, err := u.resolveConversation(ctx, id, text)
	if err != nil {
		return nil, err
	}

	userMsg, err := model.NewChatMessage(conv.ID, types.SenderUser, text)
	if err != nil {
		return nil, err
	}
	if err := u.repo.SaveChatMessage(ctx, userMsg); err != nil {
		return nil, goerr.Wrap(err, "failed to save user message",
			goerr.V("conversation_id", conv.ID))
	}

	// Enrichment augments only what the engine sees. The stored user
	// message keeps the original text.
	dispatched := u.enrichLogQuery(ctx, text)

	reply := u.dispatch(ctx, conv.ID, dispatched, engine)

	assistantMsg, err := model.NewChatMessage(conv.ID, types.SenderAssistant, reply.content)
	if err != nil {
		return nil, err
	}
	assistantMsg.Data = reply.data
	assistantMsg.Actions = reply.actions
	if err := u.repo.SaveChatMessage(ctx, assistantMsg); err != nil {
		return nil, goerr.Wrap(err, "failed to save assistant message",
			goerr.V("conversation_id", conv.ID))
	}

	conv.Touch(summarize(text))
	conv.MessageCount++ // user message and assistant reply
	if err := u.repo.PutConversation(ctx, conv); err != nil {
		apperr.Handle(ctx, goerr.Wrap(err, "failed to update conversation",
			goerr.V("conversation_id", conv.ID)))
	}

	logger.Info("chat message handled",
		"conversation_id", conv.ID,
		"engine", engine,
		"enriched", dispatched != text,
	)
	return assistantMsg, nil
}

// HandleAction dispatches a clicked message action. The set of action types
// is closed; unknown types return ErrUnknownAction.
func (u *Chat) HandleAction(ctx context.Context, id types.ConversationID, action model.MessageAction) (*model.ChatMessage, error) {
	switch action.Type {
	case ActionSelfEnhance:
		return u.handleSelfEnhance(ctx, id, action)
	case ActionWorkflowOption:
		// Options re-enter the pipeline as a user message
		return u.SendMessage(ctx, id, action.Value, types.EngineSOAR)
	case ActionWorkflow:
		return u.handleWorkflowAction(ctx, id, action)
	default:
		return nil, goerr.Wrap(model.ErrUnknownAction, "unhandled message action",
			goerr.V("action_type", action.Type))
	}
}

// PreferredEngine reads the persisted engine choice, defaulting to SOAR
func (u *Chat) PreferredEngine(ctx context.Context) types.Engine {
	value, err := u.repo.GetSetting(ctx, settingPreferredEngine)
	if err != nil {
		apperr.Handle(ctx, goerr.Wrap(err, "failed to read preferred engine"))
		return types.EngineSOAR
	}
	engine := types.Engine(value)
	if !engine.IsValid() {
		return types.EngineSOAR
	}
	return engine
}

// SetPreferredEngine persists the engine choice
func (u *Chat) SetPreferredEngine(ctx context.Context, engine types.Engine) error {
	if !engine.IsValid() {
		return goerr.New("unknown chat engine", goerr.V("engine", engine))
	}
	if err := u.repo.SaveSetting(ctx, settingPreferredEngine, string(engine)); err != nil {
		return goerr.Wrap(err, "failed to save preferred engine")
	}
	return nil
}

// resolveConversation loads the conversation, or creates one titled from the
// first message when no ID is given
func (u *Chat) resolveConversation(ctx context.Context, id types.ConversationID, firstMessage string) (*model.Conversation, error) {
	if id != "" {
		conv, err := u.repo.GetConversation(ctx, id)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to get conversation", goerr.V("conversation_id", id))
		}
		return conv, nil
	}

	title := model.FallbackTitle(firstMessage)
	if u.llmService != nil && u.llmService.IsConfigured() {
		title = u.llmService.ConversationTitle(ctx, firstMessage)
	}
	conv, err := model.NewConversation(title, "", summarize(firstMessage))
	if err != nil {
		return nil, err
	}
	if err := u.repo.PutConversation(ctx, conv); err != nil {
		return nil, goerr.Wrap(err, "failed to create conversation")
	}
	ctxlog.From(ctx).Info("conversation created", "conversation_id", conv.ID, "title", title)
	return conv, nil
}

type engineReply struct {
	content string
	data    map[string]any
	actions []model.MessageAction
}

// dispatch routes the message to exactly one engine. Engine failure is a
// conversational outcome, not an error: the user gets a canned
// unavailability reply and the failure is counted.
func (u *Chat) dispatch(ctx context.Context, convID types.ConversationID, text string, engine types.Engine) engineReply {
	switch engine {
	case types.EngineAI:
		return u.dispatchAI(ctx, text)
	default:
		return u.dispatchSOAR(ctx, convID, text)
	}
}

func (u *Chat) dispatchAI(ctx context.Context, text string) engineReply {
	if u.llmService == nil || !u.llmService.IsConfigured() {
		u.countEngine(types.EngineAI, "unavailable")
		return engineReply{content: aiUnavailableReply}
	}

	reply, err := u.llmService.GenerateReply(ctx, text)
	if err != nil {
		apperr.Handle(ctx, goerr.Wrap(err, "AI engine call failed"))
		u.countEngine(types.EngineAI, "error")
		u.markDown(types.EngineAI)
		if u.metrics != nil {
			u.metrics.LLMFailures.Inc()
		}
		return engineReply{content: aiUnavailableReply}
	}

	u.countEngine(types.EngineAI, "ok")
	return engineReply{content: tagReply(reply, types.EngineAI)}
}

func (u *Chat) dispatchSOAR(ctx context.Context, convID types.ConversationID, text string) engineReply {
	if u.workflow == nil {
		u.countEngine(types.EngineSOAR, "unavailable")
		return engineReply{content: soarUnavailableReply}
	}

	resp, err := u.workflow.CallAgent(ctx, &model.WorkflowRequest{
		Message:        text,
		ConversationID: convID,
		Timestamp:      time.Now(),
	})
	if err != nil {
		apperr.Handle(ctx, goerr.Wrap(err, "SOAR engine call failed"))
		u.countEngine(types.EngineSOAR, "error")
		u.markDown(types.EngineSOAR)
		return engineReply{content: soarUnavailableReply}
	}

	u.countEngine(types.EngineSOAR, "ok")
	content := resp.Text()
	if content == "" {
		content = "The workflow completed without a reply."
	}
	return engineReply{
		content: tagReply(content, types.EngineSOAR),
		data:    resp.Data,
		actions: resp.Actions,
	}
}

func (u *Chat) handleSelfEnhance(ctx context.Context, id types.ConversationID, action model.MessageAction) (*model.ChatMessage, error) {
	if u.workflow == nil {
		return nil, goerr.New("self-enhancement requires the workflow service")
	}

	resp, err := u.workflow.Trigger(ctx, &model.WorkflowRequest{
		Action:         action.Value,
		Data:           map[string]any{"kind": ActionSelfEnhance},
		ConversationID: id,
		Timestamp:      time.Now(),
	})
	if err != nil {
		return nil, goerr.Wrap(err, "self-enhancement failed", goerr.V("action", action.Value))
	}
	return u.saveWorkflowReply(ctx, id, resp)
}

func (u *Chat) handleWorkflowAction(ctx context.Context, id types.ConversationID, action model.MessageAction) (*model.ChatMessage, error) {
	if u.workflow == nil {
		return nil, goerr.New("workflow actions require the workflow service")
	}

	resp, err := u.workflow.Trigger(ctx, &model.WorkflowRequest{
		Action:         action.Value,
		ConversationID: id,
		Timestamp:      time.Now(),
	})
	if err != nil {
		return nil, goerr.Wrap(err, "workflow action failed", goerr.V("action", action.Value))
	}
	return u.saveWorkflowReply(ctx, id, resp)
}

func (u *Chat) saveWorkflowReply(ctx context.Context, id types.ConversationID, resp *model.WorkflowReply) (*model.ChatMessage, error) {
	content := resp.Text()
	if content == "" {
		content = "Done."
	}

	msg, err := model.NewChatMessage(id, types.SenderAssistant, tagReply(content, types.EngineSOAR))
	if err != nil {
		return nil, err
	}
	msg.Data = resp.Data
	msg.Actions = resp.Actions
	if err := u.repo.SaveChatMessage(ctx, msg); err != nil {
		return nil, goerr.Wrap(err, "failed to save assistant message",
			goerr.V("conversation_id", id))
	}

	if conv, err := u.repo.GetConversation(ctx, id); err == nil {
		conv.Touch(conv.Summary)
		if err := u.repo.PutConversation(ctx, conv); err != nil {
			apperr.Handle(ctx, goerr.Wrap(err, "failed to update conversation"))
		}
	}
	return msg, nil
}

// enrichLogQuery appends matching sensor logs to messages that look like a
// log inspection request. Enrichment is best effort.
func (u *Chat) enrichLogQuery(ctx context.Context, text string) string {
	if u.ids == nil || !isLogQuery(text) {
		return text
	}

	var (
		logs []*model.IDSLog
		err  error
	)
	if ip := ipv4Re.FindString(text); ip != "" {
		logs, err = u.ids.LogsByIP(ctx, ip)
	} else {
		logs, err = u.ids.Logs(ctx, maxEnrichmentLogs)
	}
	if err != nil {
		apperr.Handle(ctx, goerr.Wrap(err, "failed to fetch sensor logs for enrichment"))
		return text
	}
	if len(logs) == 0 {
		return text
	}
	if len(logs) > maxEnrichmentLogs {
		logs = logs[len(logs)-maxEnrichmentLogs:]
	}

	var b strings.Builder
	b.WriteString(text)
	b.WriteString("\n\nRecent sensor logs:\n")
	for _, entry := range logs {
		fmt.Fprintf(&b, "%s %s -> %s [%s] %s\n",
			entry.Timestamp.Format(time.RFC3339),
			entry.SourceIP, entry.DestinationIP, entry.Protocol, entry.Message)
	}
	return b.String()
}

func (u *Chat) countEngine(engine types.Engine, outcome string) {
	if u.metrics != nil {
		u.metrics.EngineCalls.WithLabelValues(string(engine), outcome).Inc()
	}
}

func (u *Chat) markDown(engine types.Engine) {
	if u.health != nil {
		u.health.MarkEngineDown(engine)
	}
}

func isLogQuery(text string) bool {
	lowered := strings.ToLower(text)
	for _, kw := range logQueryKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

func tagReply(content string, engine types.Engine) string {
	return content + "\n\n[" + engine.DisplayName() + "]"
}

func summarize(text string) string {
	const max = 120
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
