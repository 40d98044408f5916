package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/soc-lab/kestrel/pkg/domain/types"
)

// MessageAction represents an actionable button attached to an assistant
// message. The Type is a closed tag handled by the chat use case; unknown
// tags are rejected rather than silently routed.
type MessageAction struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// ChatMessage represents a single message within a conversation
type ChatMessage struct {
	ID             types.MessageID      `json:"id"`
	ConversationID types.ConversationID `json:"conversation_id"`
	Sender         types.Sender         `json:"sender"`
	Content        string               `json:"content"`
	Timestamp      time.Time            `json:"timestamp"`
	Data           map[string]any       `json:"data,omitempty"`
	Actions        []MessageAction      `json:"actions,omitempty"`
	Attachments    []string             `json:"attachments,omitempty"`
}

// NewChatMessage creates a new ChatMessage instance
func NewChatMessage(conversationID types.ConversationID, sender types.Sender, content string) (*ChatMessage, error) {
	if conversationID == "" {
		return nil, goerr.New("conversation ID is required")
	}
	if !sender.IsValid() {
		return nil, goerr.New("invalid sender", goerr.V("sender", sender))
	}
	if content == "" {
		return nil, goerr.New("message content is required")
	}

	return &ChatMessage{
		ID:             types.NewMessageID(),
		ConversationID: conversationID,
		Sender:         sender,
		Content:        content,
		Timestamp:      time.Now(),
	}, nil
}
