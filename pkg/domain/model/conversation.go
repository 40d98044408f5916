package model

import (
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/soc-lab/kestrel/pkg/domain/types"
)

const titleFallbackWords = 4

// Conversation represents a chat conversation with the assistant
type Conversation struct {
	ID           types.ConversationID `json:"id"`
	Title        string               `json:"title"`
	Summary      string               `json:"summary"`
	Topic        string               `json:"topic"`
	LastActivity time.Time            `json:"last_activity"`
	MessageCount int                  `json:"message_count"`
	Status       string               `json:"status"`
	CreatedAt    time.Time            `json:"created_at"`
}

// NewConversation creates a new Conversation instance
func NewConversation(title, topic, summary string) (*Conversation, error) {
	if title == "" {
		return nil, goerr.New("conversation title is required")
	}

	now := time.Now()
	return &Conversation{
		ID:           types.NewConversationID(),
		Title:        title,
		Summary:      summary,
		Topic:        topic,
		LastActivity: now,
		MessageCount: 0,
		Status:       "active",
		CreatedAt:    now,
	}, nil
}

// Touch records message activity: bumps the counter, refreshes the summary
// to the latest exchange and moves the activity timestamp forward.
func (c *Conversation) Touch(summary string) {
	c.MessageCount++
	if summary != "" {
		c.Summary = summary
	}
	c.LastActivity = time.Now()
}

// FallbackTitle derives a conversation title from the first message when the
// LLM cannot produce one: the first four words joined by spaces plus "...".
func FallbackTitle(firstMessage string) string {
	words := strings.Fields(firstMessage)
	if len(words) == 0 {
		return "New Conversation"
	}
	if len(words) > titleFallbackWords {
		words = words[:titleFallbackWords]
	}
	return strings.Join(words, " ") + "..."
}
