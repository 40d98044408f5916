package model

import (
	"time"

	"github.com/soc-lab/kestrel/pkg/domain/types"
)

// WorkflowRequest is the payload sent to the workflow automation agent
type WorkflowRequest struct {
	Message        string               `json:"message,omitempty"`
	Action         string               `json:"action,omitempty"`
	Data           map[string]any       `json:"data,omitempty"`
	ConversationID types.ConversationID `json:"conversationId,omitempty"`
	Timestamp      time.Time            `json:"timestamp"`
}

// WorkflowReply is the normalized response from the workflow agent. A body
// that is not valid JSON is carried verbatim in Reply.
type WorkflowReply struct {
	Reply   string          `json:"reply,omitempty"`
	Data    map[string]any  `json:"data,omitempty"`
	Actions []MessageAction `json:"actions,omitempty"`
}

// Text returns the best textual rendering of the reply
func (r *WorkflowReply) Text() string {
	if r == nil {
		return ""
	}
	return r.Reply
}
