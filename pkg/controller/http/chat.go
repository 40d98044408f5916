package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/soc-lab/kestrel/pkg/domain/interfaces"
	"github.com/soc-lab/kestrel/pkg/domain/model"
	"github.com/soc-lab/kestrel/pkg/domain/types"
)

// ChatHandler serves conversation management and the message pipeline
type ChatHandler struct {
	chat interfaces.Chat
}

type createConversationRequest struct {
	Title   string `json:"title"`
	Topic   string `json:"topic,omitempty"`
	Summary string `json:"summary,omitempty"`
}

type sendMessageRequest struct {
	Message string       `json:"message"`
	Engine  types.Engine `json:"engine,omitempty"`
}

type renameRequest struct {
	Title string `json:"title"`
}

type engineRequest struct {
	Engine types.Engine `json:"engine"`
}

// HandleListConversations returns all conversations
func (h *ChatHandler) HandleListConversations(w http.ResponseWriter, r *http.Request) {
	convs, err := h.chat.ListConversations(r.Context())
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": convs})
}

// HandleCreateConversation creates a conversation with an explicit title
func (h *ChatHandler) HandleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req createConversationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	conv, err := h.chat.CreateConversation(r.Context(), req.Title, req.Topic, req.Summary)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, conv)
}

// HandleGetConversation returns one conversation
func (h *ChatHandler) HandleGetConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := h.chat.GetConversation(r.Context(), conversationID(r))
	if err != nil {
		writeError(w, err, statusForChatErr(err))
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// HandleDeleteConversation removes a conversation and its history
func (h *ChatHandler) HandleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	if err := h.chat.DeleteConversation(r.Context(), conversationID(r)); err != nil {
		writeError(w, err, statusForChatErr(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// HandleRename updates a conversation title
func (h *ChatHandler) HandleRename(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	if err := h.chat.RenameConversation(r.Context(), conversationID(r), req.Title); err != nil {
		writeError(w, err, statusForChatErr(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// HandleMessages returns a conversation's history
func (h *ChatHandler) HandleMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.chat.Messages(r.Context(), conversationID(r))
	if err != nil {
		writeError(w, err, statusForChatErr(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

// HandleSendMessage runs the message pipeline. Without a conversation ID in
// the path a new conversation is created from the message.
func (h *ChatHandler) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	reply, err := h.chat.SendMessage(r.Context(), conversationID(r), req.Message, req.Engine)
	if err != nil {
		writeError(w, err, statusForChatErr(err))
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

// HandleAction dispatches a clicked message action
func (h *ChatHandler) HandleAction(w http.ResponseWriter, r *http.Request) {
	var action model.MessageAction
	if err := decodeJSON(r, &action); err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	reply, err := h.chat.HandleAction(r.Context(), conversationID(r), action)
	if err != nil {
		if errors.Is(err, model.ErrUnknownAction) {
			writeError(w, err, http.StatusUnprocessableEntity)
			return
		}
		writeError(w, err, statusForChatErr(err))
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

// HandleGetEngine returns the persisted engine preference
func (h *ChatHandler) HandleGetEngine(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]types.Engine{
		"engine": h.chat.PreferredEngine(r.Context()),
	})
}

// HandleSetEngine persists the engine preference
func (h *ChatHandler) HandleSetEngine(w http.ResponseWriter, r *http.Request) {
	var req engineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	if err := h.chat.SetPreferredEngine(r.Context(), req.Engine); err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func conversationID(r *http.Request) types.ConversationID {
	return types.ConversationID(chi.URLParam(r, "conversationID"))
}

func statusForChatErr(err error) int {
	if errors.Is(err, model.ErrConversationNotFound) {
		return http.StatusNotFound
	}
	if goerr.Unwrap(err) != nil {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
