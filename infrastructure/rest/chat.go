// Package rest exposes the chat history and deletion endpoints consumed by
// the web client. Deletions go through the router so every connected channel
// still receives the matching broadcast, exactly like socket-initiated ones.
package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"chat-hub/domain"
	"chat-hub/services"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type ChatHandler struct {
	log  *slog.Logger
	chat services.IChatService
}

func NewChatHandler(log *slog.Logger, chat services.IChatService) *ChatHandler {
	return &ChatHandler{log: log, chat: chat}
}

// Mount attaches the chat routes under /api/chat.
func (h *ChatHandler) Mount(r chi.Router) {
	r.Get("/api/chat/messages", h.listMessages)
	r.Delete("/api/chat/message/{id}", h.deleteMessage)
	r.Delete("/api/chat/messages", h.clearMessages)
}

type messageView struct {
	ID        string    `json:"id"`
	User      string    `json:"user"`
	Message   string    `json:"message"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (h *ChatHandler) listMessages(w http.ResponseWriter, _ *http.Request) {
	messages, err := h.chat.History()
	if err != nil {
		h.log.Error("Loading chat history failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to load chat history"})
		return
	}
	views := lo.Map(messages, func(m domain.ChatMessage, _ int) messageView {
		return messageView{
			ID:        m.ID.String(),
			User:      m.Author,
			Message:   m.Text,
			ImageURL:  m.Attachment,
			CreatedAt: m.CreatedAt,
		}
	})
	writeJSON(w, http.StatusOK, views)
}

// deleteMessage queues the deletion and returns immediately. The router
// performs the store delete and the message_deleted broadcast as one step.
func (h *ChatHandler) deleteMessage(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid message id"})
		return
	}
	h.chat.Dispatch(domain.DeleteMessage{ID: id})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Message deleted"})
}

func (h *ChatHandler) clearMessages(w http.ResponseWriter, _ *http.Request) {
	h.chat.Dispatch(domain.ClearMessages{})
	writeJSON(w, http.StatusOK, map[string]string{"message": "All messages cleared"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
