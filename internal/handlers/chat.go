package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ejsmile/systech-aidd/internal/metrics"
	"github.com/ejsmile/systech-aidd/internal/models"
)

// ChatMessageRequest is the web chat send-message payload. UserID may be
// empty, in which case a fresh session id is generated and echoed back.
type ChatMessageRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// ChatMessageResponse carries the assistant's reply and the store id of the
// persisted user message.
type ChatMessageResponse struct {
	UserID    string `json:"user_id"`
	Response  string `json:"response"`
	MessageID int64  `json:"message_id"`
}

// ChatHistoryItem is one rendered history entry.
type ChatHistoryItem struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatHistoryResponse is the rendered non-system history.
type ChatHistoryResponse struct {
	Messages []ChatHistoryItem `json:"messages"`
}

// ClearHistoryResponse reports the outcome of a history clear.
type ClearHistoryResponse struct {
	Success      bool  `json:"success"`
	DeletedCount int64 `json:"deleted_count"`
}

// SendChatMessage runs the web chat pipeline: persist the user message,
// assemble the windowed history, call the model, persist and return the
// reply.
func (h *Handler) SendChatMessage(w http.ResponseWriter, r *http.Request) {
	var req ChatMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		h.Error(w, http.StatusBadRequest, "message is required")
		return
	}
	if req.UserID == "" {
		req.UserID = newWebUserID()
	}

	ctx := r.Context()
	key := webChatKey(req.UserID)

	saved, err := h.manager.AddMessage(ctx, key, models.ChatMessage{Role: models.RoleUser, Content: req.Message})
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to store message")
		return
	}
	metrics.MessagesStored.WithLabelValues(string(models.RoleUser)).Inc()

	history, err := h.manager.GetHistory(ctx, key, h.systemPrompt)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	answer, err := h.llm.Complete(ctx, history)
	if err != nil {
		h.Error(w, http.StatusBadGateway, "language model request failed")
		return
	}

	if _, err := h.manager.AddMessage(ctx, key, models.ChatMessage{Role: models.RoleAssistant, Content: answer}); err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to store reply")
		return
	}
	metrics.MessagesStored.WithLabelValues(string(models.RoleAssistant)).Inc()

	h.JSON(w, http.StatusOK, ChatMessageResponse{
		UserID:    req.UserID,
		Response:  answer,
		MessageID: saved.ID,
	})
}

// GetChatHistory returns the user's windowed history with system messages
// filtered out; clients render only the dialogue itself.
func (h *Handler) GetChatHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		h.Error(w, http.StatusBadRequest, "user id is required")
		return
	}

	history, err := h.manager.GetHistory(r.Context(), webChatKey(userID), h.systemPrompt)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	items := make([]ChatHistoryItem, 0, len(history))
	for _, msg := range history {
		if msg.Role == models.RoleSystem {
			continue
		}
		items = append(items, ChatHistoryItem{Role: string(msg.Role), Content: msg.Content})
	}

	h.JSON(w, http.StatusOK, ChatHistoryResponse{Messages: items})
}

// ClearChatHistory soft-deletes the user's conversation.
func (h *Handler) ClearChatHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		h.Error(w, http.StatusBadRequest, "user id is required")
		return
	}

	deleted, err := h.manager.ClearHistory(r.Context(), webChatKey(userID))
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to clear history")
		return
	}

	metrics.ConversationsCleared.Inc()
	h.JSON(w, http.StatusOK, ClearHistoryResponse{Success: true, DeletedCount: deleted})
}
