package handlers

import (
	"encoding/json"
	"hash/fnv"
	"net/http"

	"github.com/google/uuid"

	"github.com/ejsmile/systech-aidd/internal/conversation"
	"github.com/ejsmile/systech-aidd/internal/llm"
	"github.com/ejsmile/systech-aidd/internal/models"
	"github.com/ejsmile/systech-aidd/internal/stats"
	"github.com/ejsmile/systech-aidd/internal/store"
	"github.com/ejsmile/systech-aidd/internal/text2sql"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	store        store.DataStore
	manager      *conversation.Manager
	llm          *llm.Client
	stats        stats.Collector
	text2sql     *text2sql.Handler
	systemPrompt string
}

// NewHandler creates a new Handler with the given dependencies.
func NewHandler(ds store.DataStore, manager *conversation.Manager, llmClient *llm.Client, collector stats.Collector, admin *text2sql.Handler, systemPrompt string) *Handler {
	return &Handler{
		store:        ds,
		manager:      manager,
		llm:          llmClient,
		stats:        collector,
		text2sql:     admin,
		systemPrompt: systemPrompt,
	}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// Root returns service info.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	h.JSON(w, http.StatusOK, map[string]string{
		"message": "AIDD API is running",
		"version": "0.1.0",
	})
}

// webChatKey maps a web user id onto a ConversationKey. Web sessions have no
// numeric chat, so the hashed id serves as both components.
func webChatKey(userID string) models.ConversationKey {
	h := fnv.New32a()
	h.Write([]byte(userID))
	id := int64(h.Sum32() % (1 << 31))
	return models.NewConversationKey(id, id)
}

// newWebUserID generates an id for anonymous web sessions.
func newWebUserID() string {
	return uuid.NewString()
}
