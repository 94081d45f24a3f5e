package conversation

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ejsmile/systech-aidd/internal/models"
)

// Manager is the single entry point front ends use for conversation state.
// It owns the system-prompt invariant: every history it returns is non-empty
// and starts with exactly one system message.
//
// The manager keeps no per-key state in memory. All state lives in the
// shared store so multiple front-end processes observe a consistent view
// without coordinating through anything else.
type Manager struct {
	repo       *Repository
	maxHistory int
	logger     zerolog.Logger
}

// NewManager creates a manager with the given non-system history window.
func NewManager(repo *Repository, maxHistory int, logger zerolog.Logger) *Manager {
	return &Manager{
		repo:       repo,
		maxHistory: maxHistory,
		logger:     logger.With().Str("component", "conversation").Logger(),
	}
}

// GetConversationKey builds the key scoping a conversation.
func (m *Manager) GetConversationKey(chatID, userID int64) models.ConversationKey {
	return models.NewConversationKey(chatID, userID)
}

// AddMessage appends a message to the conversation's audit log and returns
// the persisted row. The window is enforced lazily at read time, so the
// store keeps every message ever sent.
func (m *Manager) AddMessage(ctx context.Context, key models.ConversationKey, msg models.ChatMessage) (*models.Message, error) {
	return m.repo.AddMessage(ctx, key, msg)
}

// GetHistory returns the windowed history for the key, guaranteed to start
// with a system message carrying systemPrompt (or whatever prompt the
// conversation was initialized with earlier).
//
// When the conversation has no live system row yet, one is created through a
// conditional insert and prepended to the rows already fetched; there is no
// second fetch. When the fetch surfaces more than one system row (data that
// predates the uniqueness index), only the earliest is kept.
func (m *Manager) GetHistory(ctx context.Context, key models.ConversationKey, systemPrompt string) ([]models.ChatMessage, error) {
	history, err := m.repo.GetHistory(ctx, key, m.maxHistory)
	if err != nil {
		return nil, err
	}

	var system *models.ChatMessage
	rest := make([]models.ChatMessage, 0, len(history))
	for i := range history {
		if history[i].Role == models.RoleSystem {
			if system == nil {
				system = &history[i]
			}
			continue
		}
		rest = append(rest, history[i])
	}

	if system == nil {
		saved, err := m.repo.insertSystemMessage(ctx, key, systemPrompt)
		if err != nil {
			return nil, err
		}
		sys := saved.ChatMessage()
		system = &sys
		m.logger.Debug().Stringer("key", key).Msg("conversation initialized")
	}

	return append([]models.ChatMessage{*system}, rest...), nil
}

// ClearHistory soft-deletes the conversation. The system row is recreated
// lazily by the next GetHistory call.
func (m *Manager) ClearHistory(ctx context.Context, key models.ConversationKey) (int64, error) {
	return m.repo.SoftDeleteHistory(ctx, key)
}
