package conversation

import (
	"context"
	"sort"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/ejsmile/systech-aidd/internal/models"
	"github.com/ejsmile/systech-aidd/internal/store"
)

// Repository translates conversation-level operations into store queries. It
// owns the history-windowing algorithm; the store below it only knows rows.
type Repository struct {
	store  store.DataStore
	logger zerolog.Logger
}

// NewRepository creates a repository over the given store.
func NewRepository(ds store.DataStore, logger zerolog.Logger) *Repository {
	return &Repository{
		store:  ds,
		logger: logger.With().Str("component", "repository").Logger(),
	}
}

// AddMessage persists a message for the conversation key. ContentLength is
// the character (rune) count of the content at insert time; it is recorded
// once and never re-validated.
func (r *Repository) AddMessage(ctx context.Context, key models.ConversationKey, msg models.ChatMessage) (*models.Message, error) {
	row := &models.Message{
		ChatID:        key.ChatID,
		UserID:        key.UserID,
		Role:          msg.Role,
		Content:       msg.Content,
		ContentLength: utf8.RuneCountInString(msg.Content),
	}

	saved, err := r.store.InsertMessage(ctx, row)
	if err != nil {
		r.logger.Error().Err(err).Stringer("key", key).Msg("insert message failed")
		return nil, err
	}

	r.logger.Debug().
		Stringer("key", key).
		Str("role", string(msg.Role)).
		Int64("id", saved.ID).
		Msg("message added")
	return saved, nil
}

// GetHistory returns the conversation's live messages, oldest first, with a
// bounded window applied to non-system messages only.
//
// The store returns rows newest first; system rows are set aside so the
// window can never evict them, the most recent limit non-system rows are
// kept, and the combined result is re-sorted chronologically. limit <= 0
// means unlimited.
func (r *Repository) GetHistory(ctx context.Context, key models.ConversationKey, limit int) ([]models.ChatMessage, error) {
	rows, err := r.store.ListLiveMessages(ctx, key)
	if err != nil {
		r.logger.Error().Err(err).Stringer("key", key).Msg("history fetch failed")
		return nil, err
	}

	var system, rest []models.Message
	for _, row := range rows {
		if row.Role == models.RoleSystem {
			system = append(system, row)
		} else {
			rest = append(rest, row)
		}
	}

	// rest is newest-first, so truncating the tail drops the oldest.
	if limit > 0 && len(rest) > limit {
		rest = rest[:limit]
	}

	combined := append(system, rest...)
	sort.Slice(combined, func(i, j int) bool {
		if combined[i].CreatedAt.Equal(combined[j].CreatedAt) {
			return combined[i].ID < combined[j].ID
		}
		return combined[i].CreatedAt.Before(combined[j].CreatedAt)
	})

	history := make([]models.ChatMessage, 0, len(combined))
	for _, row := range combined {
		history = append(history, row.ChatMessage())
	}
	return history, nil
}

// SoftDeleteHistory marks every live message for the key as deleted and
// returns the affected row count. Idempotent: a second call returns 0.
func (r *Repository) SoftDeleteHistory(ctx context.Context, key models.ConversationKey) (int64, error) {
	count, err := r.store.SoftDeleteMessages(ctx, key)
	if err != nil {
		r.logger.Error().Err(err).Stringer("key", key).Msg("soft delete failed")
		return 0, err
	}

	r.logger.Info().Stringer("key", key).Int64("deleted", count).Msg("history soft deleted")
	return count, nil
}

// HistoryCount returns the number of live messages for the key. Used for
// diagnostics, not in the hot path.
func (r *Repository) HistoryCount(ctx context.Context, key models.ConversationKey) (int64, error) {
	return r.store.CountLiveMessages(ctx, key)
}

// insertSystemMessage persists a system message through the conditional
// insert, so at most one live system row exists per key.
func (r *Repository) insertSystemMessage(ctx context.Context, key models.ConversationKey, prompt string) (*models.Message, error) {
	row := &models.Message{
		ChatID:        key.ChatID,
		UserID:        key.UserID,
		Role:          models.RoleSystem,
		Content:       prompt,
		ContentLength: utf8.RuneCountInString(prompt),
	}

	saved, err := r.store.InsertSystemMessage(ctx, row)
	if err != nil {
		r.logger.Error().Err(err).Stringer("key", key).Msg("system message insert failed")
		return nil, err
	}
	return saved, nil
}
