package users

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ejsmile/systech-aidd/internal/models"
	"github.com/ejsmile/systech-aidd/internal/store"
)

// Repository manages user records. Front ends upsert the sender on every
// inbound message so the statistics layer can resolve usernames.
type Repository struct {
	store  store.DataStore
	logger zerolog.Logger
}

// NewRepository creates a user repository over the given store.
func NewRepository(ds store.DataStore, logger zerolog.Logger) *Repository {
	return &Repository{
		store:  ds,
		logger: logger.With().Str("component", "users").Logger(),
	}
}

// Upsert creates or refreshes a user record.
func (r *Repository) Upsert(ctx context.Context, userID int64, username, firstName, lastName string) (*models.User, error) {
	user := &models.User{
		UserID:    userID,
		Username:  optional(username),
		FirstName: optional(firstName),
		LastName:  optional(lastName),
	}

	saved, err := r.store.UpsertUser(ctx, user)
	if err != nil {
		r.logger.Error().Err(err).Int64("user_id", userID).Msg("user upsert failed")
		return nil, err
	}
	return saved, nil
}

// Get retrieves a user by ID. Returns nil if unknown.
func (r *Repository) Get(ctx context.Context, userID int64) (*models.User, error) {
	return r.store.GetUserByID(ctx, userID)
}

// MessageCount returns the user's live message count across conversations.
func (r *Repository) MessageCount(ctx context.Context, userID int64) (int64, error) {
	return r.store.CountUserMessages(ctx, userID)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
