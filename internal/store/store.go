package store

import (
	"context"
	"time"

	"github.com/ejsmile/systech-aidd/internal/models"
)

// DateCount is the number of live messages created on a single day.
type DateCount struct {
	Date  time.Time `json:"date"`
	Count int64     `json:"count"`
}

// UserCount is a user's live message count, for the top-users report.
type UserCount struct {
	UserID       int64   `json:"user_id"`
	Username     *string `json:"username,omitempty"`
	MessageCount int64   `json:"message_count"`
}

// DataStore defines the interface for persistent storage of messages and
// users. Both PostgresStore and SQLiteStore implement this interface.
//
// Message rows are append-only: the only update the store ever performs is
// the soft delete, which stamps deleted_at exactly once. Every read filters
// deleted_at IS NULL.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// Message operations
	InsertMessage(ctx context.Context, msg *models.Message) (*models.Message, error)
	// InsertSystemMessage inserts a system-role row guarded by the
	// one-live-system-row-per-key unique index. If a concurrent caller won
	// the race, the existing live system row is returned instead.
	InsertSystemMessage(ctx context.Context, msg *models.Message) (*models.Message, error)
	// ListLiveMessages returns all live rows for the key ordered by
	// created_at descending, id descending among ties.
	ListLiveMessages(ctx context.Context, key models.ConversationKey) ([]models.Message, error)
	// SoftDeleteMessages stamps deleted_at on every live row for the key in
	// one atomic update and returns the affected row count. Calling it on an
	// already-cleared key affects zero rows and is not an error.
	SoftDeleteMessages(ctx context.Context, key models.ConversationKey) (int64, error)
	CountLiveMessages(ctx context.Context, key models.ConversationKey) (int64, error)

	// User operations
	UpsertUser(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByID(ctx context.Context, userID int64) (*models.User, error)
	CountUserMessages(ctx context.Context, userID int64) (int64, error)

	// Statistics (read-only reporting path, bypasses the conversation core)
	CountUsers(ctx context.Context) (int64, error)
	CountActiveUsers(ctx context.Context, since, until *time.Time) (int64, error)
	CountMessages(ctx context.Context, since, until *time.Time) (int64, error)
	MessagesByDate(ctx context.Context, since, until *time.Time) ([]DateCount, error)
	TopUsers(ctx context.Context, since, until *time.Time, limit int) ([]UserCount, error)

	// RunReadOnlyQuery executes a free-form SELECT (validated upstream by
	// the text2sql layer) and returns rows as column-name maps.
	RunReadOnlyQuery(ctx context.Context, query string) ([]map[string]any, error)
}
