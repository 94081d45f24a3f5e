package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ejsmile/systech-aidd/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// InsertMessage persists a new message row and returns it with the
// store-assigned id and created_at.
func (s *PostgresStore) InsertMessage(ctx context.Context, msg *models.Message) (*models.Message, error) {
	out := *msg
	err := s.pool.QueryRow(ctx, `
		INSERT INTO messages (chat_id, user_id, role, content, content_length)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, msg.ChatID, msg.UserID, string(msg.Role), msg.Content, msg.ContentLength).Scan(
		&out.ID,
		&out.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// InsertSystemMessage inserts a system row unless the conversation already
// has a live one. The partial unique index on (chat_id, user_id) for live
// system rows makes the check-and-insert a single atomic statement; when the
// insert is skipped the existing row is fetched and returned.
func (s *PostgresStore) InsertSystemMessage(ctx context.Context, msg *models.Message) (*models.Message, error) {
	out := *msg
	out.Role = models.RoleSystem
	err := s.pool.QueryRow(ctx, `
		INSERT INTO messages (chat_id, user_id, role, content, content_length)
		VALUES ($1, $2, 'system', $3, $4)
		ON CONFLICT (chat_id, user_id) WHERE role = 'system' AND deleted_at IS NULL
		DO NOTHING
		RETURNING id, created_at
	`, msg.ChatID, msg.UserID, msg.Content, msg.ContentLength).Scan(
		&out.ID,
		&out.CreatedAt,
	)
	if err == nil {
		return &out, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	// Conflict: a concurrent caller created the row first. Return theirs.
	existing := &models.Message{}
	var role string
	err = s.pool.QueryRow(ctx, `
		SELECT id, chat_id, user_id, role, content, content_length, created_at, deleted_at
		FROM messages
		WHERE chat_id = $1 AND user_id = $2 AND role = 'system' AND deleted_at IS NULL
		ORDER BY created_at, id
		LIMIT 1
	`, msg.ChatID, msg.UserID).Scan(
		&existing.ID,
		&existing.ChatID,
		&existing.UserID,
		&role,
		&existing.Content,
		&existing.ContentLength,
		&existing.CreatedAt,
		&existing.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	existing.Role = models.Role(role)
	return existing, nil
}

// ListLiveMessages retrieves all live rows for the conversation key, newest
// first.
func (s *PostgresStore) ListLiveMessages(ctx context.Context, key models.ConversationKey) ([]models.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, chat_id, user_id, role, content, content_length, created_at, deleted_at
		FROM messages
		WHERE chat_id = $1 AND user_id = $2 AND deleted_at IS NULL
		ORDER BY created_at DESC, id DESC
	`, key.ChatID, key.UserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		var role string
		err := rows.Scan(
			&msg.ID,
			&msg.ChatID,
			&msg.UserID,
			&role,
			&msg.Content,
			&msg.ContentLength,
			&msg.CreatedAt,
			&msg.DeletedAt,
		)
		if err != nil {
			return nil, err
		}
		msg.Role = models.Role(role)
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// SoftDeleteMessages marks every live row for the key as deleted.
func (s *PostgresStore) SoftDeleteMessages(ctx context.Context, key models.ConversationKey) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE messages
		SET deleted_at = NOW()
		WHERE chat_id = $1 AND user_id = $2 AND deleted_at IS NULL
	`, key.ChatID, key.UserID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// CountLiveMessages returns the number of live rows for the key.
func (s *PostgresStore) CountLiveMessages(ctx context.Context, key models.ConversationKey) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM messages
		WHERE chat_id = $1 AND user_id = $2 AND deleted_at IS NULL
	`, key.ChatID, key.UserID).Scan(&count)
	return count, err
}

// UpsertUser creates or refreshes a user record keyed by user_id.
func (s *PostgresStore) UpsertUser(ctx context.Context, user *models.User) (*models.User, error) {
	out := &models.User{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (user_id, username, first_name, last_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			username = EXCLUDED.username,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			updated_at = NOW()
		RETURNING user_id, username, first_name, last_name, created_at, updated_at
	`, user.UserID, user.Username, user.FirstName, user.LastName).Scan(
		&out.UserID,
		&out.Username,
		&out.FirstName,
		&out.LastName,
		&out.CreatedAt,
		&out.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetUserByID retrieves a user by ID. Returns nil if not found.
func (s *PostgresStore) GetUserByID(ctx context.Context, userID int64) (*models.User, error) {
	user := &models.User{}
	err := s.pool.QueryRow(ctx, `
		SELECT user_id, username, first_name, last_name, created_at, updated_at
		FROM users WHERE user_id = $1
	`, userID).Scan(
		&user.UserID,
		&user.Username,
		&user.FirstName,
		&user.LastName,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// CountUserMessages returns the number of live messages sent by the user
// across all conversations.
func (s *PostgresStore) CountUserMessages(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM messages
		WHERE user_id = $1 AND deleted_at IS NULL
	`, userID).Scan(&count)
	return count, err
}

// CountUsers returns the total number of registered users.
func (s *PostgresStore) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

// CountActiveUsers returns the number of distinct users with live messages
// in the given period.
func (s *PostgresStore) CountActiveUsers(ctx context.Context, since, until *time.Time) (int64, error) {
	query := `SELECT COUNT(DISTINCT user_id) FROM messages WHERE deleted_at IS NULL`
	query, args := appendDateRange(query, nil, `created_at`, since, until)

	var count int64
	err := s.pool.QueryRow(ctx, query, args...).Scan(&count)
	return count, err
}

// CountMessages returns the number of live messages in the given period.
func (s *PostgresStore) CountMessages(ctx context.Context, since, until *time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM messages WHERE deleted_at IS NULL`
	query, args := appendDateRange(query, nil, `created_at`, since, until)

	var count int64
	err := s.pool.QueryRow(ctx, query, args...).Scan(&count)
	return count, err
}

// MessagesByDate returns per-day live message counts in chronological order.
func (s *PostgresStore) MessagesByDate(ctx context.Context, since, until *time.Time) ([]DateCount, error) {
	query := `
		SELECT DATE(created_at) AS day, COUNT(*)
		FROM messages WHERE deleted_at IS NULL`
	query, args := appendDateRange(query, nil, `created_at`, since, until)
	query += ` GROUP BY day ORDER BY day`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []DateCount
	for rows.Next() {
		var dc DateCount
		if err := rows.Scan(&dc.Date, &dc.Count); err != nil {
			return nil, err
		}
		counts = append(counts, dc)
	}
	return counts, rows.Err()
}

// TopUsers returns the most active users by live message count, joined with
// their usernames where known.
func (s *PostgresStore) TopUsers(ctx context.Context, since, until *time.Time, limit int) ([]UserCount, error) {
	query := `
		SELECT m.user_id, u.username, COUNT(m.id) AS message_count
		FROM messages m
		LEFT JOIN users u ON u.user_id = m.user_id
		WHERE m.deleted_at IS NULL`
	query, args := appendDateRange(query, nil, `m.created_at`, since, until)
	args = append(args, limit)
	query += ` GROUP BY m.user_id, u.username ORDER BY message_count DESC LIMIT $` + strconv.Itoa(len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []UserCount
	for rows.Next() {
		var uc UserCount
		if err := rows.Scan(&uc.UserID, &uc.Username, &uc.MessageCount); err != nil {
			return nil, err
		}
		users = append(users, uc)
	}
	return users, rows.Err()
}

// RunReadOnlyQuery executes a validated SELECT and returns generic rows.
func (s *PostgresStore) RunReadOnlyQuery(ctx context.Context, query string) ([]map[string]any, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(map[string]any, len(fields))
		for i, fd := range fields {
			row[fd.Name] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// appendDateRange adds created_at bounds to a query that already ends in a
// WHERE clause, numbering placeholders after the existing args.
func appendDateRange(query string, args []any, col string, since, until *time.Time) (string, []any) {
	if since != nil {
		args = append(args, *since)
		query += ` AND ` + col + ` >= $` + strconv.Itoa(len(args))
	}
	if until != nil {
		args = append(args, *until)
		query += ` AND ` + col + ` <= $` + strconv.Itoa(len(args))
	}
	return query, args
}

