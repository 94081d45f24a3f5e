package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ejsmile/systech-aidd/internal/models"
)

// SQLiteStore handles SQLite database operations. It is the development and
// test backend; production runs PostgresStore against a shared instance.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/aidd.db".
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/aidd.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	// Initialize schema
	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		chat_id INTEGER NOT NULL,
		user_id INTEGER NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		content_length INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL,
		deleted_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_messages_lookup
		ON messages (chat_id, user_id, deleted_at, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_messages_created
		ON messages (created_at DESC);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_messages_system_live
		ON messages (chat_id, user_id)
		WHERE role = 'system' AND deleted_at IS NULL;

	CREATE TABLE IF NOT EXISTS users (
		user_id INTEGER PRIMARY KEY,
		username TEXT,
		first_name TEXT,
		last_name TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// InsertMessage persists a new message row. SQLite has no server-side
// default with sub-second precision, so created_at is assigned here.
func (s *SQLiteStore) InsertMessage(ctx context.Context, msg *models.Message) (*models.Message, error) {
	out := *msg
	out.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (chat_id, user_id, role, content, content_length, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, msg.ChatID, msg.UserID, string(msg.Role), msg.Content, msg.ContentLength, out.CreatedAt)
	if err != nil {
		return nil, err
	}

	out.ID, err = res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// InsertSystemMessage inserts a system row unless a live one already exists
// for the key; the partial unique index arbitrates concurrent callers.
func (s *SQLiteStore) InsertSystemMessage(ctx context.Context, msg *models.Message) (*models.Message, error) {
	out := *msg
	out.Role = models.RoleSystem
	out.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (chat_id, user_id, role, content, content_length, created_at)
		VALUES (?, ?, 'system', ?, ?, ?)
		ON CONFLICT (chat_id, user_id) WHERE role = 'system' AND deleted_at IS NULL
		DO NOTHING
	`, msg.ChatID, msg.UserID, msg.Content, msg.ContentLength, out.CreatedAt)
	if err != nil {
		return nil, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected > 0 {
		out.ID, err = res.LastInsertId()
		if err != nil {
			return nil, err
		}
		return &out, nil
	}

	// Conflict: return the live system row that won.
	existing := &models.Message{}
	var role string
	err = s.db.QueryRowContext(ctx, `
		SELECT id, chat_id, user_id, role, content, content_length, created_at, deleted_at
		FROM messages
		WHERE chat_id = ? AND user_id = ? AND role = 'system' AND deleted_at IS NULL
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
func (s *SQLiteStore) ListLiveMessages(ctx context.Context, key models.ConversationKey) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, chat_id, user_id, role, content, content_length, created_at, deleted_at
		FROM messages
		WHERE chat_id = ? AND user_id = ? AND deleted_at IS NULL
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
func (s *SQLiteStore) SoftDeleteMessages(ctx context.Context, key models.ConversationKey) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE messages
		SET deleted_at = ?
		WHERE chat_id = ? AND user_id = ? AND deleted_at IS NULL
	`, time.Now().UTC().Truncate(time.Millisecond), key.ChatID, key.UserID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountLiveMessages returns the number of live rows for the key.
func (s *SQLiteStore) CountLiveMessages(ctx context.Context, key models.ConversationKey) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM messages
		WHERE chat_id = ? AND user_id = ? AND deleted_at IS NULL
	`, key.ChatID, key.UserID).Scan(&count)
	return count, err
}

// UpsertUser creates or refreshes a user record keyed by user_id.
func (s *SQLiteStore) UpsertUser(ctx context.Context, user *models.User) (*models.User, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (user_id, username, first_name, last_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			username = excluded.username,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			updated_at = excluded.updated_at
	`, user.UserID, user.Username, user.FirstName, user.LastName, now, now)
	if err != nil {
		return nil, err
	}
	return s.GetUserByID(ctx, user.UserID)
}

// GetUserByID retrieves a user by ID. Returns nil if not found.
func (s *SQLiteStore) GetUserByID(ctx context.Context, userID int64) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, username, first_name, last_name, created_at, updated_at
		FROM users WHERE user_id = ?
	`, userID).Scan(
		&user.UserID,
		&user.Username,
		&user.FirstName,
		&user.LastName,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// CountUserMessages returns the number of live messages sent by the user.
func (s *SQLiteStore) CountUserMessages(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM messages
		WHERE user_id = ? AND deleted_at IS NULL
	`, userID).Scan(&count)
	return count, err
}

// CountUsers returns the total number of registered users.
func (s *SQLiteStore) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

// CountActiveUsers returns the number of distinct users with live messages
// in the given period.
func (s *SQLiteStore) CountActiveUsers(ctx context.Context, since, until *time.Time) (int64, error) {
	query := `SELECT COUNT(DISTINCT user_id) FROM messages WHERE deleted_at IS NULL`
	query, args := appendDateRangeSQLite(query, nil, `created_at`, since, until)

	var count int64
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, err
}

// CountMessages returns the number of live messages in the given period.
func (s *SQLiteStore) CountMessages(ctx context.Context, since, until *time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM messages WHERE deleted_at IS NULL`
	query, args := appendDateRangeSQLite(query, nil, `created_at`, since, until)

	var count int64
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, err
}

// MessagesByDate returns per-day live message counts in chronological order.
func (s *SQLiteStore) MessagesByDate(ctx context.Context, since, until *time.Time) ([]DateCount, error) {
	query := `
		SELECT DATE(created_at) AS day, COUNT(*)
		FROM messages WHERE deleted_at IS NULL`
	query, args := appendDateRangeSQLite(query, nil, `created_at`, since, until)
	query += ` GROUP BY day ORDER BY day`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []DateCount
	for rows.Next() {
		var day string
		var dc DateCount
		if err := rows.Scan(&day, &dc.Count); err != nil {
			return nil, err
		}
		dc.Date, err = time.Parse("2006-01-02", day)
		if err != nil {
			return nil, err
		}
		counts = append(counts, dc)
	}
	return counts, rows.Err()
}

// TopUsers returns the most active users by live message count.
func (s *SQLiteStore) TopUsers(ctx context.Context, since, until *time.Time, limit int) ([]UserCount, error) {
	query := `
		SELECT m.user_id, u.username, COUNT(m.id) AS message_count
		FROM messages m
		LEFT JOIN users u ON u.user_id = m.user_id
		WHERE m.deleted_at IS NULL`
	query, args := appendDateRangeSQLite(query, nil, `m.created_at`, since, until)
	query += ` GROUP BY m.user_id, u.username ORDER BY message_count DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
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
func (s *SQLiteStore) RunReadOnlyQuery(ctx context.Context, query string) ([]map[string]any, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// appendDateRangeSQLite adds created_at bounds to a query that already ends
// in a WHERE clause.
func appendDateRangeSQLite(query string, args []any, col string, since, until *time.Time) (string, []any) {
	if since != nil {
		query += ` AND ` + col + ` >= ?`
		args = append(args, *since)
	}
	if until != nil {
		query += ` AND ` + col + ` <= ?`
		args = append(args, *until)
	}
	return query, args
}
