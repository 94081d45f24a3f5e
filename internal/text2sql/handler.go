package text2sql

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ejsmile/systech-aidd/internal/llm"
	"github.com/ejsmile/systech-aidd/internal/models"
	"github.com/ejsmile/systech-aidd/internal/store"
)

// defaultPrompt instructs the model when no custom prompt file is supplied.
const defaultPrompt = `You translate natural-language questions about a chat
assistant's database into SQL. The schema has two tables:
users(user_id, username, first_name, last_name, created_at, updated_at) and
messages(id, chat_id, user_id, role, content, content_length, created_at,
deleted_at). Soft-deleted rows have deleted_at set; live rows have it NULL.
Reply with a single SELECT statement and nothing else.`

// Result is the admin endpoint payload: the generated SQL, the rows it
// returned, and the model's interpretation of those rows.
type Result struct {
	SQL            string           `json:"sql"`
	Rows           []map[string]any `json:"rows"`
	Interpretation string           `json:"interpretation"`
}

// Handler turns natural-language admin questions into validated read-only
// SQL over the shared store.
type Handler struct {
	llm    *llm.Client
	store  store.DataStore
	prompt string
	logger zerolog.Logger
}

// NewHandler creates a text2sql handler. An empty prompt selects the
// built-in one.
func NewHandler(client *llm.Client, ds store.DataStore, prompt string, logger zerolog.Logger) *Handler {
	if prompt == "" {
		prompt = defaultPrompt
	}
	return &Handler{
		llm:    client,
		store:  ds,
		prompt: prompt,
		logger: logger.With().Str("component", "text2sql").Logger(),
	}
}

// ValidationError marks a rejected query so the transport layer can answer
// 400 instead of 500.
type ValidationError struct {
	Reason error
}

func (e *ValidationError) Error() string { return e.Reason.Error() }
func (e *ValidationError) Unwrap() error { return e.Reason }

// Process generates SQL for the question, validates and executes it
// read-only, then asks the model to interpret the rows.
func (h *Handler) Process(ctx context.Context, question string) (*Result, error) {
	generated, err := h.llm.Complete(ctx, []models.ChatMessage{
		{Role: models.RoleSystem, Content: h.prompt},
		{Role: models.RoleUser, Content: question},
	})
	if err != nil {
		return nil, fmt.Errorf("sql generation failed: %w", err)
	}

	sql := Sanitize(generated)
	if err := Validate(sql); err != nil {
		h.logger.Warn().Err(err).Str("sql", sql).Msg("generated sql rejected")
		return nil, &ValidationError{Reason: err}
	}

	rows, err := h.store.RunReadOnlyQuery(ctx, sql)
	if err != nil {
		h.logger.Error().Err(err).Str("sql", sql).Msg("query execution failed")
		return nil, fmt.Errorf("query execution failed: %w", err)
	}

	interpretation, err := h.llm.Complete(ctx, []models.ChatMessage{
		{Role: models.RoleSystem, Content: "Briefly summarize the following query result for an administrator."},
		{Role: models.RoleUser, Content: fmt.Sprintf("Question: %s\nSQL: %s\nRows: %v", question, sql, rows)},
	})
	if err != nil {
		return nil, fmt.Errorf("result interpretation failed: %w", err)
	}

	return &Result{SQL: sql, Rows: rows, Interpretation: interpretation}, nil
}
