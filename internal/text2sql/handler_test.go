package text2sql

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ejsmile/systech-aidd/internal/llm"
	"github.com/ejsmile/systech-aidd/internal/models"
	"github.com/ejsmile/systech-aidd/internal/store"
)

// scriptedLLM answers each chat completion with the next scripted reply.
func scriptedLLM(t *testing.T, replies ...string) *llm.Client {
	t.Helper()
	var call int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if call >= len(replies) {
			t.Errorf("unexpected llm call %d", call+1)
			http.Error(w, "no scripted reply", http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, `{"choices":[{"message":{"content":%q}}]}`, replies[call])
		call++
	}))
	t.Cleanup(srv.Close)
	return llm.NewClient(llm.Options{APIKey: "k", BaseURL: srv.URL, Model: "m"}, zerolog.Nop())
}

func testHandlerStore(t *testing.T) store.DataStore {
	t.Helper()
	s, err := store.NewSQLiteStore(context.Background(), t.TempDir()+"/test.db")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Close)

	for i := 0; i < 3; i++ {
		_, err := s.InsertMessage(context.Background(), &models.Message{
			ChatID: 1, UserID: 1, Role: models.RoleUser,
			Content: "hi", ContentLength: 2,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	return s
}

func TestProcess(t *testing.T) {
	client := scriptedLLM(t,
		"```sql\nSELECT COUNT(*) AS total FROM messages\n```",
		"There are 3 messages in total.",
	)
	h := NewHandler(client, testHandlerStore(t), "", zerolog.Nop())

	result, err := h.Process(context.Background(), "how many messages are there?")
	if err != nil {
		t.Fatal(err)
	}
	if result.SQL != "SELECT COUNT(*) AS total FROM messages" {
		t.Errorf("unexpected sql %q", result.SQL)
	}
	if len(result.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(result.Rows))
	}
	if total := result.Rows[0]["total"].(int64); total != 3 {
		t.Errorf("expected 3, got %d", total)
	}
	if result.Interpretation != "There are 3 messages in total." {
		t.Errorf("unexpected interpretation %q", result.Interpretation)
	}
}

func TestProcessRejectsUnsafeSQL(t *testing.T) {
	client := scriptedLLM(t, "DELETE FROM messages")
	h := NewHandler(client, testHandlerStore(t), "", zerolog.Nop())

	_, err := h.Process(context.Background(), "wipe everything")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestProcessRejectsUnknownTable(t *testing.T) {
	client := scriptedLLM(t, "SELECT * FROM secrets")
	h := NewHandler(client, testHandlerStore(t), "", zerolog.Nop())

	_, err := h.Process(context.Background(), "show me secrets")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestProcessGenerationFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)
	client := llm.NewClient(llm.Options{APIKey: "k", BaseURL: srv.URL, Model: "m"}, zerolog.Nop())
	h := NewHandler(client, testHandlerStore(t), "", zerolog.Nop())

	_, err := h.Process(context.Background(), "anything")
	if err == nil {
		t.Fatal("expected error when generation fails")
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		t.Error("generation failure must not be a validation error")
	}
}
