package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ejsmile/systech-aidd/internal/conversation"
	"github.com/ejsmile/systech-aidd/internal/llm"
	"github.com/ejsmile/systech-aidd/internal/stats"
	"github.com/ejsmile/systech-aidd/internal/store"
	"github.com/ejsmile/systech-aidd/internal/text2sql"
)

const testSystemPrompt = "You are a helpful assistant"

// testServer wires the handler onto a router with real storage and a
// scripted language model. Each reply string answers one completion call.
func testServer(t *testing.T, llmReplies ...string) *httptest.Server {
	t.Helper()

	s, err := store.NewSQLiteStore(context.Background(), t.TempDir()+"/test.db")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Close)

	var call int
	llmSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if call >= len(llmReplies) {
			http.Error(w, "no scripted reply", http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, `{"choices":[{"message":{"content":%q}}]}`, llmReplies[call])
		call++
	}))
	t.Cleanup(llmSrv.Close)

	logger := zerolog.Nop()
	client := llm.NewClient(llm.Options{APIKey: "k", BaseURL: llmSrv.URL, Model: "m"}, logger)
	manager := conversation.NewManager(conversation.NewRepository(s, logger), 10, logger)
	collector := stats.NewStoreCollector(s, logger)
	admin := text2sql.NewHandler(client, s, "", logger)
	h := NewHandler(s, manager, client, collector, admin, testSystemPrompt)

	r := chi.NewRouter()
	r.Get("/", h.Root)
	r.Get("/health", h.Health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/statistics", h.GetStatistics)
		r.Post("/chat/message", h.SendChatMessage)
		r.Get("/chat/history/{userID}", h.GetChatHistory)
		r.Delete("/chat/history/{userID}", h.ClearChatHistory)
		r.Post("/admin/query", h.AdminQuery)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, body string) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var payload map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return resp, payload
}

func TestSendChatMessage(t *testing.T) {
	srv := testServer(t, "Hello there!")

	resp, err := http.Post(srv.URL+"/api/v1/chat/message", "application/json",
		strings.NewReader(`{"user_id":"web-user-1","message":"hi"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var out ChatMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Response != "Hello there!" {
		t.Errorf("unexpected response %q", out.Response)
	}
	if out.UserID != "web-user-1" {
		t.Errorf("expected user id echoed back, got %q", out.UserID)
	}
	if out.MessageID <= 0 {
		t.Errorf("expected a positive message id, got %d", out.MessageID)
	}
}

func TestSendChatMessageGeneratesUserID(t *testing.T) {
	srv := testServer(t, "Hi!")

	resp, err := http.Post(srv.URL+"/api/v1/chat/message", "application/json",
		strings.NewReader(`{"message":"hello"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var out ChatMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.UserID == "" {
		t.Error("expected a generated user id")
	}
}

func TestSendChatMessageEmptyMessage(t *testing.T) {
	srv := testServer(t)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/v1/chat/message", `{"user_id":"u","message":"   "}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for blank message, got %d", resp.StatusCode)
	}
}

func TestSendChatMessageBadBody(t *testing.T) {
	srv := testServer(t)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/v1/chat/message", `{not json`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed body, got %d", resp.StatusCode)
	}
}

func TestSendChatMessageLLMFailure(t *testing.T) {
	// No scripted replies: the model call fails.
	srv := testServer(t)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/v1/chat/message", `{"user_id":"u","message":"hi"}`)
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("expected 502 on model failure, got %d", resp.StatusCode)
	}
}

func TestChatHistoryRoundTrip(t *testing.T) {
	srv := testServer(t, "First reply", "Second reply")

	for _, msg := range []string{"question one", "question two"} {
		resp, err := http.Post(srv.URL+"/api/v1/chat/message", "application/json",
			strings.NewReader(fmt.Sprintf(`{"user_id":"web-user-2","message":%q}`, msg)))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("send failed with %d", resp.StatusCode)
		}
	}

	resp, err := http.Get(srv.URL + "/api/v1/chat/history/web-user-2")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var out ChatHistoryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	// System messages are filtered out of the rendered history.
	if len(out.Messages) != 4 {
		t.Fatalf("expected 4 dialogue entries, got %d", len(out.Messages))
	}
	want := []ChatHistoryItem{
		{Role: "user", Content: "question one"},
		{Role: "assistant", Content: "First reply"},
		{Role: "user", Content: "question two"},
		{Role: "assistant", Content: "Second reply"},
	}
	for i, item := range out.Messages {
		if item != want[i] {
			t.Errorf("position %d: got %+v, want %+v", i, item, want[i])
		}
	}
}

func TestChatHistoryEmptyUser(t *testing.T) {
	srv := testServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/chat/history/never-seen")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var out ChatHistoryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Messages) != 0 {
		t.Errorf("expected empty history, got %+v", out.Messages)
	}
}

func TestClearChatHistory(t *testing.T) {
	srv := testServer(t, "reply")

	resp, err := http.Post(srv.URL+"/api/v1/chat/message", "application/json",
		strings.NewReader(`{"user_id":"web-user-3","message":"hi"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/v1/chat/history/web-user-3", nil)
	delResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer delResp.Body.Close()

	var out ClearHistoryResponse
	if err := json.NewDecoder(delResp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	// System + user + assistant rows were live.
	if !out.Success || out.DeletedCount != 3 {
		t.Errorf("unexpected clear result: %+v", out)
	}

	histResp, err := http.Get(srv.URL + "/api/v1/chat/history/web-user-3")
	if err != nil {
		t.Fatal(err)
	}
	defer histResp.Body.Close()
	var hist ChatHistoryResponse
	if err := json.NewDecoder(histResp.Body).Decode(&hist); err != nil {
		t.Fatal(err)
	}
	if len(hist.Messages) != 0 {
		t.Errorf("expected empty history after clear, got %+v", hist.Messages)
	}
}

func TestGetStatisticsEndpoint(t *testing.T) {
	srv := testServer(t, "reply")

	resp, err := http.Post(srv.URL+"/api/v1/chat/message", "application/json",
		strings.NewReader(`{"user_id":"stats-user","message":"hi"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	statsResp, err := http.Get(srv.URL + "/api/v1/statistics")
	if err != nil {
		t.Fatal(err)
	}
	defer statsResp.Body.Close()

	if statsResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", statsResp.StatusCode)
	}
	var out stats.Statistics
	if err := json.NewDecoder(statsResp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	// System + user + assistant rows, no registered users.
	if out.TotalMessages != 3 {
		t.Errorf("expected 3 messages, got %d", out.TotalMessages)
	}
}

func TestGetStatisticsMockCollector(t *testing.T) {
	// The statistics handler only sees the Collector interface; a mock
	// collector serves generated data with no store rows behind it.
	s, err := store.NewSQLiteStore(context.Background(), t.TempDir()+"/test.db")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Close)

	logger := zerolog.Nop()
	client := llm.NewClient(llm.Options{APIKey: "k", BaseURL: "http://127.0.0.1:0", Model: "m"}, logger)
	manager := conversation.NewManager(conversation.NewRepository(s, logger), 10, logger)
	admin := text2sql.NewHandler(client, s, "", logger)
	h := NewHandler(s, manager, client, stats.NewMockCollector(30, 400, 30, 1), admin, testSystemPrompt)

	rec := httptest.NewRecorder()
	h.GetStatistics(rec, httptest.NewRequest(http.MethodGet, "/api/v1/statistics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var out stats.Statistics
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.TotalUsers != 30 || out.TotalMessages == 0 {
		t.Errorf("expected generated data, got %+v", out)
	}
}

func TestGetStatisticsBadDate(t *testing.T) {
	srv := testServer(t)

	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/api/v1/statistics?start_date=yesterday", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for unparseable date, got %d", resp.StatusCode)
	}
}

func TestAdminQueryEndpoint(t *testing.T) {
	srv := testServer(t,
		"SELECT COUNT(*) AS total FROM messages",
		"The table is empty.",
	)

	resp, payload := doJSON(t, http.MethodPost, srv.URL+"/api/v1/admin/query", `{"query":"how many messages?"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var sql string
	if err := json.Unmarshal(payload["sql"], &sql); err != nil {
		t.Fatal(err)
	}
	if sql != "SELECT COUNT(*) AS total FROM messages" {
		t.Errorf("unexpected sql %q", sql)
	}
}

func TestAdminQueryRejected(t *testing.T) {
	srv := testServer(t, "DROP TABLE messages")

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/v1/admin/query", `{"query":"drop it"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for rejected sql, got %d", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	srv := testServer(t)

	resp, payload := doJSON(t, http.MethodGet, srv.URL+"/health", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var status string
	if err := json.Unmarshal(payload["status"], &status); err != nil {
		t.Fatal(err)
	}
	if status != "healthy" {
		t.Errorf("unexpected status %q", status)
	}
}

func TestWebChatKeyStable(t *testing.T) {
	a := webChatKey("some-user")
	b := webChatKey("some-user")
	if a != b {
		t.Error("same user id produced different keys")
	}
	if a == webChatKey("other-user") {
		t.Error("different user ids collided")
	}
	if a.ChatID < 0 || a.ChatID != a.UserID {
		t.Errorf("unexpected key shape: %+v", a)
	}
}
