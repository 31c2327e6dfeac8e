package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"sop-assistant/internal/config"
	"sop-assistant/internal/vectorstore"
	"sop-assistant/models"
	"sop-assistant/services"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type staticEmbedder struct {
	vectors map[string][]float32
}

func (e *staticEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	return []float32{1, 0}, nil
}

func (e *staticEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i], _ = e.Embed(ctx, text)
	}
	return out, nil
}

func (e *staticEmbedder) Model() string { return "static" }

// testRouter wires the ask routes against an in-memory index. The mongo
// client points at nothing; history writes are best-effort and fail fast.
func testRouter(t *testing.T, store *vectorstore.Store) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		MaxResults:           3,
		MaxDistance:          0.9,
		ShowConfidenceScores: true,
		ShowPageNumbers:      true,
		DBName:               "sop_assistant_test",
	}
	emb := &staticEmbedder{vectors: map[string][]float32{
		"unrelated question": {0, 1},
	}}
	retriever := services.NewRetriever(cfg, emb, store)

	mongoClient, err := mongo.Connect(context.Background(),
		options.Client().ApplyURI("mongodb://localhost:1").
			SetServerSelectionTimeout(10*time.Millisecond))
	if err != nil {
		t.Fatalf("mongo client: %v", err)
	}
	t.Cleanup(func() { _ = mongoClient.Disconnect(context.Background()) })

	router := gin.New()
	SetupAskRoutes(router, cfg, retriever, nil, nil, mongoClient)
	return router
}

func policyStore(t *testing.T) *vectorstore.Store {
	t.Helper()
	store := vectorstore.New("static")
	err := store.Add([]float32{1, 0}, models.DocumentChunk{
		ChunkID: "c1",
		Text:    "Employees accrue 1.5 vacation days per month.",
		Source:  "handbook.pdf",
		Page:    0,
	})
	if err != nil {
		t.Fatalf("add chunk: %v", err)
	}
	return store
}

func postAsk(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAskInvalidBody(t *testing.T) {
	router := testRouter(t, policyStore(t))

	if w := postAsk(router, "not json"); w.Code != http.StatusBadRequest {
		t.Errorf("malformed body: status = %d, want 400", w.Code)
	}
	if w := postAsk(router, `{"session_id":"s1"}`); w.Code != http.StatusBadRequest {
		t.Errorf("missing question: status = %d, want 400", w.Code)
	}
}

func TestAskWhitespaceQuestion(t *testing.T) {
	router := testRouter(t, policyStore(t))

	w := postAsk(router, `{"question":"   "}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp["error_code"] != "empty_query" {
		t.Errorf("error_code = %v, want empty_query", resp["error_code"])
	}
}

func TestAskAnswerFound(t *testing.T) {
	router := testRouter(t, policyStore(t))

	w := postAsk(router, `{"question":"What is the leave policy?","session_id":"s1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Answer    string          `json:"answer"`
		Found     bool            `json:"found"`
		Sources   []models.Source `json:"sources"`
		SessionID string          `json:"session_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !resp.Found {
		t.Fatal("found = false, want true")
	}
	if !strings.Contains(resp.Answer, "vacation days") {
		t.Errorf("answer missing the source text: %q", resp.Answer)
	}
	if len(resp.Sources) != 1 || resp.Sources[0].Page != 1 {
		t.Errorf("sources = %+v, want one source at page 1", resp.Sources)
	}
	if resp.SessionID != "s1" {
		t.Errorf("session_id = %q, want s1", resp.SessionID)
	}
}

// A question with no relevant material is a normal 200 response carrying the
// not-found sentinel, never an error status.
func TestAskNotFound(t *testing.T) {
	router := testRouter(t, policyStore(t))

	w := postAsk(router, `{"question":"unrelated question"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp struct {
		Answer  string          `json:"answer"`
		Found   bool            `json:"found"`
		Sources []models.Source `json:"sources"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Found {
		t.Fatal("found = true, want false")
	}
	if resp.Answer != services.NotFoundAnswer {
		t.Errorf("answer = %q, want the not-found sentinel", resp.Answer)
	}
	if len(resp.Sources) != 0 {
		t.Errorf("sources = %+v, want none", resp.Sources)
	}
}

// A failing streamed request must come back as a JSON error, not as an SSE
// body: the event-stream content type is committed only once retrieval has
// produced an answer.
func TestAskStreamErrorIsJSON(t *testing.T) {
	router := testRouter(t, policyStore(t))

	req := httptest.NewRequest(http.MethodGet, "/ask?question="+url.QueryEscape("   "), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	if resp["error_code"] != "empty_query" {
		t.Errorf("error_code = %v, want empty_query", resp["error_code"])
	}
}

func TestAskStreamEmitsEvents(t *testing.T) {
	router := testRouter(t, policyStore(t))

	req := httptest.NewRequest(http.MethodGet, "/ask?question="+url.QueryEscape("What is the leave policy?"), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, "data: ") {
		t.Fatal("no SSE events in body")
	}
	if !strings.Contains(body, `"ttft"`) {
		t.Error("missing time-to-first-token event")
	}
	if !strings.Contains(body, `"complete":true`) {
		t.Error("missing completion event")
	}
}

func TestAskWithoutIndex(t *testing.T) {
	router := testRouter(t, nil)

	w := postAsk(router, `{"question":"anything"}`)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}
