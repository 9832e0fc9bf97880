package groq

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tradepilot/tradepilot/internal/core/domain"
	"github.com/tradepilot/tradepilot/internal/infrastructure/resilience"
)

func newTestExecutor() *resilience.Executor {
	cfg := resilience.DefaultConfig()
	cfg.RetryMaxAttempts = 1
	cfg.BreakerEnabled = false
	return resilience.NewExecutor(cfg)
}

func chatServer(t *testing.T, content string, capture *chatRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected authorization header %q", auth)
		}
		if capture != nil {
			if err := json.NewDecoder(r.Body).Decode(capture); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestExtractorParsesStrictJSON(t *testing.T) {
	content := `{"exporter_country":"Japan","importer_country":"Canada","product_name":"passenger cars","product_code":"8703","status":"complete"}`
	var captured chatRequest
	server := chatServer(t, content, &captured)
	defer server.Close()

	client := New(server.URL, "test-key", "llama-3.3-70b-versatile", newTestExecutor())
	fields, err := NewExtractor(client).ExtractTradeInfo(context.Background(), "Tariff for cars from Japan to Canada?")
	if err != nil {
		t.Fatalf("ExtractTradeInfo() error = %v", err)
	}
	if fields.Exporter != "Japan" || fields.Importer != "Canada" {
		t.Fatalf("unexpected countries: %+v", fields)
	}
	if fields.ProductCode != "8703" {
		t.Fatalf("unexpected product code: %q", fields.ProductCode)
	}
	if fields.Status != domain.ExtractionComplete {
		t.Fatalf("unexpected status: %q", fields.Status)
	}
	if captured.Model != "llama-3.3-70b-versatile" {
		t.Fatalf("unexpected model: %q", captured.Model)
	}
}

func TestExtractorToleratesWrappedJSON(t *testing.T) {
	content := "Here is the result:\n```json\n{\"exporter_country\":\"Vietnam\",\"importer_country\":\"\",\"product_name\":\"coffee\",\"product_code\":\"\",\"status\":\"partial_but_usable\"}\n```"
	server := chatServer(t, content, nil)
	defer server.Close()

	client := New(server.URL, "test-key", "m", newTestExecutor())
	fields, err := NewExtractor(client).ExtractTradeInfo(context.Background(), "coffee from Vietnam")
	if err != nil {
		t.Fatalf("ExtractTradeInfo() error = %v", err)
	}
	if fields.Status != domain.ExtractionPartialUsable {
		t.Fatalf("unexpected status: %q", fields.Status)
	}
	if fields.Exporter != "Vietnam" {
		t.Fatalf("unexpected exporter: %q", fields.Exporter)
	}
}

func TestSynthesizerBuildsContextPrompt(t *testing.T) {
	var captured chatRequest
	server := chatServer(t, "answer text", &captured)
	defer server.Close()

	client := New(server.URL, "test-key", "m", newTestExecutor())
	chunks := []domain.RetrievedChunk{{
		DocumentChunk: domain.DocumentChunk{
			Content:   strings.Repeat("duty rate 2.5% ", 100),
			SourceID:  "usmca.pdf",
			Page:      12,
			Title:     "usmca",
			OriginURL: "https://example.org/usmca.pdf",
		},
		Score: 0.9,
	}}
	answer, err := NewSynthesizer(client).SynthesizeAnswer(context.Background(), "What is the duty?", chunks)
	if err != nil {
		t.Fatalf("SynthesizeAnswer() error = %v", err)
	}
	if answer != "answer text" {
		t.Fatalf("unexpected answer: %q", answer)
	}

	if len(captured.Messages) != 2 {
		t.Fatalf("expected system+user messages, got %d", len(captured.Messages))
	}
	prompt := captured.Messages[1].Content
	for _, want := range []string{"usmca", "Page: 12", "https://example.org/usmca.pdf", "What is the duty?"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, strings.Repeat("duty rate 2.5% ", 100)) {
		t.Fatalf("chunk content was not truncated")
	}
}

func TestSynthesizerWrapsErrorsAsSynthesisKind(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid request", http.StatusBadRequest)
	}))
	defer server.Close()

	client := New(server.URL, "test-key", "m", newTestExecutor())
	_, err := NewSynthesizer(client).SynthesizeAnswer(context.Background(), "q", nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrSynthesis) {
		t.Fatalf("expected synthesis kind, got %v", err)
	}
}

func TestChatRetriesRetryableStatus(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": "ok"}}},
		})
	}))
	defer server.Close()

	cfg := resilience.DefaultConfig()
	cfg.RetryMaxAttempts = 2
	cfg.RetryInitialBackoff = 1
	cfg.BreakerEnabled = false

	client := New(server.URL, "test-key", "m", resilience.NewExecutor(cfg))
	answer, err := client.chat(context.Background(), "synthesize", []chatMessage{{Role: "user", Content: "q"}}, 0.2, 64)
	if err != nil {
		t.Fatalf("chat() error = %v", err)
	}
	if answer != "ok" || calls != 2 {
		t.Fatalf("expected retry then success, got answer=%q calls=%d", answer, calls)
	}
}
