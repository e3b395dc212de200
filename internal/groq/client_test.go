package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func TestPrompt(t *testing.T) {
	got := Prompt("CSE", "Hard")
	want := "Suggest a Hard level final year project idea for a CSE student. Keep it under 5 lines, no markdown or formatting."
	if got != want {
		t.Errorf("Prompt = %q, want %q", got, want)
	}
}

func TestClient_Generate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.Header.Get("Authorization") != "Bearer gsk-test" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Model != "llama3-70b-8192" {
			t.Errorf("model = %q, want llama3-70b-8192", req.Model)
		}
		if req.Temperature != 0.7 {
			t.Errorf("temperature = %v, want 0.7", req.Temperature)
		}
		if req.MaxTokens != 300 {
			t.Errorf("max_tokens = %d, want 300", req.MaxTokens)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Fatalf("unexpected messages: %+v", req.Messages)
		}
		if !strings.Contains(req.Messages[0].Content, "Medium level") || !strings.Contains(req.Messages[0].Content, "ECE student") {
			t.Errorf("prompt = %q", req.Messages[0].Content)
		}

		io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"  **Smart Grid** monitor with _LoRa_  "}}]}`)
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := NewClient(server.Client(), newTestLogger(&buf), "gsk-test", "", server.URL)

	got, err := c.Generate(context.Background(), "ECE", "Medium")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if got != "Smart Grid monitor with LoRa" {
		t.Errorf("Generate = %q, want %q", got, "Smart Grid monitor with LoRa")
	}
}

func TestClient_Generate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error":{"message":"boom"}}`},
		{"rate limited", http.StatusTooManyRequests, `{}`},
		{"empty choices", http.StatusOK, `{"choices":[]}`},
		{"invalid json", http.StatusOK, `not json`},
		{"blank content", http.StatusOK, `{"choices":[{"message":{"content":"  ## "}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer server.Close()

			var buf bytes.Buffer
			c := NewClient(server.Client(), newTestLogger(&buf), "gsk-test", "", server.URL)

			_, err := c.Generate(context.Background(), "IT", "Easy")
			if !errors.Is(err, ErrGenerationFailed) {
				t.Errorf("error = %v, want ErrGenerationFailed", err)
			}
			if calls != 1 {
				t.Errorf("calls = %d, want 1 (no retry)", calls)
			}
		})
	}
}

func TestClient_Generate_MissingAPIKey(t *testing.T) {
	var buf bytes.Buffer
	c := NewClient(http.DefaultClient, newTestLogger(&buf), "", "", "http://127.0.0.1:0")

	_, err := c.Generate(context.Background(), "IT", "Easy")
	if !errors.Is(err, ErrGenerationFailed) {
		t.Errorf("error = %v, want ErrGenerationFailed", err)
	}
}
