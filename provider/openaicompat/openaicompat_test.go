package openaicompat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nevindra/hica"
)

func chatReply(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	})
	return string(b)
}

func TestCreateStructured(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("auth = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(chatReply(`{"intent":"done","reason":"r"}`)))
	}))
	defer srv.Close()

	p := NewProvider("test-key", "gpt-test", srv.URL)
	raw, err := p.CreateStructured(context.Background(), hica.StructuredRequest{
		Messages: []hica.Message{
			hica.SystemMessage("sys"),
			hica.UserMessage("pick"),
		},
		Schema: hica.SelectionSchema(nil),
	})
	if err != nil {
		t.Fatalf("CreateStructured: %v", err)
	}
	if string(raw) != `{"intent":"done","reason":"r"}` {
		t.Fatalf("raw = %s", raw)
	}

	if got.Model != "gpt-test" || got.Temperature != 0 {
		t.Fatalf("request = %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "pick" {
		t.Fatalf("messages = %+v", got.Messages)
	}
	rf := got.ResponseFormat
	if rf == nil || rf.Type != "json_schema" || rf.JSONSchema == nil {
		t.Fatalf("response_format = %+v", rf)
	}
	if rf.JSONSchema.Name != "response" || !rf.JSONSchema.Strict {
		t.Fatalf("json_schema = %+v", rf.JSONSchema)
	}
}

func TestCreateStructuredHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("rate limited"))
	}))
	defer srv.Close()

	p := NewProvider("k", "m", srv.URL)
	_, err := p.CreateStructured(context.Background(), hica.StructuredRequest{})
	var httpErr *hica.ErrHTTP
	if !errors.As(err, &httpErr) {
		t.Fatalf("got %v, want *ErrHTTP", err)
	}
	if httpErr.Status != 429 || httpErr.Body != "rate limited" {
		t.Fatalf("err = %+v", httpErr)
	}
	if httpErr.RetryAfter != 7*time.Second {
		t.Fatalf("retry-after = %v", httpErr.RetryAfter)
	}
}

func TestCreateStructuredBadOutput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no choices", `{"choices":[]}`},
		{"non-json content", chatReply("sure, here you go!")},
		{"malformed body", `{nope`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p := NewProvider("k", "m", srv.URL)
			_, err := p.CreateStructured(context.Background(), hica.StructuredRequest{})
			var llmErr *hica.ErrLLM
			if !errors.As(err, &llmErr) {
				t.Fatalf("got %v, want *ErrLLM", err)
			}
		})
	}
}

func TestProviderName(t *testing.T) {
	if got := NewProvider("", "m", "http://x").Name(); got != "openai" {
		t.Fatalf("default name = %q", got)
	}
	if got := NewProvider("", "m", "http://x", WithName("ollama")).Name(); got != "ollama" {
		t.Fatalf("custom name = %q", got)
	}
}
