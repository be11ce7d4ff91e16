package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOllamaProvider_Invoke_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("Expected path /api/generate, got %s", r.URL.Path)
		}

		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.System != "system instruction" || req.Prompt != "user prompt" {
			t.Errorf("Unexpected request: %+v", req)
		}
		if req.Stream {
			t.Error("Expected non-streaming request")
		}

		resp := ollamaResponse{
			Model:           "qwen2.5:14b",
			Response:        "## Overview\nCalm week.",
			Done:            true,
			PromptEvalCount: 10,
			EvalCount:       20,
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(Config{
		BaseURL: server.URL,
		Model:   "qwen2.5:14b",
		Timeout: 5,
	})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	got, err := provider.Invoke(context.Background(), "system instruction", "user prompt")
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if got != "## Overview\nCalm week." {
		t.Errorf("Unexpected reply: %q", got)
	}
}

func TestOllamaProvider_Invoke_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(ollamaError{Error: "model 'missing' not found"})
	}))
	defer server.Close()

	provider, _ := NewOllamaProvider(Config{BaseURL: server.URL, Model: "missing", Timeout: 5})

	_, err := provider.Invoke(context.Background(), "s", "p")
	if err == nil {
		t.Fatal("Expected error")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("Expected upstream message in error, got %v", err)
	}
}

func TestOllamaProvider_Invoke_EmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ollamaResponse{Model: "m", Response: "   ", Done: true})
	}))
	defer server.Close()

	provider, _ := NewOllamaProvider(Config{BaseURL: server.URL, Model: "m", Timeout: 5})

	if _, err := provider.Invoke(context.Background(), "s", "p"); err != ErrNoResponse {
		t.Errorf("Expected ErrNoResponse, got %v", err)
	}
}

func TestOllamaProvider_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	provider, _ := NewOllamaProvider(Config{BaseURL: server.URL + "/", Model: "m"})
	if !provider.IsAvailable(context.Background()) {
		t.Error("Expected provider to be available")
	}
	if provider.BaseURL() != server.URL {
		t.Errorf("Expected trailing slash trimmed, got %s", provider.BaseURL())
	}
}

func TestNewOllamaProvider_RequiresModel(t *testing.T) {
	if _, err := NewOllamaProvider(Config{}); err == nil {
		t.Error("Expected error without model")
	}
}
