package openai

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

// chatRequest mirrors the fields of the provider request the stub asserts on.
type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

func TestCompleteAgainstStubProvider(t *testing.T) {
	var captured chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  captured.Model,
			"choices": []map[string]interface{}{
				{
					"index":         0,
					"finish_reason": "stop",
					"message": map[string]string{
						"role":    "assistant",
						"content": "It will rain tomorrow.",
					},
				},
			},
			"usage": map[string]int{
				"prompt_tokens":     30,
				"completion_tokens": 12,
				"total_tokens":      42,
			},
		})
	}))
	defer server.Close()

	gateway := NewGateway(Config{APIKey: "test-key", BaseURL: server.URL}, nil)

	completion, err := gateway.Complete(context.Background(), "gpt-3.5-turbo",
		"You are a weather bot.", "Will it rain tomorrow?")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	if completion.Text != "It will rain tomorrow." {
		t.Fatalf("text = %q", completion.Text)
	}
	if completion.Tokens != 42 {
		t.Fatalf("tokens = %d, want 42", completion.Tokens)
	}
	if want := 0.002 / 1000 * 42; math.Abs(completion.Cost-want) > 1e-12 {
		t.Fatalf("cost = %v, want %v", completion.Cost, want)
	}

	if captured.Model != "gpt-3.5-turbo" {
		t.Fatalf("request model = %q", captured.Model)
	}
	if len(captured.Messages) != 2 {
		t.Fatalf("message count = %d, want system+user pair", len(captured.Messages))
	}
	if captured.Messages[0].Role != "system" || captured.Messages[0].Content != "You are a weather bot." {
		t.Fatalf("system message = %+v", captured.Messages[0])
	}
	if captured.Messages[1].Role != "user" || captured.Messages[1].Content != "Will it rain tomorrow?" {
		t.Fatalf("user message = %+v", captured.Messages[1])
	}
	if captured.Temperature != temperature {
		t.Fatalf("temperature = %v, want %v", captured.Temperature, float64(temperature))
	}
	if captured.MaxTokens != maxTokens {
		t.Fatalf("max_tokens = %d, want %d", captured.MaxTokens, maxTokens)
	}
}

func TestCompleteProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limit reached","type":"requests"}}`))
	}))
	defer server.Close()

	gateway := NewGateway(Config{APIKey: "test-key", BaseURL: server.URL}, nil)

	_, err := gateway.Complete(context.Background(), "gpt-4", "sys", "user")
	if err == nil {
		t.Fatal("expected provider error")
	}
}

func TestEstimateCost(t *testing.T) {
	cases := []struct {
		model  string
		tokens int
		want   float64
	}{
		{"gpt-3.5-turbo", 1000, 0.002},
		{"gpt-4", 1000, 0.03},
		{"gpt-4-turbo", 1000, 0.01},
		{"gpt-3.5-turbo", 0, 0},
		{"unknown-model", 500, 0},
	}
	for _, tc := range cases {
		got := EstimateCost(tc.model, tc.tokens)
		if math.Abs(got-tc.want) > 1e-12 {
			t.Errorf("EstimateCost(%q, %d) = %v, want %v", tc.model, tc.tokens, got, tc.want)
		}
	}
}
