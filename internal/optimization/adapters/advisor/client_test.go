package advisor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	optimizationapp "github.com/YoussefMadkour/SmartGen-Energy-AI/internal/optimization/application"
)

func sampleAdvice() optimizationapp.Advice {
	return optimizationapp.Advice{
		AvgPowerKW:        132.5,
		LowestHours:       []int{2, 3, 4, 5},
		WindowStart:       time.Date(2025, 11, 14, 2, 0, 0, 0, time.UTC),
		WindowEnd:         time.Date(2025, 11, 14, 6, 0, 0, 0, time.UTC),
		DurationHours:     4,
		FuelSavedLiters:   151,
		DailySavingsUSD:   226.5,
		MonthlySavingsUSD: 6795,
	}
}

func TestRecommendSendsChatRequest(t *testing.T) {
	requestCh := make(chan chatRequest, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected authorization header %q", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		requestCh <- req
		_ = json.NewEncoder(w).Encode(chatResponse{
			Choices: []chatChoice{{Message: chatMessage{Role: "assistant", Content: "  Shut it down overnight.\n"}}},
		})
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL, APIKey: "test-key"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	text, err := client.Recommend(context.Background(), sampleAdvice())
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if text != "Shut it down overnight." {
		t.Fatalf("expected trimmed completion, got %q", text)
	}

	req := <-requestCh
	if req.Model != "gpt-4" {
		t.Fatalf("expected default model gpt-4, got %q", req.Model)
	}
	if req.Temperature != 0.1 {
		t.Fatalf("expected temperature 0.1, got %v", req.Temperature)
	}
	if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
		t.Fatalf("unexpected messages: %+v", req.Messages)
	}
	prompt := req.Messages[1].Content
	checks := []string{
		"132.50 kW",
		"2, 3, 4, 5",
		"02:00 to 06:00 (4 hours)",
		"$226.50",
		"$6795.00",
	}
	for _, want := range checks {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestRecommendModelOverride(t *testing.T) {
	requestCh := make(chan chatRequest, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		requestCh <- req
		_ = json.NewEncoder(w).Encode(chatResponse{
			Choices: []chatChoice{{Message: chatMessage{Content: "ok"}}},
		})
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL, APIKey: "test-key", Model: "gpt-4o-mini"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.Recommend(context.Background(), sampleAdvice()); err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if req := <-requestCh; req.Model != "gpt-4o-mini" {
		t.Fatalf("expected model override, got %q", req.Model)
	}
}

func TestRecommendNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(chatResponse{})
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL, APIKey: "test-key"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.Recommend(context.Background(), sampleAdvice()); err == nil {
		t.Fatalf("expected error for empty choices")
	}
}

func TestRecommendUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL, APIKey: "test-key"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = client.Recommend(context.Background(), sampleAdvice())
	if err == nil || !strings.Contains(err.Error(), "http 500") {
		t.Fatalf("expected http 500 error, got %v", err)
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{APIKey: "key"}); err == nil {
		t.Fatalf("expected error for empty base url")
	}
	if _, err := NewClient(Config{BaseURL: "http://localhost"}); err == nil {
		t.Fatalf("expected error for empty api key")
	}
}

func TestPromptFormat(t *testing.T) {
	want := "Based on the generator usage analysis:\n" +
		"- Average power consumption: 132.50 kW\n" +
		"- Lowest usage hours: 2, 3, 4, 5\n" +
		"- Recommended shutdown window: 02:00 to 06:00 (4 hours)\n" +
		"- Daily savings: $226.50\n" +
		"- Monthly savings: $6795.00\n\n" +
		"Provide a concise recommendation for the operator explaining the benefits of this shutdown window."
	if got := Prompt(sampleAdvice()); got != want {
		t.Fatalf("unexpected prompt:\n%s", got)
	}
}
