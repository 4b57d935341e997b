// Command fake_advisor serves an OpenAI-compatible chat completion
// endpoint with canned recommendations, so the service can run locally
// without a real API key. Point OPENAI_BASE_URL at it and set any
// OPENAI_API_KEY.
package main

import (
	"encoding/json"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const defaultReply = "Shutting the generator down during the recommended window cuts fuel burned " +
	"while demand is at its lowest. Move any noncritical loads outside the window, confirm backup " +
	"capacity covers essential circuits, and restart ahead of the morning ramp to keep supply stable."

type fakeAdvisorServer struct {
	start    time.Time
	latency  time.Duration
	failRate float64
	reply    string

	mu         sync.Mutex
	byModel    map[string]int64
	totalCalls int64
	failures   int64
}

func main() {
	addr := getenvDefault("FAKE_ADVISOR_ADDR", ":18081")
	latencyMs := getenvIntDefault("FAKE_ADVISOR_LATENCY_MS", 0)
	failRate := getenvFloatDefault("FAKE_ADVISOR_FAIL_RATE", 0)
	reply := getenvDefault("FAKE_ADVISOR_REPLY", defaultReply)

	srv := &fakeAdvisorServer{
		start:    time.Now().UTC(),
		latency:  time.Duration(latencyMs) * time.Millisecond,
		failRate: failRate,
		reply:    reply,
		byModel:  make(map[string]int64),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", srv.handleHealth)
	mux.HandleFunc("/stats", srv.handleStats)
	mux.HandleFunc("/chat/completions", srv.handleCompletion)
	mux.HandleFunc("/v1/chat/completions", srv.handleCompletion)

	log.Printf("fake advisor listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal(err)
	}
}

func (s *fakeAdvisorServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *fakeAdvisorServer) handleStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload := map[string]any{
		"started_at": s.start.Format(time.RFC3339),
		"total":      atomic.LoadInt64(&s.totalCalls),
		"failures":   atomic.LoadInt64(&s.failures),
		"by_model":   s.byModel,
	}
	writeJSON(w, payload)
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (s *fakeAdvisorServer) handleCompletion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if s.latency > 0 {
		time.Sleep(s.latency)
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	s.recordCall(req.Model)

	if s.failRate > 0 && rand.Float64() < s.failRate {
		atomic.AddInt64(&s.failures, 1)
		http.Error(w, "injected failure", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"id":      "chatcmpl-fake-" + strconv.FormatInt(atomic.LoadInt64(&s.totalCalls), 10),
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   req.Model,
		"choices": []map[string]any{
			{
				"index":         0,
				"message":       chatMessage{Role: "assistant", Content: s.composeReply(req)},
				"finish_reason": "stop",
			},
		},
	})
}

// composeReply echoes the analyzed window back when the prompt carries
// one, so local runs read like real completions.
func (s *fakeAdvisorServer) composeReply(req chatRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		msg := req.Messages[i]
		if msg.Role != "user" {
			continue
		}
		for _, line := range strings.Split(msg.Content, "\n") {
			if strings.Contains(line, "Recommended shutdown window:") {
				window := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "-"))
				return window + ". " + s.reply
			}
		}
		break
	}
	return s.reply
}

func (s *fakeAdvisorServer) recordCall(model string) {
	atomic.AddInt64(&s.totalCalls, 1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if model == "" {
		model = "unknown"
	}
	s.byModel[model]++
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvFloatDefault(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
